// Package classify assigns each conversation at most one participant
// identifier and a trust tier for how it was found.
package classify

import (
	"strings"

	"github.com/sessionlab/rollcall/internal/archive"
	"github.com/sessionlab/rollcall/internal/identifier"
)

// Outcome is the trust tier of a conversation's identifier evidence.
type Outcome int

const (
	// OutcomeNone: no identifier-shaped token was accepted anywhere.
	OutcomeNone Outcome = iota
	// OutcomeMentioned: an identifier-shaped token appeared without a trigger
	// phrase. Lower trust; honored only when a grid cell has no explicit id.
	OutcomeMentioned
	// OutcomeExplicit: the participant announced the identifier with a
	// trigger phrase ("my id is ...").
	OutcomeExplicit
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExplicit:
		return "explicit"
	case OutcomeMentioned:
		return "mentioned"
	default:
		return "none"
	}
}

// triggers are the phrases a participant uses to announce their identifier.
// Matching is case-insensitive substring search, after the original study
// instrument's prompt wording.
var triggers = []string{"my id", "id is"}

// Classification is the result of scanning one conversation.
type Classification struct {
	Outcome   Outcome
	Candidate identifier.Candidate // valid only when Outcome != OutcomeNone
}

// Classify scans a conversation's user messages in timestamp order and
// returns its identifier evidence. The scan short-circuits: the first
// accepted match wins and a conversation declares at most one identifier.
//
// Two passes, in decreasing trust:
//  1. messages carrying a trigger phrase, against the full rule table;
//  2. all user messages, against the date-bearing rules only (bare anchored
//     patterns match too many incidental numbers to trust untriggered).
func Classify(conv *archive.Conversation) Classification {
	user := conv.UserMessages()
	anchor := conv.CreateTime

	for _, m := range user {
		if !hasTrigger(m.Text) {
			continue
		}
		if c, ok := identifier.Extract(m.Text, anchor); ok {
			return Classification{Outcome: OutcomeExplicit, Candidate: c}
		}
	}

	for _, m := range user {
		if c, ok := identifier.ExtractDated(m.Text, anchor); ok {
			return Classification{Outcome: OutcomeMentioned, Candidate: c}
		}
	}

	return Classification{Outcome: OutcomeNone}
}

func hasTrigger(text string) bool {
	lower := strings.ToLower(text)
	for _, t := range triggers {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}
