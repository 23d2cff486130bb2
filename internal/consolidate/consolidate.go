// Package consolidate merges attributed conversations into the final
// participant roster. Output ordering is fully deterministic: the same input
// always yields byte-identical records.
package consolidate

import (
	"sort"
	"time"

	"github.com/sessionlab/rollcall/internal/archive"
	"github.com/sessionlab/rollcall/internal/infer"
)

// Participant is one consolidated participant record. Immutable once the
// consolidation pass completes.
type Participant struct {
	CanonicalID   string
	Explicit      bool // any contributing conversation stated the id
	Tier          infer.Tier
	Conversations []*archive.Conversation
	Stations      []int // contributing workstation folders, ascending

	FirstActivity time.Time
	LastActivity  time.Time

	TotalMessages int
	UserMessages  int
	TotalDuration time.Duration
	AvgDuration   time.Duration
}

// Consolidate groups attributions by canonical identifier and derives the
// aggregate metrics. Participants come back sorted by canonical id and each
// participant's conversations by creation time, then conversation id.
func Consolidate(atts []infer.Attribution) []Participant {
	byID := make(map[string][]infer.Attribution)
	for _, att := range atts {
		byID[att.Canonical] = append(byID[att.Canonical], att)
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	participants := make([]Participant, 0, len(ids))
	for _, id := range ids {
		group := byID[id]
		sort.SliceStable(group, func(i, j int) bool {
			ci, cj := group[i].Entry.Conv, group[j].Entry.Conv
			if !ci.CreateTime.Equal(cj.CreateTime) {
				return ci.CreateTime.Before(cj.CreateTime)
			}
			return ci.ID < cj.ID
		})

		p := Participant{CanonicalID: id, Tier: infer.TierMedium}
		stations := make(map[int]bool)

		for _, att := range group {
			conv := att.Entry.Conv
			p.Conversations = append(p.Conversations, conv)
			stations[conv.Station] = true

			if att.Tier == infer.TierExplicit {
				p.Explicit = true
			}
			if att.Tier < p.Tier {
				p.Tier = att.Tier
			}

			p.TotalMessages += len(conv.Messages)
			p.UserMessages += len(conv.UserMessages())
			p.TotalDuration += conv.ActiveDuration()

			for _, m := range conv.UserMessages() {
				if m.Timestamp.IsZero() {
					continue
				}
				if p.FirstActivity.IsZero() || m.Timestamp.Before(p.FirstActivity) {
					p.FirstActivity = m.Timestamp
				}
				if p.LastActivity.IsZero() || m.Timestamp.After(p.LastActivity) {
					p.LastActivity = m.Timestamp
				}
			}
		}

		if n := len(p.Conversations); n > 0 {
			p.AvgDuration = p.TotalDuration / time.Duration(n)
		}

		for s := range stations {
			p.Stations = append(p.Stations, s)
		}
		sort.Ints(p.Stations)

		participants = append(participants, p)
	}

	return participants
}
