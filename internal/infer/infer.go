// Package infer resolves grid cells into participant attributions. Cells
// with explicit identifiers pass them through; cells with unidentified
// conversations get a synthesized identifier, because an empty workstation
// slot with activity still means one participant was sitting there.
package infer

import (
	"time"

	"github.com/sessionlab/rollcall/internal/classify"
	"github.com/sessionlab/rollcall/internal/grid"
	"github.com/sessionlab/rollcall/internal/identifier"
)

// DefaultThreshold separates HIGH from MEDIUM confidence for inferred
// participants: more than five minutes of summed active conversation time.
const DefaultThreshold = 5 * time.Minute

// Tier is the trust level of an attribution.
type Tier int

const (
	TierExplicit Tier = iota
	TierMentioned
	TierHigh
	TierMedium
)

func (t Tier) String() string {
	switch t {
	case TierExplicit:
		return "explicit"
	case TierMentioned:
		return "mentioned"
	case TierHigh:
		return "HIGH"
	case TierMedium:
		return "MEDIUM"
	default:
		return "unknown"
	}
}

// Attribution ties one conversation to a resolved canonical identifier.
type Attribution struct {
	Entry     grid.Entry
	Candidate identifier.Candidate
	Canonical string
	Tier      Tier
}

// Anomaly is a violation of the resource-exclusivity invariant: a single
// cell produced more than one distinct explicit identifier. Surfaced to the
// caller, never silently merged.
type Anomaly struct {
	Cell          grid.CellKey
	Identifiers   []string // distinct explicit canonical ids, cell order
	Conversations []string // conversation ids that stated them
}

// Engine runs scheduling-constrained inference over a built grid.
type Engine struct {
	threshold time.Duration
}

// New creates an engine with the given HIGH/MEDIUM duration threshold.
// A zero or negative threshold selects the default.
func New(threshold time.Duration) *Engine {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Engine{threshold: threshold}
}

// Run resolves every cell. Cell traversal is sorted and each cell's entries
// are already in stable order, so running twice over the same grid yields
// identical attributions.
//
// Per cell:
//   - explicit identifiers pass through, one attribution each; more than one
//     distinct explicit id in a cell is recorded as an anomaly;
//   - mentioned identifiers are honored only when the cell has no explicit
//     id, otherwise the conversation is demoted to the unidentified pool;
//   - unidentified conversations share one inferred identifier anchored to
//     the earliest of them and the cell's workstation, HIGH when their summed
//     active duration exceeds the threshold, MEDIUM otherwise.
func (e *Engine) Run(g *grid.Grid) ([]Attribution, []Anomaly) {
	var atts []Attribution
	var anomalies []Anomaly

	for _, key := range g.SortedKeys() {
		cell := g.Cells[key]

		hasExplicit := false
		for _, entry := range cell {
			if entry.Class.Outcome == classify.OutcomeExplicit {
				hasExplicit = true
				break
			}
		}

		var explicitIDs []string
		var explicitConvs []string
		var unidentified []grid.Entry

		for _, entry := range cell {
			switch entry.Class.Outcome {
			case classify.OutcomeExplicit:
				canon := entry.Class.Candidate.Canonical()
				atts = append(atts, Attribution{
					Entry:     entry,
					Candidate: entry.Class.Candidate,
					Canonical: canon,
					Tier:      TierExplicit,
				})
				if !contains(explicitIDs, canon) {
					explicitIDs = append(explicitIDs, canon)
				}
				explicitConvs = append(explicitConvs, entry.Conv.ID)

			case classify.OutcomeMentioned:
				if hasExplicit {
					// Lower-trust evidence loses to the cell's explicit id.
					unidentified = append(unidentified, entry)
					continue
				}
				atts = append(atts, Attribution{
					Entry:     entry,
					Candidate: entry.Class.Candidate,
					Canonical: entry.Class.Candidate.Canonical(),
					Tier:      TierMentioned,
				})

			default:
				unidentified = append(unidentified, entry)
			}
		}

		if len(explicitIDs) > 1 {
			anomalies = append(anomalies, Anomaly{
				Cell:          key,
				Identifiers:   explicitIDs,
				Conversations: explicitConvs,
			})
		}

		if len(unidentified) == 0 {
			continue
		}

		// The exclusivity assumption: one unidentified participant per cell.
		// Anchor the synthesized id to the earliest unidentified conversation
		// (the cell is sorted by creation time).
		cand := identifier.FromTime(unidentified[0].Conv.CreateTime, key.Station)
		canon := cand.Canonical()

		var total time.Duration
		for _, entry := range unidentified {
			total += entry.Conv.ActiveDuration()
		}
		tier := TierMedium
		if total > e.threshold {
			tier = TierHigh
		}

		for _, entry := range unidentified {
			atts = append(atts, Attribution{
				Entry:     entry,
				Candidate: cand,
				Canonical: canon,
				Tier:      tier,
			})
		}
	}

	return atts, anomalies
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
