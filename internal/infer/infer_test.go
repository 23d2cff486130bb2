package infer

import (
	"reflect"
	"testing"
	"time"

	"github.com/sessionlab/rollcall/internal/archive"
	"github.com/sessionlab/rollcall/internal/classify"
	"github.com/sessionlab/rollcall/internal/grid"
	"github.com/sessionlab/rollcall/internal/identifier"
)

var cellTime = time.Date(2024, 12, 2, 10, 0, 0, 0, time.UTC)

// talkingConv builds a conversation with user activity of the given length.
func talkingConv(id string, station int, start time.Time, active time.Duration) *archive.Conversation {
	c := &archive.Conversation{ID: id, Station: station, CreateTime: start}
	c.Messages = append(c.Messages, archive.Message{Role: "user", Text: "hi", Timestamp: start})
	if active > 0 {
		c.Messages = append(c.Messages, archive.Message{Role: "user", Text: "bye", Timestamp: start.Add(active)})
	}
	return c
}

func explicitEntry(id string, station int, start time.Time, canonical identifier.Candidate) grid.Entry {
	return grid.Entry{
		Conv:  talkingConv(id, station, start, time.Minute),
		Class: classify.Classification{Outcome: classify.OutcomeExplicit, Candidate: canonical},
	}
}

func silentEntry(id string, station int, start time.Time, active time.Duration) grid.Entry {
	return grid.Entry{
		Conv:  talkingConv(id, station, start, active),
		Class: classify.Classification{Outcome: classify.OutcomeNone},
	}
}

func cand(day, hour, minute, computer int) identifier.Candidate {
	return identifier.Candidate{Day: day, Month: 12, Year: 2024, Hour: hour, Minute: minute, Computer: computer}
}

func buildGrid(t *testing.T, entries ...grid.Entry) *grid.Grid {
	t.Helper()
	g, unplaced := grid.Build(entries, 15)
	if len(unplaced) != 0 {
		t.Fatalf("unexpected unplaced entries: %d", len(unplaced))
	}
	return g
}

func TestRun_ExplicitPassThrough(t *testing.T) {
	g := buildGrid(t, explicitEntry("a", 2, cellTime, cand(5, 16, 0, 2)))

	atts, anomalies := New(0).Run(g)
	if len(anomalies) != 0 {
		t.Errorf("unexpected anomalies: %v", anomalies)
	}
	if len(atts) != 1 {
		t.Fatalf("expected 1 attribution, got %d", len(atts))
	}
	if atts[0].Tier != TierExplicit {
		t.Errorf("tier = %v, want explicit", atts[0].Tier)
	}
	if atts[0].Canonical != "05122024_1600_02" {
		t.Errorf("canonical = %q", atts[0].Canonical)
	}
}

func TestRun_MultiExplicitCellIsAnomaly(t *testing.T) {
	// Two distinct explicit ids on one workstation in one window violates
	// resource exclusivity: surface it, keep both participants.
	g := buildGrid(t,
		explicitEntry("a", 2, cellTime, cand(5, 16, 0, 2)),
		explicitEntry("b", 2, cellTime.Add(time.Minute), cand(5, 17, 0, 2)),
	)

	atts, anomalies := New(0).Run(g)
	if len(anomalies) != 1 {
		t.Fatalf("expected exactly 1 anomaly, got %d", len(anomalies))
	}
	a := anomalies[0]
	if len(a.Identifiers) != 2 {
		t.Errorf("anomaly identifiers = %v, want 2 distinct", a.Identifiers)
	}
	if !reflect.DeepEqual(a.Conversations, []string{"a", "b"}) {
		t.Errorf("anomaly conversations = %v", a.Conversations)
	}

	// Both explicit participants are still emitted — never merged into one.
	ids := map[string]bool{}
	for _, att := range atts {
		ids[att.Canonical] = true
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 distinct participants, got %v", ids)
	}
}

func TestRun_SameExplicitIDTwiceIsNotAnomaly(t *testing.T) {
	g := buildGrid(t,
		explicitEntry("a", 2, cellTime, cand(5, 16, 0, 2)),
		explicitEntry("b", 2, cellTime.Add(time.Minute), cand(5, 16, 0, 2)),
	)

	_, anomalies := New(0).Run(g)
	if len(anomalies) != 0 {
		t.Errorf("same id twice should not be an anomaly: %v", anomalies)
	}
}

func TestRun_InferredSharedIdentifier(t *testing.T) {
	// Spec scenario: two unidentified conversations, 2 min + 1 min active,
	// share one inferred id anchored to the earliest and tier MEDIUM.
	g := buildGrid(t,
		silentEntry("a", 3, cellTime, 2*time.Minute),
		silentEntry("b", 3, cellTime.Add(5*time.Minute), 1*time.Minute),
	)

	atts, anomalies := New(0).Run(g)
	if len(anomalies) != 0 {
		t.Errorf("unexpected anomalies: %v", anomalies)
	}
	if len(atts) != 2 {
		t.Fatalf("expected 2 attributions, got %d", len(atts))
	}
	want := "02122024_1000_03"
	for _, att := range atts {
		if att.Canonical != want {
			t.Errorf("canonical = %q, want shared %q", att.Canonical, want)
		}
		if att.Tier != TierMedium {
			t.Errorf("tier = %v, want MEDIUM (3 min <= 5 min)", att.Tier)
		}
		if att.Candidate.Source != identifier.SourceInferred {
			t.Errorf("source = %v, want inferred", att.Candidate.Source)
		}
	}
}

func TestRun_InferredHighConfidence(t *testing.T) {
	// Same cell shape but 6 minutes of total activity crosses the threshold.
	g := buildGrid(t,
		silentEntry("a", 3, cellTime, 4*time.Minute),
		silentEntry("b", 3, cellTime.Add(5*time.Minute), 2*time.Minute),
	)

	atts, _ := New(0).Run(g)
	for _, att := range atts {
		if att.Tier != TierHigh {
			t.Errorf("tier = %v, want HIGH (6 min > 5 min)", att.Tier)
		}
	}
}

func TestRun_ZeroDurationStillInferred(t *testing.T) {
	// A cell whose only conversation has no measurable activity still yields
	// a MEDIUM participant; the silence itself feeds missing-data accounting.
	g := buildGrid(t, silentEntry("a", 4, cellTime, 0))

	atts, _ := New(0).Run(g)
	if len(atts) != 1 {
		t.Fatalf("expected 1 attribution, got %d", len(atts))
	}
	if atts[0].Tier != TierMedium {
		t.Errorf("tier = %v, want MEDIUM", atts[0].Tier)
	}
}

func TestRun_CustomThreshold(t *testing.T) {
	g := buildGrid(t, silentEntry("a", 3, cellTime, 3*time.Minute))

	atts, _ := New(2 * time.Minute).Run(g)
	if atts[0].Tier != TierHigh {
		t.Errorf("tier = %v, want HIGH with a 2-minute threshold", atts[0].Tier)
	}
}

func TestRun_MentionedHonoredWithoutExplicit(t *testing.T) {
	g := buildGrid(t, grid.Entry{
		Conv:  talkingConv("a", 2, cellTime, time.Minute),
		Class: classify.Classification{Outcome: classify.OutcomeMentioned, Candidate: cand(5, 16, 0, 2)},
	})

	atts, _ := New(0).Run(g)
	if len(atts) != 1 || atts[0].Tier != TierMentioned {
		t.Fatalf("atts = %v, want one mentioned attribution", atts)
	}
}

func TestRun_MentionedDemotedByExplicit(t *testing.T) {
	// A mentioned id in a cell that also has an explicit id is distrusted:
	// the conversation joins the inferred pool instead.
	g := buildGrid(t,
		explicitEntry("a", 2, cellTime, cand(5, 16, 0, 2)),
		grid.Entry{
			Conv:  talkingConv("b", 2, cellTime.Add(time.Minute), time.Minute),
			Class: classify.Classification{Outcome: classify.OutcomeMentioned, Candidate: cand(5, 17, 0, 2)},
		},
	)

	atts, anomalies := New(0).Run(g)
	if len(anomalies) != 0 {
		t.Errorf("a demoted mention must not count toward anomalies: %v", anomalies)
	}
	var tiers []Tier
	for _, att := range atts {
		tiers = append(tiers, att.Tier)
	}
	if !reflect.DeepEqual(tiers, []Tier{TierExplicit, TierMedium}) {
		t.Errorf("tiers = %v, want [explicit MEDIUM]", tiers)
	}
}

func TestRun_Idempotent(t *testing.T) {
	g := buildGrid(t,
		explicitEntry("a", 2, cellTime, cand(5, 16, 0, 2)),
		silentEntry("b", 3, cellTime.Add(time.Minute), 10*time.Minute),
		silentEntry("c", 3, cellTime.Add(2*time.Minute), time.Minute),
		silentEntry("d", 5, cellTime.Add(40*time.Minute), 0),
	)

	e := New(0)
	atts1, anomalies1 := e.Run(g)
	atts2, anomalies2 := e.Run(g)

	if !reflect.DeepEqual(atts1, atts2) {
		t.Error("attributions differ across runs")
	}
	if !reflect.DeepEqual(anomalies1, anomalies2) {
		t.Error("anomalies differ across runs")
	}
}

func TestRun_EmptyGrid(t *testing.T) {
	g, _ := grid.Build(nil, 15)
	atts, anomalies := New(0).Run(g)
	if len(atts) != 0 || len(anomalies) != 0 {
		t.Errorf("empty grid produced output: %v %v", atts, anomalies)
	}
}
