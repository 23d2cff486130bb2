// Package report renders the reconciliation output: the conversation-level
// and participant-level CSV datasets, the anomaly list, and the run summary.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sessionlab/rollcall/internal/consolidate"
	"github.com/sessionlab/rollcall/internal/infer"
)

// Summary is the run's accounting. A run always completes and reports the
// skipped and ambiguous counts alongside the participant counts.
type Summary struct {
	Stations             int `json:"stations"`
	TotalConversations   int `json:"total_conversations"`
	ExplicitID           int `json:"explicit_id"`
	MentionedID          int `json:"mentioned_id"`
	NoID                 int `json:"no_id"`
	Unplaced             int `json:"unplaced"` // no creation timestamp, outside the grid
	SkippedFiles         int `json:"skipped_files"`
	Participants         int `json:"participants"`
	ExplicitParticipants int `json:"explicit_participants"`
	InferredParticipants int `json:"inferred_participants"`
	Anomalies            int `json:"anomalies"`
}

// WriteSummaryJSON writes the summary as indented JSON.
func WriteSummaryJSON(w io.Writer, s Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// FormatSummary renders a human-readable run summary block.
func FormatSummary(s Summary) string {
	var sb strings.Builder
	sb.WriteString("=== Reconciliation Summary ===\n")
	fmt.Fprintf(&sb, "Stations: %d\n", s.Stations)
	fmt.Fprintf(&sb, "Conversations: %d (explicit %d, mentioned %d, no id %d)\n",
		s.TotalConversations, s.ExplicitID, s.MentionedID, s.NoID)
	fmt.Fprintf(&sb, "Unplaced (no timestamp): %d\n", s.Unplaced)
	fmt.Fprintf(&sb, "Skipped files: %d\n", s.SkippedFiles)
	fmt.Fprintf(&sb, "Participants: %d (explicit %d, inferred %d)\n",
		s.Participants, s.ExplicitParticipants, s.InferredParticipants)
	fmt.Fprintf(&sb, "Anomalies: %d\n", s.Anomalies)
	return sb.String()
}

// WriteParticipantsCSV writes the participant-level dataset. Rows follow the
// consolidator's stable order, so repeated runs produce identical bytes.
func WriteParticipantsCSV(w io.Writer, parts []consolidate.Participant) error {
	cw := csv.NewWriter(w)
	header := []string{
		"participant_id", "explicit", "confidence", "n_conversations",
		"stations", "first_activity", "last_activity",
		"total_msgs", "user_msgs", "total_duration_min", "avg_duration_min",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, p := range parts {
		stations := make([]string, len(p.Stations))
		for i, s := range p.Stations {
			stations[i] = strconv.Itoa(s)
		}
		row := []string{
			p.CanonicalID,
			strconv.FormatBool(p.Explicit),
			p.Tier.String(),
			strconv.Itoa(len(p.Conversations)),
			strings.Join(stations, ";"),
			isoOrEmpty(p.FirstActivity),
			isoOrEmpty(p.LastActivity),
			strconv.Itoa(p.TotalMessages),
			strconv.Itoa(p.UserMessages),
			minutes(p.TotalDuration),
			minutes(p.AvgDuration),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteConversationsCSV writes the conversation-level dataset: one row per
// attributed conversation.
func WriteConversationsCSV(w io.Writer, atts []infer.Attribution) error {
	cw := csv.NewWriter(w)
	header := []string{
		"conversation_id", "title", "station", "create_time",
		"participant_id", "id_source", "confidence",
		"n_msgs", "n_user_msgs", "duration_min",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, att := range atts {
		conv := att.Entry.Conv
		row := []string{
			conv.ID,
			conv.Title,
			strconv.Itoa(conv.Station),
			isoOrEmpty(conv.CreateTime),
			att.Canonical,
			att.Candidate.Source.String(),
			att.Tier.String(),
			strconv.Itoa(len(conv.Messages)),
			strconv.Itoa(len(conv.UserMessages())),
			minutes(conv.ActiveDuration()),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteAnomaliesJSON writes the multi-identifier anomaly list. The caller
// decides the resolution policy; this report only surfaces the conflicts.
func WriteAnomaliesJSON(w io.Writer, anomalies []infer.Anomaly) error {
	type anomalyRow struct {
		Date          string   `json:"date"`
		Window        int      `json:"window"`
		Station       int      `json:"station"`
		Identifiers   []string `json:"identifiers"`
		Conversations []string `json:"conversations"`
	}

	rows := make([]anomalyRow, 0, len(anomalies))
	for _, a := range anomalies {
		rows = append(rows, anomalyRow{
			Date:          a.Cell.Date(),
			Window:        a.Cell.Window,
			Station:       a.Cell.Station,
			Identifiers:   a.Identifiers,
			Conversations: a.Conversations,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func isoOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func minutes(d time.Duration) string {
	return strconv.FormatFloat(d.Minutes(), 'f', 2, 64)
}
