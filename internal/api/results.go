package api

import (
	"net/http"
	"sync"

	"github.com/sessionlab/rollcall/internal/consolidate"
	"github.com/sessionlab/rollcall/internal/infer"
	"github.com/sessionlab/rollcall/internal/report"
)

// results holds the output of the most recent reconciliation run. The server
// starts empty and serves 404s until the pipeline publishes a run.
type results struct {
	mu sync.RWMutex

	loaded       bool
	summary      report.Summary
	participants []consolidate.Participant
	anomalies    []infer.Anomaly
}

func (r *results) ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// SetResults swaps in a completed run's output.
func (s *Server) SetResults(summary report.Summary, parts []consolidate.Participant, anomalies []infer.Anomaly) {
	s.results.mu.Lock()
	defer s.results.mu.Unlock()
	s.results.loaded = true
	s.results.summary = summary
	s.results.participants = parts
	s.results.anomalies = anomalies
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	s.results.mu.RLock()
	defer s.results.mu.RUnlock()
	if !s.results.loaded {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no run completed yet"})
		return
	}
	writeJSON(w, http.StatusOK, s.results.summary)
}

func (s *Server) participants(w http.ResponseWriter, r *http.Request) {
	s.results.mu.RLock()
	defer s.results.mu.RUnlock()
	if !s.results.loaded {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no run completed yet"})
		return
	}

	type participantRow struct {
		ParticipantID string `json:"participant_id"`
		Explicit      bool   `json:"explicit"`
		Confidence    string `json:"confidence"`
		Conversations int    `json:"n_conversations"`
		Stations      []int  `json:"stations"`
		TotalMessages int    `json:"total_msgs"`
		UserMessages  int    `json:"user_msgs"`
		TotalDuration string `json:"total_duration"`
	}

	rows := make([]participantRow, 0, len(s.results.participants))
	for _, p := range s.results.participants {
		rows = append(rows, participantRow{
			ParticipantID: p.CanonicalID,
			Explicit:      p.Explicit,
			Confidence:    p.Tier.String(),
			Conversations: len(p.Conversations),
			Stations:      p.Stations,
			TotalMessages: p.TotalMessages,
			UserMessages:  p.UserMessages,
			TotalDuration: p.TotalDuration.String(),
		})
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) anomalies(w http.ResponseWriter, r *http.Request) {
	s.results.mu.RLock()
	defer s.results.mu.RUnlock()
	if !s.results.loaded {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no run completed yet"})
		return
	}

	type anomalyRow struct {
		Date          string   `json:"date"`
		Window        int      `json:"window"`
		Station       int      `json:"station"`
		Identifiers   []string `json:"identifiers"`
		Conversations []string `json:"conversations"`
	}

	rows := make([]anomalyRow, 0, len(s.results.anomalies))
	for _, a := range s.results.anomalies {
		rows = append(rows, anomalyRow{
			Date:          a.Cell.Date(),
			Window:        a.Cell.Window,
			Station:       a.Cell.Station,
			Identifiers:   a.Identifiers,
			Conversations: a.Conversations,
		})
	}
	writeJSON(w, http.StatusOK, rows)
}
