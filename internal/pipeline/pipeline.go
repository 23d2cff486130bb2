// Package pipeline orchestrates one reconciliation run: discover the
// workstation folders, parse the exports, classify and place every
// conversation, run scheduling inference, consolidate participants, and
// write the output datasets.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/sessionlab/rollcall/internal/archive"
	"github.com/sessionlab/rollcall/internal/classify"
	"github.com/sessionlab/rollcall/internal/config"
	"github.com/sessionlab/rollcall/internal/consolidate"
	"github.com/sessionlab/rollcall/internal/events"
	"github.com/sessionlab/rollcall/internal/grid"
	"github.com/sessionlab/rollcall/internal/infer"
	"github.com/sessionlab/rollcall/internal/report"
	"github.com/sessionlab/rollcall/internal/store"
)

// Runner drives the reconciliation pipeline. Store and events are optional;
// a nil store skips persistence and a nil events client skips publishing.
type Runner struct {
	cfg    config.Config
	db     *store.Store
	bus    *events.Client
	logger *slog.Logger
}

func New(cfg config.Config, db *store.Store, bus *events.Client, logger *slog.Logger) *Runner {
	return &Runner{cfg: cfg, db: db, bus: bus, logger: logger}
}

// Result is everything one run produced.
type Result struct {
	RunID        string
	StartedAt    time.Time
	Summary      report.Summary
	Attributions []infer.Attribution
	Participants []consolidate.Participant
	Anomalies    []infer.Anomaly
}

// Run executes the full pipeline once. Unreadable or malformed export files
// are logged and skipped; the run itself fails only when the export root is
// missing or an output cannot be written.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	startedAt := time.Now().UTC()
	runID := uuid.New().String()
	r.logger.Info("run starting", "run_id", runID, "export_dir", r.cfg.ExportDir)

	stations, err := archive.DiscoverStations(r.cfg.ExportDir)
	if err != nil {
		return nil, fmt.Errorf("discover stations: %w", err)
	}
	if len(stations) == 0 {
		return nil, fmt.Errorf("no workstation folders under %s", r.cfg.ExportDir)
	}

	summary := report.Summary{Stations: len(stations)}

	var entries []grid.Entry
	for _, st := range stations {
		files, err := archive.FindExportFiles(st.Path)
		if err != nil {
			r.logger.Warn("skipping station", "station", st.Unit, "error", err)
			summary.SkippedFiles++
			continue
		}
		for _, file := range files {
			convs, err := archive.ParseExportFile(file, st.Unit)
			if err != nil {
				r.logger.Warn("skipping export file", "file", file, "error", err)
				summary.SkippedFiles++
				continue
			}
			for i := range convs {
				conv := &convs[i]
				entries = append(entries, grid.Entry{
					Conv:  conv,
					Class: classify.Classify(conv),
				})
			}
		}
	}

	summary.TotalConversations = len(entries)
	for _, e := range entries {
		switch e.Class.Outcome {
		case classify.OutcomeExplicit:
			summary.ExplicitID++
		case classify.OutcomeMentioned:
			summary.MentionedID++
		default:
			summary.NoID++
		}
	}

	g, unplaced := grid.Build(entries, r.cfg.WindowMinutes)
	summary.Unplaced = len(unplaced)

	engine := infer.New(time.Duration(r.cfg.ConfidenceMinutes) * time.Minute)
	atts, anomalies := engine.Run(g)

	// Conversations without a creation timestamp never enter the grid, but a
	// stated identifier is still evidence of the participant's presence.
	for _, e := range unplaced {
		if e.Class.Outcome == classify.OutcomeNone {
			continue
		}
		tier := infer.TierExplicit
		if e.Class.Outcome == classify.OutcomeMentioned {
			tier = infer.TierMentioned
		}
		atts = append(atts, infer.Attribution{
			Entry:     e,
			Candidate: e.Class.Candidate,
			Canonical: e.Class.Candidate.Canonical(),
			Tier:      tier,
		})
	}

	parts := consolidate.Consolidate(atts)

	summary.Participants = len(parts)
	for _, p := range parts {
		if p.Explicit {
			summary.ExplicitParticipants++
		} else {
			summary.InferredParticipants++
		}
	}
	summary.Anomalies = len(anomalies)

	if err := r.writeArtifacts(summary, atts, parts, anomalies); err != nil {
		return nil, err
	}

	if r.db != nil {
		if _, err := r.db.WriteRun(ctx, startedAt, summary, parts, anomalies); err != nil {
			r.logger.Error("failed to persist run", "error", err)
		} else {
			r.logger.Info("run persisted", "run_id", runID)
		}
	}

	if r.bus != nil {
		r.publish(runID, startedAt, summary, anomalies)
	}

	r.logger.Info("run complete",
		"run_id", runID,
		"conversations", summary.TotalConversations,
		"participants", summary.Participants,
		"anomalies", summary.Anomalies,
		"skipped_files", summary.SkippedFiles,
	)

	return &Result{
		RunID:        runID,
		StartedAt:    startedAt,
		Summary:      summary,
		Attributions: atts,
		Participants: parts,
		Anomalies:    anomalies,
	}, nil
}

func (r *Runner) writeArtifacts(summary report.Summary, atts []infer.Attribution, parts []consolidate.Participant, anomalies []infer.Anomaly) error {
	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	outputs := []struct {
		name  string
		write func(f *os.File) error
	}{
		{"participants.csv", func(f *os.File) error { return report.WriteParticipantsCSV(f, parts) }},
		{"conversations.csv", func(f *os.File) error { return report.WriteConversationsCSV(f, atts) }},
		{"anomalies.json", func(f *os.File) error { return report.WriteAnomaliesJSON(f, anomalies) }},
		{"summary.json", func(f *os.File) error { return report.WriteSummaryJSON(f, summary) }},
	}

	for _, out := range outputs {
		path := filepath.Join(r.cfg.OutputDir, out.name)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", out.name, err)
		}
		werr := out.write(f)
		cerr := f.Close()
		if werr != nil {
			return fmt.Errorf("write %s: %w", out.name, werr)
		}
		if cerr != nil {
			return fmt.Errorf("close %s: %w", out.name, cerr)
		}
	}
	return nil
}

func (r *Runner) publish(runID string, startedAt time.Time, summary report.Summary, anomalies []infer.Anomaly) {
	err := r.bus.Publish(events.SubjectRunCompleted, events.RunCompleted{
		RunID:         runID,
		StartedAt:     startedAt,
		Conversations: summary.TotalConversations,
		Participants:  summary.Participants,
		Anomalies:     summary.Anomalies,
	})
	if err != nil {
		r.logger.Warn("failed to publish run event", "error", err)
	}

	for _, a := range anomalies {
		err := r.bus.Publish(events.SubjectAnomaly, events.AnomalyDetected{
			RunID:       runID,
			Date:        a.Cell.Date(),
			Window:      a.Cell.Window,
			Station:     a.Cell.Station,
			Identifiers: a.Identifiers,
		})
		if err != nil {
			r.logger.Warn("failed to publish anomaly event", "error", err)
		}
	}
}
