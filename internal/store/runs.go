package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sessionlab/rollcall/internal/consolidate"
	"github.com/sessionlab/rollcall/internal/infer"
	"github.com/sessionlab/rollcall/internal/report"
)

// WriteRun persists one reconciliation run across the run tables.
// Tables: runs, run_participants, run_anomalies.
func (s *Store) WriteRun(ctx context.Context, startedAt time.Time, summary report.Summary, parts []consolidate.Participant, anomalies []infer.Anomaly) (uuid.UUID, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	runID := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO runs (id, started_at, finished_at, stations, total_conversations,
			explicit_id, mentioned_id, no_id, unplaced, skipped_files,
			participants, explicit_participants, inferred_participants, anomalies)
		VALUES ($1, $2, now(), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		runID, startedAt, summary.Stations, summary.TotalConversations,
		summary.ExplicitID, summary.MentionedID, summary.NoID,
		summary.Unplaced, summary.SkippedFiles,
		summary.Participants, summary.ExplicitParticipants,
		summary.InferredParticipants, summary.Anomalies,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert run: %w", err)
	}

	for _, p := range parts {
		_, err = tx.Exec(ctx, `
			INSERT INTO run_participants (id, run_id, participant_id, explicit, confidence,
				n_conversations, stations, first_activity, last_activity,
				total_msgs, user_msgs, total_duration_sec)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			uuid.New(), runID, p.CanonicalID, p.Explicit, p.Tier.String(),
			len(p.Conversations), p.Stations, nullTime(p.FirstActivity), nullTime(p.LastActivity),
			p.TotalMessages, p.UserMessages, int(p.TotalDuration.Seconds()),
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert participant %s: %w", p.CanonicalID, err)
		}
	}

	for _, a := range anomalies {
		_, err = tx.Exec(ctx, `
			INSERT INTO run_anomalies (id, run_id, cell_date, cell_window, station,
				identifiers, conversations)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New(), runID, a.Cell.Date(), a.Cell.Window, a.Cell.Station,
			a.Identifiers, a.Conversations,
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert anomaly: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit: %w", err)
	}

	return runID, nil
}

// LatestRunSummary returns the summary row of the most recent run.
func (s *Store) LatestRunSummary(ctx context.Context) (report.Summary, time.Time, error) {
	var summary report.Summary
	var startedAt time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT started_at, stations, total_conversations,
			explicit_id, mentioned_id, no_id, unplaced, skipped_files,
			participants, explicit_participants, inferred_participants, anomalies
		FROM runs ORDER BY started_at DESC LIMIT 1`).Scan(
		&startedAt, &summary.Stations, &summary.TotalConversations,
		&summary.ExplicitID, &summary.MentionedID, &summary.NoID,
		&summary.Unplaced, &summary.SkippedFiles,
		&summary.Participants, &summary.ExplicitParticipants,
		&summary.InferredParticipants, &summary.Anomalies,
	)
	if err != nil {
		return report.Summary{}, time.Time{}, fmt.Errorf("query latest run: %w", err)
	}
	return summary, startedAt, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
