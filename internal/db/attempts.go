package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Attempt Methods
// -----------------------------------------------------------------------------

// RecordAttempt inserts one attempt and returns the stored row
func (db *DB) RecordAttempt(ctx context.Context, input *AttemptInput) (*Attempt, error) {
	if err := validateAttemptInput(input); err != nil {
		return nil, err
	}

	sessionID := input.SessionID
	if sessionID == uuid.Nil {
		sessionID = uuid.New()
	}

	var a Attempt
	err := db.pool.QueryRow(ctx,
		`INSERT INTO scrape_attempts (id, session_id, source, link, strategy, outcome, kind,
		                              filename, status, reason, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, session_id, source, link, strategy, outcome, kind, filename, status,
		           reason, duration_ms, created_at`,
		uuid.New(), sessionID, input.Source, input.Link, input.Strategy, input.Outcome, input.Kind,
		input.Filename, input.Status, input.Reason, input.Duration.Milliseconds(),
	).Scan(&a.ID, &a.SessionID, &a.Source, &a.Link, &a.Strategy, &a.Outcome, &a.Kind,
		&a.Filename, &a.Status, &a.Reason, &a.DurationMs, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record attempt: %w", err)
	}
	return &a, nil
}

// ListAttempts returns the most recent attempts first
func (db *DB) ListAttempts(ctx context.Context, filter AttemptFilter) ([]Attempt, error) {
	query, args := buildListQuery(filter)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Source, &a.Link, &a.Strategy, &a.Outcome,
			&a.Kind, &a.Filename, &a.Status, &a.Reason, &a.DurationMs, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attempts: %w", err)
	}

	return attempts, nil
}

func buildListQuery(filter AttemptFilter) (string, []any) {
	query := `SELECT id, session_id, source, link, strategy, outcome, kind, filename, status,
	                 reason, duration_ms, created_at
	          FROM scrape_attempts`
	var args []any
	argPos := 1

	if filter.Outcome != "" {
		query += fmt.Sprintf(" WHERE outcome = $%d", argPos)
		args = append(args, filter.Outcome)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argPos)
	args = append(args, filter.limit())

	return query, args
}

func validateAttemptInput(input *AttemptInput) error {
	if input == nil {
		return fmt.Errorf("attempt input is nil")
	}
	switch input.Outcome {
	case OutcomeSuccess, OutcomeBlocked, OutcomeNotFound, OutcomeFailure:
		return nil
	default:
		return fmt.Errorf("invalid attempt outcome: %q", input.Outcome)
	}
}
