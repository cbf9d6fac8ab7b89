package main

import (
	"context"

	"github.com/google/uuid"

	"github.com/jonathan/resume-retriever/internal/db"
	"github.com/jonathan/resume-retriever/internal/scrape"
)

// ledger records scrape results in the attempts table.
type ledger struct {
	db *db.DB
}

func (l *ledger) RecordResult(ctx context.Context, res scrape.Result) error {
	_, err := l.db.RecordAttempt(ctx, attemptInput(res))
	return err
}

func attemptInput(res scrape.Result) *db.AttemptInput {
	sessionID, err := uuid.Parse(res.SessionID)
	if err != nil {
		sessionID = uuid.Nil
	}
	return &db.AttemptInput{
		SessionID: sessionID,
		Source:    res.Source,
		Link:      res.Link,
		Strategy:  res.Strategy,
		Outcome:   string(res.Outcome),
		Kind:      string(res.Kind),
		Filename:  res.Filename,
		Status:    res.Status,
		Reason:    res.Reason,
		Duration:  res.Duration,
	}
}

// openLedger connects to the attempts database. It returns nil when no URL is configured.
func openLedger(ctx context.Context, databaseURL string) (*db.DB, error) {
	if databaseURL == "" {
		return nil, nil
	}
	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}
