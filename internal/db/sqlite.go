package db

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spacesedan/aspectflow/internal/models"
)

//go:embed schema.sql
var schema string

// backupVersion tags the JSON document written by ExportJSON.
const backupVersion = 1

// SQLiteStore is the local store used by the CLI: feedback rows plus one
// aspect_results row per decision.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("[SQLite] open database: %w", err)
	}
	// One writer keeps sqlite from returning SQLITE_BUSY under the worker.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("[SQLite] init schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AppendResults upserts each feedback row and replaces its aspect results.
func (s *SQLiteStore) AppendResults(ctx context.Context, feedback []models.AnalyzedFeedback) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("[SQLite] begin: %w", err)
	}
	defer tx.Rollback()

	for _, f := range feedback {
		if err := insertFeedback(ctx, tx, f); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("[SQLite] commit: %w", err)
	}

	slog.Debug("[SQLite] Stored feedback", slog.Int("count", len(feedback)))
	return nil
}

func insertFeedback(ctx context.Context, tx *sql.Tx, f models.AnalyzedFeedback) error {
	_, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO feedback
			(id, text, clean_text, source, lexicon_score, lexicon_label, submitted_at, analyzed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.FeedbackID, f.Text, f.CleanText, f.Source,
		f.Lexicon.Score, f.Lexicon.Label,
		f.SubmittedAt.UTC(), f.AnalyzedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("[SQLite] insert feedback %s: %w", f.FeedbackID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM aspect_results WHERE feedback_id = ?", f.FeedbackID); err != nil {
		return fmt.Errorf("[SQLite] clear results %s: %w", f.FeedbackID, err)
	}
	if len(f.Results) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(f.Results))
	values := make([]any, 0, len(f.Results)*6)
	for _, r := range f.Results {
		placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?)")
		values = append(values, f.FeedbackID, string(r.Aspect), string(r.Sentiment),
			r.AspectConfidence, r.SentimentConfidence, r.Margin)
	}

	query := `INSERT INTO aspect_results
		(feedback_id, aspect, sentiment, aspect_confidence, sentiment_confidence, margin)
		VALUES ` + strings.Join(placeholders, ", ")
	if _, err := tx.ExecContext(ctx, query, values...); err != nil {
		return fmt.Errorf("[SQLite] insert results %s: %w", f.FeedbackID, err)
	}
	return nil
}

// ListRecent returns analyzed feedback newest first.
func (s *SQLiteStore) ListRecent(ctx context.Context, limit, offset int) ([]models.AnalyzedFeedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, clean_text, source, lexicon_score, lexicon_label, submitted_at, analyzed_at
		FROM feedback
		ORDER BY analyzed_at DESC, id
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("[SQLite] list feedback: %w", err)
	}
	defer rows.Close()

	var feedback []models.AnalyzedFeedback
	for rows.Next() {
		var f models.AnalyzedFeedback
		if err := rows.Scan(&f.FeedbackID, &f.Text, &f.CleanText, &f.Source,
			&f.Lexicon.Score, &f.Lexicon.Label, &f.SubmittedAt, &f.AnalyzedAt); err != nil {
			return nil, fmt.Errorf("[SQLite] scan feedback: %w", err)
		}
		feedback = append(feedback, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("[SQLite] list feedback: %w", err)
	}

	if err := s.attachResults(ctx, feedback); err != nil {
		return nil, err
	}
	return feedback, nil
}

// attachResults loads the aspect results of every listed feedback in one
// query.
func (s *SQLiteStore) attachResults(ctx context.Context, feedback []models.AnalyzedFeedback) error {
	if len(feedback) == 0 {
		return nil
	}

	byID := make(map[string]*models.AnalyzedFeedback, len(feedback))
	placeholders := make([]string, len(feedback))
	args := make([]any, len(feedback))
	for i := range feedback {
		feedback[i].Results = []models.ResultRecord{}
		byID[feedback[i].FeedbackID] = &feedback[i]
		placeholders[i] = "?"
		args[i] = feedback[i].FeedbackID
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT feedback_id, aspect, sentiment, aspect_confidence, sentiment_confidence, margin
		FROM aspect_results
		WHERE feedback_id IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY feedback_id, aspect_confidence DESC, rowid`, args...)
	if err != nil {
		return fmt.Errorf("[SQLite] list results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id string
			r  models.ResultRecord
		)
		if err := rows.Scan(&id, &r.Aspect, &r.Sentiment, &r.AspectConfidence, &r.SentimentConfidence, &r.Margin); err != nil {
			return fmt.Errorf("[SQLite] scan result: %w", err)
		}
		if f, ok := byID[id]; ok {
			f.Results = append(f.Results, r)
		}
	}
	return rows.Err()
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feedback").Scan(&n); err != nil {
		return 0, fmt.Errorf("[SQLite] count feedback: %w", err)
	}
	return n, nil
}

type backupDocument struct {
	Version    int                       `json:"version"`
	ExportedAt time.Time                 `json:"exported_at"`
	Feedback   []models.AnalyzedFeedback `json:"feedback"`
}

// ExportJSON writes every stored feedback with its results as one JSON
// document.
func (s *SQLiteStore) ExportJSON(ctx context.Context, w io.Writer) (int, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	feedback, err := s.ListRecent(ctx, max(n, 1), 0)
	if err != nil {
		return 0, err
	}
	if feedback == nil {
		feedback = []models.AnalyzedFeedback{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(backupDocument{
		Version:    backupVersion,
		ExportedAt: time.Now().UTC(),
		Feedback:   feedback,
	}); err != nil {
		return 0, fmt.Errorf("[SQLite] encode backup: %w", err)
	}

	slog.Info("[SQLite] Exported backup", slog.Int("feedback", len(feedback)))
	return len(feedback), nil
}

// ImportJSON replaces the whole database with the content of a backup
// written by ExportJSON.
func (s *SQLiteStore) ImportJSON(ctx context.Context, r io.Reader) (int, error) {
	var doc backupDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return 0, fmt.Errorf("[SQLite] decode backup: %w", err)
	}
	if doc.Version != backupVersion {
		return 0, fmt.Errorf("[SQLite] unsupported backup version %d", doc.Version)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("[SQLite] begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"aspect_results", "feedback"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return 0, fmt.Errorf("[SQLite] clear %s: %w", table, err)
		}
	}
	for _, f := range doc.Feedback {
		if err := insertFeedback(ctx, tx, f); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("[SQLite] commit: %w", err)
	}

	slog.Info("[SQLite] Restored backup", slog.Int("feedback", len(doc.Feedback)))
	return len(doc.Feedback), nil
}
