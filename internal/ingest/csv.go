package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spacesedan/aspectflow/internal/models"
)

// RowError reports one CSV row that could not become a submission. Line is
// 1-based and counts the header.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

type CSVResult struct {
	Submissions []models.FeedbackSubmission
	Rejected    []RowError
}

// ReadCSV reads a bulk upload. The header must contain a "text" column and
// may contain an "id" column; matching is case-insensitive and a UTF-8 BOM
// is tolerated. Invalid rows are collected in Rejected.
func ReadCSV(r io.Reader) (CSVResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return CSVResult{}, ErrMissingTextColumn
	}
	if err != nil {
		return CSVResult{}, fmt.Errorf("[Ingest] failed to read csv header: %w", err)
	}

	textCol, idCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF"))) {
		case "text":
			textCol = i
		case "id":
			idCol = i
		}
	}
	if textCol < 0 {
		return CSVResult{}, ErrMissingTextColumn
	}

	var result CSVResult
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				result.Rejected = append(result.Rejected, RowError{Line: parseErr.Line, Err: err})
				continue
			}
			return result, fmt.Errorf("[Ingest] failed to read csv: %w", err)
		}

		if textCol >= len(record) {
			result.Rejected = append(result.Rejected, RowError{Line: line, Err: ErrEmptyFeedback})
			continue
		}

		id := ""
		if idCol >= 0 && idCol < len(record) {
			id = strings.TrimSpace(record[idCol])
		}

		sub, err := newSubmission(id, record[textCol], models.FeedbackSourceCSV)
		if err != nil {
			result.Rejected = append(result.Rejected, RowError{Line: line, Err: err})
			continue
		}
		result.Submissions = append(result.Submissions, sub)
	}

	slog.Info("[Ingest] Read csv upload",
		slog.Int("accepted", len(result.Submissions)),
		slog.Int("rejected", len(result.Rejected)))

	return result, nil
}
