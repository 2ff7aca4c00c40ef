// Package ingest turns raw submissions (single texts or CSV uploads) into
// validated FeedbackSubmissions.
package ingest

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/spacesedan/aspectflow/internal/models"
	"github.com/spacesedan/aspectflow/internal/textnorm"
)

// MaxFeedbackRunes bounds one piece of feedback, measured after storage
// normalization.
const MaxFeedbackRunes = 1000

var (
	ErrEmptyFeedback     = errors.New("feedback is empty")
	ErrFeedbackTooLong   = fmt.Errorf("feedback exceeds %d characters", MaxFeedbackRunes)
	ErrMissingTextColumn = errors.New("csv header has no text column")
)

// Validate returns the storage form of text, or an error when it is empty
// or too long.
func Validate(text string) (string, error) {
	clean := textnorm.NormalizeForStorage(text)
	if clean == "" {
		return "", ErrEmptyFeedback
	}
	if n := utf8.RuneCountInString(clean); n > MaxFeedbackRunes {
		return "", fmt.Errorf("%w: got %d", ErrFeedbackTooLong, n)
	}
	return clean, nil
}

// NewSubmission validates text and wraps it with a fresh id.
func NewSubmission(text, source string) (models.FeedbackSubmission, error) {
	return newSubmission("", text, source)
}

func newSubmission(id, text, source string) (models.FeedbackSubmission, error) {
	clean, err := Validate(text)
	if err != nil {
		return models.FeedbackSubmission{}, err
	}
	if id == "" {
		id = uuid.NewString()
	}
	return models.FeedbackSubmission{
		FeedbackID:  id,
		Text:        clean,
		Source:      source,
		SubmittedAt: time.Now().UTC(),
	}, nil
}
