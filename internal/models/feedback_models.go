package models

import "time"

const (
	FeedbackSourceCLI   = "cli"
	FeedbackSourceCSV   = "csv"
	FeedbackSourceKafka = "kafka"
)

type FeedbackSubmission struct {
	FeedbackID  string    `json:"feedback_id"`
	Text        string    `json:"text"`
	Source      string    `json:"source"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// LexiconSignal is the VADER cross-check stored beside the model decision.
// It never influences the aspect results.
type LexiconSignal struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

type AnalyzedFeedback struct {
	FeedbackSubmission
	CleanText  string         `json:"clean_text"`
	Results    []ResultRecord `json:"results"`
	Lexicon    LexiconSignal  `json:"lexicon"`
	FromCache  bool           `json:"from_cache,omitempty"`
	AnalyzedAt time.Time      `json:"analyzed_at"`
}
