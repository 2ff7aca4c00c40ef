package engine

import (
	"github.com/spacesedan/aspectflow/internal/classifier"
	"github.com/spacesedan/aspectflow/internal/models"
)

// sentimentClasses lists the sentiment labels in tie-break order.
var sentimentClasses = [...]struct {
	label     int
	sentiment models.Sentiment
}{
	{classifier.LabelNegative, models.SentimentNegative},
	{classifier.LabelNeutral, models.SentimentNeutral},
	{classifier.LabelPositive, models.SentimentPositive},
}

type sentimentDecision struct {
	Sentiment  models.Sentiment
	Confidence float64
	Margin     float64
	Decisive   bool
}

// decideSentiment picks the winning polarity among the three sentiment
// classes, renormalized without "none", and reports whether the win is
// decisive: above the probability floor and ahead of the runner-up by at
// least the (keyword-relaxed) margin.
func decideSentiment(d classifier.Distribution, hasKeyword bool, cfg Config) sentimentDecision {
	mass := 0.0
	for _, c := range sentimentClasses {
		mass += d[c.label]
	}
	if mass <= 0 {
		return sentimentDecision{}
	}

	best, second := -1.0, -1.0
	var winner models.Sentiment
	for _, c := range sentimentClasses {
		p := d[c.label] / mass
		switch {
		case p > best:
			second = best
			best = p
			winner = c.sentiment
		case p > second:
			second = p
		}
	}

	margin := best - second
	return sentimentDecision{
		Sentiment:  winner,
		Confidence: best,
		Margin:     margin,
		Decisive:   best >= cfg.MinSentimentProb && margin >= cfg.marginThreshold(hasKeyword),
	}
}
