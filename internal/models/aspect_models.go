package models

// Aspect identifies one topical category a piece of feedback may discuss.
type Aspect string

const (
	AspectLecturer        Aspect = "lecturer"
	AspectTrainingProgram Aspect = "training_program"
	AspectFacility        Aspect = "facility"
	AspectOthers          Aspect = "others"
)

// Sentiment is the polarity assigned to a discussed aspect. "Not discussed"
// is never a Sentiment; such aspects are absent from the results instead.
type Sentiment string

const (
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentPositive Sentiment = "positive"
)

// ResultRecord is the decision for one aspect of one piece of feedback.
type ResultRecord struct {
	Aspect              Aspect    `json:"aspect" dynamodbav:"aspect"`
	Sentiment           Sentiment `json:"sentiment" dynamodbav:"sentiment"`
	AspectConfidence    float64   `json:"aspect_confidence" dynamodbav:"aspect_confidence"`
	SentimentConfidence float64   `json:"sentiment_confidence" dynamodbav:"sentiment_confidence"`
	Margin              float64   `json:"margin" dynamodbav:"margin"`
}
