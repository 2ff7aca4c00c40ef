// Package sentiment cleans submitted text and computes the VADER lexicon
// cross-check stored beside the model decision.
package sentiment

import (
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"
	"github.com/spacesedan/aspectflow/internal/models"
)

const (
	LabelPositive = "positive"
	LabelNeutral  = "neutral"
	LabelNegative = "negative"

	// lexiconCutoff on the VADER compound score.
	lexiconCutoff = 0.20
)

var (
	analyzer = govader.NewSentimentIntensityAnalyzer()

	linkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern  = regexp.MustCompile(`https?://\S+|www\.\S+`)
	tagPattern  = regexp.MustCompile(`<[^>]*>`)
)

func RemoveLinks(input string) string {
	input = linkPattern.ReplaceAllString(input, "$1")
	return urlPattern.ReplaceAllString(input, "")
}

// ConvertMarkdownToText renders markdown and strips the resulting markup
// and any links, leaving single-spaced plain text.
func ConvertMarkdownToText(input string) string {
	input = RemoveLinks(input)
	output := blackfriday.Run([]byte(input),
		blackfriday.WithNoExtensions(),
		blackfriday.WithRenderer(plainRenderer()))
	plain := tagPattern.ReplaceAllString(string(output), " ")
	plain = unescapeEntities(plain)
	return strings.Join(strings.Fields(plain), " ")
}

// plainRenderer skips smartypants so quotes and dashes survive as typed.
func plainRenderer() blackfriday.Renderer {
	return blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.UseXHTML,
	})
}

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
)

func unescapeEntities(s string) string {
	return entityReplacer.Replace(s)
}

// LexiconPolarity scores text with VADER. The lexicon is English, so
// Vietnamese feedback mostly lands on neutral; the signal is kept for
// mixed-language comments and for auditing the model.
func LexiconPolarity(text string) models.LexiconSignal {
	if strings.TrimSpace(text) == "" {
		return models.LexiconSignal{Label: LabelNeutral}
	}
	score := analyzer.PolarityScores(text).Compound

	label := LabelNeutral
	if score >= lexiconCutoff {
		label = LabelPositive
	} else if score <= -lexiconCutoff {
		label = LabelNegative
	}

	return models.LexiconSignal{Score: score, Label: label}
}
