package aspects

import (
	"strings"
	"unicode/utf8"

	"github.com/spacesedan/aspectflow/internal/models"
	"github.com/spacesedan/aspectflow/internal/textnorm"
)

// minKeywordRunes keeps one and two letter phrases ("cô", "gv") out of the
// relevance check, where they would match inside unrelated words. They still
// steer prompt selection.
const minKeywordRunes = 3

// Index is the read-only aspect catalog. Build it once with Load or Default
// and share it between goroutines.
type Index struct {
	order       []models.Aspect
	entries     map[models.Aspect]*aspectEntry
	fingerprint string
}

type aspectEntry struct {
	id            models.Aspect
	name          string
	defaultPrompt string
	subtopics     []subtopic
}

type subtopic struct {
	name     string
	prompt   string
	keywords []string
	anchors  []string // keywords of at least minKeywordRunes
}

// buildKeywords case-folds every phrase and keeps both the accented and the
// unaccented form, dropping empty phrases and duplicates.
func buildKeywords(raw []string) []string {
	seen := make(map[string]bool, len(raw)*2)
	out := make([]string, 0, len(raw)*2)

	add := func(k string) {
		if k == "" || seen[k] {
			return
		}
		seen[k] = true
		out = append(out, k)
	}

	for _, k := range raw {
		add(strings.ToLower(textnorm.NormalizeForStorage(k)))
		add(textnorm.NormalizeForMatching(k))
	}
	return out
}

func anchorKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if utf8.RuneCountInString(k) >= minKeywordRunes {
			out = append(out, k)
		}
	}
	return out
}

// Aspects returns the aspects in catalog order.
func (idx *Index) Aspects() []models.Aspect {
	return append([]models.Aspect(nil), idx.order...)
}

// Fingerprint is the sha256 of the catalog source the index was built from.
func (idx *Index) Fingerprint() string {
	return idx.fingerprint
}

func (idx *Index) Len() int {
	return len(idx.order)
}

func (idx *Index) Contains(aspect models.Aspect) bool {
	_, ok := idx.entries[aspect]
	return ok
}

// Name returns the catalog's native name for the aspect (e.g. giang_vien).
func (idx *Index) Name(aspect models.Aspect) string {
	if e, ok := idx.entries[aspect]; ok {
		return e.name
	}
	return ""
}

// HasKeyword reports whether any keyword of at least three runes, of any
// sub-topic of aspect, occurs in normalizedText, which must already be in
// matching form.
func (idx *Index) HasKeyword(aspect models.Aspect, normalizedText string) bool {
	e, ok := idx.entries[aspect]
	if !ok || normalizedText == "" {
		return false
	}
	for i := range e.subtopics {
		if containsAny(normalizedText, e.subtopics[i].anchors) {
			return true
		}
	}
	return false
}

// PickSubtopic returns the first sub-topic, in catalog order, with a keyword
// occurring in normalizedText.
func (idx *Index) PickSubtopic(aspect models.Aspect, normalizedText string) (string, bool) {
	sub := idx.matchSubtopic(aspect, normalizedText)
	if sub == nil {
		return "", false
	}
	return sub.name, true
}

// SelectPrompt returns the classifier instruction for aspect given the raw
// feedback text: the matched sub-topic's prompt, or the aspect default.
func (idx *Index) SelectPrompt(aspect models.Aspect, text string) string {
	return idx.PromptForNormalized(aspect, textnorm.NormalizeForMatching(text))
}

// PromptForNormalized is SelectPrompt for text already in matching form.
func (idx *Index) PromptForNormalized(aspect models.Aspect, normalizedText string) string {
	e, ok := idx.entries[aspect]
	if !ok {
		return ""
	}
	if sub := idx.matchSubtopic(aspect, normalizedText); sub != nil {
		return sub.prompt
	}
	return e.defaultPrompt
}

func (idx *Index) matchSubtopic(aspect models.Aspect, normalizedText string) *subtopic {
	e, ok := idx.entries[aspect]
	if !ok || normalizedText == "" {
		return nil
	}
	for i := range e.subtopics {
		if containsAny(normalizedText, e.subtopics[i].keywords) {
			return &e.subtopics[i]
		}
	}
	return nil
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
