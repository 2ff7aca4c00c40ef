package aspects

import (
	"strings"
	"sync"
	"testing"

	"github.com/spacesedan/aspectflow/internal/models"
	"github.com/spacesedan/aspectflow/internal/textnorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDefaultIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Default()
	require.NoError(t, err)
	return idx
}

func TestDefaultCatalogOrder(t *testing.T) {
	idx := loadDefaultIndex(t)
	assert.Equal(t, []models.Aspect{
		models.AspectLecturer,
		models.AspectTrainingProgram,
		models.AspectFacility,
		models.AspectOthers,
	}, idx.Aspects())
	assert.Equal(t, 4, idx.Len())
	assert.Equal(t, "co_so_vat_chat", idx.Name(models.AspectFacility))
	assert.Empty(t, idx.Name("unknown"))
}

func TestBuildKeywords(t *testing.T) {
	t.Run("keeps short phrases and drops duplicates", func(t *testing.T) {
		assert.Equal(t, []string{"cô", "co", "gv", "lab"}, buildKeywords([]string{"cô", "gv", "lab", "LAB", " "}))
	})
	t.Run("anchors are at least three runes", func(t *testing.T) {
		assert.Equal(t, []string{"lab", "thầy"}, anchorKeywords([]string{"cô", "co", "gv", "lab", "thầy"}))
	})
	t.Run("keeps accented and unaccented forms", func(t *testing.T) {
		assert.Equal(t, []string{"thầy", "thay"}, buildKeywords([]string{"Thầy"}))
	})
	t.Run("trims surrounding whitespace", func(t *testing.T) {
		assert.Equal(t, []string{"đi dạy", "đi day"}, buildKeywords([]string{"đi dạy "}))
	})
}

func TestHasKeyword(t *testing.T) {
	idx := loadDefaultIndex(t)

	tests := []struct {
		name   string
		text   string
		aspect models.Aspect
		want   bool
	}{
		{"wifi is a facility keyword", "Wifi trường rất yếu", models.AspectFacility, true},
		{"wifi is not a lecturer keyword", "Wifi trường rất yếu", models.AspectLecturer, false},
		{"tuition with diacritics", "Học phí tăng quá cao", models.AspectOthers, true},
		{"tuition typed without diacritics", "hoc phi tang qua cao", models.AspectOthers, true},
		{"lecturer title", "Thầy dạy rất dễ hiểu", models.AspectLecturer, true},
		{"two letter keyword never matches", "co le se tot hon", models.AspectLecturer, false},
		{"two letter title is not relevance evidence", "Cô dạy hay", models.AspectLecturer, false},
		{"unknown aspect", "Thầy dạy rất dễ hiểu", "unknown", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			norm := textnorm.NormalizeForMatching(tt.text)
			assert.Equal(t, tt.want, idx.HasKeyword(tt.aspect, norm))
		})
	}
}

func TestPickSubtopic(t *testing.T) {
	idx := loadDefaultIndex(t)

	tests := []struct {
		name   string
		text   string
		aspect models.Aspect
		want   string
		found  bool
	}{
		{"grading", "Chấm điểm thiếu minh bạch", models.AspectLecturer, "cham_diem", true},
		{"two letter keyword steers the sub-topic", "Cô dạy hay", models.AspectLecturer, "dung_gio", true},
		{"first sub-topic wins on shared keywords", "Giảng viên chấm điểm không công bằng", models.AspectLecturer, "dung_gio", true},
		{"network", "Wifi trường rất yếu", models.AspectFacility, "mang", true},
		{"scholarship", "Xét học bổng quá chậm", models.AspectOthers, "hoc_bong", true},
		{"schedule", "Lịch thi bị dồn vào một tuần", models.AspectTrainingProgram, "lich_hoc", true},
		{"no match", "Mọi thứ đều ổn cả", models.AspectFacility, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := idx.PickSubtopic(tt.aspect, textnorm.NormalizeForMatching(tt.text))
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectPrompt(t *testing.T) {
	idx := loadDefaultIndex(t)

	t.Run("sub-topic prompt", func(t *testing.T) {
		p := idx.SelectPrompt(models.AspectFacility, "Wifi trường rất yếu")
		assert.True(t, strings.HasPrefix(p, "ĐÁNH GIÁ MẠNG/Wi-Fi"), p)
	})
	t.Run("default prompt", func(t *testing.T) {
		p := idx.SelectPrompt(models.AspectLecturer, "Wifi trường rất yếu")
		assert.True(t, strings.HasPrefix(p, "ĐÁNH GIÁ phần liên quan GIẢNG VIÊN"), p)
		assert.NotContains(t, p, "\n")
	})
	t.Run("short keyword selects the sub-topic prompt", func(t *testing.T) {
		p := idx.SelectPrompt(models.AspectLecturer, "Cô dạy hay")
		assert.True(t, strings.HasPrefix(p, "ĐÁNH GIÁ TÍNH ĐÚNG GIỜ"), p)
	})
	t.Run("unknown aspect", func(t *testing.T) {
		assert.Empty(t, idx.SelectPrompt("unknown", "Wifi trường rất yếu"))
	})
	t.Run("deterministic", func(t *testing.T) {
		text := "Học phí tăng mà thư viện thiếu sách"
		assert.Equal(t, idx.SelectPrompt(models.AspectOthers, text), idx.SelectPrompt(models.AspectOthers, text))
	})
}

func TestIndexConcurrentReads(t *testing.T) {
	idx := loadDefaultIndex(t)
	norm := textnorm.NormalizeForMatching("Máy chiếu hỏng, phòng học nóng")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, a := range idx.Aspects() {
				idx.HasKeyword(a, norm)
				idx.PromptForNormalized(a, norm)
			}
		}()
	}
	wg.Wait()
}

func TestLoadRejectsInvalidCatalogs(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"single aspect", `
aspects:
  - id: a
    default_prompt: p
`},
		{"duplicate aspect", `
aspects:
  - id: a
    default_prompt: p
  - id: a
    default_prompt: q
`},
		{"missing prompt", `
aspects:
  - id: a
  - id: b
    default_prompt: q
`},
		{"duplicate sub-topic", `
aspects:
  - id: a
    default_prompt: p
    subtopics:
      - name: s
      - name: s
  - id: b
    default_prompt: q
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidCatalog)
		})
	}

	t.Run("unknown field", func(t *testing.T) {
		_, err := Load(strings.NewReader("aspects:\n  - id: a\n    prompt: p\n"))
		assert.Error(t, err)
	})
}

func TestLoadCustomCatalog(t *testing.T) {
	idx, err := Load(strings.NewReader(`
aspects:
  - id: food
    default_prompt: food default
    subtopics:
      - name: taste
        keywords: ["ngon", "dở"]
  - id: service
    default_prompt: service default
`))
	require.NoError(t, err)

	norm := textnorm.NormalizeForMatching("Món này rất ngon")
	assert.True(t, idx.HasKeyword("food", norm))
	assert.Equal(t, "food default", idx.PromptForNormalized("food", norm), "sub-topic without prompt inherits the default")
	assert.Equal(t, "service default", idx.PromptForNormalized("service", norm))
}

func TestIndexFingerprint(t *testing.T) {
	const src = `
aspects:
  - id: food
    default_prompt: food default
  - id: service
    default_prompt: service default
`
	a, err := Load(strings.NewReader(src))
	require.NoError(t, err)
	b, err := Load(strings.NewReader(src))
	require.NoError(t, err)

	assert.Len(t, a.Fingerprint(), 64)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), loadDefaultIndex(t).Fingerprint())
}
