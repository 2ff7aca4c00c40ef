package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertMarkdownToText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Giảng viên dạy hay", "Giảng viên dạy hay"},
		{"emphasis", "Môn học **rất** _bổ ích_", "Môn học rất bổ ích"},
		{"markdown link keeps text", "Xem [đề cương](https://example.edu/syllabus) nhé", "Xem đề cương nhé"},
		{"bare url removed", "Tài liệu ở https://example.edu/x rất thiếu", "Tài liệu ở rất thiếu"},
		{"list and heading", "# Góp ý\n\n- phòng học nóng\n- wifi yếu", "Góp ý phòng học nóng wifi yếu"},
		{"entities", "điểm A & B", "điểm A & B"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConvertMarkdownToText(tt.input))
		})
	}
}

func TestLexiconPolarity(t *testing.T) {
	assert.Equal(t, LabelPositive, LexiconPolarity("The lecturer is great and very helpful").Label)
	assert.Equal(t, LabelNegative, LexiconPolarity("The room is terrible and the wifi is awful").Label)

	empty := LexiconPolarity("")
	assert.Equal(t, LabelNeutral, empty.Label)
	assert.Zero(t, empty.Score)
}
