package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeForStorage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trims and collapses", "  Thầy   dạy\t\nrất hay  ", "Thầy dạy rất hay"},
		{"composes decomposed input", "Thầy", "Thầy"},
		{"keeps case and diacritics", "Phòng Học NÓNG", "Phòng Học NÓNG"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeForStorage(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, NormalizeForStorage(got), "must be idempotent")
		})
	}
}

func TestNormalizeForMatching(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"strips tone marks", "Giảng viên dạy rất dễ hiểu", "giang vien day rat de hieu"},
		{"decomposed input", "Thồng", "thong"},
		{"keeps đ as a base letter", "Đăng ký tín chỉ", "đang ky tin chi"},
		{"collapses whitespace", "  Wi-Fi   quá   yếu ", "wi-fi qua yeu"},
		{"ascii passthrough", "wifi lab ok", "wifi lab ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeForMatching(tt.in))
		})
	}
}

func TestNormalizeForMatchingIdempotent(t *testing.T) {
	inputs := []string{
		"Cơ sở vật chất xuống cấp, máy chiếu hỏng suốt",
		"Học phí tăng mà không thông báo!!!",
		"ĐIỂM RÈN LUYỆN chấm chậm",
		"Ｆｕｌｌwidth and ñ and ü",
		"",
	}
	for _, in := range inputs {
		once := NormalizeForMatching(in)
		assert.Equal(t, once, NormalizeForMatching(once), "input %q", in)
	}
}
