package validate

import (
	"fmt"
	"testing"
	"time"
)

// TestIsUnsafePath проверяет отбраковку опасных сегментов.
func TestIsUnsafePath(t *testing.T) {
	tests := []struct {
		segments []string
		unsafe   bool
	}{
		{[]string{"congres", "2024", "photo.jpg"}, false},
		{[]string{"congres", "..", "photo.jpg"}, true},
		{[]string{"documents", "statuts.pdf"}, false},
		{[]string{".", "x"}, true},
		{[]string{"a", "", "b"}, true},
		{[]string{"a\\b"}, true},
		{[]string{"a\x00b"}, true},
		{[]string{"concours", "reglements", "2024.pdf"}, false},
	}

	for _, tt := range tests {
		if got := IsUnsafePath(tt.segments); got != tt.unsafe {
			t.Errorf("IsUnsafePath(%q) = %v, ожидалось %v", tt.segments, got, tt.unsafe)
		}
	}
}

// TestValidatePhotoYear проверяет границы допустимых годов фотоальбомов.
func TestValidatePhotoYear(t *testing.T) {
	current := time.Now().Year()

	valid := []string{"2010", "2015", fmt.Sprintf("%d", current)}
	for _, y := range valid {
		if !ValidatePhotoYear(y) {
			t.Errorf("год %q должен быть допустим", y)
		}
	}

	invalid := []string{
		"2009",                           // до первого альбома
		fmt.Sprintf("%d", current+1),     // будущее
		"201",                            // 3 цифры
		"20155",                          // 5 цифр
		"abcd",                           // не цифры
		"20a4",                           // смешанное
		"",     // пустая строка
		"0999", // вне диапазона
	}
	for _, y := range invalid {
		if ValidatePhotoYear(y) {
			t.Errorf("год %q должен быть отклонён", y)
		}
	}
}
