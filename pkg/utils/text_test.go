package utils

import "testing"

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello world", 5, "hello..."},
		{"x", 0, "x"},
		{"Bombus terrestris", -1, "Bombus terrestris"},
		{"Papilio machaón", 14, "Papilio machaó..."},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{10 * 1024 * 1024, "10.0 MiB"},
		{1536 * 1024 * 1024, "1.5 GiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
