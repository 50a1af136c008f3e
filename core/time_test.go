package core

import "testing"

func TestFormatTime(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00"},
		{61, "00:01:01"},
		{3661, "01:01:01"},
		{3723.5, "01:02:03"},
		{59.999, "00:00:59"},
		{-5, "00:00:00"},
		{90000, "25:00:00"}, // hours are not wrapped at 24
	}

	for _, tt := range tests {
		if got := FormatTime(tt.seconds); got != tt.want {
			t.Errorf("FormatTime(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
