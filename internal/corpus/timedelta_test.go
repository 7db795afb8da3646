package corpus

import (
	"testing"
	"time"
)

func TestFormatTimedelta(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0 days 00:00:00"},
		{1500 * time.Millisecond, "0 days 00:00:01.500000"},
		{time.Second, "0 days 00:00:01"},
		{61*time.Minute + 2*time.Second + 30*time.Millisecond, "0 days 01:01:02.030000"},
		{25 * time.Hour, "1 days 01:00:00"},
		{1500, "0 days 00:00:00.000001500"},
	}
	for _, tt := range tests {
		if got := FormatTimedelta(tt.in); got != tt.want {
			t.Errorf("FormatTimedelta(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseTimedeltaInvertsFormat(t *testing.T) {
	values := []time.Duration{
		0,
		1500 * time.Millisecond,
		3*time.Hour + 4*time.Minute + 5*time.Second + 678*time.Millisecond,
		49*time.Hour + 1,
	}
	for _, d := range values {
		got, err := ParseTimedelta(FormatTimedelta(d))
		if err != nil {
			t.Fatalf("ParseTimedelta(%q): %v", FormatTimedelta(d), err)
		}
		if got != d {
			t.Fatalf("round trip %v: got %v", d, got)
		}
	}
}

func TestParseTimedeltaRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "00:00:01", "0 days 00:01", "x days 00:00:01"} {
		if _, err := ParseTimedelta(in); err == nil {
			t.Errorf("ParseTimedelta(%q) expected error", in)
		}
	}
}
