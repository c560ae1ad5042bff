package timeutil

import (
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"90s":   90 * time.Second,
		"2h":    2 * time.Hour,
		"3d":    72 * time.Hour,
		"1w":    7 * 24 * time.Hour,
		"1w2d":  9 * 24 * time.Hour,
		"2d12h": 60 * time.Hour,
		" 45m ": 45 * time.Minute,
	}
	for in, want := range cases {
		got, err := ParseDuration(in)
		if err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if got != want {
			t.Fatalf("%s: expected %v, got %v", in, want, got)
		}
	}
	for _, bad := range []string{"", "d", "xd", "5y", "2d3y", "w1"} {
		if _, err := ParseDuration(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestParseSince(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	got, err := ParseSince("2d", now)
	if err != nil || !got.Equal(now.Add(-48*time.Hour)) {
		t.Fatalf("unexpected 2d result %v, %v", got, err)
	}
	got, err = ParseSince("-36h", now)
	if err != nil || !got.Equal(now.Add(-36*time.Hour)) {
		t.Fatalf("unexpected -36h result %v, %v", got, err)
	}
	got, err = ParseSince("2024-03-01T00:00:00Z", now)
	if err != nil || !got.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected absolute result %v, %v", got, err)
	}
	if _, err := ParseSince("soon", now); err == nil {
		t.Fatal("expected error for unparseable input")
	}
}
