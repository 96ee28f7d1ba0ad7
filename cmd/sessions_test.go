package cmd

import (
	"strings"
	"testing"
	"time"
)

func TestFormatTime(t *testing.T) {
	t.Parallel()

	now := time.Now()
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"just now", now.Add(-10 * time.Second), "just now"},
		{"minutes", now.Add(-5 * time.Minute), "minutes ago"},
		{"hours", now.Add(-3 * time.Hour), "hours ago"},
		{"days", now.Add(-48 * time.Hour), "days ago"},
		{"absolute beyond a week", now.Add(-10 * 24 * time.Hour), now.Add(-10 * 24 * time.Hour).Format("2006-01-02 15:04")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := formatTime(tt.t)
			if !strings.Contains(got, tt.want) {
				t.Errorf("formatTime() = %q, want containing %q", got, tt.want)
			}
		})
	}
}
