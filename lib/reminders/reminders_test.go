package reminders

import (
	"testing"
	"time"
)

func TestParseWhen(t *testing.T) {
	now := time.Date(2021, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		query     string
		wantAt    time.Time
		wantEvery time.Duration
		wantMsg   string
		wantErr   bool
	}{
		{name: "in minutes",
			query:   "in 5 minutes to check the oven",
			wantAt:  now.Add(5 * time.Minute),
			wantMsg: "check the oven"},
		{name: "in one hour",
			query:   "in 1 hour stretch",
			wantAt:  now.Add(time.Hour),
			wantMsg: "stretch"},
		{name: "in days",
			query:   "in 2 days to pay rent",
			wantAt:  now.Add(48 * time.Hour),
			wantMsg: "pay rent"},
		{name: "every day",
			query:     "every day to drink water",
			wantAt:    now.Add(24 * time.Hour),
			wantEvery: 24 * time.Hour,
			wantMsg:   "drink water"},
		{name: "every two weeks",
			query:     "every 2 weeks to mow the lawn",
			wantAt:    now.Add(14 * 24 * time.Hour),
			wantEvery: 14 * 24 * time.Hour,
			wantMsg:   "mow the lawn"},
		{name: "case insensitive",
			query:   "In 10 Seconds to blink",
			wantAt:  now.Add(10 * time.Second),
			wantMsg: "blink"},
		{name: "no time phrase",
			query:   "to do something eventually",
			wantErr: true},
		{name: "zero interval",
			query:   "in 0 minutes to panic",
			wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at, every, msg, err := ParseWhen(tt.query, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseWhen(%q) error = %v, wantErr %v", tt.query, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !at.Equal(tt.wantAt) {
				t.Errorf("ParseWhen(%q) at = %v, want %v", tt.query, at, tt.wantAt)
			}
			if every != tt.wantEvery {
				t.Errorf("ParseWhen(%q) every = %v, want %v", tt.query, every, tt.wantEvery)
			}
			if msg != tt.wantMsg {
				t.Errorf("ParseWhen(%q) message = %q, want %q", tt.query, msg, tt.wantMsg)
			}
		})
	}
}

func TestNextOccurrence(t *testing.T) {
	base := time.Date(2021, 5, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		at    time.Time
		every time.Duration
		now   time.Time
		want  time.Time
	}{
		{name: "simple advance",
			at:    base,
			every: time.Hour,
			now:   base,
			want:  base.Add(time.Hour)},
		{name: "skips missed periods",
			at:    base,
			every: time.Hour,
			now:   base.Add(5*time.Hour + 30*time.Minute),
			want:  base.Add(6 * time.Hour)},
		{name: "lands exactly on a boundary",
			at:    base,
			every: time.Hour,
			now:   base.Add(3 * time.Hour),
			want:  base.Add(4 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextOccurrence(tt.at, tt.every, tt.now); !got.Equal(tt.want) {
				t.Errorf("NextOccurrence() = %v, want %v", got, tt.want)
			}
		})
	}
}
