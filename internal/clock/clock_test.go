package clock

import (
	"testing"
	"time"

	"github.com/dokzlo13/watchface/internal/event"
)

func TestNextBoundary(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "mid_minute",
			now:  time.Date(2024, 3, 5, 14, 7, 31, 500, time.UTC),
			want: time.Date(2024, 3, 5, 14, 8, 0, 0, time.UTC),
		},
		{
			name: "on_boundary",
			now:  time.Date(2024, 3, 5, 14, 7, 0, 0, time.UTC),
			want: time.Date(2024, 3, 5, 14, 8, 0, 0, time.UTC),
		},
		{
			name: "end_of_day",
			now:  time.Date(2024, 3, 5, 23, 59, 59, 0, time.UTC),
			want: time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextBoundary(tt.now); !got.Equal(tt.want) {
				t.Errorf("NextBoundary() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChanged(t *testing.T) {
	base := time.Date(2024, 3, 5, 14, 7, 10, 0, time.UTC)

	tests := []struct {
		name string
		prev time.Time
		now  time.Time
		want event.TimeUnits
	}{
		{name: "first_tick", now: base, want: event.MinuteUnit | event.HourUnit | event.DayUnit},
		{name: "same_minute", prev: base, now: base.Add(20 * time.Second), want: 0},
		{name: "minute", prev: base, now: base.Add(time.Minute), want: event.MinuteUnit},
		{
			name: "hour",
			prev: time.Date(2024, 3, 5, 14, 59, 0, 0, time.UTC),
			now:  time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC),
			want: event.MinuteUnit | event.HourUnit,
		},
		{
			name: "midnight",
			prev: time.Date(2024, 3, 5, 23, 59, 0, 0, time.UTC),
			now:  time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC),
			want: event.MinuteUnit | event.HourUnit | event.DayUnit,
		},
		{
			name: "missed_a_day",
			prev: base,
			now:  base.Add(24 * time.Hour),
			want: event.MinuteUnit | event.HourUnit | event.DayUnit,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Changed(tt.prev, tt.now); got != tt.want {
				t.Errorf("Changed() = %b, want %b", got, tt.want)
			}
		})
	}
}

func TestNew_UnknownTimezone(t *testing.T) {
	c := New(func(event.Event) {}, "Not/AZone")
	if c.Location() != time.UTC {
		t.Errorf("Location() = %v, want UTC", c.Location())
	}
}
