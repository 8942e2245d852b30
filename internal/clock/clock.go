// Package clock emits minute-aligned ticks to the face.
package clock

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/watchface/internal/event"
)

// Clock wakes up on every wall-clock minute boundary and publishes a Tick
// describing which units rolled over since the previous one.
type Clock struct {
	publish func(event.Event)
	tz      *time.Location
	now     func() time.Time
}

// New creates a clock publishing into publish. An unknown timezone falls back
// to UTC.
func New(publish func(event.Event), timezone string) *Clock {
	tz, err := time.LoadLocation(timezone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", timezone).Msg("Failed to load timezone, using UTC")
		tz = time.UTC
	}
	return &Clock{publish: publish, tz: tz, now: time.Now}
}

// Location returns the timezone ticks are reported in.
func (c *Clock) Location() *time.Location {
	return c.tz
}

// Now returns the current time in the clock's timezone.
func (c *Clock) Now() time.Time {
	return c.now().In(c.tz)
}

// NextBoundary returns the start of the minute following t.
func NextBoundary(t time.Time) time.Time {
	return t.Truncate(time.Minute).Add(time.Minute)
}

// Changed returns the units that differ between prev and now. A zero prev
// reports every unit.
func Changed(prev, now time.Time) event.TimeUnits {
	if prev.IsZero() {
		return event.MinuteUnit | event.HourUnit | event.DayUnit
	}

	var units event.TimeUnits
	if prev.Truncate(time.Minute) != now.Truncate(time.Minute) {
		units |= event.MinuteUnit
	}
	if prev.Hour() != now.Hour() || !sameDay(prev, now) {
		units |= event.HourUnit
	}
	if !sameDay(prev, now) {
		units |= event.DayUnit
	}
	return units
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Run sleeps until each minute boundary and publishes a tick, until ctx is
// cancelled. start is the time the face was last drawn for.
func (c *Clock) Run(ctx context.Context, start time.Time) error {
	log.Info().Str("timezone", c.tz.String()).Msg("Clock started")

	prev := start.In(c.tz)
	for {
		wait := time.Until(NextBoundary(c.Now()))
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info().Msg("Clock stopped")
			return nil
		case <-timer.C:
		}

		now := c.Now()
		units := Changed(prev, now)
		if units == 0 {
			// Woke up early; sleep again.
			continue
		}
		prev = now

		log.Debug().
			Time("time", now).
			Bool("hour", units.Has(event.HourUnit)).
			Bool("day", units.Has(event.DayUnit)).
			Msg("Clock tick")
		c.publish(event.Tick{Time: now, Changed: units})
	}
}
