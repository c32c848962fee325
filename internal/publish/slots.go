package publish

import (
	"fmt"
	"time"

	"dubshorts/internal/config"
)

// Parity identifies which daily slot a time belongs to.
type Parity int

const (
	// Morning is the first slot of an alternating day.
	Morning Parity = iota
	// Evening is the second slot of an alternating day.
	Evening
	// Daily marks the single slot of the DailySingle strategy.
	Daily
)

func (p Parity) String() string {
	switch p {
	case Morning:
		return "morning"
	case Evening:
		return "evening"
	default:
		return "daily"
	}
}

// Slot is an assigned publish time.
type Slot struct {
	ScheduledTime time.Time
	Parity        Parity
}

// SlotStrategy assigns the publish slot for the upload at position
// alreadyScheduled within a batch. Slots returned for increasing positions
// are strictly increasing and strictly after now.
type SlotStrategy interface {
	Next(now time.Time, alreadyScheduled int) Slot
	Name() string
}

// ClockTime is a wall-clock time of day in the location of "now".
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses "HH:MM".
func ParseClockTime(value string) (ClockTime, error) {
	offset, err := config.ParseClock(value)
	if err != nil {
		return ClockTime{}, err
	}
	return ClockTime{Hour: int(offset / time.Hour), Minute: int(offset % time.Hour / time.Minute)}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c ClockTime) on(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, day.Location())
}

// Alternating alternates between a morning and an evening slot each day.
type Alternating struct {
	Morning ClockTime
	Evening ClockTime
}

// Name implements SlotStrategy.
func (Alternating) Name() string { return config.StrategyAlternating }

// Next places position n at today+n/2, morning for even n and evening for
// odd n, when that whole sequence lies in the future. Otherwise the sequence
// starts from the first future slot, so the batch still alternates and never
// reuses a time.
func (a Alternating) Next(now time.Time, alreadyScheduled int) Slot {
	n := max(alreadyScheduled, 0)
	day := midnight(now)
	parity := Morning

	// Advance to the first slot strictly after now.
	for !a.at(day, parity).After(now) {
		day, parity = a.advance(day, parity)
	}
	for range n {
		day, parity = a.advance(day, parity)
	}
	return Slot{ScheduledTime: a.at(day, parity), Parity: parity}
}

func (a Alternating) at(day time.Time, parity Parity) time.Time {
	if parity == Evening {
		return a.Evening.on(day)
	}
	return a.Morning.on(day)
}

func (a Alternating) advance(day time.Time, parity Parity) (time.Time, Parity) {
	if parity == Morning {
		return day, Evening
	}
	return day.AddDate(0, 0, 1), Morning
}

// DailySingle schedules one upload per day at a fixed time.
type DailySingle struct {
	At ClockTime
}

// Name implements SlotStrategy.
func (DailySingle) Name() string { return config.StrategyDaily }

// Next returns today's slot when still in the future (tomorrow's otherwise),
// pushed forward one day per already scheduled upload.
func (d DailySingle) Next(now time.Time, alreadyScheduled int) Slot {
	day := midnight(now)
	if !d.At.on(day).After(now) {
		day = day.AddDate(0, 0, 1)
	}
	day = day.AddDate(0, 0, max(alreadyScheduled, 0))
	return Slot{ScheduledTime: d.At.on(day), Parity: Daily}
}

// StrategyFromConfig builds the configured slot strategy.
func StrategyFromConfig(cfg config.Publish) (SlotStrategy, error) {
	switch cfg.Strategy {
	case config.StrategyDaily:
		at, err := ParseClockTime(cfg.DailyAt)
		if err != nil {
			return nil, fmt.Errorf("publish.daily_at: %w", err)
		}
		return DailySingle{At: at}, nil
	case config.StrategyAlternating, "":
		morning, err := ParseClockTime(cfg.Morning)
		if err != nil {
			return nil, fmt.Errorf("publish.morning: %w", err)
		}
		evening, err := ParseClockTime(cfg.Evening)
		if err != nil {
			return nil, fmt.Errorf("publish.evening: %w", err)
		}
		return Alternating{Morning: morning, Evening: evening}, nil
	default:
		return nil, fmt.Errorf("unknown publish strategy %q", cfg.Strategy)
	}
}

// Preview lists the next count slots a batch would receive.
func Preview(strategy SlotStrategy, now time.Time, count int) []Slot {
	slots := make([]Slot, 0, max(count, 0))
	for i := range max(count, 0) {
		slots = append(slots, strategy.Next(now, i))
	}
	return slots
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
