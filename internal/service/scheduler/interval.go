package scheduler

import (
	"time"

	"github.com/mirageworld/mirage/backend/internal/config"
)

// Speed is the user-selected simulation pace.
type Speed string

const (
	SpeedOff    Speed = "off"
	SpeedSlow   Speed = "slow"
	SpeedNormal Speed = "normal"
	SpeedFast   Speed = "fast"
)

// ParseSpeed validates a speed string.
func ParseSpeed(s string) (Speed, bool) {
	switch Speed(s) {
	case SpeedOff, SpeedSlow, SpeedNormal, SpeedFast:
		return Speed(s), true
	default:
		return "", false
	}
}

// Interval computes the next tick delay: the base interval for the speed
// scaled by the time-of-day multiplier. Pacing is deliberately non-uniform
// across the day.
func Interval(cfg config.SchedulerConfig, speed Speed, now time.Time) time.Duration {
	var base time.Duration
	switch speed {
	case SpeedFast:
		base = cfg.FastInterval
	case SpeedSlow:
		base = cfg.SlowInterval
	case SpeedNormal:
		base = cfg.NormalInterval
	default:
		return 0
	}
	return time.Duration(float64(base) * timeOfDayMultiplier(now))
}

// timeOfDayMultiplier makes evenings busy, nights quiet, and weekends a bit
// livelier during the day.
func timeOfDayMultiplier(t time.Time) float64 {
	hour := t.Hour()
	weekend := t.Weekday() == time.Saturday || t.Weekday() == time.Sunday

	switch {
	case hour >= 17 && hour < 21:
		return 0.6
	case hour < 6:
		return 2.0
	case hour >= 21:
		return 1.3
	case weekend:
		return 0.8
	default:
		return 1.0
	}
}
