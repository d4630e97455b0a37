package scheduler

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// NextAt returns the first occurrence of at strictly after now, in now's
// location. A time of day equal to or earlier than now rolls to tomorrow.
func NextAt(at TimeOfDay, now time.Time) (time.Time, error) {
	if !at.Valid() {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidTime, at)
	}
	sched, err := cron.ParseStandard(fmt.Sprintf("%d %d * * *", at.Minute, at.Hour))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidTime, err)
	}
	next := sched.Next(now)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("%w: no upcoming %s", ErrInvalidTime, at)
	}
	return next, nil
}

// ParseClock parses a 24-hour "HH:MM" (or "H:MM") time of day.
func ParseClock(value string) (TimeOfDay, error) {
	value = strings.TrimSpace(value)
	hh, mm, ok := strings.Cut(value, ":")
	if !ok || len(mm) != 2 || len(hh) == 0 || len(hh) > 2 {
		return TimeOfDay{}, fmt.Errorf("%w: %q (use HH:MM, e.g. 14:30)", ErrInvalidTime, value)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q (use HH:MM, e.g. 14:30)", ErrInvalidTime, value)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q (use HH:MM, e.g. 14:30)", ErrInvalidTime, value)
	}
	at := TimeOfDay{Hour: hour, Minute: minute}
	if !at.Valid() {
		return TimeOfDay{}, fmt.Errorf("%w: %q is out of range", ErrInvalidTime, value)
	}
	return at, nil
}

// ParseDuration accepts a Go duration ("90s", "1h30m") or a bare integer,
// which counts minutes.
func ParseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("%w: duration required", ErrInvalidDuration)
	}
	var d time.Duration
	if minutes, err := strconv.ParseInt(value, 10, 64); err == nil {
		if minutes > math.MaxInt64/int64(time.Minute) {
			return 0, fmt.Errorf("%w: %q minutes is too long", ErrInvalidDuration, value)
		}
		if minutes <= 0 {
			return 0, fmt.Errorf("%w: %q must be positive", ErrInvalidDuration, value)
		}
		d = time.Duration(minutes) * time.Minute
	} else {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("%w: %q (use minutes like 10 or a duration like 90s)", ErrInvalidDuration, value)
		}
		d = parsed
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %q must be positive", ErrInvalidDuration, value)
	}
	return d, nil
}

// FormatDuration trims the zero units time.Duration.String leaves behind.
func FormatDuration(d time.Duration) string {
	s := d.String()
	if strings.HasSuffix(s, "m0s") {
		s = strings.TrimSuffix(s, "0s")
	}
	if strings.HasSuffix(s, "h0m") {
		s = strings.TrimSuffix(s, "0m")
	}
	return s
}
