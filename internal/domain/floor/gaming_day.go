package floor

import "time"

// GamingDayLayout is the date format used for gaming-day values everywhere
// in the engine (storage, scoping, reporting).
const GamingDayLayout = "2006-01-02"

// GamingDay resolves the business date an instant belongs to. Casinos roll
// their accounting day at a configured cutoff hour, not midnight: an instant
// before the cutoff counts toward the previous calendar day.
//
// The comparison happens in the casino's wall-clock terms, so a DST jump
// shifts the boundary by at most the offset change the cutoff already implies.
func GamingDay(cutoffHour int, loc *time.Location, instant time.Time) string {
	if loc == nil {
		loc = time.UTC
	}

	local := instant.In(loc)
	if local.Hour() < cutoffHour {
		local = local.AddDate(0, 0, -1)
	}
	return local.Format(GamingDayLayout)
}

// GamingDayStart returns the instant the given gaming day began, in loc.
// The zero time and false are returned for a malformed gaming-day value.
func GamingDayStart(cutoffHour int, loc *time.Location, gamingDay string) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}

	day, err := time.ParseInLocation(GamingDayLayout, gamingDay, loc)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), cutoffHour, 0, 0, 0, loc), true
}
