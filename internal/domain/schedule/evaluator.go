package schedule

// ShouldFire decides whether rule is due on asOf. Pure and deterministic:
// the only inputs are the rule's persisted fields and the evaluation date.
//
// Cadence arithmetic is anchored on StartDate, not on LastFiredAt: the rule
// fires on every date whose whole-unit distance from StartDate is a multiple
// of Interval. NextOccurrence deliberately anchors differently; see its
// comment before changing either.
func ShouldFire(rule *Rule, asOf Date) bool {
	if !rule.Active || !rule.inWindow(asOf) {
		return false
	}

	// At most one firing per rule per calendar day, however often the
	// dispatcher runs.
	if rule.LastFiredAt.Valid && DateOf(rule.LastFiredAt.Time) == asOf {
		return false
	}

	switch rule.Pattern {
	case PatternDaily:
		return DaysBetween(rule.StartDate, asOf)%rule.Interval == 0
	case PatternWeekly:
		if !rule.fallsOnAllowedWeekday(asOf) {
			return false
		}
		return WeeksBetween(rule.StartDate, asOf)%rule.Interval == 0
	case PatternMonthly:
		// Rules anchored on day 29/30/31 never fire in months without
		// that day. There is no last-day clamping.
		if asOf.Day != rule.StartDate.Day {
			return false
		}
		return MonthsBetween(rule.StartDate, asOf)%rule.Interval == 0
	default:
		// Closed enumeration; anything else never fires.
		return false
	}
}
