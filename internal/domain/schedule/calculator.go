package schedule

// NextOccurrence computes the next calendar date on which rule will (or
// would) fire, for display and audit. The second return is false when the
// rule will never fire again.
//
// Unlike ShouldFire, the step here is anchored on LastFiredAt (falling back
// to the day before StartDate). After a missed cycle the two can disagree:
// ShouldFire keeps firing on the StartDate grid while this function projects
// from the last actual firing. That duality is long-standing observable
// behavior; admin views show it and tests pin it. Do not unify one side
// onto the other without product sign-off.
func NextOccurrence(rule *Rule, today Date) (Date, bool) {
	if !rule.Active {
		return Date{}, false
	}
	if rule.StartDate.After(today) {
		return rule.StartDate, true
	}

	anchor := rule.StartDate.AddDays(-1)
	if rule.LastFiredAt.Valid {
		anchor = DateOf(rule.LastFiredAt.Time)
	}

	var next Date
	switch rule.Pattern {
	case PatternDaily:
		next = anchor.AddDays(rule.Interval)
	case PatternWeekly:
		next = anchor.AddDays(7 * rule.Interval)
		if len(rule.DaysOfWeek) > 0 {
			found := false
			for probe := 0; probe < 7; probe++ {
				if rule.fallsOnAllowedWeekday(next.AddDays(probe)) {
					next = next.AddDays(probe)
					found = true
					break
				}
			}
			if !found {
				return Date{}, false
			}
		}
	case PatternMonthly:
		stepped := anchor.AddMonths(rule.Interval)
		// Re-anchor on the start date's day-of-month. Overflow normalizes
		// forward per time.Date (day 31 in a 30-day month spills into the
		// next month); no clamping.
		next = NewDate(stepped.Year, stepped.Month, rule.StartDate.Day)
	default:
		return Date{}, false
	}

	if rule.EndDate != nil && next.After(*rule.EndDate) {
		return Date{}, false
	}
	return next, true
}
