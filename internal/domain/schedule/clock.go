package schedule

import "time"

// Clock supplies "now" to the dispatcher. Injectable so that evaluation
// dates are controllable in tests; nothing in this package reads the wall
// clock directly.
type Clock interface {
	Now() time.Time
}

// ZoneClock is the production Clock: wall time in one fixed configured
// zone. All deployments of the engine evaluate dates in that single zone
// rather than in whatever the host machine happens to be set to.
type ZoneClock struct {
	loc *time.Location
}

func NewZoneClock(loc *time.Location) *ZoneClock {
	return &ZoneClock{loc: loc}
}

func (c *ZoneClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Today returns the current calendar date on clock c.
func Today(c Clock) Date {
	return DateOf(c.Now())
}
