package schedule

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Pattern is the cadence family of a recurrence rule. The enumeration is
// closed: anything outside it is treated as "never fires" rather than as
// an error (see Evaluator).
type Pattern string

const (
	PatternDaily   Pattern = "DAILY"
	PatternWeekly  Pattern = "WEEKLY"
	PatternMonthly Pattern = "MONTHLY"
)

// Validation errors surfaced by Rule.Validate.
var ErrUnknownPattern = fmt.Errorf("unknown recurrence pattern")
var ErrInvalidInterval = fmt.Errorf("interval must be >= 1")
var ErrInvalidDayOfWeek = fmt.Errorf("days of week must be within 0 (Sunday) .. 6 (Saturday)")
var ErrEndBeforeStart = fmt.Errorf("end date precedes start date")

// Rule is a persisted description of a chat message that repeats on a
// calendar cadence. Corresponds to the 'recurring_messages' table.
type Rule struct {
	ID                   uuid.UUID
	TargetChannel        string // destination room; owned by the chat service
	Payload              string // message text, emitted verbatim on each firing
	CreatedBy            string
	CreatedByDisplayName string
	StartDate            Date
	Pattern              Pattern
	Interval             int   // every Interval-th unit of Pattern
	DaysOfWeek           []int // 0=Sunday..6=Saturday; meaningful only for PatternWeekly
	EndDate              *Date
	Active               bool
	LastFiredAt          sql.NullTime // sole idempotency guard; full timestamp precision
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Validate checks the rule's structural invariants. Rules are validated at
// authoring time; the dispatcher re-checks defensively and skips (rather
// than aborts on) rules that fail.
func (r *Rule) Validate() error {
	switch r.Pattern {
	case PatternDaily, PatternWeekly, PatternMonthly:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPattern, r.Pattern)
	}
	if r.Interval < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidInterval, r.Interval)
	}
	for _, wd := range r.DaysOfWeek {
		if wd < 0 || wd > 6 {
			return fmt.Errorf("%w: got %d", ErrInvalidDayOfWeek, wd)
		}
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return fmt.Errorf("%w: end %s, start %s", ErrEndBeforeStart, r.EndDate, r.StartDate)
	}
	return nil
}

// fallsOnAllowedWeekday reports whether d's weekday is in the rule's
// DaysOfWeek set. An empty set allows every weekday.
func (r *Rule) fallsOnAllowedWeekday(d Date) bool {
	if len(r.DaysOfWeek) == 0 {
		return true
	}
	wd := int(d.Weekday())
	for _, allowed := range r.DaysOfWeek {
		if allowed == wd {
			return true
		}
	}
	return false
}

// inWindow reports whether d lies within [StartDate, EndDate].
func (r *Rule) inWindow(d Date) bool {
	if d.Before(r.StartDate) {
		return false
	}
	if r.EndDate != nil && d.After(*r.EndDate) {
		return false
	}
	return true
}
