package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence operations for recurrence rules.
type Repository interface {
	Create(ctx context.Context, rule *Rule) error
	GetByID(ctx context.Context, id uuid.UUID) (*Rule, error)
	Update(ctx context.Context, rule *Rule) error
	ListAll(ctx context.Context) ([]*Rule, error)

	// ListActiveInWindow returns rules with active = true whose
	// [start_date, end_date] window contains asOf.
	ListActiveInWindow(ctx context.Context, asOf Date) ([]*Rule, error)

	// MarkFired stamps last_fired_at for the rule, but only if the rule has
	// not already been stamped on firedAt's calendar date. A lost race
	// surfaces as a typed error rather than a silent overwrite.
	MarkFired(ctx context.Context, id uuid.UUID, firedAt time.Time) error
}
