package app

import (
	"context"
	"fmt"

	"recurring_message_bot/internal/domain/schedule"
	idb "recurring_message_bot/internal/infra/database"

	"github.com/google/uuid"
)

// Application-level errors for rule authoring.
var ErrRuleAlreadyPaused = fmt.Errorf("rule is already paused")
var ErrRuleAlreadyActive = fmt.Errorf("rule is already active")

// CreateRuleParams carries authoring input for a new recurrence rule.
type CreateRuleParams struct {
	TargetChannel        string
	Payload              string
	CreatedBy            string
	CreatedByDisplayName string
	StartDate            schedule.Date
	Pattern              schedule.Pattern
	Interval             int
	DaysOfWeek           []int
	EndDate              *schedule.Date
}

// RuleOverview is a rule decorated with its advisory next occurrence for
// admin display. NextOccurrence is nil when the rule will never fire again.
type RuleOverview struct {
	Rule           *schedule.Rule
	NextOccurrence *schedule.Date
}

// RuleService owns rule authoring: creation with full invariant validation,
// pause/resume, and listing with the computed next occurrence. Everything
// here is advisory or administrative; only the DispatchService fires.
type RuleService struct {
	rules schedule.Repository
	clock schedule.Clock
}

func NewRuleService(rules schedule.Repository, clock schedule.Clock) *RuleService {
	return &RuleService{rules: rules, clock: clock}
}

// Create validates and persists a new rule. Malformed rules are rejected
// here so the dispatcher only ever sees structurally valid ones.
func (s *RuleService) Create(ctx context.Context, params CreateRuleParams) (*schedule.Rule, error) {
	rule := &schedule.Rule{
		ID:                   uuid.New(),
		TargetChannel:        params.TargetChannel,
		Payload:              params.Payload,
		CreatedBy:            params.CreatedBy,
		CreatedByDisplayName: params.CreatedByDisplayName,
		StartDate:            params.StartDate,
		Pattern:              params.Pattern,
		Interval:             params.Interval,
		DaysOfWeek:           params.DaysOfWeek,
		EndDate:              params.EndDate,
		Active:               true,
	}
	if err := rule.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rule: %w", err)
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to create rule: %w", err)
	}
	return rule, nil
}

// Pause deactivates a rule so it is no longer evaluated or fired.
func (s *RuleService) Pause(ctx context.Context, id uuid.UUID) (*schedule.Rule, error) {
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		if err == idb.ErrRuleNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get rule %s: %w", id, err)
	}
	if !rule.Active {
		return rule, ErrRuleAlreadyPaused
	}
	rule.Active = false
	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to pause rule %s: %w", id, err)
	}
	return rule, nil
}

// Resume reactivates a paused rule. Cadence arithmetic is anchored on the
// start date, so a resumed rule rejoins its original grid rather than
// restarting from the resume date.
func (s *RuleService) Resume(ctx context.Context, id uuid.UUID) (*schedule.Rule, error) {
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		if err == idb.ErrRuleNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get rule %s: %w", id, err)
	}
	if rule.Active {
		return rule, ErrRuleAlreadyActive
	}
	rule.Active = true
	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to resume rule %s: %w", id, err)
	}
	return rule, nil
}

// List returns every rule with its advisory next occurrence as of today.
func (s *RuleService) List(ctx context.Context) ([]RuleOverview, error) {
	rules, err := s.rules.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	today := schedule.Today(s.clock)
	overviews := make([]RuleOverview, 0, len(rules))
	for _, rule := range rules {
		overview := RuleOverview{Rule: rule}
		if next, ok := schedule.NextOccurrence(rule, today); ok {
			overview.NextOccurrence = &next
		}
		overviews = append(overviews, overview)
	}
	return overviews, nil
}
