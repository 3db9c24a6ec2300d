package app

import (
	"context"
	"testing"
	"time"

	"recurring_message_bot/internal/domain/schedule"
	idb "recurring_message_bot/internal/infra/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRuleServiceFixture(rules ...*schedule.Rule) (*RuleService, *fakeRuleRepo) {
	repo := &fakeRuleRepo{rules: rules, markErr: map[uuid.UUID]error{}}
	clock := &fakeClock{now: time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)}
	return NewRuleService(repo, clock), repo
}

func weeklyParams() CreateRuleParams {
	return CreateRuleParams{
		TargetChannel:        "room-7",
		Payload:              "Submit your timesheets",
		CreatedBy:            "user-hr",
		CreatedByDisplayName: "HR Bot Owner",
		StartDate:            schedule.MustParseDate("2024-03-04"), // a Monday
		Pattern:              schedule.PatternWeekly,
		Interval:             1,
		DaysOfWeek:           []int{1},
	}
}

func TestRuleService_Create(t *testing.T) {
	svc, repo := newRuleServiceFixture()

	rule, err := svc.Create(context.Background(), weeklyParams())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, rule.ID)
	assert.True(t, rule.Active)
	assert.False(t, rule.LastFiredAt.Valid)
	assert.Len(t, repo.rules, 1)
}

func TestRuleService_CreateRejectsInvalidRule(t *testing.T) {
	svc, repo := newRuleServiceFixture()

	params := weeklyParams()
	params.Interval = 0
	_, err := svc.Create(context.Background(), params)
	assert.ErrorIs(t, err, schedule.ErrInvalidInterval)

	params = weeklyParams()
	params.DaysOfWeek = []int{1, 8}
	_, err = svc.Create(context.Background(), params)
	assert.ErrorIs(t, err, schedule.ErrInvalidDayOfWeek)

	params = weeklyParams()
	end := schedule.MustParseDate("2024-01-01")
	params.EndDate = &end
	_, err = svc.Create(context.Background(), params)
	assert.ErrorIs(t, err, schedule.ErrEndBeforeStart)

	assert.Empty(t, repo.rules, "invalid rules must never be persisted")
}

func TestRuleService_PauseAndResume(t *testing.T) {
	rule := testDailyRule("room-1", "2024-03-01")
	svc, _ := newRuleServiceFixture(rule)
	ctx := context.Background()

	paused, err := svc.Pause(ctx, rule.ID)
	require.NoError(t, err)
	assert.False(t, paused.Active)

	_, err = svc.Pause(ctx, rule.ID)
	assert.ErrorIs(t, err, ErrRuleAlreadyPaused)

	resumed, err := svc.Resume(ctx, rule.ID)
	require.NoError(t, err)
	assert.True(t, resumed.Active)

	_, err = svc.Resume(ctx, rule.ID)
	assert.ErrorIs(t, err, ErrRuleAlreadyActive)
}

func TestRuleService_PauseUnknownRule(t *testing.T) {
	svc, _ := newRuleServiceFixture()

	_, err := svc.Pause(context.Background(), uuid.New())
	assert.ErrorIs(t, err, idb.ErrRuleNotFound)
}

func TestRuleService_ListDecoratesNextOccurrence(t *testing.T) {
	active := testDailyRule("room-1", "2024-03-01")
	paused := testDailyRule("room-2", "2024-03-01")
	paused.Active = false
	svc, _ := newRuleServiceFixture(active, paused)

	overviews, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, overviews, 2)

	require.NotNil(t, overviews[0].NextOccurrence)
	assert.Equal(t, schedule.MustParseDate("2024-03-01"), *overviews[0].NextOccurrence)

	// Paused rules never fire again, so no next occurrence is shown.
	assert.Nil(t, overviews[1].NextOccurrence)
}
