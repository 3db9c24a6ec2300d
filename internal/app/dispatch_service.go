package app

import (
	"context"
	"fmt"

	"recurring_message_bot/internal/domain/chat"
	"recurring_message_bot/internal/domain/schedule"
	idb "recurring_message_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// Dispatcher runs one evaluation tick over all eligible rules. Implemented
// by DispatchService; consumed by the cron driver and the ops server.
type Dispatcher interface {
	RunTick(ctx context.Context, asOf schedule.Date) (int, error)
}

// DispatchService is the only component with side effects: it loads the
// eligible rules, evaluates each one, emits messages through the sink and
// stamps firings back to the store.
type DispatchService struct {
	rules  schedule.Repository
	sink   chat.Sink
	clock  schedule.Clock
	logger *logrus.Logger
}

func NewDispatchService(
	rules schedule.Repository,
	sink chat.Sink,
	clock schedule.Clock,
	logger *logrus.Logger,
) *DispatchService {
	return &DispatchService{
		rules:  rules,
		sink:   sink,
		clock:  clock,
		logger: logger,
	}
}

// RunTick evaluates every active in-window rule against asOf and returns
// the number of rules that fired. Safe to invoke repeatedly within a day:
// the per-day guard in schedule.ShouldFire plus the conditional stamp in
// the repository keep a rule from firing twice on one date.
//
// Failures are local: a rule whose emission or stamp fails is logged and
// skipped, and will be evaluated fresh on the next tick. Only a failure of
// the listing call itself aborts the tick.
func (s *DispatchService) RunTick(ctx context.Context, asOf schedule.Date) (int, error) {
	rules, err := s.rules.ListActiveInWindow(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to list rules for %s: %w", asOf, err)
	}
	s.logger.Infof("Tick for %s: %d candidate rule(s)", asOf, len(rules))

	fired := 0
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			// Authoring should never let such a rule through; skip it
			// rather than abort the whole tick.
			s.logger.WithField("rule_id", rule.ID).Warnf("Skipping invalid rule: %v", err)
			continue
		}
		if !schedule.ShouldFire(rule, asOf) {
			continue
		}
		if s.fireRule(ctx, rule, asOf) {
			fired++
		}
	}

	s.logger.Infof("Tick for %s complete: %d rule(s) fired", asOf, fired)
	return fired, nil
}

// fireRule emits one message for rule and stamps the firing. Returns true
// when the message was delivered; the stamp is recorded afterwards, so a
// crash between the two leaves a rule that may fire again on a retry — the
// store-level stamp guard is the only protection against that.
func (s *DispatchService) fireRule(ctx context.Context, rule *schedule.Rule, asOf schedule.Date) bool {
	log := s.logger.WithFields(logrus.Fields{
		"rule_id": rule.ID,
		"channel": rule.TargetChannel,
	})

	msg := &chat.Message{
		ChannelID:  rule.TargetChannel,
		Body:       rule.Payload,
		AuthorID:   rule.CreatedBy,
		AuthorName: rule.CreatedByDisplayName,
		Tags: map[string]string{
			chat.TagAutomated: "true",
			chat.TagRuleID:    rule.ID.String(),
		},
		SentAt: s.clock.Now(),
	}

	messageID, err := s.sink.Append(ctx, msg)
	if err != nil {
		log.Errorf("Failed to emit message: %v", err)
		return false
	}
	log.Infof("Emitted message %s for %s", messageID, asOf)

	if err := s.rules.MarkFired(ctx, rule.ID, s.clock.Now()); err != nil {
		if err == idb.ErrAlreadyFiredToday {
			// Another tick got there first; the message for today was
			// duplicated but the stamp stays consistent.
			log.Warn("Rule was already stamped for today by a concurrent tick")
		} else {
			log.Errorf("Failed to stamp firing: %v", err)
		}
		return true
	}
	return true
}
