package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"recurring_message_bot/internal/domain/schedule"

	"github.com/google/uuid"
	"github.com/lib/pq" // For pq.Int64Array and driver registration
)

// Custom errors specific to the rule repository
var ErrRuleNotFound = fmt.Errorf("recurrence rule not found")
var ErrDuplicateRule = fmt.Errorf("recurrence rule with this ID already exists")

// ErrAlreadyFiredToday is returned by MarkFired when the rule's stamp is
// already on the given calendar date; a concurrent tick won the race.
var ErrAlreadyFiredToday = fmt.Errorf("rule already marked fired for this date")

const ruleColumns = `id, target_channel, payload, created_by, created_by_name,
               start_date, pattern, repeat_interval, days_of_week, end_date,
               active, last_fired_at, created_at, updated_at`

// PostgresRuleRepository persists recurrence rules in the
// 'recurring_messages' table.
type PostgresRuleRepository struct {
	db *sql.DB
}

func NewPostgresRuleRepository(db *sql.DB) *PostgresRuleRepository {
	return &PostgresRuleRepository{db: db}
}

func (r *PostgresRuleRepository) Create(ctx context.Context, rule *schedule.Rule) error {
	query := `INSERT INTO recurring_messages
               (id, target_channel, payload, created_by, created_by_name,
                start_date, pattern, repeat_interval, days_of_week, end_date, active)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
               RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		rule.ID, rule.TargetChannel, rule.Payload, rule.CreatedBy, rule.CreatedByDisplayName,
		dateArg(rule.StartDate), rule.Pattern, rule.Interval,
		daysOfWeekArg(rule.DaysOfWeek), optionalDateArg(rule.EndDate), rule.Active,
	).Scan(&rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "recurring_messages_pkey") {
			return ErrDuplicateRule
		}
		return fmt.Errorf("error creating recurrence rule: %w", err)
	}
	return nil
}

func (r *PostgresRuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*schedule.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM recurring_messages WHERE id = $1`
	rule, err := scanRule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("error getting recurrence rule by ID: %w", err)
	}
	return rule, nil
}

func (r *PostgresRuleRepository) Update(ctx context.Context, rule *schedule.Rule) error {
	query := `UPDATE recurring_messages
               SET target_channel = $1, payload = $2, pattern = $3, repeat_interval = $4,
                   days_of_week = $5, end_date = $6, active = $7, updated_at = NOW()
               WHERE id = $8
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		rule.TargetChannel, rule.Payload, rule.Pattern, rule.Interval,
		daysOfWeekArg(rule.DaysOfWeek), optionalDateArg(rule.EndDate), rule.Active, rule.ID,
	).Scan(&rule.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrRuleNotFound
		}
		return fmt.Errorf("error updating recurrence rule: %w", err)
	}
	return nil
}

func (r *PostgresRuleRepository) ListAll(ctx context.Context) ([]*schedule.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM recurring_messages ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying all recurrence rules: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

func (r *PostgresRuleRepository) ListActiveInWindow(ctx context.Context, asOf schedule.Date) ([]*schedule.Rule, error) {
	query := `SELECT ` + ruleColumns + `
               FROM recurring_messages
               WHERE active = TRUE
                 AND start_date <= $1
                 AND (end_date IS NULL OR end_date >= $1)
               ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, dateArg(asOf))
	if err != nil {
		return nil, fmt.Errorf("error querying active rules in window: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

func (r *PostgresRuleRepository) MarkFired(ctx context.Context, id uuid.UUID, firedAt time.Time) error {
	// Conditional stamp: refuse to overwrite a stamp already on firedAt's
	// date, so two overlapping ticks cannot both record a firing.
	// last_fired_at is a zone-less timestamp holding wall time in the
	// engine's configured zone, so ::date is the right calendar day.
	query := `UPDATE recurring_messages
               SET last_fired_at = $1, updated_at = NOW()
               WHERE id = $2
                 AND (last_fired_at IS NULL OR last_fired_at::date < $1::date)`
	res, err := r.db.ExecContext(ctx, query, firedAt, id)
	if err != nil {
		return fmt.Errorf("error marking rule fired: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking mark-fired result: %w", err)
	}
	if affected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrAlreadyFiredToday
	}
	return nil
}

// --- scanning helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*schedule.Rule, error) {
	rule := schedule.Rule{}
	var startDate time.Time
	var endDate sql.NullTime
	var daysOfWeek pq.Int64Array
	err := row.Scan(
		&rule.ID, &rule.TargetChannel, &rule.Payload, &rule.CreatedBy, &rule.CreatedByDisplayName,
		&startDate, &rule.Pattern, &rule.Interval, &daysOfWeek, &endDate,
		&rule.Active, &rule.LastFiredAt, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rule.StartDate = schedule.DateOf(startDate)
	if endDate.Valid {
		d := schedule.DateOf(endDate.Time)
		rule.EndDate = &d
	}
	if len(daysOfWeek) > 0 {
		rule.DaysOfWeek = make([]int, len(daysOfWeek))
		for i, wd := range daysOfWeek {
			rule.DaysOfWeek[i] = int(wd)
		}
	}
	return &rule, nil
}

func scanRules(rows *sql.Rows) ([]*schedule.Rule, error) {
	rules := make([]*schedule.Rule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning rule row: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rule rows: %w", err)
	}
	return rules, nil
}

// dateArg renders a schedule.Date for a Postgres DATE column.
func dateArg(d schedule.Date) string {
	return d.String()
}

func optionalDateArg(d *schedule.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func daysOfWeekArg(days []int) pq.Int64Array {
	out := make(pq.Int64Array, len(days))
	for i, wd := range days {
		out[i] = int64(wd)
	}
	return out
}
