package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modeshift-ai/modeshift/pkg/models"
	"github.com/modeshift-ai/modeshift/pkg/tracker"
)

// ErrBudgetExceeded is returned when a request exceeds the budget.
var ErrBudgetExceeded = errors.New("budget exceeded")

// Enforcer checks token usage against budget policies.
type Enforcer struct {
	policies []models.BudgetPolicy
	tracker  tracker.Tracker
}

// New creates an Enforcer with the given policies and tracker.
func New(policies []models.BudgetPolicy, t tracker.Tracker) *Enforcer {
	return &Enforcer{policies: policies, tracker: t}
}

// Check returns ErrBudgetExceeded if the purpose has exceeded any applicable
// policy. A nil Enforcer allows everything.
func (e *Enforcer) Check(ctx context.Context, purpose models.Purpose, model string) error {
	if e == nil {
		return nil
	}
	for _, p := range e.applicablePolicies(purpose, model) {
		used, err := e.used(ctx, purpose, p)
		if err != nil {
			return fmt.Errorf("budget check: %w", err)
		}
		if used >= p.MaxUnits {
			return ErrBudgetExceeded
		}
	}
	return nil
}

// Status returns the budget status for a purpose across all applicable policies.
func (e *Enforcer) Status(ctx context.Context, purpose models.Purpose) ([]models.BudgetStatus, error) {
	policies := e.policiesForPurpose(purpose)
	statuses := make([]models.BudgetStatus, 0, len(policies))

	for _, p := range policies {
		used, err := e.used(ctx, purpose, p)
		if err != nil {
			return nil, fmt.Errorf("budget status: %w", err)
		}
		remaining := p.MaxUnits - used
		if remaining < 0 {
			remaining = 0
		}
		statuses = append(statuses, models.BudgetStatus{
			Policy:    p,
			Used:      used,
			Remaining: remaining,
		})
	}
	return statuses, nil
}

func (e *Enforcer) used(ctx context.Context, purpose models.Purpose, p models.BudgetPolicy) (int64, error) {
	since := periodStart(p.Period)
	if p.Model != "" {
		return e.tracker.TotalByPurposeAndModel(ctx, string(purpose), p.Model, since)
	}
	return e.tracker.TotalByPurpose(ctx, string(purpose), since)
}

// policiesForPurpose returns all policies matching a purpose (ignoring model filter).
func (e *Enforcer) policiesForPurpose(purpose models.Purpose) []models.BudgetPolicy {
	var result []models.BudgetPolicy
	for _, p := range e.policies {
		if p.Purpose == "*" || p.Purpose == string(purpose) {
			result = append(result, p)
		}
	}
	return result
}

func (e *Enforcer) applicablePolicies(purpose models.Purpose, model string) []models.BudgetPolicy {
	var result []models.BudgetPolicy
	for _, p := range e.policies {
		if p.Purpose == "*" || p.Purpose == string(purpose) {
			if p.Model == "" || p.Model == model {
				result = append(result, p)
			}
		}
	}
	return result
}

func periodStart(period models.BudgetPeriod) time.Time {
	now := time.Now().UTC()
	switch period {
	case models.BudgetMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	default: // daily
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
}
