// Package handoff arbitrates between automated and human-operated mode for
// a customer's conversation.
package handoff

import (
	"context"
	"fmt"
	"time"

	"github.com/jeweledassist/backend/internal/domain"
	"github.com/jeweledassist/backend/internal/metrics"
	"github.com/jeweledassist/backend/internal/observability"
)

// Notifier pushes an out-of-band alert to the store owner. Usually backed by
// the same messaging channel the customers use.
type Notifier interface {
	NotifyOwner(ctx context.Context, text string)
}

// Controller owns mode flips. The state machine only ever reads mode; all
// writes come through here.
type Controller struct {
	sessions  domain.SessionStore
	customers domain.CustomerStore
	notifier  Notifier
	recorder  *metrics.Recorder
	now       func() time.Time
}

func NewController(sessions domain.SessionStore, customers domain.CustomerStore, notifier Notifier, recorder *metrics.Recorder) *Controller {
	return &Controller{
		sessions:  sessions,
		customers: customers,
		notifier:  notifier,
		recorder:  recorder,
		now:       time.Now,
	}
}

// WithClock replaces the clock, for tests.
func (c *Controller) WithClock(now func() time.Time) *Controller {
	c.now = now
	return c
}

// SetMode flips a customer between bot and agent mode and records the
// reason. Re-issuing the current mode is a no-op apart from the timestamp
// refresh.
func (c *Controller) SetMode(ctx context.Context, customer domain.CustomerID, mode domain.Mode, reason string) error {
	now := c.now()
	log := observability.LoggerFromContext(ctx).With("customer", customer, "mode", mode)

	session, err := c.sessions.GetSession(ctx, customer)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		session = domain.NewSession(customer, now)
		session.Step = domain.StepMenu
	}
	wasAgent := session.Mode == domain.ModeAgent
	session.Mode = mode
	session.UpdatedAt = now
	if err := c.sessions.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	rec, err := c.customers.GetCustomer(ctx, customer)
	if err != nil {
		return fmt.Errorf("load customer: %w", err)
	}
	if rec == nil {
		rec = domain.NewCustomerRecord(customer, now)
	}

	switch mode {
	case domain.ModeAgent:
		rec.BotEnabled = false
		rec.RequiresOwnerAction = true
		rec.HandoffAt = &now
		rec.HandoffReason = reason
	default:
		rec.BotEnabled = true
	}
	rec.UpdatedAt = now
	if err := c.customers.UpsertCustomer(ctx, rec); err != nil {
		return fmt.Errorf("save customer: %w", err)
	}

	if mode == domain.ModeAgent && !wasAgent {
		c.recorder.Handoff()
		log.Info("conversation handed off", "reason", reason)
		if c.notifier != nil {
			c.notifier.NotifyOwner(ctx, fmt.Sprintf("Customer %s needs you: %s\nReply from the dashboard to start chatting.", customer, reason))
		}
	}

	return nil
}
