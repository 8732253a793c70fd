// Package bot is the conversation state machine: it walks customers through
// the fixed inquiry flows and defers to the human operator once a
// conversation is handed off.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/jeweledassist/backend/internal/app/approval"
	"github.com/jeweledassist/backend/internal/app/dedupe"
	"github.com/jeweledassist/backend/internal/app/handoff"
	"github.com/jeweledassist/backend/internal/app/rates"
	"github.com/jeweledassist/backend/internal/domain"
	"github.com/jeweledassist/backend/internal/metrics"
	"github.com/jeweledassist/backend/internal/observability"
)

// Engine processes one inbound delivery end to end: dedupe, session load,
// transition, persistence, outbound replies.
type Engine struct {
	sessions  domain.SessionStore
	customers domain.CustomerStore
	messages  domain.MessageStore
	settings  domain.SettingsStore
	sender    domain.Sender

	rates     *rates.Service
	approvals *approval.Service
	handoff   *handoff.Controller
	filter    *dedupe.Filter
	recorder  *metrics.Recorder

	locks *keyedLocks
	now   func() time.Time

	// handoffFailOpen keeps the bot replying when the gate cannot be
	// evaluated. Availability over handoff correctness.
	handoffFailOpen bool
}

// Deps bundles the engine's collaborators.
type Deps struct {
	Sessions  domain.SessionStore
	Customers domain.CustomerStore
	Messages  domain.MessageStore
	Settings  domain.SettingsStore
	Sender    domain.Sender
	Rates     *rates.Service
	Approvals *approval.Service
	Handoff   *handoff.Controller
	Filter    *dedupe.Filter
	Recorder  *metrics.Recorder

	HandoffFailOpen bool
}

func NewEngine(d Deps) *Engine {
	f := d.Filter
	if f == nil {
		f = dedupe.New(0)
	}
	return &Engine{
		sessions:        d.Sessions,
		customers:       d.Customers,
		messages:        d.Messages,
		settings:        d.Settings,
		sender:          d.Sender,
		rates:           d.Rates,
		approvals:       d.Approvals,
		handoff:         d.Handoff,
		filter:          f,
		recorder:        d.Recorder,
		locks:           newKeyedLocks(),
		now:             time.Now,
		handoffFailOpen: d.HandoffFailOpen,
	}
}

// WithClock replaces the clock, for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// HandleInbound processes one webhook delivery. It is safe to call from
// many goroutines; turns for the same customer are serialized.
func (e *Engine) HandleInbound(ctx context.Context, deliveryID, from, text string) {
	ctx = observability.WithDeliveryID(ctx, deliveryID)
	log := observability.LoggerFromContext(ctx).With("from", from)

	if deliveryID != "" && e.filter.CheckAndMark(deliveryID) {
		e.recorder.Delivery("duplicate")
		log.Info("duplicate delivery ignored")
		return
	}

	cfg := e.loadSettings(ctx)

	if isOwnerNumber(from, cfg.OwnerNumber) {
		e.handleOwnerCommand(ctx, from, text, cfg)
		return
	}

	unlock := e.locks.Lock(from)
	defer unlock()

	e.handleTurn(ctx, domain.CustomerID(from), text, cfg)
}

func (e *Engine) handleTurn(ctx context.Context, customer domain.CustomerID, text string, cfg *domain.StoreSettings) {
	now := e.now()
	log := observability.LoggerFromContext(ctx).With("customer", customer)
	input := Normalize(text)

	// Ledger and activity are written before anything else so the
	// dashboard reflects handed-off conversations too.
	e.appendLedger(ctx, string(customer), domain.PeerAdmin, text, now)

	rec, recErr := e.customers.GetCustomer(ctx, customer)
	if recErr != nil {
		log.Warn("customer read failed", "error", recErr)
	}
	if rec == nil {
		rec = domain.NewCustomerRecord(customer, now)
	}
	rec.LastQuery = text
	rec.LastContact = now
	rec.UpdatedAt = now
	if err := e.customers.UpsertCustomer(ctx, rec); err != nil {
		log.Warn("activity update failed", "error", err)
	}

	session, err := e.sessions.GetSession(ctx, customer)
	if err != nil {
		// Transient read failure: substitute a fresh session and keep
		// the flow alive.
		log.Warn("session read failed", "error", err)
		session = nil
	}
	if session == nil {
		session = domain.NewSession(customer, now)
	}
	if !domain.KnownStep(session.Step) {
		session.Step = domain.StepMenu
	}

	// Hard reset, checked ahead of the handoff gate.
	if input == "0" {
		session.ResetFlow()
		e.saveSession(ctx, session, now)
		e.send(ctx, string(customer), menuText, "")
		e.recorder.Delivery("processed")
		return
	}

	// Handoff gate: the operator owns this conversation, the bot stays
	// silent and the session is left untouched.
	if session.Mode == domain.ModeAgent || !e.botEnabledFor(rec, recErr) {
		e.recorder.Delivery("handed_off")
		log.Info("conversation handed off, no automated reply")
		return
	}

	if IsGreeting(input) {
		session.ResetFlow()
		e.saveSession(ctx, session, now)
		e.send(ctx, string(customer), menuText, cfg.WelcomeMediaURL)
		e.recorder.Delivery("processed")
		return
	}

	e.dispatch(ctx, session, rec, input, text, cfg, now)
	e.recorder.Delivery("processed")
}

// botEnabledFor evaluates the gate flag, failing open (or closed) per
// configuration when the record could not be read.
func (e *Engine) botEnabledFor(rec *domain.CustomerRecord, readErr error) bool {
	if readErr != nil {
		return e.handoffFailOpen
	}
	return rec.BotEnabled
}

// dispatch runs the per-state transition for one classified input.
func (e *Engine) dispatch(ctx context.Context, session *domain.Session, rec *domain.CustomerRecord, input, raw string, cfg *domain.StoreSettings, now time.Time) {
	customer := string(session.Customer)
	action := Classify(session.Step, input)

	switch session.Step {
	case domain.StepMenu:
		switch action.Kind {
		case ActMetal:
			session.BuyFlow = domain.BuyFlow{Metal: action.Metal}
			session.Step = domain.StepBuyItem
			e.saveSession(ctx, session, now)
			e.send(ctx, customer, itemPrompt, "")
		case ActChooseBuy:
			session.BuyFlow = domain.BuyFlow{}
			session.Step = domain.StepBuyMetal
			e.saveSession(ctx, session, now)
			e.send(ctx, customer, metalPrompt, "")
		case ActChooseExchange:
			session.BuyFlow = domain.BuyFlow{}
			session.Step = domain.StepExchangeMetal
			e.saveSession(ctx, session, now)
			e.send(ctx, customer, exchangeMetalPrompt, "")
		case ActRequestAgent:
			e.startHandoff(ctx, session, now)
		case ActAskLocation:
			rec.Intent = "store_location"
			rec.UpdatedAt = now
			e.upsertCustomer(ctx, rec)
			e.send(ctx, customer, locationReply(cfg), "")
		default:
			e.send(ctx, customer, menuReprompt, "")
		}

	case domain.StepBuyMetal:
		if action.Kind != ActMetal {
			e.send(ctx, customer, metalReprompt, "")
			return
		}
		session.BuyFlow.Metal = action.Metal
		session.Step = domain.StepBuyItem
		e.saveSession(ctx, session, now)
		e.send(ctx, customer, itemPrompt, "")

	case domain.StepBuyItem:
		// Always advances; unmatched input lands on Other.
		session.BuyFlow.ItemType = action.Item
		session.Step = domain.StepBuyGrams
		e.saveSession(ctx, session, now)
		snap := e.rates.GetRates(ctx)
		e.send(ctx, customer, gramsPrompt(session.BuyFlow.Metal, snap.RateFor(session.BuyFlow.Metal)), "")

	case domain.StepBuyGrams:
		if action.Kind != ActGrams {
			e.send(ctx, customer, gramsReprompt, "")
			return
		}
		session.BuyFlow.Grams = action.Grams
		session.Step = domain.StepBuyBudget
		e.saveSession(ctx, session, now)
		e.send(ctx, customer, budgetPrompt, "")

	case domain.StepBuyBudget:
		session.BuyFlow.Budget = raw
		e.finishEstimate(ctx, session, rec, cfg, now)

	case domain.StepExchangeMetal:
		if action.Kind != ActMetal {
			e.send(ctx, customer, metalReprompt, "")
			return
		}
		session.BuyFlow.Metal = action.Metal
		session.Step = domain.StepExchangeGrams
		e.saveSession(ctx, session, now)
		e.send(ctx, customer, exchangeGramsPrompt(action.Metal), "")

	case domain.StepExchangeGrams:
		// Trade-in values are never computed automatically.
		grams, _ := ParseGrams(input)
		rec.Intent = "exchange"
		rec.Metal = session.BuyFlow.Metal
		rec.Grams = grams
		rec.UpdatedAt = now
		e.upsertCustomer(ctx, rec)

		metal := session.BuyFlow.Metal
		session.Step = domain.StepMenu
		e.saveSession(ctx, session, now)
		e.send(ctx, customer, exchangeValuation(metal, cfg.StoreLocation), "")

	default:
		// welcome or anything unexpected
		session.Step = domain.StepMenu
		e.saveSession(ctx, session, now)
		e.send(ctx, customer, fallbackReply, "")
	}
}

// finishEstimate computes the quote, routes it through the approval
// threshold and returns the session to the menu.
func (e *Engine) finishEstimate(ctx context.Context, session *domain.Session, rec *domain.CustomerRecord, cfg *domain.StoreSettings, now time.Time) {
	customer := string(session.Customer)
	log := observability.LoggerFromContext(ctx).With("customer", customer)
	flow := session.BuyFlow

	snap := e.rates.GetRates(ctx)
	price := rates.Quote(snap.RateFor(flow.Metal), flow.Grams)

	threshold := cfg.ApprovalThreshold
	if threshold <= 0 {
		threshold = 20000
	}

	rec.Intent = "estimate"
	rec.Metal = flow.Metal
	rec.Grams = flow.Grams
	rec.Budget = flow.Budget
	rec.QuotedPrice = price
	rec.PriceSource = snap.Source
	rec.UpdatedAt = now
	e.upsertCustomer(ctx, rec)

	session.Step = domain.StepMenu
	e.saveSession(ctx, session, now)

	req := &domain.ApprovalRequest{
		Customer:      session.Customer,
		Type:          domain.TypeEstimate,
		Metal:         flow.Metal,
		Grams:         flow.Grams,
		Budget:        flow.Budget,
		EstimatedCost: price,
	}

	if price > threshold {
		if _, err := e.approvals.Create(ctx, req); err != nil {
			// A lost approval request is business-critical; better
			// silence than a promise nobody will follow up on.
			log.Error("approval request creation failed", "error", err)
			return
		}
		e.notifyOwner(ctx, cfg, fmt.Sprintf(
			"New Estimate Request (> %s):\n%gg %s %s\nApprox: %s\n\nApprove from the dashboard or reply 'approve %s <amount>'.",
			rates.FormatINR(threshold), flow.Grams, flow.Metal, flow.ItemType,
			rates.FormatINR(price), req.ID))
		e.send(ctx, customer, requestReceivedReply(flow, price), "")
		return
	}

	// At or under the threshold the quote goes straight out; the record is
	// still stored, pre-approved, so the dashboard sees every lead.
	req.Status = domain.StatusApproved
	req.FinalPrice = price
	if _, err := e.approvals.Create(ctx, req); err != nil {
		log.Warn("auto-approved record not stored", "error", err)
	}
	e.send(ctx, customer, estimateReply(flow, price), "")
}

// startHandoff flips the conversation to agent mode and files a support
// request so the owner sees it in the pending queue.
func (e *Engine) startHandoff(ctx context.Context, session *domain.Session, now time.Time) {
	customer := string(session.Customer)
	log := observability.LoggerFromContext(ctx).With("customer", customer)

	if err := e.handoff.SetMode(ctx, session.Customer, domain.ModeAgent, "customer asked for a sales expert"); err != nil {
		log.Error("handoff failed", "error", err)
		// The gate stays open; re-prompt so the customer is not stranded.
		e.send(ctx, customer, menuReprompt, "")
		return
	}
	session.Mode = domain.ModeAgent

	if _, err := e.approvals.Create(ctx, &domain.ApprovalRequest{
		Customer: session.Customer,
		Type:     domain.TypeSupportRequest,
	}); err != nil {
		log.Error("support request creation failed", "error", err)
	}

	e.send(ctx, customer, handoffReply, "")
}

// SendDirect delivers an operator-authored message straight to a customer,
// recording it in the ledger. The dashboard uses this for manual replies.
func (e *Engine) SendDirect(ctx context.Context, customer domain.CustomerID, text string) error {
	e.appendLedger(ctx, domain.PeerOwner, string(customer), text, e.now())
	if err := e.sender.Send(ctx, string(customer), text, ""); err != nil {
		e.recorder.SendFailure()
		return err
	}
	return nil
}

// NotifyApproved tells a customer their estimate request was approved at the
// given final price.
func (e *Engine) NotifyApproved(ctx context.Context, customer domain.CustomerID, finalPrice int64) {
	e.send(ctx, string(customer), approvedReply(finalPrice), "")
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

// send logs the outbound text to the ledger and pushes it over the channel.
// Send failures degrade to a log line; the turn's state is already saved.
func (e *Engine) send(ctx context.Context, to, text, mediaURL string) {
	e.appendLedger(ctx, domain.PeerBot, to, text, e.now())
	if err := e.sender.Send(ctx, to, text, mediaURL); err != nil {
		e.recorder.SendFailure()
		observability.LoggerFromContext(ctx).Error("outbound send failed", "to", to, "error", err)
	}
}

func (e *Engine) appendLedger(ctx context.Context, from, to, text string, at time.Time) {
	err := e.messages.AppendMessage(ctx, &domain.Message{
		From: from, To: to, Text: text, Timestamp: at,
	})
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("ledger append failed", "error", err)
	}
}

func (e *Engine) saveSession(ctx context.Context, session *domain.Session, now time.Time) {
	session.UpdatedAt = now
	if err := e.sessions.SaveSession(ctx, session); err != nil {
		observability.LoggerFromContext(ctx).Error("session save failed", "customer", session.Customer, "error", err)
	}
}

func (e *Engine) upsertCustomer(ctx context.Context, rec *domain.CustomerRecord) {
	if err := e.customers.UpsertCustomer(ctx, rec); err != nil {
		observability.LoggerFromContext(ctx).Warn("customer metadata update failed", "customer", rec.Customer, "error", err)
	}
}

// loadSettings substitutes compiled-in defaults when the store is
// unreachable so a storage hiccup never hangs a customer.
func (e *Engine) loadSettings(ctx context.Context) *domain.StoreSettings {
	cfg, err := e.settings.GetSettings(ctx)
	if err != nil || cfg == nil {
		if err != nil {
			observability.LoggerFromContext(ctx).Warn("settings read failed, using defaults", "error", err)
		}
		return &domain.StoreSettings{ApprovalThreshold: 20000}
	}
	return cfg
}

func (e *Engine) notifyOwner(ctx context.Context, cfg *domain.StoreSettings, text string) {
	if cfg.OwnerNumber == "" {
		return
	}
	if err := e.sender.Send(ctx, cfg.OwnerNumber, "🔔 *Owner Alert*\n\n"+text, ""); err != nil {
		e.recorder.SendFailure()
		observability.LoggerFromContext(ctx).Error("owner notification failed", "error", err)
	}
}
