package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeweledassist/backend/internal/adapters/provider"
	"github.com/jeweledassist/backend/internal/adapters/storage/memory"
	"github.com/jeweledassist/backend/internal/app/approval"
	"github.com/jeweledassist/backend/internal/app/handoff"
	"github.com/jeweledassist/backend/internal/app/rates"
	"github.com/jeweledassist/backend/internal/domain"
)

const (
	testCustomer = "whatsapp:+919000000001"
	testOwner    = "9876543210"
)

type fixture struct {
	engine    *Engine
	sender    *provider.Memory
	sessions  *memory.SessionStore
	customers *memory.CustomerStore
	approvals *memory.ApprovalStore
	messages  *memory.MessageStore
	settings  *memory.SettingsStore
	rates     *rates.Service
	handoff   *handoff.Controller
	deps      Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		sender:    provider.NewMemory(),
		sessions:  memory.NewSessionStore(),
		customers: memory.NewCustomerStore(),
		approvals: memory.NewApprovalStore(),
		messages:  memory.NewMessageStore(),
	}
	f.settings = memory.NewSettingsStore(&domain.StoreSettings{
		StoreLocation:     "123 Gold Street, Market City, Chennai",
		MapLink:           "https://maps.example/showroom",
		OwnerNumber:       testOwner,
		WelcomeMediaURL:   "https://cdn.example/welcome.jpg",
		ApprovalThreshold: 20000,
		UpdatedAt:         time.Now(),
	})

	f.rates = rates.NewService(rates.NewStatic(6000, 90, 3500), f.settings, nil)
	approvalSvc := approval.NewService(f.approvals, nil)
	notifier := handoff.NewOwnerNotifier(f.sender, f.settings)
	f.handoff = handoff.NewController(f.sessions, f.customers, notifier, nil)

	f.deps = Deps{
		Sessions:        f.sessions,
		Customers:       f.customers,
		Messages:        f.messages,
		Settings:        f.settings,
		Sender:          f.sender,
		Rates:           f.rates,
		Approvals:       approvalSvc,
		Handoff:         f.handoff,
		Recorder:        nil,
		HandoffFailOpen: true,
	}
	f.engine = NewEngine(f.deps)
	return f
}

// rebuild swaps engine collaborators, for fault-injection tests.
func (f *fixture) rebuild(mutate func(*Deps)) {
	mutate(&f.deps)
	f.engine = NewEngine(f.deps)
}

// say pushes one customer message through the engine without a delivery id,
// bypassing the duplicate filter.
func (f *fixture) say(text string) {
	f.engine.HandleInbound(context.Background(), "", testCustomer, text)
}

func (f *fixture) lastReply(t *testing.T) string {
	t.Helper()
	sent := f.sender.SentTo(testCustomer)
	require.NotEmpty(t, sent, "expected at least one reply")
	return sent[len(sent)-1].Text
}

func TestDuplicateDeliveryIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.HandleInbound(ctx, "dlv-1", testCustomer, "hi")
	f.engine.HandleInbound(ctx, "dlv-1", testCustomer, "hi")

	assert.Len(t, f.sender.SentTo(testCustomer), 1)
}

func TestGreetingShowsMenuWithMedia(t *testing.T) {
	f := newFixture(t)
	f.say("Hello")

	sent := f.sender.SentTo(testCustomer)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text, "Welcome to JeweledAssist")
	assert.Equal(t, "https://cdn.example/welcome.jpg", sent[0].MediaURL)
}

func TestZeroResetsWithoutMedia(t *testing.T) {
	f := newFixture(t)
	f.say("hi")
	f.say("1")
	f.say("0")

	last := f.sender.SentTo(testCustomer)
	reply := last[len(last)-1]
	assert.Contains(t, reply.Text, "Welcome to JeweledAssist")
	assert.Empty(t, reply.MediaURL)

	sess, err := f.sessions.GetSession(context.Background(), testCustomer)
	require.NoError(t, err)
	assert.Equal(t, domain.StepMenu, sess.Step)
	assert.Equal(t, domain.BuyFlow{}, sess.BuyFlow)
}

func TestAgentModeSilencesGreetings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.say("hi")
	require.NoError(t, f.handoff.SetMode(ctx, testCustomer, domain.ModeAgent, "test"))

	before := len(f.sender.SentTo(testCustomer))
	f.say("hello")
	f.say("1")
	assert.Len(t, f.sender.SentTo(testCustomer), before)

	// The ledger still records what the customer said.
	msgs, err := f.messages.HistoryFor(ctx, testCustomer, 50)
	require.NoError(t, err)
	var inbound []string
	for _, m := range msgs {
		if m.From == testCustomer {
			inbound = append(inbound, m.Text)
		}
	}
	assert.Contains(t, inbound, "hello")
}

func TestZeroResetOverridesHandoff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.say("hi")
	require.NoError(t, f.handoff.SetMode(ctx, testCustomer, domain.ModeAgent, "test"))

	f.say("0")
	assert.Contains(t, f.lastReply(t), "Welcome to JeweledAssist")
}

func TestBuyFlowHighValueRoutesToApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.say("hi")
	f.say("1")  // buy
	f.say("a")  // gold
	f.say("1")  // ring
	f.say("10") // grams
	f.say("around 70k")

	reply := f.lastReply(t)
	assert.Contains(t, reply, "Request Received")
	assert.Contains(t, reply, "₹69,000")

	pending, err := f.approvals.ListByStatus(ctx, domain.StatusPendingApproval, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, domain.TypeEstimate, pending[0].Type)
	assert.Equal(t, domain.MetalGold, pending[0].Metal)
	assert.Equal(t, int64(69000), pending[0].EstimatedCost)

	// Owner got the alert.
	ownerMsgs := f.sender.SentTo(testOwner)
	require.NotEmpty(t, ownerMsgs)
	assert.Contains(t, ownerMsgs[len(ownerMsgs)-1].Text, "Owner Alert")

	// Session is back on the menu for the next inquiry.
	sess, err := f.sessions.GetSession(ctx, testCustomer)
	require.NoError(t, err)
	assert.Equal(t, domain.StepMenu, sess.Step)
}

func TestBuyFlowUnderThresholdQuotesDirectly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.say("hi")
	f.say("gold") // menu shortcut straight to item
	f.say("2")    // chain
	f.say("1")    // grams
	f.say("no budget")

	reply := f.lastReply(t)
	assert.Contains(t, reply, "Estimate")
	assert.Contains(t, reply, "₹6,900")

	// Stored pre-approved so the dashboard still sees the lead.
	approved, err := f.approvals.ListByStatus(ctx, domain.StatusApproved, 10)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, int64(6900), approved[0].FinalPrice)

	rec, err := f.customers.GetCustomer(ctx, testCustomer)
	require.NoError(t, err)
	assert.Equal(t, "estimate", rec.Intent)
	assert.Equal(t, int64(6900), rec.QuotedPrice)
	assert.Equal(t, domain.RateLive, rec.PriceSource)
}

func TestInvalidGramsReprompts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.say("hi")
	f.say("1")
	f.say("a")
	f.say("ring")

	for _, bad := range []string{"a lot", "nan", "+inf", "-2"} {
		f.say(bad)
		assert.Contains(t, f.lastReply(t), "valid weight", bad)
		sess, err := f.sessions.GetSession(ctx, testCustomer)
		require.NoError(t, err)
		assert.Equal(t, domain.StepBuyGrams, sess.Step, bad)
	}

	f.say("10g")
	assert.Contains(t, f.lastReply(t), "budget")
}

func TestExchangeFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.say("hi")
	f.say("2")
	f.say("silver")
	f.say("25g")

	reply := f.lastReply(t)
	assert.Contains(t, reply, "Exchange Process")
	assert.Contains(t, reply, "confirmed in store only")
	assert.Contains(t, reply, "123 Gold Street")

	rec, err := f.customers.GetCustomer(ctx, testCustomer)
	require.NoError(t, err)
	assert.Equal(t, "exchange", rec.Intent)
	assert.Equal(t, domain.MetalSilver, rec.Metal)
	assert.Equal(t, float64(25), rec.Grams)

	sess, err := f.sessions.GetSession(ctx, testCustomer)
	require.NoError(t, err)
	assert.Equal(t, domain.StepMenu, sess.Step)
}

func TestSalesHandoff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.say("hi")
	f.say("3")

	assert.Contains(t, f.lastReply(t), "sales expert")

	sess, err := f.sessions.GetSession(ctx, testCustomer)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeAgent, sess.Mode)

	rec, err := f.customers.GetCustomer(ctx, testCustomer)
	require.NoError(t, err)
	assert.False(t, rec.BotEnabled)
	assert.True(t, rec.RequiresOwnerAction)
	require.NotNil(t, rec.HandoffAt)

	pending, err := f.approvals.ListByStatus(ctx, domain.StatusPendingApproval, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, domain.TypeSupportRequest, pending[0].Type)

	ownerMsgs := f.sender.SentTo(testOwner)
	require.NotEmpty(t, ownerMsgs)
	assert.Contains(t, ownerMsgs[0].Text, "needs you")
}

func TestLocationReply(t *testing.T) {
	f := newFixture(t)
	f.say("hi")
	f.say("4")

	reply := f.lastReply(t)
	assert.Contains(t, reply, "123 Gold Street")
	assert.Contains(t, reply, "https://maps.example/showroom")
}

// brokenReadCustomerStore fails every read; writes still land.
type brokenReadCustomerStore struct {
	*memory.CustomerStore
}

func (s *brokenReadCustomerStore) GetCustomer(ctx context.Context, id domain.CustomerID) (*domain.CustomerRecord, error) {
	return nil, errors.New("store unavailable")
}

// brokenReadSessionStore fails every read; writes still land.
type brokenReadSessionStore struct {
	*memory.SessionStore
}

func (s *brokenReadSessionStore) GetSession(ctx context.Context, id domain.CustomerID) (*domain.Session, error) {
	return nil, errors.New("store unavailable")
}

func TestCustomerReadFailureFailsOpen(t *testing.T) {
	f := newFixture(t)
	f.rebuild(func(d *Deps) {
		d.Customers = &brokenReadCustomerStore{f.customers}
	})

	f.say("hi")

	// The gate cannot be evaluated; availability wins and the bot replies.
	sent := f.sender.SentTo(testCustomer)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text, "Welcome to JeweledAssist")
}

func TestCustomerReadFailureFailsClosedWhenConfigured(t *testing.T) {
	f := newFixture(t)
	f.rebuild(func(d *Deps) {
		d.Customers = &brokenReadCustomerStore{f.customers}
		d.HandoffFailOpen = false
	})

	f.say("hi")

	assert.Empty(t, f.sender.SentTo(testCustomer))

	// The inbound text is still ledgered before the gate.
	msgs, err := f.messages.HistoryFor(context.Background(), testCustomer, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Text)
}

func TestSessionReadFailureSubstitutesFreshSession(t *testing.T) {
	f := newFixture(t)
	f.rebuild(func(d *Deps) {
		d.Sessions = &brokenReadSessionStore{f.sessions}
	})

	// The flow stays alive on a fresh session instead of going silent.
	f.say("hello")
	assert.Contains(t, f.lastReply(t), "Welcome to JeweledAssist")

	f.say("what?")
	assert.Contains(t, f.lastReply(t), "start over")
}

func TestConcurrentTurnsForOneCustomerAllLand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const turns = 16
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.engine.HandleInbound(ctx, "", testCustomer, "hi")
		}()
	}
	wg.Wait()

	// Every turn produced its reply and its ledger entry; none were lost
	// to an interleaved load-mutate-save.
	assert.Len(t, f.sender.SentTo(testCustomer), turns)

	msgs, err := f.messages.HistoryFor(ctx, testCustomer, 0)
	require.NoError(t, err)
	inbound := 0
	for _, m := range msgs {
		if m.From == testCustomer {
			inbound++
		}
	}
	assert.Equal(t, turns, inbound)
}

// ─────────────────────────────────────────────
// Owner commands
// ─────────────────────────────────────────────

func ownerSay(f *fixture, text string) {
	f.engine.HandleInbound(context.Background(), "", "whatsapp:+91"+testOwner, text)
}

func lastOwnerReply(t *testing.T, f *fixture) string {
	t.Helper()
	sent := f.sender.SentTo("whatsapp:+91" + testOwner)
	require.NotEmpty(t, sent)
	return sent[len(sent)-1].Text
}

func TestOwnerNeverTreatedAsCustomer(t *testing.T) {
	f := newFixture(t)
	ownerSay(f, "hi")

	assert.Contains(t, lastOwnerReply(t, f), "Owner Mode")
	sess, err := f.sessions.GetSession(context.Background(), domain.CustomerID("whatsapp:+91"+testOwner))
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestOwnerApproveCommand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.say("hi")
	f.say("1")
	f.say("a")
	f.say("1")
	f.say("10")
	f.say("70k")

	pending, err := f.approvals.ListByStatus(ctx, domain.StatusPendingApproval, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	id := pending[0].ID

	ownerSay(f, "approve "+string(id)+" 65000")

	assert.Contains(t, lastOwnerReply(t, f), "✅ Approved")
	reply := f.lastReply(t)
	assert.Contains(t, reply, "owner has approved")
	assert.Contains(t, reply, "₹65,000")

	stored, err := f.approvals.GetApproval(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, stored.Status)
	assert.Equal(t, int64(65000), stored.FinalPrice)
}

func TestOwnerApproveUnknownID(t *testing.T) {
	f := newFixture(t)
	ownerSay(f, "approve nope-123 5000")
	assert.Contains(t, lastOwnerReply(t, f), "not found")
}

func TestOwnerReplyCommand(t *testing.T) {
	f := newFixture(t)
	ownerSay(f, "reply "+testCustomer+" We have new bangles in stock")

	sent := f.sender.SentTo(testCustomer)
	require.Len(t, sent, 1)
	assert.Equal(t, "We have new bangles in stock", sent[0].Text)
	assert.Contains(t, lastOwnerReply(t, f), "📤 Sent to")
}

func TestOwnerSetThreshold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ownerSay(f, "set threshold 5000")
	assert.Contains(t, lastOwnerReply(t, f), "₹5,000")

	cfg, err := f.settings.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), cfg.ApprovalThreshold)

	// A quote over the new limit now routes to approval.
	f.say("hi")
	f.say("gold")
	f.say("ring")
	f.say("1")
	f.say("any")
	assert.Contains(t, f.lastReply(t), "Request Received")
}

func TestOwnerSetManualRate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ownerSay(f, "set gold 8000")
	assert.Contains(t, lastOwnerReply(t, f), "₹8,000")

	snap := f.rates.GetRates(ctx)
	assert.Equal(t, float64(8000), snap.GoldPerGram)
	assert.Equal(t, domain.RateManual, snap.Source)
}

func TestOwnerStatusAndHelp(t *testing.T) {
	f := newFixture(t)
	ownerSay(f, "status")
	assert.Contains(t, lastOwnerReply(t, f), "Pending approvals: 0")

	ownerSay(f, "help")
	assert.Contains(t, lastOwnerReply(t, f), "Owner Commands")
}
