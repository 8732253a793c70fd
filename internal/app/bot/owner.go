package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jeweledassist/backend/internal/app/rates"
	"github.com/jeweledassist/backend/internal/domain"
	"github.com/jeweledassist/backend/internal/observability"
)

const ownerHelp = "👨‍💻 *Owner Commands*\n\n" +
	"- *reply <customer> <message>*: Message a customer directly\n" +
	"- *approve <id> <amount>*: Approve a pending estimate\n" +
	"- *set threshold <value>*: Set the approval limit\n" +
	"- *set gold|silver|platinum <value>*: Set a manual rate\n" +
	"- *status*: View pending counts"

const ownerHint = "🤖 Owner Mode. Type *help* for commands."

// normalizePhone strips everything but digits and keeps the last ten, so
// "whatsapp:+91 98765-43210" and "919876543210" compare equal.
func normalizePhone(p string) string {
	var b strings.Builder
	for _, r := range p {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	return digits
}

func isOwnerNumber(from, owner string) bool {
	if owner == "" {
		return false
	}
	return normalizePhone(from) == normalizePhone(owner)
}

// handleOwnerCommand interprets a message from the owner's own number.
// Owner traffic never touches any customer's session.
func (e *Engine) handleOwnerCommand(ctx context.Context, from, text string, cfg *domain.StoreSettings) {
	log := observability.LoggerFromContext(ctx).With("owner", from)
	input := Normalize(text)

	switch {
	case strings.HasPrefix(input, "reply "):
		e.ownerReply(ctx, from, text)

	case strings.HasPrefix(input, "approve "):
		e.ownerApprove(ctx, from, input)

	case input == "status":
		pending := e.approvals.CountPending(ctx)
		snap := e.rates.GetRates(ctx)
		e.send(ctx, from, fmt.Sprintf("📊 *System Status*\nPending approvals: %d\nGold rate: %s/g (%s)",
			pending, rates.FormatINR(int64(snap.GoldPerGram)), snap.Source), "")

	case input == "help":
		e.send(ctx, from, ownerHelp, "")

	case strings.HasPrefix(input, "set threshold "):
		e.ownerSetThreshold(ctx, from, input, cfg)

	case strings.HasPrefix(input, "set gold ") ||
		strings.HasPrefix(input, "set silver ") ||
		strings.HasPrefix(input, "set platinum "):
		e.ownerSetRate(ctx, from, input, cfg)

	default:
		log.Info("unrecognized owner input")
		e.send(ctx, from, ownerHint, "")
	}
}

// ownerReply handles "reply <customer> <text>": the message goes straight to
// the customer, bypassing the state machine.
func (e *Engine) ownerReply(ctx context.Context, from, raw string) {
	parts := strings.Fields(raw)
	if len(parts) < 3 {
		e.send(ctx, from, "❌ Usage: reply <customer> <message>", "")
		return
	}
	target := parts[1]
	msg := strings.TrimSpace(raw[strings.Index(raw, target)+len(target):])

	e.appendLedger(ctx, domain.PeerOwner, target, msg, e.now())
	if err := e.sender.Send(ctx, target, msg, ""); err != nil {
		e.recorder.SendFailure()
		e.send(ctx, from, fmt.Sprintf("❌ Could not reach %s", target), "")
		return
	}
	e.send(ctx, from, fmt.Sprintf("📤 Sent to %s: %q", target, msg), "")
}

func (e *Engine) ownerApprove(ctx context.Context, from, input string) {
	parts := strings.Fields(input)
	if len(parts) != 3 {
		e.send(ctx, from, "❌ Usage: approve <id> <amount>", "")
		return
	}
	id := domain.RequestID(parts[1])
	price, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || price <= 0 {
		e.send(ctx, from, "❌ Invalid amount. Usage: approve <id> <amount>", "")
		return
	}

	req := e.approvals.Get(ctx, id)
	if req == nil {
		e.send(ctx, from, "❌ Request ID not found or expired.", "")
		return
	}
	if !e.approvals.Approve(ctx, id, price) {
		e.send(ctx, from, "❌ Approval failed, try again.", "")
		return
	}

	e.send(ctx, string(req.Customer), approvedReply(price), "")
	e.send(ctx, from, fmt.Sprintf("✅ Approved request for %s at %s", req.Customer, rates.FormatINR(price)), "")
}

func (e *Engine) ownerSetThreshold(ctx context.Context, from, input string, cfg *domain.StoreSettings) {
	parts := strings.Fields(input)
	val, err := strconv.ParseInt(parts[len(parts)-1], 10, 64)
	if err != nil || val <= 0 {
		e.send(ctx, from, "❌ Invalid value. Usage: set threshold 20000", "")
		return
	}
	cfg.ApprovalThreshold = val
	if err := e.settings.UpdateSettings(ctx, cfg); err != nil {
		e.send(ctx, from, "❌ Could not save settings.", "")
		return
	}
	e.send(ctx, from, fmt.Sprintf("✅ Approval Threshold set to %s", rates.FormatINR(val)), "")
}

func (e *Engine) ownerSetRate(ctx context.Context, from, input string, cfg *domain.StoreSettings) {
	parts := strings.Fields(input) // ["set", metal, value]
	if len(parts) != 3 {
		e.send(ctx, from, "❌ Usage: set gold 7800", "")
		return
	}
	val, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || val <= 0 {
		e.send(ctx, from, fmt.Sprintf("❌ Invalid value. Usage: set %s 7800", parts[1]), "")
		return
	}

	var label string
	switch parts[1] {
	case "silver":
		cfg.ManualRates.Silver = val
		label = "Silver"
	case "platinum":
		cfg.ManualRates.Platinum = val
		label = "Platinum"
	default:
		cfg.ManualRates.Gold = val
		label = "Gold"
	}

	if err := e.settings.UpdateSettings(ctx, cfg); err != nil {
		e.send(ctx, from, "❌ Could not save settings.", "")
		return
	}
	e.rates.Invalidate()
	e.send(ctx, from, fmt.Sprintf("✅ Manual %s Rate set to %s/g", label, rates.FormatINR(int64(val))), "")
}
