package handoff

import (
	"context"

	"github.com/jeweledassist/backend/internal/domain"
	"github.com/jeweledassist/backend/internal/observability"
)

// OwnerNotifier delivers owner alerts over the same messaging channel the
// customers use. A missing owner number or a send failure only costs the
// alert, never the turn.
type OwnerNotifier struct {
	sender   domain.Sender
	settings domain.SettingsStore
}

func NewOwnerNotifier(sender domain.Sender, settings domain.SettingsStore) *OwnerNotifier {
	return &OwnerNotifier{sender: sender, settings: settings}
}

func (n *OwnerNotifier) NotifyOwner(ctx context.Context, text string) {
	cfg, err := n.settings.GetSettings(ctx)
	if err != nil || cfg == nil || cfg.OwnerNumber == "" {
		return
	}
	if err := n.sender.Send(ctx, cfg.OwnerNumber, "🔔 *Owner Alert*\n\n"+text, ""); err != nil {
		observability.LoggerFromContext(ctx).Error("owner notification failed", "error", err)
	}
}
