package client

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"

	"plantcare-billing/internal/domain/garden"
)

// OverdueGardens fetches the signed-in user's per-garden overdue summary.
func (c *Client) OverdueGardens(ctx context.Context) ([]garden.GardenOverdue, error) {
	var out []garden.GardenOverdue
	if err := c.do(ctx, http.MethodGet, "/notifications/overdue", true, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type OverdueSource interface {
	OverdueGardens(ctx context.Context) ([]garden.GardenOverdue, error)
}

// Presenter shows the overdue summary to the user.
type Presenter func(summary []garden.GardenOverdue)

// OverdueNotifier checks for overdue tasks once per session.
type OverdueNotifier struct {
	source  OverdueSource
	present Presenter
	log     logrus.FieldLogger

	mu            sync.Mutex
	checked       bool
	notifications []garden.GardenOverdue
}

func NewOverdueNotifier(source OverdueSource, present Presenter, log logrus.FieldLogger) *OverdueNotifier {
	return &OverdueNotifier{source: source, present: present, log: log.WithField("source", "overdue-notifier")}
}

// Check fetches and presents the summary unless it already ran since the
// last Reset. A signed-out caller does not consume the check. Failures are
// logged and leave the notifications empty.
func (n *OverdueNotifier) Check(ctx context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.checked {
		return
	}

	summary, err := n.source.OverdueGardens(ctx)
	if errors.Is(err, ErrNotSignedIn) {
		return
	}
	n.checked = true
	if err != nil {
		n.log.WithError(err).Warn("overdue task check failed")
		n.notifications = nil
		return
	}

	n.notifications = summary
	if len(summary) > 0 && n.present != nil {
		n.present(summary)
	}
}

// Reset re-arms Check, typically on sign-out or a new session.
func (n *OverdueNotifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.checked = false
	n.notifications = nil
}

// Notifications returns the summary from the last successful check.
func (n *OverdueNotifier) Notifications() []garden.GardenOverdue {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]garden.GardenOverdue, len(n.notifications))
	copy(out, n.notifications)
	return out
}
