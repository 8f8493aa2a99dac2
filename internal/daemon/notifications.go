package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/emty-pyie/Jane/internal/config"
	"github.com/emty-pyie/Jane/internal/core"
	"github.com/emty-pyie/Jane/internal/system"
)

// DesktopNotifier shows one desktop notification.
type DesktopNotifier interface {
	Notify(ctx context.Context, title, message string) error
}

// DesktopNotifierFunc adapts a function to DesktopNotifier.
type DesktopNotifierFunc func(ctx context.Context, title, message string) error

func (f DesktopNotifierFunc) Notify(ctx context.Context, title, message string) error {
	return f(ctx, title, message)
}

// SystemNotifier returns a notifier backed by the platform notification tool.
func SystemNotifier(l system.Launcher, p system.Platform) DesktopNotifier {
	return DesktopNotifierFunc(func(ctx context.Context, title, message string) error {
		return system.SendDesktopNotification(ctx, l, p, title, message)
	})
}

const notifyTimeout = 5 * time.Second

// NotificationManager raises a desktop notification when a high-risk command
// starts waiting for approval. It implements core.Listener; sends happen on
// their own goroutine so the controller never waits on the desktop.
type NotificationManager struct {
	cfg      config.NotificationsConfig
	logger   *log.Logger
	notifier DesktopNotifier

	wg sync.WaitGroup
}

// NewNotificationManager creates a manager. A nil notifier disables sends.
func NewNotificationManager(cfg config.NotificationsConfig, logger *log.Logger, notifier DesktopNotifier) *NotificationManager {
	if logger == nil {
		logger = log.Default()
	}
	return &NotificationManager{
		cfg:      cfg,
		logger:   logger.WithPrefix("notify"),
		notifier: notifier,
	}
}

func (m *NotificationManager) OnApprovalRequired(cmd core.Command) {
	if !m.cfg.DesktopEnabled || m.notifier == nil {
		return
	}
	title := "JANE: approval required"
	message := "High-risk command queued: " + cmd.Raw

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := m.notifier.Notify(ctx, title, message); err != nil {
			m.logger.Debug("desktop notification failed", "error", err)
		}
	}()
}

func (m *NotificationManager) OnResult(core.Command, core.ActionResult) {}

func (m *NotificationManager) OnDenied(core.Command) {}

// Wait blocks until in-flight notifications finish.
func (m *NotificationManager) Wait() {
	m.wg.Wait()
}
