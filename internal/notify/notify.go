// Package notify is the boundary for user-facing notification side effects.
// OS-level delivery lives behind [Notifier]; the default implementation
// writes structured log lines, which is what headless deployments want.
package notify

import "github.com/charmbracelet/log"

// Notifier receives terminal download and sync outcomes.
type Notifier interface {
	DownloadCompleted(title string)
	DownloadFailed(title, message string)
	SyncCompleted(sourceName string, newItems int)
}

// Settings gates notification delivery on the stored user preference.
type Settings interface {
	NotificationsEnabled() bool
}

// LogNotifier logs notifications through the application logger.
type LogNotifier struct {
	logger   *log.Logger
	settings Settings
}

// NewLogNotifier creates a LogNotifier. A nil settings always delivers.
func NewLogNotifier(logger *log.Logger, settings Settings) *LogNotifier {
	return &LogNotifier{logger: logger, settings: settings}
}

func (n *LogNotifier) enabled() bool {
	return n.settings == nil || n.settings.NotificationsEnabled()
}

func (n *LogNotifier) DownloadCompleted(title string) {
	if !n.enabled() {
		return
	}
	n.logger.Info("download completed", "title", title)
}

func (n *LogNotifier) DownloadFailed(title, message string) {
	if !n.enabled() {
		return
	}
	n.logger.Error("download failed", "title", title, "reason", message)
}

func (n *LogNotifier) SyncCompleted(sourceName string, newItems int) {
	if !n.enabled() {
		return
	}
	n.logger.Info("sync completed", "source", sourceName, "new_items", newItems)
}
