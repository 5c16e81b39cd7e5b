package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"xscraper/pkg/config"
)

// NotificationSender delivers a notification outside the terminal
type NotificationSender interface {
	Send(title, message string) error
}

// commandSender shows a desktop notification by running a platform tool
type commandSender struct {
	name string
	args func(title, message string) []string
}

func (c commandSender) Send(title, message string) error {
	return exec.Command(c.name, c.args(title, message)...).Run()
}

// balloonScript pops a tray balloon; it needs no WinRT app registration
const balloonScript = `Add-Type -AssemblyName System.Windows.Forms
$n = New-Object System.Windows.Forms.NotifyIcon
$n.Icon = [System.Drawing.SystemIcons]::Information
$n.Visible = $true
$n.ShowBalloonTip(5000, '%s', '%s', 'Info')
Start-Sleep -Seconds 5
$n.Dispose()`

// platformSender picks the desktop sender for the current OS. Terminal
// and none notifications have no sender.
func platformSender(kind string) NotificationSender {
	if !strings.EqualFold(kind, "desktop") {
		return nil
	}
	switch runtime.GOOS {
	case "linux":
		return commandSender{name: "notify-send", args: func(title, message string) []string {
			return []string{"--app-name=xscraper", title, message}
		}}
	case "darwin":
		return commandSender{name: "osascript", args: func(title, message string) []string {
			return []string{"-e", fmt.Sprintf("display notification %q with title %q", message, title)}
		}}
	case "windows":
		return commandSender{name: "powershell", args: func(title, message string) []string {
			quote := strings.NewReplacer("'", "''").Replace
			return []string{"-NoProfile", "-NonInteractive", "-Command", fmt.Sprintf(balloonScript, quote(title), quote(message))}
		}}
	}
	return nil
}

// Notifier reports finished sessions on the console and, when configured,
// as desktop notifications
type Notifier struct {
	cfg    config.NotificationConfig
	sender NotificationSender
}

// NewNotifier creates a Notifier for the current platform
func NewNotifier(cfg config.NotificationConfig) *Notifier {
	return NewNotifierWithSender(cfg, platformSender(cfg.NotificationType))
}

// NewNotifierWithSender creates a Notifier with an explicit sender
func NewNotifierWithSender(cfg config.NotificationConfig, sender NotificationSender) *Notifier {
	return &Notifier{cfg: cfg, sender: sender}
}

// SessionComplete announces a finished session
func (n *Notifier) SessionComplete(identity string, collected int, stopReason string) {
	if !n.enabled() || !n.cfg.OnComplete {
		return
	}
	msg := fmt.Sprintf("collected %d items from @%s", collected, identity)
	if stopReason != "" {
		msg += " (" + stopReason + ")"
	}
	n.SendSuccess("Collection complete", msg)
}

// SessionFailed announces a failed session
func (n *Notifier) SessionFailed(identity string, err error) {
	if !n.enabled() || !n.cfg.OnError {
		return
	}
	n.SendError("Collection failed", fmt.Sprintf("@%s: %v", identity, err))
}

// BatchFinished announces the end of a batch run
func (n *Notifier) BatchFinished(failed int, summary string) {
	if !n.enabled() {
		return
	}
	switch {
	case failed > 0 && n.cfg.OnError:
		n.SendError("Batch finished with failures", summary)
	case failed == 0 && n.cfg.OnComplete:
		n.SendSuccess("Batch finished", summary)
	}
}

// SendError prints and sends an error notification
func (n *Notifier) SendError(title, message string) {
	fmt.Fprintf(Output, "\n%s: %s\n", Red(title), Red(message))
	n.send(title, message)
}

// SendSuccess prints and sends a success notification
func (n *Notifier) SendSuccess(title, message string) {
	fmt.Fprintf(Output, "\n%s: %s\n", Green(title), Green(message))
	n.send(title, message)
}

func (n *Notifier) enabled() bool {
	return n.cfg.Enabled && !strings.EqualFold(n.cfg.NotificationType, "none")
}

func (n *Notifier) send(title, message string) {
	if n.sender == nil {
		return
	}
	// desktop notifications are best effort
	_ = n.sender.Send(title, message)
}
