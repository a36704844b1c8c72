package notify

import "github.com/gen2brain/beeep"

// DesktopSink sends alerts through the OS notification center.
type DesktopSink struct{}

func (DesktopSink) Send(title, message string, urgent bool) error {
	if urgent {
		return beeep.Alert(title, message, "")
	}
	return beeep.Notify(title, message, "")
}
