package utils

import (
	"fmt"
	"time"
)

// MessageType is a custom type used as a placeholder for various message types.
type MessageType int

// The message types used accross the CLI application.
const (
	DefaultMessage MessageType = iota
	SuccessMessage
	ErrorMessage
	StatusMessage
)

// Colors used accross the CLI application.
const (
	DefaultColor = "\x1b[0m"
	StatusColor  = "\x1b[36m"
	SuccessColor = "\x1b[32m"
	ErrorColor   = "\x1b[31m"
)

// AppTag prefixes every status line printed by the CLI.
const AppTag = "⚡ FACEDEFORM"

// DecorateText shows the message types in different colors.
func DecorateText(s string, msgType MessageType) string {
	switch msgType {
	case DefaultMessage:
		s = DefaultColor + s
	case StatusMessage:
		s = StatusColor + s
	case SuccessMessage:
		s = SuccessColor + s
	case ErrorMessage:
		s = ErrorColor + s
	default:
		return s
	}
	return s + DefaultColor
}

// StatusLine renders the application tag followed by a colored message.
func StatusLine(msg string, msgType MessageType) string {
	return fmt.Sprintf("%s %s %s",
		DecorateText(AppTag, StatusMessage),
		DecorateText("⇢", DefaultMessage),
		DecorateText(msg, msgType),
	)
}

// FormatTime formats time.Duration output to a human readable value.
func FormatTime(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	secs := d.Seconds() - float64(int64(d.Minutes())*60)
	if d < time.Hour {
		return fmt.Sprintf("%dm %.2fs", int64(d.Minutes()), secs)
	}
	mins := int64(d.Minutes()) % 60
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm %.2fs", int64(d.Hours()), mins, secs)
	}
	return fmt.Sprintf("%dd %dh %dm %.2fs", int64(d.Hours()/24), int64(d.Hours())%24, mins, secs)
}
