package domain

import (
	"strings"

	dErrors "coref/pkg/domain-errors"
)

// Mode controls whether unknown senders may self-register during topology
// reconciliation. It is passed explicitly into every reconciliation call so
// the engine never reads operating policy from ambient configuration.
type Mode string

const (
	// ModeOpen auto-registers unknown senders on their first update.
	ModeOpen Mode = "OPEN"
	// ModeClosed rejects updates from senders that were not pre-registered.
	ModeClosed Mode = "CLOSED"
)

// ParseMode resolves a mode from its configured spelling.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case ModeOpen:
		return ModeOpen, nil
	case ModeClosed:
		return ModeClosed, nil
	default:
		return "", dErrors.Newf(dErrors.CodeBadRequest, "unknown operating mode %q", s)
	}
}
