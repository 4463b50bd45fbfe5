package session

import (
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/finance-assistant/internal/resolve"
)

// state is the per-user conversational position. It is a short-lived
// aid, never persisted: process restarts drop back to stateIdle.
type state int

const (
	stateIdle state = iota
	stateAwaitingClarification // ambiguous match, waiting for a pick
	stateAwaitingConfirmation  // bulk delete, waiting for yes/no
)

// pending is the suspended interaction for one user.
type pending struct {
	state     state
	matches   []resolve.Match
	expiresAt time.Time
}

func (p *pending) expired(now time.Time) bool {
	return p == nil || now.After(p.expiresAt)
}

// parseSelection interprets a clarification reply as a 1-based pick
// from a list of n candidates.
func parseSelection(text string, n int) (int, bool) {
	i, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || i < 1 || i > n {
		return 0, false
	}
	return i, true
}

// isAffirmative recognizes a bulk-delete confirmation.
func isAffirmative(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes", "y", "confirm", "ok", "确认", "是", "删除":
		return true
	}
	return false
}
