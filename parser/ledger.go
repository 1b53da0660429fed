package parser

import "github.com/miwamasa/smolagentUIWrapper/models"

// ledger records the identity of every event emitted during one
// extraction run. Identities are scoped per event kind, so a code block
// and an image can share an identity string without colliding.
type ledger struct {
	seen map[string]struct{}
}

func newLedger() *ledger {
	return &ledger{seen: make(map[string]struct{})}
}

// mark records kind+identity and reports whether it was new.
func (l *ledger) mark(kind models.EventKind, identity string) bool {
	key := string(kind) + "\x00" + identity
	if _, ok := l.seen[key]; ok {
		return false
	}
	l.seen[key] = struct{}{}
	return true
}
