package ledger

import "sync"

// Ledger is the per-message emoji count table for one room. Counts never go
// negative and entries that reach zero are removed.
type Ledger struct {
	mu     sync.Mutex
	counts map[string]map[string]int
}

func New() *Ledger {
	return &Ledger{counts: make(map[string]map[string]int)}
}

// Apply adjusts the count for (messageID, emoji) by delta, flooring at zero.
func (l *Ledger) Apply(messageID, emoji string, delta int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	byMsg := l.counts[messageID]
	if byMsg == nil {
		byMsg = make(map[string]int)
		l.counts[messageID] = byMsg
	}
	next := byMsg[emoji] + delta
	if next < 0 {
		next = 0
	}
	if next == 0 {
		delete(byMsg, emoji)
		if len(byMsg) == 0 {
			delete(l.counts, messageID)
		}
		return
	}
	byMsg[emoji] = next
}

func (l *Ledger) Count(messageID, emoji string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[messageID][emoji]
}

// Counts returns a copy of the emoji counts for one message.
func (l *Ledger) Counts(messageID string) map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]int, len(l.counts[messageID]))
	for emoji, n := range l.counts[messageID] {
		out[emoji] = n
	}
	return out
}

// Snapshot deep-copies the table for persistence.
func (l *Ledger) Snapshot() map[string]map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]map[string]int, len(l.counts))
	for id, byMsg := range l.counts {
		cp := make(map[string]int, len(byMsg))
		for emoji, n := range byMsg {
			cp[emoji] = n
		}
		out[id] = cp
	}
	return out
}

// Restore replaces the table with a persisted snapshot, dropping any
// non-positive entries.
func (l *Ledger) Restore(counts map[string]map[string]int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.counts = make(map[string]map[string]int, len(counts))
	for id, byMsg := range counts {
		cp := make(map[string]int, len(byMsg))
		for emoji, n := range byMsg {
			if n > 0 {
				cp[emoji] = n
			}
		}
		if len(cp) > 0 {
			l.counts[id] = cp
		}
	}
}
