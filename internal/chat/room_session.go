package chat

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"chat-client/internal/api"
	"chat-client/internal/ledger"
	"chat-client/internal/models"
	"chat-client/internal/realtime"
	"chat-client/internal/store"
	"chat-client/pkg/logger"
)

type State int

const (
	// StateIdle: no room selected.
	StateIdle State = iota
	// StateLoading: history fetched or fetching; channel not open, sends
	// fall back to REST.
	StateLoading
	// StateStreaming: channel open, events merging live.
	StateStreaming
)

// typingIdle is how long after the last keystroke the typing flag clears.
const typingIdle = 1500 * time.Millisecond

// RoomSession owns the per-room client state: the ordered deduplicated
// timeline, the typing set and the reaction ledger. At most one streaming
// channel is open at a time; selecting a new room tears the old one down
// first. In-flight fetches are tagged with an epoch so results arriving after
// a room switch are discarded.
type RoomSession struct {
	api   *api.Client
	store *store.Store
	user  *models.User

	mu       sync.Mutex
	state    State
	room     *models.Room
	epoch    uint64
	channel  *realtime.Channel
	timeline []models.Message
	seen     map[string]struct{}
	typing   map[string]struct{}
	ledger   *ledger.Ledger

	typingTimer *time.Timer

	// OnEvent, when set, observes every inbound event after it has been
	// applied. Called off the lock.
	OnEvent func(models.Event)
}

func NewRoomSession(client *api.Client, st *store.Store, user *models.User) *RoomSession {
	return &RoomSession{
		api:    client,
		store:  st,
		user:   user,
		seen:   make(map[string]struct{}),
		typing: make(map[string]struct{}),
		ledger: ledger.New(),
	}
}

// Open selects a room: tears down any previous channel, fetches the timeline,
// then opens the streaming channel. A failed channel open is not fatal; the
// session stays in StateLoading and sends fall back to REST.
func (rs *RoomSession) Open(ctx context.Context, room *models.Room) error {
	rs.Close()

	rs.mu.Lock()
	rs.epoch++
	epoch := rs.epoch
	rs.state = StateLoading
	rs.room = room
	rs.timeline = nil
	rs.seen = make(map[string]struct{})
	rs.typing = make(map[string]struct{})
	rs.ledger = ledger.New()
	if counts, ok, err := rs.store.LoadLedger(room.ID); err != nil {
		logger.Debug("failed to load ledger for room %s: %v", room.ID, err)
	} else if ok {
		rs.ledger.Restore(counts)
	}
	rs.mu.Unlock()

	messages, err := rs.api.ListMessages(ctx, room.ID)
	if err != nil {
		rs.mu.Lock()
		if rs.epoch == epoch {
			rs.state = StateIdle
			rs.room = nil
		}
		rs.mu.Unlock()
		return fmt.Errorf("failed to load messages: %w", err)
	}

	rs.mu.Lock()
	if rs.epoch != epoch {
		// Stale fetch; another room was selected meanwhile.
		rs.mu.Unlock()
		return nil
	}
	rs.timeline = append(rs.timeline, messages...)
	for _, m := range messages {
		rs.seen[m.ID] = struct{}{}
	}
	rs.mu.Unlock()

	if len(messages) > 0 {
		ids := make([]string, len(messages))
		for i, m := range messages {
			ids[i] = m.ID
		}
		if err := rs.api.MarkDelivered(ctx, ids); err != nil {
			logger.Debug("delivered receipt failed: %v", err)
		}
	}

	wsURL, err := rs.api.WebsocketURL(room.ID, rs.user.ID)
	if err != nil {
		return err
	}
	ch, err := realtime.Dial(ctx, wsURL)
	if err != nil {
		logger.Warn("channel open failed, staying on REST: %v", err)
		return nil
	}

	rs.mu.Lock()
	if rs.epoch != epoch {
		rs.mu.Unlock()
		ch.Close()
		return nil
	}
	rs.channel = ch
	rs.state = StateStreaming
	rs.mu.Unlock()

	go rs.consume(ch, epoch)
	return nil
}

// Close tears the session down: the channel is closed on every exit path and
// the typing set is cleared.
func (rs *RoomSession) Close() {
	rs.mu.Lock()
	ch := rs.channel
	rs.channel = nil
	rs.epoch++
	rs.state = StateIdle
	rs.room = nil
	rs.typing = make(map[string]struct{})
	if rs.typingTimer != nil {
		rs.typingTimer.Stop()
		rs.typingTimer = nil
	}
	rs.mu.Unlock()

	if ch != nil {
		ch.Close()
	}
}

func (rs *RoomSession) consume(ch *realtime.Channel, epoch uint64) {
	for ev := range ch.Events() {
		rs.handleEvent(ev, epoch)
	}

	// Channel gone: back to REST fallback if this room is still selected.
	rs.mu.Lock()
	if rs.epoch == epoch {
		rs.channel = nil
		rs.state = StateLoading
		rs.typing = make(map[string]struct{})
	}
	rs.mu.Unlock()
}

func (rs *RoomSession) handleEvent(ev models.Event, epoch uint64) {
	rs.mu.Lock()
	if rs.epoch != epoch {
		rs.mu.Unlock()
		return
	}

	switch ev.Type {
	case models.EventTypeMessage:
		if _, dup := rs.seen[ev.ID]; dup {
			break
		}
		rs.seen[ev.ID] = struct{}{}
		rs.timeline = append(rs.timeline, models.Message{
			ID:        ev.ID,
			UserID:    ev.UserID,
			Content:   ev.Content,
			CreatedAt: parseTimestamp(ev.CreatedAt),
		})

	case models.EventTypeTyping:
		if ev.State {
			rs.typing[ev.UserID] = struct{}{}
		} else {
			delete(rs.typing, ev.UserID)
		}

	case models.EventTypeReaction:
		delta := 1
		if ev.Action == models.ReactionRemove {
			delta = -1
		}
		rs.ledger.Apply(ev.MessageID, ev.Emoji, delta)
		rs.persistLedgerLocked()

	case models.EventTypePresence:
		// reserved
	}

	observer := rs.OnEvent
	rs.mu.Unlock()

	if observer != nil {
		observer(ev)
	}
}

// persistLedgerLocked writes the current ledger snapshot; callers hold mu.
func (rs *RoomSession) persistLedgerLocked() {
	if rs.room == nil {
		return
	}
	if err := rs.store.SaveLedger(rs.room.ID, rs.ledger.Snapshot()); err != nil {
		logger.Debug("failed to persist ledger for room %s: %v", rs.room.ID, err)
	}
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Now().UTC()
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Now().UTC()
	}
	return t
}

// Send submits a chat message: over the channel when open, otherwise via REST
// with an optimistic append using the server-confirmed id and timestamp.
func (rs *RoomSession) Send(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	rs.mu.Lock()
	room := rs.room
	ch := rs.channel
	epoch := rs.epoch
	rs.mu.Unlock()
	if room == nil {
		return fmt.Errorf("no room selected")
	}

	if ch != nil && !ch.Closed() {
		if err := ch.SendMessage(content); err == nil {
			return nil
		}
		// channel went away mid-send; fall back to REST
	}

	msg, err := rs.api.PostMessage(ctx, room.ID, content, nil, nil)
	if err != nil {
		return err
	}

	rs.mu.Lock()
	if rs.epoch == epoch {
		if _, dup := rs.seen[msg.ID]; !dup {
			rs.seen[msg.ID] = struct{}{}
			rs.timeline = append(rs.timeline, models.Message{
				ID:        msg.ID,
				UserID:    rs.user.ID,
				Content:   content,
				CreatedAt: msg.CreatedAt,
			})
		}
	}
	rs.mu.Unlock()

	if err := rs.api.MarkRead(ctx, []string{msg.ID}); err != nil {
		logger.Debug("read receipt failed: %v", err)
	}
	return nil
}

// SetTyping signals the typing flag and arms the idle timer that clears it
// after 1.5s of no further input. Call it on every keystroke.
func (rs *RoomSession) SetTyping() {
	rs.mu.Lock()
	ch := rs.channel
	if rs.typingTimer != nil {
		rs.typingTimer.Stop()
	}
	rs.typingTimer = time.AfterFunc(typingIdle, func() {
		rs.mu.Lock()
		current := rs.channel
		rs.mu.Unlock()
		if current != nil {
			_ = current.SendTyping(false)
		}
	})
	rs.mu.Unlock()

	if ch != nil {
		_ = ch.SendTyping(true)
	}
}

// ToggleReaction applies an optimistic add/remove and rolls it back once if
// the network effect fails. No retry; the returned error is informational.
func (rs *RoomSession) ToggleReaction(ctx context.Context, messageID, emoji, action string) error {
	rs.mu.Lock()
	room := rs.room
	ch := rs.channel
	led := rs.ledger
	rs.mu.Unlock()
	if room == nil {
		return fmt.Errorf("no room selected")
	}

	var cmd *ledger.Command
	if action == models.ReactionRemove {
		cmd = ledger.RemoveCommand(led, messageID, emoji)
	} else {
		cmd = ledger.AddCommand(led, messageID, emoji)
	}

	err := cmd.Run(func() error {
		if ch != nil && !ch.Closed() {
			return ch.SendReaction(messageID, emoji, action)
		}
		if action == models.ReactionRemove {
			return rs.api.RemoveReaction(ctx, messageID, emoji)
		}
		return rs.api.AddReaction(ctx, messageID, emoji)
	})

	rs.mu.Lock()
	rs.persistLedgerLocked()
	rs.mu.Unlock()
	return err
}

// Search queries the backend and merges in a local substring filter over the
// timeline, so results cover messages that only exist locally.
func (rs *RoomSession) Search(ctx context.Context, query string) ([]models.Message, error) {
	rs.mu.Lock()
	room := rs.room
	rs.mu.Unlock()
	if room == nil {
		return nil, fmt.Errorf("no room selected")
	}

	remote, err := rs.api.SearchMessages(ctx, room.ID, query)
	if err != nil {
		return nil, err
	}

	found := make(map[string]struct{}, len(remote))
	for _, m := range remote {
		found[m.ID] = struct{}{}
	}
	for _, m := range rs.Filter(query) {
		if _, ok := found[m.ID]; !ok {
			remote = append(remote, m)
		}
	}
	sort.SliceStable(remote, func(i, j int) bool {
		return remote[i].CreatedAt.Before(remote[j].CreatedAt)
	})
	return remote, nil
}

// Filter is the local case-insensitive substring filter over the timeline.
func (rs *RoomSession) Filter(query string) []models.Message {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if query == "" {
		return append([]models.Message(nil), rs.timeline...)
	}
	needle := strings.ToLower(query)
	var out []models.Message
	for _, m := range rs.timeline {
		if strings.Contains(strings.ToLower(m.Content), needle) {
			out = append(out, m)
		}
	}
	return out
}

func (rs *RoomSession) State() State {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.state
}

func (rs *RoomSession) Room() *models.Room {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.room
}

// Timeline returns a copy of the ordered message list.
func (rs *RoomSession) Timeline() []models.Message {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]models.Message(nil), rs.timeline...)
}

// TypingUsers returns the ids currently typing, sorted for stable output.
func (rs *RoomSession) TypingUsers() []string {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	out := make([]string, 0, len(rs.typing))
	for id := range rs.typing {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Reactions returns the emoji counts for one message.
func (rs *RoomSession) Reactions(messageID string) map[string]int {
	rs.mu.Lock()
	led := rs.ledger
	rs.mu.Unlock()
	return led.Counts(messageID)
}
