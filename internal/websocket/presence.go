package websocket

import (
	"sync"
	"time"

	"chat-relay/internal/models"
)

// TypingExpiredFunc is called, outside the tracker lock, when a typing
// indicator is cleared by the idle timeout.
type TypingExpiredFunc func(userID, peerID uint)

type presenceState struct {
	status models.PresenceStatus // online or typing
	peer   uint
	timer  *time.Timer
	seq    uint64
}

// PresenceTracker holds the presence state of every online user. Users
// absent from the map are offline.
type PresenceTracker struct {
	mu     sync.Mutex
	states map[uint]*presenceState
	seq    uint64

	idleTimeout time.Duration
	onExpired   TypingExpiredFunc
}

// NewPresenceTracker creates a tracker that clears typing indicators after
// idleTimeout without a refresh. A zero idleTimeout disables the timer.
func NewPresenceTracker(idleTimeout time.Duration, onExpired TypingExpiredFunc) *PresenceTracker {
	return &PresenceTracker{
		states:      make(map[uint]*presenceState),
		idleTimeout: idleTimeout,
		onExpired:   onExpired,
	}
}

// SetOnline marks userID online. It reports true only for a transition
// from offline.
func (t *PresenceTracker) SetOnline(userID uint) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.states[userID]; ok {
		return false
	}
	t.states[userID] = &presenceState{status: models.StatusOnline}
	return true
}

// SetOffline forgets userID. If the user was typing, the peer is returned
// so the caller can clear the indicator.
func (t *PresenceTracker) SetOffline(userID uint) (typingPeer uint, wasTyping bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[userID]
	if !ok {
		return 0, false
	}
	delete(t.states, userID)
	if st.timer != nil {
		st.timer.Stop()
	}
	if st.status == models.StatusTyping {
		return st.peer, true
	}
	return 0, false
}

// SetTyping records or clears a typing association. Starting to type to a
// new peer displaces the previous one, which is returned. Stopping for a
// peer other than the current one leaves the state alone. Offline users
// are ignored.
func (t *PresenceTracker) SetTyping(userID, peerID uint, isTyping bool) (displaced uint, wasDisplaced bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[userID]
	if !ok {
		return 0, false
	}

	if !isTyping {
		if st.status == models.StatusTyping && st.peer == peerID {
			t.clearTypingLocked(st)
		}
		return 0, false
	}

	if st.status == models.StatusTyping && st.peer != peerID {
		displaced, wasDisplaced = st.peer, true
	}
	st.status = models.StatusTyping
	st.peer = peerID
	t.armLocked(userID, st)
	return displaced, wasDisplaced
}

// Get returns a snapshot of userID's presence.
func (t *PresenceTracker) Get(userID uint) models.Presence {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[userID]
	if !ok {
		return models.Presence{UserID: userID, Status: models.StatusOffline}
	}
	p := models.Presence{UserID: userID, Status: st.status}
	if st.status == models.StatusTyping {
		peer := st.peer
		p.ConversationWith = &peer
	}
	return p
}

func (t *PresenceTracker) OnlineCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.states)
}

func (t *PresenceTracker) clearTypingLocked(st *presenceState) {
	st.status = models.StatusOnline
	st.peer = 0
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}
	t.seq++
	st.seq = t.seq
}

// armLocked (re)starts the idle timer. The sequence number lets a timer
// that fired concurrently with a refresh or reconnect recognise itself as
// stale.
func (t *PresenceTracker) armLocked(userID uint, st *presenceState) {
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}
	t.seq++
	st.seq = t.seq
	if t.idleTimeout <= 0 {
		return
	}
	seq := st.seq
	st.timer = time.AfterFunc(t.idleTimeout, func() { t.expire(userID, seq) })
}

func (t *PresenceTracker) expire(userID uint, seq uint64) {
	t.mu.Lock()
	st, ok := t.states[userID]
	if !ok || st.seq != seq || st.status != models.StatusTyping {
		t.mu.Unlock()
		return
	}
	peer := st.peer
	st.timer = nil
	t.clearTypingLocked(st)
	t.mu.Unlock()

	if t.onExpired != nil {
		t.onExpired(userID, peer)
	}
}
