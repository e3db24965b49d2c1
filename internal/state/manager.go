// Package state implements the organizer's local-first state manager: every
// mutation funnels through one apply/record/persist pipeline that snapshots
// undo history, applies a pure transform, marks the document dirty and
// arranges a debounced or immediate save to the local store and the remote
// gateway. One Manager exists per signed-in user session.
package state

import (
	"context"
	"log"
	"sync"
	"time"

	"organizer/api/internal/organizer"
	"organizer/api/internal/remote"
)

const (
	// DefaultDebounce coalesces bursts of rapid edits into one remote
	// write.
	DefaultDebounce = 10 * time.Second
	// DefaultHistoryLimit bounds the undo stack; oldest entries are
	// evicted silently.
	DefaultHistoryLimit = 30
)

// LocalStore is the durable local persistence the manager writes through to.
type LocalStore interface {
	Load(ctx context.Context, userID string) (organizer.AppData, error)
	Save(ctx context.Context, userID string, d organizer.AppData) error
}

// Config carries the manager's collaborators. Gateway may be nil, in which
// case the manager operates purely on the local store and never attempts a
// remote write.
type Config struct {
	UserID       string
	Local        LocalStore
	Gateway      remote.Gateway
	Debounce     time.Duration
	HistoryLimit int
	Now          func() time.Time
	// OnRemoteSaved fires after each successful remote write with the
	// document as written. Used for snapshot archiving and search
	// indexing; failures there must not affect the save pipeline.
	OnRemoteSaved func(organizer.AppData)
}

// HistoryEntry is one undo point: the document as it was before the action
// described by Message ran.
type HistoryEntry struct {
	ID       int64
	Message  string
	Snapshot organizer.AppData
}

// HistoryItem is the outward-facing view of a history entry.
type HistoryItem struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// ActionResult reports a completed mutation. Not-found and no-op paths
// return a nil result rather than an error.
type ActionResult struct {
	Message string `json:"message"`
}

type Manager struct {
	userID        string
	local         LocalStore
	gateway       remote.Gateway
	debounce      time.Duration
	historyLimit  int
	now           func() time.Time
	onRemoteSaved func(organizer.AppData)

	mu            sync.Mutex
	doc           organizer.AppData
	history       []HistoryEntry
	lastHistoryID int64
	dirty         bool
	timer         *time.Timer
	saving        bool
	savePending   bool
	remoteID      string
	syncStarted   bool

	selection  selectionState
	pendingDup *DuplicateConfirmation
}

// New loads the user's document from the local store and returns a manager
// holding it. Local-store corruption surfaces as a defaulted document, not
// an error; only infrastructure failures propagate.
func New(ctx context.Context, cfg Config) (*Manager, error) {
	doc, err := cfg.Local.Load(ctx, cfg.UserID)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		userID:        cfg.UserID,
		local:         cfg.Local,
		gateway:       cfg.Gateway,
		debounce:      cfg.Debounce,
		historyLimit:  cfg.HistoryLimit,
		now:           cfg.Now,
		onRemoteSaved: cfg.OnRemoteSaved,
		doc:           doc,
	}
	if m.debounce <= 0 {
		m.debounce = DefaultDebounce
	}
	if m.historyLimit <= 0 {
		m.historyLimit = DefaultHistoryLimit
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

// Document returns the current document value.
func (m *Manager) Document() organizer.AppData {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc
}

// History lists undo points, oldest first.
func (m *Manager) History() []HistoryItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]HistoryItem, len(m.history))
	for i, e := range m.history {
		items[i] = HistoryItem{ID: e.ID, Message: e.Message}
	}
	return items
}

// PerformAction records an undo snapshot, applies the transform and arranges
// a debounced save. The transform must be pure: it receives the pre-mutation
// document and returns a wholly new one.
func (m *Manager) PerformAction(message string, transform func(organizer.AppData) organizer.AppData) ActionResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, _ := m.performLocked(message, func(d organizer.AppData) (organizer.AppData, error) {
		return transform(d), nil
	})
	return *res
}

// PerformActionChecked is PerformAction for transforms that can refuse; on
// error nothing is recorded and no save is scheduled.
func (m *Manager) PerformActionChecked(message string, transform func(organizer.AppData) (organizer.AppData, error)) (*ActionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.performLocked(message, transform)
}

func (m *Manager) performLocked(message string, transform func(organizer.AppData) (organizer.AppData, error)) (*ActionResult, error) {
	next, err := transform(m.doc)
	if err != nil {
		return nil, err
	}

	m.history = append(m.history, HistoryEntry{
		ID:       m.nextHistoryID(),
		Message:  message,
		Snapshot: m.doc,
	})
	if len(m.history) > m.historyLimit {
		m.history = m.history[len(m.history)-m.historyLimit:]
	}

	m.doc = next
	m.dirty = true
	m.scheduleSaveLocked()
	return &ActionResult{Message: message}, nil
}

// nextHistoryID returns a millisecond timestamp, nudged forward when two
// actions land in the same millisecond.
func (m *Manager) nextHistoryID() int64 {
	id := m.now().UnixMilli()
	if id <= m.lastHistoryID {
		id = m.lastHistoryID + 1
	}
	m.lastHistoryID = id
	return id
}

// UndoLastAction pops the most recent undo point and restores its snapshot.
// Returns nil when the history is empty.
func (m *Manager) UndoLastAction() *ActionResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.history) == 0 {
		return nil
	}
	last := m.history[len(m.history)-1]
	m.history = m.history[:len(m.history)-1]
	m.doc = last.Snapshot
	m.dirty = true
	m.scheduleSaveLocked()
	return &ActionResult{Message: "Undid: " + last.Message}
}

// RevertToState restores the snapshot recorded for historyID and discards
// that entry and everything after it. This is destructive truncation, not a
// redo-capable jump: reverting forfeits the ability to undo back toward the
// present.
func (m *Manager) RevertToState(historyID int64) *ActionResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := -1
	for i, e := range m.history {
		if e.ID == historyID {
			idx = i
			break
		}
	}
	if idx == -1 {
		log.Printf("state: revert target %d not found for %s", historyID, m.userID)
		return nil
	}
	entry := m.history[idx]
	m.history = m.history[:idx]
	m.doc = entry.Snapshot
	m.dirty = true
	m.scheduleSaveLocked()
	return &ActionResult{Message: "Reverted before: " + entry.Message}
}

// ReplaceDocument swaps in an imported document wholesale, stamping a fresh
// LastModified so the import wins the next reconciliation. The caller
// force-flushes afterwards.
func (m *Manager) ReplaceDocument(message string, doc organizer.AppData) ActionResult {
	stamp := m.now().UTC()
	return m.PerformAction(message, func(organizer.AppData) organizer.AppData {
		next := organizer.Normalize(doc)
		next.LastModified = &stamp
		return next
	})
}

// scheduleSaveLocked resets the debounce window. Only the most recent call
// within the window fires an actual save attempt, and only if the document
// is still dirty at fire time.
func (m *Manager) scheduleSaveLocked() {
	if m.timer == nil {
		m.timer = time.AfterFunc(m.debounce, m.debouncedSave)
		return
	}
	m.timer.Reset(m.debounce)
}

func (m *Manager) debouncedSave() {
	m.mu.Lock()
	dirty := m.dirty
	m.mu.Unlock()
	if !dirty {
		return
	}
	m.save(context.Background())
}

// Flush cancels any pending debounce and saves immediately if dirty. Called
// on logout, shutdown and explicit force-sync so edits are not lost to an
// unfired debounce window.
func (m *Manager) Flush(ctx context.Context) {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
	}
	dirty := m.dirty
	m.mu.Unlock()
	if dirty {
		m.save(ctx)
	}
}

// save serializes remote writes: at most one attempt runs at a time, with at
// most one queued follow-up; intermediate requests collapse into it.
func (m *Manager) save(ctx context.Context) {
	m.mu.Lock()
	if m.saving {
		m.savePending = true
		m.mu.Unlock()
		return
	}
	m.saving = true
	m.mu.Unlock()

	for {
		m.attemptSave(ctx)

		m.mu.Lock()
		if !m.savePending {
			m.saving = false
			m.mu.Unlock()
			return
		}
		m.savePending = false
		m.mu.Unlock()
	}
}

func (m *Manager) attemptSave(ctx context.Context) {
	m.mu.Lock()
	m.dirty = false
	doc := m.doc
	id := m.remoteID
	m.mu.Unlock()

	if err := m.local.Save(ctx, m.userID, doc); err != nil {
		log.Printf("state: local save failed for %s: %v", m.userID, err)
	}

	if m.gateway == nil {
		return
	}

	stamp := m.now().UTC()
	stamped := doc
	stamped.LastModified = &stamp
	payload, err := organizer.Encode(stamped)
	if err != nil {
		log.Printf("state: encode document for %s: %v", m.userID, err)
		return
	}

	if id == "" {
		created, err := m.gateway.CreateDocument(ctx, m.userID, payload)
		if err != nil {
			log.Printf("state: remote create failed for %s: %v", m.userID, err)
			m.markDirty()
			return
		}
		id = created
	} else if err := m.gateway.WriteDocument(ctx, id, payload); err != nil {
		// Left for the next debounce or flush cycle; no backoff.
		log.Printf("state: remote write failed for %s: %v", m.userID, err)
		m.markDirty()
		return
	}

	m.mu.Lock()
	m.remoteID = id
	m.doc.LastModified = &stamp
	m.mu.Unlock()

	if err := m.local.Save(ctx, m.userID, stamped); err != nil {
		log.Printf("state: local save after remote write failed for %s: %v", m.userID, err)
	}
	if m.onRemoteSaved != nil {
		m.onRemoteSaved(stamped)
	}
}

func (m *Manager) markDirty() {
	m.mu.Lock()
	m.dirty = true
	m.mu.Unlock()
}

// Dirty reports whether the in-memory document has diverged from the last
// successfully persisted remote copy.
func (m *Manager) Dirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirty
}
