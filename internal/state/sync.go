package state

import (
	"context"
	"log"

	"organizer/api/internal/organizer"
)

// Reconcile runs the login-time reconciliation against the remote store:
// whole-document, timestamp-gated, last-writer-wins. It runs at most once
// per session; repeated credential events are no-ops unless ForceSync resets
// the guard. An absent local timestamp counts as epoch zero, so local always
// loses ties against any real remote timestamp... strictly, a pull happens
// only when remote is newer; equal or older remote means local pushes.
func (m *Manager) Reconcile(ctx context.Context) error {
	m.mu.Lock()
	if m.gateway == nil || m.syncStarted {
		m.mu.Unlock()
		return nil
	}
	m.syncStarted = true
	m.mu.Unlock()

	info, err := m.gateway.FindDocument(ctx, m.userID)
	if err != nil {
		log.Printf("state: find remote document for %s: %v", m.userID, err)
		m.mu.Lock()
		m.syncStarted = false
		m.mu.Unlock()
		return err
	}

	if info == nil {
		// No remote document yet: create one from the local document.
		m.markDirty()
		m.save(ctx)
		return nil
	}

	m.mu.Lock()
	m.remoteID = info.ID
	local := m.doc.LastModified
	m.mu.Unlock()

	remoteNewer := local == nil || info.ModifiedTime.After(*local)
	if !remoteNewer {
		// Local wins: push through the discovered id.
		m.markDirty()
		m.save(ctx)
		return nil
	}

	raw, err := m.gateway.ReadDocument(ctx, info.ID)
	if err != nil {
		log.Printf("state: read remote document for %s: %v", m.userID, err)
		return err
	}
	doc, err := organizer.Decode(raw)
	if err != nil {
		log.Printf("state: remote document for %s is unreadable: %v", m.userID, err)
		return err
	}

	m.mu.Lock()
	m.doc = doc
	m.dirty = false
	m.mu.Unlock()

	if err := m.local.Save(ctx, m.userID, doc); err != nil {
		log.Printf("state: persist pulled document for %s: %v", m.userID, err)
	}
	return nil
}

// ForceSync resets the once-per-session guard and re-runs reconciliation.
// Un-synced local edits may be overwritten when remote looks newer; that is
// the accepted cost of a manual refresh-from-cloud.
func (m *Manager) ForceSync(ctx context.Context) error {
	m.mu.Lock()
	m.syncStarted = false
	m.mu.Unlock()
	return m.Reconcile(ctx)
}
