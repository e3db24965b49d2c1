package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"organizer/api/internal/organizer"
)

// DocumentStore persists one organizer document per user as a jsonb row. It
// is the durable local side of the sync pair; the remote gateway holds the
// mirrored copy.
type DocumentStore struct {
	db *sql.DB
}

func NewDocumentStore(db *sql.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Load returns the user's document, defaulted and migrated. An absent row
// yields a fresh default document. A corrupt blob is logged and also falls
// back to the default: persistence corruption must never crash the app.
func (s *DocumentStore) Load(ctx context.Context, userID string) (organizer.AppData, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM organizer_documents WHERE user_id=$1`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return organizer.Default(), nil
	}
	if err != nil {
		return organizer.AppData{}, fmt.Errorf("load document: %w", err)
	}

	doc, err := organizer.Decode(raw)
	if err != nil {
		log.Printf("persist: corrupt document for %s, falling back to defaults: %v", userID, err)
		return organizer.Default(), nil
	}
	return doc, nil
}

// Save upserts the user's document.
func (s *DocumentStore) Save(ctx context.Context, userID string, d organizer.AppData) error {
	raw, err := organizer.Encode(d)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO organizer_documents (user_id, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`, userID, raw)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}
