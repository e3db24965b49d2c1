package search

import (
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to an
// in-memory document scan.
type Service struct {
	meili    *Meili
	fallback *Fallback
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, fallback *Fallback) *Service {
	return &Service{meili: meili, fallback: fallback}
}

// Search tries Meilisearch if healthy, otherwise scans the document.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to scan: %v", err)
	}

	results, total, err := s.fallback.Search(q)
	if err != nil {
		log.Printf("search: fallback error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// ReindexUser replaces a user's entries in the search index with the given
// records (fire-and-forget to Meilisearch). Stale entries for items that no
// longer exist are removed.
func (s *Service) ReindexUser(userID string, records []ItemRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		current := make(map[string]bool, len(records))
		for _, record := range records {
			current[record.ID] = true
		}

		if existing, err := s.meili.ListUserItemIDs(userID); err == nil {
			var stale []string
			for _, id := range existing {
				if !current[id] {
					stale = append(stale, id)
				}
			}
			if len(stale) > 0 {
				if err := s.meili.DeleteItems(stale); err != nil {
					log.Printf("search: drop stale items for %s: %v", userID, err)
				}
			}
		} else {
			log.Printf("search: list indexed items for %s: %v", userID, err)
		}

		if err := s.meili.IndexItems(records); err != nil {
			log.Printf("search: index items for %s: %v", userID, err)
		}
	}()
}

// RemoveUser drops all of a user's entries from the search index
// (fire-and-forget).
func (s *Service) RemoveUser(userID string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		ids, err := s.meili.ListUserItemIDs(userID)
		if err != nil {
			log.Printf("search: list indexed items for %s: %v", userID, err)
			return
		}
		if err := s.meili.DeleteItems(ids); err != nil {
			log.Printf("search: remove items for %s: %v", userID, err)
		}
	}()
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
