package search

import (
	"context"
	"strings"

	"organizer/api/internal/fuzzy"
	"organizer/api/internal/organizer"
)

// DocProvider supplies the live document for a user. The fallback searcher
// scans it directly instead of keeping its own index.
type DocProvider func(ctx context.Context, userID string) (organizer.AppData, error)

// Fallback is a scan-based searcher used when Meilisearch is unavailable.
// Substring hits rank first, then near matches by edit distance.
type Fallback struct {
	docs DocProvider
}

func NewFallback(docs DocProvider) *Fallback {
	return &Fallback{docs: docs}
}

// Healthy always reports true; the fallback has no external dependency.
func (f *Fallback) Healthy() bool {
	return true
}

// Search scans the user's document for matching items.
func (f *Fallback) Search(q Query) ([]Result, int, error) {
	doc, err := f.docs(context.Background(), q.UserID)
	if err != nil {
		return nil, 0, err
	}

	text := strings.TrimSpace(q.Text)
	if text == "" {
		return []Result{}, 0, nil
	}
	needle := strings.ToLower(text)

	var exact, near []Result
	for _, record := range BuildRecords(q.UserID, doc) {
		if q.FilterKind != "" && record.Kind != q.FilterKind {
			continue
		}
		result := Result{
			Kind:    record.Kind,
			ID:      record.ID,
			Title:   record.Title,
			Snippet: snippetAround(record.Body, needle),
			ListID:  record.ListID,
		}
		haystack := strings.ToLower(record.Title + " " + record.Body)
		if strings.Contains(haystack, needle) {
			exact = append(exact, result)
			continue
		}
		if isNearMatch(record.Title, text) {
			near = append(near, result)
		}
	}

	results := append(exact, near...)
	total := len(results)

	if q.Offset >= total {
		return []Result{}, total, nil
	}
	results = results[q.Offset:]
	limit := q.Limit
	if limit == 0 {
		limit = 20
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, total, nil
}

func isNearMatch(title, query string) bool {
	match := fuzzy.FindBestMatch([]fuzzy.Candidate{{ID: "t", Text: title}}, query, fuzzy.DefaultThreshold)
	return match != nil
}

// snippetAround trims a long body to a window around the first hit.
func snippetAround(body, needle string) string {
	const window = 80
	if len(body) <= window {
		return body
	}
	idx := strings.Index(strings.ToLower(body), needle)
	if idx < 0 {
		return body[:window] + "…"
	}
	start := idx - window/4
	if start < 0 {
		start = 0
	}
	end := start + window
	if end > len(body) {
		end = len(body)
	}
	snippet := body[start:end]
	if start > 0 {
		snippet = "…" + snippet
	}
	if end < len(body) {
		snippet += "…"
	}
	return snippet
}
