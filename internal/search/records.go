package search

import (
	"strings"

	"organizer/api/internal/organizer"
)

// BuildRecords flattens a user's document into indexable item records.
func BuildRecords(userID string, d organizer.AppData) []ItemRecord {
	var records []ItemRecord

	for _, todo := range d.Todos {
		records = append(records, ItemRecord{
			ID:     todo.ID,
			UserID: userID,
			Kind:   KindTodo,
			Title:  todo.Task,
		})
	}
	for _, item := range d.ShoppingList {
		body := item.Store
		if item.Quantity != "" {
			body = strings.TrimSpace(item.Quantity + " " + body)
		}
		records = append(records, ItemRecord{
			ID:     item.ID,
			UserID: userID,
			Kind:   KindShopping,
			Title:  item.Item,
			Body:   body,
		})
	}
	for _, note := range d.Notes {
		records = append(records, ItemRecord{
			ID:     note.ID,
			UserID: userID,
			Kind:   KindNote,
			Title:  note.Title,
			Body:   stripTags(note.Content),
		})
	}
	for _, list := range d.CustomLists {
		for _, item := range list.Items {
			records = append(records, ItemRecord{
				ID:     item.ID,
				UserID: userID,
				Kind:   KindCustom,
				Title:  item.Text,
				ListID: list.ID,
			})
		}
	}
	for _, project := range d.Projects {
		records = append(records, ItemRecord{
			ID:     project.ID,
			UserID: userID,
			Kind:   KindProject,
			Title:  project.Title,
			Body:   stripTags(project.Description),
		})
	}

	return records
}

// stripTags removes HTML markup so note bodies index and snippet cleanly.
func stripTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			b.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
