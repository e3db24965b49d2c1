package organizer

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDefaultDocument(t *testing.T) {
	d := Default()
	if d.Todos == nil || d.ShoppingList == nil || d.Notes == nil || d.CustomLists == nil || d.Projects == nil {
		t.Fatal("default document must have empty, non-nil collections")
	}
	if d.TodoSortOrder != SortOrderDefault || d.ShoppingSortOrder != SortOrderDefault {
		t.Fatalf("unexpected sort orders: %s / %s", d.TodoSortOrder, d.ShoppingSortOrder)
	}
	if d.LastModified != nil {
		t.Fatal("fresh document has no lastModified")
	}
	if d.VoiceSettings == nil || d.VoiceSettings.Language != "en-US" || d.VoiceSettings.Rate != 1.0 {
		t.Fatalf("voice settings not defaulted: %+v", d.VoiceSettings)
	}
	if d.VoiceSettings.SummarySettings == nil || d.VoiceSettings.SummarySettings.Hour != 8 {
		t.Fatalf("summary settings not defaulted: %+v", d.VoiceSettings.SummarySettings)
	}
	if d.WidgetOrders == nil || len(d.WidgetOrders.Desktop) == 0 || len(d.WidgetOrders.Mobile) == 0 {
		t.Fatalf("widget orders not defaulted: %+v", d.WidgetOrders)
	}
}

func TestNormalizeMergesPartialPreferences(t *testing.T) {
	d := Normalize(AppData{
		VoiceSettings: &VoiceSettings{Enabled: true},
	})
	if !d.VoiceSettings.Enabled {
		t.Fatal("existing field must survive the merge")
	}
	if d.VoiceSettings.Language != "en-US" {
		t.Fatalf("missing field must pick up default, got %q", d.VoiceSettings.Language)
	}
	if d.VoiceSettings.SummarySettings == nil || d.VoiceSettings.SummarySettings.Hour != 8 {
		t.Fatal("nested summary settings must be defaulted")
	}
}

func TestNormalizeMigratesLegacyWidgetOrder(t *testing.T) {
	d := Normalize(AppData{LegacyWidgetOrder: []string{"notes", "todos"}})
	if d.LegacyWidgetOrder != nil {
		t.Fatal("legacy field must be cleared after migration")
	}
	if len(d.WidgetOrders.Desktop) != 2 || d.WidgetOrders.Desktop[0] != "notes" {
		t.Fatalf("desktop order not migrated: %v", d.WidgetOrders.Desktop)
	}
	if len(d.WidgetOrders.Mobile) != 2 || d.WidgetOrders.Mobile[1] != "todos" {
		t.Fatalf("mobile order not migrated: %v", d.WidgetOrders.Mobile)
	}
}

func TestNormalizeBackfillsNoteHistory(t *testing.T) {
	raw := []byte(`{"notes":[{"id":"n1","title":"old","content":"body"}]}`)
	d, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Notes[0].History == nil {
		t.Fatal("absent note history must normalize to empty slice")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(48 * time.Hour)
	d := Default()
	d.Todos = []TodoItem{{ID: "t1", Task: "Buy milk", Priority: PriorityMedium, DueDate: &due}}
	d.ShoppingList = []ShoppingItem{{ID: "s1", Item: "Eggs", Quantity: "12", Store: "Corner shop"}}
	d.Notes = []NoteItem{{ID: "n1", Title: "Plan", Content: "<p>hello</p>", History: []NoteRevision{}}}
	d.CustomLists = []CustomList{{ID: "c1", Title: "Books", Items: []GenericItem{{ID: "g1", Text: "Dune", Fields: map[string]string{"author": "Herbert"}}}}}
	d.Projects = []Project{{ID: "p1", Title: "Household", LinkedItemIDs: LinkedItemIDs{TodoIDs: []string{"t1"}, CustomListItemIDs: map[string]string{"g1": "c1"}}}}
	d.LastModified = &now

	raw, err := Encode(d)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	a, _ := json.Marshal(d)
	b, _ := json.Marshal(got)
	if string(a) != string(b) {
		t.Fatalf("round trip mismatch:\n%s\n%s", a, b)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("{not json")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestHasCustomListTitleIsCaseInsensitive(t *testing.T) {
	d := Default()
	d.CustomLists = []CustomList{{ID: "c1", Title: "Groceries", Items: []GenericItem{}}}
	if !HasCustomListTitle(d, "groceries") {
		t.Fatal("case-different duplicate must be detected")
	}
	if HasCustomListTitle(d, "Errands") {
		t.Fatal("unrelated title must not match")
	}
}
