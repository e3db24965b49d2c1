package organizer

import "testing"

func linkFixture() AppData {
	d := Default()
	d.Todos = []TodoItem{{ID: "t1", Task: "Buy paint"}, {ID: "t2", Task: "Call plumber"}}
	d.Notes = []NoteItem{{ID: "n1", Title: "Ideas", History: []NoteRevision{}}}
	d.CustomLists = []CustomList{{ID: "c1", Title: "Materials", Items: []GenericItem{{ID: "g1", Text: "Brushes"}}}}
	d.Projects = []Project{
		{ID: "p1", Title: "Renovation"},
		{ID: "p2", Title: "Maintenance"},
	}
	return d
}

func assertReciprocity(t *testing.T, d AppData, ref ItemRef, wantProject string) {
	t.Helper()
	owner, unique := ProjectLinking(d, ref)
	if !unique {
		t.Fatalf("item %s indexed by more than one project", ref.ID)
	}
	if owner != wantProject {
		t.Fatalf("index owner = %q, want %q", owner, wantProject)
	}

	var stamped string
	switch ref.Type {
	case ItemTodo:
		item, _ := FindTodo(d, ref.ID)
		stamped = item.ProjectID
	case ItemNote:
		item, _ := FindNote(d, ref.ID)
		stamped = item.ProjectID
	case ItemCustom:
		list, _ := FindCustomList(d, ref.ListID)
		for _, g := range list.Items {
			if g.ID == ref.ID {
				stamped = g.ProjectID
			}
		}
	}
	if stamped != wantProject {
		t.Fatalf("item projectId = %q, want %q", stamped, wantProject)
	}
}

func TestLinkItemToProject(t *testing.T) {
	d := linkFixture()
	ref := ItemRef{Type: ItemTodo, ID: "t1"}

	d = LinkItemToProject(d, ref, "p1")
	assertReciprocity(t, d, ref, "p1")

	// Relinking to another project moves the index entry, never duplicates it.
	d = LinkItemToProject(d, ref, "p2")
	assertReciprocity(t, d, ref, "p2")
	p1, _ := FindProject(d, "p1")
	if len(p1.LinkedItemIDs.TodoIDs) != 0 {
		t.Fatalf("old project still indexes the item: %v", p1.LinkedItemIDs.TodoIDs)
	}
}

func TestLinkCustomItemUsesListMap(t *testing.T) {
	d := linkFixture()
	ref := ItemRef{Type: ItemCustom, ID: "g1", ListID: "c1"}
	d = LinkItemToProject(d, ref, "p1")
	p1, _ := FindProject(d, "p1")
	if p1.LinkedItemIDs.CustomListItemIDs["g1"] != "c1" {
		t.Fatalf("custom item map = %v", p1.LinkedItemIDs.CustomListItemIDs)
	}
	assertReciprocity(t, d, ref, "p1")
}

func TestUnlinkItemFromProject(t *testing.T) {
	d := linkFixture()
	ref := ItemRef{Type: ItemNote, ID: "n1"}
	d = LinkItemToProject(d, ref, "p1")
	d = UnlinkItemFromProject(d, ref)
	assertReciprocity(t, d, ref, "")
}

func TestDeleteScrubsProjectIndexes(t *testing.T) {
	d := linkFixture()
	d = LinkItemToProject(d, ItemRef{Type: ItemTodo, ID: "t1"}, "p1")
	d = DeleteTodo(d, "t1")
	if _, ok := FindTodo(d, "t1"); ok {
		t.Fatal("todo not deleted")
	}
	p1, _ := FindProject(d, "p1")
	if len(p1.LinkedItemIDs.TodoIDs) != 0 {
		t.Fatalf("deleted todo still indexed: %v", p1.LinkedItemIDs.TodoIDs)
	}
}

func TestDeleteCustomListScrubsItems(t *testing.T) {
	d := linkFixture()
	d = LinkItemToProject(d, ItemRef{Type: ItemCustom, ID: "g1", ListID: "c1"}, "p2")
	d = DeleteCustomList(d, "c1")
	p2, _ := FindProject(d, "p2")
	if len(p2.LinkedItemIDs.CustomListItemIDs) != 0 {
		t.Fatalf("deleted list's items still indexed: %v", p2.LinkedItemIDs.CustomListItemIDs)
	}
}

func TestDeleteProjectClearsBackReferences(t *testing.T) {
	d := linkFixture()
	d = LinkItemToProject(d, ItemRef{Type: ItemTodo, ID: "t1"}, "p1")
	d = LinkItemToProject(d, ItemRef{Type: ItemCustom, ID: "g1", ListID: "c1"}, "p1")
	d = DeleteProject(d, "p1")

	if _, ok := FindProject(d, "p1"); ok {
		t.Fatal("project not deleted")
	}
	todo, _ := FindTodo(d, "t1")
	if todo.ProjectID != "" {
		t.Fatalf("todo still references deleted project: %q", todo.ProjectID)
	}
	list, _ := FindCustomList(d, "c1")
	if list.Items[0].ProjectID != "" {
		t.Fatalf("custom item still references deleted project: %q", list.Items[0].ProjectID)
	}
}

func TestInsertTodoPrependsAndLinks(t *testing.T) {
	d := linkFixture()
	d = InsertTodo(d, TodoItem{ID: "t3", Task: "Order tiles", ProjectID: "p1"})
	if d.Todos[0].ID != "t3" {
		t.Fatalf("new todo must be prepended, head is %s", d.Todos[0].ID)
	}
	assertReciprocity(t, d, ItemRef{Type: ItemTodo, ID: "t3"}, "p1")
}

func TestTransformsDoNotMutateInput(t *testing.T) {
	d := linkFixture()
	before := len(d.Todos)
	_ = InsertTodo(d, TodoItem{ID: "tx", Task: "X"})
	if len(d.Todos) != before {
		t.Fatal("input document was mutated")
	}
	_ = DeleteTodo(d, "t1")
	if len(d.Todos) != before {
		t.Fatal("delete mutated input document")
	}
}
