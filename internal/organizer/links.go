package organizer

// ItemType identifies which collection an item lives in.
type ItemType string

const (
	ItemTodo     ItemType = "todo"
	ItemShopping ItemType = "shopping"
	ItemNote     ItemType = "note"
	ItemCustom   ItemType = "custom"
)

// ItemRef addresses one item. ListID is set only for custom-list items.
type ItemRef struct {
	Type   ItemType
	ID     string
	ListID string
}

// LinkItemToProject stamps the item with projectID and records it in that
// project's reverse index, removing it from any other project first. An item
// belongs to at most one project at a time; the item's ProjectID and its
// presence in exactly one project's LinkedItemIDs always agree.
func LinkItemToProject(d AppData, ref ItemRef, projectID string) AppData {
	d = removeFromAllProjectIndexes(d, ref)
	d = setItemProjectID(d, ref, projectID)

	projects := make([]Project, len(d.Projects))
	for i, p := range d.Projects {
		if p.ID == projectID {
			p.LinkedItemIDs = addToIndex(p.LinkedItemIDs, ref)
		}
		projects[i] = p
	}
	d.Projects = projects
	return d
}

// UnlinkItemFromProject clears the item's project back-reference and removes
// it from every project index.
func UnlinkItemFromProject(d AppData, ref ItemRef) AppData {
	d = removeFromAllProjectIndexes(d, ref)
	return setItemProjectID(d, ref, "")
}

// ScrubItemFromProjects removes a deleted item's id from every project's
// reverse index. Callers remove the item from its collection themselves.
func ScrubItemFromProjects(d AppData, ref ItemRef) AppData {
	return removeFromAllProjectIndexes(d, ref)
}

func removeFromAllProjectIndexes(d AppData, ref ItemRef) AppData {
	projects := make([]Project, len(d.Projects))
	for i, p := range d.Projects {
		p.LinkedItemIDs = removeFromIndex(p.LinkedItemIDs, ref)
		projects[i] = p
	}
	d.Projects = projects
	return d
}

func addToIndex(idx LinkedItemIDs, ref ItemRef) LinkedItemIDs {
	switch ref.Type {
	case ItemTodo:
		idx.TodoIDs = appendUnique(idx.TodoIDs, ref.ID)
	case ItemShopping:
		idx.ShoppingIDs = appendUnique(idx.ShoppingIDs, ref.ID)
	case ItemNote:
		idx.NoteIDs = appendUnique(idx.NoteIDs, ref.ID)
	case ItemCustom:
		m := make(map[string]string, len(idx.CustomListItemIDs)+1)
		for k, v := range idx.CustomListItemIDs {
			m[k] = v
		}
		m[ref.ID] = ref.ListID
		idx.CustomListItemIDs = m
	}
	return idx
}

func removeFromIndex(idx LinkedItemIDs, ref ItemRef) LinkedItemIDs {
	switch ref.Type {
	case ItemTodo:
		idx.TodoIDs = removeString(idx.TodoIDs, ref.ID)
	case ItemShopping:
		idx.ShoppingIDs = removeString(idx.ShoppingIDs, ref.ID)
	case ItemNote:
		idx.NoteIDs = removeString(idx.NoteIDs, ref.ID)
	case ItemCustom:
		if _, ok := idx.CustomListItemIDs[ref.ID]; ok {
			m := make(map[string]string, len(idx.CustomListItemIDs))
			for k, v := range idx.CustomListItemIDs {
				if k != ref.ID {
					m[k] = v
				}
			}
			idx.CustomListItemIDs = m
		}
	}
	return idx
}

func setItemProjectID(d AppData, ref ItemRef, projectID string) AppData {
	switch ref.Type {
	case ItemTodo:
		todos := make([]TodoItem, len(d.Todos))
		for i, t := range d.Todos {
			if t.ID == ref.ID {
				t.ProjectID = projectID
			}
			todos[i] = t
		}
		d.Todos = todos
	case ItemShopping:
		items := make([]ShoppingItem, len(d.ShoppingList))
		for i, s := range d.ShoppingList {
			if s.ID == ref.ID {
				s.ProjectID = projectID
			}
			items[i] = s
		}
		d.ShoppingList = items
	case ItemNote:
		notes := make([]NoteItem, len(d.Notes))
		for i, n := range d.Notes {
			if n.ID == ref.ID {
				n.ProjectID = projectID
			}
			notes[i] = n
		}
		d.Notes = notes
	case ItemCustom:
		lists := make([]CustomList, len(d.CustomLists))
		for i, l := range d.CustomLists {
			if l.ID == ref.ListID {
				items := make([]GenericItem, len(l.Items))
				for j, g := range l.Items {
					if g.ID == ref.ID {
						g.ProjectID = projectID
					}
					items[j] = g
				}
				l.Items = items
			}
			lists[i] = l
		}
		d.CustomLists = lists
	}
	return d
}

// DeleteProject removes the project and clears the back-reference from every
// item it linked.
func DeleteProject(d AppData, projectID string) AppData {
	var target *Project
	for i := range d.Projects {
		if d.Projects[i].ID == projectID {
			target = &d.Projects[i]
			break
		}
	}
	if target == nil {
		return d
	}

	for _, id := range target.LinkedItemIDs.TodoIDs {
		d = setItemProjectID(d, ItemRef{Type: ItemTodo, ID: id}, "")
	}
	for _, id := range target.LinkedItemIDs.ShoppingIDs {
		d = setItemProjectID(d, ItemRef{Type: ItemShopping, ID: id}, "")
	}
	for _, id := range target.LinkedItemIDs.NoteIDs {
		d = setItemProjectID(d, ItemRef{Type: ItemNote, ID: id}, "")
	}
	for id, listID := range target.LinkedItemIDs.CustomListItemIDs {
		d = setItemProjectID(d, ItemRef{Type: ItemCustom, ID: id, ListID: listID}, "")
	}

	projects := make([]Project, 0, len(d.Projects)-1)
	for _, p := range d.Projects {
		if p.ID != projectID {
			projects = append(projects, p)
		}
	}
	d.Projects = projects
	return d
}

// ProjectLinking reports the project an item is linked to according to the
// reverse indexes, and whether exactly one project claims it.
func ProjectLinking(d AppData, ref ItemRef) (string, bool) {
	owner := ""
	count := 0
	for _, p := range d.Projects {
		if indexContains(p.LinkedItemIDs, ref) {
			owner = p.ID
			count++
		}
	}
	return owner, count <= 1
}

func indexContains(idx LinkedItemIDs, ref ItemRef) bool {
	switch ref.Type {
	case ItemTodo:
		return containsString(idx.TodoIDs, ref.ID)
	case ItemShopping:
		return containsString(idx.ShoppingIDs, ref.ID)
	case ItemNote:
		return containsString(idx.NoteIDs, ref.ID)
	case ItemCustom:
		_, ok := idx.CustomListItemIDs[ref.ID]
		return ok
	}
	return false
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids...)
	return append(out, id)
}

func removeString(ids []string, id string) []string {
	if !containsString(ids, id) {
		return ids
	}
	out := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

func containsString(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
