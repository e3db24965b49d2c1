// Package organizer defines the AppData document: the single root state
// value holding every list, project and preference for one user. All
// mutations are expressed as pure transforms that take a document value and
// return a new one; collections are replaced wholesale, never mutated in
// place, which is what makes history snapshots cheap shallow references.
package organizer

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

const (
	SortOrderDefault      = "default"
	SortOrderPriority     = "priority"
	SortOrderDueDate      = "dueDate"
	SortOrderAlphabetical = "alphabetical"
	SortOrderStore        = "store"
)

type Subtask struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

type TodoItem struct {
	ID        string     `json:"id"`
	Task      string     `json:"task"`
	Completed bool       `json:"completed"`
	Priority  Priority   `json:"priority,omitempty"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	Subtasks  []Subtask  `json:"subtasks,omitempty"`
	ProjectID string     `json:"projectId,omitempty"`
}

type ShoppingItem struct {
	ID        string `json:"id"`
	Item      string `json:"item"`
	Completed bool   `json:"completed"`
	Quantity  string `json:"quantity,omitempty"`
	Store     string `json:"store,omitempty"`
	ProjectID string `json:"projectId,omitempty"`
}

// NoteRevision is one entry in a note's edit log. Notes have no completion
// concept; the history log is their type-specific extension.
type NoteRevision struct {
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`
}

type NoteItem struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	History   []NoteRevision `json:"history"`
	ProjectID string         `json:"projectId,omitempty"`
}

type CustomListField struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type GenericItem struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	Completed bool              `json:"completed"`
	Fields    map[string]string `json:"fields,omitempty"`
	ProjectID string            `json:"projectId,omitempty"`
}

type CustomList struct {
	ID     string            `json:"id"`
	Title  string            `json:"title"`
	Fields []CustomListField `json:"fields,omitempty"`
	Items  []GenericItem     `json:"items"`
}

// LinkedItemIDs is a project's denormalized reverse index over the items
// linked to it. CustomListItemIDs maps item id to its owning list id; it is
// the one non-array relationship structure in the schema.
type LinkedItemIDs struct {
	TodoIDs           []string          `json:"todoIds,omitempty"`
	ShoppingIDs       []string          `json:"shoppingIds,omitempty"`
	NoteIDs           []string          `json:"noteIds,omitempty"`
	CustomListItemIDs map[string]string `json:"customListItemIds,omitempty"`
	EventIDs          []string          `json:"eventIds,omitempty"`
	EmailIDs          []string          `json:"emailIds,omitempty"`
}

type Project struct {
	ID                 string        `json:"id"`
	Title              string        `json:"title"`
	Description        string        `json:"description,omitempty"`
	IsHiddenInMainView bool          `json:"isHiddenInMainView,omitempty"`
	HiddenItemTypes    []string      `json:"hiddenItemTypes,omitempty"`
	LinkedItemIDs      LinkedItemIDs `json:"linkedItemIds"`
}

type SummarySettings struct {
	Enabled         bool `json:"enabled"`
	Hour            int  `json:"hour"`
	IncludeCalendar bool `json:"includeCalendar"`
	IncludeTodos    bool `json:"includeTodos"`
}

type VoiceSettings struct {
	Enabled         bool             `json:"enabled"`
	Language        string           `json:"language"`
	Rate            float64          `json:"rate"`
	SummarySettings *SummarySettings `json:"summarySettings,omitempty"`
}

type WidgetOrders struct {
	Desktop []string `json:"desktop"`
	Mobile  []string `json:"mobile"`
}

// AppData is the root document. LastModified is stamped on every successful
// remote write and is the sole conflict-resolution signal between devices.
type AppData struct {
	Todos              []TodoItem     `json:"todos"`
	ShoppingList       []ShoppingItem `json:"shoppingList"`
	Notes              []NoteItem     `json:"notes"`
	CustomLists        []CustomList   `json:"customLists"`
	Projects           []Project      `json:"projects"`
	TodoSortOrder      string         `json:"todoSortOrder"`
	ShoppingSortOrder  string         `json:"shoppingSortOrder"`
	LastModified       *time.Time     `json:"lastModified"`
	VoiceSettings      *VoiceSettings `json:"voiceSettings,omitempty"`
	DefaultCalendarID  string         `json:"defaultCalendarId,omitempty"`
	VisibleCalendarIDs []string       `json:"visibleCalendarIds,omitempty"`
	WidgetOrders       *WidgetOrders  `json:"widgetOrders,omitempty"`

	// LegacyWidgetOrder is the pre-split single ordering array. Normalize
	// migrates it into WidgetOrders and clears it.
	LegacyWidgetOrder []string `json:"widgetOrder,omitempty"`
}

func defaultSummarySettings() *SummarySettings {
	return &SummarySettings{Enabled: false, Hour: 8, IncludeCalendar: true, IncludeTodos: true}
}

func defaultVoiceSettings() *VoiceSettings {
	return &VoiceSettings{
		Enabled:         false,
		Language:        "en-US",
		Rate:            1.0,
		SummarySettings: defaultSummarySettings(),
	}
}

func defaultWidgetOrders() *WidgetOrders {
	order := []string{"todos", "shopping", "notes", "customLists", "projects", "calendar", "mail"}
	return &WidgetOrders{
		Desktop: append([]string(nil), order...),
		Mobile:  append([]string(nil), order...),
	}
}

// Default returns a fully defaulted empty document.
func Default() AppData {
	return Normalize(AppData{})
}

// Normalize merges preference sub-objects field-by-field against current
// defaults and migrates legacy shapes, so a blob persisted by an older
// schema version loads with sane values for fields it never knew about.
func Normalize(d AppData) AppData {
	if d.Todos == nil {
		d.Todos = []TodoItem{}
	}
	if d.ShoppingList == nil {
		d.ShoppingList = []ShoppingItem{}
	}
	if d.Notes == nil {
		d.Notes = []NoteItem{}
	}
	if d.CustomLists == nil {
		d.CustomLists = []CustomList{}
	}
	if d.Projects == nil {
		d.Projects = []Project{}
	}
	if d.TodoSortOrder == "" {
		d.TodoSortOrder = SortOrderDefault
	}
	if d.ShoppingSortOrder == "" {
		d.ShoppingSortOrder = SortOrderDefault
	}

	d.VoiceSettings = mergeVoiceSettings(d.VoiceSettings)

	// Older documents carried one widget ordering for every surface.
	if d.WidgetOrders == nil {
		if len(d.LegacyWidgetOrder) > 0 {
			d.WidgetOrders = &WidgetOrders{
				Desktop: append([]string(nil), d.LegacyWidgetOrder...),
				Mobile:  append([]string(nil), d.LegacyWidgetOrder...),
			}
		} else {
			d.WidgetOrders = defaultWidgetOrders()
		}
	} else {
		if len(d.WidgetOrders.Desktop) == 0 {
			d.WidgetOrders.Desktop = defaultWidgetOrders().Desktop
		}
		if len(d.WidgetOrders.Mobile) == 0 {
			d.WidgetOrders.Mobile = defaultWidgetOrders().Mobile
		}
	}
	d.LegacyWidgetOrder = nil

	// Older documents may lack note history entirely.
	notes := make([]NoteItem, len(d.Notes))
	for i, n := range d.Notes {
		if n.History == nil {
			n.History = []NoteRevision{}
		}
		notes[i] = n
	}
	d.Notes = notes

	lists := make([]CustomList, len(d.CustomLists))
	for i, l := range d.CustomLists {
		if l.Items == nil {
			l.Items = []GenericItem{}
		}
		lists[i] = l
	}
	d.CustomLists = lists

	return d
}

func mergeVoiceSettings(vs *VoiceSettings) *VoiceSettings {
	defaults := defaultVoiceSettings()
	if vs == nil {
		return defaults
	}
	merged := *vs
	if merged.Language == "" {
		merged.Language = defaults.Language
	}
	if merged.Rate == 0 {
		merged.Rate = defaults.Rate
	}
	if merged.SummarySettings == nil {
		merged.SummarySettings = defaults.SummarySettings
	} else {
		ss := *merged.SummarySettings
		if ss.Hour == 0 {
			ss.Hour = defaults.SummarySettings.Hour
		}
		merged.SummarySettings = &ss
	}
	return &merged
}

// Decode parses a persisted document blob and normalizes it.
func Decode(raw []byte) (AppData, error) {
	var d AppData
	if err := json.Unmarshal(raw, &d); err != nil {
		return AppData{}, fmt.Errorf("decode document: %w", err)
	}
	return Normalize(d), nil
}

// Encode serializes a document for the local store and the remote gateway.
func Encode(d AppData) ([]byte, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return raw, nil
}

// HasCustomListTitle reports whether a list with the given title already
// exists, compared case-insensitively. Enforced at creation time.
func HasCustomListTitle(d AppData, title string) bool {
	for _, l := range d.CustomLists {
		if strings.EqualFold(l.Title, title) {
			return true
		}
	}
	return false
}
