package search

// Kind identifies the kind of organizer entity in a search result.
type Kind string

const (
	KindTodo     Kind = "todo"
	KindShopping Kind = "shopping"
	KindNote     Kind = "note"
	KindCustom   Kind = "custom"
	KindProject  Kind = "project"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Kind    Kind   `json:"kind"`
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	ListID  string `json:"listId,omitempty"`
}

// Query describes a search request. Results are always scoped to one user.
type Query struct {
	UserID     string
	Text       string
	FilterKind Kind // empty = all kinds
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a search over a user's items.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// ItemRecord is the flattened form of an organizer item pushed into the
// search index. IDs are globally unique so one index serves all users.
type ItemRecord struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Kind   Kind   `json:"kind"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	ListID string `json:"listId"`
}
