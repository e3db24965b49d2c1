package export

import (
	"bytes"
	"html/template"
	"time"

	"organizer/api/internal/organizer"
)

// TemplateData holds data for the export template.
type TemplateData struct {
	Title       string
	OwnerName   string
	ExportedAt  time.Time
	Todos       []TodoView
	Shopping    []ShoppingView
	Notes       []NoteView
	CustomLists []CustomListView
	Projects    []ProjectView
}

type TodoView struct {
	Task      string
	Completed bool
	Priority  string
	DueDate   string
	Subtasks  []TodoView
}

type ShoppingView struct {
	Item      string
	Completed bool
	Quantity  string
	Store     string
}

type NoteView struct {
	Title       string
	ContentHTML template.HTML
}

type CustomListView struct {
	Title string
	Items []CustomItemView
}

type CustomItemView struct {
	Text      string
	Completed bool
}

type ProjectView struct {
	Title       string
	Description string
}

var documentTemplate = template.Must(template.New("export").Parse(exportTemplate))

// BuildTemplateData flattens a document into the view the template renders.
// Completed items are dropped unless includeCompleted is set; notes and
// projects are always included.
func BuildTemplateData(doc organizer.AppData, ownerName, title string, includeCompleted bool) TemplateData {
	if title == "" {
		title = "Organizer"
	}
	data := TemplateData{
		Title:      title,
		OwnerName:  ownerName,
		ExportedAt: time.Now(),
	}

	for _, todo := range doc.Todos {
		if todo.Completed && !includeCompleted {
			continue
		}
		view := TodoView{
			Task:      todo.Task,
			Completed: todo.Completed,
			Priority:  string(todo.Priority),
		}
		if todo.DueDate != nil {
			view.DueDate = todo.DueDate.Format("2006-01-02")
		}
		for _, sub := range todo.Subtasks {
			view.Subtasks = append(view.Subtasks, TodoView{Task: sub.Text, Completed: sub.Completed})
		}
		data.Todos = append(data.Todos, view)
	}

	for _, item := range doc.ShoppingList {
		if item.Completed && !includeCompleted {
			continue
		}
		data.Shopping = append(data.Shopping, ShoppingView{
			Item:      item.Item,
			Completed: item.Completed,
			Quantity:  item.Quantity,
			Store:     item.Store,
		})
	}

	for _, note := range doc.Notes {
		data.Notes = append(data.Notes, NoteView{
			Title:       note.Title,
			ContentHTML: template.HTML(note.Content),
		})
	}

	for _, list := range doc.CustomLists {
		view := CustomListView{Title: list.Title}
		for _, item := range list.Items {
			if item.Completed && !includeCompleted {
				continue
			}
			view.Items = append(view.Items, CustomItemView{Text: item.Text, Completed: item.Completed})
		}
		data.CustomLists = append(data.CustomLists, view)
	}

	for _, project := range doc.Projects {
		data.Projects = append(data.Projects, ProjectView{
			Title:       project.Title,
			Description: project.Description,
		})
	}

	return data
}

// RenderHTML renders the export template with provided data.
func RenderHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const exportTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; color: #222; }
    h1 { border-bottom: 2px solid #2a9d8f; padding-bottom: 0.5rem; }
    h2 { margin-top: 2rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    ul { padding-left: 1.4rem; }
    .done { text-decoration: line-through; color: #888; }
    .tag { font-size: 0.8em; color: #666; margin-left: 0.4rem; }
    .note { background: #f7f7f7; padding: 1rem; margin: 1rem 0; border-left: 3px solid #2a9d8f; }
    .project { margin: 0.6rem 0; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div class="meta">{{if .OwnerName}}{{.OwnerName}} | {{end}}{{.ExportedAt.Format "Jan 2, 2006"}}</div>

  {{if .Todos}}
  <h2>Todos</h2>
  <ul>
    {{range .Todos}}
    <li{{if .Completed}} class="done"{{end}}>{{.Task}}{{if .Priority}}<span class="tag">[{{.Priority}}]</span>{{end}}{{if .DueDate}}<span class="tag">due {{.DueDate}}</span>{{end}}
      {{if .Subtasks}}<ul>{{range .Subtasks}}<li{{if .Completed}} class="done"{{end}}>{{.Task}}</li>{{end}}</ul>{{end}}
    </li>
    {{end}}
  </ul>
  {{end}}

  {{if .Shopping}}
  <h2>Shopping List</h2>
  <ul>
    {{range .Shopping}}
    <li{{if .Completed}} class="done"{{end}}>{{.Item}}{{if .Quantity}}<span class="tag">{{.Quantity}}</span>{{end}}{{if .Store}}<span class="tag">@ {{.Store}}</span>{{end}}</li>
    {{end}}
  </ul>
  {{end}}

  {{if .Notes}}
  <h2>Notes</h2>
  {{range .Notes}}
  <div class="note">
    <h3>{{.Title}}</h3>
    <div>{{.ContentHTML}}</div>
  </div>
  {{end}}
  {{end}}

  {{if .CustomLists}}
  {{range .CustomLists}}
  <h2>{{.Title}}</h2>
  <ul>
    {{range .Items}}<li{{if .Completed}} class="done"{{end}}>{{.Text}}</li>{{end}}
  </ul>
  {{end}}
  {{end}}

  {{if .Projects}}
  <h2>Projects</h2>
  {{range .Projects}}
  <div class="project"><strong>{{.Title}}</strong>{{if .Description}}: {{.Description}}{{end}}</div>
  {{end}}
  {{end}}
</body>
</html>`
