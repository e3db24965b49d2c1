package export

import (
	"context"
	"fmt"

	"organizer/api/internal/organizer"
)

// Service provides organizer export functionality
type Service struct{}

// NewService creates a new export service
func NewService() *Service {
	return &Service{}
}

// Export renders the document and generates output in the requested format.
// JSON export is the raw document; PDF and DOCX render through the HTML
// template first.
func (s *Service) Export(ctx context.Context, doc organizer.AppData, ownerName string, req Request) (*Result, error) {
	data := BuildTemplateData(doc, ownerName, req.Title, req.IncludeCompleted)

	if req.Format == FormatJSON {
		raw, err := organizer.Encode(doc)
		if err != nil {
			return nil, fmt.Errorf("encode document: %w", err)
		}
		return &Result{
			Data:     raw,
			Filename: sanitizeFilename(data.Title) + ".json",
			MimeType: "application/json",
		}, nil
	}

	html, err := RenderHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch req.Format {
	case FormatPDF:
		return exportPDF(ctx, html, data.Title)
	case FormatDOCX:
		return exportDOCX(html, data.Title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}
