package pdf

import (
	"bytes"
	"fmt"
	"strings"

	ledongthuc "github.com/ledongthuc/pdf"
)

// Inspection summarizes a PDF template
type Inspection struct {
	Pages  int     `json:"pages"`
	Fields []Field `json:"fields"`
	Text   string  `json:"text,omitempty"`
}

// Inspect lists the form fields of a PDF and extracts its plain text
func Inspect(data []byte) (*Inspection, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	ctx, err := readContext(data)
	if err != nil {
		return nil, err
	}
	fields, err := listFields(ctx)
	if err != nil {
		return nil, err
	}

	result := &Inspection{Pages: ctx.PageCount, Fields: fields}

	text, pages, err := plainText(data)
	if err == nil {
		result.Text = text
		if result.Pages == 0 {
			result.Pages = pages
		}
	}
	return result, nil
}

// plainText extracts the text of every page with ledongthuc/pdf
func plainText(data []byte) (text string, pages int, err error) {
	defer func() {
		// the reader panics on some malformed content streams
		if r := recover(); r != nil {
			err = fmt.Errorf("text extraction failed: %v", r)
		}
	}()

	reader, err := ledongthuc.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("failed to open PDF: %w", err)
	}

	var sb strings.Builder
	pages = reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(strings.TrimSpace(content))
	}
	return sb.String(), pages, nil
}
