package pdf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// A4 portrait, in points
const (
	PaperA4  = "A4P"
	A4Width  = 595.0
	A4Height = 842.0
)

// Core fonts every PDF reader provides
const (
	FontRegular = "Helvetica"
	FontBold    = "Helvetica-Bold"
)

// TextOp is one positioned run of text. Coordinates are in points from the
// lower-left corner of the page.
type TextOp struct {
	Page int     `json:"page"`
	Text string  `json:"text"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Font string  `json:"font"`
	Size float64 `json:"size"`
}

// Canvas draws text onto fixed-size pages
type Canvas interface {
	DrawText(op TextOp)
	Render() ([]byte, error)
}

// PageCanvas builds a new PDF document from text operations
type PageCanvas struct {
	paper string
	ops   []TextOp
}

// NewPageCanvas creates a canvas for a pdfcpu paper size such as "A4P"
func NewPageCanvas(paper string) *PageCanvas {
	if paper == "" {
		paper = PaperA4
	}
	return &PageCanvas{paper: paper}
}

// DrawText queues a text operation
func (c *PageCanvas) DrawText(op TextOp) {
	if op.Page < 1 {
		op.Page = 1
	}
	if op.Font == "" {
		op.Font = FontRegular
	}
	c.ops = append(c.ops, op)
}

// Ops returns the queued operations in drawing order
func (c *PageCanvas) Ops() []TextOp {
	out := make([]TextOp, len(c.ops))
	copy(out, c.ops)
	return out
}

// Render creates the document through pdfcpu's JSON content API
func (c *PageCanvas) Render() ([]byte, error) {
	payload, err := json.Marshal(c.document())
	if err != nil {
		return nil, fmt.Errorf("failed to encode page content: %w", err)
	}

	var buf bytes.Buffer
	if err := api.Create(nil, bytes.NewReader(payload), &buf, relaxedConfig()); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// createDocument mirrors the JSON document accepted by pdfcpu's create command
type createDocument struct {
	Paper  string                `json:"paper"`
	Origin string                `json:"origin"`
	Pages  map[string]createPage `json:"pages"`
}

type createPage struct {
	Content createContent `json:"content"`
}

type createContent struct {
	Text []createText `json:"text"`
}

type createText struct {
	Value    string     `json:"value"`
	Position [2]float64 `json:"pos"`
	Font     createFont `json:"font"`
}

type createFont struct {
	Name string  `json:"name"`
	Size float64 `json:"size"`
}

func (c *PageCanvas) document() createDocument {
	doc := createDocument{
		Paper:  c.paper,
		Origin: "LowerLeft",
		Pages:  map[string]createPage{"1": {}},
	}
	for _, op := range c.ops {
		key := strconv.Itoa(op.Page)
		page := doc.Pages[key]
		page.Content.Text = append(page.Content.Text, createText{
			Value:    op.Text,
			Position: [2]float64{op.X, op.Y},
			Font:     createFont{Name: op.Font, Size: op.Size},
		})
		doc.Pages[key] = page
	}
	return doc
}

// Recorder is a Canvas that only keeps the operations. Render returns them
// as JSON.
type Recorder struct {
	ops []TextOp
}

// DrawText records op
func (r *Recorder) DrawText(op TextOp) {
	r.ops = append(r.ops, op)
}

// Ops returns the recorded operations
func (r *Recorder) Ops() []TextOp {
	return r.ops
}

// Render encodes the recorded operations
func (r *Recorder) Render() ([]byte, error) {
	return json.Marshal(r.ops)
}
