// Package mod02 fills the official vehicle transfer notification form
// (Mod.02-ES) from a document bundle.
package mod02

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/parse"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/pdf"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/records"
)

const (
	// TemplateName is the file name of the form in the template store
	TemplateName = "Mod.02-ES.pdf"
	// Filename is the download name of the filled form
	Filename = "mod-02-es.pdf"
)

// FieldWrite is a value destined for a named form field
type FieldWrite struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// FieldFailure records a write the form rejected
type FieldFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// Report describes what happened to each field write
type Report struct {
	Written []string       `json:"written"`
	Missing []string       `json:"missing,omitempty"`
	Failed  []FieldFailure `json:"failed,omitempty"`
}

// Form is the part of pdf.Form the renderer needs
type Form interface {
	HasField(name string) bool
	SetField(name, value string) error
	Render() ([]byte, error)
}

// TemplateLoader provides template bytes by name
type TemplateLoader interface {
	Load(name string) ([]byte, error)
}

// Renderer fills Mod.02-ES
type Renderer struct {
	templates TemplateLoader
	open      func([]byte) (Form, error)
	now       func() time.Time
	log       *logrus.Entry
}

// NewRenderer creates a renderer reading the form from templates. A nil
// clock means time.Now.
func NewRenderer(templates TemplateLoader, now func() time.Time, logger *logrus.Logger) *Renderer {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Renderer{
		templates: templates,
		open: func(data []byte) (Form, error) {
			return pdf.OpenForm(data)
		},
		now: now,
		log: logger.WithField("component", "mod02"),
	}
}

// Render returns the filled form
func (r *Renderer) Render(ctx context.Context, b records.Bundle) ([]byte, error) {
	data, _, err := r.RenderWithReport(ctx, b)
	return data, err
}

// RenderWithReport returns the filled form and the outcome of every field
// write. Only a template that cannot be loaded or parsed is an error; field
// writes that fail are reported and skipped.
func (r *Renderer) RenderWithReport(ctx context.Context, b records.Bundle) ([]byte, *Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	template, err := r.templates.Load(TemplateName)
	if err != nil {
		return nil, nil, err
	}
	form, err := r.open(template)
	if err != nil {
		return nil, nil, &pdf.TemplateError{Name: TemplateName, Err: err}
	}

	report := &Report{}
	for _, w := range Fields(b, r.now()) {
		logger := r.log.WithField("field", w.Name)
		if !form.HasField(w.Name) {
			logger.Debug("Field not present in template, skipping")
			report.Missing = append(report.Missing, w.Name)
			continue
		}
		if err := form.SetField(w.Name, w.Value); err != nil {
			logger.WithError(err).Warn("Could not set form field")
			report.Failed = append(report.Failed, FieldFailure{Name: w.Name, Error: err.Error()})
			continue
		}
		report.Written = append(report.Written, w.Name)
	}

	out, err := form.Render()
	if err != nil {
		return nil, report, fmt.Errorf("error writing %s: %w", TemplateName, err)
	}

	r.log.WithFields(logrus.Fields{
		"written": len(report.Written),
		"missing": len(report.Missing),
		"failed":  len(report.Failed),
	}).Info("Filled official form")
	return out, report, nil
}

// Fields maps the bundle onto the form's field names in write order. Empty
// values are left out; the filing date fields are always present.
func Fields(b records.Bundle, now time.Time) []FieldWrite {
	var writes []FieldWrite
	add := func(name, value string) {
		if value = strings.TrimSpace(value); value != "" {
			writes = append(writes, FieldWrite{Name: name, Value: value})
		}
	}

	add("Matrícula", b.Vehicle.Plate)
	add("Fecha matriculación", b.Vehicle.RegistrationDate)

	seller := parse.SplitName(b.Seller.FullName)
	add("NIFNIECIF", b.Seller.NationalID)
	add("NombreRazón social", seller.First)
	add("Apellido 1", seller.Surname1)
	add("Apellido 2", seller.Surname2)
	add("Fecha nacimiento", b.Seller.BirthDate)

	buyer := parse.SplitName(b.Buyer.FullName)
	add("NIFNIECIF_2", b.Buyer.NationalID)
	add("NombreRazón social_2", buyer.First)
	add("Apellido 1_2", buyer.Surname1)
	add("Apellido 2_2", buyer.Surname2)

	street, locality := splitAddress(b.Buyer.Address)
	if locality == "" {
		locality = b.Buyer.Locality
	}
	add("Nombre de la vía", street)
	add("Localidad", locality)

	add("a", strconv.Itoa(now.Day()))
	add("de", strconv.Itoa(int(now.Month())))
	add("de_2", strconv.Itoa(now.Year()))
	return writes
}

// splitAddress takes the street from the first comma-separated part and the
// locality from the last one, when there is more than one part.
func splitAddress(address string) (street, locality string) {
	if strings.TrimSpace(address) == "" {
		return "", ""
	}
	parts := strings.Split(address, ",")
	street = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		locality = strings.TrimSpace(parts[len(parts)-1])
	}
	return street, locality
}
