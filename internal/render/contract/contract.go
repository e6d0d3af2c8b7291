// Package contract draws the private sale contract between seller and buyer
// on a single A4 page.
package contract

import (
	"fmt"
	"strings"
	"time"

	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/pdf"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/records"
)

// Filename is the download name of the rendered contract
const Filename = "contrato-compraventa.pdf"

// Placeholder stands in for empty values so they can be filled by hand
const Placeholder = "____________________"

// Layout constants, in points
const (
	LeftColumn  = 50.0
	RightColumn = 350.0
	Top         = 790.0
	Foot        = 50.0
	LineHeight  = 20.0

	titleSize   = 16.0
	headerSize  = 12.0
	bodySize    = 10.0
	headerSpace = 1.5
	titleSpace  = 2.0
	signSpace   = 3.0
)

var months = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

type line struct {
	label string
	value func(records.Bundle) string
}

var sellerLines = personLines(records.RoleSeller)
var buyerLines = personLines(records.RoleBuyer)

var vehicleLines = []line{
	{"Marca", func(b records.Bundle) string { return b.Vehicle.Make }},
	{"Modelo", func(b records.Bundle) string { return b.Vehicle.Model }},
	{"Matrícula", func(b records.Bundle) string { return b.Vehicle.Plate }},
	{"Nº de bastidor", func(b records.Bundle) string { return b.Vehicle.VIN }},
	{"Fecha de primera matriculación", func(b records.Bundle) string { return b.Vehicle.RegistrationDate }},
	{"Color", func(b records.Bundle) string { return b.Vehicle.Color }},
}

var conditions = []string{
	"El vendedor transmite al comprador el vehículo descrito, libre de cargas y gravámenes,",
	"por el precio de " + Placeholder + " euros, que declara recibir en este acto",
	"mediante " + Placeholder + ".",
	"El comprador declara conocer el estado del vehículo y asume los gastos de la transferencia.",
	"Desde la fecha y hora de firma el comprador se hace responsable del vehículo.",
}

func personLines(role records.Role) []line {
	get := func(key string) func(records.Bundle) string {
		return func(b records.Bundle) string {
			p, err := b.Person(role)
			if err != nil {
				return ""
			}
			v, _ := p.Get(key)
			return v
		}
	}
	return []line{
		{"Nombre y apellidos", get("nombre")},
		{"DNI/NIE", get("dni")},
		{"Fecha de nacimiento", get("fechaNacimiento")},
		{"Domicilio", get("direccion")},
		{"Población", get("poblacion")},
	}
}

// Renderer lays out and renders the contract
type Renderer struct {
	now       func() time.Time
	newCanvas func() pdf.Canvas
}

// NewRenderer creates a renderer. A nil clock means time.Now.
func NewRenderer(now func() time.Time) *Renderer {
	if now == nil {
		now = time.Now
	}
	return &Renderer{
		now:       now,
		newCanvas: func() pdf.Canvas { return pdf.NewPageCanvas(pdf.PaperA4) },
	}
}

// Render draws the contract for the bundle and returns the PDF bytes
func (r *Renderer) Render(b records.Bundle) ([]byte, error) {
	canvas := r.newCanvas()
	for _, op := range r.Layout(b) {
		canvas.DrawText(op)
	}
	data, err := canvas.Render()
	if err != nil {
		return nil, fmt.Errorf("error rendering contract: %w", err)
	}
	return data, nil
}

// Layout returns the drawing operations for the bundle in page order. The
// cursor only moves down; content past the page foot is not paginated.
func (r *Renderer) Layout(b records.Bundle) []pdf.TextOp {
	var ops []pdf.TextOp
	y := Top

	draw := func(text string, x, y float64, font string, size float64) {
		ops = append(ops, pdf.TextOp{Page: 1, Text: text, X: x, Y: y, Font: font, Size: size})
	}

	draw("CONTRATO DE COMPRAVENTA DE VEHÍCULO", LeftColumn, y, pdf.FontBold, titleSize)
	y -= titleSpace * LineHeight

	section := func(title string, lines []line) {
		draw(title, LeftColumn, y, pdf.FontBold, headerSize)
		y -= LineHeight
		for _, l := range lines {
			draw(l.label+": "+valueOrPlaceholder(l.value(b)), LeftColumn, y, pdf.FontRegular, bodySize)
			y -= LineHeight
		}
		y -= (headerSpace - 1) * LineHeight
	}

	section("DATOS DEL VENDEDOR", sellerLines)
	section("DATOS DEL COMPRADOR", buyerLines)
	section("DATOS DEL VEHÍCULO", vehicleLines)

	draw("CONDICIONES", LeftColumn, y, pdf.FontBold, headerSize)
	y -= LineHeight
	for _, text := range conditions {
		draw(text, LeftColumn, y, pdf.FontRegular, bodySize)
		y -= LineHeight
	}
	y -= (headerSpace - 1) * LineHeight

	draw("EL VENDEDOR", LeftColumn, y, pdf.FontBold, headerSize)
	draw("EL COMPRADOR", RightColumn, y, pdf.FontBold, headerSize)
	y -= signSpace * LineHeight
	draw("Fdo.: "+valueOrPlaceholder(b.Seller.FullName), LeftColumn, y, pdf.FontRegular, bodySize)
	draw("Fdo.: "+valueOrPlaceholder(b.Buyer.FullName), RightColumn, y, pdf.FontRegular, bodySize)

	draw(FootDate(r.now()), LeftColumn, Foot, pdf.FontRegular, bodySize)
	return ops
}

// FootDate formats the place and date line, leaving the place blank
func FootDate(t time.Time) string {
	return fmt.Sprintf("En ____________, a %d de %s de %d", t.Day(), months[t.Month()-1], t.Year())
}

func valueOrPlaceholder(v string) string {
	if strings.TrimSpace(v) == "" {
		return Placeholder
	}
	return v
}
