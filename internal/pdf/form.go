package pdf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// FieldType is the AcroForm field type
type FieldType string

const (
	FieldTypeText      FieldType = "text"
	FieldTypeDate      FieldType = "date"
	FieldTypeCheckbox  FieldType = "checkbox"
	FieldTypeRadio     FieldType = "radio"
	FieldTypeButton    FieldType = "button"
	FieldTypeChoice    FieldType = "choice"
	FieldTypeSignature FieldType = "signature"
	FieldTypeUnknown   FieldType = "unknown"
)

// Field is one terminal AcroForm field
type Field struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Value    string    `json:"value,omitempty"`
	ReadOnly bool      `json:"readOnly,omitempty"`
	MaxLen   int       `json:"maxLen,omitempty"`
}

// Form is an AcroForm template with pending field writes
type Form struct {
	template []byte
	fields   []Field
	index    map[string]int
	values   map[string]string
	order    []string
}

// OpenForm parses a PDF template and lists its form fields
func OpenForm(template []byte) (*Form, error) {
	if len(template) == 0 {
		return nil, ErrEmptyDocument
	}

	ctx, err := readContext(template)
	if err != nil {
		return nil, err
	}

	fields, err := listFields(ctx)
	if err != nil {
		return nil, err
	}

	f := &Form{
		template: template,
		fields:   fields,
		index:    make(map[string]int, len(fields)),
		values:   make(map[string]string),
	}
	for i, field := range fields {
		if _, dup := f.index[field.Name]; !dup {
			f.index[field.Name] = i
		}
	}
	return f, nil
}

// Fields returns the fields found in the template
func (f *Form) Fields() []Field {
	out := make([]Field, len(f.fields))
	copy(out, f.fields)
	return out
}

// HasField reports whether the template has a field with this name
func (f *Form) HasField(name string) bool {
	_, ok := f.index[name]
	return ok
}

// SetField records a value for a text field. The write is applied by Render.
func (f *Form) SetField(name, value string) error {
	i, ok := f.index[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrFieldNotFound, name)
	}
	switch f.fields[i].Type {
	case FieldTypeText, FieldTypeDate, FieldTypeUnknown:
	default:
		return fmt.Errorf("field %q is a %s field, not a text field", name, f.fields[i].Type)
	}
	if _, seen := f.values[name]; !seen {
		f.order = append(f.order, name)
	}
	f.values[name] = value
	return nil
}

// Render writes the template with all recorded values filled in
func (f *Form) Render() ([]byte, error) {
	if len(f.values) == 0 {
		out := make([]byte, len(f.template))
		copy(out, f.template)
		return out, nil
	}

	payload, err := json.Marshal(f.fillRequest())
	if err != nil {
		return nil, fmt.Errorf("failed to encode form values: %w", err)
	}

	var buf bytes.Buffer
	if err := api.FillForm(bytes.NewReader(f.template), bytes.NewReader(payload), &buf, relaxedConfig()); err != nil {
		return nil, fmt.Errorf("failed to fill form: %w", err)
	}
	return buf.Bytes(), nil
}

// fillForms mirrors the JSON document accepted by pdfcpu's form filler
type fillForms struct {
	Forms []fillForm `json:"forms"`
}

type fillForm struct {
	TextFields []fillField `json:"textfield,omitempty"`
	DateFields []fillField `json:"datefield,omitempty"`
}

type fillField struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Value  string `json:"value"`
	Locked bool   `json:"locked"`
}

func (f *Form) fillRequest() fillForms {
	var form fillForm
	for _, name := range f.order {
		field := f.fields[f.index[name]]
		entry := fillField{ID: field.ID, Name: field.Name, Value: f.values[name]}
		if field.Type == FieldTypeDate {
			form.DateFields = append(form.DateFields, entry)
			continue
		}
		form.TextFields = append(form.TextFields, entry)
	}
	return fillForms{Forms: []fillForm{form}}
}

func relaxedConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func readContext(data []byte) (*model.Context, error) {
	ctx, err := api.ReadContext(bytes.NewReader(data), relaxedConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}
	return ctx, nil
}

// listFields walks the AcroForm field tree and returns its terminal fields
func listFields(ctx *model.Context) ([]Field, error) {
	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}

	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return nil, nil
	}
	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference AcroForm: %w", err)
	}
	if acroFormDict == nil {
		return nil, nil
	}

	fieldsObj, found := acroFormDict.Find("Fields")
	if !found {
		return nil, nil
	}
	fieldsArray, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference Fields array: %w", err)
	}

	var fields []Field
	for _, obj := range fieldsArray {
		fields = walkField(ctx, obj, "", nil, fields, 0)
	}
	return fields, nil
}

const maxFieldDepth = 32

func walkField(ctx *model.Context, obj types.Object, parentName string, parent types.Dict, out []Field, depth int) []Field {
	if depth > maxFieldDepth {
		return out
	}

	dict, err := ctx.DereferenceDict(obj)
	if err != nil || dict == nil {
		return out
	}

	name := parentName
	if nameObj, found := dict.Find("T"); found {
		if partial, err := ctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil); err == nil && partial != "" {
			if name == "" {
				name = partial
			} else {
				name = name + "." + partial
			}
		}
	}

	// Kids carrying their own T are child fields; kids without one are widgets.
	if kidsObj, found := dict.Find("Kids"); found {
		if kids, err := ctx.DereferenceArray(kidsObj); err == nil {
			var childFields bool
			for _, kid := range kids {
				kidDict, err := ctx.DereferenceDict(kid)
				if err != nil || kidDict == nil {
					continue
				}
				if _, hasName := kidDict.Find("T"); hasName {
					childFields = true
					out = walkField(ctx, kid, name, dict, out, depth+1)
				}
			}
			if childFields {
				return out
			}
		}
	}

	if name == "" {
		return out
	}

	field := Field{Name: name, Type: fieldType(ctx, dict, parent)}
	if ir, ok := obj.(types.IndirectRef); ok {
		field.ID = strconv.Itoa(ir.ObjectNumber.Value())
	}
	if valueObj, found := dict.Find("V"); found {
		if v, err := ctx.DereferenceStringOrHexLiteral(valueObj, model.V10, nil); err == nil {
			field.Value = v
		}
	}
	if flagsObj, found := dict.Find("Ff"); found {
		if flags, err := ctx.DereferenceInteger(flagsObj); err == nil && flags != nil {
			field.ReadOnly = (*flags & 1) != 0
		}
	}
	if maxLenObj, found := dict.Find("MaxLen"); found {
		if maxLen, err := ctx.DereferenceInteger(maxLenObj); err == nil && maxLen != nil {
			field.MaxLen = int(*maxLen)
		}
	}
	return append(out, field)
}

func fieldType(ctx *model.Context, dict, parent types.Dict) FieldType {
	ftObj, found := dict.Find("FT")
	if !found {
		if parent != nil {
			return fieldType(ctx, parent, nil)
		}
		return FieldTypeUnknown
	}

	ftName, err := ctx.DereferenceName(ftObj, model.V10, nil)
	if err != nil {
		return FieldTypeUnknown
	}

	var flags int
	if flagsObj, found := dict.Find("Ff"); found {
		if f, err := ctx.DereferenceInteger(flagsObj); err == nil && f != nil {
			flags = int(*f)
		}
	}

	switch ftName {
	case "Btn":
		switch {
		case flags&(1<<15) != 0:
			return FieldTypeRadio
		case flags&(1<<16) != 0:
			return FieldTypeButton
		}
		return FieldTypeCheckbox
	case "Tx":
		if hasDateFormat(ctx, dict) {
			return FieldTypeDate
		}
		return FieldTypeText
	case "Ch":
		return FieldTypeChoice
	case "Sig":
		return FieldTypeSignature
	default:
		return FieldTypeUnknown
	}
}

// hasDateFormat detects text fields formatted by an AFDate_ format action
func hasDateFormat(ctx *model.Context, dict types.Dict) bool {
	aaObj, found := dict.Find("AA")
	if !found {
		return false
	}
	aa, err := ctx.DereferenceDict(aaObj)
	if err != nil || aa == nil {
		return false
	}
	fObj, found := aa.Find("F")
	if !found {
		return false
	}
	action, err := ctx.DereferenceDict(fObj)
	if err != nil || action == nil {
		return false
	}
	jsObj, found := action.Find("JS")
	if !found {
		return false
	}
	js, err := ctx.DereferenceStringOrHexLiteral(jsObj, model.V10, nil)
	if err != nil {
		return false
	}
	return strings.Contains(js, "AFDate_")
}
