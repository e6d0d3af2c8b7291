package pdf

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateStore_Load(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "form.pdf"), []byte("%PDF-1.4 test"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.pdf"), nil, 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.pdf"), 0o700))

	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.pdf"), []byte("%PDF-1.4 secret"), 0o600))

	store, err := NewTemplateStore(dir, 1024)
	require.NoError(t, err)

	data, err := store.Load("form.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 test", string(data))

	tests := []struct {
		name string
		file string
	}{
		{"missing", "missing.pdf"},
		{"empty", "empty.pdf"},
		{"directory", "nested.pdf"},
		{"empty name", ""},
		{"parent traversal", filepath.Join("..", filepath.Base(outside), "secret.pdf")},
		{"absolute outside", filepath.Join(outside, "secret.pdf")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Load(tt.file)
			require.Error(t, err)
			assert.True(t, IsTemplateError(err))

			var te *TemplateError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, tt.file, te.Name)
		})
	}
}

func TestTemplateStore_Symlink(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	target := filepath.Join(outside, "secret.pdf")
	require.NoError(t, os.WriteFile(target, []byte("%PDF-1.4 secret"), 0o600))
	if err := os.Symlink(target, filepath.Join(dir, "link.pdf")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	store, err := NewTemplateStore(dir, 0)
	require.NoError(t, err)

	_, err = store.Load("link.pdf")
	assert.True(t, IsTemplateError(err))
}

func TestTemplateStore_SizeLimit(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.pdf"), make([]byte, 64), 0o600))

	store, err := NewTemplateStore(dir, 32)
	require.NoError(t, err)

	_, err = store.Load("big.pdf")
	assert.True(t, IsTemplateError(err))
	assert.Contains(t, err.Error(), "too large")
}

func TestTemplateStore_List(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.pdf", "B.PDF", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}

	store, err := NewTemplateStore(dir, 0)
	require.NoError(t, err)

	names, err := store.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.pdf", "B.PDF"}, names)
}

func TestNewTemplateStore_EmptyDir(t *testing.T) {
	_, err := NewTemplateStore("", 0)
	assert.Error(t, err)
}

func TestForm_SetField(t *testing.T) {
	form := &Form{
		template: []byte("%PDF"),
		fields: []Field{
			{ID: "10", Name: "Matrícula", Type: FieldTypeText},
			{ID: "11", Name: "Fecha nacimiento", Type: FieldTypeDate},
			{ID: "12", Name: "Casilla", Type: FieldTypeCheckbox},
		},
		index:  map[string]int{"Matrícula": 0, "Fecha nacimiento": 1, "Casilla": 2},
		values: map[string]string{},
	}

	assert.True(t, form.HasField("Matrícula"))
	assert.False(t, form.HasField("Bastidor"))

	require.NoError(t, form.SetField("Matrícula", "1234ABC"))
	require.NoError(t, form.SetField("Fecha nacimiento", "01/02/1980"))
	require.NoError(t, form.SetField("Matrícula", "5678DEF"))

	err := form.SetField("Bastidor", "VIN")
	assert.ErrorIs(t, err, ErrFieldNotFound)

	err = form.SetField("Casilla", "Yes")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrFieldNotFound)

	req := form.fillRequest()
	require.Len(t, req.Forms, 1)
	assert.Equal(t, []fillField{{ID: "10", Name: "Matrícula", Value: "5678DEF"}}, req.Forms[0].TextFields)
	assert.Equal(t, []fillField{{ID: "11", Name: "Fecha nacimiento", Value: "01/02/1980"}}, req.Forms[0].DateFields)

	payload, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"forms":[{
		"textfield":[{"id":"10","name":"Matrícula","value":"5678DEF","locked":false}],
		"datefield":[{"id":"11","name":"Fecha nacimiento","value":"01/02/1980","locked":false}]
	}]}`, string(payload))
}

func TestForm_RenderWithoutValuesReturnsTemplate(t *testing.T) {
	form := &Form{template: []byte("%PDF-1.4 untouched"), index: map[string]int{}, values: map[string]string{}}

	out, err := form.Render()
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 untouched", string(out))
}

func TestOpenForm_InvalidInput(t *testing.T) {
	_, err := OpenForm(nil)
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = OpenForm([]byte("this is not a PDF document"))
	assert.Error(t, err)
}

func TestInspect_InvalidInput(t *testing.T) {
	_, err := Inspect(nil)
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = Inspect([]byte("garbage"))
	assert.Error(t, err)
}

func TestPageCanvas_Document(t *testing.T) {
	canvas := NewPageCanvas("")
	canvas.DrawText(TextOp{Text: "CONTRATO", X: 50, Y: 790, Font: FontBold, Size: 16})
	canvas.DrawText(TextOp{Page: 2, Text: "Firma", X: 350, Y: 100, Size: 10})

	ops := canvas.Ops()
	require.Len(t, ops, 2)
	assert.Equal(t, 1, ops[0].Page)
	assert.Equal(t, FontRegular, ops[1].Font)

	payload, err := json.Marshal(canvas.document())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"paper": "A4P",
		"origin": "LowerLeft",
		"pages": {
			"1": {"content": {"text": [{"value": "CONTRATO", "pos": [50, 790], "font": {"name": "Helvetica-Bold", "size": 16}}]}},
			"2": {"content": {"text": [{"value": "Firma", "pos": [350, 100], "font": {"name": "Helvetica", "size": 10}}]}}
		}
	}`, string(payload))
}

func TestRecorder(t *testing.T) {
	var rec Recorder
	rec.DrawText(TextOp{Page: 1, Text: "a", X: 1, Y: 2, Font: FontRegular, Size: 10})

	require.Len(t, rec.Ops(), 1)
	out, err := rec.Render()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"page":1,"text":"a","x":1,"y":2,"font":"Helvetica","size":10}]`, string(out))
}

const formLayout = `{"paper": "A4P", "origin": "LowerLeft",
	"pages": {"1": {"content": {"textfield": [
		{"id": "Matrícula", "pos": [100, 700], "width": 200, "value": "", "font": {"name": "Helvetica", "size": 12}},
		{"id": "NIFNIECIF", "pos": [100, 650], "width": 200, "value": "", "font": {"name": "Helvetica", "size": 12}},
		{"id": "a", "pos": [100, 600], "width": 200, "value": "", "font": {"name": "Helvetica", "size": 12}}
	]}}}}`

// newFormTemplate builds a one-page AcroForm with three text fields
func newFormTemplate(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, api.Create(nil, strings.NewReader(formLayout), &buf, relaxedConfig()))
	return buf.Bytes()
}

func TestForm_FillRoundTrip(t *testing.T) {
	form, err := OpenForm(newFormTemplate(t))
	require.NoError(t, err)
	require.True(t, form.HasField("Matrícula"))

	values := map[string]string{"Matrícula": "1234ABC", "NIFNIECIF": "12345678Z", "a": "5"}
	for name, value := range values {
		require.NoError(t, form.SetField(name, value))
	}

	out, err := form.Render()
	require.NoError(t, err)

	filled, err := OpenForm(out)
	require.NoError(t, err)
	got := map[string]string{}
	for _, f := range filled.Fields() {
		got[f.Name] = f.Value
	}
	assert.Equal(t, values, got)
}

func TestPageCanvas_Render(t *testing.T) {
	canvas := NewPageCanvas("")
	canvas.DrawText(TextOp{Text: "CONTRATO 1234ABC", X: 50, Y: 790, Font: FontBold, Size: 16})

	out, err := canvas.Render()
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	inspection, err := Inspect(out)
	require.NoError(t, err)
	assert.Equal(t, 1, inspection.Pages)
	assert.Empty(t, inspection.Fields)
	assert.Contains(t, inspection.Text, "1234ABC")
}

func TestOfficialFormTemplate(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	path := filepath.Join("..", "..", "templates", "Mod.02-ES.pdf")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		t.Skipf("Template %s not found", path)
	}
	require.NoError(t, err)

	form, err := OpenForm(data)
	require.NoError(t, err)
	assert.NotEmpty(t, form.Fields())

	inspection, err := Inspect(data)
	require.NoError(t, err)
	assert.Positive(t, inspection.Pages)
	assert.Len(t, inspection.Fields, len(form.Fields()))
}
