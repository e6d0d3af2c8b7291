package ocr

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	response string
	err      error
	messages []llms.MessageContent
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.response}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n```json {\"a\":1} ```  \n", `{"a":1}`},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripCodeFence(tt.input))
		})
	}
}

func TestDecodeResponse(t *testing.T) {
	t.Run("fenced object", func(t *testing.T) {
		fields, err := DecodeResponse("```json\n{\"nombre\": \"ANA\", \"dni\": null}\n```")
		require.NoError(t, err)
		assert.Equal(t, "ANA", fields["nombre"])
		assert.Nil(t, fields["dni"])
	})

	t.Run("empty", func(t *testing.T) {
		_, err := DecodeResponse("   ")
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})

	malformed := []string{
		"Lo siento, no puedo leer el documento",
		"[1, 2, 3]",
		"null",
		"```json\n{\"nombre\": \n```",
	}
	for _, content := range malformed {
		_, err := DecodeResponse(content)
		assert.ErrorIs(t, err, ErrMalformedResponse, "content %q", content)
	}
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind("dni")
	require.NoError(t, err)
	assert.Equal(t, KindIdentity, kind)

	kind, err = ParseKind("ficha")
	require.NoError(t, err)
	assert.Equal(t, KindTechnicalSheet, kind)

	_, err = ParseKind("pasaporte")
	assert.Error(t, err)
}

func TestPromptFor(t *testing.T) {
	assert.Contains(t, PromptFor(KindIdentity), `"fechaCaducidad"`)
	assert.Contains(t, PromptFor(KindTechnicalSheet), `"masaOrdenMarcha"`)
}

func TestVisionRecognizer_Recognize(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

	t.Run("decodes fenced answer", func(t *testing.T) {
		model := &fakeModel{response: "```json\n{\"matricula\": \"1234ABC\"}\n```"}
		r := NewVisionRecognizerWithModel(model, VisionConfig{Provider: "openai", Model: "test"}, quietLogger())

		fields, err := r.Recognize(context.Background(), jpeg, KindTechnicalSheet)
		require.NoError(t, err)
		assert.Equal(t, "1234ABC", fields["matricula"])

		require.Len(t, model.messages, 1)
		parts := model.messages[0].Parts
		require.Len(t, parts, 2)
		text, ok := parts[0].(llms.TextContent)
		require.True(t, ok)
		assert.Equal(t, TechnicalSheetPrompt, text.Text)
		image, ok := parts[1].(llms.ImageURLContent)
		require.True(t, ok)
		assert.True(t, strings.HasPrefix(image.URL, "data:image/jpeg;base64,"))
	})

	t.Run("service failure is unreachable", func(t *testing.T) {
		model := &fakeModel{err: errors.New("connection refused")}
		r := NewVisionRecognizerWithModel(model, VisionConfig{}, quietLogger())

		_, err := r.Recognize(context.Background(), jpeg, KindIdentity)
		assert.ErrorIs(t, err, ErrUnreachable)
	})

	t.Run("deadline keeps its cause", func(t *testing.T) {
		model := &fakeModel{err: context.DeadlineExceeded}
		r := NewVisionRecognizerWithModel(model, VisionConfig{}, quietLogger())

		_, err := r.Recognize(context.Background(), jpeg, KindIdentity)
		assert.ErrorIs(t, err, ErrUnreachable)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("prose answer is malformed", func(t *testing.T) {
		model := &fakeModel{response: "No se ve bien la imagen"}
		r := NewVisionRecognizerWithModel(model, VisionConfig{}, quietLogger())

		_, err := r.Recognize(context.Background(), jpeg, KindIdentity)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("empty image", func(t *testing.T) {
		r := NewVisionRecognizerWithModel(&fakeModel{}, VisionConfig{}, quietLogger())
		_, err := r.Recognize(context.Background(), nil, KindIdentity)
		assert.Error(t, err)
	})
}

func TestNewVisionRecognizer_UnsupportedProvider(t *testing.T) {
	_, err := NewVisionRecognizer(VisionConfig{Provider: "tesseract"}, quietLogger())
	assert.Error(t, err)
}

func TestNewVisionRecognizer_MissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewVisionRecognizer(VisionConfig{Provider: "openai"}, quietLogger())
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	r, err := NewVisionRecognizer(VisionConfig{Provider: "openai", APIKey: "sk-test"}, quietLogger())
	require.NoError(t, err)
	assert.NotNil(t, r)
}

func TestUnavailable(t *testing.T) {
	r := Unavailable(ErrMissingAPIKey)

	_, err := r.Recognize(context.Background(), []byte{0xFF}, KindIdentity)
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.Contains(t, err.Error(), ErrMissingAPIKey.Error())
}
