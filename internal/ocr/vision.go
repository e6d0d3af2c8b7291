package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	DefaultProvider  = "openai"
	DefaultModel     = "gpt-4o"
	DefaultMaxTokens = 1000
)

// ErrMissingAPIKey is returned when no key is configured for the provider
var ErrMissingAPIKey = errors.New("missing vision API key")

// VisionConfig selects and configures the vision model
type VisionConfig struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int
}

// VisionRecognizer reads documents by sending the photo to a vision LLM
type VisionRecognizer struct {
	llm       llms.Model
	provider  string
	model     string
	maxTokens int
	log       *logrus.Entry
}

// NewVisionRecognizer creates a recognizer for the configured provider
func NewVisionRecognizer(cfg VisionConfig, logger *logrus.Logger) (*VisionRecognizer, error) {
	if cfg.Provider == "" {
		cfg.Provider = DefaultProvider
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	var (
		model llms.Model
		err   error
	)
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		if cfg.APIKey == "" && os.Getenv("OPENAI_API_KEY") == "" {
			return nil, fmt.Errorf("%w: set --openai-key or OPENAI_API_KEY", ErrMissingAPIKey)
		}
		opts := []openai.Option{openai.WithModel(cfg.Model)}
		if cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(cfg.APIKey))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported vision provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("error creating vision client: %w", err)
	}

	return NewVisionRecognizerWithModel(model, cfg, logger), nil
}

// NewVisionRecognizerWithModel wraps an already constructed model
func NewVisionRecognizerWithModel(model llms.Model, cfg VisionConfig, logger *logrus.Logger) *VisionRecognizer {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &VisionRecognizer{
		llm:       model,
		provider:  cfg.Provider,
		model:     cfg.Model,
		maxTokens: maxTokens,
		log: logger.WithFields(logrus.Fields{
			"component": "ocr",
			"provider":  cfg.Provider,
			"model":     cfg.Model,
		}),
	}
}

// Recognize sends the image with the kind-specific prompt and decodes the answer
func (r *VisionRecognizer) Recognize(ctx context.Context, image []byte, kind Kind) (RawFields, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("image cannot be empty")
	}

	mimeType := http.DetectContentType(image)
	if !strings.HasPrefix(mimeType, "image/") {
		// the service rejects non-image data URLs; most phone uploads are JPEG
		mimeType = "image/jpeg"
	}

	logger := r.log.WithFields(logrus.Fields{
		"kind":  kind,
		"bytes": len(image),
		"mime":  mimeType,
	})
	logger.Debug("Sending document to vision model")

	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
	completion, err := r.llm.GenerateContent(ctx, []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(PromptFor(kind)),
				llms.ImageURLPart(dataURL),
			},
		},
	}, llms.WithMaxTokens(r.maxTokens))
	if err != nil {
		logger.WithError(err).Error("Vision model call failed")
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if completion == nil || len(completion.Choices) == 0 || completion.Choices[0] == nil {
		return nil, ErrEmptyResponse
	}

	content := completion.Choices[0].Content
	logger.WithField("length", len(content)).Debug("Received vision model response")

	fields, err := DecodeResponse(content)
	if err != nil {
		logger.WithError(err).Warn("Could not decode vision model response")
		return nil, err
	}
	return fields, nil
}
