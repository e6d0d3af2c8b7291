// Package transfer ties recognition, editing sessions, renderers and history
// together behind the operations the transports expose.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/history"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/metrics"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/ocr"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/pipeline"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/records"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/render/contract"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/render/dossier"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/render/mod02"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/session"
)

// Document names a renderable output
type Document string

const (
	DocumentContract     Document = "contract"
	DocumentOfficialForm Document = "mod02"
	DocumentDossier      Document = "dossier"
)

const (
	ContentTypePDF = "application/pdf"
	ContentTypeXML = "application/xml"
)

var (
	ErrUnknownDocument = errors.New("unknown document type")
	ErrHistoryDisabled = errors.New("history is not enabled")
)

// ParseDocument validates a PDF document name coming from a request
func ParseDocument(s string) (Document, error) {
	switch Document(s) {
	case DocumentContract, DocumentOfficialForm:
		return Document(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDocument, s)
	}
}

// History is the persistence used for saved bundles
type History interface {
	Save(ctx context.Context, b records.Bundle) (history.Item, error)
	List(ctx context.Context) ([]history.Item, error)
	Get(ctx context.Context, id string) (history.Item, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// Deps are the collaborators of a Service. Recognizer and Templates are
// required; the rest fall back to defaults.
type Deps struct {
	Recognizer ocr.Recognizer
	Templates  mod02.TemplateLoader
	History    History
	Metrics    *metrics.Metrics
	Logger     *logrus.Logger
	Timeout    time.Duration
	Dossier    dossier.Options
	Now        func() time.Time
}

// Service implements the document transfer operations
type Service struct {
	processor *pipeline.Processor
	sessions  *session.Store
	contract  *contract.Renderer
	mod02     *mod02.Renderer
	history   History
	metrics   *metrics.Metrics
	dossier   dossier.Options
	now       func() time.Time
	log       *logrus.Entry
}

// New creates a service
func New(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New(nil)
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	return &Service{
		processor: pipeline.NewProcessor(d.Recognizer, d.Timeout, d.Metrics, d.Logger),
		sessions:  session.NewStore(),
		contract:  contract.NewRenderer(d.Now),
		mod02:     mod02.NewRenderer(d.Templates, d.Now, d.Logger),
		history:   d.History,
		metrics:   d.Metrics,
		dossier:   d.Dossier,
		now:       d.Now,
		log:       d.Logger.WithField("component", "transfer"),
	}
}

// ProcessResult is the bundle of a session after a batch of uploads
type ProcessResult struct {
	SessionID string                  `json:"sessionId"`
	Data      records.Bundle          `json:"data"`
	Errors    map[records.Role]string `json:"errors,omitempty"`
}

// Process recognizes the uploads and stores the successful records in the
// session with sessionID, creating it when unknown. Failed roles keep their
// previous contents. ErrAllRolesFailed is returned along with the result.
func (s *Service) Process(ctx context.Context, sessionID string, uploads []pipeline.Upload) (*ProcessResult, error) {
	sess := s.sessions.GetOrCreate(sessionID)
	s.metrics.SetActiveSessions(s.sessions.Len())

	result, err := s.processor.ProcessAll(ctx, uploads)
	_ = sess.Update(func(b *records.Bundle) error {
		*b = result.Apply(*b)
		return nil
	})

	out := &ProcessResult{SessionID: sess.ID(), Data: sess.Snapshot()}
	if errs := result.Errors(); len(errs) > 0 {
		out.Errors = make(map[records.Role]string, len(errs))
		for role, e := range errs {
			out.Errors[role] = e.Error()
		}
	}

	s.log.WithFields(logrus.Fields{
		"session": sess.ID(),
		"uploads": len(uploads),
		"failed":  len(out.Errors),
	}).Info("Processed documents")
	return out, err
}

// ProcessImage recognizes a single photo without touching any session
func (s *Service) ProcessImage(ctx context.Context, role records.Role, image []byte) (pipeline.Outcome, error) {
	return s.processor.ProcessImage(ctx, role, image)
}

// Session returns the editing session with id
func (s *Service) Session(id string) (*session.Session, error) {
	return s.sessions.Get(id)
}

// UpdateField applies a manual edit to a session and returns the new bundle
func (s *Service) UpdateField(sessionID string, role records.Role, key, value string) (records.Bundle, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return records.Bundle{}, err
	}
	if err := sess.SetField(role, key, value); err != nil {
		return records.Bundle{}, err
	}
	return sess.Snapshot(), nil
}

// CloseSession drops a session
func (s *Service) CloseSession(id string) {
	s.sessions.Delete(id)
	s.metrics.SetActiveSessions(s.sessions.Len())
}

// PruneSessions drops sessions idle for longer than maxIdle
func (s *Service) PruneSessions(maxIdle time.Duration) int {
	n := s.sessions.Prune(maxIdle)
	s.metrics.SetActiveSessions(s.sessions.Len())
	return n
}

// Rendered is a generated document ready to download
type Rendered struct {
	Filename    string
	ContentType string
	Data        []byte
	Report      *mod02.Report
}

// RenderPDF renders one of the PDF documents
func (s *Service) RenderPDF(ctx context.Context, doc Document, b records.Bundle) (*Rendered, error) {
	switch doc {
	case DocumentContract:
		return s.RenderContract(ctx, b)
	case DocumentOfficialForm:
		return s.RenderOfficialForm(ctx, b)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDocument, doc)
	}
}

// RenderContract renders the sale contract
func (s *Service) RenderContract(ctx context.Context, b records.Bundle) (*Rendered, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	data, err := s.contract.Render(b)
	s.metrics.ObserveRender(string(DocumentContract), start, err)
	if err != nil {
		s.log.WithError(err).Error("Contract rendering failed")
		return nil, err
	}
	return &Rendered{Filename: contract.Filename, ContentType: ContentTypePDF, Data: data}, nil
}

// RenderOfficialForm fills the Mod.02 form. The report lists the fields
// that could not be written.
func (s *Service) RenderOfficialForm(ctx context.Context, b records.Bundle) (*Rendered, error) {
	start := time.Now()
	data, report, err := s.mod02.RenderWithReport(ctx, b)
	s.metrics.ObserveRender(string(DocumentOfficialForm), start, err)
	if report != nil {
		s.metrics.ObserveFieldWrites(len(report.Written), len(report.Missing), len(report.Failed))
	}
	if err != nil {
		s.log.WithError(err).Error("Official form rendering failed")
		return nil, err
	}
	return &Rendered{Filename: mod02.Filename, ContentType: ContentTypePDF, Data: data, Report: report}, nil
}

// RenderDossier renders the CTIT XML dossier. Empty options take the
// service defaults. The document is checked for its required sections
// before it is returned.
func (s *Service) RenderDossier(ctx context.Context, b records.Bundle, opts dossier.Options) (*Rendered, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts = s.dossierOptions(opts)

	start := time.Now()
	doc, err := dossier.Render(b, opts)
	if err == nil {
		err = dossier.Check(doc)
	}
	s.metrics.ObserveRender(string(DocumentDossier), start, err)
	if err != nil {
		s.log.WithError(err).Error("Dossier rendering failed")
		return nil, err
	}

	return &Rendered{
		Filename:    dossier.Filename(dossier.FilePrefix, opts.Now()),
		ContentType: ContentTypeXML,
		Data:        []byte(doc),
	}, nil
}

func (s *Service) dossierOptions(opts dossier.Options) dossier.Options {
	if opts.AgentNIF == "" {
		opts.AgentNIF = s.dossier.AgentNIF
	}
	if opts.AgencyNIF == "" {
		opts.AgencyNIF = s.dossier.AgencyNIF
	}
	if opts.LocalDivisionKey == "" {
		opts.LocalDivisionKey = s.dossier.LocalDivisionKey
	}
	if opts.DossierNumber == "" {
		opts.DossierNumber = s.dossier.DossierNumber
	}
	if opts.Now == nil {
		opts.Now = s.now
	}
	return opts
}

// Share encodes a bundle for a share link
func (s *Service) Share(b records.Bundle) (string, error) {
	return records.EncodeShare(b)
}

// LoadShared decodes a share link blob
func (s *Service) LoadShared(blob string) (records.Bundle, error) {
	return records.DecodeShare(blob)
}

// SaveHistory stores a bundle in the history
func (s *Service) SaveHistory(ctx context.Context, b records.Bundle) (history.Item, error) {
	if s.history == nil {
		return history.Item{}, ErrHistoryDisabled
	}
	return s.history.Save(ctx, b)
}

// ListHistory returns the saved bundles, newest first
func (s *Service) ListHistory(ctx context.Context) ([]history.Item, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.List(ctx)
}

// HistoryItem returns one saved bundle
func (s *Service) HistoryItem(ctx context.Context, id string) (history.Item, error) {
	if s.history == nil {
		return history.Item{}, ErrHistoryDisabled
	}
	return s.history.Get(ctx, id)
}

// DeleteHistory removes one saved bundle
func (s *Service) DeleteHistory(ctx context.Context, id string) error {
	if s.history == nil {
		return ErrHistoryDisabled
	}
	return s.history.Delete(ctx, id)
}

// ClearHistory removes every saved bundle
func (s *Service) ClearHistory(ctx context.Context) error {
	if s.history == nil {
		return ErrHistoryDisabled
	}
	return s.history.Clear(ctx)
}
