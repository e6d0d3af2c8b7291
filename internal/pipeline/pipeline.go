// Package pipeline turns document photos into normalized records. Each role
// is processed independently: one role failing or timing out leaves the
// others untouched.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/ocr"
	"github.com/saridevelop/vehicle-transfer-documents-ocr/internal/records"
)

// DefaultTimeout bounds a single recognition call
const DefaultTimeout = 60 * time.Second

// ErrAllRolesFailed is returned by ProcessAll when no submitted role succeeded
var ErrAllRolesFailed = errors.New("no document could be processed")

// ErrDuplicateRole is returned by ProcessAll when two uploads fill the same role
var ErrDuplicateRole = errors.New("more than one document for the same role")

// Upload is a document photo submitted for a role
type Upload struct {
	Role  records.Role
	Image []byte
}

// Outcome is the result of processing one role. Exactly one of Person and
// Vehicle is set on success; Err is set on failure.
type Outcome struct {
	Role     records.Role           `json:"role"`
	Person   *records.PersonRecord  `json:"person,omitempty"`
	Vehicle  *records.VehicleRecord `json:"vehicle,omitempty"`
	Err      error                  `json:"-"`
	Duration time.Duration          `json:"duration"`
}

// Result collects the outcomes of a ProcessAll call
type Result struct {
	Outcomes map[records.Role]Outcome
}

// Apply overlays every successful outcome on b, replacing each slot wholesale
func (r Result) Apply(b records.Bundle) records.Bundle {
	for _, o := range r.Outcomes {
		if o.Err != nil {
			continue
		}
		switch {
		case o.Role == records.RoleSeller && o.Person != nil:
			b.Seller = *o.Person
		case o.Role == records.RoleBuyer && o.Person != nil:
			b.Buyer = *o.Person
		case o.Role == records.RoleVehicle && o.Vehicle != nil:
			b.Vehicle = *o.Vehicle
		}
	}
	return b
}

// Errors returns the failure of each failed role
func (r Result) Errors() map[records.Role]error {
	errs := make(map[records.Role]error)
	for role, o := range r.Outcomes {
		if o.Err != nil {
			errs[role] = o.Err
		}
	}
	return errs
}

// Observer receives the timing of each recognition
type Observer interface {
	ObserveRecognition(role string, start time.Time, err error)
}

// Processor runs recognition and normalization for uploaded photos
type Processor struct {
	recognizer ocr.Recognizer
	timeout    time.Duration
	observer   Observer
	log        *logrus.Entry
}

// NewProcessor creates a processor. A non-positive timeout uses
// DefaultTimeout; observer may be nil.
func NewProcessor(recognizer ocr.Recognizer, timeout time.Duration, observer Observer, logger *logrus.Logger) *Processor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Processor{
		recognizer: recognizer,
		timeout:    timeout,
		observer:   observer,
		log:        logger.WithField("component", "pipeline"),
	}
}

// KindFor returns the document kind expected for a role
func KindFor(role records.Role) ocr.Kind {
	if role == records.RoleVehicle {
		return ocr.KindTechnicalSheet
	}
	return ocr.KindIdentity
}

// ProcessImage recognizes one photo under the processor timeout and
// normalizes the fields for the role.
func (p *Processor) ProcessImage(ctx context.Context, role records.Role, image []byte) (Outcome, error) {
	out := Outcome{Role: role}
	if _, err := records.ParseRole(string(role)); err != nil {
		out.Err = err
		return out, err
	}
	if len(image) == 0 {
		out.Err = fmt.Errorf("no image for %s", role)
		return out, out.Err
	}

	logger := p.log.WithFields(logrus.Fields{"role": role, "bytes": len(image)})

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	raw, err := p.recognizer.Recognize(ctx, image, KindFor(role))
	out.Duration = time.Since(start)
	if p.observer != nil {
		p.observer.ObserveRecognition(string(role), start, err)
	}
	if err != nil {
		logger.WithError(err).WithField("duration", out.Duration).Warn("Document recognition failed")
		out.Err = fmt.Errorf("error processing %s: %w", role, err)
		return out, out.Err
	}

	if role.IsPerson() {
		rec := records.NormalizePerson(raw)
		out.Person = &rec
	} else {
		rec := records.NormalizeVehicle(raw)
		out.Vehicle = &rec
	}

	logger.WithField("duration", out.Duration).Info("Document processed")
	return out, nil
}

// ProcessAll processes every upload concurrently. A failed role is recorded
// in its outcome and does not cancel the others. The error is non-nil only
// when uploads were given and all of them failed, or when a role repeats.
func (p *Processor) ProcessAll(ctx context.Context, uploads []Upload) (Result, error) {
	seen := make(map[records.Role]bool, len(uploads))
	for _, u := range uploads {
		if seen[u.Role] {
			return Result{Outcomes: map[records.Role]Outcome{}}, fmt.Errorf("%w: %s", ErrDuplicateRole, u.Role)
		}
		seen[u.Role] = true
	}

	outcomes := make([]Outcome, len(uploads))

	// failures live in the outcomes; no goroutine returns an error
	var g errgroup.Group
	g.SetLimit(len(records.Roles))
	for i, u := range uploads {
		g.Go(func() error {
			outcomes[i], _ = p.ProcessImage(ctx, u.Role, u.Image)
			return nil
		})
	}
	_ = g.Wait()

	result := Result{Outcomes: make(map[records.Role]Outcome, len(outcomes))}
	failed := 0
	for _, o := range outcomes {
		result.Outcomes[o.Role] = o
		if o.Err != nil {
			failed++
		}
	}

	if len(uploads) > 0 && failed == len(uploads) {
		return result, ErrAllRolesFailed
	}
	return result, nil
}
