package services

import (
	"errors"
	"fmt"
	"sync"

	"github.com/testathon/shopcheck/internal/models"
	"go.uber.org/zap"
)

// Recorder collects the findings of one scenario
type Recorder struct {
	scenario string
	log      *zap.Logger

	mu       sync.Mutex
	findings []models.Finding
}

// NewRecorder creates a recorder for the named scenario
func NewRecorder(scenario string, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{scenario: scenario, log: log.With(zap.String("scenario", scenario))}
}

// Pass records a satisfied expectation
func (r *Recorder) Pass(feature models.Feature, format string, args ...any) {
	r.add(models.FindingPass, feature, fmt.Sprintf(format, args...))
}

// Fail records a violated expectation
func (r *Recorder) Fail(feature models.Feature, format string, args ...any) {
	r.add(models.FindingFail, feature, fmt.Sprintf(format, args...))
}

// Absent records that the page does not offer a feature
func (r *Recorder) Absent(feature models.Feature, format string, args ...any) {
	r.add(models.FindingAbsent, feature, fmt.Sprintf(format, args...))
}

// Error records an operation that could not be carried out
func (r *Recorder) Error(feature models.Feature, err error) {
	r.add(models.FindingError, feature, err.Error())
}

// Check records a pass when ok holds and a fail otherwise, and returns ok
func (r *Recorder) Check(ok bool, feature models.Feature, format string, args ...any) bool {
	if ok {
		r.Pass(feature, format, args...)
	} else {
		r.Fail(feature, format, args...)
	}
	return ok
}

// Capability records an absent or errored capability and reports whether
// the feature is present
func (r *Recorder) Capability(c models.Capability) bool {
	switch c.Status {
	case models.CapabilityPresent:
		return true
	case models.CapabilityAbsent:
		r.Absent(c.Feature, "%s", c.Detail)
	default:
		err := c.Err
		if err == nil {
			err = errors.New(c.Detail)
		}
		r.Error(c.Feature, err)
	}
	return false
}

// Findings returns a copy of everything recorded so far
func (r *Recorder) Findings() []models.Finding {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Finding(nil), r.findings...)
}

// Failed reports whether any fail or error finding was recorded
func (r *Recorder) Failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.findings {
		if f.Kind == models.FindingFail || f.Kind == models.FindingError {
			return true
		}
	}
	return false
}

func (r *Recorder) add(kind models.FindingKind, feature models.Feature, message string) {
	f, err := models.NewFinding(r.scenario, kind, feature, message)
	if err != nil {
		r.log.Error("dropping finding", zap.Error(err))
		return
	}

	fields := []zap.Field{zap.String("kind", string(kind)), zap.String("feature", string(feature))}
	switch kind {
	case models.FindingFail, models.FindingError:
		r.log.Warn(message, fields...)
	default:
		r.log.Info(message, fields...)
	}

	r.mu.Lock()
	r.findings = append(r.findings, f)
	r.mu.Unlock()
}
