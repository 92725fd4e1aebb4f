package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"parking-anpr-service/internal/domain/recognition"
	"parking-anpr-service/internal/recognizer"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrBusy         = errors.New("a recognition is already in progress")
)

// PreviewStore uploads the submitted image so the presentation layer can
// show it next to the result. Upload failures never fail a recognition.
type PreviewStore interface {
	UploadPreview(ctx context.Context, image []byte, mimeType string) (string, error)
}

// Outcome is what one completed orchestration hands to the presentation
// layer: the normalized result, its display status, the preview reference
// and, when persistence succeeded, the billed record.
type Outcome struct {
	Result     *recognition.Result
	Status     recognition.Status
	PreviewURL string
	Record     *recognition.BilledRecord
}

// RecognitionService orchestrates one recognition per user action: it
// validates the intake, guards against a second in-flight request with an
// advisory process-local flag, runs the fallback recognizer and hands the
// outcome to billing. It performs no durable writes itself.
type RecognitionService struct {
	recognizer recognizer.Recognizer
	billing    *BillingService
	previews   PreviewStore
	busy       atomic.Bool
	log        zerolog.Logger
}

func NewRecognitionService(rec recognizer.Recognizer, billing *BillingService, previews PreviewStore, log zerolog.Logger) *RecognitionService {
	return &RecognitionService{
		recognizer: rec,
		billing:    billing,
		previews:   previews,
		log:        log,
	}
}

// Status reports the advisory processing state for the presentation
// layer: processing while a recognition is in flight, ready otherwise.
func (s *RecognitionService) Status() recognition.Status {
	if s.busy.Load() {
		return recognition.StatusProcessing
	}
	return recognition.StatusReady
}

// ProcessImage runs one full recognition-and-billing pass. A persistence
// failure returns both the outcome (with the in-memory result retained for
// retry) and an ErrPersistence-wrapped error.
func (s *RecognitionService) ProcessImage(ctx context.Context, req recognition.Request) (*Outcome, error) {
	if len(req.Image) == 0 {
		return nil, fmt.Errorf("%w: image payload is required", ErrInvalidInput)
	}
	if !strings.HasPrefix(strings.ToLower(req.MimeType), "image/") {
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrInvalidInput, req.MimeType)
	}

	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.busy.Store(false)

	s.log.Info().
		Str("filename", req.Filename).
		Str("mime_type", req.MimeType).
		Int("size", len(req.Image)).
		Msg("processing recognition request")

	previewURL := s.uploadPreview(ctx, req)

	result, err := s.recognizer.Recognize(ctx, req)
	if err != nil {
		// The fallback recognizer recovers every expected failure; treat
		// anything else as a degraded result rather than crashing the session.
		s.log.Error().Err(err).Msg("recognizer returned an unexpected error")
		result = &recognition.Result{
			PlateNumber:       recognition.PlateError,
			CountryIdentifier: recognition.CountryUnknown,
			Confidence:        0.5,
			Origin:            recognition.OriginLocal,
		}
	}

	s.log.Info().
		Str("plate", result.PlateNumber).
		Str("country", result.CountryIdentifier).
		Float64("confidence", result.Confidence).
		Str("origin", string(result.Origin)).
		Msg("recognition completed")

	outcome := &Outcome{
		Result:     result,
		Status:     result.Status(),
		PreviewURL: previewURL,
	}

	record, err := s.billing.Bill(ctx, result, previewURL, req.Filename)
	if err != nil {
		return outcome, err
	}

	outcome.Record = record
	return outcome, nil
}

func (s *RecognitionService) uploadPreview(ctx context.Context, req recognition.Request) string {
	if s.previews == nil {
		return ""
	}

	url, err := s.previews.UploadPreview(ctx, req.Image, req.MimeType)
	if err != nil {
		s.log.Warn().Err(err).Msg("preview upload failed, continuing without preview")
		return ""
	}
	return url
}
