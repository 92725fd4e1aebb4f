package recognizer

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"parking-anpr-service/internal/domain/recognition"
)

// FallbackRecognizer composes the remote client and the local heuristic
// engine behind one contract: try remote first, recover any remote
// failure locally, and always hand the caller a fully-populated result.
// Transport failures never leak upward.
type FallbackRecognizer struct {
	remote Recognizer
	local  Recognizer
	log    zerolog.Logger
}

func NewFallbackRecognizer(remote, local Recognizer, log zerolog.Logger) *FallbackRecognizer {
	return &FallbackRecognizer{
		remote: remote,
		local:  local,
		log:    log,
	}
}

func (f *FallbackRecognizer) Recognize(ctx context.Context, req recognition.Request) (*recognition.Result, error) {
	result, err := f.remote.Recognize(ctx, req)
	if err == nil {
		return normalize(result), nil
	}

	if !errors.Is(err, ErrRemoteUnavailable) {
		f.log.Warn().Err(err).Msg("remote recognizer failed with unexpected error, falling back locally")
	} else {
		f.log.Info().Err(err).Msg("remote recognizer unavailable, falling back to local heuristics")
	}

	result, err = f.local.Recognize(ctx, req)
	if err != nil {
		// The local engine degrades instead of failing; an error here is a
		// programming fault, so still hand back a usable result.
		f.log.Error().Err(err).Msg("local recognizer returned an error")
		return &recognition.Result{
			PlateNumber:       recognition.PlateError,
			CountryIdentifier: recognition.CountryUnknown,
			Confidence:        0.5,
			Origin:            recognition.OriginLocal,
		}, nil
	}

	return normalize(result), nil
}

// normalize defaults any missing upstream fields so callers always see a
// fully-populated result.
func normalize(result *recognition.Result) *recognition.Result {
	if result.PlateNumber == "" {
		result.PlateNumber = recognition.PlateUnknown
	}
	if result.CountryIdentifier == "" {
		result.CountryIdentifier = recognition.CountryUnknown
	}
	if result.Confidence == 0 {
		result.Confidence = 0.5
	}
	return result
}
