package recognizer

import (
	"context"
	"errors"

	"parking-anpr-service/internal/domain/recognition"
)

// ErrRemoteUnavailable is the single failure class a remote attempt can
// produce. Connection errors, timeouts, non-success statuses and error
// payloads all collapse into it; the fallback path is the same regardless
// of cause.
var ErrRemoteUnavailable = errors.New("remote recognition service unavailable")

// Recognizer is the capability shared by the remote client, the local
// heuristic engine and the fallback composition of the two.
type Recognizer interface {
	Recognize(ctx context.Context, req recognition.Request) (*recognition.Result, error)
}
