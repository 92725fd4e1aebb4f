package recognition

import (
	"time"

	"github.com/google/uuid"
)

// Sentinel plate values used when recognition cannot produce a real plate.
const (
	PlateUnknown   = "UNKNOWN"
	PlateError     = "ERROR"
	CountryUnknown = "UNKNOWN"
)

// Origin marks which recognizer produced a result.
type Origin string

const (
	OriginRemote Origin = "remote"
	OriginLocal  Origin = "local"
)

// Status is the presentation status derived from a result.
type Status string

const (
	StatusReady      Status = "ready"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusWarning    Status = "warning"
	StatusError      Status = "error"
)

// Request carries one validated vehicle image through a single
// recognition attempt. It is owned by the orchestrator for the duration
// of that attempt and never stored.
type Request struct {
	Image    []byte
	MimeType string
	Filename string
}

// Result is the normalized outcome of one recognition attempt.
type Result struct {
	PlateNumber       string  `json:"plate_number"`
	CountryIdentifier string  `json:"country_identifier"`
	Confidence        float64 `json:"confidence"`
	Origin            Origin  `json:"origin"`
}

// Status maps the result onto the presentation status enum: a real plate
// is a success, UNKNOWN is a warning, ERROR means the image could not be
// processed at all.
func (r Result) Status() Status {
	switch r.PlateNumber {
	case PlateError:
		return StatusError
	case PlateUnknown:
		return StatusWarning
	default:
		return StatusSuccess
	}
}

// BilledRecord is the durable outcome of one orchestration: the
// recognition result plus the synthetic dwell/fee derivation. Records are
// append-only; there is no update or delete path.
type BilledRecord struct {
	ID                uuid.UUID `json:"id"`
	PlateNumber       string    `json:"plate_number"`
	CountryIdentifier string    `json:"country_identifier"`
	Confidence        float64   `json:"confidence"`
	Origin            Origin    `json:"origin"`
	DwellSeconds      int       `json:"dwell_seconds"`
	Fee               float64   `json:"fee"`
	Status            string    `json:"status"`
	PreviewURL        string    `json:"preview_url,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}
