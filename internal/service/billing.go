package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"

	"parking-anpr-service/internal/domain/recognition"
)

// ErrPersistence marks a failed durable write. The recognition result is
// still handed back to the caller so the save can be retried.
var ErrPersistence = errors.New("failed to persist plate record")

const (
	minDwellSeconds = 1
	maxDwellSeconds = 20

	recordStatusComplete = "complete"
)

// PlateStore is the single writer of durable plate records.
type PlateStore interface {
	CreateRecord(ctx context.Context, record *recognition.BilledRecord, rawResult map[string]interface{}) error
}

// BillingService derives a synthetic dwell duration and fee from every
// recognition outcome and appends one immutable record. UNKNOWN outcomes
// are billable: a processed upload counts even when nothing was found.
type BillingService struct {
	store PlateStore
	rate  float64
	rng   *rand.Rand
	log   zerolog.Logger
}

func NewBillingService(store PlateStore, ratePerSecond float64, rng *rand.Rand, log zerolog.Logger) *BillingService {
	return &BillingService{
		store: store,
		rate:  ratePerSecond,
		rng:   rng,
		log:   log,
	}
}

// Bill generates the dwell/fee pair, writes the record and returns it.
// On a write failure no partial record exists and ErrPersistence is
// returned wrapped.
func (b *BillingService) Bill(ctx context.Context, result *recognition.Result, previewURL, filename string) (*recognition.BilledRecord, error) {
	dwell := minDwellSeconds + b.rng.Intn(maxDwellSeconds-minDwellSeconds+1)
	fee := float64(dwell) * b.rate

	record := &recognition.BilledRecord{
		PlateNumber:       result.PlateNumber,
		CountryIdentifier: result.CountryIdentifier,
		Confidence:        result.Confidence,
		Origin:            result.Origin,
		DwellSeconds:      dwell,
		Fee:               fee,
		Status:            recordStatusComplete,
		PreviewURL:        previewURL,
	}

	rawResult := map[string]interface{}{
		"origin":     string(result.Origin),
		"confidence": result.Confidence,
	}
	if filename != "" {
		rawResult["filename"] = filename
	}

	if err := b.store.CreateRecord(ctx, record, rawResult); err != nil {
		b.log.Error().
			Err(err).
			Str("plate", result.PlateNumber).
			Msg("failed to persist plate record")
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	b.log.Info().
		Str("record_id", record.ID.String()).
		Str("plate", record.PlateNumber).
		Int("dwell_seconds", record.DwellSeconds).
		Float64("fee", record.Fee).
		Msg("billed plate record saved")

	return record, nil
}
