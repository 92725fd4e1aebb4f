package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"parking-anpr-service/internal/repository"
	"parking-anpr-service/internal/utils"
)

// RecordService is the read surface over persisted plate records for the
// parking office screens.
type RecordService struct {
	repo *repository.PlateRepository
	log  zerolog.Logger
}

func NewRecordService(repo *repository.PlateRepository, log zerolog.Logger) *RecordService {
	return &RecordService{repo: repo, log: log}
}

type RecordInfo struct {
	ID                string    `json:"id"`
	PlateNumber       string    `json:"plate_number"`
	CountryIdentifier string    `json:"country_identifier"`
	Confidence        float64   `json:"confidence"`
	Origin            string    `json:"origin"`
	DwellSeconds      int       `json:"dwell_seconds"`
	Fee               float64   `json:"fee"`
	Status            string    `json:"status"`
	PreviewURL        *string   `json:"preview_url,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

func (s *RecordService) FindRecords(ctx context.Context, plateQuery *string, from, to *string, limit, offset int) ([]RecordInfo, error) {
	var normalizedPlate *string
	if plateQuery != nil {
		normalized := utils.NormalizePlate(*plateQuery)
		if normalized != "" {
			normalizedPlate = &normalized
		}
	}

	fromTime, toTime, err := parseTimeRange(from, to)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	records, err := s.repo.FindRecords(ctx, normalizedPlate, fromTime, toTime, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to find plate records: %w", err)
	}

	result := make([]RecordInfo, 0, len(records))
	for _, r := range records {
		result = append(result, RecordInfo{
			ID:                r.ID.String(),
			PlateNumber:       r.PlateNumber,
			CountryIdentifier: r.CountryIdentifier,
			Confidence:        r.Confidence,
			Origin:            r.Origin,
			DwellSeconds:      r.DwellSeconds,
			Fee:               r.Fee,
			Status:            r.Status,
			PreviewURL:        r.PreviewURL,
			CreatedAt:         r.CreatedAt,
		})
	}

	return result, nil
}

func (s *RecordService) Summarize(ctx context.Context, from, to *string) (*repository.RecordSummary, error) {
	fromTime, toTime, err := parseTimeRange(from, to)
	if err != nil {
		return nil, err
	}

	summary, err := s.repo.Summarize(ctx, fromTime, toTime)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize plate records: %w", err)
	}
	return summary, nil
}

func parseTimeRange(from, to *string) (*time.Time, *time.Time, error) {
	var fromTime, toTime *time.Time
	if from != nil && *from != "" {
		t, err := time.Parse(time.RFC3339, *from)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: invalid from time format", ErrInvalidInput)
		}
		fromTime = &t
	}
	if to != nil && *to != "" {
		t, err := time.Parse(time.RFC3339, *to)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: invalid to time format", ErrInvalidInput)
		}
		toTime = &t
	}
	return fromTime, toTime, nil
}
