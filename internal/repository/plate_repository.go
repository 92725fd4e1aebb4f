package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"parking-anpr-service/internal/domain/recognition"
	"parking-anpr-service/internal/utils"
)

type PlateRepository struct {
	db *gorm.DB
}

func NewPlateRepository(db *gorm.DB) *PlateRepository {
	return &PlateRepository{db: db}
}

func (PlateRecord) TableName() string {
	return "plate_records"
}

type PlateRecord struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	PlateNumber       string    `gorm:"not null"`
	NormalizedPlate   string    `gorm:"not null"`
	CountryIdentifier string    `gorm:"not null"`
	Confidence        float64   `gorm:"not null"`
	Origin            string    `gorm:"not null"`
	DwellSeconds      int       `gorm:"not null"`
	Fee               float64   `gorm:"not null"`
	Status            string    `gorm:"not null"`
	PreviewURL        *string
	RawResult         datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt         time.Time
}

// CreateRecord appends one immutable billed record. The assigned ID and
// creation timestamp are written back into the domain record.
func (r *PlateRepository) CreateRecord(ctx context.Context, record *recognition.BilledRecord, rawResult map[string]interface{}) error {
	dbRecord := PlateRecord{
		ID:                uuid.New(),
		PlateNumber:       record.PlateNumber,
		NormalizedPlate:   utils.NormalizePlate(record.PlateNumber),
		CountryIdentifier: record.CountryIdentifier,
		Confidence:        record.Confidence,
		Origin:            string(record.Origin),
		DwellSeconds:      record.DwellSeconds,
		Fee:               record.Fee,
		Status:            record.Status,
		CreatedAt:         time.Now(),
	}

	if record.PreviewURL != "" {
		dbRecord.PreviewURL = &record.PreviewURL
	}
	if len(rawResult) > 0 {
		raw, err := json.Marshal(rawResult)
		if err != nil {
			return fmt.Errorf("marshal raw result: %w", err)
		}
		dbRecord.RawResult = datatypes.JSON(raw)
	}

	if err := r.db.WithContext(ctx).Create(&dbRecord).Error; err != nil {
		return fmt.Errorf("failed to create plate record: %w", err)
	}

	record.ID = dbRecord.ID
	record.CreatedAt = dbRecord.CreatedAt
	return nil
}

func (r *PlateRepository) FindRecords(ctx context.Context, normalizedPlate *string, from, to *time.Time, limit, offset int) ([]PlateRecord, error) {
	query := r.db.WithContext(ctx).Model(&PlateRecord{})

	if normalizedPlate != nil {
		query = query.Where("normalized_plate = ?", *normalizedPlate)
	}
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at <= ?", *to)
	}

	query = query.Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var records []PlateRecord
	err := query.Find(&records).Error
	return records, err
}

type RecordSummary struct {
	TotalRecords int64   `json:"total_records"`
	TotalFees    float64 `json:"total_fees"`
	RemoteCount  int64   `json:"remote_count"`
	LocalCount   int64   `json:"local_count"`
}

func (r *PlateRepository) Summarize(ctx context.Context, from, to *time.Time) (*RecordSummary, error) {
	query := r.db.WithContext(ctx).Model(&PlateRecord{})
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at <= ?", *to)
	}

	var summary RecordSummary
	err := query.
		Select(`COUNT(*) as total_records,
			COALESCE(SUM(fee), 0) as total_fees,
			COUNT(*) FILTER (WHERE origin = 'remote') as remote_count,
			COUNT(*) FILTER (WHERE origin = 'local') as local_count`).
		Scan(&summary).Error
	if err != nil {
		return nil, fmt.Errorf("summarize plate records: %w", err)
	}

	return &summary, nil
}
