package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,

	// plate_records is append-only: one row per completed recognition,
	// no update or delete path.
	`CREATE TABLE IF NOT EXISTS plate_records (
		id                  UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		plate_number        TEXT NOT NULL,
		normalized_plate    TEXT NOT NULL,
		country_identifier  TEXT NOT NULL,
		confidence          DOUBLE PRECISION NOT NULL,
		origin              TEXT NOT NULL,
		dwell_seconds       INT NOT NULL,
		fee                 NUMERIC(10,2) NOT NULL,
		status              TEXT NOT NULL DEFAULT 'complete',
		preview_url         TEXT,
		raw_result          JSONB,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT chk_plate_records_dwell CHECK (dwell_seconds BETWEEN 1 AND 20),
		CONSTRAINT chk_plate_records_confidence CHECK (confidence >= 0 AND confidence <= 1)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_plate_records_normalized_plate ON plate_records(normalized_plate);`,
	`CREATE INDEX IF NOT EXISTS idx_plate_records_created_at ON plate_records(created_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_plate_records_origin ON plate_records(origin);`,
	`CREATE INDEX IF NOT EXISTS idx_plate_records_normalized_plate_time ON plate_records(normalized_plate, created_at DESC);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
