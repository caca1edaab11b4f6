// Package storage provides SQLite-backed implementations of the
// calibration and inspection history stores. The numeric core never
// touches these directly; they sit behind the ports interfaces so the
// calibrator and metrics engine stay pure functions of their inputs.
package storage

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens (or creates) the SQLite database at path and migrates the
// history tables. Use ":memory:" for an ephemeral store in tests.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %s: %w", path, err)
	}
	if err := db.AutoMigrate(&calibrationRecordModel{}, &inspectionRecordModel{}); err != nil {
		return nil, fmt.Errorf("migrating history schema: %w", err)
	}
	return db, nil
}

// calibrationRecordModel is the persisted form of a held-out
// calibration observation.
type calibrationRecordModel struct {
	ID         uint      `gorm:"primaryKey"`
	CreatedAt  time.Time `gorm:"index"`
	Confidence float64
	Correct    bool
	// Logits is a JSON-encoded []float64; empty for ECE-only records.
	Logits    string
	TrueLabel int
}

// inspectionRecordModel is the persisted form of one inspection
// (prediction, ground truth) pair. Boxes and masks are JSON-encoded;
// the window queries never filter on their contents.
type inspectionRecordModel struct {
	ID             string    `gorm:"primaryKey"`
	CapturedAt     time.Time `gorm:"index"`
	PredictedLabel string
	TrueLabel      string
	Confidence     float64
	PredictedBoxes string
	TrueBoxes      string
	PredictedMask  string
	TrueMask       string
}
