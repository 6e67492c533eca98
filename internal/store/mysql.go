package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// trackRow is the shipment_tracks table.
type trackRow struct {
	StoreID           int    `gorm:"primaryKey;autoIncrement:false"`
	TrackNumber       string `gorm:"primaryKey;size:64"`
	ReturnTrackNumber string `gorm:"size:64"`
	OrderRef          string `gorm:"size:64;index"`
	ShipmentRef       string `gorm:"size:64"`
	Status            string `gorm:"size:16"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (trackRow) TableName() string {
	return "shipment_tracks"
}

// MySQLStore is a TrackStore backed by MySQL.
type MySQLStore struct {
	db *gorm.DB
}

// NewMySQLStore connects to dsn and migrates the tracks table.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&trackRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tracks table: %w", err)
	}
	return &MySQLStore{db: db}, nil
}

// NewMySQLStoreWithDB wraps an open connection.
func NewMySQLStoreWithDB(db *gorm.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func (s *MySQLStore) SaveTracks(ctx context.Context, tracks []Track) error {
	if len(tracks) == 0 {
		return nil
	}
	rows := make([]trackRow, 0, len(tracks))
	for _, t := range tracks {
		rows = append(rows, trackRow{
			StoreID:           t.StoreID,
			TrackNumber:       t.TrackNumber,
			ReturnTrackNumber: t.ReturnTrackNumber,
			OrderRef:          t.OrderRef,
			ShipmentRef:       t.ShipmentRef,
			Status:            t.Status,
		})
	}

	result := s.db.WithContext(ctx).
		Clauses(s.upsert()).
		Create(&rows)
	if result.Error != nil {
		return fmt.Errorf("failed to save tracks: %w", result.Error)
	}
	return nil
}

func (s *MySQLStore) upsert() clause.OnConflict {
	return clause.OnConflict{
		DoUpdates: clause.AssignmentColumns([]string{"return_track_number", "order_ref", "shipment_ref", "status", "updated_at"}),
	}
}

func (s *MySQLStore) MarkCancelled(ctx context.Context, storeID int, trackNumbers []string) error {
	if len(trackNumbers) == 0 {
		return nil
	}
	result := s.db.WithContext(ctx).
		Model(&trackRow{}).
		Where("store_id = ? AND track_number IN ?", storeID, trackNumbers).
		Update("status", StatusCancelled)
	if result.Error != nil {
		return fmt.Errorf("failed to cancel tracks: %w", result.Error)
	}
	return nil
}

func (s *MySQLStore) GetTrack(ctx context.Context, storeID int, trackNumber string) (*Track, error) {
	var row trackRow
	result := s.db.WithContext(ctx).
		Where("store_id = ? AND track_number = ?", storeID, trackNumber).
		First(&row)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrTrackNotFound
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get track: %w", result.Error)
	}
	return &Track{
		StoreID:           row.StoreID,
		TrackNumber:       row.TrackNumber,
		ReturnTrackNumber: row.ReturnTrackNumber,
		OrderRef:          row.OrderRef,
		ShipmentRef:       row.ShipmentRef,
		Status:            row.Status,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}, nil
}

// Close closes the database connection.
func (s *MySQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
