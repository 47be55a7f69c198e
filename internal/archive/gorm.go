package archive

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type roomRecord struct {
	ID          uint   `gorm:"primaryKey"`
	RoomID      string `gorm:"uniqueIndex"`
	RoomName    string
	CompletedAt int64
	Teams       []teamRecord `gorm:"foreignKey:RoomRecordID"`
}

type teamRecord struct {
	ID           uint `gorm:"primaryKey"`
	RoomRecordID uint `gorm:"index"`
	TeamID       string
	Name         string
	OwnerName    string
	Spent        int
	Remaining    int
	RosterSize   int
}

// GormStore persists records to Postgres.
type GormStore struct {
	db *gorm.DB
}

// OpenGorm connects and migrates the archive tables.
func OpenGorm(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open archive db: %w", err)
	}
	if err := db.AutoMigrate(&roomRecord{}, &teamRecord{}); err != nil {
		return nil, fmt.Errorf("migrate archive tables: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Archive(ctx context.Context, rec Record) error {
	row := roomRecord{
		RoomID:      rec.RoomID,
		RoomName:    rec.RoomName,
		CompletedAt: rec.CompletedAt.UnixMilli(),
	}
	for _, t := range rec.Teams {
		row.Teams = append(row.Teams, teamRecord{
			TeamID:     t.TeamID,
			Name:       t.Name,
			OwnerName:  t.OwnerName,
			Spent:      t.Spent,
			Remaining:  t.Remaining,
			RosterSize: t.RosterSize,
		})
	}
	return s.db.WithContext(ctx).Create(&row).Error
}
