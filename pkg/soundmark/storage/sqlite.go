//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/himanishpuri/soundmark/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	DefaultDBFile = "soundmark.sqlite3"

	// insertBatchSize keeps each multi-row INSERT well under SQLite's
	// bound-parameter limit (4 columns per row).
	insertBatchSize = 500
	// lookupChunkSize bounds the size of each "address IN (...)" list.
	lookupChunkSize = 500
)

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

type Song struct {
	ID         uint32 `gorm:"primaryKey;autoIncrement"`
	Title      string `gorm:"index:idx_song_title"`
	Checksum   string `gorm:"index:idx_song_checksum"`
	DurationMs int
	CreatedAt  time.Time
}

// Fingerprint rows are keyed on all four columns, so re-inserting a record
// is a no-op. Address leads the key so lookups by address use it directly.
type Fingerprint struct {
	Address       uint32 `gorm:"primaryKey;autoIncrement:false"`
	AnchorAddress uint32 `gorm:"primaryKey;autoIncrement:false"`
	AnchorTime    uint32 `gorm:"primaryKey;autoIncrement:false"`
	SongID        uint32 `gorm:"primaryKey;autoIncrement:false;index:idx_fingerprint_song"`
}

func (s Song) model() models.Song {
	return models.Song{
		ID:         s.ID,
		Title:      s.Title,
		Checksum:   s.Checksum,
		DurationMs: s.DurationMs,
		CreatedAt:  s.CreatedAt,
	}
}

// NewDBClient opens the database named by SOUNDMARK_DB_PATH, or
// DefaultDBFile in the working directory.
func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("SOUNDMARK_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Song{}, &Fingerprint{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// RegisterSong inserts a song row and returns its assigned id.
func (c *DBClient) RegisterSong(ctx context.Context, title, checksum string, durationMs int) (uint32, error) {
	song := Song{Title: title, Checksum: checksum, DurationMs: durationMs}
	res := c.DB.WithContext(ctx).Create(&song)
	if res.Error != nil {
		return 0, wrapErr(fmt.Sprintf("registering song %q", title), res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("%w: registering song %q: no rows affected", models.ErrStorage, title)
	}
	return song.ID, nil
}

// StoreFingerprints writes records in a single transaction. Records that
// already exist are skipped.
func (c *DBClient) StoreFingerprints(ctx context.Context, records []models.FingerprintRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]Fingerprint, len(records))
	for i, r := range records {
		rows[i] = Fingerprint{
			Address:       r.Address,
			AnchorAddress: r.AnchorAddress,
			AnchorTime:    r.AnchorTime,
			SongID:        r.SongID,
		}
	}

	err := c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, insertBatchSize).Error
	})
	if err != nil {
		return wrapErr(fmt.Sprintf("storing %d fingerprints", len(records)), err)
	}
	return nil
}

// LookupByAddresses returns every record whose address is in addresses.
// All chunks are read inside one transaction.
func (c *DBClient) LookupByAddresses(ctx context.Context, addresses []uint32) ([]models.FingerprintRecord, error) {
	if len(addresses) == 0 {
		return nil, nil
	}

	var out []models.FingerprintRecord
	err := c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for start := 0; start < len(addresses); start += lookupChunkSize {
			chunk := addresses[start:min(start+lookupChunkSize, len(addresses))]

			var rows []Fingerprint
			if err := tx.Where("address IN ?", chunk).Find(&rows).Error; err != nil {
				return err
			}
			for _, r := range rows {
				out = append(out, models.FingerprintRecord{
					Fingerprint: models.Fingerprint{
						Address:       r.Address,
						AnchorAddress: r.AnchorAddress,
						AnchorTime:    r.AnchorTime,
					},
					SongID: r.SongID,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("looking up %d addresses", len(addresses)), err)
	}
	return out, nil
}

func (c *DBClient) GetSongByID(ctx context.Context, id uint32) (*models.Song, error) {
	var song Song
	if err := c.DB.WithContext(ctx).First(&song, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", models.ErrSongNotFound, id)
		}
		return nil, wrapErr(fmt.Sprintf("getting song %d", id), err)
	}
	m := song.model()
	return &m, nil
}

// FindSongByChecksum returns the first song registered with checksum.
func (c *DBClient) FindSongByChecksum(ctx context.Context, checksum string) (*models.Song, error) {
	var song Song
	err := c.DB.WithContext(ctx).Where("checksum = ?", checksum).Order("id").First(&song).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: checksum %s", models.ErrSongNotFound, checksum)
		}
		return nil, wrapErr("finding song by checksum", err)
	}
	m := song.model()
	return &m, nil
}

func (c *DBClient) ListSongs(ctx context.Context) ([]models.Song, error) {
	var rows []Song
	if err := c.DB.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, wrapErr("listing songs", err)
	}

	songs := make([]models.Song, len(rows))
	for i, s := range rows {
		songs[i] = s.model()
	}
	return songs, nil
}

// DeleteSongByID removes a song and all of its fingerprints.
func (c *DBClient) DeleteSongByID(ctx context.Context, id uint32) error {
	err := c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("song_id = ?", id).Delete(&Fingerprint{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&Song{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: id %d", models.ErrSongNotFound, id)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrSongNotFound) {
			return err
		}
		return wrapErr(fmt.Sprintf("deleting song %d", id), err)
	}
	return nil
}

func (c *DBClient) GetFingerprintCount(ctx context.Context, songID uint32) (int, error) {
	var count int64
	if err := c.DB.WithContext(ctx).Model(&Fingerprint{}).Where("song_id = ?", songID).Count(&count).Error; err != nil {
		return 0, wrapErr(fmt.Sprintf("counting fingerprints of song %d", songID), err)
	}
	return int(count), nil
}

func (c *DBClient) Stats(ctx context.Context) (models.Stats, error) {
	var st models.Stats
	db := c.DB.WithContext(ctx)
	if err := db.Model(&Song{}).Count(&st.Songs).Error; err != nil {
		return st, wrapErr("counting songs", err)
	}
	if err := db.Model(&Fingerprint{}).Count(&st.Fingerprints).Error; err != nil {
		return st, wrapErr("counting fingerprints", err)
	}
	return st, nil
}
