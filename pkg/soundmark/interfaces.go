package soundmark

import (
	"context"

	"github.com/himanishpuri/soundmark/pkg/models"
	"github.com/himanishpuri/soundmark/pkg/soundmark/fingerprint"
)

type Service interface {
	// AddSong fingerprints one file and stores it. An empty title is
	// derived from the file name.
	AddSong(ctx context.Context, audioPath, title string) (uint32, error)
	// IndexDirectory fingerprints every supported file directly inside dir.
	// Any analysis failure aborts the batch before anything is written.
	IndexDirectory(ctx context.Context, dir string) (*IndexReport, error)
	Search(ctx context.Context, audioPath string, rank int) ([]models.RankingResult, error)
	// SearchFingerprints ranks songs against fingerprints computed elsewhere
	// with the same pipeline parameters.
	SearchFingerprints(ctx context.Context, fps []models.Fingerprint, rank int) ([]models.RankingResult, error)
	GetSongByID(ctx context.Context, songID uint32) (*models.Song, error)
	// FingerprintCount returns how many records are stored for a song.
	FingerprintCount(ctx context.Context, songID uint32) (int, error)
	ListSongs(ctx context.Context) ([]models.Song, error)
	DeleteSong(ctx context.Context, songID uint32) error
	Stats(ctx context.Context) (models.Stats, error)
	Pipeline() fingerprint.Pipeline
	Close() error
}

type Storage interface {
	RegisterSong(ctx context.Context, title, checksum string, durationMs int) (uint32, error)
	StoreFingerprints(ctx context.Context, records []models.FingerprintRecord) error
	LookupByAddresses(ctx context.Context, addresses []uint32) ([]models.FingerprintRecord, error)
	GetSongByID(ctx context.Context, songID uint32) (*models.Song, error)
	FindSongByChecksum(ctx context.Context, checksum string) (*models.Song, error)
	ListSongs(ctx context.Context) ([]models.Song, error)
	DeleteSongByID(ctx context.Context, songID uint32) error
	GetFingerprintCount(ctx context.Context, songID uint32) (int, error)
	Stats(ctx context.Context) (models.Stats, error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
