package soundmark

import (
	"context"
	"errors"
	"fmt"

	"github.com/himanishpuri/soundmark/pkg/logger"
	"github.com/himanishpuri/soundmark/pkg/models"
	"github.com/himanishpuri/soundmark/pkg/soundmark/audio"
	"github.com/himanishpuri/soundmark/pkg/soundmark/fingerprint"
	"github.com/himanishpuri/soundmark/pkg/soundmark/matcher"
	"github.com/himanishpuri/soundmark/pkg/utils"
)

// soundmarkService is the default implementation of the Service interface.
type soundmarkService struct {
	storage Storage
	matcher *matcher.Matcher
	log     Logger
	config  *Config
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if !cfg.Pipeline.WindowSize.Valid() || cfg.Pipeline.Overlap < 0 || cfg.Pipeline.Overlap >= int(cfg.Pipeline.WindowSize) {
		return nil, fmt.Errorf("%w: window %d with overlap %d", models.ErrContractViolation,
			cfg.Pipeline.WindowSize, cfg.Pipeline.Overlap)
	}
	if cfg.Pipeline.DownsampleFactor < 1 || cfg.Pipeline.NeighborhoodSize < 1 {
		return nil, fmt.Errorf("%w: downsample factor %d, neighborhood size %d", models.ErrContractViolation,
			cfg.Pipeline.DownsampleFactor, cfg.Pipeline.NeighborhoodSize)
	}

	stor := cfg.Storage
	if stor == nil {
		var err error
		stor, err = openStorage(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	return &soundmarkService{
		storage: stor,
		matcher: matcher.New(stor, matcher.Config{
			NeighborhoodSize: cfg.Pipeline.NeighborhoodSize,
			Logger:           cfg.Logger,
		}),
		log:    cfg.Logger,
		config: cfg,
	}, nil
}

// AddSong fingerprints a single file. A file whose content is already
// indexed is not stored twice; the existing id is returned.
func (s *soundmarkService) AddSong(ctx context.Context, audioPath, title string) (uint32, error) {
	if title == "" {
		title = utils.TitleFromPath(audioPath)
	}
	s.log.Infof("Processing song: %s", title)

	sum, err := fileChecksum(audioPath)
	if err != nil {
		return 0, err
	}
	if existing, err := s.storage.FindSongByChecksum(ctx, sum); err == nil {
		s.log.Infof("%s already indexed as song ID=%d (%s)", audioPath, existing.ID, existing.Title)
		return existing.ID, nil
	} else if !errors.Is(err, models.ErrSongNotFound) {
		return 0, fmt.Errorf("checking for existing song: %w", err)
	}

	a, err := s.analyse(audioPath, title, sum)
	if err != nil {
		return 0, err
	}

	songs, written, err := s.commit(ctx, []*analysis{a})
	if err != nil {
		return 0, err
	}

	s.log.Infof("Successfully added song ID=%d (%d fingerprints)", songs[0].ID, written)
	return songs[0].ID, nil
}

// Search fingerprints the clip at audioPath and ranks stored songs against it.
func (s *soundmarkService) Search(ctx context.Context, audioPath string, rank int) ([]models.RankingResult, error) {
	s.log.Infof("Matching audio: %s", audioPath)

	res, err := s.config.Pipeline.FingerprintFile(audioPath)
	if err != nil {
		return nil, err
	}
	s.log.Debugf("Query has %d peaks, %d fingerprints", len(res.Peaks), len(res.Fingerprints))

	return s.SearchFingerprints(ctx, res.Fingerprints, rank)
}

func (s *soundmarkService) SearchFingerprints(ctx context.Context, fps []models.Fingerprint, rank int) ([]models.RankingResult, error) {
	results, err := s.matcher.Search(ctx, fps, rank)
	if err != nil {
		return nil, err
	}
	s.log.Infof("Returning %d matches", len(results))
	return results, nil
}

// GetSongByID retrieves a song's metadata by its database ID.
func (s *soundmarkService) GetSongByID(ctx context.Context, songID uint32) (*models.Song, error) {
	return s.storage.GetSongByID(ctx, songID)
}

func (s *soundmarkService) FingerprintCount(ctx context.Context, songID uint32) (int, error) {
	if _, err := s.storage.GetSongByID(ctx, songID); err != nil {
		return 0, err
	}
	return s.storage.GetFingerprintCount(ctx, songID)
}

// ListSongs returns all songs in the database.
func (s *soundmarkService) ListSongs(ctx context.Context) ([]models.Song, error) {
	return s.storage.ListSongs(ctx)
}

// DeleteSong removes a song and all its fingerprints from the database.
func (s *soundmarkService) DeleteSong(ctx context.Context, songID uint32) error {
	if err := s.storage.DeleteSongByID(ctx, songID); err != nil {
		return err
	}
	s.log.Infof("Deleted song ID=%d", songID)
	return nil
}

func (s *soundmarkService) Stats(ctx context.Context) (models.Stats, error) {
	return s.storage.Stats(ctx)
}

// Pipeline returns the parameters fingerprints must be generated with to
// be searchable in this service.
func (s *soundmarkService) Pipeline() fingerprint.Pipeline {
	return s.config.Pipeline
}

// Close releases all resources held by the service.
func (s *soundmarkService) Close() error {
	return s.storage.Close()
}

// analyse decodes one file and runs the fingerprint pipeline on it.
func (s *soundmarkService) analyse(path, title, checksum string) (*analysis, error) {
	sample, err := audio.Decode(path)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	res, err := s.config.Pipeline.Run(sample)
	if err != nil {
		return nil, fmt.Errorf("fingerprinting %s: %w", path, err)
	}
	if len(res.Fingerprints) == 0 {
		s.log.Warnf("%s produced only %d peaks, no fingerprints", path, len(res.Peaks))
	}

	return &analysis{
		path:       path,
		title:      title,
		checksum:   checksum,
		durationMs: int(sample.Duration().Milliseconds()),
		fps:        res.Fingerprints,
	}, nil
}
