package soundmark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/OneOfOne/xxhash"
	"github.com/himanishpuri/soundmark/pkg/models"
	"github.com/himanishpuri/soundmark/pkg/soundmark/fingerprint"
	"github.com/himanishpuri/soundmark/pkg/utils"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/sync/errgroup"
)

// analysis is one file's fingerprints, ready to be written.
type analysis struct {
	path       string
	title      string
	checksum   string
	durationMs int
	fps        []models.Fingerprint
}

// fileChecksum returns the hex xxhash64 of the file's bytes.
func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := xxhash.New64()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// IndexDirectory analyses the supported audio files in dir in parallel,
// then registers the new songs and writes all of their fingerprints in one
// storage call. Files whose content is already in the store, or repeated
// within dir, are skipped.
func (s *soundmarkService) IndexDirectory(ctx context.Context, dir string) (*IndexReport, error) {
	files, err := utils.ListAudioFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	report := &IndexReport{}
	if len(files) == 0 {
		s.log.Warnf("No .wav or .mp3 files in %s", dir)
		return report, nil
	}
	s.log.Infof("Indexing %d files from %s with %d workers", len(files), dir, s.config.Workers)

	var (
		progress *mpb.Progress
		bar      *mpb.Bar
	)
	if s.config.Progress != nil {
		progress = mpb.New(mpb.WithWidth(64), mpb.WithOutput(s.config.Progress))
		bar = progress.AddBar(int64(len(files)),
			mpb.PrependDecorators(
				decor.Name("Indexing: "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
				decor.EwmaETA(decor.ET_STYLE_GO, 60),
			),
		)
	}

	// Each slot is nil for a skipped file.
	results := make([]*analysis, len(files))
	skipped := make([]string, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for i, path := range files {
		g.Go(func() error {
			if bar != nil {
				defer bar.Increment()
			}
			if err := gctx.Err(); err != nil {
				return err
			}

			sum, err := fileChecksum(path)
			if err != nil {
				return err
			}
			existing, err := s.storage.FindSongByChecksum(gctx, sum)
			if err == nil {
				skipped[i] = fmt.Sprintf("already indexed as song %d", existing.ID)
				return nil
			}
			if !errors.Is(err, models.ErrSongNotFound) {
				return fmt.Errorf("checking %s: %w", path, err)
			}

			a, err := s.analyse(path, utils.TitleFromPath(path), sum)
			if err != nil {
				return err
			}
			results[i] = a
			return nil
		})
	}
	err = g.Wait()
	if progress != nil {
		if err != nil {
			bar.Abort(false)
		}
		progress.Wait()
	}
	if err != nil {
		return nil, fmt.Errorf("indexing %s: %w", dir, err)
	}

	seen := make(map[string]string)
	var batch []*analysis
	for i, a := range results {
		if a == nil {
			report.Skipped = append(report.Skipped, SkippedFile{Path: files[i], Reason: skipped[i]})
			continue
		}
		if first, ok := seen[a.checksum]; ok {
			report.Skipped = append(report.Skipped, SkippedFile{Path: a.path, Reason: "same content as " + first})
			continue
		}
		seen[a.checksum] = a.path
		batch = append(batch, a)
	}
	for _, sk := range report.Skipped {
		s.log.Infof("Skipping %s: %s", sk.Path, sk.Reason)
	}
	if len(batch) == 0 {
		return report, nil
	}

	songs, written, err := s.commit(ctx, batch)
	if err != nil {
		return nil, err
	}
	report.Indexed = songs
	report.Fingerprints = written

	s.log.Infof("Indexed %d songs (%d fingerprints), skipped %d", len(songs), written, len(report.Skipped))
	return report, nil
}

// commit registers every analysed song and writes all of their records in
// a single StoreFingerprints call. If anything fails, songs registered by
// this call are deleted again.
func (s *soundmarkService) commit(ctx context.Context, batch []*analysis) ([]models.Song, int, error) {
	songs := make([]models.Song, 0, len(batch))
	var records []models.FingerprintRecord

	rollback := func() {
		for _, song := range songs {
			if err := s.storage.DeleteSongByID(context.WithoutCancel(ctx), song.ID); err != nil {
				s.log.Errorf("Rollback of song ID=%d failed: %v", song.ID, err)
			}
		}
	}

	for _, a := range batch {
		id, err := s.storage.RegisterSong(ctx, a.title, a.checksum, a.durationMs)
		if err != nil {
			rollback()
			return nil, 0, fmt.Errorf("failed to register %s: %w", a.path, err)
		}
		songs = append(songs, models.Song{ID: id, Title: a.title, Checksum: a.checksum, DurationMs: a.durationMs})
		records = append(records, fingerprint.Records(a.fps, id)...)
	}

	if err := s.storage.StoreFingerprints(ctx, records); err != nil {
		rollback()
		return nil, 0, fmt.Errorf("failed to store fingerprints: %w", err)
	}
	return songs, len(records), nil
}
