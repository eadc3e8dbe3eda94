package main

import (
	"fmt"

	"github.com/himanishpuri/soundmark/pkg/models"
)

// Fingerprint limit constants for validation
const (
	// MaxFingerprintsHardLimit is the absolute maximum allowed (~2 minutes of audio)
	MaxFingerprintsHardLimit = 50000

	// FingerprintWarningThreshold triggers logging for large batches
	FingerprintWarningThreshold = 10000

	// DefaultRank is used when a search request does not name one.
	DefaultRank = 10
)

// FingerprintDTO is one client-computed fingerprint.
type FingerprintDTO struct {
	Address       uint32 `json:"address"`
	AnchorAddress uint32 `json:"anchor_address"`
	AnchorTime    uint32 `json:"anchor_time"`
}

// SearchFingerprintsRequest is the request body for POST /api/search/fingerprints
type SearchFingerprintsRequest struct {
	Fingerprints []FingerprintDTO `json:"fingerprints"`
	Rank         int              `json:"rank,omitempty"`
}

// Validate checks if the request is valid
func (r *SearchFingerprintsRequest) Validate() error {
	if len(r.Fingerprints) == 0 {
		return fmt.Errorf("fingerprints cannot be empty")
	}
	if len(r.Fingerprints) > MaxFingerprintsHardLimit {
		return fmt.Errorf("too many fingerprints: %d (maximum: %d)", len(r.Fingerprints), MaxFingerprintsHardLimit)
	}
	if r.Rank < 0 {
		return fmt.Errorf("rank must be positive, got %d", r.Rank)
	}
	return nil
}

// ToFingerprints converts the request payload to domain fingerprints.
func (r *SearchFingerprintsRequest) ToFingerprints() []models.Fingerprint {
	fps := make([]models.Fingerprint, len(r.Fingerprints))
	for i, f := range r.Fingerprints {
		fps[i] = models.Fingerprint{
			Address:       f.Address,
			AnchorAddress: f.AnchorAddress,
			AnchorTime:    f.AnchorTime,
		}
	}
	return fps
}

// SearchResponse is the response for both search endpoints
type SearchResponse struct {
	Matches []MatchResultDTO `json:"matches"`
	Count   int              `json:"count"`
}

// MatchResultDTO represents a single ranked match
type MatchResultDTO struct {
	SongID uint32 `json:"song_id"`
	Title  string `json:"title"`
	Score  int    `json:"score"`
}

// AddSongResponse is the response for successful song addition
type AddSongResponse struct {
	Message string  `json:"message"`
	Song    SongDTO `json:"song"`
}

// SongDTO represents a song in API responses
type SongDTO struct {
	ID         uint32 `json:"id"`
	Title      string `json:"title"`
	Checksum   string `json:"checksum"`
	DurationMs int    `json:"duration_ms"`

	// Fingerprints is only filled in by GET /api/songs/{id}.
	Fingerprints int `json:"fingerprints,omitempty"`
}

func toSongDTO(s models.Song) SongDTO {
	return SongDTO{
		ID:         s.ID,
		Title:      s.Title,
		Checksum:   s.Checksum,
		DurationMs: s.DurationMs,
	}
}

// ListSongsResponse is the response for GET /api/songs
type ListSongsResponse struct {
	Songs []SongDTO `json:"songs"`
	Count int       `json:"count"`
}

// DeleteSongResponse is the response for DELETE /api/songs/{id}
type DeleteSongResponse struct {
	Message string `json:"message"`
	ID      uint32 `json:"id"`
}

// PipelineDTO describes the parameters client-side fingerprints must use.
type PipelineDTO struct {
	DownsampleFactor int `json:"downsample_factor"`
	WindowSize       int `json:"window_size"`
	Overlap          int `json:"overlap"`
	NeighborhoodSize int `json:"neighborhood_size"`
}

// MetricsResponse provides server health and database metrics
type MetricsResponse struct {
	Status           string      `json:"status"`
	Backend          string      `json:"backend"`
	DatabasePath     string      `json:"database_path"`
	SongCount        int64       `json:"song_count"`
	FingerprintCount int64       `json:"fingerprint_count"`
	Pipeline         PipelineDTO `json:"pipeline"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
