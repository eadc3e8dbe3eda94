package soundmark

import "github.com/himanishpuri/soundmark/pkg/models"

// Error kinds callers can test with errors.Is.
var (
	ErrContractViolation = models.ErrContractViolation
	ErrEmptyQuery        = models.ErrEmptyQuery
	ErrStorage           = models.ErrStorage
	ErrSongNotFound      = models.ErrSongNotFound
	ErrUnsupportedFormat = models.ErrUnsupportedFormat
)

// IndexReport describes the outcome of a bulk indexing run.
type IndexReport struct {
	Indexed      []models.Song // newly registered songs, in file-name order
	Skipped      []SkippedFile // files whose content was already indexed
	Fingerprints int           // records written
}

// SkippedFile is a file left out of a bulk run.
type SkippedFile struct {
	Path   string
	Reason string
}
