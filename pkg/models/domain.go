package models

import "time"

// Song represents a song entry in the database.
type Song struct {
	ID         uint32    // Database ID, assigned by the store
	Title      string    // Song title
	Checksum   string    // xxhash64 of the source file, hex encoded
	DurationMs int       // Duration in milliseconds
	CreatedAt  time.Time // Registration time
}

// RankingResult is one entry of a search ranking.
type RankingResult struct {
	SongID uint32 // Database ID of the matched song
	Title  string // Song title
	Score  int    // Time-coherent matches inside the best query-length window
}

// Stats summarizes the contents of a store.
type Stats struct {
	Songs        int64
	Fingerprints int64
}
