package matcher

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/himanishpuri/soundmark/pkg/logger"
	"github.com/himanishpuri/soundmark/pkg/models"
)

// DefaultNeighborhoodSize must equal the size used when the fingerprints
// were generated.
const DefaultNeighborhoodSize = 5

// Store is the read side of fingerprint storage the matcher needs.
type Store interface {
	// LookupByAddresses returns every record whose address is in addresses,
	// read from one consistent snapshot.
	LookupByAddresses(ctx context.Context, addresses []uint32) ([]models.FingerprintRecord, error)
	GetSongByID(ctx context.Context, id uint32) (*models.Song, error)
}

// Logger is the subset of logging used while matching.
type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

type Config struct {
	NeighborhoodSize int
	Logger           Logger
}

type Matcher struct {
	store        Store
	neighborhood int
	log          Logger
}

// match is an accepted anchor: the address that completed its
// neighborhood and the anchor's time in the stored song.
type match struct {
	address    uint32
	anchorTime uint32
}

// SongScore is a song's score before its title is resolved.
type SongScore struct {
	SongID uint32
	Score  int
}

func New(store Store, cfg Config) *Matcher {
	if cfg.NeighborhoodSize < 1 {
		cfg.NeighborhoodSize = DefaultNeighborhoodSize
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	return &Matcher{store: store, neighborhood: cfg.NeighborhoodSize, log: cfg.Logger}
}

// Search ranks stored songs against the fingerprints of one query clip and
// returns at most rank results, best first.
//
// An anchor only counts for a song once all NeighborhoodSize of its sibling
// hashes were retrieved. Accepted anchors are then ordered by where their
// address occurs in the query, reduced to the longest run of increasing
// stored times, and scored by the densest stretch of that run no longer
// than the query itself.
func (m *Matcher) Search(ctx context.Context, query []models.Fingerprint, rank int) ([]models.RankingResult, error) {
	if len(query) == 0 {
		return nil, models.ErrEmptyQuery
	}
	if rank < 1 {
		return nil, fmt.Errorf("%w: rank must be >= 1, got %d", models.ErrContractViolation, rank)
	}

	positions := make(map[uint32]int, len(query))
	for i, fp := range query {
		positions[fp.Address] = i
	}

	addresses := make([]uint32, 0, len(positions))
	for addr := range positions {
		addresses = append(addresses, addr)
	}
	slices.Sort(addresses)

	records, err := m.store.LookupByAddresses(ctx, addresses)
	if err != nil {
		if errors.Is(err, models.ErrStorage) {
			return nil, fmt.Errorf("looking up candidates: %w", err)
		}
		return nil, fmt.Errorf("%w: looking up candidates: %w", models.ErrStorage, err)
	}
	m.log.Debugf("%d query fingerprints, %d unique addresses, %d candidate records",
		len(query), len(addresses), len(records))

	matches := m.acceptedAnchors(records)

	span := querySpan(query)
	scores := make([]SongScore, 0, len(matches))
	for songID, ms := range matches {
		score := scoreSong(ms, positions, span)
		if score > 0 {
			scores = append(scores, SongScore{SongID: songID, Score: score})
		}
	}

	ranked := Rank(scores, rank)

	results := make([]models.RankingResult, 0, len(ranked))
	for _, s := range ranked {
		song, err := m.store.GetSongByID(ctx, s.SongID)
		if err != nil {
			m.log.Warnf("Dropping song %d (score %d) from results: %v", s.SongID, s.Score, err)
			continue
		}
		results = append(results, models.RankingResult{SongID: s.SongID, Title: song.Title, Score: s.Score})
	}
	return results, nil
}

// acceptedAnchors groups records by Couple and keeps, per song, the anchors
// whose group reached exactly the neighborhood size. Records are visited in
// key order so the address kept for an anchor does not depend on the order
// the store returned them in.
func (m *Matcher) acceptedAnchors(records []models.FingerprintRecord) map[uint32][]match {
	sorted := slices.Clone(records)
	slices.SortFunc(sorted, compareRecords)

	counts := make(map[models.Couple]int)
	matches := make(map[uint32][]match)
	for _, r := range sorted {
		c := r.Couple()
		counts[c]++
		if counts[c] == m.neighborhood {
			matches[r.SongID] = append(matches[r.SongID], match{address: r.Address, anchorTime: r.AnchorTime})
		}
	}
	return matches
}

func compareRecords(a, b models.FingerprintRecord) int {
	return cmp.Or(
		cmp.Compare(a.Address, b.Address),
		cmp.Compare(a.AnchorAddress, b.AnchorAddress),
		cmp.Compare(a.AnchorTime, b.AnchorTime),
		cmp.Compare(a.SongID, b.SongID),
	)
}

// scoreSong orders a song's accepted anchors by query position, keeps the
// longest increasing run of stored times and counts the most of them that
// fit in one query-length window.
func scoreSong(ms []match, positions map[uint32]int, span uint32) int {
	ordered := slices.Clone(ms)
	slices.SortStableFunc(ordered, func(a, b match) int {
		return cmp.Or(
			cmp.Compare(positions[a.address], positions[b.address]),
			cmp.Compare(a.anchorTime, b.anchorTime),
		)
	})

	times := make([]uint32, len(ordered))
	for i, mt := range ordered {
		times[i] = mt.anchorTime
	}

	return MaxWindowCount(LongestIncreasing(times), span)
}

// querySpan is the time covered by the query, first to last anchor.
func querySpan(query []models.Fingerprint) uint32 {
	first, last := query[0].AnchorTime, query[len(query)-1].AnchorTime
	if last < first {
		return 0
	}
	return last - first
}

// Rank orders scores descending, breaking ties by ascending song id, and
// keeps the first n.
func Rank(scores []SongScore, n int) []SongScore {
	out := slices.Clone(scores)
	slices.SortFunc(out, func(a, b SongScore) int {
		return cmp.Or(
			cmp.Compare(b.Score, a.Score),
			cmp.Compare(a.SongID, b.SongID),
		)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
