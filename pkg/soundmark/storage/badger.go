//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/himanishpuri/soundmark/pkg/models"
)

// Key layout (all integers big-endian so keys sort numerically):
//
//	fp/<address><anchor address><anchor time><song id>   -> empty
//	sfp/<song id><address><anchor address><anchor time>  -> empty
//	song/<song id>                                       -> JSON kvSong
//	sum/<checksum>                                       -> <song id>
//	seq/songs                                            id sequence
var (
	prefixFingerprint     = []byte("fp/")
	prefixSongFingerprint = []byte("sfp/")
	prefixSong            = []byte("song/")
	prefixChecksum        = []byte("sum/")
	keySongSequence       = []byte("seq/songs")
)

const sequenceBandwidth = 100

// KVClient stores songs and fingerprints in a Badger key-value database.
type KVClient struct {
	db  *badger.DB
	seq *badger.Sequence
}

type kvSong struct {
	Title      string    `json:"title"`
	Checksum   string    `json:"checksum,omitempty"`
	DurationMs int       `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewKVClient opens (or creates) a Badger database in dir. An empty dir
// keeps everything in memory.
func NewKVClient(dir string) (*KVClient, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger db: %w", err)
	}

	seq, err := db.GetSequence(keySongSequence, sequenceBandwidth)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating song id sequence: %w", err)
	}

	return &KVClient{db: db, seq: seq}, nil
}

func (c *KVClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	var errs []error
	if c.seq != nil {
		errs = append(errs, c.seq.Release())
	}
	errs = append(errs, c.db.Close())
	return errors.Join(errs...)
}

func u32(b []byte, v uint32) []byte {
	return binary.BigEndian.AppendUint32(b, v)
}

func fingerprintKey(r models.FingerprintRecord) []byte {
	k := make([]byte, 0, len(prefixFingerprint)+16)
	k = append(k, prefixFingerprint...)
	k = u32(k, r.Address)
	k = u32(k, r.AnchorAddress)
	k = u32(k, r.AnchorTime)
	return u32(k, r.SongID)
}

func songFingerprintKey(r models.FingerprintRecord) []byte {
	k := make([]byte, 0, len(prefixSongFingerprint)+16)
	k = append(k, prefixSongFingerprint...)
	k = u32(k, r.SongID)
	k = u32(k, r.Address)
	k = u32(k, r.AnchorAddress)
	return u32(k, r.AnchorTime)
}

func songKey(id uint32) []byte {
	return u32(append([]byte(nil), prefixSong...), id)
}

func checksumKey(sum string) []byte {
	return append(append([]byte(nil), prefixChecksum...), sum...)
}

func parseFingerprintKey(k []byte) models.FingerprintRecord {
	k = k[len(prefixFingerprint):]
	return models.FingerprintRecord{
		Fingerprint: models.Fingerprint{
			Address:       binary.BigEndian.Uint32(k[0:4]),
			AnchorAddress: binary.BigEndian.Uint32(k[4:8]),
			AnchorTime:    binary.BigEndian.Uint32(k[8:12]),
		},
		SongID: binary.BigEndian.Uint32(k[12:16]),
	}
}

func parseSongFingerprintKey(k []byte) models.FingerprintRecord {
	k = k[len(prefixSongFingerprint):]
	return models.FingerprintRecord{
		SongID: binary.BigEndian.Uint32(k[0:4]),
		Fingerprint: models.Fingerprint{
			Address:       binary.BigEndian.Uint32(k[4:8]),
			AnchorAddress: binary.BigEndian.Uint32(k[8:12]),
			AnchorTime:    binary.BigEndian.Uint32(k[12:16]),
		},
	}
}

// writeKeys applies op to every key, committing and starting a new
// transaction whenever Badger reports the current one is full.
func (c *KVClient) writeKeys(ctx context.Context, keys [][]byte, op func(txn *badger.Txn, k []byte) error) error {
	txn := c.db.NewTransaction(true)
	defer func() { txn.Discard() }()

	for i, k := range keys {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		err := op(txn, k)
		if errors.Is(err, badger.ErrTxnTooBig) {
			if err := txn.Commit(); err != nil {
				return err
			}
			txn = c.db.NewTransaction(true)
			err = op(txn, k)
		}
		if err != nil {
			return err
		}
	}
	return txn.Commit()
}

func setEmpty(txn *badger.Txn, k []byte) error { return txn.Set(k, nil) }

func deleteKey(txn *badger.Txn, k []byte) error { return txn.Delete(k) }

// RegisterSong allocates the next id from the song sequence and stores the
// song under it.
func (c *KVClient) RegisterSong(ctx context.Context, title, checksum string, durationMs int) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n, err := c.seq.Next()
	if err != nil {
		return 0, wrapErr("allocating song id", err)
	}
	id := uint32(n + 1)

	val, err := json.Marshal(kvSong{Title: title, Checksum: checksum, DurationMs: durationMs, CreatedAt: time.Now()})
	if err != nil {
		return 0, fmt.Errorf("encoding song %q: %w", title, err)
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		key := songKey(id)
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("song id %d already taken", id)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(key, val); err != nil {
			return err
		}
		if checksum == "" {
			return nil
		}
		return txn.Set(checksumKey(checksum), u32(nil, id))
	})
	if err != nil {
		return 0, wrapErr(fmt.Sprintf("registering song %q", title), err)
	}
	return id, nil
}

// StoreFingerprints writes a primary and a per-song key for every record.
// Rewriting an existing key leaves it unchanged.
func (c *KVClient) StoreFingerprints(ctx context.Context, records []models.FingerprintRecord) error {
	if len(records) == 0 {
		return nil
	}

	keys := make([][]byte, 0, 2*len(records))
	for _, r := range records {
		keys = append(keys, fingerprintKey(r), songFingerprintKey(r))
	}

	if err := c.writeKeys(ctx, keys, setEmpty); err != nil {
		return wrapErr(fmt.Sprintf("storing %d fingerprints", len(records)), err)
	}
	return nil
}

// LookupByAddresses scans the fp/<address> range of every address inside
// one read transaction.
func (c *KVClient) LookupByAddresses(ctx context.Context, addresses []uint32) ([]models.FingerprintRecord, error) {
	if len(addresses) == 0 {
		return nil, nil
	}

	var out []models.FingerprintRecord
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false, Prefix: prefixFingerprint})
		defer it.Close()

		prefix := make([]byte, 0, len(prefixFingerprint)+4)
		for _, addr := range addresses {
			if err := ctx.Err(); err != nil {
				return err
			}
			prefix = u32(append(prefix[:0], prefixFingerprint...), addr)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				out = append(out, parseFingerprintKey(it.Item().Key()))
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("looking up %d addresses", len(addresses)), err)
	}
	return out, nil
}

func (c *KVClient) getSong(txn *badger.Txn, id uint32) (*models.Song, error) {
	item, err := txn.Get(songKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: id %d", models.ErrSongNotFound, id)
		}
		return nil, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	return decodeSong(id, val)
}

func decodeSong(id uint32, val []byte) (*models.Song, error) {
	var s kvSong
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, fmt.Errorf("decoding song %d: %w", id, err)
	}
	return &models.Song{
		ID:         id,
		Title:      s.Title,
		Checksum:   s.Checksum,
		DurationMs: s.DurationMs,
		CreatedAt:  s.CreatedAt,
	}, nil
}

func (c *KVClient) GetSongByID(ctx context.Context, id uint32) (*models.Song, error) {
	var song *models.Song
	err := c.db.View(func(txn *badger.Txn) error {
		var err error
		song, err = c.getSong(txn, id)
		return err
	})
	if err != nil {
		if errors.Is(err, models.ErrSongNotFound) {
			return nil, err
		}
		return nil, wrapErr(fmt.Sprintf("getting song %d", id), err)
	}
	return song, nil
}

func (c *KVClient) FindSongByChecksum(ctx context.Context, checksum string) (*models.Song, error) {
	var song *models.Song
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(checksumKey(checksum))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: checksum %s", models.ErrSongNotFound, checksum)
			}
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		song, err = c.getSong(txn, binary.BigEndian.Uint32(val))
		return err
	})
	if err != nil {
		if errors.Is(err, models.ErrSongNotFound) {
			return nil, err
		}
		return nil, wrapErr("finding song by checksum", err)
	}
	return song, nil
}

func (c *KVClient) ListSongs(ctx context.Context) ([]models.Song, error) {
	var songs []models.Song
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 100, Prefix: prefixSong})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id := binary.BigEndian.Uint32(item.Key()[len(prefixSong):])
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			s, err := decodeSong(id, val)
			if err != nil {
				return err
			}
			songs = append(songs, *s)
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr("listing songs", err)
	}
	return songs, nil
}

// songFingerprints returns the records of one song via its sfp/ keys.
func (c *KVClient) songFingerprints(txn *badger.Txn, id uint32) []models.FingerprintRecord {
	prefix := u32(append([]byte(nil), prefixSongFingerprint...), id)
	it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false, Prefix: prefix})
	defer it.Close()

	var recs []models.FingerprintRecord
	for it.Rewind(); it.Valid(); it.Next() {
		recs = append(recs, parseSongFingerprintKey(it.Item().Key()))
	}
	return recs
}

// DeleteSongByID removes the song, its checksum entry and both keys of
// every fingerprint it owns.
func (c *KVClient) DeleteSongByID(ctx context.Context, id uint32) error {
	var keys [][]byte
	err := c.db.View(func(txn *badger.Txn) error {
		song, err := c.getSong(txn, id)
		if err != nil {
			return err
		}
		for _, r := range c.songFingerprints(txn, id) {
			keys = append(keys, fingerprintKey(r), songFingerprintKey(r))
		}
		if song.Checksum != "" {
			item, err := txn.Get(checksumKey(song.Checksum))
			if err == nil {
				if val, err := item.ValueCopy(nil); err == nil && binary.BigEndian.Uint32(val) == id {
					keys = append(keys, checksumKey(song.Checksum))
				}
			}
		}
		keys = append(keys, songKey(id))
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrSongNotFound) {
			return err
		}
		return wrapErr(fmt.Sprintf("deleting song %d", id), err)
	}

	if err := c.writeKeys(ctx, keys, deleteKey); err != nil {
		return wrapErr(fmt.Sprintf("deleting song %d", id), err)
	}
	return nil
}

func (c *KVClient) GetFingerprintCount(ctx context.Context, songID uint32) (int, error) {
	var n int
	err := c.db.View(func(txn *badger.Txn) error {
		n = len(c.songFingerprints(txn, songID))
		return nil
	})
	if err != nil {
		return 0, wrapErr(fmt.Sprintf("counting fingerprints of song %d", songID), err)
	}
	return n, nil
}

func (c *KVClient) Stats(ctx context.Context) (models.Stats, error) {
	var st models.Stats
	err := c.db.View(func(txn *badger.Txn) error {
		st.Songs = countKeys(txn, prefixSong)
		st.Fingerprints = countKeys(txn, prefixFingerprint)
		return nil
	})
	if err != nil {
		return st, wrapErr("collecting stats", err)
	}
	return st, nil
}

func countKeys(txn *badger.Txn, prefix []byte) int64 {
	it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false, Prefix: prefix})
	defer it.Close()

	var n int64
	for it.Rewind(); it.Valid(); it.Next() {
		n++
	}
	return n
}
