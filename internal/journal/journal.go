// Package journal records submitted transactions so that an identical
// envelope is never posted twice and terminal outcomes can be answered
// without a node round trip.
//
// Two tables share one store:
//
//	s/<hash>        -> JSON Record
//	f/<fingerprint> -> hash
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Klingon-tech/vaultclient/config"
	"github.com/Klingon-tech/vaultclient/internal/log"
	"github.com/Klingon-tech/vaultclient/internal/storage"
	"github.com/Klingon-tech/vaultclient/pkg/types"
	"github.com/rs/zerolog"
)

var (
	submissionsPrefix  = []byte("s/")
	fingerprintsPrefix = []byte("f/")
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("journal closed")

// Record is one journaled submission.
type Record struct {
	Hash           types.Hash    `json:"hash"`
	Fingerprint    types.Hash    `json:"fingerprint"`
	Sender         types.Address `json:"sender"`
	SequenceNumber uint64        `json:"sequence_number"`
	SubmittedAt    time.Time     `json:"submitted_at"`

	// Set once a terminal status is observed.
	Status      string    `json:"status,omitempty"`
	VMStatus    string    `json:"vm_status,omitempty"`
	Version     uint64    `json:"version,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// Done reports whether a terminal status has been recorded.
func (r *Record) Done() bool { return r.Status != "" }

// Journal is safe for concurrent use.
type Journal struct {
	mu     sync.Mutex
	db     storage.DB
	owned  bool // db is closed with the journal
	subs   *storage.PrefixDB
	fps    *storage.PrefixDB
	logger zerolog.Logger
	now    func() time.Time
	closed bool
}

// New creates a journal on db. The caller keeps ownership of db.
func New(db storage.DB) *Journal {
	return &Journal{
		db:     db,
		subs:   storage.NewPrefixDB(db, submissionsPrefix),
		fps:    storage.NewPrefixDB(db, fingerprintsPrefix),
		logger: log.Journal,
		now:    time.Now,
	}
}

// Open creates the journal described by cfg: a Badger store under
// cfg.JournalDir() when persistent, memory otherwise. It returns nil, nil
// when the journal is disabled.
func Open(cfg *config.Config) (*Journal, error) {
	if !cfg.Journal.Enabled {
		return nil, nil
	}
	var db storage.DB
	if cfg.Journal.Persistent {
		bdb, err := storage.NewBadger(cfg.JournalDir())
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		bdb.RunGC(log.Storage)
		db = bdb
	} else {
		db = storage.NewMemory()
	}
	j := New(db)
	j.owned = true
	j.logger.Debug().
		Bool("persistent", cfg.Journal.Persistent).
		Msg("Journal opened")
	return j, nil
}

// Submitted records a submission accepted by the node.
func (j *Journal) Submitted(fingerprint, hash types.Hash, sender types.Address, seq uint64) error {
	rec := Record{
		Hash:           hash,
		Fingerprint:    fingerprint,
		Sender:         sender,
		SequenceNumber: seq,
		SubmittedAt:    j.now().UTC(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	b := storage.NewBatch(j.db)
	if err := b.Put(append(clone(submissionsPrefix), hash[:]...), data); err != nil {
		return err
	}
	if err := b.Put(append(clone(fingerprintsPrefix), fingerprint[:]...), hash[:]); err != nil {
		return err
	}
	if err := b.Commit(); err != nil {
		return fmt.Errorf("journal submission %s: %w", hash, err)
	}
	j.logger.Debug().
		Str("hash", hash.String()).
		Str("sender", sender.String()).
		Uint64("seq", seq).
		Msg("Submission journaled")
	return nil
}

// Completed stores the terminal status of a submission. Unknown hashes
// (e.g. faucet transactions) get a record without a fingerprint.
func (j *Journal) Completed(hash types.Hash, status, vmStatus string, version uint64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}

	rec, ok, err := j.get(hash)
	if err != nil {
		return err
	}
	if !ok {
		rec = Record{Hash: hash}
	}
	rec.Status = status
	rec.VMStatus = vmStatus
	rec.Version = version
	rec.CompletedAt = j.now().UTC()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := j.subs.Put(hash[:], data); err != nil {
		return fmt.Errorf("journal outcome %s: %w", hash, err)
	}
	return nil
}

// Lookup returns the record for hash.
func (j *Journal) Lookup(hash types.Hash) (Record, bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return Record{}, false, ErrClosed
	}
	return j.get(hash)
}

// LookupFingerprint returns the record of a previously submitted envelope.
func (j *Journal) LookupFingerprint(fp types.Hash) (Record, bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return Record{}, false, ErrClosed
	}
	raw, err := j.fps.Get(fp[:])
	if errors.Is(err, storage.ErrNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("journal fingerprint: %w", err)
	}
	var hash types.Hash
	if len(raw) != len(hash) {
		return Record{}, false, fmt.Errorf("journal fingerprint: corrupt index entry")
	}
	copy(hash[:], raw)
	return j.get(hash)
}

// Pending returns submissions without a terminal status, oldest first.
func (j *Journal) Pending() ([]Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil, ErrClosed
	}
	var out []Record
	err := j.subs.ForEach(nil, func(_, value []byte) error {
		var rec Record
		if err := json.Unmarshal(value, &rec); err != nil {
			return fmt.Errorf("decode record: %w", err)
		}
		if !rec.Done() {
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].SubmittedAt.Before(out[b].SubmittedAt)
	})
	return out, nil
}

// Close releases the store if the journal opened it.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	if j.owned {
		return j.db.Close()
	}
	return nil
}

func (j *Journal) get(hash types.Hash) (Record, bool, error) {
	data, err := j.subs.Get(hash[:])
	if errors.Is(err, storage.ErrNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("journal lookup %s: %w", hash, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false, fmt.Errorf("decode record %s: %w", hash, err)
	}
	return rec, true, nil
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
