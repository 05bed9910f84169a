// Package store owns the ordered collection of transactions and its
// durability. The sequence is loaded when the Store is opened; every
// mutation re-reads the slot first and then writes the whole sequence back,
// so processes sharing a slot build on each other's changes.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"kharcha/internal/core"
	"kharcha/internal/slot"
)

// DefaultKey is the slot key the ledger is stored under.
const DefaultKey = "expense_tracker_transactions_v1"

type Store struct {
	mu      sync.Mutex
	slot    slot.Slot
	key     string
	ids     core.IDGenerator
	logger  *slog.Logger
	records []record
}

// record is one element of the stored array. raw holds the original JSON
// of elements that did not decode cleanly; they are written back byte for
// byte. Elements that are not objects at all are kept but hidden.
type record struct {
	tx     core.Transaction
	raw    json.RawMessage
	hidden bool
}

type Option func(*Store)

// WithIDGenerator overrides the ID strategy picked by DetectIDGenerator.
func WithIDGenerator(g core.IDGenerator) Option {
	return func(s *Store) {
		s.ids = g
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open builds a Store on top of sl and loads the current ledger from key.
// An empty key selects DefaultKey.
func Open(ctx context.Context, sl slot.Slot, key string, opts ...Option) (*Store, error) {
	if sl == nil {
		return nil, errors.New("store: nil slot")
	}
	if key == "" {
		key = DefaultKey
	}
	s := &Store{
		slot:   sl,
		key:    key,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ids == nil {
		g, _, err := core.DetectIDGenerator(core.IDStrategyAuto)
		if err != nil {
			return nil, fmt.Errorf("detect id generator: %w", err)
		}
		s.ids = g
	}

	s.records = s.loadRecords(ctx)
	s.logger.InfoContext(ctx, "Ledger loaded", "key", key, "count", countVisible(s.records))
	return s, nil
}

// Load reads the ledger from the slot. A missing key, an unreadable slot,
// or content that is not a JSON array all yield an empty ledger: there is
// no second copy to recover from, so bad data is treated as no data.
// Individual records are not validated.
func (s *Store) Load(ctx context.Context) []core.Transaction {
	return visible(s.loadRecords(ctx))
}

func (s *Store) loadRecords(ctx context.Context) []record {
	raw, err := s.slot.Get(ctx, s.key)
	if errors.Is(err, slot.ErrNotFound) {
		return []record{}
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Ledger slot unreadable, starting empty", "key", s.key, "error", err)
		return []record{}
	}
	return s.decodeLogged(ctx, raw)
}

func (s *Store) decodeLogged(ctx context.Context, raw []byte) []record {
	recs, err := decodeRecords(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "Ledger data corrupt, starting empty", "key", s.key, "error", err)
		return []record{}
	}
	if n := len(recs) - countVisible(recs); n > 0 {
		s.logger.WarnContext(ctx, "Ledger elements that are not records kept as stored", "key", s.key, "count", n)
	}
	return recs
}

// refresh re-reads the slot so a mutation builds on what other processes
// sharing it have written since Open. Unlike Load, a read failure is
// returned: writing on top of an unknown state could lose records.
// Caller holds s.mu.
func (s *Store) refresh(ctx context.Context) error {
	raw, err := s.slot.Get(ctx, s.key)
	switch {
	case errors.Is(err, slot.ErrNotFound):
		s.records = []record{}
	case err != nil:
		return fmt.Errorf("load transactions: %w", err)
	default:
		s.records = s.decodeLogged(ctx, raw)
	}
	return nil
}

// Save serialises records and replaces the slot value in a single write.
// Write failures are returned to the caller; there is no retry.
func (s *Store) Save(ctx context.Context, records []core.Transaction) error {
	raw, err := Encode(records)
	if err != nil {
		return fmt.Errorf("encode transactions: %w", err)
	}
	return s.put(ctx, raw)
}

func (s *Store) put(ctx context.Context, raw []byte) error {
	if err := s.slot.Put(ctx, s.key, raw); err != nil {
		return fmt.Errorf("save transactions: %w", err)
	}
	return nil
}

// commit persists next and only then makes it the in-memory ledger, so a
// failed write leaves the Store exactly as it was. Caller holds s.mu.
func (s *Store) commit(ctx context.Context, next []record) error {
	raw, err := encodeRecords(next)
	if err != nil {
		return fmt.Errorf("encode transactions: %w", err)
	}
	if err := s.put(ctx, raw); err != nil {
		return err
	}
	s.records = next
	return nil
}

// Add validates in, assigns a fresh ID and inserts the record at the
// front of the ledger. A *core.ValidationError is returned for bad input
// and nothing is changed.
func (s *Store) Add(ctx context.Context, in core.NewTransaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.refresh(ctx); err != nil {
		return core.Transaction{}, err
	}
	tx, err := in.Build(s.uniqueID())
	if err != nil {
		return core.Transaction{}, err
	}

	next := make([]record, 0, len(s.records)+1)
	next = append(next, record{tx: tx})
	next = append(next, s.records...)
	if err := s.commit(ctx, next); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// uniqueID asks the generator until it returns an ID not already in use.
// Records loaded from storage may carry IDs from another strategy.
func (s *Store) uniqueID() string {
	for {
		id := s.ids.NewID()
		if s.indexOf(id) < 0 {
			return id
		}
	}
}

func (s *Store) indexOf(id string) int {
	for i, r := range s.records {
		if !r.hidden && r.tx.ID == id {
			return i
		}
	}
	return -1
}

// RemoveByID drops the record with the given id. An unknown id leaves the
// ledger unchanged; the ledger is persisted either way. The returned bool
// reports whether a record was removed.
func (s *Store) RemoveByID(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refresh(ctx); err != nil {
		return false, err
	}
	next := make([]record, 0, len(s.records))
	removed := false
	for _, r := range s.records {
		if !removed && !r.hidden && r.tx.ID == id {
			removed = true
			continue
		}
		next = append(next, r)
	}
	if err := s.commit(ctx, next); err != nil {
		return false, err
	}
	return removed, nil
}

// Clear empties the ledger and persists the empty sequence.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, []record{})
}

// All returns a copy of the ledger, newest insertion first, as of the last
// load or mutation.
func (s *Store) All() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return visible(s.records)
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (core.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.records[i].tx, true
	}
	return core.Transaction{}, false
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return countVisible(s.records)
}

func visible(recs []record) []core.Transaction {
	out := make([]core.Transaction, 0, len(recs))
	for _, r := range recs {
		if !r.hidden {
			out = append(out, r.tx)
		}
	}
	return out
}

func countVisible(recs []record) int {
	n := 0
	for _, r := range recs {
		if !r.hidden {
			n++
		}
	}
	return n
}

// Encode renders records as the JSON array kept in the slot.
func Encode(records []core.Transaction) ([]byte, error) {
	if records == nil {
		records = []core.Transaction{}
	}
	return json.Marshal(records)
}

// Decode parses a stored ledger. The value must be a JSON array. Object
// elements are returned in order even when some fields have the wrong JSON
// type; those fields keep their zero value. Elements that are not objects
// are counted in skipped.
func Decode(raw []byte) (txs []core.Transaction, skipped int, err error) {
	recs, err := decodeRecords(raw)
	if err != nil {
		return nil, 0, err
	}
	txs = visible(recs)
	return txs, len(recs) - len(txs), nil
}

func decodeRecords(raw []byte) ([]record, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, err
	}
	if elems == nil {
		// JSON null
		return nil, errors.New("ledger is not an array")
	}
	recs := make([]record, 0, len(elems))
	for _, e := range elems {
		e = append(json.RawMessage(nil), e...)
		trimmed := bytes.TrimSpace(e)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			recs = append(recs, record{raw: e, hidden: true})
			continue
		}
		var t core.Transaction
		err := json.Unmarshal(e, &t)
		var typeErr *json.UnmarshalTypeError
		switch {
		case err == nil:
			recs = append(recs, record{tx: t})
		case errors.As(err, &typeErr):
			// Unmarshal fills every field it can before reporting the
			// first mismatch.
			recs = append(recs, record{tx: t, raw: e})
		default:
			recs = append(recs, record{raw: e, hidden: true})
		}
	}
	return recs, nil
}

func encodeRecords(recs []record) ([]byte, error) {
	elems := make([]json.RawMessage, 0, len(recs))
	for _, r := range recs {
		if r.raw != nil {
			elems = append(elems, r.raw)
			continue
		}
		b, err := json.Marshal(r.tx)
		if err != nil {
			return nil, err
		}
		elems = append(elems, b)
	}
	return json.Marshal(elems)
}
