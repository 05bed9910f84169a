package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"kharcha/internal/amqp"
	"kharcha/internal/core"
	"kharcha/internal/log"
	"kharcha/internal/metrics"
	"kharcha/internal/sheets"
	"kharcha/internal/slot"
	"kharcha/internal/store"
)

// MirrorWorker copies the persisted ledger to a sheets.Mirror whenever a
// ledger change is announced. Every run rewrites the whole sheet from the
// current slot value, so messages only say "look again" and any message
// not newer than the last mirrored revision can be skipped.
type MirrorWorker struct {
	slot    slot.Slot
	key     string
	mirror  sheets.Mirror
	metrics *metrics.Metrics
	logger  *log.Logger

	mu           sync.Mutex
	lastRevision int64
}

type Option func(*MirrorWorker)

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *MirrorWorker) {
		w.metrics = m
	}
}

func WithLogger(l *log.Logger) Option {
	return func(w *MirrorWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

func NewMirrorWorker(sl slot.Slot, key string, mirror sheets.Mirror, opts ...Option) *MirrorWorker {
	if key == "" {
		key = store.DefaultKey
	}
	w := &MirrorWorker{
		slot:   sl,
		key:    key,
		mirror: mirror,
		logger: log.New(log.Config{Component: log.ComponentWorker}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// HandleLedgerChanged is the amqp.Handler for ledger notifications.
// Returning an error requeues the message.
func (w *MirrorWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if msg.Revision <= w.lastRevision {
		w.metrics.RecordMirror(metrics.MirrorStale)
		w.logger.DebugContext(ctx, "Skipping stale ledger change",
			"revision", msg.Revision,
			"last_revision", w.lastRevision)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing ledger change",
		"change", msg.Change,
		log.FieldTxID, msg.ID,
		"revision", msg.Revision)

	if err := w.mirrorLocked(ctx); err != nil {
		return err
	}
	w.lastRevision = msg.Revision
	return nil
}

// Sync mirrors the current snapshot without waiting for a message. The
// worker runs it at startup to catch up on changes made while it was down.
func (w *MirrorWorker) Sync(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mirrorLocked(ctx)
}

// LastRevision returns the revision of the last mirrored message.
func (w *MirrorWorker) LastRevision() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRevision
}

func (w *MirrorWorker) mirrorLocked(ctx context.Context) error {
	txs, err := w.snapshot(ctx)
	if errors.Is(err, errCorruptSnapshot) {
		// Retrying cannot fix the data and mirroring it would wipe the sheet.
		w.metrics.RecordMirror(metrics.MirrorError)
		w.logger.ErrorContext(ctx, "Ledger snapshot unreadable, sheet left as is", log.FieldError, err)
		return nil
	}
	if err != nil {
		w.metrics.RecordMirror(metrics.MirrorError)
		return fmt.Errorf("load ledger snapshot: %w", err)
	}

	if err := w.mirror.Replace(ctx, txs); err != nil {
		w.metrics.RecordMirror(metrics.MirrorError)
		return fmt.Errorf("replace sheet: %w", err)
	}

	w.metrics.RecordMirror(metrics.MirrorOK)
	w.logger.InfoContext(ctx, "Ledger mirrored",
		log.FieldOperation, log.OpMirror,
		log.FieldLedgerSize, len(txs))
	return nil
}

var errCorruptSnapshot = errors.New("corrupt ledger snapshot")

func (w *MirrorWorker) snapshot(ctx context.Context) ([]core.Transaction, error) {
	raw, err := w.slot.Get(ctx, w.key)
	if errors.Is(err, slot.ErrNotFound) {
		return []core.Transaction{}, nil
	}
	if err != nil {
		return nil, err
	}

	txs, skipped, err := store.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errCorruptSnapshot, err)
	}
	if skipped > 0 {
		w.logger.WarnContext(ctx, "Ledger elements that are not records not mirrored", "skipped", skipped)
	}
	return txs, nil
}
