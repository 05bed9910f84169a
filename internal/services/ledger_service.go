package services

import (
	"context"
	"sync/atomic"
	"time"

	"kharcha/internal/amqp"
	"kharcha/internal/core"
	"kharcha/internal/log"
	"kharcha/internal/metrics"
	"kharcha/internal/store"
	"kharcha/internal/view"
)

// Publisher announces that the persisted ledger changed.
type Publisher interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

// LedgerService puts the transaction store behind the operations the HTTP
// API and the CLI share. After every successful mutation it publishes a
// change notification; notification failures are logged and never undo or
// fail the mutation.
type LedgerService struct {
	store     *store.Store
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *log.Logger
	revision  atomic.Int64
}

type Option func(*LedgerService)

func WithPublisher(p Publisher) Option {
	return func(s *LedgerService) {
		s.publisher = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *LedgerService) {
		s.metrics = m
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *LedgerService) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewLedgerService(st *store.Store, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:  st,
		logger: log.New(log.Config{Component: log.ComponentLedger}),
	}
	for _, opt := range opts {
		opt(s)
	}
	// Seed from the clock so revisions keep growing across restarts.
	s.revision.Store(time.Now().UnixNano())
	s.metrics.SetLedgerSize(st.Len())
	return s
}

// Add validates and records a new transaction.
func (s *LedgerService) Add(ctx context.Context, in core.NewTransaction) (core.Transaction, error) {
	tx, err := s.store.Add(ctx, in)
	s.metrics.RecordMutation(amqp.ChangeAdd, err)
	if err != nil {
		return core.Transaction{}, err
	}

	size := s.store.Len()
	log.NewStructuredLogger(s.logger).LogTransactionAdded(ctx, tx.ID, tx.Type.String(), tx.Amount, tx.Category, tx.Date, size)
	s.changed(ctx, amqp.ChangeAdd, tx.ID, size)
	return tx, nil
}

// Remove deletes the transaction with id. Unknown ids are not an error;
// the returned bool reports whether anything was removed.
func (s *LedgerService) Remove(ctx context.Context, id string) (bool, error) {
	removed, err := s.store.RemoveByID(ctx, id)
	s.metrics.RecordMutation(amqp.ChangeRemove, err)
	if err != nil {
		return false, err
	}

	size := s.store.Len()
	s.logger.InfoContext(ctx, "Transaction removed",
		log.FieldTxID, id,
		"removed", removed,
		log.FieldLedgerSize, size,
		log.FieldOperation, log.OpRemove)
	if removed {
		s.changed(ctx, amqp.ChangeRemove, id, size)
	}
	return removed, nil
}

// Clear deletes every transaction.
func (s *LedgerService) Clear(ctx context.Context) error {
	err := s.store.Clear(ctx)
	s.metrics.RecordMutation(amqp.ChangeClear, err)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Ledger cleared", log.FieldOperation, log.OpClear)
	s.changed(ctx, amqp.ChangeClear, "", 0)
	return nil
}

func (s *LedgerService) All() []core.Transaction {
	return s.store.All()
}

func (s *LedgerService) Get(id string) (core.Transaction, bool) {
	return s.store.Get(id)
}

// View projects the current ledger through f.
func (s *LedgerService) View(f view.Filter) view.Projection {
	return view.Project(s.store.All(), f)
}

// Summary returns totals over the whole ledger.
func (s *LedgerService) Summary() core.Totals {
	return view.Totals(s.store.All())
}

func (s *LedgerService) Months() []string {
	return view.DistinctMonths(s.store.All())
}

func (s *LedgerService) Len() int {
	return s.store.Len()
}

// changed publishes a notification for a committed mutation. The revision
// is taken after the commit, so a snapshot read after seeing revision r
// contains every mutation numbered r or lower.
func (s *LedgerService) changed(ctx context.Context, change, id string, size int) {
	s.metrics.SetLedgerSize(size)
	if s.publisher == nil {
		return
	}

	msg := amqp.NewLedgerChangedMessage(change, id, size, s.nextRevision())
	if err := s.publisher.PublishLedgerChanged(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger change",
			log.FieldError, err,
			log.FieldOperation, log.OpPublish,
			"change", change,
			"revision", msg.Revision)
	}
}

func (s *LedgerService) nextRevision() int64 {
	for {
		cur := s.revision.Load()
		next := max(cur+1, time.Now().UnixNano())
		if s.revision.CompareAndSwap(cur, next) {
			return next
		}
	}
}
