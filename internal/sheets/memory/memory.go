package memory

import (
	"context"
	"sync"

	"kharcha/internal/core"
	ports "kharcha/internal/sheets"
)

var _ ports.Mirror = (*Mirror)(nil)

// Mirror is an in-process stand-in for the Google Sheets mirror.
type Mirror struct {
	mu       sync.Mutex
	rows     [][]string
	replaced int

	// Err, when set, is returned by Replace and the sheet is left as is.
	Err error
}

func New() *Mirror {
	return &Mirror{}
}

func (m *Mirror) Replace(ctx context.Context, txs []core.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.rows = ports.Strings(txs)
	m.replaced++
	return nil
}

// Rows returns a copy of the sheet, header first. It is empty until the
// first Replace.
func (m *Mirror) Rows() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.rows))
	for i, r := range m.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// Replaced reports how many times the sheet was rewritten.
func (m *Mirror) Replaced() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replaced
}
