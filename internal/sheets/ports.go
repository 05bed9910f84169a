package sheets

import (
	"context"
	"strconv"

	"kharcha/internal/core"
)

// Mirror keeps a read-only spreadsheet copy of the ledger.
type Mirror interface {
	// Replace makes the sheet hold exactly txs below the header row.
	Replace(ctx context.Context, txs []core.Transaction) error
}

// Header is the first row of the mirrored sheet.
var Header = []string{"ID", "Date", "Type", "Category", "Amount", "Note"}

// Columns is the number of columns the mirror writes.
var Columns = len(Header)

// Values renders the header and one row per transaction, in ledger order.
func Values(txs []core.Transaction) [][]interface{} {
	out := make([][]interface{}, 0, len(txs)+1)
	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	out = append(out, header)
	for _, t := range txs {
		out = append(out, []interface{}{t.ID, t.Date, t.Type.String(), t.Category, t.Amount, t.Note})
	}
	return out
}

// Strings renders the same grid as Values with every cell as text.
func Strings(txs []core.Transaction) [][]string {
	out := make([][]string, 0, len(txs)+1)
	out = append(out, append([]string(nil), Header...))
	for _, t := range txs {
		out = append(out, []string{
			t.ID,
			t.Date,
			t.Type.String(),
			t.Category,
			strconv.FormatFloat(t.Amount, 'f', 2, 64),
			t.Note,
		})
	}
	return out
}
