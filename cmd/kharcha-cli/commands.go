package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"kharcha/internal/core"
	"kharcha/internal/format"
	"kharcha/internal/services"
	"kharcha/internal/view"
)

// errUsage marks errors caused by bad arguments rather than by the ledger.
var errUsage = errors.New("usage")

const usage = `usage: kharcha-cli <command> [flags]

commands:
  add      -amount N -category C [-type income|expense] [-date YYYY-MM-DD] [-note N]
  list     [-q TEXT] [-month YYYY-MM] [-type income|expense]
  rm       ID
  clear    -yes
  summary
  months
`

type app struct {
	ledger *services.LedgerService
	out    io.Writer
	now    func() time.Time
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "add":
		return a.add(ctx, rest)
	case "list", "ls":
		return a.list(rest)
	case "rm", "remove":
		return a.remove(ctx, rest)
	case "clear":
		return a.clear(ctx, rest)
	case "summary":
		return a.summary()
	case "months":
		return a.months()
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", errUsage, fs.Name(), err)
	}
	return nil
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := newFlagSet("add")
	typ := fs.String("type", string(core.Expense), "income or expense")
	amount := fs.String("amount", "", "amount in rupees, e.g. 1,250.50")
	category := fs.String("category", "", "category")
	date := fs.String("date", a.now().Format(core.DateLayout), "date (YYYY-MM-DD)")
	note := fs.String("note", "", "optional note")
	if err := parse(fs, args); err != nil {
		return err
	}

	// An amount that does not parse is left at zero and rejected by
	// validation in field order.
	amt, _ := core.ParseAmount(*amount)
	tx, err := a.ledger.Add(ctx, core.NewTransaction{
		Type:     core.Type(*typ),
		Amount:   amt,
		Category: *category,
		Date:     *date,
		Note:     *note,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added %s %s %s on %s (%s)\n", tx.Type, format.INR(tx.Amount), tx.Category, tx.Date, tx.ID)
	return nil
}

func (a *app) list(args []string) error {
	fs := newFlagSet("list")
	var f view.Filter
	fs.StringVar(&f.Search, "q", "", "search category and note")
	fs.StringVar(&f.Month, "month", view.All, "month (YYYY-MM) or all")
	fs.StringVar(&f.Type, "type", view.All, "income, expense or all")
	if err := parse(fs, args); err != nil {
		return err
	}

	p := a.ledger.View(f)
	if len(p.Rows) == 0 {
		fmt.Fprintln(a.out, "No transactions match the current filters.")
		return a.printTotals(p.Totals)
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTYPE\tCATEGORY\tAMOUNT\tNOTE\tID")
	for _, t := range p.Rows {
		amount := format.INR(t.Amount)
		if t.Type == core.Expense {
			amount = "-" + amount
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", t.Date, t.Type, t.Category, amount, t.Note, t.ID)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d of %d transactions\n", p.Count, p.Total)
	return a.printTotals(p.Totals)
}

func (a *app) remove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: rm takes exactly one transaction ID", errUsage)
	}
	removed, err := a.ledger.Remove(ctx, args[0])
	if err != nil {
		return err
	}
	if removed {
		fmt.Fprintf(a.out, "Removed %s\n", args[0])
	} else {
		fmt.Fprintf(a.out, "No transaction with ID %s\n", args[0])
	}
	return nil
}

func (a *app) clear(ctx context.Context, args []string) error {
	fs := newFlagSet("clear")
	yes := fs.Bool("yes", false, "confirm deleting every transaction")
	if err := parse(fs, args); err != nil {
		return err
	}
	if !*yes {
		return fmt.Errorf("%w: clear deletes all transactions, pass -yes to confirm", errUsage)
	}
	if err := a.ledger.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "All transactions cleared.")
	return nil
}

func (a *app) summary() error {
	return a.printTotals(a.ledger.Summary())
}

func (a *app) printTotals(t core.Totals) error {
	_, err := fmt.Fprintf(a.out, "Income: %s  Expense: %s  Balance: %s\n",
		format.INR(t.Income), format.INR(t.Expense), format.INR(t.Balance))
	return err
}

func (a *app) months() error {
	for _, m := range a.ledger.Months() {
		fmt.Fprintln(a.out, m)
	}
	return nil
}
