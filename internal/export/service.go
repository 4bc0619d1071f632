// Package export builds the monthly statement sent to the studio's accountant.
package export

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
	"github.com/MrJamesThe3rd/studiobooks/internal/money"
)

// header matches the importer's "app" profile so a statement can be imported back.
var header = []string{"Data de vencimento", "Descrição", "Valor (R$)", "Status"}

type EntryLister interface {
	List(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]*ledger.Entry, error)
}

// Statement is one owner's ledger for a calendar month.
type Statement struct {
	OwnerID uuid.UUID
	Year    int
	Month   time.Month
	Entries []*ledger.Entry
}

// Totals sums the statement by status. Cancelled entries are counted apart
// and never reach Open.
type Totals struct {
	Paid      int64
	Open      int64
	Cancelled int64
}

type Service struct {
	entries EntryLister
}

func NewService(entries EntryLister) *Service {
	return &Service{entries: entries}
}

func (s *Service) Export(ctx context.Context, ownerID uuid.UUID, year int, month time.Month) (*Statement, error) {
	first := ledger.Date(year, month, 1)

	entries, err := s.entries.List(ctx, ownerID, first, first.AddDate(0, 1, -1))
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}

	return &Statement{OwnerID: ownerID, Year: year, Month: month, Entries: entries}, nil
}

func (st *Statement) Totals() Totals {
	var t Totals

	for _, e := range st.Entries {
		switch e.Status {
		case ledger.StatusPaid:
			t.Paid += e.Amount
		case ledger.StatusCancelled:
			t.Cancelled += e.Amount
		default:
			t.Open += e.Amount
		}
	}

	return t
}

// Summary renders the plain-text body pasted into the email to the accountant.
func (st *Statement) Summary() string {
	var sb strings.Builder

	for _, e := range st.Entries {
		fmt.Fprintf(&sb, "* %s | %s | %s | %s\n",
			e.DueDate.Format("02/01/2006"), e.Description, money.Format(e.Amount), e.Status.Label())
	}

	t := st.Totals()

	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Pago: %s\n", money.Format(t.Paid))
	fmt.Fprintf(&sb, "Em aberto: %s\n", money.Format(t.Open))

	if t.Cancelled > 0 {
		fmt.Fprintf(&sb, "Cancelado: %s\n", money.Format(t.Cancelled))
	}

	return sb.String()
}

// WriteCSV writes the entries as a semicolon separated spreadsheet with a
// UTF-8 byte order mark, which Excel needs to show accents correctly.
func (st *Statement) WriteCSV(w io.Writer) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return fmt.Errorf("writing bom: %w", err)
	}

	cw := csv.NewWriter(w)
	cw.Comma = ';'

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, e := range st.Entries {
		record := []string{
			e.DueDate.Format("02/01/2006"),
			e.Description,
			money.Format(e.Amount),
			e.Status.Label(),
		}

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing entry %s: %w", e.ID, err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// Filename is the archive name offered for download, e.g. "extrato_2024-05.zip".
func (st *Statement) Filename() string {
	return fmt.Sprintf("extrato_%04d-%02d.zip", st.Year, int(st.Month))
}

// WriteArchive zips the spreadsheet together with the summary text.
func (st *Statement) WriteArchive(w io.Writer) error {
	zw := zip.NewWriter(w)

	f, err := zw.Create("lancamentos.csv")
	if err != nil {
		return fmt.Errorf("adding spreadsheet: %w", err)
	}

	if err := st.WriteCSV(f); err != nil {
		return err
	}

	f, err = zw.Create("resumo.txt")
	if err != nil {
		return fmt.Errorf("adding summary: %w", err)
	}

	if _, err := io.WriteString(f, st.Summary()); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing archive: %w", err)
	}

	return nil
}
