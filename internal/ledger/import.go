package ledger

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ImportRow is one line of a spreadsheet or legacy export. An empty Status is
// derived from the due date like a freshly expanded entry.
type ImportRow struct {
	Description string
	Amount      int64
	DueDate     time.Time
	Status      Status
}

type ImportConflict struct {
	Incoming ImportRow
	Existing *Entry
}

// ImportResult holds the written entries, or, when duplicates were found and
// nothing was written, the rows split into new ones and conflicts.
type ImportResult struct {
	Imported  []*Entry
	New       []ImportRow
	Conflicts []ImportConflict
}

type importKey struct {
	Date        string
	Amount      int64
	Description string
}

func keyOf(date time.Time, amount int64, description string) importKey {
	return importKey{
		Date:        date.Format(time.DateOnly),
		Amount:      amount,
		Description: strings.ToLower(strings.TrimSpace(description)),
	}
}

// Import writes each row as a standalone entry in one batch. Unless force is
// set, rows matching an existing entry of the owner (same due date, amount and
// description) abort the import and come back as conflicts.
func (s *Service) Import(ctx context.Context, ownerID uuid.UUID, rows []ImportRow, force bool) (*ImportResult, error) {
	if len(rows) == 0 {
		return &ImportResult{}, nil
	}

	for i, r := range rows {
		if err := validateRow(r); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
	}

	if !force {
		result, err := s.findConflicts(ctx, ownerID, rows)
		if err != nil {
			return nil, err
		}

		if len(result.Conflicts) > 0 {
			return result, nil
		}
	}

	entries := make([]*Entry, len(rows))
	for i, r := range rows {
		entries[i] = s.importEntry(ownerID, r)
	}

	if err := s.repo.Insert(ctx, entries); err != nil {
		return nil, fmt.Errorf("inserting imported entries: %w", err)
	}

	s.logger.Info("entries imported", "owner_id", ownerID, "entries", len(entries), "forced", force)

	return &ImportResult{Imported: entries}, nil
}

func validateRow(r ImportRow) error {
	if r.Amount <= 0 {
		return &ValidationError{Field: "amount", Reason: "must be positive"}
	}

	if r.DueDate.IsZero() {
		return &ValidationError{Field: "due_date", Reason: "is required"}
	}

	if r.Status != "" && !r.Status.Valid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", r.Status)}
	}

	return nil
}

func (s *Service) findConflicts(ctx context.Context, ownerID uuid.UUID, rows []ImportRow) (*ImportResult, error) {
	from := slices.MinFunc(rows, func(a, b ImportRow) int { return a.DueDate.Compare(b.DueDate) }).DueDate
	to := slices.MaxFunc(rows, func(a, b ImportRow) int { return a.DueDate.Compare(b.DueDate) }).DueDate

	existing, err := s.repo.QueryByDateRange(ctx, ownerID, DateOf(from), DateOf(to))
	if err != nil {
		return nil, fmt.Errorf("finding duplicates: %w", err)
	}

	lookup := make(map[importKey]*Entry, len(existing))
	for _, e := range existing {
		lookup[keyOf(e.DueDate, e.Amount, e.Description)] = e
	}

	result := &ImportResult{}

	for _, r := range rows {
		if e, ok := lookup[keyOf(DateOf(r.DueDate), r.Amount, r.Description)]; ok {
			result.Conflicts = append(result.Conflicts, ImportConflict{Incoming: r, Existing: e})
			continue
		}

		result.New = append(result.New, r)
	}

	return result, nil
}

func (s *Service) importEntry(ownerID uuid.UUID, r ImportRow) *Entry {
	e := s.newEntry(Intent{
		OwnerID:     ownerID,
		OwnerItemID: uuid.New(),
		Description: strings.TrimSpace(r.Description),
	}, r.Amount, DateOf(r.DueDate))

	if r.Status != "" {
		e.Status = r.Status
	}

	return e
}
