// Package importer reads ledger spreadsheets exported by the studio's older
// tools into rows ready for ledger import.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	enc "github.com/MrJamesThe3rd/studiobooks/internal/encoding"
	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
	"github.com/MrJamesThe3rd/studiobooks/internal/money"
)

var ErrUnknownFormat = errors.New("no matching spreadsheet format")

var dateLayouts = []string{"02/01/2006", "2/1/2006", time.DateOnly}

type Result struct {
	Profile string
	Charset enc.Charset
	Rows    []ledger.ImportRow
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse detects the charset, delimiter and column layout of r and returns
// its data rows. Rows without a parseable date (titles, totals) are skipped.
func (p *Parser) Parse(r io.Reader) (*Result, error) {
	utf8r, charset, err := enc.ToUTF8(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	data, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.Comma = delimiter(string(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	profile, cols, headerIdx := detectProfile(records)
	if profile == nil {
		return nil, ErrUnknownFormat
	}

	rows, err := parseRows(profile, cols, records[headerIdx+1:], headerIdx+1)
	if err != nil {
		return nil, err
	}

	return &Result{Profile: profile.Name, Charset: charset, Rows: rows}, nil
}

// delimiter prefers semicolons, which pt-BR spreadsheets use because the
// comma is the decimal separator.
func delimiter(data string) rune {
	if strings.Contains(data, ";") {
		return ';'
	}

	return ','
}

type colIndex map[string]int

func detectProfile(records [][]string) (*Profile, colIndex, int) {
	for rowIdx, row := range records {
		cols := make(colIndex)

		for i, cell := range row {
			if name := strings.TrimSpace(cell); name != "" {
				cols[name] = i
			}
		}

		for i := range profiles {
			if matchesProfile(&profiles[i], cols) {
				return &profiles[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

func matchesProfile(p *Profile, cols colIndex) bool {
	for _, name := range p.requiredCols() {
		if _, ok := cols[name]; !ok {
			return false
		}
	}

	return true
}

// parseRows reports errors with 1-based record numbers, blank lines not counted.
func parseRows(p *Profile, cols colIndex, records [][]string, headerRowNum int) ([]ledger.ImportRow, error) {
	var rows []ledger.ImportRow

	for i, record := range records {
		rowNum := headerRowNum + i + 1

		date, ok := parseDate(cellValue(record, cols[p.DateCol]))
		if !ok {
			continue
		}

		desc := cellValue(record, cols[p.DescCol])
		if desc == "" {
			return nil, fmt.Errorf("row %d: missing description", rowNum)
		}

		raw := cellValue(record, cols[p.AmountCol])
		if raw == "" {
			continue
		}

		amount, err := money.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		if amount == 0 {
			continue
		}

		row := ledger.ImportRow{
			Description: desc,
			Amount:      max(amount, -amount),
			DueDate:     date,
		}

		if p.StatusCol != "" {
			if label := cellValue(record, cols[p.StatusCol]); label != "" {
				status, err := ledger.ParseLegacyStatus(label)
				if err != nil {
					return nil, fmt.Errorf("row %d: %w", rowNum, err)
				}

				row.Status = status
			}
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
