package imports

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFile = errors.New("unsupported file type, expected .xlsx or .csv")
	ErrMissingColumns  = errors.New("header row must contain name and email columns")
	ErrTooManyRows     = errors.New("file exceeds the maximum number of rows")
)

// Row is one lead row read from an import file. Number is the 1-based row
// number in the sheet, so the first data row below the header is row 2.
type Row struct {
	Number   int
	Name     string
	Email    string
	Phone    string
	Position string
	Source   string
	Notes    string
	Priority string
}

// IsBlank reports whether every cell of the row is empty.
func (r Row) IsBlank() bool {
	return r.Name == "" && r.Email == "" && r.Phone == "" && r.Position == "" &&
		r.Source == "" && r.Notes == "" && r.Priority == ""
}

type column int

const (
	colName column = iota
	colEmail
	colPhone
	colPosition
	colSource
	colNotes
	colPriority
)

// headerAliases maps normalised header cells to columns.
var headerAliases = map[string]column{
	"name":        colName,
	"email":       colEmail,
	"phonenumber": colPhone,
	"phone":       colPhone,
	"position":    colPosition,
	"leadsource":  colSource,
	"source":      colSource,
	"notes":       colNotes,
	"priority":    colPriority,
}

// Parse reads lead rows from an .xlsx workbook (first sheet) or a .csv file.
// maxRows <= 0 disables the row limit.
func Parse(fileName string, r io.Reader, maxRows int) ([]Row, error) {
	var records [][]string
	var err error

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx":
		records, err = readWorkbook(r)
	case ".csv":
		records, err = readCSV(r)
	default:
		return nil, ErrUnsupportedFile
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	header, err := mapHeader(records[0])
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(records)-1)
	for i, record := range records[1:] {
		row := buildRow(header, record, i+2)
		if row.IsBlank() {
			continue
		}
		if maxRows > 0 && len(rows) >= maxRows {
			return nil, ErrTooManyRows
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readWorkbook(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return records, nil
}

func mapHeader(cells []string) (map[column]int, error) {
	header := make(map[column]int, len(cells))
	for i, cell := range cells {
		key := strings.ToLower(strings.TrimSpace(cell))
		key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)
		if col, ok := headerAliases[key]; ok {
			if _, dup := header[col]; !dup {
				header[col] = i
			}
		}
	}
	_, hasName := header[colName]
	_, hasEmail := header[colEmail]
	if !hasName || !hasEmail {
		return nil, ErrMissingColumns
	}
	return header, nil
}

func buildRow(header map[column]int, record []string, number int) Row {
	cell := func(col column) string {
		idx, ok := header[col]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}
	return Row{
		Number:   number,
		Name:     cell(colName),
		Email:    cell(colEmail),
		Phone:    cell(colPhone),
		Position: cell(colPosition),
		Source:   cell(colSource),
		Notes:    cell(colNotes),
		Priority: cell(colPriority),
	}
}
