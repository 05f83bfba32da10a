package imports

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf
}

func TestParseCSV(t *testing.T) {
	input := "\xef\xbb\xbfName, Email ,Phone Number,lead_source,Priority\n" +
		"Ada,ada@example.com,+16502530000,referral,high\n" +
		",,,,\n" +
		"Bob,bob@example.com\n"

	rows, err := Parse("leads.CSV", strings.NewReader(input), 0)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := []Row{
		{Number: 2, Name: "Ada", Email: "ada@example.com", Phone: "+16502530000", Source: "referral", Priority: "high"},
		{Number: 4, Name: "Bob", Email: "bob@example.com"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestParseWorkbook(t *testing.T) {
	buf := workbook(t, [][]any{
		{"name", "email", "phone", "position", "source", "notes"},
		{"Ada", "ada@example.com", "650 253 0000", "CTO", "web", "met at expo"},
		{"Bob", "not-an-email"},
	})

	rows, err := Parse("leads.xlsx", buf, 10)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := []Row{
		{Number: 2, Name: "Ada", Email: "ada@example.com", Phone: "650 253 0000", Position: "CTO", Source: "web", Notes: "met at expo"},
		{Number: 3, Name: "Bob", Email: "not-an-email"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name     string
		fileName string
		input    string
		maxRows  int
		want     error
	}{
		{"unsupported extension", "leads.txt", "name,email\n", 0, ErrUnsupportedFile},
		{"missing email column", "leads.csv", "name,phone\nAda,123\n", 0, ErrMissingColumns},
		{"too many rows", "leads.csv", "name,email\na,a@x.io\nb,b@x.io\nc,c@x.io\n", 2, ErrTooManyRows},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.fileName, strings.NewReader(tc.input), tc.maxRows)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Parse error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestParseEmptyFile(t *testing.T) {
	rows, err := Parse("leads.csv", strings.NewReader(""), 0)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}
