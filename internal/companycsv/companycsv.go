// Package companycsv reads and writes company lists as CSV.
//
// Exports use a localized header. Imports accept either that header or the
// field-name header, so an exported file can be imported again unchanged.
package companycsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"szamlazo/internal/core"
)

var (
	// Header is the field-name header accepted on import.
	Header = []string{"name", "address", "tax_number", "bank_account", "contact_person", "email", "phone"}
	// ExportHeader is written by Write and also accepted on import.
	ExportHeader = []string{"Név", "Cím", "Adószám", "Bankszámlaszám", "Kapcsolattartó", "E-mail", "Telefon"}
)

var (
	ErrInvalidHeader   = errors.New("invalid CSV header")
	ErrInvalidEncoding = errors.New("CSV is not valid UTF-8")
)

// Row is a well-formed data row.
type Row struct {
	Line    int
	Company core.Company
}

// Warning describes a data row that was skipped.
type Warning struct {
	Line   int
	Fields []string
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Reason)
}

// Write renders companies with ExportHeader, in the given order.
func Write(w io.Writer, companies []core.Company) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, c := range companies {
		record := []string{c.Name, c.Address, c.TaxNumber, c.BankAccount, c.ContactPerson, c.Email, c.Phone}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write company %d: %w", c.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Parse decodes an uploaded CSV. A leading UTF-8 byte order mark is ignored.
// Rows without exactly seven fields are reported as warnings and skipped;
// a bad header or undecodable input fails the whole file.
func Parse(r io.Reader) ([]Row, []Warning, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read CSV: %w", err)
	}
	if !utf8.Valid(raw) {
		return nil, nil, ErrInvalidEncoding
	}
	data, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), raw)
	if err != nil {
		return nil, nil, fmt.Errorf("decode CSV: %w", err)
	}

	cr := csv.NewReader(strings.NewReader(string(data)))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrInvalidHeader
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if !equalFields(header, Header) && !equalFields(header, ExportHeader) {
		return nil, nil, ErrInvalidHeader
	}

	var (
		rows     []Row
		warnings []Warning
	)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read CSV: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if len(record) != len(Header) {
			warnings = append(warnings, Warning{
				Line:   line,
				Fields: record,
				Reason: fmt.Sprintf("expected %d fields, got %d", len(Header), len(record)),
			})
			continue
		}
		rows = append(rows, Row{
			Line: line,
			Company: core.Company{
				Name:          strings.TrimSpace(record[0]),
				Address:       strings.TrimSpace(record[1]),
				TaxNumber:     strings.TrimSpace(record[2]),
				BankAccount:   strings.TrimSpace(record[3]),
				ContactPerson: strings.TrimSpace(record[4]),
				Email:         strings.TrimSpace(record[5]),
				Phone:         strings.TrimSpace(record[6]),
			},
		})
	}
	return rows, warnings, nil
}

func equalFields(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
