package companycsv

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"szamlazo/internal/core"
)

func TestWriteThenParseRoundTrip(t *testing.T) {
	companies := []core.Company{
		{Name: "Alfa Kft.", Address: "1011 Budapest, Fő utca 1.", TaxNumber: "11111111-1-41", Email: "a@alfa.hu"},
		{Name: `Béta "Plusz" Bt.`, Address: "Szeged", TaxNumber: "22222222-2-06", ContactPerson: "Kovács Éva", Phone: "+36 1 234 5678"},
	}

	var buf bytes.Buffer
	if err := Write(&buf, companies); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !strings.HasPrefix(buf.String(), "Név,Cím,Adószám,Bankszámlaszám,Kapcsolattartó,E-mail,Telefon\n") {
		t.Fatalf("unexpected header in %q", buf.String())
	}

	rows, warnings, err := Parse(&buf)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(rows) != len(companies) {
		t.Fatalf("expected %d rows, got %d", len(companies), len(rows))
	}
	for i, r := range rows {
		if r.Company != companies[i] {
			t.Errorf("row %d = %+v, want %+v", i, r.Company, companies[i])
		}
	}
}

func TestParseFieldHeaderWithBOM(t *testing.T) {
	in := "\ufeffname,address,tax_number,bank_account,contact_person,email,phone\n" +
		"Acme,Pécs,123,,,,\n" +
		"too,few,fields\n" +
		"Other,Győr,456,HU00,Nagy Péter,p@o.hu,06301234567\n"

	rows, warnings, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(rows) != 2 || rows[0].Company.TaxNumber != "123" || rows[1].Company.ContactPerson != "Nagy Péter" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if rows[1].Line != 4 {
		t.Errorf("expected line 4 for the last row, got %d", rows[1].Line)
	}
	if len(warnings) != 1 || warnings[0].Line != 3 {
		t.Fatalf("expected one warning for line 3, got %+v", warnings)
	}
}

func TestParseRejects(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want error
	}{
		{"empty", "", ErrInvalidHeader},
		{"wrong header", "Name,Address,Tax\nx,y,z\n", ErrInvalidHeader},
		{"reordered header", "address,name,tax_number,bank_account,contact_person,email,phone\n", ErrInvalidHeader},
		{"latin-1 bytes", "name,address,tax_number,bank_account,contact_person,email,phone\nF\xf5 utca,a,1,,,,\n", ErrInvalidEncoding},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows, _, err := Parse(strings.NewReader(tc.in))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if rows != nil {
				t.Fatalf("no rows expected on failure, got %+v", rows)
			}
		})
	}
}
