package storage

// Row types mirror the tables one to one. Amounts and dates stay TEXT here and
// are converted at the repository boundary.

type Company struct {
	ID            int64
	Name          string
	Address       string
	TaxNumber     string
	BankAccount   string
	ContactPerson string
	Email         string
	Phone         string
}

type Invoice struct {
	ID            int64
	CompanyID     int64
	CompanyName   string
	InvoiceNumber string
	IssueDate     string
	DueDate       string
	Currency      string
	Note          string
}

type InvoiceItem struct {
	ID          int64
	InvoiceID   int64
	Description string
	Quantity    string
	UnitPrice   string
}

type OwnerCompany struct {
	Name        string
	Address     string
	TaxNumber   string
	BankAccount string
	Email       string
	Phone       string
}
