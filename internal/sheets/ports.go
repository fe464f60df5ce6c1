package sheets

import "context"

// LedgerEntry is one row of the append-only audit ledger. Deletion markers
// carry only the kind, the expenditure id and the timestamp.
type LedgerEntry struct {
	Timestamp     string
	Kind          string
	ExpenditureID string
	Date          string
	TeamName      string
	MemberName    string
	Description   string
	Quantity      int64
	UnitPrice     float64
	Amount        float64
}

// LedgerAppender is the outbound port for the audit ledger.
type LedgerAppender interface {
	Append(ctx context.Context, entry LedgerEntry) (rowRef string, err error)
}
