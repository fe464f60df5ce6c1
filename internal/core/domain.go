package core

import (
	"errors"
	"strings"
	"time"
)

type (
	Money struct {
		Cents int64
	}

	// Team is an organizational unit with an optional monthly budget.
	// A nil Budget means unlimited; zero or positive is a real cap.
	Team struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Budget    *Money `json:"budget"`
		Color     string `json:"color"`
		CreatedAt string `json:"created_at,omitempty"`
	}

	// Member belongs to exactly one team at a time. Moving a member is a
	// mutation of TeamID, never a delete and recreate.
	Member struct {
		ID        string `json:"id"`
		TeamID    string `json:"team_id"`
		Name      string `json:"name"`
		CreatedAt string `json:"created_at,omitempty"`
	}

	// Expenditure is a dated, priced record of spend, optionally attributed
	// to a member. Amount is always UnitPrice times Quantity; the write path
	// enforces this, readers never recompute it.
	Expenditure struct {
		ID          string `json:"id"`
		TeamID      string `json:"team_id"`
		MemberID    string `json:"member_id,omitempty"`
		Amount      Money  `json:"amount"`
		UnitPrice   Money  `json:"unit_price"`
		Quantity    int64  `json:"quantity"`
		Description string `json:"description"`
		Date        string `json:"date"`
		CreatedAt   string `json:"created_at"`

		// Frozen copies of the team/member names captured at write time so
		// attribution survives deletion of the referenced entities.
		TeamNameHistorical   string `json:"team_name_historical,omitempty"`
		MemberNameHistorical string `json:"member_name_historical,omitempty"`
	}

	// MemberWithSpending is a member plus their derived monthly figures.
	// Budget is the even share of the team budget; nil propagates through
	// Remaining and PercentageUsed.
	MemberWithSpending struct {
		Member
		Budget         *Money
		TotalSpent     Money
		Remaining      *Money
		PercentageUsed *float64
	}

	// TeamWithExpenditures is a team plus the selected month's expenditures
	// and derived totals over assigned and unassigned spend alike.
	TeamWithExpenditures struct {
		Team
		Expenditures   []Expenditure
		Members        []MemberWithSpending
		Unassigned     Money
		TotalSpent     Money
		Remaining      Money
		PercentageUsed float64
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyDescription = errors.New("empty description")
	ErrMissingTeam      = errors.New("missing team reference")
)

// DateLayout is the wire format for calendar dates. Zero-padded so lexical
// comparison matches chronological order.
const DateLayout = "2006-01-02"

// ValidDate reports whether s is a well-formed YYYY-MM-DD date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Units returns the whole-unit value as a float64 for display purposes.
// Keep calculations in cents to avoid floating point drift.
func (m Money) Units() float64 {
	return float64(m.Cents) / 100.0
}

func (t Team) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	if t.Budget != nil && t.Budget.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(m.TeamID) == "" {
		return ErrMissingTeam
	}
	return nil
}

func (e Expenditure) Validate() error {
	if strings.TrimSpace(e.TeamID) == "" {
		return ErrMissingTeam
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := e.UnitPrice.Validate(); err != nil {
		return err
	}
	if e.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if e.Amount.Cents != e.UnitPrice.Cents*e.Quantity {
		return errors.New("amount must equal unit price times quantity")
	}
	if !ValidDate(e.Date) {
		return ErrInvalidDate
	}
	return nil
}

// Assigned reports whether the expenditure carries a member reference.
func (e Expenditure) Assigned() bool {
	return e.MemberID != ""
}
