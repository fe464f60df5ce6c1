package core

import "testing"

func TestExpenditureValidate(t *testing.T) {
	valid := Expenditure{
		TeamID:      "t1",
		Amount:      Money{Cents: 10000},
		UnitPrice:   Money{Cents: 5000},
		Quantity:    2,
		Description: "cloud credits",
		Date:        "2025-03-14",
	}

	tests := []struct {
		name    string
		mutate  func(e *Expenditure)
		wantErr bool
	}{
		{"valid", func(e *Expenditure) {}, false},
		{"missing team", func(e *Expenditure) { e.TeamID = "" }, true},
		{"empty description", func(e *Expenditure) { e.Description = "  " }, true},
		{"zero unit price", func(e *Expenditure) { e.UnitPrice.Cents = 0 }, true},
		{"zero quantity", func(e *Expenditure) { e.Quantity = 0 }, true},
		{"amount mismatch", func(e *Expenditure) { e.Amount.Cents = 9999 }, true},
		{"malformed date", func(e *Expenditure) { e.Date = "2025-3-14" }, true},
		{"impossible date", func(e *Expenditure) { e.Date = "2025-02-30" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid
			tt.mutate(&e)
			err := e.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTeamValidate(t *testing.T) {
	if err := (Team{Name: "Platform"}).Validate(); err != nil {
		t.Errorf("budget-less team should validate, got %v", err)
	}
	if err := (Team{Name: ""}).Validate(); err == nil {
		t.Error("nameless team should not validate")
	}
	neg := Money{Cents: -1}
	if err := (Team{Name: "X", Budget: &neg}).Validate(); err == nil {
		t.Error("negative budget should not validate")
	}
}

func TestMemberValidate(t *testing.T) {
	if err := (Member{TeamID: "t1", Name: "Ada"}).Validate(); err != nil {
		t.Errorf("valid member rejected: %v", err)
	}
	if err := (Member{Name: "Ada"}).Validate(); err == nil {
		t.Error("member without team should not validate")
	}
}

func TestParseDecimalToCents(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12.34", 1234, false},
		{"12,34", 1234, false},
		{"12.345", 1234, false},
		{"12.346", 1235, false},
		{"0", 0, false},
		{"98", 9800, false},
		{"-5", 0, true},
		{"abc", 0, true},
		{"", 0, true},
		{"1.2.3", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDecimalToCents(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCoerceBudgetCents(t *testing.T) {
	if got := CoerceBudgetCents("98"); got != 9800 {
		t.Errorf("CoerceBudgetCents(98) = %d, want 9800", got)
	}
	for _, in := range []string{"", "NaN", "-3"} {
		if got := CoerceBudgetCents(in); got != 0 {
			t.Errorf("CoerceBudgetCents(%q) = %d, want 0", in, got)
		}
	}
}
