package core

import (
	"math"
	"testing"
)

func money(cents int64) *Money {
	m := Money{Cents: cents}
	return &m
}

func TestSplitBudget(t *testing.T) {
	tests := []struct {
		name    string
		budget  *Money
		members int
		want    *int64
	}{
		{"9000 across 3", money(900000), 3, ptr(int64(300000))},
		{"no budget", nil, 3, nil},
		{"no members", money(900000), 0, nil},
		{"single member", money(500000), 1, ptr(int64(500000))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitBudget(tt.budget, tt.members)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("SplitBudget = %v, want %v", got, tt.want)
			}
			if got != nil && got.Cents != *tt.want {
				t.Errorf("SplitBudget = %d cents, want %d", got.Cents, *tt.want)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestAggregateTeamScenario(t *testing.T) {
	// Team A: budget 1000U, two members, one expenditure of 50U x 2 on M1.
	team := Team{ID: "a", Name: "Team A", Budget: money(100000)}
	members := []Member{
		{ID: "m1", TeamID: "a", Name: "M1"},
		{ID: "m2", TeamID: "a", Name: "M2"},
	}
	exps := []Expenditure{
		{ID: "e1", TeamID: "a", MemberID: "m1", Amount: Money{Cents: 10000}, UnitPrice: Money{Cents: 5000}, Quantity: 2, Description: "licenses", Date: "2025-06-03"},
	}

	got := AggregateTeam(team, members, exps)

	if got.TotalSpent.Cents != 10000 {
		t.Errorf("team TotalSpent = %d, want 10000", got.TotalSpent.Cents)
	}
	if got.Remaining.Cents != 90000 {
		t.Errorf("team Remaining = %d, want 90000", got.Remaining.Cents)
	}
	if got.PercentageUsed != 10.0 {
		t.Errorf("team PercentageUsed = %v, want 10", got.PercentageUsed)
	}

	var m1 MemberWithSpending
	for _, m := range got.Members {
		if m.ID == "m1" {
			m1 = m
		}
	}
	if m1.Budget == nil || m1.Budget.Cents != 50000 {
		t.Fatalf("M1 budget share = %v, want 50000 cents", m1.Budget)
	}
	if m1.TotalSpent.Cents != 10000 {
		t.Errorf("M1 TotalSpent = %d, want 10000", m1.TotalSpent.Cents)
	}
	if m1.Remaining == nil || m1.Remaining.Cents != 40000 {
		t.Errorf("M1 Remaining = %v, want 40000 cents", m1.Remaining)
	}
	if m1.PercentageUsed == nil || *m1.PercentageUsed != 20.0 {
		t.Errorf("M1 PercentageUsed = %v, want 20", m1.PercentageUsed)
	}
}

func TestAggregateTeamUnassignedSpend(t *testing.T) {
	team := Team{ID: "a", Name: "Team A", Budget: money(100000)}
	members := []Member{{ID: "m1", TeamID: "a", Name: "M1"}}
	exps := []Expenditure{
		{ID: "e1", TeamID: "a", MemberID: "m1", Amount: Money{Cents: 3000}},
		{ID: "e2", TeamID: "a", Amount: Money{Cents: 7000}},
		{ID: "e3", TeamID: "other", Amount: Money{Cents: 99999}},
	}

	got := AggregateTeam(team, members, exps)

	if got.Unassigned.Cents != 7000 {
		t.Errorf("Unassigned = %d, want 7000", got.Unassigned.Cents)
	}
	if got.TotalSpent.Cents != 10000 {
		t.Errorf("TotalSpent = %d, want 10000 (assigned + unassigned)", got.TotalSpent.Cents)
	}
	if len(got.Expenditures) != 2 {
		t.Errorf("Expenditures = %d entries, want 2 (other team excluded)", len(got.Expenditures))
	}
}

func TestAggregateTeamNoBudget(t *testing.T) {
	team := Team{ID: "a", Name: "Unbounded"}
	members := []Member{{ID: "m1", TeamID: "a", Name: "M1"}}
	exps := []Expenditure{{ID: "e1", TeamID: "a", MemberID: "m1", Amount: Money{Cents: 12345}}}

	got := AggregateTeam(team, members, exps)

	if got.PercentageUsed != 0 {
		t.Errorf("PercentageUsed = %v, want 0 for budget-less team", got.PercentageUsed)
	}
	if got.Remaining.Cents != -12345 {
		t.Errorf("Remaining = %d, want -12345 (budget treated as 0)", got.Remaining.Cents)
	}
	m := got.Members[0]
	if m.Budget != nil || m.Remaining != nil || m.PercentageUsed != nil {
		t.Errorf("member derived figures should all be nil without a budget, got %+v", m)
	}
}

func TestMemberSpendingZeroCap(t *testing.T) {
	m := Member{ID: "m1", TeamID: "a", Name: "M1"}
	share := money(0)

	idle := MemberSpending(m, share, nil)
	if idle.PercentageUsed == nil || *idle.PercentageUsed != 0 {
		t.Errorf("zero cap, zero spend: PercentageUsed = %v, want 0", idle.PercentageUsed)
	}

	spent := MemberSpending(m, share, []Expenditure{{MemberID: "m1", Amount: Money{Cents: 100}}})
	if spent.PercentageUsed == nil || !math.IsInf(*spent.PercentageUsed, 1) {
		t.Errorf("zero cap with spend: PercentageUsed = %v, want +Inf", spent.PercentageUsed)
	}
}

func TestAggregateTeamsPreservesOrder(t *testing.T) {
	teams := []Team{{ID: "b", Name: "B"}, {ID: "a", Name: "A"}}
	got := AggregateTeams(teams, nil, nil)
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Errorf("AggregateTeams reordered input: %+v", got)
	}
}
