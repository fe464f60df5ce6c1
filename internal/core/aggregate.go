package core

// Aggregation over already-fetched data. No I/O happens here; callers fetch
// teams, members and the month's expenditures through the store and pass
// them in.

// SplitBudget returns the even share of a team budget across memberCount
// members. A nil budget or a member-less team has no per-member cap.
func SplitBudget(budget *Money, memberCount int) *Money {
	if budget == nil || memberCount <= 0 {
		return nil
	}
	share := Money{Cents: budget.Cents / int64(memberCount)}
	return &share
}

// MemberSpending derives the monthly figures for one member: the sum of
// their assigned expenditures, plus remaining and percentage against the
// given per-member budget share. Nil budget propagates as nil remaining and
// nil percentage. A zero budget is a real cap: any spend against it reads as
// fully (over) used.
func MemberSpending(m Member, share *Money, expenditures []Expenditure) MemberWithSpending {
	var spent int64
	for _, e := range expenditures {
		if e.MemberID == m.ID {
			spent += e.Amount.Cents
		}
	}

	out := MemberWithSpending{
		Member:     m,
		Budget:     share,
		TotalSpent: Money{Cents: spent},
	}
	if share == nil {
		return out
	}

	remaining := Money{Cents: share.Cents - spent}
	out.Remaining = &remaining

	// Straight division: a zero cap with real spend reads as +Inf, i.e.
	// unboundedly over budget. Only the 0/0 case is pinned to zero.
	var pct float64
	if spent != 0 || share.Cents != 0 {
		pct = float64(spent) / float64(share.Cents) * 100
	}
	out.PercentageUsed = &pct
	return out
}

// AggregateTeam derives TeamWithExpenditures for one team over the selected
// month's expenditures: members with their spending shares, unassigned spend
// summed straight into the team total, and team-level remaining/percentage.
// Team percentage is zero when the team has no positive budget.
func AggregateTeam(team Team, members []Member, expenditures []Expenditure) TeamWithExpenditures {
	var teamExp []Expenditure
	for _, e := range expenditures {
		if e.TeamID == team.ID {
			teamExp = append(teamExp, e)
		}
	}

	var teamMembers []Member
	for _, m := range members {
		if m.TeamID == team.ID {
			teamMembers = append(teamMembers, m)
		}
	}

	var unassigned int64
	for _, e := range teamExp {
		if !e.Assigned() {
			unassigned += e.Amount.Cents
		}
	}

	share := SplitBudget(team.Budget, len(teamMembers))
	withSpending := make([]MemberWithSpending, 0, len(teamMembers))
	var memberSpent int64
	for _, m := range teamMembers {
		ms := MemberSpending(m, share, teamExp)
		memberSpent += ms.TotalSpent.Cents
		withSpending = append(withSpending, ms)
	}

	totalSpent := memberSpent + unassigned
	var totalBudget int64
	if team.Budget != nil {
		totalBudget = team.Budget.Cents
	}

	pct := 0.0
	if totalBudget > 0 {
		pct = float64(totalSpent) / float64(totalBudget) * 100
	}

	return TeamWithExpenditures{
		Team:           team,
		Expenditures:   teamExp,
		Members:        withSpending,
		Unassigned:     Money{Cents: unassigned},
		TotalSpent:     Money{Cents: totalSpent},
		Remaining:      Money{Cents: totalBudget - totalSpent},
		PercentageUsed: pct,
	}
}

// AggregateTeams runs AggregateTeam for every team, preserving team order.
func AggregateTeams(teams []Team, members []Member, expenditures []Expenditure) []TeamWithExpenditures {
	out := make([]TeamWithExpenditures, 0, len(teams))
	for _, t := range teams {
		out = append(out, AggregateTeam(t, members, expenditures))
	}
	return out
}
