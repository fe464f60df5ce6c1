// Package store defines the persistence gateway: one contract over a remote
// relational store and a local fallback, so callers never branch on backend
// availability.
package store

import (
	"context"
	"strconv"
	"time"

	"teamspend/internal/core"
)

// TeamUpdate is a partial team update; nil fields are left untouched.
// SetBudget distinguishes "change the budget (possibly to unlimited)" from
// "leave the budget alone".
type TeamUpdate struct {
	Name      *string
	Budget    *core.Money
	SetBudget bool
}

// MemberUpdate is a partial member update; nil fields are left untouched.
// A non-nil TeamID moves the member to another team.
type MemberUpdate struct {
	Name   *string
	TeamID *string
}

// ExpenditureUpdate is a partial expenditure update; nil fields are left
// untouched. SetMember with a nil MemberID clears the assignment.
type ExpenditureUpdate struct {
	TeamID               *string
	MemberID             *string
	SetMember            bool
	Amount               *core.Money
	UnitPrice            *core.Money
	Quantity             *int64
	Description          *string
	Date                 *string
	TeamNameHistorical   *string
	MemberNameHistorical *string
}

// Store is the uniform operation set over teams, members and expenditures.
// Not-found is reported as a nil record or false, never as an error; errors
// mean the backend itself failed and the caller may fall back.
type Store interface {
	// GetTeams returns all teams sorted by name.
	GetTeams(ctx context.Context) ([]core.Team, error)
	CreateTeam(ctx context.Context, team core.Team) (*core.Team, error)
	UpdateTeam(ctx context.Context, id string, upd TeamUpdate) (*core.Team, error)
	// DeleteTeam removes the team's expenditures first, then the team, so
	// backends without cascade support never orphan rows. Best effort: a
	// failure after the first step leaves the team with no expenditures.
	// The team's members are kept; their team reference dangles until they
	// are reassigned or deleted.
	DeleteTeam(ctx context.Context, id string) (bool, error)

	// GetTeamMembers returns members sorted by name; an empty teamID returns
	// every member across all teams.
	GetTeamMembers(ctx context.Context, teamID string) ([]core.Member, error)
	CreateMember(ctx context.Context, member core.Member) (*core.Member, error)
	UpdateMember(ctx context.Context, id string, upd MemberUpdate) (*core.Member, error)
	// DeleteMember clears the member reference on their expenditures instead
	// of deleting them; historical spend stays attributed via the snapshot
	// name.
	DeleteMember(ctx context.Context, id string) (bool, error)

	// GetExpenditures returns the window's expenditures ordered by date
	// descending, ties broken by creation time descending.
	GetExpenditures(ctx context.Context, window core.MonthWindow) ([]core.Expenditure, error)
	AddExpenditure(ctx context.Context, e core.Expenditure) (*core.Expenditure, error)
	AssignMemberToExpenditure(ctx context.Context, expenditureID, memberID string) (bool, error)
	UpdateExpenditure(ctx context.Context, id string, upd ExpenditureUpdate) (*core.Expenditure, error)
	DeleteExpenditure(ctx context.Context, id string) (bool, error)

	// InitializeTeams seeds the default team set only when no teams exist.
	// Idempotent; never overwrites existing data.
	InitializeTeams(ctx context.Context) (bool, error)

	Close() error
}

// UpdateTeamBudget changes only the team's budget cap; a nil budget makes
// the team unlimited. Kept as its own call for call-site clarity.
func UpdateTeamBudget(ctx context.Context, s Store, id string, budget *core.Money) (*core.Team, error) {
	return s.UpdateTeam(ctx, id, TeamUpdate{Budget: budget, SetBudget: true})
}

// DefaultTeams is the seed set used by InitializeTeams on an empty store.
func DefaultTeams() []core.Team {
	budget := func(cents int64) *core.Money { return &core.Money{Cents: cents} }
	return []core.Team{
		{ID: "1", Name: "Platform", Budget: budget(980000), Color: "#3b82f6"},
		{ID: "2", Name: "Mobile", Budget: budget(840000), Color: "#10b981"},
		{ID: "3", Name: "Data", Budget: budget(840000), Color: "#f59e0b"},
		{ID: "4", Name: "QA", Budget: budget(560000), Color: "#ef4444"},
	}
}

// NewID generates a time-based identifier for backends that do not assign
// their own.
func NewID() string {
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}

// Now returns a creation timestamp in RFC 3339 UTC form.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
