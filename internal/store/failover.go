package store

import (
	"context"
	"log/slog"

	"teamspend/internal/core"
)

// Failover tries the primary store on every call and silently re-issues the
// call against the fallback when the primary errors. The switch is per call,
// never a sticky mode: the next call attempts the primary again. Availability
// over consistency; the two stores are never reconciled.
type Failover struct {
	primary  Store
	fallback Store
}

var _ Store = (*Failover)(nil)

func NewFailover(primary, fallback Store) *Failover {
	return &Failover{primary: primary, fallback: fallback}
}

// failover wraps one call. The degradation is logged as a warning and
// invisible to the caller.
func failover[T any](ctx context.Context, op string, primary, secondary func(context.Context) (T, error)) (T, error) {
	out, err := primary(ctx)
	if err == nil {
		return out, nil
	}
	slog.WarnContext(ctx, "Primary store failed, using local fallback", "op", op, "error", err)
	return secondary(ctx)
}

func (f *Failover) GetTeams(ctx context.Context) ([]core.Team, error) {
	return failover(ctx, "GetTeams",
		func(ctx context.Context) ([]core.Team, error) { return f.primary.GetTeams(ctx) },
		func(ctx context.Context) ([]core.Team, error) { return f.fallback.GetTeams(ctx) })
}

func (f *Failover) CreateTeam(ctx context.Context, team core.Team) (*core.Team, error) {
	return failover(ctx, "CreateTeam",
		func(ctx context.Context) (*core.Team, error) { return f.primary.CreateTeam(ctx, team) },
		func(ctx context.Context) (*core.Team, error) { return f.fallback.CreateTeam(ctx, team) })
}

func (f *Failover) UpdateTeam(ctx context.Context, id string, upd TeamUpdate) (*core.Team, error) {
	return failover(ctx, "UpdateTeam",
		func(ctx context.Context) (*core.Team, error) { return f.primary.UpdateTeam(ctx, id, upd) },
		func(ctx context.Context) (*core.Team, error) { return f.fallback.UpdateTeam(ctx, id, upd) })
}

func (f *Failover) DeleteTeam(ctx context.Context, id string) (bool, error) {
	return failover(ctx, "DeleteTeam",
		func(ctx context.Context) (bool, error) { return f.primary.DeleteTeam(ctx, id) },
		func(ctx context.Context) (bool, error) { return f.fallback.DeleteTeam(ctx, id) })
}

func (f *Failover) GetTeamMembers(ctx context.Context, teamID string) ([]core.Member, error) {
	return failover(ctx, "GetTeamMembers",
		func(ctx context.Context) ([]core.Member, error) { return f.primary.GetTeamMembers(ctx, teamID) },
		func(ctx context.Context) ([]core.Member, error) { return f.fallback.GetTeamMembers(ctx, teamID) })
}

func (f *Failover) CreateMember(ctx context.Context, member core.Member) (*core.Member, error) {
	return failover(ctx, "CreateMember",
		func(ctx context.Context) (*core.Member, error) { return f.primary.CreateMember(ctx, member) },
		func(ctx context.Context) (*core.Member, error) { return f.fallback.CreateMember(ctx, member) })
}

func (f *Failover) UpdateMember(ctx context.Context, id string, upd MemberUpdate) (*core.Member, error) {
	return failover(ctx, "UpdateMember",
		func(ctx context.Context) (*core.Member, error) { return f.primary.UpdateMember(ctx, id, upd) },
		func(ctx context.Context) (*core.Member, error) { return f.fallback.UpdateMember(ctx, id, upd) })
}

func (f *Failover) DeleteMember(ctx context.Context, id string) (bool, error) {
	return failover(ctx, "DeleteMember",
		func(ctx context.Context) (bool, error) { return f.primary.DeleteMember(ctx, id) },
		func(ctx context.Context) (bool, error) { return f.fallback.DeleteMember(ctx, id) })
}

func (f *Failover) GetExpenditures(ctx context.Context, window core.MonthWindow) ([]core.Expenditure, error) {
	return failover(ctx, "GetExpenditures",
		func(ctx context.Context) ([]core.Expenditure, error) { return f.primary.GetExpenditures(ctx, window) },
		func(ctx context.Context) ([]core.Expenditure, error) { return f.fallback.GetExpenditures(ctx, window) })
}

func (f *Failover) AddExpenditure(ctx context.Context, e core.Expenditure) (*core.Expenditure, error) {
	return failover(ctx, "AddExpenditure",
		func(ctx context.Context) (*core.Expenditure, error) { return f.primary.AddExpenditure(ctx, e) },
		func(ctx context.Context) (*core.Expenditure, error) { return f.fallback.AddExpenditure(ctx, e) })
}

func (f *Failover) AssignMemberToExpenditure(ctx context.Context, expenditureID, memberID string) (bool, error) {
	return failover(ctx, "AssignMemberToExpenditure",
		func(ctx context.Context) (bool, error) {
			return f.primary.AssignMemberToExpenditure(ctx, expenditureID, memberID)
		},
		func(ctx context.Context) (bool, error) {
			return f.fallback.AssignMemberToExpenditure(ctx, expenditureID, memberID)
		})
}

func (f *Failover) UpdateExpenditure(ctx context.Context, id string, upd ExpenditureUpdate) (*core.Expenditure, error) {
	return failover(ctx, "UpdateExpenditure",
		func(ctx context.Context) (*core.Expenditure, error) { return f.primary.UpdateExpenditure(ctx, id, upd) },
		func(ctx context.Context) (*core.Expenditure, error) { return f.fallback.UpdateExpenditure(ctx, id, upd) })
}

func (f *Failover) DeleteExpenditure(ctx context.Context, id string) (bool, error) {
	return failover(ctx, "DeleteExpenditure",
		func(ctx context.Context) (bool, error) { return f.primary.DeleteExpenditure(ctx, id) },
		func(ctx context.Context) (bool, error) { return f.fallback.DeleteExpenditure(ctx, id) })
}

func (f *Failover) InitializeTeams(ctx context.Context) (bool, error) {
	return failover(ctx, "InitializeTeams",
		func(ctx context.Context) (bool, error) { return f.primary.InitializeTeams(ctx) },
		func(ctx context.Context) (bool, error) { return f.fallback.InitializeTeams(ctx) })
}

func (f *Failover) Close() error {
	err := f.primary.Close()
	if ferr := f.fallback.Close(); ferr != nil && err == nil {
		err = ferr
	}
	return err
}
