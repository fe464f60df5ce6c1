package store

import (
	"context"
	"errors"
	"testing"

	"teamspend/internal/core"
)

// stubStore answers every operation from fixed fields; Err short-circuits
// all of them.
type stubStore struct {
	Err   error
	Teams []core.Team
	Exps  []core.Expenditure

	calls int
}

var _ Store = (*stubStore)(nil)

func (s *stubStore) GetTeams(ctx context.Context) ([]core.Team, error) {
	s.calls++
	return s.Teams, s.Err
}

func (s *stubStore) CreateTeam(ctx context.Context, team core.Team) (*core.Team, error) {
	s.calls++
	if s.Err != nil {
		return nil, s.Err
	}
	return &team, nil
}

func (s *stubStore) UpdateTeam(ctx context.Context, id string, upd TeamUpdate) (*core.Team, error) {
	s.calls++
	return nil, s.Err
}

func (s *stubStore) DeleteTeam(ctx context.Context, id string) (bool, error) {
	s.calls++
	return s.Err == nil, s.Err
}

func (s *stubStore) GetTeamMembers(ctx context.Context, teamID string) ([]core.Member, error) {
	s.calls++
	return nil, s.Err
}

func (s *stubStore) CreateMember(ctx context.Context, member core.Member) (*core.Member, error) {
	s.calls++
	if s.Err != nil {
		return nil, s.Err
	}
	return &member, nil
}

func (s *stubStore) UpdateMember(ctx context.Context, id string, upd MemberUpdate) (*core.Member, error) {
	s.calls++
	return nil, s.Err
}

func (s *stubStore) DeleteMember(ctx context.Context, id string) (bool, error) {
	s.calls++
	return s.Err == nil, s.Err
}

func (s *stubStore) GetExpenditures(ctx context.Context, window core.MonthWindow) ([]core.Expenditure, error) {
	s.calls++
	return s.Exps, s.Err
}

func (s *stubStore) AddExpenditure(ctx context.Context, e core.Expenditure) (*core.Expenditure, error) {
	s.calls++
	if s.Err != nil {
		return nil, s.Err
	}
	return &e, nil
}

func (s *stubStore) AssignMemberToExpenditure(ctx context.Context, expenditureID, memberID string) (bool, error) {
	s.calls++
	return s.Err == nil, s.Err
}

func (s *stubStore) UpdateExpenditure(ctx context.Context, id string, upd ExpenditureUpdate) (*core.Expenditure, error) {
	s.calls++
	return nil, s.Err
}

func (s *stubStore) DeleteExpenditure(ctx context.Context, id string) (bool, error) {
	s.calls++
	return s.Err == nil, s.Err
}

func (s *stubStore) InitializeTeams(ctx context.Context) (bool, error) {
	s.calls++
	return s.Err == nil, s.Err
}

func (s *stubStore) Close() error { return nil }

func TestFailoverUsesFallbackOnPrimaryError(t *testing.T) {
	primary := &stubStore{Err: errors.New("connection refused")}
	fallback := &stubStore{Teams: []core.Team{{ID: "1", Name: "Local"}}}
	f := NewFailover(primary, fallback)

	teams, err := f.GetTeams(context.Background())
	if err != nil {
		t.Fatalf("GetTeams surfaced primary error: %v", err)
	}
	if len(teams) != 1 || teams[0].Name != "Local" {
		t.Errorf("got %+v, want fallback team list", teams)
	}
}

func TestFailoverPrefersPrimary(t *testing.T) {
	primary := &stubStore{Teams: []core.Team{{ID: "1", Name: "Remote"}}}
	fallback := &stubStore{Teams: []core.Team{{ID: "1", Name: "Local"}}}
	f := NewFailover(primary, fallback)

	teams, err := f.GetTeams(context.Background())
	if err != nil {
		t.Fatalf("GetTeams: %v", err)
	}
	if teams[0].Name != "Remote" {
		t.Errorf("got %q, want primary result", teams[0].Name)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback consulted %d times while primary is healthy", fallback.calls)
	}
}

func TestFailoverIsPerCallNotSticky(t *testing.T) {
	primary := &stubStore{Err: errors.New("transient outage")}
	fallback := &stubStore{}
	f := NewFailover(primary, fallback)

	ctx := context.Background()
	if _, err := f.GetTeams(ctx); err != nil {
		t.Fatalf("first call: %v", err)
	}

	// Primary recovers: the very next call must be answered by it.
	primary.Err = nil
	primary.Teams = []core.Team{{ID: "1", Name: "Remote"}}
	teams, err := f.GetTeams(ctx)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if len(teams) != 1 || teams[0].Name != "Remote" {
		t.Errorf("gateway stuck on fallback after recovery: %+v", teams)
	}
	if primary.calls != 2 {
		t.Errorf("primary attempted %d times, want 2", primary.calls)
	}
}

func TestFailoverWriteOperations(t *testing.T) {
	primary := &stubStore{Err: errors.New("down")}
	fallback := &stubStore{}
	f := NewFailover(primary, fallback)
	ctx := context.Background()

	if created, err := f.CreateTeam(ctx, core.Team{Name: "X"}); err != nil || created == nil {
		t.Errorf("CreateTeam via fallback: %v, %v", created, err)
	}
	if ok, err := f.DeleteExpenditure(ctx, "e1"); err != nil || !ok {
		t.Errorf("DeleteExpenditure via fallback: %v, %v", ok, err)
	}
	if ok, err := f.InitializeTeams(ctx); err != nil || !ok {
		t.Errorf("InitializeTeams via fallback: %v, %v", ok, err)
	}
}
