package service

import (
	"context"
	"errors"
	"testing"

	"teamspend/internal/amqp"
	"teamspend/internal/core"
	"teamspend/internal/store"
)

// fakeStore is an in-memory gateway for exercising the write path without a
// database.
type fakeStore struct {
	teams        []core.Team
	members      []core.Member
	expenditures map[string]core.Expenditure
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		teams: []core.Team{
			{ID: "t1", Name: "Platform"},
			{ID: "t2", Name: "Mobile"},
		},
		members: []core.Member{
			{ID: "m1", TeamID: "t1", Name: "Ada"},
			{ID: "m2", TeamID: "t2", Name: "Grace"},
		},
		expenditures: map[string]core.Expenditure{},
	}
}

func (f *fakeStore) GetTeams(context.Context) ([]core.Team, error) { return f.teams, nil }
func (f *fakeStore) CreateTeam(_ context.Context, t core.Team) (*core.Team, error) {
	return &t, nil
}
func (f *fakeStore) UpdateTeam(context.Context, string, store.TeamUpdate) (*core.Team, error) {
	return nil, nil
}
func (f *fakeStore) DeleteTeam(context.Context, string) (bool, error) { return false, nil }
func (f *fakeStore) GetTeamMembers(_ context.Context, teamID string) ([]core.Member, error) {
	if teamID == "" {
		return f.members, nil
	}
	var out []core.Member
	for _, m := range f.members {
		if m.TeamID == teamID {
			out = append(out, m)
		}
	}
	return out, nil
}
func (f *fakeStore) CreateMember(_ context.Context, m core.Member) (*core.Member, error) {
	return &m, nil
}
func (f *fakeStore) UpdateMember(context.Context, string, store.MemberUpdate) (*core.Member, error) {
	return nil, nil
}
func (f *fakeStore) DeleteMember(context.Context, string) (bool, error) { return false, nil }
func (f *fakeStore) GetExpenditures(context.Context, core.MonthWindow) ([]core.Expenditure, error) {
	return nil, nil
}
func (f *fakeStore) AddExpenditure(_ context.Context, e core.Expenditure) (*core.Expenditure, error) {
	if e.ID == "" {
		e.ID = store.NewID()
	}
	f.expenditures[e.ID] = e
	return &e, nil
}
func (f *fakeStore) AssignMemberToExpenditure(context.Context, string, string) (bool, error) {
	return false, nil
}
func (f *fakeStore) UpdateExpenditure(_ context.Context, id string, upd store.ExpenditureUpdate) (*core.Expenditure, error) {
	e, ok := f.expenditures[id]
	if !ok {
		return nil, nil
	}
	if upd.TeamID != nil {
		e.TeamID = *upd.TeamID
	}
	if upd.SetMember {
		if upd.MemberID != nil {
			e.MemberID = *upd.MemberID
		} else {
			e.MemberID = ""
		}
	}
	if upd.Amount != nil {
		e.Amount = *upd.Amount
	}
	if upd.UnitPrice != nil {
		e.UnitPrice = *upd.UnitPrice
	}
	if upd.Quantity != nil {
		e.Quantity = *upd.Quantity
	}
	if upd.Description != nil {
		e.Description = *upd.Description
	}
	if upd.Date != nil {
		e.Date = *upd.Date
	}
	if upd.TeamNameHistorical != nil {
		e.TeamNameHistorical = *upd.TeamNameHistorical
	}
	if upd.MemberNameHistorical != nil {
		e.MemberNameHistorical = *upd.MemberNameHistorical
	}
	f.expenditures[id] = e
	return &e, nil
}
func (f *fakeStore) DeleteExpenditure(_ context.Context, id string) (bool, error) {
	if _, ok := f.expenditures[id]; !ok {
		return false, nil
	}
	delete(f.expenditures, id)
	return true, nil
}
func (f *fakeStore) InitializeTeams(context.Context) (bool, error) { return false, nil }
func (f *fakeStore) Close() error                                  { return nil }

type capturePublisher struct {
	events []*amqp.ExpenditureEvent
	err    error
}

func (p *capturePublisher) PublishExpenditureEvent(_ context.Context, ev *amqp.ExpenditureEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

func TestCreateComputesAmountAndSnapshots(t *testing.T) {
	st := newFakeStore()
	pub := &capturePublisher{}
	svc := NewExpenditureService(st, pub)

	e, err := svc.Create(context.Background(), ExpenditureInput{
		TeamID:      "t1",
		MemberID:    "m1",
		UnitPrice:   core.Money{Cents: 5000},
		Quantity:    2,
		Description: "Laptops",
		Date:        "2026-03-15",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if e.Amount.Cents != 10000 {
		t.Errorf("amount = %d cents, want 10000", e.Amount.Cents)
	}
	if e.TeamNameHistorical != "Platform" || e.MemberNameHistorical != "Ada" {
		t.Errorf("snapshots = %q/%q, want Platform/Ada", e.TeamNameHistorical, e.MemberNameHistorical)
	}
	if len(pub.events) != 1 || pub.events[0].Kind != amqp.ExpenditureCreated {
		t.Fatalf("published events = %+v, want one created event", pub.events)
	}
}

func TestCreateDefaultsDateToToday(t *testing.T) {
	svc := NewExpenditureService(newFakeStore(), nil)

	e, err := svc.Create(context.Background(), ExpenditureInput{
		TeamID:      "t1",
		UnitPrice:   core.Money{Cents: 100},
		Quantity:    1,
		Description: "Licenses",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if e.Date != core.Today() {
		t.Errorf("date = %q, want today %q", e.Date, core.Today())
	}
	if e.MemberNameHistorical != "" {
		t.Errorf("member snapshot = %q, want empty for unassigned", e.MemberNameHistorical)
	}
}

func TestCreateRejectsUnknownReferences(t *testing.T) {
	svc := NewExpenditureService(newFakeStore(), nil)

	_, err := svc.Create(context.Background(), ExpenditureInput{
		TeamID: "nope", UnitPrice: core.Money{Cents: 100}, Quantity: 1, Description: "x",
	})
	if !errors.Is(err, ErrUnknownTeam) {
		t.Errorf("unknown team: err = %v, want ErrUnknownTeam", err)
	}

	_, err = svc.Create(context.Background(), ExpenditureInput{
		TeamID: "t1", MemberID: "nope", UnitPrice: core.Money{Cents: 100}, Quantity: 1, Description: "x",
	})
	if !errors.Is(err, ErrUnknownMember) {
		t.Errorf("unknown member: err = %v, want ErrUnknownMember", err)
	}
}

func TestCreateSurvivesPublishFailure(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	svc := NewExpenditureService(newFakeStore(), pub)

	e, err := svc.Create(context.Background(), ExpenditureInput{
		TeamID: "t1", UnitPrice: core.Money{Cents: 100}, Quantity: 1, Description: "x",
	})
	if err != nil || e == nil {
		t.Fatalf("Create = (%v, %v), want success despite publish failure", e, err)
	}
}

func TestUpdateRecomputesAmount(t *testing.T) {
	st := newFakeStore()
	svc := NewExpenditureService(st, nil)

	created, err := svc.Create(context.Background(), ExpenditureInput{
		TeamID: "t1", UnitPrice: core.Money{Cents: 5000}, Quantity: 2, Description: "Laptops",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	price := core.Money{Cents: 3000}
	qty := int64(3)
	updated, err := svc.Update(context.Background(), created.ID, ExpenditureChange{
		UnitPrice: &price, Quantity: &qty,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Amount.Cents != 9000 {
		t.Errorf("amount = %d cents, want 9000", updated.Amount.Cents)
	}
}

func TestUpdateRequiresPriceAndQuantityTogether(t *testing.T) {
	svc := NewExpenditureService(newFakeStore(), nil)
	qty := int64(3)
	if _, err := svc.Update(context.Background(), "e1", ExpenditureChange{Quantity: &qty}); err == nil {
		t.Error("quantity without unit price accepted, want error")
	}
}

func TestUpdateRefreshesSnapshots(t *testing.T) {
	st := newFakeStore()
	svc := NewExpenditureService(st, nil)

	created, err := svc.Create(context.Background(), ExpenditureInput{
		TeamID: "t1", MemberID: "m1", UnitPrice: core.Money{Cents: 100}, Quantity: 1, Description: "x",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	team := "t2"
	member := "m2"
	updated, err := svc.Update(context.Background(), created.ID, ExpenditureChange{
		TeamID: &team, MemberID: &member,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.TeamNameHistorical != "Mobile" || updated.MemberNameHistorical != "Grace" {
		t.Errorf("snapshots = %q/%q, want Mobile/Grace", updated.TeamNameHistorical, updated.MemberNameHistorical)
	}

	cleared := ""
	updated, err = svc.Update(context.Background(), created.ID, ExpenditureChange{MemberID: &cleared})
	if err != nil {
		t.Fatalf("Update clear member: %v", err)
	}
	if updated.MemberID != "" {
		t.Errorf("after clearing: member = %q, want empty", updated.MemberID)
	}
	if updated.MemberNameHistorical != "Grace" {
		t.Errorf("snapshot = %q, want Grace retained after unassignment", updated.MemberNameHistorical)
	}
}

func TestUpdateKeepsSnapshotOfDeletedMember(t *testing.T) {
	st := newFakeStore()
	svc := NewExpenditureService(st, nil)

	// The shape a member delete leaves behind: reference cleared, name
	// snapshot retained.
	st.expenditures["e1"] = core.Expenditure{
		ID: "e1", TeamID: "t1", MemberID: "",
		Amount: core.Money{Cents: 100}, UnitPrice: core.Money{Cents: 100}, Quantity: 1,
		Description: "licenses", Date: "2025-05-10",
		TeamNameHistorical: "Platform", MemberNameHistorical: "Dave",
	}

	// The admin edit form always posts the member field, empty when no
	// member is selected.
	team := "t1"
	cleared := ""
	description := "licenses (renewal)"
	updated, err := svc.Update(context.Background(), "e1", ExpenditureChange{
		TeamID: &team, MemberID: &cleared, Description: &description,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Description != "licenses (renewal)" {
		t.Errorf("description = %q, want the edit applied", updated.Description)
	}
	if updated.MemberNameHistorical != "Dave" {
		t.Fatalf("snapshot = %q, want Dave to survive an unrelated edit", updated.MemberNameHistorical)
	}
	if name := core.ResolveMemberName(nil, *updated); name != "Dave" {
		t.Errorf("attribution = %q, want the historical name Dave", name)
	}
}

func TestAssignMemberSnapshotsName(t *testing.T) {
	st := newFakeStore()
	svc := NewExpenditureService(st, nil)

	created, err := svc.Create(context.Background(), ExpenditureInput{
		TeamID: "t1", UnitPrice: core.Money{Cents: 100}, Quantity: 1, Description: "x",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	ok, err := svc.AssignMember(context.Background(), created.ID, "m1")
	if err != nil || !ok {
		t.Fatalf("AssignMember = (%v, %v), want (true, nil)", ok, err)
	}
	got := st.expenditures[created.ID]
	if got.MemberID != "m1" || got.MemberNameHistorical != "Ada" {
		t.Errorf("assigned = %q/%q, want m1/Ada", got.MemberID, got.MemberNameHistorical)
	}

	ok, err = svc.AssignMember(context.Background(), created.ID, "nope")
	if !errors.Is(err, ErrUnknownMember) || ok {
		t.Errorf("unknown member: = (%v, %v), want ErrUnknownMember", ok, err)
	}
}

func TestDeletePublishesMarker(t *testing.T) {
	st := newFakeStore()
	pub := &capturePublisher{}
	svc := NewExpenditureService(st, pub)

	created, err := svc.Create(context.Background(), ExpenditureInput{
		TeamID: "t1", UnitPrice: core.Money{Cents: 100}, Quantity: 1, Description: "x",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	ok, err := svc.Delete(context.Background(), created.ID)
	if err != nil || !ok {
		t.Fatalf("Delete = (%v, %v), want (true, nil)", ok, err)
	}
	last := pub.events[len(pub.events)-1]
	if last.Kind != amqp.ExpenditureDeleted || last.Expenditure.ID != created.ID {
		t.Errorf("last event = %+v, want deleted marker for %s", last, created.ID)
	}

	if ok, _ := svc.Delete(context.Background(), created.ID); ok {
		t.Error("second delete reported true, want false")
	}
}
