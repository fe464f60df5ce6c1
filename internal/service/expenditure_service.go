// Package service holds the expenditure write path. Every surface that
// creates or mutates an expenditure goes through ExpenditureService, which
// is where the amount invariant and the historical name snapshots are
// enforced; callers never write snapshots themselves.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"teamspend/internal/amqp"
	"teamspend/internal/core"
	"teamspend/internal/store"
)

var (
	ErrUnknownTeam   = errors.New("unknown team")
	ErrUnknownMember = errors.New("unknown member")
)

// EventPublisher is satisfied by the AMQP client. A nil publisher disables
// event publication without changing the write path.
type EventPublisher interface {
	PublishExpenditureEvent(ctx context.Context, ev *amqp.ExpenditureEvent) error
}

type ExpenditureService struct {
	store  store.Store
	events EventPublisher
}

func NewExpenditureService(st store.Store, events EventPublisher) *ExpenditureService {
	return &ExpenditureService{store: st, events: events}
}

// ExpenditureInput is what callers provide; the service derives everything
// else (id, amount, date default, snapshots).
type ExpenditureInput struct {
	TeamID      string
	MemberID    string // optional
	UnitPrice   core.Money
	Quantity    int64
	Description string
	Date        string // empty means today in the reference zone
}

// ExpenditureChange is a partial update. UnitPrice and Quantity travel
// together so the amount can be recomputed.
type ExpenditureChange struct {
	TeamID      *string
	MemberID    *string // non-nil empty string clears the assignment
	UnitPrice   *core.Money
	Quantity    *int64
	Description *string
	Date        *string
}

// Create validates the input, computes the amount, snapshots the current
// team and member names, and persists through the gateway. The change event
// is published best effort after the write; a publish failure never fails
// the request.
func (s *ExpenditureService) Create(ctx context.Context, in ExpenditureInput) (*core.Expenditure, error) {
	date := in.Date
	if date == "" {
		date = core.Today()
	}

	teamName, memberName, err := s.snapshotNames(ctx, in.TeamID, in.MemberID)
	if err != nil {
		return nil, err
	}

	e := core.Expenditure{
		TeamID:               in.TeamID,
		MemberID:             in.MemberID,
		Amount:               core.Money{Cents: in.UnitPrice.Cents * in.Quantity},
		UnitPrice:            in.UnitPrice,
		Quantity:             in.Quantity,
		Description:          strings.TrimSpace(in.Description),
		Date:                 date,
		TeamNameHistorical:   teamName,
		MemberNameHistorical: memberName,
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	created, err := s.store.AddExpenditure(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("add expenditure: %w", err)
	}
	if created != nil {
		s.publish(ctx, amqp.ExpenditureCreated, *created)
	}
	return created, nil
}

// Update applies a partial change. Changing the unit price or quantity
// requires both so the stored amount stays unit_price times quantity; a
// team change or a new member assignment refreshes the corresponding
// snapshot. Clearing the member leaves the snapshot untouched so the name
// still resolves for spend attributed to a since-deleted member.
func (s *ExpenditureService) Update(ctx context.Context, id string, ch ExpenditureChange) (*core.Expenditure, error) {
	if (ch.UnitPrice == nil) != (ch.Quantity == nil) {
		return nil, errors.New("unit price and quantity must be updated together")
	}

	upd := store.ExpenditureUpdate{
		Description: ch.Description,
		Date:        ch.Date,
	}
	if ch.Date != nil && !core.ValidDate(*ch.Date) {
		return nil, core.ErrInvalidDate
	}
	if ch.UnitPrice != nil {
		if err := ch.UnitPrice.Validate(); err != nil {
			return nil, err
		}
		if *ch.Quantity <= 0 {
			return nil, core.ErrInvalidQuantity
		}
		amount := core.Money{Cents: ch.UnitPrice.Cents * *ch.Quantity}
		upd.UnitPrice = ch.UnitPrice
		upd.Quantity = ch.Quantity
		upd.Amount = &amount
	}

	if ch.TeamID != nil {
		teamName, _, err := s.snapshotNames(ctx, *ch.TeamID, "")
		if err != nil {
			return nil, err
		}
		upd.TeamID = ch.TeamID
		upd.TeamNameHistorical = &teamName
	}
	if ch.MemberID != nil {
		upd.SetMember = true
		if *ch.MemberID == "" {
			// Clearing the reference keeps the snapshot: attribution of
			// an already-deleted member must survive unrelated edits.
			upd.MemberID = nil
		} else {
			memberName, err := s.memberName(ctx, *ch.MemberID)
			if err != nil {
				return nil, err
			}
			upd.MemberID = ch.MemberID
			upd.MemberNameHistorical = &memberName
		}
	}

	updated, err := s.store.UpdateExpenditure(ctx, id, upd)
	if err != nil {
		return nil, fmt.Errorf("update expenditure: %w", err)
	}
	if updated != nil {
		s.publish(ctx, amqp.ExpenditureUpdated, *updated)
	}
	return updated, nil
}

// AssignMember attaches a member to an existing expenditure, refreshing the
// member snapshot alongside the reference.
func (s *ExpenditureService) AssignMember(ctx context.Context, expenditureID, memberID string) (bool, error) {
	memberName, err := s.memberName(ctx, memberID)
	if err != nil {
		return false, err
	}
	updated, err := s.store.UpdateExpenditure(ctx, expenditureID, store.ExpenditureUpdate{
		SetMember:            true,
		MemberID:             &memberID,
		MemberNameHistorical: &memberName,
	})
	if err != nil {
		return false, fmt.Errorf("assign member: %w", err)
	}
	if updated == nil {
		return false, nil
	}
	s.publish(ctx, amqp.ExpenditureUpdated, *updated)
	return true, nil
}

// Delete removes the expenditure and publishes a deletion marker carrying
// only the id.
func (s *ExpenditureService) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := s.store.DeleteExpenditure(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete expenditure: %w", err)
	}
	if ok {
		s.publish(ctx, amqp.ExpenditureDeleted, core.Expenditure{ID: id})
	}
	return ok, nil
}

// snapshotNames resolves the current team name and, when memberID is set,
// the member name. Unknown references are validation errors: a snapshot
// must never be written from a dangling id.
func (s *ExpenditureService) snapshotNames(ctx context.Context, teamID, memberID string) (string, string, error) {
	teams, err := s.store.GetTeams(ctx)
	if err != nil {
		return "", "", fmt.Errorf("load teams for snapshot: %w", err)
	}
	teamName := ""
	for _, t := range teams {
		if t.ID == teamID {
			teamName = t.Name
			break
		}
	}
	if teamName == "" {
		return "", "", ErrUnknownTeam
	}

	memberName := ""
	if memberID != "" {
		memberName, err = s.memberName(ctx, memberID)
		if err != nil {
			return "", "", err
		}
	}
	return teamName, memberName, nil
}

func (s *ExpenditureService) memberName(ctx context.Context, memberID string) (string, error) {
	members, err := s.store.GetTeamMembers(ctx, "")
	if err != nil {
		return "", fmt.Errorf("load members for snapshot: %w", err)
	}
	for _, m := range members {
		if m.ID == memberID {
			return m.Name, nil
		}
	}
	return "", ErrUnknownMember
}

func (s *ExpenditureService) publish(ctx context.Context, kind amqp.EventKind, e core.Expenditure) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishExpenditureEvent(ctx, amqp.NewExpenditureEvent(kind, e)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expenditure event",
			"kind", kind, "expenditure_id", e.ID, "error", err)
	}
}
