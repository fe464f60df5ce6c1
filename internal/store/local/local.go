// Package local implements the fallback store: three JSON array buckets
// ("teams", "members", "expenditures") kept in a single-file SQLite
// key/value table. Each bucket round-trips as a whole array; there is no
// per-record addressing, so every mutation is a read-modify-write of its
// bucket.
package local

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO

	"teamspend/internal/core"
	"teamspend/internal/store"
)

const (
	bucketTeams        = "teams"
	bucketMembers      = "members"
	bucketExpenditures = "expenditures"
)

var _ store.Store = (*Store)(nil)

// Store is the local fallback persistence. A single mutex serializes the
// read-modify-write cycles; the admin UI is single-user and this is not a
// concurrency guarantee across processes.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// New opens (creating if needed) the bucket database at path.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS buckets (
		name    TEXT PRIMARY KEY,
		payload TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func readBucket[T any](ctx context.Context, s *Store, name string) ([]T, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM buckets WHERE name = ?`, name).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read bucket %s: %w", name, err)
	}
	var out []T
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return nil, fmt.Errorf("decode bucket %s: %w", name, err)
	}
	return out, nil
}

func writeBucket[T any](ctx context.Context, s *Store, name string, items []T) error {
	if items == nil {
		items = []T{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode bucket %s: %w", name, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO buckets (name, payload) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET payload = excluded.payload`,
		name, string(payload))
	if err != nil {
		return fmt.Errorf("write bucket %s: %w", name, err)
	}
	return nil
}

func (s *Store) GetTeams(ctx context.Context) ([]core.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	teams, err := readBucket[core.Team](ctx, s, bucketTeams)
	if err != nil {
		return nil, err
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].Name < teams[j].Name })
	return teams, nil
}

func (s *Store) CreateTeam(ctx context.Context, team core.Team) (*core.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	teams, err := readBucket[core.Team](ctx, s, bucketTeams)
	if err != nil {
		return nil, err
	}
	if team.ID == "" {
		team.ID = store.NewID()
	}
	if team.CreatedAt == "" {
		team.CreatedAt = store.Now()
	}
	teams = append(teams, team)
	if err := writeBucket(ctx, s, bucketTeams, teams); err != nil {
		return nil, err
	}
	return &team, nil
}

func (s *Store) UpdateTeam(ctx context.Context, id string, upd store.TeamUpdate) (*core.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	teams, err := readBucket[core.Team](ctx, s, bucketTeams)
	if err != nil {
		return nil, err
	}
	for i := range teams {
		if teams[i].ID != id {
			continue
		}
		if upd.Name != nil {
			teams[i].Name = *upd.Name
		}
		if upd.SetBudget {
			teams[i].Budget = upd.Budget
		}
		if err := writeBucket(ctx, s, bucketTeams, teams); err != nil {
			return nil, err
		}
		t := teams[i]
		return &t, nil
	}
	return nil, nil
}

func (s *Store) DeleteTeam(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Expenditures first, then the team; matches the remote store's ordering.
	exps, err := readBucket[core.Expenditure](ctx, s, bucketExpenditures)
	if err != nil {
		return false, err
	}
	kept := exps[:0]
	for _, e := range exps {
		if e.TeamID != id {
			kept = append(kept, e)
		}
	}
	if err := writeBucket(ctx, s, bucketExpenditures, kept); err != nil {
		return false, err
	}

	teams, err := readBucket[core.Team](ctx, s, bucketTeams)
	if err != nil {
		return false, err
	}
	found := false
	remaining := teams[:0]
	for _, t := range teams {
		if t.ID == id {
			found = true
			continue
		}
		remaining = append(remaining, t)
	}
	if !found {
		return false, nil
	}
	if err := writeBucket(ctx, s, bucketTeams, remaining); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) GetTeamMembers(ctx context.Context, teamID string) ([]core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, err := readBucket[core.Member](ctx, s, bucketMembers)
	if err != nil {
		return nil, err
	}
	if teamID != "" {
		filtered := members[:0]
		for _, m := range members {
			if m.TeamID == teamID {
				filtered = append(filtered, m)
			}
		}
		members = filtered
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })
	return members, nil
}

func (s *Store) CreateMember(ctx context.Context, member core.Member) (*core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, err := readBucket[core.Member](ctx, s, bucketMembers)
	if err != nil {
		return nil, err
	}
	if member.ID == "" {
		member.ID = store.NewID()
	}
	if member.CreatedAt == "" {
		member.CreatedAt = store.Now()
	}
	members = append(members, member)
	if err := writeBucket(ctx, s, bucketMembers, members); err != nil {
		return nil, err
	}
	return &member, nil
}

func (s *Store) UpdateMember(ctx context.Context, id string, upd store.MemberUpdate) (*core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, err := readBucket[core.Member](ctx, s, bucketMembers)
	if err != nil {
		return nil, err
	}
	for i := range members {
		if members[i].ID != id {
			continue
		}
		if upd.Name != nil {
			members[i].Name = *upd.Name
		}
		if upd.TeamID != nil {
			members[i].TeamID = *upd.TeamID
		}
		if err := writeBucket(ctx, s, bucketMembers, members); err != nil {
			return nil, err
		}
		m := members[i]
		return &m, nil
	}
	return nil, nil
}

func (s *Store) DeleteMember(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, err := readBucket[core.Member](ctx, s, bucketMembers)
	if err != nil {
		return false, err
	}
	found := false
	remaining := members[:0]
	for _, m := range members {
		if m.ID == id {
			found = true
			continue
		}
		remaining = append(remaining, m)
	}
	if !found {
		return false, nil
	}
	if err := writeBucket(ctx, s, bucketMembers, remaining); err != nil {
		return false, err
	}

	// Keep the member's expenditures; only the reference is cleared. The
	// historical snapshot name carries attribution from here on.
	exps, err := readBucket[core.Expenditure](ctx, s, bucketExpenditures)
	if err != nil {
		return false, err
	}
	changed := false
	for i := range exps {
		if exps[i].MemberID == id {
			exps[i].MemberID = ""
			changed = true
		}
	}
	if changed {
		if err := writeBucket(ctx, s, bucketExpenditures, exps); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (s *Store) GetExpenditures(ctx context.Context, window core.MonthWindow) ([]core.Expenditure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exps, err := readBucket[core.Expenditure](ctx, s, bucketExpenditures)
	if err != nil {
		return nil, err
	}
	filtered := exps[:0]
	for _, e := range exps {
		if window.Contains(e.Date) {
			filtered = append(filtered, e)
		}
	}
	// Most recent first, ties broken by recency of entry.
	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].Date != filtered[j].Date {
			return filtered[i].Date > filtered[j].Date
		}
		return filtered[i].CreatedAt > filtered[j].CreatedAt
	})
	return filtered, nil
}

func (s *Store) AddExpenditure(ctx context.Context, e core.Expenditure) (*core.Expenditure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exps, err := readBucket[core.Expenditure](ctx, s, bucketExpenditures)
	if err != nil {
		return nil, err
	}
	if e.ID == "" {
		e.ID = store.NewID()
	}
	if e.CreatedAt == "" {
		e.CreatedAt = store.Now()
	}
	exps = append(exps, e)
	if err := writeBucket(ctx, s, bucketExpenditures, exps); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) AssignMemberToExpenditure(ctx context.Context, expenditureID, memberID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exps, err := readBucket[core.Expenditure](ctx, s, bucketExpenditures)
	if err != nil {
		return false, err
	}
	for i := range exps {
		if exps[i].ID == expenditureID {
			exps[i].MemberID = memberID
			if err := writeBucket(ctx, s, bucketExpenditures, exps); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) UpdateExpenditure(ctx context.Context, id string, upd store.ExpenditureUpdate) (*core.Expenditure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exps, err := readBucket[core.Expenditure](ctx, s, bucketExpenditures)
	if err != nil {
		return nil, err
	}
	for i := range exps {
		if exps[i].ID != id {
			continue
		}
		applyExpenditureUpdate(&exps[i], upd)
		if err := writeBucket(ctx, s, bucketExpenditures, exps); err != nil {
			return nil, err
		}
		e := exps[i]
		return &e, nil
	}
	return nil, nil
}

func applyExpenditureUpdate(e *core.Expenditure, upd store.ExpenditureUpdate) {
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
		e.Description = strings.TrimSpace(*upd.Description)
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
}

func (s *Store) DeleteExpenditure(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exps, err := readBucket[core.Expenditure](ctx, s, bucketExpenditures)
	if err != nil {
		return false, err
	}
	found := false
	remaining := exps[:0]
	for _, e := range exps {
		if e.ID == id {
			found = true
			continue
		}
		remaining = append(remaining, e)
	}
	if !found {
		return false, nil
	}
	if err := writeBucket(ctx, s, bucketExpenditures, remaining); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) InitializeTeams(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	teams, err := readBucket[core.Team](ctx, s, bucketTeams)
	if err != nil {
		return false, err
	}
	if len(teams) > 0 {
		return true, nil
	}
	seed := store.DefaultTeams()
	now := store.Now()
	for i := range seed {
		seed[i].CreatedAt = now
	}
	if err := writeBucket(ctx, s, bucketTeams, seed); err != nil {
		return false, err
	}
	slog.InfoContext(ctx, "Seeded default teams", "count", len(seed))
	return true, nil
}
