// Package mysql implements the remote relational store.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"teamspend/internal/core"
	"teamspend/internal/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	db *sql.DB
}

// New opens a connection with the given DSN and brings the schema up to
// date. The client is constructed once at process start and handed to the
// gateway; there is no package-level connection.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func scanTeam(row interface{ Scan(...any) error }) (*core.Team, error) {
	var t core.Team
	var budget sql.NullInt64
	if err := row.Scan(&t.ID, &t.Name, &budget, &t.Color, &t.CreatedAt); err != nil {
		return nil, err
	}
	if budget.Valid {
		t.Budget = &core.Money{Cents: budget.Int64}
	}
	return &t, nil
}

func budgetValue(m *core.Money) any {
	if m == nil {
		return nil
	}
	return m.Cents
}

func (s *Store) GetTeams(ctx context.Context) ([]core.Team, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, budget_cents, color, created_at FROM teams ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query teams: %w", err)
	}
	defer rows.Close()

	var teams []core.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, *t)
	}
	return teams, rows.Err()
}

func (s *Store) getTeam(ctx context.Context, id string) (*core.Team, error) {
	t, err := scanTeam(s.db.QueryRowContext(ctx,
		`SELECT id, name, budget_cents, color, created_at FROM teams WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}
	return t, nil
}

func (s *Store) CreateTeam(ctx context.Context, team core.Team) (*core.Team, error) {
	if team.ID == "" {
		team.ID = store.NewID()
	}
	if team.CreatedAt == "" {
		team.CreatedAt = store.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO teams (id, name, budget_cents, color, created_at) VALUES (?, ?, ?, ?, ?)`,
		team.ID, team.Name, budgetValue(team.Budget), team.Color, team.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert team: %w", err)
	}
	return &team, nil
}

func (s *Store) UpdateTeam(ctx context.Context, id string, upd store.TeamUpdate) (*core.Team, error) {
	var sets []string
	var args []any
	if upd.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *upd.Name)
	}
	if upd.SetBudget {
		sets = append(sets, "budget_cents = ?")
		args = append(args, budgetValue(upd.Budget))
	}
	if len(sets) == 0 {
		return s.getTeam(ctx, id)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE teams SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("update team: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either missing or unchanged; only a missing row is a no-op result.
		return s.getTeam(ctx, id)
	}
	return s.getTeam(ctx, id)
}

func (s *Store) DeleteTeam(ctx context.Context, id string) (bool, error) {
	// Expenditures first, then the team. Two statements, no transaction:
	// best effort per the gateway contract, a failure between them leaves
	// the team without expenditures. Members are not touched; the members
	// table carries no foreign key to teams, so their reference dangles
	// until they are reassigned or deleted.
	if _, err := s.db.ExecContext(ctx, `DELETE FROM expenditures WHERE team_id = ?`, id); err != nil {
		return false, fmt.Errorf("delete team expenditures: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM teams WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete team: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *Store) GetTeamMembers(ctx context.Context, teamID string) ([]core.Member, error) {
	query := `SELECT id, team_id, name, created_at FROM members`
	var args []any
	if teamID != "" {
		query += ` WHERE team_id = ?`
		args = append(args, teamID)
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []core.Member
	for rows.Next() {
		var m core.Member
		if err := rows.Scan(&m.ID, &m.TeamID, &m.Name, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *Store) getMember(ctx context.Context, id string) (*core.Member, error) {
	var m core.Member
	err := s.db.QueryRowContext(ctx,
		`SELECT id, team_id, name, created_at FROM members WHERE id = ?`, id).
		Scan(&m.ID, &m.TeamID, &m.Name, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return &m, nil
}

func (s *Store) CreateMember(ctx context.Context, member core.Member) (*core.Member, error) {
	if member.ID == "" {
		member.ID = store.NewID()
	}
	if member.CreatedAt == "" {
		member.CreatedAt = store.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO members (id, team_id, name, created_at) VALUES (?, ?, ?, ?)`,
		member.ID, member.TeamID, member.Name, member.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	return &member, nil
}

func (s *Store) UpdateMember(ctx context.Context, id string, upd store.MemberUpdate) (*core.Member, error) {
	var sets []string
	var args []any
	if upd.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *upd.Name)
	}
	if upd.TeamID != nil {
		sets = append(sets, "team_id = ?")
		args = append(args, *upd.TeamID)
	}
	if len(sets) == 0 {
		return s.getMember(ctx, id)
	}
	args = append(args, id)

	if _, err := s.db.ExecContext(ctx,
		"UPDATE members SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}
	return s.getMember(ctx, id)
}

func (s *Store) DeleteMember(ctx context.Context, id string) (bool, error) {
	// The member's expenditures survive: fk_expenditures_member is
	// ON DELETE SET NULL, so only the reference is cleared.
	res, err := s.db.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete member: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func scanExpenditure(row interface{ Scan(...any) error }) (*core.Expenditure, error) {
	var e core.Expenditure
	var memberID, teamHist, memberHist sql.NullString
	err := row.Scan(&e.ID, &e.TeamID, &memberID, &e.Amount.Cents, &e.UnitPrice.Cents,
		&e.Quantity, &e.Description, &e.Date, &e.CreatedAt, &teamHist, &memberHist)
	if err != nil {
		return nil, err
	}
	e.MemberID = memberID.String
	e.TeamNameHistorical = teamHist.String
	e.MemberNameHistorical = memberHist.String
	return &e, nil
}

const expenditureColumns = `id, team_id, member_id, amount_cents, unit_price_cents,
	quantity, description, spend_date, created_at, team_name_historical, member_name_historical`

func (s *Store) GetExpenditures(ctx context.Context, window core.MonthWindow) ([]core.Expenditure, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+expenditureColumns+` FROM expenditures
		 WHERE spend_date >= ? AND spend_date <= ?
		 ORDER BY spend_date DESC, created_at DESC`,
		window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("query expenditures: %w", err)
	}
	defer rows.Close()

	var exps []core.Expenditure
	for rows.Next() {
		e, err := scanExpenditure(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expenditure: %w", err)
		}
		exps = append(exps, *e)
	}
	return exps, rows.Err()
}

func (s *Store) getExpenditure(ctx context.Context, id string) (*core.Expenditure, error) {
	e, err := scanExpenditure(s.db.QueryRowContext(ctx,
		`SELECT `+expenditureColumns+` FROM expenditures WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get expenditure: %w", err)
	}
	return e, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (s *Store) AddExpenditure(ctx context.Context, e core.Expenditure) (*core.Expenditure, error) {
	if e.ID == "" {
		e.ID = store.NewID()
	}
	if e.CreatedAt == "" {
		e.CreatedAt = store.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO expenditures (`+expenditureColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TeamID, nullable(e.MemberID), e.Amount.Cents, e.UnitPrice.Cents,
		e.Quantity, e.Description, e.Date, e.CreatedAt,
		nullable(e.TeamNameHistorical), nullable(e.MemberNameHistorical))
	if err != nil && strings.Contains(err.Error(), "member_id") {
		// Older deployments predate the member column. Keep the write alive
		// without the assignment rather than failing it.
		slog.WarnContext(ctx, "Schema lacks member column, retrying insert without assignment", "error", err)
		e.MemberID = ""
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO expenditures (id, team_id, amount_cents, unit_price_cents,
			 quantity, description, spend_date, created_at, team_name_historical, member_name_historical)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.TeamID, e.Amount.Cents, e.UnitPrice.Cents,
			e.Quantity, e.Description, e.Date, e.CreatedAt,
			nullable(e.TeamNameHistorical), nullable(e.MemberNameHistorical))
	}
	if err != nil {
		return nil, fmt.Errorf("insert expenditure: %w", err)
	}
	return &e, nil
}

func (s *Store) AssignMemberToExpenditure(ctx context.Context, expenditureID, memberID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE expenditures SET member_id = ? WHERE id = ?`, memberID, expenditureID)
	if err != nil {
		return false, fmt.Errorf("assign member: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *Store) UpdateExpenditure(ctx context.Context, id string, upd store.ExpenditureUpdate) (*core.Expenditure, error) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if upd.TeamID != nil {
		add("team_id", *upd.TeamID)
	}
	if upd.SetMember {
		if upd.MemberID != nil {
			add("member_id", *upd.MemberID)
		} else {
			add("member_id", nil)
		}
	}
	if upd.Amount != nil {
		add("amount_cents", upd.Amount.Cents)
	}
	if upd.UnitPrice != nil {
		add("unit_price_cents", upd.UnitPrice.Cents)
	}
	if upd.Quantity != nil {
		add("quantity", *upd.Quantity)
	}
	if upd.Description != nil {
		add("description", strings.TrimSpace(*upd.Description))
	}
	if upd.Date != nil {
		add("spend_date", *upd.Date)
	}
	if upd.TeamNameHistorical != nil {
		add("team_name_historical", nullable(*upd.TeamNameHistorical))
	}
	if upd.MemberNameHistorical != nil {
		add("member_name_historical", nullable(*upd.MemberNameHistorical))
	}
	if len(sets) == 0 {
		return s.getExpenditure(ctx, id)
	}
	args = append(args, id)

	if _, err := s.db.ExecContext(ctx,
		"UPDATE expenditures SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
		return nil, fmt.Errorf("update expenditure: %w", err)
	}
	return s.getExpenditure(ctx, id)
}

func (s *Store) DeleteExpenditure(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenditures WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete expenditure: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *Store) InitializeTeams(ctx context.Context) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM teams`).Scan(&count); err != nil {
		return false, fmt.Errorf("count teams: %w", err)
	}
	if count > 0 {
		return true, nil
	}
	for _, t := range store.DefaultTeams() {
		if _, err := s.CreateTeam(ctx, t); err != nil {
			return false, fmt.Errorf("seed team %s: %w", t.Name, err)
		}
	}
	slog.InfoContext(ctx, "Seeded default teams", "count", len(store.DefaultTeams()))
	return true, nil
}
