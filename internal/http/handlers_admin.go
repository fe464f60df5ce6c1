package http

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"teamspend/internal/core"
	"teamspend/internal/service"
	"teamspend/internal/store"
)

// The admin console is gated by a literal credential comparison. This is
// deliberately not a real authentication system.
const (
	adminUsername = "admin"
	adminPassword = "admin123"
)

const sessionCookie = "teamspend_admin"

func (s *Server) authenticated(r *http.Request) bool {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return false
	}
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	return s.sessionToken != "" && c.Value == s.sessionToken
}

// requireSession guards admin mutations; unauthenticated requests land back
// on the login page.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticated(r) {
			http.Redirect(w, r, "/admin", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.redirectAdmin(w, r, "Invalid request format")
		return
	}

	username := strings.TrimSpace(r.Form.Get("username"))
	password := r.Form.Get("password")
	if username != adminUsername || password != adminPassword {
		slog.WarnContext(r.Context(), "Admin login rejected", "username", username)
		s.redirectAdmin(w, r, "Invalid credentials")
		return
	}

	token := newSessionToken()
	s.sessionMu.Lock()
	s.sessionToken = token
	s.sessionMu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	slog.InfoContext(r.Context(), "Admin login accepted")
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessionMu.Lock()
	s.sessionToken = ""
	s.sessionMu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func newSessionToken() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return generateRequestID()
	}
	return hex.EncodeToString(bytes)
}

type expenditureRow struct {
	ID          string
	Date        string
	TeamID      string
	TeamName    string
	MemberID    string
	MemberName  string
	Description string
	Quantity    int64
	UnitPrice   string
	Amount      string
}

type memberOption struct {
	ID       string
	Name     string
	TeamID   string
	TeamName string
}

type teamOption struct {
	ID     string
	Name   string
	Color  string
	Budget string
}

type adminView struct {
	Year         int
	Month        int
	Months       []int
	Error        string
	Notice       string
	Expenditures []expenditureRow
	Teams        []teamOption
	Members      []memberOption
}

// handleAdmin renders the login page for anonymous visitors and the console
// for the authenticated session.
func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	if !s.authenticated(r) {
		data := struct{ Error string }{Error: r.URL.Query().Get("error")}
		if err := s.templates.ExecuteTemplate(w, "login.html", data); err != nil {
			slog.ErrorContext(r.Context(), "Login template execution failed", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	year, monthIndex := parseMonthSelection(r)
	window := core.ResolveMonthWindow(year, monthIndex)

	var (
		teams        []core.Team
		members      []core.Member
		expenditures []core.Expenditure
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		teams, err = s.store.GetTeams(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		members, err = s.store.GetTeamMembers(ctx, "")
		return err
	})
	g.Go(func() error {
		var err error
		expenditures, err = s.store.GetExpenditures(ctx, window)
		return err
	})
	if err := g.Wait(); err != nil {
		slog.ErrorContext(r.Context(), "Admin fetch failed", "error", err)
		http.Error(w, "failed to load admin data", http.StatusInternalServerError)
		return
	}

	view := adminView{
		Year:   year,
		Month:  monthIndex + 1,
		Months: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
		Error:  r.URL.Query().Get("error"),
		Notice: r.URL.Query().Get("notice"),
	}
	for _, e := range expenditures {
		view.Expenditures = append(view.Expenditures, expenditureRow{
			ID:          e.ID,
			Date:        e.Date,
			TeamID:      e.TeamID,
			TeamName:    core.ResolveTeamName(teams, e),
			MemberID:    e.MemberID,
			MemberName:  core.ResolveMemberName(members, e),
			Description: e.Description,
			Quantity:    e.Quantity,
			UnitPrice:   formatAmount(e.UnitPrice.Cents),
			Amount:      formatAmount(e.Amount.Cents),
		})
	}
	for _, t := range teams {
		view.Teams = append(view.Teams, teamOption{
			ID:     t.ID,
			Name:   t.Name,
			Color:  t.Color,
			Budget: formatBudget(t.Budget),
		})
	}
	for _, m := range members {
		opt := memberOption{ID: m.ID, Name: m.Name, TeamID: m.TeamID}
		for _, t := range teams {
			if t.ID == m.TeamID {
				opt.TeamName = t.Name
				break
			}
		}
		view.Members = append(view.Members, opt)
	}

	if err := s.templates.ExecuteTemplate(w, "admin.html", view); err != nil {
		slog.ErrorContext(r.Context(), "Admin template execution failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// redirectAdmin sends the browser back to the console; a non-empty message
// surfaces as a blocking error banner.
func (s *Server) redirectAdmin(w http.ResponseWriter, r *http.Request, errMsg string) {
	target := "/admin"
	params := url.Values{}
	if v := r.Form.Get("year"); v != "" {
		params.Set("year", v)
	}
	if v := r.Form.Get("month"); v != "" {
		params.Set("month", v)
	}
	if errMsg != "" {
		params.Set("error", errMsg)
	}
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// postForm rejects non-POST methods and parses the form, reporting whether
// the handler may proceed.
func (s *Server) postForm(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	if err := r.ParseForm(); err != nil {
		s.redirectAdmin(w, r, "Invalid request format")
		return false
	}
	return true
}

func (s *Server) handleCreateExpenditure(w http.ResponseWriter, r *http.Request) {
	if !s.postForm(w, r) {
		return
	}

	unitPriceCents, err := core.ParseDecimalToCents(r.Form.Get("unit_price"))
	if err != nil {
		s.redirectAdmin(w, r, "Invalid unit price")
		return
	}
	quantity, err := strconv.ParseInt(strings.TrimSpace(r.Form.Get("quantity")), 10, 64)
	if err != nil || quantity <= 0 {
		s.redirectAdmin(w, r, "Invalid quantity")
		return
	}

	_, err = s.svc.Create(r.Context(), service.ExpenditureInput{
		TeamID:      r.Form.Get("team_id"),
		MemberID:    r.Form.Get("member_id"),
		UnitPrice:   core.Money{Cents: unitPriceCents},
		Quantity:    quantity,
		Description: sanitizeInput(r.Form.Get("description")),
		Date:        strings.TrimSpace(r.Form.Get("date")),
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "Create expenditure failed", "error", err)
		s.redirectAdmin(w, r, "Could not save expenditure: "+err.Error())
		return
	}
	s.redirectAdmin(w, r, "")
}

func (s *Server) handleUpdateExpenditure(w http.ResponseWriter, r *http.Request) {
	if !s.postForm(w, r) {
		return
	}
	id := r.Form.Get("id")
	if id == "" {
		s.redirectAdmin(w, r, "Missing expenditure id")
		return
	}

	unitPriceCents, err := core.ParseDecimalToCents(r.Form.Get("unit_price"))
	if err != nil {
		s.redirectAdmin(w, r, "Invalid unit price")
		return
	}
	quantity, err := strconv.ParseInt(strings.TrimSpace(r.Form.Get("quantity")), 10, 64)
	if err != nil || quantity <= 0 {
		s.redirectAdmin(w, r, "Invalid quantity")
		return
	}

	teamID := r.Form.Get("team_id")
	memberID := r.Form.Get("member_id")
	description := sanitizeInput(r.Form.Get("description"))
	date := strings.TrimSpace(r.Form.Get("date"))
	unitPrice := core.Money{Cents: unitPriceCents}

	updated, err := s.svc.Update(r.Context(), id, service.ExpenditureChange{
		TeamID:      &teamID,
		MemberID:    &memberID,
		UnitPrice:   &unitPrice,
		Quantity:    &quantity,
		Description: &description,
		Date:        &date,
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "Update expenditure failed", "error", err, "id", id)
		s.redirectAdmin(w, r, "Could not update expenditure: "+err.Error())
		return
	}
	if updated == nil {
		s.redirectAdmin(w, r, "Expenditure not found")
		return
	}
	s.redirectAdmin(w, r, "")
}

func (s *Server) handleDeleteExpenditure(w http.ResponseWriter, r *http.Request) {
	if !s.postForm(w, r) {
		return
	}
	ok, err := s.svc.Delete(r.Context(), r.Form.Get("id"))
	if err != nil {
		slog.ErrorContext(r.Context(), "Delete expenditure failed", "error", err)
		s.redirectAdmin(w, r, "Could not delete expenditure")
		return
	}
	if !ok {
		s.redirectAdmin(w, r, "Expenditure not found")
		return
	}
	s.redirectAdmin(w, r, "")
}

func (s *Server) handleAssignMember(w http.ResponseWriter, r *http.Request) {
	if !s.postForm(w, r) {
		return
	}
	ok, err := s.svc.AssignMember(r.Context(), r.Form.Get("expenditure_id"), r.Form.Get("member_id"))
	if err != nil {
		slog.ErrorContext(r.Context(), "Assign member failed", "error", err)
		s.redirectAdmin(w, r, "Could not assign member: "+err.Error())
		return
	}
	if !ok {
		s.redirectAdmin(w, r, "Expenditure not found")
		return
	}
	s.redirectAdmin(w, r, "")
}

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	if !s.postForm(w, r) {
		return
	}
	name := sanitizeInput(r.Form.Get("name"))
	if name == "" {
		s.redirectAdmin(w, r, "Team name is required")
		return
	}
	color := strings.TrimSpace(r.Form.Get("color"))
	if color == "" {
		color = "#3b82f6"
	}
	budget := core.Money{Cents: core.CoerceBudgetCents(r.Form.Get("budget"))}

	if _, err := s.store.CreateTeam(r.Context(), core.Team{
		Name:   name,
		Budget: &budget,
		Color:  color,
	}); err != nil {
		slog.ErrorContext(r.Context(), "Create team failed", "error", err)
		s.redirectAdmin(w, r, "Could not create team")
		return
	}
	s.redirectAdmin(w, r, "")
}

func (s *Server) handleUpdateTeam(w http.ResponseWriter, r *http.Request) {
	if !s.postForm(w, r) {
		return
	}
	name := sanitizeInput(r.Form.Get("name"))
	if name == "" {
		s.redirectAdmin(w, r, "Team name is required")
		return
	}
	updated, err := s.store.UpdateTeam(r.Context(), r.Form.Get("id"), store.TeamUpdate{Name: &name})
	if err != nil {
		slog.ErrorContext(r.Context(), "Update team failed", "error", err)
		s.redirectAdmin(w, r, "Could not update team")
		return
	}
	if updated == nil {
		s.redirectAdmin(w, r, "Team not found")
		return
	}
	s.redirectAdmin(w, r, "")
}

// handleUpdateTeamBudget changes only the budget cap; an empty budget field
// makes the team unlimited.
func (s *Server) handleUpdateTeamBudget(w http.ResponseWriter, r *http.Request) {
	if !s.postForm(w, r) {
		return
	}
	var budget *core.Money
	if v := strings.TrimSpace(r.Form.Get("budget")); v != "" {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			s.redirectAdmin(w, r, "Invalid budget amount")
			return
		}
		budget = &core.Money{Cents: cents}
	}
	updated, err := store.UpdateTeamBudget(r.Context(), s.store, r.Form.Get("id"), budget)
	if err != nil {
		slog.ErrorContext(r.Context(), "Update team budget failed", "error", err)
		s.redirectAdmin(w, r, "Could not update budget")
		return
	}
	if updated == nil {
		s.redirectAdmin(w, r, "Team not found")
		return
	}
	s.redirectAdmin(w, r, "")
}

func (s *Server) handleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	if !s.postForm(w, r) {
		return
	}
	ok, err := s.store.DeleteTeam(r.Context(), r.Form.Get("id"))
	if err != nil {
		slog.ErrorContext(r.Context(), "Delete team failed", "error", err)
		s.redirectAdmin(w, r, "Could not delete team")
		return
	}
	if !ok {
		s.redirectAdmin(w, r, "Team not found")
		return
	}
	s.redirectAdmin(w, r, "")
}

func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	if !s.postForm(w, r) {
		return
	}
	name := sanitizeInput(r.Form.Get("name"))
	teamID := r.Form.Get("team_id")
	if name == "" || teamID == "" {
		s.redirectAdmin(w, r, "Member name and team are required")
		return
	}
	if _, err := s.store.CreateMember(r.Context(), core.Member{TeamID: teamID, Name: name}); err != nil {
		slog.ErrorContext(r.Context(), "Create member failed", "error", err)
		s.redirectAdmin(w, r, "Could not create member")
		return
	}
	s.redirectAdmin(w, r, "")
}

func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	if !s.postForm(w, r) {
		return
	}
	upd := store.MemberUpdate{}
	if name := sanitizeInput(r.Form.Get("name")); name != "" {
		upd.Name = &name
	}
	if teamID := r.Form.Get("team_id"); teamID != "" {
		upd.TeamID = &teamID
	}
	updated, err := s.store.UpdateMember(r.Context(), r.Form.Get("id"), upd)
	if err != nil {
		slog.ErrorContext(r.Context(), "Update member failed", "error", err)
		s.redirectAdmin(w, r, "Could not update member")
		return
	}
	if updated == nil {
		s.redirectAdmin(w, r, "Member not found")
		return
	}
	s.redirectAdmin(w, r, "")
}

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	if !s.postForm(w, r) {
		return
	}
	ok, err := s.store.DeleteMember(r.Context(), r.Form.Get("id"))
	if err != nil {
		slog.ErrorContext(r.Context(), "Delete member failed", "error", err)
		s.redirectAdmin(w, r, "Could not delete member")
		return
	}
	if !ok {
		s.redirectAdmin(w, r, "Member not found")
		return
	}
	s.redirectAdmin(w, r, "")
}
