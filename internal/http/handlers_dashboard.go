package http

import (
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"teamspend/internal/core"
)

type memberRow struct {
	Name       string
	Budget     string
	Spent      string
	Remaining  string
	Percentage string
	Width      int
}

type teamCard struct {
	Name          string
	Color         string
	Budget        string
	Spent         string
	Remaining     string
	Percentage    string
	Width         int
	Members       []memberRow
	Unassigned    string
	HasUnassigned bool
}

type dashboardView struct {
	Year        int
	Month       int
	Months      []int
	Teams       []teamCard
	TotalBudget string
	TotalSpent  string
}

// handleIndex renders the dashboard for the selected month. Teams, members
// and expenditures are fetched concurrently; a failure of any fetch fails
// the page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
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
		slog.ErrorContext(r.Context(), "Dashboard fetch failed", "error", err, "window_start", window.Start)
		http.Error(w, "failed to load dashboard data", http.StatusInternalServerError)
		return
	}

	aggregated := core.AggregateTeams(teams, members, expenditures)

	view := dashboardView{
		Year:   year,
		Month:  monthIndex + 1,
		Months: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
	}
	var totalBudget, totalSpent int64
	for _, t := range aggregated {
		card := teamCard{
			Name:       t.Team.Name,
			Color:      t.Team.Color,
			Budget:     formatBudget(t.Team.Budget),
			Spent:      formatAmount(t.TotalSpent.Cents),
			Remaining:  formatAmount(t.Remaining.Cents),
			Percentage: formatPercent(&t.PercentageUsed),
			Width:      barWidth(t.PercentageUsed),
		}
		if t.Unassigned.Cents > 0 {
			card.HasUnassigned = true
			card.Unassigned = formatAmount(t.Unassigned.Cents)
		}
		for _, m := range t.Members {
			row := memberRow{
				Name:       m.Member.Name,
				Budget:     formatBudget(m.Budget),
				Spent:      formatAmount(m.TotalSpent.Cents),
				Percentage: formatPercent(m.PercentageUsed),
			}
			if m.Remaining != nil {
				row.Remaining = formatAmount(m.Remaining.Cents)
			} else {
				row.Remaining = "-"
			}
			if m.PercentageUsed != nil {
				row.Width = barWidth(*m.PercentageUsed)
			}
			card.Members = append(card.Members, row)
		}
		view.Teams = append(view.Teams, card)

		if t.Team.Budget != nil {
			totalBudget += t.Team.Budget.Cents
		}
		totalSpent += t.TotalSpent.Cents
	}
	view.TotalBudget = formatAmount(totalBudget)
	view.TotalSpent = formatAmount(totalSpent)

	if err := s.templates.ExecuteTemplate(w, "index.html", view); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// barWidth clamps a percentage to a 0..100 progress bar width.
func barWidth(pct float64) int {
	if pct <= 0 {
		return 0
	}
	if pct >= 100 {
		return 100
	}
	width := int(pct + 0.5)
	if width < 2 {
		width = 2
	}
	return width
}
