package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"teamspend/internal/core"
)

// parseMonthSelection extracts the selected year and one-based month from
// query parameters, defaulting to the current month in the reference zone.
// The returned monthIndex is zero-based for the window resolver.
func parseMonthSelection(r *http.Request) (year, monthIndex int) {
	now := time.Now().In(core.ReferenceZone)
	year = now.Year()
	month := int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			month = m
		}
	}
	return year, month - 1
}

// formatAmount renders cents as a decimal amount, e.g. 980000 -> "9800.00".
func formatAmount(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := strconv.FormatInt(cents/100, 10) + "." + fmt.Sprintf("%02d", cents%100)
	if neg {
		return "-" + s
	}
	return s
}

// formatBudget renders an optional budget cap; nil means unlimited.
func formatBudget(budget *core.Money) string {
	if budget == nil {
		return "Unlimited"
	}
	return formatAmount(budget.Cents)
}

// formatPercent renders an optional percentage; nil when no cap applies.
func formatPercent(pct *float64) string {
	if pct == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", *pct)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
