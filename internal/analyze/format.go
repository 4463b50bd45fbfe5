package analyze

import (
	"fmt"
	"strings"
)

// FormatSummaryText renders a report as plain text: no chat-specific
// markup, suitable for direct display or paraphrase by a language layer.
func FormatSummaryText(r Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Period: %s (%s)\n", r.PeriodStart.Format("January 2006"), r.Currency)
	fmt.Fprintf(&b, "Income: %s\n", r.TotalIncome.StringFixed(2))
	fmt.Fprintf(&b, "Expense: %s\n", r.TotalExpense.StringFixed(2))
	fmt.Fprintf(&b, "Net: %s\n", r.Net.StringFixed(2))
	fmt.Fprintf(&b, "Daily average: %s\n", r.DailyAverage.StringFixed(2))
	fmt.Fprintf(&b, "Forecast month-end expense: %s\n", r.Forecast.StringFixed(2))

	if len(r.Categories) > 0 {
		b.WriteString("\nExpense by category:\n")
		for _, c := range r.Categories {
			fmt.Fprintf(&b, "- %s: %s\n", c.Name, c.Amount.StringFixed(2))
		}
	}

	b.WriteString("\nBudget rule (50/30/20):\n")
	for _, bs := range r.Buckets {
		fmt.Fprintf(&b, "- %s: %s (%.0f%% of expenses, target %.0f%%, %s)\n",
			bs.Bucket, bs.Amount.StringFixed(2), bs.Share*100, bs.Target*100, bs.Status)
	}

	if len(r.Excluded) > 0 {
		fmt.Fprintf(&b, "\n%d record(s) in other currencies excluded from the sums:\n", len(r.Excluded))
		for _, e := range r.Excluded {
			fmt.Fprintf(&b, "- %s %s\n", e.Amount.StringFixed(2), e.Currency)
		}
	}

	if len(r.Advice) > 0 {
		b.WriteString("\nAdvice:\n")
		for _, a := range r.Advice {
			fmt.Fprintf(&b, "- [%s] %s; %s\n", a.Bucket, a.Observation, a.Suggestion)
		}
	}

	return b.String()
}

// FormatAssetsText renders the asset position as plain text.
func FormatAssetsText(s AssetSummary) string {
	if len(s.Balances) == 0 {
		return "No asset balances recorded yet."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Total assets: %s\n\nDistribution:\n", s.Total.StringFixed(2))
	for _, c := range s.ByCategory {
		fmt.Fprintf(&b, "- %s: %s\n", c.Name, c.Amount.StringFixed(2))
	}
	b.WriteString("\nAccounts:\n")
	for _, bal := range s.Balances {
		fmt.Fprintf(&b, "- %s: %s %s\n", bal.AccountName, bal.Balance.StringFixed(2), bal.Currency)
	}
	return b.String()
}
