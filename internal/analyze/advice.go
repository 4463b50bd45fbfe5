package analyze

import "fmt"

// adviseOn derives advice triples from the bucket classification and
// the forecast via fixed threshold rules. No free-form text generation
// happens here; a display layer may paraphrase these later.
func adviseOn(r Report) []Advice {
	var out []Advice

	for _, b := range r.Buckets {
		switch {
		case b.Bucket == BucketNeeds && b.Status == StatusOver:
			out = append(out, Advice{
				Bucket:      BucketNeeds,
				Observation: fmt.Sprintf("essentials take %.0f%% of spending against a 50%% target", b.Share*100),
				Suggestion:  "review recurring essentials such as rent, utilities and commuting for cheaper alternatives",
			})
		case b.Bucket == BucketWants && b.Status == StatusOver:
			out = append(out, Advice{
				Bucket:      BucketWants,
				Observation: fmt.Sprintf("discretionary spending is %.0f%% against a 30%% target", b.Share*100),
				Suggestion:  "set a weekly cap on entertainment and shopping",
			})
		case b.Bucket == BucketSavings && b.Status == StatusUnder:
			out = append(out, Advice{
				Bucket:      BucketSavings,
				Observation: fmt.Sprintf("savings and debt payments are %.0f%% against a 20%% target", b.Share*100),
				Suggestion:  "move a fixed amount to savings at the start of the month",
			})
		}
	}

	// Burn-rate flag: forecast exceeding income means the month ends in
	// the red at the current pace.
	if r.TotalIncome.IsPositive() && r.Forecast.GreaterThan(r.TotalIncome) {
		out = append(out, Advice{
			Bucket:      BucketWants,
			Observation: fmt.Sprintf("projected month-end expense %s exceeds income %s", r.Forecast.StringFixed(2), r.TotalIncome.StringFixed(2)),
			Suggestion:  "cut discretionary spending for the rest of the month",
		})
	}

	return out
}
