package analyze

import "strings"

// Bucket is one of the three 50/30/20 budget-rule buckets.
type Bucket string

const (
	BucketNeeds   Bucket = "needs"
	BucketWants   Bucket = "wants"
	BucketSavings Bucket = "savings"
)

// BucketStatus is the directional flag comparing a bucket's share of
// total expense against its target.
type BucketStatus string

const (
	StatusOver     BucketStatus = "over"
	StatusUnder    BucketStatus = "under"
	StatusOnTarget BucketStatus = "on-target"
)

// Share targets of the 50/30/20 rule, with the tolerance band inside
// which a bucket counts as on-target.
var bucketTargets = map[Bucket]float64{
	BucketNeeds:   0.50,
	BucketWants:   0.30,
	BucketSavings: 0.20,
}

const targetTolerance = 0.05

// categoryBuckets maps the suggested expense taxonomy (Chinese and
// English forms) onto buckets. Lookup is normalized; unmapped
// categories fall back to Wants so nothing leaks out of the rule.
var categoryBuckets = map[string]Bucket{
	"餐饮":            BucketNeeds,
	"食品":            BucketNeeds,
	"交通":            BucketNeeds,
	"住房":            BucketNeeds,
	"房租":            BucketNeeds,
	"水电":            BucketNeeds,
	"医疗":            BucketNeeds,
	"教育":            BucketNeeds,
	"FOOD":          BucketNeeds,
	"GROCERIES":     BucketNeeds,
	"TRANSPORT":     BucketNeeds,
	"TRANSPORTATION": BucketNeeds,
	"HOUSING":       BucketNeeds,
	"RENT":          BucketNeeds,
	"UTILITIES":     BucketNeeds,
	"MEDICAL":       BucketNeeds,
	"HEALTH":        BucketNeeds,
	"EDUCATION":     BucketNeeds,

	"娱乐":            BucketWants,
	"购物":            BucketWants,
	"旅游":            BucketWants,
	"其他":            BucketWants,
	"ENTERTAINMENT": BucketWants,
	"SHOPPING":      BucketWants,
	"TRAVEL":        BucketWants,
	"OTHER":         BucketWants,

	"投资":         BucketSavings,
	"储蓄":         BucketSavings,
	"还款":         BucketSavings,
	"INVESTMENT": BucketSavings,
	"SAVINGS":    BucketSavings,
	"DEBT":       BucketSavings,
}

// bucketForCategory classifies a category. The fallback bucket for
// anything unmapped is Wants.
func bucketForCategory(category string) Bucket {
	if b, ok := categoryBuckets[normalizeCategory(category)]; ok {
		return b
	}
	return BucketWants
}

func normalizeCategory(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func bucketStatus(share, target float64) BucketStatus {
	switch {
	case share > target+targetTolerance:
		return StatusOver
	case share < target-targetTolerance:
		return StatusUnder
	default:
		return StatusOnTarget
	}
}
