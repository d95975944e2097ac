package services

import "strings"

// Bucket is the 50/30/20 class of a spending category.
type Bucket string

const (
	BucketNeeds   Bucket = "needs"
	BucketWants   Bucket = "wants"
	BucketSavings Bucket = "savings"
)

type bucketRule struct {
	keyword string
	bucket  Bucket
}

// --- STATIC DICTIONARY ---
// Checked in order: exact match first, then substring. Anything unmatched
// is a want.
var bucketRules = []bucketRule{
	// HOUSING
	{"housing", BucketNeeds}, {"rent", BucketNeeds}, {"mortgage", BucketNeeds},

	// UTILITIES / ENERGY / TELECOM
	{"utilities", BucketNeeds}, {"energy", BucketNeeds}, {"electricity", BucketNeeds},
	{"water", BucketNeeds}, {"gas", BucketNeeds}, {"internet", BucketNeeds}, {"mobile", BucketNeeds},

	// FOOD
	{"groceries", BucketNeeds}, {"supermarket", BucketNeeds},

	// TRANSPORT
	{"transportation", BucketNeeds}, {"transport", BucketNeeds}, {"fuel", BucketNeeds},

	// INSURANCE / HEALTH
	{"insurance", BucketNeeds}, {"healthcare", BucketNeeds}, {"health", BucketNeeds}, {"medical", BucketNeeds},

	// SAVINGS / DEBT
	{"savings", BucketSavings}, {"saving", BucketSavings}, {"investments", BucketSavings},
	{"investment", BucketSavings}, {"debt repayment", BucketSavings}, {"loan", BucketSavings},
}

// ClassifyCategory maps a free-form category to its bucket.
func ClassifyCategory(category string) Bucket {
	normalized := strings.ToLower(strings.TrimSpace(category))
	if normalized == "" {
		return BucketWants
	}

	for _, r := range bucketRules {
		if normalized == r.keyword {
			return r.bucket
		}
	}
	for _, r := range bucketRules {
		if strings.Contains(normalized, r.keyword) {
			return r.bucket
		}
	}
	return BucketWants
}
