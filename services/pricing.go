package services

import "github.com/cppla/fitquest/models"

const (
	// BadgeDiscount is the flat discount per earned badge.
	BadgeDiscount = 100

	maxCreditDivisor = 5  // credits cover at most 20% of premium
	minPriceDivisor  = 10 // price never drops below 10% of premium
)

// DiscountBreakdown explains how a plan's discount was reached.
type DiscountBreakdown struct {
	BadgeDiscount  int `json:"badgeDiscount"`
	CreditDiscount int `json:"creditDiscount"`
	TotalBadges    int `json:"totalBadges"`
	TotalCredits   int `json:"totalCredits"`
}

// Price is the outcome of discounting one premium.
type Price struct {
	Original  int
	Discount  int
	Final     int
	Breakdown DiscountBreakdown
}

// PricedPlan is a catalog entry with the caller's discount applied.
type PricedPlan struct {
	models.InsurancePlan
	OriginalPrice     int               `json:"originalPrice"`
	Discount          int               `json:"discount"`
	FinalPrice        int               `json:"finalPrice"`
	DiscountBreakdown DiscountBreakdown `json:"discountBreakdown"`
}

// PriceFor discounts premium by 100 per badge plus credits capped at 20% of premium.
// The final price never drops below 10% of premium. Negative inputs count as zero.
func PriceFor(premium, badges, credits int) Price {
	premium, badges, credits = max(premium, 0), max(badges, 0), max(credits, 0)

	badgeDiscount := badges * BadgeDiscount
	creditDiscount := min(credits, premium/maxCreditDivisor)
	total := badgeDiscount + creditDiscount
	floor := premium / minPriceDivisor

	return Price{
		Original: premium,
		Discount: total,
		Final:    max(premium-total, floor),
		Breakdown: DiscountBreakdown{
			BadgeDiscount:  badgeDiscount,
			CreditDiscount: creditDiscount,
			TotalBadges:    badges,
			TotalCredits:   credits,
		},
	}
}

// PricePlans applies the rewards discount to every plan.
func PricePlans(plans []models.InsurancePlan, rewards *models.Rewards) []PricedPlan {
	badges, credits := 0, 0
	if rewards != nil {
		badges, credits = len(rewards.Badges), rewards.Credits
	}
	out := make([]PricedPlan, 0, len(plans))
	for _, plan := range plans {
		p := PriceFor(plan.PremiumAmount, badges, credits)
		out = append(out, PricedPlan{
			InsurancePlan:     plan,
			OriginalPrice:     p.Original,
			Discount:          p.Discount,
			FinalPrice:        p.Final,
			DiscountBreakdown: p.Breakdown,
		})
	}
	return out
}
