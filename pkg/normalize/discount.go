package normalize

import (
	domain "github.com/jmhart/catalog-tracker/pkg/types"
)

// ApplyDiscounts adjusts a price through the configured rules in order.
// Within each rule percent_off applies before absolute_off. The result is
// rounded to cents and never drops below zero.
func ApplyDiscounts(price float64, rules []domain.DiscountRule) float64 {
	p := price
	for _, r := range rules {
		if r.PercentOff > 0 {
			p -= p * r.PercentOff / 100
		}
		if r.AbsoluteOff > 0 {
			p -= r.AbsoluteOff
		}
	}
	if p < 0 {
		p = 0
	}
	return Round2(p)
}
