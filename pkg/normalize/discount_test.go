package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domain "github.com/jmhart/catalog-tracker/pkg/types"
)

func TestApplyDiscounts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		price float64
		rules []domain.DiscountRule
		want  float64
	}{
		{
			name:  "no rules",
			price: 100,
			want:  100,
		},
		{
			name:  "percent off",
			price: 100,
			rules: []domain.DiscountRule{{PercentOff: 10}},
			want:  90,
		},
		{
			name:  "absolute off",
			price: 100,
			rules: []domain.DiscountRule{{AbsoluteOff: 15}},
			want:  85,
		},
		{
			name:  "percent before absolute in one rule",
			price: 100,
			rules: []domain.DiscountRule{{PercentOff: 10, AbsoluteOff: 5}},
			want:  85, // 100 -> 90 -> 85
		},
		{
			name:  "rules apply in order",
			price: 200,
			rules: []domain.DiscountRule{{AbsoluteOff: 100}, {PercentOff: 50}},
			want:  50,
		},
		{
			name:  "never below zero",
			price: 10,
			rules: []domain.DiscountRule{{AbsoluteOff: 25}},
			want:  0,
		},
		{
			name:  "rounds to cents",
			price: 19.99,
			rules: []domain.DiscountRule{{PercentOff: 33.333}},
			want:  13.33,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, ApplyDiscounts(tt.price, tt.rules), 1e-9)
		})
	}
}
