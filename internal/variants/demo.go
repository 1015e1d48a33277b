package variants

import "github.com/jordanhubbard/weft/pkg/types"

// NewDemoCatalog seeds a catalog with the stock hero variants used by the
// CLI demo and tests.
func NewDemoCatalog() *MemoryCatalog {
	c := NewMemoryCatalog()
	for _, v := range demoVariants() {
		c.Add(v)
	}
	return c
}

func demoVariants() []*types.Variant {
	return []*types.Variant{
		{
			VariantID:   "hero_confident_v1",
			ComponentID: "hero",
			VariantType: "headline",
			Content: map[string]interface{}{
				"headline":    "Complete Your Purchase Today",
				"subheadline": "Join thousands of satisfied customers",
				"cta_text":    "Buy Now",
				"urgency":     "high",
			},
			TargetIdentity:     types.IdentityConfident,
			PerformanceMetrics: map[string]float64{"conversion_rate": 0.15},
		},
		{
			VariantID:   "hero_exploratory_v1",
			ComponentID: "hero",
			VariantType: "headline",
			Content: map[string]interface{}{
				"headline":    "Discover Our Collection",
				"subheadline": "Find the perfect fit for your needs",
				"cta_text":    "Explore Products",
				"urgency":     "low",
			},
			TargetIdentity:     types.IdentityExploratory,
			PerformanceMetrics: map[string]float64{"conversion_rate": 0.08},
		},
		{
			VariantID:   "hero_overwhelmed_v1",
			ComponentID: "hero",
			VariantType: "headline",
			Content: map[string]interface{}{
				"headline":    "We'll Help You Choose",
				"subheadline": "Answer 3 quick questions to find your match",
				"cta_text":    "Get Started",
				"urgency":     "medium",
			},
			TargetIdentity:     types.IdentityOverwhelmed,
			PerformanceMetrics: map[string]float64{"conversion_rate": 0.12},
		},
		{
			VariantID:   "hero_comparison_v1",
			ComponentID: "hero",
			VariantType: "headline",
			Content: map[string]interface{}{
				"headline":    "Compare Our Best Sellers",
				"subheadline": "Side-by-side feature breakdown",
				"cta_text":    "See Comparison",
				"urgency":     "low",
			},
			TargetIdentity:     types.IdentityComparisonFocused,
			PerformanceMetrics: map[string]float64{"conversion_rate": 0.11},
		},
		{
			VariantID:   "hero_ready_v1",
			ComponentID: "hero",
			VariantType: "headline",
			Content: map[string]interface{}{
				"headline":    "Ready to Check Out?",
				"subheadline": "Free shipping on orders over $50",
				"cta_text":    "Proceed to Checkout",
				"urgency":     "high",
			},
			TargetIdentity:     types.IdentityReadyToDecide,
			PerformanceMetrics: map[string]float64{"conversion_rate": 0.18},
		},
	}
}
