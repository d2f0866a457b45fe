package services

import (
	"slices"
	"strings"

	"itinerary-service/internal/domain"
)

// Tier is the typical time-of-day slot of a place category. Lower visits earlier.
type Tier float64

const (
	TierMorning     Tier = 1
	TierSightseeing Tier = 2
	TierDefault     Tier = 2.5
	TierShopping    Tier = 3
	TierDining      Tier = 4
	TierNightMarket Tier = 4.5
	TierNightlife   Tier = 5
)

var categoryTiers = map[string]Tier{
	"bakery":               TierMorning,
	"cafe":                 TierMorning,
	"coffee_shop":          TierMorning,
	"breakfast":            TierMorning,
	"breakfast_restaurant": TierMorning,
	"brunch_restaurant":    TierMorning,
	"早餐":                   TierMorning,
	"咖啡廳":                  TierMorning,

	"park":               TierSightseeing,
	"museum":             TierSightseeing,
	"tourist_attraction": TierSightseeing,
	"art_gallery":        TierSightseeing,
	"zoo":                TierSightseeing,
	"aquarium":           TierSightseeing,
	"amusement_park":     TierSightseeing,
	"hindu_temple":       TierSightseeing,
	"place_of_worship":   TierSightseeing,
	"natural_feature":    TierSightseeing,
	"景點":                 TierSightseeing,

	"shopping_mall":    TierShopping,
	"department_store": TierShopping,
	"store":            TierShopping,
	"clothing_store":   TierShopping,
	"book_store":       TierShopping,
	"購物":               TierShopping,

	"restaurant":    TierDining,
	"food":          TierDining,
	"meal_takeaway": TierDining,
	"美食":            TierDining,

	"night_market": TierNightlife,
	"bar":          TierNightlife,
	"pub":          TierNightlife,
	"night_club":   TierNightlife,
	"casino":       TierNightlife,
	"夜市":           TierNightlife,
}

// A name override wins over any tag when the name contains one of its needles.
type nameOverride struct {
	needles []string
	tier    Tier
}

var (
	nightMarketNames = []string{"night market", "夜市"}
	breakfastNames   = []string{"breakfast", "早餐"}
)

var nameOverrides = []nameOverride{
	{needles: nightMarketNames, tier: TierNightMarket},
	{needles: breakfastNames, tier: TierMorning},
}

// StopTier scores a stop: name overrides first, then the first tag with a known tier.
func StopTier(s domain.Stop) Tier {
	name := strings.ToLower(s.Name)
	for _, o := range nameOverrides {
		if containsAny(name, o.needles) {
			return o.tier
		}
	}
	for _, tag := range s.CategoryTags {
		if t, ok := categoryTiers[strings.ToLower(strings.TrimSpace(tag))]; ok {
			return t
		}
	}
	return TierDefault
}

// OptimizeOrder returns a copy of stops sorted by tier. Ties keep input order.
// Times are left untouched.
func OptimizeOrder(stops []domain.Stop) []domain.Stop {
	out := domain.CloneStops(stops)
	slices.SortStableFunc(out, func(a, b domain.Stop) int {
		ta, tb := StopTier(a), StopTier(b)
		switch {
		case ta < tb:
			return -1
		case ta > tb:
			return 1
		}
		return 0
	})
	return out
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
