package services

import (
	"strings"

	"itinerary-service/internal/domain"
)

const (
	nightMarketOpens = domain.Clock(17 * 60)
	breakfastCloses  = domain.Clock(14 * 60)
	lateEvening      = domain.Clock(22 * 60)
)

const (
	WarnTooEarlyNightMarket = "too early for night-market hours"
	WarnLikelyClosed        = "likely closed"
	WarnConfirmOpen         = "confirm still open"
)

var breakfastTags = map[string]struct{}{
	"bakery":               {},
	"breakfast":            {},
	"breakfast_restaurant": {},
	"brunch_restaurant":    {},
	"早餐":                   {},
}

type situationalRule struct {
	applies func(s domain.Stop) bool
	warning string
}

// Evaluated in order; every matching rule contributes its text.
var situationalRules = []situationalRule{
	{
		applies: func(s domain.Stop) bool { return isNightMarket(s) && s.Start < nightMarketOpens },
		warning: WarnTooEarlyNightMarket,
	},
	{
		applies: func(s domain.Stop) bool { return isBreakfastLike(s) && s.Start >= breakfastCloses },
		warning: WarnLikelyClosed,
	},
	{
		applies: func(s domain.Stop) bool { return !isNightlife(s) && s.End >= lateEvening },
		warning: WarnConfirmOpen,
	},
}

// SituationalWarning returns the advisory text for s, or "".
func SituationalWarning(s domain.Stop) string {
	var out []string
	for _, r := range situationalRules {
		if r.applies(s) {
			out = append(out, r.warning)
		}
	}
	return strings.Join(out, "; ")
}

func isNightMarket(s domain.Stop) bool {
	if containsAny(strings.ToLower(s.Name), nightMarketNames) {
		return true
	}
	return hasTag(s, "night_market") || hasTag(s, "夜市")
}

func isBreakfastLike(s domain.Stop) bool {
	if containsAny(strings.ToLower(s.Name), breakfastNames) {
		return true
	}
	for _, tag := range s.CategoryTags {
		if _, ok := breakfastTags[strings.ToLower(strings.TrimSpace(tag))]; ok {
			return true
		}
	}
	return false
}

func isNightlife(s domain.Stop) bool {
	return StopTier(s) >= TierNightMarket
}

func hasTag(s domain.Stop, tag string) bool {
	for _, t := range s.CategoryTags {
		if strings.EqualFold(strings.TrimSpace(t), tag) {
			return true
		}
	}
	return false
}
