package risk

import (
	"math"
	"strings"

	"github.com/rohankatakam/changerisk/internal/classify"
)

// Risk category labels derived from bus-factor risk
const (
	CategoryVeryHigh = "Very High"
	CategoryHigh     = "High"
	CategoryMedium   = "Medium"
	CategoryLow      = "Low"
	CategoryVeryLow  = "Very Low"
)

// Developer risk levels derived from developer risk
const (
	LevelCritical = "Critical"
	LevelHigh     = "High"
	LevelMedium   = "Medium"
	LevelLow      = "Low"
	LevelMinimal  = "Minimal"
)

// Thresholds used by IsCritical
const (
	CriticalBusFactor = 3.0
	CriticalHotspot   = 10.0
)

var coreCategories = map[classify.Category]bool{
	classify.CSharp:        true,
	classify.SQL:           true,
	classify.CSharpProject: true,
}

var coreNameKeywords = []string{"controller", "service", "manager", "repository"}

// BusFactorRisk maps the number of distinct developers on a file to a
// 0..5 risk score. It never increases as developers are added.
func BusFactorRisk(developers int) float64 {
	switch {
	case developers <= 0:
		return 0
	case developers == 1:
		return 5.0
	case developers == 2:
		return 3.5
	case developers <= 4:
		return 2.0
	case developers <= 7:
		return 1.0
	default:
		return 0.2
	}
}

// HotspotScore weighs total churn, recent churn (double) and a capped size proxy
func HotspotScore(totalCommits, recentCommits, sizeEstimate int) float64 {
	sizeFactor := math.Min(float64(sizeEstimate)/100, 3.0)
	return float64(totalCommits)*0.4 + float64(recentCommits*2)*0.4 + sizeFactor*0.2
}

// IsCritical flags files with high ownership risk, high churn, a core
// category or a core role in their name.
func IsCritical(busFactor, hotspot float64, category classify.Category, filename string) bool {
	if busFactor >= CriticalBusFactor || hotspot >= CriticalHotspot {
		return true
	}
	if coreCategories[category] {
		return true
	}
	lower := strings.ToLower(filename)
	for _, kw := range coreNameKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// RiskCategory labels a bus-factor risk score
func RiskCategory(busFactor float64) string {
	switch {
	case busFactor >= 4.0:
		return CategoryVeryHigh
	case busFactor >= 3.0:
		return CategoryHigh
	case busFactor >= 2.0:
		return CategoryMedium
	case busFactor >= 1.0:
		return CategoryLow
	default:
		return CategoryVeryLow
	}
}

// OwnershipPercentage is the share of all analyzed files a developer touched
func OwnershipPercentage(filesOwned, totalFiles int) float64 {
	if totalFiles <= 0 {
		return 0
	}
	return float64(filesOwned) / float64(totalFiles) * 100
}

// DeveloperRisk maps ownership percentage to a 0.5..5 risk score
func DeveloperRisk(ownershipPct float64) float64 {
	switch {
	case ownershipPct >= 50:
		return 5.0
	case ownershipPct >= 30:
		return 4.0
	case ownershipPct >= 20:
		return 3.0
	case ownershipPct >= 10:
		return 2.0
	case ownershipPct >= 5:
		return 1.0
	default:
		return 0.5
	}
}

// DeveloperRiskLevel labels a developer risk score
func DeveloperRiskLevel(risk float64) string {
	switch {
	case risk >= 4.0:
		return LevelCritical
	case risk >= 3.0:
		return LevelHigh
	case risk >= 2.0:
		return LevelMedium
	case risk >= 1.0:
		return LevelLow
	default:
		return LevelMinimal
	}
}

// ChangeFrequencyPerWeek divides total commits by the weeks elapsed since
// the last change, with a floor of one week.
func ChangeFrequencyPerWeek(totalCommits int, daysSinceLastChange int) float64 {
	weeks := math.Max(float64(daysSinceLastChange)/7, 1)
	return float64(totalCommits) / weeks
}
