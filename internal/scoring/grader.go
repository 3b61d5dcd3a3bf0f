package scoring

import (
	"sort"

	"github.com/shrimpsizemoose/gradebook/internal/models"
)

// Grader maps a score to the mastery band of a grading scale.
type Grader struct {
	bands models.MasteryBands
}

// NewGrader orders the bands by descending threshold so the first band a
// percentage reaches is the highest one.
func NewGrader(bands models.MasteryBands) *Grader {
	sorted := make(models.MasteryBands, len(bands))
	copy(sorted, bands)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Threshold > sorted[j].Threshold
	})
	return &Grader{bands: sorted}
}

// Percentage is score as a share of maxScore, in 0..100.
func Percentage(score, maxScore float64) float64 {
	if maxScore <= 0 {
		return 0
	}
	pct := score / maxScore * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Grade returns the band reached by score out of maxScore. Unscored students
// and empty scales have no band.
func (g *Grader) Grade(score *float64, maxScore float64) (models.MasteryBand, bool) {
	if score == nil || len(g.bands) == 0 {
		return models.MasteryBand{}, false
	}

	pct := Percentage(*score, maxScore)
	for _, band := range g.bands {
		if pct >= band.Threshold {
			return band, true
		}
	}
	// below every threshold: the lowest band
	return g.bands[len(g.bands)-1], true
}
