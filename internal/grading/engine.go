package grading

import "math"

// Item is a minimal view of anything that carries a weight and a score.
// Subjects map credit weight to Weight; assessments map their rate.
// A nil field means the value has not been entered yet.
type Item struct {
	Weight *float64
	Score  *float64
}

// NewItem is a convenience for building items from optional values.
func NewItem(weight, score *float64) Item { return Item{Weight: weight, Score: score} }

// F returns a pointer to v. Handy in tests and literals.
func F(v float64) *float64 { return &v }

// WeightedAverage returns sum(w*s)/sum(w) over fully scored items, rounded
// to 2 decimals. ok is false when no item has both a weight and a score.
func WeightedAverage(items []Item) (avg float64, ok bool) {
	sum, total := 0.0, 0.0
	for _, it := range items {
		w, s, full := scored(it)
		if !full {
			continue
		}
		sum += w * s
		total += w
	}
	if total <= 0 {
		return 0, false
	}
	return Round2(sum / total), true
}

// RequiredAverage projects the average needed on the unscored weight to
// reach target. The earned contribution is the raw sum of weight*score and
// is compared against target unscaled; the result is neither clamped nor
// rescaled, so it can be negative or exceed 100.
//
// ok is false when target is nil, items is empty, or no weight remains.
func RequiredAverage(target *float64, items []Item) (req float64, ok bool) {
	if target == nil || !finite(*target) || len(items) == 0 {
		return 0, false
	}
	var totalWeight, scoredWeight, current float64
	for _, it := range items {
		if it.Weight != nil && finite(*it.Weight) {
			totalWeight += *it.Weight
		}
		w, s, full := scored(it)
		if !full {
			continue
		}
		scoredWeight += w
		current += w * s
	}
	remaining := totalWeight - scoredWeight
	if remaining <= 0 {
		return 0, false
	}
	return Round2(((*target - current) / remaining) * 100), true
}

// TotalScore is a subject's running total: sum(rate/100*score) over
// assessments that have both a rate and a score. Zero when nothing is scored.
func TotalScore(items []Item) float64 {
	total := 0.0
	for _, it := range items {
		w, s, full := scored(it)
		if !full {
			continue
		}
		total += (w / 100) * s
	}
	return Round2(total)
}

// Round2 rounds half away from zero to 2 decimal places.
func Round2(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0 // no negative zero in JSON output
	}
	return r
}

func scored(it Item) (w, s float64, ok bool) {
	if it.Weight == nil || it.Score == nil {
		return 0, 0, false
	}
	w, s = *it.Weight, *it.Score
	if !finite(w) || !finite(s) {
		return 0, 0, false
	}
	return w, s, true
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
