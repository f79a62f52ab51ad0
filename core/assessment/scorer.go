package assessment

import "github.com/rapor-tpq/rapor/core"

// band is a threshold row: averages >= min fall in cat.
type band struct {
	min float64
	cat Category
}

// bands are evaluated high to low; the first match wins.
var bands = []band{
	{min: 85, cat: BSB},
	{min: 70, cat: BSH},
	{min: 60, cat: MB},
}

// Average returns the mean of the scores rounded to 2 decimal places.
func Average(s Scores) float64 {
	var sum int
	for _, v := range s.Values() {
		sum += v
	}
	return core.Round2(float64(sum) / NumFeatures)
}

// CategoryFor maps an average score to its Category. Lower bounds are inclusive.
func CategoryFor(avg float64) Category {
	for _, b := range bands {
		if avg >= b.min {
			return b.cat
		}
	}
	return BB
}

// Categorize is the rule-based Scorer: the category depends on the rounded average only,
// so it is blind to how the scores are spread across subjects.
func Categorize(s Scores) (float64, Category) {
	avg := Average(s)
	return avg, CategoryFor(avg)
}
