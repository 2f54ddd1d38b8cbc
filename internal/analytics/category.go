package analytics

// Payment progress categories, best to worst.
const (
	CategoryFast   = "Fast Progress"
	CategorySteady = "Steady Progress"
	CategorySlow   = "Slow Progress"
)

// Magnitude cut points for the category rule.
const (
	categoryTopCutoff    = 100000
	categoryMiddleCutoff = 50000
)

// Categorize labels a district's payment progress from its employment
// history. Employment above the history mean counts as an improving trend;
// the trend combined with the employment magnitude picks one of three fixed
// tiers.
func Categorize(history []float64, employment float64) string {
	improving := false
	if len(history) > 0 {
		var sum float64
		for _, v := range history {
			sum += v
		}
		improving = employment > sum/float64(len(history))
	}

	switch {
	case improving && employment > categoryTopCutoff:
		return CategoryFast
	case improving && employment > categoryMiddleCutoff:
		return CategorySteady
	default:
		return CategorySlow
	}
}
