package service

import "github.com/noah-isme/lms-grading-api/internal/models"

// AggregateParameters groups completed activity grades by parameter. Parameters without a
// completed activity are left out entirely; they are never zero filled.
func AggregateParameters(params []models.Parameter, completed []models.CompletedActivityGrade) []models.ParameterAggregate {
	byID := make(map[int64]*models.ParameterAggregate, len(params))
	for _, p := range params {
		byID[p.ID] = &models.ParameterAggregate{ParameterID: p.ID, Name: p.Name, Weight: p.Porcentaje}
	}
	for _, g := range completed {
		agg, ok := byID[g.ParameterID]
		if !ok {
			continue
		}
		agg.Sum += g.FinalGrade
		agg.Count++
	}

	result := make([]models.ParameterAggregate, 0, len(byID))
	seen := make(map[int64]struct{}, len(byID))
	for _, p := range params {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		agg := byID[p.ID]
		if agg.Count == 0 {
			continue
		}
		agg.Mean = agg.Sum / float64(agg.Count)
		result = append(result, *agg)
	}
	return result
}

// CalculateCourseGrade is the weighted mean of the aggregated parameters. Weights are used
// as stored; a zero total weight yields NotGradable.
func CalculateCourseGrade(aggregates []models.ParameterAggregate) models.CourseGrade {
	var weighted, totalWeight float64
	for _, agg := range aggregates {
		weighted += agg.Mean * agg.Weight
		totalWeight += agg.Weight
	}
	if totalWeight <= 0 {
		return models.NotGradable
	}
	return models.Gradable(Round2(weighted / totalWeight))
}

// totalWeight sums the configured weights of every course parameter.
func totalWeight(params []models.Parameter) float64 {
	var sum float64
	for _, p := range params {
		sum += p.Porcentaje
	}
	return sum
}
