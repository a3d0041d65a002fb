package service

import (
	"fmt"
	"math"
	"strconv"

	"github.com/noah-isme/lms-grading-api/internal/models"
)

// MaxScore is the top of the grading scale.
const MaxScore = 5.0

// Round2 rounds to two decimals, halves away from zero. The value is shifted through its
// shortest decimal form so 2.675 rounds to 2.68 rather than falling victim to binary
// representation.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	shifted, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', -1, 64)+"e2", 64)
	if err != nil {
		return math.Round(v*100) / 100
	}
	return math.Round(shifted) / 100
}

// questionWeight defaults absent or zero weights to 1.
func questionWeight(a models.Answer) (float64, error) {
	if a.PesoPregunta == nil || *a.PesoPregunta == 0 {
		return 1, nil
	}
	if *a.PesoPregunta < 0 || math.IsNaN(*a.PesoPregunta) || math.IsInf(*a.PesoPregunta, 0) {
		return 0, fmt.Errorf("invalid question weight %v", *a.PesoPregunta)
	}
	return *a.PesoPregunta, nil
}

// NormalizeScore maps weighted answers onto the 0 to 5 scale.
func NormalizeScore(answers map[string]models.Answer) (float64, error) {
	if len(answers) == 0 {
		return 0, fmt.Errorf("no answers submitted")
	}
	var weightedSum, totalWeight float64
	for qid, answer := range answers {
		w, err := questionWeight(answer)
		if err != nil {
			return 0, fmt.Errorf("question %s: %w", qid, err)
		}
		totalWeight += w
		if answer.IsCorrect {
			weightedSum += w
		}
	}
	return Round2(weightedSum / totalWeight * MaxScore), nil
}
