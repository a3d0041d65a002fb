package service

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-grading-api/internal/models"
)

func weight(v float64) *float64 { return &v }

func TestRound2HalfAwayFromZero(t *testing.T) {
	cases := map[float64]float64{
		2.675:  2.68,
		1.005:  1.01,
		2.5:    2.5,
		3.333:  3.33,
		-1.005: -1.01,
		4.999:  5,
		0:      0,
	}
	for in, want := range cases {
		assert.Equal(t, want, Round2(in), "round2(%v)", in)
	}
}

func TestRound2Idempotent(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		x := r.Float64() * 5
		once := Round2(x)
		assert.Equal(t, once, Round2(once))
	}
}

func TestNormalizeScoreWeightedQuestions(t *testing.T) {
	score, err := NormalizeScore(map[string]models.Answer{
		"q1": {IsCorrect: true, PesoPregunta: weight(2)},
		"q2": {IsCorrect: false, PesoPregunta: weight(2)},
		"q3": {IsCorrect: true, PesoPregunta: weight(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, 3.0, score)
}

func TestNormalizeScoreDefaultsWeight(t *testing.T) {
	score, err := NormalizeScore(map[string]models.Answer{
		"q1": {IsCorrect: true},
		"q2": {IsCorrect: false, PesoPregunta: weight(0)},
		"q3": {IsCorrect: false},
	})
	require.NoError(t, err)
	assert.Equal(t, 1.67, score)
}

func TestNormalizeScoreRange(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		answers := map[string]models.Answer{}
		n := r.Intn(10) + 1
		for q := 0; q < n; q++ {
			answers[string(rune('a'+q))] = models.Answer{IsCorrect: r.Intn(2) == 0, PesoPregunta: weight(float64(r.Intn(4)))}
		}
		score, err := NormalizeScore(answers)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, MaxScore)
	}
}

func TestNormalizeScoreRejectsInvalidInput(t *testing.T) {
	_, err := NormalizeScore(nil)
	assert.Error(t, err)
	_, err = NormalizeScore(map[string]models.Answer{"q": {IsCorrect: true, PesoPregunta: weight(-1)}})
	assert.Error(t, err)
}
