package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleQuestions() []Question {
	return []Question{
		{Question: "2+2?", Options: []string{"3", "4"}, Correct: 1},
		{Question: "Capital of TR?", Options: []string{"Ankara", "Izmir"}, Correct: 0},
		{Question: "Go keyword?", Options: []string{"func", "def", "fn"}, Correct: 0},
	}
}

func TestScoreAllCorrect(t *testing.T) {
	sc := Score(sampleQuestions(), []int{1, 0, 0})

	assert.Equal(t, 3, sc.Correct)
	assert.Equal(t, 100, sc.Percent)
	assert.Equal(t, "4", sc.Results[0].UserAnswer)
}

func TestScorePartialAndUnanswered(t *testing.T) {
	sc := Score(sampleQuestions(), []int{0, 0})

	assert.Equal(t, 1, sc.Correct)
	assert.Equal(t, 33, sc.Percent)
	assert.False(t, sc.Results[0].IsCorrect)
	assert.Equal(t, "not answered", sc.Results[2].UserAnswer)
	assert.Equal(t, "func", sc.Results[2].CorrectAnswer)
}

func TestScoreOutOfRangeAnswer(t *testing.T) {
	sc := Score(sampleQuestions()[:1], []int{7})

	assert.Equal(t, 0, sc.Correct)
	assert.Equal(t, 0, sc.Percent)
	assert.Equal(t, "not answered", sc.Results[0].UserAnswer)
}

func TestScoreNoQuestions(t *testing.T) {
	sc := Score(nil, []int{1})

	assert.Empty(t, sc.Results)
	assert.Equal(t, 0, sc.Percent)
}
