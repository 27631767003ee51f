package catalog

// Unanswered marks a question the user skipped.
const Unanswered = -1

type Result struct {
	Question      string `json:"question"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	IsCorrect     bool   `json:"is_correct"`
}

type Scorecard struct {
	Results []Result `json:"results"`
	Correct int      `json:"correct"`
	Percent int      `json:"percent"`
}

// Score grades answers by position against questions. Missing or out of range
// answers count as unanswered.
func Score(questions []Question, answers []int) Scorecard {
	sc := Scorecard{Results: make([]Result, 0, len(questions))}
	for i, q := range questions {
		ans := Unanswered
		if i < len(answers) {
			ans = answers[i]
		}
		r := Result{
			Question:      q.Question,
			UserAnswer:    option(q.Options, ans, "not answered"),
			CorrectAnswer: option(q.Options, q.Correct, ""),
			IsCorrect:     ans == q.Correct && ans >= 0 && ans < len(q.Options),
		}
		if r.IsCorrect {
			sc.Correct++
		}
		sc.Results = append(sc.Results, r)
	}
	if len(questions) > 0 {
		// round half up, integer math
		sc.Percent = (sc.Correct*200 + len(questions)) / (2 * len(questions))
	}
	return sc
}

func option(opts []string, i int, def string) string {
	if i < 0 || i >= len(opts) {
		return def
	}
	return opts[i]
}
