package services

import (
	"math"
	"strings"

	"microlearn/backend/models"
)

type QuizResult struct {
	Score          int `json:"score"` // percentage, rounded
	Correct        int `json:"correct"`
	TotalQuestions int `json:"total_questions"`
	PointsEarned   int `json:"points_earned"`
	PointsPossible int `json:"points_possible"`
}

// ScoreQuiz grades submitted answers against a lesson's questions. Answers
// are keyed by question id; a missing answer just earns no points.
//
// Multiple choice and true/false answers must match the stored answer
// exactly (an option index like "2", or "true"/"false"). Fill-in-the-blank
// answers are compared case-insensitively with surrounding whitespace
// stripped.
func ScoreQuiz(questions []models.QuizQuestion, answers map[uint]string) QuizResult {
	result := QuizResult{TotalQuestions: len(questions)}

	for _, q := range questions {
		result.PointsPossible += q.Points

		answer, ok := answers[q.ID]
		if !ok {
			continue
		}

		if answerCorrect(q, answer) {
			result.Correct++
			result.PointsEarned += q.Points
		}
	}

	// An empty quiz scores 0, never a division by zero.
	if result.PointsPossible == 0 {
		return result
	}

	result.Score = int(math.Round(100 * float64(result.PointsEarned) / float64(result.PointsPossible)))
	return result
}

func answerCorrect(q models.QuizQuestion, answer string) bool {
	switch q.Type {
	case models.QuestionTypeFillBlank:
		return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.CorrectAnswer))
	default: // multiple_choice, true_false
		return strings.TrimSpace(answer) == q.CorrectAnswer
	}
}
