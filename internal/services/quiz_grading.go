package services

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"

	"gorm.io/datatypes"

	"github.com/nduva/learning-service/internal/models"
)

// fuzzyThreshold is the similarity from which a short answer earns partial credit
const fuzzyThreshold = 0.8

// QuestionResult is the graded outcome of one question
type QuestionResult struct {
	QuestionID   string  `json:"questionId"`
	Correct      bool    `json:"correct"`
	PointsEarned float64 `json:"pointsEarned"`
	Points       int     `json:"points"`
	Explanation  *string `json:"explanation,omitempty"`
}

// gradeQuestion returns the fraction of the question's points earned. A nil
// answer scores zero.
func gradeQuestion(question *models.QuizQuestion, answer json.RawMessage) (float64, bool, error) {
	if len(answer) == 0 || string(answer) == "null" {
		return 0, false, nil
	}

	switch question.QuestionType {
	case models.QuestionMultipleChoice:
		return gradeMultipleChoice(question.CorrectAnswer, answer)
	case models.QuestionTrueFalse:
		return gradeTrueFalse(question.CorrectAnswer, answer)
	case models.QuestionShortAnswer:
		return gradeShortAnswer(question.CorrectAnswer, answer)
	default:
		return 0, false, fmt.Errorf("unsupported question type: %s", question.QuestionType)
	}
}

func gradeMultipleChoice(key datatypes.JSON, answer json.RawMessage) (float64, bool, error) {
	var correctAnswers []string
	if err := json.Unmarshal(key, &correctAnswers); err != nil {
		return 0, false, fmt.Errorf("failed to unmarshal answer key: %w", err)
	}

	var chosen []string
	if err := json.Unmarshal(answer, &chosen); err != nil {
		var single string
		if err := json.Unmarshal(answer, &single); err != nil {
			return 0, false, fmt.Errorf("answer must be an option or a list of options: %w", err)
		}
		chosen = []string{single}
	}

	if slices.Equal(sortedUnique(chosen), sortedUnique(correctAnswers)) {
		return 1, true, nil
	}

	// Several correct options earn partial credit; wrong picks cancel right ones
	if len(correctAnswers) > 1 {
		correctSet := make(map[string]bool, len(correctAnswers))
		for _, c := range correctAnswers {
			correctSet[c] = true
		}
		chosenSet := make(map[string]bool, len(chosen))
		for _, a := range chosen {
			chosenSet[a] = true
		}

		hits, misses := 0, 0
		for a := range chosenSet {
			if correctSet[a] {
				hits++
			} else {
				misses++
			}
		}
		score := float64(hits-misses) / float64(len(correctSet))
		return math.Max(0, score), false, nil
	}

	return 0, false, nil
}

func gradeTrueFalse(key datatypes.JSON, answer json.RawMessage) (float64, bool, error) {
	var correctAnswer bool
	if err := json.Unmarshal(key, &correctAnswer); err != nil {
		return 0, false, fmt.Errorf("failed to unmarshal answer key: %w", err)
	}

	var given bool
	if err := json.Unmarshal(answer, &given); err != nil {
		return 0, false, fmt.Errorf("answer must be true or false: %w", err)
	}

	if given == correctAnswer {
		return 1, true, nil
	}
	return 0, false, nil
}

func gradeShortAnswer(key datatypes.JSON, answer json.RawMessage) (float64, bool, error) {
	var accepted []string
	if err := json.Unmarshal(key, &accepted); err != nil {
		return 0, false, fmt.Errorf("failed to unmarshal answer key: %w", err)
	}

	var given string
	if err := json.Unmarshal(answer, &given); err != nil {
		return 0, false, fmt.Errorf("answer must be text: %w", err)
	}

	for _, a := range accepted {
		if normalizeAnswer(given) == normalizeAnswer(a) {
			return 1, true, nil
		}
	}

	best := 0.0
	for _, a := range accepted {
		best = math.Max(best, stringSimilarity(given, a))
	}
	if best >= fuzzyThreshold {
		return best, false, nil
	}
	return 0, false, nil
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// stringSimilarity is 1 minus the normalised Levenshtein distance
func stringSimilarity(a, b string) float64 {
	ra, rb := []rune(normalizeAnswer(a)), []rune(normalizeAnswer(b))
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshteinDistance(ra, rb))/float64(longest)
}

func levenshteinDistance(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func sortedUnique(items []string) []string {
	out := slices.Clone(items)
	slices.Sort(out)
	return slices.Compact(out)
}

// sanitizeQuiz strips answer keys and explanations before a quiz is shown
// to learners
func sanitizeQuiz(quiz *models.Quiz) *models.Quiz {
	clean := *quiz
	clean.Questions = make([]models.QuizQuestion, len(quiz.Questions))
	for i, q := range quiz.Questions {
		q.CorrectAnswer = nil
		q.Explanation = nil
		clean.Questions[i] = q
	}
	return &clean
}
