package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
)

// Quiz belongs to a single quiz-type session
type Quiz struct {
	ID                     string  `json:"id" gorm:"primaryKey;size:255"`
	SessionID              string  `json:"sessionId" gorm:"not null;size:255;uniqueIndex"`
	Title                  string  `json:"title" gorm:"not null;size:200"`
	Description            *string `json:"description" gorm:"type:text"`
	PassingScorePercentage int     `json:"passingScorePercentage" gorm:"not null;default:70"`
	TimeLimitMinutes       *int    `json:"timeLimitMinutes"`
	MaxAttempts            int     `json:"maxAttempts" gorm:"not null;default:3"`
	XPReward               int     `json:"xpReward" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Questions []QuizQuestion `json:"questions,omitempty" gorm:"foreignKey:QuizID"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

func (q *Quiz) BeforeCreate(tx *gorm.DB) error {
	ensureID(&q.ID)
	return nil
}

// TotalPoints sums the points of every question
func (q *Quiz) TotalPoints() int {
	total := 0
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

// QuizQuestion stores its answer key in CorrectAnswer: a list of option
// values for multiple choice, a boolean for true/false and a list of
// accepted answers for short answer
type QuizQuestion struct {
	ID            string         `json:"id" gorm:"primaryKey;size:255"`
	QuizID        string         `json:"quizId" gorm:"not null;size:255;uniqueIndex:idx_question_quiz_order"`
	SequenceOrder int            `json:"sequenceOrder" gorm:"not null;uniqueIndex:idx_question_quiz_order"`
	QuestionText  string         `json:"questionText" gorm:"type:text;not null"`
	QuestionType  QuestionType   `json:"questionType" gorm:"not null;size:20"`
	Options       datatypes.JSON `json:"options,omitempty"`
	CorrectAnswer datatypes.JSON `json:"correctAnswer,omitempty"`
	Explanation   *string        `json:"explanation,omitempty" gorm:"type:text"`
	Points        int            `json:"points" gorm:"not null;default:10"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

func (q *QuizQuestion) BeforeCreate(tx *gorm.DB) error {
	ensureID(&q.ID)
	return nil
}

// QuizAttempt is one graded submission. AttemptNumber is unique per user
// and quiz, so two submissions can never claim the same slot.
type QuizAttempt struct {
	ID               string         `json:"id" gorm:"primaryKey;size:255"`
	UserID           string         `json:"userId" gorm:"not null;size:255;uniqueIndex:idx_attempt_user_quiz_number"`
	QuizID           string         `json:"quizId" gorm:"not null;size:255;uniqueIndex:idx_attempt_user_quiz_number;index"`
	AttemptNumber    int            `json:"attemptNumber" gorm:"not null;uniqueIndex:idx_attempt_user_quiz_number"`
	Score            float64        `json:"score" gorm:"not null;default:0"`
	TotalPoints      int            `json:"totalPoints" gorm:"not null;default:0"`
	Percentage       int            `json:"percentage" gorm:"not null;default:0"`
	Passed           bool           `json:"passed" gorm:"not null;default:false"`
	Answers          datatypes.JSON `json:"answers"`
	TimeTakenSeconds *int           `json:"timeTakenSeconds"`
	XPAwarded        int            `json:"xpAwarded" gorm:"not null;default:0"`
	SubmittedAt      time.Time      `json:"submittedAt" gorm:"not null"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

func (a *QuizAttempt) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	if a.SubmittedAt.IsZero() {
		a.SubmittedAt = time.Now().UTC()
	}
	return nil
}
