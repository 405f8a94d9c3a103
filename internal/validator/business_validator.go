package validator

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/nduva/learning-service/internal/models"
)

// DateLayout is the accepted calendar date format
const DateLayout = "2006-01-02"

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
	now      func() time.Time
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()
	validate.RegisterTagNameFunc(jsonFieldName)

	bv := &BusinessValidator{validate: validate, now: time.Now}
	bv.registerBusinessRules()

	return bv
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateCourseCreate validates course creation
func (bv *BusinessValidator) ValidateCourseCreate(req *CourseCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)
	errors = append(errors, validateObjectives(req.LearningObjectives)...)

	return errors
}

// ValidateCourseUpdate validates a partial course update
func (bv *BusinessValidator) ValidateCourseUpdate(req *CourseUpdateRequest, existing *models.Course) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)
	errors = append(errors, validateObjectives(req.LearningObjectives)...)

	if existing.Status == models.CourseStatusArchived {
		errors = append(errors, ValidationError{
			Field:   "status",
			Message: "archived courses cannot be edited",
			Value:   existing.Status,
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateStatusTransition validates course lifecycle transitions
func (bv *BusinessValidator) ValidateStatusTransition(currentStatus, newStatus models.CourseStatus) ValidationErrors {
	var errors ValidationErrors

	allowedTransitions := map[models.CourseStatus][]models.CourseStatus{
		models.CourseStatusDraft:     {models.CourseStatusPublished},
		models.CourseStatusPublished: {models.CourseStatusArchived},
		models.CourseStatusArchived:  {},
	}

	allowed := false
	for _, allowedStatus := range allowedTransitions[currentStatus] {
		if newStatus == allowedStatus {
			allowed = true
			break
		}
	}

	if !allowed {
		errors = append(errors, ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("cannot transition from %s to %s", currentStatus, newStatus),
			Value:   newStatus,
			Rule:    "status_transition",
		})
	}

	return errors
}

// ValidateEnrollable checks a course can accept new learners
func (bv *BusinessValidator) ValidateEnrollable(course *models.Course) ValidationErrors {
	if course.Status == models.CourseStatusPublished {
		return nil
	}
	return ValidationErrors{{
		Field:   "courseId",
		Message: "course is not open for enrollment",
		Value:   course.Status,
		Rule:    "business_logic",
	}}
}

// ValidateProgressUpdate rejects moving completed lessons backwards
func (bv *BusinessValidator) ValidateProgressUpdate(existing *models.Enrollment, completedLessons int) ValidationErrors {
	var errors ValidationErrors

	if completedLessons < existing.CompletedLessons {
		errors = append(errors, ValidationError{
			Field:   "completedLessons",
			Message: fmt.Sprintf("cannot decrease from %d", existing.CompletedLessons),
			Value:   completedLessons,
			Rule:    "monotonic",
		})
	}
	if existing.Status == models.EnrollmentDropped {
		errors = append(errors, ValidationError{
			Field:   "status",
			Message: "enrollment was dropped",
			Value:   existing.Status,
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateXPChange rejects changes that would leave a negative balance
func (bv *BusinessValidator) ValidateXPChange(current, delta int) ValidationErrors {
	if current+delta >= 0 {
		return nil
	}
	return ValidationErrors{{
		Field:   "delta",
		Message: fmt.Sprintf("would reduce xp below zero (current %d)", current),
		Value:   delta,
		Rule:    "non_negative",
	}}
}

// ValidateCommentParent checks a reply targets a comment on the same post
func (bv *BusinessValidator) ValidateCommentParent(parent *models.Comment, postID string) ValidationErrors {
	if parent == nil || parent.PostID == postID {
		return nil
	}
	return ValidationErrors{{
		Field:   "parentCommentId",
		Message: "parent comment belongs to a different post",
		Value:   parent.ID,
		Rule:    "same_post",
	}}
}

// ValidateQuizCreate checks tags and that every answer key fits its
// question type
func (bv *BusinessValidator) ValidateQuizCreate(req *QuizCreateRequest) ValidationErrors {
	if errors := bv.Validate(req); len(errors) > 0 {
		return errors
	}

	var errors ValidationErrors
	for i, q := range req.Questions {
		field := fmt.Sprintf("questions[%d].correctAnswer", i)
		if msg := checkAnswerKey(q); msg != "" {
			errors = append(errors, ValidationError{
				Field:   field,
				Message: msg,
				Value:   string(q.CorrectAnswer),
				Rule:    "answer_key",
			})
		}
	}
	return errors
}

func checkAnswerKey(q QuizQuestionRequest) string {
	switch q.QuestionType {
	case models.QuestionMultipleChoice:
		var keys []string
		if err := json.Unmarshal(q.CorrectAnswer, &keys); err != nil || len(keys) == 0 {
			return "must be a non-empty list of options"
		}
		if len(q.Options) < 2 {
			return "multiple choice questions need at least two options"
		}
		options := make(map[string]bool, len(q.Options))
		for _, o := range q.Options {
			options[o] = true
		}
		for _, k := range keys {
			if !options[k] {
				return fmt.Sprintf("%q is not one of the options", k)
			}
		}
	case models.QuestionTrueFalse:
		var key bool
		if err := json.Unmarshal(q.CorrectAnswer, &key); err != nil {
			return "must be true or false"
		}
	case models.QuestionShortAnswer:
		var accepted []string
		if err := json.Unmarshal(q.CorrectAnswer, &accepted); err != nil || len(accepted) == 0 {
			return "must be a non-empty list of accepted answers"
		}
	}
	return ""
}

// ParseDateOfBirth parses a YYYY-MM-DD date in UTC
func ParseDateOfBirth(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(value), time.UTC)
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	// Course title (3-200 characters, ignoring surrounding whitespace)
	bv.validate.RegisterValidation("course_title", func(fl validator.FieldLevel) bool {
		n := utf8.RuneCountInString(strings.TrimSpace(fl.Field().String()))
		return n >= 3 && n <= 200
	})

	bv.validate.RegisterValidation("age_group", func(fl validator.FieldLevel) bool {
		switch models.AgeGroup(fl.Field().String()) {
		case models.AgeGroup10To13, models.AgeGroup14To17, models.AgeGroup18To21:
			return true
		}
		return false
	})

	bv.validate.RegisterValidation("difficulty", func(fl validator.FieldLevel) bool {
		switch models.DifficultyLevel(fl.Field().String()) {
		case models.DifficultyBeginner, models.DifficultyIntermediate, models.DifficultyAdvanced:
			return true
		}
		return false
	})

	bv.validate.RegisterValidation("course_status", func(fl validator.FieldLevel) bool {
		switch models.CourseStatus(fl.Field().String()) {
		case models.CourseStatusDraft, models.CourseStatusPublished, models.CourseStatusArchived:
			return true
		}
		return false
	})

	bv.validate.RegisterValidation("lesson_type", func(fl validator.FieldLevel) bool {
		switch models.LessonType(fl.Field().String()) {
		case models.LessonVideo, models.LessonProject, models.LessonQuiz:
			return true
		}
		return false
	})

	bv.validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		switch models.QuestionType(fl.Field().String()) {
		case models.QuestionMultipleChoice, models.QuestionTrueFalse, models.QuestionShortAnswer:
			return true
		}
		return false
	})

	bv.validate.RegisterValidation("post_type", func(fl validator.FieldLevel) bool {
		switch models.PostType(fl.Field().String()) {
		case models.PostDiscussion, models.PostQuestion, models.PostProjectShowcase:
			return true
		}
		return false
	})

	bv.validate.RegisterValidation("content_status", func(fl validator.FieldLevel) bool {
		switch models.ContentStatus(fl.Field().String()) {
		case models.ContentActive, models.ContentHidden, models.ContentDeleted:
			return true
		}
		return false
	})

	bv.validate.RegisterValidation("badge_type", func(fl validator.FieldLevel) bool {
		switch models.BadgeType(fl.Field().String()) {
		case models.BadgeAchievement, models.BadgeStreak, models.BadgeCompletion, models.BadgeCommunity:
			return true
		}
		return false
	})

	bv.validate.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).IsValid()
	})

	// Roles a user may pick for themselves during onboarding
	bv.validate.RegisterValidation("profile_role", func(fl validator.FieldLevel) bool {
		role := models.UserRole(fl.Field().String())
		return role == models.RoleLearner || role == models.RoleTeacher
	})

	bv.validate.RegisterValidation("date_of_birth", func(fl validator.FieldLevel) bool {
		dob, err := ParseDateOfBirth(fl.Field().String())
		if err != nil {
			return false
		}
		now := bv.now().UTC()
		return dob.Before(now) && !dob.Before(now.AddDate(-100, 0, 0))
	})

	bv.validate.RegisterValidation("nonzero", func(fl validator.FieldLevel) bool {
		return fl.Field().Int() != 0
	})
}

func validateObjectives(objectives []string) ValidationErrors {
	var errors ValidationErrors
	for i, objective := range objectives {
		if strings.TrimSpace(objective) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("learningObjectives[%d]", i),
				Message: "objective cannot be empty",
				Value:   objective,
				Rule:    "business_logic",
			})
		}
	}
	return errors
}
