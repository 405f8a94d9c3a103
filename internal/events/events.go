// Package events publishes domain events for downstream consumers
// (notifications, analytics) over a watermill publisher.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	// EventSource identifies this service in published events
	EventSource = "learning-service"
	// EventVersion is the payload schema version
	EventVersion = "1.0"
	// DefaultTopic is used when no topic is configured
	DefaultTopic = "learning-events"
)

type EventType string

const (
	// Course authoring
	CourseCreated   EventType = "course.created"
	CoursePublished EventType = "course.published"
	CourseArchived  EventType = "course.archived"

	// Progress
	EnrollmentCreated   EventType = "enrollment.created"
	EnrollmentCompleted EventType = "enrollment.completed"

	// Quizzes
	QuizAttemptSubmitted EventType = "quiz.attempt_submitted"
	QuizPassed           EventType = "quiz.passed"

	// Gamification
	UserXPAwarded  EventType = "user.xp_awarded"
	UserXPDeducted EventType = "user.xp_deducted"
	BadgeAwarded   EventType = "badge.awarded"

	// Community
	PostCreated    EventType = "post.created"
	CommentCreated EventType = "comment.created"

	// Identity
	TeacherApplicationSubmitted EventType = "teacher_application.submitted"
	TeacherApplicationReviewed  EventType = "teacher_application.reviewed"
)

// Event is the envelope written to the bus
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// NewEvent builds an event with a fresh id and the current UTC time
func NewEvent(eventType EventType, data map[string]interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher sends events to the bus
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}
