package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// AllModels lists every persisted model in dependency order
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Course{},
		&Module{},
		&CourseSession{},
		&Quiz{},
		&QuizQuestion{},
		&QuizAttempt{},
		&Enrollment{},
		&Badge{},
		&UserBadge{},
		&Post{},
		&Comment{},
		&TeacherApplication{},
	}
}

// AutoMigrate creates or updates the schema
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
