package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/nduva/learning-service/internal/cache"
	"github.com/nduva/learning-service/internal/repositories"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// SharedHelpers contains common query helpers
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// getDB returns tx when the caller runs inside a transaction
func (h *SharedHelpers) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return h.db
}

// afterCommit runs fn once the transaction behind db commits. Outside a
// deferred transaction it runs immediately.
func afterCommit(ctx context.Context, db *gorm.DB, fn func(context.Context)) {
	cache.AfterCommit(ctx, db.Statement.Context, fn)
}

// notFound wraps gorm.ErrRecordNotFound with the entity name
func notFound(err error, entity, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s not found with ID %s: %w", entity, id, gorm.ErrRecordNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", entity, err)
}

// writeErr maps unique violations to repositories.ErrDuplicate
func writeErr(err error, op string) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, repositories.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// paginate applies limit/offset with sane bounds
func paginate(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return query.Limit(limit).Offset(offset)
}

// ApplyCourseFilters applies listing filters to course queries
func (h *SharedHelpers) ApplyCourseFilters(query *gorm.DB, filters repositories.CourseFilters) *gorm.DB {
	if filters.AgeGroup != nil {
		query = query.Where("age_group = ?", *filters.AgeGroup)
	}
	if filters.Difficulty != nil {
		query = query.Where("difficulty = ?", *filters.Difficulty)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.TeacherID != nil {
		query = query.Where("created_by_teacher_id = ?", *filters.TeacherID)
	}
	return query
}

// ApplyPostFilters applies listing filters to post queries
func (h *SharedHelpers) ApplyPostFilters(query *gorm.DB, filters repositories.PostFilters) *gorm.DB {
	if filters.CourseID != nil {
		query = query.Where("course_id = ?", *filters.CourseID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	return query
}

// ApplyUserFilters applies listing filters to user queries
func (h *SharedHelpers) ApplyUserFilters(query *gorm.DB, filters repositories.UserFilters) *gorm.DB {
	if filters.Role != nil {
		query = query.Where("role = ?", *filters.Role)
	}
	if filters.IsActive != nil {
		query = query.Where("is_active = ?", *filters.IsActive)
	}
	if q := strings.TrimSpace(filters.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	return query
}

func courseListKey(filters repositories.CourseFilters) string {
	part := func(s *string) string {
		if s == nil {
			return "-"
		}
		return *s
	}
	var ageGroup, difficulty, status *string
	if filters.AgeGroup != nil {
		v := string(*filters.AgeGroup)
		ageGroup = &v
	}
	if filters.Difficulty != nil {
		v := string(*filters.Difficulty)
		difficulty = &v
	}
	if filters.Status != nil {
		v := string(*filters.Status)
		status = &v
	}
	return fmt.Sprintf("list:%s:%s:%s:%s:%d:%d",
		part(ageGroup), part(difficulty), part(status), part(filters.TeacherID), filters.Limit, filters.Offset)
}
