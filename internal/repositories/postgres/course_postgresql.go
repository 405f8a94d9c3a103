package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nduva/learning-service/internal/cache"
	"github.com/nduva/learning-service/internal/models"
	"github.com/nduva/learning-service/internal/repositories"
)

type CoursePostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewCoursePostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.CourseRepository {
	return &CoursePostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// ===== BASIC CRUD OPERATIONS =====

// Create creates a new course and invalidates cached listings
func (r *CoursePostgreSQL) Create(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	db := r.helpers.getDB(tx)
	if err := db.WithContext(ctx).Omit(clause.Associations).Create(course).Error; err != nil {
		return writeErr(err, "failed to create course")
	}

	r.invalidate(ctx, db, course.ID)
	return nil
}

func (r *CoursePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Course, error) {
	db := r.helpers.getDB(tx)
	var course models.Course
	if err := db.WithContext(ctx).First(&course, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "course", id)
	}
	return &course, nil
}

// GetByIDWithContent loads modules and their sessions in sequence order
func (r *CoursePostgreSQL) GetByIDWithContent(ctx context.Context, tx *gorm.DB, id string) (*models.Course, error) {
	db := r.helpers.getDB(tx)
	var course models.Course
	if err := db.WithContext(ctx).
		Preload("Modules", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_order ASC")
		}).
		Preload("Modules.Sessions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_order ASC")
		}).
		First(&course, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "course", id)
	}
	return &course, nil
}

func (r *CoursePostgreSQL) Update(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	db := r.helpers.getDB(tx)
	if err := db.WithContext(ctx).Omit("total_lessons", clause.Associations).Save(course).Error; err != nil {
		return writeErr(err, "failed to update course")
	}

	r.invalidate(ctx, db, course.ID)
	return nil
}

func (r *CoursePostgreSQL) invalidate(ctx context.Context, db *gorm.DB, courseID string) {
	afterCommit(ctx, db, func(ctx context.Context) {
		cache.InvalidateCourseCache(ctx, r.cacheManager, courseID)
	})
}

// ===== QUERY OPERATIONS =====

// List returns courses newest first; results are cached per filter set
func (r *CoursePostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.CourseFilters) ([]*models.Course, error) {
	db := r.helpers.getDB(tx)

	fetch := func() (interface{}, error) {
		query := r.helpers.ApplyCourseFilters(db.WithContext(ctx).Model(&models.Course{}), filters)
		var courses []*models.Course
		if err := paginate(query, filters.Limit, filters.Offset).
			Order("created_at DESC").
			Order("id ASC").
			Find(&courses).Error; err != nil {
			return nil, fmt.Errorf("failed to list courses: %w", err)
		}
		return courses, nil
	}

	if tx != nil {
		courses, err := fetch()
		if err != nil {
			return nil, err
		}
		return courses.([]*models.Course), nil
	}

	var courses []*models.Course
	if err := r.cacheManager.Course.CacheOrExecute(ctx, courseListKey(filters), &courses, cache.CourseCacheConfig.TTL, fetch); err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *CoursePostgreSQL) ListByTeacher(ctx context.Context, tx *gorm.DB, teacherID string) ([]*models.Course, error) {
	db := r.helpers.getDB(tx)
	var courses []*models.Course
	if err := db.WithContext(ctx).
		Where("created_by_teacher_id = ?", teacherID).
		Order("created_at DESC").
		Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("failed to list courses by teacher: %w", err)
	}
	return courses, nil
}

// ===== COUNTERS AND STATS =====

// RecountLessons sets total_lessons to the number of sessions across the
// course's modules and returns the new count
func (r *CoursePostgreSQL) RecountLessons(ctx context.Context, tx *gorm.DB, courseID string) (int, error) {
	base := r.helpers.getDB(tx)
	db := base.WithContext(ctx)

	var count int64
	if err := db.Model(&models.CourseSession{}).
		Joins("JOIN modules ON modules.id = course_sessions.module_id").
		Where("modules.course_id = ?", courseID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count lessons: %w", err)
	}

	if err := db.Model(&models.Course{}).
		Where("id = ?", courseID).
		Update("total_lessons", count).Error; err != nil {
		return 0, fmt.Errorf("failed to update total lessons: %w", err)
	}

	r.invalidate(ctx, base, courseID)
	return int(count), nil
}

type enrollmentStatusRow struct {
	Status      models.EnrollmentStatus
	Total       int64
	ProgressSum float64
}

// GetAnalytics aggregates enrollment counts and progress; rates are 0
// when the course has no enrollments. Outside a transaction the result is
// cached until an enrollment of the course changes.
func (r *CoursePostgreSQL) GetAnalytics(ctx context.Context, tx *gorm.DB, courseID string) (*models.CourseAnalytics, error) {
	db := r.helpers.getDB(tx)
	if tx != nil {
		return r.aggregate(ctx, db, courseID)
	}

	var analytics models.CourseAnalytics
	key := fmt.Sprintf("course:%s:analytics", courseID)
	if err := r.cacheManager.Stats.CacheOrExecute(ctx, key, &analytics, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		return r.aggregate(ctx, db, courseID)
	}); err != nil {
		return nil, err
	}
	return &analytics, nil
}

func (r *CoursePostgreSQL) aggregate(ctx context.Context, db *gorm.DB, courseID string) (*models.CourseAnalytics, error) {
	var rows []enrollmentStatusRow
	if err := db.WithContext(ctx).Model(&models.Enrollment{}).
		Select("status, COUNT(*) AS total, COALESCE(SUM(progress_percentage), 0) AS progress_sum").
		Where("course_id = ?", courseID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate enrollments: %w", err)
	}

	analytics := &models.CourseAnalytics{CourseID: courseID}
	var progressSum float64
	for _, row := range rows {
		analytics.TotalEnrollments += row.Total
		progressSum += row.ProgressSum
		switch row.Status {
		case models.EnrollmentActive:
			analytics.ActiveEnrollments = row.Total
		case models.EnrollmentCompleted:
			analytics.CompletedEnrollments = row.Total
		case models.EnrollmentDropped:
			analytics.DroppedEnrollments = row.Total
		}
	}

	if analytics.TotalEnrollments > 0 {
		analytics.CompletionRate = float64(analytics.CompletedEnrollments) / float64(analytics.TotalEnrollments)
		analytics.AverageProgress = progressSum / float64(analytics.TotalEnrollments)
	}

	return analytics, nil
}

// ===== MODULES =====

type ModulePostgreSQL struct {
	helpers *SharedHelpers
}

func NewModulePostgreSQL(db *gorm.DB) repositories.ModuleRepository {
	return &ModulePostgreSQL{helpers: NewSharedHelpers(db)}
}

func (r *ModulePostgreSQL) Create(ctx context.Context, tx *gorm.DB, module *models.Module) error {
	db := r.helpers.getDB(tx)
	if err := db.WithContext(ctx).Omit(clause.Associations).Create(module).Error; err != nil {
		return writeErr(err, "failed to create module")
	}
	return nil
}

func (r *ModulePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Module, error) {
	db := r.helpers.getDB(tx)
	var module models.Module
	if err := db.WithContext(ctx).First(&module, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "module", id)
	}
	return &module, nil
}

func (r *ModulePostgreSQL) ListByCourse(ctx context.Context, tx *gorm.DB, courseID string) ([]*models.Module, error) {
	db := r.helpers.getDB(tx)
	var modules []*models.Module
	if err := db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("sequence_order ASC").
		Find(&modules).Error; err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	return modules, nil
}

func (r *ModulePostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	db := r.helpers.getDB(tx)
	result := db.WithContext(ctx).Delete(&models.Module{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete module: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "module", id)
	}
	return nil
}

// ===== SESSIONS =====

type SessionPostgreSQL struct {
	helpers *SharedHelpers
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionRepository {
	return &SessionPostgreSQL{helpers: NewSharedHelpers(db)}
}

func (r *SessionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, session *models.CourseSession) error {
	db := r.helpers.getDB(tx)
	if err := db.WithContext(ctx).Create(session).Error; err != nil {
		return writeErr(err, "failed to create session")
	}
	return nil
}

func (r *SessionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.CourseSession, error) {
	db := r.helpers.getDB(tx)
	var session models.CourseSession
	if err := db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "session", id)
	}
	return &session, nil
}

func (r *SessionPostgreSQL) ListByModule(ctx context.Context, tx *gorm.DB, moduleID string) ([]*models.CourseSession, error) {
	db := r.helpers.getDB(tx)
	var sessions []*models.CourseSession
	if err := db.WithContext(ctx).
		Where("module_id = ?", moduleID).
		Order("sequence_order ASC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

func (r *SessionPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	db := r.helpers.getDB(tx)
	result := db.WithContext(ctx).Delete(&models.CourseSession{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "session", id)
	}
	return nil
}

func (r *SessionPostgreSQL) DeleteByModule(ctx context.Context, tx *gorm.DB, moduleID string) (int64, error) {
	db := r.helpers.getDB(tx)
	result := db.WithContext(ctx).Where("module_id = ?", moduleID).Delete(&models.CourseSession{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete module sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}
