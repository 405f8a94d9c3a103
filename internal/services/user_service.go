package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nduva/learning-service/internal/events"
	"github.com/nduva/learning-service/internal/models"
	"github.com/nduva/learning-service/internal/repositories"
	"github.com/nduva/learning-service/internal/validator"
)

// Development identity used when no provider is configured
const (
	DevUserID     = "mock-user-123"
	devUserEmail  = "dev@example.com"
	devUserXP     = 450
	devUserStreak = 5
)

type userService struct {
	baseService
	gamification GamificationService
}

func NewUserService(base baseService, gamification GamificationService) UserService {
	return &userService{
		baseService:  base,
		gamification: gamification,
	}
}

// ===== IDENTITY =====

// ResolveIdentity upserts the user by the provider's subject id. Provider
// fields only fill in what the user has not set themselves.
func (s *userService) ResolveIdentity(ctx context.Context, claims IdentityClaims) (*models.User, error) {
	if claims.ID == "" {
		return nil, NewValidationError("id", "identity has no subject", "")
	}

	user, err := s.repo.User().GetByID(ctx, nil, claims.ID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user == nil {
		user = &models.User{
			ID:       claims.ID,
			FullName: claims.DisplayName,
			Role:     models.RoleLearner,
		}
		if claims.Email != "" {
			user.Email = &claims.Email
		}
		if claims.ProfileImageURL != "" {
			user.ProfileImageURL = &claims.ProfileImageURL
		}
		if err := s.repo.User().Create(ctx, nil, user); err != nil {
			// Another request created the same user first
			if repositories.IsDuplicateError(err) {
				return s.getUser(ctx, claims.ID)
			}
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		s.logger.Info("User created from identity", "user_id", user.ID)
		return user, nil
	}

	changed := false
	if user.Email == nil && claims.Email != "" {
		user.Email = &claims.Email
		changed = true
	}
	if user.FullName == "" && claims.DisplayName != "" {
		user.FullName = claims.DisplayName
		changed = true
	}
	if user.ProfileImageURL == nil && claims.ProfileImageURL != "" {
		user.ProfileImageURL = &claims.ProfileImageURL
		changed = true
	}
	if changed {
		if err := s.repo.User().Update(ctx, nil, user); err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}
	return user, nil
}

// EnsureDevUser resolves a development identity. An empty id means the
// seeded admin user; any other unknown id becomes a fresh learner.
func (s *userService) EnsureDevUser(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		userID = DevUserID
	}

	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err == nil {
		return user, nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if userID != DevUserID {
		return s.ResolveIdentity(ctx, IdentityClaims{ID: userID})
	}

	email := devUserEmail
	first, last := "Dev", "User"
	user = &models.User{
		ID:        DevUserID,
		Email:     &email,
		FirstName: &first,
		LastName:  &last,
		FullName:  "Dev User",
		Role:      models.RoleAdmin,
	}

	err = s.withTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.User().Create(ctx, tx, user); err != nil {
			return err
		}
		if _, err := s.repo.User().AddXP(ctx, tx, DevUserID, devUserXP); err != nil {
			return err
		}
		return s.repo.User().UpdateStreak(ctx, tx, DevUserID, devUserStreak, s.today())
	})
	if err != nil {
		if repositories.IsDuplicateError(err) {
			return s.getUser(ctx, DevUserID)
		}
		return nil, fmt.Errorf("failed to create dev user: %w", err)
	}

	s.logger.Info("Development user created", "user_id", DevUserID)
	return s.getUser(ctx, DevUserID)
}

func (s *userService) GetCurrentUser(ctx context.Context, caller Caller) (*models.User, error) {
	return s.getUser(ctx, caller.ID)
}

// CompleteProfile stores onboarding answers. Admins keep their role.
func (s *userService) CompleteProfile(ctx context.Context, req *CompleteProfileRequest, caller Caller) (*models.User, error) {
	s.logger.Info("Completing profile", "user_id", caller.ID, "role", req.Role)

	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}

	user, err := s.getUser(ctx, caller.ID)
	if err != nil {
		return nil, err
	}

	first := strings.TrimSpace(req.FirstName)
	last := strings.TrimSpace(req.LastName)
	user.FirstName = &first
	user.LastName = &last
	user.FullName = first + " " + last

	if user.Role != models.RoleAdmin {
		user.Role = req.Role
	}

	if req.DateOfBirth != nil && *req.DateOfBirth != "" {
		dob, err := validator.ParseDateOfBirth(*req.DateOfBirth)
		if err != nil {
			return nil, NewValidationError("dateOfBirth", "must be a date in YYYY-MM-DD format", *req.DateOfBirth)
		}
		user.DateOfBirth = &dob
	}

	if req.Preferences != nil {
		prefs, err := mergePreferences(user.Preferences, req.Preferences)
		if err != nil {
			return nil, fmt.Errorf("failed to encode preferences: %w", err)
		}
		user.Preferences = prefs
	}

	if err := s.repo.User().Update(ctx, nil, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// ===== TEACHER APPLICATIONS =====

func (s *userService) SubmitTeacherApplication(ctx context.Context, req *TeacherApplicationRequest, caller Caller) (*models.TeacherApplication, error) {
	s.logger.Info("Submitting teacher application", "user_id", caller.ID)

	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}

	if _, err := s.getUser(ctx, caller.ID); err != nil {
		return nil, err
	}

	pending, err := s.repo.TeacherApplication().GetPendingByUser(ctx, nil, caller.ID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check pending applications: %w", err)
	}
	if pending != nil {
		return nil, NewConflictError("teacher_application", "an application is already pending review")
	}

	areas, err := marshalJSON(req.ExpertiseAreas)
	if err != nil {
		return nil, fmt.Errorf("failed to encode expertise areas: %w", err)
	}

	app := &models.TeacherApplication{
		UserID:             caller.ID,
		ExpertiseAreas:     areas,
		TeachingExperience: req.TeachingExperience,
		CourseIdeas:        req.CourseIdeas,
		Bio:                req.Bio,
		WebsiteURL:         req.WebsiteURL,
		LinkedinURL:        req.LinkedinURL,
		TwitterURL:         req.TwitterURL,
		Status:             models.ApplicationPending,
	}
	if err := s.repo.TeacherApplication().Create(ctx, nil, app); err != nil {
		return nil, fmt.Errorf("failed to create teacher application: %w", err)
	}

	s.publish(ctx, events.TeacherApplicationSubmitted, map[string]interface{}{
		"applicationId": app.ID,
		"userId":        caller.ID,
	})
	return app, nil
}

func (s *userService) ListTeacherApplications(ctx context.Context, status *models.ApplicationStatus, caller Caller) ([]*models.TeacherApplication, error) {
	if !caller.IsAdmin() {
		return nil, NewPermissionError(caller.ID, "", "teacher_application", "list", "admin role required")
	}

	apps, err := s.repo.TeacherApplication().List(ctx, nil, repositories.TeacherApplicationFilters{Status: status})
	if err != nil {
		return nil, fmt.Errorf("failed to list teacher applications: %w", err)
	}
	return apps, nil
}

// ReviewTeacherApplication records the decision. Approval promotes the
// applicant and copies the application onto their teacher profile.
func (s *userService) ReviewTeacherApplication(ctx context.Context, applicationID string, req *ReviewApplicationRequest, caller Caller) (*models.TeacherApplication, error) {
	s.logger.Info("Reviewing teacher application", "application_id", applicationID, "admin_id", caller.ID, "status", req.Status)

	if !caller.IsAdmin() {
		return nil, NewPermissionError(caller.ID, applicationID, "teacher_application", "review", "admin role required")
	}
	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}

	app, err := s.repo.TeacherApplication().GetByID(ctx, nil, applicationID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTeacherApplicationNotFound
		}
		return nil, fmt.Errorf("failed to get teacher application: %w", err)
	}
	if app.Status != models.ApplicationPending {
		return nil, NewConflictError("teacher_application", fmt.Sprintf("application already %s", app.Status))
	}

	now := s.now().UTC()
	app.Status = req.Status
	app.ReviewedBy = &caller.ID
	app.ReviewedAt = &now
	app.ReviewNotes = req.ReviewNotes

	err = s.withTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.TeacherApplication().Update(ctx, tx, app); err != nil {
			return err
		}
		if app.Status != models.ApplicationApproved {
			return nil
		}

		applicant, err := s.repo.User().GetByID(ctx, tx, app.UserID)
		if err != nil {
			return err
		}
		if applicant.Role != models.RoleAdmin {
			applicant.Role = models.RoleTeacher
		}
		bio := app.Bio
		experience := app.TeachingExperience
		applicant.Bio = &bio
		applicant.TeachingExperience = &experience
		applicant.ExpertiseAreas = app.ExpertiseAreas
		applicant.WebsiteURL = app.WebsiteURL
		applicant.LinkedinURL = app.LinkedinURL
		applicant.TwitterURL = app.TwitterURL
		return s.repo.User().Update(ctx, tx, applicant)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to review teacher application: %w", err)
	}

	s.publish(ctx, events.TeacherApplicationReviewed, map[string]interface{}{
		"applicationId": app.ID,
		"userId":        app.UserID,
		"status":        app.Status,
		"reviewedBy":    caller.ID,
	})
	return app, nil
}

// ===== ADMINISTRATION =====

func (s *userService) ListUsers(ctx context.Context, filters repositories.UserFilters, caller Caller) ([]*models.User, int64, error) {
	if !caller.IsAdmin() {
		return nil, 0, NewPermissionError(caller.ID, "", "user", "list", "admin role required")
	}

	users, total, err := s.repo.User().List(ctx, nil, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

func (s *userService) DeactivateUser(ctx context.Context, userID string, caller Caller) (*models.User, error) {
	s.logger.Info("Deactivating user", "user_id", userID, "admin_id", caller.ID)

	if !caller.IsAdmin() {
		return nil, NewPermissionError(caller.ID, userID, "user", "deactivate", "admin role required")
	}

	if err := s.repo.User().SetActive(ctx, nil, userID, false); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to deactivate user: %w", err)
	}
	return s.getUser(ctx, userID)
}

func (s *userService) AdjustUserXP(ctx context.Context, userID string, delta int, caller Caller) (*models.User, error) {
	if !caller.IsAdmin() {
		return nil, NewPermissionError(caller.ID, userID, "user", "adjust_xp", "admin role required")
	}
	if delta == 0 {
		return nil, NewValidationError("delta", "must not be zero", "0")
	}
	return s.gamification.AddUserXP(ctx, userID, delta, "admin_adjustment")
}

func (s *userService) getUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// mergePreferences overlays the onboarding keys on whatever is already
// stored, leaving unknown keys in place.
func mergePreferences(existing datatypes.JSON, prefs *models.UserPreferences) (datatypes.JSON, error) {
	merged := map[string]interface{}{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &merged); err != nil {
			merged = map[string]interface{}{}
		}
	}

	encoded, err := json.Marshal(prefs)
	if err != nil {
		return nil, err
	}
	var overlay map[string]interface{}
	if err := json.Unmarshal(encoded, &overlay); err != nil {
		return nil, err
	}
	for k, v := range overlay {
		merged[k] = v
	}

	b, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
