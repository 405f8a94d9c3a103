package services

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/nduva/learning-service/internal/events"
	"github.com/nduva/learning-service/internal/models"
	"github.com/nduva/learning-service/internal/repositories"
	"github.com/nduva/learning-service/internal/repositories/postgres"
	"github.com/nduva/learning-service/internal/testutil"
	"github.com/nduva/learning-service/internal/validator"
)

type testEnv struct {
	db        *gorm.DB
	repo      repositories.Repository
	publisher *events.MockEventPublisher
	base      baseService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db})
	publisher := events.NewMockEventPublisher(logger)

	return &testEnv{
		db:        db,
		repo:      repo,
		publisher: publisher,
		base:      newBaseService(repo, db, logger, validator.New(), publisher),
	}
}

// at pins the service clock
func (e *testEnv) at(now time.Time) *testEnv {
	e.base.now = func() time.Time { return now }
	return e
}

func callerOf(u *models.User) Caller {
	return Caller{ID: u.ID, Role: u.Role}
}

func strPtr(s string) *string {
	return &s
}
