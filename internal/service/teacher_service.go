package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/examdesk/exam-duty-api/internal/models"
	appErrors "github.com/examdesk/exam-duty-api/pkg/errors"
)

type teacherDirectoryReader interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// TeacherService exposes the staff directory. Listings are served through a
// read-through cache since the directory changes rarely relative to reads.
type TeacherService struct {
	repo   teacherDirectoryReader
	cache  *CacheService
	logger *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherDirectoryReader, cache *CacheService, logger *zap.Logger) *TeacherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, cache: cache, logger: logger}
}

type cachedTeacherList struct {
	Teachers []models.Teacher `json:"teachers"`
	Total    int              `json:"total"`
}

// List returns teachers matching the filter.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	key := teacherListCacheKey(filter)
	if s.cache.Enabled() {
		var cached cachedTeacherList
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return cached.Teachers, cached.Total, nil
		}
	}

	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}

	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, key, cachedTeacherList{Teachers: teachers, Total: total}, 0)
	}
	return teachers, total, nil
}

// Get returns a single teacher by id.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

func teacherListCacheKey(filter models.TeacherFilter) string {
	active := "any"
	if filter.Active != nil {
		active = fmt.Sprintf("%t", *filter.Active)
	}
	return fmt.Sprintf("teachers:list:%s:%s:%s:%d:%d", filter.Role, active, filter.Search, filter.Page, filter.PageSize)
}
