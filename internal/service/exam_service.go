package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/examdesk/exam-duty-api/internal/dto"
	"github.com/examdesk/exam-duty-api/internal/models"
	appErrors "github.com/examdesk/exam-duty-api/pkg/errors"
)

type examStore interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error)
	Create(ctx context.Context, exam *models.Exam) error
	Update(ctx context.Context, exam *models.Exam) error
	UpdateBlocks(ctx context.Context, examID string, blocks models.BlockList) error
	Delete(ctx context.Context, id string) error
}

// ExamService owns exam records and block seeding/editing outside the
// auto-allocation path.
type ExamService struct {
	repo      examStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExamService constructs an ExamService.
func NewExamService(repo examStore, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamService{repo: repo, validator: validate, logger: logger}
}

// Create validates and stores a new exam without blocks.
func (s *ExamService) Create(ctx context.Context, req dto.CreateExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}
	if _, ok := parseDate(req.Date); !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	if req.EndTime <= req.StartTime {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endTime must be after startTime")
	}

	exam := &models.Exam{
		ExamName:  req.ExamName,
		Subject:   req.Subject,
		Branch:    req.Branch,
		Semester:  req.Semester,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    models.ExamStatusScheduled,
		Blocks:    models.BlockList{},
	}
	if err := s.repo.Create(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam")
	}
	return exam, nil
}

// Get loads one exam with its blocks.
func (s *ExamService) Get(ctx context.Context, id string) (*models.Exam, error) {
	return s.load(ctx, id)
}

// List returns exams matching the filter.
func (s *ExamService) List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error) {
	exams, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	return exams, total, nil
}

// Update applies partial exam updates.
func (s *ExamService) Update(ctx context.Context, id string, req dto.UpdateExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}
	exam, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.ExamName != nil {
		exam.ExamName = *req.ExamName
	}
	if req.Subject != nil {
		exam.Subject = *req.Subject
	}
	if req.Date != nil {
		if _, ok := parseDate(*req.Date); !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
		}
		exam.Date = *req.Date
	}
	if req.StartTime != nil {
		exam.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		exam.EndTime = *req.EndTime
	}
	if exam.EndTime <= exam.StartTime {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endTime must be after startTime")
	}
	if req.Status != nil {
		exam.Status = models.ExamStatus(*req.Status)
	}

	if err := s.repo.Update(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update exam")
	}
	return exam, nil
}

// Delete removes an exam.
func (s *ExamService) Delete(ctx context.Context, id string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete exam")
	}
	return nil
}

// AddBlock seeds a new block on the exam. Duplicate block numbers are rejected.
func (s *ExamService) AddBlock(ctx context.Context, examID string, req dto.AddBlockRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidBlockData.Code, appErrors.ErrInvalidBlockData.Status, "block number, capacity and location are required")
	}
	exam, err := s.load(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.FindBlock(req.Number) != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("block %d already exists for this exam", req.Number))
	}

	exam.Blocks = append(exam.Blocks, models.Block{
		Number:   req.Number,
		Capacity: req.Capacity,
		Location: req.Location,
		Status:   models.BlockStatusPending,
	})
	if err := s.repo.UpdateBlocks(ctx, exam.ID, exam.Blocks); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add block")
	}
	return exam, nil
}

// UpdateBlock edits capacity, location or status of one block.
func (s *ExamService) UpdateBlock(ctx context.Context, examID string, number int, req dto.UpdateBlockRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidBlockData.Code, appErrors.ErrInvalidBlockData.Status, "invalid block payload")
	}
	exam, err := s.load(ctx, examID)
	if err != nil {
		return nil, err
	}
	block := exam.FindBlock(number)
	if block == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("block %d not found", number))
	}

	if req.Capacity != nil {
		block.Capacity = *req.Capacity
	}
	if req.Location != nil {
		block.Location = *req.Location
	}
	if req.Status != nil {
		block.Status = models.BlockStatus(*req.Status)
	}

	if err := s.repo.UpdateBlocks(ctx, exam.ID, exam.Blocks); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update block")
	}
	return exam, nil
}

// CompleteBlock stamps a block as completed.
func (s *ExamService) CompleteBlock(ctx context.Context, examID string, number int) (*models.Exam, error) {
	exam, err := s.load(ctx, examID)
	if err != nil {
		return nil, err
	}
	block := exam.FindBlock(number)
	if block == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("block %d not found", number))
	}

	now := time.Now().UTC()
	block.Status = models.BlockStatusCompleted
	block.CompletedAt = &now

	if err := s.repo.UpdateBlocks(ctx, exam.ID, exam.Blocks); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete block")
	}
	return exam, nil
}

// AssignInvigilator manually pins one teacher onto one block, bypassing the
// greedy allocator.
func (s *ExamService) AssignInvigilator(ctx context.Context, examID string, number int, teacherID string) (*models.Exam, error) {
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invigilator id is required")
	}
	exam, err := s.load(ctx, examID)
	if err != nil {
		return nil, err
	}
	block := exam.FindBlock(number)
	if block == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("block %d not found", number))
	}
	for i := range exam.Blocks {
		if exam.Blocks[i].Number != number && exam.Blocks[i].Invigilator == teacherID {
			return nil, appErrors.Clone(appErrors.ErrConflict, "teacher already holds a block in this exam")
		}
	}

	block.Invigilator = teacherID
	if err := s.repo.UpdateBlocks(ctx, exam.ID, exam.Blocks); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign invigilator")
	}
	return exam, nil
}

func (s *ExamService) load(ctx context.Context, id string) (*models.Exam, error) {
	exam, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	return exam, nil
}

func parseDate(raw string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
