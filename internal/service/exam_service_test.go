package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/examdesk/exam-duty-api/internal/dto"
	"github.com/examdesk/exam-duty-api/internal/models"
	appErrors "github.com/examdesk/exam-duty-api/pkg/errors"
)

type examCrudStub struct {
	exams map[string]*models.Exam
}

func newExamCrudStub(exams ...*models.Exam) *examCrudStub {
	stub := &examCrudStub{exams: make(map[string]*models.Exam)}
	for _, e := range exams {
		stub.exams[e.ID] = e
	}
	return stub
}

func (s *examCrudStub) FindByID(_ context.Context, id string) (*models.Exam, error) {
	exam, ok := s.exams[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *exam
	clone.Blocks = append(models.BlockList{}, exam.Blocks...)
	return &clone, nil
}

func (s *examCrudStub) List(_ context.Context, _ models.ExamFilter) ([]models.Exam, int, error) {
	out := make([]models.Exam, 0, len(s.exams))
	for _, e := range s.exams {
		out = append(out, *e)
	}
	return out, len(out), nil
}

func (s *examCrudStub) Create(_ context.Context, exam *models.Exam) error {
	if exam.ID == "" {
		exam.ID = "generated"
	}
	s.exams[exam.ID] = exam
	return nil
}

func (s *examCrudStub) Update(_ context.Context, exam *models.Exam) error {
	if _, ok := s.exams[exam.ID]; !ok {
		return sql.ErrNoRows
	}
	s.exams[exam.ID] = exam
	return nil
}

func (s *examCrudStub) UpdateBlocks(_ context.Context, examID string, blocks models.BlockList) error {
	exam, ok := s.exams[examID]
	if !ok {
		return sql.ErrNoRows
	}
	exam.Blocks = append(models.BlockList{}, blocks...)
	return nil
}

func (s *examCrudStub) Delete(_ context.Context, id string) error {
	delete(s.exams, id)
	return nil
}

func newExamServiceFixture(exams ...*models.Exam) (*ExamService, *examCrudStub) {
	stub := newExamCrudStub(exams...)
	return NewExamService(stub, nil, zap.NewNop()), stub
}

func TestExamServiceCreate(t *testing.T) {
	svc, stub := newExamServiceFixture()

	exam, err := svc.Create(context.Background(), dto.CreateExamRequest{
		ExamName:  "Midterm",
		Subject:   "Mathematics",
		Branch:    "CSE",
		Semester:  4,
		Date:      "2026-09-07",
		StartTime: "09:00",
		EndTime:   "11:00",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ExamStatusScheduled, exam.Status)
	assert.Empty(t, exam.Blocks)
	assert.Contains(t, stub.exams, exam.ID)
}

func TestExamServiceCreateRejectsBadDate(t *testing.T) {
	svc, _ := newExamServiceFixture()

	_, err := svc.Create(context.Background(), dto.CreateExamRequest{
		ExamName:  "Midterm",
		Subject:   "Mathematics",
		Branch:    "CSE",
		Semester:  4,
		Date:      "07/09/2026",
		StartTime: "09:00",
		EndTime:   "11:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExamServiceCreateRejectsInvertedTimes(t *testing.T) {
	svc, _ := newExamServiceFixture()

	_, err := svc.Create(context.Background(), dto.CreateExamRequest{
		ExamName:  "Midterm",
		Subject:   "Mathematics",
		Branch:    "CSE",
		Semester:  4,
		Date:      "2026-09-07",
		StartTime: "11:00",
		EndTime:   "09:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExamServiceGetNotFound(t *testing.T) {
	svc, _ := newExamServiceFixture()

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExamServiceUpdatePartial(t *testing.T) {
	svc, stub := newExamServiceFixture(mockExam("e1", "2026-09-07", "09:00", "11:00"))

	name := "Final"
	exam, err := svc.Update(context.Background(), "e1", dto.UpdateExamRequest{ExamName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Final", exam.ExamName)
	assert.Equal(t, "Mathematics", exam.Subject)
	assert.Equal(t, "Final", stub.exams["e1"].ExamName)
}

func TestExamServiceAddBlock(t *testing.T) {
	svc, stub := newExamServiceFixture(mockExam("e1", "2026-09-07", "09:00", "11:00"))

	exam, err := svc.AddBlock(context.Background(), "e1", dto.AddBlockRequest{
		Number:   1,
		Capacity: 30,
		Location: "Room A",
	})
	require.NoError(t, err)
	require.Len(t, exam.Blocks, 1)
	assert.Equal(t, models.BlockStatusPending, exam.Blocks[0].Status)
	assert.Len(t, stub.exams["e1"].Blocks, 1)
}

func TestExamServiceAddBlockDuplicateNumber(t *testing.T) {
	svc, _ := newExamServiceFixture(mockExam("e1", "2026-09-07", "09:00", "11:00", openBlock(1)))

	_, err := svc.AddBlock(context.Background(), "e1", dto.AddBlockRequest{
		Number:   1,
		Capacity: 30,
		Location: "Room A",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestExamServiceAddBlockInvalidData(t *testing.T) {
	svc, _ := newExamServiceFixture(mockExam("e1", "2026-09-07", "09:00", "11:00"))

	_, err := svc.AddBlock(context.Background(), "e1", dto.AddBlockRequest{
		Number:   1,
		Capacity: 0,
		Location: "Room A",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidBlockData.Code, appErrors.FromError(err).Code)
}

func TestExamServiceCompleteBlock(t *testing.T) {
	svc, _ := newExamServiceFixture(mockExam("e1", "2026-09-07", "09:00", "11:00", filledBlock(1, "t1")))

	exam, err := svc.CompleteBlock(context.Background(), "e1", 1)
	require.NoError(t, err)
	block := exam.FindBlock(1)
	assert.Equal(t, models.BlockStatusCompleted, block.Status)
	require.NotNil(t, block.CompletedAt)
}

func TestExamServiceCompleteBlockMissing(t *testing.T) {
	svc, _ := newExamServiceFixture(mockExam("e1", "2026-09-07", "09:00", "11:00"))

	_, err := svc.CompleteBlock(context.Background(), "e1", 7)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExamServiceAssignInvigilator(t *testing.T) {
	svc, stub := newExamServiceFixture(mockExam("e1", "2026-09-07", "09:00", "11:00", openBlock(1), openBlock(2)))

	exam, err := svc.AssignInvigilator(context.Background(), "e1", 1, "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", exam.FindBlock(1).Invigilator)
	assert.Equal(t, "t1", stub.exams["e1"].Blocks[0].Invigilator)

	// The same teacher cannot hold a second block in the exam.
	_, err = svc.AssignInvigilator(context.Background(), "e1", 2, "t1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestExamServiceDelete(t *testing.T) {
	svc, stub := newExamServiceFixture(mockExam("e1", "2026-09-07", "09:00", "11:00"))

	require.NoError(t, svc.Delete(context.Background(), "e1"))
	assert.NotContains(t, stub.exams, "e1")

	err := svc.Delete(context.Background(), "e1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
