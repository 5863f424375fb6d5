package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/examdesk/exam-duty-api/internal/models"
	appErrors "github.com/examdesk/exam-duty-api/pkg/errors"
)

type teacherReaderStub struct {
	teachers map[string]*models.Teacher
}

func (s *teacherReaderStub) FindByID(_ context.Context, id string) (*models.Teacher, error) {
	teacher, ok := s.teachers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return teacher, nil
}

func newExportFixture() *ExportService {
	asha := mockTeacher("t1", "Asha Rao", "Monday")
	store := newExamCrudStub(
		mockExam("e1", "2026-09-07", "09:00", "11:00", filledBlock(1, "t1"), openBlock(2)))
	readers := &teacherReaderStub{teachers: map[string]*models.Teacher{"t1": &asha}}
	return NewExportService(store, readers, zap.NewNop())
}

func TestDutyRosterCSV(t *testing.T) {
	svc := newExportFixture()

	payload, contentType, err := svc.DutyRoster(context.Background(), "e1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	body := string(payload)
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Block")
	assert.Contains(t, lines[0], "Invigilator")
	assert.Contains(t, lines[1], "Asha Rao")
	assert.Contains(t, lines[1], "09:00-11:00")
	assert.Contains(t, lines[2], "-")
}

func TestDutyRosterPDF(t *testing.T) {
	svc := newExportFixture()

	payload, contentType, err := svc.DutyRoster(context.Background(), "e1", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestDutyRosterUnknownFormat(t *testing.T) {
	svc := newExportFixture()

	_, _, err := svc.DutyRoster(context.Background(), "e1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDutyRosterExamNotFound(t *testing.T) {
	svc := newExportFixture()

	_, _, err := svc.DutyRoster(context.Background(), "missing", "csv")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
