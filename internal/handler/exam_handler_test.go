package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examdesk/exam-duty-api/internal/dto"
	"github.com/examdesk/exam-duty-api/internal/models"
	appErrors "github.com/examdesk/exam-duty-api/pkg/errors"
)

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error map[string]interface{} `json:"error"`
}

type fakeExamSrv struct {
	exam *models.Exam
	err  error

	lastBlockNumber int
	lastTeacherID   string
}

func (f *fakeExamSrv) Create(context.Context, dto.CreateExamRequest) (*models.Exam, error) {
	return f.exam, f.err
}

func (f *fakeExamSrv) Get(context.Context, string) (*models.Exam, error) {
	return f.exam, f.err
}

func (f *fakeExamSrv) List(context.Context, models.ExamFilter) ([]models.Exam, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	return []models.Exam{*f.exam}, 1, nil
}

func (f *fakeExamSrv) Update(context.Context, string, dto.UpdateExamRequest) (*models.Exam, error) {
	return f.exam, f.err
}

func (f *fakeExamSrv) Delete(context.Context, string) error {
	return f.err
}

func (f *fakeExamSrv) AddBlock(context.Context, string, dto.AddBlockRequest) (*models.Exam, error) {
	return f.exam, f.err
}

func (f *fakeExamSrv) UpdateBlock(_ context.Context, _ string, number int, _ dto.UpdateBlockRequest) (*models.Exam, error) {
	f.lastBlockNumber = number
	return f.exam, f.err
}

func (f *fakeExamSrv) CompleteBlock(_ context.Context, _ string, number int) (*models.Exam, error) {
	f.lastBlockNumber = number
	return f.exam, f.err
}

func (f *fakeExamSrv) AssignInvigilator(_ context.Context, _ string, number int, teacherID string) (*models.Exam, error) {
	f.lastBlockNumber = number
	f.lastTeacherID = teacherID
	return f.exam, f.err
}

type fakeAllocatorSrv struct {
	resp *dto.AllocationResponse
	err  error
}

func (f *fakeAllocatorSrv) Allocate(context.Context, string) (*dto.AllocationResponse, error) {
	return f.resp, f.err
}

type fakeExporterSrv struct {
	payload     []byte
	contentType string
	err         error
}

func (f *fakeExporterSrv) DutyRoster(context.Context, string, string) ([]byte, string, error) {
	return f.payload, f.contentType, f.err
}

func sampleExam() *models.Exam {
	return &models.Exam{
		ID:        "e1",
		ExamName:  "Midterm",
		Subject:   "Mathematics",
		Branch:    "CSE",
		Semester:  4,
		Date:      "2026-09-07",
		StartTime: "09:00",
		EndTime:   "11:00",
		Status:    models.ExamStatusScheduled,
		Blocks: models.BlockList{
			{Number: 1, Capacity: 30, Location: "Room A", Invigilator: "t1", Status: models.BlockStatusPending},
		},
	}
}

func TestExamHandlerCreateInvalidJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &ExamHandler{exams: &fakeExamSrv{}}

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/exams", strings.NewReader("{not-json"))

	h.Create(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExamHandlerCreateSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &ExamHandler{exams: &fakeExamSrv{exam: sampleExam()}}

	body := `{"examName":"Midterm","subject":"Mathematics","branch":"CSE","semester":4,"date":"2026-09-07","startTime":"09:00","endTime":"11:00"}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/exams", strings.NewReader(body))

	h.Create(c)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "e1", envelope.Data["id"])
}

func TestExamHandlerAllocateSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &ExamHandler{allocator: &fakeAllocatorSrv{resp: &dto.AllocationResponse{
		Exam: sampleExam(),
		WorkloadStats: []dto.WorkloadStat{
			{TeacherID: "t1", TeacherName: "Asha Rao", TotalWorkload: 1, TimeSlots: 1, IsAllocated: true},
		},
		WorkloadBalance: dto.WorkloadBalance{MaxWorkload: 1, MinWorkload: 0, Difference: 1},
	}}}

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/exams/e1/allocate", nil)
	c.Params = gin.Params{{Key: "id", Value: "e1"}}

	h.Allocate(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.NotNil(t, envelope.Data["exam"])
	assert.NotNil(t, envelope.Data["workloadStats"])
	assert.NotNil(t, envelope.Data["workloadBalance"])
}

func TestExamHandlerAllocateNoEligible(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &ExamHandler{allocator: &fakeAllocatorSrv{
		err: appErrors.Clone(appErrors.ErrNoEligibleTeacher, "no eligible teacher for block 2"),
	}}

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/exams/e1/allocate", nil)
	c.Params = gin.Params{{Key: "id", Value: "e1"}}

	h.Allocate(c)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Contains(t, envelope.Error["message"], "block 2")
}

func TestExamHandlerAddBlockInvalidNumberParam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &ExamHandler{exams: &fakeExamSrv{exam: sampleExam()}}

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/exams/e1/blocks/zero/complete", nil)
	c.Params = gin.Params{{Key: "id", Value: "e1"}, {Key: "number", Value: "zero"}}

	h.CompleteBlock(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExamHandlerCompleteBlock(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fake := &fakeExamSrv{exam: sampleExam()}
	h := &ExamHandler{exams: fake}

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/exams/e1/blocks/1/complete", nil)
	c.Params = gin.Params{{Key: "id", Value: "e1"}, {Key: "number", Value: "1"}}

	h.CompleteBlock(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, fake.lastBlockNumber)
}

func TestExamHandlerAssignInvigilator(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fake := &fakeExamSrv{exam: sampleExam()}
	h := &ExamHandler{exams: fake}

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPut, "/exams/e1/blocks/1/invigilator", strings.NewReader(`{"invigilatorId":"t9"}`))
	c.Params = gin.Params{{Key: "id", Value: "e1"}, {Key: "number", Value: "1"}}

	h.AssignInvigilator(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t9", fake.lastTeacherID)
}

func TestExamHandlerDutyRoster(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &ExamHandler{exporter: &fakeExporterSrv{
		payload:     []byte("Block,Location\n1,Room A\n"),
		contentType: "text/csv",
	}}

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/exams/e1/duty-roster?format=csv", nil)
	c.Params = gin.Params{{Key: "id", Value: "e1"}}

	h.DutyRoster(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "duty-roster.csv")
	assert.Contains(t, rec.Body.String(), "Room A")
}

func TestExamHandlerDeleteNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &ExamHandler{exams: &fakeExamSrv{err: appErrors.Clone(appErrors.ErrNotFound, "exam not found")}}

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodDelete, "/exams/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	h.Delete(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
