package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/examdesk/exam-duty-api/internal/dto"
	"github.com/examdesk/exam-duty-api/internal/models"
	"github.com/examdesk/exam-duty-api/internal/service"
	appErrors "github.com/examdesk/exam-duty-api/pkg/errors"
	"github.com/examdesk/exam-duty-api/pkg/response"
)

type examManager interface {
	Create(ctx context.Context, req dto.CreateExamRequest) (*models.Exam, error)
	Get(ctx context.Context, id string) (*models.Exam, error)
	List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error)
	Update(ctx context.Context, id string, req dto.UpdateExamRequest) (*models.Exam, error)
	Delete(ctx context.Context, id string) error
	AddBlock(ctx context.Context, examID string, req dto.AddBlockRequest) (*models.Exam, error)
	UpdateBlock(ctx context.Context, examID string, number int, req dto.UpdateBlockRequest) (*models.Exam, error)
	CompleteBlock(ctx context.Context, examID string, number int) (*models.Exam, error)
	AssignInvigilator(ctx context.Context, examID string, number int, teacherID string) (*models.Exam, error)
}

type dutyAllocator interface {
	Allocate(ctx context.Context, examID string) (*dto.AllocationResponse, error)
}

type rosterExporter interface {
	DutyRoster(ctx context.Context, examID, format string) ([]byte, string, error)
}

// ExamHandler wires exam and allocation services to HTTP routes.
type ExamHandler struct {
	exams     examManager
	allocator dutyAllocator
	exporter  rosterExporter
}

// NewExamHandler constructs a new ExamHandler.
func NewExamHandler(exams *service.ExamService, allocator *service.AllocationService, exporter *service.ExportService) *ExamHandler {
	return &ExamHandler{
		exams:     exams,
		allocator: allocator,
		exporter:  exporter,
	}
}

// Create godoc
// @Summary Create an exam
// @Tags Exams
// @Accept json
// @Produce json
// @Param payload body dto.CreateExamRequest true "Create exam payload"
// @Success 201 {object} response.Envelope
// @Router /exams [post]
func (h *ExamHandler) Create(c *gin.Context) {
	var req dto.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exam payload"))
		return
	}
	exam, err := h.exams.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exam)
}

// List godoc
// @Summary List exams
// @Tags Exams
// @Produce json
// @Param branch query string false "Filter by branch"
// @Param semester query int false "Filter by semester"
// @Param date query string false "Filter by exam date (YYYY-MM-DD)"
// @Param search query string false "Search by exam name"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /exams [get]
func (h *ExamHandler) List(c *gin.Context) {
	filter := models.ExamFilter{
		Branch:   strings.TrimSpace(c.Query("branch")),
		Date:     strings.TrimSpace(c.Query("date")),
		ExamName: strings.TrimSpace(c.Query("search")),
	}
	if semester, err := strconv.Atoi(c.Query("semester")); err == nil {
		filter.Semester = semester
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	exams, total, err := h.exams.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exams, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Get godoc
// @Summary Get exam detail with blocks
// @Tags Exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id} [get]
func (h *ExamHandler) Get(c *gin.Context) {
	exam, err := h.exams.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}

// Update godoc
// @Summary Update exam fields
// @Tags Exams
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param payload body dto.UpdateExamRequest true "Update exam payload"
// @Success 200 {object} response.Envelope
// @Router /exams/{id} [patch]
func (h *ExamHandler) Update(c *gin.Context) {
	var req dto.UpdateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exam payload"))
		return
	}
	exam, err := h.exams.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}

// Delete godoc
// @Summary Delete an exam
// @Tags Exams
// @Param id path string true "Exam ID"
// @Success 204
// @Router /exams/{id} [delete]
func (h *ExamHandler) Delete(c *gin.Context) {
	if err := h.exams.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddBlock godoc
// @Summary Add a block to an exam
// @Tags Exams
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param payload body dto.AddBlockRequest true "Block payload"
// @Success 201 {object} response.Envelope
// @Router /exams/{id}/blocks [post]
func (h *ExamHandler) AddBlock(c *gin.Context) {
	var req dto.AddBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidBlockData.Code, http.StatusBadRequest, "invalid block payload"))
		return
	}
	exam, err := h.exams.AddBlock(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exam)
}

// UpdateBlock godoc
// @Summary Update a block's capacity, location or status
// @Tags Exams
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param number path int true "Block number"
// @Param payload body dto.UpdateBlockRequest true "Block update payload"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/blocks/{number} [patch]
func (h *ExamHandler) UpdateBlock(c *gin.Context) {
	number, ok := h.blockNumber(c)
	if !ok {
		return
	}
	var req dto.UpdateBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidBlockData.Code, http.StatusBadRequest, "invalid block payload"))
		return
	}
	exam, err := h.exams.UpdateBlock(c.Request.Context(), c.Param("id"), number, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}

// CompleteBlock godoc
// @Summary Mark a block's duty as completed
// @Tags Exams
// @Produce json
// @Param id path string true "Exam ID"
// @Param number path int true "Block number"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/blocks/{number}/complete [post]
func (h *ExamHandler) CompleteBlock(c *gin.Context) {
	number, ok := h.blockNumber(c)
	if !ok {
		return
	}
	exam, err := h.exams.CompleteBlock(c.Request.Context(), c.Param("id"), number)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}

// AssignInvigilator godoc
// @Summary Manually assign an invigilator to a block
// @Tags Exams
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param number path int true "Block number"
// @Param payload body dto.AssignInvigilatorRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/blocks/{number}/invigilator [put]
func (h *ExamHandler) AssignInvigilator(c *gin.Context) {
	number, ok := h.blockNumber(c)
	if !ok {
		return
	}
	var req dto.AssignInvigilatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	exam, err := h.exams.AssignInvigilator(c.Request.Context(), c.Param("id"), number, req.InvigilatorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}

// Allocate godoc
// @Summary Auto-assign invigilators to all open blocks of an exam
// @Tags Allocation
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/allocate [post]
func (h *ExamHandler) Allocate(c *gin.Context) {
	result, err := h.allocator.Allocate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// DutyRoster godoc
// @Summary Export an exam's duty roster
// @Tags Allocation
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Exam ID"
// @Param format query string false "Export format (csv or pdf, default csv)"
// @Success 200 {file} file
// @Router /exams/{id}/duty-roster [get]
func (h *ExamHandler) DutyRoster(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	payload, contentType, err := h.exporter.DutyRoster(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="duty-roster.`+format+`"`)
	c.Data(http.StatusOK, contentType, payload)
}

func (h *ExamHandler) blockNumber(c *gin.Context) (int, bool) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number < 1 {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidBlockData, "block number must be a positive integer"))
		return 0, false
	}
	return number, true
}
