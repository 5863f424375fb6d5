package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/examdesk/exam-duty-api/internal/models"
	"github.com/examdesk/exam-duty-api/internal/service"
	"github.com/examdesk/exam-duty-api/pkg/response"
)

type teacherDirectory interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	Get(ctx context.Context, id string) (*models.Teacher, error)
}

type notificationReader interface {
	ListForTeacher(ctx context.Context, teacherID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

// TeacherHandler wires teacher directory and notification services to HTTP routes.
type TeacherHandler struct {
	teachers      teacherDirectory
	notifications notificationReader
}

// NewTeacherHandler constructs a new TeacherHandler.
func NewTeacherHandler(teachers *service.TeacherService, notifications *service.NotificationService) *TeacherHandler {
	return &TeacherHandler{
		teachers:      teachers,
		notifications: notifications,
	}
}

// List godoc
// @Summary List teachers
// @Tags Teachers
// @Produce json
// @Param role query string false "Filter by role"
// @Param active query bool false "Filter by active status"
// @Param search query string false "Search by name or email"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /teachers [get]
func (h *TeacherHandler) List(c *gin.Context) {
	filter := models.TeacherFilter{
		Role:   strings.TrimSpace(c.Query("role")),
		Search: strings.TrimSpace(c.Query("search")),
	}
	if active := c.Query("active"); active != "" {
		switch strings.ToLower(active) {
		case "true":
			val := true
			filter.Active = &val
		case "false":
			val := false
			filter.Active = &val
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	teachers, total, err := h.teachers.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Get godoc
// @Summary Get teacher detail
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id} [get]
func (h *TeacherHandler) Get(c *gin.Context) {
	teacher, err := h.teachers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// Notifications godoc
// @Summary List a teacher's duty notifications, newest first
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/notifications [get]
func (h *TeacherHandler) Notifications(c *gin.Context) {
	items, err := h.notifications.ListForTeacher(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// MarkNotificationRead godoc
// @Summary Mark a notification as read
// @Tags Teachers
// @Param id path string true "Teacher ID"
// @Param notificationId path string true "Notification ID"
// @Success 204
// @Router /teachers/{id}/notifications/{notificationId}/read [post]
func (h *TeacherHandler) MarkNotificationRead(c *gin.Context) {
	if err := h.notifications.MarkRead(c.Request.Context(), c.Param("notificationId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
