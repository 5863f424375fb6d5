package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/examdesk/exam-duty-api/internal/models"
	appErrors "github.com/examdesk/exam-duty-api/pkg/errors"
	"github.com/examdesk/exam-duty-api/pkg/jobs"
)

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

const jobTypeAssignment = "assignment_notification"

// NotificationService emits "you have been assigned" events. Delivery is
// asynchronous through the job queue; the store keeps the in-app copy.
type NotificationService struct {
	repo   notificationStore
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService constructs the service. Call StartQueue before
// emitting.
func NewNotificationService(repo notificationStore, queueCfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{repo: repo, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.deliver, queueCfg)
	return s
}

// StartQueue begins background delivery workers.
func (s *NotificationService) StartQueue(ctx context.Context) {
	s.queue.Start(ctx)
}

// StopQueue drains and stops delivery workers.
func (s *NotificationService) StopQueue() {
	s.queue.Stop()
}

// EmitAssignment queues an assignment notification for one block.
func (s *NotificationService) EmitAssignment(ctx context.Context, teacherID string, exam *models.Exam, block models.Block) error {
	notification := models.Notification{
		TeacherID: teacherID,
		ExamID:    exam.ID,
		Title:     "Invigilation duty assigned",
		Message: fmt.Sprintf("You have been assigned to invigilate %s on %s from %s to %s (block %d, %s, capacity %d).",
			exam.Subject, exam.Date, exam.StartTime, exam.EndTime, block.Number, block.Location, block.Capacity),
	}
	return s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeAssignment,
		Payload: notification,
	})
}

// ListForTeacher returns a teacher's stored notifications.
func (s *NotificationService) ListForTeacher(ctx context.Context, teacherID string) ([]models.Notification, error) {
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher id is required")
	}
	list, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return list, nil
}

// MarkRead flags one notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(models.Notification)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	if err := s.repo.Create(ctx, &notification); err != nil {
		return err
	}
	s.logger.Info("notification delivered",
		zap.String("teacher_id", notification.TeacherID),
		zap.String("exam_id", notification.ExamID))
	return nil
}
