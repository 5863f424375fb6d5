package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/examdesk/exam-duty-api/internal/models"
)

const examColumns = "id, exam_name, subject, branch, semester, exam_date::text AS exam_date, start_time, end_time, status, blocks, created_at, updated_at"

// ExamRepository manages persistence for exams and their block lists.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository constructs an ExamRepository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

// FindByID fetches an exam with its blocks.
func (r *ExamRepository) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	query := fmt.Sprintf("SELECT %s FROM exams WHERE id = $1", examColumns)
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, query, id); err != nil {
		return nil, err
	}
	return &exam, nil
}

// ListByDateExcluding returns every exam on the given date except the one named,
// ordered by start time. This is the same-day snapshot the allocator scans.
func (r *ExamRepository) ListByDateExcluding(ctx context.Context, date, excludeID string) ([]models.Exam, error) {
	query := fmt.Sprintf("SELECT %s FROM exams WHERE exam_date = $1 AND id <> $2 ORDER BY start_time ASC", examColumns)
	var exams []models.Exam
	if err := r.db.SelectContext(ctx, &exams, query, date, excludeID); err != nil {
		return nil, fmt.Errorf("list same-day exams: %w", err)
	}
	return exams, nil
}

// List returns exams matching filters along with total count.
func (r *ExamRepository) List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error) {
	base := "FROM exams WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Branch != "" {
		conditions = append(conditions, fmt.Sprintf("branch = $%d", len(args)+1))
		args = append(args, filter.Branch)
	}
	if filter.Semester > 0 {
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.Date != "" {
		conditions = append(conditions, fmt.Sprintf("exam_date = $%d", len(args)+1))
		args = append(args, filter.Date)
	}
	if filter.ExamName != "" {
		conditions = append(conditions, fmt.Sprintf("exam_name = $%d", len(args)+1))
		args = append(args, filter.ExamName)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY exam_date ASC, start_time ASC LIMIT %d OFFSET %d", examColumns, base, size, offset)
	var exams []models.Exam
	if err := r.db.SelectContext(ctx, &exams, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list exams: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count exams: %w", err)
	}

	return exams, total, nil
}

// Create inserts a new exam record.
func (r *ExamRepository) Create(ctx context.Context, exam *models.Exam) error {
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	if exam.Status == "" {
		exam.Status = models.ExamStatusScheduled
	}
	if exam.Blocks == nil {
		exam.Blocks = models.BlockList{}
	}
	now := time.Now().UTC()
	if exam.CreatedAt.IsZero() {
		exam.CreatedAt = now
	}
	exam.UpdatedAt = now

	const query = `INSERT INTO exams (id, exam_name, subject, branch, semester, exam_date, start_time, end_time, status, blocks, created_at, updated_at)
		VALUES (:id, :exam_name, :subject, :branch, :semester, :exam_date, :start_time, :end_time, :status, :blocks, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
		return fmt.Errorf("create exam: %w", err)
	}
	return nil
}

// Update modifies an existing exam record including its block list.
func (r *ExamRepository) Update(ctx context.Context, exam *models.Exam) error {
	exam.UpdatedAt = time.Now().UTC()
	const query = `UPDATE exams SET exam_name = :exam_name, subject = :subject, branch = :branch, semester = :semester,
		exam_date = :exam_date, start_time = :start_time, end_time = :end_time, status = :status, blocks = :blocks, updated_at = :updated_at
		WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
		return fmt.Errorf("update exam: %w", err)
	}
	return nil
}

// UpdateBlocks persists the full block list for one exam in a single row write,
// so a crash leaves either the prior state or the fully-updated list.
func (r *ExamRepository) UpdateBlocks(ctx context.Context, examID string, blocks models.BlockList) error {
	const query = `UPDATE exams SET blocks = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, examID, blocks, time.Now().UTC()); err != nil {
		return fmt.Errorf("update exam blocks: %w", err)
	}
	return nil
}

// Delete removes an exam.
func (r *ExamRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM exams WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	return nil
}
