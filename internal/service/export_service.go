package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/examdesk/exam-duty-api/internal/models"
	appErrors "github.com/examdesk/exam-duty-api/pkg/errors"
	"github.com/examdesk/exam-duty-api/pkg/export"
)

type examReader interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
}

type teacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// ExportService renders an exam's duty roster as CSV or PDF.
type ExportService struct {
	exams    examReader
	teachers teacherReader
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(exams examReader, teachers teacherReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		exams:    exams,
		teachers: teachers,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

var rosterHeaders = []string{"Block", "Location", "Capacity", "Invigilator", "Time", "Status"}

// DutyRoster renders the exam's block assignments in the requested format.
// Supported formats are "csv" and "pdf".
func (s *ExportService) DutyRoster(ctx context.Context, examID, format string) ([]byte, string, error) {
	exam, err := s.exams.FindByID(ctx, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}

	dataset := export.Dataset{Headers: rosterHeaders}
	for _, block := range exam.Blocks {
		name := "-"
		if block.Invigilator != "" {
			if teacher, err := s.teachers.FindByID(ctx, block.Invigilator); err == nil {
				name = teacher.FullName
			} else {
				name = block.Invigilator
			}
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Block":       strconv.Itoa(block.Number),
			"Location":    block.Location,
			"Capacity":    strconv.Itoa(block.Capacity),
			"Invigilator": name,
			"Time":        exam.TimeSlot(),
			"Status":      string(block.Status),
		})
	}

	title := fmt.Sprintf("%s duty roster %s", exam.Subject, exam.Date)
	switch format {
	case "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}
