package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/examdesk/exam-duty-api/internal/dto"
	"github.com/examdesk/exam-duty-api/internal/models"
	"github.com/examdesk/exam-duty-api/pkg/config"
	appErrors "github.com/examdesk/exam-duty-api/pkg/errors"
)

type allocationExamStore interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	ListByDateExcluding(ctx context.Context, date, excludeID string) ([]models.Exam, error)
	UpdateBlocks(ctx context.Context, examID string, blocks models.BlockList) error
}

type allocationTeacherDirectory interface {
	ListInvigilators(ctx context.Context) ([]models.Teacher, error)
}

type assignmentNotifier interface {
	EmitAssignment(ctx context.Context, teacherID string, exam *models.Exam, block models.Block) error
}

// AllocationService runs the invigilator auto-allocation for one exam at a
// time: availability and conflict filtering, lowest-workload greedy picks with
// randomized tie-breaking, a single rebalancing swap, then an atomic persist
// of the full block list.
type AllocationService struct {
	exams    allocationExamStore
	teachers allocationTeacherDirectory
	notifier assignmentNotifier
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      config.AllocatorConfig

	rngMu sync.Mutex
	rng   *rand.Rand

	// Runs touching the same exam date are serialized so two concurrent
	// allocations cannot double-book a teacher into overlapping ranges.
	locksMu   sync.Mutex
	dateLocks map[string]*sync.Mutex
}

// NewAllocationService wires the allocation dependencies.
func NewAllocationService(
	exams allocationExamStore,
	teachers allocationTeacherDirectory,
	notifier assignmentNotifier,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg config.AllocatorConfig,
) *AllocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &AllocationService{
		exams:     exams,
		teachers:  teachers,
		notifier:  notifier,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(seed)),
		dateLocks: make(map[string]*sync.Mutex),
	}
}

// Allocate fills the remaining blocks of the exam and returns the updated exam
// with per-teacher workload statistics.
func (s *AllocationService) Allocate(ctx context.Context, examID string) (*dto.AllocationResponse, error) {
	probe, err := s.exams.FindByID(ctx, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	if len(probe.Blocks) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoBlocks, fmt.Sprintf("exam %s has no blocks to allocate", examID))
	}

	unlock := s.lockDate(probe.Date)
	defer unlock()

	// Re-read inside the date lock so the snapshot reflects any run that
	// finished while we waited.
	exam, err := s.exams.FindByID(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}

	pool, err := s.teachers.ListInvigilators(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher directory")
	}
	sameDay, err := s.exams.ListByDateExcluding(ctx, exam.Date, exam.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load same-day exams")
	}

	state := newAllocationState()
	state.seed(exam, sameDay)

	assigner := &blockAssigner{
		state:     state,
		rng:       s.runRand(),
		reusePins: s.cfg.ReusePinnedBlocks,
	}
	if err := assigner.assign(exam, pool, sameDay); err != nil {
		if s.metrics != nil {
			s.metrics.RecordAllocation(false, false)
		}
		return nil, err
	}

	swapped := assigner.rebalance(exam, pool)

	if err := s.exams.UpdateBlocks(ctx, exam.ID, exam.Blocks); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist block assignments")
	}

	if s.notifier != nil {
		for _, block := range exam.Blocks {
			if block.Invigilator == "" {
				continue
			}
			if err := s.notifier.EmitAssignment(ctx, block.Invigilator, exam, block); err != nil {
				s.logger.Warn("assignment notification failed",
					zap.String("exam_id", exam.ID),
					zap.String("teacher_id", block.Invigilator),
					zap.Int("block", block.Number),
					zap.Error(err))
			}
		}
	}

	if s.metrics != nil {
		s.metrics.RecordAllocation(true, swapped)
	}
	s.logger.Info("allocation completed",
		zap.String("exam_id", exam.ID),
		zap.String("date", exam.Date),
		zap.Int("blocks", len(exam.Blocks)),
		zap.Bool("rebalanced", swapped))

	return s.buildResponse(exam, pool, state), nil
}

func (s *AllocationService) buildResponse(exam *models.Exam, pool []models.Teacher, state *allocationState) *dto.AllocationResponse {
	stats := make([]dto.WorkloadStat, 0, len(pool))
	maxLoad, minLoad := 0, 0
	for i, teacher := range pool {
		load := state.workload[teacher.ID]
		_, allocated := state.inTargetExam[teacher.ID]
		stats = append(stats, dto.WorkloadStat{
			TeacherID:     teacher.ID,
			TeacherName:   teacher.FullName,
			TotalWorkload: load,
			TimeSlots:     len(state.timeSlots[teacher.ID]),
			IsAllocated:   allocated,
		})
		if i == 0 {
			maxLoad, minLoad = load, load
			continue
		}
		if load > maxLoad {
			maxLoad = load
		}
		if load < minLoad {
			minLoad = load
		}
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].TotalWorkload == stats[j].TotalWorkload {
			return stats[i].TeacherName < stats[j].TeacherName
		}
		return stats[i].TotalWorkload > stats[j].TotalWorkload
	})

	return &dto.AllocationResponse{
		Exam:          exam,
		WorkloadStats: stats,
		WorkloadBalance: dto.WorkloadBalance{
			MaxWorkload: maxLoad,
			MinWorkload: minLoad,
			Difference:  maxLoad - minLoad,
		},
	}
}

// runRand derives an independent deterministic source for one run so
// concurrent runs for different dates do not interleave draws.
func (s *AllocationService) runRand() *rand.Rand {
	s.rngMu.Lock()
	seed := s.rng.Int63()
	s.rngMu.Unlock()
	return rand.New(rand.NewSource(seed))
}

func (s *AllocationService) lockDate(date string) func() {
	s.locksMu.Lock()
	mu, ok := s.dateLocks[date]
	if !ok {
		mu = &sync.Mutex{}
		s.dateLocks[date] = mu
	}
	s.locksMu.Unlock()
	mu.Lock()
	return mu.Unlock
}
