package service

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/examdesk/exam-duty-api/internal/models"
	appErrors "github.com/examdesk/exam-duty-api/pkg/errors"
)

// weekdayName resolves an ISO "YYYY-MM-DD" date (RFC 3339 fallback) to its
// weekday name. Unparseable dates report ok=false so callers can treat the
// teacher as unavailable instead of failing the whole run.
func weekdayName(date string) (string, bool) {
	if t, err := time.Parse("2006-01-02", date); err == nil {
		return t.Weekday().String(), true
	}
	if t, err := time.Parse(time.RFC3339, date); err == nil {
		return t.Weekday().String(), true
	}
	return "", false
}

// isAvailable reports whether the teacher works on the exam's calendar date.
func isAvailable(teacher *models.Teacher, date string) bool {
	weekday, ok := weekdayName(date)
	if !ok {
		return false
	}
	return teacher.AvailableOn(weekday)
}

// overlaps applies the half-open interval rule to two "HH:MM" ranges.
// Touching endpoints do not conflict.
func overlaps(start1, end1, start2, end2 string) bool {
	return start1 < end2 && start2 < end1
}

// hasConflict reports whether the teacher already holds a block in another
// same-day exam whose time range overlaps the target exam's range. The target
// exam itself is never part of sameDay.
func hasConflict(teacherID string, target *models.Exam, sameDay []models.Exam) bool {
	for i := range sameDay {
		other := &sameDay[i]
		if !overlaps(target.StartTime, target.EndTime, other.StartTime, other.EndTime) {
			continue
		}
		for _, block := range other.Blocks {
			if block.Invigilator == teacherID {
				return true
			}
		}
	}
	return false
}

// allocationState is the shared mutable context of one allocation run:
// workload counts, per-teacher time-slot sets, per-teacher block sets and the
// block-number pins discovered during the same-day pre-scan. It is owned by
// the orchestrator and passed into each step.
type allocationState struct {
	workload     map[string]int
	timeSlots    map[string]map[string]struct{}
	blockNumbers map[string]map[int]struct{}
	blockPins    map[int]string
	inTargetExam map[string]struct{}
}

func newAllocationState() *allocationState {
	return &allocationState{
		workload:     make(map[string]int),
		timeSlots:    make(map[string]map[string]struct{}),
		blockNumbers: make(map[string]map[int]struct{}),
		blockPins:    make(map[int]string),
		inTargetExam: make(map[string]struct{}),
	}
}

// seed rebuilds the workload picture from the current state of every same-day
// exam plus the target's already-filled blocks. Counts are never carried over
// between runs.
func (s *allocationState) seed(target *models.Exam, sameDay []models.Exam) {
	for i := range sameDay {
		exam := &sameDay[i]
		for _, block := range exam.Blocks {
			if block.Invigilator == "" {
				continue
			}
			s.credit(block.Invigilator, exam.TimeSlot(), block.Number)
			s.blockPins[block.Number] = block.Invigilator
		}
	}
	for _, block := range target.Blocks {
		if block.Invigilator == "" {
			continue
		}
		s.credit(block.Invigilator, target.TimeSlot(), block.Number)
		s.inTargetExam[block.Invigilator] = struct{}{}
	}
}

func (s *allocationState) credit(teacherID, slot string, blockNumber int) {
	s.workload[teacherID]++
	if s.timeSlots[teacherID] == nil {
		s.timeSlots[teacherID] = make(map[string]struct{})
	}
	s.timeSlots[teacherID][slot] = struct{}{}
	if s.blockNumbers[teacherID] == nil {
		s.blockNumbers[teacherID] = make(map[int]struct{})
	}
	s.blockNumbers[teacherID][blockNumber] = struct{}{}
}

// hasSlotConflict reports whether any slot already held by the teacher
// overlaps the candidate range.
func (s *allocationState) hasSlotConflict(teacherID, start, end string) bool {
	for slot := range s.timeSlots[teacherID] {
		slotStart, slotEnd, ok := splitSlot(slot)
		if !ok {
			continue
		}
		if overlaps(start, end, slotStart, slotEnd) {
			return true
		}
	}
	return false
}

func (s *allocationState) releaseSlot(teacherID, slot string) {
	if slots := s.timeSlots[teacherID]; slots != nil {
		delete(slots, slot)
	}
}

func (s *allocationState) registerSlot(teacherID, slot string) {
	if s.timeSlots[teacherID] == nil {
		s.timeSlots[teacherID] = make(map[string]struct{})
	}
	s.timeSlots[teacherID][slot] = struct{}{}
}

func splitSlot(slot string) (string, string, bool) {
	parts := strings.SplitN(slot, "-", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// blockAssigner fills an exam's open blocks greedily by lowest workload.
type blockAssigner struct {
	state     *allocationState
	rng       *rand.Rand
	reusePins bool
}

// assign walks unfilled blocks in ascending block-number order and picks an
// invigilator for each. It mutates both the exam's blocks and the state. A
// block with an empty candidate set aborts the run; earlier picks stay on the
// in-memory exam but nothing has been persisted yet.
func (a *blockAssigner) assign(exam *models.Exam, pool []models.Teacher, sameDay []models.Exam) error {
	// One shuffle per run over the slot-free pool removes the systematic
	// bias toward teachers who sort first.
	shuffled := make([]models.Teacher, 0, len(pool))
	for _, teacher := range pool {
		if a.state.hasSlotConflict(teacher.ID, exam.StartTime, exam.EndTime) {
			continue
		}
		shuffled = append(shuffled, teacher)
	}
	a.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	open := make([]int, 0, len(exam.Blocks))
	for i := range exam.Blocks {
		if exam.Blocks[i].Invigilator == "" {
			open = append(open, i)
		}
	}
	sort.Slice(open, func(i, j int) bool {
		return exam.Blocks[open[i]].Number < exam.Blocks[open[j]].Number
	})

	for _, idx := range open {
		block := &exam.Blocks[idx]

		// A block number resolved by the same-day pre-scan keeps its
		// teacher. Valid only while block numbers denote site-wide room
		// codes; disabled via ALLOCATOR_REUSE_PINNED_BLOCKS.
		if a.reusePins {
			if pinned, ok := a.state.blockPins[block.Number]; ok {
				a.commit(exam, block, pinned)
				continue
			}
		}

		chosen := ""
		best := 0
		for _, teacher := range shuffled {
			if _, taken := a.state.inTargetExam[teacher.ID]; taken {
				continue
			}
			if !isAvailable(&teacher, exam.Date) {
				continue
			}
			if hasConflict(teacher.ID, exam, sameDay) {
				continue
			}
			load := a.state.workload[teacher.ID]
			if chosen == "" || load < best {
				chosen = teacher.ID
				best = load
			}
		}
		if chosen == "" {
			return appErrors.Clone(appErrors.ErrNoEligibleTeacher, fmt.Sprintf("no eligible teacher for block %d", block.Number))
		}
		a.commit(exam, block, chosen)
	}
	return nil
}

func (a *blockAssigner) commit(exam *models.Exam, block *models.Block, teacherID string) {
	block.Invigilator = teacherID
	a.state.credit(teacherID, exam.TimeSlot(), block.Number)
	a.state.inTargetExam[teacherID] = struct{}{}
}

// rebalance performs at most one swap between the most- and least-loaded
// teachers when the skew exceeds one, provided neither side lands in a time
// conflict. With a single exam both blocks share one time range, so the
// conflict guard only bites with mixed-time blocks.
func (a *blockAssigner) rebalance(exam *models.Exam, pool []models.Teacher) bool {
	if len(pool) < 2 {
		return false
	}

	maxID, minID := "", ""
	maxLoad, minLoad := -1, -1
	for _, teacher := range pool {
		load := a.state.workload[teacher.ID]
		if maxID == "" || load > maxLoad {
			maxID, maxLoad = teacher.ID, load
		}
		if minID == "" || load < minLoad {
			minID, minLoad = teacher.ID, load
		}
	}
	if maxID == minID || maxLoad-minLoad <= 1 {
		return false
	}

	var maxBlock, minBlock *models.Block
	for i := range exam.Blocks {
		switch exam.Blocks[i].Invigilator {
		case maxID:
			if maxBlock == nil {
				maxBlock = &exam.Blocks[i]
			}
		case minID:
			if minBlock == nil {
				minBlock = &exam.Blocks[i]
			}
		}
	}
	if maxBlock == nil || minBlock == nil {
		return false
	}

	// Re-check both teachers against the other's slot with their own
	// registration lifted, otherwise identical ranges block every swap.
	slot := exam.TimeSlot()
	a.state.releaseSlot(maxID, slot)
	a.state.releaseSlot(minID, slot)
	conflict := a.state.hasSlotConflict(maxID, exam.StartTime, exam.EndTime) ||
		a.state.hasSlotConflict(minID, exam.StartTime, exam.EndTime)
	a.state.registerSlot(maxID, slot)
	a.state.registerSlot(minID, slot)
	if conflict {
		return false
	}

	maxBlock.Invigilator, minBlock.Invigilator = minID, maxID
	return true
}
