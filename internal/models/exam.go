package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ExamStatus tracks an exam's lifecycle.
type ExamStatus string

const (
	ExamStatusScheduled  ExamStatus = "scheduled"
	ExamStatusInProgress ExamStatus = "in-progress"
	ExamStatusCompleted  ExamStatus = "completed"
)

// BlockStatus tracks a single block's lifecycle.
type BlockStatus string

const (
	BlockStatusPending   BlockStatus = "pending"
	BlockStatusCompleted BlockStatus = "completed"
)

// Block is a physical location within an exam requiring exactly one invigilator.
// An empty Invigilator means the block is unfilled.
type Block struct {
	Number      int         `json:"number"`
	Capacity    int         `json:"capacity"`
	Location    string      `json:"location"`
	Invigilator string      `json:"invigilator,omitempty"`
	Status      BlockStatus `json:"status"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// BlockList stores an exam's blocks as a single JSONB column so the whole
// list persists in one row update.
type BlockList []Block

// Value implements driver.Valuer for JSONB storage.
func (b BlockList) Value() (driver.Value, error) {
	if b == nil {
		return []byte("[]"), nil
	}
	payload, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshal blocks: %w", err)
	}
	return payload, nil
}

// Scan implements sql.Scanner for JSONB retrieval.
func (b *BlockList) Scan(src interface{}) error {
	if src == nil {
		*b = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported blocks column type %T", src)
	}
	return json.Unmarshal(raw, b)
}

// Exam represents a scheduled examination with its invigilation blocks.
// Date is an ISO "YYYY-MM-DD" string; times are "HH:MM" wall-clock strings
// comparable lexicographically within a day.
type Exam struct {
	ID        string     `db:"id" json:"id"`
	ExamName  string     `db:"exam_name" json:"exam_name"`
	Subject   string     `db:"subject" json:"subject"`
	Branch    string     `db:"branch" json:"branch"`
	Semester  int        `db:"semester" json:"semester"`
	Date      string     `db:"exam_date" json:"date"`
	StartTime string     `db:"start_time" json:"start_time"`
	EndTime   string     `db:"end_time" json:"end_time"`
	Status    ExamStatus `db:"status" json:"status"`
	Blocks    BlockList  `db:"blocks" json:"blocks"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// TimeSlot returns the "start-end" pair identifying the exam's wall-clock range.
func (e *Exam) TimeSlot() string {
	return e.StartTime + "-" + e.EndTime
}

// FindBlock returns the block with the given number, or nil.
func (e *Exam) FindBlock(number int) *Block {
	for i := range e.Blocks {
		if e.Blocks[i].Number == number {
			return &e.Blocks[i]
		}
	}
	return nil
}

// ExamFilter describes query params for listing exams.
type ExamFilter struct {
	Branch   string
	Semester int
	Date     string
	ExamName string
	Page     int
	PageSize int
}
