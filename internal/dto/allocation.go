package dto

import "github.com/examdesk/exam-duty-api/internal/models"

// WorkloadStat summarises one teacher's duty load after an allocation run.
// TotalWorkload counts blocks held across all exams on the target date;
// TimeSlots counts distinct start-end ranges occupied.
type WorkloadStat struct {
	TeacherID     string `json:"teacherId"`
	TeacherName   string `json:"teacherName"`
	TotalWorkload int    `json:"totalWorkload"`
	TimeSlots     int    `json:"timeSlots"`
	IsAllocated   bool   `json:"isAllocated"`
}

// WorkloadBalance reports the spread across the considered teacher pool.
type WorkloadBalance struct {
	MaxWorkload int `json:"maxWorkload"`
	MinWorkload int `json:"minWorkload"`
	Difference  int `json:"difference"`
}

// AllocationResponse is the orchestrator result for one exam.
type AllocationResponse struct {
	Exam            *models.Exam    `json:"exam"`
	WorkloadStats   []WorkloadStat  `json:"workloadStats"`
	WorkloadBalance WorkloadBalance `json:"workloadBalance"`
}
