package dto

// CreateExamRequest captures the payload for creating an exam.
type CreateExamRequest struct {
	ExamName  string `json:"examName" validate:"required"`
	Subject   string `json:"subject" validate:"required"`
	Branch    string `json:"branch" validate:"required"`
	Semester  int    `json:"semester" validate:"required,min=1,max=8"`
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
}

// UpdateExamRequest captures mutable exam fields.
type UpdateExamRequest struct {
	ExamName  *string `json:"examName"`
	Subject   *string `json:"subject"`
	Date      *string `json:"date"`
	StartTime *string `json:"startTime"`
	EndTime   *string `json:"endTime"`
	Status    *string `json:"status" validate:"omitempty,oneof=scheduled in-progress completed"`
}

// AddBlockRequest seeds a new block on an exam.
type AddBlockRequest struct {
	Number   int    `json:"number" validate:"required,min=1"`
	Capacity int    `json:"capacity" validate:"required,min=1"`
	Location string `json:"location" validate:"required"`
}

// UpdateBlockRequest edits an existing block outside the auto-allocation path.
type UpdateBlockRequest struct {
	Capacity *int    `json:"capacity" validate:"omitempty,min=0"`
	Location *string `json:"location"`
	Status   *string `json:"status" validate:"omitempty,oneof=pending completed"`
}

// AssignInvigilatorRequest manually pins one teacher onto one block.
type AssignInvigilatorRequest struct {
	InvigilatorID string `json:"invigilatorId" validate:"required"`
}
