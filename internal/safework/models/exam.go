package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ExamKind is the occasion of an occupational health exam.
type ExamKind string

const (
	ExamAdmission        ExamKind = "ADMISSION"
	ExamPeriodic         ExamKind = "PERIODIC"
	ExamReturnToWork     ExamKind = "RETURN_TO_WORK"
	ExamChangeOfFunction ExamKind = "CHANGE_OF_FUNCTION"
	ExamDismissal        ExamKind = "DISMISSAL"
)

// ExamResult is the fitness verdict of an exam.
type ExamResult string

const (
	ResultFit   ExamResult = "FIT"
	ResultUnfit ExamResult = "UNFIT"
)

// HealthExam is an occupational health exam record (ASO) of one employee.
type HealthExam struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	EmployeeID        uuid.UUID  `gorm:"type:uuid" json:"employee_id"`
	Kind              ExamKind   `json:"kind" validate:"required,oneof=ADMISSION PERIODIC RETURN_TO_WORK CHANGE_OF_FUNCTION DISMISSAL"`
	ExamDate          time.Time  `json:"exam_date"`
	Result            ExamResult `json:"result" validate:"required,oneof=FIT UNFIT"`
	ValidUntil        *time.Time `json:"valid_until,omitempty"`
	PhysicianName     string     `json:"physician_name,omitempty" validate:"max=150"`
	PhysicianRegistry string     `json:"physician_registry,omitempty" validate:"max=30"`
	Notes             string     `json:"notes,omitempty" validate:"max=2000"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (HealthExam) TableName() string { return "health_exams" }

func (h *HealthExam) Validate() error {
	h.Kind = ExamKind(strings.ToUpper(strings.TrimSpace(string(h.Kind))))
	h.Result = ExamResult(strings.ToUpper(strings.TrimSpace(string(h.Result))))
	v := validateStruct(h)
	if h.EmployeeID == uuid.Nil {
		v.Add("employee_id", "this field is required")
	}
	if h.ExamDate.IsZero() {
		v.Add("exam_date", "this field is required")
	}
	if h.ValidUntil != nil && h.ValidUntil.Before(h.ExamDate) {
		v.Add("valid_until", "value must not precede exam_date")
	}
	return v.OrNil()
}

// Expired reports whether the exam is no longer valid at t.
func (h *HealthExam) Expired(t time.Time) bool {
	return h.ValidUntil != nil && t.After(*h.ValidUntil)
}

// HealthExamPatch is a partial update of an exam record. The owning
// employee cannot be changed.
type HealthExamPatch struct {
	Kind              *ExamKind   `json:"kind,omitempty"`
	ExamDate          *time.Time  `json:"exam_date,omitempty"`
	Result            *ExamResult `json:"result,omitempty"`
	ValidUntil        *time.Time  `json:"valid_until,omitempty"`
	PhysicianName     *string     `json:"physician_name,omitempty"`
	PhysicianRegistry *string     `json:"physician_registry,omitempty"`
	Notes             *string     `json:"notes,omitempty"`
}

func (p HealthExamPatch) Apply(h *HealthExam) {
	setIf(&h.Kind, p.Kind)
	setIf(&h.ExamDate, p.ExamDate)
	setIf(&h.Result, p.Result)
	setIf(&h.PhysicianName, p.PhysicianName)
	setIf(&h.PhysicianRegistry, p.PhysicianRegistry)
	setIf(&h.Notes, p.Notes)
	if p.ValidUntil != nil {
		h.ValidUntil = p.ValidUntil
	}
}
