package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskStatus string
type TaskPriority string
type TaskCategory string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskReview     TaskStatus = "REVIEW"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskCancelled  TaskStatus = "CANCELLED"

	TaskLow    TaskPriority = "LOW"
	TaskMedium TaskPriority = "MEDIUM"
	TaskHigh   TaskPriority = "HIGH"
	TaskUrgent TaskPriority = "URGENT"

	CategoryStructural TaskCategory = "STRUCTURAL"
	CategoryElectrical TaskCategory = "ELECTRICAL"
	CategoryPlumbing   TaskCategory = "PLUMBING"
	CategoryFinishing  TaskCategory = "FINISHING"
	CategorySafety     TaskCategory = "SAFETY"
	CategoryGeneral    TaskCategory = "GENERAL"
)

var TaskTerminalStatuses = []string{string(TaskCompleted), string(TaskCancelled)}

// TaskStatusOrder is the kanban column order.
var TaskStatusOrder = []string{
	string(TaskPending), string(TaskInProgress), string(TaskReview), string(TaskCompleted), string(TaskCancelled),
}

type Task struct {
	gorm.Model
	Title       string       `gorm:"size:255;not null" json:"titulo"`
	Description string       `gorm:"type:text" json:"descripcion"`
	Status      TaskStatus   `gorm:"type:varchar(20);not null;index" json:"estado"`
	Priority    TaskPriority `gorm:"type:varchar(20);not null" json:"prioridad"`
	Category    TaskCategory `gorm:"type:varchar(20);not null" json:"categoria"`

	ProjectID  uint     `gorm:"index;not null" json:"proyectoId"`
	Project    *Project `json:"proyecto,omitempty"`
	PartidaID  *uint    `json:"partidaId"`
	AssigneeID *uint    `json:"asignadoId"`
	Assignee   *User    `json:"asignado,omitempty"`

	StartDate   *time.Time `json:"fechaInicio"`
	DueDate     *time.Time `json:"fechaLimite"`
	CompletedAt *time.Time `json:"completadoEn"`

	EstimatedHours float64 `json:"horasEstimadas"`
	ActualHours    float64 `json:"horasReales"`
	Avance         float64 `gorm:"not null;default:0" json:"avance"`
}

// SetStatus applies a status change and keeps CompletedAt consistent with it:
// moving to COMPLETED stamps completedAt (or now when nil), any other status
// clears it.
func (t *Task) SetStatus(status TaskStatus, completedAt *time.Time, now time.Time) {
	t.Status = status
	if status != TaskCompleted {
		t.CompletedAt = nil
		return
	}
	if completedAt != nil {
		ts := *completedAt
		t.CompletedAt = &ts
		return
	}
	ts := now
	t.CompletedAt = &ts
}

// Overdue reports whether the task is past its due date and still open.
func (t Task) Overdue(now time.Time) bool {
	if t.DueDate == nil || t.Status == TaskCompleted || t.Status == TaskCancelled {
		return false
	}
	return now.After(*t.DueDate)
}
