package dto

import (
	"time"

	"mecanix/internal/domain/executions"
)

// AssignMechanicRequest sets the mechanic on an execution.
type AssignMechanicRequest struct {
	MechanicID string `json:"mechanicId" binding:"required,uuid"`
}

// CompleteExecutionRequest finishes the work, optionally with notes.
type CompleteExecutionRequest struct {
	Notes string `json:"notes,omitempty"`
}

// ExecutionResponse represents an execution in API responses.
type ExecutionResponse struct {
	ID          string     `json:"id"`
	OrderID     string     `json:"orderId"`
	MechanicID  *string    `json:"mechanicId,omitempty"`
	Status      string     `json:"status"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	Version     int        `json:"version"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// FromExecution converts an execution to its response DTO.
func FromExecution(e *executions.Execution) ExecutionResponse {
	var mechanicID *string
	if e.MechanicID != nil {
		s := e.MechanicID.String()
		mechanicID = &s
	}

	return ExecutionResponse{
		ID:          e.ID.String(),
		OrderID:     e.OrderID.String(),
		MechanicID:  mechanicID,
		Status:      string(e.Status),
		StartedAt:   e.StartedAt,
		CompletedAt: e.CompletedAt,
		Notes:       e.Notes,
		Version:     e.Version,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// FromExecutions converts a slice of executions.
func FromExecutions(items []*executions.Execution) []ExecutionResponse {
	out := make([]ExecutionResponse, 0, len(items))
	for _, e := range items {
		out = append(out, FromExecution(e))
	}
	return out
}
