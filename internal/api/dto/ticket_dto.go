package dto

import (
	"time"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

// CommentCreatedLayout formats comment timestamps in endpoint responses.
const CommentCreatedLayout = "2006-01-02 15:04"

// CommentRequest payload for POST /api/tickets/:id/comment.
type CommentRequest struct {
	Content string `json:"content"`
}

// CreateTicketRequest payload for POST /api/tickets.
type CreateTicketRequest struct {
	Name           string                `json:"name"`
	Description    string                `json:"description"`
	FailureDetails *string               `json:"failure_details"`
	Priority       domain.TicketPriority `json:"priority"`
	AssigneeID     *int64                `json:"assignee_id"`
}

// StatusRequest payload for POST /api/tickets/:id/status.
type StatusRequest struct {
	Status string `json:"status"`
}

// CommentResponse is a stored comment as the ticket page consumes it.
type CommentResponse struct {
	ID        int64  `json:"id"`
	UserName  string `json:"user_name"`
	CreatedAt string `json:"created_at"`
	Content   string `json:"content"`
}

// CommentResult is the body of the comment endpoint.
type CommentResult struct {
	Success bool             `json:"success"`
	Comment *CommentResponse `json:"comment,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// StatusResult is the body of the status endpoint.
type StatusResult struct {
	Success    bool                `json:"success"`
	Status     domain.TicketStatus `json:"status,omitempty"`
	BadgeClass string              `json:"badge_class,omitempty"`
	UpdatedAt  *time.Time          `json:"updated_at,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// StatusCountResponse is one row of the metrics breakdown.
type StatusCountResponse struct {
	Status domain.TicketStatus `json:"status"`
	Count  int64               `json:"count"`
}

// UserCountResponse is one row of the per-user breakdown.
type UserCountResponse struct {
	UserID   int64  `json:"user_id"`
	Name     string `json:"name"`
	Created  int64  `json:"created"`
	Assigned int64  `json:"assigned"`
	Total    int64  `json:"total"`
}

// DepartmentCountResponse is one row of the per-department breakdown.
type DepartmentCountResponse struct {
	Department string `json:"department"`
	Count      int64  `json:"count"`
}

// MetricsResponse summarises tickets by status, user and department.
type MetricsResponse struct {
	Total        int64                     `json:"total"`
	Open         int64                     `json:"open"`
	Closed       int64                     `json:"closed"`
	ByStatus     []StatusCountResponse     `json:"by_status"`
	ByUser       []UserCountResponse       `json:"by_user"`
	ByDepartment []DepartmentCountResponse `json:"by_department"`
}

// TicketSummary response.
type TicketSummary struct {
	ID         int64                 `json:"id"`
	Name       string                `json:"name"`
	Status     domain.TicketStatus   `json:"status"`
	Priority   domain.TicketPriority `json:"priority"`
	AssigneeID *int64                `json:"assignee_id,omitempty"`
	CreatedBy  string                `json:"created_by"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// HistoryEntryResponse is one audit trail entry.
type HistoryEntryResponse struct {
	ID          int64                   `json:"id"`
	ChangedByID int64                   `json:"changed_by_id"`
	ChangeType  domain.TicketChangeType `json:"change_type"`
	OldValue    map[string]any          `json:"old_value,omitempty"`
	NewValue    map[string]any          `json:"new_value,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}

// NewCommentResponse renders c with its timestamp in loc.
func NewCommentResponse(c *domain.Comment, loc *time.Location) *CommentResponse {
	if loc == nil {
		loc = time.UTC
	}
	return &CommentResponse{
		ID:        c.ID,
		UserName:  c.UserName,
		CreatedAt: c.CreatedAt.In(loc).Format(CommentCreatedLayout),
		Content:   c.Content,
	}
}

// NewMetricsResponse maps domain metrics.
func NewMetricsResponse(m domain.TicketMetrics) MetricsResponse {
	out := MetricsResponse{
		Total:        m.Total,
		Open:         m.Open,
		Closed:       m.Closed,
		ByStatus:     make([]StatusCountResponse, 0, len(m.ByStatus)),
		ByUser:       make([]UserCountResponse, 0, len(m.ByUser)),
		ByDepartment: make([]DepartmentCountResponse, 0, len(m.ByDepartment)),
	}
	for _, sc := range m.ByStatus {
		out.ByStatus = append(out.ByStatus, StatusCountResponse{Status: sc.Status, Count: sc.Count})
	}
	for _, uc := range m.ByUser {
		out.ByUser = append(out.ByUser, UserCountResponse{
			UserID:   uc.UserID,
			Name:     uc.Name,
			Created:  uc.Created,
			Assigned: uc.Assigned,
			Total:    uc.Total(),
		})
	}
	for _, dc := range m.ByDepartment {
		out.ByDepartment = append(out.ByDepartment, DepartmentCountResponse{Department: dc.Department, Count: dc.Count})
	}
	return out
}

// NewTicketSummary maps a ticket.
func NewTicketSummary(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:         t.ID,
		Name:       t.Name,
		Status:     t.Status,
		Priority:   t.Priority,
		AssigneeID: t.AssigneeID,
		CreatedBy:  t.CreatedBy,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

// NewHistoryEntryResponse maps an audit entry.
func NewHistoryEntryResponse(h *domain.TicketHistory) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:          h.ID,
		ChangedByID: h.ChangedByID,
		ChangeType:  h.ChangeType,
		OldValue:    h.OldValue,
		NewValue:    h.NewValue,
		CreatedAt:   h.CreatedAt,
	}
}
