package domain

import "time"

// TicketStatus is the workflow label shown on a ticket badge.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Abierto"
	TicketStatusInProgress TicketStatus = "En Progreso"
	TicketStatusResolved   TicketStatus = "Resuelto"
	TicketStatusClosed     TicketStatus = "Cerrado"
)

// KnownStatuses lists the labels the status selector offers, in display order.
var KnownStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
}

// IsKnown reports whether s is one of the selector labels.
func (s TicketStatus) IsKnown() bool {
	for _, known := range KnownStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Finished reports whether a resolution time is meaningful for the status.
func (s TicketStatus) Finished() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// BadgeClass returns the colour classes used by the status badge.
func (s TicketStatus) BadgeClass() string {
	switch s {
	case TicketStatusOpen:
		return "bg-yellow-100 text-yellow-800"
	case TicketStatusInProgress:
		return "bg-blue-100 text-blue-800"
	case TicketStatusResolved:
		return "bg-green-100 text-green-800"
	default:
		return "bg-gray-100 text-gray-800"
	}
}

// TicketPriority enumerates urgency labels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "Baja"
	TicketPriorityMedium TicketPriority = "Media"
	TicketPriorityHigh   TicketPriority = "Alta"
)

// IsKnown reports whether p is one of the three priority labels.
func (p TicketPriority) IsKnown() bool {
	return p == TicketPriorityLow || p == TicketPriorityMedium || p == TicketPriorityHigh
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID             int64
	UserID         int64
	AssigneeID     *int64
	Name           string
	Description    string
	FailureDetails *string
	Status         TicketStatus
	Priority       TicketPriority
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// StatusCount is a per-status ticket tally.
type StatusCount struct {
	Status TicketStatus
	Count  int64
}

// UserTicketCount tallies the tickets an active user created and the ones
// assigned to them.
type UserTicketCount struct {
	UserID   int64
	Name     string
	Created  int64
	Assigned int64
}

// Total is created plus assigned; a ticket the user both filed and handles
// counts twice.
func (c UserTicketCount) Total() int64 {
	return c.Created + c.Assigned
}

// NoDepartment labels tickets whose creator has no department.
const NoDepartment = "Sin Departamento"

// DepartmentTicketCount tallies tickets by their creator's department.
type DepartmentTicketCount struct {
	Department string
	Count      int64
}

// TicketMetrics summarises the ticket population.
type TicketMetrics struct {
	Total        int64
	Open         int64
	Closed       int64
	ByStatus     []StatusCount
	ByUser       []UserTicketCount
	ByDepartment []DepartmentTicketCount
}
