package domain

import "time"

// Comment is a message appended to a ticket thread.
type Comment struct {
	ID        int64
	TicketID  int64
	UserID    int64
	UserName  string
	Content   string
	CreatedAt time.Time
}
