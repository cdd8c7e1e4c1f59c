package resolution

// Report is a Result attached to the ticket it was computed for. It is the
// shape served by the resolution endpoint and kept in the cache.
type Report struct {
	TicketID  int64      `json:"ticket_id" yaml:"ticket_id"`
	Status    string     `json:"status" yaml:"status"`
	Outcome   Outcome    `json:"outcome" yaml:"outcome"`
	Text      string     `json:"text" yaml:"text"`
	Breakdown *Breakdown `json:"breakdown,omitempty" yaml:"breakdown,omitempty"`
}

// Report attaches r to a ticket.
func (r Result) Report(ticketID int64, status string) Report {
	return Report{
		TicketID:  ticketID,
		Status:    status,
		Outcome:   r.Outcome,
		Text:      r.Text,
		Breakdown: r.Breakdown,
	}
}
