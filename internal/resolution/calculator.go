// Package resolution computes the "tiempo de resolución" shown on ticket
// pages: the elapsed time between a ticket's creation and its last update,
// reported only once the ticket is resolved or closed.
package resolution

import (
	"strings"
	"time"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

// Texts displayed in place of a duration.
const (
	TextStatusUnavailable = "Estado no disponible"
	TextNotApplicable     = "No aplica"
	TextDatesUnavailable  = "Fechas no disponibles"
	TextNotAvailable      = "No disponible"
	TextCalculationError  = "Error en cálculo"
)

// Outcome classifies how a Result was reached.
type Outcome string

const (
	OutcomeDuration          Outcome = "duration"
	OutcomeStatusUnavailable Outcome = "status_unavailable"
	OutcomeNotApplicable     Outcome = "not_applicable"
	OutcomeDatesUnavailable  Outcome = "dates_unavailable"
	OutcomeNotAvailable      Outcome = "not_available"
	OutcomeError             Outcome = "error"
)

// Snapshot is the read model a calculation runs on: the ticket status and
// the two rendered timestamps, as found on the page.
type Snapshot struct {
	Status      string `json:"status" yaml:"status"`
	CreatedText string `json:"created" yaml:"created"`
	UpdatedText string `json:"updated" yaml:"updated"`
}

// Result is the text to display plus the structured value behind it.
type Result struct {
	Outcome   Outcome    `json:"outcome" yaml:"outcome"`
	Text      string     `json:"text" yaml:"text"`
	Breakdown *Breakdown `json:"breakdown,omitempty" yaml:"breakdown,omitempty"`
	Err       error      `json:"-" yaml:"-"`
}

// Calculate runs the status gate, reads both dates in loc and formats the
// elapsed time. It never fails; problems are reported through Outcome.
func Calculate(snap Snapshot, loc *time.Location) Result {
	status := strings.TrimSpace(snap.Status)
	if status == "" {
		return Result{Outcome: OutcomeStatusUnavailable, Text: TextStatusUnavailable}
	}
	if !domain.TicketStatus(status).Finished() {
		return Result{Outcome: OutcomeNotApplicable, Text: TextNotApplicable}
	}

	createdText := strings.TrimSpace(snap.CreatedText)
	updatedText := strings.TrimSpace(snap.UpdatedText)
	if createdText == "" || updatedText == "" {
		return Result{Outcome: OutcomeDatesUnavailable, Text: TextDatesUnavailable}
	}

	created, err := ParseRenderedDate(createdText, loc)
	if err != nil {
		return Result{Outcome: OutcomeError, Text: TextCalculationError, Err: err}
	}
	updated, err := ParseRenderedDate(updatedText, loc)
	if err != nil {
		return Result{Outcome: OutcomeError, Text: TextCalculationError, Err: err}
	}

	return FromInterval(created, updated)
}

// FromInterval formats the span between two instants already in hand. The
// span is taken in milliseconds so that it is not capped like time.Duration.
func FromInterval(created, updated time.Time) Result {
	ms := updated.UnixMilli() - created.UnixMilli()
	if ms <= 0 {
		return Result{Outcome: OutcomeNotAvailable, Text: TextNotAvailable}
	}
	breakdown := Decompose(ms)
	return Result{Outcome: OutcomeDuration, Text: breakdown.String(), Breakdown: &breakdown}
}
