package web

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/page"
	"github.com/spec-kit/ticket-desk/internal/resolution"
	"github.com/spec-kit/ticket-desk/internal/service"
)

func sampleDetail() *service.TicketDetail {
	created := time.Date(2024, 3, 4, 12, 30, 0, 0, time.UTC)
	return &service.TicketDetail{
		Ticket: &domain.Ticket{
			ID:          31,
			Name:        "Servidor <lento>",
			Description: "No responde",
			Status:      domain.TicketStatusResolved,
			Priority:    domain.TicketPriorityHigh,
			CreatedAt:   created,
			UpdatedAt:   created.Add(48*time.Hour + time.Minute),
		},
		Comments: []domain.Comment{
			{ID: 2, UserName: "Ana", Content: "<b>listo</b>", CreatedAt: created.Add(2 * time.Hour)},
			{ID: 1, UserName: "Beto", Content: "revisando", CreatedAt: created.Add(time.Hour)},
		},
		Resolution:      resolution.Report{TicketID: 31, Status: "Resuelto", Text: "2 días y 1 minuto"},
		CanComment:      true,
		CanChangeStatus: true,
	}
}

func render(t *testing.T, loc *time.Location, detail *service.TicketDetail) string {
	t.Helper()
	r, err := NewRenderer("ticket-desk", loc)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	var buf bytes.Buffer
	if err := r.RenderTicket(&buf, detail); err != nil {
		t.Fatalf("RenderTicket: %v", err)
	}
	return buf.String()
}

func TestRenderedPageSatisfiesPageDriver(t *testing.T) {
	loc := time.FixedZone("CLT", -3*60*60)
	html := render(t, loc, sampleDetail())

	p, err := page.Parse(strings.NewReader(html), loc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	snap := p.Snapshot()
	if snap.Status != "Resuelto" {
		t.Fatalf("status = %q", snap.Status)
	}
	if snap.CreatedText != "04/03/2024 09:30" || snap.UpdatedText != "06/03/2024 09:31" {
		t.Fatalf("dates = %q / %q", snap.CreatedText, snap.UpdatedText)
	}
	res, ok := p.RefreshResolution()
	if !ok || res.Text != "2 días y 1 minuto" {
		t.Fatalf("page computes %q (%v)", res.Text, ok)
	}

	controls := p.StatusControls()
	if len(controls) != 1 || controls[0].TicketID != 31 || controls[0].Value != "Resuelto" {
		t.Fatalf("status controls = %+v", controls)
	}
	form, ok := p.CommentForm()
	if !ok || form.TicketID != 31 {
		t.Fatalf("comment form = %+v (%v)", form, ok)
	}
}

func TestRenderEscapesUserContent(t *testing.T) {
	html := render(t, time.UTC, sampleDetail())
	if strings.Contains(html, "<b>listo</b>") || strings.Contains(html, "<lento>") {
		t.Fatalf("user content not escaped")
	}
	if strings.Index(html, "listo") > strings.Index(html, "revisando") {
		t.Fatalf("comments not rendered in the given order")
	}
}

func TestRenderHidesControlsWithoutPermission(t *testing.T) {
	detail := sampleDetail()
	detail.CanComment = false
	detail.CanChangeStatus = false
	html := render(t, time.UTC, detail)
	if strings.Contains(html, `id="comment-form"`) || strings.Contains(html, `name="estado"`) {
		t.Fatalf("controls rendered for a read-only viewer")
	}
	if !strings.Contains(html, `id="comments-list"`) || !strings.Contains(html, `id="tiempo-resolucion"`) {
		t.Fatalf("read-only elements missing")
	}
}
