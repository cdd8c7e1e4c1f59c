// Package web renders the ticket detail page.
package web

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"time"

	"github.com/spec-kit/ticket-desk/internal/api/dto"
	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/page"
	"github.com/spec-kit/ticket-desk/internal/resolution"
	"github.com/spec-kit/ticket-desk/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

// StatusOption is one entry of the status selector.
type StatusOption struct {
	Value    domain.TicketStatus
	Selected bool
}

// TicketView is the data the detail template renders.
type TicketView struct {
	AppName         string
	Ticket          *domain.Ticket
	BadgeClass      string
	CreatedText     string
	UpdatedText     string
	Resolution      resolution.Report
	Statuses        []StatusOption
	Comments        []template.HTML
	CanComment      bool
	CanChangeStatus bool
}

// Renderer renders pages in a fixed display zone.
type Renderer struct {
	appName string
	loc     *time.Location
	detail  *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer(appName string, loc *time.Location) (*Renderer, error) {
	if loc == nil {
		loc = time.UTC
	}
	detail, err := template.ParseFS(templateFS, "templates/ticket_detail.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{appName: appName, loc: loc, detail: detail}, nil
}

// NewTicketView prepares detail for rendering.
func (r *Renderer) NewTicketView(detail *service.TicketDetail) (TicketView, error) {
	t := detail.Ticket
	view := TicketView{
		AppName:         r.appName,
		Ticket:          t,
		BadgeClass:      t.Status.BadgeClass(),
		CreatedText:     resolution.FormatRenderedDate(t.CreatedAt, r.loc),
		UpdatedText:     resolution.FormatRenderedDate(t.UpdatedAt, r.loc),
		Resolution:      detail.Resolution,
		CanComment:      detail.CanComment,
		CanChangeStatus: detail.CanChangeStatus,
	}
	for _, s := range domain.KnownStatuses {
		view.Statuses = append(view.Statuses, StatusOption{Value: s, Selected: s == t.Status})
	}
	for i := range detail.Comments {
		c := &detail.Comments[i]
		html, err := page.RenderComment(page.CommentView{
			UserName:  c.UserName,
			CreatedAt: c.CreatedAt.In(r.loc).Format(dto.CommentCreatedLayout),
			Content:   c.Content,
		})
		if err != nil {
			return TicketView{}, err
		}
		view.Comments = append(view.Comments, template.HTML(html))
	}
	return view, nil
}

// RenderTicket writes the detail page for detail to w.
func (r *Renderer) RenderTicket(w io.Writer, detail *service.TicketDetail) error {
	view, err := r.NewTicketView(detail)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := r.detail.Execute(&buf, view); err != nil {
		return err
	}
	_, err = buf.WriteTo(w)
	return err
}
