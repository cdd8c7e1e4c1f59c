package page

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-desk/internal/client"
)

// ErrNoCommentForm is returned when a comment is submitted on a page that
// does not render #comment-form.
var ErrNoCommentForm = errors.New("page has no comment form")

// TicketAPI is the server surface the page talks to.
type TicketAPI interface {
	AddComment(ctx context.Context, ticketID int64, content string) (*client.Comment, error)
	UpdateStatus(ctx context.Context, ticketID int64, status string) error
}

// Driver replays the page's interactive behaviour against a TicketAPI.
type Driver struct {
	page   *Page
	api    TicketAPI
	logger *zap.Logger
}

// NewDriver binds a page to an API.
func NewDriver(p *Page, api TicketAPI, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{page: p, api: api, logger: logger}
}

// Page returns the driven page.
func (d *Driver) Page() *Page {
	return d.page
}

// Load runs what the page does on load.
func (d *Driver) Load() {
	d.page.RefreshResolution()
}

// SubmitComment posts content through the comment form. On success the
// comment is prepended to the list and the textarea cleared; on failure the
// error is returned to the caller and the page is left unchanged.
func (d *Driver) SubmitComment(ctx context.Context, content string) (*client.Comment, error) {
	form, ok := d.page.CommentForm()
	if !ok {
		return nil, ErrNoCommentForm
	}
	if strings.TrimSpace(content) == "" {
		return nil, client.ErrEmptyComment
	}
	form.SetContent(content)

	comment, err := d.api.AddComment(ctx, form.TicketID, content)
	if err != nil {
		return nil, err
	}
	if _, err := d.page.PrependComment(CommentView{
		UserName:  comment.UserName,
		CreatedAt: comment.CreatedAt,
		Content:   comment.Content,
	}); err != nil {
		return nil, err
	}
	form.SetContent("")
	return comment, nil
}

// ChangeStatus mirrors a change of a status select: the selection moves and
// the resolution time is recomputed immediately, then the change is sent to
// the server. A successful update refreshes the badge and recomputes again.
// Server failures are logged and otherwise ignored; the return value only
// reports whether the server accepted the change.
func (d *Driver) ChangeStatus(ctx context.Context, ticketID int64, status string) bool {
	d.page.SelectStatusValue(ticketID, status)
	d.page.RefreshResolution()

	if err := d.api.UpdateStatus(ctx, ticketID, status); err != nil {
		d.logger.Warn("status update failed",
			zap.Int64("ticket_id", ticketID),
			zap.String("status", status),
			zap.Error(err))
		return false
	}
	d.page.ApplyStatus(ticketID, status)
	d.page.RefreshResolution()
	return true
}
