package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-desk/internal/api/dto"
	"github.com/spec-kit/ticket-desk/internal/auth"
	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/resolution"
	"github.com/spec-kit/ticket-desk/internal/service"
	apperrors "github.com/spec-kit/ticket-desk/pkg/util/errorutil"
)

// TicketWorkflows is the ticket service surface the handlers use.
type TicketWorkflows interface {
	CreateTicket(ctx context.Context, user *domain.User, input service.TicketCreateInput) (*domain.Ticket, error)
	AddComment(ctx context.Context, user *domain.User, ticketID int64, content string) (*domain.Comment, error)
	UpdateStatus(ctx context.Context, user *domain.User, ticketID int64, status string) (*domain.Ticket, error)
	Detail(ctx context.Context, user *domain.User, ticketID int64) (*service.TicketDetail, error)
	Resolution(ctx context.Context, user *domain.User, ticketID int64) (resolution.Report, error)
	History(ctx context.Context, user *domain.User, ticketID int64) ([]domain.TicketHistory, error)
	ListByStatus(ctx context.Context, status domain.TicketStatus, limit, offset int) ([]domain.Ticket, error)
	Metrics(ctx context.Context) (domain.TicketMetrics, error)
	Location() *time.Location
}

// PageRenderer renders the ticket detail page.
type PageRenderer interface {
	RenderTicket(w io.Writer, detail *service.TicketDetail) error
}

// TicketsHandler serves the ticket page and its JSON endpoints.
type TicketsHandler struct {
	service  TicketWorkflows
	renderer PageRenderer
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService TicketWorkflows, renderer PageRenderer) *TicketsHandler {
	return &TicketsHandler{service: ticketService, renderer: renderer}
}

// DetailPage GET /tickets/:id.
func (h *TicketsHandler) DetailPage(c *fiber.Ctx) error {
	user, id, err := userAndTicket(c)
	if err != nil {
		return err
	}
	detail, err := h.service.Detail(c.UserContext(), user, id)
	if err != nil {
		return err
	}
	c.Type("html", "utf-8")
	return h.renderer.RenderTicket(c.Response().BodyWriter(), detail)
}

// Create POST /api/tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), principal.User, service.TicketCreateInput{
		Name:           req.Name,
		Description:    req.Description,
		FailureDetails: req.FailureDetails,
		Priority:       req.Priority,
		AssigneeID:     req.AssigneeID,
	})
	if err != nil {
		return err
	}
	c.Location("/tickets/" + strconv.FormatInt(ticket.ID, 10))
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// AddComment POST /api/tickets/:id/comment.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	user, id, err := userAndTicket(c)
	if err != nil {
		return err
	}
	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.service.AddComment(c.UserContext(), user, id, req.Content)
	if err != nil {
		return err
	}
	return c.JSON(dto.CommentResult{
		Success: true,
		Comment: dto.NewCommentResponse(comment, h.service.Location()),
	})
}

// UpdateStatus POST /api/tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	user, id, err := userAndTicket(c)
	if err != nil {
		return err
	}
	var req dto.StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.UpdateStatus(c.UserContext(), user, id, req.Status)
	if err != nil {
		return err
	}
	updated := ticket.UpdatedAt
	return c.JSON(dto.StatusResult{
		Success:    true,
		Status:     ticket.Status,
		BadgeClass: ticket.Status.BadgeClass(),
		UpdatedAt:  &updated,
	})
}

// Resolution GET /api/tickets/:id/resolution.
func (h *TicketsHandler) Resolution(c *fiber.Ctx) error {
	user, id, err := userAndTicket(c)
	if err != nil {
		return err
	}
	report, err := h.service.Resolution(c.UserContext(), user, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}

// History GET /api/tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	user, id, err := userAndTicket(c)
	if err != nil {
		return err
	}
	entries, err := h.service.History(c.UserContext(), user, id)
	if err != nil {
		return err
	}
	items := make([]dto.HistoryEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, dto.NewHistoryEntryResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListByStatus GET /api/tickets?status=.
func (h *TicketsHandler) ListByStatus(c *fiber.Ctx) error {
	status := domain.TicketStatus(c.Query("status", string(domain.TicketStatusOpen)))
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)
	tickets, err := h.service.ListByStatus(c.UserContext(), status, limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Metrics GET /api/tickets/metrics.
func (h *TicketsHandler) Metrics(c *fiber.Ctx) error {
	metrics, err := h.service.Metrics(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMetricsResponse(metrics)})
}

func userAndTicket(c *fiber.Ctx) (*domain.User, int64, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, 0, apperrors.NewUnauthorized("user required")
	}
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return nil, 0, fiber.NewError(http.StatusNotFound, "ticket not found")
	}
	return principal.User, id, nil
}
