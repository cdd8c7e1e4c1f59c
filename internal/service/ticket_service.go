package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/events"
	"github.com/spec-kit/ticket-desk/internal/repository"
	"github.com/spec-kit/ticket-desk/internal/resolution"
	apperrors "github.com/spec-kit/ticket-desk/pkg/util/errorutil"
)

// Messages returned to the ticket page.
const (
	MsgContentRequired   = "Contenido requerido"
	MsgInvalidStatus     = "Estado inválido"
	MsgNoCommentAccess   = "No tiene permisos para comentar este ticket"
	MsgNoStatusAccess    = "No tiene permisos para cambiar el estado"
	MsgNoTicketAccess    = "No tiene permisos para ver este ticket"
	MsgNoCreateAccess    = "No tiene permisos para crear tickets"
	MsgNoAssignAccess    = "No tiene permisos para asignar tickets"
	MsgNameLength        = "El nombre debe tener entre 5 y 200 caracteres"
	MsgDescriptionNeeded = "Descripción requerida"
	MsgInvalidPriority   = "Prioridad inválida"
	MsgInvalidAssignee   = "Usuario asignado inválido"
	commentPreviewLength = 80
	minTicketName        = 5
	maxTicketName        = 200
)

// ResolutionCache stores computed resolution reports.
type ResolutionCache interface {
	Get(ctx context.Context, ticketID int64) (*resolution.Report, bool, error)
	Set(ctx context.Context, report resolution.Report) error
	Invalidate(ctx context.Context, ticketID int64) error
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	history    repository.TicketHistoryRepository
	users      repository.UserRepository
	cache      ResolutionCache
	dispatcher events.Dispatcher
	loc        *time.Location
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	HistoryRepo repository.TicketHistoryRepository
	UserRepo    repository.UserRepository
	Cache       ResolutionCache
	Dispatcher  events.Dispatcher
	Location    *time.Location
	Logger      *zap.Logger
}

// TicketDetail is everything the ticket page renders.
type TicketDetail struct {
	Ticket          *domain.Ticket
	Comments        []domain.Comment
	Resolution      resolution.Report
	CanComment      bool
	CanChangeStatus bool
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		history:    deps.HistoryRepo,
		users:      deps.UserRepo,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
		loc:        loc,
		logger:     logger,
	}
}

// Location is the zone ticket timestamps are rendered in.
func (s *TicketService) Location() *time.Location {
	return s.loc
}

// TicketCreateInput is what the new-ticket form submits.
type TicketCreateInput struct {
	Name           string
	Description    string
	FailureDetails *string
	Priority       domain.TicketPriority
	AssigneeID     *int64
}

// CreateTicket files a new open ticket on the user's behalf. Only
// read-write users may pick an assignee.
func (s *TicketService) CreateTicket(ctx context.Context, user *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if !user.Allows(domain.AreaTickets, domain.PermissionRead) {
		return nil, apperrors.NewForbidden(MsgNoCreateAccess)
	}
	name := strings.TrimSpace(input.Name)
	if n := utf8.RuneCountInString(name); n < minTicketName || n > maxTicketName {
		return nil, apperrors.NewValidationError(MsgNameLength, map[string]any{"name": name})
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, apperrors.NewValidationError(MsgDescriptionNeeded, nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.IsKnown() {
		return nil, apperrors.NewValidationError(MsgInvalidPriority, map[string]any{"priority": priority})
	}
	var details *string
	if input.FailureDetails != nil {
		if trimmed := strings.TrimSpace(*input.FailureDetails); trimmed != "" {
			details = &trimmed
		}
	}
	if input.AssigneeID != nil {
		if !user.Allows(domain.AreaTickets, domain.PermissionReadWrite) {
			return nil, apperrors.NewForbidden(MsgNoAssignAccess)
		}
		if err := s.checkAssignee(ctx, *input.AssigneeID); err != nil {
			return nil, err
		}
	}

	ticket := &domain.Ticket{
		UserID:         user.ID,
		AssigneeID:     input.AssigneeID,
		Name:           name,
		Description:    description,
		FailureDetails: details,
		Status:         domain.TicketStatusOpen,
		Priority:       priority,
		CreatedBy:      user.Name,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.recordHistory(ctx, &domain.TicketHistory{
		TicketID:    ticket.ID,
		ChangedByID: user.ID,
		ChangeType:  domain.ChangeTypeCreated,
		NewValue:    map[string]any{"status": ticket.Status, "priority": ticket.Priority},
	})
	s.publishEvent(ctx, events.NewEvent(events.EventTicketCreated, ticket.ID, actorOf(user),
		events.TicketCreatedPayload{
			Name:       ticket.Name,
			Priority:   ticket.Priority,
			AssigneeID: ticket.AssigneeID,
			Requester:  user.Name,
		}))
	return ticket, nil
}

func (s *TicketService) checkAssignee(ctx context.Context, id int64) error {
	if s.users == nil {
		return apperrors.NewValidationError(MsgInvalidAssignee, map[string]any{"assignee_id": id})
	}
	assignee, err := s.users.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewValidationError(MsgInvalidAssignee, map[string]any{"assignee_id": id})
	}
	if err != nil {
		return apperrors.MapError(err)
	}
	if !assignee.Active {
		return apperrors.NewValidationError(MsgInvalidAssignee, map[string]any{"assignee_id": id})
	}
	return nil
}

// AddComment appends a comment to a ticket the user can see.
func (s *TicketService) AddComment(ctx context.Context, user *domain.User, ticketID int64, content string) (*domain.Comment, error) {
	if !user.Allows(domain.AreaTickets, domain.PermissionRead) {
		return nil, apperrors.NewForbidden(MsgNoCommentAccess)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError(MsgContentRequired, nil)
	}
	ticket, err := s.visibleTicket(ctx, user, ticketID)
	if err != nil {
		if isForbidden(err) {
			return nil, apperrors.NewForbidden(MsgNoCommentAccess)
		}
		return nil, err
	}

	comment := &domain.Comment{
		TicketID: ticket.ID,
		UserID:   user.ID,
		UserName: user.Name,
		Content:  content,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.recordHistory(ctx, &domain.TicketHistory{
		TicketID:    ticket.ID,
		ChangedByID: user.ID,
		ChangeType:  domain.ChangeTypeComment,
		NewValue:    map[string]any{"comment_id": comment.ID},
	})
	s.publishEvent(ctx, events.NewEvent(events.EventTicketCommentAdded, ticket.ID, actorOf(user),
		events.TicketCommentAddedPayload{
			CommentID:   comment.ID,
			BodyPreview: stringPreview(content, commentPreviewLength),
		}))
	return comment, nil
}

// UpdateStatus moves a ticket to one of the known statuses. The ticket's
// updated_at is refreshed, which is what the resolution time measures to.
func (s *TicketService) UpdateStatus(ctx context.Context, user *domain.User, ticketID int64, status string) (*domain.Ticket, error) {
	if !user.Allows(domain.AreaTickets, domain.PermissionReadWrite) {
		return nil, apperrors.NewForbidden(MsgNoStatusAccess)
	}
	newStatus := domain.TicketStatus(strings.TrimSpace(status))
	if !newStatus.IsKnown() {
		return nil, apperrors.NewValidationError(MsgInvalidStatus, map[string]any{"status": status})
	}

	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	oldStatus := ticket.Status
	ticket.Status = newStatus
	if err := s.tickets.UpdateStatus(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, ticket.ID); err != nil {
			s.logger.Warn("resolution cache invalidate failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	s.recordHistory(ctx, &domain.TicketHistory{
		TicketID:    ticket.ID,
		ChangedByID: user.ID,
		ChangeType:  domain.ChangeTypeStatus,
		OldValue:    map[string]any{"status": oldStatus},
		NewValue:    map[string]any{"status": newStatus},
	})
	s.publishEvent(ctx, events.NewEvent(events.EventTicketStatusChanged, ticket.ID, actorOf(user),
		events.TicketStatusChangedPayload{OldStatus: oldStatus, NewStatus: newStatus}))
	return ticket, nil
}

// Detail loads a ticket with its comments, newest first, and resolution.
func (s *TicketService) Detail(ctx context.Context, user *domain.User, ticketID int64) (*TicketDetail, error) {
	ticket, err := s.visibleTicket(ctx, user, ticketID)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &TicketDetail{
		Ticket:          ticket,
		Comments:        comments,
		Resolution:      s.resolve(ctx, ticket),
		CanComment:      user.Allows(domain.AreaTickets, domain.PermissionRead),
		CanChangeStatus: user.Allows(domain.AreaTickets, domain.PermissionReadWrite),
	}, nil
}

// Resolution reports the ticket's resolution time as the page shows it.
func (s *TicketService) Resolution(ctx context.Context, user *domain.User, ticketID int64) (resolution.Report, error) {
	ticket, err := s.visibleTicket(ctx, user, ticketID)
	if err != nil {
		return resolution.Report{}, err
	}
	return s.resolve(ctx, ticket), nil
}

// resolve computes from the minute-precision rendered dates, so the value
// always agrees with what the page computes from its own markup.
func (s *TicketService) resolve(ctx context.Context, ticket *domain.Ticket) resolution.Report {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, ticket.ID)
		if err != nil {
			s.logger.Warn("resolution cache read failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		}
		if ok && cached.Status == string(ticket.Status) {
			return *cached
		}
	}

	snap := resolution.Snapshot{
		Status:      string(ticket.Status),
		CreatedText: resolution.FormatRenderedDate(ticket.CreatedAt, s.loc),
		UpdatedText: resolution.FormatRenderedDate(ticket.UpdatedAt, s.loc),
	}
	result := resolution.Calculate(snap, s.loc)
	if result.Err != nil {
		s.logger.Warn("resolution calculation failed", zap.Int64("ticket_id", ticket.ID), zap.Error(result.Err))
	}
	report := result.Report(ticket.ID, snap.Status)

	if s.cache != nil && result.Outcome != resolution.OutcomeError {
		if err := s.cache.Set(ctx, report); err != nil {
			s.logger.Warn("resolution cache write failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	return report
}

// Metrics tallies tickets by status, by user and by the creator's
// department. Every status other than Cerrado counts as open.
func (s *TicketService) Metrics(ctx context.Context) (domain.TicketMetrics, error) {
	counts, err := s.tickets.CountByStatus(ctx)
	if err != nil {
		return domain.TicketMetrics{}, apperrors.MapError(err)
	}
	byUser, err := s.tickets.CountByUser(ctx)
	if err != nil {
		return domain.TicketMetrics{}, apperrors.MapError(err)
	}
	byDepartment, err := s.tickets.CountByDepartment(ctx)
	if err != nil {
		return domain.TicketMetrics{}, apperrors.MapError(err)
	}
	metrics := domain.TicketMetrics{ByStatus: counts, ByDepartment: byDepartment}
	for _, uc := range byUser {
		if uc.Total() > 0 {
			metrics.ByUser = append(metrics.ByUser, uc)
		}
	}
	for _, sc := range counts {
		metrics.Total += sc.Count
		if sc.Status == domain.TicketStatusClosed {
			metrics.Closed += sc.Count
		}
	}
	metrics.Open = metrics.Total - metrics.Closed
	return metrics, nil
}

// ListByStatus pages through tickets currently in status.
func (s *TicketService) ListByStatus(ctx context.Context, status domain.TicketStatus, limit, offset int) ([]domain.Ticket, error) {
	if !status.IsKnown() {
		return nil, apperrors.NewValidationError(MsgInvalidStatus, map[string]any{"status": status})
	}
	tickets, err := s.tickets.ListByStatus(ctx, status, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// History returns a visible ticket's audit trail.
func (s *TicketService) History(ctx context.Context, user *domain.User, ticketID int64) ([]domain.TicketHistory, error) {
	ticket, err := s.visibleTicket(ctx, user, ticketID)
	if err != nil {
		return nil, err
	}
	if s.history == nil {
		return nil, nil
	}
	entries, err := s.history.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) visibleTicket(ctx context.Context, user *domain.User, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !user.CanSee(ticket) {
		return nil, apperrors.NewForbidden(MsgNoTicketAccess)
	}
	return ticket, nil
}

func (s *TicketService) recordHistory(ctx context.Context, entry *domain.TicketHistory) {
	if s.history == nil {
		return
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("ticket history write failed",
			zap.Int64("ticket_id", entry.TicketID),
			zap.String("change_type", string(entry.ChangeType)),
			zap.Error(err))
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func actorOf(user *domain.User) events.Actor {
	return events.Actor{UserID: user.ID, Name: user.Name}
}

func isForbidden(err error) bool {
	var domainErr *apperrors.DomainError
	return errors.As(err, &domainErr) && domainErr.Code == "FORBIDDEN"
}

func stringPreview(body string, max int) string {
	runes := []rune(strings.TrimSpace(body))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max]) + "…"
}
