package http

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-desk/internal/api/http/handlers"
	"github.com/spec-kit/ticket-desk/internal/auth"
	"github.com/spec-kit/ticket-desk/internal/config"
	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/observability"
	"github.com/spec-kit/ticket-desk/internal/page"
	"github.com/spec-kit/ticket-desk/internal/resolution"
	"github.com/spec-kit/ticket-desk/internal/service"
	"github.com/spec-kit/ticket-desk/internal/web"
	apperrors "github.com/spec-kit/ticket-desk/pkg/util/errorutil"
)

var users = map[string]*domain.User{
	"agent":  {ID: 1, Name: "Ana", Active: true, Role: domain.Role{PermTickets: domain.PermissionReadWrite}},
	"reader": {ID: 2, Name: "Beto", Active: true, Role: domain.Role{PermTickets: domain.PermissionRead}},
}

type fakeWorkflows struct {
	ticket   domain.Ticket
	comments []domain.Comment
	created  []service.TicketCreateInput
	failWith error
}

func (f *fakeWorkflows) CreateTicket(_ context.Context, user *domain.User, in service.TicketCreateInput) (*domain.Ticket, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperrors.NewValidationError(service.MsgNameLength, nil)
	}
	if in.AssigneeID != nil && !user.Allows(domain.AreaTickets, domain.PermissionReadWrite) {
		return nil, apperrors.NewForbidden(service.MsgNoAssignAccess)
	}
	f.created = append(f.created, in)
	return &domain.Ticket{
		ID: 20, UserID: user.ID, AssigneeID: in.AssigneeID, Name: in.Name, Description: in.Description,
		Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityMedium, CreatedBy: user.Name,
	}, nil
}

func (f *fakeWorkflows) AddComment(_ context.Context, user *domain.User, id int64, content string) (*domain.Comment, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.NewValidationError(service.MsgContentRequired, nil)
	}
	c := domain.Comment{ID: 10, TicketID: id, UserID: user.ID, UserName: user.Name, Content: content,
		CreatedAt: time.Date(2024, 5, 6, 17, 45, 0, 0, time.UTC)}
	f.comments = append(f.comments, c)
	return &c, nil
}

func (f *fakeWorkflows) UpdateStatus(_ context.Context, _ *domain.User, id int64, status string) (*domain.Ticket, error) {
	if id != f.ticket.ID {
		return nil, apperrors.NewNotFound("ticket", nil)
	}
	if !domain.TicketStatus(status).IsKnown() {
		return nil, apperrors.NewValidationError(service.MsgInvalidStatus, nil)
	}
	f.ticket.Status = domain.TicketStatus(status)
	f.ticket.UpdatedAt = f.ticket.CreatedAt.Add(3 * time.Hour)
	t := f.ticket
	return &t, nil
}

func (f *fakeWorkflows) Detail(ctx context.Context, user *domain.User, id int64) (*service.TicketDetail, error) {
	report, err := f.Resolution(ctx, user, id)
	if err != nil {
		return nil, err
	}
	t := f.ticket
	return &service.TicketDetail{
		Ticket:          &t,
		Comments:        f.comments,
		Resolution:      report,
		CanComment:      true,
		CanChangeStatus: user.Allows(domain.AreaTickets, domain.PermissionReadWrite),
	}, nil
}

func (f *fakeWorkflows) Resolution(_ context.Context, _ *domain.User, id int64) (resolution.Report, error) {
	if id != f.ticket.ID {
		return resolution.Report{}, apperrors.NewNotFound("ticket", nil)
	}
	res := resolution.Calculate(resolution.Snapshot{
		Status:      string(f.ticket.Status),
		CreatedText: resolution.FormatRenderedDate(f.ticket.CreatedAt, time.UTC),
		UpdatedText: resolution.FormatRenderedDate(f.ticket.UpdatedAt, time.UTC),
	}, time.UTC)
	return res.Report(id, string(f.ticket.Status)), nil
}

func (f *fakeWorkflows) History(context.Context, *domain.User, int64) ([]domain.TicketHistory, error) {
	return []domain.TicketHistory{{ID: 1, TicketID: f.ticket.ID, ChangeType: domain.ChangeTypeStatus}}, nil
}

func (f *fakeWorkflows) ListByStatus(_ context.Context, status domain.TicketStatus, _, _ int) ([]domain.Ticket, error) {
	if f.ticket.Status == status {
		return []domain.Ticket{f.ticket}, nil
	}
	return nil, nil
}

func (f *fakeWorkflows) Metrics(context.Context) (domain.TicketMetrics, error) {
	return domain.TicketMetrics{
		Total:        1,
		Open:         1,
		ByStatus:     []domain.StatusCount{{Status: f.ticket.Status, Count: 1}},
		ByUser:       []domain.UserTicketCount{{UserID: 2, Name: "Beto", Created: 1}},
		ByDepartment: []domain.DepartmentTicketCount{{Department: domain.NoDepartment, Count: 1}},
	}, nil
}

func (f *fakeWorkflows) Location() *time.Location { return time.UTC }

// headerAuth stands in for the JWT middleware: X-User names the caller.
func headerAuth(c *fiber.Ctx) error {
	user, ok := users[c.Get("X-User")]
	if !ok {
		return apperrors.NewUnauthorized("missing authorization header")
	}
	auth.WithPrincipal(c, &auth.Principal{User: user})
	return c.Next()
}

func newTestApp(t *testing.T) (*fiber.App, *fakeWorkflows) {
	t.Helper()
	created := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	svc := &fakeWorkflows{ticket: domain.Ticket{
		ID: 7, UserID: 2, Name: "Impresora", Status: domain.TicketStatusOpen,
		Priority: domain.TicketPriorityMedium, CreatedAt: created, UpdatedAt: created,
	}}
	renderer, err := web.NewRenderer("ticket-desk", time.UTC)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{JSONEncoder: json.Marshal, JSONDecoder: json.Unmarshal})
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("ticket-desk", "test", nil, metrics),
		Tickets:        handlers.NewTicketsHandler(svc, renderer),
		AuthMiddleware: headerAuth,
	})
	return app, svc
}

func do(t *testing.T, app *fiber.App, method, path, user, body string) (int, map[string]any, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-User", user)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	raw, _ := io.ReadAll(resp.Body)
	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)
	return resp.StatusCode, decoded, string(raw)
}

func TestCommentEndpoint(t *testing.T) {
	app, svc := newTestApp(t)

	code, body, _ := do(t, app, "POST", "/api/tickets/7/comment", "reader", `{"content":"Sigue fallando"}`)
	if code != fiber.StatusOK || body["success"] != true {
		t.Fatalf("status %d body %v", code, body)
	}
	comment := body["comment"].(map[string]any)
	if comment["user_name"] != "Beto" || comment["created_at"] != "2024-05-06 17:45" || comment["content"] != "Sigue fallando" {
		t.Fatalf("comment = %v", comment)
	}
	if len(svc.comments) != 1 {
		t.Fatalf("comment not stored")
	}

	code, body, _ = do(t, app, "POST", "/api/tickets/7/comment", "reader", `{"content":""}`)
	if code != fiber.StatusBadRequest || body["success"] != false || body["error"] != service.MsgContentRequired {
		t.Fatalf("blank comment: status %d body %v", code, body)
	}

	svc.failWith = apperrors.NewForbidden(service.MsgNoCommentAccess)
	code, body, _ = do(t, app, "POST", "/api/tickets/7/comment", "reader", `{"content":"hola"}`)
	if code != fiber.StatusForbidden || body["error"] != service.MsgNoCommentAccess {
		t.Fatalf("forbidden comment: status %d body %v", code, body)
	}
}

func TestStatusEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	code, body, _ := do(t, app, "POST", "/api/tickets/7/status", "agent", `{"status":"Resuelto"}`)
	if code != fiber.StatusOK || body["success"] != true || body["badge_class"] != "bg-green-100 text-green-800" {
		t.Fatalf("status %d body %v", code, body)
	}

	code, body, _ = do(t, app, "POST", "/api/tickets/7/status", "reader", `{"status":"Cerrado"}`)
	if code != fiber.StatusForbidden || body["success"] != false {
		t.Fatalf("reader changed status: %d %v", code, body)
	}

	code, body, _ = do(t, app, "POST", "/api/tickets/7/status", "agent", `{"status":"Pendiente"}`)
	if code != fiber.StatusBadRequest || body["error"] != service.MsgInvalidStatus {
		t.Fatalf("unknown status: %d %v", code, body)
	}

	code, body, _ = do(t, app, "POST", "/api/tickets/abc/status", "agent", `{"status":"Cerrado"}`)
	if code != fiber.StatusNotFound || body["success"] != false {
		t.Fatalf("bad id: %d %v", code, body)
	}
}

func TestResolutionEndpointFollowsStatus(t *testing.T) {
	app, _ := newTestApp(t)

	_, body, _ := do(t, app, "GET", "/api/tickets/7/resolution", "reader", "")
	data := body["data"].(map[string]any)
	if data["text"] != resolution.TextNotApplicable {
		t.Fatalf("open ticket resolution = %v", data)
	}

	do(t, app, "POST", "/api/tickets/7/status", "agent", `{"status":"Cerrado"}`)
	_, body, _ = do(t, app, "GET", "/api/tickets/7/resolution", "reader", "")
	data = body["data"].(map[string]any)
	if data["text"] != "3 horas" || data["outcome"] != string(resolution.OutcomeDuration) {
		t.Fatalf("closed ticket resolution = %v", data)
	}

	code, body, _ := do(t, app, "GET", "/api/tickets/99/resolution", "reader", "")
	if code != fiber.StatusNotFound || body["error"].(map[string]any)["code"] != "NOT_FOUND" {
		t.Fatalf("missing ticket: %d %v", code, body)
	}
}

func TestDetailPage(t *testing.T) {
	app, _ := newTestApp(t)
	do(t, app, "POST", "/api/tickets/7/status", "agent", `{"status":"Resuelto"}`)
	do(t, app, "POST", "/api/tickets/7/comment", "agent", `{"content":"<script>x</script>"}`)

	code, _, html := do(t, app, "GET", "/tickets/7", "agent", "")
	if code != fiber.StatusOK {
		t.Fatalf("status %d: %s", code, html)
	}
	if strings.Contains(html, "<script>x</script>") {
		t.Fatalf("comment not escaped")
	}
	p, err := page.ParseBytes([]byte(html), time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if res, ok := p.RefreshResolution(); !ok || res.Text != "3 horas" {
		t.Fatalf("page resolution = %q (%v)", res.Text, ok)
	}
}

func TestProtectedRoutesRequireUser(t *testing.T) {
	app, _ := newTestApp(t)
	for _, path := range []string{"/tickets/7", "/api/tickets/7/resolution", "/api/tickets/metrics"} {
		if code, _, _ := do(t, app, "GET", path, "", ""); code != fiber.StatusUnauthorized {
			t.Fatalf("%s without user: %d", path, code)
		}
	}
	code, body, _ := do(t, app, "POST", "/api/tickets/7/comment", "", `{"content":"x"}`)
	if code != fiber.StatusUnauthorized || body["success"] != false {
		t.Fatalf("anonymous comment: %d %v", code, body)
	}
}

func TestMetricsAndListing(t *testing.T) {
	app, _ := newTestApp(t)

	code, body, _ := do(t, app, "GET", "/api/tickets/metrics", "agent", "")
	if code != fiber.StatusOK || body["data"].(map[string]any)["total"] != float64(1) {
		t.Fatalf("metrics: %d %v", code, body)
	}
	data := body["data"].(map[string]any)
	byUser := data["by_user"].([]any)[0].(map[string]any)
	if byUser["name"] != "Beto" || byUser["total"] != float64(1) {
		t.Fatalf("by_user = %v", data["by_user"])
	}
	byDept := data["by_department"].([]any)[0].(map[string]any)
	if byDept["department"] != "Sin Departamento" {
		t.Fatalf("by_department = %v", data["by_department"])
	}
	if code, _, _ := do(t, app, "GET", "/api/tickets/metrics", "reader", ""); code != fiber.StatusForbidden {
		t.Fatalf("reader saw metrics: %d", code)
	}

	_, body, _ = do(t, app, "GET", "/api/tickets?status=Abierto", "agent", "")
	if items := body["data"].([]any); len(items) != 1 {
		t.Fatalf("listing = %v", body)
	}

	_, body, _ = do(t, app, "GET", "/metrics", "", "")
	requests := body["data"].(map[string]any)["requests"].([]any)
	if len(requests) == 0 {
		t.Fatalf("request metrics empty")
	}
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t)
	if code, body, _ := do(t, app, "GET", "/health/ready", "", ""); code != fiber.StatusOK || body["status"] != "ready" {
		t.Fatalf("ready: %d %v", code, body)
	}
}

func TestCreateTicketEndpoint(t *testing.T) {
	app, svc := newTestApp(t)

	code, body, _ := do(t, app, "POST", "/api/tickets", "reader", `{"name":"Monitor roto","description":"No enciende","priority":"Alta"}`)
	if code != fiber.StatusCreated {
		t.Fatalf("status %d body %v", code, body)
	}
	data := body["data"].(map[string]any)
	if data["id"] != float64(20) || data["status"] != "Abierto" || data["created_by"] != "Beto" {
		t.Fatalf("created = %v", data)
	}
	if len(svc.created) != 1 || svc.created[0].Priority != domain.TicketPriorityHigh {
		t.Fatalf("service input = %+v", svc.created)
	}

	code, body, _ = do(t, app, "POST", "/api/tickets", "reader", `{"name":"Monitor roto","description":"x","assignee_id":1}`)
	if code != fiber.StatusForbidden || body["error"].(map[string]any)["message"] != service.MsgNoAssignAccess {
		t.Fatalf("reader assigned: %d %v", code, body)
	}

	code, _, _ = do(t, app, "POST", "/api/tickets", "agent", `{"name":"Teclado","description":"x","assignee_id":2}`)
	if code != fiber.StatusCreated {
		t.Fatalf("agent assign: %d", code)
	}

	if code, _, _ := do(t, app, "POST", "/api/tickets", "", `{"name":"Teclado","description":"x"}`); code != fiber.StatusUnauthorized {
		t.Fatalf("anonymous create: %d", code)
	}
}

type registryUsers struct {
	byEmail map[string]*domain.User
}

func (r *registryUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	for _, u := range r.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *registryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := r.byEmail[email]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *registryUsers) Create(_ context.Context, name, email, hash string) (int64, error) {
	id := int64(len(r.byEmail) + 1)
	r.byEmail[email] = &domain.User{ID: id, Name: name, Email: email, PasswordHash: hash, Active: true,
		Role: domain.Role{Name: domain.DefaultRoleName, PermTickets: domain.PermissionReadWrite}}
	return id, nil
}

func TestRegisterEndpoint(t *testing.T) {
	repo := &registryUsers{byEmail: map[string]*domain.User{}}
	authService := service.NewAuthService(config.Config{Auth: config.AuthConfig{
		JWTSecret: "secret", AccessTokenTTLMinutes: 5, BcryptCost: 4,
	}}, repo)
	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{JSONEncoder: json.Marshal, JSONDecoder: json.Unmarshal})
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("ticket-desk", "test", nil, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(&fakeWorkflows{}, nil),
		AuthMiddleware: headerAuth,
	})

	payload := `{"name":"Fabi","email":"fabi@example.com","password":"secreto","confirm_password":"secreto"}`
	code, body, _ := do(t, app, "POST", "/auth/register", "", payload)
	if code != fiber.StatusCreated {
		t.Fatalf("status %d body %v", code, body)
	}
	data := body["data"].(map[string]any)
	if data["email"] != "fabi@example.com" || data["role"] != domain.DefaultRoleName {
		t.Fatalf("registered = %v", data)
	}

	code, body, _ = do(t, app, "POST", "/auth/register", "", payload)
	if code != fiber.StatusConflict || body["error"].(map[string]any)["message"] != service.MsgEmailTaken {
		t.Fatalf("duplicate: %d %v", code, body)
	}

	code, body, _ = do(t, app, "POST", "/auth/login", "", `{"email":"fabi@example.com","password":"secreto"}`)
	if code != fiber.StatusOK || body["data"].(map[string]any)["auth"].(map[string]any)["token"] == "" {
		t.Fatalf("login after register: %d %v", code, body)
	}
}
