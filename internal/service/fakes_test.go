package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/events"
	"github.com/spec-kit/ticket-desk/internal/resolution"
)

type fakeTickets struct {
	byID         map[int64]*domain.Ticket
	now          time.Time
	updates      int
	byUser       []domain.UserTicketCount
	byDepartment []domain.DepartmentTicketCount
}

func (f *fakeTickets) Create(_ context.Context, t *domain.Ticket) error {
	var next int64
	for id := range f.byID {
		if id > next {
			next = id
		}
	}
	t.ID = next + 1
	t.CreatedAt = f.now
	t.UpdatedAt = f.now
	cp := *t
	f.byID[t.ID] = &cp
	return nil
}

func (f *fakeTickets) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	t, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTickets) UpdateStatus(_ context.Context, t *domain.Ticket) error {
	stored, ok := f.byID[t.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	f.updates++
	t.UpdatedAt = f.now
	stored.Status = t.Status
	stored.UpdatedAt = f.now
	return nil
}

func (f *fakeTickets) ListByStatus(_ context.Context, status domain.TicketStatus, _, _ int) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, t := range f.byID {
		if t.Status == status {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTickets) CountByStatus(context.Context) ([]domain.StatusCount, error) {
	counts := map[domain.TicketStatus]int64{}
	for _, t := range f.byID {
		counts[t.Status]++
	}
	var out []domain.StatusCount
	for _, s := range domain.KnownStatuses {
		if counts[s] > 0 {
			out = append(out, domain.StatusCount{Status: s, Count: counts[s]})
		}
	}
	return out, nil
}

func (f *fakeTickets) CountByUser(context.Context) ([]domain.UserTicketCount, error) {
	return f.byUser, nil
}

func (f *fakeTickets) CountByDepartment(context.Context) ([]domain.DepartmentTicketCount, error) {
	return f.byDepartment, nil
}

type fakeComments struct {
	items []domain.Comment
	at    time.Time
}

func (f *fakeComments) Create(_ context.Context, c *domain.Comment) error {
	c.ID = int64(len(f.items) + 1)
	c.CreatedAt = f.at
	f.items = append(f.items, *c)
	return nil
}

func (f *fakeComments) ListByTicket(_ context.Context, ticketID int64) ([]domain.Comment, error) {
	var out []domain.Comment
	for i := len(f.items) - 1; i >= 0; i-- {
		if f.items[i].TicketID == ticketID {
			out = append(out, f.items[i])
		}
	}
	return out, nil
}

type fakeHistory struct {
	entries []domain.TicketHistory
}

func (f *fakeHistory) Create(_ context.Context, h *domain.TicketHistory) error {
	h.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, *h)
	return nil
}

func (f *fakeHistory) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	var out []domain.TicketHistory
	for _, h := range f.entries {
		if h.TicketID == ticketID {
			out = append(out, h)
		}
	}
	return out, nil
}

type memoryCache struct {
	mu          sync.Mutex
	reports     map[int64]resolution.Report
	sets        int
	invalidated []int64
}

func newMemoryCache() *memoryCache {
	return &memoryCache{reports: map[int64]resolution.Report{}}
}

func (c *memoryCache) Get(_ context.Context, id int64) (*resolution.Report, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.reports[id]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

func (c *memoryCache) Set(_ context.Context, r resolution.Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.reports[r.TicketID] = r
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.reports, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

type recordingDispatcher struct {
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, e events.Event) error {
	d.events = append(d.events, e)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

type fakeUsers map[string]*domain.User

func (f fakeUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	for _, u := range f {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := f[email]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func (f fakeUsers) Create(_ context.Context, name, email, passwordHash string) (int64, error) {
	if _, ok := f[email]; ok {
		return 0, &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	}
	id := int64(len(f) + 100)
	f[email] = &domain.User{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Active:       true,
		Role:         domain.Role{Name: domain.DefaultRoleName, PermTickets: domain.PermissionReadWrite},
	}
	return id, nil
}
