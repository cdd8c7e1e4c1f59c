// Package client calls the ticket-desk JSON endpoints.
package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-desk/internal/config"
	"github.com/spec-kit/ticket-desk/internal/resolution"
)

// DefaultTimeout bounds a request when neither the configuration nor the
// context sets a limit.
const DefaultTimeout = 30 * time.Second

// ErrEmptyComment is returned before any request when the comment is blank.
var ErrEmptyComment = errors.New("comment content is empty")

// APIError is a request the server answered with success=false or an
// unexpected status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server responded %d", e.StatusCode)
	}
	return e.Message
}

// Comment is the server's view of a stored comment.
type Comment struct {
	ID        int64  `json:"id"`
	UserName  string `json:"user_name"`
	CreatedAt string `json:"created_at"`
	Content   string `json:"content"`
}

// ResolutionView is the JSON form of a resolution computation.
type ResolutionView = resolution.Report

type commentResponse struct {
	Success bool     `json:"success"`
	Comment *Comment `json:"comment,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Client talks to a ticket-desk server.
type Client struct {
	http    *fiber.Client
	baseURL string
	token   string
	timeout time.Duration
}

// New builds a client from configuration.
func New(cfg config.ClientConfig) *Client {
	return &Client{
		http: &fiber.Client{
			UserAgent:   "deskctl",
			JSONEncoder: json.Marshal,
			JSONDecoder: json.Unmarshal,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		timeout: cfg.Timeout(),
	}
}

// AddComment posts a comment on a ticket and returns the stored comment.
func (c *Client) AddComment(ctx context.Context, ticketID int64, content string) (*Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyComment
	}
	agent := c.authorize(c.http.Post(c.ticketURL(ticketID, "/comment"))).
		JSON(fiber.Map{"content": content})

	var resp commentResponse
	code, err := c.do(ctx, agent, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success || resp.Comment == nil {
		msg := resp.Error
		if msg == "" {
			msg = "Error al agregar comentario"
		}
		return nil, &APIError{StatusCode: code, Message: msg}
	}
	return resp.Comment, nil
}

// UpdateStatus changes a ticket's status.
func (c *Client) UpdateStatus(ctx context.Context, ticketID int64, status string) error {
	agent := c.authorize(c.http.Post(c.ticketURL(ticketID, "/status"))).
		JSON(fiber.Map{"status": status})

	var resp statusResponse
	code, err := c.do(ctx, agent, &resp)
	if err != nil {
		return err
	}
	if !resp.Success {
		return &APIError{StatusCode: code, Message: resp.Error}
	}
	return nil
}

// Resolution fetches the server-side resolution computation for a ticket.
func (c *Client) Resolution(ctx context.Context, ticketID int64) (*ResolutionView, error) {
	agent := c.authorize(c.http.Get(c.ticketURL(ticketID, "/resolution")))

	var resp struct {
		Data  *ResolutionView `json:"data"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	code, err := c.do(ctx, agent, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Data == nil {
		apiErr := &APIError{StatusCode: code}
		if resp.Error != nil {
			apiErr.Message = resp.Error.Message
		}
		return nil, apiErr
	}
	return resp.Data, nil
}

// TicketPage downloads the rendered ticket detail page.
func (c *Client) TicketPage(ctx context.Context, ticketID int64) ([]byte, error) {
	agent := c.authorize(c.http.Get(c.baseURL + "/tickets/" + strconv.FormatInt(ticketID, 10)))
	code, body, err := c.raw(ctx, agent)
	if err != nil {
		return nil, err
	}
	if code != fiber.StatusOK {
		return nil, &APIError{StatusCode: code}
	}
	return body, nil
}

func (c *Client) ticketURL(ticketID int64, suffix string) string {
	return c.baseURL + "/api/tickets/" + strconv.FormatInt(ticketID, 10) + suffix
}

func (c *Client) authorize(agent *fiber.Agent) *fiber.Agent {
	if c.token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	return agent
}

// requestTimeout is the configured timeout, shortened to the context
// deadline when that comes first.
func (c *Client) requestTimeout(ctx context.Context) time.Duration {
	timeout := c.timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	return timeout
}

// do sends the request and decodes the JSON body into out whatever the
// status code, since the endpoints report failures in the body.
func (c *Client) do(ctx context.Context, agent *fiber.Agent, out any) (int, error) {
	code, body, err := c.raw(ctx, agent)
	if err != nil {
		return code, err
	}
	if len(body) == 0 {
		return code, &APIError{StatusCode: code}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return code, fmt.Errorf("decode response (%d): %w", code, err)
	}
	return code, nil
}

type rawResult struct {
	code int
	body []byte
	err  error
}

func (c *Client) raw(ctx context.Context, agent *fiber.Agent) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		fiber.ReleaseAgent(agent)
		return 0, nil, err
	}
	agent.Timeout(c.requestTimeout(ctx))
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return 0, nil, fmt.Errorf("build request: %w", err)
	}

	done := make(chan rawResult, 1)
	go func() {
		code, body, errs := agent.Bytes()
		done <- rawResult{code: code, body: body, err: errors.Join(errs...)}
	}()

	select {
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	case res := <-done:
		return res.code, res.body, res.err
	}
}
