// deskctl drives ticket pages from the command line: it computes the
// resolution time of a rendered page, posts comments, changes statuses and
// filters page tables. It also hashes passwords for seeding user rows.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/ticket-desk/internal/auth"
	"github.com/spec-kit/ticket-desk/internal/client"
	"github.com/spec-kit/ticket-desk/internal/config"
	"github.com/spec-kit/ticket-desk/internal/observability"
	"github.com/spec-kit/ticket-desk/internal/page"
	"github.com/spec-kit/ticket-desk/internal/resolution"
)

const maxParallelUpdates = 4

// exitError carries a process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func usageError(format string, args ...any) error {
	return &exitError{code: 2, err: fmt.Errorf(format, args...)}
}

type app struct {
	cfg    *config.Config
	api    *client.Client
	logger *zap.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg.Logger.Output = "stderr"
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.Logger.Level = "warn"
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{cfg: cfg, api: client.New(cfg.Client), logger: logger, stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	if err := a.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	if err := a.dispatch(ctx, args); err != nil && !errors.Is(err, pflag.ErrHelp) {
		return err
	}
	return nil
}

func (a *app) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.printUsage()
		return usageError("missing command")
	}
	switch args[0] {
	case "resolution":
		return a.resolution(ctx, args[1:])
	case "comment":
		return a.comment(ctx, args[1:])
	case "status":
		return a.status(ctx, args[1:])
	case "filter":
		return a.filter(args[1:])
	case "hash-password":
		return a.hashPassword(args[1:])
	case "help", "-h", "--help":
		a.printUsage()
		return nil
	default:
		a.printUsage()
		return usageError("unknown command %q", args[0])
	}
}

func (a *app) printUsage() {
	fmt.Fprint(a.stderr, `Usage: deskctl <command> [flags]

Commands:
  resolution     compute the resolution time of a ticket page (--file or --ticket)
  comment        add a comment to a ticket
  status         change the status of one or more tickets
  filter         list the rows of a page table matching a term
  hash-password  bcrypt a password read from stdin, for seeding users

Environment: DESK_URL, DESK_TOKEN, APP_TIMEZONE
`)
}

func (a *app) newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet("deskctl "+name, pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func parseFlags(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return usageError("%v", err)
	}
	if rest := fs.Args(); len(rest) > 0 {
		return usageError("unexpected argument: %s", rest[0])
	}
	return nil
}

func (a *app) location(tz string) (*time.Location, error) {
	if tz == "" {
		return a.cfg.App.Location(), nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, usageError("unknown time zone %q", tz)
	}
	return loc, nil
}

func (a *app) resolution(ctx context.Context, args []string) error {
	fs := a.newFlagSet("resolution")
	file := fs.String("file", "", "rendered ticket page to read")
	ticket := fs.Int64("ticket", 0, "ticket id to download from the server")
	format := fs.StringP("format", "o", "text", "output format: text, json or yaml")
	tz := fs.String("tz", "", "time zone the page dates are rendered in (default APP_TIMEZONE)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if (*file == "") == (*ticket == 0) {
		return usageError("exactly one of --file or --ticket is required")
	}
	loc, err := a.location(*tz)
	if err != nil {
		return err
	}

	p, err := a.loadPage(ctx, *file, *ticket, loc)
	if err != nil {
		return err
	}
	snap := p.Snapshot()
	res := resolution.Calculate(snap, loc)
	if res.Err != nil {
		a.logger.Warn("resolution calculation failed", zap.Error(res.Err))
	}
	id := *ticket
	if form, ok := p.CommentForm(); ok && id == 0 {
		id = form.TicketID
	}
	return a.print(*format, res.Report(id, snap.Status), res.Text)
}

func (a *app) loadPage(ctx context.Context, file string, ticket int64, loc *time.Location) (*page.Page, error) {
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return page.Parse(f, loc)
	}
	body, err := a.api.TicketPage(ctx, ticket)
	if err != nil {
		return nil, fmt.Errorf("download ticket %d: %w", ticket, err)
	}
	return page.ParseBytes(body, loc)
}

func (a *app) print(format string, v any, text string) error {
	switch format {
	case "text", "":
		_, err := fmt.Fprintln(a.stdout, text)
		return err
	case "json":
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(a.stdout, string(out))
		return err
	case "yaml":
		enc := yaml.NewEncoder(a.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return usageError("unknown format %q", format)
	}
}

func (a *app) comment(ctx context.Context, args []string) error {
	fs := a.newFlagSet("comment")
	ticket := fs.Int64("ticket", 0, "ticket id")
	content := fs.String("content", "", "comment text")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *ticket <= 0 {
		return usageError("--ticket is required")
	}

	comment, err := a.api.AddComment(ctx, *ticket, *content)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s · %s\n%s\n", comment.UserName, comment.CreatedAt, comment.Content)
	return nil
}

type statusOutcome struct {
	ticket     int64
	accepted   bool
	resolution string
}

// status applies one status to several tickets concurrently. Each ticket's
// page is downloaded and driven like the browser would; failures are logged
// and do not stop the other updates.
func (a *app) status(ctx context.Context, args []string) error {
	fs := a.newFlagSet("status")
	tickets := fs.Int64Slice("ticket", nil, "ticket id (repeatable)")
	status := fs.String("status", "", "new status")
	tz := fs.String("tz", "", "time zone the page dates are rendered in (default APP_TIMEZONE)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if len(*tickets) == 0 || strings.TrimSpace(*status) == "" {
		return usageError("--ticket and --status are required")
	}
	loc, err := a.location(*tz)
	if err != nil {
		return err
	}

	var (
		mu       sync.Mutex
		outcomes []statusOutcome
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelUpdates)
	for _, id := range *tickets {
		id := id
		g.Go(func() error {
			out := a.changeStatus(gctx, id, *status, loc)
			mu.Lock()
			outcomes = append(outcomes, out)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].ticket < outcomes[j].ticket })
	for _, out := range outcomes {
		if out.accepted {
			fmt.Fprintf(a.stdout, "#%d %s (tiempo de resolución: %s)\n", out.ticket, *status, out.resolution)
		} else {
			fmt.Fprintf(a.stdout, "#%d sin cambios\n", out.ticket)
		}
	}
	return nil
}

func (a *app) changeStatus(ctx context.Context, id int64, status string, loc *time.Location) statusOutcome {
	out := statusOutcome{ticket: id}
	body, err := a.api.TicketPage(ctx, id)
	if err != nil {
		a.logger.Warn("ticket page unavailable", zap.Int64("ticket_id", id), zap.Error(err))
		return out
	}
	p, err := page.ParseBytes(body, loc)
	if err != nil {
		a.logger.Warn("ticket page unreadable", zap.Int64("ticket_id", id), zap.Error(err))
		return out
	}
	d := page.NewDriver(p, a.api, a.logger.With(zap.Int64("ticket_id", id)))
	d.Load()
	out.accepted = d.ChangeStatus(ctx, id, status)
	out.resolution, _ = p.ResolutionText()
	return out
}

func (a *app) filter(args []string) error {
	fs := a.newFlagSet("filter")
	file := fs.String("file", "", "rendered page to read")
	table := fs.String("table", "", "id of the table to filter (default: the page's first search binding)")
	term := fs.String("term", "", "text the rows must contain")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *file == "" {
		return usageError("--file is required")
	}
	f, err := os.Open(*file)
	if err != nil {
		return err
	}
	defer f.Close()
	p, err := page.Parse(f, a.cfg.App.Location())
	if err != nil {
		return err
	}

	tableID := *table
	if tableID == "" {
		bindings := p.SearchBindings()
		if len(bindings) == 0 {
			return usageError("page has no search input; pass --table")
		}
		tableID = bindings[0].TableID
	}
	rows, ok := p.FilterTable(tableID, *term)
	if !ok {
		return fmt.Errorf("table %q not found", tableID)
	}
	for _, row := range rows {
		fmt.Fprintln(a.stdout, row)
	}
	return nil
}

func (a *app) hashPassword(args []string) error {
	fs := a.newFlagSet("hash-password")
	cost := fs.Int("cost", a.cfg.Auth.BcryptCost, "bcrypt cost (default AUTH_BCRYPT_COST)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return usageError("no password on stdin")
	}
	hashed, err := auth.HashPassword(password, *cost)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.stdout, hashed)
	return err
}
