package portal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/khaothykus/fieldmap-bot/internal/infrastructure/config"
	"github.com/khaothykus/fieldmap-bot/internal/match"
	"github.com/khaothykus/fieldmap-bot/internal/receipt"
)

// Protocol: one JSON request per line on the driver's stdin, one JSON
// response per line on its stdout. The driver owns the browser session
// and keeps it alive between requests.

type request struct {
	Op          string `json:"op"`
	Month       string `json:"month,omitempty"`
	Handle      string `json:"handle,omitempty"`
	Category    string `json:"category,omitempty"`
	AmountCents int64  `json:"amount_cents,omitempty"`
	File        string `json:"file,omitempty"`
}

type wireInterval struct {
	Handle string    `json:"handle"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

type response struct {
	OK        bool           `json:"ok"`
	Error     string         `json:"error,omitempty"`
	Intervals []wireInterval `json:"intervals,omitempty"`
	Confirmed bool           `json:"confirmed,omitempty"`
}

// ExecDriver runs the automation helper as a child process and speaks
// the line protocol with it. All calls are serialized: the driver holds
// one stateful browser session.
type ExecDriver struct {
	cfg    config.PortalConfig
	logger *slog.Logger

	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
	out   *bufio.Reader
}

func NewExecDriver(cfg config.PortalConfig, logger *slog.Logger) *ExecDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecDriver{cfg: cfg, logger: logger}
}

// start launches the driver process lazily on the first call.
func (d *ExecDriver) start() error {
	if d.cmd != nil {
		return nil
	}

	args := []string{"--user-env", d.cfg.UserEnv, "--pass-env", d.cfg.PassEnv}
	if d.cfg.Headless {
		args = append(args, "--headless")
	}

	cmd := exec.Command(d.cfg.DriverCommand, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("driver stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("driver stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start driver %q: %w", d.cfg.DriverCommand, err)
	}

	d.logger.Info("portal driver started", "command", d.cfg.DriverCommand, "pid", cmd.Process.Pid, "headless", d.cfg.Headless)
	d.cmd = cmd
	d.stdin = stdin
	d.out = bufio.NewReader(stdout)
	return nil
}

// call sends one request and waits for its response, bounded by the
// configured timeout and the caller's context.
func (d *ExecDriver) call(ctx context.Context, req request) (*response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.start(); err != nil {
		return nil, err
	}

	if d.cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout())
		defer cancel()
	}

	type result struct {
		resp *response
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		resp, err := roundTrip(d.stdin, d.out, req)
		ch <- result{resp, err}
	}()

	select {
	case <-ctx.Done():
		// The session is unusable once a response goes unread; kill the
		// process so the next call starts fresh.
		d.teardown()
		return nil, fmt.Errorf("portal %s: %w", req.Op, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			d.teardown()
			return nil, fmt.Errorf("portal %s: %w", req.Op, r.err)
		}
		if !r.resp.OK {
			return nil, fmt.Errorf("portal %s: %s", req.Op, r.resp.Error)
		}
		return r.resp, nil
	}
}

// roundTrip writes one request line and reads one response line.
func roundTrip(w io.Writer, r *bufio.Reader, req request) (*response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(append(payload, '\n')); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var resp response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}

func (d *ExecDriver) teardown() {
	if d.cmd == nil {
		return
	}
	_ = d.stdin.Close()
	_ = d.cmd.Process.Kill()
	_ = d.cmd.Wait()
	d.cmd = nil
	d.stdin = nil
	d.out = nil
}

func (d *ExecDriver) Authenticate(ctx context.Context) error {
	_, err := d.call(ctx, request{Op: "authenticate"})
	return err
}

func (d *ExecDriver) FetchIntervals(ctx context.Context, month time.Time) ([]match.Interval, error) {
	resp, err := d.call(ctx, request{Op: "fetch_intervals", Month: month.Format("2006-01")})
	if err != nil {
		return nil, err
	}
	intervals := make([]match.Interval, 0, len(resp.Intervals))
	for _, wi := range resp.Intervals {
		intervals = append(intervals, match.Interval{Handle: wi.Handle, Start: wi.Start, End: wi.End})
	}
	return intervals, nil
}

func (d *ExecDriver) OpenRecord(ctx context.Context, handle string) error {
	_, err := d.call(ctx, request{Op: "open_record", Handle: handle})
	return err
}

func (d *ExecDriver) SubmitExpense(ctx context.Context, category receipt.Category, amountCents int64, filePath string) (bool, error) {
	resp, err := d.call(ctx, request{
		Op:          "submit_expense",
		Category:    string(category),
		AmountCents: amountCents,
		File:        filePath,
	})
	if err != nil {
		return false, err
	}
	return resp.Confirmed, nil
}

func (d *ExecDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cmd == nil {
		return nil
	}
	// Best effort polite shutdown before the hard teardown.
	if payload, err := json.Marshal(request{Op: "close"}); err == nil {
		_, _ = d.stdin.Write(append(payload, '\n'))
	}
	d.teardown()
	return nil
}
