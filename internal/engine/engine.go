// Package engine drives an external UCI chess engine as a subprocess.
//
// The engine is a process-scoped resource: it is started lazily on the
// first query, reused for every query of a run, and shut down exactly
// once with Close. Queries are synchronous and strictly sequential; the
// engine handle must not be shared across goroutines.
package engine

import (
	"bufio"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrEngineClosed reports that the engine process is gone, either
// because Close was called or because the process died mid-run. A
// query failing with this error cannot be retried on the same handle.
var ErrEngineClosed = errors.New("engine process is not running")

// Options configures the engine process for a run.
type Options struct {
	// Threads is the UCI Threads option.
	Threads int

	// HashMB is the UCI Hash option in megabytes.
	HashMB int

	// Depth is the fixed search depth for every query of the run.
	// Keeping it constant keeps loss values comparable across plies.
	Depth int
}

// DefaultOptions returns the standard engine settings.
func DefaultOptions() Options {
	return Options{
		Threads: 2,
		HashMB:  256,
		Depth:   12,
	}
}

// Evaluation is the outcome of a single engine query.
type Evaluation struct {
	// BestMove is the engine's chosen move in coordinate form ("e2e4").
	// For a constrained query it echoes the constrained move.
	BestMove string

	// Score is the evaluation, relative to the side to move in the
	// queried position.
	Score Score

	// Depth is the deepest completed search iteration.
	Depth int
}

// Engine wraps a UCI engine subprocess.
type Engine struct {
	path   string
	opts   Options
	cmd    *exec.Cmd
	stdin  *bufio.Writer
	stdout *bufio.Scanner
	closed bool
}

// New returns an engine handle for the given executable. The process
// is not launched until the first query needs it.
func New(path string, opts Options) *Engine {
	return &Engine{path: path, opts: opts}
}

// ensureStarted launches the engine process and completes the UCI
// handshake on first use.
func (e *Engine) ensureStarted() error {
	if e.closed {
		return ErrEngineClosed
	}
	if e.cmd != nil {
		return nil
	}

	cmd := exec.Command(e.path)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("engine stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("engine stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start engine %q: %w", e.path, err)
	}

	e.cmd = cmd
	e.stdin = bufio.NewWriter(stdin)
	e.stdout = bufio.NewScanner(stdout)

	if err := e.send("uci"); err != nil {
		return err
	}
	if !e.waitFor("uciok") {
		return fmt.Errorf("no uciok from %q: %w", e.path, ErrEngineClosed)
	}

	if err := e.send(fmt.Sprintf("setoption name Threads value %d", e.opts.Threads)); err != nil {
		return err
	}
	if err := e.send(fmt.Sprintf("setoption name Hash value %d", e.opts.HashMB)); err != nil {
		return err
	}

	if err := e.send("isready"); err != nil {
		return err
	}
	if !e.waitFor("readyok") {
		return fmt.Errorf("no readyok from %q: %w", e.path, ErrEngineClosed)
	}

	return nil
}

func (e *Engine) send(cmd string) error {
	if _, err := e.stdin.WriteString(cmd + "\n"); err != nil {
		return fmt.Errorf("write %q to engine: %w", cmd, err)
	}
	if err := e.stdin.Flush(); err != nil {
		return fmt.Errorf("write %q to engine: %w", cmd, err)
	}
	return nil
}

// waitFor consumes output until a line starting with the token appears.
// Returns false if the stream ends first.
func (e *Engine) waitFor(token string) bool {
	for e.stdout.Scan() {
		if strings.HasPrefix(e.stdout.Text(), token) {
			return true
		}
	}
	return false
}

// BestMove searches the position for the best achievable evaluation
// and the move that achieves it.
func (e *Engine) BestMove(fen string) (Evaluation, error) {
	return e.search(fen, "")
}

// EvalMove evaluates a single candidate move from the position by
// constraining the search to that move alone.
func (e *Engine) EvalMove(fen, moveUCI string) (Evaluation, error) {
	return e.search(fen, moveUCI)
}

func (e *Engine) search(fen, searchMove string) (Evaluation, error) {
	if err := e.ensureStarted(); err != nil {
		return Evaluation{}, err
	}

	if err := e.send("position fen " + fen); err != nil {
		return Evaluation{}, err
	}

	goCmd := fmt.Sprintf("go depth %d", e.opts.Depth)
	if searchMove != "" {
		goCmd += " searchmoves " + searchMove
	}
	if err := e.send(goCmd); err != nil {
		return Evaluation{}, err
	}

	var eval Evaluation
	sawScore := false

	for e.stdout.Scan() {
		line := e.stdout.Text()
		switch {
		case strings.HasPrefix(line, "info"):
			// Later iterations supersede earlier ones; the last full
			// score before bestmove is the final one.
			if score, depth, ok := parseInfo(line); ok {
				eval.Score = score
				eval.Depth = depth
				sawScore = true
			}
		case strings.HasPrefix(line, "bestmove"):
			fields := strings.Fields(line)
			if len(fields) > 1 {
				eval.BestMove = fields[1]
			}
			if !sawScore {
				return Evaluation{}, fmt.Errorf("engine reported no score for %q", fen)
			}
			if eval.BestMove == "" || eval.BestMove == "(none)" {
				return Evaluation{}, fmt.Errorf("engine found no move for %q", fen)
			}
			return eval, nil
		}
	}

	if err := e.stdout.Err(); err != nil {
		return Evaluation{}, fmt.Errorf("read engine output: %w: %w", err, ErrEngineClosed)
	}
	return Evaluation{}, fmt.Errorf("engine stream ended mid-search: %w", ErrEngineClosed)
}

// Close shuts the engine down. It is safe to call when the engine was
// never started and is a no-op on second call.
func (e *Engine) Close() error {
	if e.closed || e.cmd == nil {
		e.closed = true
		return nil
	}
	e.closed = true

	// The process may already be gone; quit is best-effort, Wait reaps.
	_ = e.send("quit")
	if err := e.cmd.Wait(); err != nil {
		return fmt.Errorf("engine shutdown: %w", err)
	}
	return nil
}
