package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/muesli/termenv"
	"github.com/peterh/liner"
	"github.com/tliron/commonlog"

	"github.com/chazu/stacc/compiler"
	"github.com/chazu/stacc/history"
	"github.com/chazu/stacc/manifest"
	"github.com/chazu/stacc/vm"
)

var replLog = commonlog.GetLogger("stacc.repl")

// lineReader reads one line of input after showing a prompt.
// *liner.State satisfies it.
type lineReader interface {
	Prompt(prompt string) (string, error)
}

// repl is an interactive session over one interpreter.
type repl struct {
	in        *vm.Interpreter
	lines     lineReader
	out       io.Writer
	errOut    *termenv.Output
	cfg       manifest.ReplConfig
	imagePath string

	history *history.Store // nil when the transcript is disabled
	session string

	// remember is called with each line of accepted input.
	remember func(line string)
}

func (c *cli) runREPL() int {
	in, err := c.newInterpreter()
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}
	store, err := c.openHistory("")
	if err != nil {
		fmt.Fprintf(c.stderr, "Warning: transcript disabled: %v\n", err)
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := c.manifest.HistoryFilePath()
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if err := os.MkdirAll(filepath.Dir(histPath), 0o755); err != nil {
				return
			}
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	r := &repl{
		in:        in,
		lines:     ln,
		out:       c.stdout,
		errOut:    termenv.NewOutput(c.stderr),
		cfg:       c.manifest.Repl,
		imagePath: c.imagePath,
		history:   store,
		session:   "repl-" + uuid.NewString(),
		remember:  ln.AppendHistory,
	}
	replLog.Infof("starting session %s", r.session)

	fmt.Fprintln(c.stdout, "stacc REPL (:help for commands, :quit to exit)")
	r.loop(context.Background())
	fmt.Fprintln(c.stdout)
	return 0
}

// loop reads and evaluates input until :quit or end of input.
func (r *repl) loop(ctx context.Context) {
	for {
		src, ok := r.read()
		if !ok {
			return
		}
		trimmed := strings.TrimSpace(src)
		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, ":"):
			if r.command(ctx, trimmed) {
				return
			}
		default:
			r.eval(ctx, src)
		}
	}
}

// read collects lines until they form complete input: anything that
// parses, or fails to parse for a reason other than running out of input.
// ok is false at end of input.
func (r *repl) read() (src string, ok bool) {
	var b strings.Builder
	for {
		prompt := r.cfg.Prompt
		if b.Len() > 0 {
			prompt = r.cfg.Continuation
		}
		line, err := r.lines.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			if b.Len() > 0 && !errors.Is(err, io.EOF) {
				return b.String(), true
			}
			return "", false
		}
		if r.remember != nil && strings.TrimSpace(line) != "" {
			r.remember(line)
		}

		b.WriteString(line)
		b.WriteByte('\n')

		// Commands are always a single line.
		if b.Len() == len(line)+1 && strings.HasPrefix(strings.TrimSpace(line), ":") {
			return b.String(), true
		}
		if _, err := compiler.Parse(b.String()); err == nil || !compiler.IsIncomplete(err) {
			return b.String(), true
		}
	}
}

// eval runs src and prints the state table on success.
func (r *repl) eval(ctx context.Context, src string) {
	stmts, err := compiler.Parse(src)
	if err != nil {
		msg := compiler.Diagnose(err, src).String()
		r.fail(msg)
		r.record(ctx, src, false, msg)
		return
	}
	if err := r.in.Run(stmts); err != nil {
		r.fail(err.Error())
		r.record(ctx, src, false, err.Error())
		return
	}
	if r.cfg.ShowState {
		writeState(r.out, r.in.State())
	}
	r.record(ctx, src, true, "")
}

func (r *repl) fail(msg string) {
	fmt.Fprintln(r.errOut, r.errOut.String(msg).Foreground(r.errOut.Color("1")))
}

func (r *repl) record(ctx context.Context, src string, ok bool, msg string) {
	if r.history == nil {
		return
	}
	_, err := r.history.Record(ctx, history.Entry{Session: r.session, Source: src, OK: ok, Message: msg})
	if err != nil {
		replLog.Warningf("recording input: %s", err)
	}
}

// command runs a REPL meta-command and reports whether the loop should
// stop.
func (r *repl) command(ctx context.Context, line string) (quit bool) {
	fields := strings.Fields(line)
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch fields[0] {
	case ":quit", ":q", ":exit":
		return true
	case ":help", ":h", ":?":
		fmt.Fprintln(r.out, "REPL Commands:")
		fmt.Fprintln(r.out, "  :help, :h, :?      Show this help")
		fmt.Fprintln(r.out, "  :state             Show global variables and stack")
		fmt.Fprintln(r.out, "  :reset             Clear global variables and stack")
		fmt.Fprintln(r.out, "  :save [path]       Write the global state to an image")
		fmt.Fprintln(r.out, "  :load [path]       Replace the global state from an image")
		fmt.Fprintln(r.out, "  :history [n]       Show the last n inputs of this session")
		fmt.Fprintln(r.out, "  :quit, :q          Exit REPL")
	case ":state":
		writeState(r.out, r.in.State())
	case ":reset":
		r.in.Reset()
		fmt.Fprintln(r.out, "state cleared")
	case ":save":
		path, ok := r.imageArg(arg)
		if !ok {
			return false
		}
		if err := vm.SaveImage(path, r.in.State()); err != nil {
			r.fail(err.Error())
			return false
		}
		fmt.Fprintf(r.out, "saved image to %s\n", path)
	case ":load":
		path, ok := r.imageArg(arg)
		if !ok {
			return false
		}
		snap, err := vm.LoadImage(path)
		if err != nil {
			r.fail(err.Error())
			return false
		}
		r.in.Restore(snap)
		fmt.Fprintf(r.out, "loaded image from %s\n", path)
	case ":history":
		r.showHistory(ctx, arg)
	default:
		fmt.Fprintf(r.out, "Unknown command: %s (type :help for commands)\n", fields[0])
	}
	return false
}

// imageArg picks the explicit path or the configured image path.
func (r *repl) imageArg(arg string) (string, bool) {
	if arg != "" {
		return arg, true
	}
	if r.imagePath != "" {
		return r.imagePath, true
	}
	r.fail("no image path configured; give one, as in :save state.img")
	return "", false
}

func (r *repl) showHistory(ctx context.Context, arg string) {
	if r.history == nil {
		r.fail("transcript disabled; set repl.history-db in stacc.toml")
		return
	}
	n := 10
	if arg != "" {
		v, err := strconv.Atoi(arg)
		if err != nil || v <= 0 {
			r.fail(fmt.Sprintf("invalid count %q", arg))
			return
		}
		n = v
	}
	entries, err := r.history.Recent(ctx, r.session, n)
	if err != nil {
		r.fail(err.Error())
		return
	}
	writeEntries(r.out, entries)
}

// writeEntries prints transcript entries, one input per block.
func writeEntries(w io.Writer, entries []history.Entry) {
	for _, e := range entries {
		status := "ok"
		if !e.OK {
			status = "error: " + e.Message
		}
		fmt.Fprintf(w, "[%d] %s  %s\n", e.ID, e.CreatedAt.Local().Format("2006-01-02 15:04:05"), status)
		for _, line := range strings.Split(strings.TrimRight(e.Source, "\n"), "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
}
