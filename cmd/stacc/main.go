// stacc CLI - runs stacc programs, hosts the REPL and the language servers
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/tliron/commonlog"

	"github.com/chazu/stacc/history"
	"github.com/chazu/stacc/manifest"
	"github.com/chazu/stacc/server"
	"github.com/chazu/stacc/vm"

	_ "github.com/tliron/commonlog/simple"
)

var (
	// errUsage marks errors that should exit with status 2.
	errUsage = errors.New("usage error")
	// errSilent marks failures that were already reported.
	errSilent = errors.New("failed")
)

// cli holds what every mode needs: the resolved configuration and the
// output streams.
type cli struct {
	manifest  *manifest.Manifest
	imagePath string
	stdout    io.Writer
	stderr    io.Writer
}

func main() {
	verbose := flag.Int("v", -1, "Log verbosity; overrides the manifest")
	imagePath := flag.String("image", "", "Load this image before running; default from stacc.toml")
	serveMode := flag.Bool("serve", false, "Start the evaluation server (Connect HTTP/JSON)")
	servePort := flag.Int("port", 0, "Evaluation server port (used with -serve); default from stacc.toml")
	lspMode := flag.Bool("lsp", false, "Start the language server on stdio")
	noManifest := flag.Bool("no-manifest", false, "Ignore stacc.toml")

	flag.Usage = usage
	flag.Parse()

	m, err := loadManifest(*noManifest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *verbose >= 0 {
		m.Log.Verbosity = *verbose
	}
	configureLogging(m)

	c := &cli{
		manifest:  m,
		imagePath: m.ImagePath(),
		stdout:    os.Stdout,
		stderr:    os.Stderr,
	}
	if *imagePath != "" {
		c.imagePath = *imagePath
	}

	switch {
	case *lspMode:
		os.Exit(c.runLSP())
	case *serveMode:
		addr := m.Server.Addr
		if *servePort > 0 {
			addr = fmt.Sprintf(":%d", *servePort)
		}
		os.Exit(c.runServer(addr))
	}

	args := flag.Args()
	if len(args) > 0 {
		if cmd, ok := subcommands[args[0]]; ok {
			os.Exit(exitCode(c.stderr, cmd(c, args[1:])))
		}
		os.Exit(c.runFile(args[0]))
	}
	os.Exit(c.runREPL())
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: stacc [options] [file]\n")
	fmt.Fprintf(os.Stderr, "       stacc [options] <command> [args...]\n\n")
	fmt.Fprintf(os.Stderr, "Runs a stacc program, or starts the REPL when no file is given.\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  run [file]                 Run file, or the project entry from stacc.toml\n")
	fmt.Fprintf(os.Stderr, "  tokens <file>              Print the token stream\n")
	fmt.Fprintf(os.Stderr, "  ast <file>                 Print the syntax tree as YAML\n")
	fmt.Fprintf(os.Stderr, "  fmt [-w] <file>            Print canonical source, or rewrite the file\n")
	fmt.Fprintf(os.Stderr, "  history [-n N] [-session S] [-db path] [-clear]\n")
	fmt.Fprintf(os.Stderr, "                             Show or clear the REPL transcript\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  stacc                      # Start REPL\n")
	fmt.Fprintf(os.Stderr, "  stacc prog.stacc           # Run a program\n")
	fmt.Fprintf(os.Stderr, "  stacc -image s.img -serve  # Serve with state from an image on :4567\n")
	fmt.Fprintf(os.Stderr, "  stacc -lsp                 # Language server for editors\n")
}

// loadManifest finds stacc.toml from the working directory upwards. With
// none found, or when ignored, defaults apply.
func loadManifest(ignore bool) (*manifest.Manifest, error) {
	if ignore {
		return manifest.Default(), nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	m, err := manifest.FindAndLoad(cwd)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return manifest.Default(), nil
	}
	return m, nil
}

func configureLogging(m *manifest.Manifest) {
	var path *string
	if p := m.LogFilePath(); p != "" {
		path = &p
	}
	commonlog.Configure(m.Log.Verbosity, path)
}

// exitCode reports err on w and maps it to a process status.
func exitCode(w io.Writer, err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errSilent):
		return 1
	case errors.Is(err, errUsage):
		fmt.Fprintln(w, err)
		return 2
	default:
		fmt.Fprintln(w, err)
		return 1
	}
}

// newInterpreter creates an interpreter writing to stdout, seeded from the
// configured image when there is one.
func (c *cli) newInterpreter() (*vm.Interpreter, error) {
	in := vm.New(vm.WithOutput(c.stdout))
	snap, ok, err := c.loadImage()
	if err != nil {
		return nil, err
	}
	if ok {
		in.Restore(snap)
	}
	return in, nil
}

// loadImage reads the configured image. ok is false when no image is
// configured.
func (c *cli) loadImage() (vm.Snapshot, bool, error) {
	if c.imagePath == "" {
		return vm.Snapshot{}, false, nil
	}
	snap, err := vm.LoadImage(c.imagePath)
	if err != nil {
		return vm.Snapshot{}, false, err
	}
	return snap, true, nil
}

// openHistory opens the transcript database named by path, falling back
// to the manifest. It returns nil when neither names one.
func (c *cli) openHistory(path string) (*history.Store, error) {
	if path == "" {
		path = c.manifest.HistoryDBPath()
	}
	if path == "" {
		return nil, nil
	}
	return history.Open(path)
}

func (c *cli) runServer(addr string) int {
	var opts []server.ServerOption
	snap, ok, err := c.loadImage()
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}
	if ok {
		opts = append(opts, server.WithSeed(snap))
	}
	store, err := c.openHistory("")
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}
	if store != nil {
		defer store.Close()
		opts = append(opts, server.WithHistory(store))
	}

	srv := server.New(opts...)
	defer srv.Stop()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		srv.Stop()
	}()

	if err := srv.ListenAndServe(addr); err != nil {
		fmt.Fprintf(c.stderr, "Server error: %v\n", err)
		return 1
	}
	return 0
}

func (c *cli) runLSP() int {
	var opts []server.LspOption
	snap, ok, err := c.loadImage()
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}
	if ok {
		opts = append(opts, server.WithGlobals(snap))
	}
	if err := server.NewLSP(opts...).Run(); err != nil {
		fmt.Fprintf(c.stderr, "LSP error: %v\n", err)
		return 1
	}
	return 0
}
