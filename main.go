package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/antibyte/linebasic/pkg/auth"
	"github.com/antibyte/linebasic/pkg/configuration"
	"github.com/antibyte/linebasic/pkg/journal"
	"github.com/antibyte/linebasic/pkg/logger"
	"github.com/antibyte/linebasic/pkg/repl"
	"github.com/antibyte/linebasic/pkg/terminal"
	"github.com/antibyte/linebasic/pkg/tinybasic"
	tlsmanager "github.com/antibyte/linebasic/pkg/tls"
)

func main() {
	// Initialize configuration (before all other initializations)
	configPath := "settings.cfg"
	if err := configuration.Initialize(configPath); err != nil {
		fmt.Printf("Error initializing configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(); err != nil {
		fmt.Printf("Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()
	logger.ConfigInfo("System started - Configuration loaded from: %s", configPath)

	serverMode := configuration.GetBool("Server", "enabled", false)
	consoleMode := !serverMode && len(os.Args) <= 1

	// Im Konsolenmodus unterbricht Ctrl-C nur die laufende Zeile (siehe repl)
	signals := []os.Signal{syscall.SIGTERM}
	if !consoleMode {
		signals = append(signals, os.Interrupt)
	}
	ctx, stop := signal.NotifyContext(context.Background(), signals...)
	defer stop()

	var err error
	switch {
	case serverMode:
		err = runServer(ctx)
	case !consoleMode:
		err = runFile(ctx, os.Args[1])
	default:
		err = runConsole(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(logger.AreaGeneral, "exiting: %v", err)
		fmt.Fprintln(os.Stderr, err)
		logger.Close()
		os.Exit(1)
	}
}

// interpreterConfig builds the session settings from [Interpreter].
func interpreterConfig(sessionID string) tinybasic.Config {
	return tinybasic.Config{
		MaxGosubDepth: configuration.GetInt("Interpreter", "max_gosub_depth", tinybasic.MaxGosubDepth),
		InputPrompt:   configuration.GetString("Interpreter", "input_prompt", tinybasic.DefaultInputPrompt),
		SessionID:     sessionID,
	}
}

// runConsole runs one interactive session on stdin and stdout.
func runConsole(ctx context.Context) error {
	console := repl.New(os.Stdin, os.Stdout)
	defer console.Close()

	b := tinybasic.NewTinyBASIC(ctx, console, interpreterConfig("console"))
	return console.Loop(ctx, b, configuration.GetString("Interpreter", "prompt", ">"))
}

// runFile stores every line of path, then runs the program once. INPUT
// reads from stdin.
func runFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	console := tinybasic.NewStreamConsole(os.Stdin, os.Stdout)
	b := tinybasic.NewTinyBASIC(ctx, console, interpreterConfig(path))

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if err := b.InterpretLine(text); err != nil {
			return fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return b.InterpretLine("RUN")
}

// runServer serves sessions over WebSocket until ctx is cancelled.
func runServer(ctx context.Context) error {
	var recorder terminal.Recorder
	if configuration.GetBool("Journal", "enabled", true) {
		j, err := journal.Open(configuration.GetString("Journal", "database", "journal.db"))
		if err != nil {
			return err
		}
		defer j.Close()
		recorder = j
		http.HandleFunc("/api/journal", auth.RequireToken(j.HandleRecent))
	}

	handler := terminal.NewTerminalHandler(ctx, recorder)
	http.HandleFunc("/api/session", auth.HandleCreateSession)
	http.HandleFunc("/ws", handler.HandleWebSocket)

	tlsManager, err := tlsmanager.NewTLSManager(tlsmanager.LoadConfig())
	if err != nil {
		return err
	}

	servers := []*http.Server{}
	errorChan := make(chan error, 2)
	start := func(srv *http.Server, useTLS bool) {
		servers = append(servers, srv)
		go func() {
			var err error
			if useTLS {
				err = srv.ListenAndServeTLS("", "")
			} else {
				err = srv.ListenAndServe()
			}
			if !errors.Is(err, http.ErrServerClosed) {
				errorChan <- fmt.Errorf("server on %s: %w", srv.Addr, err)
			}
		}()
	}
	newServer := func(addr string, h http.Handler) *http.Server {
		return &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
			ErrorLog:          logger.StdLogger(logger.AreaTerminal, logger.WARN),
		}
	}

	if tlsManager.IsEnabled() {
		srv := newServer(tlsManager.HTTPSAddr(), http.DefaultServeMux)
		srv.TLSConfig = tlsManager.TLSConfig()
		logger.Info(logger.AreaTLS, "Starting HTTPS server on %s", srv.Addr)
		start(srv, true)
		if tlsManager.NeedsHTTPServer() {
			logger.Info(logger.AreaTLS, "Starting HTTP server for challenges/redirects on %s", tlsManager.HTTPAddr())
			start(newServer(tlsManager.HTTPAddr(), tlsManager.HTTPHandler(http.DefaultServeMux)), false)
		}
	} else {
		logger.Info(logger.AreaGeneral, "Starting HTTP server on %s", tlsManager.HTTPAddr())
		start(newServer(tlsManager.HTTPAddr(), http.DefaultServeMux), false)
	}
	fmt.Printf("Serving BASIC sessions (%d listener(s)), press Ctrl-C to stop.\n", len(servers))

	select {
	case err = <-errorChan:
	case <-ctx.Done():
	}

	logger.Info(logger.AreaGeneral, "Shutting down")
	handler.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, srv := range servers {
		srv.Shutdown(shutdownCtx)
	}
	return err
}
