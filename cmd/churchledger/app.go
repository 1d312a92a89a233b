package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"churchledger/internal/blob"
	"churchledger/internal/config"
	"churchledger/internal/core"
	"churchledger/internal/events"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type app struct {
	cfg      *config.Config
	svc      *core.Service
	logger   *slog.Logger
	registry *prometheus.Registry
	printer  *message.Printer

	stdin  io.Reader
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	// lines feeds input while a shell session owns stdin.
	lines <-chan string
}

func newApp(ctx context.Context, cfg *config.Config, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.Level()}))

	registry := prometheus.NewRegistry()
	metrics, err := core.NewPrometheusMetricsRecorder(registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	store, err := core.OpenPersistentStore(ctx, cfg.Storage(), nil)
	if err != nil {
		return nil, err
	}

	opts := []core.Option{
		core.WithLogger(logger),
		core.WithMetricsRecorder(metrics),
	}

	docs, err := blob.Open(ctx, cfg.Blob())
	if err != nil {
		logger.Warn("document store unavailable, backups disabled", "driver", cfg.BlobDriver, "error", err)
	} else {
		opts = append(opts, core.WithBlobStore(docs))
	}

	if cfg.AMQPURL != "" {
		pub, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, logger)
		if err != nil {
			logger.Warn("event publishing disabled", "error", err)
		} else {
			opts = append(opts, core.WithPublisher(pub))
		}
	}

	return &app{
		cfg:      cfg,
		svc:      core.NewService(store, opts...),
		logger:   logger,
		registry: registry,
		printer:  message.NewPrinter(language.German),
		stdin:    stdin,
		in:       bufio.NewReader(stdin),
		out:      stdout,
		errOut:   stderr,
	}, nil
}

func (a *app) close() error {
	var errs []error
	if err := a.svc.Store().Flush(context.Background()); err != nil {
		errs = append(errs, fmt.Errorf("flush: %w", err))
	}
	if err := a.svc.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(a.cfg.MetricsFile, a.registry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (a *app) readLine() (string, error) {
	if a.lines != nil {
		line, ok := <-a.lines
		if !ok {
			return "", io.EOF
		}
		return line, nil
	}
	line, err := a.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(a.out, label)
	line, err := a.readLine()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads without echo from a terminal, otherwise a plain line.
func (a *app) readPassword(label string) (string, error) {
	fmt.Fprint(a.out, label)
	if f, ok := a.stdin.(*os.File); ok && a.lines == nil && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return a.readLine()
}

// confirm asks a yes/no question; anything but y or yes declines.
func (a *app) confirm(question string) (bool, error) {
	answer, err := a.prompt(question + " [y/N]: ")
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
