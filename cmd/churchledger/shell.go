package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"churchledger/internal/core"
	"churchledger/pkg/domain"

	"golang.org/x/sync/errgroup"
)

const maxLoginAttempts = 3

func (a *app) shell(ctx context.Context, args []string) error {
	fs := a.flags("shell")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.login(ctx); err != nil {
		return err
	}
	a.remindBackup(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(a.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	a.lines = lines
	defer func() { a.lines = nil }()

	saver := core.NewAutoSaver(a.svc.Store(), a.cfg.AutoSaveInterval, a.logger)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return saver.Run(gctx) })
	g.Go(func() error {
		defer cancel()
		return a.repl(gctx, lines)
	})
	return g.Wait()
}

func (a *app) login(ctx context.Context) error {
	has, err := a.svc.HasUsers(ctx)
	if err != nil {
		return err
	}
	if !has {
		fmt.Fprintln(a.out, "No accounts registered; use 'user register' to require a login.")
		return nil
	}
	for attempt := 0; attempt < maxLoginAttempts; attempt++ {
		username, err := a.prompt("Username: ")
		if err != nil {
			return err
		}
		password, err := a.readPassword("Password: ")
		if err != nil {
			return err
		}
		if _, err := a.svc.Authenticate(ctx, username, password); err == nil {
			fmt.Fprintf(a.out, "Welcome, %s\n", username)
			return nil
		}
		fmt.Fprintln(a.out, "Invalid username or password!")
	}
	return domain.ErrInvalidCredentials
}

func (a *app) remindBackup(ctx context.Context) {
	due, err := a.svc.BackupDue(ctx, a.svc.Now())
	if err != nil {
		a.logger.Debug("backup check skipped", "error", err)
		return
	}
	if due {
		fmt.Fprintln(a.out, "No backup in the last 7 days; run 'export -blob' to store one.")
	}
}

func (a *app) repl(ctx context.Context, lines <-chan string) error {
	for {
		fmt.Fprint(a.out, "> ")
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(a.out)
				return nil
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		args, err := splitArgs(line)
		if err != nil {
			fmt.Fprintf(a.out, "Error: %v\n", err)
			continue
		}
		switch args[0] {
		case "help":
			printUsage(a.out)
			continue
		case "shell":
			fmt.Fprintln(a.out, "Already in a shell session")
			continue
		}
		if err := a.dispatch(ctx, args); err != nil && !errors.Is(err, errCancelled) {
			fmt.Fprintf(a.out, "Error: %v\n", err)
		}
	}
}

// splitArgs splits a line on spaces, keeping double or single quoted runs
// together.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		quote   rune
		inArg   bool
	)
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			current.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			inArg = true
		case r == ' ' || r == '\t':
			if inArg {
				args = append(args, current.String())
				current.Reset()
				inArg = false
			}
		default:
			current.WriteRune(r)
			inArg = true
		}
	}
	if quote != 0 {
		return nil, errors.New("unterminated quote")
	}
	if inArg {
		args = append(args, current.String())
	}
	return args, nil
}
