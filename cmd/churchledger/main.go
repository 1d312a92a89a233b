// Command churchledger manages church membership, contributions and expenses
// from the command line.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"churchledger/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage(stdout)
		if len(args) == 0 {
			return errors.New("missing command")
		}
		return nil
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, stdin, stdout, stderr)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(); cerr != nil {
			a.logger.Error("shutdown failed", "error", cerr)
		}
	}()

	if args[0] == "shell" {
		return a.shell(ctx, args[1:])
	}
	if err := a.dispatch(ctx, args); err != nil && !errors.Is(err, errCancelled) {
		return err
	}
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: churchledger <command> [flags]

Commands:
  church register|list
  member register|list|show|transfer|flag|delete
  tithe record|list
  expense record|list
  summary      income, expenses and balance for a period
  report       contributions by month, quarter or year
  top          largest contributors
  stats        membership and giving statistics
  types        totals per contribution type
  trend        monthly contribution trend
  export       write the church data document
  import       replace all church data from a document
  backups      list stored backup documents
  user register
  shell        interactive session with auto-save

Run 'churchledger <command> [subcommand] -h' for flags.
`)
}
