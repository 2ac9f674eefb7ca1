// Package main provides the podpost CLI application.
//
// podpost signs in to a diaspora* pod and publishes status messages, either
// from the command line or from files dropped into an outbox directory.
// The CSRF token and session cookies are kept between runs.
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
)

// version is set during build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], globalOptions{stdin: os.Stdin, stdout: os.Stdout})
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the main application logic.
func run(ctx context.Context, args []string, g globalOptions) error {
	fs := flag.NewFlagSet("podpost", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "path to configuration file")
	showVersion := fs.Bool("version", false, "show version information")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return showUsage(g.stdout)
		}
		return err
	}

	if *showVersion {
		fmt.Fprintf(g.stdout, "podpost %s\n", version)
		return nil
	}

	args = fs.Args()
	if len(args) == 0 {
		return showUsage(g.stdout)
	}

	g.configPath = *configPath
	command, rest := args[0], args[1:]

	switch command {
	case "init":
		return runInitCommand(ctx, g, rest)
	case "login":
		return runLoginCommand(ctx, g, rest)
	case "aspects":
		return runListCommand(ctx, g, listAspects, rest)
	case "services":
		return runListCommand(ctx, g, listServices, rest)
	case "post":
		return runPostCommand(ctx, g, rest)
	case "delete":
		return runDeleteCommand(ctx, g, rest)
	case "history":
		return runHistoryCommand(g, rest)
	case "logout":
		return runLogoutCommand(g)
	case "reset":
		return runResetCommand(g)
	case "outbox":
		return runOutboxCommand(ctx, g, rest)
	case "config":
		cmd := &configCommand{configPath: g.configPath, out: g.stdout, in: g.stdin}
		return cmd.Execute(rest)
	case "help":
		return showUsage(g.stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// showUsage displays usage information.
func showUsage(w io.Writer) error {
	usage := `podpost - publish to a diaspora* pod from the command line

Usage:
  podpost [flags] <command> [command flags]

Commands:
  init        Connect to the pod and fetch a CSRF token
  login       Sign in with the configured account
  aspects     List the account's aspects
  services    List the connected services
  post        Publish a status message
  delete      Delete a post or comment
  history     Show the posts published from this machine
  logout      Forget the login, keep the session cookies
  reset       Forget token, cookies and login
  outbox      Publish files dropped into the outbox directory
  config      Configuration management (show, path, init)
  help        Show this help message

Global Flags:
  -config     Path to configuration file
  -version    Show version information

Post Command Flags:
  -aspects    Comma-separated aspect IDs, or "public" (default: public)
  -extra      Extra request field as key=value, repeatable; JSON values allowed
  -format     Output format (table, json, simple)

List and History Flags:
  -force      Reload aspects or services from the pod
  -format     Output format (table, json, simple)
  -limit      Show at most N posts (history only)

Examples:
  # Check the pod is reachable
  podpost init

  # Publish publicly
  podpost post "Hello pod"

  # Publish to two aspects
  podpost post -aspects 1,2 "Only for friends"

  # Publish from stdin, crossposting to twitter
  echo "Hello" | podpost post -extra 'services=["twitter"]' -

  # Delete a post
  podpost delete post 42

  # Watch the outbox
  podpost outbox

Version: %s
`

	fmt.Fprintf(w, usage, version)
	return nil
}
