// Command inkctl is a command-line client for the Inkwell API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

const version = "inkctl v1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "register":
		err = cmdRegister(ctx, args)
	case "login":
		err = cmdLogin(ctx, args)
	case "logout":
		err = cmdLogout(ctx, args)
	case "whoami", "status":
		err = cmdWhoami(ctx, args)
	case "list", "ls":
		err = cmdList(ctx, args)
	case "show", "read":
		err = cmdShow(ctx, args)
	case "create", "post":
		err = cmdCreate(ctx, args)
	case "edit", "update":
		err = cmdEdit(ctx, args)
	case "delete", "rm":
		err = cmdDelete(ctx, args)
	case "watch":
		err = cmdWatch(ctx, args)
	case "version", "-v", "--version":
		fmt.Println(version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(2)
	}

	if err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`inkctl - command-line client for Inkwell

Usage: inkctl <command> [options]

Account:
  register            Create an account (--username, --password)
  login               Log in and store the session (--username, --password)
  logout              Clear the stored session
  whoami              Show the logged-in user

Posts:
  list                List the most recent posts
  show <id>           Show one post
  create              Publish a post (--title, --summary, --content|--content-file, --cover)
  edit <id>           Update your post (same flags; --cover optional)
  delete <id>         Delete your post
  watch               Stream live post events

Common options:
  --server URL        API base URL (default $INKWELL_URL or http://localhost:4000)
  --session FILE      Session file (default $INKCTL_SESSION or <config dir>/inkctl/session.json)
  -o FORMAT           Output format: text, json or yaml

Examples:
  inkctl register --username ada --password 'correct-horse'
  inkctl login --username ada --password 'correct-horse'
  inkctl create --title "Hello" --summary "First post" --content-file hello.html --cover cover.png
  inkctl list -o yaml
  inkctl edit 3 --title "Hello again" --content-file hello.html
  inkctl watch`)
}
