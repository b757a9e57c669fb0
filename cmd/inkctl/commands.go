package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"inkwell/internal/client"
	"inkwell/internal/models"
)

var errUsage = errors.New("usage")

// env holds the options shared by every command.
type env struct {
	server      string
	sessionPath string
	format      outputFormat
	out         io.Writer

	formatFlag string
}

func newFlagSet(name string) (*flag.FlagSet, *env) {
	e := &env{out: os.Stdout}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	defaultServer := os.Getenv("INKWELL_URL")
	if defaultServer == "" {
		defaultServer = "http://localhost:4000"
	}
	fs.StringVar(&e.server, "server", defaultServer, "API base URL")
	fs.StringVar(&e.sessionPath, "session", defaultSessionPath(), "session file")
	fs.StringVar(&e.formatFlag, "o", string(formatText), "output format: text, json or yaml")
	return fs, e
}

func (e *env) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	f, err := parseFormat(e.formatFlag)
	if err != nil {
		return err
	}
	e.format = f
	return nil
}

// client builds an API client, restoring the stored session when it belongs to the same server.
func (e *env) client() (*client.Client, error) {
	c, err := client.New(e.server)
	if err != nil {
		return nil, err
	}
	sess, err := loadSession(e.sessionPath)
	if err != nil {
		return nil, err
	}
	if sess != nil && sess.Token != "" && strings.TrimRight(sess.Server, "/") == c.BaseURL {
		c.RestoreSession(sess.Token, client.User{ID: sess.UserID, Username: sess.Username})
	}
	return c, nil
}

// splitID pulls a leading positional id so flags may follow it.
func splitID(args []string) (uint, []string, error) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return 0, args, errors.New("a post id is required")
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil || id == 0 {
		return 0, args, fmt.Errorf("invalid post id %q", args[0])
	}
	return uint(id), args[1:], nil
}

func cmdRegister(ctx context.Context, args []string) error {
	fs, e := newFlagSet("register")
	username := fs.String("username", "", "username (3-30 letters, digits, _ or -)")
	password := fs.String("password", "", "password (8-72 bytes)")
	login := fs.Bool("login", true, "log in after registering")
	if err := e.parse(fs, args); err != nil {
		return err
	}
	if *username == "" || *password == "" {
		return errors.New("--username and --password are required")
	}

	c, err := e.client()
	if err != nil {
		return err
	}
	user, err := c.Register(ctx, *username, *password)
	if err != nil {
		return err
	}
	if e.format != formatText {
		return render(e.out, e.format, userView{ID: user.ID, Username: user.Username})
	}
	fmt.Fprintf(e.out, "Registered %s (id %d)\n", user.Username, user.ID)

	if !*login {
		return nil
	}
	return loginAndSave(ctx, e, c, *username, *password)
}

func cmdLogin(ctx context.Context, args []string) error {
	fs, e := newFlagSet("login")
	username := fs.String("username", "", "username")
	password := fs.String("password", "", "password")
	if err := e.parse(fs, args); err != nil {
		return err
	}
	if *username == "" || *password == "" {
		return errors.New("--username and --password are required")
	}

	c, err := e.client()
	if err != nil {
		return err
	}
	return loginAndSave(ctx, e, c, *username, *password)
}

func loginAndSave(ctx context.Context, e *env, c *client.Client, username, password string) error {
	user, err := c.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if err := saveSession(e.sessionPath, c.BaseURL, c); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if e.format != formatText {
		return render(e.out, e.format, userView(user))
	}
	fmt.Fprintf(e.out, "Logged in as %s\n", user.Username)
	return nil
}

func cmdLogout(ctx context.Context, args []string) error {
	fs, e := newFlagSet("logout")
	if err := e.parse(fs, args); err != nil {
		return err
	}
	c, err := e.client()
	if err != nil {
		return err
	}
	logoutErr := c.Logout(ctx)
	if err := removeSession(e.sessionPath); err != nil {
		return err
	}
	if logoutErr != nil {
		fmt.Fprintf(os.Stderr, "warning: server logout failed: %v\n", logoutErr)
	}
	fmt.Fprintln(e.out, "Logged out")
	return nil
}

func cmdWhoami(ctx context.Context, args []string) error {
	fs, e := newFlagSet("whoami")
	if err := e.parse(fs, args); err != nil {
		return err
	}
	c, err := e.client()
	if err != nil {
		return err
	}
	if _, ok := c.CurrentUser(); !ok {
		return client.ErrNotLoggedIn
	}
	user, err := c.Profile(ctx)
	if err != nil {
		return err
	}
	if e.format != formatText {
		return render(e.out, e.format, userView(user))
	}
	fmt.Fprintf(e.out, "%s (id %d) on %s\n", user.Username, user.ID, c.BaseURL)
	return nil
}

func cmdList(ctx context.Context, args []string) error {
	fs, e := newFlagSet("list")
	if err := e.parse(fs, args); err != nil {
		return err
	}
	c, err := e.client()
	if err != nil {
		return err
	}
	posts, err := c.ListPosts(ctx)
	if err != nil {
		return err
	}

	views := make([]postView, 0, len(posts))
	for _, p := range posts {
		views = append(views, newPostView(p, c.CoverURL, false))
	}
	if e.format != formatText {
		return render(e.out, e.format, views)
	}
	if len(views) == 0 {
		fmt.Fprintln(e.out, "No posts yet.")
		return nil
	}
	return renderPostTable(e.out, views)
}

func cmdShow(ctx context.Context, args []string) error {
	id, rest, err := splitID(args)
	if err != nil {
		return err
	}
	fs, e := newFlagSet("show")
	if err := e.parse(fs, rest); err != nil {
		return err
	}
	c, err := e.client()
	if err != nil {
		return err
	}
	post, err := c.GetPost(ctx, id)
	if err != nil {
		return err
	}
	view := newPostView(*post, c.CoverURL, true)
	if e.format != formatText {
		return render(e.out, e.format, view)
	}
	renderPostText(e.out, view)
	return nil
}

// postFlags registers the post field flags shared by create and edit.
type postFlags struct {
	title, summary, content, contentFile, cover *string
}

func addPostFlags(fs *flag.FlagSet) postFlags {
	return postFlags{
		title:       fs.String("title", "", "post title"),
		summary:     fs.String("summary", "", "short summary"),
		content:     fs.String("content", "", "post body (HTML)"),
		contentFile: fs.String("content-file", "", "read the post body from this file (- for stdin)"),
		cover:       fs.String("cover", "", "cover image file"),
	}
}

// input builds the request fields. The returned closer releases the cover file.
func (pf postFlags) input() (client.PostInput, func(), error) {
	in := client.PostInput{
		Title:   *pf.title,
		Summary: *pf.summary,
		Content: *pf.content,
	}
	noop := func() {}

	if *pf.contentFile != "" {
		var (
			data []byte
			err  error
		)
		if *pf.contentFile == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(*pf.contentFile)
		}
		if err != nil {
			return in, noop, fmt.Errorf("read content: %w", err)
		}
		in.Content = string(data)
	}

	if *pf.cover == "" {
		return in, noop, nil
	}
	f, err := os.Open(*pf.cover)
	if err != nil {
		return in, noop, fmt.Errorf("open cover: %w", err)
	}
	in.Cover = f
	in.CoverName = filepath.Base(*pf.cover)
	return in, func() { _ = f.Close() }, nil
}

func cmdCreate(ctx context.Context, args []string) error {
	fs, e := newFlagSet("create")
	pf := addPostFlags(fs)
	if err := e.parse(fs, args); err != nil {
		return err
	}
	if *pf.title == "" || *pf.cover == "" {
		return errors.New("--title and --cover are required")
	}

	in, closeCover, err := pf.input()
	if err != nil {
		return err
	}
	defer closeCover()

	c, err := e.client()
	if err != nil {
		return err
	}
	post, err := c.CreatePost(ctx, in)
	if err != nil {
		return err
	}
	return printPostResult(e, c, "Created", post)
}

func cmdEdit(ctx context.Context, args []string) error {
	id, rest, err := splitID(args)
	if err != nil {
		return err
	}
	fs, e := newFlagSet("edit")
	pf := addPostFlags(fs)
	if err := e.parse(fs, rest); err != nil {
		return err
	}

	c, err := e.client()
	if err != nil {
		return err
	}

	// Updates replace every text field, so unset flags keep the current values.
	current, err := c.GetPost(ctx, id)
	if err != nil {
		return err
	}
	in, closeCover, err := pf.input()
	if err != nil {
		return err
	}
	defer closeCover()

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if !set["title"] {
		in.Title = current.Title
	}
	if !set["summary"] {
		in.Summary = current.Summary
	}
	if !set["content"] && !set["content-file"] {
		in.Content = current.Content
	}

	post, err := c.UpdatePost(ctx, id, in)
	if err != nil {
		return err
	}
	return printPostResult(e, c, "Updated", post)
}

func printPostResult(e *env, c *client.Client, verb string, post *models.Post) error {
	view := newPostView(*post, c.CoverURL, false)
	if e.format != formatText {
		return render(e.out, e.format, view)
	}
	fmt.Fprintf(e.out, "%s post #%d %q\n", verb, view.ID, view.Title)
	return nil
}

func cmdDelete(ctx context.Context, args []string) error {
	id, rest, err := splitID(args)
	if err != nil {
		return err
	}
	fs, e := newFlagSet("delete")
	if err := e.parse(fs, rest); err != nil {
		return err
	}
	c, err := e.client()
	if err != nil {
		return err
	}
	if err := c.DeletePost(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Deleted post #%d\n", id)
	return nil
}

func cmdWatch(ctx context.Context, args []string) error {
	fs, e := newFlagSet("watch")
	if err := e.parse(fs, args); err != nil {
		return err
	}
	c, err := e.client()
	if err != nil {
		return err
	}
	if e.format == formatText {
		fmt.Fprintf(os.Stderr, "Watching %s for post events (Ctrl-C to stop)\n", c.BaseURL)
	}

	var renderErr error
	err = c.Watch(ctx, func(event models.PostEvent) {
		if e.format == formatText {
			renderEventText(e.out, event)
			return
		}
		if err := render(e.out, e.format, newEventView(event)); err != nil && renderErr == nil {
			renderErr = err
		}
	})
	if err != nil {
		return err
	}
	return renderErr
}
