package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"inkwell/internal/models"

	"gopkg.in/yaml.v3"
)

type outputFormat string

const (
	formatText outputFormat = "text"
	formatJSON outputFormat = "json"
	formatYAML outputFormat = "yaml"
)

func parseFormat(s string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(s)); f {
	case formatText, formatJSON, formatYAML:
		return f, nil
	case "yml":
		return formatYAML, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
}

type userView struct {
	ID       uint   `json:"id" yaml:"id"`
	Username string `json:"username" yaml:"username"`
}

type eventView struct {
	Type     string    `json:"type" yaml:"type"`
	PostID   uint      `json:"post_id" yaml:"post_id"`
	AuthorID uint      `json:"author_id" yaml:"author_id"`
	Title    string    `json:"title,omitempty" yaml:"title,omitempty"`
	At       time.Time `json:"at" yaml:"at"`
}

func newEventView(e models.PostEvent) eventView {
	return eventView(e)
}

// postView is the structured rendering of a post.
type postView struct {
	ID        uint      `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Summary   string    `json:"summary,omitempty" yaml:"summary,omitempty"`
	Content   string    `json:"content,omitempty" yaml:"content,omitempty"`
	Author    string    `json:"author,omitempty" yaml:"author,omitempty"`
	AuthorID  uint      `json:"author_id" yaml:"author_id"`
	Cover     string    `json:"cover" yaml:"cover"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

func newPostView(p models.Post, coverURL func(string) string, withContent bool) postView {
	v := postView{
		ID:        p.ID,
		Title:     p.Title,
		Summary:   p.Summary,
		AuthorID:  p.AuthorID,
		Cover:     coverURL(p.Cover),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.Author != nil {
		v.Author = p.Author.Username
	}
	if withContent {
		v.Content = p.Content
	}
	return v
}

// render writes v as JSON or YAML; text rendering is left to the caller.
func render(w io.Writer, format outputFormat, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("render: unsupported format %q", format)
}

func renderPostTable(w io.Writer, posts []postView) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tCREATED")
	for _, p := range posts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.ID, truncate(p.Title, 50), p.Author, p.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func renderPostText(w io.Writer, p postView) {
	fmt.Fprintf(w, "#%d  %s\n", p.ID, p.Title)
	if p.Author != "" {
		fmt.Fprintf(w, "by %s, %s\n", p.Author, p.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(w, "cover: %s\n", p.Cover)
	if p.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", p.Summary)
	}
	if p.Content != "" {
		fmt.Fprintf(w, "\n%s\n", p.Content)
	}
}

func renderEventText(w io.Writer, e models.PostEvent) {
	line := fmt.Sprintf("%s  %-13s post=%d author=%d", e.At.Local().Format("15:04:05"), e.Type, e.PostID, e.AuthorID)
	if e.Title != "" {
		line += fmt.Sprintf(" %q", e.Title)
	}
	fmt.Fprintln(w, line)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
