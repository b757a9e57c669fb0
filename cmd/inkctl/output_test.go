package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func samplePost() models.Post {
	return models.Post{
		ID:        5,
		Title:     "Hello",
		Summary:   "first",
		Content:   "<p>hi</p>",
		Cover:     "uploads/abc.png",
		AuthorID:  2,
		Author:    &models.User{ID: 2, Username: "ada"},
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func coverURL(c string) string { return "http://localhost:4000/" + c }

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]outputFormat{"text": formatText, "JSON": formatJSON, "yaml": formatYAML, "yml": formatYAML} {
		got, err := parseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := parseFormat("xml")
	assert.Error(t, err)
}

func TestRender_YAML(t *testing.T) {
	var buf bytes.Buffer
	view := newPostView(samplePost(), coverURL, false)
	require.NoError(t, render(&buf, formatYAML, []postView{view}))

	var decoded []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "Hello", decoded[0]["title"])
	assert.Equal(t, "ada", decoded[0]["author"])
	assert.Equal(t, "http://localhost:4000/uploads/abc.png", decoded[0]["cover"])
	assert.NotContains(t, decoded[0], "content")
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	view := newPostView(samplePost(), coverURL, true)
	require.NoError(t, render(&buf, formatJSON, view))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "<p>hi</p>", decoded["content"])
	assert.EqualValues(t, 5, decoded["id"])
}

func TestRenderPostTable(t *testing.T) {
	var buf bytes.Buffer
	long := samplePost()
	long.Title = strings.Repeat("a", 80)
	require.NoError(t, renderPostTable(&buf, []postView{
		newPostView(samplePost(), coverURL, false),
		newPostView(long, coverURL, false),
	}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "Hello")
	assert.Contains(t, lines[2], "…")
	assert.NotContains(t, lines[2], strings.Repeat("a", 51))
}

func TestRenderEvent(t *testing.T) {
	event := models.PostEvent{Type: models.PostEventUpdated, PostID: 4, AuthorID: 2, Title: "New title", At: time.Now()}

	var text bytes.Buffer
	renderEventText(&text, event)
	assert.Contains(t, text.String(), "post_updated")
	assert.Contains(t, text.String(), `"New title"`)

	var out bytes.Buffer
	require.NoError(t, render(&out, formatYAML, newEventView(event)))
	assert.Contains(t, out.String(), "post_id: 4")
}
