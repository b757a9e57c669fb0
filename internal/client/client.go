// Package client provides a Go client for the Inkwell API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"inkwell/internal/models"
)

const sessionCookie = "token"

// ErrNotLoggedIn is returned by calls that need a session when none is held.
var ErrNotLoggedIn = errors.New("not logged in")

// User is the identity attached to the current session.
type User struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client is an Inkwell API client. The session cookie and the logged-in user
// are shared by every call made through the same Client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	base *url.URL
	mu   sync.RWMutex
	user *User
}

// New creates a client for the server at baseURL.
func New(baseURL string) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", base.Scheme)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		BaseURL:    base.String(),
		HTTPClient: &http.Client{Timeout: 30 * time.Second, Jar: jar},
		base:       base,
	}, nil
}

// CurrentUser returns the user of the held session, if any.
func (c *Client) CurrentUser() (User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return User{}, false
	}
	return *c.user, true
}

// SessionToken returns the session cookie value held by the client.
func (c *Client) SessionToken() string {
	for _, ck := range c.HTTPClient.Jar.Cookies(c.base) {
		if ck.Name == sessionCookie {
			return ck.Value
		}
	}
	return ""
}

// RestoreSession installs a previously saved session token and user.
func (c *Client) RestoreSession(token string, user User) {
	c.HTTPClient.Jar.SetCookies(c.base, []*http.Cookie{{
		Name:  sessionCookie,
		Value: token,
		Path:  "/",
	}})
	c.setUser(&user)
}

func (c *Client) setUser(u *User) {
	c.mu.Lock()
	c.user = u
	c.mu.Unlock()
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and decodes a 2xx JSON body into out (when non-nil).
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}
	req, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	apiErr := &APIError{Status: resp.StatusCode}

	var envelope models.ErrorResponse
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != "" {
		apiErr.Code = envelope.Code
		apiErr.Message = envelope.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return apiErr
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := c.doJSON(ctx, http.MethodPost, "/register",
		map[string]string{"username": username, "password": password}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates and keeps the session cookie for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (User, error) {
	var user User
	err := c.doJSON(ctx, http.MethodPost, "/login",
		map[string]string{"username": username, "password": password}, &user)
	if err != nil {
		return User{}, err
	}
	c.setUser(&user)
	return user, nil
}

// Profile returns the identity the server sees for the held session.
func (c *Client) Profile(ctx context.Context) (User, error) {
	var user User
	if err := c.doJSON(ctx, http.MethodGet, "/profile", nil, &user); err != nil {
		if IsStatus(err, http.StatusUnauthorized) {
			c.setUser(nil)
		}
		return User{}, err
	}
	c.setUser(&user)
	return user, nil
}

// Logout clears the session on the server and locally.
func (c *Client) Logout(ctx context.Context) error {
	err := c.doJSON(ctx, http.MethodPost, "/logout", nil, nil)
	c.HTTPClient.Jar.SetCookies(c.base, []*http.Cookie{{Name: sessionCookie, Path: "/", MaxAge: -1}})
	c.setUser(nil)
	return err
}

// ListPosts returns the most recent posts, newest first.
func (c *Client) ListPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := c.doJSON(ctx, http.MethodGet, "/post", nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// GetPost returns one post.
func (c *Client) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/post/%d", id), nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// PostInput carries the fields of a create or update. Cover is optional on update.
type PostInput struct {
	Title     string
	Summary   string
	Content   string
	CoverName string
	Cover     io.Reader
}

func (in PostInput) encode(extra map[string]string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"title":   in.Title,
		"summary": in.Summary,
		"content": in.Content,
	}
	for k, v := range extra {
		fields[k] = v
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	if in.Cover != nil {
		name := in.CoverName
		if name == "" {
			name = "cover"
		}
		part, err := w.CreateFormFile("file", name)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, in.Cover); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func (c *Client) sendPost(ctx context.Context, method string, in PostInput, extra map[string]string) (*models.Post, error) {
	if _, ok := c.CurrentUser(); !ok {
		return nil, ErrNotLoggedIn
	}
	body, contentType, err := in.encode(extra)
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, method, "/post", body, contentType)
	if err != nil {
		return nil, err
	}
	var post models.Post
	if err := c.do(req, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// CreatePost publishes a new post. A cover is required.
func (c *Client) CreatePost(ctx context.Context, in PostInput) (*models.Post, error) {
	if in.Cover == nil {
		return nil, errors.New("a cover image is required")
	}
	return c.sendPost(ctx, http.MethodPost, in, nil)
}

// UpdatePost replaces the post's text fields, and its cover when in.Cover is set.
func (c *Client) UpdatePost(ctx context.Context, id uint, in PostInput) (*models.Post, error) {
	return c.sendPost(ctx, http.MethodPut, in, map[string]string{"id": strconv.FormatUint(uint64(id), 10)})
}

// DeletePost removes a post owned by the current user.
func (c *Client) DeletePost(ctx context.Context, id uint) error {
	if _, ok := c.CurrentUser(); !ok {
		return ErrNotLoggedIn
	}
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/post/%d", id), nil, nil)
}

// CoverURL returns the absolute URL of a post's cover file.
func (c *Client) CoverURL(cover string) string {
	return c.BaseURL + "/" + strings.TrimLeft(cover, "/")
}
