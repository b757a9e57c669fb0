package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"inkwell/internal/client"
)

// sessionFile is the on-disk record of a logged-in session.
type sessionFile struct {
	Server   string `json:"server"`
	Token    string `json:"token"`
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
}

func defaultSessionPath() string {
	if p := os.Getenv("INKCTL_SESSION"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".inkctl-session.json"
	}
	return filepath.Join(dir, "inkctl", "session.json")
}

// loadSession reads the session at path. A missing file yields (nil, nil).
func loadSession(path string) (*sessionFile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s sessionFile
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("corrupt session file %s: %w", path, err)
	}
	return &s, nil
}

// saveSession writes the client's current session to path with owner-only permissions.
func saveSession(path, server string, c *client.Client) error {
	user, ok := c.CurrentUser()
	token := c.SessionToken()
	if !ok || token == "" {
		return errors.New("no session to save")
	}

	data, err := json.MarshalIndent(sessionFile{
		Server:   server,
		Token:    token,
		UserID:   user.ID,
		Username: user.Username,
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func removeSession(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
