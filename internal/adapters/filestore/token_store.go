// Package filestore persists CLI session tokens in a YAML credentials file.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/target/media-console/internal/ports"
	"gopkg.in/yaml.v3"
)

const fileMode = 0o600

// credentials is the on-disk document.
type credentials struct {
	API    string            `yaml:"api,omitempty"`
	Tokens map[string]string `yaml:"tokens,omitempty"`
}

// TokenStore keeps tokens in a single YAML file. Writes replace the file atomically.
type TokenStore struct {
	path string
	api  string
	mu   sync.Mutex
}

var _ ports.TokenStore = (*TokenStore)(nil)

// NewTokenStore returns a store backed by path. api records which API base URL
// the tokens belong to; tokens saved for a different API are ignored.
func NewTokenStore(path, api string) *TokenStore {
	return &TokenStore{path: path, api: api}
}

// Path returns the credentials file location.
func (s *TokenStore) Path() string { return s.path }

// DefaultPath returns the credentials file under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "mediaconsole", "credentials.yaml"), nil
}

func (s *TokenStore) load() (credentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return credentials{}, nil
		}
		return credentials{}, fmt.Errorf("read credentials: %w", err)
	}
	var c credentials
	if err := yaml.Unmarshal(data, &c); err != nil {
		return credentials{}, fmt.Errorf("parse credentials %s: %w", s.path, err)
	}
	if s.api != "" && c.API != "" && c.API != s.api {
		return credentials{}, nil
	}
	return c, nil
}

func (s *TokenStore) save(c credentials) error {
	if len(c.Tokens) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove credentials: %w", err)
		}
		return nil
	}

	c.API = s.api
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp credentials: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func(cause error) error {
		_ = tmp.Close()
		return errors.Join(cause, os.Remove(tmpName))
	}

	if err := tmp.Chmod(fileMode); err != nil {
		return cleanup(fmt.Errorf("chmod credentials: %w", err))
	}
	if _, err := tmp.Write(data); err != nil {
		return cleanup(fmt.Errorf("write credentials: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return errors.Join(fmt.Errorf("close credentials: %w", err), os.Remove(tmpName))
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return errors.Join(fmt.Errorf("replace credentials: %w", err), os.Remove(tmpName))
	}
	return nil
}

// Get returns the stored value for key, or "" when absent.
func (s *TokenStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load()
	if err != nil {
		return "", err
	}
	return c.Tokens[key], nil
}

// Set stores value under key. An empty value removes the key.
func (s *TokenStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load()
	if err != nil {
		return err
	}
	if c.Tokens == nil {
		c.Tokens = map[string]string{}
	}
	if value == "" {
		delete(c.Tokens, key)
	} else {
		c.Tokens[key] = value
	}
	return s.save(c)
}

// Delete removes keys.
func (s *TokenStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load()
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(c.Tokens, k)
	}
	return s.save(c)
}
