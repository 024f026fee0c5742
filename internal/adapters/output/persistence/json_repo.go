package persistence

import (
	"ajax-cloud-bridge/internal/domain/model"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JSONCredentialsRepository stores the credentials produced by setup in a
// single JSON file.
type JSONCredentialsRepository struct {
	filepath string
	mu       sync.RWMutex
}

// configEntry is the layout exported by the home-automation host for one
// configured integration instance.
type configEntry struct {
	EntryID string            `json:"entry_id"`
	Title   string            `json:"title"`
	Data    model.Credentials `json:"data"`
}

func NewJSONCredentialsRepository(filepath string) *JSONCredentialsRepository {
	return &JSONCredentialsRepository{filepath: filepath}
}

// Get returns empty credentials when the file does not exist yet.
func (r *JSONCredentialsRepository) Get(ctx context.Context) (*model.Credentials, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.Credentials{}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	var creds model.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	if creds.Token == "" && creds.BackendURL == "" {
		return r.migrate(data)
	}

	return &creds, nil
}

// migrate reads a host config entry, where the credentials sit under "data".
func (r *JSONCredentialsRepository) migrate(data []byte) (*model.Credentials, error) {
	var entry configEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return &model.Credentials{}, nil
	}
	return &entry.Data, nil
}

func (r *JSONCredentialsRepository) Save(ctx context.Context, creds *model.Credentials) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(r.filepath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating credentials directory: %w", err)
		}
	}

	// The token grants control over the alarm; keep the file private.
	return os.WriteFile(r.filepath, data, 0o600)
}
