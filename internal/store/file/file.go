// Copyright 2026 The Intellitrader Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package file persists the portal document as one JSON file.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/intellitrader/portal/internal/model"
	"github.com/intellitrader/portal/internal/store"
)

// FileName is the document file inside the data directory.
const FileName = "db.json"

// Backend stores the document at <dir>/db.json. Saves write a sibling
// temporary file and rename it over the target, so readers see either the
// old or the new document.
type Backend struct {
	dir  string
	path string
}

// New creates a backend rooted at dir. The directory is created on first save.
func New(dir string) *Backend {
	return &Backend{dir: dir, path: filepath.Join(dir, FileName)}
}

// Path returns the document file path.
func (b *Backend) Path() string {
	return b.path
}

// Load reads and decodes the document.
func (b *Backend) Load(_ context.Context) (*model.Database, error) {
	raw, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, store.ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", b.path, err)
	}

	var db model.Database
	if err := json.Unmarshal(raw, &db); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", b.path, err)
	}
	return &db, nil
}

// Save writes the document atomically.
func (b *Backend) Save(_ context.Context, db *model.Database) error {
	raw, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(b.dir, FileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, b.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", b.path, err)
	}
	return nil
}
