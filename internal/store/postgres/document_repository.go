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

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/intellitrader/portal/internal/model"
	"github.com/intellitrader/portal/internal/store"
	"github.com/jackc/pgx/v5"
)

// DefaultDocument is the row name used by the server.
const DefaultDocument = "portal"

// DocumentRepository implements store.Backend over a single JSONB row.
type DocumentRepository struct {
	db   *DB
	name string
}

// NewDocumentRepository creates a backend for the named document row.
func NewDocumentRepository(db *DB, name string) *DocumentRepository {
	if name == "" {
		name = DefaultDocument
	}
	return &DocumentRepository{db: db, name: name}
}

// Load retrieves the document
func (r *DocumentRepository) Load(ctx context.Context) (*model.Database, error) {
	var body []byte
	err := r.db.pool.QueryRow(ctx, `
		SELECT body FROM documents WHERE name = $1
	`, r.name).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", r.name, err)
	}

	var db model.Database
	if err := json.Unmarshal(body, &db); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", r.name, err)
	}
	return &db, nil
}

// Save upserts the document in one statement, so readers see the old or the
// new body.
func (r *DocumentRepository) Save(ctx context.Context, db *model.Database) error {
	body, err := json.Marshal(db)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	_, err = r.db.pool.Exec(ctx, `
		INSERT INTO documents (name, body, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at
	`, r.name, body)
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", r.name, err)
	}
	return nil
}

// Delete removes the document row.
func (r *DocumentRepository) Delete(ctx context.Context) error {
	_, err := r.db.pool.Exec(ctx, `DELETE FROM documents WHERE name = $1`, r.name)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", r.name, err)
	}
	return nil
}
