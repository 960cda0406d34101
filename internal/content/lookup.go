// Package content exposes read-only lookups into the platform's content
// entities. Full CRUD for these entities lives in the content services;
// this slice exists for resolving notification references to a
// display-ready shape.
package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lumen-collective/lumenhub-api/internal/logger"
)

// ErrNotFound is returned when no entity exists for the given id.
var ErrNotFound = errors.New("content item not found")

// Summary is the display-ready shape of a content entity.
type Summary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

// Lookup resolves content entity ids to summaries.
type Lookup interface {
	Tool(ctx context.Context, id string) (*Summary, error)
	Project(ctx context.Context, id string) (*Summary, error)
	News(ctx context.Context, id string) (*Summary, error)
}

// PGLookup reads summaries from the platform's Postgres tables.
type PGLookup struct {
	db     *sql.DB
	logger *logger.Logger
}

func NewPGLookup(db *sql.DB, log *logger.Logger) *PGLookup {
	return &PGLookup{
		db:     db,
		logger: log.WithComponent("content_lookup"),
	}
}

func (l *PGLookup) Tool(ctx context.Context, id string) (*Summary, error) {
	return l.summary(ctx, "tools", id)
}

func (l *PGLookup) Project(ctx context.Context, id string) (*Summary, error) {
	return l.summary(ctx, "projects", id)
}

func (l *PGLookup) News(ctx context.Context, id string) (*Summary, error) {
	return l.summary(ctx, "news", id)
}

func (l *PGLookup) summary(ctx context.Context, table, id string) (*Summary, error) {
	// table is one of three compile-time constants, never user input.
	query := fmt.Sprintf(`SELECT id, title, slug FROM %s WHERE id = $1`, table)

	var s Summary
	err := l.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Title, &s.Slug)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s %s: %w", table, id, err)
	}

	return &s, nil
}
