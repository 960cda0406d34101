package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/lumen-collective/lumenhub-api/internal/content"
)

// ResolvedItem is the display-ready shape of a related item reference.
type ResolvedItem struct {
	Kind  RelatedKind `json:"kind"`
	ID    string      `json:"id"`
	Title string      `json:"title"`
	Slug  string      `json:"slug"`
}

type resolveFunc func(ctx context.Context, id string) (*content.Summary, error)

// Resolver maps each related-item kind to its content lookup. Kinds are
// dispatched through a table rather than branching on loosely-coupled
// optional fields.
type Resolver struct {
	resolvers map[RelatedKind]resolveFunc
}

// NewResolver builds the dispatch table over the content lookup boundary.
func NewResolver(lookup content.Lookup) *Resolver {
	return &Resolver{
		resolvers: map[RelatedKind]resolveFunc{
			KindTool:    lookup.Tool,
			KindProject: lookup.Project,
			KindNews:    lookup.News,
		},
	}
}

// Resolve turns a related item reference into its display shape. A nil item
// resolves to nil. A reference to a since-deleted entity also resolves to
// nil rather than failing the whole list call.
func (r *Resolver) Resolve(ctx context.Context, item *RelatedItem) (*ResolvedItem, error) {
	if item == nil {
		return nil, nil
	}

	resolve, ok := r.resolvers[item.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidRelatedItem, item.Kind)
	}

	summary, err := resolve(ctx, item.ID)
	if errors.Is(err, content.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &ResolvedItem{
		Kind:  item.Kind,
		ID:    summary.ID,
		Title: summary.Title,
		Slug:  summary.Slug,
	}, nil
}
