package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/lumen-collective/lumenhub-api/internal/content"
)

type fakeLookup struct {
	tools    map[string]content.Summary
	projects map[string]content.Summary
	news     map[string]content.Summary
}

func (f *fakeLookup) Tool(ctx context.Context, id string) (*content.Summary, error) {
	return lookupIn(f.tools, id)
}

func (f *fakeLookup) Project(ctx context.Context, id string) (*content.Summary, error) {
	return lookupIn(f.projects, id)
}

func (f *fakeLookup) News(ctx context.Context, id string) (*content.Summary, error) {
	return lookupIn(f.news, id)
}

func lookupIn(m map[string]content.Summary, id string) (*content.Summary, error) {
	if s, ok := m[id]; ok {
		return &s, nil
	}
	return nil, content.ErrNotFound
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		tools:    map[string]content.Summary{"t1": {ID: "t1", Title: "Formatter", Slug: "formatter"}},
		projects: map[string]content.Summary{"p1": {ID: "p1", Title: "Orbit", Slug: "orbit"}},
		news:     map[string]content.Summary{"n1": {ID: "n1", Title: "Launch", Slug: "launch"}},
	}
}

func TestResolverDispatchesByKind(t *testing.T) {
	r := NewResolver(newFakeLookup())

	cases := []struct {
		kind  RelatedKind
		id    string
		title string
	}{
		{KindTool, "t1", "Formatter"},
		{KindProject, "p1", "Orbit"},
		{KindNews, "n1", "Launch"},
	}

	for _, tc := range cases {
		resolved, err := r.Resolve(context.Background(), &RelatedItem{Kind: tc.kind, ID: tc.id})
		if err != nil {
			t.Fatalf("%s/%s: resolve failed: %v", tc.kind, tc.id, err)
		}
		if resolved == nil {
			t.Fatalf("%s/%s: expected a resolved item", tc.kind, tc.id)
		}
		if resolved.Title != tc.title || resolved.Kind != tc.kind || resolved.ID != tc.id {
			t.Errorf("%s/%s: unexpected resolution: %+v", tc.kind, tc.id, resolved)
		}
	}
}

func TestResolverNilItem(t *testing.T) {
	r := NewResolver(newFakeLookup())

	resolved, err := r.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved != nil {
		t.Errorf("expected nil for a notification without a related item, got %+v", resolved)
	}
}

func TestResolverDeletedEntityResolvesToNil(t *testing.T) {
	r := NewResolver(newFakeLookup())

	resolved, err := r.Resolve(context.Background(), &RelatedItem{Kind: KindProject, ID: "gone"})
	if err != nil {
		t.Fatalf("a deleted entity must not fail the resolve: %v", err)
	}
	if resolved != nil {
		t.Errorf("expected nil for a deleted entity, got %+v", resolved)
	}
}

func TestResolverUnknownKind(t *testing.T) {
	r := NewResolver(newFakeLookup())

	_, err := r.Resolve(context.Background(), &RelatedItem{Kind: "Widget", ID: "w1"})
	if !errors.Is(err, ErrInvalidRelatedItem) {
		t.Errorf("expected ErrInvalidRelatedItem, got %v", err)
	}
}
