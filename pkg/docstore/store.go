// Package docstore provides the live document store the portal is built on:
// collections of schemaless documents addressed by slash-separated paths,
// snapshot subscriptions that re-deliver the full result set on every change,
// and partial-update writes.
package docstore

import (
	"context"
	"sort"
	"strings"

	"p9e.in/hallfix/models"
)

// Doc is one document in a snapshot.
type Doc struct {
	ID     string         `json:"id"`
	Path   string         `json:"path"`
	Fields models.JSONMap `json:"fields"`
}

// Snapshot is the full result set of a query at one point in time.
type Snapshot []Doc

// Query selects documents for a subscription. Collection is either a plain
// collection path ("users") or, with Group set, a leaf collection name
// matched across all parents (the collection-group form).
type Query struct {
	Collection string
	Group      bool

	// OrderByCreatedDesc sorts newest-first by the createdAt field;
	// documents without one sort last.
	OrderByCreatedDesc bool
	// Limit caps the result set after ordering; 0 means unlimited.
	Limit int

	// Equals are field equality filters.
	Equals map[string]string
	// ArrayContains requires a string-array field to contain a value.
	ArrayContains map[string]string
}

// Unsubscribe tears down a subscription. Safe to call more than once; a
// callback already scheduled when it is called may still fire and must be
// tolerated by the subscriber.
type Unsubscribe func()

// Store is the document-store contract the portal consumes. Implementations
// deliver an initial snapshot on Subscribe and a fresh full snapshot after
// every matching change; onErr signals a terminal failure for that
// subscription (distinct from an empty result).
type Store interface {
	Subscribe(q Query, onNext func(Snapshot), onErr func(error)) Unsubscribe

	// WriteFields merges fields into the document at path, creating it if
	// absent.
	WriteFields(ctx context.Context, path string, fields models.JSONMap) error

	// CreateDoc adds a document with a generated id under collectionPath.
	CreateDoc(ctx context.Context, collectionPath string, fields models.JSONMap) (Doc, error)

	// Fetch reads a collection once, newest first, without subscribing.
	Fetch(ctx context.Context, collectionPath string, limit int) (Snapshot, error)
}

// matches evaluates the non-structural filters of a query against one
// document. Collection/group routing is up to the implementation.
func (q Query) matches(fields models.JSONMap) bool {
	for key, want := range q.Equals {
		if fields.FieldString(key) != want {
			return false
		}
	}
	for key, want := range q.ArrayContains {
		found := false
		for _, item := range fields.FieldStrings(key) {
			if item == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// matchesPath routes a document path to a query: group queries match on the
// leaf collection name, plain queries on the exact parent collection path.
func (q Query) matchesPath(path string) bool {
	parent, id := models.SplitDocPath(path)
	if id == "" {
		return false
	}
	if q.Group {
		return models.LeafCollection(parent) == q.Collection
	}
	return parent == strings.Trim(q.Collection, "/")
}

// order applies the query's sort and limit to an evaluated result set.
func (q Query) order(docs []Doc) Snapshot {
	if q.OrderByCreatedDesc {
		sort.SliceStable(docs, func(i, j int) bool {
			a := docs[i].Fields.FieldTime("createdAt")
			b := docs[j].Fields.FieldTime("createdAt")
			if a.IsZero() != b.IsZero() {
				return !a.IsZero()
			}
			return a.After(b)
		})
	} else {
		sort.SliceStable(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	}
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs
}
