package git

import (
	"fmt"

	"github.com/binarytree/git-go/backend"
	"github.com/binarytree/git-go/ginternals"
	"github.com/binarytree/git-go/ginternals/object"
)

// TreeBuilder is used to build a tree, one entry at a time, before
// persisting it to the odb.
type TreeBuilder struct {
	backend backend.Backend
	entries map[string]object.TreeEntry
}

// NewTreeBuilder creates a new, empty tree builder
func (r *Repository) NewTreeBuilder() *TreeBuilder {
	return &TreeBuilder{
		backend: r.dotGit,
	}
}

// NewTreeBuilderFromTree creates a new tree builder pre-populated with
// the entries of an existing tree
func (r *Repository) NewTreeBuilderFromTree(t *object.Tree) *TreeBuilder {
	entries := make(map[string]object.TreeEntry, len(t.Entries()))
	for _, e := range t.Entries() {
		entries[e.Path] = e
	}
	return &TreeBuilder{
		backend: r.dotGit,
		entries: entries,
	}
}

// Insert adds or replaces an entry in the tree being built. The object
// being inserted must already exist in the odb.
func (tb *TreeBuilder) Insert(path string, oid ginternals.Oid, mode object.TreeObjectMode) error {
	if !mode.IsValid() {
		//nolint:goerr113 // no need to wrap the error, this would only be caused by a bug in the codebase
		return fmt.Errorf("invalid mode %o", mode)
	}

	o, err := tb.backend.Object(oid)
	if err != nil {
		return fmt.Errorf("cannot verify object: %w", err)
	}
	if o.Type() != object.TypeBlob && o.Type() != object.TypeTree {
		return fmt.Errorf("unexpected object %s: %w", o.Type().String(), object.ErrObjectInvalid)
	}

	if tb.entries == nil {
		tb.entries = map[string]object.TreeEntry{}
	}
	tb.entries[path] = object.TreeEntry{
		Mode: mode,
		Path: path,
		ID:   oid,
	}
	return nil
}

// Remove removes an entry from the tree being built
func (tb *TreeBuilder) Remove(path string) {
	delete(tb.entries, path)
}

// Write creates and persists a new Tree object from the entries
// accumulated so far
func (tb *TreeBuilder) Write() (*object.Tree, error) {
	entries := make([]object.TreeEntry, 0, len(tb.entries))
	for _, e := range tb.entries {
		entries = append(entries, e)
	}

	t := object.NewTree(entries)
	if _, err := tb.backend.WriteObject(t.ToObject()); err != nil {
		return nil, fmt.Errorf("could not persist tree to the odb: %w", err)
	}
	return t, nil
}
