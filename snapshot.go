package git

import (
	"errors"

	"golang.org/x/xerrors"

	"github.com/binarytree/git-go/ginternals/object"
	"github.com/binarytree/git-go/ginternals/snapshot"
)

// ErrNoWorkingTree is returned by WriteTree on a bare repository, which
// has no working directory to snapshot.
var ErrNoWorkingTree = errors.New("repository has no working tree")

// WriteTree snapshots the repository's working directory into a tree
// object, persists it, and returns it. It returns a nil Tree if the
// working directory (recursively) contains nothing.
func (r *Repository) WriteTree() (*object.Tree, error) {
	if r.IsBare() {
		return nil, ErrNoWorkingTree
	}
	tree, err := snapshot.WriteTree(r.wt, r.dotGit, r.Config.WorkTreePath)
	if err != nil {
		return nil, xerrors.Errorf("could not snapshot working directory: %w", err)
	}
	return tree, nil
}
