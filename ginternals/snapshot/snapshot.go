// Package snapshot walks a working tree and records it into the object
// database as a tree of Blob and Tree objects, mirroring the reverse
// mapping implemented by ginternals/checkout.
package snapshot

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"

	"github.com/binarytree/git-go/backend"
	"github.com/binarytree/git-go/ginternals"
	"github.com/binarytree/git-go/ginternals/object"
)

// dotGitDir is the only directory name excluded from a snapshot.
const dotGitDir = ".git"

// WriteTree walks dir and persists its content as a tree of Blob and Tree
// objects in b. It returns the root tree, or a nil tree and a nil error
// if dir (after skipping .git) is entirely empty.
func WriteTree(fs afero.Fs, b backend.Backend, dir string) (*object.Tree, error) {
	entries, err := treeEntries(fs, b, dir)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	t := object.NewTree(entries)
	if _, err := b.WriteObject(t.ToObject()); err != nil {
		return nil, xerrors.Errorf("could not persist tree for %s: %w", dir, err)
	}
	return t, nil
}

// treeEntries walks the immediate children of dir and returns the
// TreeEntry built for each one. An empty sub-directory contributes no
// entry, per the write-tree design: a directory entirely made of empty
// directories yields no tree at all.
func treeEntries(fs afero.Fs, b backend.Backend, dir string) ([]object.TreeEntry, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, xerrors.Errorf("could not read directory %s: %w", dir, err)
	}
	// afero.ReadDir already sorts by name, but the on-disk order is
	// re-derived by object.NewTree's 0xFF-suffix rule regardless, so this
	// is only for deterministic iteration, not correctness.
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	entries := make([]object.TreeEntry, 0, len(infos))
	for _, info := range infos {
		name := info.Name()
		if name == dotGitDir {
			continue
		}
		path := filepath.Join(dir, name)

		entry, ok, err := buildEntry(fs, b, path, name, info)
		if err != nil {
			return nil, err
		}
		if ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// buildEntry determines the mode of path and persists whatever object it
// refers to, returning ok=false for an empty sub-directory.
func buildEntry(fs afero.Fs, b backend.Backend, path, name string, info os.FileInfo) (object.TreeEntry, bool, error) {
	mode, err := modeOf(fs, path, info)
	if err != nil {
		return object.TreeEntry{}, false, err
	}

	switch mode {
	case object.ModeDirectory:
		sub, err := treeEntries(fs, b, path)
		if err != nil {
			return object.TreeEntry{}, false, err
		}
		if len(sub) == 0 {
			return object.TreeEntry{}, false, nil
		}
		t := object.NewTree(sub)
		if _, err := b.WriteObject(t.ToObject()); err != nil {
			return object.TreeEntry{}, false, xerrors.Errorf("could not persist tree for %s: %w", path, err)
		}
		return object.TreeEntry{Path: name, ID: t.ID(), Mode: mode}, true, nil

	case object.ModeSymLink:
		target, err := os.Readlink(path)
		if err != nil {
			return object.TreeEntry{}, false, xerrors.Errorf("could not read symlink %s: %w", path, err)
		}
		id, err := writeBlob(b, []byte(target))
		if err != nil {
			return object.TreeEntry{}, false, err
		}
		return object.TreeEntry{Path: name, ID: id, Mode: mode}, true, nil

	default: // ModeFile or ModeExecutable
		content, err := afero.ReadFile(fs, path)
		if err != nil {
			return object.TreeEntry{}, false, xerrors.Errorf("could not read file %s: %w", path, err)
		}
		id, err := writeBlob(b, content)
		if err != nil {
			return object.TreeEntry{}, false, err
		}
		return object.TreeEntry{Path: name, ID: id, Mode: mode}, true, nil
	}
}

func writeBlob(b backend.Backend, content []byte) (ginternals.Oid, error) {
	oid, err := b.WriteObject(object.New(object.TypeBlob, content))
	if err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not persist blob: %w", err)
	}
	return oid, nil
}

// lstater is implemented by afero filesystems (e.g. the OS filesystem)
// that can stat a path without following a trailing symlink. It matches
// afero.Lstater.
type lstater interface {
	LstatIfPossible(name string) (os.FileInfo, bool, error)
}

// modeOf determines the tree mode of path following the write-tree rules:
// directory -> 40000, symlink -> 120000, any execute bit -> 100755,
// otherwise -> 100644.
func modeOf(fs afero.Fs, path string, info os.FileInfo) (object.TreeObjectMode, error) {
	if l, ok := fs.(lstater); ok {
		li, _, err := l.LstatIfPossible(path)
		if err != nil {
			return 0, xerrors.Errorf("could not lstat %s: %w", path, err)
		}
		info = li
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		return object.ModeSymLink, nil
	case info.IsDir():
		return object.ModeDirectory, nil
	case info.Mode()&0o111 != 0:
		return object.ModeExecutable, nil
	default:
		return object.ModeFile, nil
	}
}
