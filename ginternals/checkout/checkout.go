// Package checkout materializes a commit's tree onto a working directory,
// the reverse mapping of ginternals/snapshot.
package checkout

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"

	"github.com/binarytree/git-go/backend"
	"github.com/binarytree/git-go/ginternals"
	"github.com/binarytree/git-go/ginternals/object"
)

// Commit reads the commit at commitHash from b and materializes its tree
// into dest.
func Commit(fs afero.Fs, b backend.Backend, commitHash ginternals.Oid, dest string) error {
	o, err := b.Object(commitHash)
	if err != nil {
		return xerrors.Errorf("could not get commit %s: %w", commitHash.String(), err)
	}
	c, err := o.AsCommit()
	if err != nil {
		return xerrors.Errorf("%s is not a commit: %w", commitHash.String(), err)
	}
	return Tree(fs, b, c.TreeID(), dest)
}

// Tree recursively materializes the tree at treeID into dest: directories
// are created, files and executables are written with their POSIX mode,
// and symlinks are recreated pointing at their recorded target.
func Tree(fs afero.Fs, b backend.Backend, treeID ginternals.Oid, dest string) error {
	if err := fs.MkdirAll(dest, 0o755); err != nil {
		return xerrors.Errorf("could not create directory %s: %w", dest, err)
	}

	o, err := b.Object(treeID)
	if err != nil {
		return xerrors.Errorf("could not get tree %s: %w", treeID.String(), err)
	}
	t, err := o.AsTree()
	if err != nil {
		return xerrors.Errorf("%s is not a tree: %w", treeID.String(), err)
	}

	for _, e := range t.Entries() {
		path := filepath.Join(dest, e.Path)
		switch e.Mode {
		case object.ModeDirectory:
			if err := Tree(fs, b, e.ID, path); err != nil {
				return err
			}
		case object.ModeFile, object.ModeExecutable:
			if err := writeFile(fs, b, e, path); err != nil {
				return err
			}
		case object.ModeSymLink:
			if err := writeSymlink(b, e, path); err != nil {
				return err
			}
		default:
			return xerrors.Errorf("unsupported tree entry mode %o for %s", e.Mode, path)
		}
	}
	return nil
}

// filePerm returns the POSIX permission bits materialized files get: 0o755
// for executables, 0o644 otherwise.
func filePerm(mode object.TreeObjectMode) os.FileMode {
	if mode == object.ModeExecutable {
		return 0o755
	}
	return 0o644
}

func writeFile(fs afero.Fs, b backend.Backend, e object.TreeEntry, path string) error {
	o, err := b.Object(e.ID)
	if err != nil {
		return xerrors.Errorf("could not get blob %s for %s: %w", e.ID.String(), path, err)
	}
	content := o.Bytes()

	perm := filePerm(e.Mode)
	if err := afero.WriteFile(fs, path, content, perm); err != nil {
		return xerrors.Errorf("could not write file %s: %w", path, err)
	}
	if err := fs.Chmod(path, perm); err != nil {
		return xerrors.Errorf("could not set permissions on %s: %w", path, err)
	}

	written, err := fileSize(fs, path)
	if err != nil {
		return err
	}
	if written != int64(len(content)) {
		return xerrors.Errorf("wrote %d bytes to %s, expected %d: %w", written, path, len(content), object.ErrObjectInvalid)
	}
	return nil
}

func fileSize(fs afero.Fs, path string) (int64, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return 0, xerrors.Errorf("could not stat %s: %w", path, err)
	}
	return info.Size(), nil
}

// writeSymlink recreates a symlink entry. afero.Fs has no symlink
// primitive, so this always goes through the real filesystem; the working
// tree materialized by clone is never a virtual one in practice.
func writeSymlink(b backend.Backend, e object.TreeEntry, path string) error {
	o, err := b.Object(e.ID)
	if err != nil {
		return xerrors.Errorf("could not get blob %s for symlink %s: %w", e.ID.String(), path, err)
	}
	target := strings.TrimRight(string(o.Bytes()), " \t\r\n")

	_ = os.Remove(path)
	if err := os.Symlink(target, path); err != nil {
		return xerrors.Errorf("could not create symlink %s: %w", path, err)
	}
	return nil
}
