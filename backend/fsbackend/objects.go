package fsbackend

import (
	"compress/zlib"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"

	"github.com/binarytree/git-go/backend"
	"github.com/binarytree/git-go/ginternals"
	"github.com/binarytree/git-go/ginternals/object"
	"github.com/binarytree/git-go/internal/errutil"
	"github.com/binarytree/git-go/internal/gitpath"
	"github.com/binarytree/git-go/internal/readutil"
)

// Object returns the object that has given oid
func (b *Backend) Object(oid ginternals.Oid) (*object.Object, error) {
	if cached, found := b.cache.Get(oid); found {
		if o, valid := cached.(*object.Object); valid {
			return o, nil
		}
	}

	o, err := b.looseObject(oid)
	if err != nil {
		return nil, err
	}
	b.cache.Add(oid, o)
	return o, nil
}

// looseObjectPath returns the absolute path of an object
// .git/object/first_2_chars_of_sha/remaining_chars_of_sha
// Ex. path of fcfe68a0e44e04bd7fd564fc0b75f1ae457e18b3 is:
// .git/objects/fc/fe68a0e44e04bd7fd564fc0b75f1ae457e18b3
func (b *Backend) looseObjectPath(sha string) string {
	return filepath.Join(b.root, gitpath.ObjectsPath, sha[:2], sha[2:])
}

// looseObject returns the object matching the given OID.
// The format of an object is an ascii encoded type, an ascii encoded
// space, then an ascii encoded length of the object, then a null
// character, then the body of the object.
func (b *Backend) looseObject(oid ginternals.Oid) (o *object.Object, err error) {
	strOid := oid.String()
	p := b.looseObjectPath(strOid)
	f, err := b.fs.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, xerrors.Errorf("object %s: %w", strOid, ginternals.ErrObjectNotFound)
		}
		return nil, xerrors.Errorf("could not get object %s at path %s: %w", strOid, p, err)
	}
	defer errutil.Close(f, &err)

	zlibReader, err := zlib.NewReader(f)
	if err != nil {
		return nil, xerrors.Errorf("could not decompress parts of object %s at path %s: %w", strOid, p, err)
	}
	defer errutil.Close(zlibReader, &err)

	buff, err := ioutil.ReadAll(zlibReader)
	if err != nil {
		return nil, xerrors.Errorf("could not read object %s at path %s: %w", strOid, p, err)
	}

	pointerPos := 0

	typ := readutil.ReadTo(buff, ' ')
	if typ == nil {
		return nil, xerrors.Errorf("could not find object type for %s at path %s", strOid, p)
	}

	oType, err := object.NewTypeFromString(string(typ))
	if err != nil {
		return nil, xerrors.Errorf("unsupported type %s for object %s at path %s", string(typ), strOid, p)
	}
	pointerPos += len(typ) + 1 // +1 for the space

	size := readutil.ReadTo(buff[pointerPos:], 0)
	if size == nil {
		return nil, xerrors.Errorf("could not find object size for %s at path %s", strOid, p)
	}
	oSize, err := strconv.Atoi(string(size))
	if err != nil {
		return nil, xerrors.Errorf("invalid size %s for object %s at path %s: %w", size, strOid, p, err)
	}
	pointerPos += len(size) + 1 // +1 for the NULL char
	oContent := buff[pointerPos:]

	if len(oContent) != oSize {
		return nil, xerrors.Errorf("object marked as size %d, but has %d at path %s: %w", oSize, len(oContent), p, ginternals.ErrObjectInvalid)
	}

	return object.New(oType, oContent), nil
}

// HasObject returns whether an object exists in the odb
func (b *Backend) HasObject(oid ginternals.Oid) (bool, error) {
	if _, found := b.cache.Get(oid); found {
		return true, nil
	}
	_, err := b.fs.Stat(b.looseObjectPath(oid.String()))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, xerrors.Errorf("could not check object existence: %w", err)
}

// WriteObject adds an object to the odb.
//
// The object is written atomically: its compressed content is first
// written to a uniquely named temporary file in the same directory as the
// final destination, then renamed into place. The name is randomized
// (rather than a shared literal such as "temporary") so that two writes
// landing in the same fan-out directory around the same time cannot clobber
// each other's staging file.
func (b *Backend) WriteObject(o *object.Object) (ginternals.Oid, error) {
	oid := o.ID()

	found, err := b.HasObject(oid)
	if err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not check if object (%s) already exists: %w", oid.String(), err)
	}
	if found {
		return oid, nil
	}

	data, err := o.Compress()
	if err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not compress object: %w", err)
	}

	sha := oid.String()
	p := b.looseObjectPath(sha)
	dest := filepath.Dir(p)
	if err = b.fs.MkdirAll(dest, 0o755); err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not create the destination directory %s: %w", dest, err)
	}

	tmp, err := afero.TempFile(b.fs, dest, sha[2:]+".tmp-*")
	if err != nil {
		return ginternals.NullOid, xerrors.Errorf("could not create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = b.fs.Remove(tmpName)
		return ginternals.NullOid, xerrors.Errorf("could not write object %s: %w", sha, err)
	}
	if err = tmp.Close(); err != nil {
		_ = b.fs.Remove(tmpName)
		return ginternals.NullOid, xerrors.Errorf("could not close temporary file for object %s: %w", sha, err)
	}
	// git objects are read-only
	if err = b.fs.Chmod(tmpName, 0o444); err != nil {
		_ = b.fs.Remove(tmpName)
		return ginternals.NullOid, xerrors.Errorf("could not set permissions on object %s: %w", sha, err)
	}
	if err = b.fs.Rename(tmpName, p); err != nil {
		_ = b.fs.Remove(tmpName)
		return ginternals.NullOid, xerrors.Errorf("could not persist object %s at path %s: %w", sha, p, err)
	}

	b.cache.Add(oid, o)
	return oid, nil
}

// WalkLooseObjectIDs runs the provided method on all the oids of all the
// loose objects in the store
func (b *Backend) WalkLooseObjectIDs(f func(oid ginternals.Oid) error) error {
	p := filepath.Join(b.root, gitpath.ObjectsPath)
	stopped := false
	err := afero.Walk(b.fs, p, func(path string, info os.FileInfo, err error) error {
		if stopped {
			return filepath.SkipDir
		}
		if err != nil {
			// this happens if the repo is empty and ./objects doesn't exist
			return nil
		}
		if path == p {
			return nil
		}
		if info.IsDir() {
			if !isLooseObjectDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		prefix := filepath.Base(filepath.Dir(path))
		if !isLooseObjectDir(prefix) {
			return nil
		}

		sha := prefix + info.Name()
		oid, oerr := ginternals.NewOidFromStr(sha)
		if oerr != nil {
			// not a loose object file (e.g. a leftover temp file); skip it
			return nil
		}
		if ferr := f(oid); ferr != nil {
			if ferr == backend.OidWalkStop { //nolint:errorlint,goerr113 // sentinel, not a real error
				stopped = true
				return filepath.SkipDir
			}
			return ferr
		}
		return nil
	})
	if stopped {
		return nil
	}
	return err
}

// isLooseObjectDir checks if a directory name is anything between 00 and ff
func isLooseObjectDir(name string) bool {
	if len(name) != 2 {
		return false
	}
	dirNum, parseErr := strconv.ParseInt(name, 16, 64)
	return parseErr == nil && dirNum >= 0x00 && dirNum <= 0xff
}
