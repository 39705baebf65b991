package fsbackend

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/binarytree/git-go/ginternals"
	"github.com/binarytree/git-go/internal/gitpath"
)

func newTestBackendWithFs(t *testing.T) (*Backend, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	b, err := NewWithFs(fs, gitpath.DotGitPath)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	return b, fs
}

func TestReference(t *testing.T) {
	t.Run("should fail if reference doesn't exist", func(t *testing.T) {
		t.Parallel()

		b, _ := newTestBackendWithFs(t)
		ref, err := b.Reference("refs/heads/doesnt_exists")
		require.Error(t, err)
		assert.True(t, xerrors.Is(err, ginternals.ErrRefNotFound), "unexpected error returned")
		assert.Nil(t, ref)
	})

	t.Run("should follow a symbolic ref", func(t *testing.T) {
		t.Parallel()

		b, _ := newTestBackendWithFs(t)

		target, err := ginternals.NewOidFromStr("bbb720a96e4c29b9950a4c577c98470a4d5dd089")
		require.NoError(t, err)

		err = b.WriteReference(ginternals.NewReference(ginternals.LocalBranchFullName("master"), target))
		require.NoError(t, err)
		err = b.WriteReference(ginternals.NewSymbolicReference(ginternals.Head, ginternals.LocalBranchFullName("master")))
		require.NoError(t, err)

		ref, err := b.Reference(ginternals.Head)
		require.NoError(t, err)
		require.NotNil(t, ref)

		assert.Equal(t, ginternals.Head, ref.Name())
		assert.Equal(t, ginternals.LocalBranchFullName("master"), ref.SymbolicTarget())
		assert.Equal(t, target, ref.Target())
	})

	t.Run("should follow an oid ref", func(t *testing.T) {
		t.Parallel()

		b, _ := newTestBackendWithFs(t)

		target, err := ginternals.NewOidFromStr("bbb720a96e4c29b9950a4c577c98470a4d5dd089")
		require.NoError(t, err)

		masterRef := ginternals.LocalBranchFullName("master")
		err = b.WriteReference(ginternals.NewReference(masterRef, target))
		require.NoError(t, err)

		ref, err := b.Reference(masterRef)
		require.NoError(t, err)
		require.NotNil(t, ref)

		assert.Equal(t, masterRef, ref.Name())
		assert.Empty(t, ref.SymbolicTarget())
		assert.Equal(t, target, ref.Target())
	})
}

func TestParsePackedRefs(t *testing.T) {
	t.Run("should return empty list if no file", func(t *testing.T) {
		t.Parallel()

		b, _ := newTestBackendWithFs(t)

		data, err := b.parsePackedRefs()
		require.NoError(t, err)
		assert.NotNil(t, data)
		assert.Empty(t, data)
	})

	t.Run("should fail if file contains invalid data", func(t *testing.T) {
		t.Parallel()

		b, fs := newTestBackendWithFs(t)

		fPath := filepath.Join(gitpath.DotGitPath, gitpath.PackedRefsPath)
		err := afero.WriteFile(fs, fPath, []byte("not valid data"), 0o644)
		require.NoError(t, err)

		_, err = b.parsePackedRefs()
		require.Error(t, err)
		assert.True(t, xerrors.Is(err, ginternals.ErrPackedRefInvalid), "unexpected error received")
	})

	t.Run("should pass with comments and annotations", func(t *testing.T) {
		t.Parallel()

		b, fs := newTestBackendWithFs(t)

		fPath := filepath.Join(gitpath.DotGitPath, gitpath.PackedRefsPath)
		content := "^de111c003b5661db802f17ac69419dcb9f4f3137\n# this is a comment\n"
		err := afero.WriteFile(fs, fPath, []byte(content), 0o644)
		require.NoError(t, err)

		_, err = b.parsePackedRefs()
		require.NoError(t, err)
	})

	t.Run("should correctly extract data", func(t *testing.T) {
		t.Parallel()

		b, fs := newTestBackendWithFs(t)

		fPath := filepath.Join(gitpath.DotGitPath, gitpath.PackedRefsPath)
		content := "bbb720a96e4c29b9950a4c577c98470a4d5dd089 refs/heads/master\n" +
			"f0f70144f38695250606b86a50cff2b440a417f3 refs/heads/dev\n"
		err := afero.WriteFile(fs, fPath, []byte(content), 0o644)
		require.NoError(t, err)

		data, err := b.parsePackedRefs()
		require.NoError(t, err)
		expected := map[string]string{
			"refs/heads/master": "bbb720a96e4c29b9950a4c577c98470a4d5dd089",
			"refs/heads/dev":    "f0f70144f38695250606b86a50cff2b440a417f3",
		}
		assert.Equal(t, expected, data)
	})
}
