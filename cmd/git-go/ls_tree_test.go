package main

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"testing"

	git "github.com/binarytree/git-go"
	"github.com/binarytree/git-go/env"
	"github.com/binarytree/git-go/ginternals/object"
	"github.com/binarytree/git-go/internal/testhelper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLsTreeCmd(t *testing.T) {
	t.Parallel()

	repoPath, cleanup := testhelper.TempDir(t)
	t.Cleanup(cleanup)

	r, err := git.InitRepository(repoPath)
	require.NoError(t, err)

	blob, err := r.NewBlob([]byte("Hello World\n"))
	require.NoError(t, err)

	tb := r.NewTreeBuilder()
	require.NoError(t, tb.Insert("README.md", blob.ID(), object.ModeFile))
	tree, err := tb.Write()
	require.NoError(t, err)
	require.NoError(t, r.Close())

	cwd, err := os.Getwd()
	require.NoError(t, err)

	t.Run("default output", func(t *testing.T) {
		t.Parallel()

		outBuf := bytes.NewBufferString("")
		cmd := newRootCmd(cwd, env.NewFromOs())
		cmd.SetOut(outBuf)
		cmd.SetArgs([]string{"-C", repoPath, "ls-tree", tree.ID().String()})

		require.NoError(t, cmd.Execute())
		out, err := ioutil.ReadAll(outBuf)
		require.NoError(t, err)

		want := fmt.Sprintf("%06o blob %s README.md\n", object.ModeFile, blob.ID().String())
		assert.Equal(t, want, string(out))
	})

	t.Run("--name-only", func(t *testing.T) {
		t.Parallel()

		outBuf := bytes.NewBufferString("")
		cmd := newRootCmd(cwd, env.NewFromOs())
		cmd.SetOut(outBuf)
		cmd.SetArgs([]string{"-C", repoPath, "ls-tree", "--name-only", tree.ID().String()})

		require.NoError(t, cmd.Execute())
		out, err := ioutil.ReadAll(outBuf)
		require.NoError(t, err)
		assert.Equal(t, "README.md\n", string(out))
	})
}
