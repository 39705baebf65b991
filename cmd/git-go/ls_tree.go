package main

import (
	"fmt"
	"io"

	"github.com/binarytree/git-go/internal/errutil"

	"github.com/binarytree/git-go/ginternals"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

func newLsTreeCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls-tree TREE",
		Short: "List the contents of a tree object",
		Args:  cobra.ExactArgs(1),
	}

	nameOnly := cmd.Flags().Bool("name-only", false, "List only filenames")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return lsTreeCmd(cmd.OutOrStdout(), cfg, args[0], *nameOnly)
	}
	return cmd
}

func lsTreeCmd(out io.Writer, cfg *globalFlags, treeHash string, nameOnly bool) (err error) {
	treeID, err := ginternals.NewOidFromStr(treeHash)
	if err != nil {
		return xerrors.Errorf("invalid tree %s: %w", treeHash, err)
	}

	r, err := loadRepository(cfg)
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	tree, err := r.GetTree(treeID)
	if err != nil {
		return xerrors.Errorf("could not get tree %s: %w", treeHash, err)
	}

	for _, e := range tree.Entries() {
		if nameOnly {
			fmt.Fprintln(out, e.Path)
			continue
		}
		fmt.Fprintf(out, "%06o %s %s %s\n", e.Mode, e.Mode.ObjectType().String(), e.ID.String(), e.Path)
	}
	return nil
}
