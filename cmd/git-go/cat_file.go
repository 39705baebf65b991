package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/binarytree/git-go/internal/errutil"

	"github.com/binarytree/git-go/ginternals"
	"github.com/binarytree/git-go/ginternals/object"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

var errBadFile = errors.New("bad file")

func newCatFileCmd(cfg *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat-file [TYPE] OBJECT",
		Short: "Provide content or type and size information for repository objects",
		Args:  cobra.RangeArgs(1, 2),
	}

	// TODO: Only use short flags
	// https://github.com/spf13/cobra/issues/679
	// https://github.com/spf13/pflag/pull/171
	// https://github.com/spf13/pflag/pull/256
	typeOnly := cmd.Flags().BoolP("t", "t", false, "Instead of the content, show the object type identified by <object>.")
	sizeOnly := cmd.Flags().BoolP("s", "s", false, "Instead of the content, show the object size identified by <object>.")
	prettyPrint := cmd.Flags().BoolP("p", "p", false, "Pretty-print the contents of <object> based on its type.")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		p := catFileParams{
			typeOnly:    *typeOnly,
			sizeOnly:    *sizeOnly,
			prettyPrint: *prettyPrint,
			objectName:  args[0],
		}
		if len(args) == 2 {
			p.typ = args[0]
			p.objectName = args[1]
		}
		return catFileCmd(cmd.OutOrStdout(), cfg, p)
	}
	return cmd
}

type catFileParams struct {
	typeOnly    bool
	sizeOnly    bool
	prettyPrint bool
	objectName  string
	typ         string
}

func catFileCmd(out io.Writer, cfg *globalFlags, p catFileParams) (err error) {
	// Validate options
	if p.typ != "" && (p.typeOnly || p.sizeOnly || p.prettyPrint) {
		return errors.New("type not supported with options -t, -s, -p")
	}
	if p.typ == "" && !p.typeOnly && !p.sizeOnly && !p.prettyPrint {
		return errors.New("type and object required")
	}
	if p.typeOnly {
		switch {
		case p.sizeOnly:
			return errors.New("option -s not supported with option -t")
		case p.prettyPrint:
			return errors.New("option -p not supported with option -t")
		}
	}
	if p.sizeOnly && p.prettyPrint {
		return errors.New("option -p not supported with option -s")
	}

	// run the command
	r, err := loadRepository(cfg)
	if err != nil {
		return err
	}
	defer errutil.Close(r, &err)

	oid, err := ginternals.NewOidFromStr(p.objectName)
	if err != nil {
		// If that failed it means we might have provided different name,
		// like a reference
		toTry := []string{
			// catches stuff like HEAD or refs/heads/master
			p.objectName,
			// catches heads/master
			ginternals.RefFullName(p.objectName),
			// catches local branch names
			ginternals.LocalBranchFullName(p.objectName),
			// catches local tag names
			ginternals.LocalTagFullName(p.objectName),
		}

		for _, refName := range toTry {
			ref, err := r.GetReference(refName)
			if err == nil {
				oid = ref.Target()
				break
			}

			// if the ref doesn't exist we test the the next one
			if !errors.Is(err, ginternals.ErrRefNotFound) {
				return xerrors.Errorf("could not check if ref %s exists: %w", refName, err)
			}
		}

		if oid.IsZero() {
			return xerrors.Errorf("not a valid object name %s", p.objectName)
		}
	}

	o, err := r.GetObject(oid)
	if err != nil {
		return err
	}

	if p.typ != "" {
		_, err = object.NewTypeFromString(p.typ)
		if err != nil {
			return xerrors.Errorf("%s: %w", p.typ, err)
		}

		if o.Type().String() != p.typ {
			return xerrors.Errorf("%s: %w", p.objectName, errBadFile)
		}
	}

	switch {
	case p.sizeOnly:
		fmt.Fprintln(out, strconv.Itoa(o.Size()))
	case p.typeOnly:
		fmt.Fprintln(out, o.Type().String())
	case p.prettyPrint:
		if o.Type() != object.TypeBlob {
			return xerrors.Errorf("dont know how to print %s", o.Type().String())
		}
		fmt.Fprint(out, string(o.Bytes()))
	default:
		fmt.Fprint(out, string(o.Bytes()))
	}
	return nil
}
