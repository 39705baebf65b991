package fsbackend

import (
	"os"
	"path/filepath"

	"golang.org/x/xerrors"
	"gopkg.in/ini.v1"

	"github.com/binarytree/git-go/backend"
	"github.com/binarytree/git-go/internal/gitpath"
)

// setDefaultCfg set and persists the default git configuration for
// the repository
func (b *Backend) setDefaultCfg() error {
	cfg := ini.Empty()

	// Core
	core, err := cfg.NewSection(backend.CfgCore)
	if err != nil {
		return xerrors.Errorf("could not create core section: %w", err)
	}
	coreCfg := map[string]string{
		backend.CfgCoreFormatVersion:     "0",
		backend.CfgCoreFileMode:          "true",
		backend.CfgCoreBare:              "false",
		backend.CfgCoreLogAllRefUpdate:   "true",
		backend.CfgCoreIgnoreCase:        "true",
		backend.CfgCorePrecomposeUnicode: "true",
	}
	for k, v := range coreCfg {
		if _, err := core.NewKey(k, v); err != nil {
			return xerrors.Errorf("could not set %s: %w", k, err)
		}
	}
	w, err := b.fs.OpenFile(filepath.Join(b.root, gitpath.ConfigPath), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return xerrors.Errorf("could not open config file: %w", err)
	}
	defer w.Close() //nolint:errcheck // best effort, nothing actionable to do with a close error here
	_, err = cfg.WriteTo(w)
	return err
}
