package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"
)

// manifestFileName is the optional per-directory build manifest. Flags
// given on the command line override anything set here.
const manifestFileName = "carmc.toml"

// tomlManifestFile represents the manifest as it is encoded in TOML.
type tomlManifestFile struct {
	Build *tomlBuild `toml:"build"`
}

// tomlBuild holds the build table of the manifest.
type tomlBuild struct {
	Output     string `toml:"output,omitempty"`
	Target     string `toml:"target,omitempty"`
	DumpTokens bool   `toml:"dump-tokens"`
	DumpAST    bool   `toml:"dump-ast"`
	DumpIR     bool   `toml:"dump-ir"`
}

// loadManifest reads the manifest in dir. A missing manifest is not an
// error; the returned build table is nil.
func loadManifest(dir string) (*tomlBuild, error) {
	buff, err := os.ReadFile(filepath.Join(dir, manifestFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	tmf := &tomlManifestFile{}
	if err := toml.Unmarshal(buff, tmf); err != nil {
		return nil, err
	}
	if tmf.Build == nil {
		return nil, fmt.Errorf("manifest has no [build] table")
	}
	return tmf.Build, nil
}
