// Package compdb loads a JSON compilation database (spec §6): an array of
// records with fields directory, file, output?, arguments, matching
// clang::tooling::CompileCommand's JSON shape in original_source/indexer/
// IpcMessages.cc's toJSON/fromJSON.
package compdb

import (
	"encoding/json"
	"fmt"
	"os"

	ierrors "github.com/scip-clang-go/scip-clang-go/internal/errors"
)

// CompileCommand is one entry of a compilation database.
type CompileCommand struct {
	Directory string   `json:"directory"`
	File      string   `json:"file"`
	Output    string   `json:"output,omitempty"`
	Arguments []string `json:"arguments"`
}

// Load parses a compilation database file into its compile commands.
// A missing/unreadable path or malformed JSON is a ConfigError, fatal at
// startup (spec §7 kind 1).
func Load(path string) ([]CompileCommand, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ierrors.Wrap(ierrors.ConfigError, "compdb", fmt.Sprintf("cannot read %s", path), err)
	}

	var commands []CompileCommand
	if err := json.Unmarshal(data, &commands); err != nil {
		return nil, ierrors.Wrap(ierrors.ConfigError, "compdb", fmt.Sprintf("cannot parse %s", path), err)
	}
	for i, cc := range commands {
		if cc.File == "" {
			return nil, ierrors.New(ierrors.ConfigError, "compdb", fmt.Sprintf("entry %d missing required field \"file\"", i))
		}
	}
	return commands, nil
}
