// Package savestate implements binary save-state serialization: a
// versioned gob encoding of a Machine's component-tree snapshot, grounded
// on RetroCodeRamen-Nitro-Core-DX's internal/emulator/savestate.go.
package savestate

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/finchwillow/dmgo"
)

// Version is bumped whenever the Snapshot layout changes incompatibly.
const Version uint16 = 1

// File is the versioned envelope written to disk: the version tag lets
// Load reject a save state from an incompatible build before touching the
// machine, per the "invalid save-state version fails the load, leaves the
// emulator untouched" contract.
type File struct {
	Version uint16
	State   dmgo.Snapshot
}

// Save encodes m's current state into a versioned gob stream.
func Save(m *dmgo.Machine) ([]byte, error) {
	f := File{Version: Version, State: m.Snapshot()}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(f); err != nil {
		return nil, fmt.Errorf("savestate: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Load decodes data and restores m's state in place. On any error - bad
// encoding or a version mismatch - m is left untouched.
func Load(m *dmgo.Machine, data []byte) error {
	var f File
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&f); err != nil {
		return fmt.Errorf("savestate: decode: %w", err)
	}
	if f.Version != Version {
		return fmt.Errorf("savestate: unsupported version %d (expected %d)", f.Version, Version)
	}

	m.Restore(f.State)
	return nil
}
