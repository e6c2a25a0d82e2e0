// Copyright (c) The OverflowOS authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package transparency implements an interface to the
// boot-transparency library functions to ease boot bundle
// validation.
package transparency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/usbarmory/boot-transparency/transparency"
)

// Status represents the status of the boot transparency functionality.
type Status int

// Represents boot transparency status codes.
const (
	// Boot transparency disabled.
	None Status = iota

	// Boot transparency enabled in offline mode.
	Offline

	// Boot transparency enabled in online mode.
	Online
)

// ParseStatus converts a human-readable status name to its Status code.
func ParseStatus(name string) (Status, error) {
	switch name {
	case "none":
		return None, nil
	case "offline":
		return Offline, nil
	case "online":
		return Online, nil
	}

	return None, fmt.Errorf("invalid status %q", name)
}

// Resolve resolves Status codes into a human-readable strings.
func (s Status) Resolve() string {
	statusName := map[Status]string{
		None:    "none",
		Offline: "offline",
		Online:  "online",
	}

	return statusName[s]
}

// Boot transparency configuration root directory and filenames.
const (
	transparencyRoot = `/transparency`

	bootPolicy    = `policy.json`
	witnessPolicy = `trust_policy`
	proofBundle   = `proof-bundle.json`
	submitKey     = `submit-key.pub`
	logKey        = `log-key.pub`
)

// Default is the loader-wide transparency configuration, shared between the
// status command and the boot orchestrator. The engine matches the proof
// bundle format produced by the supported log.
var Default = &Config{
	Status: Offline,
	Engine: transparency.Sigsum,
}

// Config represents the configuration for the boot transparency functionality.
type Config struct {
	// Status represents the status of the boot transparency functionality.
	Status Status

	// Engine selects the transparency log engine.
	Engine transparency.EngineCode

	// Root is the boot volume file system the configuration files are
	// loaded from during artifact validation, typically the EFI System
	// Partition. When nil all configuration data must be set explicitly
	// (e.g. installers or user-space tools).
	Root fs.FS

	// ExternalLoader is set to true when the transparency pkg is used
	// externally to a boot loader context (e.g. installers or user-space
	// tools). In such cases, configuration paths use native separators.
	ExternalLoader bool

	// BootPolicy represents the boot policy in JSON format
	// following the policy syntax supported by boot-transparency library.
	BootPolicy []byte

	// WitnessPolicy represents the witness policy following
	// the Sigsum plaintext witness policy format.
	WitnessPolicy []byte

	// SubmitKey represents the log submitter public key in OpenSSH format.
	SubmitKey []byte

	// LogKey represents the log public key in OpenSSH format.
	LogKey []byte

	// ProofBundle represents the proof bundle in JSON format
	// following the proof bundle format supported by boot-transparency library.
	ProofBundle []byte
}

// Path returns a unique configuration path for a given set of
// artifacts (i.e. boot entry).
// Returns error if one of the artifacts does not include a valid
// SHA-256 hash.
func (c *Config) Path(b BootEntry) (entryPath string, err error) {
	if len(b) == 0 {
		return "", fmt.Errorf("cannot build configuration path, got an empty boot entry")
	}

	// Sort the passed artifacts, by their Category, to ensure
	// consistency in the way the entry path is built.
	sort.Slice(b, func(i, j int) bool {
		return b[i].Category < b[j].Category
	})

	entryPath = transparencyRoot

	for _, a := range b {
		if len(a.Hash) != sha256.Size {
			return "", fmt.Errorf("cannot build configuration path, got an invalid artifact hash")
		}

		entryPath = path.Join(entryPath, hex.EncodeToString(a.Hash))
	}

	// Do not rewrite paths when the pkg is used externally to
	// the UEFI boot loader (i.e. installers or user-space tools).
	if c.ExternalLoader {
		entryPath = strings.ReplaceAll(entryPath, `/`, `\`)
	}

	return
}

// loadFromRoot reads the transparency configuration files for the argument
// entry path from the configured boot volume.
func (c *Config) loadFromRoot(entryPath string) (err error) {
	assets := map[string]*[]byte{
		bootPolicy:    &c.BootPolicy,
		witnessPolicy: &c.WitnessPolicy,
		submitKey:     &c.SubmitKey,
		logKey:        &c.LogKey,
		proofBundle:   &c.ProofBundle,
	}

	for filename, dst := range assets {
		if *dst, err = fs.ReadFile(c.Root, path.Join(entryPath, filename)); err != nil {
			return fmt.Errorf("cannot load configuration file: %v", filename)
		}
	}

	return
}
