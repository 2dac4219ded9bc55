// pskfile.go - pre-shared key loading and generation
//
// To the extent possible under law, the author has waived all copyright
// and related or neighboring rights to the software, using the Creative
// Commons "CC0" public domain dedication. See LICENSE or
// <http://creativecommons.org/publicdomain/zero/1.0/> for full details.

// Package pskfile loads a pre-shared key from disk, generates a fresh
// random one, or reads one interactively from the controlling terminal
// without echo.
package pskfile

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"golang.org/x/term"
)

// GeneratedSize is the length, in bytes, of a freshly generated PSK.
const GeneratedSize = 32

// Load reads the raw PSK bytes from path.
func Load(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pskfile: load %q: %w", path, err)
	}
	return b, nil
}

// Generate creates GeneratedSize random bytes and writes them, hex
// encoded, to path with permissions restricted to the owner.
func Generate(path string) error {
	buf := make([]byte, GeneratedSize)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("pskfile: generate: %w", err)
	}
	encoded := []byte(hex.EncodeToString(buf))
	if err := os.WriteFile(path, encoded, 0o600); err != nil {
		return fmt.Errorf("pskfile: write %q: %w", path, err)
	}
	return nil
}

// PromptTerminal reads a PSK interactively, with input echo disabled, so
// typing it doesn't leave it in shell history or visible on screen. fd is
// almost always int(os.Stdin.Fd()).
func PromptTerminal(fd int, prompt string) ([]byte, error) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return nil, fmt.Errorf("pskfile: read terminal: %w", err)
	}
	return b, nil
}
