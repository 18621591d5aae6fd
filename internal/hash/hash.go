// Package hash computes content digests of build artifacts.
//
// The digest is published alongside an artifact so downstream consumers can
// verify the bytes they download. Files are streamed through the hash in
// fixed-size chunks; the chunk size only affects memory use, never the result.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/danieljhkim/packsmith/internal/fsops"
	"github.com/danieljhkim/packsmith/internal/packerr"
)

// DefaultChunkSize is the read size used when none is configured.
const DefaultChunkSize = 64 * 1024

// Hasher provides an abstraction for file hashing operations.
type Hasher interface {
	// HashFile computes the lowercase hex digest of the file at the given path.
	HashFile(path string) (string, error)
}

// SHA256Hasher implements Hasher using SHA-256.
type SHA256Hasher struct {
	fs        fsops.FS
	chunkSize int
}

// NewSHA256Hasher creates a new SHA256Hasher reading through fs.
// A non-positive chunkSize selects DefaultChunkSize.
func NewSHA256Hasher(fs fsops.FS, chunkSize int) *SHA256Hasher {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &SHA256Hasher{fs: fs, chunkSize: chunkSize}
}

// HashFile computes the SHA-256 hash of the file at the given path.
func (h *SHA256Hasher) HashFile(path string) (string, error) {
	file, err := h.fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", packerr.ErrSourceNotFound, path)
		}
		return "", fmt.Errorf("%w: failed to open file: %v", packerr.ErrIO, err)
	}
	defer func() {
		_ = file.Close()
	}()

	hasher := sha256.New()
	buf := make([]byte, h.chunkSize)
	for {
		n, err := file.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: failed to read file: %v", packerr.ErrIO, err)
		}
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// FakeHasher implements Hasher with deterministic hashes for testing.
type FakeHasher struct {
	hashes map[string]string
}

// NewFakeHasher creates a new FakeHasher.
func NewFakeHasher() *FakeHasher {
	return &FakeHasher{
		hashes: make(map[string]string),
	}
}

// SetHash sets the hash for a specific path (for testing).
func (h *FakeHasher) SetHash(path, hash string) {
	h.hashes[path] = hash
}

// HashFile returns the predetermined hash for the given path.
func (h *FakeHasher) HashFile(path string) (string, error) {
	if hash, ok := h.hashes[path]; ok {
		return hash, nil
	}
	return "fakehash", nil
}
