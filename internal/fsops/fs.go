// Package fsops provides filesystem operations with safety guarantees.
//
// All filesystem access in packsmith goes through the FS interface, which
// wraps a go-billy filesystem. Production code uses the host filesystem
// (osfs); tests swap in an in-memory filesystem (memfs) without touching disk.
//
// Key features:
//   - Atomic writes using temp file + rename
//   - Path validation for relative paths and identifiers
//   - Deterministic (sorted) directory listings
//   - Testable via the FS interface
package fsops

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// tempPrefix marks in-flight files so they are recognisable if a crash leaves one behind.
const tempPrefix = ".packsmith-tmp-"

// FS provides an abstraction for filesystem operations.
// All filesystem mutations in packsmith must go through this interface.
type FS interface {
	// Stat returns file info, following symlinks.
	Stat(path string) (os.FileInfo, error)

	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string, perm os.FileMode) error

	// Remove removes a file or empty directory.
	Remove(path string) error

	// RemoveAll removes a path and all its contents.
	RemoveAll(path string) error

	// Rename moves oldpath to newpath, replacing newpath if it exists.
	Rename(oldpath, newpath string) error

	// ReadDir lists a directory sorted by name.
	ReadDir(path string) ([]os.FileInfo, error)

	// Open opens a file for reading.
	Open(path string) (billy.File, error)

	// Create creates or truncates a file for writing.
	Create(path string) (billy.File, error)

	// Copy copies a regular file from src to dst, creating parent directories.
	Copy(src, dst string) error

	// AtomicWrite writes data to path atomically using temp file + rename.
	AtomicWrite(path string, data []byte, perm os.FileMode) error

	// ReadFile reads the entire contents of a file.
	ReadFile(path string) ([]byte, error)

	// Exists checks if a path exists.
	Exists(path string) (bool, error)

	// ListFiles returns every regular file below root as sorted, slash-separated relative paths.
	ListFiles(root string) ([]string, error)

	// ValidateRelPath validates a relative path for safety.
	ValidateRelPath(relPath string) error

	// ValidateIdentifier validates an identifier for safety.
	ValidateIdentifier(id string) error
}

// BillyFS implements FS on top of a go-billy filesystem.
type BillyFS struct {
	fs billy.Filesystem

	// absolute makes relative paths relative to the working directory
	// instead of the filesystem root
	absolute bool
}

// New wraps an arbitrary billy filesystem.
func New(fs billy.Filesystem) *BillyFS {
	return &BillyFS{fs: fs}
}

// NewRealFS creates a BillyFS backed by the host filesystem. Relative paths
// resolve against the current working directory.
func NewRealFS() *BillyFS {
	return &BillyFS{fs: osfs.New("/"), absolute: true}
}

// NewMemFS creates a BillyFS backed by an in-memory filesystem.
func NewMemFS() *BillyFS {
	return New(memfs.New())
}

// resolve makes p absolute on the host filesystem. The osfs root is "/", so
// a relative name would otherwise be looked up below it.
func (fs *BillyFS) resolve(p string) string {
	if !fs.absolute || filepath.IsAbs(p) {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// Stat returns file info, following symlinks.
func (fs *BillyFS) Stat(path string) (os.FileInfo, error) {
	path = fs.resolve(path)
	return fs.fs.Stat(path)
}

// MkdirAll creates a directory and all parent directories.
func (fs *BillyFS) MkdirAll(path string, perm os.FileMode) error {
	path = fs.resolve(path)
	return fs.fs.MkdirAll(path, perm)
}

// Remove removes a file or empty directory.
func (fs *BillyFS) Remove(path string) error {
	path = fs.resolve(path)
	return fs.fs.Remove(path)
}

// RemoveAll removes a path and all its contents. A missing path is not an error.
func (fs *BillyFS) RemoveAll(path string) error {
	path = fs.resolve(path)
	exists, err := fs.Exists(path)
	if err != nil || !exists {
		return err
	}
	return util.RemoveAll(fs.fs, path)
}

// Rename moves oldpath to newpath.
func (fs *BillyFS) Rename(oldpath, newpath string) error {
	oldpath, newpath = fs.resolve(oldpath), fs.resolve(newpath)
	return fs.fs.Rename(oldpath, newpath)
}

// ReadDir lists a directory sorted by name.
func (fs *BillyFS) ReadDir(path string) ([]os.FileInfo, error) {
	path = fs.resolve(path)
	entries, err := fs.fs.ReadDir(path)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	return entries, nil
}

// Open opens a file for reading.
func (fs *BillyFS) Open(path string) (billy.File, error) {
	path = fs.resolve(path)
	return fs.fs.Open(path)
}

// Create creates or truncates a file for writing, creating parent directories.
func (fs *BillyFS) Create(path string) (billy.File, error) {
	path = fs.resolve(path)
	if err := fs.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directory: %w", err)
	}
	return fs.fs.Create(path)
}

// Copy copies a single regular file from src to dst.
// Follows symlinks to copy the target content, not the symlink itself.
func (fs *BillyFS) Copy(src, dst string) error {
	src, dst = fs.resolve(src), fs.resolve(dst)
	srcInfo, err := fs.fs.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat source: %w", err)
	}
	if srcInfo.IsDir() {
		return fmt.Errorf("cannot copy directory %q as a file", src)
	}

	srcFile, err := fs.fs.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer func() {
		_ = srcFile.Close()
	}()

	if err := fs.fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	dstFile, err := fs.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	defer func() {
		_ = dstFile.Close()
	}()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy file contents: %w", err)
	}

	return syncFile(dstFile)
}

// AtomicWrite writes data to path atomically using temp file + rename.
func (fs *BillyFS) AtomicWrite(path string, data []byte, perm os.FileMode) error {
	path = fs.resolve(path)
	dir := filepath.Dir(path)
	if err := fs.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	// Create temp file in the same directory as target so the rename stays on one device
	tmpFile, err := fs.fs.TempFile(dir, tempPrefix)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on error
	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
			_ = fs.fs.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err := syncFile(tmpFile); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if ch, ok := fs.fs.(billy.Change); ok {
		if err := ch.Chmod(tmpPath, perm); err != nil {
			return fmt.Errorf("failed to set permissions: %w", err)
		}
	}

	if err := fs.fs.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	// Success - don't clean up temp file
	tmpFile = nil
	return nil
}

// ReadFile reads the entire contents of a file.
func (fs *BillyFS) ReadFile(path string) ([]byte, error) {
	path = fs.resolve(path)
	f, err := fs.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return io.ReadAll(f)
}

// Exists checks if a path exists.
func (fs *BillyFS) Exists(path string) (bool, error) {
	path = fs.resolve(path)
	_, err := fs.fs.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// ListFiles returns every regular file below root as sorted, slash-separated
// paths relative to root.
func (fs *BillyFS) ListFiles(root string) ([]string, error) {
	root = fs.resolve(root)
	var files []string
	if err := fs.walk(root, "", &files); err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func (fs *BillyFS) walk(root, rel string, out *[]string) error {
	entries, err := fs.ReadDir(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return fmt.Errorf("failed to read directory %q: %w", path.Join(root, rel), err)
	}
	for _, entry := range entries {
		child := path.Join(rel, entry.Name())
		if entry.IsDir() {
			if err := fs.walk(root, child, out); err != nil {
				return err
			}
			continue
		}
		if entry.Mode().IsRegular() {
			*out = append(*out, child)
		}
	}
	return nil
}

// ValidateRelPath validates a relative path for safety.
// Returns an error if the path is invalid or unsafe.
func (fs *BillyFS) ValidateRelPath(relPath string) error {
	cleaned := filepath.Clean(relPath)

	if relPath == "" || cleaned == "." {
		return fmt.Errorf("invalid path: empty or current directory")
	}

	if filepath.IsAbs(cleaned) || strings.HasPrefix(filepath.ToSlash(cleaned), "/") {
		return fmt.Errorf("invalid path: must be relative, got absolute path %q", cleaned)
	}

	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return fmt.Errorf("invalid path: path traversal not allowed in %q", cleaned)
	}

	return nil
}

// ValidateIdentifier validates an identifier (item ID, overlay name) for safety.
// Returns an error if the identifier contains invalid characters or path traversal attempts.
func (fs *BillyFS) ValidateIdentifier(id string) error {
	if id == "" {
		return fmt.Errorf("invalid identifier: empty")
	}

	if strings.ContainsAny(id, `/\`) || strings.Contains(id, string(filepath.Separator)) {
		return fmt.Errorf("invalid identifier %q: must not contain path separators", id)
	}

	if id == "." || id == ".." || strings.HasPrefix(id, "..") {
		return fmt.Errorf("invalid identifier %q: path traversal not allowed", id)
	}

	if strings.HasPrefix(id, tempPrefix) {
		return fmt.Errorf("invalid identifier %q: reserved prefix", id)
	}

	return nil
}

// syncFile flushes f to stable storage when the backing filesystem supports it.
func syncFile(f billy.File) error {
	if s, ok := f.(interface{ Sync() error }); ok {
		return s.Sync()
	}
	return nil
}
