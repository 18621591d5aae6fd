// Package archive writes and reads the zip artifact of a finished pack.
//
// Artifacts are reproducible: entries are written in sorted order with a fixed
// modification time and fixed permissions, so two builds of the same staging
// tree produce byte-identical zips (and therefore identical digests).
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/flate"

	"github.com/danieljhkim/packsmith/internal/fsops"
	"github.com/danieljhkim/packsmith/internal/packerr"
)

// entryTime is stamped on every entry; it is the earliest time zip can represent.
var entryTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Spec describes what goes into an artifact.
type Spec struct {
	// LooseFiles are stored at the archive root under their base names
	LooseFiles []string

	// AssetRoot is walked recursively; entries keep AssetRoot's own folder name
	AssetRoot string

	// Output is the zip file to create
	Output string
}

// Artifact describes a written archive.
type Artifact struct {
	// Path is the archive location
	Path string

	// Entries are the archive paths in write order
	Entries []string

	// Size is the archive size in bytes
	Size int64
}

type entry struct {
	name   string
	source string
}

// Package writes the archive described by spec. On failure the partial
// output is removed.
func Package(fs fsops.FS, spec Spec) (*Artifact, error) {
	entries, err := collect(fs, spec)
	if err != nil {
		return nil, err
	}

	out, err := fs.Create(spec.Output)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create archive: %v", packerr.ErrIO, err)
	}

	names, err := write(fs, out, entries)
	closeErr := out.Close()
	if err == nil && closeErr != nil {
		err = fmt.Errorf("%w: failed to close archive: %v", packerr.ErrIO, closeErr)
	}
	if err != nil {
		_ = fs.Remove(spec.Output)
		return nil, err
	}

	info, err := fs.Stat(spec.Output)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to stat archive: %v", packerr.ErrIO, err)
	}

	return &Artifact{
		Path:    spec.Output,
		Entries: names,
		Size:    info.Size(),
	}, nil
}

// collect resolves archive names for every input, loose files first.
func collect(fs fsops.FS, spec Spec) ([]entry, error) {
	seen := make(map[string]bool)
	var entries []entry

	loose := append([]string(nil), spec.LooseFiles...)
	sort.Slice(loose, func(i, j int) bool {
		return filepath.Base(loose[i]) < filepath.Base(loose[j])
	})
	for _, src := range loose {
		name := filepath.Base(src)
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate archive entry %s", packerr.ErrAlreadyExists, name)
		}
		seen[name] = true
		entries = append(entries, entry{name: name, source: src})
	}

	if spec.AssetRoot != "" {
		files, err := fs.ListFiles(spec.AssetRoot)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", packerr.ErrIO, err)
		}
		prefix := filepath.Base(spec.AssetRoot)
		for _, rel := range files {
			name := path.Join(prefix, rel)
			if seen[name] {
				return nil, fmt.Errorf("%w: duplicate archive entry %s", packerr.ErrAlreadyExists, name)
			}
			seen[name] = true
			entries = append(entries, entry{
				name:   name,
				source: filepath.Join(spec.AssetRoot, filepath.FromSlash(rel)),
			})
		}
	}

	return entries, nil
}

func write(fs fsops.FS, out io.Writer, entries []entry) ([]string, error) {
	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if err := addFile(fs, zw, e); err != nil {
			_ = zw.Close()
			return nil, err
		}
		names = append(names, e.name)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: failed to finalize archive: %v", packerr.ErrIO, err)
	}
	return names, nil
}

func addFile(fs fsops.FS, zw *zip.Writer, e entry) error {
	src, err := fs.Open(e.source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", packerr.ErrSourceNotFound, e.source)
		}
		return fmt.Errorf("%w: failed to open %s: %v", packerr.ErrIO, e.source, err)
	}
	defer func() {
		_ = src.Close()
	}()

	header := &zip.FileHeader{
		Name:     e.name,
		Method:   zip.Deflate,
		Modified: entryTime,
	}
	header.SetMode(0644)

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("%w: failed to create entry %s: %v", packerr.ErrIO, e.name, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("%w: failed to write entry %s: %v", packerr.ErrIO, e.name, err)
	}
	return nil
}

// Unpack extracts an artifact into destDir and returns the extracted archive
// paths. Entries that would escape destDir are rejected.
func Unpack(fs fsops.FS, artifactPath, destDir string) ([]string, error) {
	f, err := fs.Open(artifactPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", packerr.ErrSourceNotFound, artifactPath)
		}
		return nil, fmt.Errorf("%w: failed to open archive: %v", packerr.ErrIO, err)
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := fs.Stat(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to stat archive: %v", packerr.ErrIO, err)
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read archive: %v", packerr.ErrIO, err)
	}
	zr.RegisterDecompressor(zip.Deflate, flate.NewReader)

	var names []string
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		if err := fs.ValidateRelPath(zf.Name); err != nil {
			return names, fmt.Errorf("%w: unsafe entry %q: %v", packerr.ErrIO, zf.Name, err)
		}
		if err := extract(fs, zf, filepath.Join(destDir, filepath.FromSlash(zf.Name))); err != nil {
			return names, err
		}
		names = append(names, zf.Name)
	}
	return names, nil
}

func extract(fs fsops.FS, zf *zip.File, dest string) error {
	rc, err := zf.Open()
	if err != nil {
		return fmt.Errorf("%w: failed to open entry %s: %v", packerr.ErrIO, zf.Name, err)
	}
	defer func() {
		_ = rc.Close()
	}()

	out, err := fs.Create(dest)
	if err != nil {
		return fmt.Errorf("%w: failed to create %s: %v", packerr.ErrIO, dest, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return fmt.Errorf("%w: failed to extract %s: %v", packerr.ErrIO, zf.Name, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: failed to close %s: %v", packerr.ErrIO, dest, err)
	}
	return nil
}
