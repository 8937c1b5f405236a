package fs

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// File is a handle to a file stored in a vault.
type File struct {
	// Path is slash-separated and relative to the vault root.
	Path string
}

// NewFile returns a handle for a vault-relative path.
func NewFile(relPath string) File {
	return File{Path: normalizeRelPath(relPath)}
}

// Name returns the display name of the file, including its extension.
func (f File) Name() string {
	return path.Base(f.Path)
}

// Basename returns the display name without its extension.
func (f File) Basename() string {
	name := f.Name()
	return strings.TrimSuffix(name, path.Ext(name))
}

// Extension returns the file extension without the leading dot.
func (f File) Extension() string {
	return strings.TrimPrefix(path.Ext(f.Name()), ".")
}

func (f File) String() string { return f.Path }

// Vault is the host storage consumed by the document reader and the uploader.
type Vault interface {
	ReadText(ctx context.Context, file File) (string, error)
	ReadBinary(ctx context.Context, file File) ([]byte, error)
	// ListFiles returns every file in the vault in a stable order.
	ListFiles(ctx context.Context) ([]File, error)
}

// DirVault is a Vault backed by a directory on disk.
type DirVault struct {
	root string
}

// NewDirVault returns a vault rooted at dir.
func NewDirVault(dir string) (*DirVault, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve vault directory: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault %s is not a directory", root)
	}
	return &DirVault{root: root}, nil
}

// Root returns the absolute vault directory.
func (v *DirVault) Root() string { return v.root }

// Resolve converts a filesystem path (absolute or relative to the working
// directory) into a vault file handle.
func (v *DirVault) Resolve(p string) (File, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return File{}, err
	}
	rel, err := filepath.Rel(v.root, abs)
	if err != nil {
		return File{}, err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return File{}, fmt.Errorf("%s is outside vault %s", p, v.root)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return File{}, err
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", p)
	}
	return NewFile(rel), nil
}

func (v *DirVault) ReadText(ctx context.Context, file File) (string, error) {
	raw, err := v.ReadBinary(ctx, file)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (v *DirVault) ReadBinary(ctx context.Context, file File) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rel := normalizeRelPath(file.Path)
	if rel == "" || rel == ".." || strings.HasPrefix(rel, "../") {
		return nil, fmt.Errorf("invalid vault path %q", file.Path)
	}
	return os.ReadFile(filepath.Join(v.root, filepath.FromSlash(rel)))
}

// ListFiles walks the vault in lexical order, skipping dot-directories such
// as .obsidian and .git.
func (v *DirVault) ListFiles(ctx context.Context) ([]File, error) {
	var files []File
	err := filepath.WalkDir(v.root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != v.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(v.root, p)
		if err != nil {
			return err
		}
		files = append(files, NewFile(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list vault files: %w", err)
	}
	return files, nil
}

// MemVault is an in-memory Vault, used for previews and tests.
type MemVault struct {
	paths []string
	data  map[string][]byte
}

// NewMemVault returns an empty in-memory vault.
func NewMemVault() *MemVault {
	return &MemVault{data: map[string][]byte{}}
}

// Put stores content under a vault-relative path. Enumeration follows insertion order.
func (v *MemVault) Put(relPath string, content []byte) File {
	file := NewFile(relPath)
	if _, exists := v.data[file.Path]; !exists {
		v.paths = append(v.paths, file.Path)
	}
	v.data[file.Path] = content
	return file
}

func (v *MemVault) ReadText(ctx context.Context, file File) (string, error) {
	raw, err := v.ReadBinary(ctx, file)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (v *MemVault) ReadBinary(ctx context.Context, file File) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, ok := v.data[normalizeRelPath(file.Path)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", file.Path, os.ErrNotExist)
	}
	return raw, nil
}

func (v *MemVault) ListFiles(ctx context.Context) ([]File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	files := make([]File, 0, len(v.paths))
	for _, p := range v.paths {
		files = append(files, File{Path: p})
	}
	return files, nil
}

func normalizeRelPath(p string) string {
	p = strings.TrimSpace(filepath.ToSlash(p))
	if p == "" {
		return ""
	}
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimPrefix(p, "/")
	if p == "." {
		return ""
	}
	return p
}
