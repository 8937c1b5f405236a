package fs

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrNotLoaded is returned by Reader accessors used before Load.
	ErrNotLoaded = errors.New("no file loaded in reader")
	// ErrRead indicates the document contents could not be read from the vault.
	ErrRead = errors.New("cannot load contents of file")
)

var embedPattern = regexp.MustCompile(`!\[\[([^\]]+)\]\]`)

// Payload is the finalized document handed to a content-type mapping.
// It is immutable once built.
type Payload struct {
	title    string
	metadata Metadata
	body     string
}

// NewPayload builds a payload. The metadata is copied.
func NewPayload(title string, metadata Metadata, body string) Payload {
	return Payload{
		title:    title,
		metadata: metadata.Clone(),
		body:     body,
	}
}

func (p Payload) Title() string { return p.title }

func (p Payload) Body() string { return p.body }

// Metadata returns a copy of the frontmatter metadata.
func (p Payload) Metadata() Metadata { return p.metadata.Clone() }

// Property returns a copy of a frontmatter value, or nil when absent.
func (p Payload) Property(key string) any { return cloneValue(p.metadata.Get(key)) }

// PropertyString returns a frontmatter value as a string, or "" when absent.
func (p Payload) PropertyString(key string) string { return p.metadata.String(key) }

// Reader loads a single note from a vault and exposes its parts.
type Reader struct {
	vault Vault
	file  File

	loaded        bool
	title         string
	contents      string
	stripped      string
	metadata      Metadata
	embedNames    []string
	embeddedFiles []File
}

// NewReader returns a reader for file. Call Load before any accessor.
func NewReader(vault Vault, file File) *Reader {
	return &Reader{vault: vault, file: file}
}

// Load reads the note, strips and parses its frontmatter, and resolves embeds.
func (r *Reader) Load(ctx context.Context) error {
	contents, err := r.vault.ReadText(ctx, r.file)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrRead, r.file.Path, err)
	}

	block, stripped, _, err := SplitFrontmatter(contents)
	if err != nil {
		return fmt.Errorf("%s: %w", r.file.Path, err)
	}
	metadata, err := ParseFrontmatter(block)
	if err != nil {
		return fmt.Errorf("%s: %w", r.file.Path, err)
	}

	names := FindEmbeds(contents)
	var embedded []File
	if len(names) > 0 {
		files, err := r.vault.ListFiles(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrRead, err)
		}
		embedded = ResolveEmbeds(names, files)
	}

	r.title = r.file.Basename()
	r.contents = contents
	r.stripped = stripped
	r.metadata = metadata
	r.embedNames = names
	r.embeddedFiles = embedded
	r.loaded = true
	return nil
}

// File returns the handle the reader was created for.
func (r *Reader) File() File { return r.file }

func (r *Reader) Title() (string, error) {
	if err := r.loadCheck(); err != nil {
		return "", err
	}
	return r.title, nil
}

// Contents returns the raw note text, frontmatter included.
func (r *Reader) Contents() (string, error) {
	if err := r.loadCheck(); err != nil {
		return "", err
	}
	return r.contents, nil
}

// StrippedContents returns the note body without frontmatter.
func (r *Reader) StrippedContents() (string, error) {
	if err := r.loadCheck(); err != nil {
		return "", err
	}
	return r.stripped, nil
}

// Property returns a frontmatter value, or nil when the key is absent.
func (r *Reader) Property(key string) (any, error) {
	if err := r.loadCheck(); err != nil {
		return nil, err
	}
	return r.metadata.Get(key), nil
}

// EmbedNames returns every embed name in document order, duplicates included.
func (r *Reader) EmbedNames() ([]string, error) {
	if err := r.loadCheck(); err != nil {
		return nil, err
	}
	return append([]string(nil), r.embedNames...), nil
}

// EmbeddedFiles returns the distinct vault files the embeds resolved to.
func (r *Reader) EmbeddedFiles() ([]File, error) {
	if err := r.loadCheck(); err != nil {
		return nil, err
	}
	return append([]File(nil), r.embeddedFiles...), nil
}

// Payload builds the final document payload. When transform is non-nil its
// return value replaces the stripped body.
func (r *Reader) Payload(transform func(stripped string) string) (Payload, error) {
	if err := r.loadCheck(); err != nil {
		return Payload{}, err
	}
	body := r.stripped
	if transform != nil {
		body = transform(r.stripped)
	}
	return NewPayload(r.title, r.metadata, body), nil
}

func (r *Reader) loadCheck() error {
	if !r.loaded {
		return ErrNotLoaded
	}
	return nil
}

// FindEmbeds returns the names captured from every ![[name]] occurrence.
func FindEmbeds(content string) []string {
	matches := embedPattern.FindAllStringSubmatch(content, -1)
	names := make([]string, 0, len(matches))
	for _, match := range matches {
		names = append(names, match[1])
	}
	return names
}

// ResolveEmbeds maps embed names to vault files. For each distinct name a
// file whose display name equals it wins; otherwise the first file, in vault
// enumeration order, whose display name contains it is used. Names that match
// nothing are dropped. The result holds each file once, in order of first
// reference.
func ResolveEmbeds(names []string, files []File) []File {
	seenName := map[string]struct{}{}
	seenPath := map[string]struct{}{}
	var out []File
	for _, name := range names {
		if _, ok := seenName[name]; ok {
			continue
		}
		seenName[name] = struct{}{}

		match, ok := resolveEmbed(name, files)
		if !ok {
			continue
		}
		if _, dup := seenPath[match.Path]; dup {
			continue
		}
		seenPath[match.Path] = struct{}{}
		out = append(out, match)
	}
	return out
}

func resolveEmbed(name string, files []File) (File, bool) {
	for _, file := range files {
		if file.Name() == name {
			return file, true
		}
	}
	for _, file := range files {
		if strings.Contains(file.Name(), name) {
			return file, true
		}
	}
	return File{}, false
}
