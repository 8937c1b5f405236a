// Package contenttype defines the Strapi collections notes can be published
// to and how a note payload maps onto each of them.
package contenttype

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/neostalgic/obsidian-strapi-uploader/internal/fs"
	"github.com/neostalgic/obsidian-strapi-uploader/internal/strapi"
	"github.com/neostalgic/obsidian-strapi-uploader/internal/sync"
)

// ErrUnknown is returned by Lookup for unregistered content types.
var ErrUnknown = errors.New("unknown content type")

// Type is a content-type instance carrying a payload of type T. The
// collection is named by its API id; the REST route uses the plural.
type Type[T any] struct {
	apiID string
	data  T
}

// New returns a content-type instance for the collection apiID.
func New[T any](apiID string, data T) Type[T] {
	return Type[T]{apiID: apiID, data: data}
}

func (t Type[T]) SingularName() string { return t.apiID }

func (t Type[T]) PluralName() string { return t.apiID + "s" }

func (t Type[T]) Payload() any { return t.data }

// Data returns the typed payload.
func (t Type[T]) Data() T { return t.data }

// Definition describes a registered content type.
type Definition struct {
	Name        string
	Description string
	Map         sync.MappingFunc
}

var registry = map[string]Definition{
	ReganShanerComBlogPostID: {
		Name:        ReganShanerComBlogPostID,
		Description: "reganshaner.com blog post (Title, Date, Body)",
		Map:         MapReganShanerComBlogPost,
	},
	NeostalgiaIoBlogPostID: {
		Name:        NeostalgiaIoBlogPostID,
		Description: "neostalgia.io blog post (title, date, body)",
		Map:         MapNeostalgiaIoBlogPost,
	},
	ArticleID: {
		Name:        ArticleID,
		Description: "article with slug, tags and rendered HTML body",
		Map:         MapArticle,
	},
}

// Lookup returns the mapping function registered under name.
func Lookup(name string) (sync.MappingFunc, error) {
	def, ok := registry[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknown, name, strings.Join(Names(), ", "))
	}
	return def.Map, nil
}

// Names lists registered content types in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions lists registered content types sorted by name.
func Definitions() []Definition {
	defs := make([]Definition, 0, len(registry))
	for _, name := range Names() {
		defs = append(defs, registry[name])
	}
	return defs
}

var _ strapi.ContentType = Type[struct{}]{}

func requireDate(payload fs.Payload) (string, error) {
	date := strings.TrimSpace(payload.PropertyString("date"))
	if date == "" {
		return "", errors.New(`front matter "date" is required`)
	}
	return date, nil
}
