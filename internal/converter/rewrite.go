package converter

import (
	"regexp"
	"sort"
	"strings"

	"github.com/neostalgic/obsidian-strapi-uploader/internal/strapi"
)

// RewriteMap maps an embed literal such as "![[cat.png]]" to the markup that
// replaces it.
type RewriteMap map[string]string

// MediaKind classifies a remote file by its MIME type.
type MediaKind int

const (
	MediaOther MediaKind = iota
	MediaImage
	MediaVideo
)

// KindOf reports whether mime names an image, a video, or anything else.
func KindOf(mime string) MediaKind {
	m := strings.ToLower(mime)
	switch {
	case strings.Contains(m, "image"):
		return MediaImage
	case strings.Contains(m, "video"):
		return MediaVideo
	default:
		return MediaOther
	}
}

// EmbedLiteral returns the wiki-embed literal for a file name.
func EmbedLiteral(name string) string {
	return "![[" + name + "]]"
}

// BuildRewriteMap derives replacement markup from upload results. Images
// become inline images, videos become links, and everything else is left
// out so its embed stays untouched. Later results win on key collisions.
func BuildRewriteMap(results []strapi.UploadResult) RewriteMap {
	rewrites := make(RewriteMap, len(results))
	for _, result := range results {
		name := result.Local.Name()
		switch KindOf(result.Remote.Mime) {
		case MediaImage:
			rewrites[EmbedLiteral(name)] = "![" + name + "](" + result.Remote.URL + ")"
		case MediaVideo:
			rewrites[EmbedLiteral(name)] = "[" + name + "](" + result.Remote.URL + ")"
		}
	}
	return rewrites
}

// Rewrite replaces every occurrence of a map key in text with its value in a
// single left-to-right pass. Keys match literally and case-insensitively;
// replacements are never rescanned.
func Rewrite(text string, rewrites RewriteMap) string {
	if len(rewrites) == 0 || text == "" {
		return text
	}

	keys := make([]string, 0, len(rewrites))
	for key := range rewrites {
		if key != "" {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return text
	}
	// Longest first so a key never loses to one of its own prefixes.
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	folded := make(map[string]string, len(keys))
	quoted := make([]string, len(keys))
	for i, key := range keys {
		quoted[i] = regexp.QuoteMeta(key)
		lower := strings.ToLower(key)
		if _, ok := folded[lower]; !ok {
			folded[lower] = rewrites[key]
		}
	}
	pattern := regexp.MustCompile("(?i)" + strings.Join(quoted, "|"))

	return pattern.ReplaceAllStringFunc(text, func(match string) string {
		if v, ok := rewrites[match]; ok {
			return v
		}
		if v, ok := folded[strings.ToLower(match)]; ok {
			return v
		}
		return ""
	})
}
