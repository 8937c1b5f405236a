package contenttype

import (
	"strings"

	"github.com/gosimple/slug"

	"github.com/neostalgic/obsidian-strapi-uploader/internal/converter"
	"github.com/neostalgic/obsidian-strapi-uploader/internal/fs"
	"github.com/neostalgic/obsidian-strapi-uploader/internal/strapi"
)

const ArticleID = "article"

// ArticleData stores both the Markdown source and its HTML rendering.
type ArticleData struct {
	Title    string   `json:"title"`
	Slug     string   `json:"slug"`
	Date     string   `json:"date,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Body     string   `json:"body"`
	Markdown string   `json:"markdown"`
}

type Article = Type[ArticleData]

func NewArticle(data ArticleData) Article {
	return New(ArticleID, data)
}

// MapArticle prefers front matter "title" and "slug" over values derived
// from the note name. The date is optional.
func MapArticle(payload fs.Payload) (strapi.ContentType, error) {
	title := strings.TrimSpace(payload.PropertyString("title"))
	if title == "" {
		title = payload.Title()
	}
	articleSlug := strings.TrimSpace(payload.PropertyString("slug"))
	if articleSlug == "" {
		articleSlug = slug.Make(title)
	}

	html, err := converter.RenderHTML(payload.Body())
	if err != nil {
		return nil, err
	}

	return NewArticle(ArticleData{
		Title:    title,
		Slug:     articleSlug,
		Date:     strings.TrimSpace(payload.PropertyString("date")),
		Tags:     tagsOf(payload.Property("tags")),
		Body:     html,
		Markdown: payload.Body(),
	}), nil
}

// tagsOf accepts a YAML list or a comma-separated string.
func tagsOf(raw any) []string {
	var tags []string
	add := func(v string) {
		v = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(v), "#"))
		if v != "" {
			tags = append(tags, v)
		}
	}
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	case string:
		for _, part := range strings.Split(v, ",") {
			add(part)
		}
	}
	return tags
}
