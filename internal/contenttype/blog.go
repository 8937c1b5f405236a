package contenttype

import (
	"github.com/neostalgic/obsidian-strapi-uploader/internal/fs"
	"github.com/neostalgic/obsidian-strapi-uploader/internal/strapi"
)

const (
	ReganShanerComBlogPostID = "blog-reganshaner-com-post"
	NeostalgiaIoBlogPostID   = "neostalgia-io-blog-post"
)

// ReganShanerComBlogPostData uses the collection's capitalized field names.
type ReganShanerComBlogPostData struct {
	Title string `json:"Title"`
	Date  string `json:"Date"`
	Body  string `json:"Body"`
}

type ReganShanerComBlogPost = Type[ReganShanerComBlogPostData]

func NewReganShanerComBlogPost(data ReganShanerComBlogPostData) ReganShanerComBlogPost {
	return New(ReganShanerComBlogPostID, data)
}

// MapReganShanerComBlogPost titles the post after the note and takes its
// date from front matter.
func MapReganShanerComBlogPost(payload fs.Payload) (strapi.ContentType, error) {
	date, err := requireDate(payload)
	if err != nil {
		return nil, err
	}
	return NewReganShanerComBlogPost(ReganShanerComBlogPostData{
		Title: payload.Title(),
		Date:  date,
		Body:  payload.Body(),
	}), nil
}

type NeostalgiaIoBlogPostData struct {
	Title string `json:"title"`
	Date  string `json:"date"`
	Body  string `json:"body"`
}

type NeostalgiaIoBlogPost = Type[NeostalgiaIoBlogPostData]

func NewNeostalgiaIoBlogPost(data NeostalgiaIoBlogPostData) NeostalgiaIoBlogPost {
	return New(NeostalgiaIoBlogPostID, data)
}

func MapNeostalgiaIoBlogPost(payload fs.Payload) (strapi.ContentType, error) {
	date, err := requireDate(payload)
	if err != nil {
		return nil, err
	}
	return NewNeostalgiaIoBlogPost(NeostalgiaIoBlogPostData{
		Title: payload.Title(),
		Date:  date,
		Body:  payload.Body(),
	}), nil
}
