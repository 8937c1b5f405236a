package strapi

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/neostalgic/obsidian-strapi-uploader/internal/fs"
)

// ContentType describes which collection an entry is created in and the
// payload it carries. Every destination schema is a distinct implementation.
type ContentType interface {
	SingularName() string
	PluralName() string
	Payload() any
}

// File is a media library file stored in Strapi.
type File struct {
	ID               int64
	DocumentID       string
	Name             string
	AlternativeText  string
	Caption          string
	Width            int
	Height           int
	Formats          ImageFormats
	Hash             string
	Ext              string
	Mime             string
	Size             float64
	URL              string
	PreviewURL       string
	Provider         string
	ProviderMetadata json.RawMessage
	FolderPath       string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ImageFormats holds the derivatives Strapi generates for uploaded images.
type ImageFormats struct {
	Thumbnail *ImageFormat `json:"thumbnail,omitempty"`
	Small     *ImageFormat `json:"small,omitempty"`
	Medium    *ImageFormat `json:"medium,omitempty"`
	Large     *ImageFormat `json:"large,omitempty"`
}

// ImageFormat is a single generated image derivative.
type ImageFormat struct {
	Ext         string  `json:"ext"`
	URL         string  `json:"url"`
	Hash        string  `json:"hash"`
	Mime        string  `json:"mime"`
	Name        string  `json:"name"`
	Path        string  `json:"path"`
	Size        float64 `json:"size"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	SizeInBytes int64   `json:"sizeInBytes"`
}

// UploadResult pairs a local vault file with the remote file produced or
// reused for it.
type UploadResult struct {
	Local  fs.File
	Remote File
	// Reused is true when an existing remote file with the same name was
	// returned instead of uploading.
	Reused bool
}

// Entry is a content entry created through the REST API.
type Entry struct {
	ID         int64
	DocumentID string
	// Data is the raw "data" object of the response.
	Data json.RawMessage
	// Meta is the raw "meta" object of the response.
	Meta json.RawMessage
}

// Pagination is the pagination block of list responses.
type Pagination struct {
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	PageCount int `json:"pageCount"`
	Total     int `json:"total"`
}

// UploadError is returned when listing or uploading media fails.
type UploadError struct {
	Op       string
	Filename string
	Err      error
}

func (e *UploadError) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Filename, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// SubmitError is returned when creating a content entry fails.
type SubmitError struct {
	Collection string
	Err        error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("create %s entry: %v", e.Collection, e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }

type fileDTO struct {
	ID               int64           `json:"id"`
	DocumentID       string          `json:"documentId"`
	Name             string          `json:"name"`
	AlternativeText  string          `json:"alternativeText"`
	Caption          string          `json:"caption"`
	Width            int             `json:"width"`
	Height           int             `json:"height"`
	Formats          ImageFormats    `json:"formats"`
	Hash             string          `json:"hash"`
	Ext              string          `json:"ext"`
	Mime             string          `json:"mime"`
	Size             float64         `json:"size"`
	URL              string          `json:"url"`
	PreviewURL       string          `json:"previewUrl"`
	Provider         string          `json:"provider"`
	ProviderMetadata json.RawMessage `json:"provider_metadata"`
	FolderPath       string          `json:"folderPath"`
	CreatedAt        string          `json:"createdAt"`
	UpdatedAt        string          `json:"updatedAt"`
}

func (f fileDTO) toModel() File {
	return File{
		ID:               f.ID,
		DocumentID:       f.DocumentID,
		Name:             f.Name,
		AlternativeText:  f.AlternativeText,
		Caption:          f.Caption,
		Width:            f.Width,
		Height:           f.Height,
		Formats:          f.Formats,
		Hash:             f.Hash,
		Ext:              f.Ext,
		Mime:             f.Mime,
		Size:             f.Size,
		URL:              f.URL,
		PreviewURL:       f.PreviewURL,
		Provider:         f.Provider,
		ProviderMetadata: f.ProviderMetadata,
		FolderPath:       f.FolderPath,
		CreatedAt:        parseRemoteTime(f.CreatedAt),
		UpdatedAt:        parseRemoteTime(f.UpdatedAt),
	}
}

type fileListResponse struct {
	Results    []fileDTO  `json:"results"`
	Data       []fileDTO  `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type entryResponse struct {
	Data json.RawMessage `json:"data"`
	Meta json.RawMessage `json:"meta"`
}

type entryDataDTO struct {
	ID         int64  `json:"id"`
	DocumentID string `json:"documentId"`
}

func parseRemoteTime(candidates ...string) time.Time {
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
			if t, err := time.Parse(layout, candidate); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
