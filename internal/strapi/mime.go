package strapi

import "strings"

// DefaultMIMEType is sent for extensions missing from the lookup table.
const DefaultMIMEType = "application/octet-stream"

// mimeTypes is built once and never mutated.
var mimeTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"webp": "image/webp",
	"mp4":  "video/mp4",
	"avi":  "video/x-msvideo",
	"mov":  "video/quicktime",
	"wmv":  "video/x-ms-wmv",
	"flv":  "video/x-flv",
	"mkv":  "video/x-matroska",
	"webm": "video/webm",
}

// MIMETypeByExtension returns the MIME type for a file extension (with or
// without the leading dot), or "" when the extension is unknown.
func MIMETypeByExtension(ext string) string {
	return mimeTypes[strings.ToLower(strings.TrimPrefix(ext, "."))]
}
