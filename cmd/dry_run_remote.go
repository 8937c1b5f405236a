package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sync"

	"github.com/neostalgic/obsidian-strapi-uploader/internal/fs"
	"github.com/neostalgic/obsidian-strapi-uploader/internal/strapi"
)

// dryRunRemote prints the requests a publish would send and answers with
// synthetic results. Uploads run concurrently, so each request is printed
// as one block.
type dryRunRemote struct {
	out  io.Writer
	host string

	mu sync.Mutex
}

func (d *dryRunRemote) UploadFile(_ context.Context, file fs.File, data []byte, replaceExisting bool) (strapi.UploadResult, error) {
	mime := strapi.MIMETypeByExtension(file.Extension())
	if mime == "" {
		mime = strapi.DefaultMIMEType
	}

	var block bytes.Buffer
	fmt.Fprintf(&block, "[DRY-RUN] UPLOAD FILE (POST %s/api/upload)\n", d.host)
	fmt.Fprintf(&block, "  File: %s\n", file.Path)
	fmt.Fprintf(&block, "  ContentType: %s\n", mime)
	fmt.Fprintf(&block, "  Size: %d bytes\n", len(data))
	if !replaceExisting {
		fmt.Fprintf(&block, "  Reuse: existing remote file named %q, if any\n", file.Name())
	}
	fmt.Fprintln(&block)
	d.write(block.Bytes())

	return strapi.UploadResult{
		Local: file,
		Remote: strapi.File{
			Name: file.Name(),
			Ext:  "." + file.Extension(),
			Mime: mime,
			Size: float64(len(data)) / 1024,
			URL:  path.Join("/uploads", file.Name()),
		},
	}, nil
}

func (d *dryRunRemote) CreateEntry(_ context.Context, entry strapi.ContentType) (strapi.Entry, error) {
	body, err := json.MarshalIndent(map[string]any{"data": entry.Payload()}, "  ", "  ")
	if err != nil {
		return strapi.Entry{}, &strapi.SubmitError{Collection: entry.PluralName(), Err: err}
	}

	var block bytes.Buffer
	fmt.Fprintf(&block, "[DRY-RUN] CREATE ENTRY (POST %s/api/%s)\n", d.host, entry.PluralName())
	fmt.Fprintf(&block, "  %s\n\n", body)
	d.write(block.Bytes())

	return strapi.Entry{DocumentID: "dry-run"}, nil
}

func (d *dryRunRemote) write(p []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, _ = d.out.Write(p)
}
