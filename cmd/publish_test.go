package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/neostalgic/obsidian-strapi-uploader/internal/config"
	"github.com/neostalgic/obsidian-strapi-uploader/internal/contenttype"
	"github.com/neostalgic/obsidian-strapi-uploader/internal/history"
	"github.com/neostalgic/obsidian-strapi-uploader/internal/strapi"
	syncflow "github.com/neostalgic/obsidian-strapi-uploader/internal/sync"
)

const helloNote = "---\ndate: 2024-01-01\n---\nHi ![[cat.png]] and ![[clip.mp4]]"

func prepareVault(t *testing.T) string {
	t.Helper()
	vault := t.TempDir()
	writeVaultFile(t, vault, "Posts/Hello.md", helloNote)
	writeVaultFile(t, vault, "assets/cat.png", "png-bytes")
	writeVaultFile(t, vault, "assets/clip.mp4", "mp4-bytes")
	return vault
}

func newTestCommand() (*cobra.Command, *bytes.Buffer) {
	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	return cmd, out
}

func defaultPublishFlags() publishFlags {
	return publishFlags{concurrency: 1, timeout: time.Minute}
}

func TestRunPublish_UploadsMediaAndCreatesEntry(t *testing.T) {
	fake, server := newFakeStrapi(t)
	vault := prepareVault(t)
	historyDB := setupEnv(t, server.URL, vault)
	chdirVault(t, vault)

	cmd, out := newTestCommand()
	if err := runPublish(cmd, "Posts/Hello.md", defaultPublishFlags()); err != nil {
		t.Fatalf("runPublish() unexpected error: %v", err)
	}

	if strings.Join(fake.uploaded, ",") != "cat.png,clip.mp4" {
		t.Fatalf("uploaded = %v", fake.uploaded)
	}
	if len(fake.entries) != 1 || fake.entryPaths[0] != "/api/blog-reganshaner-com-posts" {
		t.Fatalf("entries = %v at %v", fake.entries, fake.entryPaths)
	}
	data, _ := fake.entries[0]["data"].(map[string]any)
	if data["Title"] != "Hello" || data["Date"] != "2024-01-01" {
		t.Fatalf("entry data = %v", data)
	}
	wantBody := "Hi ![cat.png](/uploads/cat.png) and [clip.mp4](/uploads/clip.mp4)"
	if data["Body"] != wantBody {
		t.Fatalf("entry body = %q, want %q", data["Body"], wantBody)
	}
	if !strings.Contains(out.String(), "published Posts/Hello.md") {
		t.Fatalf("output = %q", out.String())
	}

	store, err := history.Open(context.Background(), historyDB)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer store.Close()
	publishes, err := store.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	if len(publishes) != 1 || publishes[0].Status != history.StatusSucceeded || publishes[0].Assets != 2 {
		t.Fatalf("history = %+v", publishes)
	}
}

func TestRunPublish_ReusesExistingMediaAndHonoursFlags(t *testing.T) {
	fake, server := newFakeStrapi(t)
	fake.existing = []string{"cat.png"}
	vault := prepareVault(t)
	setupEnv(t, server.URL, vault)
	chdirVault(t, vault)

	flags := defaultPublishFlags()
	flags.contentType = contenttype.NeostalgiaIoBlogPostID
	flags.absoluteURLs = true

	cmd, _ := newTestCommand()
	if err := runPublish(cmd, "Posts/Hello.md", flags); err != nil {
		t.Fatalf("runPublish() unexpected error: %v", err)
	}

	if strings.Join(fake.uploaded, ",") != "clip.mp4" {
		t.Fatalf("uploaded = %v, want only clip.mp4", fake.uploaded)
	}
	if fake.entryPaths[0] != "/api/neostalgia-io-blog-posts" {
		t.Fatalf("entry path = %s", fake.entryPaths[0])
	}
	data, _ := fake.entries[0]["data"].(map[string]any)
	wantBody := "Hi ![cat.png](" + server.URL + "/uploads/existing_cat.png) and [clip.mp4](" + server.URL + "/uploads/clip.mp4)"
	if data["body"] != wantBody {
		t.Fatalf("entry body = %q, want %q", data["body"], wantBody)
	}
}

func TestRunPublish_UploadFailureCreatesNoEntry(t *testing.T) {
	fake, server := newFakeStrapi(t)
	fake.failUpload["clip.mp4"] = true
	vault := prepareVault(t)
	historyDB := setupEnv(t, server.URL, vault)
	chdirVault(t, vault)

	cmd, _ := newTestCommand()
	err := runPublish(cmd, "Posts/Hello.md", defaultPublishFlags())

	var stageErr *syncflow.StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != syncflow.StageUpload {
		t.Fatalf("error = %v, want upload stage error", err)
	}
	var apiErr *strapi.APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "storage unavailable" {
		t.Fatalf("error = %v, want APIError with server message", err)
	}
	if len(fake.entries) != 0 {
		t.Fatalf("entries = %v, want none", fake.entries)
	}
	if !strings.Contains(failureMessage(err), "failed during asset upload") {
		t.Fatalf("failure message = %q", failureMessage(err))
	}

	store, err := history.Open(context.Background(), historyDB)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer store.Close()
	orphans, err := store.Orphans(context.Background())
	if err != nil {
		t.Fatalf("Orphans() unexpected error: %v", err)
	}
	if len(orphans) != 1 || orphans[0].Name != "cat.png" {
		t.Fatalf("orphans = %+v, want cat.png", orphans)
	}
}

func TestRunPublish_DryRunSendsNothing(t *testing.T) {
	fake, server := newFakeStrapi(t)
	vault := prepareVault(t)
	historyDB := setupEnv(t, server.URL, vault)
	chdirVault(t, vault)

	flags := defaultPublishFlags()
	flags.dryRun = true

	cmd, out := newTestCommand()
	if err := runPublish(cmd, "Posts/Hello.md", flags); err != nil {
		t.Fatalf("runPublish() unexpected error: %v", err)
	}

	if fake.requests != 0 {
		t.Fatalf("requests = %d, want none in dry run", fake.requests)
	}
	output := out.String()
	for _, want := range []string{
		"[DRY-RUN] UPLOAD FILE (POST " + server.URL + "/api/upload)",
		"ContentType: video/mp4",
		"[DRY-RUN] CREATE ENTRY (POST " + server.URL + "/api/blog-reganshaner-com-posts)",
		`"Body": "Hi ![cat.png](/uploads/cat.png) and [clip.mp4](/uploads/clip.mp4)"`,
		"dry run: Posts/Hello.md would create",
	} {
		if !strings.Contains(output, want) {
			t.Fatalf("output missing %q:\n%s", want, output)
		}
	}
	if _, err := os.Stat(historyDB); !os.IsNotExist(err) {
		t.Fatalf("dry run should not create history, stat err = %v", err)
	}
}

func TestRunPublish_ConfigurationErrors(t *testing.T) {
	_, server := newFakeStrapi(t)
	vault := prepareVault(t)
	setupEnv(t, server.URL, vault)
	chdirVault(t, vault)

	cmd, _ := newTestCommand()
	flags := defaultPublishFlags()
	flags.contentType = "nope"
	if err := runPublish(cmd, "Posts/Hello.md", flags); !errors.Is(err, contenttype.ErrUnknown) {
		t.Fatalf("unknown content type error = %v", err)
	}

	if err := runPublish(cmd, "../outside.md", defaultPublishFlags()); err == nil {
		t.Fatal("note outside the vault should fail")
	}

	t.Setenv("STRAPI_API_TOKEN", "")
	if err := runPublish(cmd, "Posts/Hello.md", defaultPublishFlags()); !errors.Is(err, config.ErrMissingConfig) {
		t.Fatalf("missing token error = %v, want ErrMissingConfig", err)
	}
}

func TestRunPublish_DryRunConcurrentUploadsPrintWholeBlocks(t *testing.T) {
	fake, server := newFakeStrapi(t)
	vault := t.TempDir()
	setupEnv(t, server.URL, vault)
	chdirVault(t, vault)

	const embeds = 40
	var note strings.Builder
	note.WriteString("---\ndate: 2024-01-01\n---\n")
	for i := 0; i < embeds; i++ {
		name := fmt.Sprintf("img-%02d.png", i)
		fmt.Fprintf(&note, "![[%s]]\n", name)
		writeVaultFile(t, vault, "assets/"+name, strings.Repeat("p", i+1))
	}
	writeVaultFile(t, vault, "Posts/Gallery.md", note.String())

	flags := defaultPublishFlags()
	flags.dryRun = true
	flags.concurrency = 8

	cmd, out := newTestCommand()
	if err := runPublish(cmd, "Posts/Gallery.md", flags); err != nil {
		t.Fatalf("runPublish() unexpected error: %v", err)
	}
	if fake.requests != 0 {
		t.Fatalf("requests = %d, want none in dry run", fake.requests)
	}

	blocks := strings.Split(out.String(), "[DRY-RUN] ")
	uploads := 0
	for _, block := range blocks[1:] {
		if !strings.HasPrefix(block, "UPLOAD FILE") {
			continue
		}
		uploads++
		lines := strings.Split(block, "\n")
		if len(lines) < 6 ||
			!strings.HasPrefix(lines[1], "  File: assets/img-") ||
			lines[2] != "  ContentType: image/png" ||
			!strings.HasPrefix(lines[3], "  Size: ") ||
			!strings.HasPrefix(lines[4], "  Reuse: ") ||
			lines[5] != "" {
			t.Fatalf("interleaved upload block:\n%s", block)
		}
		name := strings.TrimPrefix(lines[1], "  File: assets/")
		if !strings.Contains(lines[4], fmt.Sprintf("%q", name)) {
			t.Fatalf("upload block mixes files:\n%s", block)
		}
	}
	if uploads != embeds {
		t.Fatalf("printed %d upload blocks, want %d", uploads, embeds)
	}
}
