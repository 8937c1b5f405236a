package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/neostalgic/obsidian-strapi-uploader/internal/converter"
	"github.com/neostalgic/obsidian-strapi-uploader/internal/fs"
	"github.com/neostalgic/obsidian-strapi-uploader/internal/strapi"
)

const (
	DefaultConcurrency = 4
	DefaultTimeout     = 5 * time.Minute
)

// Remote defines remote operations required by publish orchestration.
type Remote interface {
	UploadFile(ctx context.Context, file fs.File, data []byte, replaceExisting bool) (strapi.UploadResult, error)
	CreateEntry(ctx context.Context, entry strapi.ContentType) (strapi.Entry, error)
}

// MappingFunc builds the entry to create from a finished document payload.
type MappingFunc func(payload fs.Payload) (strapi.ContentType, error)

// Progress defines a progress reporter.
type Progress interface {
	SetDescription(desc string)
	SetTotal(total int)
	Add(n int)
	Done()
}

// Recorder persists the outcome of a publish run.
type Recorder interface {
	RecordPublish(ctx context.Context, record PublishRecord) error
}

// Stage names a step of the publish pipeline.
type Stage string

const (
	StageRead   Stage = "read"
	StageUpload Stage = "upload"
	StageMap    Stage = "map"
	StageSubmit Stage = "submit"
)

// StageError reports which pipeline step failed.
type StageError struct {
	Stage Stage
	Path  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// PublishOptions controls publish orchestration.
type PublishOptions struct {
	// Concurrency bounds parallel uploads. Zero means DefaultConcurrency.
	Concurrency int
	// Timeout bounds the whole run. Zero means DefaultTimeout.
	Timeout time.Duration
	// ReplaceExisting uploads assets even when a remote file of the same
	// name exists.
	ReplaceExisting bool
	// ResolveURL, when set, rewrites remote media URLs before they are
	// written into the body.
	ResolveURL func(string) string
	Logger     *slog.Logger
	Progress   Progress
	Recorder   Recorder
}

// PublishResult captures outputs of a successful publish.
type PublishResult struct {
	Note     fs.File
	Payload  fs.Payload
	Entry    strapi.Entry
	Type     strapi.ContentType
	Uploads  []strapi.UploadResult
	Rewrites converter.RewriteMap
}

// PublishRecord is what a Recorder receives after every run, successful or
// not. Uploads holds only the assets that reached the remote.
type PublishRecord struct {
	Note       string
	Collection string
	Stage      Stage
	Err        error
	Entry      strapi.Entry
	Uploads    []strapi.UploadResult
	StartedAt  time.Time
	FinishedAt time.Time
}

// Succeeded reports whether the run created an entry.
func (r PublishRecord) Succeeded() bool { return r.Err == nil }

// Publish reads a note, uploads every embedded asset, rewrites the embeds
// to remote markup, and creates an entry built by mapping. Every asset must
// upload before the entry is created. Uploads that succeeded before a later
// failure are left on the remote.
func Publish(
	ctx context.Context,
	vault fs.Vault,
	remote Remote,
	file fs.File,
	mapping MappingFunc,
	opts PublishOptions,
) (PublishResult, error) {
	if vault == nil {
		return PublishResult{}, errors.New("vault is required")
	}
	if remote == nil {
		return PublishResult{}, errors.New("remote is required")
	}
	if mapping == nil {
		return PublishResult{}, errors.New("mapping function is required")
	}
	opts = normalizePublishOptions(opts)
	logger := opts.Logger.With("note", file.Path)

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	record := PublishRecord{Note: file.Path, StartedAt: time.Now()}
	result, err := publish(ctx, vault, remote, file, mapping, opts, logger, &record)

	record.FinishedAt = time.Now()
	record.Err = err
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		record.Stage = stageErr.Stage
	}
	if opts.Recorder != nil {
		// The publish context may already be expired; the ledger write is
		// independent of it.
		if recErr := opts.Recorder.RecordPublish(context.WithoutCancel(ctx), record); recErr != nil {
			logger.Warn("failed to record publish", "error", recErr)
		}
	}
	return result, err
}

func publish(
	ctx context.Context,
	vault fs.Vault,
	remote Remote,
	file fs.File,
	mapping MappingFunc,
	opts PublishOptions,
	logger *slog.Logger,
	record *PublishRecord,
) (PublishResult, error) {
	logger.Info("reading note")
	reader := fs.NewReader(vault, file)
	if err := reader.Load(ctx); err != nil {
		return PublishResult{}, &StageError{Stage: StageRead, Path: file.Path, Err: err}
	}
	embedded, err := reader.EmbeddedFiles()
	if err != nil {
		return PublishResult{}, &StageError{Stage: StageRead, Path: file.Path, Err: err}
	}

	logger.Info("uploading assets", "count", len(embedded))
	uploads, err := uploadAssets(ctx, vault, remote, embedded, opts, logger)
	record.Uploads = uploads
	if err != nil {
		return PublishResult{}, &StageError{Stage: StageUpload, Path: file.Path, Err: err}
	}

	if opts.ResolveURL != nil {
		for i := range uploads {
			uploads[i].Remote.URL = opts.ResolveURL(uploads[i].Remote.URL)
		}
	}
	rewrites := converter.BuildRewriteMap(uploads)

	payload, err := reader.Payload(func(stripped string) string {
		return converter.Rewrite(stripped, rewrites)
	})
	if err != nil {
		return PublishResult{}, &StageError{Stage: StageRead, Path: file.Path, Err: err}
	}

	entryType, err := mapping(payload)
	if err == nil && entryType == nil {
		err = errors.New("mapping returned no content type")
	}
	if err != nil {
		return PublishResult{}, &StageError{Stage: StageMap, Path: file.Path, Err: err}
	}
	record.Collection = entryType.PluralName()

	logger.Info("creating entry", "collection", entryType.PluralName())
	entry, err := remote.CreateEntry(ctx, entryType)
	if err != nil {
		return PublishResult{}, &StageError{Stage: StageSubmit, Path: file.Path, Err: err}
	}
	record.Entry = entry
	logger.Info("entry created", "id", entry.ID, "document_id", entry.DocumentID)

	return PublishResult{
		Note:     file,
		Payload:  payload,
		Entry:    entry,
		Type:     entryType,
		Uploads:  uploads,
		Rewrites: rewrites,
	}, nil
}

// uploadAssets uploads files concurrently. The first failure cancels the
// remaining uploads. On failure the returned slice holds the uploads that
// completed.
func uploadAssets(
	ctx context.Context,
	vault fs.Vault,
	remote Remote,
	files []fs.File,
	opts PublishOptions,
	logger *slog.Logger,
) ([]strapi.UploadResult, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if opts.Progress != nil {
		opts.Progress.SetDescription("Uploading assets")
		opts.Progress.SetTotal(len(files))
		defer opts.Progress.Done()
	}

	results := make([]strapi.UploadResult, len(files))
	completed := make([]bool, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, file := range files {
		g.Go(func() error {
			data, err := vault.ReadBinary(gctx, file)
			if err != nil {
				return fmt.Errorf("%w %s: %w", fs.ErrRead, file.Path, err)
			}
			result, err := remote.UploadFile(gctx, file, data, opts.ReplaceExisting)
			if err != nil {
				logger.Debug("asset upload failed", "asset", file.Path, "error", err)
				return err
			}
			results[i] = result
			completed[i] = true
			logger.Debug("asset uploaded",
				"asset", file.Path,
				"remote_id", result.Remote.ID,
				"url", result.Remote.URL,
				"reused", result.Reused,
			)
			if opts.Progress != nil {
				opts.Progress.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		done := make([]strapi.UploadResult, 0, len(files))
		for i, ok := range completed {
			if ok {
				done = append(done, results[i])
			}
		}
		return done, err
	}
	return results, nil
}

func normalizePublishOptions(opts PublishOptions) PublishOptions {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return opts
}
