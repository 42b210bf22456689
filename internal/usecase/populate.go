package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pdfrag/internal/domain"
	"pdfrag/internal/metrics"
	"pdfrag/internal/port"
)

const defaultBatchSize = 32

// ProgressFunc is called once per discovered file, in order, when the file is done.
// Unreadable files and files without pages are reported too.
type ProgressFunc func(done, total int, path string)

// PopulateUseCase loads PDFs, chunks their pages, embeds new chunks and
// writes them to the vector store.
type PopulateUseCase struct {
	loader    port.PageLoader
	chunker   port.Chunker
	embedder  port.Embedder
	store     port.VectorStore
	batchSize int
	logger    *zap.Logger
	progress  ProgressFunc
}

func NewPopulateUseCase(
	loader port.PageLoader,
	chunker port.Chunker,
	embedder port.Embedder,
	store port.VectorStore,
	batchSize int,
	logger *zap.Logger,
) *PopulateUseCase {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PopulateUseCase{
		loader:    loader,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		batchSize: batchSize,
		logger:    logger,
	}
}

// OnProgress installs a progress callback. Not safe to call during Populate.
func (u *PopulateUseCase) OnProgress(fn ProgressFunc) {
	u.progress = fn
}

// Populate ingests every PDF under root. Files that cannot be read are
// recorded in the report and skipped; embedding and store failures abort the
// run, leaving whatever was already stored in place. Chunks whose ids are
// already stored are never re-embedded.
func (u *PopulateUseCase) Populate(ctx context.Context, root string) (*domain.PopulateReport, error) {
	start := time.Now()
	report := &domain.PopulateReport{}

	existing, err := u.store.Count()
	if err != nil {
		return report, fmt.Errorf("count records: %w", err)
	}
	report.ExistingCount = existing

	files, err := u.loader.Discover(root)
	if err != nil {
		return report, err
	}
	report.FilesSeen = len(files)

	var (
		current string
		pending []domain.Chunk
		done    int // files reported so far; pages arrive in files order
	)

	// skipTo reports every file before path that yielded no pages.
	skipTo := func(path string) {
		for done < len(files) && files[done].RelPath != path {
			done++
			u.notify(done, len(files), files[done-1].RelPath)
		}
	}

	finishFile := func() error {
		if current == "" {
			return nil
		}
		if err := u.storeChunks(ctx, pending, report); err != nil {
			return fmt.Errorf("store chunks of %s: %w", current, err)
		}
		done++
		u.notify(done, len(files), current)
		current, pending = "", nil
		return nil
	}

	for page, err := range u.loader.Pages(ctx, files) {
		if err != nil {
			var ingErr *domain.IngestionError
			if !errors.As(err, &ingErr) {
				return report, err
			}
			if err := finishFile(); err != nil {
				return report, err
			}
			skipTo(ingErr.Path)
			u.logger.Warn("Skipping unreadable document", zap.String("path", ingErr.Path), zap.Error(ingErr.Err))
			metrics.IngestionFailuresTotal.Inc()
			report.Failures = append(report.Failures, ingErr)
			done++
			u.notify(done, len(files), ingErr.Path)
			continue
		}

		if page.Source != current {
			if err := finishFile(); err != nil {
				return report, err
			}
			skipTo(page.Source)
			current = page.Source
		}

		report.Pages++
		chunks := u.chunker.Chunk(page)
		report.ChunksProduced += len(chunks)
		pending = append(pending, chunks...)
	}
	if err := finishFile(); err != nil {
		return report, err
	}
	skipTo("")

	report.FilesLoaded = report.FilesSeen - len(report.Failures)

	total, err := u.store.Count()
	if err != nil {
		return report, fmt.Errorf("count records: %w", err)
	}
	report.TotalCount = total
	metrics.StoreRecords.Set(float64(total))

	u.logger.Info("Populate finished",
		zap.Int("files", report.FilesSeen),
		zap.Int("failed", len(report.Failures)),
		zap.Int("pages", report.Pages),
		zap.Int("chunks", report.ChunksProduced),
		zap.Int("skipped", report.ChunksSkipped),
		zap.Int("added", report.ChunksAdded),
		zap.Int("total", report.TotalCount),
		zap.Duration("took", time.Since(start)),
	)
	return report, nil
}

// storeChunks embeds and upserts the chunks of one file in batches, skipping ids
// the store already holds.
func (u *PopulateUseCase) storeChunks(ctx context.Context, chunks []domain.Chunk, report *domain.PopulateReport) error {
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	present, err := u.store.Existing(ids)
	if err != nil {
		return err
	}

	fresh := make([]domain.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if present[c.ID] {
			report.ChunksSkipped++
			continue
		}
		fresh = append(fresh, c)
	}

	for i := 0; i < len(fresh); i += u.batchSize {
		batch := fresh[i:min(i+u.batchSize, len(fresh))]

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Text
		}
		vecs, err := u.embedder.Embed(ctx, texts)
		if err != nil {
			return err
		}
		if len(vecs) != len(batch) {
			return fmt.Errorf("%w: expected %d vectors, got %d", domain.ErrEmbedding, len(batch), len(vecs))
		}

		records := make([]domain.Record, len(batch))
		for j, c := range batch {
			records[j] = domain.Record{Chunk: c, Vector: vecs[j]}
		}
		added, err := u.store.Upsert(records)
		if err != nil {
			return err
		}
		report.ChunksAdded += added
		metrics.ChunksAddedTotal.Add(float64(added))
	}
	return nil
}

func (u *PopulateUseCase) notify(done, total int, path string) {
	if u.progress != nil {
		u.progress(done, total, path)
	}
}
