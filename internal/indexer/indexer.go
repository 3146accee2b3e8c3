package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/panjf2000/ants/v2"
	gitignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/vectorize/internal/backend"
	"github.com/hyperjump/vectorize/internal/config"
	"github.com/hyperjump/vectorize/internal/embedding"
	"github.com/hyperjump/vectorize/internal/extract"
	"github.com/hyperjump/vectorize/internal/fileid"
	"github.com/hyperjump/vectorize/internal/incremental"
	"github.com/hyperjump/vectorize/internal/models"
	"github.com/hyperjump/vectorize/internal/tokenizer"
)

// MinContentChars is the least number of non-space characters extracted text
// must have to be indexed.
const MinContentChars = 10

// ErrRunInProgress is returned by IndexDirectory while another run is active.
var ErrRunInProgress = errors.New("an indexing run is already in progress")

// Settings are the run parameters taken from configuration.
type Settings struct {
	Mode               string
	Extensions         []string
	ExcludeDirectories []string
	ExcludePatterns    []string
	MaxFileSize        int64
	ChunkSize          int
	ChunkOverlap       int
	BatchSize          int
	Workers            int
	EmbedConcurrency   int
}

// SettingsFromConfig extracts Settings from a loaded configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Mode:               cfg.Indexing.Mode,
		Extensions:         cfg.Source.Extensions,
		ExcludeDirectories: cfg.Source.ExcludeDirectories,
		ExcludePatterns:    cfg.Source.ExcludePatterns,
		MaxFileSize:        cfg.Source.MaxFileSizeBytes(),
		ChunkSize:          cfg.Indexing.ChunkSize,
		ChunkOverlap:       cfg.Indexing.ChunkOverlap,
		BatchSize:          cfg.Indexing.BatchSize,
		Workers:            cfg.Indexing.Workers,
		EmbedConcurrency:   cfg.Embedding.Concurrency,
	}
}

// Indexer runs files through extraction, chunking, embedding and upload.
type Indexer struct {
	settings  Settings
	registry  *extract.Registry
	uploader  *BatchUploader
	chunker   *Chunker
	tok       tokenizer.Tokenizer
	generator *embedding.Generator
	cache     *embedding.Cache
	gate      *incremental.Gate
	logger    *zap.Logger

	allowed map[string]struct{}
	exclude map[string]struct{}
	ignore  *gitignore.GitIgnore

	running atomic.Bool
	loadMu  sync.Mutex
	loaded  bool
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(idx *Indexer) { idx.logger = l }
}

// WithGenerator sets the embedding generator. Required in vector mode.
func WithGenerator(g *embedding.Generator) Option {
	return func(idx *Indexer) { idx.generator = g }
}

// WithTokenizer sets the tokenizer used for chunk windows. Required in vector mode.
func WithTokenizer(t tokenizer.Tokenizer) Option {
	return func(idx *Indexer) { idx.tok = t }
}

// WithEmbeddingCache registers the cache so it is loaded and flushed with each run.
// The same cache should be given to the generator.
func WithEmbeddingCache(c *embedding.Cache) Option {
	return func(idx *Indexer) { idx.cache = c }
}

// WithGate enables incremental indexing.
func WithGate(g *incremental.Gate) Option {
	return func(idx *Indexer) { idx.gate = g }
}

// New validates settings and returns an Indexer uploading to b.
func New(settings Settings, registry *extract.Registry, b backend.SearchBackend, opts ...Option) (*Indexer, error) {
	idx := &Indexer{
		settings: settings,
		registry: registry,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.registry == nil {
		idx.registry = extract.NewRegistry()
	}
	if b == nil {
		return nil, fmt.Errorf("indexer: search backend is required")
	}
	idx.uploader = NewBatchUploader(b, idx.logger)

	switch settings.Mode {
	case config.ModeVector:
		if idx.generator == nil || idx.tok == nil {
			return nil, fmt.Errorf("indexer: vector mode needs an embedding generator and a tokenizer")
		}
		c, err := NewChunker(idx.tok, settings.ChunkSize, settings.ChunkOverlap)
		if err != nil {
			return nil, err
		}
		idx.chunker = c
	case config.ModeStandard:
	default:
		return nil, &config.ConfigurationError{Problems: []string{fmt.Sprintf("unknown indexing mode %q", settings.Mode)}}
	}
	if idx.settings.Workers < 1 {
		idx.settings.Workers = 1
	}
	if idx.settings.EmbedConcurrency < 1 {
		idx.settings.EmbedConcurrency = 1
	}
	if idx.settings.BatchSize < 1 {
		idx.settings.BatchSize = 1
	}

	idx.allowed = make(map[string]struct{}, len(settings.Extensions))
	for _, ext := range settings.Extensions {
		idx.allowed[normalizeExt(ext)] = struct{}{}
	}
	idx.exclude = make(map[string]struct{}, len(settings.ExcludeDirectories))
	for _, d := range settings.ExcludeDirectories {
		idx.exclude[strings.ToLower(d)] = struct{}{}
	}
	if len(settings.ExcludePatterns) > 0 {
		idx.ignore = gitignore.CompileIgnoreLines(settings.ExcludePatterns...)
	}
	return idx, nil
}

// Mode returns the indexing mode.
func (idx *Indexer) Mode() string { return idx.settings.Mode }

// Running reports whether IndexDirectory is active.
func (idx *Indexer) Running() bool { return idx.running.Load() }

// Load reads the persisted caches once per Indexer. A failing store is
// logged and the run continues with empty caches.
func (idx *Indexer) Load(ctx context.Context) {
	idx.loadMu.Lock()
	defer idx.loadMu.Unlock()
	if idx.loaded {
		return
	}
	idx.loaded = true
	if idx.cache != nil {
		if err := idx.cache.Load(ctx); err != nil {
			idx.logger.Warn("embedding cache unavailable, starting empty", zap.Error(err))
		} else {
			idx.logger.Info("embedding cache loaded", zap.Int("entries", idx.cache.Len()))
		}
	}
	if idx.gate != nil {
		if err := idx.gate.Load(ctx); err != nil {
			idx.logger.Warn("file cache unavailable, all files will be processed", zap.Error(err))
		} else {
			idx.logger.Info("file cache loaded", zap.Int("entries", idx.gate.Len()))
		}
	}
}

// Flush persists both caches.
func (idx *Indexer) Flush(ctx context.Context) error {
	var errs []error
	if idx.cache != nil {
		idx.logger.Debug("flushing embedding cache", zap.Int("pending", idx.cache.Pending()))
		if err := idx.cache.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if idx.gate != nil {
		if err := idx.gate.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// IndexDirectory discovers files under dir and processes them on a pool of
// Workers goroutines. Caches are flushed once after every worker has
// finished, even when ctx was cancelled. The statistics are returned together
// with any discovery or flush error.
func (idx *Indexer) IndexDirectory(ctx context.Context, dir string, recursive bool) (*models.RunStatistics, error) {
	if !idx.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer idx.running.Store(false)

	idx.Load(ctx)
	stats := newRunStats(idx.settings.Mode)
	before := countsOf(idx.generator)

	tasks, err := idx.Discover(dir, recursive)
	if err != nil {
		return stats.finish(embedCounts{}), err
	}
	stats.discovered(len(tasks))
	idx.logger.Info("indexing started",
		zap.String("dir", dir),
		zap.Int("files", len(tasks)),
		zap.String("mode", idx.settings.Mode),
		zap.Int("workers", idx.settings.Workers))

	pool, err := ants.NewPool(idx.settings.Workers, ants.WithPanicHandler(func(p any) {
		idx.logger.Error("file worker panicked", zap.Any("panic", p))
	}))
	if err != nil {
		return stats.finish(embedCounts{}), fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, task := range tasks {
		if ctx.Err() != nil {
			idx.logger.Warn("indexing cancelled, not scheduling remaining files")
			break
		}
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			stats.add(idx.processTask(ctx, task))
		})
		if submitErr != nil {
			wg.Done()
			stats.add(models.FileOutcome{Path: task.Path, Status: models.StatusFailed, Error: submitErr.Error()})
		}
	}
	wg.Wait()

	flushErr := idx.Flush(context.WithoutCancel(ctx))
	result := stats.finish(countsOf(idx.generator).since(before))
	LogSummary(idx.logger, result)
	if flushErr != nil {
		return result, fmt.Errorf("flush caches: %w", flushErr)
	}
	return result, ctx.Err()
}

// IndexFile processes a single file without flushing the caches.
// Only a failed stat or a non-regular file is returned as an error; every
// other failure is reported in the outcome.
func (idx *Indexer) IndexFile(ctx context.Context, path string) (models.FileOutcome, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return models.FileOutcome{}, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return models.FileOutcome{}, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return models.FileOutcome{}, fmt.Errorf("not a regular file: %s", abs)
	}
	idx.Load(ctx)
	return idx.processTask(ctx, models.FileTask{Path: abs, Size: info.Size(), ModTime: info.ModTime()}), nil
}

// Forget drops path from the incremental cache so it is processed again next time.
func (idx *Indexer) Forget(path string) {
	if idx.gate == nil {
		return
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	idx.gate.Forget(path)
}

// Accepts reports whether path passes the extension and exclusion filters.
// root is the directory exclude patterns are relative to.
func (idx *Indexer) Accepts(root, path string) bool {
	if _, ok := idx.allowed[normalizeExt(filepath.Ext(path))]; !ok {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return true
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, dir := range parts[:len(parts)-1] {
		if idx.excludedDir(dir) {
			return false
		}
	}
	return idx.ignore == nil || !idx.ignore.MatchesPath(filepath.ToSlash(rel))
}

// ExcludesDir reports whether Discover would prune the directory dir.
func (idx *Indexer) ExcludesDir(root, dir string) bool {
	if idx.excludedDir(filepath.Base(dir)) {
		return true
	}
	rel, err := filepath.Rel(root, dir)
	if err != nil || idx.ignore == nil {
		return false
	}
	return idx.ignore.MatchesPath(filepath.ToSlash(rel) + "/")
}

// Discover lists the regular files under dir that pass the filters.
func (idx *Indexer) Discover(dir string, recursive bool) ([]models.FileTask, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", root)
	}

	var tasks []models.FileTask
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			idx.logger.Warn("cannot read path, skipping", zap.String("path", path), zap.Error(walkErr))
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		relSlash := filepath.ToSlash(rel)
		if d.IsDir() {
			if path == root {
				return nil
			}
			if !recursive || idx.excludedDir(d.Name()) {
				return filepath.SkipDir
			}
			if idx.ignore != nil && idx.ignore.MatchesPath(relSlash+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := idx.allowed[normalizeExt(filepath.Ext(path))]; !ok {
			return nil
		}
		if idx.ignore != nil && idx.ignore.MatchesPath(relSlash) {
			return nil
		}
		// Stat follows symlinks so links to regular files are included.
		fi, err := os.Stat(path)
		if err != nil || !fi.Mode().IsRegular() {
			return nil
		}
		tasks = append(tasks, models.FileTask{Path: path, Size: fi.Size(), ModTime: fi.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return tasks, nil
}

func (idx *Indexer) excludedDir(name string) bool {
	_, ok := idx.exclude[strings.ToLower(name)]
	return ok
}

// processTask moves one file through the pipeline and reports where it stopped.
func (idx *Indexer) processTask(ctx context.Context, task models.FileTask) models.FileOutcome {
	out := models.FileOutcome{Path: task.Path}
	log := idx.logger.With(zap.String("path", task.Path))

	if idx.settings.MaxFileSize > 0 && task.Size > idx.settings.MaxFileSize {
		log.Debug("skipping file over size limit", zap.Int64("size", task.Size))
		out.Status = models.StatusSkippedSize
		return out
	}
	if idx.gate != nil && idx.gate.ShouldSkip(task.Path, task.ModTime) {
		cached, _ := idx.gate.Lookup(task.Path)
		log.Debug("skipping unchanged file", zap.Time("indexed_mtime", cached), zap.Time("mtime", task.ModTime))
		out.Status = models.StatusSkippedUnchanged
		return out
	}

	text, err := idx.registry.ExtractText(task.Path)
	if err != nil {
		log.Warn("extraction failed", zap.Error(err))
		out.Status = models.StatusFailedExtraction
		out.Error = err.Error()
		return out
	}
	if nonSpaceChars(text, MinContentChars) < MinContentChars {
		log.Warn("no usable text extracted")
		out.Status = models.StatusFailedExtraction
		out.Error = "no usable text extracted"
		return out
	}
	meta, err := idx.registry.ExtractMetadata(task.Path)
	if err != nil {
		log.Warn("metadata extraction failed", zap.Error(err))
		out.Status = models.StatusFailedExtraction
		out.Error = err.Error()
		return out
	}

	var records []models.Record
	if idx.settings.Mode == config.ModeStandard {
		records = []models.Record{buildFileDocument(task.Path, text, meta)}
	} else {
		records, out.ChunksTotal = idx.embedChunks(ctx, log, task.Path, text, meta)
		out.ChunksEmbedded = len(records)
		if len(records) == 0 {
			out.Status = models.StatusFailed
			out.Error = "no chunk could be embedded"
			return out
		}
	}

	results := idx.uploader.Upload(ctx, records, idx.settings.BatchSize)
	out.ChunksUploaded = CountSucceeded(results)
	out.Error = uploadError(results)
	if out.ChunksUploaded == 0 {
		log.Warn("no documents uploaded", zap.String("error", out.Error))
		out.Status = models.StatusFailed
		return out
	}
	if idx.gate != nil {
		idx.gate.Record(task.Path, task.ModTime)
	}
	out.Status = models.StatusSucceeded
	out.Bytes = task.Size
	log.Debug("file indexed",
		zap.Int("chunks", out.ChunksTotal),
		zap.Int("uploaded", out.ChunksUploaded))
	return out
}

// embedChunks embeds every chunk concurrently and returns the documents for
// the chunks that succeeded, in chunk order, plus the total chunk count.
func (idx *Indexer) embedChunks(ctx context.Context, log *zap.Logger, path, text string, meta *models.FileMetadata) ([]models.Record, int) {
	chunks := idx.chunker.Chunk(text)
	vectors := make([][]float32, len(chunks))

	var g errgroup.Group
	g.SetLimit(idx.settings.EmbedConcurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			res, err := idx.generator.Embed(ctx, chunk)
			if err != nil {
				log.Warn("chunk embedding failed", zap.Int("chunk", i), zap.Error(err))
				return nil
			}
			vectors[i] = res.Vector
			return nil
		})
	}
	_ = g.Wait()

	content := models.TruncateContent(text)
	records := make([]models.Record, 0, len(chunks))
	for i, vec := range vectors {
		if vec == nil {
			continue
		}
		doc := buildChunkDocument(path, content, meta)
		doc.ID = fileid.ChunkID(path, i)
		doc.Chunk = chunks[i]
		doc.ContentVector = vec
		doc.ChunkNumber = i
		doc.TotalChunks = len(chunks)
		records = append(records, doc)
	}
	return records, len(chunks)
}

func buildChunkDocument(path, content string, meta *models.FileMetadata) *models.ChunkDocument {
	owner := meta.OwnerOrUnknown()
	return &models.ChunkDocument{
		Content:          content,
		Title:            meta.Title(),
		Name:             meta.FileName,
		FilePath:         path,
		Extension:        meta.Extension,
		Size:             meta.SizeBytes,
		CreatedDateTime:  meta.CreatedTime.UTC(),
		ModifiedDateTime: meta.ModifiedTime.UTC(),
		CreatedBy:        owner,
		LastModifiedBy:   owner,
		Author:           meta.DocumentAuthor,
		FileType:         models.FileTypeFile,
		URL:              path,
	}
}

func buildFileDocument(path, text string, meta *models.FileMetadata) *models.FileDocument {
	owner := meta.OwnerOrUnknown()
	return &models.FileDocument{
		ID:               fileid.FileDocID(path),
		Content:          models.TruncateContent(text),
		Title:            meta.Title(),
		Name:             meta.FileName,
		FilePath:         path,
		Extension:        meta.Extension,
		Size:             meta.SizeBytes,
		CreatedDateTime:  meta.CreatedTime.UTC(),
		ModifiedDateTime: meta.ModifiedTime.UTC(),
		CreatedBy:        owner,
		LastModifiedBy:   owner,
		Author:           meta.DocumentAuthor,
		Keywords:         meta.DocumentKeywords,
		FileType:         models.FileTypeFile,
		URL:              path,
	}
}

// nonSpaceChars counts non-whitespace runes in s, stopping at limit.
func nonSpaceChars(s string, limit int) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
			if n >= limit {
				break
			}
		}
	}
	return n
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
