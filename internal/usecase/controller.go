package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"pdfrag/internal/domain"
	"pdfrag/internal/metrics"
	"pdfrag/internal/port"
)

// Invalidator drops cached retrieval results.
type Invalidator interface {
	Invalidate()
}

// ControllerConfig wires the pipeline together.
type ControllerConfig struct {
	DataDir   string
	TopK      int
	Populate  *PopulateUseCase
	Store     port.VectorStore
	Retriever port.Retriever
	Generator *Generator
	Cache     Invalidator // optional
	Logger    *zap.Logger
}

// Controller dispatches one user message at a time to populate, clear or query.
type Controller struct {
	mu sync.Mutex

	dataDir   string
	topK      int
	populate  *PopulateUseCase
	store     port.VectorStore
	retriever port.Retriever
	generator *Generator
	cache     Invalidator
	logger    *zap.Logger
}

func NewController(cfg ControllerConfig) *Controller {
	if cfg.TopK <= 0 {
		cfg.TopK = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Controller{
		dataDir:   cfg.DataDir,
		topK:      cfg.TopK,
		populate:  cfg.Populate,
		store:     cfg.Store,
		retriever: cfg.Retriever,
		generator: cfg.Generator,
		cache:     cfg.Cache,
		logger:    cfg.Logger,
	}
}

// Handle runs one interaction. The reply always has displayable text; when
// err is non-nil the text describes the failure, or for a generation failure
// is domain.GenerationFallbackAnswer.
func (c *Controller) Handle(ctx context.Context, raw string) (domain.Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cmd := domain.ParseCommand(raw)
	c.logger.Debug("Handling message", zap.Stringer("command", cmd.Kind))

	switch cmd.Kind {
	case domain.CommandPopulate:
		return c.handlePopulate(ctx, cmd)
	case domain.CommandClear:
		return c.handleClear(cmd)
	default:
		return c.handleQuery(ctx, cmd)
	}
}

// Populate ingests the data directory. It shares the interaction lock with Handle.
func (c *Controller) Populate(ctx context.Context) (*domain.PopulateReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runPopulate(ctx)
}

func (c *Controller) runPopulate(ctx context.Context) (*domain.PopulateReport, error) {
	report, err := c.populate.Populate(ctx, c.dataDir)
	if report != nil && report.ChunksAdded > 0 {
		c.invalidate()
	}
	return report, err
}

func (c *Controller) handlePopulate(ctx context.Context, cmd domain.Command) (domain.Reply, error) {
	report, err := c.runPopulate(ctx)
	if err != nil {
		c.logger.Error("Populate failed", zap.Error(err))
		return errorReply(cmd, "populate failed", err), err
	}
	return domain.Reply{Command: cmd, Text: PopulateSummary(report)}, nil
}

// PopulateSummary renders a populate report as a one-line reply.
func PopulateSummary(r *domain.PopulateReport) string {
	text := fmt.Sprintf("Database populated: %d new chunks added (%d total)", r.ChunksAdded, r.TotalCount)
	if n := len(r.Failures); n > 0 {
		paths := make([]string, n)
		for i, f := range r.Failures {
			paths[i] = f.Path
		}
		text += fmt.Sprintf("; %d file(s) could not be read: %s", n, strings.Join(paths, ", "))
	}
	return text
}

func (c *Controller) handleClear(cmd domain.Command) (domain.Reply, error) {
	if err := c.store.Clear(); err != nil {
		c.logger.Error("Clear failed", zap.Error(err))
		return errorReply(cmd, "clear failed", err), err
	}
	c.invalidate()
	metrics.StoreRecords.Set(0)
	c.logger.Info("Vector store cleared")
	return domain.Reply{Command: cmd, Text: "Database cleared"}, nil
}

func (c *Controller) handleQuery(ctx context.Context, cmd domain.Command) (domain.Reply, error) {
	if cmd.Text == "" {
		return domain.Reply{Command: cmd, Text: domain.NoContextAnswer}, nil
	}

	results, err := c.retriever.Retrieve(ctx, cmd.Text, c.topK)
	if err != nil {
		c.logger.Error("Retrieval failed", zap.Error(err))
		return errorReply(cmd, "retrieval failed", err), err
	}

	answer, err := c.generator.Answer(ctx, cmd.Text, results)
	reply := domain.Reply{Command: cmd, Text: answer.Text, Sources: answer.Sources}
	if err != nil {
		return reply, err
	}

	c.logger.Info("Answered query",
		zap.Int("retrieved", len(results)),
		zap.Strings("sources", answer.Sources),
	)
	return reply, nil
}

func (c *Controller) invalidate() {
	if c.cache != nil {
		c.cache.Invalidate()
	}
}

func errorReply(cmd domain.Command, what string, err error) domain.Reply {
	msg := fmt.Sprintf("Error: %s: %v", what, err)
	switch {
	case errors.Is(err, domain.ErrDimensionMismatch):
		msg += ". The store was built with a different embedding model; run clear and populate again."
	case errors.Is(err, domain.ErrModelUnavailable):
		msg += ". Is the model service running?"
	}
	return domain.Reply{Command: cmd, Text: msg}
}
