package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/glyph/internal/cache"
	"github.com/agenthands/glyph/internal/config"
	"github.com/agenthands/glyph/internal/core"
	"github.com/agenthands/glyph/internal/core/model"
	"github.com/agenthands/glyph/internal/driver"
	"github.com/agenthands/glyph/internal/llm"
	"github.com/agenthands/glyph/internal/logger"
)

type Server struct {
	Engine *core.Engine
	// Runner is Engine, possibly behind the result cache.
	Runner cache.Runner
	Log    *logger.Logger

	closers []func(context.Context) error
}

// NewServer wires the engine from cfg. Memgraph and Redis are optional:
// when unset or unreachable the server runs without persistence or caching.
func NewServer(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Server, error) {
	log = logger.OrNop(log)

	llmClient, embedderClient, err := llm.NewClient(ctx, cfg.LLM, log)
	if err != nil {
		return nil, err
	}

	var closers []func(context.Context) error
	var graphDriver driver.GraphDriver
	if cfg.Memgraph.URI != "" {
		d, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph, log)
		if err != nil {
			log.Warn("memgraph unavailable, persistence disabled", "uri", cfg.Memgraph.URI, "error", err)
		} else {
			graphDriver = d
			closers = append(closers, d.Close)
			if err := d.BuildIndices(ctx); err != nil {
				log.Warn("failed to build indices", "error", err)
			}
		}
	}

	engine := core.NewEngine(cfg, llmClient, embedderClient, graphDriver, log)

	var runner cache.Runner = engine
	if cfg.Redis.Addr != "" {
		store, err := cache.NewRedisStore(ctx, cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, caching disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			ttl := time.Duration(cfg.Redis.TTLSeconds) * time.Second
			runner = cache.NewCachedRunner(engine, store, ttl, cache.Settings(cfg), log)
			closers = append(closers, func(context.Context) error { return store.Close() })
		}
	}

	s := New(engine, runner, log)
	s.closers = closers
	return s, nil
}

// New builds a server around an existing engine. A nil runner uses the
// engine directly.
func New(engine *core.Engine, runner cache.Runner, log *logger.Logger) *Server {
	if runner == nil {
		runner = engine
	}
	return &Server{Engine: engine, Runner: runner, Log: logger.OrNop(log)}
}

func (s *Server) Close(ctx context.Context) error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c(ctx))
	}
	return errors.Join(errs...)
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.Health)
	r.POST("/graphs", s.CreateGraph)
	r.POST("/concepts/dedupe", s.Dedupe)
	r.GET("/runs/:id", s.GetRun)
	r.DELETE("/runs/:id", s.DeleteRun)

	return r
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"persistence": s.Engine.Driver != nil,
	})
}

// CreateGraph runs the pipeline. With ?persist=true the result is also
// saved to the graph store.
func (s *Server) CreateGraph(c *gin.Context) {
	var req model.Input
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	persist, _ := strconv.ParseBool(c.Query("persist"))
	if persist && s.Engine.Driver == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Persistence is not configured"})
		return
	}

	ctx := c.Request.Context()
	result, err := s.Runner.Run(ctx, req)
	if err != nil {
		var se *model.StageError
		stage := ""
		if errors.As(err, &se) {
			stage = se.Stage
		}
		s.Log.Error("pipeline failed", "stage", stage, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "Failed to build concept graph",
			"stage":  stage,
			"result": result,
		})
		return
	}

	if persist {
		if err := s.Engine.Save(ctx, result); err != nil {
			s.Log.Error("failed to persist run", "run_id", result.Metadata.RunID, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to persist run", "result": result})
			return
		}
	}

	c.JSON(http.StatusOK, result)
}

type DedupeRequest struct {
	Concepts []model.ConceptRecord `json:"concepts"`
}

func (s *Server) Dedupe(c *gin.Context) {
	var req DedupeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	concepts, report := s.Engine.Deduplicator.Deduplicate(req.Concepts)
	c.JSON(http.StatusOK, gin.H{"concepts": concepts, "report": report})
}

func (s *Server) GetRun(c *gin.Context) {
	run, err := s.Engine.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) DeleteRun(c *gin.Context) {
	if err := s.Engine.DeleteRun(c.Request.Context(), c.Param("id")); err != nil {
		s.respondStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrNoDriver):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Persistence is not configured"})
	case errors.Is(err, core.ErrRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
	default:
		s.Log.Error("graph store request failed", "run_id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Graph store request failed"})
	}
}
