// Package server exposes the pipeline over HTTP: start a run, stream its
// progress as server-sent events, download the finished artifact.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"shortreel/config"
	"shortreel/types"
)

// Runner executes one video run. Satisfied by *pipeline.Pipeline.
type Runner interface {
	Run(ctx context.Context, topic string, onProgress func(types.Update)) (*types.Result, error)
}

// runRecord is the observable state of one run, kept until the process
// exits so the artifact can be downloaded after completion.
type runRecord struct {
	ID      string         `json:"id"`
	Topic   string         `json:"topic"`
	Phase   types.Phase    `json:"phase"`
	Percent int            `json:"percent"`
	Error   string         `json:"error,omitempty"`
	Summary *types.Summary `json:"summary,omitempty"`

	result *types.Result
	cancel context.CancelFunc
}

type event struct {
	types.Update
	Error string `json:"error,omitempty"`
}

// Server owns the run registry and the progress hub. Every run gets its own
// engine instance through the pipeline's factory; runs never share state.
type Server struct {
	cfg  *config.Config
	pipe Runner
	hub  *eventHub

	mu   sync.Mutex
	runs map[string]*runRecord
}

func New(cfg *config.Config, pipe Runner) *Server {
	return &Server{
		cfg:  cfg,
		pipe: pipe,
		hub:  newEventHub(),
		runs: make(map[string]*runRecord),
	}
}

// Router builds the gin engine with all routes mounted.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.Use(cors.Default())

	api := r.Group("/api/videos")
	api.POST("", s.handleCreate)
	api.GET("/:id", s.handleStatus)
	api.GET("/:id/events", s.handleEvents)
	api.GET("/:id/download", s.handleDownload)
	api.DELETE("/:id", s.handleCancel)
	return r
}

type createRequest struct {
	Topic string `json:"topic" binding:"required"`
}

func (s *Server) handleCreate(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	rec := &runRecord{
		ID:     uuid.NewString()[:8],
		Topic:  req.Topic,
		Phase:  types.PhaseIdle,
		cancel: cancel,
	}
	s.mu.Lock()
	s.runs[rec.ID] = rec
	s.mu.Unlock()

	go s.execute(ctx, rec)

	c.JSON(http.StatusAccepted, gin.H{"id": rec.ID})
}

// execute drives one run to completion, mirroring every update into the
// registry and the SSE hub.
func (s *Server) execute(ctx context.Context, rec *runRecord) {
	defer rec.cancel()

	result, err := s.pipe.Run(ctx, rec.Topic, func(u types.Update) {
		s.mu.Lock()
		rec.Phase = u.Phase
		rec.Percent = u.Percent
		s.mu.Unlock()
		s.publish(rec.ID, event{Update: u})
	})

	s.mu.Lock()
	if err != nil {
		rec.Phase = types.PhaseFailed
		rec.Error = err.Error()
	} else {
		rec.result = result
		rec.Summary = &result.Summary
	}
	final := event{Update: types.Update{Phase: rec.Phase, Percent: rec.Percent}, Error: rec.Error}
	s.mu.Unlock()

	s.publish(rec.ID, final)
}

func (s *Server) publish(id string, ev event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	s.hub.Publish(id, data)
}

func (s *Server) lookup(c *gin.Context) *runRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown run"})
		return nil
	}
	return rec
}

func (s *Server) handleStatus(c *gin.Context) {
	rec := s.lookup(c)
	if rec == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, rec)
}

// handleEvents streams phase/percent updates for a run as SSE until the run
// reaches a terminal phase or the client disconnects.
func (s *Server) handleEvents(c *gin.Context) {
	rec := s.lookup(c)
	if rec == nil {
		return
	}

	ch := make(chan []byte, 16)
	s.hub.Subscribe(rec.ID, ch)
	defer s.hub.Unsubscribe(rec.ID, ch)

	// Current state first, so late subscribers see something immediately.
	s.mu.Lock()
	first := event{Update: types.Update{Phase: rec.Phase, Percent: rec.Percent}, Error: rec.Error}
	s.mu.Unlock()
	if data, err := json.Marshal(first); err == nil {
		c.SSEvent("progress", string(data))
		c.Writer.Flush()
	}
	if first.Phase.Terminal() {
		return
	}

	// Events published between Subscribe and the snapshot above sit in ch
	// and would replay an older percent after the snapshot. Drop anything
	// that does not advance past what this client already saw.
	sent := first.Percent
	c.Stream(func(w io.Writer) bool {
		select {
		case msg := <-ch:
			var ev event
			if err := json.Unmarshal(msg, &ev); err != nil {
				return true
			}
			if staleEvent(ev, sent) {
				return true
			}
			if ev.Percent > sent {
				sent = ev.Percent
			}
			c.SSEvent("progress", string(msg))
			return !ev.Phase.Terminal()
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// staleEvent reports whether ev would move a client's observed percent
// backwards. Terminal events always go through so the stream can close.
func staleEvent(ev event, sent int) bool {
	return ev.Percent < sent && !ev.Phase.Terminal()
}

func (s *Server) handleDownload(c *gin.Context) {
	rec := s.lookup(c)
	if rec == nil {
		return
	}
	s.mu.Lock()
	result := rec.result
	s.mu.Unlock()

	if result == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "run has no artifact"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.mp4", rec.ID))
	c.Data(http.StatusOK, result.MimeType, result.Data)
}

// handleCancel abandons an in-flight run. The run's engine instance is
// released by the pipeline and never reused.
func (s *Server) handleCancel(c *gin.Context) {
	rec := s.lookup(c)
	if rec == nil {
		return
	}
	rec.cancel()
	c.Status(http.StatusNoContent)
}
