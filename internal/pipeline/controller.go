package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/subpipe/backend/internal/prompt"
	"github.com/subpipe/backend/internal/provider"
	"github.com/subpipe/backend/internal/subtitle"
)

const (
	// MaxConcurrency caps simultaneously in-flight generation calls no
	// matter what a run requests.
	MaxConcurrency = 8

	defaultTargetSeconds = 300.0
	defaultPollInterval  = 250 * time.Millisecond
)

// Controller turns a cue list into a bounded-parallelism chunk task set
// with pause/resume/cancel, deduplicated retries, and incremental
// republication of the merged result. It is the single writer of the
// authoritative run state; readers only ever get snapshots.
type Controller struct {
	gen          provider.Generator
	pollInterval time.Duration
	onUpdate     func(runID string, res RunResult)

	mu     sync.Mutex
	token  int64
	sess   *session
	latest RunResult

	// pubMu serializes sink delivery. It is acquired while mu is still
	// held, so snapshots reach the sink in derivation order and the last
	// delivery is always the newest state.
	pubMu sync.Mutex
}

// session is the per-start mutable run state. A fresh one is built on every
// Start and discarded on Reset; every worker and queued retry captures its
// token, and results carrying a stale token are discarded, never merged.
type session struct {
	token        int64
	runID        string
	cfg          Config
	systemPrompt string
	chunks       []*chunkState

	cursor    atomic.Int64
	paused    atomic.Bool
	cancelled atomic.Bool

	sem          chan struct{}
	retryCh      chan int
	retryMu      sync.Mutex
	retryPending map[int]bool

	stopOnce sync.Once
	stopCh   chan struct{}
}

type chunkState struct {
	ChunkStatus
	orig []subtitle.Cue
}

func (s *session) stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// NewController wires a controller to a generation capability. The sink, if
// set, receives a full RunResult snapshot after every state transition.
func NewController(gen provider.Generator, onUpdate func(runID string, res RunResult)) *Controller {
	return &Controller{
		gen:          gen,
		pollInterval: defaultPollInterval,
		onUpdate:     onUpdate,
	}
}

// Start validates the config, builds a fresh session and launches the
// workers. Any previous session is invalidated: its in-flight completions
// will carry a stale token and be discarded on arrival.
func (c *Controller) Start(ctx context.Context, cfg Config) (string, error) {
	if len(cfg.Cues) == 0 {
		return "", fmt.Errorf("run config: no cues to process")
	}
	if cfg.TargetSeconds <= 0 {
		cfg.TargetSeconds = defaultTargetSeconds
	}
	if cfg.OverlapCount < 0 {
		cfg.OverlapCount = 0
	}
	limit := effectiveConcurrency(cfg.Concurrency)

	c.mu.Lock()
	if c.sess != nil {
		c.sess.cancelled.Store(true)
		c.sess.stop()
	}
	c.token++

	s := &session{
		token:        c.token,
		runID:        uuid.New().String(),
		cfg:          cfg,
		systemPrompt: prompt.SystemPrompt(cfg.Preset, cfg.SourceLang, cfg.TargetLang, cfg.CustomPrompt),
		retryPending: make(map[int]bool),
		sem:          make(chan struct{}, limit),
		stopCh:       make(chan struct{}),
	}

	parts := subtitle.ChunkCues(cfg.Cues, cfg.TargetSeconds, cfg.OverlapCount)
	s.chunks = make([]*chunkState, len(parts))
	for i, part := range parts {
		chunkVTT := subtitle.Serialize(part.Cues)
		contextVTT := ""
		if len(part.PrevContext) > 0 {
			contextVTT = subtitle.Serialize(part.PrevContext)
		}
		var userPrompt string
		if cfg.UseStructuredOutput {
			userPrompt = prompt.StructuredUserPrompt(part.Cues, contextVTT)
		} else {
			userPrompt = prompt.VTTUserPrompt(chunkVTT, contextVTT)
		}
		s.chunks[i] = &chunkState{
			ChunkStatus: ChunkStatus{
				Idx:            i,
				Status:         StatusWaiting,
				ChunkVTT:       chunkVTT,
				ContextVTT:     contextVTT,
				Prompt:         userPrompt,
				TokensEstimate: (len(s.systemPrompt) + len(userPrompt)) / 4,
				ModelName:      cfg.Model,
				Temperature:    cfg.Temperature,
			},
			orig: part.Cues,
		}
	}
	s.retryCh = make(chan int, len(s.chunks))
	c.sess = s
	snapshot := c.restitchLocked(s)
	c.publishLocked(s.runID, snapshot)

	log.Printf("[pipeline] run %s started: %d cues, %d chunks, concurrency %d",
		s.runID, len(cfg.Cues), len(s.chunks), limit)

	if limit == 1 {
		// Sequential mode is its own path: it guarantees in-order
		// completion, which pooled workers do not.
		go c.runSequential(ctx, s)
	} else {
		for w := 0; w < limit; w++ {
			go c.worker(ctx, s)
		}
	}
	go c.retryDispatcher(ctx, s)

	return s.runID, nil
}

// Pause prevents new chunks and retries from starting. In-flight generation
// calls are not interrupted.
func (c *Controller) Pause() {
	if s := c.current(); s != nil {
		s.paused.Store(true)
	}
}

func (c *Controller) Resume() {
	if s := c.current(); s != nil {
		s.paused.Store(false)
	}
}

// Cancel marks the run cancelled. Cancellation is cooperative: chunks not
// yet started are failed with a "Cancelled" warning as workers observe the
// flag, so every chunk still reaches a terminal state.
func (c *Controller) Cancel() {
	if s := c.current(); s != nil {
		s.cancelled.Store(true)
	}
}

// Reset discards the current session. Work still in flight completes
// against a stale token and is thrown away.
func (c *Controller) Reset() {
	c.mu.Lock()
	if c.sess != nil {
		c.sess.cancelled.Store(true)
		c.sess.stop()
		c.sess = nil
	}
	c.token++
	c.latest = RunResult{}
	c.mu.Unlock()
}

// Retry re-queues one finished chunk using its originally stored payload.
// Requests are deduplicated by chunk index until the retry completes; a
// chunk that is still waiting or in flight cannot be retried.
func (c *Controller) Retry(idx int) error {
	s := c.current()
	if s == nil {
		return fmt.Errorf("no active run")
	}
	if idx < 0 || idx >= len(s.chunks) {
		return fmt.Errorf("chunk index %d out of range", idx)
	}

	c.mu.Lock()
	status := s.chunks[idx].Status
	c.mu.Unlock()
	if !status.Terminal() {
		return fmt.Errorf("chunk %d is %s; only finished chunks can be retried", idx, status)
	}

	s.retryMu.Lock()
	if s.retryPending[idx] {
		s.retryMu.Unlock()
		return nil
	}
	s.retryPending[idx] = true
	s.retryMu.Unlock()

	s.retryCh <- idx
	return nil
}

// ManualOverride accepts operator-corrected text for one chunk, bypassing
// generation. The text goes through the same cue-integrity validation as
// generated output and, on success, the chunk is marked ok and the whole
// result re-stitched, exactly as a successful retry would.
func (c *Controller) ManualOverride(idx int, text string) error {
	s := c.current()
	if s == nil {
		return fmt.Errorf("no active run")
	}
	if idx < 0 || idx >= len(s.chunks) {
		return fmt.Errorf("chunk index %d out of range", idx)
	}

	errs, warns := subtitle.Validate(text)
	if len(errs) > 0 {
		return fmt.Errorf("override rejected: %s", strings.Join(errs, "; "))
	}
	repaired, _ := subtitle.AutoRepair(text)
	cues, err := subtitle.Parse(repaired)
	if err != nil {
		return fmt.Errorf("override rejected: %w", err)
	}

	c.commit(s, idx, StatusOK, subtitle.Serialize(cues), text, warns)
	return nil
}

// Snapshot returns the latest published aggregate result.
func (c *Controller) Snapshot() RunResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyResult(c.latest)
}

// RunID returns the active run's id, or "" when idle.
func (c *Controller) RunID() string {
	if s := c.current(); s != nil {
		return s.runID
	}
	return ""
}

func (c *Controller) current() *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

func (c *Controller) worker(ctx context.Context, s *session) {
	for {
		idx := int(s.cursor.Add(1)) - 1
		if idx >= len(s.chunks) {
			return
		}
		if !c.waitGate(ctx, s, idx) {
			c.commit(s, idx, StatusFailed, "", "", []string{"Cancelled"})
			continue
		}
		s.sem <- struct{}{}
		c.processChunk(ctx, s, idx)
		<-s.sem
	}
}

func (c *Controller) runSequential(ctx context.Context, s *session) {
	for idx := 0; idx < len(s.chunks); idx++ {
		if !c.waitGate(ctx, s, idx) {
			c.commit(s, idx, StatusFailed, "", "", []string{"Cancelled"})
			continue
		}
		s.sem <- struct{}{}
		c.processChunk(ctx, s, idx)
		<-s.sem
	}
}

// retryDispatcher drains ad-hoc retry requests against the same concurrency
// budget as the main run. It idles when the queue is empty and dies with
// the session.
func (c *Controller) retryDispatcher(ctx context.Context, s *session) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case idx := <-s.retryCh:
			if c.waitGate(ctx, s, idx) {
				s.sem <- struct{}{}
				c.processChunk(ctx, s, idx)
				<-s.sem
			} else {
				c.commit(s, idx, StatusFailed, "", "", []string{"Cancelled"})
			}
			s.retryMu.Lock()
			delete(s.retryPending, idx)
			s.retryMu.Unlock()
		}
	}
}

// waitGate is the cooperative pause/cancel poll taken before any chunk
// starts. While paused it republishes the chunk as paused and sleeps in a
// fixed interval loop, re-checking both flags every iteration.
func (c *Controller) waitGate(ctx context.Context, s *session, idx int) bool {
	for {
		if s.cancelled.Load() || ctx.Err() != nil {
			return false
		}
		if !s.paused.Load() {
			return true
		}
		c.setStatus(s, idx, StatusPaused)
		time.Sleep(c.pollInterval)
	}
}

func (c *Controller) processChunk(ctx context.Context, s *session, idx int) {
	cs := s.chunks[idx]

	now := time.Now()
	c.mu.Lock()
	if s.token != c.token {
		c.mu.Unlock()
		return
	}
	cs.Status = StatusProcessing
	cs.StartedAt = &now
	cs.FinishedAt = nil
	cs.VTT = ""
	cs.RawModelOutput = ""
	cs.Warnings = nil
	snapshot := c.restitchLocked(s)
	c.publishLocked(s.runID, snapshot)

	res, err := c.gen.GenerateContent(ctx, provider.Request{
		SystemPrompt: s.systemPrompt,
		UserPrompt:   cs.Prompt,
		Temperature:  s.cfg.Temperature,
		SafetyOff:    s.cfg.SafetyOff,
	}, provider.Trace{
		Purpose:  "chunk",
		ChunkIdx: idx,
		RunID:    s.runID,
	})

	status, vtt, raw, warnings := evaluateResult(s, cs, res, err)
	c.commit(s, idx, status, vtt, raw, warnings)
}

// evaluateResult turns a generation outcome into a terminal chunk state.
// Every failure mode here is chunk-local: it is recorded as warnings on a
// failed status and never propagates as an error past the chunk boundary.
func evaluateResult(s *session, cs *chunkState, res *provider.Result, err error) (Status, string, string, []string) {
	if err != nil {
		return StatusFailed, "", "", []string{err.Error()}
	}
	raw := res.Text
	if strings.TrimSpace(raw) == "" {
		return StatusFailed, "", raw, []string{"empty model output"}
	}

	if s.cfg.UseStructuredOutput {
		cues, warns, rerr := subtitle.Reconstruct(cs.orig, raw)
		if rerr != nil {
			return StatusFailed, "", raw, append(warns, rerr.Error())
		}
		if len(cues) == 0 {
			return StatusFailed, "", raw, append(warns, "no cues reconstructed from structured output")
		}
		warns = append(warns, subtitle.DetectLooping(cues)...)
		return StatusOK, subtitle.Serialize(cues), raw, warns
	}

	repaired, warns := subtitle.AutoRepair(raw)
	cues, perr := subtitle.Parse(repaired)
	if perr != nil {
		return StatusFailed, "", raw, append(warns, perr.Error())
	}
	fixed, errs, reconWarns := subtitle.ReconcileTimecodes(cs.orig, cues)
	warns = append(warns, reconWarns...)
	if len(errs) > 0 {
		return StatusFailed, "", raw, append(warns, errs...)
	}
	warns = append(warns, subtitle.DetectLooping(fixed)...)
	return StatusOK, subtitle.Serialize(fixed), raw, warns
}

// commit is the single merge point for chunk results. The session token is
// compared against the controller's current token first; stale completions
// are discarded, which is what makes reset/restart safe while old work is
// still in flight. Cancellation is re-checked here so a result arriving
// after Cancel is not merged.
func (c *Controller) commit(s *session, idx int, status Status, vtt, raw string, warnings []string) {
	c.mu.Lock()
	if s.token != c.token {
		c.mu.Unlock()
		log.Printf("[pipeline] discarding stale result for chunk %d (run %s)", idx, s.runID)
		return
	}
	if status == StatusOK && s.cancelled.Load() {
		status = StatusFailed
		warnings = append(warnings, "Cancelled")
	}

	cs := s.chunks[idx]
	now := time.Now()
	cs.Status = status
	cs.VTT = vtt
	cs.RawModelOutput = raw
	cs.Warnings = warnings
	cs.FinishedAt = &now
	if cs.StartedAt == nil {
		cs.StartedAt = &now
	}
	snapshot := c.restitchLocked(s)
	c.publishLocked(s.runID, snapshot)
}

// setStatus republishes a transient (non-terminal) status change.
func (c *Controller) setStatus(s *session, idx int, status Status) {
	c.mu.Lock()
	if s.token != c.token {
		c.mu.Unlock()
		return
	}
	s.chunks[idx].Status = status
	snapshot := c.restitchLocked(s)
	c.publishLocked(s.runID, snapshot)
}

// restitchLocked re-derives the aggregate result from all currently-ok
// chunks. Must be called with c.mu held; the published result is sorted by
// chunk index by construction even though completion order is not.
func (c *Controller) restitchLocked(s *session) RunResult {
	result := RunResult{
		OK:     len(s.chunks) > 0,
		Chunks: make([]ChunkStatus, len(s.chunks)),
	}

	var parts []string
	for i, cs := range s.chunks {
		result.Chunks[i] = cs.ChunkStatus
		result.Chunks[i].Warnings = append([]string(nil), cs.Warnings...)
		if cs.Status == StatusOK {
			parts = append(parts, cs.VTT)
		} else {
			result.OK = false
		}
		for _, w := range cs.Warnings {
			result.Warnings = append(result.Warnings, fmt.Sprintf("chunk %d: %s", cs.Idx, w))
		}
	}

	if len(parts) > 0 {
		result.VTT = subtitle.StitchText(parts)
		if srt, err := subtitle.ToSRT(result.VTT); err == nil {
			result.SRT = srt
		}
	}

	c.latest = copyResult(result)
	return result
}

// publishLocked hands a freshly derived snapshot to the sink. Must be called
// with c.mu held; it takes pubMu before releasing c.mu, which pins delivery
// order to derivation order across concurrent commits.
func (c *Controller) publishLocked(runID string, res RunResult) {
	c.pubMu.Lock()
	c.mu.Unlock()
	if c.onUpdate != nil {
		c.onUpdate(runID, res)
	}
	c.pubMu.Unlock()
}

func effectiveConcurrency(requested int) int {
	if requested < 1 {
		requested = 1
	}
	if requested > MaxConcurrency {
		return MaxConcurrency
	}
	return requested
}

func copyResult(res RunResult) RunResult {
	out := res
	out.Chunks = append([]ChunkStatus(nil), res.Chunks...)
	out.Warnings = append([]string(nil), res.Warnings...)
	for i := range out.Chunks {
		out.Chunks[i].Warnings = append([]string(nil), out.Chunks[i].Warnings...)
	}
	return out
}
