// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Package registry holds the detectors and renderers known to a pipeline and
// picks the winning format for a block.
package registry

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/framegrace/prettify/internal/logging"
	"github.com/framegrace/prettify/prettifier/detect"
	"github.com/framegrace/prettify/prettifier/types"
)

var logger = logging.For("REGISTRY")

// DefaultConfidenceThreshold is the global floor applied after the best
// candidate is chosen.
const DefaultConfidenceThreshold = 0.6

type detectorEntry struct {
	priority int
	seq      int
	detector types.Detector
}

// Registry orders detectors by priority and maps format ids to renderers.
// Detection never caches and never mutates the block.
type Registry struct {
	mu        sync.RWMutex
	detectors []detectorEntry
	renderers map[string]types.Renderer
	threshold float64
	seq       int
}

// New returns an empty registry with the given global threshold.
func New(threshold float64) *Registry {
	return &Registry{
		renderers: make(map[string]types.Renderer),
		threshold: threshold,
	}
}

// RegisterDetector inserts d keeping descending priority. Equal priorities
// keep registration order.
func (r *Registry) RegisterDetector(priority int, d types.Detector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	idx := sort.Search(len(r.detectors), func(i int) bool {
		return r.detectors[i].priority < priority
	})
	r.detectors = append(r.detectors, detectorEntry{})
	copy(r.detectors[idx+1:], r.detectors[idx:])
	r.detectors[idx] = detectorEntry{priority: priority, seq: r.seq, detector: d}
}

// RegisterRenderer maps formatID to rend. A later registration replaces an
// earlier one.
func (r *Registry) RegisterRenderer(formatID string, rend types.Renderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderers[formatID] = rend
}

// Renderer returns the renderer for formatID.
func (r *Registry) Renderer(formatID string) (types.Renderer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rend, ok := r.renderers[formatID]
	return rend, ok
}

// Detector returns the registered detector for formatID.
func (r *Registry) Detector(formatID string) (types.Detector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.detectors {
		if e.detector.FormatID() == formatID {
			return e.detector, true
		}
	}
	return nil, false
}

// Format names a registered renderer.
type Format struct {
	ID          string
	DisplayName string
}

// Formats lists registered renderers sorted by id.
func (r *Registry) Formats() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Format, 0, len(r.renderers))
	for id, rend := range r.renderers {
		out = append(out, Format{ID: id, DisplayName: rend.DisplayName()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ConfidenceThreshold returns the global floor.
func (r *Registry) ConfidenceThreshold() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.threshold
}

// SetConfidenceThreshold changes the global floor.
func (r *Registry) SetConfidenceThreshold(v float64) {
	r.mu.Lock()
	r.threshold = v
	r.mu.Unlock()
}

func (r *Registry) DetectorCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.detectors)
}

func (r *Registry) RendererCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.renderers)
}

// Detect runs every detector whose quick match accepts the block prefix and
// returns the best result at or above the global threshold. Ties go to the
// higher priority, then to the earlier registration, which is the iteration
// order.
func (r *Registry) Detect(block types.ContentBlock) *types.DetectionResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	prefix := block.FirstLines(detect.QuickMatchLines)
	var best *types.DetectionResult
	for _, e := range r.detectors {
		d := e.detector
		if !d.QuickMatch(prefix) {
			continue
		}
		res := d.Detect(block)
		if res == nil {
			logger.Debug("no match", "format", d.FormatID(), "priority", e.priority)
			continue
		}
		logger.Debug("candidate", "format", d.FormatID(), "priority", e.priority,
			"confidence", fmt.Sprintf("%.3f", res.Confidence), "rules", res.MatchedRules)
		if best == nil || res.Confidence > best.Confidence {
			best = res
		}
	}
	if best == nil || best.Confidence < r.threshold {
		if best != nil {
			logger.Debug("below threshold", "format", best.FormatID, "confidence", best.Confidence, "threshold", r.threshold)
		}
		return nil
	}
	logger.Debug("winner", "format", best.FormatID, "confidence", best.Confidence)
	return best
}

// Candidate is one detector's verdict, used for diagnostics.
type Candidate struct {
	FormatID   string
	Priority   int
	QuickMatch bool
	Result     *types.DetectionResult
}

// Explain runs every detector against block without picking a winner.
func (r *Registry) Explain(block types.ContentBlock) []Candidate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	prefix := block.FirstLines(detect.QuickMatchLines)
	out := make([]Candidate, 0, len(r.detectors))
	for _, e := range r.detectors {
		c := Candidate{FormatID: e.detector.FormatID(), Priority: e.priority}
		c.QuickMatch = e.detector.QuickMatch(prefix)
		c.Result = e.detector.Detect(block)
		out = append(out, c)
	}
	return out
}

// ApplyRules replaces the detector for formatID with a copy that has user
// rules merged in and overrides applied. Only regex detectors carry rules.
func (r *Registry) ApplyRules(formatID string, merge []types.DetectionRule, overrides []detect.RuleOverride) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.detectors {
		if e.detector.FormatID() != formatID {
			continue
		}
		rd, ok := e.detector.(*detect.RegexDetector)
		if !ok {
			return &detect.ConfigError{Format: formatID, Field: "detection_rules",
				Err: fmt.Errorf("detector %T has no rules", e.detector)}
		}
		if len(merge) > 0 {
			rd = rd.MergeUserRules(merge)
		}
		if len(overrides) > 0 {
			rd = rd.ApplyOverrides(overrides)
		}
		r.detectors[i].detector = rd
		return nil
	}
	return &detect.ConfigError{Format: formatID, Field: "detection_rules", Err: fmt.Errorf("unknown format")}
}

// Close releases renderers that hold resources, such as the diagram disk
// cache.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for id, rend := range r.renderers {
		if c, ok := rend.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s renderer: %w", id, err))
			}
		}
	}
	return errors.Join(errs...)
}
