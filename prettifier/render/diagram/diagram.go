// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: prettifier/render/diagram/diagram.go
// Summary: Asynchronous renderer for fenced diagram blocks.
//
// Fenced blocks tagged with a diagram language (mermaid, plantuml, dot, ...)
// are rasterised by a local CLI tool or a Kroki server and attached to the
// output as inline graphics. Without a usable backend the diagram source is
// shown highlighted under a header naming the language.

package diagram

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/draw"
	"image/png"
	"math"
	"strings"
	"time"

	"github.com/framegrace/prettify/config"
	"github.com/framegrace/prettify/internal/logging"
	"github.com/framegrace/prettify/prettifier/registry"
	"github.com/framegrace/prettify/prettifier/render"
	"github.com/framegrace/prettify/prettifier/types"
)

const FormatID = "diagrams"

// maxImageSide rejects images no terminal could show.
const maxImageSide = 4096

// defaultCellHeight is assumed when the host has no pixel metrics.
const defaultCellHeight = 16.0

func init() {
	registry.Register(FormatID, func(opts config.Section) (types.Renderer, error) {
		o := Options{
			Engine:      ParseEngine(opts.GetString("engine", string(EngineAuto))),
			KrokiServer: opts.GetString("kroki_server", DefaultKrokiServer),
			ChromaStyle: opts.GetString("chroma_style", render.DefaultChromaStyle),
		}
		var store *Store
		if path := opts.GetString("disk_cache", ""); path != "" {
			s, err := OpenStore(path, opts.GetInt("disk_cache_entries", DefaultStoreEntries))
			if err != nil {
				logging.For("DIAGRAM").Warn("disk cache disabled", "path", path, "err", err)
			} else {
				store = s
			}
		}
		r := New(o, store)
		// Extra fence tags are sent to Kroki under their own name.
		for _, tag := range opts.GetStrings("extra_languages") {
			if _, known := r.Language(tag); !known && tag != "" {
				r.AddLanguage(Language{Tag: tag, DisplayName: tag, KrokiType: strings.ToLower(tag)})
			}
		}
		for _, l := range opts.GetSections("languages") {
			tag := l.GetString("tag", "")
			if tag == "" {
				continue
			}
			r.AddLanguage(Language{
				Tag:         tag,
				DisplayName: l.GetString("display_name", tag),
				KrokiType:   l.GetString("kroki_type", ""),
				Command:     l.GetString("command", ""),
				Args:        l.GetStrings("args"),
			})
		}
		return r, nil
	})
}

type Options struct {
	Engine      Engine
	KrokiServer string
	ChromaStyle string
}

// Renderer renders diagram blocks. It implements types.AsyncRenderer.
type Renderer struct {
	opts      Options
	languages map[string]Language
	local     Backend
	kroki     Backend
	store     *Store
	hl        *render.Highlighter
}

// New builds a renderer. store may be nil.
func New(opts Options, store *Store) *Renderer {
	if opts.Engine == "" {
		opts.Engine = EngineAuto
	}
	return &Renderer{
		opts:      opts,
		languages: DefaultLanguages(),
		local:     Local{},
		kroki:     Kroki{Server: opts.KrokiServer},
		store:     store,
		hl:        render.NewHighlighter(opts.ChromaStyle),
	}
}

// AddLanguage registers or replaces a fence tag.
func (r *Renderer) AddLanguage(l Language) {
	r.languages[strings.ToLower(l.Tag)] = l
}

// Language returns the configuration for a fence tag.
func (r *Renderer) Language(tag string) (Language, bool) {
	l, ok := r.languages[strings.ToLower(tag)]
	return l, ok
}

// Close releases the disk cache.
func (r *Renderer) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}

func (r *Renderer) FormatID() string    { return FormatID }
func (r *Renderer) DisplayName() string { return "Diagrams" }
func (r *Renderer) Badge() string       { return "DG" }

// Capabilities lists what the engine cannot work without. Auto degrades to
// the text fallback, so it requires nothing beyond styling.
func (r *Renderer) Capabilities() []types.Capability {
	switch r.opts.Engine {
	case EngineLocal:
		return []types.Capability{types.CapTextStyling, types.CapInlineGraphics, types.CapExternalCommand}
	case EngineKroki:
		return []types.Capability{types.CapTextStyling, types.CapInlineGraphics, types.CapNetworkAccess}
	}
	return []types.Capability{types.CapTextStyling}
}

// section is either one plain line or one fenced diagram.
type section struct {
	tag    string
	start  int
	source []string
}

func (r *Renderer) sections(lines []string) []section {
	var out []section
	for i := 0; i < len(lines); {
		tag, ok := r.fenceTag(lines[i])
		if !ok {
			out = append(out, section{start: i})
			i++
			continue
		}
		s := section{tag: tag, start: i}
		i++
		for i < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[i]), "```") {
			s.source = append(s.source, lines[i])
			i++
		}
		if i < len(lines) {
			i++
		}
		out = append(out, s)
	}
	return out
}

func (r *Renderer) fenceTag(line string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), "```")
	if !ok {
		return "", false
	}
	tag := strings.ToLower(strings.TrimSpace(rest))
	if _, known := r.languages[tag]; !known {
		return "", false
	}
	return tag, true
}

// Placeholder shows every diagram as source until the backends answer.
func (r *Renderer) Placeholder(block types.ContentBlock, cfg types.RendererConfig) types.RenderedContent {
	rc := types.RenderedContent{Badge: r.Badge()}
	for _, s := range r.sections(block.Lines) {
		if s.tag == "" {
			rc.Push(types.PlainLine(block.Lines[s.start]), s.start)
			continue
		}
		r.fallback(&rc, s, cfg, "rendering…")
	}
	return rc
}

// Render is the blocking form of RenderContext, bounded by cfg.Timeout.
func (r *Renderer) Render(block types.ContentBlock, cfg types.RendererConfig) (types.RenderedContent, error) {
	ctx := context.Background()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	return r.RenderContext(ctx, block, cfg)
}

func (r *Renderer) RenderContext(ctx context.Context, block types.ContentBlock, cfg types.RendererConfig) (types.RenderedContent, error) {
	started := time.Now()
	rc := types.RenderedContent{Badge: r.Badge()}
	for _, s := range r.sections(block.Lines) {
		if s.tag == "" {
			rc.Push(types.PlainLine(block.Lines[s.start]), s.start)
			continue
		}
		data, err := r.fetch(ctx, s, cfg)
		if ctx.Err() != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return types.RenderedContent{}, types.ErrTimeout(time.Since(started))
			}
			return types.RenderedContent{}, types.FailedWith("diagram render cancelled", ctx.Err())
		}
		if err != nil && r.opts.Engine != EngineAuto {
			return types.RenderedContent{}, err
		}
		if data == nil || !r.graphic(&rc, s, data, cfg) {
			r.fallback(&rc, s, cfg, "source")
		}
	}
	return rc, nil
}

// fetch returns PNG bytes for a diagram, or nil when no backend managed.
// The error is the last backend failure.
func (r *Renderer) fetch(ctx context.Context, s section, cfg types.RendererConfig) ([]byte, error) {
	if r.opts.Engine == EngineText || !cfg.Allows(types.CapInlineGraphics) {
		return nil, nil
	}
	lang := r.languages[s.tag]
	source := strings.Join(s.source, "\n")
	log := logging.For("DIAGRAM")

	key := StoreKey(s.tag, source)
	if r.store != nil {
		if data, ok, err := r.store.Get(ctx, key); err != nil {
			log.Warn("cache lookup failed", "err", err)
		} else if ok {
			return data, nil
		}
	}

	var backends []Backend
	switch r.opts.Engine {
	case EngineLocal:
		backends = []Backend{r.local}
	case EngineKroki:
		backends = []Backend{r.kroki}
	default:
		backends = []Backend{r.local, r.kroki}
	}

	var lastErr error
	for _, b := range backends {
		if !b.Available(lang, cfg) {
			continue
		}
		data, err := b.Render(ctx, lang, source)
		if err != nil {
			log.Debug("backend failed", "backend", b.Name(), "lang", s.tag, "err", err)
			lastErr = err
			if ctx.Err() != nil {
				return nil, err
			}
			continue
		}
		if r.store != nil {
			if err := r.store.Put(ctx, key, s.tag, data); err != nil {
				log.Warn("cache store failed", "err", err)
			}
		}
		return data, nil
	}
	if lastErr == nil && r.opts.Engine != EngineAuto {
		lastErr = types.Failed("no %s backend available for %s", r.opts.Engine, s.tag)
	}
	return nil, lastErr
}

// graphic decodes data and lays out a header plus blank rows for the image
// to cover. It reports false when the image cannot be decoded.
func (r *Renderer) graphic(rc *types.RenderedContent, s section, data []byte, cfg types.RendererConfig) bool {
	rgba, pw, ph, err := DecodePNG(data)
	if err != nil {
		logging.For("DIAGRAM").Debug("image decode failed", "lang", s.tag, "err", err)
		return false
	}
	theme := cfg.Theme
	lang := r.languages[s.tag]

	header := render.BoldSeg(" "+lang.DisplayName+" ", theme.BG)
	header.BG = theme.Palette[2]
	rc.Push(types.Line(header, render.Seg(" (rendered)", theme.Palette[10])), s.start)

	cellH := cfg.CellHeightPx
	if cellH <= 0 {
		cellH = defaultCellHeight
	}
	rows := max(int(math.Ceil(float64(ph)/cellH)), 1)
	cols := min(cfg.Width(), 80)
	if cfg.CellWidthPx > 0 {
		cols = min(max(int(math.Ceil(float64(pw)/cfg.CellWidthPx)), 1), cfg.Width())
	}

	top := len(rc.Lines)
	for i := 0; i < rows; i++ {
		src := -1
		if i < len(s.source) {
			src = s.start + 1 + i
		}
		rc.Push(types.PlainLine(""), src)
	}
	rc.Graphics = append(rc.Graphics, types.InlineGraphic{
		Row:         top,
		WidthCells:  cols,
		HeightCells: rows,
		RGBA:        rgba,
		PixelWidth:  pw,
		PixelHeight: ph,
	})
	return true
}

// fallback shows the diagram source highlighted under a language header.
func (r *Renderer) fallback(rc *types.RenderedContent, s section, cfg types.RendererConfig, status string) {
	theme := cfg.Theme
	name := s.tag
	if lang, ok := r.languages[s.tag]; ok {
		name = lang.DisplayName
	}
	header := render.BoldSeg(" "+name+" ", theme.BG)
	header.BG = theme.Palette[4]
	rc.Push(types.Line(header, render.ItalicSeg(" ("+status+")", theme.DimColor())), s.start)

	for i, ln := range r.hl.Lines(s.source, s.tag) {
		segs := append([]types.StyledSegment{types.Plain("  ")}, ln.Segments...)
		rc.Push(types.Line(segs...), s.start+1+i)
	}
}

// DecodePNG decodes data into tightly packed RGBA pixels.
func DecodePNG(data []byte) ([]byte, int, int, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, err
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 || b.Dx() > maxImageSide || b.Dy() > maxImageSide {
		return nil, 0, 0, types.Failed("image size %dx%d out of range", b.Dx(), b.Dy())
	}
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*b.Dx() || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	return rgba.Pix, b.Dx(), b.Dy(), nil
}
