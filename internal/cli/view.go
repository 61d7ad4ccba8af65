// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/cli/view.go
// Summary: Interactive full-screen viewer with a gutter of block badges.

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/framegrace/prettify/config"
	"github.com/framegrace/prettify/internal/logging"
	"github.com/framegrace/prettify/prettifier"
	"github.com/framegrace/prettify/prettifier/gutter"
	"github.com/framegrace/prettify/prettifier/pipeline"
	"github.com/framegrace/prettify/prettifier/registry"
	"github.com/framegrace/prettify/prettifier/types"
)

var (
	viewCommand string
	viewWatch   bool
)

var viewCmd = &cobra.Command{
	Use:   "view [file...]",
	Short: "Browse rendered output interactively",
	Long: "view shows the input full screen with a badge next to every detected block.\n" +
		"Click a badge or press t to switch a block between rendered and source view.\n\n" +
		"Keys: j/k scroll, t toggle block, g toggle prettifier, y copy block,\n" +
		"Y copy the other view, r re-detect, q quit.",
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, err := readInputs(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		if f, err := setupLogging(); err == nil {
			defer f.Close()
			logging.SetOutput(f)
		}

		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("create screen failed: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("init screen failed: %w", err)
		}
		screen.EnableMouse()
		defer screen.DisableMouse()
		screen.HideCursor()
		defer screen.Fini()

		w, _ := screen.Size()
		p, cfg, err := newPipeline(contentWidth(w))
		if err != nil {
			return err
		}
		s, _ := config.SettingsOf(cfg)
		v := newViewer(screen, p, lines, viewCommand, prettifier.CopyMode(s))
		defer v.close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		go v.forwardCompletions(ctx)
		if viewWatch {
			go func() {
				err := config.Watch(ctx, func(cfg config.Config) {
					screen.PostEvent(tcell.NewEventInterrupt(cfg))
				})
				if err != nil && ctx.Err() == nil {
					logger.Warn("config watch stopped", "err", err)
				}
			}()
		}
		go func() {
			<-ctx.Done()
			screen.PostEvent(tcell.NewEventInterrupt(nil))
		}()

		v.run(ctx)
		return nil
	},
}

func init() {
	viewCmd.Flags().StringVarP(&viewCommand, "command", "c", "", "command that produced the input")
	viewCmd.Flags().BoolVar(&viewWatch, "watch", true, "reload when the config file changes")
	rootCmd.AddCommand(viewCmd)
}

// completionsReady wakes the event loop after a background render.
type completionsReady struct{}

type viewer struct {
	screen   tcell.Screen
	p        *pipeline.Pipeline
	src      []string
	command  string
	copyMode pipeline.CopyMode

	doc    []docLine
	top    int
	gutter *gutter.Manager
	theme  types.ThemeColors
	status string

	mouseX, mouseY int
	buttons        tcell.ButtonMask
	// selected is the block t and y act on when the mouse is elsewhere.
	selected    uint64
	hasSelected bool

	retired []*registry.Registry
}

func newViewer(s tcell.Screen, p *pipeline.Pipeline, src []string, command string, mode pipeline.CopyMode) *viewer {
	v := &viewer{
		screen:   s,
		p:        p,
		src:      src,
		command:  command,
		copyMode: mode,
		gutter:   gutter.New(),
		theme:    p.RendererConfig().Theme,
		mouseX:   -1,
		mouseY:   -1,
	}
	feed(p, src, command)
	v.layout()
	return v
}

// contentWidth leaves room for the gutter and one separator column.
func contentWidth(screenWidth int) int {
	return max(screenWidth-gutter.Width-1, 10)
}

func (v *viewer) close() {
	v.p.Close()
	for _, r := range v.retired {
		r.Close()
	}
}

func (v *viewer) forwardCompletions(ctx context.Context) {
	for {
		select {
		case <-v.p.Notify():
			v.screen.PostEvent(tcell.NewEventInterrupt(completionsReady{}))
		case <-ctx.Done():
			return
		}
	}
}

func (v *viewer) run(ctx context.Context) {
	v.draw()
	for {
		ev := v.screen.PollEvent()
		if ev == nil || ctx.Err() != nil {
			return
		}
		if !v.handle(ev) {
			return
		}
		v.draw()
	}
}

// layout recomposes the document and keeps the scroll position in range.
func (v *viewer) layout() {
	v.doc = compose(v.p, v.src)
	v.top = min(max(v.top, 0), max(len(v.doc)-v.pageHeight(), 0))
}

func (v *viewer) pageHeight() int {
	_, h := v.screen.Size()
	return max(h-1, 1)
}

func (v *viewer) scroll(n int) {
	v.top += n
	v.layout()
	v.renderVisible()
}

// renderVisible asks the pipeline for windows of large blocks that came
// into view.
func (v *viewer) renderVisible() {
	seen := map[uint64]bool{}
	changed := false
	end := min(v.top+v.pageHeight(), len(v.doc))
	for i := v.top; i < end; i++ {
		d := v.doc[i]
		if !d.inBlock || seen[d.blockID] {
			continue
		}
		seen[d.blockID] = true
		if v.p.RenderVisible(d.blockID, d.offset, v.pageHeight()) {
			changed = true
		}
	}
	if changed {
		v.layout()
	}
}

func (v *viewer) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return v.handleKey(ev)
	case *tcell.EventMouse:
		v.handleMouse(ev)
	case *tcell.EventResize:
		w, _ := v.screen.Size()
		if ids := v.p.ReRenderIfNeeded(contentWidth(w)); len(ids) > 0 {
			logger.Debug("re-rendered after resize", "blocks", len(ids))
		}
		v.layout()
		v.screen.Sync()
	case *tcell.EventInterrupt:
		switch data := ev.Data().(type) {
		case completionsReady:
			if ids := v.p.ApplyCompletions(); len(ids) > 0 {
				v.layout()
			}
		case config.Config:
			v.reload(data)
		}
	}
	return true
}

func (v *viewer) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyUp:
		v.scroll(-1)
	case tcell.KeyDown, tcell.KeyEnter:
		v.scroll(1)
	case tcell.KeyPgUp:
		v.scroll(-v.pageHeight())
	case tcell.KeyPgDn:
		v.scroll(v.pageHeight())
	case tcell.KeyHome:
		v.scroll(-len(v.doc))
	case tcell.KeyEnd:
		v.scroll(len(v.doc))
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case 'k':
			v.scroll(-1)
		case 'j':
			v.scroll(1)
		case ' ':
			v.scroll(v.pageHeight())
		case 'b':
			v.scroll(-v.pageHeight())
		case 'n':
			v.selectNext(1)
		case 'N':
			v.selectNext(-1)
		case 't':
			if id, ok := v.target(); ok {
				v.p.ToggleBlock(id)
				v.layout()
			}
		case 'g':
			v.p.ToggleGlobal()
			v.redetect()
			v.status = "prettifier " + onOff(v.p.IsEnabled())
		case 'r':
			v.redetect()
			v.status = fmt.Sprintf("%d blocks detected", v.p.Len())
		case 'y':
			v.copy(v.copyMode)
		case 'Y':
			other := pipeline.CopySource
			if v.copyMode == pipeline.CopySource {
				other = pipeline.CopyRendered
			}
			v.copy(other)
		}
	}
	return true
}

func (v *viewer) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	v.mouseX, v.mouseY = x, y
	btn := ev.Buttons()
	pressed := btn&tcell.Button1 != 0 && v.buttons&tcell.Button1 == 0
	v.buttons = btn
	switch {
	case btn&tcell.WheelUp != 0:
		v.scroll(-3)
	case btn&tcell.WheelDown != 0:
		v.scroll(3)
	case pressed:
		if id, ok := v.gutter.HitTest(x, y, v.indicators()); ok {
			v.p.ToggleBlock(id)
			v.selected, v.hasSelected = id, true
			v.layout()
		}
	}
}

// redetect drops every block and runs detection over the input again.
func (v *viewer) redetect() {
	v.p.Reset()
	feed(v.p, v.src, v.command)
	v.hasSelected = false
	v.layout()
}

func (v *viewer) reload(cfg config.Config) {
	w, _ := v.screen.Size()
	old, ids, err := prettifier.Reload(v.p, cfg, hostConfig(cfg, contentWidth(w)))
	if old != nil {
		v.retired = append(v.retired, old)
	}
	if err != nil {
		logger.Warn("config reload", "err", err)
		v.status = "config reload: " + firstLine(err.Error())
	} else {
		v.status = fmt.Sprintf("config reloaded, %d blocks re-rendered", len(ids))
	}
	v.theme = v.p.RendererConfig().Theme
	if s, err := config.SettingsOf(cfg); err == nil {
		v.copyMode = prettifier.CopyMode(s)
	}
	v.layout()
}

// target is the block under the mouse, else the selected block, else the
// first block on screen.
func (v *viewer) target() (uint64, bool) {
	if i := v.top + v.mouseY; v.mouseY >= 0 && i < len(v.doc) && v.doc[i].inBlock {
		return v.doc[i].blockID, true
	}
	if v.hasSelected && v.p.Block(v.selected) != nil {
		return v.selected, true
	}
	end := min(v.top+v.pageHeight(), len(v.doc))
	for i := v.top; i < end; i++ {
		if v.doc[i].inBlock {
			return v.doc[i].blockID, true
		}
	}
	return 0, false
}

// selectNext moves the selection to the next or previous block and scrolls
// it into view.
func (v *viewer) selectNext(dir int) {
	blocks := v.p.Blocks()
	if len(blocks) == 0 {
		return
	}
	idx := 0
	if dir < 0 {
		idx = len(blocks) - 1
	}
	if v.hasSelected {
		for i, b := range blocks {
			if b.ID == v.selected {
				idx = (i + dir + len(blocks)) % len(blocks)
				break
			}
		}
	}
	v.selected, v.hasSelected = blocks[idx].ID, true
	v.mouseX, v.mouseY = -1, -1
	for i, d := range v.doc {
		if d.inBlock && d.blockID == v.selected && d.offset == 0 {
			v.top = i
			break
		}
	}
	v.layout()
	v.renderVisible()
}

func (v *viewer) copy(mode pipeline.CopyMode) {
	id, ok := v.target()
	if !ok {
		v.status = "no block to copy"
		return
	}
	text, ok := v.p.CopyText(id, mode)
	if !ok {
		return
	}
	v.screen.SetClipboard([]byte(text))
	v.status = fmt.Sprintf("copied %d lines (%s)", strings.Count(text, "\n")+1, mode)
}

// indicators returns the gutter entries for the rows on screen, in screen
// coordinates.
func (v *viewer) indicators() []gutter.Indicator {
	var out []gutter.Indicator
	end := min(v.top+v.pageHeight(), len(v.doc))
	for i := v.top; i < end; {
		d := v.doc[i]
		if !d.inBlock {
			i++
			continue
		}
		start := i
		for i < end && v.doc[i].inBlock && v.doc[i].blockID == d.blockID {
			i++
		}
		if b := v.p.Block(d.blockID); b != nil {
			out = append(out, v.gutter.IndicatorFor(b, start-v.top, i-start))
		}
	}
	v.gutter.Hover(v.mouseX, v.mouseY, out)
	for k := range out {
		if v.hasSelected && out[k].BlockID == v.selected && v.mouseX < 0 {
			out[k].Hovered = true
		}
	}
	return out
}

func (v *viewer) draw() {
	s := v.screen
	s.Clear()
	w, h := s.Size()
	base := tcell.StyleDefault.Foreground(v.theme.FG).Background(v.theme.BG)
	s.Fill(' ', base)

	for _, ind := range v.indicators() {
		st := gutter.Style(ind, v.theme)
		for line := 0; line < ind.Height; line++ {
			drawText(s, 0, ind.Row+line, v.gutter.Width, v.gutter.Cells(ind, line), st)
		}
	}

	x0 := v.gutter.Width + 1
	for y := 0; y < v.pageHeight(); y++ {
		i := v.top + y
		if i >= len(v.doc) {
			break
		}
		x := x0
		for _, seg := range v.doc[i].line.Segments {
			st := seg.Style()
			if seg.FG == tcell.ColorDefault {
				st = st.Foreground(v.theme.FG)
			}
			if seg.BG == tcell.ColorDefault {
				st = st.Background(v.theme.BG)
			}
			x = drawText(s, x, y, w-x, seg.Text, st)
			if x >= w {
				break
			}
		}
	}

	v.drawStatus(w, h)
	s.Show()
}

func (v *viewer) drawStatus(w, h int) {
	st := tcell.StyleDefault.Foreground(v.theme.BG).Background(v.theme.AccentColor())
	for x := 0; x < w; x++ {
		v.screen.SetContent(x, h-1, ' ', nil, st)
	}
	stats := v.p.CacheStats()
	left := fmt.Sprintf(" prettify %s │ %d blocks │ cache %.0f%% │ %d/%d",
		onOff(v.p.IsEnabled()), v.p.Len(), stats.HitRate()*100, min(v.top+1, len(v.doc)), len(v.doc))
	if v.status != "" {
		left += " │ " + v.status
	}
	right := "t toggle  g global  y copy  q quit "
	x := drawText(v.screen, 0, h-1, w, left, st)
	if rx := w - runewidth.StringWidth(right); rx > x+1 {
		drawText(v.screen, rx, h-1, w-rx, right, st)
	}
}

// drawText writes text from (x, y) using at most width cells and returns
// the next free column.
func drawText(s tcell.Screen, x, y, width int, text string, st tcell.Style) int {
	limit := x + width
	for _, r := range text {
		if r == '\t' {
			r = ' '
		}
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		if x+rw > limit {
			break
		}
		s.SetContent(x, y, r, nil, st)
		x += rw
	}
	return x
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// setupLogging sends log output to a file while the viewer owns the
// terminal.
func setupLogging() (*os.File, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	logDir := filepath.Join(configDir, "prettify", "logs")
	if err := os.MkdirAll(logDir, 0o750); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(logDir, "viewer.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
}
