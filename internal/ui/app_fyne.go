//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"structsketch/internal/crash"
	"structsketch/internal/deform"
	"structsketch/internal/domain"
	"structsketch/internal/export"
	"structsketch/internal/gesture"
	"structsketch/internal/hinge"
	applog "structsketch/internal/log"
	"structsketch/internal/model"
	"structsketch/internal/snap"
	"structsketch/internal/solver"
	"structsketch/internal/storage"
	"structsketch/internal/telemetry"
	"structsketch/internal/tools"
	"structsketch/internal/vector"
	"structsketch/internal/version"
	"structsketch/internal/viewport"
)

// frameInterval paces the animation loop.
const frameInterval = time.Second / 30

type editor struct {
	app    fyne.App
	win    fyne.Window
	log    *slog.Logger
	opt    Options
	ctx    context.Context
	cancel context.CancelFunc

	store    *model.Store
	resolver *snap.Resolver
	machine  *gesture.Machine
	session  *solver.Session
	player   *deform.Player
	sketch   *SketchCanvas
	status   *widget.Label
	modes    *widget.Select
	gain     float64

	mu        sync.Mutex
	path      string
	savedAt   time.Time
	mode      int
	transient bool
	poles     map[int]vector.Pt
	watcher   *storage.Watcher
}

// Run starts the desktop editor and blocks until the window closes.
func Run(opt Options) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))

	cfg := opt.Config
	store := model.New(cfg.Canvas.GridSize)
	defer crash.Recover(cfg.General.AutosaveDir, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fyneApp := app.NewWithID("structsketch")
	w := fyneApp.NewWindow("StructSketch")
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1200)
	winH := prefs.IntWithFallback("window.height", 800)
	if winW < 800 {
		winW = 800
	}
	if winH < 600 {
		winH = 600
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	ed := &editor{app: fyneApp, win: w, log: l, opt: opt, ctx: ctx, cancel: cancel, store: store, player: deform.NewPlayer(), gain: 1}
	ed.status = widget.NewLabel("Ready")
	ed.sketch = newSketchCanvas(ed, cfg.Canvas.GridSize, cfg.Canvas.CellsAcross)

	ed.resolver = snap.New(store, ed.sketch.View)
	if cfg.Canvas.SnapRadiusPx > 0 {
		ed.resolver.SnapRadiusPx = cfg.Canvas.SnapRadiusPx
	}
	if cfg.Canvas.MemberHitPx > 0 {
		ed.resolver.MemberHitPx = cfg.Canvas.MemberHitPx
	}
	ed.resolver.GridSnap = cfg.Canvas.GridSnap
	ed.machine = gesture.New(store, ed.resolver, gesture.PrompterFunc(ed.promptLoad))
	ed.session = solver.NewSession(opt.Analyzer, store, hinge.ChooserFunc(ed.chooseEnd), solver.NotifierFunc(ed.notify))
	ed.session.OnResult(ed.applyResult)

	// any edit invalidates the visible analysis
	unsubscribe := store.Subscribe(func(model.Change) {
		if ed.session.Result().Kind != solver.KindNone || ed.session.Running() != solver.KindNone {
			ed.session.Clear()
		}
		ed.refresh()
	})
	defer unsubscribe()

	if fw, err := storage.NewWatcher(300 * time.Millisecond); err != nil {
		l.Warn("file watching disabled", slog.Any("err", err))
	} else {
		ed.watcher = fw
		go func() { _ = fw.Run(ctx) }()
		defer func() { _ = fw.Close() }()
	}

	w.SetMainMenu(ed.mainMenu())
	w.SetContent(ed.layout())
	ed.bindKeys()

	if opt.Path != "" {
		if err := ed.open(opt.Path); err != nil {
			l.Error("open failed", slog.String("path", opt.Path), slog.Any("err", err))
			dialog.ShowError(err, w)
		}
	}

	go ed.animate()

	w.SetOnClosed(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		cancel()
	})
	telemetry.Event("ui_start", nil)
	w.ShowAndRun()
	l.Info("UI closed")
	return nil
}

func (ed *editor) layout() fyne.CanvasObject {
	palette := tools.All()
	labels := make([]string, len(palette))
	byLabel := make(map[string]tools.Tool, len(palette))
	for i, t := range palette {
		labels[i] = toolLabel(t)
		byLabel[labels[i]] = t
	}
	rotation := widget.NewLabel("Rotation: 0°")
	toolGroup := widget.NewRadioGroup(labels, func(s string) {
		if t, ok := byLabel[s]; ok {
			ed.machine.SetTool(t)
			ed.log.Debug("tool selected", slog.String("tool", t.Name()))
			ed.refresh()
		}
	})
	toolGroup.SetSelected(labels[0])
	rotate := widget.NewButton("Rotate 45°", func() {
		ed.machine.SetRotation(ed.machine.Rotation() + gesture.RotationStep)
		rotation.SetText(fmt.Sprintf("Rotation: %g°", ed.machine.Rotation()))
		ed.refresh()
	})
	left := container.NewVBox(widget.NewLabel("Tools"), widget.NewSeparator(), toolGroup, rotation, rotate)

	ed.modes = widget.NewSelect(nil, func(s string) {
		var idx int
		if _, err := fmt.Sscanf(s, "Mode %d", &idx); err != nil {
			return
		}
		ed.mu.Lock()
		ed.mode = idx - 1
		ed.mu.Unlock()
		ed.applyResult(ed.session.Result())
	})
	gain := widget.NewSlider(0.1, 5)
	gain.Step = 0.1
	gain.SetValue(1)
	gain.OnChanged = func(v float64) {
		ed.mu.Lock()
		ed.gain = v
		ed.mu.Unlock()
		ed.refresh()
	}
	transient := widget.NewCheck("Time history", func(v bool) {
		ed.mu.Lock()
		ed.transient = v
		ed.mu.Unlock()
		ed.applyResult(ed.session.Result())
	})
	pause := widget.NewCheck("Pause", func(v bool) { ed.player.SetPaused(v) })
	right := container.NewVBox(
		widget.NewLabel("Analysis"), widget.NewSeparator(),
		widget.NewButton("Kinematics", func() { ed.analyze(solver.KindKinematics) }),
		widget.NewButton("Solve", func() { ed.analyze(solver.KindStatic) }),
		widget.NewButton("Dynamic", func() { ed.analyze(solver.KindDynamic) }),
		widget.NewButton("Simplify", func() { ed.analyze(solver.KindSimplify) }),
		widget.NewButton("Clear results", func() { ed.session.Clear() }),
		widget.NewSeparator(),
		ed.modes, transient, pause,
		widget.NewLabel("Amplitude"), gain,
	)
	return container.NewBorder(nil, ed.status, left, right, ed.sketch)
}

func toolLabel(t tools.Tool) string {
	name := strings.ReplaceAll(t.Name(), "_", " ")
	if t.Category() == tools.CatSelect || t.Category() == tools.CatDelete {
		return name
	}
	return string(t.Category()) + ": " + name
}

func (ed *editor) mainMenu() *fyne.MainMenu {
	recent := fyne.NewMenuItem("Open Recent", nil)
	recent.ChildMenu = fyne.NewMenu("")
	for _, p := range loadRecentSystems(ed.app.Preferences()) {
		p := p
		recent.ChildMenu.Items = append(recent.ChildMenu.Items, fyne.NewMenuItem(filepath.Base(p), func() { ed.openAndReport(p) }))
	}
	file := fyne.NewMenu("File",
		fyne.NewMenuItem("New", func() { ed.newSystem() }),
		fyne.NewMenuItem("Open…", func() { ed.showOpen() }),
		recent,
		fyne.NewMenuItem("Save", func() { ed.save() }),
		fyne.NewMenuItem("Save As…", func() { ed.showSaveAs() }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export…", func() { ed.showExport() }),
	)
	lib := fyne.NewMenu("Library",
		fyne.NewMenuItem("Save to Library…", func() { ed.showLibrarySave() }),
		fyne.NewMenuItem("Browse Library…", func() { ed.showLibrary() }),
	)
	if ed.opt.Library == nil {
		for _, it := range lib.Items {
			it.Disabled = true
		}
	}
	help := fyne.NewMenu("Help", fyne.NewMenuItem("About", func() {
		dialog.ShowInformation("About StructSketch", "StructSketch "+version.String(), ed.win)
	}))
	return fyne.NewMainMenu(file, lib, help)
}

func (ed *editor) bindKeys() {
	c := ed.win.Canvas()
	c.SetOnTypedKey(func(e *fyne.KeyEvent) {
		switch e.Name {
		case fyne.KeyEscape:
			ed.machine.SetTool(tools.Select{})
		case fyne.KeyDelete, fyne.KeyBackspace:
			ed.machine.SetTool(tools.Delete{})
		case fyne.KeyR:
			ed.machine.SetRotation(ed.machine.Rotation() + gesture.RotationStep)
		case fyne.KeySpace:
			ed.player.SetPaused(!ed.player.Paused())
		default:
			return
		}
		ed.refresh()
	})
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { ed.save() })
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { ed.showOpen() })
}

// refresh may be called from any goroutine.
func (ed *editor) refresh() {
	fyne.Do(func() { ed.sketch.Refresh() })
}

// releaseDone reports a finished release and redraws.
func (ed *editor) releaseDone(err error) {
	if err != nil && !errors.Is(err, gesture.ErrBusy) && !errors.Is(err, context.Canceled) {
		ed.notify(solver.LevelError, err.Error())
	}
	ed.refresh()
}

func (ed *editor) notify(level solver.Level, msg string) {
	if level == solver.LevelError {
		ed.log.Warn(msg)
	} else {
		ed.log.Info(msg)
	}
	fyne.Do(func() { ed.status.SetText(msg) })
}

func (ed *editor) animate() {
	t := time.NewTicker(frameInterval)
	defer t.Stop()
	last := time.Now()
	for {
		select {
		case <-ed.ctx.Done():
			return
		case now := <-t.C:
			dt := now.Sub(last).Seconds()
			last = now
			if ed.player.Tick(dt) {
				ed.refresh()
			}
		}
	}
}

func (ed *editor) analyze(kind solver.Kind) {
	ed.status.SetText(fmt.Sprintf("running %s…", kind))
	go func() {
		start := time.Now()
		var err error
		switch kind {
		case solver.KindKinematics:
			_, err = ed.session.RunKinematics(ed.ctx)
		case solver.KindStatic:
			_, err = ed.session.RunStatic(ed.ctx)
			if err == nil {
				ed.notify(solver.LevelInfo, "static solution ready")
			}
		case solver.KindDynamic:
			_, err = ed.session.RunDynamic(ed.ctx)
			if err == nil {
				ed.notify(solver.LevelInfo, "dynamic analysis ready")
			}
		case solver.KindSimplify:
			var dropped int
			dropped, err = ed.session.Simplify(ed.ctx)
			if dropped > 0 {
				ed.notify(solver.LevelInfo, fmt.Sprintf("%d invalid entities dropped from the simplified system", dropped))
			}
		}
		if errors.Is(err, solver.ErrSuperseded) {
			return
		}
		telemetry.Analysis(string(kind), time.Since(start), err)
	}()
}

// applyResult loads the visible result into the player.
func (ed *editor) applyResult(r solver.Result) {
	ed.mu.Lock()
	mode, transient := ed.mode, ed.transient
	ed.mu.Unlock()

	var modes []string
	switch r.Kind {
	case solver.KindDynamic:
		if r.Dynamic != nil {
			for i, f := range r.Dynamic.NaturalFrequencies {
				modes = append(modes, fmt.Sprintf("Mode %d (%.3g Hz)", i+1, f.Frequency))
			}
		}
	case solver.KindKinematics:
		if r.Kinematic != nil {
			for i := range r.Kinematic.Modes {
				modes = append(modes, fmt.Sprintf("Mode %d", i+1))
			}
		}
	}
	if mode >= len(modes) {
		mode = 0
	}

	a := r.Analysis(mode)
	if a != nil && a.View == deform.ViewModal && transient {
		a.View = deform.ViewTransient
	}
	var poles map[int]vector.Pt
	if a != nil && a.View == deform.ViewMechanism {
		poles = deform.Poles(deform.Mode(r.Kinematic, mode))
	}
	ed.mu.Lock()
	ed.poles = poles
	ed.mu.Unlock()
	ed.player.Load(a)

	fyne.Do(func() {
		ed.modes.Options = modes
		if len(modes) == 0 {
			ed.modes.ClearSelected()
		}
		ed.modes.Refresh()
		ed.sketch.Refresh()
	})
}

// frame returns the deformed geometry and poles for the current clock.
func (ed *editor) frame(snapshot domain.Snapshot) (*deform.Frame, map[int]vector.Pt) {
	a := ed.player.Analysis()
	if a == nil {
		return nil, nil
	}
	ed.mu.Lock()
	gain, poles := ed.gain, ed.poles
	ed.mu.Unlock()
	cfg := ed.opt.Config.Canvas
	f, ok := ed.player.Frame(snapshot, Amplitude(a, cfg.Amplitude, cfg.GridSize, gain))
	if !ok {
		return nil, poles
	}
	return &f, poles
}

func (ed *editor) promptLoad(ctx context.Context, req gesture.Request) (gesture.Answer, error) {
	ch := make(chan gesture.Answer, 1)
	fyne.Do(func() {
		fields := FieldsFor(req)
		value := widget.NewEntry()
		value.SetText(fields.Value)
		items := []*widget.FormItem{widget.NewFormItem(valueLabel(req.Kind), value)}
		valueEnd, ratio, ratioEnd := widget.NewEntry(), widget.NewEntry(), widget.NewEntry()
		if req.Distributed() {
			valueEnd.SetText(fields.ValueEnd)
			ratio.SetText(fields.Ratio)
			ratioEnd.SetText(fields.RatioEnd)
			items = append(items,
				widget.NewFormItem("End value (kN/m)", valueEnd),
				widget.NewFormItem("Start ratio", ratio),
				widget.NewFormItem("End ratio", ratioEnd))
		}
		dialog.ShowForm(LoadTitle(req), "Apply", "Cancel", items, func(ok bool) {
			if !ok {
				ch <- gesture.Answer{}
				return
			}
			ans, err := ParseLoadFields(req, LoadFields{Value: value.Text, ValueEnd: valueEnd.Text, Ratio: ratio.Text, RatioEnd: ratioEnd.Text})
			if err != nil {
				dialog.ShowError(err, ed.win)
				ch <- gesture.Answer{}
				return
			}
			ch <- ans
		}, ed.win)
	})
	select {
	case a := <-ch:
		return a, nil
	case <-ctx.Done():
		return gesture.Answer{}, ctx.Err()
	}
}

func valueLabel(k domain.LoadKind) string {
	switch k {
	case domain.MomentLoad:
		return "Moment (kNm)"
	case domain.DistributedLoad:
		return "Start value (kN/m)"
	}
	return "Force (kN)"
}

func (ed *editor) chooseEnd(ctx context.Context, d hinge.DoubleHinge) (domain.MemberEnd, bool, error) {
	type choice struct {
		end domain.MemberEnd
		ok  bool
	}
	ch := make(chan choice, 1)
	fyne.Do(func() {
		labels := EndLabels(d)
		picked := 0
		group := widget.NewRadioGroup(labels, func(s string) {
			for i, l := range labels {
				if l == s {
					picked = i
				}
			}
		})
		group.SetSelected(labels[0])
		content := container.NewVBox(
			widget.NewLabel(fmt.Sprintf("Node %d joins %d moment releases. Pick the end to make rigid:", d.NodeID, len(d.Ends))),
			group)
		dialog.ShowCustomConfirm("Double hinge", "Make rigid", "Cancel", content, func(ok bool) {
			ch <- choice{end: d.Ends[picked], ok: ok}
		}, ed.win)
	})
	select {
	case c := <-ch:
		return c.end, c.ok, nil
	case <-ctx.Done():
		return domain.MemberEnd{}, false, ctx.Err()
	}
}

func (ed *editor) newSystem() {
	ed.session.Clear()
	ed.store.ClearAll()
	ed.mu.Lock()
	ed.path = ""
	ed.mu.Unlock()
	ed.win.SetTitle("StructSketch")
}

func (ed *editor) open(path string) error {
	f, err := storage.OpenFile(path)
	if err != nil {
		return err
	}
	ed.session.Clear()
	dropped := ed.store.ImportSnapshot(f.Snapshot)
	ed.mu.Lock()
	ed.path = f.Path
	ed.mu.Unlock()
	ed.win.SetTitle("StructSketch – " + filepath.Base(f.Path))
	addRecentSystem(ed.app.Preferences(), f.Path)
	msg := fmt.Sprintf("opened %s", filepath.Base(f.Path))
	if f.Recovered {
		msg += " (recovered from backup)"
	}
	if dropped > 0 {
		msg += fmt.Sprintf(", %d invalid entities dropped", dropped)
	}
	ed.status.SetText(msg)
	stats := ed.store.Stats()
	telemetry.Event("system_opened", map[string]any{"nodes": stats.Nodes, "members": stats.Members})
	if ed.watcher != nil {
		if err := ed.watcher.Watch(f.Path, ed.fileChanged); err != nil {
			ed.log.Warn("watch failed", slog.Any("err", err))
		}
	}
	return nil
}

func (ed *editor) openAndReport(path string) {
	if err := ed.open(path); err != nil {
		dialog.ShowError(err, ed.win)
	}
}

// fileChanged reloads the open system after an outside edit. Our own saves
// are ignored for a short grace period.
func (ed *editor) fileChanged(path string, f *storage.SystemFile, err error) {
	ed.mu.Lock()
	current, own := ed.path, time.Since(ed.savedAt) < 2*time.Second
	ed.mu.Unlock()
	if path != current || own {
		return
	}
	if err != nil {
		ed.notify(solver.LevelError, fmt.Sprintf("reload %s failed: %v", filepath.Base(path), err))
		return
	}
	fyne.Do(func() {
		dialog.ShowConfirm("File changed", filepath.Base(path)+" was changed outside the editor. Reload it?", func(ok bool) {
			if !ok {
				return
			}
			ed.session.Clear()
			ed.store.ImportSnapshot(f.Snapshot)
			ed.status.SetText("reloaded " + filepath.Base(path))
		}, ed.win)
	})
}

func (ed *editor) save() {
	ed.mu.Lock()
	path := ed.path
	ed.mu.Unlock()
	if path == "" {
		ed.showSaveAs()
		return
	}
	ed.saveTo(path)
}

func (ed *editor) saveTo(path string) {
	if !strings.HasSuffix(path, storage.FileExt) {
		path = strings.TrimSuffix(path, filepath.Ext(path)) + storage.FileExt
	}
	ed.mu.Lock()
	ed.savedAt = time.Now()
	ed.mu.Unlock()
	if err := storage.SaveFile(path, ed.store.ExportSnapshot()); err != nil {
		ed.log.Error("save failed", slog.String("path", path), slog.Any("err", err))
		dialog.ShowError(err, ed.win)
		return
	}
	ed.mu.Lock()
	changed := ed.path != path
	ed.path = path
	ed.mu.Unlock()
	if changed && ed.watcher != nil {
		_ = ed.watcher.Watch(path, ed.fileChanged)
	}
	addRecentSystem(ed.app.Preferences(), path)
	ed.win.SetTitle("StructSketch – " + filepath.Base(path))
	ed.status.SetText("saved " + filepath.Base(path))
}

func (ed *editor) showOpen() {
	fo := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil || r == nil {
			return
		}
		path := r.URI().Path()
		_ = r.Close()
		ed.openAndReport(path)
	}, ed.win)
	fo.SetFilter(fstorage.NewExtensionFileFilter([]string{".json"}))
	fo.Show()
}

func (ed *editor) showSaveAs() {
	fs := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
		if err != nil || wc == nil {
			return
		}
		path := wc.URI().Path()
		_ = wc.Close()
		ed.saveTo(path)
	}, ed.win)
	name := ed.store.Meta().Name
	if name == "" {
		name = "system"
	}
	fs.SetFileName(name + storage.FileExt)
	fs.Show()
}

func (ed *editor) showExport() {
	dialog.ShowFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil || dir == nil {
			return
		}
		snapshot := ed.store.ExportSnapshot()
		frame, poles := ed.frame(snapshot)
		files, err := export.BatchExport(snapshot, export.BatchOptions{
			Preset:   export.PresetPrint,
			Formats:  []string{"pdf", "png", "svg"},
			OutDir:   dir.Path(),
			Deformed: frame,
			Poles:    poles,
			Result:   ed.session.Result().Static,
		})
		if err != nil {
			dialog.ShowError(err, ed.win)
			return
		}
		ed.status.SetText(fmt.Sprintf("exported %d file(s) to %s", len(files), dir.Path()))
	}, ed.win)
}

func (ed *editor) showLibrarySave() {
	lib := ed.opt.Library
	if lib == nil {
		return
	}
	name := widget.NewEntry()
	name.SetText(ed.store.Meta().Name)
	dialog.ShowForm("Save to library", "Save", "Cancel", []*widget.FormItem{widget.NewFormItem("Name", name)}, func(ok bool) {
		n := strings.TrimSpace(name.Text)
		if !ok || n == "" {
			return
		}
		ed.store.SetName(n)
		if err := lib.Save(ed.ctx, n, ed.store.ExportSnapshot()); err != nil {
			dialog.ShowError(err, ed.win)
			return
		}
		ed.status.SetText("saved " + n + " to library")
	}, ed.win)
}

func (ed *editor) showLibrary() {
	lib := ed.opt.Library
	if lib == nil {
		return
	}
	entries, err := lib.List(ed.ctx, "")
	if err != nil {
		dialog.ShowError(err, ed.win)
		return
	}
	selected := -1
	list := widget.NewList(
		func() int { return len(entries) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			e := entries[i]
			o.(*widget.Label).SetText(fmt.Sprintf("%s  (%d nodes, %d members, %s)", e.Name, e.Nodes, e.Members, e.UpdatedAt.Local().Format("2006-01-02 15:04")))
		},
	)
	preview := canvas.NewImageFromImage(nil)
	preview.FillMode = canvas.ImageFillContain
	preview.SetMinSize(fyne.NewSize(ThumbnailSize, ThumbnailSize*3/4))
	list.OnSelected = func(id widget.ListItemID) {
		selected = int(id)
		name := entries[id].Name
		go func() {
			b, err := LibraryThumbnail(ed.ctx, lib, name)
			if err != nil {
				ed.log.Warn("thumbnail failed", slog.String("name", name), slog.Any("err", err))
				return
			}
			fyne.Do(func() {
				preview.Resource = fyne.NewStaticResource(name+".png", b)
				preview.Image = nil
				preview.Refresh()
			})
		}()
	}
	scroll := container.NewVScroll(list)
	scroll.SetMinSize(fyne.NewSize(420, 260))
	dialog.ShowCustomConfirm("Library", "Load", "Close", container.NewBorder(nil, nil, nil, preview, scroll), func(ok bool) {
		if !ok || selected < 0 || selected >= len(entries) {
			return
		}
		snapshot, err := lib.Load(ed.ctx, entries[selected].Name)
		if err != nil {
			dialog.ShowError(err, ed.win)
			return
		}
		ed.session.Clear()
		dropped := ed.store.ImportSnapshot(snapshot)
		ed.mu.Lock()
		ed.path = ""
		ed.mu.Unlock()
		ed.status.SetText(fmt.Sprintf("loaded %s from library (%d dropped)", entries[selected].Name, dropped))
	}, ed.win)
}

// SketchCanvas is the drawing surface. Pointer events go to the gesture
// machine; the secondary button pans.
type SketchCanvas struct {
	widget.BaseWidget
	ed     *editor
	raster *canvas.Raster

	mu      sync.Mutex
	view    viewport.Viewport
	hover   bool
	panning bool
	lastPan vector.Pt
}

func newSketchCanvas(ed *editor, grid, cells float64) *SketchCanvas {
	c := &SketchCanvas{ed: ed, view: viewport.New(800, 600, grid)}
	if cells > 0 {
		c.view.CellsAcross = cells
	}
	c.raster = canvas.NewRaster(c.draw)
	c.ExtendBaseWidget(c)
	return c
}

// View returns the current viewport; the snap resolver reads it on every event.
func (c *SketchCanvas) View() viewport.Viewport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *SketchCanvas) CreateRenderer() fyne.WidgetRenderer { return widget.NewSimpleRenderer(c.raster) }
func (c *SketchCanvas) MinSize() fyne.Size                   { return fyne.NewSize(400, 300) }

func (c *SketchCanvas) Resize(size fyne.Size) {
	c.mu.Lock()
	c.view.Resize(float64(size.Width), float64(size.Height))
	c.mu.Unlock()
	c.BaseWidget.Resize(size)
}

// draw renders at the widget's logical size; fyne scales the image to the raster.
func (c *SketchCanvas) draw(_, _ int) image.Image {
	view := c.View()
	m := c.ed.machine
	snapshot := c.ed.store.ExportSnapshot()
	frame, poles := c.ed.frame(snapshot)
	selNode, selMember := m.Selection()
	a, b, preview := m.PreviewLine()
	c.mu.Lock()
	hover := c.hover
	c.mu.Unlock()
	ov := Overlay{
		Grid: true, Preview: [2]vector.Pt{a, b}, HasPreview: preview,
		Cursor: m.Cursor(), ShowCursor: hover, Tool: m.Tool(), Rotation: m.Rotation(),
		SelNode: selNode, SelMember: selMember,
	}
	return export.RenderImage(ComposeScene(snapshot, view, ov, frame, poles))
}

func pixel(p fyne.Position) vector.Pt { return vector.Pt{X: float64(p.X), Y: float64(p.Y)} }

func (c *SketchCanvas) MouseDown(e *desktop.MouseEvent) {
	if e.Button == desktop.MouseButtonSecondary {
		c.mu.Lock()
		c.panning, c.lastPan = true, pixel(e.Position)
		c.mu.Unlock()
		return
	}
	c.ed.machine.Press(pixel(e.Position))
	c.Refresh()
}

func (c *SketchCanvas) MouseUp(e *desktop.MouseEvent) {
	c.mu.Lock()
	panning := c.panning
	c.panning = false
	c.mu.Unlock()
	if panning || e.Button == desktop.MouseButtonSecondary {
		return
	}
	wait, err := c.ed.machine.Commit(pixel(e.Position))
	if wait == nil {
		c.ed.releaseDone(err)
		return
	}
	go func() { c.ed.releaseDone(wait(c.ed.ctx)) }()
}

func (c *SketchCanvas) MouseIn(e *desktop.MouseEvent) {
	c.mu.Lock()
	c.hover = true
	c.mu.Unlock()
	c.ed.machine.Move(pixel(e.Position))
	c.Refresh()
}

func (c *SketchCanvas) MouseMoved(e *desktop.MouseEvent) {
	p := pixel(e.Position)
	c.mu.Lock()
	if c.panning {
		c.view.Pan(p.Sub(c.lastPan))
		c.lastPan = p
		c.mu.Unlock()
		c.Refresh()
		return
	}
	c.mu.Unlock()
	c.ed.machine.Move(p)
	c.Refresh()
}

func (c *SketchCanvas) MouseOut() {
	c.mu.Lock()
	c.hover, c.panning = false, false
	c.mu.Unlock()
	c.ed.machine.Leave()
	c.Refresh()
}

// Scrolled zooms by changing the number of grid cells across the canvas.
func (c *SketchCanvas) Scrolled(e *fyne.ScrollEvent) {
	c.mu.Lock()
	cells := c.view.CellsAcross * math.Pow(1.1, -float64(e.Scrolled.DY)/10)
	c.view.CellsAcross = math.Min(math.Max(cells, 2), 400)
	c.mu.Unlock()
	c.Refresh()
}

// Recent systems persistence.
const recentPrefsKey = "recent.systems"
const recentMax = 10

func loadRecentSystems(p fyne.Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		var tmp []string
		if err := json.Unmarshal([]byte(raw), &tmp); err == nil {
			items = tmp
		}
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := os.Stat(s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func saveRecentSystems(p fyne.Preferences, items []string) {
	if len(items) > recentMax {
		items = items[:recentMax]
	}
	b, _ := json.Marshal(items)
	p.SetString(recentPrefsKey, string(b))
}

func addRecentSystem(p fyne.Preferences, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	abs, _ := filepath.Abs(path)
	rec := loadRecentSystems(p)
	out := make([]string, 0, 1+len(rec))
	out = append(out, abs)
	for _, s := range rec {
		// de-dup (case-insensitive on Windows)
		if strings.EqualFold(s, abs) {
			continue
		}
		out = append(out, s)
	}
	saveRecentSystems(p, out)
}
