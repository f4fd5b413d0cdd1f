package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/novvoo/go-pdf-reader/pkg/config"
	"github.com/novvoo/go-pdf-reader/pkg/gopdf"
	"github.com/novvoo/go-pdf-reader/pkg/prefs"
	"github.com/novvoo/go-pdf-reader/pkg/remote"
	"github.com/novvoo/go-pdf-reader/pkg/session"
	"github.com/novvoo/go-pdf-reader/pkg/viewer"
)

// Version 构建时通过 ldflags 设置
var Version = "(dev) v0.0.0"

type options struct {
	configPath string
	database   string
	outDir     string
	pages      string
	view       string
	quality    float64
	maxDim     int
	zoom       float64
	zoomAt     string
	link       string
	next       bool
	reset      bool
	forget     bool
	verbosity  int
	logFile    string
	version    bool
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "YAML configuration file")
	flag.StringVar(&o.database, "db", "", "preferences database (overrides config)")
	flag.StringVar(&o.outDir, "out", ".", "directory for PNG snapshots")
	flag.StringVar(&o.pages, "pages", "1", "pages to render, 1-based: \"1,3,5\" or \"all\"")
	flag.StringVar(&o.view, "view", "", "viewport size WxH (default: display size)")
	flag.Float64Var(&o.quality, "quality", 0, "render quality multiplier, persisted")
	flag.IntVar(&o.maxDim, "max-dim", 0, "maximum bitmap dimension, persisted")
	flag.Float64Var(&o.zoom, "zoom", 0, "pinch factor applied to each rendered page, persisted per page")
	flag.StringVar(&o.zoomAt, "zoom-at", "", "pinch focus X,Y in viewport pixels (default: centre)")
	flag.StringVar(&o.link, "link", "", "set the document list link and fetch the list")
	flag.BoolVar(&o.next, "next", false, "open the next document of the fetched list")
	flag.BoolVar(&o.reset, "reset", false, "reset quality settings and zoom of the opened document")
	flag.BoolVar(&o.forget, "forget", false, "forget the last opened document and exit")
	flag.IntVar(&o.verbosity, "v", 0, "log verbosity (-4..2, overrides config)")
	flag.StringVar(&o.logFile, "log", "", "log file (overrides config)")
	flag.BoolVar(&o.version, "version", false, "print the version and exit")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] [file.pdf | https://...]\n", filepath.Base(os.Args[0]))
		fmt.Fprintln(os.Stderr, "without a document argument the last opened document is restored")
		flag.PrintDefaults()
	}
	flag.Parse()

	if o.version {
		fmt.Printf("pdfreader version %s\n", Version)
		return
	}

	if err := run(o, flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(o options, locator string) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "db":
			cfg.Database = o.database
		case "v":
			cfg.Log.Verbosity = o.verbosity
		case "log":
			cfg.Log.File = o.logFile
		}
	})
	configureLogging(cfg.Log)
	log := gopdf.GetLogger().Named("cli")

	kv, err := prefs.OpenSQLite(cfg.Database)
	if err != nil {
		return err
	}
	store := prefs.New(kv)
	defer store.Close()

	if o.forget {
		return store.SetLastDocument("")
	}

	looper := viewer.NewLooper().Start()
	defer looper.Close()

	client := remote.NewClient()
	s, err := session.New(session.Options{
		Prefs:         store,
		Opener:        session.PDFOpener{Client: client, DownloadDir: cfg.DownloadDir},
		Remote:        client,
		Executor:      looper,
		Display:       cfg.DisplayMetrics(),
		CacheBudgetKB: cfg.CacheBudgetKB,
	})
	if err != nil {
		return err
	}
	defer looper.Sync(s.Close)

	ctx := context.Background()
	var openErr error
	looper.Sync(func() { openErr = openDocument(ctx, s, o, locator) })
	if openErr != nil {
		return openErr
	}

	var settingsErr error
	looper.Sync(func() { settingsErr = applySettings(s, o) })
	if settingsErr != nil {
		return settingsErr
	}

	vw, vh := cfg.Display.Width, cfg.Display.Height
	if o.view != "" {
		if vw, vh, err = parseSize(o.view); err != nil {
			return err
		}
	}
	indexes, err := pageIndexes(s, looper, o.pages)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(o.outDir, 0o755); err != nil {
		return err
	}

	start := time.Now()
	for _, index := range indexes {
		path, err := snapshot(s, looper, o, index, vw, vh)
		if err != nil {
			return err
		}
		fmt.Printf("✅ page %d -> %s\n", index+1, path)
	}

	var stats string
	looper.Sync(func() { stats = s.Provider().CacheStats().String() })
	log.Info("rendered %d pages in %v, cache %s", len(indexes), time.Since(start), stats)
	return nil
}

// configureLogging 选择 commonlog 后端，并让包日志级别与 verbosity 一致
func configureLogging(l config.Log) {
	var path *string
	if l.File != "" {
		path = &l.File
	}
	commonlog.Configure(l.Verbosity, path)

	level := gopdf.LogLevelWarn
	switch {
	case l.Verbosity >= 2:
		level = gopdf.LogLevelDebug
	case l.Verbosity == 1:
		level = gopdf.LogLevelInfo
	case l.Verbosity <= -4:
		level = gopdf.LogLevelNone
	case l.Verbosity <= -2:
		level = gopdf.LogLevelError
	}
	gopdf.SetLogLevel(level)
}

func openDocument(ctx context.Context, s *session.Session, o options, locator string) error {
	if o.link != "" {
		if err := s.SetDriveLink(o.link); err != nil {
			return err
		}
		items, err := s.FetchList(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("📄 list has %d documents\n", len(items))
	}

	switch {
	case locator != "":
		return s.Open(ctx, locator)
	case o.next || o.link != "":
		next, err := s.OpenNext(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("📄 opened %s\n", next)
		return nil
	default:
		if err := s.Restore(ctx); err != nil {
			if errors.Is(err, session.ErrNoDocument) {
				return errors.New("no document given and none to restore")
			}
			return err
		}
		fmt.Printf("📄 restored %s\n", s.DocumentID())
		return nil
	}
}

func applySettings(s *session.Session, o options) error {
	if o.reset {
		if err := s.ResetSettings(); err != nil {
			return err
		}
	}
	if o.quality != 0 {
		if err := s.SetQuality(o.quality); err != nil {
			return err
		}
	}
	if o.maxDim != 0 {
		if err := s.SetMaxBitmapDim(o.maxDim); err != nil {
			return err
		}
	}
	return nil
}

func pageIndexes(s *session.Session, looper *viewer.Looper, spec string) ([]int, error) {
	var indexes []int
	var err error
	looper.Sync(func() {
		if strings.EqualFold(strings.TrimSpace(spec), "all") {
			for i := 0; i < s.PageCount(); i++ {
				indexes = append(indexes, i)
			}
			return
		}
		for _, part := range strings.Split(spec, ",") {
			var i int
			if i, err = s.PageIndexFor(part); err != nil {
				return
			}
			indexes = append(indexes, i)
		}
	})
	return indexes, err
}

// snapshotView 离屏页面视图
type snapshotView struct {
	w, h int
	bmp  *gopdf.Bitmap
}

func (v *snapshotView) Viewport() (int, int)      { return v.w, v.h }
func (v *snapshotView) SetBitmap(b *gopdf.Bitmap) { v.bmp = b }

// snapshot 绑定页面、等待渲染，按缩放状态合成视口并写出 PNG
func snapshot(s *session.Session, looper *viewer.Looper, o options, index, vw, vh int) (string, error) {
	view := &snapshotView{w: vw, h: vh}
	looper.Sync(func() { s.Provider().BindPage(view, index) })
	s.Provider().Wait()

	var (
		img *image.RGBA
		err error
	)
	looper.Sync(func() {
		defer s.Provider().UnbindPage(view)
		if view.bmp == nil {
			err = fmt.Errorf("%w: page %d", gopdf.ErrRender, index+1)
			return
		}
		engine := viewer.NewGestureEngine(nil)
		s.Zoom().Bind(engine, index)
		if o.zoom > 0 {
			fx, fy := float64(vw)/2, float64(vh)/2
			if o.zoomAt != "" {
				if fx, fy, err = parsePoint(o.zoomAt); err != nil {
					return
				}
			}
			engine.Pinch(o.zoom, fx, fy)
			s.Zoom().Remember(index, engine.Values())
		}

		var page *image.RGBA
		if page, err = view.bmp.Image(); err != nil {
			return
		}
		img = image.NewRGBA(image.Rect(0, 0, vw, vh))
		viewer.Compose(img, page, engine.Transform())
	})
	if err != nil {
		return "", err
	}

	path := filepath.Join(o.outDir, fmt.Sprintf("page-%03d.png", index+1))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return "", err
	}
	return path, f.Close()
}

func parseSize(s string) (int, int, error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid size %q, want WxH", s)
	}
	wi, err1 := strconv.Atoi(strings.TrimSpace(w))
	hi, err2 := strconv.Atoi(strings.TrimSpace(h))
	if err1 != nil || err2 != nil || wi <= 0 || hi <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q, want WxH", s)
	}
	return wi, hi, nil
}

func parsePoint(s string) (float64, float64, error) {
	x, y, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("invalid point %q, want X,Y", s)
	}
	xf, err1 := strconv.ParseFloat(strings.TrimSpace(x), 64)
	yf, err2 := strconv.ParseFloat(strings.TrimSpace(y), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, fmt.Errorf("invalid point %q, want X,Y", s)
	}
	return xf, yf, nil
}
