package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/novvoo/go-pdf-reader/pkg/gopdf"
	"github.com/novvoo/go-pdf-reader/pkg/prefs"
	"github.com/novvoo/go-pdf-reader/pkg/remote"
	"github.com/novvoo/go-pdf-reader/pkg/viewer"
)

var (
	// ErrNoDocument 当前没有打开的文档
	ErrNoDocument = errors.New("no document open")
	// ErrListEmpty 文档列表为空或已全部打开
	ErrListEmpty = errors.New("document list empty")
	// ErrNoDriveLink 未设置列表链接
	ErrNoDriveLink = errors.New("drive link not set")
	// ErrInvalidPage 页码输入无效
	ErrInvalidPage = errors.New("invalid page number")
)

// Options 会话依赖
type Options struct {
	Prefs         *prefs.Prefs
	Opener        Opener
	Remote        *remote.Client
	Executor      viewer.Executor
	Display       viewer.DisplayMetrics
	CacheBudgetKB int
	Observer      viewer.GateObserver
	Logger        *gopdf.Logger
}

// Session 阅读会话：独占当前文档与 Provider，管理设置与远程列表
//
// 与 Provider 相同，所有方法只能在 Executor 上调用。
type Session struct {
	opts Options
	log  *gopdf.Logger

	doc      Document
	docID    string
	provider *viewer.Provider
	zoom     *viewer.ZoomMemory
}

// New 创建会话
func New(opts Options) (*Session, error) {
	if opts.Prefs == nil {
		return nil, errors.New("nil prefs")
	}
	if opts.Executor == nil {
		return nil, errors.New("nil executor")
	}
	if opts.Remote == nil {
		opts.Remote = remote.NewClient()
	}
	if opts.Opener == nil {
		opts.Opener = PDFOpener{Client: opts.Remote, DownloadDir: remote.DefaultDownloadDir()}
	}
	if opts.Logger == nil {
		opts.Logger = gopdf.GetLogger().Named("session")
	}
	return &Session{opts: opts, log: opts.Logger}, nil
}

// quality 持久化的质量设置，损坏的值回退为默认
func (s *Session) quality() viewer.Quality {
	q := viewer.DefaultQuality()
	m, err := s.opts.Prefs.Quality(q.Multiplier)
	if err != nil {
		s.log.Warn("quality setting: %v", err)
	}
	d, err := s.opts.Prefs.MaxBitmapDim(q.MaxBitmapDim)
	if err != nil {
		s.log.Warn("max bitmap dimension setting: %v", err)
	}
	stored := viewer.Quality{Multiplier: m, MaxBitmapDim: d}
	if err := stored.Validate(); err != nil {
		s.log.Warn("ignoring stored settings: %v", err)
		return q
	}
	return stored
}

// teardown 关闭当前 Provider 与文档（各关闭一次）
func (s *Session) teardown() {
	if s.provider != nil {
		s.provider.Close()
		s.provider = nil
	}
	if s.doc != nil {
		if err := s.doc.Close(); err != nil {
			s.log.Warn("close %s: %v", s.docID, err)
		}
		s.doc = nil
	}
	s.zoom = nil
	s.docID = ""
}

// Open 关闭当前文档后打开 locator；失败时不保留任何文档
func (s *Session) Open(ctx context.Context, locator string) error {
	locator = strings.TrimSpace(locator)
	s.teardown()

	doc, err := s.opts.Opener.Open(ctx, locator)
	if err != nil {
		s.log.Error("open %s: %v", locator, err)
		if errors.Is(err, gopdf.ErrOpen) {
			return err
		}
		return fmt.Errorf("%w: %s: %w", gopdf.ErrOpen, locator, err)
	}

	provider, err := viewer.NewProvider(doc, viewer.ProviderOptions{
		Quality:       s.quality(),
		CacheBudgetKB: s.opts.CacheBudgetKB,
		Display:       s.opts.Display,
		Executor:      s.opts.Executor,
		Observer:      s.opts.Observer,
		Logger:        s.log.Named("viewer"),
	})
	if err != nil {
		doc.Close()
		return err
	}

	s.doc = doc
	s.docID = locator
	s.provider = provider
	s.zoom = viewer.NewZoomMemory(s.opts.Prefs.Transforms(locator), s.log.Named("zoom"))
	if err := s.opts.Prefs.SetLastDocument(locator); err != nil {
		s.log.Warn("remember last document: %v", err)
	}
	s.log.Info("opened %s (%d pages)", locator, doc.PageCount())
	return nil
}

// Restore 重新打开上次的文档；没有记录时返回 ErrNoDocument
func (s *Session) Restore(ctx context.Context) error {
	loc, ok, err := s.opts.Prefs.LastDocument()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoDocument
	}
	return s.Open(ctx, loc)
}

// ForgetLastDocument 清除上次文档记录
func (s *Session) ForgetLastDocument() error {
	return s.opts.Prefs.SetLastDocument("")
}

// SetQuality 保存质量倍数并应用到当前 Provider
func (s *Session) SetQuality(multiplier float64) error {
	q := s.quality()
	q.Multiplier = multiplier
	if err := q.Validate(); err != nil {
		return err
	}
	if err := s.opts.Prefs.SetQuality(multiplier); err != nil {
		return err
	}
	return s.apply(q)
}

// SetMaxBitmapDim 保存位图最大边长并应用到当前 Provider
func (s *Session) SetMaxBitmapDim(maxDim int) error {
	q := s.quality()
	q.MaxBitmapDim = maxDim
	if err := q.Validate(); err != nil {
		return err
	}
	if err := s.opts.Prefs.SetMaxBitmapDim(maxDim); err != nil {
		return err
	}
	return s.apply(q)
}

// ResetSettings 恢复默认质量设置并清除当前文档的缩放记录
func (s *Session) ResetSettings() error {
	if err := s.opts.Prefs.ResetSettings(); err != nil {
		return err
	}
	if s.docID != "" {
		if err := s.opts.Prefs.ClearAllZoomForDoc(s.docID); err != nil {
			return err
		}
		s.zoom.Forget()
	}
	return s.apply(viewer.DefaultQuality())
}

func (s *Session) apply(q viewer.Quality) error {
	if s.provider == nil {
		return nil
	}
	return s.provider.SetQualityAndLimit(q.Multiplier, q.MaxBitmapDim)
}

// PageIndexFor 将用户输入的页码（从 1 开始）转换为页索引
func (s *Session) PageIndexFor(input string) (int, error) {
	if s.doc == nil {
		return 0, ErrNoDocument
	}
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPage, input)
	}
	total := s.doc.PageCount()
	if n < 1 || n > total {
		return 0, fmt.Errorf("%w: %d not in 1..%d", ErrInvalidPage, n, total)
	}
	return n - 1, nil
}

// SetDriveLink 保存文档列表链接
func (s *Session) SetDriveLink(link string) error {
	return s.opts.Prefs.SetDriveLink(link)
}

// FetchList 下载文档列表并保存，列表位置归零
func (s *Session) FetchList(ctx context.Context) ([]string, error) {
	link, err := s.opts.Prefs.DriveLink()
	if err != nil {
		return nil, err
	}
	if link == "" {
		return nil, ErrNoDriveLink
	}
	items, err := s.opts.Remote.FetchList(ctx, link)
	if err != nil {
		return nil, err
	}
	if err := s.opts.Prefs.SetList(items); err != nil {
		return nil, err
	}
	if err := s.opts.Prefs.SetListIndex(0); err != nil {
		return nil, err
	}
	return items, nil
}

// OpenNext 打开列表中的下一个文档；打开成功后列表位置才前进
func (s *Session) OpenNext(ctx context.Context) (string, error) {
	items, err := s.opts.Prefs.List()
	if err != nil {
		return "", err
	}
	idx, err := s.opts.Prefs.ListIndex()
	if err != nil {
		s.log.Warn("list index: %v", err)
		idx = 0
	}
	if len(items) == 0 || idx >= len(items) {
		return "", ErrListEmpty
	}

	next := items[idx]
	if err := s.Open(ctx, next); err != nil {
		return "", err
	}
	if err := s.opts.Prefs.SetListIndex(min(idx+1, len(items))); err != nil {
		s.log.Warn("advance list: %v", err)
	}
	return next, nil
}

// Provider 当前文档的 Provider；没有文档时为 nil
func (s *Session) Provider() *viewer.Provider { return s.provider }

// Zoom 当前文档的缩放记忆；没有文档时为 nil
func (s *Session) Zoom() *viewer.ZoomMemory { return s.zoom }

// DocumentID 当前文档标识（打开时的位置）
func (s *Session) DocumentID() string { return s.docID }

// PageCount 当前文档页数
func (s *Session) PageCount() int {
	if s.doc == nil {
		return 0
	}
	return s.doc.PageCount()
}

// Close 关闭当前文档；偏好存储由调用方关闭
func (s *Session) Close() {
	s.teardown()
}
