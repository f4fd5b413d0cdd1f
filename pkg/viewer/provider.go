package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/novvoo/go-pdf-reader/pkg/cache"
	"github.com/novvoo/go-pdf-reader/pkg/gopdf"
)

// PageView 显示页面位图的视图（由视图层持有，Provider 只借用）
type PageView interface {
	// Viewport 视图尺寸（像素），尚未布局时返回非正值
	Viewport() (w, h int)
	// SetBitmap 显示位图，nil 表示清空；视图不拥有位图，调用返回后不得再使用旧位图
	SetBitmap(b *gopdf.Bitmap)
}

// ProviderOptions Provider 构造参数
type ProviderOptions struct {
	Quality       Quality
	CacheBudgetKB int // <= 0 时使用 DefaultCacheBudgetKB
	Display       DisplayMetrics
	Executor      Executor
	Observer      GateObserver
	Logger        *gopdf.Logger
}

// Provider 按页码提供渲染好的位图：缓存查找、经 RenderGate 渲染、写入缓存、预取相邻页
//
// BindPage、UnbindPage、Prefetch、SetQualityAndLimit 与 Close 只能在 Executor 上调用；
// 渲染在后台 goroutine 中进行，结果回到 Executor 上应用。
type Provider struct {
	doc     Document
	gate    *RenderGate
	cache   *cache.Weighted[int, *gopdf.Bitmap]
	exec    Executor
	display DisplayMetrics
	log     *gopdf.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	quality    Quality
	generation uint64

	// 以下字段只在 Executor 上访问
	closed   bool
	bound    map[PageView]int
	shown    map[PageView]*gopdf.Bitmap
	inflight map[int]uint64 // 预取中的页码 -> 配置代数

	renders sync.WaitGroup // 后台渲染 goroutine
	pending sync.WaitGroup // 后台渲染及其回到 Executor 的结果处理
}

// NewProvider 创建 Provider，doc 由 Provider 独占使用
func NewProvider(doc Document, opts ProviderOptions) (*Provider, error) {
	if doc == nil {
		return nil, errors.New("nil document")
	}
	if opts.Executor == nil {
		return nil, errors.New("nil executor")
	}
	if opts.Quality == (Quality{}) {
		opts.Quality = DefaultQuality()
	}
	if err := opts.Quality.Validate(); err != nil {
		return nil, err
	}
	if opts.CacheBudgetKB <= 0 {
		opts.CacheBudgetKB = DefaultCacheBudgetKB()
	}
	if opts.Display.WidthPixels <= 0 || opts.Display.HeightPixels <= 0 {
		opts.Display = DefaultDisplay
	}
	if opts.Logger == nil {
		opts.Logger = gopdf.GetLogger().Named("viewer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Provider{
		doc:      doc,
		gate:     NewRenderGate(doc, opts.Observer, opts.Logger),
		exec:     opts.Executor,
		display:  opts.Display,
		log:      opts.Logger,
		ctx:      ctx,
		cancel:   cancel,
		quality:  opts.Quality,
		bound:    make(map[PageView]int),
		shown:    make(map[PageView]*gopdf.Bitmap),
		inflight: make(map[int]uint64),
	}
	p.cache = cache.NewWeighted[int, *gopdf.Bitmap](opts.CacheBudgetKB, bitmapWeightKB, p.onEvicted)
	return p, nil
}

// bitmapWeightKB 缓存权重：像素缓冲区字节数（KB，向上取整）
func bitmapWeightKB(_ int, b *gopdf.Bitmap) int {
	return (b.ByteCount() + 1023) / 1024
}

func (p *Provider) onEvicted(index int, b *gopdf.Bitmap) {
	p.log.Debug("evict page %d (%dx%d)", index, b.Width(), b.Height())
	b.Release()
}

// PageCount 文档页数
func (p *Provider) PageCount() int {
	return p.doc.PageCount()
}

// Quality 当前质量配置
func (p *Provider) Quality() Quality {
	q, _ := p.config()
	return q
}

// CacheStats 位图缓存统计
func (p *Provider) CacheStats() cache.Stats {
	return p.cache.Stats()
}

// CacheSizeKB 缓存当前占用（KB）
func (p *Provider) CacheSizeKB() int {
	return p.cache.Size()
}

// Cached 页面是否在缓存中（不影响最近使用顺序）
func (p *Provider) Cached(index int) bool {
	return p.cache.Contains(index)
}

// BoundIndex 视图当前绑定的页码
func (p *Provider) BoundIndex(view PageView) (int, bool) {
	index, ok := p.bound[view]
	return index, ok
}

func (p *Provider) config() (Quality, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quality, p.generation
}

// BindPage 将视图绑定到页码并显示对应位图
// 缓存命中时立即显示；否则先清空显示，后台渲染完成后若视图仍绑定该页才显示。
func (p *Provider) BindPage(view PageView, index int) {
	if p.closed {
		return
	}
	if index < 0 || index >= p.doc.PageCount() {
		p.log.Warn("bind page %d out of range [0, %d)", index, p.doc.PageCount())
		p.bound[view] = index
		p.show(view, nil)
		return
	}
	p.bound[view] = index

	if bmp, ok := p.cache.Get(index); ok && !bmp.IsRecycled() {
		p.show(view, bmp)
		p.Prefetch(index)
		return
	}

	p.show(view, nil)
	vw, vh := view.Viewport()
	p.renderAsync(index, vw, vh, func(bmp *gopdf.Bitmap, gen uint64) {
		p.deliverForeground(view, index, bmp, gen)
	}, func(err error) {
		if !p.cancelled(err) {
			p.log.Warn("page %d left blank: %v", index, err)
		}
	})
}

// UnbindPage 视图被回收：丢弃其显示的位图与绑定
func (p *Provider) UnbindPage(view PageView) {
	if _, ok := p.bound[view]; !ok {
		return
	}
	delete(p.bound, view)
	p.show(view, nil)
	delete(p.shown, view)
}

// Prefetch 预取 index 的相邻页
func (p *Provider) Prefetch(index int) {
	if p.closed {
		return
	}
	_, gen := p.config()
	for _, n := range [2]int{index - 1, index + 1} {
		if n < 0 || n >= p.doc.PageCount() {
			continue
		}
		if p.cache.Contains(n) {
			continue
		}
		if g, ok := p.inflight[n]; ok && g == gen {
			continue
		}
		p.inflight[n] = gen

		n := n
		p.renderAsync(n, 0, 0, func(bmp *gopdf.Bitmap, g uint64) {
			p.deliverPrefetch(n, bmp, g)
		}, func(err error) {
			if p.inflight[n] == gen {
				delete(p.inflight, n)
			}
			if !p.cancelled(err) {
				p.log.Debug("prefetch page %d failed: %v", n, err)
			}
		})
	}
}

// SetQualityAndLimit 更新质量配置，清空缓存并重新渲染所有已绑定视图
func (p *Provider) SetQualityAndLimit(multiplier float64, maxDim int) error {
	q := Quality{Multiplier: multiplier, MaxBitmapDim: maxDim}
	if err := q.Validate(); err != nil {
		return err
	}
	if p.closed {
		return gopdf.ErrClosed
	}

	p.mu.Lock()
	p.quality = q
	p.generation++
	p.mu.Unlock()

	p.cache.EvictAll()
	p.log.Info("quality set to %.2f, max dimension %d", multiplier, maxDim)

	views := make(map[PageView]int, len(p.bound))
	for view, index := range p.bound {
		views[view] = index
	}
	for view, index := range views {
		p.BindPage(view, index)
	}
	return nil
}

// Close 取消所有后台工作，等待临界区内的渲染结束，释放显示与缓存的位图；可重复调用
func (p *Provider) Close() {
	if p.closed {
		return
	}
	p.closed = true
	p.cancel()
	p.renders.Wait()

	for view, bmp := range p.shown {
		view.SetBitmap(nil)
		if bmp != nil {
			bmp.Release()
		}
	}
	p.shown = make(map[PageView]*gopdf.Bitmap)
	p.bound = make(map[PageView]int)
	p.inflight = make(map[int]uint64)
	p.cache.EvictAll()
	p.log.Debug("provider closed")
}

// Wait 阻塞直到没有待处理的后台渲染与结果处理；不能在 Executor 上调用
func (p *Provider) Wait() {
	p.pending.Wait()
}

// cancelled 失败是否源于 Close
func (p *Provider) cancelled(err error) bool {
	return p.closed || errors.Is(err, context.Canceled)
}

// show 视图显示 bmp（可为 nil），持有新位图的引用并释放旧位图的引用
func (p *Provider) show(view PageView, bmp *gopdf.Bitmap) {
	if bmp != nil && !bmp.Retain() {
		bmp = nil
	}
	old := p.shown[view]
	p.shown[view] = bmp
	view.SetBitmap(bmp)
	if old != nil {
		old.Release()
	}
}

// renderAsync 在后台渲染，成功结果（持有一个引用）回到 Executor 交给 deliver
func (p *Provider) renderAsync(index, viewW, viewH int, deliver func(*gopdf.Bitmap, uint64), fail func(error)) {
	q, gen := p.config()
	target := func(pageW, pageH float64) (int, int) {
		return TargetSize(pageW, pageH, viewW, viewH, q.Multiplier, q.MaxBitmapDim, p.display)
	}

	p.renders.Add(1)
	p.pending.Add(1)
	go func() {
		defer p.renders.Done()

		bmp, err := p.gate.RenderPage(p.ctx, index, target)
		posted := p.exec.Post(func() {
			defer p.pending.Done()
			if err != nil {
				fail(err)
				return
			}
			if p.closed {
				bmp.Release()
				return
			}
			deliver(bmp, gen)
		})
		if !posted {
			if bmp != nil {
				bmp.Release()
			}
			p.pending.Done()
		}
	}()
}

// deliverForeground 前台渲染结果：总是覆盖缓存，视图仍绑定该页时显示
func (p *Provider) deliverForeground(view PageView, index int, bmp *gopdf.Bitmap, gen uint64) {
	if _, cur := p.config(); gen != cur {
		p.log.Debug("discard page %d rendered under stale settings", index)
		bmp.Release()
		return
	}

	if bound, ok := p.bound[view]; ok && bound == index {
		p.show(view, bmp)
	} else {
		p.log.Debug("view rebound while page %d was rendering", index)
	}

	// 缓存接管本次渲染的引用；超出预算的位图不缓存
	if !p.cache.Put(index, bmp) {
		p.log.Warn("page %d bitmap %dx%d exceeds cache budget", index, bmp.Width(), bmp.Height())
		bmp.Release()
	}
	p.Prefetch(index)
}

// deliverPrefetch 预取结果：只填补缓存空缺，已有前台结果时丢弃
func (p *Provider) deliverPrefetch(index int, bmp *gopdf.Bitmap, gen uint64) {
	if p.inflight[index] == gen {
		delete(p.inflight, index)
	}
	if _, cur := p.config(); gen != cur {
		bmp.Release()
		return
	}
	if !p.cache.PutIfAbsent(index, bmp) {
		bmp.Release()
	}
}

// String 调试输出
func (p *Provider) String() string {
	q, gen := p.config()
	return fmt.Sprintf("Provider(pages=%d quality=%.2f max=%d gen=%d cache=%dKB/%dKB)",
		p.doc.PageCount(), q.Multiplier, q.MaxBitmapDim, gen, p.cache.Size(), p.cache.MaxSize())
}
