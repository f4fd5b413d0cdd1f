package viewer

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/novvoo/go-pdf-reader/pkg/gopdf"
)

var errCorruptPage = errors.New("corrupt page")

// fakeDocument 记录打开与渲染次数；同一时刻只允许打开一个页面
type fakeDocument struct {
	mu      sync.Mutex
	sizes   [][2]float64
	open    int
	renders map[int]int
	fail    map[int]bool
	block   map[int]chan struct{}
	overlap atomic.Bool
	delay   time.Duration
	output  []*gopdf.Bitmap
}

func newFakeDocument(pages int) *fakeDocument {
	d := &fakeDocument{
		open:    -1,
		renders: make(map[int]int),
		fail:    make(map[int]bool),
		block:   make(map[int]chan struct{}),
	}
	for i := 0; i < pages; i++ {
		d.sizes = append(d.sizes, [2]float64{100, 100})
	}
	return d
}

func (d *fakeDocument) PageCount() int { return len(d.sizes) }

func (d *fakeDocument) OpenPage(index int) (Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open >= 0 {
		d.overlap.Store(true)
		return nil, gopdf.ErrPageAlreadyOpen
	}
	if index < 0 || index >= len(d.sizes) {
		return nil, gopdf.ErrPageOutOfRange
	}
	d.open = index
	return &fakePage{doc: d, index: index}, nil
}

func (d *fakeDocument) setFail(index int, fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail[index] = fail
}

// blockPage 使页面渲染阻塞直到返回的函数被调用
func (d *fakeDocument) blockPage(index int) func() {
	ch := make(chan struct{})
	d.mu.Lock()
	d.block[index] = ch
	d.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (d *fakeDocument) renderCount(index int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.renders[index]
}

func (d *fakeDocument) rendered() []*gopdf.Bitmap {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*gopdf.Bitmap(nil), d.output...)
}

type fakePage struct {
	doc   *fakeDocument
	index int
}

func (p *fakePage) Width() float64  { return p.doc.sizes[p.index][0] }
func (p *fakePage) Height() float64 { return p.doc.sizes[p.index][1] }

func (p *fakePage) Render(dst *gopdf.Bitmap) error {
	d := p.doc
	d.mu.Lock()
	d.renders[p.index]++
	fail := d.fail[p.index]
	block := d.block[p.index]
	delay := d.delay
	d.mu.Unlock()

	if block != nil {
		<-block
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if fail {
		return fmt.Errorf("%w %d", errCorruptPage, p.index)
	}

	d.mu.Lock()
	d.output = append(d.output, dst)
	d.mu.Unlock()
	return nil
}

func (p *fakePage) Close() error {
	p.doc.mu.Lock()
	defer p.doc.mu.Unlock()
	if p.doc.open == p.index {
		p.doc.open = -1
	}
	return nil
}

// fakeView 记录显示过的位图
type fakeView struct {
	mu      sync.Mutex
	w, h    int
	current *gopdf.Bitmap
	history []int // 显示过的页码，nil 记为 -1
}

func newFakeView(w, h int) *fakeView {
	return &fakeView{w: w, h: h}
}

func (v *fakeView) Viewport() (int, int) { return v.w, v.h }

func (v *fakeView) SetBitmap(b *gopdf.Bitmap) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.current = b
	if b == nil {
		v.history = append(v.history, -1)
	} else {
		v.history = append(v.history, b.Page())
	}
}

func (v *fakeView) bitmap() *gopdf.Bitmap {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

func (v *fakeView) shownPages() []int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]int(nil), v.history...)
}

// recordingObserver 记录临界区进入与退出并检测重叠
type recordingObserver struct {
	mu      sync.Mutex
	inside  int
	overlap bool
	events  []string
}

func (o *recordingObserver) Enter(index int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inside++
	if o.inside > 1 {
		o.overlap = true
	}
	o.events = append(o.events, fmt.Sprintf("enter %d", index))
}

func (o *recordingObserver) Exit(index int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inside--
	o.events = append(o.events, fmt.Sprintf("exit %d", index))
}

// testProvider 创建运行在独立 Looper 上的 Provider
func testProvider(t *testing.T, doc Document, budgetKB int) (*Provider, *Looper) {
	t.Helper()
	looper := NewLooper().Start()
	p, err := NewProvider(doc, ProviderOptions{
		Quality:       Quality{Multiplier: 1, MaxBitmapDim: 1000},
		CacheBudgetKB: budgetKB,
		Display:       DisplayMetrics{WidthPixels: 200, HeightPixels: 300},
		Executor:      looper,
	})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	t.Cleanup(func() {
		looper.Sync(p.Close)
		looper.Close()
	})
	return p, looper
}
