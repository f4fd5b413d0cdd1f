package gopdf

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// 缺省页面尺寸（US Letter，点）
const (
	DefaultPageWidth  = 612.0
	DefaultPageHeight = 792.0
)

// PageInfo 页面几何信息
// Width/Height 为应用 Rotate 之后的显示尺寸（点）
type PageInfo struct {
	Width  float64
	Height float64
	Rotate int

	box types.Rectangle // CropBox，缺省为 MediaBox
}

// Document 已打开的 PDF 文档
// 同一时刻最多只有一个页面处于打开状态。
type Document struct {
	mu       sync.Mutex
	source   string
	ctx      *model.Context
	pages    []PageInfo
	openPage *Page
	closer   io.Closer
	closed   bool
}

// OpenDocument 打开本地 PDF 文件
func OpenDocument(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	doc, err := ReadDocument(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	doc.closer = f
	return doc, nil
}

// ReadDocument 从 ReadSeeker 读取 PDF 文档，source 仅用于日志
func ReadDocument(rs io.ReadSeeker, source string) (*Document, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(rs, conf)
	if err != nil {
		Warn("failed to read %s: %v", source, err)
		return nil, fmt.Errorf("%w: %s: %v", ErrOpen, source, err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		Warn("failed to validate %s: %v", source, err)
		return nil, fmt.Errorf("%w: %s: %v", ErrOpen, source, err)
	}
	if ctx.PageCount <= 0 {
		return nil, fmt.Errorf("%w: %s: document has no pages", ErrOpen, source)
	}

	doc := &Document{
		source: source,
		ctx:    ctx,
		pages:  make([]PageInfo, ctx.PageCount),
	}
	for i := range doc.pages {
		info, err := doc.loadPageInfo(i + 1)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: page %d: %v", ErrOpen, source, i+1, err)
		}
		doc.pages[i] = info
	}

	Info("opened %s: %d pages", source, len(doc.pages))
	return doc, nil
}

// loadPageInfo 读取页面几何，pageNr 从 1 开始
func (d *Document) loadPageInfo(pageNr int) (PageInfo, error) {
	pageDict, _, inh, err := d.ctx.PageDict(pageNr, false)
	if err != nil {
		return PageInfo{}, err
	}
	if pageDict == nil {
		return PageInfo{}, fmt.Errorf("missing page dict")
	}

	box := types.Rectangle{
		LL: types.Point{X: 0, Y: 0},
		UR: types.Point{X: DefaultPageWidth, Y: DefaultPageHeight},
	}
	rotate := 0

	if r, ok := d.rectEntry(pageDict, "CropBox"); ok {
		box = r
	} else if r, ok := d.rectEntry(pageDict, "MediaBox"); ok {
		box = r
	} else if inh != nil && inh.CropBox != nil {
		box = *inh.CropBox
	} else if inh != nil && inh.MediaBox != nil {
		box = *inh.MediaBox
	}

	if obj, found := pageDict.Find("Rotate"); found {
		if n, ok := d.number(obj); ok {
			rotate = int(n)
		}
	} else if inh != nil {
		rotate = inh.Rotate
	}
	rotate = normalizeRotation(rotate)

	w := box.UR.X - box.LL.X
	h := box.UR.Y - box.LL.Y
	if w < 0 {
		w = -w
	}
	if h < 0 {
		h = -h
	}
	if w == 0 || h == 0 {
		w, h = DefaultPageWidth, DefaultPageHeight
		box = types.Rectangle{UR: types.Point{X: w, Y: h}}
	}

	info := PageInfo{Width: w, Height: h, Rotate: rotate, box: box}
	if rotate == 90 || rotate == 270 {
		info.Width, info.Height = h, w
	}
	return info, nil
}

// rectEntry 读取页面字典中的矩形条目
func (d *Document) rectEntry(dict types.Dict, key string) (types.Rectangle, bool) {
	obj, found := dict.Find(key)
	if !found {
		return types.Rectangle{}, false
	}
	obj, err := d.ctx.Dereference(obj)
	if err != nil {
		return types.Rectangle{}, false
	}
	arr, ok := obj.(types.Array)
	if !ok || len(arr) != 4 {
		return types.Rectangle{}, false
	}
	var v [4]float64
	for i, item := range arr {
		n, ok := d.number(item)
		if !ok {
			return types.Rectangle{}, false
		}
		v[i] = n
	}
	llx, lly, urx, ury := v[0], v[1], v[2], v[3]
	if llx > urx {
		llx, urx = urx, llx
	}
	if lly > ury {
		lly, ury = ury, lly
	}
	return types.Rectangle{
		LL: types.Point{X: llx, Y: lly},
		UR: types.Point{X: urx, Y: ury},
	}, true
}

// number 从 PDF 对象获取数值（整数或浮点数）
func (d *Document) number(obj types.Object) (float64, bool) {
	if ref, ok := obj.(types.IndirectRef); ok {
		deref, err := d.ctx.Dereference(ref)
		if err != nil {
			return 0, false
		}
		obj = deref
	}
	switch v := obj.(type) {
	case types.Integer:
		return float64(v), true
	case types.Float:
		return float64(v), true
	}
	return 0, false
}

func normalizeRotation(r int) int {
	r %= 360
	if r < 0 {
		r += 360
	}
	// 非 90 倍数的旋转值无效
	if r%90 != 0 {
		return 0
	}
	return r
}

// Source 文档来源（路径或标识）
func (d *Document) Source() string { return d.source }

// PageCount 页数
func (d *Document) PageCount() int {
	return len(d.pages)
}

// PageInfo 返回页面几何，index 从 0 开始
func (d *Document) PageInfo(index int) (PageInfo, error) {
	if index < 0 || index >= len(d.pages) {
		return PageInfo{}, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, index, len(d.pages))
	}
	return d.pages[index], nil
}

// OpenPage 打开页面，index 从 0 开始
// 上一个页面未关闭时返回 ErrPageAlreadyOpen。
func (d *Document) OpenPage(index int) (*Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	if index < 0 || index >= len(d.pages) {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, index, len(d.pages))
	}
	if d.openPage != nil {
		return nil, fmt.Errorf("%w: page %d", ErrPageAlreadyOpen, d.openPage.index)
	}

	p := &Page{doc: d, index: index, info: d.pages[index]}
	d.openPage = p
	return p, nil
}

// Close 关闭文档，可重复调用
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	if d.openPage != nil {
		d.openPage.closed = true
		d.openPage = nil
	}
	d.ctx = nil

	var err error
	if d.closer != nil {
		err = d.closer.Close()
	}
	Debug("closed %s", d.source)
	return err
}

// Page 已打开的页面
type Page struct {
	doc    *Document
	index  int
	info   PageInfo
	closed bool
}

// Index 页码（从 0 开始）
func (p *Page) Index() int { return p.index }

// Width 显示宽度（点）
func (p *Page) Width() float64 { return p.info.Width }

// Height 显示高度（点）
func (p *Page) Height() float64 { return p.info.Height }

// Close 关闭页面，可重复调用
func (p *Page) Close() error {
	p.doc.mu.Lock()
	defer p.doc.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	if p.doc.openPage == p {
		p.doc.openPage = nil
	}
	return nil
}
