package gopdf

import (
	"fmt"
	"image"
	"sync/atomic"

	"github.com/novvoo/go-cairo/pkg/cairo"
	"golang.org/x/image/draw"
)

// BytesPerPixel ARGB8888 每像素字节数
const BytesPerPixel = 4

// Bitmap ARGB8888 像素缓冲区，底层为 Cairo ImageSurface
//
// 位图采用引用计数：NewBitmap 返回时持有一个引用，Retain 增加引用，
// Release 减少引用，最后一个引用释放时销毁 surface（恰好一次）。
// 缓存与正在显示的视图各自持有引用，因此淘汰不会释放仍在显示的像素。
type Bitmap struct {
	surface cairo.ImageSurface
	width   int
	height  int
	page    int
	refs    atomic.Int32
}

// NewBitmap 分配指定尺寸的 ARGB32 位图
func NewBitmap(width, height int) (*Bitmap, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid bitmap size %dx%d", width, height)
	}

	surface := cairo.NewImageSurface(cairo.FormatARGB32, width, height)
	if surface == nil {
		return nil, fmt.Errorf("failed to allocate %dx%d image surface", width, height)
	}
	imgSurf, ok := surface.(cairo.ImageSurface)
	if !ok {
		surface.Destroy()
		return nil, fmt.Errorf("failed to allocate %dx%d image surface", width, height)
	}

	b := &Bitmap{
		surface: imgSurf,
		width:   width,
		height:  height,
		page:    -1,
	}
	b.refs.Store(1)
	return b, nil
}

// Width 像素宽度
func (b *Bitmap) Width() int { return b.width }

// Height 像素高度
func (b *Bitmap) Height() int { return b.height }

// ByteCount 像素缓冲区字节数（width × height × 4）
func (b *Bitmap) ByteCount() int {
	return b.width * b.height * BytesPerPixel
}

// Page 生成该位图的页码，未渲染时为 -1
func (b *Bitmap) Page() int { return b.page }

// SetPage 标记生成该位图的页码
func (b *Bitmap) SetPage(index int) { b.page = index }

// Retain 增加一个引用；位图已释放时返回 false
func (b *Bitmap) Retain() bool {
	for {
		n := b.refs.Load()
		if n <= 0 {
			return false
		}
		if b.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release 释放一个引用，最后一个引用释放时销毁像素缓冲区
func (b *Bitmap) Release() {
	for {
		n := b.refs.Load()
		if n <= 0 {
			return
		}
		if b.refs.CompareAndSwap(n, n-1) {
			if n == 1 {
				b.surface.Destroy()
				Debug("released %dx%d bitmap of page %d", b.width, b.height, b.page)
			}
			return
		}
	}
}

// IsRecycled 像素缓冲区是否已销毁
func (b *Bitmap) IsRecycled() bool {
	return b.refs.Load() <= 0
}

// RefCount 当前引用数
func (b *Bitmap) RefCount() int {
	return int(b.refs.Load())
}

// newContext 在位图上创建绘制上下文
func (b *Bitmap) newContext() (cairo.Context, error) {
	if b.IsRecycled() {
		return nil, ErrBitmapReleased
	}
	return cairo.NewContext(b.surface), nil
}

// Erase 用不透明颜色填充整个位图
func (b *Bitmap) Erase(r, g, bl float64) error {
	ctx, err := b.newContext()
	if err != nil {
		return err
	}
	defer ctx.Destroy()

	ctx.SetSourceRGB(r, g, bl)
	ctx.Paint()
	return nil
}

// Image 复制位图像素为 image.RGBA
// Cairo 的光栅后端直接绘制到 surface 持有的 Go 图像上，两者都是预乘 alpha 格式。
func (b *Bitmap) Image() (*image.RGBA, error) {
	if b.IsRecycled() {
		return nil, ErrBitmapReleased
	}

	img := image.NewRGBA(image.Rect(0, 0, b.width, b.height))
	src, ok := b.surface.GetGoImage().(*image.RGBA)
	if !ok || src == nil {
		return nil, fmt.Errorf("bitmap surface has no RGBA backing image")
	}
	draw.Draw(img, img.Bounds(), src, src.Bounds().Min, draw.Src)
	return img, nil
}

// String 调试输出
func (b *Bitmap) String() string {
	return fmt.Sprintf("Bitmap(page=%d %dx%d refs=%d)", b.page, b.width, b.height, b.refs.Load())
}
