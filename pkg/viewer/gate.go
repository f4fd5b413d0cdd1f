package viewer

import (
	"context"
	"fmt"

	"github.com/novvoo/go-pdf-reader/pkg/gopdf"
)

// TargetFunc 由页面固有尺寸计算位图尺寸
type TargetFunc func(pageW, pageH float64) (int, int)

// GateObserver 观察临界区的进入与退出
type GateObserver interface {
	Enter(index int)
	Exit(index int)
}

// RenderGate 串行化所有对文档渲染资源的访问
// 打开页面、分配位图、渲染、关闭页面整体位于同一个单槽信号量之内，
// 前台渲染与预取共用。只能在后台 goroutine 中调用。
type RenderGate struct {
	doc      Document
	sem      chan struct{}
	observer GateObserver
	log      *gopdf.Logger
}

// NewRenderGate 创建渲染闸门；observer 可为 nil
func NewRenderGate(doc Document, observer GateObserver, log *gopdf.Logger) *RenderGate {
	if log == nil {
		log = gopdf.GetLogger().Named("gate")
	}
	return &RenderGate{
		doc:      doc,
		sem:      make(chan struct{}, 1),
		observer: observer,
		log:      log,
	}
}

// RenderPage 渲染一页并返回持有一个引用的位图
// ctx 取消时不会进入临界区；已进入的渲染不会被中断，完成后若已取消则释放结果。
func (g *RenderGate) RenderPage(ctx context.Context, index int, target TargetFunc) (*gopdf.Bitmap, error) {
	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-g.sem }()

	if g.observer != nil {
		g.observer.Enter(index)
		defer g.observer.Exit(index)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bmp, err := g.render(index, target)
	if err != nil {
		g.log.Warn("render page %d: %v", index, err)
		return nil, fmt.Errorf("%w: page %d: %w", gopdf.ErrRender, index, err)
	}

	if err := ctx.Err(); err != nil {
		bmp.Release()
		return nil, err
	}
	return bmp, nil
}

func (g *RenderGate) render(index int, target TargetFunc) (bmp *gopdf.Bitmap, err error) {
	page, err := g.doc.OpenPage(index)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := page.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil && bmp != nil {
			bmp.Release()
			bmp = nil
		}
	}()

	w, h := target(page.Width(), page.Height())
	bmp, err = gopdf.NewBitmap(w, h)
	if err != nil {
		return nil, err
	}
	if err = page.Render(bmp); err != nil {
		return bmp, err
	}
	bmp.SetPage(index)
	g.log.Debug("rendered page %d at %dx%d", index, w, h)
	return bmp, nil
}
