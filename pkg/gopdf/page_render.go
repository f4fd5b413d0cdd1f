package gopdf

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Render 将页面渲染到位图：白色背景，内容按比例拉伸填满位图
func (p *Page) Render(dst *Bitmap) error {
	if dst == nil {
		return fmt.Errorf("nil bitmap")
	}

	p.doc.mu.Lock()
	closed := p.closed || p.doc.closed
	ctx := p.doc.ctx
	p.doc.mu.Unlock()
	if closed {
		return ErrClosed
	}

	if err := dst.Erase(1, 1, 1); err != nil {
		return err
	}

	content, err := pageContent(ctx, p.index+1)
	if err != nil {
		return err
	}
	dst.SetPage(p.index)
	if len(content) == 0 {
		return nil
	}

	operators, err := ParseContentStream(content)
	if err != nil {
		return fmt.Errorf("failed to parse content stream: %w", err)
	}

	cr, err := dst.newContext()
	if err != nil {
		return err
	}
	defer cr.Destroy()

	base := PageMatrix(p.info, dst.Width(), dst.Height())
	renderCtx := NewRenderContext(cr, base)

	// 页面框之外的内容不可见
	clip := NewPath()
	clip.Rectangle(base, p.info.box.LL.X, p.info.box.LL.Y,
		p.info.box.UR.X-p.info.box.LL.X, p.info.box.UR.Y-p.info.box.LL.Y)
	clip.buildCairoPath(cr)
	cr.Clip()
	cr.NewPath()

	executed, failed := 0, 0
	for _, op := range operators {
		if _, ignored := op.(*OpIgnore); ignored {
			continue
		}
		executed++
		if err := op.Execute(renderCtx); err != nil {
			// 继续执行，不中断渲染
			failed++
			Debug("page %d: operator %s failed: %v", p.index, op.Name(), err)
		}
	}
	Debug("page %d: executed %d operators (%d failed) into %dx%d",
		p.index, executed, failed, dst.Width(), dst.Height())
	return nil
}

// PageMatrix 计算用户空间到位图设备空间的初始 CTM
// 先按 Rotate 把页面框映射到左上原点、Y 向下的显示坐标，再缩放到位图尺寸。
func PageMatrix(info PageInfo, bw, bh int) *Matrix {
	llx, lly := info.box.LL.X, info.box.LL.Y
	w := info.box.UR.X - info.box.LL.X
	h := info.box.UR.Y - info.box.LL.Y

	var m *Matrix
	switch info.Rotate {
	case 90:
		m = &Matrix{XY: 1, X0: -lly, YX: 1, Y0: -llx}
	case 180:
		m = &Matrix{XX: -1, X0: llx + w, YY: 1, Y0: -lly}
	case 270:
		m = &Matrix{XY: -1, X0: lly + h, YX: -1, Y0: llx + w}
	default:
		m = &Matrix{XX: 1, X0: -llx, YY: -1, Y0: lly + h}
	}

	return m.Multiply(NewScaleMatrix(float64(bw)/info.Width, float64(bh)/info.Height))
}

// pageContent 提取并合并页面的所有内容流
func pageContent(ctx *model.Context, pageNr int) ([]byte, error) {
	pageDict, _, _, err := ctx.PageDict(pageNr, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get page dict: %w", err)
	}

	contents, found := pageDict.Find("Contents")
	if !found {
		Debug("page %d has no Contents entry", pageNr-1)
		return nil, nil
	}

	streams, err := extractContentStreams(ctx, contents, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to extract content streams: %w", err)
	}

	var all []byte
	for _, s := range streams {
		all = append(all, s...)
		all = append(all, '\n')
	}
	return all, nil
}

// extractContentStreams 提取内容流，Contents 可以是单个流或流数组
func extractContentStreams(ctx *model.Context, contents types.Object, depth int) ([][]byte, error) {
	if depth > 8 {
		return nil, fmt.Errorf("contents nested too deep")
	}

	switch obj := contents.(type) {
	case types.IndirectRef:
		deref, err := ctx.Dereference(obj)
		if err != nil {
			return nil, fmt.Errorf("failed to dereference contents: %w", err)
		}
		return extractContentStreams(ctx, deref, depth+1)

	case types.StreamDict:
		if len(obj.Content) == 0 && len(obj.Raw) > 0 {
			if err := obj.Decode(); err != nil {
				return nil, fmt.Errorf("failed to decode stream: %w", err)
			}
		}
		if len(obj.Content) == 0 {
			return nil, nil
		}
		return [][]byte{obj.Content}, nil

	case types.Array:
		var streams [][]byte
		for i, item := range obj {
			s, err := extractContentStreams(ctx, item, depth+1)
			if err != nil {
				Debug("skip contents item %d: %v", i, err)
				continue
			}
			streams = append(streams, s...)
		}
		return streams, nil

	case nil:
		return nil, nil
	}

	return nil, fmt.Errorf("unexpected contents type %T", contents)
}
