package gopdf

import "github.com/novvoo/go-cairo/pkg/cairo"

// Path 表示设备空间中的路径
// 路径构造操作符在录入时已经按当前 CTM 变换，绘制时直接交给 Cairo。
type Path struct {
	subpaths []*Subpath
	current  *Subpath

	// 当前点（用户空间），供 v 操作符使用
	curX, curY float64
	hasCurrent bool
}

// Subpath 表示子路径
type Subpath struct {
	segments []PathSegment
	closed   bool
}

// PathSegment 表示路径段
type PathSegment interface {
	Type() string
}

// MoveToSegment 移动到
type MoveToSegment struct {
	X, Y float64
}

func (s *MoveToSegment) Type() string { return "MoveTo" }

// LineToSegment 直线到
type LineToSegment struct {
	X, Y float64
}

func (s *LineToSegment) Type() string { return "LineTo" }

// CurveToSegment 三次贝塞尔曲线
type CurveToSegment struct {
	X1, Y1, X2, Y2, X3, Y3 float64
}

func (s *CurveToSegment) Type() string { return "CurveTo" }

// NewPath 创建新路径
func NewPath() *Path {
	return &Path{}
}

// MoveTo 开始新的子路径
func (p *Path) MoveTo(m *Matrix, x, y float64) {
	dx, dy := m.Transform(x, y)
	p.current = &Subpath{
		segments: []PathSegment{&MoveToSegment{X: dx, Y: dy}},
	}
	p.subpaths = append(p.subpaths, p.current)
	p.setCurrent(x, y)
}

// LineTo 添加直线段
func (p *Path) LineTo(m *Matrix, x, y float64) {
	if p.current == nil {
		p.MoveTo(m, x, y)
		return
	}
	dx, dy := m.Transform(x, y)
	p.current.segments = append(p.current.segments, &LineToSegment{X: dx, Y: dy})
	p.setCurrent(x, y)
}

// CurveTo 添加三次贝塞尔曲线段（仿射变换保持贝塞尔控制点关系）
func (p *Path) CurveTo(m *Matrix, x1, y1, x2, y2, x3, y3 float64) {
	if p.current == nil {
		p.MoveTo(m, x1, y1)
	}
	dx1, dy1 := m.Transform(x1, y1)
	dx2, dy2 := m.Transform(x2, y2)
	dx3, dy3 := m.Transform(x3, y3)
	p.current.segments = append(p.current.segments, &CurveToSegment{
		X1: dx1, Y1: dy1,
		X2: dx2, Y2: dy2,
		X3: dx3, Y3: dy3,
	})
	p.setCurrent(x3, y3)
}

// Rectangle 添加矩形；在旋转或错切的 CTM 下矩形不再轴对齐，因此展开为四条边
func (p *Path) Rectangle(m *Matrix, x, y, width, height float64) {
	p.MoveTo(m, x, y)
	p.LineTo(m, x+width, y)
	p.LineTo(m, x+width, y+height)
	p.LineTo(m, x, y+height)
	p.ClosePath()
	p.setCurrent(x, y)
}

// ClosePath 闭合当前子路径
func (p *Path) ClosePath() {
	if p.current != nil {
		p.current.closed = true
	}
}

// CurrentPoint 当前点（用户空间）
func (p *Path) CurrentPoint() (float64, float64, bool) {
	return p.curX, p.curY, p.hasCurrent
}

func (p *Path) setCurrent(x, y float64) {
	p.curX, p.curY = x, y
	p.hasCurrent = true
}

// Clear 清空路径
func (p *Path) Clear() {
	p.subpaths = nil
	p.current = nil
	p.hasCurrent = false
}

// IsEmpty 检查路径是否为空
func (p *Path) IsEmpty() bool {
	return len(p.subpaths) == 0
}

// GetSubpaths 获取所有子路径
func (p *Path) GetSubpaths() []*Subpath {
	return p.subpaths
}

// IsClosed 检查子路径是否闭合
func (sp *Subpath) IsClosed() bool {
	return sp.closed
}

// GetSegments 获取子路径的所有段
func (sp *Subpath) GetSegments() []PathSegment {
	return sp.segments
}

// buildCairoPath 将路径写入 Cairo 上下文
func (p *Path) buildCairoPath(ctx cairo.Context) {
	ctx.NewPath()

	for _, subpath := range p.subpaths {
		for _, segment := range subpath.segments {
			switch seg := segment.(type) {
			case *MoveToSegment:
				ctx.MoveTo(seg.X, seg.Y)
			case *LineToSegment:
				ctx.LineTo(seg.X, seg.Y)
			case *CurveToSegment:
				ctx.CurveTo(seg.X1, seg.Y1, seg.X2, seg.Y2, seg.X3, seg.Y3)
			}
		}

		if subpath.closed {
			ctx.ClosePath()
		}
	}
}
