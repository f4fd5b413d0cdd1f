package gopdf

import (
	"github.com/novvoo/go-cairo/pkg/cairo"
)

// GraphicsState 表示 PDF 图形状态
// CTM 映射用户空间到位图设备空间（已包含页面翻转、旋转与缩放）
type GraphicsState struct {
	CTM         *Matrix        // 当前变换矩阵
	StrokeColor Color          // 描边颜色
	FillColor   Color          // 填充颜色
	LineWidth   float64        // 线宽（用户空间）
	LineCap     cairo.LineCap  // 线端点样式
	LineJoin    cairo.LineJoin // 线连接样式
	MiterLimit  float64        // 斜接限制
	DashPattern []float64      // 虚线模式（用户空间）
	DashOffset  float64        // 虚线偏移
}

// Color 表示颜色
type Color struct {
	R, G, B, A float64
}

// NewGraphicsState 创建新的图形状态
func NewGraphicsState(base *Matrix) *GraphicsState {
	return &GraphicsState{
		CTM:         base.Clone(),
		StrokeColor: Color{R: 0, G: 0, B: 0, A: 1}, // 黑色
		FillColor:   Color{R: 0, G: 0, B: 0, A: 1}, // 黑色
		LineWidth:   1.0,
		LineCap:     cairo.LineCapButt,
		LineJoin:    cairo.LineJoinMiter,
		MiterLimit:  10.0,
	}
}

// Clone 复制图形状态
func (gs *GraphicsState) Clone() *GraphicsState {
	newState := *gs
	newState.CTM = gs.CTM.Clone()
	if gs.DashPattern != nil {
		newState.DashPattern = make([]float64, len(gs.DashPattern))
		copy(newState.DashPattern, gs.DashPattern)
	}
	return &newState
}

// applyStroke 将描边相关状态应用到 Cairo context（线宽与虚线换算到设备空间）
// 调用方负责用 Save/Restore 包裹，避免虚线设置泄漏到后续描边
func (gs *GraphicsState) applyStroke(ctx cairo.Context) {
	scale := gs.CTM.ScaleFactor()

	ctx.SetSourceRGBA(gs.StrokeColor.R, gs.StrokeColor.G, gs.StrokeColor.B, gs.StrokeColor.A)

	width := gs.LineWidth * scale
	if width < 1 {
		// PDF 规定 0 线宽为设备上可见的最细线
		width = 1
	}
	ctx.SetLineWidth(width)
	ctx.SetLineCap(gs.LineCap)
	ctx.SetLineJoin(gs.LineJoin)
	ctx.SetMiterLimit(gs.MiterLimit)

	if len(gs.DashPattern) > 0 {
		dashes := make([]float64, len(gs.DashPattern))
		for i, d := range gs.DashPattern {
			dashes[i] = d * scale
		}
		ctx.SetDash(dashes, gs.DashOffset*scale)
	}
}

// applyFill 将填充颜色应用到 Cairo context
func (gs *GraphicsState) applyFill(ctx cairo.Context) {
	ctx.SetSourceRGBA(gs.FillColor.R, gs.FillColor.G, gs.FillColor.B, gs.FillColor.A)
}

// GraphicsStateStack 图形状态栈
// 用于实现 PDF 的 q/Q 操作符（保存/恢复图形状态）
type GraphicsStateStack struct {
	stack []*GraphicsState
}

// NewGraphicsStateStack 创建新的图形状态栈
func NewGraphicsStateStack(base *Matrix) *GraphicsStateStack {
	return &GraphicsStateStack{
		stack: []*GraphicsState{NewGraphicsState(base)},
	}
}

// Current 获取当前图形状态
func (s *GraphicsStateStack) Current() *GraphicsState {
	return s.stack[len(s.stack)-1]
}

// Push 保存当前图形状态（q 操作符）
func (s *GraphicsStateStack) Push() {
	s.stack = append(s.stack, s.Current().Clone())
}

// Pop 恢复之前的图形状态（Q 操作符），返回是否真正出栈
func (s *GraphicsStateStack) Pop() bool {
	if len(s.stack) <= 1 {
		return false // 保持至少一个状态
	}
	s.stack = s.stack[:len(s.stack)-1]
	return true
}

// Depth 返回栈深度
func (s *GraphicsStateStack) Depth() int {
	return len(s.stack)
}
