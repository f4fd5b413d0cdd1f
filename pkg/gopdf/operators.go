package gopdf

import (
	"fmt"

	"github.com/novvoo/go-cairo/pkg/cairo"
)

// PDFOperator 表示 PDF 操作符接口
type PDFOperator interface {
	Execute(ctx *RenderContext) error
	Name() string
}

// RenderContext PDF 渲染上下文
// Cairo 上下文始终保持单位矩阵，所有坐标在录入路径时由 CTM 变换到设备空间。
type RenderContext struct {
	CairoCtx      cairo.Context
	GraphicsStack *GraphicsStateStack
	CurrentPath   *Path

	// W/W* 设置的待生效裁剪，在下一个路径绘制操作符之后应用
	pendingClip *FillRule
}

// FillRule 填充规则
type FillRule int

const (
	FillRuleNonZero FillRule = iota // 非零缠绕规则
	FillRuleEvenOdd                 // 奇偶规则
)

func (r FillRule) cairo() cairo.FillRule {
	if r == FillRuleEvenOdd {
		return cairo.FillRuleEvenOdd
	}
	return cairo.FillRuleWinding
}

// NewRenderContext 创建新的渲染上下文，base 为用户空间到设备空间的初始 CTM
func NewRenderContext(cairoCtx cairo.Context, base *Matrix) *RenderContext {
	return &RenderContext{
		CairoCtx:      cairoCtx,
		GraphicsStack: NewGraphicsStateStack(base),
		CurrentPath:   NewPath(),
	}
}

// GetCurrentState 获取当前图形状态
func (rc *RenderContext) GetCurrentState() *GraphicsState {
	return rc.GraphicsStack.Current()
}

// ===== 图形状态操作符 =====

// OpSaveState q - 保存图形状态
type OpSaveState struct{}

func (op *OpSaveState) Name() string { return "q" }

func (op *OpSaveState) Execute(ctx *RenderContext) error {
	ctx.GraphicsStack.Push()
	ctx.CairoCtx.Save()
	return nil
}

// OpRestoreState Q - 恢复图形状态
type OpRestoreState struct{}

func (op *OpRestoreState) Name() string { return "Q" }

func (op *OpRestoreState) Execute(ctx *RenderContext) error {
	// 不平衡的 Q 不能弹出 Cairo 的基础状态
	if ctx.GraphicsStack.Pop() {
		ctx.CairoCtx.Restore()
	}
	return nil
}

// OpConcatMatrix cm - 连接变换矩阵
type OpConcatMatrix struct {
	Matrix *Matrix
}

func (op *OpConcatMatrix) Name() string { return "cm" }

func (op *OpConcatMatrix) Execute(ctx *RenderContext) error {
	state := ctx.GetCurrentState()
	// PDF 规范: CTM_new = cm × CTM_old
	state.CTM = op.Matrix.Multiply(state.CTM)
	return nil
}

// OpSetLineWidth w - 设置线宽
type OpSetLineWidth struct {
	Width float64
}

func (op *OpSetLineWidth) Name() string { return "w" }

func (op *OpSetLineWidth) Execute(ctx *RenderContext) error {
	ctx.GetCurrentState().LineWidth = op.Width
	return nil
}

// OpSetLineCap J - 设置线端点样式
type OpSetLineCap struct {
	Cap int
}

func (op *OpSetLineCap) Name() string { return "J" }

func (op *OpSetLineCap) Execute(ctx *RenderContext) error {
	state := ctx.GetCurrentState()
	switch op.Cap {
	case 0:
		state.LineCap = cairo.LineCapButt
	case 1:
		state.LineCap = cairo.LineCapRound
	case 2:
		state.LineCap = cairo.LineCapSquare
	default:
		return fmt.Errorf("invalid line cap %d", op.Cap)
	}
	return nil
}

// OpSetLineJoin j - 设置线连接样式
type OpSetLineJoin struct {
	Join int
}

func (op *OpSetLineJoin) Name() string { return "j" }

func (op *OpSetLineJoin) Execute(ctx *RenderContext) error {
	state := ctx.GetCurrentState()
	switch op.Join {
	case 0:
		state.LineJoin = cairo.LineJoinMiter
	case 1:
		state.LineJoin = cairo.LineJoinRound
	case 2:
		state.LineJoin = cairo.LineJoinBevel
	default:
		return fmt.Errorf("invalid line join %d", op.Join)
	}
	return nil
}

// OpSetMiterLimit M - 设置斜接限制
type OpSetMiterLimit struct {
	Limit float64
}

func (op *OpSetMiterLimit) Name() string { return "M" }

func (op *OpSetMiterLimit) Execute(ctx *RenderContext) error {
	ctx.GetCurrentState().MiterLimit = op.Limit
	return nil
}

// OpSetDash d - 设置虚线模式
type OpSetDash struct {
	Pattern []float64
	Offset  float64
}

func (op *OpSetDash) Name() string { return "d" }

func (op *OpSetDash) Execute(ctx *RenderContext) error {
	state := ctx.GetCurrentState()
	state.DashPattern = op.Pattern
	state.DashOffset = op.Offset
	return nil
}

// ===== 路径构造操作符 =====

// OpMoveTo m - 移动到
type OpMoveTo struct {
	X, Y float64
}

func (op *OpMoveTo) Name() string { return "m" }

func (op *OpMoveTo) Execute(ctx *RenderContext) error {
	ctx.CurrentPath.MoveTo(ctx.GetCurrentState().CTM, op.X, op.Y)
	return nil
}

// OpLineTo l - 直线到
type OpLineTo struct {
	X, Y float64
}

func (op *OpLineTo) Name() string { return "l" }

func (op *OpLineTo) Execute(ctx *RenderContext) error {
	ctx.CurrentPath.LineTo(ctx.GetCurrentState().CTM, op.X, op.Y)
	return nil
}

// OpCurveTo c/v/y - 三次贝塞尔曲线
// v 以当前点作为第一个控制点，y 以终点作为第二个控制点
type OpCurveTo struct {
	Op                     string
	X1, Y1, X2, Y2, X3, Y3 float64
}

func (op *OpCurveTo) Name() string { return op.Op }

func (op *OpCurveTo) Execute(ctx *RenderContext) error {
	x1, y1 := op.X1, op.Y1
	if op.Op == "v" {
		x, y, ok := ctx.CurrentPath.CurrentPoint()
		if !ok {
			return fmt.Errorf("v without current point")
		}
		x1, y1 = x, y
	}
	ctx.CurrentPath.CurveTo(ctx.GetCurrentState().CTM, x1, y1, op.X2, op.Y2, op.X3, op.Y3)
	return nil
}

// OpRectangle re - 矩形
type OpRectangle struct {
	X, Y, Width, Height float64
}

func (op *OpRectangle) Name() string { return "re" }

func (op *OpRectangle) Execute(ctx *RenderContext) error {
	ctx.CurrentPath.Rectangle(ctx.GetCurrentState().CTM, op.X, op.Y, op.Width, op.Height)
	return nil
}

// OpClosePath h - 闭合路径
type OpClosePath struct{}

func (op *OpClosePath) Name() string { return "h" }

func (op *OpClosePath) Execute(ctx *RenderContext) error {
	ctx.CurrentPath.ClosePath()
	return nil
}

// ===== 路径绘制操作符 =====

// OpPaintPath S s f F f* B B* b b* n - 绘制并结束当前路径
type OpPaintPath struct {
	Op      string
	Close   bool
	Fill    bool
	Stroke  bool
	EvenOdd bool
}

func (op *OpPaintPath) Name() string { return op.Op }

func (op *OpPaintPath) Execute(ctx *RenderContext) error {
	path := ctx.CurrentPath
	if op.Close {
		path.ClosePath()
	}

	if !path.IsEmpty() && (op.Fill || op.Stroke) {
		state := ctx.GetCurrentState()
		cr := ctx.CairoCtx

		cr.Save()
		path.buildCairoPath(cr)
		if op.Fill {
			rule := FillRuleNonZero
			if op.EvenOdd {
				rule = FillRuleEvenOdd
			}
			cr.SetFillRule(rule.cairo())
			state.applyFill(cr)
			if op.Stroke {
				cr.FillPreserve()
			} else {
				cr.Fill()
			}
		}
		if op.Stroke {
			state.applyStroke(cr)
			cr.Stroke()
		}
		cr.Restore()
	}

	// W/W* 在绘制之后才生效
	if ctx.pendingClip != nil && !path.IsEmpty() {
		cr := ctx.CairoCtx
		path.buildCairoPath(cr)
		cr.SetFillRule(ctx.pendingClip.cairo())
		cr.Clip()
	}
	ctx.pendingClip = nil

	ctx.CairoCtx.NewPath()
	path.Clear()
	return nil
}

// OpClip W/W* - 将当前路径标记为裁剪路径
type OpClip struct {
	EvenOdd bool
}

func (op *OpClip) Name() string {
	if op.EvenOdd {
		return "W*"
	}
	return "W"
}

func (op *OpClip) Execute(ctx *RenderContext) error {
	rule := FillRuleNonZero
	if op.EvenOdd {
		rule = FillRuleEvenOdd
	}
	ctx.pendingClip = &rule
	return nil
}

// ===== 颜色操作符 =====

// OpSetColor G g RG rg K k SC sc SCN scn - 设置描边或填充颜色
// 分量数决定颜色空间：1 灰度，3 RGB，4 CMYK；图案名称操作数被忽略
type OpSetColor struct {
	Op         string
	Stroke     bool
	Components []float64
}

func (op *OpSetColor) Name() string { return op.Op }

func (op *OpSetColor) Execute(ctx *RenderContext) error {
	var c Color
	switch len(op.Components) {
	case 1:
		g := clamp01(op.Components[0])
		c = Color{R: g, G: g, B: g, A: 1}
	case 3:
		c = Color{
			R: clamp01(op.Components[0]),
			G: clamp01(op.Components[1]),
			B: clamp01(op.Components[2]),
			A: 1,
		}
	case 4:
		r, g, b := cmykToRGB(op.Components[0], op.Components[1], op.Components[2], op.Components[3])
		c = Color{R: r, G: g, B: b, A: 1}
	default:
		return fmt.Errorf("%s: unsupported component count %d", op.Op, len(op.Components))
	}

	state := ctx.GetCurrentState()
	if op.Stroke {
		state.StrokeColor = c
	} else {
		state.FillColor = c
	}
	return nil
}

// cmykToRGB 将 CMYK 转换为 RGB
func cmykToRGB(c, m, y, k float64) (float64, float64, float64) {
	r := (1 - clamp01(c)) * (1 - clamp01(k))
	g := (1 - clamp01(m)) * (1 - clamp01(k))
	b := (1 - clamp01(y)) * (1 - clamp01(k))
	return r, g, b
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// OpIgnore - 不支持的操作符（文本、图像、着色等），只计数不绘制
type OpIgnore struct {
	Op string
}

func (op *OpIgnore) Name() string { return "IGNORE" }

func (op *OpIgnore) Execute(ctx *RenderContext) error {
	return nil
}
