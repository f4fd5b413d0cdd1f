package viewer

import (
	"math"
	"time"
)

// 缩放范围
const (
	MinScale = 1.0
	MaxScale = 4.0
)

// 手势识别参数（像素、时间）
const (
	DoubleTapTimeout = 300 * time.Millisecond
	DoubleTapSlop    = 100.0
	TouchSlop        = 8.0
)

// TouchAction 触摸事件类型
type TouchAction int

const (
	TouchDown        TouchAction = iota // 第一个手指按下
	TouchPointerDown                    // 额外的手指按下
	TouchMove
	TouchPointerUp // 非最后一个手指抬起
	TouchUp        // 最后一个手指抬起
	TouchCancel
)

// Pointer 一个触点的位置
type Pointer struct {
	ID   int
	X, Y float64
}

// TouchEvent 原始触摸事件
// Pointers 为事件发生时所有接触中的触点（抬起事件包含正在抬起的触点），
// ActionIndex 指明 PointerDown/PointerUp 对应的触点。
type TouchEvent struct {
	Action      TouchAction
	Time        time.Duration
	Pointers    []Pointer
	ActionIndex int
}

// InterceptController 外层容器（翻页器）的触摸拦截开关
type InterceptController interface {
	RequestDisallowIntercept(disallow bool)
}

// ReleaseFunc 手势结束时的回调，参数为矩阵快照与当前缩放
type ReleaseFunc func(values TransformValues, scale float64)

// GestureEngine 单个页面视图的平移/缩放手势引擎
// 所有方法在 UI 上下文中同步调用，不会阻塞。
type GestureEngine struct {
	transform *Transform
	scale     float64
	parent    InterceptController
	onRelease ReleaseFunc

	// 拖动
	dragging     bool
	lastX, lastY float64

	// 双指缩放
	pinching bool
	lastSpan float64

	// 双击识别
	moved     bool
	downX     float64
	downY     float64
	downTime  time.Duration
	tapped    bool
	tapUpTime time.Duration
	tapX      float64
	tapY      float64
	consumed  bool
}

// NewGestureEngine 创建手势引擎；parent 可为 nil
func NewGestureEngine(parent InterceptController) *GestureEngine {
	return &GestureEngine{
		transform: NewTransform(),
		scale:     MinScale,
		parent:    parent,
	}
}

// SetOnRelease 设置手势结束回调
func (g *GestureEngine) SetOnRelease(fn ReleaseFunc) {
	g.onRelease = fn
}

// Scale 当前缩放
func (g *GestureEngine) Scale() float64 { return g.scale }

// Transform 当前显示矩阵
func (g *GestureEngine) Transform() *Transform { return g.transform }

// Values 当前矩阵的 9 个值
func (g *GestureEngine) Values() TransformValues { return g.transform.Values() }

// Reset 恢复为单位矩阵，缩放为 1
func (g *GestureEngine) Reset() {
	g.transform.Reset()
	g.scale = MinScale
}

// Apply 应用外部保存的矩阵，缩放取水平缩放分量
// 矩阵含非有限值或缩放超出 [MinScale, MaxScale] 时恢复为单位矩阵并返回 false。
func (g *GestureEngine) Apply(values TransformValues) bool {
	if !ZoomInRange(values) {
		g.Reset()
		return false
	}
	g.transform.SetValues(values)
	g.scale = clamp(float64(values[MScaleX]), MinScale, MaxScale)
	return true
}

// scaleTolerance 允许 float32 存储带来的舍入误差
const scaleTolerance = 1e-4

// ZoomInRange 矩阵值是否都是有限数，且水平缩放在 [MinScale, MaxScale] 之内
func ZoomInRange(values TransformValues) bool {
	for _, v := range values {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	s := float64(values[MScaleX])
	return s >= MinScale-scaleTolerance && s <= MaxScale+scaleTolerance
}

// Pinch 以焦点为中心按 factor 缩放，结果限制在 [MinScale, MaxScale]
func (g *GestureEngine) Pinch(factor, focusX, focusY float64) {
	if !(factor > 0) {
		return
	}
	newScale := clamp(g.scale*factor, MinScale, MaxScale)
	g.transform.PostScale(newScale/g.scale, focusX, focusY)
	g.scale = newScale
	g.requestDisallow(g.scale > MinScale)
}

// DoubleTap 缩放大于 1 时复位，否则以点击点为中心放大到 2 倍
func (g *GestureEngine) DoubleTap(x, y float64) {
	if g.scale > MinScale {
		g.Reset()
	} else {
		target := 2.0
		g.transform.PostScale(target/g.scale, x, y)
		g.scale = target
	}
	g.requestDisallow(g.scale > MinScale)
}

// Drag 单指拖动；仅在放大状态下平移，返回是否平移
func (g *GestureEngine) Drag(dx, dy float64) bool {
	if g.scale <= MinScale {
		return false
	}
	g.transform.PostTranslate(dx, dy)
	return true
}

// OnTouch 处理原始触摸事件，识别双指缩放、双击与拖动
func (g *GestureEngine) OnTouch(ev TouchEvent) bool {
	if len(ev.Pointers) == 0 && ev.Action != TouchCancel {
		return false
	}

	switch ev.Action {
	case TouchDown:
		p := ev.Pointers[0]
		if g.tapped && ev.Time-g.tapUpTime <= DoubleTapTimeout &&
			math.Hypot(p.X-g.tapX, p.Y-g.tapY) <= DoubleTapSlop {
			g.DoubleTap(p.X, p.Y)
			g.consumed = true
		} else {
			g.consumed = false
		}
		g.tapped = false

		g.lastX, g.lastY = p.X, p.Y
		g.downX, g.downY = p.X, p.Y
		g.downTime = ev.Time
		g.dragging = true
		g.pinching = false
		g.moved = false
		g.requestDisallow(g.scale > MinScale)

	case TouchPointerDown:
		if len(ev.Pointers) >= 2 {
			g.pinching = true
			g.moved = true
			g.lastSpan = span(ev.Pointers)
		}

	case TouchMove:
		if g.pinching && len(ev.Pointers) >= 2 {
			s := span(ev.Pointers)
			if g.lastSpan > 0 && s > 0 {
				fx, fy := centroid(ev.Pointers)
				g.Pinch(s/g.lastSpan, fx, fy)
			}
			g.lastSpan = s
			return true
		}
		if len(ev.Pointers) == 1 {
			p := ev.Pointers[0]
			if math.Hypot(p.X-g.downX, p.Y-g.downY) > TouchSlop {
				g.moved = true
			}
			if g.dragging {
				g.Drag(p.X-g.lastX, p.Y-g.lastY)
			}
			g.lastX, g.lastY = p.X, p.Y
		}

	case TouchPointerUp:
		remaining := make([]Pointer, 0, len(ev.Pointers))
		for i, p := range ev.Pointers {
			if i != ev.ActionIndex {
				remaining = append(remaining, p)
			}
		}
		if len(remaining) < 2 {
			g.pinching = false
		} else {
			g.lastSpan = span(remaining)
		}
		// 剩余手指继续拖动时从其当前位置开始计算位移
		if len(remaining) > 0 {
			g.lastX, g.lastY = remaining[0].X, remaining[0].Y
		}

	case TouchUp, TouchCancel:
		if ev.Action == TouchUp && !g.moved && !g.consumed && ev.Time-g.downTime <= DoubleTapTimeout {
			g.tapped = true
			g.tapUpTime = ev.Time
			g.tapX, g.tapY = g.downX, g.downY
		}
		g.dragging = false
		g.pinching = false
		g.requestDisallow(false)
		if g.onRelease != nil {
			g.onRelease(g.Values(), g.scale)
		}
	}
	return true
}

func (g *GestureEngine) requestDisallow(disallow bool) {
	if g.parent != nil {
		g.parent.RequestDisallowIntercept(disallow)
	}
}

// centroid 触点中心
func centroid(ps []Pointer) (float64, float64) {
	var sx, sy float64
	for _, p := range ps {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(ps))
	return sx / n, sy / n
}

// span 触点到中心的平均距离的两倍
func span(ps []Pointer) float64 {
	cx, cy := centroid(ps)
	var sum float64
	for _, p := range ps {
		sum += math.Hypot(p.X-cx, p.Y-cy)
	}
	return 2 * sum / float64(len(ps))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
