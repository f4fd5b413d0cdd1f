package viewer

import (
	"fmt"

	"golang.org/x/image/math/f64"
)

// 矩阵值下标，行优先
const (
	MScaleX = iota
	MSkewX
	MTransX
	MSkewY
	MScaleY
	MTransY
	MPersp0
	MPersp1
	MPersp2
)

// TransformValues 持久化的 9 个矩阵值
type TransformValues = [9]float32

// IdentityValues 单位矩阵的值
var IdentityValues = TransformValues{1, 0, 0, 0, 1, 0, 0, 0, 1}

// Transform 页面显示的 3×3 仿射矩阵（平移 + 等比缩放）
// 零值不可用，使用 NewTransform。
type Transform struct {
	m f64.Mat3
}

// NewTransform 创建单位矩阵
func NewTransform() *Transform {
	t := &Transform{}
	t.Reset()
	return t
}

// Reset 恢复为单位矩阵
func (t *Transform) Reset() {
	t.m = f64.Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// concatLeft 以 o × m 替换 m，即在现有变换之后再应用 o
func (t *Transform) concatLeft(o f64.Mat3) {
	m := t.m
	var r f64.Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i*3+j] = o[i*3]*m[j] + o[i*3+1]*m[3+j] + o[i*3+2]*m[6+j]
		}
	}
	t.m = r
}

// PostScale 以 (px, py) 为中心等比缩放 s 倍
func (t *Transform) PostScale(s, px, py float64) {
	t.concatLeft(f64.Mat3{
		s, 0, px - s*px,
		0, s, py - s*py,
		0, 0, 1,
	})
}

// PostTranslate 平移 (dx, dy)
func (t *Transform) PostTranslate(dx, dy float64) {
	t.concatLeft(f64.Mat3{
		1, 0, dx,
		0, 1, dy,
		0, 0, 1,
	})
}

// ScaleX 水平缩放分量
func (t *Transform) ScaleX() float64 {
	return t.m[MScaleX]
}

// Map 变换一个点
func (t *Transform) Map(x, y float64) (float64, float64) {
	m := t.m
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}

// Values 导出 9 个值（float32，与持久化格式一致）
func (t *Transform) Values() TransformValues {
	var v TransformValues
	for i, f := range t.m {
		v[i] = float32(f)
	}
	return v
}

// SetValues 从 9 个值恢复矩阵
func (t *Transform) SetValues(v TransformValues) {
	for i, f := range v {
		t.m[i] = float64(f)
	}
}

// Mat3 返回矩阵副本
func (t *Transform) Mat3() f64.Mat3 {
	return t.m
}

// Aff3 返回仿射部分，供 x/image/draw 使用
func (t *Transform) Aff3() f64.Aff3 {
	m := t.m
	return f64.Aff3{m[0], m[1], m[2], m[3], m[4], m[5]}
}

// String 调试输出
func (t *Transform) String() string {
	m := t.m
	return fmt.Sprintf("[%.3f %.3f %.3f; %.3f %.3f %.3f; %.3f %.3f %.3f]",
		m[0], m[1], m[2], m[3], m[4], m[5], m[6], m[7], m[8])
}
