package gopdf

import (
	"fmt"
	"math"
)

// Matrix PDF 仿射变换矩阵
//
//	x' = XX*x + XY*y + X0
//	y' = YX*x + YY*y + Y0
type Matrix struct {
	XX, YX float64
	XY, YY float64
	X0, Y0 float64
}

// NewIdentityMatrix 创建单位矩阵
func NewIdentityMatrix() *Matrix {
	return &Matrix{
		XX: 1, YX: 0,
		XY: 0, YY: 1,
		X0: 0, Y0: 0,
	}
}

// NewTranslationMatrix 创建平移矩阵
func NewTranslationMatrix(tx, ty float64) *Matrix {
	return &Matrix{
		XX: 1, YX: 0,
		XY: 0, YY: 1,
		X0: tx, Y0: ty,
	}
}

// NewScaleMatrix 创建缩放矩阵
func NewScaleMatrix(sx, sy float64) *Matrix {
	return &Matrix{
		XX: sx, YX: 0,
		XY: 0, YY: sy,
		X0: 0, Y0: 0,
	}
}

// NewMatrixFromPDF 按内容流 cm 操作数顺序 [a b c d e f] 创建矩阵
func NewMatrixFromPDF(a, b, c, d, e, f float64) *Matrix {
	return &Matrix{
		XX: a, YX: b,
		XY: c, YY: d,
		X0: e, Y0: f,
	}
}

// Multiply 矩阵乘法：先应用 m，再应用 other
// 对应 PDF 规范中的 CTM_new = cm × CTM_old 写作 cm.Multiply(CTM_old)
func (m *Matrix) Multiply(other *Matrix) *Matrix {
	return &Matrix{
		XX: m.XX*other.XX + m.YX*other.XY,
		YX: m.XX*other.YX + m.YX*other.YY,
		XY: m.XY*other.XX + m.YY*other.XY,
		YY: m.XY*other.YX + m.YY*other.YY,
		X0: m.X0*other.XX + m.Y0*other.XY + other.X0,
		Y0: m.X0*other.YX + m.Y0*other.YY + other.Y0,
	}
}

// Transform 对点进行变换
func (m *Matrix) Transform(x, y float64) (float64, float64) {
	return m.XX*x + m.XY*y + m.X0, m.YX*x + m.YY*y + m.Y0
}

// TransformDistance 对距离向量进行变换（不包括平移）
func (m *Matrix) TransformDistance(dx, dy float64) (float64, float64) {
	return m.XX*dx + m.XY*dy, m.YX*dx + m.YY*dy
}

// Determinant 行列式
func (m *Matrix) Determinant() float64 {
	return m.XX*m.YY - m.YX*m.XY
}

// ScaleFactor 平均线性缩放系数，用于换算线宽
func (m *Matrix) ScaleFactor() float64 {
	return math.Sqrt(math.Abs(m.Determinant()))
}

// Invert 计算逆矩阵
func (m *Matrix) Invert() (*Matrix, error) {
	det := m.Determinant()
	if math.Abs(det) < 1e-10 {
		return nil, fmt.Errorf("matrix is not invertible (determinant is zero)")
	}

	invDet := 1.0 / det
	return &Matrix{
		XX: m.YY * invDet,
		YX: -m.YX * invDet,
		XY: -m.XY * invDet,
		YY: m.XX * invDet,
		X0: (m.XY*m.Y0 - m.YY*m.X0) * invDet,
		Y0: (m.YX*m.X0 - m.XX*m.Y0) * invDet,
	}, nil
}

// Clone 复制矩阵
func (m *Matrix) Clone() *Matrix {
	c := *m
	return &c
}

// String 返回矩阵的字符串表示
func (m *Matrix) String() string {
	return fmt.Sprintf("[%.3f %.3f %.3f %.3f %.3f %.3f]", m.XX, m.YX, m.XY, m.YY, m.X0, m.Y0)
}
