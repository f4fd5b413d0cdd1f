package viewer

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Background 视口中页面之外区域的颜色
var Background = color.RGBA{A: 255}

// FitCenter 将 src 等比缩放并居中到 dst 内的矩阵
func FitCenter(dst, src image.Rectangle) f64.Aff3 {
	sw, sh := float64(src.Dx()), float64(src.Dy())
	dw, dh := float64(dst.Dx()), float64(dst.Dy())
	if sw <= 0 || sh <= 0 {
		return f64.Aff3{1, 0, 0, 0, 1, 0}
	}
	k := math.Min(dw/sw, dh/sh)
	ox := float64(dst.Min.X) + (dw-sw*k)/2 - float64(src.Min.X)*k
	oy := float64(dst.Min.Y) + (dh-sh*k)/2 - float64(src.Min.Y)*k
	return f64.Aff3{k, 0, ox, 0, k, oy}
}

// mulAff3 返回 a × b（先应用 b，再应用 a）
func mulAff3(a, b f64.Aff3) f64.Aff3 {
	return f64.Aff3{
		a[0]*b[0] + a[1]*b[3], a[0]*b[1] + a[1]*b[4], a[0]*b[2] + a[1]*b[5] + a[2],
		a[3]*b[0] + a[4]*b[3], a[3]*b[1] + a[4]*b[4], a[3]*b[2] + a[4]*b[5] + a[5],
	}
}

// Compose 按视口绘制页面：先等比居中，再应用缩放矩阵；t 为 nil 时只居中
func Compose(dst draw.Image, src image.Image, t *Transform) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)
	if src == nil {
		return
	}

	s2d := FitCenter(dst.Bounds(), src.Bounds())
	if t != nil {
		s2d = mulAff3(t.Aff3(), s2d)
	}
	draw.CatmullRom.Transform(dst, s2d, src, src.Bounds(), draw.Over, nil)
}
