package viewer

import "math"

// DisplayMetrics 设备显示尺寸（像素），视图尺寸未知时作为视口
type DisplayMetrics struct {
	WidthPixels  int
	HeightPixels int
}

// DefaultDisplay 无法获取设备尺寸时使用的显示尺寸
var DefaultDisplay = DisplayMetrics{WidthPixels: 1080, HeightPixels: 1920}

// TargetSize 计算页面光栅化的位图尺寸
//
// 页面按比例缩放到视口内，乘以质量系数后四舍五入；任一边超过 maxDim 时
// 两边按同一比例缩小。视口某一边不大于 0 时使用显示尺寸的对应边。
// 结果每一边至少为 1。
func TargetSize(pageW, pageH float64, viewW, viewH int, quality float64, maxDim int, display DisplayMetrics) (int, int) {
	if viewW <= 0 {
		viewW = display.WidthPixels
	}
	if viewH <= 0 {
		viewH = display.HeightPixels
	}

	scale := math.Min(float64(viewW)/pageW, float64(viewH)/pageH)
	bw := atLeastOne(math.Round(pageW * scale * quality))
	bh := atLeastOne(math.Round(pageH * scale * quality))

	if bw > maxDim || bh > maxDim {
		reduce := math.Min(float64(maxDim)/float64(bw), float64(maxDim)/float64(bh))
		bw = atLeastOne(math.Round(float64(bw) * reduce))
		bh = atLeastOne(math.Round(float64(bh) * reduce))
	}
	return bw, bh
}

func atLeastOne(v float64) int {
	// NaN 与负数同样落到 1
	if !(v >= 1) {
		return 1
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}
