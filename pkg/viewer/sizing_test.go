package viewer

import (
	"math"
	"math/rand"
	"testing"
)

func TestTargetSize(t *testing.T) {
	display := DisplayMetrics{WidthPixels: 1080, HeightPixels: 1920}

	tests := []struct {
		name         string
		pageW, pageH float64
		viewW, viewH int
		quality      float64
		maxDim       int
		wantW, wantH int
	}{
		{"letter portrait phone", 612, 792, 1080, 1920, 1.5, 3000, 1620, 2096},
		{"viewport unknown uses display", 612, 792, 0, 0, 1.5, 3000, 1620, 2096},
		{"one axis unknown", 612, 792, 1080, -1, 1.5, 3000, 1620, 2096},
		{"landscape page", 792, 612, 1080, 1920, 1, 3000, 1080, 835},
		{"capped by max dimension", 612, 792, 1080, 1920, 3, 3000, 2318, 3000},
		{"tiny page floors to one", 1, 1000, 10, 10, 1, 3000, 1, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := TargetSize(tt.pageW, tt.pageH, tt.viewW, tt.viewH, tt.quality, tt.maxDim, display)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("TargetSize() = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestTargetSizeProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	display := DisplayMetrics{WidthPixels: 1080, HeightPixels: 1920}

	for i := 0; i < 5000; i++ {
		pageW := 1 + rng.Float64()*3000
		pageH := 1 + rng.Float64()*3000
		viewW := 1 + rng.Intn(4000)
		viewH := 1 + rng.Intn(4000)
		quality := 0.1 + rng.Float64()*4
		maxDim := 1 + rng.Intn(5000)

		w, h := TargetSize(pageW, pageH, viewW, viewH, quality, maxDim, display)
		if w < 1 || h < 1 {
			t.Fatalf("case %d: size %dx%d below 1", i, w, h)
		}
		if w > maxDim || h > maxDim {
			t.Fatalf("case %d: size %dx%d exceeds max %d", i, w, h, maxDim)
		}
		// 每次取整最多偏离 1 像素，因此交叉乘积误差不超过 pageW+pageH
		if diff := math.Abs(float64(w)*pageH - float64(h)*pageW); diff > pageW+pageH {
			t.Fatalf("case %d: aspect %dx%d drifts from %.2fx%.2f by %.2f", i, w, h, pageW, pageH, diff)
		}

		// 纯函数：重复调用结果相同
		w2, h2 := TargetSize(pageW, pageH, viewW, viewH, quality, maxDim, display)
		if w != w2 || h != h2 {
			t.Fatalf("case %d: not deterministic", i)
		}
	}
}
