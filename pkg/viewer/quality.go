package viewer

import (
	"errors"
	"fmt"
	"math"
	"runtime/debug"
)

// 缺省渲染质量
const (
	DefaultQualityMultiplier = 1.5
	DefaultMaxBitmapDim      = 3000
)

// ErrInvalidQuality 质量设置不合法
var ErrInvalidQuality = errors.New("invalid quality settings")

// Quality 渲染质量配置，由 Provider 持有并通过 SetQualityAndLimit 更新
type Quality struct {
	Multiplier   float64
	MaxBitmapDim int
}

// DefaultQuality 缺省质量配置
func DefaultQuality() Quality {
	return Quality{Multiplier: DefaultQualityMultiplier, MaxBitmapDim: DefaultMaxBitmapDim}
}

// Validate 检查质量系数与最大尺寸为正
func (q Quality) Validate() error {
	if !(q.Multiplier > 0) {
		return fmt.Errorf("%w: quality multiplier %v must be positive", ErrInvalidQuality, q.Multiplier)
	}
	if q.MaxBitmapDim <= 0 {
		return fmt.Errorf("%w: max bitmap dimension %d must be positive", ErrInvalidQuality, q.MaxBitmapDim)
	}
	return nil
}

// 未设置运行时内存上限时假定的可用内存
const fallbackMemoryBytes = 512 << 20

// DefaultCacheBudgetKB 位图缓存预算：可用内存的 1/8，单位 KB
// 可用内存取 Go 运行时的内存上限（GOMEMLIMIT / debug.SetMemoryLimit）。
func DefaultCacheBudgetKB() int {
	limit := debug.SetMemoryLimit(-1)
	if limit <= 0 || limit == math.MaxInt64 {
		limit = fallbackMemoryBytes
	}
	budget := limit / 1024 / 8
	if budget < 1 {
		budget = 1
	}
	if budget > math.MaxInt32 {
		budget = math.MaxInt32
	}
	return int(budget)
}
