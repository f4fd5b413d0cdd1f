package viewer

import "github.com/novvoo/go-pdf-reader/pkg/gopdf"

// TransformStore 按页码保存与读取缩放矩阵（由持久化层实现，已绑定文档标识）
type TransformStore interface {
	SaveTransform(page int, values TransformValues) error
	// LoadTransform 读取矩阵；不存在或内容损坏时返回 ok=false
	LoadTransform(page int) (values TransformValues, ok bool, err error)
}

// ZoomMemory 单个文档各页的缩放状态：内存优先，其次持久化存储
type ZoomMemory struct {
	store TransformStore
	pages map[int]TransformValues
	log   *gopdf.Logger
}

// NewZoomMemory 创建缩放记忆；store 可为 nil（只保存在内存中）
func NewZoomMemory(store TransformStore, log *gopdf.Logger) *ZoomMemory {
	if log == nil {
		log = gopdf.GetLogger().Named("zoom")
	}
	return &ZoomMemory{
		store: store,
		pages: make(map[int]TransformValues),
		log:   log,
	}
}

// Bind 页面绑定到视图时恢复其缩放状态，并在手势结束时记录
// 优先使用内存中的矩阵，其次从存储读取，都没有则复位为单位矩阵。
func (z *ZoomMemory) Bind(engine *GestureEngine, page int) {
	if v, ok := z.Lookup(page); ok {
		if !engine.Apply(v) {
			z.log.Warn("zoom for page %d out of range, using identity", page)
			delete(z.pages, page)
		}
	} else {
		engine.Reset()
	}
	engine.SetOnRelease(func(values TransformValues, _ float64) {
		z.Remember(page, values)
	})
}

// Lookup 返回页面的矩阵（内存或存储中）
func (z *ZoomMemory) Lookup(page int) (TransformValues, bool) {
	if v, ok := z.pages[page]; ok {
		return v, true
	}
	if z.store == nil {
		return TransformValues{}, false
	}

	v, ok, err := z.store.LoadTransform(page)
	if err != nil {
		z.log.Warn("load zoom for page %d: %v", page, err)
		return TransformValues{}, false
	}
	if !ok {
		return TransformValues{}, false
	}
	z.pages[page] = v
	return v, true
}

// Remember 记录页面矩阵并写入存储
func (z *ZoomMemory) Remember(page int, values TransformValues) {
	z.pages[page] = values
	if z.store == nil {
		return
	}
	if err := z.store.SaveTransform(page, values); err != nil {
		z.log.Warn("save zoom for page %d: %v", page, err)
	}
}

// Forget 清空内存中的矩阵（存储中的记录由调用方另行清除）
func (z *ZoomMemory) Forget() {
	z.pages = make(map[int]TransformValues)
}
