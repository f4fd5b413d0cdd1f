package gopdf

import "errors"

var (
	// ErrOpen 文档无法打开或解析（文件缺失、损坏、不可读）
	ErrOpen = errors.New("cannot open document")

	// ErrRender 单页光栅化失败
	ErrRender = errors.New("page render failed")

	// ErrPageOutOfRange 页码超出 [0, PageCount)
	ErrPageOutOfRange = errors.New("page index out of range")

	// ErrPageAlreadyOpen 同一时刻只允许打开一个页面
	ErrPageAlreadyOpen = errors.New("current page not closed")

	// ErrClosed 文档已关闭
	ErrClosed = errors.New("document closed")

	// ErrBitmapReleased 位图像素缓冲区已释放
	ErrBitmapReleased = errors.New("bitmap already released")
)
