package viewer

import "github.com/novvoo/go-pdf-reader/pkg/gopdf"

// Document 渲染管线使用的文档能力：页数与逐页打开
// 实现不要求并发安全，所有页面访问都经过 RenderGate 串行化。
type Document interface {
	PageCount() int
	OpenPage(index int) (Page, error)
}

// Page 已打开的页面：固有尺寸（点）与渲染到位图
type Page interface {
	Width() float64
	Height() float64
	Render(dst *gopdf.Bitmap) error
	Close() error
}

// pdfDocument 将 *gopdf.Document 适配为 Document
type pdfDocument struct {
	doc *gopdf.Document
}

// FromPDF 包装 pdfcpu 文档
func FromPDF(doc *gopdf.Document) Document {
	return pdfDocument{doc: doc}
}

func (d pdfDocument) PageCount() int { return d.doc.PageCount() }

func (d pdfDocument) OpenPage(index int) (Page, error) {
	p, err := d.doc.OpenPage(index)
	if err != nil {
		return nil, err
	}
	return p, nil
}
