// Package pdftest 生成测试用的最小 PDF 文件
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// Page 描述一页测试 PDF
type Page struct {
	MediaBox [4]float64 // 缺省 [0 0 612 792]
	CropBox  *[4]float64
	Rotate   int
	Content  string // 内容流，空表示没有 Contents 条目
}

// Letter 创建一页 US Letter 尺寸的页面
func Letter(content string) Page {
	return Page{MediaBox: [4]float64{0, 0, 612, 792}, Content: content}
}

// Build 生成包含给定页面的 PDF，交叉引用表偏移按实际字节计算
func Build(pages ...Page) []byte {
	var buf bytes.Buffer
	var offsets []int

	begin := func() int {
		offsets = append(offsets, buf.Len())
		return len(offsets)
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	// 对象编号：1 Catalog，2 Pages，之后每页占两个（页面 + 内容流）
	n := begin()
	fmt.Fprintf(&buf, "%d 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n", n)

	var kids bytes.Buffer
	for i := range pages {
		if i > 0 {
			kids.WriteByte(' ')
		}
		fmt.Fprintf(&kids, "%d 0 R", 3+i*2)
	}
	n = begin()
	fmt.Fprintf(&buf, "%d 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", n, kids.String(), len(pages))

	for i, p := range pages {
		box := p.MediaBox
		if box == ([4]float64{}) {
			box = [4]float64{0, 0, 612, 792}
		}

		n = begin()
		fmt.Fprintf(&buf, "%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [%g %g %g %g]",
			n, box[0], box[1], box[2], box[3])
		if p.CropBox != nil {
			c := p.CropBox
			fmt.Fprintf(&buf, " /CropBox [%g %g %g %g]", c[0], c[1], c[2], c[3])
		}
		if p.Rotate != 0 {
			fmt.Fprintf(&buf, " /Rotate %d", p.Rotate)
		}
		if p.Content != "" {
			fmt.Fprintf(&buf, " /Contents %d 0 R", 4+i*2)
		}
		buf.WriteString(" /Resources << >> >>\nendobj\n")

		n = begin()
		fmt.Fprintf(&buf, "%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n",
			n, len(p.Content), p.Content)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	return buf.Bytes()
}

// WriteFile 将生成的 PDF 写入 dir/name 并返回路径
func WriteFile(dir, name string, pages ...Page) (string, error) {
	path := filepath.Join(dir, name)
	return path, os.WriteFile(path, Build(pages...), 0644)
}
