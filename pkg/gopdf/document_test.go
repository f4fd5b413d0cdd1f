package gopdf

import (
	"bytes"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/novvoo/go-pdf-reader/internal/pdftest"
)

func openTestDocument(t *testing.T, pages ...pdftest.Page) *Document {
	t.Helper()
	doc, err := ReadDocument(bytes.NewReader(pdftest.Build(pages...)), t.Name())
	if err != nil {
		t.Fatalf("ReadDocument() error = %v", err)
	}
	t.Cleanup(func() { doc.Close() })
	return doc
}

func TestOpenDocument(t *testing.T) {
	dir := t.TempDir()
	path, err := pdftest.WriteFile(dir, "two.pdf", pdftest.Letter(""), pdftest.Letter(""))
	if err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	doc, err := OpenDocument(path)
	if err != nil {
		t.Fatalf("OpenDocument() error = %v", err)
	}
	defer doc.Close()

	if doc.PageCount() != 2 {
		t.Errorf("PageCount() = %d, want 2", doc.PageCount())
	}
	if doc.Source() != path {
		t.Errorf("Source() = %q, want %q", doc.Source(), path)
	}
}

func TestOpenDocumentErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := OpenDocument(filepath.Join(dir, "missing.pdf")); !errors.Is(err, ErrOpen) {
		t.Errorf("missing file: error = %v, want ErrOpen", err)
	}

	garbage := filepath.Join(dir, "garbage.pdf")
	if err := os.WriteFile(garbage, []byte("this is not a pdf"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenDocument(garbage); !errors.Is(err, ErrOpen) {
		t.Errorf("garbage file: error = %v, want ErrOpen", err)
	}
}

func TestPageGeometry(t *testing.T) {
	crop := [4]float64{10, 20, 110, 220}
	doc := openTestDocument(t,
		pdftest.Letter(""),
		pdftest.Page{MediaBox: [4]float64{0, 0, 400, 300}, Rotate: 90},
		pdftest.Page{MediaBox: [4]float64{0, 0, 612, 792}, CropBox: &crop},
	)

	tests := []struct {
		index int
		w, h  float64
		rot   int
	}{
		{0, 612, 792, 0},
		{1, 300, 400, 90},
		{2, 100, 200, 0},
	}
	for _, tt := range tests {
		info, err := doc.PageInfo(tt.index)
		if err != nil {
			t.Fatalf("PageInfo(%d) error = %v", tt.index, err)
		}
		if info.Width != tt.w || info.Height != tt.h || info.Rotate != tt.rot {
			t.Errorf("PageInfo(%d) = %vx%v rot %d, want %vx%v rot %d",
				tt.index, info.Width, info.Height, info.Rotate, tt.w, tt.h, tt.rot)
		}
	}

	if _, err := doc.PageInfo(3); !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("PageInfo(3) error = %v, want ErrPageOutOfRange", err)
	}
}

func TestOpenPageExclusive(t *testing.T) {
	doc := openTestDocument(t, pdftest.Letter(""), pdftest.Letter(""))

	p, err := doc.OpenPage(0)
	if err != nil {
		t.Fatalf("OpenPage(0) error = %v", err)
	}
	if _, err := doc.OpenPage(1); !errors.Is(err, ErrPageAlreadyOpen) {
		t.Errorf("second OpenPage error = %v, want ErrPageAlreadyOpen", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// 重复关闭无副作用
	p.Close()

	p2, err := doc.OpenPage(1)
	if err != nil {
		t.Fatalf("OpenPage(1) after close error = %v", err)
	}
	p2.Close()

	if _, err := doc.OpenPage(-1); !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("OpenPage(-1) error = %v, want ErrPageOutOfRange", err)
	}

	doc.Close()
	doc.Close()
	if _, err := doc.OpenPage(0); !errors.Is(err, ErrClosed) {
		t.Errorf("OpenPage after Close error = %v, want ErrClosed", err)
	}
}

func TestPageRender(t *testing.T) {
	// 左下四分之一填充红色，右上角描一条蓝色横线
	content := "1 0 0 rg 0 0 306 396 re f\n" +
		"q 0 0 1 RG 4 w 306 700 m 612 700 l S Q\n" +
		"BT /F1 12 Tf (ignored) Tj ET"
	doc := openTestDocument(t, pdftest.Letter(content))

	page, err := doc.OpenPage(0)
	if err != nil {
		t.Fatalf("OpenPage() error = %v", err)
	}
	defer page.Close()

	bmp, err := NewBitmap(int(page.Width()), int(page.Height()))
	if err != nil {
		t.Fatalf("NewBitmap() error = %v", err)
	}
	defer bmp.Release()

	if err := page.Render(bmp); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if bmp.Page() != 0 {
		t.Errorf("Page() = %d, want 0", bmp.Page())
	}

	img, err := bmp.Image()
	if err != nil {
		t.Fatalf("Image() error = %v", err)
	}

	red := color.RGBA{R: 255, A: 255}
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}

	checks := []struct {
		x, y int
		want color.RGBA
	}{
		{100, 700, red},   // 用户空间 (100, 92)
		{500, 700, white}, // 右下
		{100, 100, white}, // 左上
		{450, 92, blue},   // 用户空间 y=700 的横线
	}
	for _, c := range checks {
		if got := img.RGBAAt(c.x, c.y); got != c.want {
			t.Errorf("pixel (%d, %d) = %+v, want %+v", c.x, c.y, got, c.want)
		}
	}
}

func TestPageRenderEmptyContent(t *testing.T) {
	doc := openTestDocument(t, pdftest.Letter(""))
	page, err := doc.OpenPage(0)
	if err != nil {
		t.Fatalf("OpenPage() error = %v", err)
	}
	defer page.Close()

	bmp, _ := NewBitmap(61, 79)
	defer bmp.Release()
	if err := page.Render(bmp); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	img, _ := bmp.Image()
	if got := img.RGBAAt(30, 40); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("blank page pixel = %+v, want white", got)
	}
}

func TestPageRenderAfterClose(t *testing.T) {
	doc := openTestDocument(t, pdftest.Letter("0 g 0 0 10 10 re f"))
	page, err := doc.OpenPage(0)
	if err != nil {
		t.Fatalf("OpenPage() error = %v", err)
	}
	page.Close()

	bmp, _ := NewBitmap(10, 10)
	defer bmp.Release()
	if err := page.Render(bmp); !errors.Is(err, ErrClosed) {
		t.Errorf("Render() after Close error = %v, want ErrClosed", err)
	}
}
