package session

import (
	"context"
	"strings"

	"github.com/novvoo/go-pdf-reader/pkg/gopdf"
	"github.com/novvoo/go-pdf-reader/pkg/remote"
	"github.com/novvoo/go-pdf-reader/pkg/viewer"
)

// Document 会话独占的文档
type Document interface {
	viewer.Document
	Close() error
}

// Opener 按位置（本地路径或 http(s) 链接）打开文档
type Opener interface {
	Open(ctx context.Context, locator string) (Document, error)
}

// OpenerFunc 函数形式的 Opener
type OpenerFunc func(ctx context.Context, locator string) (Document, error)

func (f OpenerFunc) Open(ctx context.Context, locator string) (Document, error) {
	return f(ctx, locator)
}

// PDFOpener 打开本地 PDF；链接先下载到 DownloadDir
type PDFOpener struct {
	Client      *remote.Client
	DownloadDir string
}

// IsRemote 位置是否为 http(s) 链接
func IsRemote(locator string) bool {
	l := strings.ToLower(strings.TrimSpace(locator))
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

func (o PDFOpener) Open(ctx context.Context, locator string) (Document, error) {
	path := strings.TrimSpace(locator)
	if IsRemote(path) {
		client := o.Client
		if client == nil {
			client = remote.NewClient()
		}
		downloaded, err := client.Download(ctx, path, o.DownloadDir)
		if err != nil {
			return nil, err
		}
		path = downloaded
	}

	doc, err := gopdf.OpenDocument(path)
	if err != nil {
		return nil, err
	}
	return pdfHandle{Document: viewer.FromPDF(doc), doc: doc}, nil
}

type pdfHandle struct {
	viewer.Document
	doc *gopdf.Document
}

func (h pdfHandle) Close() error { return h.doc.Close() }
