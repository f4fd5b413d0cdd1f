package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/novvoo/go-pdf-reader/pkg/gopdf"
)

// 超时设置
const (
	ConnectTimeout  = 15 * time.Second
	ListTimeout     = 30 * time.Second
	DocumentTimeout = 60 * time.Second
)

// ErrEmptyList 列表内容为空
var ErrEmptyList = errors.New("empty list")

// NetworkError 网络请求失败
type NetworkError struct {
	Op  string // "list" 或 "download"
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

var driveFileLink = regexp.MustCompile(`https?://drive\.google\.com/file/d/([a-zA-Z0-9_-]+)/?`)

// NormalizeDriveLink 将 Google Drive 文件分享链接转换为直接下载链接，其他链接只去除首尾空白
func NormalizeDriveLink(link string) string {
	l := strings.TrimSpace(link)
	if m := driveFileLink.FindStringSubmatch(l); m != nil {
		return "https://drive.google.com/uc?export=download&id=" + m[1]
	}
	return l
}

// Client 下载文档列表与文档
type Client struct {
	HTTP            *http.Client
	ListTimeout     time.Duration
	DocumentTimeout time.Duration
	Now             func() time.Time
	log             *gopdf.Logger
}

// NewClient 创建使用默认超时的客户端
func NewClient() *Client {
	dialer := &net.Dialer{Timeout: ConnectTimeout}
	return &Client{
		HTTP: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           dialer.DialContext,
				TLSHandshakeTimeout:   ConnectTimeout,
				ResponseHeaderTimeout: ListTimeout,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		ListTimeout:     ListTimeout,
		DocumentTimeout: DocumentTimeout,
		Now:             time.Now,
		log:             gopdf.GetLogger().Named("remote"),
	}
}

func (c *Client) logger() *gopdf.Logger {
	if c.log == nil {
		c.log = gopdf.GetLogger().Named("remote")
	}
	return c.log
}

// get 发起 GET 请求，非 2xx 视为失败；调用方负责关闭响应体
func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return resp, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// FetchList 下载文本列表，每行一个链接（去除空白与空行）
func (c *Client) FetchList(ctx context.Context, link string) ([]string, error) {
	url := NormalizeDriveLink(link)
	ctx, cancel := withTimeout(ctx, c.ListTimeout)
	defer cancel()

	fail := func(err error) ([]string, error) {
		c.logger().Warn("fetch list %s failed: %v", url, err)
		return nil, &NetworkError{Op: "list", URL: url, Err: err}
	}

	resp, err := c.get(ctx, url)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(err)
	}

	var items []string
	for _, line := range strings.Split(string(body), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			items = append(items, line)
		}
	}
	if len(items) == 0 {
		return fail(ErrEmptyList)
	}
	c.logger().Info("fetched %d entries from %s", len(items), url)
	return items, nil
}

// DefaultDownloadDir 未指定下载目录时使用的目录
func DefaultDownloadDir() string {
	return filepath.Join(os.TempDir(), "pdfreader")
}

// Download 下载文档到 dir/dl_<毫秒时间戳>.pdf，返回文件路径
// dir 为空时使用 DefaultDownloadDir；失败时不留下部分写入的文件。
func (c *Client) Download(ctx context.Context, link, dir string) (string, error) {
	url := NormalizeDriveLink(link)
	if dir == "" {
		dir = DefaultDownloadDir()
	}
	ctx, cancel := withTimeout(ctx, c.DocumentTimeout)
	defer cancel()

	fail := func(err error) (string, error) {
		c.logger().Warn("download %s failed: %v", url, err)
		return "", &NetworkError{Op: "download", URL: url, Err: err}
	}

	resp, err := c.get(ctx, url)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fail(err)
	}
	tmp, err := os.CreateTemp(dir, "dl_*.part")
	if err != nil {
		return fail(err)
	}
	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fail(err)
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	path := filepath.Join(dir, fmt.Sprintf("dl_%d.pdf", now().UnixMilli()))
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fail(err)
	}
	c.logger().Info("downloaded %d bytes from %s to %s", n, url, path)
	return path, nil
}
