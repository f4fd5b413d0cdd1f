package prefs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/novvoo/go-pdf-reader/pkg/gopdf"
	"github.com/novvoo/go-pdf-reader/pkg/viewer"
)

// 存储键
const (
	KeyQuality      = "quality_multiplier"
	KeyMaxBitmapDim = "max_bitmap_dim"
	KeyLastDocument = "last_doc_uri"
	KeyDriveLink    = "drive_link"
	KeyList         = "doc_list"
	KeyListIndex    = "doc_list_index"

	zoomPrefix = "zoom:"
)

// Prefs 阅读器偏好设置的类型化访问
type Prefs struct {
	kv  KV
	log *gopdf.Logger
}

// New 基于键值存储创建偏好设置
func New(kv KV) *Prefs {
	return &Prefs{kv: kv, log: gopdf.GetLogger().Named("prefs")}
}

// Close 关闭底层存储
func (p *Prefs) Close() error {
	return p.kv.Close()
}

// Quality 渲染质量倍数；未设置时返回 def
func (p *Prefs) Quality(def float64) (float64, error) {
	s, ok, err := p.kv.Get(KeyQuality)
	if err != nil || !ok {
		return def, err
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return def, fmt.Errorf("%w: %s=%q", ErrCorruptValue, KeyQuality, s)
	}
	return v, nil
}

// SetQuality 保存渲染质量倍数
func (p *Prefs) SetQuality(v float64) error {
	return p.kv.Set(KeyQuality, strconv.FormatFloat(v, 'g', -1, 32))
}

// MaxBitmapDim 位图最大边长；未设置时返回 def
func (p *Prefs) MaxBitmapDim(def int) (int, error) {
	s, ok, err := p.kv.Get(KeyMaxBitmapDim)
	if err != nil || !ok {
		return def, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def, fmt.Errorf("%w: %s=%q", ErrCorruptValue, KeyMaxBitmapDim, s)
	}
	return v, nil
}

// SetMaxBitmapDim 保存位图最大边长
func (p *Prefs) SetMaxBitmapDim(v int) error {
	return p.kv.Set(KeyMaxBitmapDim, strconv.Itoa(v))
}

// LastDocument 上次打开的文档位置
func (p *Prefs) LastDocument() (string, bool, error) {
	s, ok, err := p.kv.Get(KeyLastDocument)
	if err != nil || !ok || s == "" {
		return "", false, err
	}
	return s, true, nil
}

// SetLastDocument 记录上次打开的文档；空字符串清除记录
func (p *Prefs) SetLastDocument(loc string) error {
	if loc == "" {
		return p.kv.Delete(KeyLastDocument)
	}
	return p.kv.Set(KeyLastDocument, loc)
}

// DriveLink 文档列表的链接
func (p *Prefs) DriveLink() (string, error) {
	s, _, err := p.kv.Get(KeyDriveLink)
	return s, err
}

// SetDriveLink 保存文档列表的链接
func (p *Prefs) SetDriveLink(link string) error {
	return p.kv.Set(KeyDriveLink, strings.TrimSpace(link))
}

// List 已下载的文档列表
func (p *Prefs) List() ([]string, error) {
	s, ok, err := p.kv.Get(KeyList)
	if err != nil || !ok || s == "" {
		return nil, err
	}
	return strings.Split(s, "\n"), nil
}

// SetList 保存文档列表（按行存储）
func (p *Prefs) SetList(items []string) error {
	return p.kv.Set(KeyList, strings.Join(items, "\n"))
}

// ListIndex 列表中下一个要打开的位置
func (p *Prefs) ListIndex() (int, error) {
	s, ok, err := p.kv.Get(KeyListIndex)
	if err != nil || !ok {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s=%q", ErrCorruptValue, KeyListIndex, s)
	}
	return v, nil
}

// SetListIndex 保存列表位置
func (p *Prefs) SetListIndex(i int) error {
	return p.kv.Set(KeyListIndex, strconv.Itoa(i))
}

func zoomDocPrefix(doc string) string {
	return zoomPrefix + doc + ":"
}

func zoomKey(doc string, page int) string {
	return zoomDocPrefix(doc) + strconv.Itoa(page)
}

// SaveZoomMatrix 保存页面缩放矩阵（逗号分隔）；少于 9 个值时不保存
func (p *Prefs) SaveZoomMatrix(doc string, page int, values []float32) error {
	if len(values) < 9 {
		return nil
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return p.kv.Set(zoomKey(doc, page), strings.Join(parts, ","))
}

// LoadZoomMatrix 读取页面缩放矩阵；不存在或内容损坏时 ok=false
// 内容损坏时同时返回 ErrCorruptValue。
func (p *Prefs) LoadZoomMatrix(doc string, page int) (viewer.TransformValues, bool, error) {
	var values viewer.TransformValues
	key := zoomKey(doc, page)
	s, ok, err := p.kv.Get(key)
	if err != nil || !ok {
		return values, false, err
	}

	parts := strings.Split(s, ",")
	if len(parts) < 9 {
		return values, false, fmt.Errorf("%w: %s has %d values", ErrCorruptValue, key, len(parts))
	}
	for i := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 32)
		if err != nil {
			return viewer.TransformValues{}, false, fmt.Errorf("%w: %s=%q", ErrCorruptValue, key, s)
		}
		values[i] = float32(f)
	}
	if !viewer.ZoomInRange(values) {
		return viewer.TransformValues{}, false, fmt.Errorf("%w: %s=%q out of range", ErrCorruptValue, key, s)
	}
	return values, true, nil
}

// ClearAllZoomForDoc 删除文档的全部缩放记录，其他文档不受影响
func (p *Prefs) ClearAllZoomForDoc(doc string) error {
	n, err := p.kv.DeletePrefix(zoomDocPrefix(doc))
	if err != nil {
		return err
	}
	p.log.Debug("cleared %d zoom entries of %s", n, doc)
	return nil
}

// ResetSettings 恢复质量设置为默认（只删除质量与最大边长）
func (p *Prefs) ResetSettings() error {
	return p.kv.Delete(KeyQuality, KeyMaxBitmapDim)
}

// Transforms 绑定到一个文档的缩放矩阵存储
func (p *Prefs) Transforms(doc string) viewer.TransformStore {
	return &docTransforms{prefs: p, doc: doc}
}

type docTransforms struct {
	prefs *Prefs
	doc   string
}

func (d *docTransforms) SaveTransform(page int, values viewer.TransformValues) error {
	return d.prefs.SaveZoomMatrix(d.doc, page, values[:])
}

func (d *docTransforms) LoadTransform(page int) (viewer.TransformValues, bool, error) {
	return d.prefs.LoadZoomMatrix(d.doc, page)
}
