package viewer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/novvoo/go-pdf-reader/pkg/gopdf"
)

func fixedTarget(w, h int) TargetFunc {
	return func(float64, float64) (int, int) { return w, h }
}

func TestRenderGateSerializes(t *testing.T) {
	doc := newFakeDocument(8)
	doc.delay = 2 * time.Millisecond
	obs := &recordingObserver{}
	gate := NewRenderGate(doc, obs, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			bmp, err := gate.RenderPage(context.Background(), index%8, fixedTarget(4, 4))
			if err != nil {
				errs <- err
				return
			}
			if bmp.Page() != index%8 {
				errs <- errors.New("bitmap tagged with wrong page")
			}
			bmp.Release()
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("RenderPage() error = %v", err)
	}
	if obs.overlap {
		t.Error("critical sections overlapped")
	}
	if doc.overlap.Load() {
		t.Error("document saw two pages open at once")
	}
	if len(obs.events) != 64 {
		t.Errorf("observer saw %d events, want 64", len(obs.events))
	}
}

func TestRenderGateTargetSize(t *testing.T) {
	doc := newFakeDocument(1)
	doc.sizes[0] = [2]float64{612, 792}
	gate := NewRenderGate(doc, nil, nil)

	var gotW, gotH float64
	bmp, err := gate.RenderPage(context.Background(), 0, func(w, h float64) (int, int) {
		gotW, gotH = w, h
		return 30, 40
	})
	if err != nil {
		t.Fatalf("RenderPage() error = %v", err)
	}
	defer bmp.Release()

	if gotW != 612 || gotH != 792 {
		t.Errorf("target func got page size %vx%v, want 612x792", gotW, gotH)
	}
	if bmp.Width() != 30 || bmp.Height() != 40 {
		t.Errorf("bitmap %dx%d, want 30x40", bmp.Width(), bmp.Height())
	}
	if bmp.RefCount() != 1 {
		t.Errorf("RefCount() = %d, want 1", bmp.RefCount())
	}
}

func TestRenderGateErrors(t *testing.T) {
	doc := newFakeDocument(2)
	doc.setFail(1, true)
	gate := NewRenderGate(doc, nil, nil)

	_, err := gate.RenderPage(context.Background(), 1, fixedTarget(4, 4))
	if !errors.Is(err, gopdf.ErrRender) || !errors.Is(err, errCorruptPage) {
		t.Errorf("failing page error = %v, want ErrRender wrapping the page error", err)
	}
	_, err = gate.RenderPage(context.Background(), 5, fixedTarget(4, 4))
	if !errors.Is(err, gopdf.ErrRender) || !errors.Is(err, gopdf.ErrPageOutOfRange) {
		t.Errorf("out of range error = %v, want ErrRender wrapping ErrPageOutOfRange", err)
	}
	if _, err := gate.RenderPage(context.Background(), 0, fixedTarget(0, 4)); !errors.Is(err, gopdf.ErrRender) {
		t.Errorf("invalid size error = %v, want ErrRender", err)
	}

	// 失败的渲染释放了页面，后续渲染正常
	bmp, err := gate.RenderPage(context.Background(), 0, fixedTarget(4, 4))
	if err != nil {
		t.Fatalf("RenderPage() after failures error = %v", err)
	}
	bmp.Release()

	for _, b := range doc.rendered() {
		if b.Page() == 1 {
			t.Error("failed render produced a bitmap")
		}
	}
}

func TestRenderGateCancellation(t *testing.T) {
	doc := newFakeDocument(2)
	obs := &recordingObserver{}
	gate := NewRenderGate(doc, obs, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := gate.RenderPage(ctx, 0, fixedTarget(4, 4)); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled RenderPage error = %v, want context.Canceled", err)
	}

	// 渲染进行中取消：完成临界区后释放结果
	unblock := doc.blockPage(1)
	ctx, cancel = context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := gate.RenderPage(ctx, 1, fixedTarget(4, 4))
		done <- err
	}()

	for doc.renderCount(1) == 0 {
		time.Sleep(time.Millisecond)
	}
	cancel()
	unblock()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("RenderPage cancelled mid-render error = %v, want context.Canceled", err)
	}
	out := doc.rendered()
	if len(out) != 1 || !out[0].IsRecycled() {
		t.Error("render finished after cancellation was not released")
	}

	// 等待闸门的调用方取消后不会进入临界区
	unblock = doc.blockPage(0)
	go gate.RenderPage(context.Background(), 0, fixedTarget(4, 4))
	for doc.renderCount(0) == 0 {
		time.Sleep(time.Millisecond)
	}
	waitCtx, waitCancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer waitCancel()
	if _, err := gate.RenderPage(waitCtx, 1, fixedTarget(4, 4)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("waiting RenderPage error = %v, want DeadlineExceeded", err)
	}
	unblock()
}
