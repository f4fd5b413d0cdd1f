package viewer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestTransformPostScale(t *testing.T) {
	tr := NewTransform()
	tr.PostScale(2, 100, 50)

	// 焦点保持不动
	x, y := tr.Map(100, 50)
	if x != 100 || y != 50 {
		t.Errorf("focus moved to (%v, %v)", x, y)
	}
	x, y = tr.Map(0, 0)
	if x != -100 || y != -50 {
		t.Errorf("origin mapped to (%v, %v), want (-100, -50)", x, y)
	}
	if tr.ScaleX() != 2 {
		t.Errorf("ScaleX() = %v, want 2", tr.ScaleX())
	}
}

func TestTransformCompose(t *testing.T) {
	tr := NewTransform()
	tr.PostScale(2, 0, 0)
	tr.PostTranslate(10, 20)

	// 先缩放后平移
	x, y := tr.Map(5, 5)
	if x != 20 || y != 30 {
		t.Errorf("Map(5, 5) = (%v, %v), want (20, 30)", x, y)
	}

	want := TransformValues{2, 0, 10, 0, 2, 20, 0, 0, 1}
	if diff := cmp.Diff(want, tr.Values()); diff != "" {
		t.Errorf("Values() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([6]float64{2, 0, 10, 0, 2, 20}, [6]float64(tr.Aff3())); diff != "" {
		t.Errorf("Aff3() mismatch (-want +got):\n%s", diff)
	}
}

func TestTransformValuesRoundTrip(t *testing.T) {
	tr := NewTransform()
	tr.PostScale(2.5, 33.3, 71.1)
	tr.PostTranslate(-12.25, 8)

	restored := NewTransform()
	restored.SetValues(tr.Values())

	want := tr.Mat3()
	if diff := cmp.Diff(want, restored.Mat3(), cmpopts.EquateApprox(0, 1e-4)); diff != "" {
		t.Errorf("restored matrix mismatch (-want +got):\n%s", diff)
	}

	restored.Reset()
	if diff := cmp.Diff(IdentityValues, restored.Values()); diff != "" {
		t.Errorf("Reset() mismatch (-want +got):\n%s", diff)
	}
}
