package demo

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestBuildParseRequestRoundTrip(t *testing.T) {
	reqs := []ObjectRequest{{StreamID: 100, Index: 3}, {StreamID: 101, Index: 0}, {StreamID: 102, Index: 9}}

	encoded := BuildRequest(reqs)
	decoded := ParseRequest(encoded)

	if !reflect.DeepEqual(decoded, reqs) {
		t.Errorf("ParseRequest(BuildRequest(reqs)) = %+v, want %+v", decoded, reqs)
	}
}

func TestParseRequestSkipsMalformedFields(t *testing.T) {
	decoded := ParseRequest([]byte("3:1 garbage 5:2 6:notanumber"))
	want := []ObjectRequest{{StreamID: 3, Index: 1}, {StreamID: 5, Index: 2}}
	if !reflect.DeepEqual(decoded, want) {
		t.Errorf("ParseRequest with malformed fields = %+v, want %+v", decoded, want)
	}
}

func TestIsFin(t *testing.T) {
	if !IsFin(FinStreamID, []byte("fin")) {
		t.Error("IsFin did not recognize the fin sentinel")
	}
	if IsFin(FinStreamID, []byte("not fin")) {
		t.Error("IsFin accepted a non-sentinel payload")
	}
	if IsFin(1, []byte("fin")) {
		t.Error("IsFin accepted the sentinel on the wrong stream")
	}
}

func TestGenerateObjectsSizeBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	objects := GenerateObjects(rng, 20, 100, 200)
	if len(objects) != 20 {
		t.Fatalf("GenerateObjects returned %d objects, want 20", len(objects))
	}
	for i, obj := range objects {
		if len(obj) < 100 || len(obj) > 200 {
			t.Errorf("object %d size = %d, want [100,200]", i, len(obj))
		}
	}
}

func TestNewRequestIDIsUnique(t *testing.T) {
	a := NewRequestID()
	b := NewRequestID()
	if a == b {
		t.Error("NewRequestID returned the same id twice")
	}
}
