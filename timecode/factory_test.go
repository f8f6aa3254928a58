package timecode

import (
	"strings"
	"testing"
)

func TestV1FactoryDefaultAndRange(t *testing.T) {
	f, err := ParseV1(strings.NewReader("25\n0,9,50\n"))
	if err != nil {
		t.Fatal(err)
	}
	// frames 0..9 at 50fps (20ms each), then default 25fps (40ms each)
	t5, err := f.GetNext(5)
	if err != nil {
		t.Fatal(err)
	}
	if t5.NS() != 5*20_000_000 {
		t.Fatalf("got %d, want %d", t5.NS(), 5*20_000_000)
	}
	t10, err := f.GetNext(10)
	if err != nil {
		t.Fatal(err)
	}
	if t10.NS() != 10*20_000_000 {
		t.Fatalf("got %d, want %d", t10.NS(), 10*20_000_000)
	}
	t11, err := f.GetNext(11)
	if err != nil {
		t.Fatal(err)
	}
	wantDelta := int64(1e9 / 25)
	if t11.NS()-t10.NS() != wantDelta {
		t.Fatalf("delta after range = %d, want %d", t11.NS()-t10.NS(), wantDelta)
	}
}

func TestV2FactoryExplicitList(t *testing.T) {
	f, err := ParseV2(strings.NewReader("0\n40\n80\n120\n"))
	if err != nil {
		t.Fatal(err)
	}
	tc, err := f.GetNext(2)
	if err != nil {
		t.Fatal(err)
	}
	if tc.NS() != 80_000_000 {
		t.Fatalf("got %d, want 80000000", tc.NS())
	}
	dur := f.Duration(0, None)
	if dur.NS() != 40_000_000 {
		t.Fatalf("duration(0) = %d, want 40000000", dur.NS())
	}
}

func TestV2FactoryRejectsDescending(t *testing.T) {
	if _, err := ParseV2(strings.NewReader("0\n40\n10\n")); err == nil {
		t.Fatal("expected error for non-ascending timestamps")
	}
}

func TestV3FactoryGap(t *testing.T) {
	f, err := ParseV3(strings.NewReader("25\n1.0,10\n0.5,-1\n1.0,10\n"))
	if err != nil {
		t.Fatal(err)
	}
	// 10 frames at 10fps in the first second, then a 0.5s gap, then 10 more.
	if len(f.frameStart) != 20 {
		t.Fatalf("got %d frames, want 20", len(f.frameStart))
	}
	if !f.ContainsGap(9) {
		t.Fatal("expected a gap recorded after frame 9")
	}
	tc, err := f.GetNext(10)
	if err != nil {
		t.Fatal(err)
	}
	wantStart := int64(1.5 * 1e9)
	if tc.NS() != wantStart {
		t.Fatalf("first frame after gap = %d, want %d", tc.NS(), wantStart)
	}
}
