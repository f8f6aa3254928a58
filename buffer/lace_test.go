package buffer

import (
	"bytes"
	"testing"
)

func TestFixedLaceRoundTrip(t *testing.T) {
	frames := [][]byte{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	header, err := Lace(frames, LaceFixed)
	if err != nil {
		t.Fatal(err)
	}
	data := bytes.Join(frames, nil)
	got, err := Unlace(data, int(header[0])+1, LaceFixed)
	if err != nil {
		t.Fatal(err)
	}
	assertFramesEqual(t, frames, got)
}

func TestXiphLaceRoundTrip(t *testing.T) {
	frames := [][]byte{
		make([]byte, 300), // forces a 0xFF continuation byte
		make([]byte, 10),
		make([]byte, 5),
	}
	for i := range frames[0] {
		frames[0][i] = byte(i)
	}
	header, err := Lace(frames, LaceXiph)
	if err != nil {
		t.Fatal(err)
	}
	sizeHeader := header[1:] // drop the frame-count byte
	data := append(append([]byte{}, sizeHeader...), bytes.Join(frames, nil)...)
	got, err := Unlace(data, int(header[0])+1, LaceXiph)
	if err != nil {
		t.Fatal(err)
	}
	assertFramesEqual(t, frames, got)
}

func TestEBMLLaceRoundTrip(t *testing.T) {
	frames := [][]byte{
		make([]byte, 100),
		make([]byte, 50),
		make([]byte, 150),
		make([]byte, 20),
	}
	header, err := Lace(frames, LaceEBML)
	if err != nil {
		t.Fatal(err)
	}
	sizeHeader := header[1:]
	data := append(append([]byte{}, sizeHeader...), bytes.Join(frames, nil)...)
	got, err := Unlace(data, int(header[0])+1, LaceEBML)
	if err != nil {
		t.Fatal(err)
	}
	assertFramesEqual(t, frames, got)
}

func TestUnlaceSingleFrameIsIdentity(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	got, err := Unlace(data, 1, LaceXiph)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !bytes.Equal(got[0], data) {
		t.Fatalf("got %v, want single frame %v", got, data)
	}
}

func assertFramesEqual(t *testing.T, want, got [][]byte) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("frame count: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if !bytes.Equal(want[i], got[i]) {
			t.Fatalf("frame %d: got %d bytes, want %d bytes", i, len(got[i]), len(want[i]))
		}
	}
}
