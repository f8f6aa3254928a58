package content

import (
	"bytes"
	"testing"
)

func TestZlibRoundTrip(t *testing.T) {
	p, err := NewPipeline([]Encoding{{Order: 0, Algo: AlgoZlib}})
	if err != nil {
		t.Fatal(err)
	}
	original := bytes.Repeat([]byte("hello matroska "), 50)
	stored, err := p.EncodeForStorage(original)
	if err != nil {
		t.Fatal(err)
	}
	got, err := p.DecodeFromStorage(stored)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, original) {
		t.Fatal("zlib round trip mismatch")
	}
}

func TestHeaderRemovalRoundTrip(t *testing.T) {
	prefix := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	p, err := NewPipeline([]Encoding{{Order: 0, Algo: AlgoHeaderStripped, Settings: prefix}})
	if err != nil {
		t.Fatal(err)
	}
	original := append(append([]byte{}, prefix...), []byte("payload")...)
	stored, err := p.EncodeForStorage(original)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.HasPrefix(stored, prefix) {
		t.Fatal("stored form should have the prefix stripped")
	}
	got, err := p.DecodeFromStorage(stored)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, original) {
		t.Fatal("header-removal round trip mismatch")
	}
}

func TestPipelineSortsAscendingByOrder(t *testing.T) {
	p, err := NewPipeline([]Encoding{
		{Order: 2, Algo: AlgoZlib},
		{Order: 0, Algo: AlgoHeaderStripped, Settings: []byte{0xAA}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.stages[0].Order != 0 || p.stages[1].Order != 2 {
		t.Fatalf("stages not sorted: %+v", p.stages)
	}
}

func TestUnknownAlgorithmRejected(t *testing.T) {
	if _, err := NewPipeline([]Encoding{{Order: 0, Algo: 99}}); err == nil {
		t.Fatal("expected an error for an unrecognized ContentCompAlgo")
	}
}

func TestBzlibDecodeOnly(t *testing.T) {
	p, err := NewPipeline([]Encoding{{Order: 0, Algo: AlgoBzlib}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.EncodeForStorage([]byte("x")); err == nil {
		t.Fatal("expected bzlib encode to be unsupported")
	}
}
