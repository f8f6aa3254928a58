package buffer

import (
	"bytes"
	"io"
	"testing"
)

func TestSliceCursorWriteAndBytes(t *testing.T) {
	var c SliceCursor
	c.Write([]byte("hello "))
	c.Write([]byte("world"))
	if c.Len() != 11 {
		t.Fatalf("len = %d, want 11", c.Len())
	}
	if got := string(c.Bytes()); got != "hello world" {
		t.Fatalf("got %q", got)
	}
}

func TestSliceCursorReadDrains(t *testing.T) {
	var c SliceCursor
	c.Write([]byte("abc"))
	c.Write([]byte("def"))

	buf := make([]byte, 4)
	n, err := c.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf[:n]) != "abcd" {
		t.Fatalf("got %q", buf[:n])
	}
	n, err = c.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf[:n]) != "ef" {
		t.Fatalf("got %q", buf[:n])
	}
	_, err = c.Read(buf)
	if err != io.EOF {
		t.Fatalf("got err %v, want io.EOF", err)
	}
}

func TestSliceCursorReset(t *testing.T) {
	var c SliceCursor
	c.Write([]byte("abc"))
	c.Reset()
	if c.Len() != 0 || !bytes.Equal(c.Bytes(), []byte{}) {
		t.Fatal("Reset must clear the cursor")
	}
}
