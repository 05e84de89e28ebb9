package luxkernel

import "testing"

func TestSwapBufferInitReservesAtLeast512(t *testing.T) {
	b := NewSwapBuffer(10)
	if b.Cap() != swapInitialCapacity {
		t.Fatalf("Cap() = %d, want %d", b.Cap(), swapInitialCapacity)
	}
	if b.Size() != 0 {
		t.Fatalf("Size() = %d, want 0", b.Size())
	}
}

func TestSwapBufferInitDoublesPastReserve(t *testing.T) {
	b := NewSwapBuffer(1000)
	if b.Cap() != 1024 {
		t.Fatalf("Cap() = %d, want 1024", b.Cap())
	}
}

func TestSwapBufferWriteGrowsCapacityAndAdvancesSize(t *testing.T) {
	b := NewSwapBuffer(0)
	data := make([]byte, 600)
	for i := range data {
		data[i] = byte(i)
	}
	b.Write(0, data)
	if b.Cap() < 600 {
		t.Fatalf("Cap() = %d, want >= 600", b.Cap())
	}
	if b.Size() != 600 {
		t.Fatalf("Size() = %d, want 600", b.Size())
	}
}

func TestSwapBufferWriteWithinSizeDoesNotShrinkSize(t *testing.T) {
	b := NewSwapBuffer(0)
	b.Write(0, []byte("hello world"))
	b.Write(0, []byte("HI"))
	if b.Size() != 11 {
		t.Fatalf("Size() = %d, want 11", b.Size())
	}
	got := make([]byte, 11)
	b.Read(0, got)
	if string(got) != "HIllo world" {
		t.Fatalf("Read = %q, want %q", got, "HIllo world")
	}
}

func TestSwapBufferAppendExtendsAtCurrentSize(t *testing.T) {
	b := NewSwapBuffer(0)
	b.Append([]byte("abc"))
	b.Append([]byte("def"))
	got := make([]byte, 6)
	if _, err := b.Read(0, got); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(got) != "abcdef" {
		t.Fatalf("Read = %q, want %q", got, "abcdef")
	}
}

func TestSwapBufferReadOutOfBoundsFails(t *testing.T) {
	b := NewSwapBuffer(0)
	b.Append([]byte("abc"))
	if _, err := b.Read(0, make([]byte, 10)); err == nil {
		t.Fatal("Read past size succeeded, want error")
	}
}

func TestSwapBufferReserveIsNoOpWhenAlreadyLargeEnough(t *testing.T) {
	b := NewSwapBuffer(2000)
	before := b.Cap()
	b.Reserve(100)
	if b.Cap() != before {
		t.Fatalf("Cap() changed from %d to %d on a smaller Reserve", before, b.Cap())
	}
}

func TestSwapBufferFreeResetsToEmpty(t *testing.T) {
	b := NewSwapBuffer(0)
	b.Append([]byte("abc"))
	b.Free()
	if b.Size() != 0 || b.Cap() != 0 {
		t.Fatalf("after Free, Size()=%d Cap()=%d, want 0,0", b.Size(), b.Cap())
	}
}

func TestSwapBufferFlushPathThenLoadPathRoundTrips(t *testing.T) {
	fs, _ := newTestFS(t)

	b := NewSwapBuffer(0)
	b.Append([]byte("swapped bytes"))
	if err := b.FlushPath(fs, "/swap.bin"); err != nil {
		t.Fatalf("FlushPath failed: %v", err)
	}

	loaded := NewSwapBuffer(0)
	if err := loaded.LoadPath(fs, "/swap.bin"); err != nil {
		t.Fatalf("LoadPath failed: %v", err)
	}
	if loaded.Size() != b.Size() {
		t.Fatalf("loaded Size() = %d, want %d", loaded.Size(), b.Size())
	}
	got := make([]byte, loaded.Size())
	loaded.Read(0, got)
	if string(got) != "swapped bytes" {
		t.Fatalf("round-tripped content = %q, want %q", got, "swapped bytes")
	}
}

func TestSwapBufferFlushPathTruncatesLongerExistingFile(t *testing.T) {
	fs, _ := newTestFS(t)
	fs.Touch("/swap.bin")
	fs.Write("/swap.bin", 0, make([]byte, 2000), false)

	b := NewSwapBuffer(0)
	b.Append([]byte("short"))
	if err := b.FlushPath(fs, "/swap.bin"); err != nil {
		t.Fatalf("FlushPath failed: %v", err)
	}

	entries, err := fs.List("/swap.bin")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if entries[0].Size != 5 {
		t.Fatalf("size after overwrite = %d, want 5", entries[0].Size)
	}
}
