package luxkernel

import "testing"

func newTestFS(t *testing.T) (*FS, *ATAController) {
	t.Helper()
	bus := NewIOBus()
	drive := NewVirtualDisk(fsStartLBA + fsTotalSectors)
	drive.Attach(bus)
	ata := NewATAController(bus)
	if err := ata.Init(); err != nil {
		t.Fatalf("ATA Init failed: %v", err)
	}
	fs := NewFS()
	if err := fs.Mount(ata); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	return fs, ata
}

func TestLuxfsMountOnBlankDiskFormats(t *testing.T) {
	fs, _ := newTestFS(t)
	if fs.inodes[fsRootInode].Type != TypeDir {
		t.Fatalf("root inode type = %v, want Dir", fs.inodes[fsRootInode].Type)
	}
	if !bitGet(fs.inodeBitmap[:], fsRootInode) {
		t.Fatal("root inode bit not set after format")
	}
}

func TestLuxfsMountFailsOnUndersizedDisk(t *testing.T) {
	bus := NewIOBus()
	drive := NewVirtualDisk(1024)
	drive.Attach(bus)
	ata := NewATAController(bus)
	ata.Init()
	fs := NewFS()
	if err := fs.Mount(ata); err == nil {
		t.Fatal("Mount on an undersized disk succeeded, want error")
	}
}

func TestLuxfsRemountLoadsExistingMetadataWithoutReformatting(t *testing.T) {
	bus := NewIOBus()
	drive := NewVirtualDisk(fsStartLBA + fsTotalSectors)
	drive.Attach(bus)
	ata := NewATAController(bus)
	ata.Init()

	fs1 := NewFS()
	if err := fs1.Mount(ata); err != nil {
		t.Fatalf("first mount failed: %v", err)
	}
	if err := fs1.Touch("/hello"); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}

	fs2 := NewFS()
	if err := fs2.Mount(ata); err != nil {
		t.Fatalf("second mount failed: %v", err)
	}
	entries, err := fs2.List("/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "hello" {
		t.Fatalf("List after remount = %+v, want one entry named hello", entries)
	}
}

func TestLuxfsTouchThenListRoot(t *testing.T) {
	fs, _ := newTestFS(t)
	if err := fs.Touch("/a.txt"); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}
	entries, err := fs.List("/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "a.txt" || entries[0].Type != TypeFile {
		t.Fatalf("List = %+v, want one file a.txt", entries)
	}
}

func TestLuxfsTouchExistingFileSucceeds(t *testing.T) {
	fs, _ := newTestFS(t)
	if err := fs.Touch("/a.txt"); err != nil {
		t.Fatalf("first Touch failed: %v", err)
	}
	if err := fs.Touch("/a.txt"); err != nil {
		t.Fatalf("second Touch on existing file failed: %v", err)
	}
}

func TestLuxfsTouchOverExistingDirFails(t *testing.T) {
	fs, _ := newTestFS(t)
	if err := fs.Mkdir("/d"); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}
	if err := fs.Touch("/d"); err == nil {
		t.Fatal("Touch over an existing directory succeeded, want error")
	}
}

func TestLuxfsMkdirOverExistingPathFails(t *testing.T) {
	fs, _ := newTestFS(t)
	if err := fs.Mkdir("/d"); err != nil {
		t.Fatalf("first Mkdir failed: %v", err)
	}
	if err := fs.Mkdir("/d"); err == nil {
		t.Fatal("Mkdir over an existing directory succeeded, want error")
	}
}

func TestLuxfsNestedPathAndDotDot(t *testing.T) {
	fs, _ := newTestFS(t)
	if err := fs.Mkdir("/a"); err != nil {
		t.Fatalf("Mkdir /a failed: %v", err)
	}
	if err := fs.Mkdir("/a/b"); err != nil {
		t.Fatalf("Mkdir /a/b failed: %v", err)
	}
	if err := fs.Touch("/a/b/../b/leaf"); err != nil {
		t.Fatalf("Touch through .. failed: %v", err)
	}
	entries, err := fs.List("/a/b")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "leaf" {
		t.Fatalf("List /a/b = %+v, want one entry named leaf", entries)
	}
}

func TestLuxfsPathExceedingMaxDepthFails(t *testing.T) {
	fs, _ := newTestFS(t)
	deep := ""
	for i := 0; i < fsMaxPathDepth+1; i++ {
		deep += "/x"
	}
	if err := fs.Touch(deep); err == nil {
		t.Fatal("Touch on an over-deep path succeeded, want error")
	}
}

func TestLuxfsWriteThenReadRoundTrips(t *testing.T) {
	fs, _ := newTestFS(t)
	fs.Touch("/a.txt")

	want := []byte("hello, luxfs")
	n, err := fs.Write("/a.txt", 0, want, false)
	if err != nil || n != len(want) {
		t.Fatalf("Write = (%d, %v), want (%d, nil)", n, err, len(want))
	}

	got := make([]byte, len(want))
	n, err = fs.Read("/a.txt", 0, got)
	if err != nil || n != len(want) {
		t.Fatalf("Read = (%d, %v), want (%d, nil)", n, err, len(want))
	}
	if string(got) != string(want) {
		t.Fatalf("Read = %q, want %q", got, want)
	}
}

func TestLuxfsWriteSpanningMultipleBlocks(t *testing.T) {
	fs, _ := newTestFS(t)
	fs.Touch("/big")

	data := make([]byte, fsBlockSize+100)
	for i := range data {
		data[i] = byte(i)
	}
	n, err := fs.Write("/big", 0, data, false)
	if err != nil || n != len(data) {
		t.Fatalf("Write = (%d, %v), want (%d, nil)", n, err, len(data))
	}

	got := make([]byte, len(data))
	n, err = fs.Read("/big", 0, got)
	if err != nil || n != len(data) {
		t.Fatalf("Read = (%d, %v), want (%d, nil)", n, err, len(data))
	}
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("byte %d = %#02x, want %#02x", i, got[i], data[i])
		}
	}
}

func TestLuxfsWriteRejectsHole(t *testing.T) {
	fs, _ := newTestFS(t)
	fs.Touch("/a.txt")
	if _, err := fs.Write("/a.txt", 100, []byte("x"), false); err == nil {
		t.Fatal("write past current size (a hole) succeeded, want error")
	}
}

func TestLuxfsWriteRejectsOverMaxSize(t *testing.T) {
	fs, _ := newTestFS(t)
	fs.Touch("/a.txt")
	if _, err := fs.Write("/a.txt", 0, make([]byte, fsMaxFileSize+1), false); err == nil {
		t.Fatal("write exceeding max file size succeeded, want error")
	}
}

func TestLuxfsTruncateResetsSizeAndReleasesBlocks(t *testing.T) {
	fs, _ := newTestFS(t)
	fs.Touch("/a.txt")
	fs.Write("/a.txt", 0, make([]byte, fsBlockSize*2), false)

	before := uint32(0)
	for _, d := range fs.dataBitmap {
		before += uint32(popcount(d))
	}

	if _, err := fs.Write("/a.txt", 0, []byte("new"), true); err != nil {
		t.Fatalf("truncating write failed: %v", err)
	}

	idx, _ := fs.resolveLocked("/a.txt")
	if fs.inodes[idx].Size != 3 {
		t.Fatalf("size after truncating write = %d, want 3", fs.inodes[idx].Size)
	}

	// The file's two blocks are released and one is allocated for "new".
	after := uint32(0)
	for _, d := range fs.dataBitmap {
		after += uint32(popcount(d))
	}
	if after != before-1 {
		t.Fatalf("allocated data blocks after truncating write = %d, want %d", after, before-1)
	}
}

func popcount(b byte) int {
	n := 0
	for b != 0 {
		n += int(b & 1)
		b >>= 1
	}
	return n
}

func TestLuxfsRemoveFreesInodeAndListSkipsDanglingRecord(t *testing.T) {
	fs, _ := newTestFS(t)
	fs.Touch("/a.txt")
	if err := fs.Remove("/a.txt"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	entries, err := fs.List("/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("List after Remove = %+v, want empty (dangling record skipped)", entries)
	}
}

func TestLuxfsDirectoryRecordSpansBlockBoundary(t *testing.T) {
	fs, _ := newTestFS(t)
	fs.Mkdir("/d")
	perBlock := fsBlockSize / fsDirRecordSize
	// Create enough entries that at least one record straddles the
	// boundary between the first and second allocated data block.
	for i := 0; i < perBlock+3; i++ {
		name := "/d/f" + string(rune('a'+i))
		if err := fs.Touch(name); err != nil {
			t.Fatalf("Touch %s failed: %v", name, err)
		}
	}
	entries, err := fs.List("/d")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != perBlock+3 {
		t.Fatalf("List /d returned %d entries, want %d", len(entries), perBlock+3)
	}
}
