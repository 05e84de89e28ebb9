// luxfs.go - on-disk layout, mount, format, and the inode/block allocators
//
// A compact UNIX-like filesystem: fixed-size superblock, two bitmap
// blocks, a flat inode table, direct-only inode blocks. Encoding follows
// a hand-rolled little-endian layout rather than reflection-based
// marshaling, the way a disk-format struct is laid out byte-for-byte
// rather than described declaratively.
//
// License: GPLv3 or later

package luxkernel

import (
	"encoding/binary"
	"fmt"
	"sync"
)

const (
	fsBlockSize  = 512
	fsStartLBA   = 2048
	fsTotalSectors = 4096

	fsInodeCount       = 128
	fsInodeSize        = 64
	fsInodesPerBlock   = fsBlockSize / fsInodeSize
	fsInodeTableStart  = 3
	fsInodeTableBlocks = (fsInodeCount*fsInodeSize + fsBlockSize - 1) / fsBlockSize
	fsDataStart        = fsInodeTableStart + fsInodeTableBlocks
	fsDataBlockCount   = fsTotalSectors - fsDataStart

	fsNameMax       = 32
	fsDirRecordSize = 4 + fsNameMax
	fsMaxDirect     = 8
	fsMaxFileSize   = fsMaxDirect * fsBlockSize
	fsMaxPathDepth  = 8

	fsInvalidBlock uint32 = 0xFFFFFFFF
	fsRootInode    uint32 = 0
)

var fsMagic = [4]byte{'L', 'U', 'X', 'F'}

const fsVersion = 1

// InodeType is one of Free, Dir, or File.
type InodeType uint32

const (
	TypeFree InodeType = 0
	TypeDir  InodeType = 1
	TypeFile InodeType = 2
)

// Superblock is the fixed on-disk header describing the filesystem's
// layout and bounds.
type Superblock struct {
	Magic           [4]byte
	Version         uint32
	BlockSize       uint32
	StartLBA        uint32
	TotalSectors    uint32
	InodeTableStart uint32
	InodeCount      uint32
	DataBlockStart  uint32
	DataBlockCount  uint32
	RootInode       uint32
}

func (sb Superblock) valid() bool {
	return sb.Magic == fsMagic &&
		sb.Version == fsVersion &&
		sb.BlockSize == fsBlockSize &&
		sb.StartLBA == fsStartLBA &&
		sb.TotalSectors == fsTotalSectors
}

func (sb Superblock) encode() []byte {
	buf := make([]byte, fsBlockSize)
	copy(buf[0:4], sb.Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], sb.Version)
	binary.LittleEndian.PutUint32(buf[8:12], sb.BlockSize)
	binary.LittleEndian.PutUint32(buf[12:16], sb.StartLBA)
	binary.LittleEndian.PutUint32(buf[16:20], sb.TotalSectors)
	binary.LittleEndian.PutUint32(buf[20:24], sb.InodeTableStart)
	binary.LittleEndian.PutUint32(buf[24:28], sb.InodeCount)
	binary.LittleEndian.PutUint32(buf[28:32], sb.DataBlockStart)
	binary.LittleEndian.PutUint32(buf[32:36], sb.DataBlockCount)
	binary.LittleEndian.PutUint32(buf[36:40], sb.RootInode)
	return buf
}

func decodeSuperblock(buf []byte) Superblock {
	var sb Superblock
	copy(sb.Magic[:], buf[0:4])
	sb.Version = binary.LittleEndian.Uint32(buf[4:8])
	sb.BlockSize = binary.LittleEndian.Uint32(buf[8:12])
	sb.StartLBA = binary.LittleEndian.Uint32(buf[12:16])
	sb.TotalSectors = binary.LittleEndian.Uint32(buf[16:20])
	sb.InodeTableStart = binary.LittleEndian.Uint32(buf[20:24])
	sb.InodeCount = binary.LittleEndian.Uint32(buf[24:28])
	sb.DataBlockStart = binary.LittleEndian.Uint32(buf[28:32])
	sb.DataBlockCount = binary.LittleEndian.Uint32(buf[32:36])
	sb.RootInode = binary.LittleEndian.Uint32(buf[36:40])
	return sb
}

func defaultSuperblock() Superblock {
	return Superblock{
		Magic:           fsMagic,
		Version:         fsVersion,
		BlockSize:       fsBlockSize,
		StartLBA:        fsStartLBA,
		TotalSectors:    fsTotalSectors,
		InodeTableStart: fsInodeTableStart,
		InodeCount:      fsInodeCount,
		DataBlockStart:  fsDataStart,
		DataBlockCount:  fsDataBlockCount,
		RootInode:       fsRootInode,
	}
}

// Inode is the 64-byte on-disk record for one file or directory.
type Inode struct {
	Type   InodeType
	Size   uint32
	Parent uint32
	Direct [fsMaxDirect]uint32
}

func freeInodeRecord() Inode {
	inode := Inode{Type: TypeFree}
	for i := range inode.Direct {
		inode.Direct[i] = fsInvalidBlock
	}
	return inode
}

func (ino Inode) encode() []byte {
	buf := make([]byte, fsInodeSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(ino.Type))
	binary.LittleEndian.PutUint32(buf[4:8], ino.Size)
	binary.LittleEndian.PutUint32(buf[8:12], ino.Parent)
	for i, d := range ino.Direct {
		binary.LittleEndian.PutUint32(buf[12+4*i:16+4*i], d)
	}
	return buf
}

func decodeInode(buf []byte) Inode {
	var ino Inode
	ino.Type = InodeType(binary.LittleEndian.Uint32(buf[0:4]))
	ino.Size = binary.LittleEndian.Uint32(buf[4:8])
	ino.Parent = binary.LittleEndian.Uint32(buf[8:12])
	for i := range ino.Direct {
		ino.Direct[i] = binary.LittleEndian.Uint32(buf[12+4*i : 16+4*i])
	}
	return ino
}

// FS is the mounted filesystem's in-memory state: superblock, both
// bitmaps, and the full inode table, all mirrored to the ATA-backed
// region starting at LBA fsStartLBA.
type FS struct {
	mu sync.Mutex

	ata *ATAController

	sb          Superblock
	inodeBitmap [fsBlockSize]byte
	dataBitmap  [fsBlockSize]byte
	inodes      [fsInodeCount]Inode
}

// NewFS returns an unmounted filesystem.
func NewFS() *FS {
	return &FS{}
}

func (fs *FS) readBlock(block uint32, buf []byte) error {
	return fs.ata.ReadSectors(fsStartLBA+block, 1, buf)
}

func (fs *FS) writeBlock(block uint32, buf []byte) error {
	return fs.ata.WriteSectors(fsStartLBA+block, 1, buf)
}

func (fs *FS) inodeBlockAndOffset(idx uint32) (uint32, int) {
	return fsInodeTableStart + idx/fsInodesPerBlock, int(idx%fsInodesPerBlock) * fsInodeSize
}

// flushInode writes inode idx's containing block back to disk.
func (fs *FS) flushInode(idx uint32) error {
	block, _ := fs.inodeBlockAndOffset(idx)
	buf := make([]byte, fsBlockSize)
	base := (block - fsInodeTableStart) * fsInodesPerBlock
	for i := 0; i < fsInodesPerBlock; i++ {
		copy(buf[i*fsInodeSize:(i+1)*fsInodeSize], fs.inodes[base+uint32(i)].encode())
	}
	return fs.writeBlock(block, buf)
}

func (fs *FS) flushInodeBitmap() error { return fs.writeBlock(1, fs.inodeBitmap[:]) }
func (fs *FS) flushDataBitmap() error  { return fs.writeBlock(2, fs.dataBitmap[:]) }

func bitGet(bitmap []byte, idx uint32) bool {
	return bitmap[idx/8]&(1<<(idx%8)) != 0
}

func bitSet(bitmap []byte, idx uint32) {
	bitmap[idx/8] |= 1 << (idx % 8)
}

func bitClear(bitmap []byte, idx uint32) {
	bitmap[idx/8] &^= 1 << (idx % 8)
}

// Mount ensures the drive is ready and loads (or formats, if the
// superblock is absent or invalid) the filesystem's metadata into memory.
func (fs *FS) Mount(ata *ATAController) error {
	fs.ata = ata
	if ata.TotalSectors() < fsStartLBA+fsTotalSectors {
		return fmt.Errorf("%w: disk has %d sectors, need at least %d", ErrUnavailable, ata.TotalSectors(), fsStartLBA+fsTotalSectors)
	}

	sbBuf := make([]byte, fsBlockSize)
	if err := fs.readBlock(0, sbBuf); err != nil {
		return err
	}
	sb := decodeSuperblock(sbBuf)
	if !sb.valid() {
		return fs.format()
	}
	fs.sb = sb

	if err := fs.readBlock(1, fs.inodeBitmap[:]); err != nil {
		return err
	}
	if err := fs.readBlock(2, fs.dataBitmap[:]); err != nil {
		return err
	}
	for b := 0; b < fsInodeTableBlocks; b++ {
		blk := make([]byte, fsBlockSize)
		if err := fs.readBlock(fsInodeTableStart+uint32(b), blk); err != nil {
			return err
		}
		for i := 0; i < fsInodesPerBlock; i++ {
			fs.inodes[b*fsInodesPerBlock+i] = decodeInode(blk[i*fsInodeSize : (i+1)*fsInodeSize])
		}
	}
	return nil
}

// format zeroes every inode, marks the root inode as an allocated
// directory parented to itself, and persists the superblock, both
// bitmaps, and the whole inode table.
func (fs *FS) format() error {
	fs.sb = defaultSuperblock()
	for i := range fs.inodeBitmap {
		fs.inodeBitmap[i] = 0
	}
	for i := range fs.dataBitmap {
		fs.dataBitmap[i] = 0
	}
	for i := range fs.inodes {
		fs.inodes[i] = freeInodeRecord()
	}

	root := freeInodeRecord()
	root.Type = TypeDir
	root.Parent = fsRootInode
	fs.inodes[fsRootInode] = root
	bitSet(fs.inodeBitmap[:], fsRootInode)

	if err := fs.writeBlock(0, fs.sb.encode()); err != nil {
		return err
	}
	if err := fs.flushInodeBitmap(); err != nil {
		return err
	}
	if err := fs.flushDataBitmap(); err != nil {
		return err
	}
	for b := 0; b < fsInodeTableBlocks; b++ {
		buf := make([]byte, fsBlockSize)
		base := uint32(b) * fsInodesPerBlock
		for i := 0; i < fsInodesPerBlock; i++ {
			copy(buf[i*fsInodeSize:(i+1)*fsInodeSize], fs.inodes[base+uint32(i)].encode())
		}
		if err := fs.writeBlock(fsInodeTableStart+uint32(b), buf); err != nil {
			return err
		}
	}
	return nil
}

// allocateInodeLocked returns the index of a free inode with its bit
// already set (and flushed), or ErrExhausted.
func (fs *FS) allocateInodeLocked() (uint32, error) {
	for i := uint32(0); i < fsInodeCount; i++ {
		if !bitGet(fs.inodeBitmap[:], i) {
			bitSet(fs.inodeBitmap[:], i)
			if err := fs.flushInodeBitmap(); err != nil {
				return 0, err
			}
			return i, nil
		}
	}
	return 0, ErrExhausted
}

// freeInodeLocked releases every direct block the inode holds, zeroes it,
// and clears its bitmap bit.
func (fs *FS) freeInodeLocked(idx uint32) error {
	inode := fs.inodes[idx]
	for _, d := range inode.Direct {
		if d != fsInvalidBlock {
			if err := fs.freeDataBlockLocked(d); err != nil {
				return err
			}
		}
	}
	fs.inodes[idx] = freeInodeRecord()
	if err := fs.flushInode(idx); err != nil {
		return err
	}
	bitClear(fs.inodeBitmap[:], idx)
	return fs.flushInodeBitmap()
}

// allocateDataBlockLocked returns an absolute block number (already
// offset by fsDataStart) for a zero-filled, newly allocated data block.
func (fs *FS) allocateDataBlockLocked() (uint32, error) {
	for i := uint32(0); i < fsDataBlockCount; i++ {
		if !bitGet(fs.dataBitmap[:], i) {
			bitSet(fs.dataBitmap[:], i)
			if err := fs.flushDataBitmap(); err != nil {
				return 0, err
			}
			abs := fsDataStart + i
			zero := make([]byte, fsBlockSize)
			if err := fs.writeBlock(abs, zero); err != nil {
				return 0, err
			}
			return abs, nil
		}
	}
	return 0, ErrExhausted
}

func (fs *FS) freeDataBlockLocked(abs uint32) error {
	rel := abs - fsDataStart
	bitClear(fs.dataBitmap[:], rel)
	return fs.flushDataBitmap()
}
