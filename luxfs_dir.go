// luxfs_dir.go - directory records: lookup, append, and name encoding
//
// License: GPLv3 or later

package luxkernel

import (
	"bytes"
	"encoding/binary"
)

// DirRecord is one 36-byte entry in a directory's data.
type DirRecord struct {
	Inode uint32
	Name  [fsNameMax]byte
}

func encodeName(name string) [fsNameMax]byte {
	var out [fsNameMax]byte
	copy(out[:], name)
	return out
}

func nameString(raw [fsNameMax]byte) string {
	n := bytes.IndexByte(raw[:], 0)
	if n == -1 {
		return string(raw[:])
	}
	return string(raw[:n])
}

func (r DirRecord) encode() []byte {
	buf := make([]byte, fsDirRecordSize)
	binary.LittleEndian.PutUint32(buf[0:4], r.Inode)
	copy(buf[4:], r.Name[:])
	return buf
}

func decodeDirRecord(buf []byte) DirRecord {
	var r DirRecord
	r.Inode = binary.LittleEndian.Uint32(buf[0:4])
	copy(r.Name[:], buf[4:4+fsNameMax])
	return r
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// readInodeDataLocked reads exactly inode.Size bytes from its direct
// blocks into one contiguous buffer. Used for directory data (always a
// multiple of the record size) and for small file reads.
func (fs *FS) readInodeDataLocked(inode Inode) ([]byte, error) {
	out := make([]byte, inode.Size)
	offset := uint32(0)
	for i := 0; i < fsMaxDirect && offset < inode.Size; i++ {
		if inode.Direct[i] == fsInvalidBlock {
			return nil, ErrCorrupt
		}
		blk := make([]byte, fsBlockSize)
		if err := fs.readBlock(inode.Direct[i], blk); err != nil {
			return nil, err
		}
		n := inode.Size - offset
		if n > fsBlockSize {
			n = fsBlockSize
		}
		copy(out[offset:offset+n], blk[:n])
		offset += n
	}
	return out, nil
}

// dirLookupLocked scans dirIdx's records for name, returning its inode
// index. ok is false if no record matches.
func (fs *FS) dirLookupLocked(dirIdx uint32, name string) (uint32, bool, error) {
	data, err := fs.readInodeDataLocked(fs.inodes[dirIdx])
	if err != nil {
		return 0, false, err
	}
	count := len(data) / fsDirRecordSize
	for i := 0; i < count; i++ {
		rec := decodeDirRecord(data[i*fsDirRecordSize : (i+1)*fsDirRecordSize])
		if nameString(rec.Name) == name {
			return rec.Inode, true, nil
		}
	}
	return 0, false, nil
}

// dirAppendLocked grows dirIdx's directory by one record, allocating and
// zero-filling whatever new direct blocks the record's bytes spill into,
// then persisting the touched data block(s) and the directory's inode.
func (fs *FS) dirAppendLocked(dirIdx uint32, rec DirRecord) error {
	dir := &fs.inodes[dirIdx]
	offset := dir.Size
	end := offset + fsDirRecordSize
	if end > fsMaxFileSize {
		return ErrExhausted
	}

	startBlock := offset / fsBlockSize
	endBlock := (end - 1) / fsBlockSize
	for bi := startBlock; bi <= endBlock; bi++ {
		if dir.Direct[bi] == fsInvalidBlock {
			abs, err := fs.allocateDataBlockLocked()
			if err != nil {
				return err
			}
			dir.Direct[bi] = abs
		}
	}

	recBytes := rec.encode()
	written := uint32(0)
	for bi := startBlock; bi <= endBlock; bi++ {
		blk := make([]byte, fsBlockSize)
		if err := fs.readBlock(dir.Direct[bi], blk); err != nil {
			return err
		}
		blockStart := bi * fsBlockSize
		segStart := maxU32(offset+written, blockStart)
		segEnd := minU32(end, blockStart+fsBlockSize)
		copy(blk[segStart-blockStart:segEnd-blockStart], recBytes[written:written+(segEnd-segStart)])
		if err := fs.writeBlock(dir.Direct[bi], blk); err != nil {
			return err
		}
		written += segEnd - segStart
	}

	dir.Size = end
	return fs.flushInode(dirIdx)
}
