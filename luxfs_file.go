// luxfs_file.go - file read/write/remove
//
// License: GPLv3 or later

package luxkernel

import "fmt"

// Read resolves path to a file inode and copies up to len(buf) bytes
// starting at offset into buf, through a sector-sized bounce buffer. The
// offset is clamped to the file's size; it returns the number of bytes
// actually read.
func (fs *FS) Read(path string, offset uint32, buf []byte) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	idx, err := fs.resolveLocked(path)
	if err != nil {
		return 0, err
	}
	inode := fs.inodes[idx]
	if inode.Type != TypeFile {
		return 0, ErrTypeMismatch
	}
	if offset >= inode.Size {
		return 0, nil
	}

	toRead := inode.Size - offset
	if uint32(len(buf)) < toRead {
		toRead = uint32(len(buf))
	}

	startBlock := offset / fsBlockSize
	endBlock := (offset + toRead - 1) / fsBlockSize
	read := uint32(0)
	for bi := startBlock; bi <= endBlock; bi++ {
		if inode.Direct[bi] == fsInvalidBlock {
			return int(read), ErrCorrupt
		}
		blk := make([]byte, fsBlockSize)
		if err := fs.readBlock(inode.Direct[bi], blk); err != nil {
			return int(read), err
		}
		blockStart := bi * fsBlockSize
		segStart := maxU32(offset+read, blockStart)
		segEnd := minU32(offset+toRead, blockStart+fsBlockSize)
		copy(buf[read:read+(segEnd-segStart)], blk[segStart-blockStart:segEnd-blockStart])
		read += segEnd - segStart
	}
	return int(read), nil
}

// Write validates offset+len(data) <= fsMaxFileSize and rejects a write
// that would leave a hole past the size the file will have once
// truncated (if truncate is set), before touching any block — a write
// that fails validation never frees or zeroes existing content. Once
// validated, it optionally truncates, allocates direct blocks on demand
// (zeroed on allocation), writes through, and persists the inode.
func (fs *FS) Write(path string, offset uint32, data []byte, truncate bool) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	idx, err := fs.resolveLocked(path)
	if err != nil {
		return 0, err
	}
	inode := &fs.inodes[idx]
	if inode.Type != TypeFile {
		return 0, ErrTypeMismatch
	}

	end := offset + uint32(len(data))
	if end > fsMaxFileSize {
		return 0, fmt.Errorf("%w: write of %d bytes at offset %d exceeds %d-byte file limit", ErrBounds, len(data), offset, fsMaxFileSize)
	}
	sizeAfterTruncate := inode.Size
	if truncate {
		sizeAfterTruncate = 0
	}
	if offset > sizeAfterTruncate {
		return 0, fmt.Errorf("%w: write at offset %d would leave a hole past size %d", ErrInvalidArgument, offset, sizeAfterTruncate)
	}

	if truncate {
		for i, d := range inode.Direct {
			if d != fsInvalidBlock {
				if err := fs.freeDataBlockLocked(d); err != nil {
					return 0, err
				}
				inode.Direct[i] = fsInvalidBlock
			}
		}
		inode.Size = 0
	}
	if len(data) == 0 {
		return 0, fs.flushInode(idx)
	}

	startBlock := offset / fsBlockSize
	endBlock := (end - 1) / fsBlockSize
	for bi := startBlock; bi <= endBlock; bi++ {
		if inode.Direct[bi] == fsInvalidBlock {
			abs, err := fs.allocateDataBlockLocked()
			if err != nil {
				return 0, err
			}
			inode.Direct[bi] = abs
		}
	}

	written := uint32(0)
	for bi := startBlock; bi <= endBlock; bi++ {
		blk := make([]byte, fsBlockSize)
		if err := fs.readBlock(inode.Direct[bi], blk); err != nil {
			return int(written), err
		}
		blockStart := bi * fsBlockSize
		segStart := maxU32(offset+written, blockStart)
		segEnd := minU32(end, blockStart+fsBlockSize)
		copy(blk[segStart-blockStart:segEnd-blockStart], data[written:written+(segEnd-segStart)])
		if err := fs.writeBlock(inode.Direct[bi], blk); err != nil {
			return int(written), err
		}
		written += segEnd - segStart
	}

	if end > inode.Size {
		inode.Size = end
	}
	if err := fs.flushInode(idx); err != nil {
		return int(written), err
	}
	return int(written), nil
}

// Remove frees a file's inode and every direct block it holds. The
// directory record that named it is left in place as a dangling entry;
// List already skips records whose inode is free or out of range.
func (fs *FS) Remove(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	idx, err := fs.resolveLocked(path)
	if err != nil {
		return err
	}
	if fs.inodes[idx].Type != TypeFile {
		return ErrTypeMismatch
	}
	return fs.freeInodeLocked(idx)
}
