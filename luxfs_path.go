// luxfs_path.go - path tokenizing, resolution, touch/mkdir/list
//
// License: GPLv3 or later

package luxkernel

import (
	"fmt"
	"strings"
)

// splitPath tokenizes path by '/', dropping empty and "." components, and
// fails if more than fsMaxPathDepth components remain.
func splitPath(path string) ([]string, error) {
	raw := strings.Split(path, "/")
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		if tok == "" || tok == "." {
			continue
		}
		tokens = append(tokens, tok)
	}
	if len(tokens) > fsMaxPathDepth {
		return nil, fmt.Errorf("%w: path exceeds max depth %d", ErrInvalidArgument, fsMaxPathDepth)
	}
	return tokens, nil
}

// resolveLocked walks path from the root inode, following ".." as "go to
// parent". It returns the inode index of the final component.
func (fs *FS) resolveLocked(path string) (uint32, error) {
	tokens, err := splitPath(path)
	if err != nil {
		return 0, err
	}
	cur := fs.sb.RootInode
	for _, tok := range tokens {
		if tok == ".." {
			cur = fs.inodes[cur].Parent
			continue
		}
		if fs.inodes[cur].Type != TypeDir {
			return 0, ErrNotFound
		}
		next, ok, err := fs.dirLookupLocked(cur, tok)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, ErrNotFound
		}
		cur = next
	}
	return cur, nil
}

// resolveParentLocked splits path into its parent directory and leaf
// name, validating the leaf is non-empty and not "." or "..".
func (fs *FS) resolveParentLocked(path string) (parent uint32, leaf string, err error) {
	tokens, err := splitPath(path)
	if err != nil {
		return 0, "", err
	}
	if len(tokens) == 0 {
		return 0, "", fmt.Errorf("%w: empty leaf name", ErrInvalidArgument)
	}
	leaf = tokens[len(tokens)-1]
	if leaf == "." || leaf == ".." {
		return 0, "", fmt.Errorf("%w: %q is not a valid leaf name", ErrInvalidArgument, leaf)
	}
	if len(leaf) > fsNameMax-1 {
		return 0, "", fmt.Errorf("%w: name %q exceeds %d bytes", ErrInvalidArgument, leaf, fsNameMax-1)
	}

	cur := fs.sb.RootInode
	for _, tok := range tokens[:len(tokens)-1] {
		if tok == ".." {
			cur = fs.inodes[cur].Parent
			continue
		}
		if fs.inodes[cur].Type != TypeDir {
			return 0, "", ErrNotFound
		}
		next, ok, err := fs.dirLookupLocked(cur, tok)
		if err != nil {
			return 0, "", err
		}
		if !ok {
			return 0, "", ErrNotFound
		}
		cur = next
	}
	return cur, leaf, nil
}

func (fs *FS) createLocked(path string, wantType InodeType) (uint32, error) {
	parent, leaf, err := fs.resolveParentLocked(path)
	if err != nil {
		return 0, err
	}

	if existing, ok, err := fs.dirLookupLocked(parent, leaf); err != nil {
		return 0, err
	} else if ok {
		existingType := fs.inodes[existing].Type
		if wantType == TypeFile && existingType == TypeFile {
			return existing, nil
		}
		return 0, fmt.Errorf("%w: %q already exists", ErrInvalidArgument, leaf)
	}

	idx, err := fs.allocateInodeLocked()
	if err != nil {
		return 0, err
	}
	fs.inodes[idx] = freeInodeRecord()
	fs.inodes[idx].Type = wantType
	fs.inodes[idx].Parent = parent
	if err := fs.flushInode(idx); err != nil {
		_ = fs.freeInodeLocked(idx)
		return 0, err
	}

	if err := fs.dirAppendLocked(parent, DirRecord{Inode: idx, Name: encodeName(leaf)}); err != nil {
		_ = fs.freeInodeLocked(idx)
		return 0, err
	}
	return idx, nil
}

// Touch resolves path's parent and creates a File inode for its leaf. If
// the leaf already exists as a file, Touch succeeds as a no-op; if it
// exists as a directory, Touch fails.
func (fs *FS) Touch(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	_, err := fs.createLocked(path, TypeFile)
	return err
}

// Mkdir is Touch for a Dir inode, except the path must not already exist.
func (fs *FS) Mkdir(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	parent, leaf, err := fs.resolveParentLocked(path)
	if err != nil {
		return err
	}
	if _, ok, err := fs.dirLookupLocked(parent, leaf); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: %q already exists", ErrInvalidArgument, leaf)
	}
	_, err = fs.createLocked(path, TypeDir)
	return err
}

// Dirent is one entry of a List result.
type Dirent struct {
	Name string
	Type InodeType
	Size uint32
}

// List reports one dirent for path if it is a file, or one dirent per
// valid record if it is a directory.
func (fs *FS) List(path string) ([]Dirent, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	idx, err := fs.resolveLocked(path)
	if err != nil {
		return nil, err
	}
	inode := fs.inodes[idx]
	if inode.Type == TypeFile {
		base := path[strings.LastIndex(path, "/")+1:]
		return []Dirent{{Name: base, Type: TypeFile, Size: inode.Size}}, nil
	}

	data, err := fs.readInodeDataLocked(inode)
	if err != nil {
		return nil, err
	}
	count := len(data) / fsDirRecordSize
	var out []Dirent
	for i := 0; i < count; i++ {
		rec := decodeDirRecord(data[i*fsDirRecordSize : (i+1)*fsDirRecordSize])
		if rec.Inode >= fsInodeCount || !bitGet(fs.inodeBitmap[:], rec.Inode) {
			continue
		}
		child := fs.inodes[rec.Inode]
		out = append(out, Dirent{Name: nameString(rec.Name), Type: child.Type, Size: child.Size})
	}
	return out, nil
}
