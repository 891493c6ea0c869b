package fs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// TempPrefix marks in-progress files written by WriteAtomic.
const TempPrefix = ".tmp-"

// IsTemp reports whether name is an in-progress WriteAtomic file.
func IsTemp(name string) bool {
	return strings.HasPrefix(filepath.Base(name), TempPrefix)
}

// WriteAtomic publishes data at path via temp file, fsync and rename.
//
// The temp file lives in the destination directory so the rename never
// crosses filesystems. On any failure the temp file is removed and path is
// left untouched.
func WriteAtomic(fsys FileSystem, path string, data []byte, perm os.FileMode) (err error) {
	fsys = OrDefault(fsys)

	dir, base := filepath.Split(path)
	tmpName := filepath.Join(dir, TempPrefix+base+"-"+uuid.NewString())

	f, err := fsys.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = fsys.Remove(tmpName) // best effort cleanup
		}
	}()

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}

	return fsys.Rename(tmpName, path)
}
