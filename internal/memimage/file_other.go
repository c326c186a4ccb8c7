//go:build !linux && !darwin

package memimage

import (
	"fmt"
	"io"
	"os"
)

// OpenFile loads a dump file into memory as an image based at base. On
// platforms without mmap support the whole file is read up front and
// written back on Sync and Close.
func OpenFile(path string, base uint64) (*Image, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	sz := st.Size()
	if sz == 0 {
		f.Close()
		return nil, fmt.Errorf("memimage: empty image file: %s", path)
	}

	buf := make([]byte, sz)
	if _, err := io.ReadFull(f, buf); err != nil {
		f.Close()
		return nil, err
	}

	im := &Image{base: base, data: buf}
	flush := func() error {
		if _, err := f.WriteAt(im.data, 0); err != nil {
			return err
		}
		return f.Sync()
	}
	im.syncer = flush
	im.closer = func() error {
		werr := flush()
		cerr := f.Close()
		if werr != nil {
			return werr
		}
		return cerr
	}
	return im, nil
}
