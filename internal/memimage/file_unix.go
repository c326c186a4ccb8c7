//go:build linux || darwin

package memimage

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// OpenFile mmaps a dump file RW as an image based at base, so moves
// performed by the simulator mutate the file in place.
func OpenFile(path string, base uint64) (*Image, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	sz := st.Size()
	if sz == 0 {
		_ = f.Close()
		return nil, fmt.Errorf("memimage: empty image file: %s", path)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(sz), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("memimage: mmap failed: %w", err)
	}

	return &Image{
		base: base,
		data: data,
		closer: func() error {
			merr := unix.Munmap(data)
			cerr := f.Close()
			if merr != nil {
				return merr
			}
			return cerr
		},
		syncer: func() error {
			return unix.Msync(data, unix.MS_SYNC)
		},
	}, nil
}
