// Package memimage provides a flat view of simulated physical memory.
//
// The relocation engine plans moves over machine addresses; during tests
// and simulation those addresses resolve into an Image, a contiguous byte
// buffer mapped at a fixed base address. An Image can be anonymous (a heap
// buffer) or backed by a dump file on disk, in which case it is mmapped so
// large images cost address space rather than RSS.
package memimage

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfBounds indicates an access outside the image.
	ErrOutOfBounds = errors.New("memimage: address out of bounds")
)

// Image is a contiguous span of simulated physical memory.
type Image struct {
	base uint64
	data []byte

	// closer and syncer are set for file-backed images only.
	closer func() error
	syncer func() error
}

// New returns an anonymous zero-filled image of size bytes mapped at base.
func New(base, size uint64) *Image {
	return &Image{base: base, data: make([]byte, size)}
}

// NewBacked wraps an existing buffer as an image mapped at base. The image
// aliases data; writes through the image are visible to the caller.
func NewBacked(base uint64, data []byte) *Image {
	return &Image{base: base, data: data}
}

// Base returns the physical address of the first byte.
func (im *Image) Base() uint64 { return im.base }

// Size returns the image size in bytes.
func (im *Image) Size() uint64 { return uint64(len(im.data)) }

// Bytes returns the whole backing buffer.
func (im *Image) Bytes() []byte { return im.data }

// Slice resolves [addr, addr+size) to the backing buffer. The range must
// lie entirely inside the image.
func (im *Image) Slice(addr, size uint64) ([]byte, error) {
	if addr < im.base || addr+size < addr {
		return nil, fmt.Errorf("%w: [%#x, +%#x)", ErrOutOfBounds, addr, size)
	}
	off := addr - im.base
	if off+size > uint64(len(im.data)) {
		return nil, fmt.Errorf("%w: [%#x, +%#x)", ErrOutOfBounds, addr, size)
	}
	return im.data[off : off+size], nil
}

// Contains reports whether [addr, addr+size) lies entirely inside the image.
func (im *Image) Contains(addr, size uint64) bool {
	_, err := im.Slice(addr, size)
	return err == nil
}

// Write copies b into the image at addr.
func (im *Image) Write(addr uint64, b []byte) error {
	dst, err := im.Slice(addr, uint64(len(b)))
	if err != nil {
		return err
	}
	copy(dst, b)
	return nil
}

// Read copies size bytes starting at addr out of the image.
func (im *Image) Read(addr, size uint64) ([]byte, error) {
	src, err := im.Slice(addr, size)
	if err != nil {
		return nil, err
	}
	out := make([]byte, size)
	copy(out, src)
	return out, nil
}

// Sync flushes a file-backed image to its backing file. Anonymous images
// are a no-op.
func (im *Image) Sync() error {
	if im.syncer == nil {
		return nil
	}
	return im.syncer()
}

// Close releases a file backing, if any. Anonymous images need no Close
// but tolerate one.
func (im *Image) Close() error {
	if im.closer == nil {
		return nil
	}
	c := im.closer
	im.closer = nil
	im.syncer = nil
	im.data = nil
	return c()
}
