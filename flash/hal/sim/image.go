package sim

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/ardnew/dataflash/flash/chip"
	"github.com/ardnew/dataflash/pkg"
)

// Image defines the interface for the main memory array of a simulated chip.
// Offsets are raw byte offsets into the array; the content is stored as it
// appears on the wire (erased bytes are 0xFF).
type Image interface {
	// Size returns the size of the array in bytes.
	Size() uint32

	// ReadAt reads len(p) bytes starting at off.
	ReadAt(p []byte, off int64) (int, error)

	// WriteAt writes len(p) bytes starting at off.
	WriteAt(p []byte, off int64) (int, error)

	// Sync flushes any cached writes to storage.
	Sync() error

	// Close releases the image.
	Close() error
}

// MemoryImage implements Image using an in-memory buffer.
type MemoryImage struct {
	data  []byte
	mutex sync.RWMutex
}

// NewMemoryImage creates an erased in-memory image of size bytes.
func NewMemoryImage(size uint32) *MemoryImage {
	return &MemoryImage{data: bytes.Repeat([]byte{chip.ErasedWire}, int(size))}
}

// Size returns the image size.
func (m *MemoryImage) Size() uint32 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return uint32(len(m.data))
}

// ReadAt reads bytes from memory.
func (m *MemoryImage) ReadAt(p []byte, off int64) (int, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if off < 0 || off+int64(len(p)) > int64(len(m.data)) {
		return 0, io.EOF
	}

	return copy(p, m.data[off:]), nil
}

// WriteAt writes bytes to memory.
func (m *MemoryImage) WriteAt(p []byte, off int64) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if off < 0 || off+int64(len(p)) > int64(len(m.data)) {
		return 0, io.EOF
	}

	return copy(m.data[off:], p), nil
}

// Bytes returns a copy of the whole array.
func (m *MemoryImage) Bytes() []byte {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return bytes.Clone(m.data)
}

// Sync is a no-op for memory images.
func (m *MemoryImage) Sync() error {
	return nil
}

// Close is a no-op for memory images.
func (m *MemoryImage) Close() error {
	return nil
}

// FileImage implements Image using a file, so simulated flash content
// survives across runs of the command line tool.
type FileImage struct {
	file     *os.File
	size     uint32
	readOnly bool
	mutex    sync.RWMutex
}

// NewFileImage opens the image file at path, creating it if necessary.
// A new or short file is padded to size bytes with the erased pattern.
// If readOnly is true, the file is opened read-only and must already hold
// size bytes.
func NewFileImage(path string, size uint32, readOnly bool) (*FileImage, error) {
	flags := os.O_RDWR | os.O_CREATE
	if readOnly {
		flags = os.O_RDONLY
	}

	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, err
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	if have := stat.Size(); have < int64(size) {
		if readOnly {
			file.Close()
			return nil, io.ErrUnexpectedEOF
		}
		pad := bytes.Repeat([]byte{chip.ErasedWire}, int(int64(size)-have))
		if _, err := file.WriteAt(pad, have); err != nil {
			file.Close()
			return nil, err
		}
	}

	return &FileImage{
		file:     file,
		size:     size,
		readOnly: readOnly,
	}, nil
}

// Size returns the image size.
func (f *FileImage) Size() uint32 {
	return f.size
}

// ReadAt reads bytes from the file.
func (f *FileImage) ReadAt(p []byte, off int64) (int, error) {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	if f.file == nil {
		return 0, os.ErrClosed
	}

	if off < 0 || off+int64(len(p)) > int64(f.size) {
		return 0, io.EOF
	}

	return f.file.ReadAt(p, off)
}

// WriteAt writes bytes to the file.
func (f *FileImage) WriteAt(p []byte, off int64) (int, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.file == nil {
		return 0, os.ErrClosed
	}

	if f.readOnly {
		return 0, pkg.ErrReadOnly
	}

	if off < 0 || off+int64(len(p)) > int64(f.size) {
		return 0, io.EOF
	}

	return f.file.WriteAt(p, off)
}

// Sync flushes file writes to disk.
func (f *FileImage) Sync() error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.readOnly || f.file == nil {
		return nil
	}

	return f.file.Sync()
}

// Close closes the underlying file.
func (f *FileImage) Close() error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.file != nil {
		err := f.file.Close()
		f.file = nil
		return err
	}
	return nil
}
