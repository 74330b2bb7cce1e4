package book

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Storage is the interface for writing package parts (XML and media files).
// Implementations can write to ZIP archives or directory structures.
type Storage interface {
	WriteBlob(path string, blob []byte) error
}

// DirStorage writes package parts to a directory structure on disk.
// This is useful for debugging as it allows inspection of generated XML files.
type DirStorage struct {
	Dir string // Root directory path
}

// ZipStorage writes package parts to a ZIP archive, creating a standard .xlsx file.
type ZipStorage struct {
	z *zip.Writer
}

func NewDirStorage(dir string) *DirStorage {
	return &DirStorage{
		Dir: dir,
	}
}

// WriteBlob writes a part to the directory structure, creating parent
// directories as needed.
func (ds *DirStorage) WriteBlob(path string, blob []byte) error {
	path = strings.TrimPrefix(path, "/")
	fn := filepath.Join(ds.Dir, filepath.FromSlash(path))
	err := os.MkdirAll(filepath.Dir(fn), 0777)
	if err != nil {
		return err
	}
	return os.WriteFile(fn, blob, 0666)
}

func NewZipStorage(out io.Writer) *ZipStorage {
	return &ZipStorage{z: zip.NewWriter(out)}
}

// WriteBlob writes a part to the ZIP archive.
func (zs *ZipStorage) WriteBlob(path string, blob []byte) error {
	path = strings.TrimPrefix(path, "/")
	f, err := zs.z.Create(path)
	if err != nil {
		return err
	}
	_, err = f.Write(blob)
	return err
}

// Close finalizes the ZIP archive. Must be called after all writes are complete.
// Failure to call Close will result in an invalid/corrupted .xlsx file.
func (zs *ZipStorage) Close() error {
	return zs.z.Close()
}

type part struct {
	name string
	data []byte
}

// memStorage keeps parts in memory, in write order.
type memStorage struct {
	parts []part
}

func (ms *memStorage) WriteBlob(path string, blob []byte) error {
	ms.parts = append(ms.parts, part{
		name: strings.TrimPrefix(path, "/"),
		data: append([]byte(nil), blob...),
	})
	return nil
}
