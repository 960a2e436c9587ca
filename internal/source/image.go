package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	diskfs "github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/disk"
	"github.com/diskfs/go-diskfs/filesystem"
)

// Extensions of disk images that may hold layout files
var imageExts = map[string]bool{
	".iso": true,
	".img": true,
}

// SplitImagePath splits image.iso:/dir/file.gds into the image path and
// the absolute path inside the image. Paths naming an existing file are
// never split.
func SplitImagePath(path string) (image, inner string, ok bool) {
	idx := strings.Index(path, ":/")
	if idx <= 0 {
		return "", "", false
	}
	image, inner = path[:idx], path[idx+1:]
	if !imageExts[strings.ToLower(filepath.Ext(image))] {
		return "", "", false
	}
	if _, err := os.Stat(path); err == nil {
		return "", "", false
	}
	return image, inner, true
}

// imageFile keeps the image open while one of its files is read
type imageFile struct {
	filesystem.File
	disk *disk.Disk
}

func (f *imageFile) Close() error {
	err := f.File.Close()
	if derr := f.disk.Close(); err == nil {
		err = derr
	}
	return err
}

// openInImage opens inner from the filesystem spanning the whole image
func openInImage(image, inner string) (io.ReadCloser, error) {
	d, err := diskfs.Open(image, diskfs.WithOpenMode(diskfs.ReadOnly))
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", image, err)
	}

	fs, err := d.GetFilesystem(0)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("read filesystem of %s: %w", image, err)
	}

	f, err := fs.OpenFile(inner, os.O_RDONLY)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("open %s in %s: %w", inner, image, err)
	}
	return &imageFile{File: f, disk: d}, nil
}
