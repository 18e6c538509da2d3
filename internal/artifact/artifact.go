// Package artifact holds the in-memory file value passed between the upload
// form, the rasterizer and the blob store.
package artifact

import (
	"bytes"
	"io"
	"path"
	"strings"
)

// File is an ephemeral in-memory file.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the byte length.
func (f File) Size() int64 {
	return int64(len(f.Data))
}

// Empty reports whether the file has no bytes.
func (f File) Empty() bool {
	return len(f.Data) == 0
}

// Missing reports whether no file was chosen at all. A named file with no
// bytes is not missing.
func (f File) Missing() bool {
	return f.Name == "" && len(f.Data) == 0
}

// Reader returns a fresh reader over the file contents.
func (f File) Reader() io.Reader {
	return bytes.NewReader(f.Data)
}

// BaseName returns the name without directory and extension.
func (f File) BaseName() string {
	name := path.Base(strings.ReplaceAll(f.Name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return strings.TrimSuffix(name, path.Ext(name))
}
