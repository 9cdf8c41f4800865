// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar

import (
	"bytes"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/pierrec/lz4"
)

// maxHeaderSize bounds the allocation for a header read from an
// untrusted file.
const maxHeaderSize = 64 << 20

// maxPrealloc bounds what ReadAll allocates up front from a recorded size.
const maxPrealloc = 1 << 20

// Open opens the kar archived from r. It will also check
// if the file is actually a kar archive, will return an error
// when file incorrect.
func Open(r io.ReaderAt) (*Archive, error) {
	prefix := make([]byte, MagicLength+HeaderSizeNumberLength)
	if num, err := r.ReadAt(prefix, 0); num < len(prefix) {
		if err == nil || err == io.EOF {
			return nil, ErrFileFormat
		}
		return nil, err
	}
	if !bytes.Equal(prefix[:MagicLength], magic[:]) {
		return nil, ErrFileFormat
	}

	headerSize, err := binaryToint64(prefix[MagicLength:])
	if err != nil {
		return nil, err
	}
	if headerSize > maxHeaderSize {
		return nil, ErrFileFormat
	}

	headerBytes := make([]byte, headerSize)
	if num, err := r.ReadAt(headerBytes, int64(len(prefix))); int64(num) < headerSize {
		if err == nil || err == io.EOF {
			return nil, ErrFileFormat
		}
		return nil, err
	}

	var header Header
	if err := gobDecode(&header, headerBytes); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decoding header"), ErrFileFormat)
	}

	dataOffset := int64(len(prefix)) + headerSize
	dataSize := int64(-1)
	if sized, ok := r.(interface{ Size() int64 }); ok {
		dataSize = sized.Size() - dataOffset
	}

	index := make(map[string]int, len(header.Index))
	for i, e := range header.Index {
		if !e.within(dataSize) {
			return nil, errors.Wrapf(ErrFileFormat, "index entry %q", e.Name)
		}
		index[e.Name] = i
	}
	return &Archive{
		reader:     r,
		header:     header,
		dataOffset: dataOffset,
		index:      index,
	}, nil
}

// within reports whether the entry is well formed and, when dataSize is
// known, lies inside the data region.
func (e IndexEntry) within(dataSize int64) bool {
	if e.Offset < 0 || e.Size < 0 || e.CompressedSize < 0 {
		return false
	}
	if dataSize < 0 {
		return true
	}
	return e.Offset <= dataSize && e.CompressedSize <= dataSize-e.Offset
}

// Archive provides concurrent io for a kar file, and can provide
// an io.Reader for each file separately to perform actions on.
type Archive struct {
	reader     io.ReaderAt
	header     Header
	dataOffset int64
	index      map[string]int
}

// Header returns the archive header, index included.
func (a *Archive) Header() Header {
	h := a.header
	h.Index = append([]IndexEntry(nil), a.header.Index...)
	return h
}

// Names lists the files in the order they were added.
func (a *Archive) Names() []string {
	names := make([]string, len(a.header.Index))
	for i, e := range a.header.Index {
		names[i] = e.Name
	}
	return names
}

// Stat returns the index entry of a file.
func (a *Archive) Stat(name string) (IndexEntry, bool) {
	i, ok := a.index[name]
	if !ok {
		return IndexEntry{}, false
	}
	return a.header.Index[i], true
}

// ReadAll returns the entire contents of a file with a given name
func (a *Archive) ReadAll(name string) ([]byte, error) {
	r, err := a.Open(name)
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(make([]byte, 0, min(r.entry.Size, maxPrealloc)))
	n, err := io.Copy(buf, io.LimitReader(r, r.entry.Size))
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", name)
	}
	if n != r.entry.Size {
		return nil, errors.Wrapf(ErrFileFormat, "reading %q: %d of %d bytes", name, n, r.entry.Size)
	}
	return buf.Bytes(), nil
}

// Open returns a Reader for a file in the Archive
func (a *Archive) Open(name string) (*Reader, error) {
	e, ok := a.Stat(name)
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%q", name)
	}
	section := io.NewSectionReader(a.reader, a.dataOffset+e.Offset, e.CompressedSize)
	return &Reader{
		entry:  e,
		reader: lz4.NewReader(section),
	}, nil
}

// Reader is a reader for a single file in an Archive.
// Abstracts away the location that needs to be known.
type Reader struct {
	entry  IndexEntry
	reader io.Reader
}

// Size returns the decompressed size of the file.
func (r *Reader) Size() int64 {
	return r.entry.Size
}

// Read reads already decompressed data
func (r *Reader) Read(p []byte) (n int, err error) {
	return r.reader.Read(p)
}
