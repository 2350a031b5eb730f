package proccaller

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"io"
	"os"
)

var (
	gzipMagic = []byte{0x1F, 0x8B}
	bzipMagic = []byte{0x42, 0x5A}
)

// openSniffed opens filename and returns a reader yielding its decompressed
// content, auto-detecting gzip or bzip2 by magic bytes and falling back to
// the raw file otherwise. The caller owns closing the returned closer.
func openSniffed(filename string) (io.ReadCloser, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	magic := make([]byte, 2)
	n, _ := io.ReadFull(f, magic)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	magic = magic[:n]

	switch {
	case bytes.Equal(magic, gzipMagic):
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &gzipReadCloser{gz: gz, f: f}, nil
	case bytes.Equal(magic, bzipMagic):
		return &bzipReadCloser{r: bzip2.NewReader(f), f: f}, nil
	default:
		return f, nil
	}
}

type gzipReadCloser struct {
	gz *gzip.Reader
	f  *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }
func (g *gzipReadCloser) Close() error {
	gzErr := g.gz.Close()
	fErr := g.f.Close()
	if gzErr != nil {
		return gzErr
	}
	return fErr
}

type bzipReadCloser struct {
	r io.Reader
	f *os.File
}

func (b *bzipReadCloser) Read(p []byte) (int, error) { return b.r.Read(p) }
func (b *bzipReadCloser) Close() error               { return b.f.Close() }
