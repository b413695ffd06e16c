// Package export writes voxelization results to disk as numpy arrays or
// binvox grids, optionally compressed.
package export

import (
	"io"
	"os"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/chazu/voxelize/pkg/grid"
	"github.com/chazu/voxelize/pkg/voxset"
)

// Voxel labels used in exported arrays.
const (
	LabelEmpty   uint8 = 0
	LabelSurface uint8 = 1
	LabelVolume  uint8 = 2
)

// Format names an output file format.
type Format string

const (
	FormatNPY    Format = "npy"
	FormatBinvox Format = "binvox"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatNPY, FormatBinvox:
		return f, nil
	}
	return "", errors.Errorf("export: unknown format %q", s)
}

// Codec names an output compression.
type Codec string

const (
	CodecNone   Codec = "none"
	CodecZstd   Codec = "zstd"
	CodecSnappy Codec = "snappy"
)

// ParseCodec validates a codec name. The empty string means CodecNone.
func ParseCodec(s string) (Codec, error) {
	switch c := Codec(strings.ToLower(s)); c {
	case "":
		return CodecNone, nil
	case CodecNone, CodecZstd, CodecSnappy:
		return c, nil
	}
	return "", errors.Errorf("export: unknown compression %q", s)
}

// Ext returns the file name suffix conventionally added for the codec.
func (c Codec) Ext() string {
	switch c {
	case CodecZstd:
		return ".zst"
	case CodecSnappy:
		return ".sz"
	}
	return ""
}

type compressedWriter struct {
	io.Writer
	enc  io.Closer
	dest io.Closer
}

// Close flushes the encoder before closing the destination.
func (c *compressedWriter) Close() error {
	err := c.enc.Close()
	if cerr := c.dest.Close(); err == nil {
		err = cerr
	}
	return err
}

// NewCompressedWriter wraps w so that everything written is compressed with
// codec. Closing the result closes w.
func NewCompressedWriter(w io.WriteCloser, codec Codec) (io.WriteCloser, error) {
	switch codec {
	case CodecNone, "":
		return w, nil
	case CodecZstd:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, errors.Wrap(err, "export: zstd")
		}
		return &compressedWriter{Writer: enc, enc: enc, dest: w}, nil
	case CodecSnappy:
		enc := snappy.NewBufferedWriter(w)
		return &compressedWriter{Writer: enc, enc: enc, dest: w}, nil
	}
	return nil, errors.Errorf("export: unknown compression %q", codec)
}

// NewDecompressedReader undoes NewCompressedWriter.
func NewDecompressedReader(r io.Reader, codec Codec) (io.ReadCloser, error) {
	switch codec {
	case CodecNone, "":
		return io.NopCloser(r), nil
	case CodecZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "export: zstd")
		}
		return dec.IOReadCloser(), nil
	case CodecSnappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	}
	return nil, errors.Errorf("export: unknown compression %q", codec)
}

// Labels returns one label per voxel in linear index order: LabelSurface
// for members of surface, LabelVolume for members of volume, LabelEmpty
// otherwise. Surface wins if a voxel is in both.
func Labels(g *grid.Grid, surface, volume voxset.Membership) []uint8 {
	labels := make([]uint8, g.Count())
	for i := range labels {
		switch {
		case surface != nil && surface.Has(i):
			labels[i] = LabelSurface
		case volume != nil && volume.Has(i):
			labels[i] = LabelVolume
		}
	}
	return labels
}

// WriteFile writes surface and volume to path in the given format,
// compressed with codec. The codec's extension is not added to path.
func WriteFile(path string, format Format, codec Codec, g *grid.Grid, surface, volume voxset.Membership) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "export")
	}
	w, err := NewCompressedWriter(f, codec)
	if err != nil {
		f.Close()
		return err
	}

	switch format {
	case FormatNPY:
		// The npy writer closes w itself.
		return WriteNPY(w, g, surface, volume)
	case FormatBinvox:
		err = WriteBinvox(w, g, surface, volume)
	default:
		err = errors.Errorf("export: unknown format %q", format)
	}
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return err
}
