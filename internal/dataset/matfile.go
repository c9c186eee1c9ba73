package dataset

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/edsrzf/mmap-go"
	"gonum.org/v1/gonum/mat"
)

const (
	// HeaderSize is the fixed header size in bytes.
	HeaderSize = 32

	// Magic identifies a bound matrix file.
	Magic = "BEMX"

	// FormatVersion is the current file format version.
	FormatVersion uint16 = 1
)

var (
	ErrBadHeader = errors.New("dataset: invalid matrix header")
	ErrTruncated = errors.New("dataset: matrix file truncated")
)

// Header describes a row-major little-endian float64 matrix.
type Header struct {
	Magic    [4]byte
	Version  uint16
	Reserved uint16
	Rows     uint32
	Cols     uint32
	Pad      [16]byte
}

func encodeHeader(h *Header) ([]byte, error) {
	copy(h.Magic[:], Magic)
	h.Version = FormatVersion
	var w bytes.Buffer
	if err := binary.Write(&w, binary.LittleEndian, h); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func decodeHeader(src []byte) (*Header, error) {
	if len(src) < HeaderSize {
		return nil, fmt.Errorf("%w: header too short", ErrBadHeader)
	}
	var h Header
	if err := binary.Read(bytes.NewReader(src[:HeaderSize]), binary.LittleEndian, &h); err != nil {
		return nil, err
	}
	if string(h.Magic[:]) != Magic {
		return nil, fmt.Errorf("%w: invalid magic", ErrBadHeader)
	}
	if h.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrBadHeader, h.Version)
	}
	return &h, nil
}

// MatrixFile is a read-only memory-mapped matrix.
type MatrixFile struct {
	f    *os.File
	data mmap.MMap
	hdr  *Header
}

// OpenMatrix maps the file at path. The caller must Close it.
func OpenMatrix(path string) (*MatrixFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	mf := &MatrixFile{f: f, data: m}

	hdr, err := decodeHeader(m)
	if err != nil {
		mf.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	want := HeaderSize + 8*int64(hdr.Rows)*int64(hdr.Cols)
	if int64(len(m)) < want {
		mf.Close()
		return nil, fmt.Errorf("%s: %w: %d bytes, want %d", path, ErrTruncated, len(m), want)
	}
	mf.hdr = hdr
	return mf, nil
}

func (mf *MatrixFile) Dims() (r, c int) {
	return int(mf.hdr.Rows), int(mf.hdr.Cols)
}

// Block copies the leading rows × cols block into a new matrix.
func (mf *MatrixFile) Block(rows, cols int) (*mat.Dense, error) {
	r, c := mf.Dims()
	if rows < 1 || cols < 1 || rows > r || cols > c {
		return nil, fmt.Errorf("dataset: block %dx%d outside %dx%d matrix", rows, cols, r, c)
	}
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		off := HeaderSize + 8*i*c
		for j := 0; j < cols; j++ {
			bits := binary.LittleEndian.Uint64(mf.data[off+8*j:])
			out.Set(i, j, math.Float64frombits(bits))
		}
	}
	return out, nil
}

// Close unmaps the file and closes it.
func (mf *MatrixFile) Close() error {
	if mf.data != nil {
		if err := mf.data.Unmap(); err != nil {
			return err
		}
		mf.data = nil
	}
	if mf.f != nil {
		err := mf.f.Close()
		mf.f = nil
		return err
	}
	return nil
}

// ReadMatrix loads the leading rows × cols block of the file at path.
// Non-positive rows or cols select the full extent.
func ReadMatrix(path string, rows, cols int) (*mat.Dense, error) {
	mf, err := OpenMatrix(path)
	if err != nil {
		return nil, err
	}
	defer mf.Close()

	r, c := mf.Dims()
	if rows <= 0 {
		rows = r
	}
	if cols <= 0 {
		cols = c
	}
	return mf.Block(rows, cols)
}

// WriteMatrix stores m at path, replacing any existing file.
func WriteMatrix(path string, m mat.Matrix) error {
	r, c := m.Dims()
	hdr, err := encodeHeader(&Header{Rows: uint32(r), Cols: uint32(c)})
	if err != nil {
		return err
	}

	buf := make([]byte, 0, len(hdr)+8*r*c)
	buf = append(buf, hdr...)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(m.At(i, j)))
		}
	}
	return os.WriteFile(path, buf, 0644)
}
