package segmentation

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/lucasb-eyer/go-colorful"
)

// MAT-file (level 5) data types.
const (
	miINT8       = 1
	miUINT8      = 2
	miINT16      = 3
	miUINT16     = 4
	miINT32      = 5
	miUINT32     = 6
	miSINGLE     = 7
	miDOUBLE     = 9
	miINT64      = 12
	miUINT64     = 13
	miMATRIX     = 14
	miCOMPRESSED = 15

	matHeaderSize = 128
)

// Palette maps a class index to its silhouette color.
type Palette []colorful.Color

// LoadPalette reads the named N x 3 uint8 matrix from a MATLAB level 5 file.
func LoadPalette(path, variable string) (Palette, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read palette: %w", err)
	}
	m, err := readMatVariable(data, variable)
	if err != nil {
		return nil, fmt.Errorf("failed to parse palette %s: %w", path, err)
	}
	if len(m.dims) != 2 || m.dims[1] != 3 {
		return nil, fmt.Errorf("palette %q has shape %v, want Nx3", variable, m.dims)
	}

	rows := m.dims[0]
	palette := make(Palette, rows)
	for i := range palette {
		// column-major storage
		palette[i] = colorful.Color{
			R: m.values[i] / 255,
			G: m.values[rows+i] / 255,
			B: m.values[2*rows+i] / 255,
		}
	}
	return palette, nil
}

// RGB returns the 8-bit color of class, or black when the palette has no entry.
func (p Palette) RGB(class int) (r, g, b uint8) {
	if class < 0 || class >= len(p) {
		return 0, 0, 0
	}
	return p[class].RGB255()
}

// Hex returns the "#rrggbb" color of class.
func (p Palette) Hex(class int) string {
	if class < 0 || class >= len(p) {
		return "#000000"
	}
	return p[class].Hex()
}

type matArray struct {
	name   string
	dims   []int
	values []float64
}

func readMatVariable(data []byte, variable string) (*matArray, error) {
	if len(data) < matHeaderSize {
		return nil, fmt.Errorf("file too short for a MAT header")
	}
	var order binary.ByteOrder
	switch string(data[126:128]) {
	case "IM":
		order = binary.LittleEndian
	case "MI":
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("not a level 5 MAT file")
	}

	r := &matReader{buf: data[matHeaderSize:], order: order}
	for r.len() > 0 {
		typ, body, err := r.element()
		if err != nil {
			return nil, err
		}
		if typ == miCOMPRESSED {
			zr, err := zlib.NewReader(bytes.NewReader(body))
			if err != nil {
				return nil, fmt.Errorf("compressed element: %w", err)
			}
			inflated, err := io.ReadAll(zr)
			zr.Close()
			if err != nil {
				return nil, fmt.Errorf("compressed element: %w", err)
			}
			inner := &matReader{buf: inflated, order: order}
			typ, body, err = inner.element()
			if err != nil {
				return nil, err
			}
		}
		if typ != miMATRIX {
			continue
		}
		m, err := parseMatrix(body, order)
		if err != nil {
			return nil, err
		}
		if m.name == variable {
			return m, nil
		}
	}
	return nil, fmt.Errorf("variable %q not found", variable)
}

type matReader struct {
	buf   []byte
	order binary.ByteOrder
}

func (r *matReader) len() int { return len(r.buf) }

// element returns the next data element, honoring the small data element
// format and 8-byte alignment.
func (r *matReader) element() (uint32, []byte, error) {
	if len(r.buf) < 8 {
		return 0, nil, fmt.Errorf("truncated element tag")
	}
	first := r.order.Uint32(r.buf)
	if size := first >> 16; size != 0 {
		if size > 4 {
			return 0, nil, fmt.Errorf("invalid small element size %d", size)
		}
		body := r.buf[4 : 4+size]
		r.buf = r.buf[8:]
		return first & 0xffff, body, nil
	}

	size := int(r.order.Uint32(r.buf[4:]))
	if size > len(r.buf)-8 {
		return 0, nil, fmt.Errorf("element of %d bytes exceeds data", size)
	}
	body := r.buf[8 : 8+size]
	next := 8 + size
	if first != miCOMPRESSED {
		next += (8 - size%8) % 8
	}
	if next > len(r.buf) {
		next = len(r.buf)
	}
	r.buf = r.buf[next:]
	return first, body, nil
}

func parseMatrix(body []byte, order binary.ByteOrder) (*matArray, error) {
	r := &matReader{buf: body, order: order}

	// array flags
	if _, _, err := r.element(); err != nil {
		return nil, err
	}

	typ, raw, err := r.element()
	if err != nil {
		return nil, err
	}
	if typ != miINT32 {
		return nil, fmt.Errorf("dimensions stored as type %d", typ)
	}
	dims := make([]int, len(raw)/4)
	count := 1
	for i := range dims {
		dims[i] = int(int32(order.Uint32(raw[4*i:])))
		count *= dims[i]
	}

	_, name, err := r.element()
	if err != nil {
		return nil, err
	}

	typ, raw, err = r.element()
	if err != nil {
		return nil, err
	}
	values, err := decodeNumeric(typ, raw, order)
	if err != nil {
		return nil, err
	}
	if len(values) != count {
		return nil, fmt.Errorf("matrix %q holds %d values, want %d", name, len(values), count)
	}
	return &matArray{name: string(name), dims: dims, values: values}, nil
}

func decodeNumeric(typ uint32, raw []byte, order binary.ByteOrder) ([]float64, error) {
	var width int
	switch typ {
	case miINT8, miUINT8:
		width = 1
	case miINT16, miUINT16:
		width = 2
	case miINT32, miUINT32, miSINGLE:
		width = 4
	case miDOUBLE, miINT64, miUINT64:
		width = 8
	default:
		return nil, fmt.Errorf("unsupported numeric type %d", typ)
	}

	values := make([]float64, len(raw)/width)
	for i := range values {
		b := raw[i*width:]
		switch typ {
		case miINT8:
			values[i] = float64(int8(b[0]))
		case miUINT8:
			values[i] = float64(b[0])
		case miINT16:
			values[i] = float64(int16(order.Uint16(b)))
		case miUINT16:
			values[i] = float64(order.Uint16(b))
		case miINT32:
			values[i] = float64(int32(order.Uint32(b)))
		case miUINT32:
			values[i] = float64(order.Uint32(b))
		case miSINGLE:
			values[i] = float64(math.Float32frombits(order.Uint32(b)))
		case miDOUBLE:
			values[i] = math.Float64frombits(order.Uint64(b))
		case miINT64:
			values[i] = float64(int64(order.Uint64(b)))
		case miUINT64:
			values[i] = float64(order.Uint64(b))
		}
	}
	return values, nil
}
