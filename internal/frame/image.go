package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// ErrIncompatibleImage is returned when images of differing dtype or shape
// are combined or stored in the same library.
var ErrIncompatibleImage = errors.New("incompatible image")

// DType is the element type of an image payload.
type DType uint8

const (
	Invalid DType = iota
	Uint8
	Uint16
	Uint32
	Int16
	Int32
	Float32
	Float64
)

var dtypeNames = map[DType]string{
	Uint8:   "uint8",
	Uint16:  "uint16",
	Uint32:  "uint32",
	Int16:   "int16",
	Int32:   "int32",
	Float32: "float32",
	Float64: "float64",
}

// ParseDType converts a stored dtype name.
func ParseDType(name string) (DType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for d, n := range dtypeNames {
		if n == name {
			return d, nil
		}
	}
	return Invalid, fmt.Errorf("unknown dtype %q", name)
}

func (d DType) String() string {
	if n, ok := dtypeNames[d]; ok {
		return n
	}
	return fmt.Sprintf("dtype(%d)", uint8(d))
}

// Size returns the number of bytes per element.
func (d DType) Size() int {
	switch d {
	case Uint8:
		return 1
	case Uint16, Int16:
		return 2
	case Uint32, Int32, Float32:
		return 4
	case Float64:
		return 8
	default:
		return 0
	}
}

// Integer reports whether values are rounded when cast to d.
func (d DType) Integer() bool {
	return d != Float32 && d != Float64
}

// Range returns the representable value range for d.
func (d DType) Range() (float64, float64) {
	switch d {
	case Uint8:
		return 0, math.MaxUint8
	case Uint16:
		return 0, math.MaxUint16
	case Uint32:
		return 0, math.MaxUint32
	case Int16:
		return math.MinInt16, math.MaxInt16
	case Int32:
		return math.MinInt32, math.MaxInt32
	case Float32:
		return -math.MaxFloat32, math.MaxFloat32
	default:
		return -math.MaxFloat64, math.MaxFloat64
	}
}

// Layout is the dtype and shape shared by every image of a library.
type Layout struct {
	DType DType
	Shape []int
}

// Check returns ErrIncompatibleImage when img does not match the layout.
func (l Layout) Check(img Image) error {
	if img.DType != l.DType || !slices.Equal(img.Shape, l.Shape) {
		return fmt.Errorf("%w: got %s%v, want %s%v", ErrIncompatibleImage, img.DType, img.Shape, l.DType, l.Shape)
	}
	return nil
}

func (l Layout) String() string {
	return fmt.Sprintf("%s%v", l.DType, l.Shape)
}

// Image is an N-dimensional array stored row-major as little-endian bytes.
type Image struct {
	DType DType
	Shape []int
	Data  []byte
}

// New allocates a zeroed image.
func New(dtype DType, shape ...int) (Image, error) {
	n, err := elements(dtype, shape)
	if err != nil {
		return Image{}, err
	}
	return Image{DType: dtype, Shape: slices.Clone(shape), Data: make([]byte, n*dtype.Size())}, nil
}

// Filled allocates an image whose every element equals value.
func Filled(dtype DType, value float64, shape ...int) (Image, error) {
	n, err := elements(dtype, shape)
	if err != nil {
		return Image{}, err
	}
	values := make([]float64, n)
	for i := range values {
		values[i] = value
	}
	return FromValues(dtype, shape, values)
}

// FromValues casts values to dtype. Integer types are rounded half away from
// zero and clamped to their range.
func FromValues(dtype DType, shape []int, values []float64) (Image, error) {
	n, err := elements(dtype, shape)
	if err != nil {
		return Image{}, err
	}
	if len(values) != n {
		return Image{}, fmt.Errorf("%w: %d values for shape %v", ErrIncompatibleImage, len(values), shape)
	}
	size := dtype.Size()
	data := make([]byte, n*size)
	lo, hi := dtype.Range()
	for i, v := range values {
		if dtype.Integer() {
			v = math.Round(v)
		}
		v = math.Max(lo, math.Min(hi, v))
		put(dtype, data[i*size:], v)
	}
	return Image{DType: dtype, Shape: slices.Clone(shape), Data: data}, nil
}

// Validate checks that the payload length matches dtype and shape.
func (img Image) Validate() error {
	n, err := elements(img.DType, img.Shape)
	if err != nil {
		return err
	}
	if len(img.Data) != n*img.DType.Size() {
		return fmt.Errorf("%w: payload of %d bytes for %s%v", ErrIncompatibleImage, len(img.Data), img.DType, img.Shape)
	}
	return nil
}

// Len returns the number of elements.
func (img Image) Len() int {
	size := img.DType.Size()
	if size == 0 {
		return 0
	}
	return len(img.Data) / size
}

// Layout returns the image dtype and shape.
func (img Image) Layout() Layout {
	return Layout{DType: img.DType, Shape: slices.Clone(img.Shape)}
}

// At returns element i as float64.
func (img Image) At(i int) float64 {
	size := img.DType.Size()
	return get(img.DType, img.Data[i*size:])
}

// Values decodes every element to float64.
func (img Image) Values() []float64 {
	n := img.Len()
	values := make([]float64, n)
	size := img.DType.Size()
	for i := range n {
		values[i] = get(img.DType, img.Data[i*size:])
	}
	return values
}

// Equal reports whether both images have the same layout and bytes.
func (img Image) Equal(other Image) bool {
	return img.DType == other.DType && slices.Equal(img.Shape, other.Shape) && bytes.Equal(img.Data, other.Data)
}

// Clone returns a deep copy.
func (img Image) Clone() Image {
	return Image{DType: img.DType, Shape: slices.Clone(img.Shape), Data: bytes.Clone(img.Data)}
}

// Bytes returns the payload size.
func (img Image) Bytes() int { return len(img.Data) }

func elements(dtype DType, shape []int) (int, error) {
	if dtype.Size() == 0 {
		return 0, fmt.Errorf("%w: invalid dtype %s", ErrIncompatibleImage, dtype)
	}
	if len(shape) == 0 {
		return 0, fmt.Errorf("%w: empty shape", ErrIncompatibleImage)
	}
	n := 1
	for _, d := range shape {
		if d < 1 {
			return 0, fmt.Errorf("%w: non-positive dimension in shape %v", ErrIncompatibleImage, shape)
		}
		n *= d
	}
	return n, nil
}

func put(dtype DType, b []byte, v float64) {
	le := binary.LittleEndian
	switch dtype {
	case Uint8:
		b[0] = uint8(v)
	case Uint16:
		le.PutUint16(b, uint16(v))
	case Uint32:
		le.PutUint32(b, uint32(v))
	case Int16:
		le.PutUint16(b, uint16(int16(v)))
	case Int32:
		le.PutUint32(b, uint32(int32(v)))
	case Float32:
		le.PutUint32(b, math.Float32bits(float32(v)))
	case Float64:
		le.PutUint64(b, math.Float64bits(v))
	}
}

func get(dtype DType, b []byte) float64 {
	le := binary.LittleEndian
	switch dtype {
	case Uint8:
		return float64(b[0])
	case Uint16:
		return float64(le.Uint16(b))
	case Uint32:
		return float64(le.Uint32(b))
	case Int16:
		return float64(int16(le.Uint16(b)))
	case Int32:
		return float64(int32(le.Uint32(b)))
	case Float32:
		return float64(math.Float32frombits(le.Uint32(b)))
	case Float64:
		return math.Float64frombits(le.Uint64(b))
	default:
		return 0
	}
}
