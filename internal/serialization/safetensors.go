package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strconv"

	"github.com/born-ml/opcore/internal/tensor"
)

const metadataKey = "__metadata__"

// TensorHeader describes one tensor in the SafeTensors header.
type TensorHeader struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// WriteFile writes tensors to a SafeTensors file at path.
func WriteFile(path string, tensors map[string]*tensor.Tensor, metadata map[string]string) error {
	//nolint:gosec // G304: path comes from the caller by design of the API.
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := Write(w, tensors, metadata); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Write encodes allocated tensors. Tensors are written in alphabetical order
// by name; padding is dropped.
func Write(w io.Writer, tensors map[string]*tensor.Tensor, metadata map[string]string) error {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	meta := make(map[string]string, len(metadata)+2*len(names))
	for k, v := range metadata {
		meta[k] = v
	}

	header := make(map[string]any, len(names)+1)
	var offset int64
	for _, name := range names {
		info := tensors[name].Info()
		dtype, err := dtypeToSafeTensors(info.DataType())
		if err != nil {
			return fmt.Errorf("tensor %s: %w", name, err)
		}
		size := int64(info.Shape().NumElements() * info.ElementSize())
		header[name] = TensorHeader{
			DType:       dtype,
			Shape:       toSafeTensorsShape(info.Shape()),
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size

		meta[name+".layout"] = info.Layout().String()
		if info.DataType().IsQuantized() {
			q := info.QuantizationInfo()
			meta[name+".scale"] = strconv.FormatFloat(float64(q.Scale), 'g', -1, 32)
			meta[name+".offset"] = strconv.FormatInt(int64(q.Offset), 10)
		}
	}
	if len(meta) > 0 {
		header[metadataKey] = meta
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, name := range names {
		if _, err := w.Write(denseBytes(tensors[name])); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", name, err)
		}
	}
	return nil
}

// ReadFile reads every tensor of a SafeTensors file.
func ReadFile(path string) (map[string]*tensor.Tensor, map[string]string, error) {
	//nolint:gosec // G304: path comes from the caller by design of the API.
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return Read(bufio.NewReader(f))
}

// Read decodes a SafeTensors stream into allocated tensors. Tensors without
// layout metadata are read as NCHW.
func Read(r io.Reader) (map[string]*tensor.Tensor, map[string]string, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > MaxHeaderSize {
		return nil, nil, &ValidationError{
			Kind:    ErrHeaderTooLarge,
			Details: fmt.Sprintf("%d bytes, max %d", headerSize, MaxHeaderSize),
		}
	}
	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(headerJSON, &raw); err != nil {
		return nil, nil, fmt.Errorf("failed to parse header: %w", err)
	}
	meta := map[string]string{}
	header := make(map[string]TensorHeader, len(raw))
	for name, msg := range raw {
		if name == metadataKey {
			if err := json.Unmarshal(msg, &meta); err != nil {
				return nil, nil, fmt.Errorf("failed to parse metadata: %w", err)
			}
			continue
		}
		if err := ValidateTensorName(name); err != nil {
			return nil, nil, err
		}
		var h TensorHeader
		if err := json.Unmarshal(msg, &h); err != nil {
			return nil, nil, fmt.Errorf("tensor %s: %w", name, err)
		}
		header[name] = h
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read tensor data: %w", err)
	}
	if err := validateOffsets(header, int64(len(data))); err != nil {
		return nil, nil, err
	}

	out := make(map[string]*tensor.Tensor, len(header))
	for name, h := range header {
		t, err := newTensor(name, h, meta)
		if err != nil {
			return nil, nil, err
		}
		want := int64(t.Info().Shape().NumElements() * t.Info().ElementSize())
		if got := h.DataOffsets[1] - h.DataOffsets[0]; got != want {
			return nil, nil, &ValidationError{
				Kind:    ErrOutOfBounds,
				Tensor:  name,
				Details: fmt.Sprintf("%d data bytes for %d expected", got, want),
			}
		}
		t.Allocator().Allocate()
		setDenseBytes(t, data[h.DataOffsets[0]:h.DataOffsets[1]])
		out[name] = t
	}
	return out, meta, nil
}

func newTensor(name string, h TensorHeader, meta map[string]string) (*tensor.Tensor, error) {
	dt, err := dtypeFromSafeTensors(h.DType)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}
	shape := make(tensor.Shape, len(h.Shape))
	for i, d := range h.Shape {
		shape[len(h.Shape)-1-i] = int(d)
	}
	if len(shape) == 0 {
		shape = tensor.Shape{1}
	}
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}

	layout := tensor.NCHW
	if s, ok := meta[name+".layout"]; ok {
		if layout, ok = tensor.ParseLayout(s); !ok {
			return nil, fmt.Errorf("tensor %s: unknown layout %q", name, s)
		}
	}

	scale, hasScale := meta[name+".scale"]
	if !hasScale {
		return tensor.New(shape, dt, layout), nil
	}
	s, err := strconv.ParseFloat(scale, 32)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: scale: %w", name, err)
	}
	o, err := strconv.ParseInt(meta[name+".offset"], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: offset: %w", name, err)
	}
	return tensor.NewQuantized(shape, layout, tensor.QuantizationInfo{Scale: float32(s), Offset: int32(o)}), nil
}

func toSafeTensorsShape(s tensor.Shape) []int64 {
	out := make([]int64, len(s))
	for i, d := range s {
		out[i] = int64(d)
	}
	slices.Reverse(out)
	return out
}

// forEachElement visits the byte offset of every element, dimension 0 fastest.
func forEachElement(info *tensor.Info, fn func(off int)) {
	shape := info.Shape()
	var c tensor.Coordinates
	for k := range shape.NumElements() {
		rem := k
		for d := range tensor.MaxDims {
			ext := shape.Dim(d)
			c[d] = rem % ext
			rem /= ext
		}
		fn(info.OffsetElementInBytes(c))
	}
}

func denseBytes(t *tensor.Tensor) []byte {
	info := t.Info()
	es := info.ElementSize()
	buf := t.Buffer()
	out := make([]byte, 0, info.Shape().NumElements()*es)
	forEachElement(info, func(off int) {
		out = append(out, buf[off:off+es]...)
	})
	return out
}

func setDenseBytes(t *tensor.Tensor, data []byte) {
	info := t.Info()
	es := info.ElementSize()
	buf := t.Buffer()
	i := 0
	forEachElement(info, func(off int) {
		copy(buf[off:off+es], data[i:i+es])
		i += es
	})
}

func dtypeToSafeTensors(dt tensor.DataType) (string, error) {
	switch dt {
	case tensor.F32:
		return "F32", nil
	case tensor.F16:
		return "F16", nil
	case tensor.U8, tensor.QASYMM8:
		return "U8", nil
	case tensor.S8:
		return "I8", nil
	case tensor.U16:
		return "U16", nil
	case tensor.S16:
		return "I16", nil
	case tensor.U32:
		return "U32", nil
	case tensor.S32:
		return "I32", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDType, dt)
	}
}

// dtypeFromSafeTensors maps U8 to tensor.U8; newTensor turns it into
// QASYMM8 when quantization metadata is present.
func dtypeFromSafeTensors(s string) (tensor.DataType, error) {
	switch s {
	case "F32":
		return tensor.F32, nil
	case "F16":
		return tensor.F16, nil
	case "U8":
		return tensor.U8, nil
	case "I8":
		return tensor.S8, nil
	case "U16":
		return tensor.U16, nil
	case "I16":
		return tensor.S16, nil
	case "U32":
		return tensor.U32, nil
	case "I32":
		return tensor.S32, nil
	default:
		return tensor.Unknown, fmt.Errorf("%w: %s", ErrUnsupportedDType, s)
	}
}
