package pooling

import (
	"fmt"
	"strings"

	"github.com/born-ml/poolprop/internal/compute"
	"github.com/born-ml/poolprop/internal/logging"
	"github.com/born-ml/poolprop/internal/timing"
)

// Propagator runs the forward pass of one pooling layer configuration.
//
// Every variant honors the same contract: for each (example, plane,
// outputRow, outputCol) it writes the window maximum to output and its
// row-major window offset to selectors, both at the flat output index.
type Propagator interface {
	// Propagate pools batchSize examples from input into selectors and
	// output, blocking until the results are visible. input must hold
	// Geometry().InputLen(batchSize, NumPlanes()) float32 elements;
	// selectors (int32) and output (float32) OutputLen(...) elements.
	Propagate(batchSize int, input, selectors, output compute.Buffer) error

	Geometry() Geometry
	NumPlanes() int
	Variant() Variant

	// Release frees the layer's compiled program. The propagator must not
	// be used afterwards.
	Release()
}

// Variant selects a Propagator implementation.
type Variant int

// Available variants.
const (
	// VariantAuto picks the default implementation for the backend.
	VariantAuto Variant = iota
	// VariantNaive launches one execution unit per output element.
	VariantNaive
	// VariantHost reads the input back and pools on the host.
	VariantHost
)

// String returns the variant name.
func (v Variant) String() string {
	switch v {
	case VariantAuto:
		return "auto"
	case VariantNaive:
		return "naive"
	case VariantHost:
		return "host"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// ParseVariant maps a name produced by Variant.String back to a Variant.
func ParseVariant(name string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return VariantAuto, nil
	case "naive", "gpu-naive":
		return VariantNaive, nil
	case "host", "cpu":
		return VariantHost, nil
	default:
		return 0, fmt.Errorf("pooling: %q: %w", name, ErrUnknownVariant)
	}
}

// specificVariants lists concrete variants in index order for NewSpecific.
var specificVariants = []Variant{VariantHost, VariantNaive}

// NumSpecific returns how many concrete variants NewSpecific accepts.
func NumSpecific() int {
	return len(specificVariants)
}

// Config describes a pooling layer.
type Config struct {
	Variant        Variant
	PadZeros       bool
	NumPlanes      int
	InputBoardSize int
	PoolingSize    int

	// Timer receives start/end checkpoints around every Propagate.
	// Nil disables timing.
	Timer timing.Timer
}

// New builds the propagator selected by cfg.Variant on backend.
// Invalid geometry and program build failures are returned; no resources
// are held when New fails.
func New(backend compute.Backend, cfg Config) (Propagator, error) {
	if backend == nil {
		return nil, fmt.Errorf("pooling: nil backend: %w", compute.ErrInvalidArgument)
	}
	geom, err := NewGeometry(cfg.InputBoardSize, cfg.PoolingSize, cfg.PadZeros)
	if err != nil {
		return nil, err
	}
	if cfg.NumPlanes <= 0 {
		return nil, fmt.Errorf("pooling: %d planes: %w", cfg.NumPlanes, ErrInvalidGeometry)
	}
	timer := cfg.Timer
	if timer == nil {
		timer = timing.Nop{}
	}

	variant := cfg.Variant
	if variant == VariantAuto {
		variant = VariantNaive
	}

	var p Propagator
	switch variant {
	case VariantNaive:
		p, err = newNaive(backend, geom, cfg.NumPlanes, timer)
	case VariantHost:
		p, err = newHost(backend, geom, cfg.NumPlanes, timer)
	default:
		return nil, fmt.Errorf("pooling: %s: %w", variant, ErrUnknownVariant)
	}
	if err != nil {
		return nil, err
	}

	logging.Logger().Debug("pooling layer created",
		"variant", variant, "backend", backend.Name(), "geometry", geom, "planes", cfg.NumPlanes)
	return p, nil
}

// NewSpecific builds the idx-th concrete variant, in [0, NumSpecific()).
// It lets tests and benchmarks sweep every implementation.
func NewSpecific(idx int, backend compute.Backend, cfg Config) (Propagator, error) {
	if idx < 0 || idx >= len(specificVariants) {
		return nil, fmt.Errorf("pooling: variant index %d: %w", idx, ErrUnknownVariant)
	}
	cfg.Variant = specificVariants[idx]
	return New(backend, cfg)
}

// checkBuffers validates the buffers of one Propagate call.
func checkBuffers(geom Geometry, numPlanes, batchSize int, input, selectors, output compute.Buffer) error {
	if batchSize < 0 {
		return fmt.Errorf("pooling: batch size %d: %w", batchSize, compute.ErrInvalidArgument)
	}
	if input == nil || selectors == nil || output == nil {
		return fmt.Errorf("pooling: nil buffer: %w", compute.ErrInvalidArgument)
	}

	inLen := geom.InputLen(batchSize, numPlanes)
	outLen := geom.OutputLen(batchSize, numPlanes)
	for _, c := range []struct {
		name  string
		buf   compute.Buffer
		dtype compute.DataType
		n     int
	}{
		{"input", input, compute.Float32, inLen},
		{"selectors", selectors, compute.Int32, outLen},
		{"output", output, compute.Float32, outLen},
	} {
		if c.buf.DType() != c.dtype {
			return fmt.Errorf("pooling: %s buffer is %s, want %s: %w", c.name, c.buf.DType(), c.dtype, ErrBufferSize)
		}
		if c.buf.Len() < c.n {
			return fmt.Errorf("pooling: %s buffer holds %d elements, batch of %d needs %d: %w",
				c.name, c.buf.Len(), batchSize, c.n, ErrBufferSize)
		}
	}
	return nil
}
