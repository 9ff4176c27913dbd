package main

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/born-ml/opcore/internal/backend/accel"
	"github.com/born-ml/opcore/internal/backend/cpu"
	"github.com/born-ml/opcore/internal/function"
	"github.com/born-ml/opcore/internal/kernel"
	"github.com/born-ml/opcore/internal/kernels"
	"github.com/born-ml/opcore/internal/serialization"
	"github.com/born-ml/opcore/internal/tensor"
	"github.com/born-ml/opcore/internal/window"
)

// WindowHandler prints the sub-window each worker receives.
func WindowHandler(cmd *cobra.Command, _ []string) error {
	shapeFlag, _ := cmd.Flags().GetString("shape")
	step, _ := cmd.Flags().GetInt("step")
	dim, _ := cmd.Flags().GetInt("dim")
	workers, _ := cmd.Flags().GetInt("workers")

	shape, err := parseShape(shapeFlag)
	if err != nil {
		return err
	}
	if step < 1 || workers < 1 {
		return fmt.Errorf("step and workers must be positive")
	}
	if dim < 0 || dim >= tensor.MaxDims {
		return fmt.Errorf("split dimension %d out of range", dim)
	}

	info := tensor.NewInfo(shape, tensor.F32, tensor.NCHW)
	full := window.CalculateMaxWindow(info, window.StepsX(step))
	fmt.Fprintf(cmd.OutOrStdout(), "window %v, %d tiles\n", full, full.NumIterationsTotal())

	total := min(workers, max(full.NumIterations(dim), 1))
	var data [][]string
	for id := range total {
		w := full.Split(dim, id, total)
		d := w.At(dim)
		data = append(data, []string{
			strconv.Itoa(id),
			fmt.Sprintf("[%d, %d)", d.Start, d.End),
			strconv.Itoa(w.NumIterationsTotal()),
		})
	}
	renderTable(cmd, []string{"WORKER", "RANGE", "TILES"}, data)
	return nil
}

// GEMMPlanHandler prints the reshape decision and the resulting scratch shapes.
func GEMMPlanHandler(cmd *cobra.Command, _ []string) error {
	m, _ := cmd.Flags().GetInt("m")
	n, _ := cmd.Flags().GetInt("n")
	k, _ := cmd.Flags().GetInt("k")
	dtFlag, _ := cmd.Flags().GetString("dtype")
	targetFlag, _ := cmd.Flags().GetString("target")
	constantB, _ := cmd.Flags().GetBool("constant-b")

	dt, ok := tensor.ParseDataType(dtFlag)
	if !ok {
		return fmt.Errorf("unknown data type %q", dtFlag)
	}
	target, ok := kernel.ParseTarget(targetFlag)
	if !ok {
		return fmt.Errorf("unknown target %q", targetFlag)
	}
	if m < 1 || n < 1 || k < 1 {
		return fmt.Errorf("m, n and k must be positive")
	}

	p := function.GEMMProblem{M: m, N: n, K: k, DataType: dt, Target: target, ReshapeBOnlyOnFirstRun: constantB}
	reshape := function.DefaultReshapePolicy(p)

	data := [][]string{
		{"problem", fmt.Sprintf("m=%d n=%d k=%d %s on %s", m, n, k, dt, target)},
		{"reshape", strconv.FormatBool(reshape)},
	}
	if reshape {
		h, w := kernel.GEMMMultipliers(target)
		a := tensor.NewInfo(tensor.Shape{k, m}, dt, tensor.NCHW)
		b := tensor.NewInfo(tensor.Shape{n, k}, dt, tensor.NCHW)
		data = append(data,
			[]string{"A′", fmt.Sprint([]int(kernels.InterleavedShape(a, h)))},
			[]string{"B′", fmt.Sprint([]int(kernels.TransposedShape(b, w)))},
			[]string{"steps", "interleave, transpose (first run only), multiply"},
		)
		if !constantB {
			data[len(data)-1][1] = "interleave, transpose, multiply"
		}
	} else {
		data = append(data, []string{"steps", "multiply"})
	}
	renderTable(cmd, []string{"FIELD", "VALUE"}, data)
	return nil
}

// PReLUHandler runs one PReLU on the chosen backend.
func PReLUHandler(cmd *cobra.Command, _ []string) error {
	shapeFlag, _ := cmd.Flags().GetString("shape")
	layoutFlag, _ := cmd.Flags().GetString("layout")
	dtFlag, _ := cmd.Flags().GetString("dtype")
	backendFlag, _ := cmd.Flags().GetString("backend")
	seed, _ := cmd.Flags().GetUint64("seed")
	save, _ := cmd.Flags().GetString("save")

	shape, err := parseShape(shapeFlag)
	if err != nil {
		return err
	}
	layout, ok := tensor.ParseLayout(layoutFlag)
	if !ok {
		return fmt.Errorf("unknown layout %q", layoutFlag)
	}
	dt, ok := tensor.ParseDataType(dtFlag)
	if !ok {
		return fmt.Errorf("unknown data type %q", dtFlag)
	}

	var b function.Backend
	switch backendFlag {
	case "cpu":
		b = cpu.New()
	case "accel":
		ab := accel.New()
		defer ab.Close()
		b = ab
	default:
		return fmt.Errorf("unknown backend %q", backendFlag)
	}

	channels := tensor.NewInfo(shape, dt, layout).DimensionOf(tensor.Channel)
	in := tensor.New(shape, dt, layout)
	slope := tensor.New(tensor.Shape{channels}, dt, layout)
	if dt.IsQuantized() {
		q := tensor.QuantizationInfo{Scale: 1.0 / 16, Offset: 128}
		in = tensor.NewQuantized(shape, layout, q)
		slope = tensor.NewQuantized(tensor.Shape{channels}, layout, q)
	}
	out := &tensor.Tensor{}

	if err := function.ValidatePReLU(b, in.Info(), out.Info(), slope.Info()); err != nil {
		return err
	}
	f := function.NewPReLU(b)
	f.Configure(in, out, slope)
	for _, t := range []*tensor.Tensor{in, slope, out} {
		t.Allocator().Allocate()
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	vals := make([]float32, shape.NumElements())
	for i := range vals {
		vals[i] = rng.Float32()*8 - 4
	}
	in.CopyFrom(vals)
	slopes := make([]float32, channels)
	for i := range slopes {
		slopes[i] = rng.Float32() / 2
	}
	slope.CopyFrom(slopes)

	start := time.Now()
	f.Run()
	if s, ok := b.(interface{ Sync() }); ok {
		s.Sync()
	}
	elapsed := time.Since(start)

	res := out.Values()
	lo, hi := float32(math.Inf(1)), float32(math.Inf(-1))
	negatives := 0
	for _, v := range res {
		lo, hi = min(lo, v), max(hi, v)
		if v < 0 {
			negatives++
		}
	}

	if save != "" {
		tensors := map[string]*tensor.Tensor{"input": in, "slope": slope, "output": out}
		meta := map[string]string{"operator": kernels.PreluName, "config": f.Kernel().ConfigID()}
		if err := serialization.WriteFile(save, tensors, meta); err != nil {
			return err
		}
		slog.Info("saved tensors", "path", save)
	}

	renderTable(cmd, []string{"FIELD", "VALUE"}, [][]string{
		{"backend", backendFlag},
		{"kernel", f.Kernel().ConfigID()},
		{"elements", strconv.Itoa(len(res))},
		{"negative", strconv.Itoa(negatives)},
		{"min", strconv.FormatFloat(float64(lo), 'g', 5, 32)},
		{"max", strconv.FormatFloat(float64(hi), 'g', 5, 32)},
		{"elapsed", elapsed.String()},
	})
	return nil
}
