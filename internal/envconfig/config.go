// Package envconfig reads runtime configuration from OPCORE_* environment
// variables. Every getter re-reads the environment and falls back to its
// default, with a warning, on values it cannot parse.
package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sys/cpu"

	"github.com/born-ml/opcore/internal/kernel"
)

// Var returns an environment variable stripped of surrounding quotes and spaces.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

// LogLevel returns the log level from OPCORE_DEBUG. A true value enables
// debug records; an integer n selects slog.Level(-4n).
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("OPCORE_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}
	return level
}

// Uint returns a getter for a positive integer with a default.
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil || n == 0 {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}
		return defaultValue
	}
}

var (
	// NumThreads sets the CPU backend worker count.
	NumThreads = Uint("OPCORE_NUM_THREADS", uint(runtime.NumCPU()))
	// QueueBatch sets how many commands the accelerator queue collects before
	// it submits a batch on its own.
	QueueBatch = Uint("OPCORE_QUEUE_BATCH", 32)
)

// DefaultVectorBytes is the host vector register width in bytes.
func DefaultVectorBytes() uint {
	if cpu.X86.HasAVX2 {
		return 32
	}
	return 16
}

// VectorBytes returns the kernel vector width from OPCORE_VECTOR_BYTES.
// Only powers of two from 4 to 64 are accepted.
func VectorBytes() uint {
	def := DefaultVectorBytes()
	n := Uint("OPCORE_VECTOR_BYTES", def)()
	if n < 4 || n > 64 || n&(n-1) != 0 {
		slog.Warn("invalid vector width, using default", "value", n, "default", def)
		return def
	}
	return n
}

// GPUTarget returns the accelerator class from OPCORE_GPU_TARGET.
func GPUTarget() kernel.Target {
	s := Var("OPCORE_GPU_TARGET")
	if s == "" {
		return kernel.Bifrost
	}
	t, ok := kernel.ParseTarget(s)
	if !ok || t == kernel.CPU {
		slog.Warn("invalid gpu target, using default", "value", s, "default", kernel.Bifrost)
		return kernel.Bifrost
	}
	return t
}

// EnvVar describes one configuration variable.
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap returns every variable with its current value.
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"OPCORE_DEBUG":        {"OPCORE_DEBUG", LogLevel(), "Show additional debug information (e.g. OPCORE_DEBUG=1)"},
		"OPCORE_NUM_THREADS":  {"OPCORE_NUM_THREADS", NumThreads(), "Worker goroutines of the CPU backend (default: number of CPUs)"},
		"OPCORE_VECTOR_BYTES": {"OPCORE_VECTOR_BYTES", VectorBytes(), "Kernel vector width in bytes (default: detected)"},
		"OPCORE_GPU_TARGET":   {"OPCORE_GPU_TARGET", GPUTarget(), "Accelerator class: midgard, bifrost or valhall (default: bifrost)"},
		"OPCORE_QUEUE_BATCH":  {"OPCORE_QUEUE_BATCH", QueueBatch(), "Commands per accelerator batch (default: 32)"},
	}
}

// Values returns every variable formatted as a string.
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}
