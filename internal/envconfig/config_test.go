package envconfig

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/born-ml/opcore/internal/kernel"
)

func TestLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"false": slog.LevelInfo,
		"1":     slog.LevelDebug,
		"true":  slog.LevelDebug,
		"2":     slog.Level(-8),
	}
	for value, want := range cases {
		t.Run(value, func(t *testing.T) {
			t.Setenv("OPCORE_DEBUG", value)
			assert.Equal(t, want, LogLevel())
		})
	}
}

func TestNumThreads(t *testing.T) {
	t.Setenv("OPCORE_NUM_THREADS", "3")
	assert.Equal(t, uint(3), NumThreads())

	for _, bad := range []string{"zero", "-1", "0"} {
		t.Setenv("OPCORE_NUM_THREADS", bad)
		assert.Positive(t, NumThreads(), "value %q", bad)
		assert.NotEqual(t, uint(0), NumThreads())
	}

	t.Setenv("OPCORE_NUM_THREADS", "'8'")
	assert.Equal(t, uint(8), NumThreads(), "quotes are stripped")
}

func TestVectorBytes(t *testing.T) {
	t.Setenv("OPCORE_VECTOR_BYTES", "")
	def := VectorBytes()
	assert.Contains(t, []uint{16, 32}, def)

	t.Setenv("OPCORE_VECTOR_BYTES", "8")
	assert.Equal(t, uint(8), VectorBytes())

	for _, bad := range []string{"12", "128", "2", "wide"} {
		t.Setenv("OPCORE_VECTOR_BYTES", bad)
		assert.Equal(t, def, VectorBytes(), "value %q", bad)
	}
}

func TestGPUTarget(t *testing.T) {
	cases := map[string]kernel.Target{
		"":        kernel.Bifrost,
		"midgard": kernel.Midgard,
		"Valhall": kernel.Valhall,
		"cpu":     kernel.Bifrost,
		"tpu":     kernel.Bifrost,
	}
	for value, want := range cases {
		t.Run(value, func(t *testing.T) {
			t.Setenv("OPCORE_GPU_TARGET", value)
			assert.Equal(t, want, GPUTarget())
		})
	}
}

func TestValues(t *testing.T) {
	t.Setenv("OPCORE_QUEUE_BATCH", "5")
	vals := Values()
	assert.Equal(t, "5", vals["OPCORE_QUEUE_BATCH"])
	assert.Len(t, vals, 5)
}
