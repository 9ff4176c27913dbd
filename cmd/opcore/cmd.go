package main

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/born-ml/opcore/internal/envconfig"
	"github.com/born-ml/opcore/internal/tensor"
)

const version = "v0.1.0-dev"

// NewCLI builds the root command.
func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "opcore",
		Short:         "Tiled tensor-operator runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: envconfig.LogLevel(),
			})))
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "opcore %s\n", version)
		},
	}

	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Show the OPCORE_* configuration",
		Args:  cobra.NoArgs,
		RunE:  EnvHandler,
	}

	windowCmd := &cobra.Command{
		Use:   "window",
		Short: "Show how a tensor's window splits across workers",
		Args:  cobra.NoArgs,
		RunE:  WindowHandler,
	}
	windowCmd.Flags().String("shape", "16,8,3", "Tensor extents, dimension 0 first")
	windowCmd.Flags().Int("step", 4, "Step along dimension 0")
	windowCmd.Flags().Int("dim", 2, "Split dimension")
	windowCmd.Flags().Int("workers", 4, "Number of workers")

	gemmCmd := &cobra.Command{
		Use:   "gemm-plan",
		Short: "Show the GEMM reshape decision for a problem size",
		Args:  cobra.NoArgs,
		RunE:  GEMMPlanHandler,
	}
	gemmCmd.Flags().Int("m", 64, "Rows of A and of the output")
	gemmCmd.Flags().Int("n", 128, "Columns of B and of the output")
	gemmCmd.Flags().Int("k", 512, "Columns of A, rows of B")
	gemmCmd.Flags().String("dtype", "f32", "Element type")
	gemmCmd.Flags().String("target", "bifrost", "Hardware class")
	gemmCmd.Flags().Bool("constant-b", true, "B is constant across runs")

	preluCmd := &cobra.Command{
		Use:   "prelu",
		Short: "Run a PReLU on random data and summarise the result",
		Args:  cobra.NoArgs,
		RunE:  PReLUHandler,
	}
	preluCmd.Flags().String("shape", "32,32,8,1", "Tensor extents, dimension 0 first")
	preluCmd.Flags().String("layout", "nchw", "Memory layout (nchw or nhwc)")
	preluCmd.Flags().String("dtype", "f32", "Element type")
	preluCmd.Flags().String("backend", "cpu", "Backend (cpu or accel)")
	preluCmd.Flags().Uint64("seed", 1, "Random seed")
	preluCmd.Flags().String("save", "", "Write input, slope and output to a SafeTensors file")

	rootCmd.AddCommand(versionCmd, envCmd, windowCmd, gemmCmd, preluCmd)
	return rootCmd
}

// EnvHandler prints every configuration variable.
func EnvHandler(cmd *cobra.Command, _ []string) error {
	vars := envconfig.AsMap()
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	var data [][]string
	for _, name := range names {
		v := vars[name]
		data = append(data, []string{name, fmt.Sprintf("%v", v.Value), v.Description})
	}
	renderTable(cmd, []string{"NAME", "VALUE", "DESCRIPTION"}, data)
	return nil
}

func renderTable(cmd *cobra.Command, header []string, data [][]string) {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}

// parseShape reads "a,b,c" into a shape, dimension 0 first.
func parseShape(s string) (tensor.Shape, error) {
	parts := strings.Split(s, ",")
	shape := make(tensor.Shape, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid shape %q: %w", s, err)
		}
		shape = append(shape, n)
	}
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return shape, nil
}
