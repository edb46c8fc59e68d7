// Package main is the entry point for the polycalc CLI and server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lemonberrylabs/polycalc/pkg/api"
	grpcapi "github.com/lemonberrylabs/polycalc/pkg/api/grpc"
	"github.com/lemonberrylabs/polycalc/pkg/expr"
	"github.com/lemonberrylabs/polycalc/pkg/graph"
	"github.com/lemonberrylabs/polycalc/pkg/manifest"
	"github.com/lemonberrylabs/polycalc/pkg/ops"
	"github.com/lemonberrylabs/polycalc/pkg/runtime"
	"github.com/lemonberrylabs/polycalc/pkg/solver"
	"github.com/lemonberrylabs/polycalc/pkg/store"
	"github.com/lemonberrylabs/polycalc/pkg/types"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// cli holds the state shared by every subcommand.
type cli struct {
	verbose     bool
	maxExponent int
	server      string

	logger *zap.Logger
	set    ops.Set
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "ERR: %s\n", errorMessage(err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{logger: zap.NewNop(), set: ops.Default()}

	root := &cobra.Command{
		Use:           "polycalc [expression]",
		Short:         "Polynomial expression parser and equation solver",
		Example: `  polycalc "(x+1)(x-1)"
  polycalc "2x + 4 = 0"
  polycalc -- -x^2+4=0`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config := zap.NewProductionConfig()
			if c.verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			c.logger = logger

			limit := c.maxExponent
			if !cmd.Flags().Changed("max-exponent") {
				limit, err = strconv.Atoi(envOrDefault("MAX_EXPONENT", "64"))
				if err != nil {
					return fmt.Errorf("invalid MAX_EXPONENT: %w", err)
				}
			}
			c.set = ops.Default().WithMaxExponent(limit)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = c.logger.Sync()
		},
		// With an expression argument the root command prints what a
		// calculator display would show for it.
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			e, err := checkLength(args[0])
			if err != nil {
				return err
			}
			return printLine(cmd.OutOrStdout(), solver.Display(e, c.set))
		},
	}
	root.Version = version + " (commit=" + commit + ", built=" + date + ")"
	root.SetVersionTemplate("polycalc version {{.Version}}\n")

	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().IntVar(&c.maxExponent, "max-exponent", 64, "Largest accepted exponent, 0 for no limit (env MAX_EXPONENT)")
	root.PersistentFlags().StringVar(&c.server, "server", "", "Send requests to a polycalc gRPC server at this address instead of computing locally")

	root.AddCommand(
		c.parseCmd(),
		c.solveCmd(),
		c.evalCmd(),
		c.sampleCmd(),
		c.batchCmd(),
		c.serveCmd(),
	)
	return root
}

// --- Expression commands ---

func (c *cli) parseCmd() *cobra.Command {
	var tree bool
	cmd := &cobra.Command{
		Use:   "parse <expression>",
		Short: "Print the canonical form of an expression",
		Example: `  polycalc parse "(x+1)^2"
  polycalc parse --tree -- -2x+3`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := checkLength(args[0])
			if err != nil {
				return err
			}
			if c.server != "" {
				out, err := c.remote(cmd.Context(), "Parse", map[string]any{"expression": e})
				if err != nil {
					return err
				}
				if tree {
					return printLine(cmd.OutOrStdout(), out["tree"])
				}
				return printLine(cmd.OutOrStdout(), out["polynomial"])
			}

			if tree {
				node, err := expr.ParseTree(e)
				if err != nil {
					return err
				}
				return printLine(cmd.OutOrStdout(), node.String())
			}
			p, err := expr.ParseWith(e, c.set)
			if err != nil {
				return err
			}
			return printLine(cmd.OutOrStdout(), p.String())
		},
	}
	cmd.Flags().BoolVar(&tree, "tree", false, "Print the fully parenthesized syntax tree instead")
	return cmd
}

func (c *cli) solveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "solve <equation>",
		Short: "Solve a linear or quadratic equation in x",
		Example: `  polycalc solve "x^2 = 1"
  polycalc solve -- -x^2+4=0`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := checkLength(args[0])
			if err != nil {
				return err
			}
			if c.server != "" {
				out, err := c.remote(cmd.Context(), "Solve", map[string]any{"expression": e})
				if err != nil {
					return err
				}
				return printLine(cmd.OutOrStdout(), out["solution"])
			}

			p, err := expr.ParseWith(e, c.set)
			if err != nil {
				return err
			}
			sol, err := solver.Solve(p)
			if err != nil {
				return err
			}
			return printLine(cmd.OutOrStdout(), sol.String())
		},
	}
}

func (c *cli) evalCmd() *cobra.Command {
	var x float64
	cmd := &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate an expression at x",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := checkLength(args[0])
			if err != nil {
				return err
			}
			if c.server != "" {
				out, err := c.remote(cmd.Context(), "Evaluate", map[string]any{"expression": e, "x": x})
				if err != nil {
					return err
				}
				v, _ := out["value"].(float64)
				return printLine(cmd.OutOrStdout(), solver.FormatDouble(v))
			}

			p, err := expr.ParseWith(e, c.set)
			if err != nil {
				return err
			}
			return printLine(cmd.OutOrStdout(), solver.FormatDouble(p.Evaluate(x)))
		},
	}
	cmd.Flags().Float64Var(&x, "x", 0, "Value of x")
	return cmd
}

func (c *cli) sampleCmd() *cobra.Command {
	var (
		from, to float64
		samples  int
	)
	cmd := &cobra.Command{
		Use:   "sample <expression>",
		Short: "Print evenly spaced (x, y) points of an expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := checkLength(args[0])
			if err != nil {
				return err
			}

			var points []graph.Point
			if c.server != "" {
				out, err := c.remote(cmd.Context(), "Sample", map[string]any{
					"expression": e, "xMin": from, "xMax": to, "samples": samples,
				})
				if err != nil {
					return err
				}
				raw, _ := out["points"].([]any)
				for _, item := range raw {
					m, _ := item.(map[string]any)
					px, _ := m["x"].(float64)
					py, _ := m["y"].(float64)
					points = append(points, graph.Point{X: px, Y: py})
				}
			} else {
				p, err := expr.ParseWith(e, c.set)
				if err != nil {
					return err
				}
				points, err = graph.Sample(p, from, to, samples)
				if err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			for _, pt := range points {
				if _, err := fmt.Fprintf(w, "%g\t%g\n", pt.X, pt.Y); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&from, "from", graph.DefaultXMin, "Start of the x range")
	cmd.Flags().Float64Var(&to, "to", graph.DefaultXMax, "End of the x range")
	cmd.Flags().IntVar(&samples, "samples", graph.DefaultSamples, "Number of points")
	return cmd
}

// --- Batch ---

func (c *cli) batchCmd() *cobra.Command {
	var parallel int
	cmd := &cobra.Command{
		Use:   "batch <manifest.yaml>",
		Short: "Solve every equation declared in a manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading manifest: %w", err)
			}
			m, err := manifest.Parse(data)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Over-long expressions are reported without being parsed.
			exprs := m.Expressions()
			results := make([]runtime.Result, len(exprs))
			var pending []string
			var index []int
			for i, e := range exprs {
				if _, err := checkLength(e); err != nil {
					results[i] = runtime.Result{Expression: e, Err: err}
					continue
				}
				pending = append(pending, e)
				index = append(index, i)
			}

			runner := runtime.NewRunner(c.set, parallel, c.logger)
			for j, res := range runner.Run(ctx, pending) {
				results[index[j]] = res
			}

			w := cmd.OutOrStdout()
			red := color.New(color.FgRed)
			failed := 0
			for i, res := range results {
				label := m.Equations[i].ID
				if label == "" {
					label = fmt.Sprintf("#%d", i+1)
				}
				if res.Err != nil {
					failed++
					red.Fprintf(w, "%s: ERR: %s\n", label, errorMessage(res.Err))
					continue
				}
				fmt.Fprintf(w, "%s: %s\n", label, res.Output)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d equations failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&parallel, "parallel", "p", runtime.DefaultConcurrencyLimit, "Maximum equations solved concurrently")
	return cmd
}

// --- Serve ---

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST and gRPC servers",
		Args:  cobra.NoArgs,
		RunE:  c.serve,
	}
	cmd.Flags().Int("port", 0, "HTTP server port (default 8790, env PORT)")
	cmd.Flags().Int("grpc-port", 0, "gRPC server port (default 8791, env GRPC_PORT)")
	cmd.Flags().String("host", "", "Bind address (default 0.0.0.0, env HOST)")
	cmd.Flags().String("equations-dir", "", "Directory of equation manifests to load at startup (env EQUATIONS_DIR)")
	return cmd
}

func (c *cli) serve(cmd *cobra.Command, args []string) error {
	port := envOrDefault("PORT", "8790")
	if v, _ := cmd.Flags().GetInt("port"); v != 0 {
		port = strconv.Itoa(v)
	}

	grpcPort := envOrDefault("GRPC_PORT", "8791")
	if v, _ := cmd.Flags().GetInt("grpc-port"); v != 0 {
		grpcPort = strconv.Itoa(v)
	}

	host := envOrDefault("HOST", "0.0.0.0")
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		host = v
	}

	equationsDir := os.Getenv("EQUATIONS_DIR")
	if v, _ := cmd.Flags().GetString("equations-dir"); v != "" {
		equationsDir = v
	}

	addr := host + ":" + port
	grpcAddr := host + ":" + grpcPort
	logger := c.logger

	s := store.New()
	server := api.New(s, c.set, logger)

	if equationsDir != "" {
		if err := server.LoadDir(equationsDir); err != nil {
			logger.Warn("failed to load equations directory", zap.String("dir", equationsDir), zap.Error(err))
		}
	}

	grpcServer := grpcapi.New(c.set, logger)
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", grpcAddr))
		if err := grpcServer.Serve(grpcAddr); err != nil {
			logger.Fatal("gRPC server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		grpcServer.GracefulStop()
		if err := server.Shutdown(); err != nil {
			logger.Error("error during shutdown", zap.Error(err))
		}
	}()

	logger.Info("polycalc listening",
		zap.String("addr", addr),
		zap.String("version", version),
		zap.Int("equations", s.Len()))
	return server.Listen(addr)
}

// --- Helpers ---

// remote calls method on the gRPC server named by --server.
func (c *cli) remote(ctx context.Context, method string, fields map[string]any) (map[string]any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}

	conn, err := grpc.NewClient(c.server, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", c.server, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := grpcapi.NewClient(conn)
	var resp *structpb.Struct
	switch method {
	case "Parse":
		resp, err = client.Parse(ctx, req)
	case "Solve":
		resp, err = client.Solve(ctx, req)
	case "Evaluate":
		resp, err = client.Evaluate(ctx, req)
	case "Sample":
		resp, err = client.Sample(ctx, req)
	default:
		return nil, fmt.Errorf("unknown method %q", method)
	}
	if err != nil {
		c.logger.Debug("remote call failed", zap.String("method", method), zap.Error(err))
		return nil, err
	}
	return resp.AsMap(), nil
}

func checkLength(e string) (string, error) {
	if len(e) > expr.MaxExpressionLength {
		return "", fmt.Errorf("expression exceeds maximum length of %d characters", expr.MaxExpressionLength)
	}
	return e, nil
}

func printLine(w io.Writer, v any) error {
	_, err := fmt.Fprintln(w, v)
	return err
}

// errorMessage strips the kind prefix from algebra errors and the status
// wrapper from remote ones.
func errorMessage(err error) string {
	var ae *types.AlgebraError
	if errors.As(err, &ae) {
		return ae.Message
	}
	if st, ok := status.FromError(err); ok {
		msg := st.Message()
		if _, rest, found := strings.Cut(msg, ": "); found {
			return rest
		}
		return msg
	}
	return err.Error()
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
