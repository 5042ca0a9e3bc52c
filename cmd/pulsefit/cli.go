package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/katalvlaran/pulsetrain/platform"
	"github.com/katalvlaran/pulsetrain/render"
	"github.com/katalvlaran/pulsetrain/server"
	"github.com/katalvlaran/pulsetrain/shape"
	"github.com/katalvlaran/pulsetrain/stim"
	"github.com/katalvlaran/pulsetrain/store"
	"github.com/katalvlaran/pulsetrain/train"
)

// Environment fallbacks.
const (
	envPlatform = "PULSEFIT_PLATFORM"
	envDBURL    = "DATABASE_URL"
	envDBType   = "DATABASE_TYPE"
	envPort     = "PORT"

	defaultPlatform = "nic"
	defaultPort     = 8080
)

// app carries state shared by all subcommands.
type app struct {
	envFile string
	verbose bool
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "pulsefit",
		Short: "Fit stimulation pulse trains to research hardware",
		Long: `pulsefit re-quantizes stimulation parameters (rate, phase, gap,
amplitude) to the discrete grid of a hardware platform and produces the
device-ready pulse sequence and electrodogram.

Pipeline: request → validate → fit → schedule → render/store`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Environment file loaded before flags fall back to env")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Debug logging on stderr")

	root.AddCommand(
		a.newPlatformsCmd(),
		a.newFitCmd(),
		a.newScheduleCmd(),
		a.newRenderCmd(),
		a.newServeCmd(),
	)

	return root
}

// setup loads the env file and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", a.envFile, err)
		}
	}
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	return nil
}

// requestFlags binds the stimulation request to command flags.
type requestFlags struct {
	platform    string
	requestFile string
	modulator   string
	topology    string
	polarity    string
	secondSign  int
	seed        int64
	req         stim.Request
}

func (f *requestFlags) bind(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.platform, "platform", "p", "", "Platform name (env "+envPlatform+", default "+defaultPlatform+")")
	fl.StringVar(&f.requestFile, "request", "", "JSON request file; replaces the request flags")
	fl.StringVar(&f.modulator, "modulator", "", "JSON modulator file {\"times\":[...],\"weights\":[...]}")
	fl.StringVarP(&f.topology, "topology", "t", shape.Biphasic.String(), "biphasic, triphasic, precision-triphasic, quadraphasic or two-pulse")
	fl.StringVar(&f.polarity, "polarity", stim.NegativeFirst.String(), "negative, positive or alternating")
	fl.IntVar(&f.secondSign, "second-sign", 0, "Two-pulse second pulse sign (+1/-1, 0 follows polarity)")
	fl.Int64Var(&f.seed, "seed", 0, "Jitter seed (0 uses the default seed)")
	fl.Float64Var(&f.req.PhaseUs, "phase", 25, "Phase duration in µs")
	fl.Float64Var(&f.req.GapUs, "gap", 8, "Interphase gap in µs")
	fl.Float64VarP(&f.req.RatePPS, "rate", "r", 250, "Rate in pulses/s")
	fl.Float64VarP(&f.req.DurationS, "duration", "d", 1, "Stimulus duration in s")
	fl.IntSliceVarP(&f.req.Electrodes, "electrode", "e", []int{1}, "Electrode id per channel")
	fl.Float64SliceVarP(&f.req.Amplitudes, "amplitude", "a", []float64{0}, "Amplitude per channel in device units")
	fl.Float64Var(&f.req.MaxAmplitude, "max-amplitude", 0, "Amplitude limit (0 = platform ceiling)")
	fl.IntVar(&f.req.Asymmetry, "asymmetry", 1, "Asymmetry ratio (1,2,4,8,16,32)")
	fl.Float64Var(&f.req.TwoPulseGapUs, "two-pulse-gap", 0, "Two-pulse silent interval in µs")
	fl.Float64Var(&f.req.InterPulseUs, "inter-pulse", 0, "Quadraphasic inter-stimulus gap in µs")
	fl.Float64Var(&f.req.JitterUs, "jitter", 0, "Full jitter window in µs")
}

// resolve returns the platform and request described by the flags.
func (f *requestFlags) resolve() (platform.Platform, stim.Request, error) {
	p, err := platform.Lookup(firstNonEmpty(f.platform, os.Getenv(envPlatform), defaultPlatform))
	if err != nil {
		return platform.Platform{}, stim.Request{}, err
	}

	if f.requestFile != "" {
		var req stim.Request
		if err := readJSON(f.requestFile, &req); err != nil {
			return platform.Platform{}, stim.Request{}, err
		}
		return p, req, nil
	}

	req := f.req
	if req.Topology, err = shape.ParseTopology(f.topology); err != nil {
		return platform.Platform{}, stim.Request{}, err
	}
	if req.Polarity, err = stim.ParsePolarity(f.polarity); err != nil {
		return platform.Platform{}, stim.Request{}, err
	}
	req.SecondSign = shape.Sign(f.secondSign)
	if f.modulator != "" {
		var m train.Modulator
		if err := readJSON(f.modulator, &m); err != nil {
			return platform.Platform{}, stim.Request{}, err
		}
		req.Modulator = &m
	}

	return p, req, nil
}

// derive resolves the flags and runs the pipeline.
func (a *app) derive(f *requestFlags) (*stim.Snapshot, error) {
	p, req, err := f.resolve()
	if err != nil {
		return nil, err
	}
	snap, err := stim.Derive(p, req, stim.WithLogger(a.logger), stim.WithSeed(f.seed))
	if err != nil {
		return nil, err
	}

	return snap, nil
}

func (a *app) newPlatformsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List supported hardware platforms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			for _, p := range platform.All() {
				buffer := "free-running"
				if p.FixedBuffer() {
					buffer = humanize.Comma(int64(p.BufferSteps)) + "-step buffer"
				}
				ranges := make([]string, len(p.Ranges))
				for i, r := range p.Ranges {
					ranges[i] = humanize.Ftoa(r)
				}
				topologies := make([]string, len(p.Topologies))
				for i, t := range p.Topologies {
					topologies[i] = t.String()
				}
				fmt.Fprintf(w, "%-6s step %s µs, %s, ranges [%s] %s, min gap %s µs, %d electrodes, %s\n",
					p.Name, humanize.Ftoa(p.StepUs), buffer, strings.Join(ranges, " "), p.Unit,
					humanize.Ftoa(p.MinGapUs), p.Electrodes, strings.Join(topologies, "/"))
			}
			return nil
		},
	}
}

func (a *app) newFitCmd() *cobra.Command {
	var (
		f      requestFlags
		asJSON bool
		dbURL  string
		dbType string
	)
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit a request and print the achievable parameters",
		Long: `Validate and fit a stimulation request, then print the flat
projection of requested and achievable parameters.

Examples:
  pulsefit fit -p nic --phase 43 --gap 8 -r 442 -e 3 -a 100
  pulsefit fit -p rib2 -t two-pulse -e 1,2 -a 100,200 --two-pulse-gap 50 --json
  pulsefit fit --request req.json --db-url pulsefit.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := a.derive(&f)
			if err != nil {
				return err
			}
			if url := firstNonEmpty(dbURL, os.Getenv(envDBURL)); url != "" {
				if err := a.save(cmd.Context(), snap, firstNonEmpty(dbType, os.Getenv(envDBType), store.DriverSQLite), url); err != nil {
					return err
				}
			}
			return printStruct(cmd.OutOrStdout(), snap.Struct(), asJSON)
		},
	}
	f.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the projection as JSON")
	cmd.Flags().StringVar(&dbURL, "db-url", "", "Persist the snapshot to this database (env "+envDBURL+")")
	cmd.Flags().StringVar(&dbType, "db-type", "", "Database driver: sqlite or postgres (env "+envDBType+")")

	return cmd
}

func (a *app) newScheduleCmd() *cobra.Command {
	var f requestFlags
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print pulse onsets, periods and the per-electrode trace summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := a.derive(&f)
			if err != nil {
				return err
			}
			return printSchedule(cmd.OutOrStdout(), snap.Train())
		},
	}
	f.bind(cmd)

	return cmd
}

func (a *app) newRenderCmd() *cobra.Command {
	var (
		f      requestFlags
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the device sequence (text or json)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sink, err := render.Lookup(format)
			if err != nil {
				return err
			}
			snap, err := a.derive(&f)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if out != "" {
				file, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer file.Close()
				w = file
			}
			return sink.Render(w, snap.Sequence(), snap.Platform())
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: "+strings.Join(render.Formats(), ", "))
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func (a *app) newServeCmd() *cobra.Command {
	var (
		port   int
		dbURL  string
		dbType string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the fitting pipeline over HTTP",
		Long: `Start the HTTP API. Snapshots are persisted when a database is configured.

Example:
  pulsefit serve --port 8080 --db-url pulsefit.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port == 0 {
				p, err := envInt(envPort, defaultPort)
				if err != nil {
					return err
				}
				port = p
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := server.Config{Port: port, Logger: a.logger}
			if url := firstNonEmpty(dbURL, os.Getenv(envDBURL)); url != "" {
				st, err := store.Open(ctx, firstNonEmpty(dbType, os.Getenv(envDBType), store.DriverSQLite), url)
				if err != nil {
					return err
				}
				defer st.Close()
				cfg.Store = st
				a.logger.Info("database ready", slog.String("driver", firstNonEmpty(dbType, os.Getenv(envDBType), store.DriverSQLite)))
			}

			return server.New(cfg).Run(ctx)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (env "+envPort+", default "+strconv.Itoa(defaultPort)+")")
	cmd.Flags().StringVar(&dbURL, "db-url", "", "Database URL or sqlite path (env "+envDBURL+")")
	cmd.Flags().StringVar(&dbType, "db-type", "", "Database driver: sqlite or postgres (env "+envDBType+")")

	return cmd
}

// save persists snap in the configured database.
func (a *app) save(ctx context.Context, snap *stim.Snapshot, driver, url string) error {
	st, err := store.Open(ctx, driver, url)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.Save(ctx, snap)
	if err != nil {
		return err
	}
	a.logger.Info("snapshot saved", slog.String("id", rec.ID.String()), slog.String("driver", driver))

	return nil
}

// printStruct writes the projection as sorted "key: value" lines or JSON.
func printStruct(w io.Writer, m map[string]any, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%-24s %v\n", k+":", m[k]); err != nil {
			return err
		}
	}

	return nil
}

// printSchedule writes one line per pulse and one per active electrode.
func printSchedule(w io.Writer, tr train.Train) error {
	g := tr.Electrodogram
	fmt.Fprintf(w, "%s pulses over %s\n",
		humanize.Comma(int64(len(g.PulseTimes))), humanize.SIWithDigits(tr.Duration(), 3, "s"))
	for i, t := range g.PulseTimes {
		line := fmt.Sprintf("pulse %d onset %.6f s period %d steps", i, t, tr.Periods[i])
		if tr.Offsets != nil {
			line += fmt.Sprintf(" jitter %+d", tr.Offsets[i])
		}
		if tr.Weights != nil {
			line += fmt.Sprintf(" weight %.3f", tr.Weights[i])
		}
		fmt.Fprintln(w, line)
	}
	for id := 1; id <= len(g.Traces); id++ {
		if pts := g.Trace(id); len(pts) > 0 {
			fmt.Fprintf(w, "E%d: %s breakpoints\n", id, humanize.Comma(int64(len(pts))))
		}
	}

	return nil
}

func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}

	return ""
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable %q", key, v)
	}

	return n, nil
}
