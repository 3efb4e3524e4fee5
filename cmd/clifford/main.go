package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/clifford/internal/analysis"
	"github.com/san-kum/clifford/internal/automation"
	"github.com/san-kum/clifford/internal/config"
	"github.com/san-kum/clifford/internal/dynamo"
	"github.com/san-kum/clifford/internal/gui"
	"github.com/san-kum/clifford/internal/logging"
	"github.com/san-kum/clifford/internal/metrics"
	"github.com/san-kum/clifford/internal/optim"
	"github.com/san-kum/clifford/internal/sim"
	"github.com/san-kum/clifford/internal/storage"
	"github.com/san-kum/clifford/internal/viz"
	"github.com/san-kum/clifford/internal/web"
	"github.com/spf13/cobra"
)

// Flags shared by several commands (canvas, session and parameter source)
// are read from each command's own flag set in resolveConfig. Only
// single-command flags are bound to variables.
var (
	dataDir    string
	configFile string
	logLevel   string
	// Hosts
	addr string
	fps  int
	out  string
	// Analysis
	lyapSteps  int
	sweepParam string
	bifMin     float64
	bifMax     float64
	bifSteps   int
	// Bench
	benchBudget int
	benchFrames int
	// Search
	searchParams []string
	searchMin    float64
	searchMax    float64
	searchSteps  int
	objective    string
	top          int
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd registers every command and its flags.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "clifford",
		Short:        "time-budgeted Clifford attractor renderer",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".clifford", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")

	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "render frames headless and record statistics",
		RunE:  runRender,
	}
	addSessionFlags(renderCmd)
	renderCmd.Flags().Int("frames", config.DefaultFrames, "number of frames")
	renderCmd.Flags().Bool("no-save", false, "do not store statistics")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "render in the terminal",
		RunE:  runLive,
	}
	addSessionFlags(liveCmd)

	guiCmd := &cobra.Command{
		Use:   "gui",
		Short: "render in a window",
		RunE:  runGUI,
	}
	addSessionFlags(guiCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "stream frames to a browser",
		RunE:  runServe,
	}
	addSessionFlags(serveCmd)
	serveCmd.Flags().StringVar(&addr, "addr", "localhost:8080", "listen address")
	serveCmd.Flags().IntVar(&fps, "fps", 30, "frames per second")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot frame statistics of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata and frame statistics as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&out, "out", "o", "", "output file (default <run_id>.json)")

	deleteCmd := &cobra.Command{
		Use:   "delete [run_id]",
		Short: "delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).Delete(args[0])
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list parameter presets",
		RunE:  listPresets,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "lyapunov exponent and bifurcation sweep",
		RunE:  runAnalyze,
	}
	addParamFlags(analyzeCmd)
	analyzeCmd.Flags().IntVar(&lyapSteps, "steps", 20000, "lyapunov iterations")
	analyzeCmd.Flags().StringVar(&sweepParam, "sweep", "", "coefficient to sweep (a, b, c, d)")
	analyzeCmd.Flags().Float64Var(&bifMin, "min", -0.5, "sweep start")
	analyzeCmd.Flags().Float64Var(&bifMax, "max", 1.5, "sweep end")
	analyzeCmd.Flags().IntVar(&bifSteps, "sweep-steps", 80, "sweep resolution")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "measure iterations per second",
		RunE:  runBench,
	}
	addParamFlags(benchCmd)
	benchCmd.Flags().IntVar(&benchBudget, "budget", 100, "frame budget in ms")
	benchCmd.Flags().IntVar(&benchFrames, "frames", 10, "frames per size")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of renders",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().Bool("no-save", false, "do not store statistics")

	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "grid search coefficients for interesting attractors",
		RunE:  runSearch,
	}
	addParamFlags(searchCmd)
	searchCmd.Flags().StringSliceVar(&searchParams, "params", []string{"a", "b"}, "coefficients to search")
	searchCmd.Flags().Float64Var(&searchMin, "min", -3, "range start")
	searchCmd.Flags().Float64Var(&searchMax, "max", 3, "range end")
	searchCmd.Flags().IntVar(&searchSteps, "steps", 9, "values per coefficient")
	searchCmd.Flags().StringVar(&objective, "objective", "spread", "score: spread or lyapunov")
	searchCmd.Flags().IntVar(&top, "top", 5, "candidates to show")

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write the default config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(args[0], config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}

	rootCmd.AddCommand(renderCmd, liveCmd, guiCmd, serveCmd, listCmd, plotCmd, exportCmd, deleteCmd, presetsCmd, analyzeCmd, benchCmd, scenarioCmd, searchCmd, initCmd)
	return rootCmd
}

func addParamFlags(cmd *cobra.Command) {
	cmd.Flags().String("preset", "", "named parameter preset")
	cmd.Flags().Bool("random", false, "draw parameters at random")
	cmd.Flags().Int64("seed", 0, "seed for random parameters (implies --random)")
	cmd.Flags().Float64("a", dynamo.CanonicalParams.A, "coefficient a")
	cmd.Flags().Float64("b", dynamo.CanonicalParams.B, "coefficient b")
	cmd.Flags().Float64("c", dynamo.CanonicalParams.C, "coefficient c")
	cmd.Flags().Float64("d", dynamo.CanonicalParams.D, "coefficient d")
	cmd.Flags().Float64("x0", dynamo.DefaultStart.X, "start x")
	cmd.Flags().Float64("y0", dynamo.DefaultStart.Y, "start y")
}

func addSessionFlags(cmd *cobra.Command) {
	addParamFlags(cmd)
	cmd.Flags().Int("width", config.DefaultWidth, "canvas width")
	cmd.Flags().Int("height", config.DefaultHeight, "canvas height")
	cmd.Flags().Int("samples", config.DefaultCalibration, "calibration samples")
	cmd.Flags().Int("budget", config.DefaultBudgetMs, "frame budget in ms")
}

// resolveConfig layers defaults, the config file, the preset and then
// any flags the user set.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()

	if preset, _ := flags.GetString("preset"); preset != "" {
		p, ok := config.GetPreset(preset)
		if !ok {
			return nil, fmt.Errorf("%w: %s (available: %v)", dynamo.ErrUnknownPreset, preset, config.ListPresets())
		}
		cfg.SetParams(p)
	}

	// Only flags the command declares and the user set override the file.
	setInt := func(name string, dst *int) error {
		if !flags.Changed(name) {
			return nil
		}
		v, err := flags.GetInt(name)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
	setFloat := func(name string, dst *float64) error {
		if !flags.Changed(name) {
			return nil
		}
		v, err := flags.GetFloat64(name)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}

	for name, dst := range map[string]*int{
		"width":   &cfg.Width,
		"height":  &cfg.Height,
		"samples": &cfg.Calibration,
		"budget":  &cfg.BudgetMs,
		"frames":  &cfg.Frames,
	} {
		if err := setInt(name, dst); err != nil {
			return nil, err
		}
	}
	if err := setFloat("x0", &cfg.Start.X); err != nil {
		return nil, err
	}
	if err := setFloat("y0", &cfg.Start.Y); err != nil {
		return nil, err
	}

	for _, name := range []string{"a", "b", "c", "d"} {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetFloat64(name)
		if err != nil {
			return nil, err
		}
		p, err := cfg.FixedParams().With(name, v)
		if err != nil {
			return nil, err
		}
		cfg.SetParams(p)
	}

	random, _ := flags.GetBool("random")
	if flags.Changed("seed") {
		seed, err := flags.GetInt64("seed")
		if err != nil {
			return nil, err
		}
		cfg.Params.Source = config.SourceRandom
		cfg.Params.Seed = seed
	} else if random {
		cfg.Params.Source = config.SourceRandom
		cfg.Params.Seed = time.Now().UnixNano()
	}

	if flags.Changed("log-level") || cfg.LogLevel == "" {
		cfg.LogLevel = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) (*log.Logger, error) {
	return logging.New(cfg.LogLevel, w)
}

func newSession(cfg *config.Config, logger *log.Logger) (*sim.Session, error) {
	cc, err := cfg.CanvasConfig()
	if err != nil {
		return nil, err
	}
	canvas, err := sim.NewCanvas(cc, sim.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	session := sim.NewSession(canvas, cfg.SessionConfig(), sim.WithSessionLogger(logger))
	for _, m := range metrics.Default() {
		session.AddMetric(m)
	}
	return session, nil
}

// setup resolves the config and builds a logger and session. A nil
// writer sends log output to stderr.
func setup(cmd *cobra.Command, logTo io.Writer) (*config.Config, *log.Logger, *sim.Session, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := newLogger(cfg, logTo)
	if err != nil {
		return nil, nil, nil, err
	}
	session, err := newSession(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, session, nil
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, logger, session, err := setup(cmd, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("rendering %d frames at %dx%d...\n", cfg.Frames, cfg.Width, cfg.Height)
	start := time.Now()

	result, err := session.Run(ctx, cfg.Frames)
	if err != nil {
		// Keep what was rendered before an interrupt.
		if !errors.Is(err, context.Canceled) || result == nil || len(result.Frames) == 0 {
			return err
		}
		logger.Warn("interrupted", "frames", len(result.Frames))
	}
	elapsed := time.Since(start)

	c := session.Canvas()
	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("params: %s\n", result.Params)
	fmt.Printf("bounds: x [%.4f, %.4f] y [%.4f, %.4f]\n", result.Bounds.XMin, result.Bounds.XMax, result.Bounds.YMin, result.Bounds.YMax)
	fmt.Printf("frames: %d  iters: %d  touched: %d  maxed: %d  clamped: %d\n",
		len(result.Frames), c.Iters(), c.Touched(), c.Maxed(), c.Clamped())
	printMetrics(result.Metrics)

	if len(result.Frames) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(touchedSeries(result.Frames),
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("touched pixels per frame"),
		))
	}

	if noSave, _ := cmd.Flags().GetBool("no-save"); noSave {
		return nil
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	src, err := cfg.ParamSource()
	if err != nil {
		return err
	}
	runID, err := st.Save(storage.RunInfo{
		Width:   cfg.Width,
		Height:  cfg.Height,
		Start:   cfg.StartPoint(),
		Source:  src,
		Session: session.Config(),
	}, result)
	if err != nil {
		return err
	}
	logger.Info("saved run", "id", runID, "dir", dataDir)
	fmt.Printf("\nrun id: %s\n", runID)
	return nil
}

func printMetrics(m map[string]float64) {
	if len(m) == 0 {
		return
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, m[name])
	}
}

func touchedSeries(frames []sim.FrameStats) []float64 {
	data := make([]float64, len(frames))
	for i, f := range frames {
		data[i] = float64(f.Touched)
	}
	return data
}

func runLive(cmd *cobra.Command, args []string) error {
	// The terminal belongs to the view; logs would tear it.
	_, _, session, err := setup(cmd, io.Discard)
	if err != nil {
		return err
	}
	return viz.Run(session, "clifford")
}

func runGUI(cmd *cobra.Command, args []string) error {
	_, _, session, err := setup(cmd, nil)
	if err != nil {
		return err
	}
	return gui.Run(session, "clifford")
}

func runServe(cmd *cobra.Command, args []string) error {
	if fps <= 0 {
		return fmt.Errorf("fps must be positive, got %d", fps)
	}
	_, logger, session, err := setup(cmd, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	srv := web.NewServer(session,
		web.WithLogger(logger),
		web.WithInterval(time.Second/time.Duration(fps)),
	)
	return srv.ListenAndServe(ctx, addr)
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tSOURCE\tSIZE\tFRAMES\tBUDGET\tCOVERAGE")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%dx%d\t%d\t%dms\t%.4f\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Source,
			run.Width, run.Height,
			run.Frames,
			run.BudgetMs,
			run.Metrics["coverage"],
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	stats, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("params: %s\n", meta.Params)
	fmt.Printf("frames: %d\n\n", len(stats))

	series := []struct {
		caption string
		value   func(sim.FrameStats) float64
	}{
		{"touched pixels", func(f sim.FrameStats) float64 { return float64(f.Touched) }},
		{"maxed pixels", func(f sim.FrameStats) float64 { return float64(f.Maxed) }},
		{"iterations per frame", func(f sim.FrameStats) float64 { return float64(f.Iterations) }},
	}

	for _, s := range series {
		data := make([]float64, len(stats))
		for i, f := range stats {
			data[i] = s.value(f)
		}
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		))
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	path := out
	if path == "" {
		path = runID + ".json"
	}

	if err := storage.New(dataDir).ExportJSON(runID, path); err != nil {
		return err
	}
	fmt.Printf("exported %s to %s\n", runID, path)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tA\tB\tC\tD\tDESCRIPTION")
	for _, name := range config.ListPresets() {
		p := config.Presets[name]
		fmt.Fprintf(w, "%s\t%+.4f\t%+.4f\t%+.4f\t%+.4f\t%s\n",
			name, p.Params.A, p.Params.B, p.Params.C, p.Params.D, p.Description)
	}
	return w.Flush()
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	src, err := cfg.ParamSource()
	if err != nil {
		return err
	}
	p, err := src.Resolve()
	if err != nil {
		return err
	}
	start := cfg.StartPoint()

	lambda := analysis.LyapunovExponent(p, start, lyapSteps, 1e-8)
	fmt.Printf("params: %s\n", p)
	fmt.Printf("lyapunov exponent: %.6f (%s)\n\n", lambda, analysis.Classify(lambda))

	orbit := analysis.GenerateOrbit(p, start, 1000, 20000)
	fmt.Print(analysis.OrbitToASCII(orbit, 80, 30))

	if sweepParam == "" {
		return nil
	}

	data, err := analysis.BifurcationDiagram(p, sweepParam, bifMin, bifMax, bifSteps, 500, 300, start)
	if err != nil {
		return err
	}
	fmt.Printf("\nbifurcation: %s in [%.3f, %.3f]\n", sweepParam, bifMin, bifMax)
	fmt.Print(analysis.BifurcationToASCII(data, 80, 24))
	return nil
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	// Bench has its own budget and frame defaults.
	cfg.BudgetMs, cfg.Frames = benchBudget, benchFrames
	if cfg.Frames <= 0 || cfg.BudgetMs <= 0 {
		return fmt.Errorf("frames and budget must be positive")
	}

	sizes := []int{256, 512, 1024}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SIZE\tFRAMES\tITERS\tITERS/SEC\tCOVERAGE")

	for _, size := range sizes {
		cfg.Width, cfg.Height = size, size
		session, err := newSession(cfg, logging.Discard())
		if err != nil {
			return err
		}

		result, err := session.Run(context.Background(), cfg.Frames)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "%dx%d\t%d\t%d\t%.0f\t%.4f\n",
			size, size,
			len(result.Frames),
			session.Canvas().Iters(),
			result.Metrics["throughput"],
			result.Metrics["coverage"],
		)
	}
	return w.Flush()
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, nil)
	if err != nil {
		return err
	}

	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	runner := &automation.Runner{Base: cfg, Logger: logger}
	if noSave, _ := cmd.Flags().GetBool("no-save"); !noSave {
		runner.Store = storage.New(dataDir)
		if err := runner.Store.Init(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := runner.RunScenario(ctx, scenario)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tRUN\tPARAMS\tFRAMES\tCOVERAGE")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4f\n",
			r.Name, r.RunID, r.Result.Params, len(r.Result.Frames), r.Result.Metrics["coverage"])
	}
	if ferr := w.Flush(); err == nil {
		err = ferr
	}
	return err
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	base := cfg.FixedParams()
	start := cfg.StartPoint()

	var score optim.Objective
	switch objective {
	case "spread":
		score = func(_ context.Context, p dynamo.Params) (float64, error) {
			return analysis.OrbitSpread(analysis.GenerateOrbit(p, start, 1000, 20000), 64), nil
		}
	case "lyapunov":
		score = func(_ context.Context, p dynamo.Params) (float64, error) {
			return analysis.LyapunovExponent(p, start, 5000, 1e-8), nil
		}
	default:
		return fmt.Errorf("unknown objective: %s (want spread or lyapunov)", objective)
	}

	ranges := make([][]float64, len(searchParams))
	for i := range ranges {
		ranges[i] = optim.Linspace(searchMin, searchMax, searchSteps)
	}
	gs, err := optim.NewGridSearch(searchParams, ranges)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("searching %d candidates by %s...\n", gs.Size(), objective)
	best, err := gs.Search(ctx, base, score, top)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tA\tB\tC\tD")
	for _, c := range best {
		fmt.Fprintf(w, "%.4f\t%+.4f\t%+.4f\t%+.4f\t%+.4f\n", c.Score, c.Params.A, c.Params.B, c.Params.C, c.Params.D)
	}
	return w.Flush()
}
