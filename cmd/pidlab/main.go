package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/Harro4135/pidlab/internal/analyze"
	"github.com/Harro4135/pidlab/internal/config"
	"github.com/Harro4135/pidlab/internal/controller"
	"github.com/Harro4135/pidlab/internal/loop"
	"github.com/Harro4135/pidlab/internal/storage"
	"github.com/Harro4135/pidlab/internal/tune"
	"github.com/Harro4135/pidlab/internal/viz"
)

var (
	dataDir     string
	dt          float64
	duration    float64
	setpoint    float64
	disturbance float64
	historySize int
	kp          float64
	ki          float64
	kd          float64
	mode        string
	ctrlName    string
	configFile  string
	preset      string
	frameRate   int

	// tune command
	processGain  float64
	timeConstant float64
	deadTime     float64
	applyFile    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pidlab",
		Short: "feedback control loop simulation lab",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".pidlab", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation and store the result",
		RunE:  runSimulation,
	}
	addLoopFlags(runCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a simulation with live visualization",
		RunE:  runLive,
	}
	addLoopFlags(liveCmd)
	liveCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate")

	compareCmd := &cobra.Command{
		Use:   "compare [mode1] [mode2] ...",
		Short: "compare controller modes on the same setpoint",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareModes,
	}
	addLoopFlags(compareCmd)

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "derive gains from a process characterization",
		RunE:  tuneGains,
	}
	tuneCmd.Flags().Float64Var(&processGain, "gain", 1.0, "process gain")
	tuneCmd.Flags().Float64Var(&timeConstant, "tau", 1.0, "process time constant")
	tuneCmd.Flags().Float64Var(&deadTime, "dead-time", 0.1, "process dead time")
	tuneCmd.Flags().StringVar(&applyFile, "apply", "", "write gains into this config file")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "step-response metrics for a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "write run samples as CSV to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "write run metadata and samples as JSON to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range config.ListPresets() {
				fmt.Println(p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, compareCmd, tuneCmd, listCmd, plotCmd, analyzeCmd, exportCSVCmd, exportJSONCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addLoopFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().Float64Var(&setpoint, "setpoint", config.DefaultSetpoint, "setpoint")
	cmd.Flags().Float64Var(&disturbance, "disturbance", 0.0, "per-tick disturbance")
	cmd.Flags().IntVar(&historySize, "history", config.DefaultHistorySize, "history window size")
	cmd.Flags().Float64Var(&kp, "kp", config.DefaultKp, "proportional gain")
	cmd.Flags().Float64Var(&ki, "ki", config.DefaultKi, "integral gain")
	cmd.Flags().Float64Var(&kd, "kd", config.DefaultKd, "derivative gain")
	cmd.Flags().StringVar(&mode, "mode", "pid", "controller mode (p|pi|pd|pid)")
	cmd.Flags().StringVar(&ctrlName, "name", "pid", "controller name")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
}

// resolveConfig merges preset, config file and flags, with explicitly
// set flags winning.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cp := *p
		cp.Controllers = append([]config.ControllerConfig(nil), p.Controllers...)
		cfg = &cp
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("setpoint") {
		cfg.Setpoint = setpoint
	}
	if cmd.Flags().Changed("disturbance") {
		cfg.Disturbance = disturbance
	}
	if cmd.Flags().Changed("history") {
		cfg.HistorySize = historySize
	}
	if preset == "" && configFile == "" {
		cfg.Controllers = []config.ControllerConfig{
			{Name: ctrlName, Mode: mode, Kp: kp, Ki: ki, Kd: kd},
		}
	} else {
		// controller flags keep their meaning next to a preset or
		// config file: gains and mode override every configured
		// controller. A single --name has no sensible target when
		// the file defines several, so that combination is refused.
		if cmd.Flags().Changed("name") {
			return nil, fmt.Errorf("--name cannot be combined with --preset or --config")
		}
		for i := range cfg.Controllers {
			if cmd.Flags().Changed("kp") {
				cfg.Controllers[i].Kp = kp
			}
			if cmd.Flags().Changed("ki") {
				cfg.Controllers[i].Ki = ki
			}
			if cmd.Flags().Changed("kd") {
				cfg.Controllers[i].Kd = kd
			}
			if cmd.Flags().Changed("mode") {
				cfg.Controllers[i].Mode = mode
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildLoop(cfg *config.Config) (*loop.Loop, error) {
	lp, err := loop.New(cfg.LoopConfig())
	if err != nil {
		return nil, err
	}
	ctrls, err := cfg.BuildControllers()
	if err != nil {
		return nil, err
	}
	for _, c := range ctrls {
		if err := lp.Add(c); err != nil {
			return nil, err
		}
	}
	return lp, nil
}

// drive ticks the loop for the configured duration and returns the
// retained samples and an analyzer report per controller.
func drive(lp *loop.Loop, cfg *config.Config) (map[string][]loop.Sample, map[string]analyze.Report, error) {
	// 20/0.1 is 199.99… in floats; plain truncation would drop a tick
	steps := int(math.Round(cfg.Duration / cfg.Dt))
	for i := 0; i < steps; i++ {
		if _, err := lp.Tick(cfg.Setpoint, cfg.Disturbance); err != nil {
			return nil, nil, err
		}
	}

	samples := make(map[string][]loop.Sample)
	reports := make(map[string]analyze.Report)
	for _, name := range lp.Names() {
		h, _ := lp.History(name)
		s := h.Samples()
		samples[name] = s
		reports[name] = analyze.Analyze(s, cfg.Setpoint, cfg.Dt)
	}
	return samples, reports, nil
}

func metaFor(cfg *config.Config, reports map[string]analyze.Report) storage.RunMetadata {
	meta := storage.RunMetadata{
		Dt:          cfg.Dt,
		Duration:    cfg.Duration,
		Setpoint:    cfg.Setpoint,
		Disturbance: cfg.Disturbance,
		Reports:     make(map[string]storage.ReportMeta, len(reports)),
	}
	for _, cc := range cfg.Controllers {
		meta.Controllers = append(meta.Controllers, storage.ControllerMeta{
			Name: cc.Name, Mode: cc.Mode, Kp: cc.Kp, Ki: cc.Ki, Kd: cc.Kd,
		})
	}
	for name, r := range reports {
		meta.Reports[name] = storage.NewReportMeta(r)
	}
	return meta
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	lp, err := buildLoop(cfg)
	if err != nil {
		return err
	}

	samples, reports, err := drive(lp, cfg)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(metaFor(cfg, reports), samples)
	if err != nil {
		return err
	}

	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("ticks: %d (dt=%g)\n\n", int(math.Round(cfg.Duration/cfg.Dt)), cfg.Dt)
	return printReports(cfg, reports)
}

func printReports(cfg *config.Config, reports map[string]analyze.Report) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CONTROLLER\tOVERSHOOT\tSTEADY-STATE ERR\tSETTLING TIME")
	for _, cc := range cfg.Controllers {
		r := reports[cc.Name]
		fmt.Fprintf(w, "%s\t%+.4f\t%s\t%s\n",
			cc.Name, r.Overshoot,
			triString(r.SteadyStateError, r.SteadyStateDefined),
			triString(r.SettlingTime, r.Settled),
		)
	}
	return w.Flush()
}

func triString(v float64, ok bool) string {
	if !ok {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	lp, err := buildLoop(cfg)
	if err != nil {
		return err
	}

	return viz.RunLive(lp, cfg.Setpoint, cfg.Disturbance, cfg.Duration, frameRate)
}

func compareModes(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	// one controller per requested mode, identical gains, same loop
	cfg.Controllers = nil
	for _, m := range args {
		if _, err := controller.ParseMode(m); err != nil {
			return err
		}
		cfg.Controllers = append(cfg.Controllers, config.ControllerConfig{
			Name: m, Mode: m, Kp: kp, Ki: ki, Kd: kd,
		})
	}

	lp, err := buildLoop(cfg)
	if err != nil {
		return err
	}

	_, reports, err := drive(lp, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("setpoint %g, disturbance %g, %d ticks\n\n", cfg.Setpoint, cfg.Disturbance, int(math.Round(cfg.Duration/cfg.Dt)))
	return printReports(cfg, reports)
}

func tuneGains(cmd *cobra.Command, args []string) error {
	gains, err := tune.AutoTune(tune.Characterization{
		ProcessGain:  processGain,
		TimeConstant: timeConstant,
		DeadTime:     deadTime,
	})
	if err != nil {
		return err
	}

	fmt.Printf("kp: %.6f\n", gains.Kp)
	fmt.Printf("ki: %.6f\n", gains.Ki)
	fmt.Printf("kd: %.6f\n", gains.Kd)

	if applyFile == "" {
		return nil
	}

	cfg, err := config.Load(applyFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	for i := range cfg.Controllers {
		cfg.Controllers[i].Kp = gains.Kp
		cfg.Controllers[i].Ki = gains.Ki
		cfg.Controllers[i].Kd = gains.Kd
	}
	if err := config.Save(applyFile, cfg); err != nil {
		return err
	}
	fmt.Printf("applied to %s\n", applyFile)
	return nil
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
	fmt.Fprintln(w, "ID\tTIME\tDURATION\tDT\tSETPOINT\tCONTROLLERS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%.2fs\t%.4fs\t%g\t%d\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Setpoint,
			len(run.Controllers),
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("setpoint: %g\n\n", meta.Setpoint)

	for _, cm := range meta.Controllers {
		s := samples[cm.Name]
		if len(s) == 0 {
			continue
		}
		pv := make([]float64, len(s))
		for i := range s {
			pv[i] = s[i].ProcessVariable
		}
		graph := asciigraph.Plot(pv,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("%s (%s): process variable", cm.Name, cm.Mode)),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CONTROLLER\tMODE\tOVERSHOOT\tSTEADY-STATE ERR\tSETTLING TIME")
	for _, cm := range meta.Controllers {
		r := analyze.Analyze(samples[cm.Name], meta.Setpoint, meta.Dt)
		fmt.Fprintf(w, "%s\t%s\t%+.4f\t%s\t%s\n",
			cm.Name, cm.Mode, r.Overshoot,
			triString(r.SteadyStateError, r.SteadyStateDefined),
			triString(r.SettlingTime, r.Settled),
		)
	}
	return w.Flush()
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(args[0])
	if err != nil {
		return err
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	if err := w.Write([]string{"controller", "time", "setpoint", "disturbance", "pv", "error", "output", "integral"}); err != nil {
		return err
	}
	for _, cm := range meta.Controllers {
		for _, s := range samples[cm.Name] {
			row := []string{
				cm.Name,
				strconv.FormatFloat(s.Time, 'f', 6, 64),
				strconv.FormatFloat(s.Setpoint, 'f', 6, 64),
				strconv.FormatFloat(s.Disturbance, 'f', 6, 64),
				strconv.FormatFloat(s.ProcessVariable, 'f', 6, 64),
				strconv.FormatFloat(s.Error, 'f', 6, 64),
				strconv.FormatFloat(s.Output, 'f', 6, 64),
				strconv.FormatFloat(s.Integral, 'f', 6, 64),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(args[0])
	if err != nil {
		return err
	}

	data := struct {
		Meta    *storage.RunMetadata     `json:"meta"`
		Samples map[string][]loop.Sample `json:"samples"`
	}{meta, samples}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
