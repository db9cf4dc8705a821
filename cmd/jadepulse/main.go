package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/linuxmatters/jadepulse/internal/cli"
	"github.com/linuxmatters/jadepulse/internal/config"
	"github.com/linuxmatters/jadepulse/internal/export"
	"github.com/linuxmatters/jadepulse/internal/logging"
	"github.com/linuxmatters/jadepulse/internal/mains"
	"github.com/linuxmatters/jadepulse/internal/processor"
	"github.com/linuxmatters/jadepulse/internal/session"
	"github.com/linuxmatters/jadepulse/internal/storage"
	"github.com/linuxmatters/jadepulse/internal/ui"
)

var (
	version = "0.0.1"
)

// CLI defines the command-line interface. Flags left unset fall back to the
// config file and JADEPULSE_* environment variables.
type CLI struct {
	Version      bool     `short:"v" help:"Show version information"`
	Config       string   `short:"c" type:"path" help:"Path to YAML config file (optional)"`
	Threshold    float64  `short:"t" env:"JADEPULSE_THRESHOLD" help:"Threshold as a multiple of the mean absolute amplitude" placeholder:"MULT"`
	MinLength    float64  `short:"m" name:"min-length" env:"JADEPULSE_MIN_LENGTH" help:"Minimum time between pulses, in seconds" placeholder:"SECONDS"`
	MainsHz      int      `name:"mains-hz" help:"Mains frequency probed for hum (-1 disables)" placeholder:"HZ"`
	Subject      string   `help:"Subject written on the first line of DAT files"`
	Experimenter string   `help:"Experimenter written in the DAT header"`
	OutputDir    string   `short:"o" name:"output-dir" type:"path" help:"Write exports here instead of next to each recording"`
	Logs         bool     `help:"Save a detailed analysis report per recording"`
	Waveform     bool     `help:"Save a waveform chart with threshold and peaks"`
	Parquet      string   `type:"path" help:"Collect every pulse into this Parquet file" placeholder:"FILE"`
	Interactive  bool     `short:"i" help:"Browse recordings and tune parameters interactively"`
	Plain        bool     `help:"Print results instead of showing the progress UI"`
	LogLevel     string   `name:"log-level" help:"Debug log level (debug, info, warn, error)" placeholder:"LEVEL"`
	Files        []string `arg:"" name:"files" help:"WAV files or directories (default: current directory)" type:"path" optional:""`
}

func main() {
	cliArgs := &CLI{}
	kctx := kong.Parse(cliArgs,
		kong.Name("jadepulse"),
		kong.Description("Pulse interval detection for JaDe recordings"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	if cliArgs.Version {
		cli.PrintVersion(version)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, kctx, cliArgs)
	stop()
	os.Exit(code)
}

// run does the work and returns the exit code
func run(ctx context.Context, kctx *kong.Context, cliArgs *CLI) int {
	cfg, err := loadConfig(ctx, kctx, cliArgs)
	if err != nil {
		cli.PrintError(err.Error())
		return 1
	}

	log, closeLog, err := logging.NewDebugLogger(cfg.Log.File, cfg.ZapLevel())
	if err != nil {
		cli.PrintWarning(err.Error())
		log, closeLog = zap.NewNop(), func() error { return nil }
	}
	defer closeLog()
	log.Debug("configuration", zap.Stringer("config", cfg))

	files, err := session.Collect(cliArgs.Files...)
	if err != nil {
		cli.PrintError(err.Error())
		if errors.Is(err, session.ErrNoFiles) {
			kctx.PrintUsage(false)
		}
		return 1
	}

	locale := mains.Detect()
	params := cfg.DetectionParams(locale.HumHz(cfg.Detection.MainsHz))
	log.Debug("locale",
		zap.String("timezone", locale.Timezone),
		zap.String("country", locale.Country),
		zap.Int("hum_hz", params.MainsHz))

	exporter := &export.Exporter{
		OutputDir:    cfg.Output.Dir,
		Subject:      cfg.Metadata.Subject,
		Experimenter: cfg.Metadata.Experimenter,
		Waveform:     cfg.Output.Waveform,
		Report:       cfg.Output.Logs,
		Location:     locale.Location,
		Prefix:       cfg.Upload.Prefix,
		Log:          log,
	}

	if cfg.UploadEnabled() {
		pub, err := cfg.Publisher(ctx)
		if err != nil {
			cli.PrintError(fmt.Sprintf("upload: %v", err))
			return 1
		}
		exporter.Publisher = pub
	}

	if cfg.Output.Parquet != "" {
		pw, err := export.CreatePulseFile(cfg.Output.Parquet, cfg.Output.Compression)
		if err != nil {
			cli.PrintError(err.Error())
			return 1
		}
		exporter.Pulses = pw
		defer func() {
			if err := pw.Close(); err != nil {
				cli.PrintError(err.Error())
				return
			}
			log.Info("wrote pulse table", zap.String("path", cfg.Output.Parquet), zap.Int("rows", pw.Rows()))
			if exporter.Publisher != nil {
				publishTable(ctx, exporter.Publisher, cfg.Upload.Prefix, cfg.Output.Parquet, log)
			}
		}()
	}

	if cliArgs.Interactive {
		return runInteractive(ctx, files, params, exporter, log)
	}

	b := &batch{files: files, params: params, exporter: exporter, log: log}
	if cliArgs.Plain {
		return runPlain(ctx, b)
	}
	return runTUI(ctx, b)
}

// loadConfig reads defaults, file and environment, then applies the flags
// given on the command line
func loadConfig(ctx context.Context, kctx *kong.Context, c *CLI) (*config.Config, error) {
	cfg, err := config.Load(ctx, c.Config)
	if err != nil {
		return nil, err
	}

	set := flagsSet(kctx)
	if set["threshold"] {
		cfg.Detection.ThresholdMultiplier = c.Threshold
	}
	if set["min-length"] {
		cfg.Detection.MinLength = c.MinLength
	}
	if set["mains-hz"] {
		cfg.Detection.MainsHz = c.MainsHz
	}
	if set["subject"] {
		cfg.Metadata.Subject = c.Subject
	}
	if set["experimenter"] {
		cfg.Metadata.Experimenter = c.Experimenter
	}
	if set["output-dir"] {
		cfg.Output.Dir = c.OutputDir
	}
	if set["parquet"] {
		cfg.Output.Parquet = c.Parquet
	}
	if set["log-level"] {
		cfg.Log.Level = c.LogLevel
	}
	cfg.Output.Logs = cfg.Output.Logs || c.Logs
	cfg.Output.Waveform = cfg.Output.Waveform || c.Waveform

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// flagsSet returns the names of the flags given on the command line
func flagsSet(kctx *kong.Context) map[string]bool {
	set := make(map[string]bool)
	if kctx == nil {
		return set
	}
	for _, p := range kctx.Path {
		if p.Flag != nil {
			set[p.Flag.Name] = true
		}
	}
	return set
}

func runPlain(ctx context.Context, b *batch) int {
	b.done = func(i int, path string, r *processor.ProcessingResult, out *export.Outputs, err error) {
		if r != nil {
			logging.DisplayResult(os.Stdout, r)
		}
		if out != nil {
			cli.PrintSaved(os.Stdout, out.Files)
		}
		if err != nil {
			cli.PrintError(fmt.Sprintf("%s: %v", path, err))
		}
		fmt.Println()
	}

	stats, err := b.run(ctx)
	logging.DisplayBatchSummary(os.Stdout, stats.processed, stats.failed, stats.pulses)
	if err != nil {
		return 1
	}
	return 0
}

func runTUI(ctx context.Context, b *batch) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(ui.NewModel(b.files, b.log), tea.WithAltScreen())
	b.send = p.Send

	type outcome struct {
		stats batchStats
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		stats, err := b.run(ctx)
		done <- outcome{stats, err}
	}()

	final, err := p.Run()
	if err != nil {
		cli.PrintError(fmt.Sprintf("UI error: %v", err))
	}
	if m, ok := final.(ui.Model); ok && m.Aborted {
		cancel()
	}

	res := <-done
	logging.DisplayBatchSummary(os.Stdout, res.stats.processed, res.stats.failed, res.stats.pulses)
	var merr *multierror.Error
	if errors.As(res.err, &merr) {
		for _, e := range merr.Errors {
			cli.PrintError(e.Error())
		}
	} else if res.err != nil {
		cli.PrintError(res.err.Error())
	}

	if err != nil || res.err != nil {
		return 1
	}
	return 0
}

func runInteractive(ctx context.Context, files []string, params processor.DetectionConfig, exporter *export.Exporter, log *zap.Logger) int {
	sess := session.New(files, params, session.WithLogger(log))
	save := func(ctx context.Context, r *processor.ProcessingResult) ([]string, error) {
		out, err := exporter.Export(ctx, r, time.Now())
		if out == nil {
			return nil, err
		}
		return out.Files, err
	}

	p := tea.NewProgram(ui.NewBrowseModel(ctx, sess, save), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		cli.PrintError(fmt.Sprintf("UI error: %v", err))
		return 1
	}
	return 0
}

// publishTable uploads the batch Parquet file once it is closed
func publishTable(ctx context.Context, pub storage.Publisher, prefix, path string, log *zap.Logger) {
	locs, err := storage.PublishFiles(ctx, pub, prefix, []string{path})
	if err != nil {
		cli.PrintError(err.Error())
		return
	}
	log.Info("published pulse table", zap.Strings("locations", locs))
}
