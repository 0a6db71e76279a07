package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"TrendBands/internal/assembler"
	"TrendBands/internal/collector"
	"TrendBands/internal/config"
	"TrendBands/internal/dayindex"
	"TrendBands/internal/model"
	"TrendBands/internal/notifier"
	"TrendBands/internal/recorder"
	"TrendBands/internal/scheduler"
	"TrendBands/internal/storage"
)

var fitCommand = &cli.Command{
	Name:      "fit",
	Usage:     "refit the bands of a stored table and fill its missing cells",
	ArgsUsage: " ",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "in", Usage: "input CSV, defaults to storage.csv_path"},
		&cli.StringFlag{Name: "out", Usage: "output CSV, defaults to the input path"},
	},
	Action: fitAction,
}

var predictCommand = &cli.Command{
	Name:  "predict",
	Usage: "print predicted bands for a date",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "in", Usage: "input CSV, defaults to storage.csv_path"},
		&cli.StringFlag{Name: "date", Usage: "first date to predict (YYYY-MM-DD)", Required: true},
		&cli.StringFlag{Name: "currency", Usage: "currency to predict, defaults to the first configured"},
		&cli.IntFlag{Name: "days", Value: 1, Usage: "number of consecutive dates"},
	},
	Action: predictAction,
}

var refreshCommand = &cli.Command{
	Name:  "refresh",
	Usage: "fetch closes once, refit, save and print the band report",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "mock", Usage: "use the deterministic mock price feed"},
	},
	Action: refreshAction,
}

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "run the scheduled refresh daemon with Telegram reports",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "mock", Usage: "use the deterministic mock price feed"},
		&cli.BoolFlag{Name: "run-on-start", EnvVars: []string{"RUN_ON_START"}, Usage: "refresh immediately after start"},
	},
	Action: runAction,
}

func newAssembler(cfg *config.Config) (*assembler.Assembler, error) {
	fitter, err := cfg.NewFitter()
	if err != nil {
		return nil, err
	}
	cutover, err := cfg.CutoverDate()
	if err != nil {
		return nil, err
	}
	return &assembler.Assembler{
		Currencies: cfg.DataSource.Currencies,
		Windows:    cfg.Indicators.MAWindows,
		Quantiles:  cfg.Fit.Quantiles,
		Fitter:     fitter,
		Cutover:    cutover,
	}, nil
}

func assembleFile(cfg *config.Config, in string) (*assembler.Series, error) {
	asm, err := newAssembler(cfg)
	if err != nil {
		return nil, err
	}
	table, err := storage.Load(in)
	if err != nil {
		return nil, err
	}
	if len(table.Records) == 0 {
		return nil, fmt.Errorf("no rows in %s", in)
	}
	stored := table.Index()
	series := asm.Assemble(table.PriceRows(asm.Currencies), stored)
	series.Carry(table.Columns, stored)
	return series, nil
}

func fitAction(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	in := c.String("in")
	if in == "" {
		in = cfg.Storage.CSVPath
	}
	out := c.String("out")
	if out == "" {
		out = in
	}
	series, err := assembleFile(cfg, in)
	if err != nil {
		return err
	}
	if err := storage.Save(out, series.Columns, series.Rows); err != nil {
		return err
	}
	for _, cur := range cfg.DataSource.Currencies {
		cb := series.Bands[cur]
		for _, b := range cb.Bands {
			fmt.Fprintf(c.App.Writer, "%s\t%v\n", model.BandColumn(b.Tau, cur), b.Curve)
		}
	}
	logrus.WithFields(logrus.Fields{"in": in, "out": out, "rows": len(series.Rows)}).Info("table written")
	return nil
}

func predictAction(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	from, ok := dayindex.ParseDate(c.String("date"))
	if !ok {
		return fmt.Errorf("invalid date %q", c.String("date"))
	}
	cur := strings.ToLower(c.String("currency"))
	if cur == "" {
		cur = cfg.DataSource.Currencies[0]
	}
	in := c.String("in")
	if in == "" {
		in = cfg.Storage.CSVPath
	}
	series, err := assembleFile(cfg, in)
	if err != nil {
		return err
	}
	proj := series.Project(cur, from, c.Int("days"))
	if proj == nil {
		return fmt.Errorf("no usable fit for %s", cur)
	}
	return writeProjection(c.App.Writer, cur, series.Quantiles(), proj)
}

func writeProjection(w io.Writer, cur string, quantiles []float64, proj []assembler.Projection) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := []string{model.DateColumn}
	for _, q := range quantiles {
		header = append(header, model.BandColumn(q, cur))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, p := range proj {
		cells := []string{p.Date.Format(model.DateLayout)}
		for _, v := range p.Values {
			cells = append(cells, storage.FormatCell(model.ComputedCell(v)))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func newFetcher(cfg *config.Config, mock bool) collector.Fetcher {
	switch {
	case mock:
		return &collector.MockFetcher{Days: 3000}
	case cfg.DataSource.BaseURL != "":
		return collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	default:
		return collector.NewYahooFetcher(cfg.Proxy)
	}
}

func newRecorder(cfg *config.Config) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0755); err != nil {
		logrus.WithError(err).Warn("create database directory failed, using noop recorder")
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
	if err != nil {
		logrus.WithError(err).Warn("init sqlite recorder failed, using noop recorder")
		return recorder.NewNoopRecorder()
	}
	return sr
}

func newScheduler(ctx context.Context, cfg *config.Config, mock bool, n scheduler.Notifier) (*scheduler.Scheduler, error) {
	asm, err := newAssembler(cfg)
	if err != nil {
		return nil, err
	}
	fetcher := newFetcher(cfg, mock)
	logrus.WithField("source", fetcher.Name()).Info("data source selected")
	col := collector.NewCollector(fetcher, cfg.DataSource.Symbol, cfg.DataSource.Currencies)
	return scheduler.NewScheduler(ctx, col, asm, n, newRecorder(cfg), cfg.Storage.CSVPath), nil
}

func refreshAction(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sched, err := newScheduler(c.Context, cfg, c.Bool("mock"), nil)
	if err != nil {
		return err
	}
	defer sched.Recorder.Close()

	series, err := sched.Refresh(c.Context)
	if err != nil {
		return err
	}
	var snaps []model.BandSnapshot
	for _, cur := range cfg.DataSource.Currencies {
		if s, ok := series.Latest(cur); ok {
			snaps = append(snaps, s)
		}
	}
	fmt.Fprintln(c.App.Writer, stripTags(notifier.FormatBandReport(cfg.DataSource.Symbol, snaps)))
	return nil
}

func stripTags(s string) string {
	return strings.NewReplacer("<b>", "", "</b>", "").Replace(s)
}

func runAction(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateNotifier(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	log := logrus.WithField("component", "main")
	log.Info("TrendBands starting...")

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	sched, err := newScheduler(ctx, cfg, c.Bool("mock"), tn)
	if err != nil {
		return err
	}
	defer sched.Recorder.Close()

	if err := sched.RegisterAll(cfg.Schedule.RefreshCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Info("telegram polling started")

	if c.Bool("run-on-start") {
		log.Info("run-on-start enabled, refreshing now")
		go sched.RunNow()
	}

	log.WithField("cron", cfg.Schedule.RefreshCron).Info("TrendBands is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Info("shutdown signal received, stopping...")
	case <-ctx.Done():
	}
	cancel()
	return nil
}
