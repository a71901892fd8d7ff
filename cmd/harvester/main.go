package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"metroharvest/internal/config"
	"metroharvest/internal/emit"
	"metroharvest/internal/harvest"
	"metroharvest/internal/legistar"
	"metroharvest/internal/ocr"
	"metroharvest/internal/pdftext"
	"metroharvest/internal/report"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(log)

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	log = log.With("run_id", uuid.NewString())

	var reporter report.Reporter = report.NewLogReporter(log)
	if cfg.SentryDSN != "" {
		sentryReporter, err := report.NewSentryReporter(cfg.SentryDSN, log)
		if err != nil {
			log.Error("init error reporting", "error", err)
			os.Exit(1)
		}
		defer sentryReporter.Close()
		reporter = sentryReporter
	}

	timezone, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Error("load timezone", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}

	client := legistar.NewClient(cfg.APIBaseURL,
		legistar.WithToken(cfg.APIToken),
		legistar.WithRequestsPerSecond(cfg.RequestsPerSecond),
		legistar.WithLogger(log),
	)

	normalizer := &harvest.Normalizer{
		APIBaseURL:  cfg.APIBaseURL,
		CalendarURL: cfg.CalendarURL,
		Agenda:      client,
		Redirects:   client,
		Minutes: &harvest.MinutesFinder{
			Matters:     client,
			Attachments: client,
			Binary:      client,
			Extractor:   pdftext.Extractor{},
			OCR:         ocr.Tesseract{},
			Reporter:    reporter,
			Log:         log,
			Timezone:    timezone,
		},
		Reporter: reporter,
		Log:      log,
		Timezone: timezone,
	}

	pipeline, err := harvest.NewPipeline(harvest.Pipeline{
		Source:             client,
		Bodies:             client,
		Fetcher:            client,
		Finder:             client,
		Pages:              client,
		Normalizer:         normalizer,
		Reporter:           reporter,
		Log:                log,
		FindMissingPartner: cfg.FindMissingPartner,
	})
	if err != nil {
		log.Error("init pipeline", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := harvest.ScrapeOptions{EventIDs: cfg.EventIDs}
	if cfg.WindowDays != 0 {
		opts.Window = time.Duration(cfg.WindowDays * 24 * float64(time.Hour))
	}

	stream, err := pipeline.Run(ctx, opts)
	if err != nil {
		log.Error("start harvest", "error", err)
		os.Exit(1)
	}

	writer := emit.NewWriter(os.Stdout)
	for stream.Scan() {
		if err := writer.Write(stream.Event()); err != nil {
			log.Error("emit event", "error", err)
			os.Exit(1)
		}
	}
	if err := stream.Err(); err != nil {
		log.Error("harvest interrupted", "error", err)
		os.Exit(1)
	}

	log.Info("harvest complete", "events", writer.Count())
}
