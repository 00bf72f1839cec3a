package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/phuslu/log"

	"github.com/shanehull/concallscraper/internal/bse"
	"github.com/shanehull/concallscraper/internal/config"
	"github.com/shanehull/concallscraper/internal/ledger"
	"github.com/shanehull/concallscraper/internal/notify"
	"github.com/shanehull/concallscraper/internal/pdftext"
	"github.com/shanehull/concallscraper/internal/pipeline"
)

var (
	configPath = flag.String("config", "config.yaml", "(-c) Path to the YAML configuration file")
	verbose    = flag.Bool("verbose", false, "(-v) Enable debug logging")
	lookback   = flag.Int("lookback", -1, "Override the feed lookback window in days (0 = feed default set)")
)

func init() {
	flag.StringVar(configPath, "c", "config.yaml", "(-c) Path to the YAML configuration file (shorthand)")
	flag.BoolVar(verbose, "v", false, "(-v) Enable debug logging (shorthand)")
}

func main() {
	flag.Parse()

	level := log.InfoLevel
	if *verbose {
		level = log.DebugLevel
	}
	logger := log.Logger{
		Level:      level,
		TimeFormat: "15:04:05",
		Writer: &log.ConsoleWriter{
			ColorOutput:    log.IsTerminal(os.Stderr.Fd()),
			EndWithMessage: true,
		},
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Fatal error loading config: %v\n", err)
		os.Exit(1)
	}
	if *lookback >= 0 {
		cfg.Feed.LookbackDays = *lookback
	}

	if !cfg.MailEnabled() {
		logger.Warn().Msg("SMTP or kindle address not configured; transcripts will be found but not delivered")
	}

	led, err := ledger.Open(cfg.LedgerPath, &logger)
	if err != nil {
		fmt.Printf("Fatal error opening ledger: %v\n", err)
		os.Exit(1)
	}

	extractor, err := pdftext.NewExtractor(&logger)
	if err != nil {
		fmt.Printf("Fatal error setting up extractor: %v\n", err)
		os.Exit(1)
	}

	feed := bse.NewClient(cfg.Feed.AnnouncementsURL, cfg.Feed.PortalURL, nil, &logger)
	sender := notify.NewSender(notify.EmailConfig{
		SMTPServer: cfg.SMTP.Server,
		SMTPPort:   cfg.SMTP.Port,
		SMTPUser:   cfg.SMTP.User,
		SMTPPass:   cfg.SMTP.Password,
		FromEmail:  cfg.SMTP.From,
		ToEmail:    cfg.KindleEmail,
		Enabled:    cfg.MailEnabled(),
	}, &logger)

	p := pipeline.New(feed, extractor, sender, led, pipeline.Options{
		FileServerBase: cfg.Feed.FileServerBase,
		LookbackDays:   cfg.Feed.LookbackDays,
		SendDelay:      time.Duration(cfg.Feed.SendDelaySeconds) * time.Second,
		Author:         cfg.Author,
		Logger:         &logger,
	})

	logger.Info().Int("companies", len(cfg.Watchlist)).Int("ledger", led.Len()).Msg("starting transcript scan")

	summary := p.Run(context.Background(), cfg.Watchlist)

	logger.Info().
		Int("delivered", summary.Delivered).
		Int("skipped", summary.Skipped).
		Msg("scan complete")
	for reason, count := range summary.Reasons {
		logger.Info().Str("reason", string(reason)).Int("count", count).Msg("skip breakdown")
	}
}
