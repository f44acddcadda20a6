package main

import (
	"os"

	"github.com/alecthomas/kong"

	"door43-helps-engine/internal/config"
	"door43-helps-engine/internal/fetch"
	"door43-helps-engine/pkg/logger"
)

type CLI struct {
	Config  string `short:"c" help:"Configuration file path" env:"HELPS_CONFIG"`
	Verbose bool   `short:"v" help:"Enable debug logging"`

	Align     AlignCmd     `cmd:"" help:"Align an original-language quote to the target text of a verse"`
	Highlight HighlightCmd `cmd:"" help:"Highlight aligned phrases in rendered scripture HTML"`
	Notes     NotesCmd     `cmd:"" help:"Build one chapter of translation notes with tA/tW appendices"`
	Appendix  AppendixCmd  `cmd:"" help:"Crawl rc links and render their appendices"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("helps"),
		kong.Description("Alignment and cross-reference engine for translation helps."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(cli.Config)
	if err != nil {
		logger.New("error", "text").Errorf("load config: %v", err)
		os.Exit(1)
	}
	level := cfg.Log.Level
	if cli.Verbose {
		level = "debug"
	}
	g := &Global{
		Config: cfg,
		Log:    logger.New(level, cfg.Log.Format),
		Client: fetch.NewHTTPClient(cfg.Fetch.Timeout, cfg.Fetch.DialTimeout, cfg.Fetch.SizeCap),
		Out:    os.Stdout,
	}
	ctx.FatalIfErrorf(ctx.Run(g))
}
