package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joncooperworks/fuzzsplit"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func defaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("recon", "results", "jwt")
	}
	return filepath.Join(home, "recon", "results", "jwt")
}

func newLogger(verbose bool) *log.Logger {
	logger := log.New()
	logger.Out = os.Stderr
	logger.Formatter = &log.TextFormatter{FullTimestamp: true}
	if verbose {
		logger.Level = log.DebugLevel
	}
	return logger
}

// splitPassthrough separates the arguments fuzzsplit parses from the ones forwarded to ffuf.
// Everything after the first --args or -a goes to ffuf untouched, hyphens included, so
// "--args -mc 200 -fc 404" works. Repeating --args or -a inside that tail is allowed and dropped.
func splitPassthrough(args []string) (own, passthrough []string) {
	for i, arg := range args {
		if i == 0 {
			continue
		}
		if arg == "--" {
			break
		}

		name, value, hasValue := strings.Cut(arg, "=")
		if name != "--args" && name != "-a" {
			continue
		}

		own = append(own, args[:i]...)
		passthrough = []string{}
		if hasValue {
			passthrough = append(passthrough, value)
		}
		for _, rest := range args[i+1:] {
			if rest == "--args" || rest == "-a" {
				continue
			}
			passthrough = append(passthrough, rest)
		}
		return own, passthrough
	}
	return args, nil
}

func actionFuzzSplit(passthrough []string) cli.ActionFunc {
	return func(c *cli.Context) error {
		return runFuzzSplit(c, append(c.Args().Slice(), passthrough...))
	}
}

func runFuzzSplit(c *cli.Context, extraArgs []string) error {
	logger := newLogger(c.Bool("verbose"))

	config := &fuzzsplit.Config{
		Target: fuzzsplit.Target{
			RequestFile: c.String("request"),
			URL:         c.String("url"),
		},
		Wordlist:    c.String("wordlist"),
		Time:        c.String("time"),
		Rate:        c.String("rate"),
		JWTURL:      c.String("jwt"),
		ReuseToken:  c.Bool("jwt-reuse"),
		OutputDir:   c.String("output-dir"),
		ExtraArgs:   extraArgs,
		ResumeRunID: c.String("resume"),
		Splitter:    &fuzzsplit.SplitCommand{Path: c.String("split")},
		Engine:      &fuzzsplit.FfufCommand{Path: c.String("ffuf")},
		Logger:      logger,
	}

	if config.JWTURL != "" {
		config.Tokens = &fuzzsplit.TokenFetcher{
			Client:     fuzzsplit.NewClient(c.Bool("skip-cert-verify")),
			CookieFile: c.String("cookie-file"),
			Retries:    c.Int("jwt-retries"),
			Limiter:    fuzzsplit.NewTokenLimiter(c.Duration("jwt-interval")),
			Logger:     logger,
		}
	}

	if path := c.String("ledger"); path != "" {
		ledger, err := fuzzsplit.OpenLedger(path)
		if err != nil {
			return err
		}
		defer ledger.Close()
		config.Ledger = ledger
	}

	if !c.Bool("no-progress") && !c.Bool("count-only") {
		config.Listeners = append(config.Listeners, fuzzsplit.NewProgressListener(os.Stderr))
	}

	if err := config.Validate(); err != nil {
		return err
	}

	runner := &fuzzsplit.Runner{Config: config}
	run, err := runner.Plan()
	if err != nil {
		return err
	}

	fmt.Fprintf(color.Error, "%s %s lines -> %s partitions (run %s)\n",
		color.New(color.FgWhite, color.Bold).Sprint("Wordlist:"),
		color.HiBlueString("%d", run.Lines),
		color.HiGreenString("%d", run.Partitions),
		run.ID,
	)

	if c.Bool("count-only") {
		return nil
	}

	started := time.Now()
	if err := runner.Run(c.Context, run); err != nil {
		return err
	}

	logger.WithFields(log.Fields{"run": run.ID, "elapsed": time.Since(started).Round(time.Second)}).Info("Finished.")
	return nil
}

func newApp(passthrough []string) *cli.App {
	app := &cli.App{
		Name:                      "fuzzsplit",
		Usage:                     "run ffuf over a wordlist in partitions sized to a time budget",
		Action:                    actionFuzzSplit(passthrough),
		ArgsUsage:                 "[--args ffuf arguments...]",
		DisableSliceFlagSeparator: true,
		Before: func(c *cli.Context) error {
			if c.IsSet("request") == c.IsSet("url") {
				return errors.New("exactly one of --request or --url is required")
			}
			return nil
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "request",
				Aliases: []string{"r", "req"},
				EnvVars: []string{"FUZZSPLIT_REQUEST"},
				Usage:   "raw request file passed to ffuf -request",
			},
			&cli.StringFlag{
				Name:    "url",
				Aliases: []string{"u"},
				EnvVars: []string{"FUZZSPLIT_URL"},
				Usage:   "target url containing FUZZ, passed to ffuf -u",
			},
			&cli.StringFlag{
				Name:     "wordlist",
				Aliases:  []string{"w"},
				Required: true,
				EnvVars:  []string{"FUZZSPLIT_WORDLIST"},
				Usage:    "newline separated wordlist to partition",
			},
			&cli.StringFlag{
				Name:     "time",
				Aliases:  []string{"t"},
				Required: true,
				EnvVars:  []string{"FUZZSPLIT_TIME"},
				Usage:    "minutes each partition should take at the given rate",
			},
			&cli.StringFlag{
				Name:    "rate",
				Value:   "100",
				EnvVars: []string{"FUZZSPLIT_RATE"},
				Usage:   "requests per second, passed to ffuf -rate",
			},
			&cli.StringFlag{
				Name:    "jwt",
				EnvVars: []string{"FUZZSPLIT_JWT"},
				Usage:   "url returning a token to send as the Authorization header",
			},
			&cli.StringSliceFlag{
				Name:    "args",
				Aliases: []string{"a"},
				Usage:   "forward this and every following argument verbatim to ffuf",
			},
			&cli.StringFlag{
				Name:    "cookie-file",
				Value:   "request.txt",
				EnvVars: []string{"FUZZSPLIT_COOKIE_FILE"},
				Usage:   "saved request whose Cookie lines authenticate the --jwt request",
			},
			&cli.IntFlag{
				Name:    "jwt-retries",
				EnvVars: []string{"FUZZSPLIT_JWT_RETRIES"},
				Usage:   "extra attempts when fetching the token fails",
			},
			&cli.DurationFlag{
				Name:    "jwt-interval",
				Value:   time.Second,
				EnvVars: []string{"FUZZSPLIT_JWT_INTERVAL"},
				Usage:   "minimum time between token requests",
			},
			&cli.BoolFlag{
				Name:    "jwt-reuse",
				EnvVars: []string{"FUZZSPLIT_JWT_REUSE"},
				Usage:   "fetch the token once instead of before every partition",
			},
			&cli.BoolFlag{
				Name:  "skip-cert-verify",
				Usage: "skip verifying the token endpoint's TLS certificate",
			},
			&cli.StringFlag{
				Name:    "output-dir",
				Value:   defaultOutputDir(),
				EnvVars: []string{"FUZZSPLIT_OUTPUT_DIR"},
				Usage:   "directory ffuf writes its csv results to",
			},
			&cli.StringFlag{
				Name:    "ffuf",
				Value:   "ffuf",
				EnvVars: []string{"FUZZSPLIT_FFUF"},
				Usage:   "ffuf executable",
			},
			&cli.StringFlag{
				Name:    "split",
				Value:   "split",
				EnvVars: []string{"FUZZSPLIT_SPLIT"},
				Usage:   "GNU split executable",
			},
			&cli.StringFlag{
				Name:    "ledger",
				EnvVars: []string{"FUZZSPLIT_LEDGER"},
				Usage:   "sqlite file recording finished partitions",
			},
			&cli.StringFlag{
				Name:  "resume",
				Usage: "run id from the ledger to resume",
			},
			&cli.BoolFlag{
				Name:  "count-only",
				Usage: "don't run ffuf, just print how many partitions would be run",
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "don't draw the partition progress bar",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log ffuf command lines",
			},
		},
	}
	app.CustomAppHelpTemplate = cli.AppHelpTemplate + "\n--jwt needs a file (--cookie-file, default request.txt) with the cookies to fetch it\n"
	return app
}

func main() {
	args, passthrough := splitPassthrough(os.Args)
	app := newApp(passthrough)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := app.RunContext(ctx, args)
	if err != nil {
		stop()
		log.Fatal(err)
	}
}
