package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/glamqueue/glamqueue/internal/providers/brevo"
	"github.com/glamqueue/glamqueue/internal/providers/devlog"
	"github.com/glamqueue/glamqueue/internal/providers/smtp"
	"github.com/glamqueue/glamqueue/pkg/models"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/knadh/stuffbin"
	flag "github.com/spf13/pflag"
	"github.com/zerodha/logf"
)

type constants struct {
	Env            string
	RootURL        string
	Namespace      string
	OtpTTL         time.Duration
	OtpMaxAttempts int
}

func initConfig() {
	// Register --help handler.
	f := flag.NewFlagSet("config", flag.ContinueOnError)
	f.Usage = func() {
		fmt.Println(f.FlagUsages())
		os.Exit(0)
	}
	f.StringSlice("config", []string{"config.toml"},
		"Path to one or more TOML config files to load in order")
	f.Bool("version", false, "Show build version")
	f.Parse(os.Args[1:])

	// Display version.
	if ok, _ := f.GetBool("version"); ok {
		fmt.Println(buildString)
		os.Exit(0)
	}

	// Read the config files.
	cFiles, _ := f.GetStringSlice("config")
	for _, c := range cFiles {
		log.Printf("reading config: %s", c)
		if err := ko.Load(file.Provider(c), toml.Parser()); err != nil {
			log.Printf("error reading config: %v", err)
		}
	}
	// Load environment variables and merge into the loaded config.
	if err := ko.Load(env.Provider("GLAMQUEUE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "GLAMQUEUE_")), "__", ".", -1)
	}), nil); err != nil {
		log.Printf("error loading env config: %v", err)
	}

	ko.Load(posflag.Provider(f, ".", ko), nil)
}

func initLogger(debug bool) logf.Logger {
	opt := logf.Opts{
		EnableColor:  debug,
		EnableCaller: true,
	}
	if debug {
		opt.Level = logf.DebugLevel
	}
	return logf.New(opt)
}

// initProvider initializes the configured e-mail delivery backend.
func initProvider(name string, lo logf.Logger) (models.Provider, error) {
	switch name {
	case "smtp":
		var cfg smtp.Config
		ko.UnmarshalWithConf("provider.smtp", &cfg, koanf.UnmarshalConf{Tag: "json"})
		return smtp.New(cfg)
	case "brevo":
		var cfg brevo.Config
		ko.UnmarshalWithConf("provider.brevo", &cfg, koanf.UnmarshalConf{Tag: "json"})
		return brevo.New(cfg)
	case "", "devlog":
		// Non-production contexts run without a real mail backend and
		// codes go to the log.
		lo.Info("no e-mail provider configured, codes will be logged")
		return devlog.New(lo), nil
	}
	return nil, fmt.Errorf("unknown provider '%s'", name)
}

func initFS(exe string) stuffbin.FileSystem {
	// Read stuffed data from self.
	fs, err := stuffbin.UnStuff(exe)
	if err != nil {
		// Binary is unstuffed or is running in dev mode.
		// Fall back to the local filesystem.
		if err == stuffbin.ErrNoID {
			fs, err = stuffbin.NewLocalFS("/", "static/")
			if err != nil {
				log.Fatalf("error falling back to local filesystem: %v", err)
			}
		} else {
			log.Fatalf("error reading stuffed binary: %v", err)
		}
	}

	return fs
}
