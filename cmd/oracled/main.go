// Command oracled runs the webpage-summary oracle daemon.
//
// It polls the task ledger for webpage_summary tasks addressed to the
// configured agent, validates each URL against the SSRF policy, summarizes
// the page through the configured LLM provider, and reports the outcome back
// to the ledger.
//
// Usage:
//
//	oracled --config oracled.toml
//	oracled --config oracled.toml --url https://example.com --lang en
//
// The --url form runs a single summary locally without touching the ledger,
// for smoke-testing provider credentials and the safety policy.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vinayprograms/oraclekit/agent"
	"github.com/vinayprograms/oraclekit/archive"
	"github.com/vinayprograms/oraclekit/config"
	"github.com/vinayprograms/oraclekit/consumer"
	"github.com/vinayprograms/oraclekit/ledger"
	"github.com/vinayprograms/oraclekit/logging"
	"github.com/vinayprograms/oraclekit/safety"
	"github.com/vinayprograms/oraclekit/shutdown"
	"github.com/vinayprograms/oraclekit/webpage"
)

func main() {
	configPath := flag.String("config", "oracled.toml", "path to the daemon config file")
	oneShotURL := flag.String("url", "", "summarize a single URL locally and exit")
	oneShotLang := flag.String("lang", "", "output language for --url")
	flag.Parse()

	if err := run(*configPath, *oneShotURL, *oneShotLang); err != nil {
		fmt.Fprintf(os.Stderr, "oracled: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, oneShotURL, oneShotLang string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logging.New()
	if cfg.Debug {
		log.SetLevel(logging.LevelDebug)
	}

	apiKey, err := cfg.ResolveAPIKey()
	if err != nil {
		return err
	}

	checker := safety.NewChecker()
	backend, err := agent.New(agent.Config{
		Provider:  cfg.LLM.Provider,
		Model:     cfg.LLM.Model,
		APIKey:    apiKey,
		MaxTokens: cfg.LLM.MaxTokens,
		BaseURL:   cfg.LLM.BaseURL,
		Checker:   checker,
		Logger:    log,
	})
	if err != nil {
		return err
	}

	if oneShotURL != "" {
		defer backend.Close()
		return runOneShot(backend, checker, oneShotURL, oneShotLang, cfg.DefaultLanguage)
	}

	client, err := ledger.NewRoochClient(ledger.RoochConfig{
		PackageID:    cfg.PackageID,
		AgentAddress: cfg.AgentAddress,
		Binary:       cfg.Binary,
		Logger:       log,
	})
	if err != nil {
		return err
	}

	sender := cfg.Sender
	if sender == "" {
		discoverCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		sender, err = client.DefaultAccount(discoverCtx)
		cancel()
		if err != nil {
			return err
		}
		log.Info("sender_discovered", map[string]interface{}{"address": sender})
	}

	var recorder webpage.Recorder
	var summaryArchive *archive.Archive
	if cfg.ArchivePath != "" {
		summaryArchive, err = archive.Open(cfg.ArchivePath)
		if err != nil {
			return err
		}
		recorder = summaryArchive
	}

	handler, err := webpage.NewHandler(webpage.Config{
		Checker:         checker,
		Backend:         backend,
		DefaultLanguage: cfg.DefaultLanguage,
		Recorder:        recorder,
		Logger:          log,
	})
	if err != nil {
		return err
	}

	var watcher *ledger.EventWatcher
	if cfg.EventsURL != "" {
		watcher = ledger.NewEventWatcher(ledger.EventWatcherConfig{
			URL:       cfg.EventsURL,
			PackageID: cfg.PackageID,
			Logger:    log,
		})
	}

	cons, err := consumer.New(consumer.Config{
		Gateway:      client,
		Selectors:    ledger.DefaultSelectors(cfg.PackageID),
		Sender:       sender,
		PollInterval: cfg.PollInterval(),
		Watcher:      watcher,
		Logger:       log,
	})
	if err != nil {
		return err
	}
	if err := cons.Register(handler); err != nil {
		return err
	}

	coord := shutdown.NewCoordinator(shutdown.WithProgress(func(r shutdown.Result) {
		fields := map[string]interface{}{
			"handler":  r.Name,
			"phase":    r.Phase,
			"duration": r.Duration.String(),
		}
		if r.Err != nil {
			fields["error"] = r.Err.Error()
		}
		log.Info("shutdown_step", fields)
	}))

	runErr := make(chan error, 1)
	coord.RegisterFunc("consumer", shutdown.PhaseConsumer, func(ctx context.Context) error {
		cons.Stop()
		select {
		case <-runErr:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if summaryArchive != nil {
		coord.RegisterFunc("archive", shutdown.PhaseStorage, func(ctx context.Context) error {
			return summaryArchive.Close()
		})
	}
	coord.RegisterFunc("backend", shutdown.PhaseStorage, func(ctx context.Context) error {
		return backend.Close()
	})
	coord.HandleSignals()

	log.Info("oracled_started", map[string]interface{}{
		"package": cfg.PackageID,
		"agent":   cfg.AgentAddress,
		"sender":  sender,
	})

	err = cons.Run(context.Background())
	runErr <- err

	shutdownErr := coord.Shutdown()
	if err != nil && err != context.Canceled {
		return err
	}
	return shutdownErr
}

// runOneShot summarizes one URL without the ledger, printing the result.
func runOneShot(backend agent.Backend, checker *safety.Checker, url, lang, defaultLang string) error {
	if lang == "" {
		lang = defaultLang
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if v := checker.Check(ctx, url); !v.Safe {
		return fmt.Errorf("Security Error: %s", v.Reason)
	}

	summary, err := backend.Summarize(ctx, agent.Request{URL: url, Language: lang})
	if err != nil {
		return fmt.Errorf("Failed to process webpage: %v", err)
	}

	fmt.Println(summary)
	return nil
}
