// Command obscore validates program files, prints their rollups and serves
// the program API.
//
//	obscore validate FILE...   check program JSON files against the integrity rules
//	obscore rollup FILE        print the rollup of a program JSON file
//	obscore serve              run the HTTP API configured from OBSCORE_* variables
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"obscore/internal/adapters/httpapi"
	"obscore/internal/archive"
	"obscore/internal/config"
	"obscore/internal/core"
	"obscore/internal/events"
	"obscore/internal/logging"
	"obscore/internal/observatory/gemini"
	"obscore/pkg/domain"
)

var (
	exitFunc  = os.Exit
	lookupEnv = os.LookupEnv
)

func main() {
	exitFunc(run(os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: obscore validate FILE... | rollup [-observatory FILE] FILE | serve")
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	switch args[0] {
	case "validate":
		return runValidate(args[1:], stdout, stderr)
	case "rollup":
		return runRollup(args[1:], stdout, stderr)
	case "serve":
		return runServe(stderr)
	default:
		usage(stderr)
		return 2
	}
}

func readProgram(path string) (domain.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Program{}, err
	}
	var p domain.Program
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Program{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return p, nil
}

func loadObservatory(path string) (*gemini.Properties, error) {
	if path == "" {
		return gemini.Default()
	}
	return gemini.LoadFile(path)
}

func runValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	obsFile := fs.String("observatory", "", "observatory properties YAML (default: built-in Gemini table)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		usage(stderr)
		return 2
	}
	props, err := loadObservatory(*obsFile)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "observatory: %v\n", err)
		return 1
	}
	// Programs are validated together so cross-program rules see all of them.
	svc := core.NewInMemoryService(core.NewDefaultRulesEngine(props))
	ctx := context.Background()
	code := 0
	for _, path := range fs.Args() {
		p, err := readProgram(path)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "%s: %v\n", path, err)
			code = 1
			continue
		}
		_, res, err := svc.PutProgram(ctx, p)
		var rv domain.RuleViolationError
		if errors.As(err, &rv) {
			res = rv.Result
		} else if err != nil {
			_, _ = fmt.Fprintf(stderr, "%s: %v\n", path, err)
			code = 1
			continue
		}
		for _, v := range res.Violations {
			_, _ = fmt.Fprintf(stdout, "%s: %s [%s] %s: %s\n", path, v.Severity, v.Rule, v.Subject, v.Message)
		}
		if res.HasBlocking() {
			code = 1
			continue
		}
		_, _ = fmt.Fprintf(stdout, "%s: ok\n", path)
	}
	return code
}

func runRollup(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("rollup", flag.ContinueOnError)
	fs.SetOutput(stderr)
	obsFile := fs.String("observatory", "", "observatory properties YAML (default: built-in Gemini table)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		usage(stderr)
		return 2
	}
	props, err := loadObservatory(*obsFile)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "observatory: %v\n", err)
		return 1
	}
	p, err := readProgram(fs.Arg(0))
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}
	r, err := core.BuildRollup(p, props, time.Now().UTC())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "rollup: %v\n", err)
		return 1
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		_, _ = fmt.Fprintf(stderr, "encode: %v\n", err)
		return 1
	}
	return 0
}

func runServe(stderr io.Writer) int {
	cfg, err := config.LoadFrom(lookupEnv)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	log := logging.New(stderr, cfg.LogLevel, cfg.LogFormat)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := serve(ctx, cfg, log); err != nil {
		log.Error("serve failed", "error", err)
		return 1
	}
	return 0
}

func openPublisher(cfg config.Config, log *slog.Logger) (events.Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NewMemoryPublisher(), nil
	}
	return events.NewKafkaPublisher(events.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic}, log)
}

func serve(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	props, err := loadObservatory(cfg.ObservatoryFile)
	if err != nil {
		return fmt.Errorf("observatory: %w", err)
	}
	store, err := core.OpenPersistentStore(core.StorageConfig{
		Driver:      core.StorageDriver(cfg.StorageDriver),
		SQLitePath:  cfg.SQLitePath,
		PostgresDSN: cfg.PostgresDSN,
	}, core.NewDefaultRulesEngine(props))
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer func() { _ = core.CloseStore(store) }()

	arch, err := archive.Open(ctx, archive.Config{
		Driver: archive.Driver(cfg.ArchiveDriver),
		FSRoot: cfg.ArchiveFSRoot,
		S3: archive.S3Config{
			Bucket:    cfg.ArchiveS3Bucket,
			Region:    cfg.ArchiveS3Region,
			Endpoint:  cfg.ArchiveS3Endpoint,
			PathStyle: cfg.ArchiveS3PathStyle,
		},
	})
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	pub, err := openPublisher(cfg, log)
	if err != nil {
		return fmt.Errorf("events: %w", err)
	}
	defer func() { _ = pub.Close() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := core.NewPrometheusRecorder(reg)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	opts := []core.Option{
		core.WithLogger(logging.Component(log, "service")),
		core.WithMetricsRecorder(core.MultiMetricsRecorder{metrics, core.NewExpvarMetricsRecorder("obscore_operations")}),
		core.WithPublisher(pub),
		core.WithArchive(arch),
		core.WithObservatory(props),
	}
	if cfg.LogLevel == "debug" {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(os.Stderr)))
	}
	svc := core.NewService(store, opts...)
	for _, p := range store.ListPrograms() {
		used, err := p.TimeUsed()
		if err != nil {
			log.Warn("skipping time metrics", "program", p.ID, "error", err)
			continue
		}
		metrics.ObserveProgramTime(p.ID, used.ProgramUsed, used.PartnerUsed)
	}

	api := httpapi.New(svc,
		httpapi.WithLogger(logging.Component(log, "http")),
		httpapi.WithGatherer(reg),
		httpapi.WithAccessLog(os.Stdout),
	)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: api.Router(), ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver, "archive", arch.Driver())
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
