package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/axiomhq/axiom-go/axiom"
	"github.com/axiomhq/axiom-go/axiom/ingest"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Options defines logger initialization parameters.
type Options struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	// Console is where human or JSON lines go. Defaults to stdout.
	Console io.Writer
	// Service tags events forwarded to Axiom.
	Service string

	// Axiom
	SendToAxiom  bool
	AxiomAPIKey  string
	AxiomOrgID   string
	AxiomDataset string
	AxiomFlush   time.Duration
}

var (
	global zerolog.Logger
	ax     *axiomClient
)

// Init sets up the global logger: optional rotated file, console, optional
// Axiom forwarding. Request loggers derived from it are reachable through
// zerolog.Ctx.
func Init(opts Options) error {
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return fmt.Errorf("create logs dir: %w", err)
		}
	}
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	service := opts.Service
	if service == "" {
		service = "podofo"
	}

	var writers []io.Writer
	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		})
	}
	if opts.Pretty {
		writers = append(writers, zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339})
	} else {
		writers = append(writers, console)
	}

	// Optional Axiom writer (info+)
	if opts.SendToAxiom && opts.AxiomAPIKey != "" {
		client, err := newAxiomClient(opts.AxiomAPIKey, opts.AxiomOrgID, opts.AxiomDataset, opts.AxiomFlush)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Axiom disabled: %v\n", err)
		} else {
			ax = client
			writers = append(writers, &axiomWriter{sink: client, service: service})
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		lvl = zerolog.InfoLevel
	}

	global = zerolog.New(io.MultiWriter(writers...)).Level(lvl).With().Timestamp().Logger()
	log.Logger = global
	zerolog.DefaultContextLogger = &global
	return nil
}

// Close flushes any buffered external loggers.
func Close() {
	if ax != nil {
		_ = ax.Close()
		ax = nil
	}
}

// WithRequest returns ctx carrying a child of the global logger tagged with
// the request id and, when known, the operation.
func WithRequest(ctx context.Context, requestID, operation string) (context.Context, zerolog.Logger) {
	lc := log.Logger.With().Str("request_id", requestID)
	if operation != "" {
		lc = lc.Str("operation", operation)
	}
	l := lc.Logger()
	return l.WithContext(ctx), l
}

type eventSink interface {
	Send(ev axiom.Event)
}

// axiomWriter forwards zerolog JSON lines to Axiom (dropping debug level).
type axiomWriter struct {
	sink    eventSink
	service string
}

func (w *axiomWriter) Write(p []byte) (int, error) {
	var ev map[string]any
	if err := json.Unmarshal(p, &ev); err != nil {
		ev = map[string]any{"message": string(p), "level": "info"}
	}
	if lvl, ok := ev["level"].(string); ok && (lvl == "debug" || lvl == "trace") {
		return len(p), nil
	}
	ev["service"] = w.service
	if _, ok := ev[ingest.TimestampField]; !ok {
		ev[ingest.TimestampField] = time.Now()
	}
	w.sink.Send(axiom.Event(ev))
	return len(p), nil
}

const (
	axiomBuffer    = 1000
	axiomBatchSize = 200
	axiomIngestMax = 15 * time.Second
)

// axiomClient batches events and ingests them from a single goroutine.
// Events offered while the buffer is full are dropped and counted.
type axiomClient struct {
	client  *axiom.Client
	dataset string
	events  chan axiom.Event
	done    chan struct{}
	closed  sync.Once
	dropped atomic.Int64
	wg      sync.WaitGroup
}

func newAxiomClient(token, orgID, dataset string, every time.Duration) (*axiomClient, error) {
	if dataset == "" {
		dataset = "dev_podofo"
	}
	opts := []axiom.Option{axiom.SetToken(token)}
	if orgID != "" {
		opts = append(opts, axiom.SetOrganizationID(orgID))
	}
	c, err := axiom.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	if every <= 0 {
		every = 10 * time.Second
	}
	ac := &axiomClient{
		client:  c,
		dataset: dataset,
		events:  make(chan axiom.Event, axiomBuffer),
		done:    make(chan struct{}),
	}
	ac.wg.Add(1)
	go ac.run(every)
	return ac, nil
}

func (a *axiomClient) Send(ev axiom.Event) {
	select {
	case a.events <- ev:
	default:
		a.dropped.Add(1)
	}
}

func (a *axiomClient) ingest(batch []axiom.Event) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), axiomIngestMax)
	defer cancel()
	if _, err := a.client.IngestEvents(ctx, a.dataset, batch); err != nil {
		fmt.Fprintf(os.Stderr, "axiom ingest of %d events failed: %v\n", len(batch), err)
	}
}

func (a *axiomClient) run(every time.Duration) {
	defer a.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	batch := make([]axiom.Event, 0, axiomBatchSize)
	for {
		select {
		case ev := <-a.events:
			if batch = append(batch, ev); len(batch) == axiomBatchSize {
				a.ingest(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			a.ingest(batch)
			batch = batch[:0]
		case <-a.done:
			// drain what is already queued
			for {
				select {
				case ev := <-a.events:
					batch = append(batch, ev)
				default:
					a.ingest(batch)
					return
				}
			}
		}
	}
}

// Close flushes queued events and stops the ingest goroutine.
func (a *axiomClient) Close() error {
	a.closed.Do(func() { close(a.done) })
	a.wg.Wait()
	if n := a.dropped.Load(); n > 0 {
		fmt.Fprintf(os.Stderr, "axiom dropped %d events with a full buffer\n", n)
	}
	return nil
}
