// Package app wires the bot together and owns the process lifecycle:
// update loop, per-session dispatch and the shutdown flush.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"bottlecangowhere/pkg/config"
	"bottlecangowhere/pkg/dispatch"
	"bottlecangowhere/pkg/events"
	"bottlecangowhere/pkg/finder"
	"bottlecangowhere/pkg/fsm"
	"bottlecangowhere/pkg/geocoder"
	"bottlecangowhere/pkg/httpapi"
	"bottlecangowhere/pkg/journal"
	"bottlecangowhere/pkg/metrics"
	"bottlecangowhere/pkg/ports/botport"
	"bottlecangowhere/pkg/registry"
	"bottlecangowhere/pkg/state"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const httpShutdownTimeout = 5 * time.Second

// UpdateSource is the long-polling side of the Telegram client.
type UpdateSource interface {
	GetUpdatesChan(timeout int) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type App struct {
	cfg        *config.BotConfig
	registry   *registry.Registry
	handler    *fsm.Handler
	dispatcher *dispatch.Dispatcher[int64, tgbotapi.Update]
	journal    *journal.Store
	events     events.Publisher
	metrics    *metrics.Metrics
	gatherer   *prometheus.Registry
	httpServer *http.Server
}

// New loads the registry and opens every backing service. Failures here are
// fatal for the process.
func New(cfg *config.BotConfig, botPort botport.BotPort) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: config is nil")
	}

	reg, err := registry.Load(registry.NewCSVStore(cfg.Storage.MachinesCSV))
	if err != nil {
		return nil, err
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(promReg)
	m.SetMachines(reg.Len())

	gc, err := geocoder.New(cfg.Geocoder.BaseURL, cfg.Geocoder.Timeout, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create geocoder: %w", err)
	}

	a := &App{
		cfg:      cfg,
		registry: reg,
		metrics:  m,
		gatherer: promReg,
		events:   events.Nop{},
	}

	deps := fsm.Deps{
		Bot:      botPort,
		Store:    state.NewStore(fsm.NewFSMCreator()),
		Registry: reg,
		Geocoder: gc,
		Metrics:  m,
		Config:   cfg,
	}

	if cfg.Storage.JournalPath != "" {
		j, err := journal.Open(cfg.Storage.JournalPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		a.journal = j
		deps.Journal = j
	}

	if cfg.Events.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.Subject)
		if err != nil {
			a.closeBackends()
			return nil, fmt.Errorf("failed to connect event publisher: %w", err)
		}
		a.events = pub
	}
	deps.Events = a.events

	handler, err := fsm.NewHandler(deps)
	if err != nil {
		a.closeBackends()
		return nil, err
	}
	a.handler = handler
	a.dispatcher = dispatch.New[int64, tgbotapi.Update](handler.HandleUpdate, log.Default())

	if cfg.HTTP.Listen != "" {
		var history httpapi.History
		if a.journal != nil {
			history = a.journal
		}
		gin.SetMode(gin.ReleaseMode)
		a.httpServer = &http.Server{
			Addr:              cfg.HTTP.Listen,
			Handler:           httpapi.NewRouter(reg, finder.New(reg), history, promReg),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	return a, nil
}

// Registry exposes the live machine registry.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Run polls source until ctx is cancelled or the update channel closes, then
// runs the shutdown sequence.
func (a *App) Run(ctx context.Context, source UpdateSource) error {
	a.startHTTP()

	updates := source.GetUpdatesChan(a.cfg.Telegram.PollTimeout)
	log.Println("Starting update processing...")
	a.Serve(ctx, updates)

	log.Println("Stopping update polling...")
	source.StopReceivingUpdates()
	return a.Shutdown()
}

// Serve hands updates to the per-session dispatcher until ctx is done or
// updates is closed. In-flight handlers keep running after ctx is cancelled
// so their replies are still delivered.
func (a *App) Serve(ctx context.Context, updates <-chan tgbotapi.Update) {
	handlerCtx := context.WithoutCancel(ctx)
	for {
		select {
		case update, ok := <-updates:
			if !ok {
				log.Println("Update channel closed.")
				return
			}
			if update.UpdateID == 0 && update.Message == nil {
				continue
			}
			if !a.dispatcher.Dispatch(handlerCtx, sessionKey(update), update) {
				log.Printf("Dropping update %d: dispatcher closed", update.UpdateID)
			}
		case <-ctx.Done():
			log.Println("Stopping update processing loop...")
			return
		}
	}
}

// Shutdown waits for in-flight handlers, writes the registry back to its
// storage and closes every backend. It returns the flush error, if any.
func (a *App) Shutdown() error {
	log.Printf("Waiting for %d pending updates...", a.dispatcher.Pending())
	a.dispatcher.Close()

	log.Println("Saving data and exiting...")
	flushErr := a.registry.Flush()
	if flushErr != nil {
		log.Printf("Error flushing registry: %v", flushErr)
	}

	if a.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		if err := a.httpServer.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down HTTP API: %v", err)
		}
	}
	a.closeBackends()
	return flushErr
}

func (a *App) startHTTP() {
	if a.httpServer == nil {
		return
	}
	go func() {
		log.Printf("HTTP API listening on %s", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP API stopped: %v", err)
		}
	}()
}

func (a *App) closeBackends() {
	if a.events != nil {
		a.events.Close()
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			log.Printf("Error closing journal: %v", err)
		}
	}
}

func sessionKey(update tgbotapi.Update) int64 {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.ID
	}
	return 0
}
