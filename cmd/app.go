package cmd

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smazurov/camcorder/internal/catalog"
	"github.com/smazurov/camcorder/internal/config"
	"github.com/smazurov/camcorder/internal/encoder/mediacodec"
	"github.com/smazurov/camcorder/internal/encoder/mjpeg"
	"github.com/smazurov/camcorder/internal/encoder/pcm"
	"github.com/smazurov/camcorder/internal/events"
	"github.com/smazurov/camcorder/internal/logging"
	"github.com/smazurov/camcorder/internal/muxer/mkv"
	"github.com/smazurov/camcorder/internal/plugin"
	"github.com/smazurov/camcorder/internal/preview"
	"github.com/smazurov/camcorder/internal/recording"
)

const settingsDebounce = 1500 * time.Millisecond

// app wires the shared collaborators behind every subcommand.
type app struct {
	logger    *slog.Logger
	registry  *plugin.Registry
	catalog   *catalog.Catalog
	store     *config.Store
	bus       *events.Bus
	extractor *preview.Extractor
	session   *recording.Session

	stopWatch func()
}

// registerPlugins installs the built-in adapters. The hardware encoder
// only registers when a device opener is available on this build.
func registerPlugins(reg *plugin.Registry, opener mediacodec.Opener) {
	pcm.Register(reg)
	mjpeg.Register(reg)
	mediacodec.Register(reg, opener)
	mkv.Register(reg)
}

func newApp(opts *Options) (*app, error) {
	logger := logging.GetLogger("main")

	reg := plugin.New()
	registerPlugins(reg, nil)
	cat := catalog.New(reg)

	store, err := config.Open(opts.Settings, logging.GetLogger("config"))
	if err != nil {
		return nil, err
	}

	bus := events.New()
	extractor := preview.NewExtractor(bus, opts.ThumbnailDir, logging.GetLogger("preview"))
	extractor.RegisterSource(mkv.Source{})

	session, err := recording.New(recording.Options{
		Registry:  reg,
		Catalog:   cat,
		Store:     store,
		Bus:       bus,
		Extractor: extractor,
		Logger:    logging.GetLogger("recording"),
		VideoDir:  opts.VideoDir,
	})
	if err != nil {
		return nil, err
	}

	a := &app{
		logger:    logger,
		registry:  reg,
		catalog:   cat,
		store:     store,
		bus:       bus,
		extractor: extractor,
		session:   session,
	}

	// External edits to the settings file apply to the next recording.
	stop, err := store.Watch(settingsDebounce, func() {
		logger.Info("Settings file changed on disk")
	})
	if err != nil {
		logger.Warn("Settings watcher unavailable", "error", err)
	} else {
		a.stopWatch = stop
	}
	return a, nil
}

// serveMetrics exposes the Prometheus registry when an address is set.
func (a *app) serveMetrics(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		a.logger.Info("Serving metrics", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			a.logger.Warn("Metrics server stopped", "error", err)
		}
	}()
}

func (a *app) close() {
	if a.stopWatch != nil {
		a.stopWatch()
	}
	a.extractor.Close()
}
