package fcchttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"

	"github.com/ferux/devicewatch/internal/config"
	"github.com/ferux/devicewatch/internal/model"
)

const (
	maxHeaderBytes = 256 * (1 << 10) // 256 KiB
	maxBodyBytes   = 64 * (1 << 10)  // 64 KiB
	contentType    = "content-type"
	contentJSON    = "application/json"
	contentText    = "text/plain; charset=utf-8"
)

// DeviceService is what the http layer needs from the monitor.
type DeviceService interface {
	Add(ctx context.Context, name, address string, interval int) (model.Device, error)
	Edit(ctx context.Context, id model.DeviceID, edit model.DeviceEdit) (model.Device, error)
	Remove(ctx context.Context, id model.DeviceID) error
	Get(id model.DeviceID) (model.Device, error)
	List() []model.Device
	ActiveTasks() int
	Warnings() []string
}

type HTTP struct {
	srv *http.Server

	devices  DeviceService
	hub      *Hub
	logger   zerolog.Logger
	notifier *sentry.Client

	requestCount int64
	bootTime     time.Time
	now          func() time.Time
}

// NewHTTP prepares new http service
func NewHTTP(
	cfg config.HTTP,
	devices DeviceService,
	hub *Hub,
	logger zerolog.Logger,
	nClient *sentry.Client,
	appInfo model.ApplicationInfo,
) (*HTTP, error) {
	to := cfg.Timeout.Std()
	srv := &http.Server{
		Addr:              cfg.Listen,
		ReadTimeout:       to,
		ReadHeaderTimeout: to,
		WriteTimeout:      to,
		IdleTimeout:       to,
		MaxHeaderBytes:    maxHeaderBytes,
	}

	api := &HTTP{
		srv:      srv,
		devices:  devices,
		hub:      hub,
		logger:   logger.With().Str("pkg", "fcchttp").Logger(),
		bootTime: time.Now(),
		now:      time.Now,
		notifier: nClient,
	}
	api.setupRoutes(appInfo)

	return api, nil
}

// Serve connections until Shutdown is called.
func (api *HTTP) Serve() error {
	api.logger.Info().Str("listen", api.srv.Addr).Msg("serving http")

	err := api.srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		api.logger.Error().Err(err).Msg("interrupted")
		api.capture(err)

		return err
	}

	return nil
}

// Shutdown the server
func (api *HTTP) Shutdown(ctx context.Context) error {
	api.hub.Close()

	return api.srv.Shutdown(ctx)
}

func (api *HTTP) capture(err error) {
	if api.notifier == nil {
		return
	}

	api.notifier.CaptureException(err, nil, sentry.NewScope())
}

func asJSON(ctx context.Context, w http.ResponseWriter, obj interface{}, code int) {
	w.Header().Set(contentType, contentJSON)
	w.WriteHeader(code)

	err := json.NewEncoder(w).Encode(obj)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("encoding json")
	}
}
