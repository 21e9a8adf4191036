package fcchttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/ferux/devicewatch/internal/fcontext"
	"github.com/ferux/devicewatch/internal/model"
	"github.com/ferux/devicewatch/internal/templates"
)

const tableTimeLayout = "2006-01-02 15:04:05"

type deviceRequest struct {
	Name            string `json:"name"`
	Address         string `json:"address"`
	RefreshInterval int    `json:"refresh_interval"`
}

type deviceResponse struct {
	ID              model.DeviceID `json:"id"`
	Name            string         `json:"name"`
	Address         string         `json:"address"`
	RefreshInterval int            `json:"refresh_interval"`
	AddedAt         time.Time      `json:"added_at"`
	Status          model.Status   `json:"status"`
	LastCheckAt     *time.Time     `json:"last_check_at,omitempty"`
	AgeSeconds      float64        `json:"age_seconds"`
	ElapsedMS       float64        `json:"elapsed_ms"`
}

func newDeviceResponse(d model.Device, now time.Time) deviceResponse {
	resp := deviceResponse{
		ID:              d.ID,
		Name:            d.Name,
		Address:         d.Address,
		RefreshInterval: d.RefreshInterval,
		AddedAt:         d.AddedAt,
		Status:          d.Status,
		AgeSeconds:      d.Age(now).Seconds(),
		ElapsedMS:       float64(d.LastElapsed) / float64(time.Millisecond),
	}

	if !d.LastCheckAt.IsZero() {
		at := d.LastCheckAt
		resp.LastCheckAt = &at
	}

	return resp
}

func (api *HTTP) handleInfo(info model.ApplicationInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(contentType, contentJSON)
		w.WriteHeader(http.StatusOK)

		(&templates.MarshalData{
			Revision:     info.Revision,
			Branch:       info.Branch,
			Environment:  info.Environment,
			BootTime:     api.bootTime.String(),
			Uptime:       time.Since(api.bootTime).Seconds(),
			RequestCount: int(atomic.LoadInt64(&api.requestCount)),
			Devices:      len(api.devices.List()),
			ActiveTasks:  api.devices.ActiveTasks(),
			Warnings:     api.devices.Warnings(),
		}).WriteJSON(w)
	}
}

func (api *HTTP) handleListDevices() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ctx = r.Context()
		var now = api.now()

		devices := api.devices.List()
		response := make([]deviceResponse, 0, len(devices))

		for _, d := range devices {
			response = append(response, newDeviceResponse(d, now))
		}

		asJSON(ctx, w, response, http.StatusOK)
	}
}

func (api *HTTP) handleGetDevice() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ctx = r.Context()
		var id = model.DeviceID(mux.Vars(r)["id"])

		d, err := api.devices.Get(id)
		if err != nil {
			api.serveError(ctx, w, r, err)
			return
		}

		asJSON(ctx, w, newDeviceResponse(d, api.now()), http.StatusOK)
	}
}

func (api *HTTP) handleCreateDevice() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ctx = r.Context()
		var req deviceRequest

		if err := decodeBody(w, r, &req); err != nil {
			api.serveError(ctx, w, r, badRequest(ctx, err))
			return
		}

		d, err := api.devices.Add(ctx, req.Name, req.Address, req.RefreshInterval)
		if err != nil {
			api.serveError(ctx, w, r, err)
			return
		}

		zerolog.Ctx(ctx).Info().Str("device_id", string(d.ID)).Str("name", d.Name).Msg("device added")
		asJSON(ctx, w, newDeviceResponse(d, api.now()), http.StatusCreated)
	}
}

func (api *HTTP) handleEditDevice() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ctx = r.Context()
		var id = model.DeviceID(mux.Vars(r)["id"])
		var edit model.DeviceEdit

		if err := decodeBody(w, r, &edit); err != nil {
			api.serveError(ctx, w, r, badRequest(ctx, err))
			return
		}

		d, err := api.devices.Edit(ctx, id, edit)
		if err != nil {
			api.serveError(ctx, w, r, err)
			return
		}

		asJSON(ctx, w, newDeviceResponse(d, api.now()), http.StatusOK)
	}
}

func (api *HTTP) handleDeleteDevice() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ctx = r.Context()
		var id = model.DeviceID(mux.Vars(r)["id"])

		if err := api.devices.Remove(ctx, id); err != nil {
			api.serveError(ctx, w, r, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func (api *HTTP) handleDevicesTable() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var now = api.now()

		devices := api.devices.List()
		rows := make([]templates.DeviceRow, 0, len(devices))

		for _, d := range devices {
			rows = append(rows, deviceRow(d, now))
		}

		w.Header().Set(contentType, contentText)
		w.WriteHeader(http.StatusOK)

		templates.WriteDevicesTable(w, rows)
	}
}

func deviceRow(d model.Device, now time.Time) templates.DeviceRow {
	row := templates.DeviceRow{
		Name:     d.Name,
		IP:       d.Address,
		Added:    d.AddedAt.Format(tableTimeLayout),
		Status:   d.Status.String(),
		PingTime: "-",
		LastPing: "never",
		Refresh:  fmt.Sprintf("%ds", d.RefreshInterval),
	}

	if !d.LastCheckAt.IsZero() {
		row.PingTime = d.LastElapsed.Round(time.Millisecond).String()
		row.LastPing = fmt.Sprintf("%ds ago", int(d.Age(now).Seconds()))
	}

	return row
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	return dec.Decode(dst)
}

func badRequest(ctx context.Context, err error) model.ServiceError {
	return model.ServiceError{
		Message:   "unable to unmarshal request: " + err.Error(),
		RequestID: fcontext.RequestID(ctx),
		Code:      http.StatusBadRequest,
	}
}

// toServiceError maps domain errors onto http responses.
func toServiceError(ctx context.Context, err error) model.ServiceError {
	var serr model.ServiceError
	if errors.As(err, &serr) {
		if serr.Code == 0 {
			serr.Code = http.StatusInternalServerError
		}

		return serr
	}

	serr = model.ServiceError{
		Message:   err.Error(),
		RequestID: fcontext.RequestID(ctx),
		Code:      http.StatusInternalServerError,
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		serr.Code = http.StatusNotFound
	case errors.Is(err, model.ErrDuplicateName):
		serr.Code = http.StatusConflict
		serr.Field = "name"
	case errors.Is(err, model.ErrEmptyName):
		serr.Code = http.StatusUnprocessableEntity
		serr.Field = "name"
	case errors.Is(err, model.ErrEmptyAddress):
		serr.Code = http.StatusUnprocessableEntity
		serr.Field = "address"
	case errors.Is(err, model.ErrInvalidInterval):
		serr.Code = http.StatusUnprocessableEntity
		serr.Field = "refresh_interval"
	}

	return serr
}

func (api *HTTP) serveError(ctx context.Context, w http.ResponseWriter, r *http.Request, err error) {
	var (
		logger        = zerolog.Ctx(ctx)
		rid           = fcontext.RequestID(ctx)
		responseError = toServiceError(ctx, err)
	)

	if responseError.Code < http.StatusInternalServerError {
		logger.Warn().Err(err).Int("code", responseError.Code).Msg("rejected")
		asJSON(ctx, w, responseError, responseError.Code)

		return
	}

	logger.Error().Err(err).Msg("captured error")

	if api.notifier != nil {
		event := sentry.NewEvent()

		event.Exception = []sentry.Exception{{Stacktrace: sentry.NewStacktrace()}}
		event.Message = responseError.Message
		event.Level = sentry.LevelError
		event.Contexts["request"] = sentry.Context{"request_id": rid}
		event.Request = sentry.NewRequest(r)

		api.notifier.CaptureEvent(event, &sentry.EventHint{
			OriginalException: err,
		}, sentry.NewScope())
	}

	asJSON(ctx, w, responseError, responseError.Code)
}
