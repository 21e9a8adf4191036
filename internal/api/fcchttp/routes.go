package fcchttp

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ferux/devicewatch/internal/model"
)

func (api *HTTP) setupRoutes(info model.ApplicationInfo) {
	router := mux.NewRouter()

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.Handle("/devices.txt", api.withRequest(api.handleDevicesTable())).Methods(http.MethodGet)

	// api/v1 base path handlers
	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.Use(middlewareCounter(api), middlewareRequestID(), middlewareLogger(api.logger))
	v1.HandleFunc("/info", api.handleInfo(info)).Methods(http.MethodGet)
	v1.HandleFunc("/devices", api.handleListDevices()).Methods(http.MethodGet)
	v1.HandleFunc("/devices", api.handleCreateDevice()).Methods(http.MethodPost)
	v1.HandleFunc("/devices/{id}", api.handleGetDevice()).Methods(http.MethodGet)
	v1.HandleFunc("/devices/{id}", api.handleEditDevice()).Methods(http.MethodPatch)
	v1.HandleFunc("/devices/{id}", api.handleDeleteDevice()).Methods(http.MethodDelete)
	v1.Handle("/ws", api.hub)

	// preflight requests never match method-bound routes
	api.srv.Handler = middlewareCORS()(router)
}

// withRequest applies the api middlewares to a handler living outside /api/v1.
func (api *HTTP) withRequest(h http.Handler) http.Handler {
	return middlewareCounter(api)(middlewareRequestID()(middlewareLogger(api.logger)(h)))
}
