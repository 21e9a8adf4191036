package config

import (
	"encoding/json"
	"os"

	"github.com/ferux/devicewatch/internal/time"
)

// Application settings.
type Application struct {
	Debug          bool           `json:"debug"`
	HTTP           *HTTP          `json:"http"`
	SentryDSN      string         `json:"sentry_dsn"`
	NotifyTelegram NotifyTelegram `json:"notify_telegram"`
	ServerName     string         `json:"server_name"`
	Storage        Storage        `json:"storage"`
	Probe          Probe          `json:"probe"`
	Scheduler      Scheduler      `json:"scheduler"`
}

type HTTP struct {
	Listen  string        `json:"listen"`
	Timeout time.Duration `json:"timeout"`
}

type NotifyTelegram struct {
	API    string `json:"api"`
	ChatID string `json:"chat_id"`
}

// Enabled reports whether telegram notifications were configured.
func (n NotifyTelegram) Enabled() bool {
	return len(n.API) > 0 && len(n.ChatID) > 0
}

// Storage where the device list lives.
type Storage struct {
	// Kind is either "json" or "sqlite".
	Kind string `json:"kind"`
	Path string `json:"path"`
}

// Probe configures how devices are checked.
type Probe struct {
	// Kind is one of "exec", "tcp" or "icmp".
	Kind    string        `json:"kind"`
	Timeout time.Duration `json:"timeout"`
	// Command overrides ping binary for the exec probe.
	Command string `json:"command"`
}

type Scheduler struct {
	MaxTasks   int           `json:"max_tasks"`
	StopGrace  time.Duration `json:"stop_grace"`
	SinkBuffer int           `json:"sink_buffer"`
}

const (
	StorageJSON   = "json"
	StorageSQLite = "sqlite"

	ProbeExec = "exec"
	ProbeTCP  = "tcp"
	ProbeICMP = "icmp"
)

// Default returns settings the application runs with when nothing else is set.
func Default() Application {
	return Application{
		HTTP: &HTTP{
			Listen: ":8080",
		},
		ServerName: "devicewatch",
		Storage: Storage{
			Kind: StorageJSON,
			Path: "equipements.json",
		},
		Probe: Probe{
			Kind: ProbeExec,
		},
	}
}

// Parse parses config from file. Missing fields keep default values.
func Parse(path string) (Application, error) {
	fileBytes, err := os.ReadFile(path)
	if err != nil {
		return Application{}, err
	}

	app := Default()
	err = json.Unmarshal(fileBytes, &app)
	if app.HTTP == nil {
		app.HTTP = Default().HTTP
	}

	return app, err
}
