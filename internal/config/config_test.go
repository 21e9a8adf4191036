package config

import (
	"os"
	"path/filepath"
	"testing"
	stdtime "time"

	"github.com/matryer/is"
)

func TestParse(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"debug": true,
		"http": {"listen": ":9090", "timeout": "5s"},
		"storage": {"kind": "sqlite", "path": "devices.db"},
		"probe": {"kind": "tcp", "timeout": "1s"},
		"scheduler": {"max_tasks": 10}
	}`
	is.NoErr(os.WriteFile(path, []byte(data), 0o600))

	app, err := Parse(path)
	is.NoErr(err)
	is.True(app.Debug)
	is.Equal(app.HTTP.Listen, ":9090")
	is.Equal(app.HTTP.Timeout.Std(), 5*stdtime.Second)
	is.Equal(app.Storage.Kind, StorageSQLite)
	is.Equal(app.Probe.Kind, ProbeTCP)
	is.Equal(app.Probe.Timeout.Std(), stdtime.Second)
	is.Equal(app.Scheduler.MaxTasks, 10)
	is.Equal(app.ServerName, "devicewatch")
}

func TestParseKeepsDefaults(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "config.json")
	is.NoErr(os.WriteFile(path, []byte(`{}`), 0o600))

	app, err := Parse(path)
	is.NoErr(err)
	is.Equal(app, Default())
	is.True(!app.NotifyTelegram.Enabled())
}

func TestParseMissingFile(t *testing.T) {
	is := is.New(t)

	_, err := Parse(filepath.Join(t.TempDir(), "nope.json"))
	is.True(err != nil)
}
