package templates

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestMarshalDataJSON(t *testing.T) {
	is := is.New(t)

	d := MarshalData{
		Revision:     "abc",
		Branch:       "master",
		Environment:  "production",
		BootTime:     "2024-05-01",
		Uptime:       12,
		RequestCount: 3,
		Devices:      2,
		ActiveTasks:  2,
		Warnings:     []string{`bad "record"`, "other"},
	}

	var got MarshalData
	is.NoErr(json.Unmarshal([]byte(d.JSON()), &got))
	is.Equal(got, d)
}

func TestMarshalDataJSONWithoutWarnings(t *testing.T) {
	is := is.New(t)

	var got MarshalData
	is.NoErr(json.Unmarshal([]byte((&MarshalData{}).JSON()), &got))
	is.Equal(got.Warnings, []string{})
}

func TestDevicesTable(t *testing.T) {
	is := is.New(t)

	out := DevicesTable([]DeviceRow{
		{Name: "Router1", IP: "10.0.0.1", Added: "2024-05-01 10:00", Status: "active", PingTime: "12ms", LastPing: "3s ago", Refresh: "5s"},
		{Name: "Printer", IP: "10.0.0.20", Added: "2024-05-02 11:00", Status: "unknown", PingTime: "-", LastPing: "never", Refresh: "60s"},
	})

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	is.Equal(len(lines), 3)
	is.True(strings.HasPrefix(lines[0], "Name     IP         Added"))
	is.True(strings.HasPrefix(lines[1], "Router1  10.0.0.1   2024-05-01 10:00"))
	is.True(strings.HasSuffix(lines[2], "never      60s"))

	for _, l := range lines {
		is.Equal(l, strings.TrimRight(l, " "))
	}
}

func TestDevicesTableEmpty(t *testing.T) {
	is := is.New(t)
	is.Equal(DevicesTable(nil), "Name  IP  Added  Status  Ping time  Last ping  Refresh\n")
}
