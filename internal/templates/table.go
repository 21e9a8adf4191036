package templates

import (
	"strings"
	"unicode/utf8"
)

// DeviceRow is a device formatted for the text table.
type DeviceRow struct {
	Name     string
	IP       string
	Added    string
	Status   string
	PingTime string
	LastPing string
	Refresh  string
}

var deviceHeader = DeviceRow{
	Name:     "Name",
	IP:       "IP",
	Added:    "Added",
	Status:   "Status",
	PingTime: "Ping time",
	LastPing: "Last ping",
	Refresh:  "Refresh",
}

func (r DeviceRow) cells() []string {
	return []string{r.Name, r.IP, r.Added, r.Status, r.PingTime, r.LastPing, r.Refresh}
}

func columnWidths(rows []DeviceRow) []int {
	widths := make([]int, len(deviceHeader.cells()))
	for _, r := range append([]DeviceRow{deviceHeader}, rows...) {
		for i, c := range r.cells() {
			if n := utf8.RuneCountInString(c); n > widths[i] {
				widths[i] = n
			}
		}
	}

	return widths
}

// tableLine pads every cell but the last one to the column width.
func tableLine(r DeviceRow, widths []int) string {
	var sb strings.Builder

	cells := r.cells()
	for i, c := range cells {
		if i > 0 {
			sb.WriteString("  ")
		}

		sb.WriteString(c)

		if i < len(cells)-1 {
			sb.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(c)))
		}
	}

	return sb.String()
}
