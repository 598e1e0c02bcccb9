package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"

	"github.com/edgeterm/serial"
	"github.com/edgeterm/serial/internal/tui/colors"
)

const (
	columnEventTime    = "time"
	columnEventChanged = "changed"
	columnEventCTS     = "cts"
	columnEventDSR     = "dsr"
	columnEventRI      = "ri"
	columnEventDCD     = "dcd"

	maxEventRows = 500
)

// EventTable renders modem line transitions as a scrolling table, newest
// row first.
type EventTable struct {
	table table.Model
	rows  []table.Row
}

func NewEventTable(width int) *EventTable {
	columns := []table.Column{
		table.NewColumn(columnEventTime, "Time", 14),
		table.NewColumn(columnEventChanged, "Changed", 20),
		table.NewColumn(columnEventCTS, "CTS", 5),
		table.NewColumn(columnEventDSR, "DSR", 5),
		table.NewColumn(columnEventRI, "RI", 5),
		table.NewColumn(columnEventDCD, "DCD", 5),
	}

	t := table.New(columns).
		WithBaseStyle(lipgloss.NewStyle().
			Foreground(colors.Text).
			BorderForeground(colors.Surface1).
			Align(lipgloss.Left)).
		WithTargetWidth(width).
		WithPageSize(15)

	return &EventTable{table: t}
}

func (et *EventTable) SetWidth(width int) {
	et.table = et.table.WithTargetWidth(width)
}

// AddEvent prepends a transition row. The table keeps a bounded history so a
// chattering line cannot grow memory without limit.
func (et *EventTable) AddEvent(ts time.Time, ev serial.LineEvent) {
	row := table.NewRow(table.RowData{
		columnEventTime:    ts.Format("15:04:05.000"),
		columnEventChanged: describeChangedLines(ev),
		columnEventCTS:     lineStateCell(ev.CTS(), ev.Rose(serial.SignalCTS), ev.Fell(serial.SignalCTS)),
		columnEventDSR:     lineStateCell(ev.DSR(), ev.Rose(serial.SignalDSR), ev.Fell(serial.SignalDSR)),
		columnEventRI:      lineStateCell(ev.RI(), ev.Rose(serial.SignalRI), ev.Fell(serial.SignalRI)),
		columnEventDCD:     lineStateCell(ev.DCD(), ev.Rose(serial.SignalDCD), ev.Fell(serial.SignalDCD)),
	})

	et.rows = append([]table.Row{row}, et.rows...)
	if len(et.rows) > maxEventRows {
		et.rows = et.rows[:maxEventRows]
	}
	et.table = et.table.WithRows(et.rows)
}

func (et *EventTable) Clear() {
	et.rows = nil
	et.table = et.table.WithRows(nil)
}

func (et *EventTable) View() string {
	return et.table.View()
}

func describeChangedLines(ev serial.LineEvent) string {
	var out string
	appendLine := func(name string, mask serial.SignalMask) {
		if ev.Changed()&mask == 0 {
			return
		}
		arrow := "↓"
		if ev.Rose(mask) {
			arrow = "↑"
		}
		if out != "" {
			out += " "
		}
		out += fmt.Sprintf("%s%s", name, arrow)
	}
	appendLine("CTS", serial.SignalCTS)
	appendLine("DSR", serial.SignalDSR)
	appendLine("RI", serial.SignalRI)
	appendLine("DCD", serial.SignalDCD)
	return out
}

func lineStateCell(active, rose, fell bool) string {
	style := lipgloss.NewStyle().Foreground(colors.Overlay0)
	text := "low"
	if active {
		style = lipgloss.NewStyle().Foreground(colors.Green)
		text = "high"
	}
	if rose || fell {
		style = style.Bold(true)
	}
	return style.Render(text)
}
