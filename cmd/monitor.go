/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/edgeterm/serial"
	"github.com/edgeterm/serial/internal/tui/components"
	"github.com/edgeterm/serial/internal/tui/keys"
	"github.com/edgeterm/serial/internal/tui/models"
	"github.com/edgeterm/serial/internal/tui/styles"
)

var (
	monitorSignals  []string
	monitorInterval time.Duration
	monitorTable    bool
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor <port>",
	Short: "Monitor modem signal changes",
	Long: `Monitor modem control signal changes in real-time.

Registers a line event listener on the port; a background worker polls the
line state and delivers transitions on the monitored signals. Press Ctrl+C
(or q in table mode) to stop.

Examples:
  serial monitor /dev/ttyUSB0
  serial monitor /dev/ttyUSB0 --signals cts,dsr
  serial monitor /dev/ttyUSB0 --signals dcd --interval 100ms
  serial monitor /dev/ttyUSB0 --table

Available signals: cts, dsr, ri, dcd`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]

		// Parse signal mask from flags
		mask, err := parseSignalMask(monitorSignals)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing signals: %v\n", err)
			os.Exit(1)
		}

		if monitorTable {
			err = runMonitorTUI(portPath, mask, monitorInterval)
		} else {
			err = runMonitorPlain(portPath, mask, monitorInterval)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().StringSliceVarP(&monitorSignals, "signals", "s", []string{"cts", "dsr", "ri", "dcd"},
		"Signals to monitor (comma-separated: cts,dsr,ri,dcd)")
	monitorCmd.Flags().DurationVarP(&monitorInterval, "interval", "i", 500*time.Millisecond,
		"Line status poll interval")
	monitorCmd.Flags().BoolVarP(&monitorTable, "table", "t", false,
		"Display transitions in an interactive table")
}

func parseSignalMask(signalNames []string) (serial.SignalMask, error) {
	if len(signalNames) == 0 {
		return serial.SignalCTS | serial.SignalDSR | serial.SignalRI | serial.SignalDCD, nil
	}

	var mask serial.SignalMask
	for _, name := range signalNames {
		switch strings.ToLower(name) {
		case "cts":
			mask |= serial.SignalCTS
		case "dsr":
			mask |= serial.SignalDSR
		case "ri":
			mask |= serial.SignalRI
		case "dcd":
			mask |= serial.SignalDCD
		default:
			return 0, fmt.Errorf("unknown signal: %s (valid: cts, dsr, ri, dcd)", name)
		}
	}
	return mask, nil
}

// printingEventListener writes transitions to stdout as they arrive.
type printingEventListener struct{}

func (printingEventListener) OnLineEvent(ev serial.LineEvent) {
	printLineEvent(ev)
}

func (printingEventListener) OnLineEventError(err error) {
	fmt.Fprintf(os.Stderr, "[%s] listener error: %v\n", time.Now().Format("15:04:05"), err)
}

func runMonitorPlain(portPath string, mask serial.SignalMask, interval time.Duration) error {
	port, err := serial.Open(portPath)
	if err != nil {
		return fmt.Errorf("failed to open port: %w", err)
	}
	defer port.Close()

	listener := printingEventListener{}
	_, err = port.RegisterLineEventListener(listener,
		serial.WithEventsMask(mask),
		serial.WithEventPollInterval(interval))
	if err != nil {
		return fmt.Errorf("failed to register listener: %w", err)
	}
	defer port.UnregisterLineEventListener(listener)

	fmt.Printf("Monitoring signals on %s (signals: %s)\n", portPath, strings.Join(monitorSignals, ", "))
	fmt.Println("Press Ctrl+C to stop")

	// Show initial state
	initialSignals, err := port.GetModemSignals()
	if err != nil {
		return fmt.Errorf("failed to read initial signals: %w", err)
	}
	printSignalState("Initial", initialSignals, mask)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	fmt.Println("\nStopping monitor...")
	return nil
}

func printSignalState(prefix string, signals serial.ModemSignals, mask serial.SignalMask) {
	timestamp := time.Now().Format("15:04:05")
	fmt.Printf("[%s] %s state:\n", timestamp, prefix)
	if mask&serial.SignalCTS != 0 {
		fmt.Printf("  CTS: %s\n", formatSignalState(signals.CTS))
	}
	if mask&serial.SignalDSR != 0 {
		fmt.Printf("  DSR: %s\n", formatSignalState(signals.DSR))
	}
	if mask&serial.SignalRI != 0 {
		fmt.Printf("  RI:  %s\n", formatSignalState(signals.RI))
	}
	if mask&serial.SignalDCD != 0 {
		fmt.Printf("  DCD: %s\n", formatSignalState(signals.DCD))
	}
	fmt.Println()
}

func printLineEvent(ev serial.LineEvent) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] Signal change detected:\n", timestamp)
	if ev.Changed()&serial.SignalCTS != 0 {
		fmt.Printf("  CTS: %s\n", formatSignalState(ev.CTS()))
	}
	if ev.Changed()&serial.SignalDSR != 0 {
		fmt.Printf("  DSR: %s\n", formatSignalState(ev.DSR()))
	}
	if ev.Changed()&serial.SignalRI != 0 {
		fmt.Printf("  RI:  %s\n", formatSignalState(ev.RI()))
	}
	if ev.Changed()&serial.SignalDCD != 0 {
		fmt.Printf("  DCD: %s\n", formatSignalState(ev.DCD()))
	}
	fmt.Println()
}

// programEventListener forwards line events into a Bubble Tea program.
type programEventListener struct {
	program *tea.Program
}

func (l *programEventListener) OnLineEvent(ev serial.LineEvent) {
	l.program.Send(models.LineEventMsg{Event: ev})
}

func (l *programEventListener) OnLineEventError(err error) {
	l.program.Send(models.ConnectionStatusMsg{Connected: true, Error: err})
}

// monitorModel represents the Bubble Tea model for the monitor table mode
type monitorModel struct {
	*models.SerialModel
	eventTable *components.EventTable
	statusBar  *components.StatusBar
	keys       keys.TerminalKeys
}

func runMonitorTUI(portPath string, mask serial.SignalMask, interval time.Duration) error {
	serialModel := models.NewSerialModel(portPath)
	m := monitorModel{
		SerialModel: serialModel,
		eventTable:  components.NewEventTable(80),
		statusBar:   components.NewStatusBar("Serial Monitor", portPath),
		keys:        keys.NewTerminalKeys(),
	}
	m.statusBar.SetConnecting()

	p := tea.NewProgram(&m, tea.WithAltScreen())

	go func() {
		port, err := serial.Open(portPath)
		if err != nil {
			p.Send(models.ConnectionStatusMsg{Connected: false, Error: err})
			return
		}

		listener := &programEventListener{program: p}
		_, err = port.RegisterLineEventListener(listener,
			serial.WithEventsMask(mask),
			serial.WithEventPollInterval(interval))
		if err != nil {
			port.Close()
			p.Send(models.ConnectionStatusMsg{Connected: false, Error: err})
			return
		}

		m.SetPort(port)
		m.SetEventListener(listener)

		p.Send(models.ConnectionStatusMsg{Connected: true, Error: nil})
	}()

	_, err := p.Run()

	m.Cancel()
	m.Cleanup()
	return err
}

func (m *monitorModel) Init() tea.Cmd {
	return nil
}

func (m *monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.eventTable.SetWidth(msg.Width)
		m.statusBar.SetWidth(msg.Width)
		m.SetReady(true)

	case models.ConnectionStatusMsg:
		m.SetConnected(msg.Connected)
		if msg.Error != nil {
			m.SetError(msg.Error)
			m.statusBar.SetDisconnected(msg.Error)
		} else {
			m.statusBar.SetConnected()
		}

	case models.LineEventMsg:
		m.eventTable.AddEvent(time.Now(), msg.Event)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.Cleanup()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Clear):
			m.eventTable.Clear()
		}
	}

	return m, nil
}

func (m *monitorModel) View() string {
	var content string
	if m.IsReady() {
		content = m.eventTable.View()
	} else {
		content = "Initializing..."
	}

	timestamp := time.Now().Format("15:04:05")
	statusBar := m.statusBar.ComprehensiveStatusBar("NORMAL", "MONITOR", m.IsConnected(), timestamp)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		styles.ContentBorderStyle.Render(content),
		statusBar,
	)
}
