/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgeterm/serial"
)

// captureCmd represents the capture command
var captureCmd = &cobra.Command{
	Use:   "capture <port> <output-file>",
	Short: "Capture serial data to a file",
	Long: `Capture incoming serial data to a file for later parsing.

Registers a background data listener on the specified serial port and writes
every received chunk to the output file. Runs continuously until interrupted
(Ctrl+C).

The output file is opened in append mode, allowing you to resume captures
without overwriting existing data.

Example usage:
  serial capture /dev/ttyUSB0 data.log
  serial capture /dev/ttyUSB0 output.txt --baud 9600
  serial capture /dev/ttyUSB0 capture.log --console
  serial capture /dev/ttyUSB0 capture.log --flow-control cts --initial-rts -c`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]
		outputPath := args[1]

		// Get flags
		baudRate, _ := cmd.Flags().GetInt("baud")
		flowControl, _ := cmd.Flags().GetString("flow-control")
		initialRTS, _ := cmd.Flags().GetBool("initial-rts")
		queueCapacity, _ := cmd.Flags().GetInt("queue")
		showConsole, _ := cmd.Flags().GetBool("console")

		// Configure port options
		opts := []serial.Option{
			serial.WithBaudRate(baudRate),
		}

		switch strings.ToLower(flowControl) {
		case "cts":
			opts = append(opts, serial.WithFlowControl(serial.FlowControlCTS))
			if initialRTS {
				opts = append(opts, serial.WithInitialRTS(true))
			}
		case "rtscts":
			opts = append(opts, serial.WithFlowControl(serial.FlowControlRTSCTS))
			if initialRTS {
				opts = append(opts, serial.WithInitialRTS(true))
			}
		}

		if err := runCapture(portPath, outputPath, queueCapacity, showConsole, opts...); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().IntP("baud", "b", 115200, "Baud rate")
	captureCmd.Flags().StringP("flow-control", "f", "none", "Flow control: none, cts, rtscts")
	captureCmd.Flags().Bool("initial-rts", false, "Assert RTS on port open")
	captureCmd.Flags().Int("queue", 5000, "Listener queue capacity in chunks")
	captureCmd.Flags().BoolP("console", "c", false, "Display incoming data on console while capturing")
}

// fileCaptureListener appends received chunks to a file. Callbacks arrive one
// at a time from the dispatch goroutine, so writes never interleave; the
// mutex only guards against the final flush racing a late delivery.
type fileCaptureListener struct {
	mu           sync.Mutex
	file         *os.File
	console      bool
	bytesWritten atomic.Int64
	writeErr     chan error
}

func (l *fileCaptureListener) OnDataAvailable(data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, err := l.file.Write(data)
	if err != nil {
		select {
		case l.writeErr <- err:
		default:
		}
		return
	}
	l.bytesWritten.Add(int64(n))

	if l.console {
		os.Stdout.Write(data)
	}
}

func (l *fileCaptureListener) OnDataError(err error) {
	fmt.Fprintf(os.Stderr, "\nread error: %v\n", err)
}

func runCapture(portPath, outputPath string, queueCapacity int, showConsole bool, opts ...serial.Option) error {
	// Open serial port
	port, err := serial.Open(portPath, opts...)
	if err != nil {
		return fmt.Errorf("failed to open port: %w", err)
	}
	defer port.Close()

	// Open output file in append mode
	file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer file.Close()

	listener := &fileCaptureListener{
		file:     file,
		console:  showConsole,
		writeErr: make(chan error, 1),
	}

	_, err = port.RegisterDataListener(listener, serial.WithQueueCapacity(queueCapacity))
	if err != nil {
		return fmt.Errorf("failed to register listener: %w", err)
	}
	defer port.UnregisterDataListener(listener)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	fmt.Fprintf(os.Stderr, "Capturing data from %s to %s\n", portPath, outputPath)
	if showConsole {
		fmt.Fprintf(os.Stderr, "Console display enabled\n")
	}
	fmt.Fprintf(os.Stderr, "Press Ctrl+C to stop\n\n")

	startTime := time.Now()

	select {
	case <-sigChan:
		fmt.Fprintf(os.Stderr, "\nReceived interrupt signal, shutting down...\n")
	case err := <-listener.writeErr:
		return fmt.Errorf("write error: %w", err)
	}

	duration := time.Since(startTime)
	fmt.Fprintf(os.Stderr, "\nCapture complete: %d bytes written in %v\n",
		listener.bytesWritten.Load(), duration.Round(time.Millisecond))
	return nil
}
