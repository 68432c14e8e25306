// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/robertchoi/ulc-finder/pkg/ccid"
	"github.com/robertchoi/ulc-finder/pkg/keygen"
	"github.com/robertchoi/ulc-finder/pkg/scanner"
	"github.com/spf13/cobra"
)

var (
	tuiStartKey string
	tuiCapture  string
)

var scanTUICmd = &cobra.Command{
	Use:   "scan-tui",
	Short: "Brute-force the key with an interactive TUI",
	Long: `Run the key scan inside a full-screen terminal UI.

Shows a live progress bar, attempt counter, scan rate, the candidate key
currently on the wire, and an event log of reader anomalies.

Press 'q' or Ctrl-C to stop the scan; the loop finishes the current
candidate before shutting down.`,
	RunE: runScanTUI,
}

func init() {
	rootCmd.AddCommand(scanTUICmd)
	scanTUICmd.Flags().StringVar(&tuiStartKey, "start-key", "", "16-byte hex key to start from (default: all zeros)")
	scanTUICmd.Flags().StringVar(&tuiCapture, "capture", "", "Append a CBOR trace of all reader traffic to this file")
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type scanTickMsg time.Time

type scanProgressMsg struct {
	progress   float64 // 0..100
	attempts   uint64
	currentKey []byte
}

type scanFoundMsg struct {
	key []byte
}

type scanEventMsg struct {
	message string
}

type scanDoneMsg struct {
	result scanner.Result
}

// teaListener forwards engine events into the TUI event loop. Progress
// events fire once per candidate; they are throttled here so a fast
// reader cannot flood the program queue.
type teaListener struct {
	p        *tea.Program
	lastSent time.Time
}

func (l *teaListener) OnProgress(progress float64, attempts uint64, currentKey []byte) {
	if time.Since(l.lastSent) < 100*time.Millisecond {
		return
	}
	l.lastSent = time.Now()
	l.p.Send(scanProgressMsg{
		progress:   progress,
		attempts:   attempts,
		currentKey: append([]byte(nil), currentKey...),
	})
}

func (l *teaListener) OnKeyFound(key []byte) {
	l.p.Send(scanFoundMsg{key: append([]byte(nil), key...)})
}

func (l *teaListener) OnError(message string) {
	l.p.Send(scanEventMsg{message: message})
}

//////////////////////////////////////////////////////////////
// Model
//////////////////////////////////////////////////////////////

type scanLogEntry struct {
	timestamp time.Time
	message   string
}

type scanModel struct {
	engine   *scanner.Engine
	connInfo string
	startKey []byte

	bar        progress.Model
	percent    float64 // 0..100
	attempts   uint64
	currentKey []byte
	foundKey   []byte

	started       time.Time
	eventLog      []scanLogEntry
	maxLogEntries int

	width    int
	height   int
	stopping bool
	done     bool
	result   *scanner.Result
	quitting bool
}

func initialScanModel(engine *scanner.Engine, connInfo string, startKey []byte) scanModel {
	return scanModel{
		engine:        engine,
		connInfo:      connInfo,
		startKey:      startKey,
		bar:           progress.New(progress.WithDefaultGradient()),
		currentKey:    startKey,
		started:       time.Now(),
		eventLog:      make([]scanLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

func (m scanModel) Init() tea.Cmd {
	return tea.Batch(
		scanTickCmd(),
		tea.EnterAltScreen,
	)
}

func scanTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return scanTickMsg(t)
	})
}

func (m scanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.done {
				m.quitting = true
				return m, tea.Quit
			}
			if !m.stopping {
				m.stopping = true
				m.engine.Stop()
				m.addLogEntry("Stop requested; finishing current candidate...")
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = msg.Width - 8
		if m.bar.Width > 72 {
			m.bar.Width = 72
		}

	case scanTickMsg:
		// Rate display updates off the elapsed clock
		return m, scanTickCmd()

	case scanProgressMsg:
		m.percent = msg.progress
		m.attempts = msg.attempts
		m.currentKey = msg.currentKey

	case scanEventMsg:
		m.addLogEntry(msg.message)

	case scanFoundMsg:
		m.foundKey = msg.key

	case scanDoneMsg:
		m.done = true
		m.result = &msg.result
		m.attempts = msg.result.Attempts
	}

	return m, nil
}

func (m *scanModel) addLogEntry(message string) {
	m.eventLog = append(m.eventLog, scanLogEntry{
		timestamp: time.Now(),
		message:   message,
	})
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m scanModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	foundStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("ULC-FINDER - KEY SCAN"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("Connection: %s | Press 'q' to stop", m.connInfo)))
	s.WriteString("\n\n")

	// Progress bar
	s.WriteString(m.bar.ViewAs(m.percent / 100.0))
	s.WriteString("\n\n")

	// Statistics
	elapsed := time.Since(m.started).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(m.attempts) / elapsed
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Attempts:"), valueStyle.Render(fmt.Sprintf("%d", m.attempts)),
		labelStyle.Render("Rate:"), valueStyle.Render(fmt.Sprintf("%.1f keys/s", rate)),
		labelStyle.Render("Elapsed:"), valueStyle.Render(time.Since(m.started).Truncate(time.Second).String()),
	))
	statsContent.WriteString(fmt.Sprintf("%s %s",
		labelStyle.Render("Current key:"), valueStyle.Render(ccid.FormatHex(m.currentKey)),
	))
	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Found key / terminal status
	if m.foundKey != nil {
		s.WriteString(boxStyle.Render(foundStyle.Render(
			fmt.Sprintf("KEY FOUND: %s", keygen.FormatKey(m.foundKey)))))
		s.WriteString("\n\n")
	}
	if m.done {
		msg := "Scan finished."
		if m.result != nil {
			msg = m.result.Message
		}
		s.WriteString(warningStyle.Render(fmt.Sprintf("%s Press 'q' to exit.", msg)))
		s.WriteString("\n\n")
	} else if m.stopping {
		s.WriteString(warningStyle.Render("Stopping..."))
		s.WriteString("\n\n")
	}

	// Event log
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 14
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			logContent.WriteString(fmt.Sprintf("%s %s\n",
				headerStyle.Render(entry.timestamp.Format("15:04:05.000")),
				warningStyle.Render(entry.message),
			))
		}
	}
	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}

//////////////////////////////////////////////////////////////
// Command
//////////////////////////////////////////////////////////////

func runScanTUI(cmd *cobra.Command, args []string) error {
	startKey, err := parseStartKey(tuiStartKey)
	if err != nil {
		return fmt.Errorf("invalid --start-key: %v", err)
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	var transport scanner.Transport = newFrameTransport(conn)
	if tuiCapture != "" {
		f, err := os.OpenFile(tuiCapture, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open capture file: %v", err)
		}
		defer f.Close()
		transport = scanner.NewCaptureTransport(transport, f)
	}

	listener := &teaListener{}
	engine := scanner.NewEngine(transport, listener)

	m := initialScanModel(engine, connInfo, startKey)
	p := tea.NewProgram(m, tea.WithAltScreen())
	listener.p = p

	// Run the scan off the TUI loop; its terminal result closes the
	// session on screen.
	go func() {
		result := engine.Scan(startKey)
		p.Send(scanDoneMsg{result: result})
	}()

	finalModel, err := p.Run()
	engine.Stop()
	if err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}

	// Repeat the outcome on the plain terminal so it survives the
	// alt-screen teardown.
	if fm, ok := finalModel.(scanModel); ok && fm.result != nil {
		fmt.Printf("Attempts: %d\n", fm.result.Attempts)
		fmt.Printf("Result:   %s\n", fm.result.Message)
		if fm.result.Success {
			fmt.Printf("Key:      %s\n", keygen.FormatKey(fm.result.Key))
		}
	}
	return nil
}
