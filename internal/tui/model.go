package tui

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Danondso/soundtap/internal/chime"
	"github.com/Danondso/soundtap/internal/clipboard"
	"github.com/Danondso/soundtap/internal/config"
	"github.com/Danondso/soundtap/internal/recorder"
	"github.com/Danondso/soundtap/internal/sound"
)

// Switcher moves the capture session between devices. *sound.PCMStream
// satisfies it.
type Switcher interface {
	ChangeDevice(device int) error
	Device() (int, bool)
	Config() sound.StreamConfig
	Frames() int
}

// DeviceLister enumerates selectable input devices.
type DeviceLister interface {
	InputDevices() ([]sound.Device, error)
}

// DeviceListerFunc adapts a plain function to DeviceLister.
type DeviceListerFunc func() ([]sound.Device, error)

func (f DeviceListerFunc) InputDevices() ([]sound.Device, error) { return f() }

// Capturer arms and disarms WAV capture and reports the input level.
// *recorder.Recorder satisfies it.
type Capturer interface {
	Start() error
	Stop() ([]byte, bool, error)
	IsRecording() bool
	Elapsed() time.Duration
	AudioLevel() float64
	SetLimits(targetSampleRate, maxDurationSec int)
}

// State represents the application state.
type State int

const (
	StateIdle State = iota
	StateLive
	StateRecording
	StateError
)

// Messages sent through the Bubble Tea update loop.

// DevicesLoadedMsg carries a fresh device enumeration.
type DevicesLoadedMsg struct {
	Devices []sound.Device
	Err     error
}

// DeviceChangedMsg reports the outcome of a ChangeDevice call.
type DeviceChangedMsg struct {
	Index int
	Err   error
}

// NextDeviceMsg asks the model to switch to the device after the active one.
// The global hotkey sends it.
type NextDeviceMsg struct{}

type RecordingStartedMsg struct{}

// RecordingSavedMsg reports a WAV file written to disk.
type RecordingSavedMsg struct {
	Path      string
	Truncated bool
}

type ErrorMsg struct {
	Err error
}

// StreamErrorMsg reports a failing read on the open input, such as an
// unplugged device.
type StreamErrorMsg struct {
	Err error
}

// ConfigReloadedMsg carries a config re-read from disk.
type ConfigReloadedMsg struct {
	Config *config.Config
}

type copiedMsg struct {
	Text string
}

type themeSavedMsg struct{}

type errorTimeoutMsg struct{}

type audioLevelTickMsg struct{}

// DebugEntry is a structured debug log entry.
type DebugEntry struct {
	Time     string // e.g. "11:27:53"
	Category string // e.g. "device", "record", "hotkey"
	Message  string // the log message
}

// DebugLogMsg carries a structured debug log entry into the TUI.
type DebugLogMsg struct {
	Entry DebugEntry
}

const maxDebugLines = 50

// Model is the Bubble Tea model for the soundtap TUI.
type Model struct {
	State         State
	Devices       []sound.Device
	Cursor        int
	Active        int // device index of the open session, -1 when idle
	LastRecording string
	LastError     string
	Notice        string
	Config        *config.Config
	ConfigPath    string
	Stream        Switcher
	Lister        DeviceLister
	Recorder      Capturer
	Chime         *chime.Player
	HotkeyName    string
	Logger        *log.Logger
	DebugMode     bool
	DebugEntries  []DebugEntry
	AudioLevel    float64
	ThemeName     string
	loaded        bool
}

// NewModel creates a new TUI model. The active device is taken from the
// stream, so callers may open a starting device before the program runs.
func NewModel(cfg *config.Config, s Switcher, l DeviceLister, rec Capturer, c *chime.Player, logger *log.Logger, debug bool) Model {
	RegisterCustomThemes(cfg.CustomThemes)
	theme := LoadTheme(cfg.Theme)
	applyTheme(theme)

	m := Model{
		State:      StateIdle,
		Active:     -1,
		Config:     cfg,
		Stream:     s,
		Lister:     l,
		Recorder:   rec,
		Chime:      c,
		HotkeyName: cfg.Hotkey.Key,
		Logger:     logger,
		DebugMode:  debug,
		ThemeName:  strings.ToLower(theme.Name),
	}
	if s != nil {
		if dev, ok := s.Device(); ok {
			m.Active = dev
			m.State = StateLive
		}
	}
	return m
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadDevicesCmd(), audioLevelTickCmd())
}

// Update handles messages and transitions state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case DevicesLoadedMsg:
		if msg.Err != nil {
			var nf *sound.DeviceNotFoundError
			if errors.As(msg.Err, &nf) {
				m.Devices = nil
			}
			return m.fail(msg.Err)
		}
		m.Devices = msg.Devices
		if !m.loaded {
			if pos := m.position(m.Active); pos >= 0 {
				m.Cursor = pos
			}
			m.loaded = true
		}
		m.clampCursor()
		m.Logger.Printf("device list: %d inputs", len(m.Devices))
		return m, nil

	case DeviceChangedMsg:
		if msg.Err != nil {
			m.Active = -1
			return m.fail(msg.Err)
		}
		m.Active = msg.Index
		if m.State != StateRecording {
			m.State = StateLive
		}
		m.LastError = ""
		m.Logger.Printf("device switched to %d", msg.Index)
		if m.Chime != nil {
			m.Chime.PlaySwitch()
		}
		return m, nil

	case NextDeviceMsg:
		return m.nextDevice()

	case RecordingStartedMsg:
		m.State = StateRecording
		m.LastError = ""
		m.Logger.Printf("recording started")
		if m.Chime != nil {
			m.Chime.PlayStart()
		}
		return m, nil

	case RecordingSavedMsg:
		m.State = m.baseState()
		m.LastRecording = msg.Path
		m.Notice = ""
		if msg.Truncated {
			m.Notice = "max duration reached"
		}
		m.Logger.Printf("recording saved: %s (truncated=%v)", msg.Path, msg.Truncated)
		if m.Chime != nil {
			m.Chime.PlayStop()
		}
		return m, nil

	case ErrorMsg:
		return m.fail(msg.Err)

	case StreamErrorMsg:
		m.Logger.Printf("stream read error: %v", msg.Err)
		updated, cmd := m.fail(fmt.Errorf("input stream: %w", msg.Err))
		// The device may be gone; refresh the list.
		return updated, tea.Batch(cmd, m.loadDevicesCmd())

	case ConfigReloadedMsg:
		m.Config = msg.Config
		m.HotkeyName = msg.Config.Hotkey.Key
		RegisterCustomThemes(msg.Config.CustomThemes)
		theme := LoadTheme(msg.Config.Theme)
		applyTheme(theme)
		m.ThemeName = strings.ToLower(theme.Name)
		if m.Chime != nil {
			m.Chime.SetEnabled(msg.Config.Chime.Enabled)
		}
		if m.Recorder != nil {
			m.Recorder.SetLimits(msg.Config.Record.TargetSampleRate, msg.Config.Record.MaxDurationSec)
		}
		m.Logger.Printf("config applied: theme=%s", m.ThemeName)
		return m, nil

	case copiedMsg:
		m.Notice = "copied: " + msg.Text
		return m, nil

	case themeSavedMsg:
		return m, nil

	case audioLevelTickMsg:
		if m.Recorder == nil {
			m.AudioLevel = 0
			return m, audioLevelTickCmd()
		}
		m.AudioLevel = m.Recorder.AudioLevel()
		// The recorder disarms itself at max duration; collect the take.
		if m.State == StateRecording && !m.Recorder.IsRecording() {
			m.State = m.sessionState()
			return m, tea.Batch(m.stopRecordingCmd(), audioLevelTickCmd())
		}
		return m, audioLevelTickCmd()

	case errorTimeoutMsg:
		if m.State == StateError {
			m.State = m.baseState()
		}
		m.LastError = ""

	case DebugLogMsg:
		m.DebugEntries = append(m.DebugEntries, msg.Entry)
		if len(m.DebugEntries) > maxDebugLines {
			m.DebugEntries = m.DebugEntries[len(m.DebugEntries)-maxDebugLines:]
		}
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < len(m.Devices)-1 {
			m.Cursor++
		}
	case "enter":
		if m.Cursor < len(m.Devices) {
			return m, m.changeDeviceCmd(m.Devices[m.Cursor].Index)
		}
	case "n":
		return m.nextDevice()
	case "r":
		return m.toggleRecording()
	case "t":
		theme := NextTheme(m.ThemeName)
		applyTheme(theme)
		m.ThemeName = strings.ToLower(theme.Name)
		m.Config.Theme = m.ThemeName
		return m, m.saveThemeCmd()
	case "y":
		if m.Cursor < len(m.Devices) {
			return m, m.copyCmd(m.Devices[m.Cursor].Name)
		}
	case "Y":
		if m.LastRecording != "" {
			return m, m.copyCmd(m.LastRecording)
		}
	case "R":
		return m, m.loadDevicesCmd()
	}
	return m, nil
}

func (m Model) nextDevice() (tea.Model, tea.Cmd) {
	if len(m.Devices) == 0 {
		return m, nil
	}
	next := 0
	if pos := m.position(m.Active); pos >= 0 {
		next = (pos + 1) % len(m.Devices)
	}
	m.Cursor = next
	return m, m.changeDeviceCmd(m.Devices[next].Index)
}

func (m Model) toggleRecording() (tea.Model, tea.Cmd) {
	if m.Recorder == nil {
		return m, nil
	}
	if m.Recorder.IsRecording() {
		m.State = m.sessionState()
		return m, m.stopRecordingCmd()
	}
	if m.Active < 0 {
		return m.fail(fmt.Errorf("select a device before recording"))
	}
	return m, m.startRecordingCmd()
}

func (m Model) fail(err error) (tea.Model, tea.Cmd) {
	m.State = StateError
	m.LastError = err.Error()
	m.Logger.Printf("error: %v", err)
	return m, scheduleErrorTimeout()
}

// baseState is the state to fall back to once a transient state ends.
func (m Model) baseState() State {
	if m.Recorder != nil && m.Recorder.IsRecording() {
		return StateRecording
	}
	return m.sessionState()
}

// sessionState ignores recording and reports whether a device is open.
func (m Model) sessionState() State {
	if m.Active >= 0 {
		return StateLive
	}
	return StateIdle
}

// position returns where device index dev sits in the list, or -1.
func (m Model) position(dev int) int {
	if dev < 0 {
		return -1
	}
	for i, d := range m.Devices {
		if d.Index == dev {
			return i
		}
	}
	return -1
}

func (m *Model) clampCursor() {
	if m.Cursor >= len(m.Devices) {
		m.Cursor = len(m.Devices) - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
}

func (m Model) loadDevicesCmd() tea.Cmd {
	l := m.Lister
	return func() tea.Msg {
		if l == nil {
			return DevicesLoadedMsg{}
		}
		devs, err := l.InputDevices()
		return DevicesLoadedMsg{Devices: devs, Err: err}
	}
}

func (m Model) changeDeviceCmd(dev int) tea.Cmd {
	s := m.Stream
	logger := m.Logger
	return func() tea.Msg {
		logger.Printf("device change requested: %d", dev)
		if err := s.ChangeDevice(dev); err != nil {
			return DeviceChangedMsg{Index: dev, Err: err}
		}
		return DeviceChangedMsg{Index: dev}
	}
}

func (m Model) startRecordingCmd() tea.Cmd {
	rec := m.Recorder
	return func() tea.Msg {
		if err := rec.Start(); err != nil {
			return ErrorMsg{Err: err}
		}
		return RecordingStartedMsg{}
	}
}

func (m Model) stopRecordingCmd() tea.Cmd {
	rec := m.Recorder
	dir := m.Config.RecordDir()
	return func() tea.Msg {
		data, truncated, err := rec.Stop()
		if err != nil {
			return ErrorMsg{Err: fmt.Errorf("record: %w", err)}
		}
		path, err := recorder.SaveWAV(dir, data, time.Now())
		if err != nil {
			return ErrorMsg{Err: fmt.Errorf("save recording: %w", err)}
		}
		return RecordingSavedMsg{Path: path, Truncated: truncated}
	}
}

func (m Model) copyCmd(text string) tea.Cmd {
	logger := m.Logger
	return func() tea.Msg {
		if err := clipboard.Copy(text); err != nil {
			logger.Printf("clipboard error: %v", err)
			return ErrorMsg{Err: fmt.Errorf("copy: %w", err)}
		}
		return copiedMsg{Text: text}
	}
}

func (m Model) saveThemeCmd() tea.Cmd {
	if m.ConfigPath == "" {
		return nil
	}
	path := m.ConfigPath
	cfg := *m.Config
	return func() tea.Msg {
		if err := config.Save(path, &cfg); err != nil {
			return ErrorMsg{Err: fmt.Errorf("save theme: %w", err)}
		}
		return themeSavedMsg{}
	}
}

func scheduleErrorTimeout() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return errorTimeoutMsg{}
	})
}

const audioLevelTickInterval = 100 * time.Millisecond

func audioLevelTickCmd() tea.Cmd {
	return tea.Tick(audioLevelTickInterval, func(time.Time) tea.Msg {
		return audioLevelTickMsg{}
	})
}
