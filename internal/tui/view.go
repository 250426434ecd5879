package tui

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// panelWidth is the outer width of the main panel. The border takes 2
// columns and the padding 4.
const (
	panelWidth         = 80
	panelWidthForStyle = panelWidth - 2 // passed to borderStyle.Width()
	panelContentWidth  = panelWidth - 6
)

// View renders the TUI.
func (m Model) View() string {
	var b strings.Builder

	titleText := "  SOUNDTAP  "
	barTotal := panelContentWidth - len(titleText)
	barLeft := barTotal / 2
	barRight := barTotal - barLeft
	title := strings.Repeat("▓", barLeft) + titleText + strings.Repeat("▓", barRight)
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("Status:  "))
	b.WriteString(m.renderBadge())
	if m.State == StateLive || m.State == StateRecording {
		b.WriteString(bodyStyle.Render("  "))
		b.WriteString(m.renderVisualizer())
	}
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("Input devices:"))
	b.WriteString("\n")
	b.WriteString(m.renderDevices())
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("Last recording:"))
	b.WriteString("\n")
	if m.LastRecording != "" {
		b.WriteString(accentStyle.Width(panelContentWidth).Render(m.LastRecording))
	} else {
		b.WriteString(bodyStyle.Render("(none yet)"))
	}
	if m.Notice != "" {
		b.WriteString("\n")
		b.WriteString(quitStyle.Render(m.Notice))
	}
	b.WriteString("\n\n")

	if m.HotkeyName != "" {
		keyName := strings.TrimPrefix(m.HotkeyName, "KEY_")
		b.WriteString(cursorStyle.Render(fmt.Sprintf("Hotkey: %s (next device)", keyName)))
		b.WriteString("\n")
	}
	b.WriteString(quitStyle.Render("enter switch · n next · r record · t theme · y/Y copy · R rescan · q quit"))

	if m.DebugMode || len(m.DebugEntries) > 0 {
		b.WriteString("\n\n")
		b.WriteString(m.renderDebugPanel())
	}

	return borderStyle.Width(panelWidthForStyle).Render(b.String())
}

const deviceListMaxRows = 8

func (m Model) renderDevices() string {
	if len(m.Devices) == 0 {
		return bodyStyle.Render("(no input devices)")
	}

	start := 0
	if m.Cursor >= deviceListMaxRows {
		start = m.Cursor - deviceListMaxRows + 1
	}
	end := min(start+deviceListMaxRows, len(m.Devices))

	var db strings.Builder
	for i := start; i < end; i++ {
		d := m.Devices[i]
		pointer := "  "
		if i == m.Cursor {
			pointer = "▸ "
		}
		marker := "○ "
		style := bodyStyle
		if d.Index == m.Active {
			marker = "● "
			style = accentStyle
		}
		name := d.Name
		if len(name) > panelContentWidth-24 {
			name = name[:panelContentWidth-27] + "..."
		}
		line := fmt.Sprintf("%s%3d  %s", marker, d.Index, name)
		db.WriteString(cursorStyle.Render(pointer))
		db.WriteString(style.Render(line))
		db.WriteString(quitStyle.Render(fmt.Sprintf("  (%d ch)", d.MaxInputChannels)))
		if i < end-1 {
			db.WriteString("\n")
		}
	}
	if len(m.Devices) > deviceListMaxRows {
		db.WriteString("\n")
		db.WriteString(quitStyle.Render(fmt.Sprintf("  %d of %d", m.Cursor+1, len(m.Devices))))
	}
	return db.String()
}

const debugPanelMaxLines = 5

// Debug table column widths. Row content must fit within panelContentWidth.
const (
	colTimeWidth     = 15
	colCategoryWidth = 10
	colSepWidth      = 3 // " │ "
	colMsgWidth      = panelContentWidth - colTimeWidth - colCategoryWidth - colSepWidth*2
)

func (m Model) renderDebugPanel() string {
	sep := debugSepStyle.Render(" │ ")
	rule := debugRuleStyle.Render(strings.Repeat("─", panelContentWidth))

	var db strings.Builder

	// Title + divider
	db.WriteString(debugTitleStyle.Render("Debug"))
	db.WriteString("\n")
	db.WriteString(rule)
	db.WriteString("\n")

	// Header row
	db.WriteString(
		debugHeaderStyle.Width(colTimeWidth).Render("TIME") +
			sep +
			debugHeaderStyle.Width(colCategoryWidth).Render("TYPE") +
			sep +
			debugHeaderStyle.Width(colMsgWidth).Render("MESSAGE"))
	db.WriteString("\n")
	db.WriteString(rule)

	// Data rows
	entries := m.DebugEntries
	if len(entries) > debugPanelMaxLines {
		entries = entries[len(entries)-debugPanelMaxLines:]
	}
	for _, entry := range entries {
		timeStr := entry.Time
		if len(timeStr) > colTimeWidth {
			timeStr = timeStr[:colTimeWidth]
		}

		cat := entry.Category
		if len(cat) > colCategoryWidth {
			cat = cat[:colCategoryWidth]
		}

		msg := entry.Message
		if len(msg) > colMsgWidth {
			msg = msg[:colMsgWidth-3] + "..."
		}

		db.WriteString("\n")
		db.WriteString(
			debugTimeStyle.Width(colTimeWidth).Render(timeStr) +
				sep +
				debugCategoryStyle.Width(colCategoryWidth).Render(cat) +
				sep +
				debugMsgStyle.Width(colMsgWidth).Render(msg))
	}

	return db.String()
}

const visualizerWidth = 20

func (m Model) renderVisualizer() string {
	scaled := math.Sqrt(m.AudioLevel)
	filled := int(math.Round(scaled * float64(visualizerWidth)))
	if filled > visualizerWidth {
		filled = visualizerWidth
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", visualizerWidth-filled)
	return visualizerLabelStyle.Render("Level  ") + visualizerStyle.Render(bar)
}

func (m Model) renderStatusBar() string {
	if m.Stream == nil {
		return quitStyle.Render("Input: none")
	}
	cfg := m.Stream.Config()
	input := "none"
	if pos := m.position(m.Active); pos >= 0 {
		input = m.Devices[pos].Name
	} else if m.Active >= 0 {
		input = fmt.Sprintf("#%d", m.Active)
	}
	return quitStyle.Render(fmt.Sprintf("Input: %s  Rate: %.0f Hz  Format: %s x%d  Block: %d frames",
		input, cfg.SampleRate, cfg.SampleFormat, cfg.Channels, m.Stream.Frames()))
}

func (m Model) renderBadge() string {
	switch m.State {
	case StateLive:
		return liveBadge.Render("● Live")
	case StateRecording:
		if m.Recorder == nil {
			return recordingBadge.Render("● Recording...")
		}
		d := m.Recorder.Elapsed().Truncate(time.Second)
		return recordingBadge.Render(fmt.Sprintf("● Recording %02d:%02d", int(d.Minutes()), int(d.Seconds())%60))
	case StateError:
		errText, _, _ := strings.Cut(m.LastError, "\n")
		if len(errText) > 50 {
			errText = errText[:50] + "..."
		}
		return errorBadge.Render(fmt.Sprintf("● Error: %s", errText))
	default:
		return idleBadge.Render("● Idle")
	}
}
