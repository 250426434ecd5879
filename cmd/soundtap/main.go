package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Danondso/soundtap/internal/chime"
	"github.com/Danondso/soundtap/internal/config"
	"github.com/Danondso/soundtap/internal/recorder"
	"github.com/Danondso/soundtap/internal/sound"
	"github.com/Danondso/soundtap/internal/tui"
)

func main() {
	start(run)
}

func run() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "devices":
			os.Exit(runDevices(os.Args[2:]))
		case "stream":
			os.Exit(runStream(os.Args[2:]))
		case "record":
			os.Exit(runRecord(os.Args[2:]))
		}
	}

	debug := flag.Bool("debug", false, "enable debug logging to stderr")
	flag.Usage = usage
	flag.Parse()

	var dbg *log.Logger
	if *debug {
		dbg = log.New(os.Stderr, "[DEBUG] ", log.Ltime|log.Lmicroseconds)
	} else {
		dbg = log.New(io.Discard, "", 0)
	}

	cfgPath := config.DefaultPath()
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Linux suppresses ALSA/JACK stderr noise during init.
	if err := sound.InitPortAudio(); err != nil {
		log.Fatalf("portaudio init: %v", err)
	}
	defer func() { _ = sound.TerminatePortAudio() }()
	dbg.Printf("portaudio initialized")

	backend := sound.PortAudio{}
	streamCfg, err := streamConfig(backend, cfg)
	if err != nil {
		log.Fatalf("stream config: %v", err)
	}
	stream := sound.NewPCMStream(backend, streamCfg)
	defer func() { _ = stream.Close() }()
	dbg.Printf("stream config: %+v frames=%d", streamCfg, stream.Frames())

	if cfg.Audio.Device != "" {
		dev, err := resolveDevice(backend, cfg.Audio.Device)
		if err == nil {
			err = stream.ChangeDevice(dev.Index)
		}
		if err != nil {
			log.Printf("WARNING: starting idle: %v", err)
		}
	}

	chimePlayer, err := chime.New(cfg.Chime.Switch, cfg.Chime.Start, cfg.Chime.Stop, cfg.Chime.Enabled, dbg)
	if err != nil {
		log.Fatalf("create chime player: %v", err)
	}

	rec := recorder.New(stream, streamCfg, cfg.Record.TargetSampleRate, cfg.Record.MaxDurationSec)

	lister := tui.DeviceListerFunc(func() ([]sound.Device, error) {
		return inputDevices(backend, cfg.Audio.HostAPI)
	})
	model := tui.NewModel(cfg, stream, lister, rec, chimePlayer, dbg, *debug)
	model.ConfigPath = cfgPath
	p := tea.NewProgram(model, tea.WithAltScreen())

	// When debug is enabled, redirect logger output into the TUI debug panel
	if *debug {
		dbg.SetOutput(tui.NewLogWriter(p))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec.OnError = func(err error) {
		p.Send(tui.StreamErrorMsg{Err: err})
	}
	go func() {
		_ = rec.Run(ctx)
	}()

	watcher := config.NewWatcher(cfgPath, 0, dbg)
	watcher.OnReload = func(c *config.Config) {
		p.Send(tui.ConfigReloadedMsg{Config: c})
	}
	watcher.OnError = func(err error) {
		p.Send(tui.ErrorMsg{Err: fmt.Errorf("config reload: %w", err)})
	}
	go func() {
		if err := watcher.Run(ctx); err != nil {
			dbg.Printf("config watcher disabled: %v", err)
		}
	}()

	if cfg.Hotkey.Key != "" {
		listener, err := createListener(cfg, dbg)
		if err != nil {
			log.Printf("WARNING: hotkey disabled: %v", err)
		} else {
			dbg.Printf("hotkey: %s", listener.KeyName())
			go func() {
				err := listener.Start(ctx, func() {
					dbg.Printf("hotkey press: %s", listener.KeyName())
					p.Send(tui.NextDeviceMsg{})
				})
				if err != nil && ctx.Err() == nil {
					dbg.Printf("hotkey listener error: %v", err)
				}
			}()
			defer listener.Stop()
		}
	}

	if _, err := p.Run(); err != nil {
		log.Fatalf("TUI error: %v", err)
	}
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: soundtap [--debug]\n")
	fmt.Fprintf(out, "       soundtap devices [--host-api N]\n")
	fmt.Fprintf(out, "       soundtap stream [--device name|index] [--duration d]\n")
	fmt.Fprintf(out, "       soundtap record [--device name|index] [--duration d] [--out path]\n\n")
	flag.PrintDefaults()
}

// loadConfig reads the config file and validates it.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// streamConfig merges the backend defaults with the [audio] section.
func streamConfig(b sound.Backend, cfg *config.Config) (sound.StreamConfig, error) {
	base, err := b.DefaultConfig()
	if err != nil {
		return sound.StreamConfig{}, err
	}
	return base.WithOverrides(cfg.StreamOverrides()), nil
}

// inputDevices lists input devices, restricted to one host API when
// hostAPI is non-negative.
func inputDevices(b sound.Backend, hostAPI int) ([]sound.Device, error) {
	devices, err := sound.InputDevices(b)
	if err != nil || hostAPI < 0 {
		return devices, err
	}
	out := devices[:0]
	for _, d := range devices {
		if d.HostAPI == hostAPI {
			out = append(out, d)
		}
	}
	return out, nil
}

