package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/Danondso/soundtap/internal/config"
	"github.com/Danondso/soundtap/internal/recorder"
	"github.com/Danondso/soundtap/internal/sound"
)

var errNoDevice = errors.New("no device given and no default input device")

// defaultInputter is implemented by backends that know the system default.
type defaultInputter interface {
	DefaultInputDevice() (int, bool)
}

// resolveDevice maps a --device value to an input device. Integers are
// device indices; anything else is matched by name. An empty value picks
// the backend's default input.
func resolveDevice(b sound.Backend, query string) (sound.Device, error) {
	devices, err := sound.InputDevices(b)
	if err != nil {
		return sound.Device{}, err
	}

	if query == "" {
		if di, ok := b.(defaultInputter); ok {
			if idx, ok := di.DefaultInputDevice(); ok {
				query = strconv.Itoa(idx)
			}
		}
		if query == "" {
			return sound.Device{}, errNoDevice
		}
	}

	if idx, err := strconv.Atoi(query); err == nil {
		for _, d := range devices {
			if d.Index == idx {
				return d, nil
			}
		}
		return sound.Device{}, fmt.Errorf("%w: index %d", sound.ErrNoSuchDevice, idx)
	}
	return sound.FindInputDevice(b, query)
}

// setup loads config, initializes PortAudio and builds the stream config.
// The returned cleanup terminates PortAudio.
func setup() (*config.Config, sound.PortAudio, sound.StreamConfig, func(), error) {
	backend := sound.PortAudio{}
	cfg, err := loadConfig(config.DefaultPath())
	if err != nil {
		return nil, backend, sound.StreamConfig{}, nil, fmt.Errorf("load config: %w", err)
	}
	if err := sound.InitPortAudio(); err != nil {
		return nil, backend, sound.StreamConfig{}, nil, fmt.Errorf("portaudio init: %w", err)
	}
	cleanup := func() { _ = sound.TerminatePortAudio() }

	streamCfg, err := streamConfig(backend, cfg)
	if err != nil {
		cleanup()
		return nil, backend, sound.StreamConfig{}, nil, fmt.Errorf("stream config: %w", err)
	}
	return cfg, backend, streamCfg, cleanup, nil
}

func runDevices(args []string) int {
	fs := flag.NewFlagSet("devices", flag.ExitOnError)
	hostAPI := fs.Int("host-api", -2, "only list devices of this host API index (-1 for all; default from config)")
	_ = fs.Parse(args)

	cfg, err := loadConfig(config.DefaultPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}
	if err := sound.InitPortAudio(); err != nil {
		fmt.Fprintf(os.Stderr, "portaudio init: %v\n", err)
		return 1
	}
	defer func() { _ = sound.TerminatePortAudio() }()

	backend := sound.PortAudio{}
	if *hostAPI == -2 {
		*hostAPI = cfg.Audio.HostAPI
	}
	if err := printDevices(os.Stdout, backend, *hostAPI); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if name := backend.DefaultInputName(); name != "" {
		fmt.Printf("\nDefault input: %s\n", name)
	}
	return 0
}

// printDevices writes the device registry (name -> host API) as a table,
// with the index, channel count and rate of the device each name resolves to.
func printDevices(w io.Writer, b sound.Backend, hostAPI int) error {
	var (
		reg sound.Registry
		err error
	)
	if hostAPI >= 0 {
		reg, err = sound.QueryHostAPIDevices(b, hostAPI)
	} else {
		reg, err = sound.QueryDevices(b)
	}
	if err != nil {
		return err
	}
	devices, err := sound.InputDevices(b)
	if err != nil {
		return err
	}
	byName := make(map[string]sound.Device, len(devices))
	for _, d := range devices {
		if api, ok := reg[d.Name]; ok && api == d.HostAPI {
			byName[d.Name] = d
		}
	}
	apiNames := map[int]string{}
	if hosts, err := b.HostAPIs(); err == nil {
		for _, h := range hosts {
			apiNames[h.Index] = h.Name
		}
	}

	names := make([]string, 0, len(reg))
	for name := range reg {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "%5s  %-40s %-16s %3s %8s\n", "INDEX", "NAME", "HOST API", "IN", "RATE")
	for _, name := range names {
		d := byName[name]
		api := apiNames[reg[name]]
		if api == "" {
			api = strconv.Itoa(reg[name])
		}
		fmt.Fprintf(w, "%5d  %-40s %-16s %3d %8.0f\n", d.Index, name, api, d.MaxInputChannels, d.DefaultSampleRate)
	}
	return nil
}

// captureFlags are shared by stream and record.
type captureFlags struct {
	device   string
	duration time.Duration
}

func (c *captureFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.device, "device", "", "input device name or index (default: config, then system default)")
	fs.DurationVar(&c.duration, "duration", 0, "stop after this long (0 runs until interrupted)")
}

// captureContext is cancelled on SIGINT/SIGTERM or after d when d > 0.
func captureContext(d time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if d <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	return ctx, func() {
		cancel()
		stop()
	}
}

// openCapture resolves the device and opens a live PCMStream on it.
func openCapture(b sound.Backend, cfg *config.Config, streamCfg sound.StreamConfig, device string) (*sound.PCMStream, sound.Device, error) {
	if device == "" {
		device = cfg.Audio.Device
	}
	dev, err := resolveDevice(b, device)
	if err != nil {
		return nil, sound.Device{}, err
	}
	stream := sound.NewPCMStream(b, streamCfg)
	if err := stream.ChangeDevice(dev.Index); err != nil {
		return nil, sound.Device{}, err
	}
	return stream, dev, nil
}

// takeLength decodes an encoded take and returns its playing time.
func takeLength(data []byte) (time.Duration, error) {
	samples, rate, err := recorder.DecodeWAV(data)
	if err != nil {
		return 0, err
	}
	if rate <= 0 {
		return 0, fmt.Errorf("invalid sample rate %d", rate)
	}
	return time.Duration(len(samples)) * time.Second / time.Duration(rate), nil
}

// cancelWriter cancels the capture when the downstream reader goes away.
type cancelWriter struct {
	w      io.Writer
	cancel context.CancelFunc
}

func (c cancelWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	if err != nil {
		c.cancel()
	}
	return n, err
}

func runStream(args []string) int {
	fs := flag.NewFlagSet("stream", flag.ExitOnError)
	var cf captureFlags
	cf.register(fs)
	_ = fs.Parse(args)

	// A closed stdout must surface as EPIPE from Write, not kill the
	// process before the stream and PortAudio are released.
	signal.Ignore(syscall.SIGPIPE)

	cfg, backend, streamCfg, cleanup, err := setup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cleanup()

	stream, dev, err := openCapture(backend, cfg, streamCfg, cf.device)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer func() { _ = stream.Close() }()
	fmt.Fprintf(os.Stderr, "streaming %s: %.0f Hz, %s x%d, %d frames/block\n",
		dev.Name, streamCfg.SampleRate, streamCfg.SampleFormat, streamCfg.Channels, stream.Frames())

	ctx, cancel := captureContext(cf.duration)
	defer cancel()

	rec := recorder.New(stream, streamCfg, cfg.Record.TargetSampleRate, cfg.Record.MaxDurationSec)
	rec.SetPassthrough(cancelWriter{w: os.Stdout, cancel: cancel})
	rec.OnError = func(err error) {
		fmt.Fprintf(os.Stderr, "stream: %v\n", err)
	}
	_ = rec.Run(ctx)
	return 0
}

func runRecord(args []string) int {
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	var cf captureFlags
	cf.register(fs)
	out := fs.String("out", "", "output WAV path (default: timestamped file in the record directory)")
	_ = fs.Parse(args)

	cfg, backend, streamCfg, cleanup, err := setup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cleanup()

	stream, dev, err := openCapture(backend, cfg, streamCfg, cf.device)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer func() { _ = stream.Close() }()

	ctx, cancel := captureContext(cf.duration)
	defer cancel()

	rec := recorder.New(stream, streamCfg, cfg.Record.TargetSampleRate, cfg.Record.MaxDurationSec)
	rec.OnError = func(err error) {
		fmt.Fprintf(os.Stderr, "record: %v\n", err)
	}
	if err := rec.Start(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Fprintf(os.Stderr, "recording from %s (ctrl+c to stop)\n", dev.Name)
	_ = rec.Run(ctx)

	data, truncated, err := rec.Stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "record: %v\n", err)
		return 1
	}
	if truncated {
		fmt.Fprintf(os.Stderr, "max duration of %ds reached\n", cfg.Record.MaxDurationSec)
	}
	if d, err := takeLength(data); err == nil {
		fmt.Fprintf(os.Stderr, "captured %.1fs\n", d.Seconds())
	}

	path := *out
	if path == "" {
		path, err = recorder.SaveWAV(cfg.RecordDir(), data, time.Now())
	} else {
		err = os.WriteFile(path, data, 0o644) //nolint:gosec // recordings are user files
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "save: %v\n", err)
		return 1
	}
	fmt.Println(path)
	return 0
}
