//go:build linux

package main

import (
	"log"

	"github.com/Danondso/soundtap/internal/config"
	"github.com/Danondso/soundtap/internal/hotkey"
)

func start(fn func()) { fn() }

func createListener(cfg *config.Config, dbg *log.Logger) (hotkey.Listener, error) {
	keyCode, err := hotkey.KeyCodeFromName(cfg.Hotkey.Key)
	if err != nil {
		return nil, err
	}
	dbg.Printf("hotkey: %s (code=%d)", cfg.Hotkey.Key, keyCode)

	dev, err := hotkey.FindKeyboard(cfg.Hotkey.Device)
	if err != nil {
		return nil, err
	}
	dbg.Printf("keyboard device: %s", dev.Path())

	return hotkey.NewListener(dev, keyCode, cfg.Hotkey.Key), nil
}
