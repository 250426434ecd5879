//go:build darwin

package main

import (
	"log"

	"golang.design/x/mainthread"

	"github.com/Danondso/soundtap/internal/config"
	"github.com/Danondso/soundtap/internal/hotkey"
)

// start runs fn off the main thread; the Carbon hotkey API needs the main
// thread's event loop.
func start(fn func()) { mainthread.Init(fn) }

func createListener(cfg *config.Config, dbg *log.Logger) (hotkey.Listener, error) {
	mods, key, keyName, err := hotkey.ParseHotkeyCombo(cfg.Hotkey.Key)
	if err != nil {
		return nil, err
	}
	dbg.Printf("hotkey: %s", keyName)

	return hotkey.NewListener(mods, key, keyName), nil
}
