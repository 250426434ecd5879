//go:build !linux && !darwin

package config

const defaultHotkeyKey = ""
