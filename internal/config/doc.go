// Package config provides user configuration management for lumen.
//
// This package manages a YAML configuration file holding the defaults the CLI
// uses when packing messages: the source identifier, the default target, the
// output format and the log level. Devices can be given nicknames so a target
// may be named instead of spelled out as a serial.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/lumen/config.yaml or $HOME/.config/lumen/config.yaml
//   - macOS: $HOME/.config/lumen/config.yaml
//   - Windows: %LOCALAPPDATA%\lumen\config.yaml
//
// # Usage Example
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg.SetDeviceNickname("d073d5001337", "kitchen")
//	serial, err := cfg.ResolveTarget("kitchen")
//
//	// Save changes atomically
//	if err := cfg.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// File operations are protected by a mutex to ensure atomic writes. A loaded
// Config is a plain value and is not safe for concurrent mutation.
package config
