// Package confloader loads layered configuration with koanf.
//
// Sources, highest priority first:
//
//  1. Overrides (command-line flags)
//  2. Environment variables (RTCELL_ prefix)
//  3. YAML configuration file
//  4. Defaults already present in the target struct
//
// A Watcher built on fsnotify reports writes to the configuration file so
// long-running commands can pick up changes such as log.level.
package confloader
