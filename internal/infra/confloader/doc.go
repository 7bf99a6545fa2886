// Package confloader provides configuration loading mechanism.
//
// This package implements a configuration loader that supports multiple
// sources using koanf as the underlying library.
//
// Features:
//
//   - Multiple Sources: YAML files, environment variables, maps
//   - Watch Support: Callbacks when the config file changes on disk
//   - Type Safety: Unmarshaling into typed structs
//
// Priority (highest to lowest):
//
//  1. Maps loaded last (command-line flags)
//  2. Environment variables
//  3. Configuration file
//  4. Values already present in the target struct
//
// Environment variables separate sections with a double underscore, so
// keys containing underscores survive: SCRIBBLER_STORAGE__DATA_DIR maps
// to storage.data_dir.
//
// @design DS-0502
// @adr AD-0501
package confloader
