// Package config handles configuration loading and defaults.
//
// Configuration is loaded from multiple sources in priority order:
// 1. Built-in defaults
// 2. User config file (~/.sheetplan/sheetplan.toml or OS-specific config directory)
// 3. Project config file (sheetplan.toml or .sheetplan.toml in the working directory)
// 4. Environment variables (SHEETPLAN_*)
// 5. CLI flags
//
// Each level overrides the previous one, so CLI flags take precedence.
//
// User-level config locations:
// - ~/.sheetplan/sheetplan.toml (preferred)
// - Windows: %APPDATA%\sheetplan\sheetplan.toml
// - macOS: ~/Library/Application Support/sheetplan/sheetplan.toml
// - Linux/BSD: $XDG_CONFIG_HOME/sheetplan/sheetplan.toml or ~/.config/sheetplan/sheetplan.toml
//
// A project file looks like:
//
//	plan_name = "Spring cleanup"
//	estimated_time = 45
//	tags = ["imported", "home"]
//	subtask_markers = ["-", "→", "*"]
//	output_format = "yaml"
//
//	[csv]
//	comma = ";"
//	encoding = "windows-1252"
//
//	[server]
//	listen_addr = ":8080"
//	api_key = "secret"
package config
