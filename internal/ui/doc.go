// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for watch-history import:
//  1. [ConfirmView] : Review status filters and confirm the import
//  2. [ImportView] : Monitor real-time progress updates
//  3. [ResultView] : Display import counts and per-work failures
//  4. [WorkListView] : Browse imported works and their theme songs
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the ImportEngine, providing non-blocking status reporting during runs.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
