// Package models defines domain entities for the anisync import service.
//
// The package contains two categories of types:
//
// 1. Source payload shapes, narrowed from provider responses at the boundary:
//   - [Work] : one tracked anime title from the watch-history source
//   - [User] : the acting user's identity from the source provider
//
// 2. Pipeline and persistence shapes:
//   - [ThemeSong] : one opening/ending/insert song extracted for a work
//   - [ThemeSet] : extracted theme songs grouped by type
//   - [ProgressState] : snapshot of a running import job for polling clients
//
// Provider responses are decoded into these shapes immediately upon receipt;
// nothing downstream of internal/services touches untyped payloads.
package models
