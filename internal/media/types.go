// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package media maintains the inventory of media files discovered under a
// library root: identity only, no content. Attributes (size, mtime,
// extension) are observed lazily during a directory walk; a file is
// invalidated from the inventory once its path no longer exists.
package media

import (
	"strings"
	"time"
)

// File is one entry in the media inventory. Key is RelPath, a
// canonical, POSIX-separated path relative to the library root with no
// leading or trailing slash.
type File struct {
	RelPath   string    `json:"relPath"`
	Filename  string    `json:"filename"`
	Ext       string    `json:"ext"`
	SizeBytes int64     `json:"sizeBytes"`
	ModTime   time.Time `json:"modTime"`
	ScanTime  time.Time `json:"scanTime"`
}

// Dir returns the slash-separated parent directory of the file, or ""
// for a file directly under the root.
func (f File) Dir() string {
	i := strings.LastIndexByte(f.RelPath, '/')
	if i < 0 {
		return ""
	}
	return f.RelPath[:i]
}

// ScanResult summarizes one walk of the library root.
type ScanResult struct {
	Started      time.Time
	Finished     time.Time
	TotalWalked  int
	Inserted     int
	Updated      int
	Removed      int
	Skipped      int
	ErrorCount   int
	LastError    string
}

// Event describes an inventory change, published on the bus so the
// artifact status cache and coverage aggregator can invalidate.
type Event struct {
	Type    EventType
	RelPath string
}

// EventType enumerates the kinds of inventory change.
type EventType string

const (
	EventAdded   EventType = "added"
	EventUpdated EventType = "updated"
	EventRemoved EventType = "removed"
)
