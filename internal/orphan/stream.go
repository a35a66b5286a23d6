// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orphan

import (
	"context"
	"fmt"
	"time"
)

// StreamEventType distinguishes a suggestion record from a periodic
// progress record in the repair-preview stream.
type StreamEventType string

const (
	StreamItem     StreamEventType = "item"
	StreamProgress StreamEventType = "progress"
)

// StreamEvent is one record emitted by StreamSuggestions.
type StreamEvent struct {
	Type       StreamEventType
	Suggestion *Suggestion // set when Type == StreamItem
	Scanned    int         // orphans ranked so far
	Total      int         // total orphans to rank
}

// progressInterval bounds how often a StreamProgress record is
// emitted regardless of item rate, so a slow-ranking batch still
// shows liveness.
const progressInterval = 500 * time.Millisecond

// StreamSuggestions scans root for orphans, ranks each against the
// full media inventory, and calls emit once per suggestion clearing
// floor plus periodic progress records. Emit returning an error (or
// ctx being canceled) stops the stream early, matching spec.md §4.10's
// "consumers may cancel".
func (s *Scanner) StreamSuggestions(ctx context.Context, floor float64, emit func(StreamEvent) error) error {
	entries, err := s.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan for orphans: %w", err)
	}

	candidates, err := s.Media.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list media inventory: %w", err)
	}

	lastProgress := time.Now()
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		if sug, ok := Rank(entry, candidates, floor); ok {
			if err := emit(StreamEvent{Type: StreamItem, Suggestion: &sug}); err != nil {
				return err
			}
		}

		if time.Since(lastProgress) >= progressInterval || i == len(entries)-1 {
			if err := emit(StreamEvent{Type: StreamProgress, Scanned: i + 1, Total: len(entries)}); err != nil {
				return err
			}
			lastProgress = time.Now()
		}
	}
	return nil
}
