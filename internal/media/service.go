// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"context"
	"errors"
	"sync"
)

// ErrScanRunning is returned by TriggerScan when a scan is already in
// progress.
var ErrScanRunning = errors.New("media scan already running")

// Publisher is the subset of the event bus the inventory needs, kept
// narrow so media does not import the bus package directly.
type Publisher interface {
	Publish(Event)
}

// Service is the inventory's public surface: trigger scans, read back
// the current file set.
type Service struct {
	store     *Store
	scanner   *Scanner
	publisher Publisher

	scanMu sync.Mutex
}

// NewService wires a Store, Scanner and optional event Publisher
// (nil is allowed, e.g. in tests) into a Service.
func NewService(store *Store, scanner *Scanner, publisher Publisher) *Service {
	return &Service{store: store, scanner: scanner, publisher: publisher}
}

// TriggerScan performs a synchronous walk of the library root,
// refusing to run two scans concurrently.
func (s *Service) TriggerScan(ctx context.Context) (*ScanResult, error) {
	if !s.scanMu.TryLock() {
		return nil, ErrScanRunning
	}
	defer s.scanMu.Unlock()

	result, events, err := s.scanner.Scan(ctx)
	if s.publisher != nil {
		for _, ev := range events {
			s.publisher.Publish(ev)
		}
	}
	return result, err
}

// Get returns one file by relative path.
func (s *Service) Get(ctx context.Context, relPath string) (*File, error) {
	return s.store.Get(ctx, relPath)
}

// ListDir returns the non-recursive contents of dir.
func (s *Service) ListDir(ctx context.Context, dir string) ([]File, error) {
	return s.store.ListDir(ctx, dir)
}

// ListUnderDir returns the recursive contents of dir: every file at
// any depth below it.
func (s *Service) ListUnderDir(ctx context.Context, dir string) ([]File, error) {
	return s.store.ListUnderDir(ctx, dir)
}

// ListAll returns the entire inventory.
func (s *Service) ListAll(ctx context.Context) ([]File, error) {
	return s.store.ListAll(ctx)
}

// Remove deletes one file from the inventory, e.g. when a downstream
// consumer observes the source file is gone between scans.
func (s *Service) Remove(ctx context.Context, relPath string) error {
	if err := s.store.Remove(ctx, relPath); err != nil {
		return err
	}
	if s.publisher != nil {
		s.publisher.Publish(Event{Type: EventRemoved, RelPath: relPath})
	}
	return nil
}
