// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

//go:build windows

package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/windows"
)

// dirLock holds an exclusive LockFileEx region on a lock file inside
// the store directory.
type dirLock struct {
	file *os.File
}

// acquireDirLock takes a non-blocking exclusive lock on
// <dir>/store.lock.
func acquireDirLock(dir string) (*dirLock, error) {
	path := filepath.Join(dir, "store.lock")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o640)
	if err != nil {
		return nil, fmt.Errorf("opening lock file %s: %w", path, err)
	}

	overlapped := new(windows.Overlapped)
	err = windows.LockFileEx(windows.Handle(file.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0, 1, 0, overlapped)
	if err != nil {
		_ = file.Close()
		if errors.Is(err, windows.ERROR_LOCK_VIOLATION) {
			return nil, fmt.Errorf("%w: %s", ErrStoreLocked, path)
		}
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	return &dirLock{file: file}, nil
}

// release unlocks and closes the lock file. Safe to call once.
func (l *dirLock) release() error {
	overlapped := new(windows.Overlapped)
	if err := windows.UnlockFileEx(windows.Handle(l.file.Fd()), 0, 1, 0, overlapped); err != nil {
		_ = l.file.Close()
		return fmt.Errorf("unlocking store: %w", err)
	}
	return l.file.Close()
}
