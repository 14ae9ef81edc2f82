// Package classify decides whether a filesystem event warrants a rebuild.
package classify

import (
	"os"
	"time"

	"watchf/internal/watch"
)

// ModTimeFunc returns the modification time of path.
type ModTimeFunc func(path string) (time.Time, error)

// ModTime reads the modification time with os.Stat.
func ModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// ShouldRebuild reports whether ev is a qualifying change: some path of ev
// was modified after lastRebuild and after at least one recorded artifact.
//
// Removal events never qualify; editors commonly delete a file and
// recreate it on save, and the recreation arrives as its own event. Paths
// whose time cannot be read (for example because they vanished again) are
// skipped. With no recorded artifacts nothing qualifies.
func ShouldRebuild(ev watch.Event, artifacts map[string]time.Time, lastRebuild time.Time, modTime ModTimeFunc) bool {
	if ev.Kind == watch.KindRemove || len(artifacts) == 0 {
		return false
	}
	for _, path := range ev.Paths {
		mod, err := modTime(path)
		if err != nil {
			continue
		}
		if !mod.After(lastRebuild) {
			continue
		}
		for _, built := range artifacts {
			if mod.After(built) {
				return true
			}
		}
	}
	return false
}

// ChangedSince is the relaxed rule used after a failed build: any
// non-removal change after lastRebuild qualifies, whether or not an
// artifact was ever recorded.
func ChangedSince(ev watch.Event, lastRebuild time.Time, modTime ModTimeFunc) bool {
	if ev.Kind == watch.KindRemove {
		return false
	}
	for _, path := range ev.Paths {
		mod, err := modTime(path)
		if err != nil {
			continue
		}
		if mod.After(lastRebuild) {
			return true
		}
	}
	return false
}
