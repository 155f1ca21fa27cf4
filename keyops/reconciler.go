/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package keyops

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// AppliedDirective is the last cluster directive that changed a flag.
type AppliedDirective struct {
	Verb      string
	Timestamp int64
	Value     string
	AppliedAt time.Time
}

// Reconciler applies SET and CLEAR directives from other cluster nodes to
// the flag files in RpcDir. The modification time of a flag file is its
// version; a directive that is not strictly newer is dropped.
type Reconciler struct {
	RpcDir string
	// LegacyClearCheck compares CLEAR against the mtime of RpcDir rather
	// than that of the flag file, as older deployments did.
	LegacyClearCheck bool
	Logger           *log.Logger
	applied          cmap.ConcurrentMap[string, AppliedDirective]
}

func NewReconciler(rpcdir string, legacyclear bool) *Reconciler {
	return &Reconciler{
		RpcDir:           rpcdir,
		LegacyClearCheck: legacyclear,
		Logger:           log.Default(),
		applied:          cmap.New[AppliedDirective](),
	}
}

func (r *Reconciler) logger() *log.Logger {
	if r.Logger == nil {
		return log.Default()
	}
	return r.Logger
}

// Apply processes one raw cluster message. Errors are logged together with
// the message and otherwise ignored; a bad message must never stop the
// consumer.
func (r *Reconciler) Apply(body string) ReconcileResult {
	if Globals.Debug {
		r.logger().Printf("Reconciler: processing cluster message %q", body)
	}

	res, err := r.apply(body)
	if err != nil {
		r.logger().Printf("Error: failed to process cluster message %q: %v", body, err)
		res = ReconcileError
	}
	ClusterMessagesTotal.WithLabelValues(res.String()).Inc()
	return res
}

func (r *Reconciler) apply(body string) (ReconcileResult, error) {
	cm, err := ParseClusterMessage(body)
	if err != nil {
		return ReconcileError, err
	}
	path := filepath.Join(r.RpcDir, cm.Flag)

	switch cm.Verb {
	case VerbSet:
		return r.set(path, cm)
	case VerbClear:
		return r.clear(path, cm)
	}
	return ReconcileError, fmt.Errorf("unknown command %d", cm.Verb)
}

func (r *Reconciler) set(path string, cm ClusterMessage) (ReconcileResult, error) {
	fi, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// A flag that does not exist is infinitely old.
	case err != nil:
		return ReconcileError, err
	case !fi.Mode().IsRegular():
		return ReconcileError, fmt.Errorf("flag %s is not a regular file", path)
	case fi.ModTime().Unix() >= cm.Timestamp:
		if Globals.Debug {
			r.logger().Printf("Reconciler: ignoring stale SET of %s (%d, flag is from %d)",
				cm.Flag, cm.Timestamp, fi.ModTime().Unix())
		}
		return ReconcileStale, nil
	}

	// The temp file and rename touch the directory. In legacy mode its
	// mtime is what CLEAR compares against, so it may only move when a
	// flag is created.
	var dirmtime time.Time
	if r.LegacyClearCheck && err == nil {
		if di, derr := os.Stat(r.RpcDir); derr == nil {
			dirmtime = di.ModTime()
		}
	}

	if err := writeFlagFile(path, []byte(*cm.Value), time.Unix(cm.Timestamp, 0)); err != nil {
		return ReconcileError, err
	}
	if !dirmtime.IsZero() {
		if err := os.Chtimes(r.RpcDir, dirmtime, dirmtime); err != nil {
			r.logger().Printf("Reconciler: could not restore mtime of %s: %v", r.RpcDir, err)
		}
	}
	r.record(cm)
	if Globals.Debug {
		r.logger().Printf("Reconciler: set RPC flag %s to %q", cm.Flag, *cm.Value)
	}
	return ReconcileApplied, nil
}

func (r *Reconciler) clear(path string, cm ClusterMessage) (ReconcileResult, error) {
	var version time.Time

	if r.LegacyClearCheck {
		fi, err := os.Stat(r.RpcDir)
		if err != nil {
			return ReconcileError, err
		}
		version = fi.ModTime()
	} else {
		fi, err := os.Stat(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			if Globals.Debug {
				r.logger().Printf("Reconciler: RPC flag %s already cleared", cm.Flag)
			}
			return ReconcileNoop, nil
		case err != nil:
			return ReconcileError, err
		case !fi.Mode().IsRegular():
			return ReconcileError, fmt.Errorf("flag %s is not a regular file", path)
		}
		version = fi.ModTime()
	}

	if version.Unix() >= cm.Timestamp {
		if Globals.Debug {
			r.logger().Printf("Reconciler: ignoring stale CLEAR of %s (%d, flag is from %d)",
				cm.Flag, cm.Timestamp, version.Unix())
		}
		return ReconcileStale, nil
	}

	if err := os.Remove(path); err != nil {
		return ReconcileError, err
	}
	r.record(cm)
	if Globals.Debug {
		r.logger().Printf("Reconciler: removed RPC flag %s", cm.Flag)
	}
	return ReconcileApplied, nil
}

func (r *Reconciler) record(cm ClusterMessage) {
	ad := AppliedDirective{
		Verb:      ClusterVerbToString[cm.Verb],
		Timestamp: cm.Timestamp,
		AppliedAt: time.Now(),
	}
	if cm.Value != nil {
		ad.Value = *cm.Value
	}
	r.applied.Set(cm.Flag, ad)
}

// Applied returns a snapshot of the last directive applied per flag.
func (r *Reconciler) Applied() map[string]AppliedDirective {
	return r.applied.Items()
}

// writeFlagFile replaces path with data via a temporary file in the same
// directory and then stamps it with mtime, so that the file carries the
// version of the directive that wrote it.
func writeFlagFile(path string, data []byte, mtime time.Time) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".keyops-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		return fmt.Errorf("chtimes: %w", err)
	}
	return nil
}
