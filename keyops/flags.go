/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package keyops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type FlagInfo struct {
	Name          string
	Value         string
	Modified      time.Time
	LastDirective *AppliedDirective `json:",omitempty"`
}

// ListFlags reports every flag file currently present in the RPC directory.
// Hidden files (including our own temporary files) are not flags.
func (r *Reconciler) ListFlags() ([]FlagInfo, error) {
	entries, err := os.ReadDir(r.RpcDir)
	if err != nil {
		return nil, fmt.Errorf("reading RPC directory %s: %w", r.RpcDir, err)
	}

	applied := r.Applied()
	var flags []FlagInfo
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue // removed since ReadDir
		}
		data, err := os.ReadFile(filepath.Join(r.RpcDir, e.Name()))
		if err != nil {
			continue
		}
		flag := FlagInfo{
			Name:     e.Name(),
			Value:    string(data),
			Modified: fi.ModTime(),
		}
		if ad, ok := applied[e.Name()]; ok {
			flag.LastDirective = &ad
		}
		flags = append(flags, flag)
	}
	return flags, nil
}
