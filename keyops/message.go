/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package keyops

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// KeyCommand is sent to the node-local work queue:
//
//	ADDKEY zone.tld
//	DELKEY zone.tld
type KeyCommand struct {
	Verb KeyVerb
	Zone string
}

func (kc KeyCommand) String() string {
	return KeyVerbToString[kc.Verb] + " " + kc.Zone
}

// ClusterMessage is broadcast to the other nodes of a cluster:
//
//	SET <unix-time> <flag> <value>
//	CLEAR <unix-time> <flag> <empty>
//
// Value is nil for CLEAR.
type ClusterMessage struct {
	Verb      ClusterVerb
	Timestamp int64
	Flag      string
	Value     *string
}

func NewSetMessage(ts int64, flag, value string) ClusterMessage {
	return ClusterMessage{Verb: VerbSet, Timestamp: ts, Flag: flag, Value: &value}
}

func NewClearMessage(ts int64, flag string) ClusterMessage {
	return ClusterMessage{Verb: VerbClear, Timestamp: ts, Flag: flag}
}

func (cm ClusterMessage) String() string {
	if cm.Verb == VerbSet {
		var value string
		if cm.Value != nil {
			value = *cm.Value
		}
		return fmt.Sprintf("SET %d %s %s", cm.Timestamp, cm.Flag, value)
	}
	return fmt.Sprintf("CLEAR %d %s ", cm.Timestamp, cm.Flag)
}

// ParseClusterMessage splits body into exactly four space separated fields.
// The split stops after the third space, so a SET value may contain spaces.
func ParseClusterMessage(body string) (ClusterMessage, error) {
	var cm ClusterMessage

	fields := strings.SplitN(body, " ", 4)
	if len(fields) != 4 {
		return cm, fmt.Errorf("malformed cluster message: expected 4 fields, got %d", len(fields))
	}

	verb, ok := StringToClusterVerb[fields[0]]
	if !ok {
		return cm, fmt.Errorf("unknown command %q", fields[0])
	}

	ts, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return cm, fmt.Errorf("bad timestamp %q: %w", fields[1], err)
	}

	if err := ValidFlagName(fields[2]); err != nil {
		return cm, err
	}

	cm = ClusterMessage{Verb: verb, Timestamp: ts, Flag: fields[2]}
	if verb == VerbSet {
		value := fields[3]
		cm.Value = &value
	}
	return cm, nil
}

// ValidFlagName accepts only names that stay inside the RPC directory and
// that survive the space separated wire format as a single field.
func ValidFlagName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("invalid flag name %q", name)
	case strings.ContainsRune(name, '/'), strings.ContainsRune(name, os.PathSeparator):
		return fmt.Errorf("invalid flag name %q: contains a path separator", name)
	case strings.IndexFunc(name, unicode.IsSpace) >= 0:
		return fmt.Errorf("invalid flag name %q: contains whitespace", name)
	}
	return nil
}
