/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package keyops

type KeyVerb uint8

const (
	VerbAddKey KeyVerb = iota + 1
	VerbDelKey
)

var KeyVerbToString = map[KeyVerb]string{
	VerbAddKey: "ADDKEY",
	VerbDelKey: "DELKEY",
}

type ClusterVerb uint8

const (
	VerbSet ClusterVerb = iota + 1
	VerbClear
)

var ClusterVerbToString = map[ClusterVerb]string{
	VerbSet:   "SET",
	VerbClear: "CLEAR",
}

var StringToClusterVerb = map[string]ClusterVerb{
	"SET":   VerbSet,
	"CLEAR": VerbClear,
}

// PublishStatus is the outcome of a single confirmed publish. The zero value
// is success, so Code() maps directly onto the 0 / nonzero convention that
// the RPC layer expects.
type PublishStatus uint8

const (
	PublishOK           PublishStatus = iota
	PublishRejected                   // nacked, or returned as unroutable
	PublishChannelError               // channel level (soft) AMQP error
	PublishBrokerError                // connection level AMQP error, or no session
	PublishFailed                     // anything else
)

var PublishStatusToString = map[PublishStatus]string{
	PublishOK:           "ok",
	PublishRejected:     "rejected",
	PublishChannelError: "channel-error",
	PublishBrokerError:  "broker-error",
	PublishFailed:       "failed",
}

func (ps PublishStatus) String() string {
	if s, ok := PublishStatusToString[ps]; ok {
		return s
	}
	return "unknown"
}

func (ps PublishStatus) Code() int {
	if ps == PublishOK {
		return 0
	}
	return 1
}

type ConsumerState uint8

const (
	ConsumerNotStarted ConsumerState = iota
	ConsumerInactive                 // clustering not configured
	ConsumerCatchingUp
	ConsumerListening
	ConsumerStopped
)

var ConsumerStateToString = map[ConsumerState]string{
	ConsumerNotStarted: "not-started",
	ConsumerInactive:   "inactive",
	ConsumerCatchingUp: "catching-up",
	ConsumerListening:  "listening",
	ConsumerStopped:    "stopped",
}

func (cs ConsumerState) String() string {
	return ConsumerStateToString[cs]
}

type ReconcileResult uint8

const (
	ReconcileApplied ReconcileResult = iota + 1
	ReconcileStale
	ReconcileNoop
	ReconcileError
)

var ReconcileResultToString = map[ReconcileResult]string{
	ReconcileApplied: "applied",
	ReconcileStale:   "stale",
	ReconcileNoop:    "noop",
	ReconcileError:   "error",
}

func (rr ReconcileResult) String() string {
	return ReconcileResultToString[rr]
}
