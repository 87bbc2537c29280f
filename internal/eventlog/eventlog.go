package eventlog

import (
	"go.uber.org/zap"

	"kvstore/internal/address"
)

// Logger emits the event set spec.md §6 lists, one zap.Infow call per
// event with a stable field shape so the harness contract the event
// names belong to can be parsed back out of the log stream.
type Logger struct {
	z *zap.SugaredLogger
}

// New wraps an existing *zap.Logger. Passing a nop logger (zap.NewNop())
// is valid and used by tests that don't want log output.
func New(z *zap.Logger) *Logger {
	return &Logger{z: z.Sugar()}
}

// NodeAdd logs observer having learned about added, per spec.md §4.1's
// merge rule.
func (l *Logger) NodeAdd(observer, added address.Address) {
	l.z.Infow("NodeAdd", "observer", observer.String(), "added", added.String())
}

// NodeRemove logs observer having suspected removed. Per spec.md §9
// open question 1, this fires on suspicion, not eviction.
func (l *Logger) NodeRemove(observer, removed address.Address) {
	l.z.Infow("NodeRemove", "observer", observer.String(), "removed", removed.String())
}

// CreateResult logs a CREATE outcome, either the replica-side result
// (isCoordinator=false) or the coordinator's quorum resolution
// (isCoordinator=true), per spec.md §6/§7.
func (l *Logger) CreateResult(observer address.Address, isCoordinator bool, transID uint32, key, value string, success bool) {
	name := "CreateFail"
	if success {
		name = "CreateSuccess"
	}
	l.z.Infow(name,
		"observer", observer.String(),
		"is_coordinator", isCoordinator,
		"trans_id", transID,
		"key", key,
		"value", value,
	)
}

// UpdateResult logs an UPDATE outcome, symmetric with CreateResult.
func (l *Logger) UpdateResult(observer address.Address, isCoordinator bool, transID uint32, key, value string, success bool) {
	name := "UpdateFail"
	if success {
		name = "UpdateSuccess"
	}
	l.z.Infow(name,
		"observer", observer.String(),
		"is_coordinator", isCoordinator,
		"trans_id", transID,
		"key", key,
		"value", value,
	)
}

// DeleteResult logs a DELETE outcome. DELETE carries no value, per
// spec.md §6's event list.
func (l *Logger) DeleteResult(observer address.Address, isCoordinator bool, transID uint32, key string, success bool) {
	name := "DeleteFail"
	if success {
		name = "DeleteSuccess"
	}
	l.z.Infow(name,
		"observer", observer.String(),
		"is_coordinator", isCoordinator,
		"trans_id", transID,
		"key", key,
	)
}

// ReadResult logs a READ outcome. value is omitted from the field set
// on failure, matching spec.md §6's "ReadSuccess|ReadFail(..., key [, value])".
func (l *Logger) ReadResult(observer address.Address, isCoordinator bool, transID uint32, key, value string, success bool) {
	if success {
		l.z.Infow("ReadSuccess",
			"observer", observer.String(),
			"is_coordinator", isCoordinator,
			"trans_id", transID,
			"key", key,
			"value", value,
		)
		return
	}
	l.z.Infow("ReadFail",
		"observer", observer.String(),
		"is_coordinator", isCoordinator,
		"trans_id", transID,
		"key", key,
	)
}

// Sync flushes any buffered log entries, matching zap.Logger.Sync's
// contract for use in a deferred shutdown call.
func (l *Logger) Sync() error {
	return l.z.Sync()
}
