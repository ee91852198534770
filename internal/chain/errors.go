package chain

import (
	"errors"
)

// ModuleError is a dispatch failure with a stable code API clients can
// match on, e.g. "weather.AlreadySet".
type ModuleError struct {
	Module  string
	Name    string
	Message string
}

// NewModuleError declares a module error. Declare them once as package
// variables so errors.Is works on identity.
func NewModuleError(module, name, message string) *ModuleError {
	return &ModuleError{Module: module, Name: name, Message: message}
}

func (e *ModuleError) Error() string {
	return e.Module + ": " + e.Message
}

// Code returns "<module>.<name>".
func (e *ModuleError) Code() string {
	return e.Module + "." + e.Name
}

// System errors raised by the runtime itself.
var (
	ErrBadOrigin    = NewModuleError("system", "BadOrigin", "bad origin")
	ErrCallNotFound = NewModuleError("system", "CallNotFound", "no module handles this call")
	ErrOther        = NewModuleError("system", "Other", "dispatch failed")
)

// Runtime lifecycle errors. These are not dispatch failures.
var (
	ErrNoBlockInProgress = errors.New("no block in progress")
	ErrBlockInProgress   = errors.New("block already in progress")
	ErrCommit            = errors.New("commit block state")
	ErrNotOnHead         = errors.New("block does not extend the committed head")
)

// ErrorCode maps err to its module code, or "system.Other".
func ErrorCode(err error) string {
	var me *ModuleError
	if errors.As(err, &me) {
		return me.Code()
	}
	return ErrOther.Code()
}
