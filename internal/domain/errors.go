package domain

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrNothingStaged         = errors.New("no staged files")
	ErrPersistence           = errors.New("persist derivatives")
	ErrDispatchNotConfigured = errors.New("dispatch not configured")
	ErrDispatchRepoNotFound  = errors.New("dispatch repository not found")
	ErrDispatchFailed        = errors.New("dispatch failed")
)
