package service

import "errors"

var (
	// ErrRefreshInProgress is returned when a source refresh is already running.
	ErrRefreshInProgress = errors.New("refresh already in progress")
	// ErrNoSource is returned by operations that need a remote source when none is configured.
	ErrNoSource = errors.New("no player source configured")
	// ErrComparePlayers is returned when a comparison names too few or too many players.
	ErrComparePlayers = errors.New("invalid number of players to compare")
)
