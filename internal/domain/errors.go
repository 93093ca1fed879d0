package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrRoleRequired = errors.New("session role does not permit this action")
	ErrPastDate     = errors.New("room date is in the past")
	ErrAlreadyOwned = errors.New("room is already owned by this wallet")
	ErrNotRoomOwner = errors.New("room is not owned by this wallet")
	ErrNoSession    = errors.New("session not found or expired")
	ErrBadInput     = errors.New("invalid input")
)
