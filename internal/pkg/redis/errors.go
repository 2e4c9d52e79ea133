package redis

import "errors"

var (
	ErrLockHeld    = errors.New("redis: lock is held by another owner")
	ErrLockExpired = errors.New("redis: lock token mismatch or lock expired")
)
