package store

import "errors"

// ErrNotFound is returned when a record doesn't exist, or exists but
// belongs to a different account. Ownership misses deliberately look
// identical to absence.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists is returned when a uniqueness constraint would be
// violated, e.g. registering an email twice.
var ErrAlreadyExists = errors.New("record already exists")

// ErrDeviceNotRegistered is returned when a presented device id is not in
// the account's trust registry. Distinct from an authentication failure:
// the session is fine, the device isn't trusted.
var ErrDeviceNotRegistered = errors.New("device not registered")
