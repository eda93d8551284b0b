package database

import "errors"

// ErrNotReady wraps ping failures so readiness checks can detect an
// unreachable database.
var ErrNotReady = errors.New("database not ready")
