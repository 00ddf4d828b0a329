package interfaces

import "errors"

// ErrNotFound is returned by every backend when a (userID, sessionID) pair does not resolve.
// A session owned by another user is reported the same way.
var ErrNotFound = errors.New("not found")
