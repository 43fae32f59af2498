// Package system supplies the wall clock that stamps run summaries and
// notifications.
package system

import "time"

// Clock reads the host clock in UTC.
type Clock struct{}

// New returns a Clock.
func New() *Clock { return &Clock{} }

// Now returns the current UTC time.
func (*Clock) Now() time.Time { return time.Now().UTC() }
