package services

import "errors"

// ErrUpstreamUnavailable is returned only when recommendation generation is
// blocked entirely, i.e. both the catalog and the history store failed.
// Every narrower failure degrades to an empty section instead.
var ErrUpstreamUnavailable = errors.New("upstream stores unavailable")
