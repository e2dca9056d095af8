// Package data provides data access layer implementations.
// It owns the connection to the external cache store.
package data

import (
	"github.com/google/wire"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewResultCache,
)
