// Package service adapts HTTP requests to the biz layer.
package service

import "github.com/google/wire"

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewItineraryService)
