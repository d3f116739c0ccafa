// Package provider defines the uniform contract that every upstream image
// API adapter implements, plus the helpers adapters share: a default
// FetchMany, identifier sanitisation, the LIFO result cache and the
// name to constructor registry.
//
// Adapters live in sub-packages (provider/nekobot, provider/reddit, ...).
// The set of available adapters is assembled explicitly by provider/all.
package provider
