// Package mock provides a deterministic test double for the ai.Embedder
// interface.
package mock
