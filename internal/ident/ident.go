// Package ident generates the opaque ids used for every entity:
// workbooks, problem lists, hierarchies, unit versions, answer
// structures, sessions and histories.
package ident

import gonanoid "github.com/matoous/go-nanoid/v2"

const (
	alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	length   = 20
)

// New returns a collision-resistant 20-character id over a 62-character
// alphabet. Collisions are negligible at practical dataset sizes.
func New() string {
	return gonanoid.MustGenerate(alphabet, length)
}

// Generator produces ids. Services take one so tests can substitute a
// deterministic sequence.
type Generator func() string
