// Package textutil provides filename sanitization and title derivation
// helpers shared by the fetch and concatenation commands.
package textutil
