// Package idgen generates the short human-readable references printed on gate passes.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// PassPrefix is prepended to every pass code.
const PassPrefix = "GP-"

// Alphabet omits characters that are easily confused when read aloud at the gate (0/O, 1/I/L).
const Alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// Length is the number of random characters generated (excluding the prefix).
const Length = 8

// PassCode returns a new pass code such as GP-7K2MQX9A.
func PassCode() (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return PassPrefix + id, nil
}
