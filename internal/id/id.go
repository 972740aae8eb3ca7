// Package id generates identifiers that are minted by this process rather
// than by a datastore.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Generate creates a prefixed unique ID using NanoID.
// Format: prefix-nanoid (e.g., "prof-V1StGXR8_Z5jdHi6B-myT").
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// TimeOrdered returns a UUIDv7 string. Keys built from it sort by creation
// time, which keeps append-only collections in insertion order.
func TimeOrdered() (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid v7: %w", err)
	}
	return u.String(), nil
}

// Session returns a random session identifier for telemetry.
func Session() string {
	return uuid.NewString()
}
