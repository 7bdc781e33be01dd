package game

import (
	"context"
	"math/rand"
)

// DieSource produces uniform die faces in [1, sides].
type DieSource struct {
	sides int
}

// NewDieSource creates a source for a die with the given number of sides.
func NewDieSource(sides int) *DieSource {
	if sides < 2 {
		sides = 6
	}
	return &DieSource{sides: sides}
}

// Next returns one die face.
func (s *DieSource) Next(_ context.Context) (int, error) {
	return rand.Intn(s.sides) + 1, nil
}

// Sides returns the number of faces.
func (s *DieSource) Sides() int {
	return s.sides
}
