// Package intersection implements the shared four-way intersection monitor.
//
// An Intersection owns one FIFO wait queue per approach direction and a single
// mutex guarding all of them. Vehicles block in Arrive until a traffic-light
// controller signals their approach and the admission Policy allows the move.
package intersection

import (
	"errors"
	"fmt"
	"strings"
)

// Direction is one approach (or exit) of the intersection.
type Direction int

const (
	North Direction = iota
	South
	West
	East
)

// Directions lists every direction in the fixed signaling order.
var Directions = [...]Direction{North, South, West, East}

var (
	// ErrInvalidDirection is returned when a direction name cannot be parsed.
	ErrInvalidDirection = errors.New("invalid direction")

	// ErrSameDirection is returned when a trip would exit where it entered.
	ErrSameDirection = errors.New("origin and destination must differ")
)

func (d Direction) String() string {
	switch d {
	case North:
		return "N"
	case South:
		return "S"
	case West:
		return "W"
	case East:
		return "E"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Valid reports whether d is one of the four directions.
func (d Direction) Valid() bool {
	return d >= North && d <= East
}

// ParseDirection accepts a one-letter code or the full name, case-insensitive.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "n", "north":
		return North, nil
	case "s", "south":
		return South, nil
	case "w", "west":
		return West, nil
	case "e", "east":
		return East, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDirection, int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Move is an origin/destination pair.
type Move struct {
	From Direction `json:"from" yaml:"from"`
	To   Direction `json:"to" yaml:"to"`
}

func (m Move) String() string {
	return m.From.String() + "->" + m.To.String()
}

// Validate checks that both ends are valid and distinct.
func (m Move) Validate() error {
	if !m.From.Valid() || !m.To.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidDirection, m)
	}
	if m.From == m.To {
		return fmt.Errorf("%w: %s", ErrSameDirection, m)
	}
	return nil
}

// ParseMove parses "S:W", "S->W" or "south-west" style pairs.
func ParseMove(s string) (Move, error) {
	var sep string
	switch {
	case strings.Contains(s, "->"):
		sep = "->"
	case strings.Contains(s, ":"):
		sep = ":"
	case strings.Contains(s, "-"):
		sep = "-"
	default:
		return Move{}, fmt.Errorf("%w: move %q must look like S:W", ErrInvalidDirection, s)
	}
	parts := strings.SplitN(s, sep, 2)
	from, err := ParseDirection(parts[0])
	if err != nil {
		return Move{}, err
	}
	to, err := ParseDirection(parts[1])
	if err != nil {
		return Move{}, err
	}
	m := Move{From: from, To: to}
	return m, m.Validate()
}
