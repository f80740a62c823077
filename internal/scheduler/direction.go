package scheduler

import (
	"encoding"
	"encoding/json"
	"fmt"
)

// Direction says which side of a pair is the prompt for a given card.
type Direction int

const (
	Forward Direction = iota // front side prompts, back side answers
	Reverse
)

var (
	directionNames = [...]string{Forward: "Forward", Reverse: "Reverse"}

	directionByName = map[string]Direction{
		"Forward": Forward,
		"Reverse": Reverse,
	}
)

var (
	_ fmt.Stringer             = Direction(0)
	_ encoding.TextMarshaler   = Direction(0)
	_ encoding.TextUnmarshaler = (*Direction)(nil)
)

// IsValid reports whether d is Forward or Reverse.
func (d Direction) IsValid() bool {
	return d == Forward || d == Reverse
}

func (d Direction) String() string {
	if d.IsValid() {
		return directionNames[d]
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	if !d.IsValid() {
		return nil, fmt.Errorf("invalid direction: %d", int(d))
	}
	return []byte(directionNames[d]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	v, ok := directionByName[string(text)]
	if !ok {
		return fmt.Errorf("invalid direction: %q", text)
	}
	*d = v
	return nil
}

// MarshalJSON serializes the direction as a JSON string.
func (d Direction) MarshalJSON() ([]byte, error) {
	text, err := d.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON expects a JSON string.
func (d *Direction) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("invalid direction: %s", data)
	}
	return d.UnmarshalText([]byte(str))
}
