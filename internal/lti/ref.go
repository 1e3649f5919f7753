package lti

import (
	"fmt"
	"strings"
)

// Ref names one port of one block. Sign is +1 or -1 and negates the
// signal when the reference is a connection source; the zero value means
// +1. Interconnect rejects any other value.
type Ref struct {
	Block string
	Port  string
	Sign  float64
}

// ParseRef parses "block.port", with an optional leading '-' for a
// negated source. The block name ends at the first dot.
func ParseRef(s string) (Ref, error) {
	sign := 1.0
	body := strings.TrimSpace(s)
	if strings.HasPrefix(body, "-") {
		sign = -1
		body = strings.TrimSpace(body[1:])
	} else if strings.HasPrefix(body, "+") {
		body = strings.TrimSpace(body[1:])
	}
	block, port, ok := strings.Cut(body, ".")
	if !ok || block == "" || port == "" {
		return Ref{}, fmt.Errorf("%w: reference %q, want block.port", ErrInvalidName, s)
	}
	return Ref{Block: block, Port: port, Sign: sign}, nil
}

// MustRef is ParseRef for literals; it panics on malformed input.
func MustRef(s string) Ref {
	r, err := ParseRef(s)
	if err != nil {
		panic(err)
	}
	return r
}

// Refs parses a list of references.
func Refs(names ...string) ([]Ref, error) {
	out := make([]Ref, 0, len(names))
	for _, n := range names {
		r, err := ParseRef(n)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Name returns "block.port" without the sign.
func (r Ref) Name() string {
	return r.Block + "." + r.Port
}

func (r Ref) gain() float64 {
	if r.Sign == 0 {
		return 1
	}
	return r.Sign
}

func (r Ref) String() string {
	if r.gain() < 0 {
		return "-" + r.Name()
	}
	return r.Name()
}

// Connection drives Dest (an input port) with the signed sum of Sources
// (output ports).
type Connection struct {
	Dest    Ref
	Sources []Ref
}

// Connect builds a connection from string references and panics on a
// malformed one; it is meant for wiring tables written in code.
func Connect(dest string, sources ...string) Connection {
	c := Connection{Dest: MustRef(dest)}
	for _, s := range sources {
		c.Sources = append(c.Sources, MustRef(s))
	}
	return c
}

func (c Connection) String() string {
	parts := make([]string, len(c.Sources))
	for i, s := range c.Sources {
		parts[i] = s.String()
	}
	return fmt.Sprintf("%s <- %s", c.Dest.Name(), strings.Join(parts, " + "))
}
