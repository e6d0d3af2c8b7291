// Package parse decomposes free-text names and postal addresses read from
// Spanish identity documents into the sub-fields official forms ask for.
package parse

import "strings"

// Name is a full name split into given name and two surnames
type Name struct {
	First    string
	Surname1 string
	Surname2 string
}

// SplitName splits on whitespace: first token is the given name, second the
// first surname and everything after it the second surname. Compound given
// names and particles ("DE LA") are not detected.
func SplitName(full string) Name {
	tokens := strings.Fields(full)
	switch len(tokens) {
	case 0:
		return Name{}
	case 1:
		return Name{First: tokens[0]}
	case 2:
		return Name{First: tokens[0], Surname1: tokens[1]}
	default:
		return Name{
			First:    tokens[0],
			Surname1: tokens[1],
			Surname2: strings.Join(tokens[2:], " "),
		}
	}
}

// Upper returns the name with every part upper-cased
func (n Name) Upper() Name {
	return Name{
		First:    strings.ToUpper(n.First),
		Surname1: strings.ToUpper(n.Surname1),
		Surname2: strings.ToUpper(n.Surname2),
	}
}
