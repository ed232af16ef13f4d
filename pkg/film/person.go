package film

import (
	"strings"
)

// Person is a credited person split into first and last name.
type Person struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// UnknownPerson stands in for a person the upstream did not name.
var UnknownPerson = Person{FirstName: "John", LastName: "Doe"}

// ParseName splits a display name into first and last name.
//
//	""                      -> John Doe
//	"Madonna"               -> {"", "Madonna"}
//	"Jean Claude Van Damme" -> {"Jean Claude Van", "Damme"}
//
// The last whitespace-separated token is the last name; everything before it
// is the first name. No locale-aware handling of particles or suffixes.
func ParseName(fullName string) Person {
	tokens := strings.Fields(fullName)
	switch len(tokens) {
	case 0:
		return UnknownPerson
	case 1:
		return Person{LastName: tokens[0]}
	default:
		last := len(tokens) - 1
		return Person{
			FirstName: strings.Join(tokens[:last], " "),
			LastName:  tokens[last],
		}
	}
}
