package table

import (
	"fmt"
	"strings"
)

// Name of a table
type Name string

var invalidChars = `\/*?"<>| ,#:$`

var illegalPrefixes = []string{
	"_",
	"-",
	"+",
}

var illegals = []string{
	".",
	"..",
}

const maxNameLength = 63

// NameFromString takes a string and returns a Table Name if valid, otherwise returns an
// InvalidName error.
//
// The rules are deliberately conservative so that a Name can double as an index,
// bucket, or path segment in every storage backend.
func NameFromString(s string) (*Name, error) {
	var errs []error

	if len(s) == 0 {
		errs = append(errs, fmt.Errorf("empty string"))
	}
	if len(s) > maxNameLength {
		errs = append(errs, fmt.Errorf("longer than [%d] chars", maxNameLength))
	}
	if strings.ContainsAny(s, invalidChars) {
		errs = append(errs, fmt.Errorf("contains invalid chars [%v]", invalidChars))
	}
	for _, illegalPrefix := range illegalPrefixes {
		if strings.HasPrefix(s, illegalPrefix) {
			errs = append(errs, fmt.Errorf("starts with illegal char [%v]", illegalPrefix))
		}
	}
	for _, illegalStr := range illegals {
		if s == illegalStr {
			errs = append(errs, fmt.Errorf("equal to illegal string sequence [%v]", illegalStr))
		}
	}
	if s != strings.ToLower(s) {
		errs = append(errs, fmt.Errorf("not lower case [%v]", s))
	}
	if len(errs) == 0 {
		t := Name(s)
		return &t, nil
	} else {
		return nil, &InvalidName{
			Errors: errs,
		}
	}
}

type InvalidName struct {
	Errors []error
}

func (i *InvalidName) Error() string {
	return fmt.Sprintf("Illegal Table name: [%v]", i.Errors)
}
