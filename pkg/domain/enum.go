package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ordinal is satisfied by the ordered enumerations of the model. Their
// textual form is the name at the ordinal's index.
type ordinal interface{ ~int }

func ordinalName[T ordinal](names []string, v T) string {
	if int(v) < 0 || int(v) >= len(names) {
		return strconv.Itoa(int(v))
	}
	return names[v]
}

func parseOrdinal[T ordinal](kind string, names []string, text string) (T, error) {
	s := strings.TrimSpace(text)
	for i, name := range names {
		if strings.EqualFold(name, s) {
			return T(i), nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", kind, text)
}

func marshalOrdinal[T ordinal](kind string, names []string, v T) ([]byte, error) {
	if int(v) < 0 || int(v) >= len(names) {
		return nil, fmt.Errorf("invalid %s %d", kind, int(v))
	}
	return []byte(names[v]), nil
}

func parseLabel[T ~string](kind string, valid []T, text string) (T, error) {
	s := strings.TrimSpace(text)
	for _, v := range valid {
		if strings.EqualFold(string(v), s) {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown %s %q", kind, text)
}
