package main

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"darkframes/internal/axis"
	"darkframes/internal/library"
)

var (
	numbers = message.NewPrinter(language.English)
	titler  = cases.Title(language.English)
)

// describeError prefixes err with its user-facing category.
func describeError(err error) string {
	switch library.ErrorKind(err) {
	case library.KindConfiguration:
		return "configuration error: " + err.Error()
	case library.KindNotFound:
		return "not found: " + err.Error()
	case library.KindIncompatibleImage:
		return "incompatible image: " + err.Error()
	default:
		return "error: " + err.Error()
	}
}

// exitCode maps error kinds to distinct process exit codes.
func exitCode(err error) int {
	switch library.ErrorKind(err) {
	case library.KindConfiguration:
		return 2
	case library.KindNotFound:
		return 3
	case library.KindIncompatibleImage:
		return 4
	default:
		return 1
	}
}

// parseSets converts repeated "name=value" flags into a value map.
func parseSets(values []string) (map[string]int, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: at least one --set name=value is required", axis.ErrConfiguration)
	}
	out := make(map[string]int, len(values))
	for _, raw := range values {
		name, value, ok := strings.Cut(raw, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: --set %q is not name=value", axis.ErrConfiguration, raw)
		}
		v, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("%w: --set %s: %q is not an integer", axis.ErrConfiguration, name, value)
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("%w: --set %s given twice", axis.ErrConfiguration, name)
		}
		out[name] = v
	}
	return out, nil
}

func formatCount(n int) string {
	return numbers.Sprintf("%d", n)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
