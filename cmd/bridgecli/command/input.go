package command

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"bridgelink/pkg/document"

	"github.com/google/shlex"
)

// Input is one parsed console line: a command name and its kwargs.
type Input struct {
	Command  string
	Kwargs   *document.Document
	Warnings []string
}

// ParseInput reads "name key=value ..." with shell quoting rules. Spaces
// around '=' are tolerated.
// Tokens without '=' are reported in Warnings and ignored.
func ParseInput(line string) (Input, error) {
	in := Input{Kwargs: document.New()}

	tokens, err := shlex.Split(collapseEquals(line))
	if err != nil {
		return in, fmt.Errorf("invalid input: %w", err)
	}
	if len(tokens) == 0 {
		return in, nil
	}

	in.Command = tokens[0]
	for _, token := range tokens[1:] {
		key, value, ok := strings.Cut(token, "=")
		if !ok {
			in.Warnings = append(in.Warnings, fmt.Sprintf("ignoring invalid token '%s' (no '=')", token))
			continue
		}
		setValue(in.Kwargs, key, value)
	}
	return in, nil
}

// setValue maps console words onto typed values: true/false, high/on and
// low/off, numbers, and strings for anything else.
func setValue(d *document.Document, key, value string) {
	switch strings.ToLower(value) {
	case "true":
		d.SetBool(key, true)
		return
	case "false":
		d.SetBool(key, false)
		return
	case "high", "on":
		d.SetInt(key, 1)
		return
	case "low", "off":
		d.SetInt(key, 0)
		return
	}

	if n, err := strconv.ParseFloat(value, 64); err == nil && !math.IsInf(n, 0) && !math.IsNaN(n) {
		d.SetNumber(key, n)
		return
	}
	d.SetString(key, value)
}

func collapseEquals(line string) string {
	for _, spaced := range []string{" =", "= "} {
		for strings.Contains(line, spaced) {
			line = strings.ReplaceAll(line, spaced, "=")
		}
	}
	return line
}
