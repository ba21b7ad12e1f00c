package tools

import (
	"fmt"
	"regexp"
	"strings"
)

// Request is the resolved HTTP shape for a dispatched tool call: method,
// the path with {placeholders} substituted, and the body fields remaining
// after path extraction.
type Request struct {
	Method string
	Path   string
	Body   map[string]any
}

// Validate checks args against d's argument schema and, if they pass,
// projects them into an HTTP Request per d's path template / body shape:
// path arguments are substituted into PathTemplate, everything else goes
// into the body.
func Validate(d Declaration, args map[string]any) (Request, error) {
	body := make(map[string]any)
	path := d.PathTemplate

	for _, f := range d.Arguments {
		v, present := args[f.Name]
		if !present {
			if f.Required {
				return Request{}, fmt.Errorf("missing required argument %q", f.Name)
			}
			continue
		}

		if err := checkType(f, v); err != nil {
			return Request{}, err
		}

		if f.InPath {
			path = strings.ReplaceAll(path, "{"+f.Name+"}", fmt.Sprintf("%v", v))
			continue
		}
		body[f.Name] = v
	}

	return Request{Method: d.Method, Path: path, Body: body}, nil
}

func checkType(f ArgumentField, v any) error {
	switch f.Type {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("argument %q must be a string", f.Name)
		}
		if f.Pattern != "" {
			if matched, err := regexp.MatchString(f.Pattern, s); err != nil || !matched {
				return fmt.Errorf("argument %q does not match required format", f.Name)
			}
		}
	case TypeInteger:
		n, ok := asInt(v)
		if !ok {
			return fmt.Errorf("argument %q must be an integer", f.Name)
		}
		if f.Min != nil && n < *f.Min {
			return fmt.Errorf("argument %q must be >= %d", f.Name, *f.Min)
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("argument %q must be a boolean", f.Name)
		}
	}
	return nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		// arguments arrive decoded from JSON, where all numbers are float64
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}
