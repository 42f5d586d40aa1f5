// Package render expands action command templates against their owning device.
package render

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"home_dispatch/internal/models"
)

// ErrTemplateResolution is the sentinel every template failure unwraps to.
var ErrTemplateResolution = errors.New("template resolution failed")

// TemplateError describes why a command template could not be rendered.
type TemplateError struct {
	DeviceID string
	ActionID string
	Field    string
	Reason   string
}

func (e *TemplateError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("render %s/%s: field %q: %s", e.DeviceID, e.ActionID, e.Field, e.Reason)
	}
	return fmt.Sprintf("render %s/%s: %s", e.DeviceID, e.ActionID, e.Reason)
}

func (e *TemplateError) Unwrap() error { return ErrTemplateResolution }

var placeholder = regexp.MustCompile(`\{([^{}]*)\}`)

// Render substitutes every {field} placeholder in the action command with the
// device attribute of the same name. It never returns a partially rendered command.
func Render(action models.Action, device models.Device) (string, error) {
	fail := func(field, reason string) error {
		return &TemplateError{DeviceID: device.ID, ActionID: action.ID, Field: field, Reason: reason}
	}

	tpl := action.Command
	if strings.TrimSpace(tpl) == "" {
		return "", fail("", "empty command")
	}

	var b strings.Builder
	last := 0
	for _, m := range placeholder.FindAllStringSubmatchIndex(tpl, -1) {
		literal := tpl[last:m[0]]
		if strings.ContainsAny(literal, "{}") {
			return "", fail("", "unbalanced brace")
		}
		b.WriteString(literal)

		name := strings.TrimSpace(tpl[m[2]:m[3]])
		val, ok := device.Field(name)
		if !ok {
			return "", fail(name, "unknown field")
		}
		if strings.TrimSpace(val) == "" {
			return "", fail(name, "empty value")
		}
		if strings.ContainsAny(val, "{}") {
			return "", fail(name, "value contains a brace")
		}
		b.WriteString(val)
		last = m[1]
	}
	tail := tpl[last:]
	if strings.ContainsAny(tail, "{}") {
		return "", fail("", "unbalanced brace")
	}
	b.WriteString(tail)
	return b.String(), nil
}

// Placeholders lists the field names referenced by a template, in order.
func Placeholders(template string) []string {
	var out []string
	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}
