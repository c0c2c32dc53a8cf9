package resource

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/jtchitty/legatoDataHub/internal/sample"
)

// NewScriptedFilter compiles a JS function body into a FilterFunc (spec
// §4.3 step 3, SPEC_FULL.md "Observation filter hook"). The script sees
// `current` and `incoming` as plain JS values (number/bool/string/null,
// and the current/incoming timestamps as `currentTs`/`incomingTs`) and
// must `return` a truthy/falsy admit decision (a body with no return
// statement yields undefined and so rejects every push), the same
// goja.New()/vm.Set()/vm.RunProgram() pattern the teacher uses for
// workflow script nodes (internal/service/workflow/goja.go).
//
// Compilation happens once at construction; each invocation only pays for
// a fresh goja.Runtime and RunProgram, keeping the filter evaluation
// synchronous and suspension-free as required inside the push pipeline
// (spec §5).
func NewScriptedFilter(body string) (FilterFunc, error) {
	prog, err := goja.Compile("filter", "(function(){"+body+"})()", true)
	if err != nil {
		return nil, fmt.Errorf("compile observation filter: %w", err)
	}
	return func(current, incoming *sample.Sample) (bool, error) {
		vm := goja.New()
		vm.Set("current", jsValue(current))
		vm.Set("incoming", jsValue(incoming))
		if current != nil {
			vm.Set("currentTs", current.Timestamp())
		} else {
			vm.Set("currentTs", goja.Undefined())
		}
		vm.Set("incomingTs", incoming.Timestamp())

		val, err := vm.RunProgram(prog)
		if err != nil {
			return false, fmt.Errorf("run observation filter: %w", err)
		}
		return val.ToBoolean(), nil
	}, nil
}

// jsValue projects a Sample to the plain value goja scripts operate on.
func jsValue(s *sample.Sample) any {
	if s == nil {
		return nil
	}
	switch s.Kind() {
	case sample.Trigger:
		return nil
	case sample.Boolean:
		v, _ := s.Bool()
		return v
	case sample.Numeric:
		v, _ := s.Float()
		return v
	case sample.String:
		v, _ := s.Text()
		return v
	case sample.JSON:
		v, _ := s.RawJSON()
		return v
	default:
		return nil
	}
}

// DeadBand returns a FilterFunc that admits a Numeric push only when it
// differs from the current value by at least threshold (or when there is
// no current value yet). This is the reference dead-band policy named in
// spec §4.3 step 3.
func DeadBand(threshold float64) FilterFunc {
	return func(current, incoming *sample.Sample) (bool, error) {
		if current == nil {
			return true, nil
		}
		cv, ok := current.Float()
		if !ok {
			return true, nil
		}
		iv, ok := incoming.Float()
		if !ok {
			return true, nil
		}
		delta := iv - cv
		if delta < 0 {
			delta = -delta
		}
		return delta >= threshold, nil
	}
}

// ChangeDetect returns a FilterFunc that admits a push only when its JSON
// projection differs from the current value's. This is the reference
// change-detection policy named in spec §4.3 step 3.
func ChangeDetect() FilterFunc {
	return func(current, incoming *sample.Sample) (bool, error) {
		if current == nil {
			return true, nil
		}
		return current.JSONValue() != incoming.JSONValue(), nil
	}
}
