package brandsite

import (
	"fmt"
	"strings"

	expro "github.com/expr-lang/expr"
)

// Layout rows may carry a condition instead of TRUE/FALSE in the enabled
// column, e.g. `exists("links.career_page_url") and len(identity.company_name) > 0`.
// Conditions see the project's global settings.

func evalCondition(src string, globals map[string]any) (bool, error) {
	flat := Flatten(globals)
	env := make(map[string]any, len(globals)+2)
	for k, v := range globals {
		env[k] = v
	}
	env["exists"] = func(x any) bool {
		switch v := x.(type) {
		case string:
			if fv, ok := flat[v]; ok {
				return !isBlank(fv)
			}
			_, ok := Lookup(globals, v)
			return ok
		default:
			return truthy(v)
		}
	}
	env["path"] = func(p string) any {
		if v, ok := Lookup(globals, p); ok {
			return v
		}
		return nil
	}

	program, err := expro.Compile(src, expro.Env(env))
	if err != nil {
		return false, fmt.Errorf("compile condition %q: %w", src, err)
	}
	out, err := expro.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("run condition %q: %w", src, err)
	}
	if b, ok := out.(bool); ok {
		return b, nil
	}
	return truthy(out), nil
}

func truthy(v any) bool {
	switch vv := v.(type) {
	case nil:
		return false
	case bool:
		return vv
	case string:
		return strings.TrimSpace(vv) != ""
	case []any:
		return len(vv) > 0
	case map[string]any:
		return len(vv) > 0
	case float64:
		return vv != 0
	case int:
		return vv != 0
	default:
		return true
	}
}
