package blocks

import (
	"fmt"
	"os"

	"go.starlark.net/starlark"

	"github.com/piwi3910/tiabridge/pkg/engine"
	"github.com/piwi3910/tiabridge/pkg/telemetry"
)

// ScriptClassifier classifies units with a Starlark function
//
//	def classify(name, type_tag):
//	    return ["data"]           # or "data", or [] / None / ""
//
// The function receives the raw name and type tag and returns one category
// name or a list of them ("data", "function"). A unit matches every category
// the function returns. Globals are frozen after loading, so the function
// cannot keep state between calls.
type ScriptClassifier struct {
	fn     starlark.Callable
	logger *telemetry.Logger
}

// LoadScriptClassifier loads a classifier script from path.
func LoadScriptClassifier(path string, logger *telemetry.Logger) (*ScriptClassifier, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read classifier script: %w", err)
	}
	return NewScriptClassifier(path, string(src), logger)
}

// NewScriptClassifier compiles a classifier script.
func NewScriptClassifier(filename, src string, logger *telemetry.Logger) (*ScriptClassifier, error) {
	if logger == nil {
		logger = telemetry.Nop()
	}

	thread := &starlark.Thread{
		Name: "classifier",
		Print: func(_ *starlark.Thread, msg string) {
			logger.Debug(msg)
		},
	}

	globals, err := starlark.ExecFile(thread, filename, src, nil)
	if err != nil {
		return nil, fmt.Errorf("starlark execution failed: %w", err)
	}
	globals.Freeze()

	value, ok := globals["classify"]
	if !ok {
		return nil, fmt.Errorf("classifier script %s does not define classify(name, type_tag)", filename)
	}
	fn, ok := value.(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("classify in %s is a %s, not a function", filename, value.Type())
	}

	return &ScriptClassifier{fn: fn, logger: logger}, nil
}

// Classify implements Classifier. The first returned category wins.
func (s *ScriptClassifier) Classify(unit engine.UnitRef) engine.Category {
	categories := s.categories(unit)
	if len(categories) == 0 {
		return engine.CategoryUnclassified
	}
	return categories[0]
}

// Matches implements Classifier.
func (s *ScriptClassifier) Matches(unit engine.UnitRef, category engine.Category) bool {
	categories := s.categories(unit)
	if category == engine.CategoryUnclassified {
		return len(categories) == 0
	}
	for _, c := range categories {
		if c == category {
			return true
		}
	}
	return false
}

// categories calls the script; failures classify the unit as unclassified.
func (s *ScriptClassifier) categories(unit engine.UnitRef) []engine.Category {
	thread := &starlark.Thread{Name: "classify"}
	args := starlark.Tuple{starlark.String(unit.Name), starlark.String(unit.TypeTag)}

	result, err := starlark.Call(thread, s.fn, args, nil)
	if err != nil {
		s.logger.WithError(err).Warnf("classifier script failed for %q", unit.Name)
		return nil
	}

	var names []string
	switch v := result.(type) {
	case starlark.NoneType:
	case starlark.String:
		if v != "" {
			names = append(names, string(v))
		}
	case *starlark.List:
		for i := 0; i < v.Len(); i++ {
			str, ok := starlark.AsString(v.Index(i))
			if !ok {
				s.logger.Warnf("classifier script returned non-string %s for %q", v.Index(i).Type(), unit.Name)
				continue
			}
			names = append(names, str)
		}
	default:
		s.logger.Warnf("classifier script returned %s for %q, want string or list", result.Type(), unit.Name)
	}

	categories := make([]engine.Category, 0, len(names))
	for _, name := range names {
		switch engine.Category(name) {
		case engine.CategoryDataUnit, engine.CategoryFunctionUnit:
			categories = append(categories, engine.Category(name))
		default:
			s.logger.Warnf("classifier script returned unknown category %q", name)
		}
	}
	return categories
}
