package blocks

import (
	"strings"

	"github.com/piwi3910/tiabridge/pkg/engine"
)

// Classifier maps block snapshots to categories.
type Classifier interface {
	// Classify returns the single category of the unit.
	Classify(unit engine.UnitRef) engine.Category

	// Matches reports whether the unit satisfies the rule of category on its
	// own, independent of the other categories' rules.
	Matches(unit engine.UnitRef, category engine.Category) bool
}

// Marker substrings, compared against the uppercased name and type tag.
var (
	dataMarkers     = []string{"DB", "DATABLOCK"}
	functionMarkers = []string{"FB", "F BLOCK"}
)

// SubstringClassifier is the default heuristic: a unit whose name or type tag
// contains a data marker is a data unit, otherwise one containing a function
// marker is a function unit. Matching is crude; "FBDB1" satisfies both rules.
type SubstringClassifier struct{}

// Classify implements Classifier. Data markers take precedence.
func (SubstringClassifier) Classify(unit engine.UnitRef) engine.Category {
	return Classify(unit)
}

// Matches implements Classifier.
func (SubstringClassifier) Matches(unit engine.UnitRef, category engine.Category) bool {
	name := strings.ToUpper(unit.Name)
	tag := strings.ToUpper(unit.TypeTag)

	switch category {
	case engine.CategoryDataUnit:
		return containsAny(name, tag, dataMarkers)
	case engine.CategoryFunctionUnit:
		return containsAny(name, tag, functionMarkers)
	case engine.CategoryUnclassified:
		return !containsAny(name, tag, dataMarkers) && !containsAny(name, tag, functionMarkers)
	default:
		return false
	}
}

// Classify applies the default substring heuristic.
func Classify(unit engine.UnitRef) engine.Category {
	var c SubstringClassifier
	switch {
	case c.Matches(unit, engine.CategoryDataUnit):
		return engine.CategoryDataUnit
	case c.Matches(unit, engine.CategoryFunctionUnit):
		return engine.CategoryFunctionUnit
	default:
		return engine.CategoryUnclassified
	}
}

func containsAny(name, tag string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(name, m) || strings.Contains(tag, m) {
			return true
		}
	}
	return false
}
