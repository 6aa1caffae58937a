package schema

import (
	"fmt"
	"strings"
)

// irregulars maps plural table names to their singular reference names where
// suffix rules give the wrong answer.
var irregulars = map[string]string{
	"people": "person", "men": "man", "women": "woman", "children": "child",
	"mice": "mouse", "geese": "goose", "feet": "foot", "teeth": "tooth",
	"oxen": "ox", "movies": "movie", "cookies": "cookie", "zombies": "zombie",
	"wolves": "wolf", "knives": "knife", "lives": "life", "wives": "wife",
	"leaves": "leaf", "halves": "half", "shelves": "shelf", "archives": "archive",
	"heroes": "hero", "potatoes": "potato", "tomatoes": "tomato", "shoes": "shoe",
	"statuses": "status", "buses": "bus", "aliases": "alias", "viruses": "virus",
	"analyses": "analysis", "bases": "base", "cases": "case", "courses": "course",
	"houses": "house", "responses": "response", "licenses": "license",
	"purchases": "purchase", "databases": "database", "phases": "phase",
	"releases": "release", "expenses": "expense", "addresses": "address",
	"indices": "index", "matrices": "matrix", "vertices": "vertex",
	"criteria": "criterion", "data": "datum",
}

// uncountables are table names whose singular is the name itself.
var uncountables = map[string]bool{
	"equipment": true, "information": true, "rice": true, "money": true,
	"species": true, "series": true, "fish": true, "sheep": true, "news": true,
	"staff": true, "metadata": true, "feedback": true, "police": true,
}

// AmbiguousNameError is returned when a table name cannot be singularized by
// the built-in rules. Add the name to Inflector.Inflections to resolve it.
type AmbiguousNameError struct {
	Name   string
	Reason string
}

func (e *AmbiguousNameError) Error() string {
	return fmt.Sprintf("cannot derive singular name of %q: %s", e.Name, e.Reason)
}

// Inflector turns table names into singular reference names.
//
// Rules, in order, on the lowercased last underscore-separated word:
//   - Inflections (configured) and the built-in irregulars
//   - uncountables stay unchanged
//   - "ies" -> "y"
//   - "sses", "xes", "ches", "shes", "zzes" drop "es"
//   - "ves", "oes", "ses" are ambiguous (wolves/valves, heroes/shoes, cases/buses)
//   - "ss", "us", "is" endings are already singular and therefore ambiguous
//   - a trailing "s" is dropped
//   - anything else is not a plural and is ambiguous
//
// With SingularTables set every table name is returned unchanged.
type Inflector struct {
	SingularTables bool
	Inflections    map[string]string
}

// Singularize returns the singular form of a table name.
func (in *Inflector) Singularize(table string) (string, error) {
	name := strings.TrimSpace(table)
	if name == "" {
		return "", &AmbiguousNameError{Name: table, Reason: "empty name"}
	}
	if in != nil && in.SingularTables {
		return name, nil
	}

	lower := strings.ToLower(name)
	if in != nil {
		for plural, singular := range in.Inflections {
			if strings.EqualFold(plural, lower) {
				return singular, nil
			}
		}
	}

	prefix, word := "", lower
	if i := strings.LastIndex(lower, "_"); i >= 0 {
		prefix, word = lower[:i+1], lower[i+1:]
	}
	if in != nil {
		for plural, singular := range in.Inflections {
			if strings.EqualFold(plural, word) {
				return prefix + singular, nil
			}
		}
	}

	singular, err := singularWord(word)
	if err != nil {
		return "", &AmbiguousNameError{Name: table, Reason: err.Error()}
	}
	return prefix + singular, nil
}

func singularWord(word string) (string, error) {
	if s, ok := irregulars[word]; ok {
		return s, nil
	}
	if uncountables[word] {
		return word, nil
	}

	switch {
	case len(word) > 3 && strings.HasSuffix(word, "ies"):
		return word[:len(word)-3] + "y", nil
	case hasAnySuffix(word, "sses", "xes", "ches", "shes", "zzes"):
		return word[:len(word)-2], nil
	case hasAnySuffix(word, "ves", "oes", "ses"):
		return "", fmt.Errorf("irregular plural ending of %q", word)
	case hasAnySuffix(word, "ss", "us", "is"):
		return "", fmt.Errorf("%q already looks singular", word)
	case len(word) > 1 && strings.HasSuffix(word, "s"):
		return word[:len(word)-1], nil
	}
	return "", fmt.Errorf("%q is not a plural", word)
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

// ForeignKeyName returns the conventional foreign key column for a reference
// name: "fancy_user" -> "fancy_user_id".
func ForeignKeyName(reference string) string {
	return reference + "_id"
}
