package order

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrInvalidSelection is returned when a meal is built with the wrong
	// number of entrees or from components the catalog does not offer.
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrNotFound is returned when an order line does not exist.
	ErrNotFound = errors.New("order line not found")
)

// MealKind identifies a multi-part meal.
type MealKind int

const (
	Bowl MealKind = iota + 1
	Plate
	BiggerPlate
)

var mealKinds = []MealKind{Bowl, Plate, BiggerPlate}

// Label is the name the meal carries on the menu and in display text.
func (k MealKind) Label() string {
	switch k {
	case Bowl:
		return "Bowl"
	case Plate:
		return "Plate"
	case BiggerPlate:
		return "Bigger Plate"
	default:
		return fmt.Sprintf("MealKind(%d)", int(k))
	}
}

// Slots is the number of entrees the meal requires.
func (k MealKind) Slots() int {
	switch k {
	case Bowl:
		return 1
	case Plate:
		return 2
	case BiggerPlate:
		return 3
	default:
		return 0
	}
}

func (k MealKind) String() string { return k.Label() }

// ParseMealKind accepts a menu label ("Bigger Plate") or its snake_case form
// ("bigger_plate").
func ParseMealKind(s string) (MealKind, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", " "))
	for _, k := range mealKinds {
		if strings.ToLower(k.Label()) == norm {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown meal kind %q", ErrInvalidSelection, s)
}

// Selection is what a cashier picked: either a bare menu item or a meal made
// of a base and an ordered list of entrees.
type Selection struct {
	meal    MealKind
	name    string
	base    string
	entrees []string
}

// Simple selects a single menu item by name.
func Simple(name string) Selection {
	return Selection{name: name}
}

// componentSep joins the parts of a meal's display name. Meal parts may not
// contain it, so Decode always recovers exactly what Encode was given.
const componentSep = ", "

// Meal builds a meal selection, checking the entree count for the kind.
func Meal(kind MealKind, base string, entrees ...string) (Selection, error) {
	if kind.Slots() == 0 {
		return Selection{}, fmt.Errorf("%w: unknown meal kind %d", ErrInvalidSelection, int(kind))
	}
	if len(entrees) != kind.Slots() {
		return Selection{}, fmt.Errorf("%w: %s takes %d entree(s), got %d",
			ErrInvalidSelection, kind.Label(), kind.Slots(), len(entrees))
	}
	if base == "" {
		return Selection{}, fmt.Errorf("%w: %s needs a base", ErrInvalidSelection, kind.Label())
	}
	if strings.Contains(base, componentSep) {
		return Selection{}, fmt.Errorf("%w: base %q contains %q", ErrInvalidSelection, base, componentSep)
	}
	for i, e := range entrees {
		if e == "" {
			return Selection{}, fmt.Errorf("%w: entree %d of %s is empty", ErrInvalidSelection, i+1, kind.Label())
		}
		if strings.Contains(e, componentSep) {
			return Selection{}, fmt.Errorf("%w: entree %q contains %q", ErrInvalidSelection, e, componentSep)
		}
	}
	return Selection{meal: kind, base: base, entrees: slices.Clone(entrees)}, nil
}

// IsMeal reports whether the selection is a composite meal.
func (s Selection) IsMeal() bool { return s.meal != 0 }

// MealKind returns the meal kind, or zero for a simple item.
func (s Selection) MealKind() MealKind { return s.meal }

// Base returns the meal base, or "" for a simple item.
func (s Selection) Base() string { return s.base }

// Entrees returns a copy of the meal entrees in selection order.
func (s Selection) Entrees() []string { return slices.Clone(s.entrees) }

// Components lists the menu items that make up the selection: the item
// itself, or the base followed by the entrees.
func (s Selection) Components() []string {
	if !s.IsMeal() {
		return []string{s.name}
	}
	out := make([]string, 0, len(s.entrees)+1)
	out = append(out, s.base)
	return append(out, s.entrees...)
}

// Equal compares kind, base and the entree sequence (order matters).
func (s Selection) Equal(o Selection) bool {
	return s.meal == o.meal &&
		s.name == o.name &&
		s.base == o.base &&
		slices.Equal(s.entrees, o.entrees)
}

// DisplayName renders the selection for receipts and the order table.
func (s Selection) DisplayName() string {
	if !s.IsMeal() {
		return s.name
	}
	return render(s.meal, s.base, s.entrees)
}

// Encode renders a meal as "<Label> (<base>, <entree1>, ...)".
func Encode(kind MealKind, base string, entrees []string) (string, error) {
	sel, err := Meal(kind, base, entrees...)
	if err != nil {
		return "", err
	}
	return sel.DisplayName(), nil
}

// Decode splits a display name back into its component menu item names.
// Names that do not carry a meal prefix come back as a single component.
// Catalog item names must never begin with "<Label> (".
func Decode(displayName string) []string {
	_, inner, ok := splitComposite(displayName)
	if !ok {
		return []string{displayName}
	}
	return strings.Split(inner, componentSep)
}

// ParseDisplayName turns display text from the presentation layer back into a
// Selection. A meal prefix with the wrong number of parts is rejected.
func ParseDisplayName(displayName string) (Selection, error) {
	kind, inner, ok := splitComposite(displayName)
	if !ok {
		return Simple(displayName), nil
	}
	parts := strings.Split(inner, componentSep)
	return Meal(kind, parts[0], parts[1:]...)
}

func render(kind MealKind, base string, entrees []string) string {
	var b strings.Builder
	b.WriteString(kind.Label())
	b.WriteString(" (")
	b.WriteString(base)
	for _, e := range entrees {
		b.WriteString(componentSep)
		b.WriteString(e)
	}
	b.WriteString(")")
	return b.String()
}

func splitComposite(displayName string) (MealKind, string, bool) {
	for _, k := range mealKinds {
		if !strings.HasPrefix(displayName, k.Label()+" (") {
			continue
		}
		start := strings.Index(displayName, "(")
		end := strings.LastIndex(displayName, ")")
		if end <= start || end != len(displayName)-1 {
			return 0, "", false
		}
		return k, displayName[start+1 : end], true
	}
	return 0, "", false
}
