package order

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	name, err := Encode(Plate, "Chow Mein", []string{"Orange Chicken", "Beijing Beef"})
	require.NoError(t, err)
	assert.Equal(t, "Plate (Chow Mein, Orange Chicken, Beijing Beef)", name)

	name, err = Encode(BiggerPlate, "Fried Rice", []string{"A", "B", "C"})
	require.NoError(t, err)
	assert.Equal(t, "Bigger Plate (Fried Rice, A, B, C)", name)
}

func TestEncode_WrongEntreeCount(t *testing.T) {
	_, err := Encode(Bowl, "Fried Rice", []string{"Orange Chicken", "Beijing Beef"})
	assert.ErrorIs(t, err, ErrInvalidSelection)

	_, err = Encode(BiggerPlate, "Fried Rice", nil)
	assert.ErrorIs(t, err, ErrInvalidSelection)

	_, err = Encode(MealKind(9), "Fried Rice", []string{"x"})
	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"bowl", "Bowl (Fried Rice, Orange Chicken)", []string{"Fried Rice", "Orange Chicken"}},
		{"bigger plate", "Bigger Plate (Super Greens, A, B, C)", []string{"Super Greens", "A", "B", "C"}},
		{"simple", "Veggie Spring Roll", []string{"Veggie Spring Roll"}},
		{"label without paren", "Bowling Ball", []string{"Bowling Ball"}},
		{"unterminated", "Plate (Chow Mein, A", []string{"Plate (Chow Mein, A"}},
		{"empty", "", []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(tt.in))
		})
	}
}

func TestParseDisplayName(t *testing.T) {
	sel, err := ParseDisplayName("Plate (Chow Mein, Orange Chicken, Beijing Beef)")
	require.NoError(t, err)
	assert.True(t, sel.IsMeal())
	assert.Equal(t, Plate, sel.MealKind())
	assert.Equal(t, "Chow Mein", sel.Base())
	assert.Equal(t, []string{"Orange Chicken", "Beijing Beef"}, sel.Entrees())

	sel, err = ParseDisplayName("Chicken Egg Roll")
	require.NoError(t, err)
	assert.False(t, sel.IsMeal())
	assert.Equal(t, []string{"Chicken Egg Roll"}, sel.Components())

	_, err = ParseDisplayName("Plate (Chow Mein, Orange Chicken)")
	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func TestParseMealKind(t *testing.T) {
	k, err := ParseMealKind("Bigger Plate")
	require.NoError(t, err)
	assert.Equal(t, BiggerPlate, k)

	k, err = ParseMealKind("bigger_plate")
	require.NoError(t, err)
	assert.Equal(t, BiggerPlate, k)

	_, err = ParseMealKind("Family Feast")
	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func TestSelectionEqual_OrderSensitive(t *testing.T) {
	a, err := Meal(Plate, "Fried Rice", "Orange Chicken", "Beijing Beef")
	require.NoError(t, err)
	b, err := Meal(Plate, "Fried Rice", "Beijing Beef", "Orange Chicken")
	require.NoError(t, err)
	c, err := Meal(Plate, "Fried Rice", "Orange Chicken", "Beijing Beef")
	require.NoError(t, err)

	assert.False(t, a.Equal(b))
	assert.True(t, a.Equal(c))
	assert.False(t, Simple("Fried Rice").Equal(a))
}

func TestMeal_CopiesEntrees(t *testing.T) {
	entrees := []string{"Orange Chicken", "Beijing Beef"}
	sel, err := Meal(Plate, "Fried Rice", entrees...)
	require.NoError(t, err)

	entrees[0] = "Mushroom Chicken"
	assert.Equal(t, "Plate (Fried Rice, Orange Chicken, Beijing Beef)", sel.DisplayName())

	got := sel.Entrees()
	got[1] = "Kung Pao"
	assert.Equal(t, []string{"Orange Chicken", "Beijing Beef"}, sel.Entrees())
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	// Names drawn from an alphabet that includes the separator characters and
	// parentheses, so some of them contain ", ".
	name := gen.RegexMatch(`[a-c ,()]{1,6}`)

	properties.Property("encode accepts exactly the parts decode can recover", prop.ForAll(
		func(kindIdx int, base string, pool []string) bool {
			kind := mealKinds[kindIdx]
			entrees := pool[:kind.Slots()]

			enc, err := Encode(kind, base, entrees)
			want := append([]string{base}, entrees...)
			if slices.ContainsFunc(want, func(p string) bool { return strings.Contains(p, ", ") }) {
				return errors.Is(err, ErrInvalidSelection)
			}
			if err != nil {
				return false
			}
			if !slices.Equal(Decode(enc), want) {
				return false
			}

			sel, err := ParseDisplayName(enc)
			return err == nil && sel.DisplayName() == enc
		},
		gen.IntRange(0, len(mealKinds)-1),
		name,
		gen.SliceOfN(3, name),
	))

	properties.TestingRun(t)
}

func TestMeal_RejectsSeparatorInParts(t *testing.T) {
	_, err := Encode(Bowl, "Fried Rice", []string{"Honey Walnut, Shrimp"})
	assert.ErrorIs(t, err, ErrInvalidSelection)

	_, err = Meal(Plate, "Rice, Noodles", "Orange Chicken", "Beijing Beef")
	assert.ErrorIs(t, err, ErrInvalidSelection)

	sel, err := Meal(Bowl, "Fried Rice", "Honey Walnut,Shrimp")
	require.NoError(t, err)
	assert.Equal(t, []string{"Fried Rice", "Honey Walnut,Shrimp"}, Decode(sel.DisplayName()))
}
