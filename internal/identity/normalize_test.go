package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want string
	}{
		{"Joe's Pizza", "joe pizza"},
		{"Joe’s Pizza", "joe pizza"},
		{"The Restaurant NYC", ""},
		{"  Carbone  ", "carbone"},
		{"Via Carota NY", "via carota"},
		{"New York Sushi Ko", "new york sushi ko"}, // token-by-token removal: "new york" survives
	} {
		assert.Equal(t, tc.want, NormalizeName(tc.in), tc.in)
	}
}

func TestNormalizeName_Idempotent(t *testing.T) {
	for _, in := range []string{"Joe's Pizza", "The Restaurant NYC", "Lilia"} {
		once := NormalizeName(in)
		assert.Equal(t, once, NormalizeName(once), in)
	}
}

func TestNamesMatch_Bidirectional(t *testing.T) {
	// Candidate contains source.
	assert.True(t, NamesMatch("Lilia", "Lilia Ristorante"))
	// Source contains candidate.
	assert.True(t, NamesMatch("Lilia Ristorante", "Lilia"))
	assert.False(t, NamesMatch("Lilia", "Misi"))
}

func TestNamesMatch_EmptyNormalizedMatchesTrivially(t *testing.T) {
	assert.True(t, NamesMatch("The Restaurant NYC", "Anything At All"))
}

func TestStreetNumber(t *testing.T) {
	n, ok := StreetNumber("171 E Broadway, New York")
	assert.True(t, ok)
	assert.Equal(t, "171", n)

	_, ok = StreetNumber("Pier 17, South Street")
	assert.False(t, ok, "number must be leading")

	_, ok = StreetNumber("")
	assert.False(t, ok)
}

func TestAddressCompatible(t *testing.T) {
	assert.True(t, AddressCompatible("171 E Broadway", "171 East Broadway, NY"))
	assert.False(t, AddressCompatible("171 E Broadway", "42 E Broadway"))
	// Missing number on either side is non-disqualifying.
	assert.True(t, AddressCompatible("E Broadway", "42 E Broadway"))
	assert.True(t, AddressCompatible("171 E Broadway", "Lower East Side"))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "joes-pizza", Slugify("Joe's Pizza"))
	assert.Equal(t, "don-angie", Slugify("Don Angie"))
	assert.Equal(t, "4-charles-prime-rib", Slugify("4 Charles Prime Rib"))
}

func TestSlugCandidates(t *testing.T) {
	assert.Equal(t, []string{"lilia", "lilia-new-york"}, SlugCandidates("Lilia", "new-york"))
	assert.Equal(t, []string{"lilia"}, SlugCandidates("Lilia", ""))
	assert.Nil(t, SlugCandidates("", "new-york"))
}
