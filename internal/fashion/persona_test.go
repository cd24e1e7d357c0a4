package fashion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePersona(t *testing.T) {
	p, ok := ParsePersona("marin")
	assert.True(t, ok)
	assert.Equal(t, PersonaMarin, p.ID)

	p, ok = ParsePersona(" KURISU ")
	assert.True(t, ok)
	assert.Equal(t, PersonaKurisu, p.ID)

	p, ok = ParsePersona("")
	assert.False(t, ok)
	assert.Equal(t, DefaultPersona, p.ID)

	p, ok = ParsePersona("someone")
	assert.False(t, ok)
	assert.Equal(t, DefaultPersona, p.ID)
}

func TestPersonaExamplesAreSingleItem(t *testing.T) {
	for _, id := range []PersonaID{PersonaKurisu, PersonaMarin} {
		for _, ex := range MustPersona(id).Examples {
			assert.False(t, isCompoundQuery(ex.Query), "%s example %q", id, ex.Query)
		}
	}
}

func TestMustPersona_PanicsOnUnknown(t *testing.T) {
	assert.Panics(t, func() { MustPersona("nobody") })
}
