package ledger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActorArrayThreeElements(t *testing.T) {
	actor, err := ParseActor(json.RawMessage(`["LeadBundle", "Lead", 42]`))
	require.NoError(t, err)

	resolved := actor.Resolve(nil)
	require.NotNil(t, resolved.BundleName)
	require.NotNil(t, resolved.ClassName)
	require.NotNil(t, resolved.ObjectID)
	assert.Equal(t, "LeadBundle", *resolved.BundleName)
	assert.Equal(t, "Lead", *resolved.ClassName)
	assert.Equal(t, int64(42), *resolved.ObjectID)
}

func TestParseActorArrayTwoElementsInfersBundle(t *testing.T) {
	reg := NewTypeRegistry(
		`Host\CoreBundle\Entity\User`,
		`Host\CampaignBundle\Entity\Campaign`,
	)

	actor, err := ParseActor(json.RawMessage(`["Campaign", 7]`))
	require.NoError(t, err)

	resolved := actor.Resolve(reg)
	require.NotNil(t, resolved.BundleName)
	assert.Equal(t, "CampaignBundle", *resolved.BundleName)
	assert.Equal(t, "Campaign", *resolved.ClassName)
	assert.Equal(t, int64(7), *resolved.ObjectID)
}

func TestParseActorArrayTwoElementsNoRegistry(t *testing.T) {
	actor, err := ParseActor(json.RawMessage(`["Campaign", 7]`))
	require.NoError(t, err)

	resolved := actor.Resolve(nil)
	assert.Nil(t, resolved.BundleName)
	assert.Equal(t, "Campaign", *resolved.ClassName)
}

func TestParseActorArrayStringID(t *testing.T) {
	actor, err := ParseActor(json.RawMessage(`["SourceBundle", "ContactSource", "19"]`))
	require.NoError(t, err)

	resolved := actor.Resolve(nil)
	assert.Equal(t, int64(19), *resolved.ObjectID)
}

func TestParseActorArrayTooShort(t *testing.T) {
	_, err := ParseActor(json.RawMessage(`[42]`))
	assert.ErrorIs(t, err, ErrInvalidActor)
}

func TestParseActorEmptyInputs(t *testing.T) {
	for _, raw := range []string{``, `null`, `[]`} {
		actor, err := ParseActor(json.RawMessage(raw))
		require.NoError(t, err, "raw %q", raw)
		assert.Nil(t, actor, "raw %q", raw)
	}
}

func TestParseActorObjectForm(t *testing.T) {
	actor, err := ParseActor(json.RawMessage(`{"type": "Foo\\BarBundle\\Baz", "id": 7}`))
	require.NoError(t, err)

	resolved := actor.Resolve(nil)
	require.NotNil(t, resolved.BundleName)
	require.NotNil(t, resolved.ClassName)
	require.NotNil(t, resolved.ObjectID)
	assert.Equal(t, "BarBundle", *resolved.BundleName)
	assert.Equal(t, "Baz", *resolved.ClassName)
	assert.Equal(t, int64(7), *resolved.ObjectID)
}

func TestParseActorObjectFormSlashSeparators(t *testing.T) {
	actor, err := ParseActor(json.RawMessage(`{"type": "Foo/BarBundle/Baz", "id": 3}`))
	require.NoError(t, err)

	resolved := actor.Resolve(nil)
	assert.Equal(t, "BarBundle", *resolved.BundleName)
	assert.Equal(t, "Baz", *resolved.ClassName)
}

func TestParseActorObjectTypeWithoutBundleSegment(t *testing.T) {
	actor, err := ParseActor(json.RawMessage(`{"type": "Plain", "id": 9}`))
	require.NoError(t, err)

	resolved := actor.Resolve(nil)
	assert.Nil(t, resolved.BundleName)
	assert.Equal(t, "Plain", *resolved.ClassName)
}

func TestParseActorObjectExplicitFields(t *testing.T) {
	actor, err := ParseActor(json.RawMessage(`{"bundle": "EnhancerBundle", "class": "Enhancer", "id": 5}`))
	require.NoError(t, err)

	resolved := actor.Resolve(nil)
	assert.Equal(t, "EnhancerBundle", *resolved.BundleName)
	assert.Equal(t, "Enhancer", *resolved.ClassName)
	assert.Equal(t, int64(5), *resolved.ObjectID)
}

func TestParseActorObjectMissingID(t *testing.T) {
	_, err := ParseActor(json.RawMessage(`{"type": "Foo\\BarBundle\\Baz"}`))
	assert.ErrorIs(t, err, ErrInvalidActor)
}

func TestTypeRegistryInferFirstMatchWins(t *testing.T) {
	reg := NewTypeRegistry(
		`Host\FirstBundle\Entity\Thing`,
		`Host\SecondBundle\Entity\Thing`,
	)

	bundle, ok := reg.Infer("Thing")
	require.True(t, ok)
	assert.Equal(t, "FirstBundle", bundle)
}

func TestTypeRegistrySkipsNamesWithoutBundleSegment(t *testing.T) {
	reg := NewTypeRegistry(
		`Host\Core\Entity\Thing`,
		`Host\ThingBundle\Entity\Thing`,
	)

	bundle, ok := reg.Infer("Thing")
	require.True(t, ok)
	assert.Equal(t, "ThingBundle", bundle)
}

func TestTypeRegistryInferUnknownClass(t *testing.T) {
	reg := NewTypeRegistry(`Host\CoreBundle\Entity\User`)

	_, ok := reg.Infer("Nope")
	assert.False(t, ok)
}
