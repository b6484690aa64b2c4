package ord

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRarity(t *testing.T) {
	assert.Equal(t, Mythic, Ordinal(0).Rarity())
	assert.Equal(t, Common, Ordinal(1).Rarity())

	// First ordinal of a block.
	assert.Equal(t, Uncommon, Ordinal(50*CoinValue).Rarity())
	assert.Equal(t, Common, Ordinal(50*CoinValue-1).Rarity())
	assert.Equal(t, Common, Ordinal(50*CoinValue+1).Rarity())

	// First ordinal of a difficulty period.
	assert.Equal(t, Epic, Height(DiffChangeInterval).StartingOrdinal().Rarity())
	assert.Equal(t, Common, (Height(DiffChangeInterval).StartingOrdinal() + 1).Rarity())

	// First ordinal of a halving epoch.
	assert.Equal(t, Rare, Epoch(1).StartingOrdinal().Rarity())
	assert.Equal(t, Common, (Epoch(1).StartingOrdinal() + 1).Rarity())

	// First ordinal of a cycle.
	assert.Equal(t, Legendary, Epoch(6).StartingOrdinal().Rarity())
	assert.Equal(t, Common, (Epoch(6).StartingOrdinal() + 1).Rarity())
}

func TestRarityOrdering(t *testing.T) {
	assert.Less(t, Common, Uncommon)
	assert.Less(t, Uncommon, Rare)
	assert.Less(t, Rare, Epic)
	assert.Less(t, Epic, Legendary)
	assert.Less(t, Legendary, Mythic)
}

func TestIsCommon(t *testing.T) {
	for _, n := range []Ordinal{0, 1, Ordinal(50 * CoinValue), Ordinal(50*CoinValue + 1), Epoch(1).StartingOrdinal(), Last} {
		assert.Equal(t, n.Rarity() == Common, n.IsCommon(), n)
	}
}

func TestRarityText(t *testing.T) {
	for r := Common; r <= Mythic; r++ {
		parsed, err := ParseRarity(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, parsed)
	}
	_, err := ParseRarity("shiny")
	assert.ErrorIs(t, err, ErrInvalidRarity)

	b, err := json.Marshal(struct {
		Rarity Rarity `json:"rarity"`
	}{Epic})
	require.NoError(t, err)
	assert.JSONEq(t, `{"rarity":"epic"}`, string(b))

	var r Rarity
	require.NoError(t, json.Unmarshal([]byte(`"legendary"`), &r))
	assert.Equal(t, Legendary, r)
}
