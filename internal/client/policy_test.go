package client

import (
	"testing"

	"github.com/jason-s-yu/cardlink/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomPolicyPicksOfferedOptions(t *testing.T) {
	p := NewRandomPolicy(7)
	options := []models.PowerOption{
		{OptionType: models.OptionEndTurn},
		{OptionType: models.OptionPower, MainOption: &models.PowerSubOption{EntityID: 5, Targets: []int{33, 40}}},
		{OptionType: models.OptionPower, MainOption: &models.PowerSubOption{EntityID: 6}, SubOptions: []models.PowerSubOption{{EntityID: 60}, {EntityID: 61}}},
	}

	seen := map[models.OptionType]bool{}
	for i := 0; i < 200; i++ {
		choice := p.PowerOptions(options)
		require.NotNil(t, choice)
		seen[choice.PowerOption.OptionType] = true

		if main := choice.PowerOption.MainOption; main != nil && main.EntityID == 5 {
			assert.Contains(t, []int{33, 40}, choice.Target)
		} else {
			assert.Zero(t, choice.Target)
		}
		assert.GreaterOrEqual(t, choice.SubOption, 0)
		assert.Less(t, choice.SubOption, 2)
	}
	assert.True(t, seen[models.OptionEndTurn])
	assert.True(t, seen[models.OptionPower])

	assert.Nil(t, p.PowerOptions(nil))
}

func TestRandomPolicyChoices(t *testing.T) {
	p := NewRandomPolicy(7)

	reply := p.PowerChoices(models.PowerChoices{Index: 2, ChoiceType: models.ChoiceGeneral, Entities: []int{8, 9}})
	require.NotNil(t, reply)
	assert.Equal(t, 2, reply.Index)
	assert.Equal(t, models.ChoiceGeneral, reply.ChoiceType)
	require.Len(t, reply.Entities, 1)
	assert.Contains(t, []int{8, 9}, reply.Entities[0])

	reply = p.PowerChoices(models.PowerChoices{ChoiceType: models.ChoiceMulligan})
	require.NotNil(t, reply)
	assert.NotNil(t, reply.Entities)
	assert.Empty(t, reply.Entities)
}

func TestRandomPolicyIsSeeded(t *testing.T) {
	options := []models.PowerOption{{OptionType: models.OptionEndTurn}, {OptionType: models.OptionPass}, {OptionType: models.OptionPower}}
	a, b := NewRandomPolicy(3), NewRandomPolicy(3)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.PowerOptions(options), b.PowerOptions(options))
	}
}
