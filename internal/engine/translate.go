package engine

import (
	"errors"
	"fmt"

	"github.com/jason-s-yu/cardlink/internal/models"
)

var (
	ErrUnknownOption = errors.New("unknown option type")
	ErrUnknownChoice = errors.New("unknown choice type")
	ErrUnknownEntity = errors.New("unknown entity")
)

// OptionTask maps a player's option pick to an engine task.
func OptionTask(g Game, playerID int, choice models.PowerOptionChoice) (Task, error) {
	opt := choice.PowerOption
	switch opt.OptionType {
	case models.OptionEndTurn:
		return Task{Kind: TaskEndTurn, PlayerID: playerID}, nil

	case models.OptionPass:
		return Task{Kind: TaskPass, PlayerID: playerID}, nil

	case models.OptionPower:
		if opt.MainOption == nil {
			return Task{}, fmt.Errorf("power option without main option")
		}
		source, ok := g.Entity(opt.MainOption.EntityID)
		if !ok {
			return Task{}, fmt.Errorf("%w: source %d", ErrUnknownEntity, opt.MainOption.EntityID)
		}
		if choice.Target > 0 {
			if _, ok := g.Entity(choice.Target); !ok {
				return Task{}, fmt.Errorf("%w: target %d", ErrUnknownEntity, choice.Target)
			}
		}
		task := Task{
			PlayerID:  playerID,
			Source:    source.ID,
			Target:    choice.Target,
			Position:  choice.Position,
			SubOption: choice.SubOption,
		}
		switch {
		case source.Zone == ZonePlay && source.Type == CardMinion:
			task.Kind = TaskMinionAttack
		case source.Type == CardHero && choice.Target > 0:
			task.Kind = TaskHeroAttack
		case source.Type == CardHeroPower:
			task.Kind = TaskHeroPower
		default:
			task.Kind = TaskPlayCard
		}
		return task, nil

	default:
		return Task{}, fmt.Errorf("%w: %d", ErrUnknownOption, int(opt.OptionType))
	}
}

// ChoiceTask maps a player's answer to a forced selection to an engine task.
func ChoiceTask(playerID int, choices models.PowerChoices) (Task, error) {
	switch choices.ChoiceType {
	case models.ChoiceMulligan:
		return Task{Kind: TaskMulligan, PlayerID: playerID, Entities: append([]int(nil), choices.Entities...)}, nil
	case models.ChoiceGeneral:
		if len(choices.Entities) == 0 {
			return Task{}, fmt.Errorf("pick without an entity")
		}
		return Task{Kind: TaskPick, PlayerID: playerID, Entities: []int{choices.Entities[0]}}, nil
	default:
		return Task{}, fmt.Errorf("%w: %s", ErrUnknownChoice, choices.ChoiceType)
	}
}
