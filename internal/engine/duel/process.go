package duel

import (
	"fmt"

	"github.com/jason-s-yu/cardlink/internal/engine"
	"github.com/jason-s-yu/cardlink/internal/models"
)

// Process applies one task. The history batch is replaced by the entries
// the task produced.
func (g *Game) Process(task engine.Task) error {
	switch g.step {
	case stepCreated:
		return ErrGameNotReady
	case stepComplete:
		return ErrGameOver
	}
	p := g.player(task.PlayerID)
	if p == nil {
		return fmt.Errorf("%w: unknown player %d", ErrIllegalTask, task.PlayerID)
	}
	g.history = nil

	switch task.Kind {
	case engine.TaskMulligan:
		return g.mulligan(p, task.Entities)
	case engine.TaskPick:
		return fmt.Errorf("%w: no pending pick", ErrIllegalTask)
	}

	if g.step != stepMain {
		return fmt.Errorf("%w: %s during mulligan", ErrIllegalTask, task.Kind)
	}
	if task.Kind == engine.TaskPass {
		return nil
	}
	if g.players[g.current] != p {
		return ErrNotYourTurn
	}

	var err error
	switch task.Kind {
	case engine.TaskEndTurn:
		g.endTurn()
	case engine.TaskPlayCard:
		err = g.playCard(p, task.Source, task.Position)
	case engine.TaskMinionAttack:
		err = g.minionAttack(p, task.Source, task.Target)
	case engine.TaskHeroPower:
		err = g.heroPower(p, task.Target)
	case engine.TaskHeroAttack:
		err = fmt.Errorf("%w: heroes have no attack", ErrIllegalTask)
	default:
		err = fmt.Errorf("%w: %s", ErrIllegalTask, task.Kind)
	}
	if err != nil {
		return err
	}
	g.checkDeaths()
	return nil
}

// mulligan keeps the selected cards and replaces the rest of the opening
// hand.
func (g *Game) mulligan(p *player, keep []int) error {
	if g.step != stepMulligan || p.choice == nil {
		return fmt.Errorf("%w: no pending mulligan", ErrIllegalTask)
	}
	offered := make(map[int]bool, len(p.choice.Entities))
	for _, id := range p.choice.Entities {
		offered[id] = true
	}
	kept := make(map[int]bool, len(keep))
	for _, id := range keep {
		if !offered[id] {
			return fmt.Errorf("%w: entity %d was not offered", ErrIllegalTask, id)
		}
		kept[id] = true
	}

	var hand, replaced []*entity
	for _, e := range p.hand {
		if kept[e.id] {
			hand = append(hand, e)
			continue
		}
		e.zone = engine.ZoneDeck
		replaced = append(replaced, e)
	}
	p.hand = hand
	for range replaced {
		g.draw(p)
	}
	p.deck = append(p.deck, replaced...)
	if g.cfg.Shuffle {
		g.rng.Shuffle(len(p.deck), func(a, b int) { p.deck[a], p.deck[b] = p.deck[b], p.deck[a] })
	}

	p.choice = nil
	p.mulliganDone = true
	g.record("TAG_CHANGE", p.hero.id, "MULLIGAN_STATE", 1)
	return nil
}

func (g *Game) endTurn() {
	g.record("TAG_CHANGE", g.players[g.current].hero.id, "END_TURN", g.turn)
	g.current = 1 - g.current
	g.turn++
	if g.turn > MaxTurns {
		g.finish(engine.PlayStateTied, engine.PlayStateTied)
		return
	}
	g.beginTurn(g.players[g.current])
}

func (g *Game) playCard(p *player, source, position int) error {
	idx := -1
	for i, e := range p.hand {
		if e.id == source {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: entity %d not in hand", ErrIllegalTask, source)
	}
	e := p.hand[idx]
	if e.card.Cost > p.mana {
		return fmt.Errorf("%w: not enough mana", ErrIllegalTask)
	}
	if len(p.board) >= BoardLimit {
		return fmt.Errorf("%w: board is full", ErrIllegalTask)
	}
	p.hand = append(p.hand[:idx], p.hand[idx+1:]...)
	p.mana -= e.card.Cost

	if position < 0 || position > len(p.board) {
		position = len(p.board)
	}
	p.board = append(p.board, nil)
	copy(p.board[position+1:], p.board[position:])
	p.board[position] = e

	e.zone = engine.ZonePlay
	e.exhausted = true
	g.record("TAG_CHANGE", p.hero.id, "RESOURCES", p.mana)
	g.record("TAG_CHANGE", e.id, "ZONE", int(engine.ZonePlay))
	return nil
}

func (g *Game) minionAttack(p *player, source, target int) error {
	attacker, ok := g.entities[source]
	if !ok || attacker.controller != p.id || attacker.zone != engine.ZonePlay || attacker.typ != engine.CardMinion {
		return fmt.Errorf("%w: %d cannot attack", ErrIllegalTask, source)
	}
	if attacker.exhausted || attacker.attacked {
		return fmt.Errorf("%w: %d is exhausted", ErrIllegalTask, source)
	}
	defender, err := g.enemyCharacter(p, target)
	if err != nil {
		return err
	}
	attacker.attacked = true
	g.record("BLOCK_START", attacker.id, "ATTACK", defender.id)
	g.damage(defender, attacker.attack)
	g.damage(attacker, defender.attack)
	return nil
}

func (g *Game) heroPower(p *player, target int) error {
	if p.heroPowerUsed {
		return fmt.Errorf("%w: hero power already used", ErrIllegalTask)
	}
	if p.mana < HeroPowerCost {
		return fmt.Errorf("%w: not enough mana", ErrIllegalTask)
	}
	if target == 0 {
		target = g.opponent(p).hero.id
	}
	defender, err := g.enemyCharacter(p, target)
	if err != nil {
		return err
	}
	p.mana -= HeroPowerCost
	p.heroPowerUsed = true
	g.record("BLOCK_START", p.heroPower.id, "POWER", defender.id)
	g.record("TAG_CHANGE", p.hero.id, "RESOURCES", p.mana)
	g.damage(defender, 1)
	return nil
}

func (g *Game) enemyCharacter(p *player, id int) (*entity, error) {
	e, ok := g.entities[id]
	if !ok || e.controller == p.id || e.zone != engine.ZonePlay {
		return nil, fmt.Errorf("%w: invalid target %d", ErrIllegalTask, id)
	}
	if e.typ != engine.CardHero && e.typ != engine.CardMinion {
		return nil, fmt.Errorf("%w: invalid target %d", ErrIllegalTask, id)
	}
	return e, nil
}

func (g *Game) enemyTargets(p *player) []int {
	op := g.opponent(p)
	targets := []int{op.hero.id}
	for _, m := range op.board {
		targets = append(targets, m.id)
	}
	return targets
}

// Options lists the current player's legal actions. Everyone else gets an
// empty set.
func (g *Game) Options(playerID int) models.PowerOptions {
	g.index++
	opts := models.PowerOptions{Index: g.index}
	p := g.player(playerID)
	if p == nil || g.step != stepMain || g.players[g.current] != p {
		return opts
	}

	list := []models.PowerOption{{OptionType: models.OptionEndTurn}}
	if len(p.board) < BoardLimit {
		for _, e := range p.hand {
			if e.card.Cost <= p.mana {
				list = append(list, models.PowerOption{
					OptionType: models.OptionPower,
					MainOption: &models.PowerSubOption{EntityID: e.id},
				})
			}
		}
	}
	targets := g.enemyTargets(p)
	for _, m := range p.board {
		if !m.exhausted && !m.attacked {
			list = append(list, models.PowerOption{
				OptionType: models.OptionPower,
				MainOption: &models.PowerSubOption{EntityID: m.id, Targets: targets},
			})
		}
	}
	if !p.heroPowerUsed && p.mana >= HeroPowerCost {
		list = append(list, models.PowerOption{
			OptionType: models.OptionPower,
			MainOption: &models.PowerSubOption{EntityID: p.heroPower.id, Targets: targets},
		})
	}
	opts.PowerOptionList = list
	return opts
}

func (g *Game) Choice(playerID int) *models.PowerChoices {
	p := g.player(playerID)
	if p == nil || p.choice == nil {
		return nil
	}
	c := *p.choice
	c.Entities = append([]int(nil), p.choice.Entities...)
	return &c
}

func (g *Game) History() []models.HistoryEntry {
	return append([]models.HistoryEntry(nil), g.history...)
}

func (g *Game) State() engine.State { return g.state }

func (g *Game) Turn() int { return g.turn }

func (g *Game) CurrentPlayer() int {
	if g.step != stepMain {
		return 0
	}
	return g.players[g.current].id
}

func (g *Game) PlayState(playerID int) engine.PlayState {
	if p := g.player(playerID); p != nil {
		return p.playState
	}
	return engine.PlayStatePlaying
}

func (g *Game) Entity(id int) (engine.Entity, bool) {
	e, ok := g.entities[id]
	if !ok {
		return engine.Entity{}, false
	}
	out := engine.Entity{ID: e.id, Controller: e.controller, Zone: e.zone, Type: e.typ}
	if e.card != nil {
		out.CardID = e.card.ID
	}
	return out, true
}

// Health returns the remaining health of a player's hero.
func (g *Game) Health(playerID int) int {
	if p := g.player(playerID); p != nil {
		return p.hero.health
	}
	return 0
}

// Close releases the game. Any further Process call fails.
func (g *Game) Close() {
	if g.state != engine.StateComplete {
		g.step = stepComplete
		g.state = engine.StateComplete
	}
	g.entities = map[int]*entity{}
}
