// Package duel is a small deterministic two-hero card game implementing the
// engine boundary. Heroes start at 30 health, mana grows by one crystal a
// turn up to ten, minions are the only cards and each hero power deals one
// damage for two mana.
package duel

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/jason-s-yu/cardlink/internal/engine"
	"github.com/jason-s-yu/cardlink/internal/models"
)

const (
	HeroHealth    = 30
	MaxMana       = 10
	DeckSize      = 30
	HandLimit     = 10
	BoardLimit    = 7
	HeroPowerCost = 2
	// MaxTurns ends the game in a draw.
	MaxTurns = 90
)

var (
	ErrGameOver     = errors.New("game is over")
	ErrNotYourTurn  = errors.New("not the player's turn")
	ErrIllegalTask  = errors.New("illegal task")
	ErrUnknownCard  = errors.New("unknown card id")
	ErrGameNotReady = errors.New("game not started")
)

type step int

const (
	stepCreated step = iota
	stepMulligan
	stepMain
	stepComplete
)

type entity struct {
	id         int
	controller int
	zone       engine.Zone
	typ        engine.CardType
	card       *Card
	attack     int
	health     int
	exhausted  bool
	attacked   bool
}

type player struct {
	id            int
	name          string
	hero          *entity
	heroPower     *entity
	heroPowerUsed bool
	deck          []*entity
	hand          []*entity
	board         []*entity
	mana          int
	maxMana       int
	fatigue       int
	mulliganDone  bool
	choice        *models.PowerChoices
	playState     engine.PlayState
}

// Game is one duel. It is not safe for concurrent use.
type Game struct {
	cfg      models.GameConfigInfo
	rng      *rand.Rand
	entities map[int]*entity
	nextID   int
	players  [2]*player
	current  int
	turn     int
	step     step
	state    engine.State
	history  []models.HistoryEntry
	index    int
}

// Factory creates duels.
var Factory = engine.FactoryFunc(func(p1, p2 models.UserInfo, cfg models.GameConfigInfo) (engine.Game, error) {
	return New(p1, p2, cfg)
})

// New builds a duel between p1 and p2. DeckData is a comma separated list of
// card ids; with FillDecks short decks are topped up with random cards.
func New(p1, p2 models.UserInfo, cfg models.GameConfigInfo) (*Game, error) {
	g := &Game{
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(cfg.RandomSeed)),
		entities: make(map[int]*entity),
		nextID:   1,
	}
	for i, info := range []models.UserInfo{p1, p2} {
		p := &player{id: i + 1, name: info.AccountName}
		p.hero = g.newEntity(p.id, engine.ZonePlay, engine.CardHero, nil)
		p.hero.health = HeroHealth
		p.heroPower = g.newEntity(p.id, engine.ZonePlay, engine.CardHeroPower, nil)

		ids, err := parseDeck(info.DeckData)
		if err != nil {
			return nil, fmt.Errorf("player %d deck: %w", p.id, err)
		}
		if cfg.FillDecks {
			all := CardIDs()
			for len(ids) < DeckSize {
				ids = append(ids, all[g.rng.Intn(len(all))])
			}
		}
		for _, id := range ids {
			c, _ := LookupCard(id)
			e := g.newEntity(p.id, engine.ZoneDeck, engine.CardMinion, c)
			p.deck = append(p.deck, e)
		}
		if cfg.Shuffle {
			g.rng.Shuffle(len(p.deck), func(a, b int) { p.deck[a], p.deck[b] = p.deck[b], p.deck[a] })
		}
		g.players[i] = p
	}
	return g, nil
}

func parseDeck(data string) ([]string, error) {
	var ids []string
	for _, part := range strings.Split(data, ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		if _, ok := LookupCard(id); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCard, id)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (g *Game) newEntity(controller int, zone engine.Zone, typ engine.CardType, c *Card) *entity {
	e := &entity{id: g.nextID, controller: controller, zone: zone, typ: typ, card: c}
	if c != nil {
		e.attack = c.Attack
		e.health = c.Health
	}
	g.entities[e.id] = e
	g.nextID++
	return e
}

func (g *Game) player(id int) *player {
	if id < 1 || id > 2 {
		return nil
	}
	return g.players[id-1]
}

func (g *Game) opponent(p *player) *player {
	return g.players[2-p.id]
}

func (g *Game) record(typ string, entityID int, tag string, value int) {
	if !g.cfg.History {
		return
	}
	g.history = append(g.history, models.HistoryEntry{Type: typ, EntityID: entityID, Tag: tag, Value: value})
}

func (g *Game) recordCard(e *entity) {
	if !g.cfg.History {
		return
	}
	entry := models.HistoryEntry{Type: "FULL_ENTITY", EntityID: e.id, Tag: "ZONE", Value: int(e.zone)}
	if e.card != nil {
		entry.CardID = e.card.ID
	}
	g.history = append(g.history, entry)
}

// StartGame deals opening hands and either opens the mulligan or, with
// SkipMulligan, begins the first turn.
func (g *Game) StartGame() error {
	if g.step != stepCreated {
		return fmt.Errorf("%w: already started", ErrIllegalTask)
	}
	g.history = nil
	for _, p := range g.players {
		g.recordCard(p.hero)
		g.recordCard(p.heroPower)
	}
	for i := 0; i < 3; i++ {
		g.draw(g.players[0])
	}
	for i := 0; i < 4; i++ {
		g.draw(g.players[1])
	}
	if g.cfg.SkipMulligan {
		g.players[0].mulliganDone = true
		g.players[1].mulliganDone = true
		g.beginMain()
		return nil
	}
	g.step = stepMulligan
	g.record("TAG_CHANGE", 0, "STEP", int(stepMulligan))
	for _, p := range g.players {
		g.index++
		p.choice = &models.PowerChoices{Index: g.index, ChoiceType: models.ChoiceMulligan, Entities: entityIDs(p.hand)}
	}
	return nil
}

func entityIDs(es []*entity) []int {
	ids := make([]int, len(es))
	for i, e := range es {
		ids[i] = e.id
	}
	return ids
}

func (g *Game) MulliganComplete() bool {
	return g.step == stepMulligan && g.players[0].mulliganDone && g.players[1].mulliganDone
}

func (g *Game) MainBegin() error {
	if !g.MulliganComplete() {
		return fmt.Errorf("%w: mulligan not complete", ErrIllegalTask)
	}
	g.beginMain()
	return nil
}

func (g *Game) beginMain() {
	g.step = stepMain
	g.record("TAG_CHANGE", 0, "STEP", int(stepMain))
	g.current = 0
	g.turn = 1
	g.beginTurn(g.players[0])
}

func (g *Game) beginTurn(p *player) {
	g.record("TAG_CHANGE", 0, "TURN", g.turn)
	if p.maxMana < MaxMana {
		p.maxMana++
	}
	p.mana = p.maxMana
	p.heroPowerUsed = false
	g.record("TAG_CHANGE", p.hero.id, "RESOURCES", p.mana)
	for _, m := range p.board {
		m.exhausted = false
		m.attacked = false
	}
	g.draw(p)
	g.checkDeaths()
}

func (g *Game) draw(p *player) {
	if len(p.deck) == 0 {
		p.fatigue++
		g.damage(p.hero, p.fatigue)
		g.record("TAG_CHANGE", p.hero.id, "FATIGUE", p.fatigue)
		return
	}
	e := p.deck[0]
	p.deck = p.deck[1:]
	if len(p.hand) >= HandLimit {
		e.zone = engine.ZoneGraveyard
		g.recordCard(e)
		return
	}
	e.zone = engine.ZoneHand
	p.hand = append(p.hand, e)
	g.recordCard(e)
}

func (g *Game) damage(e *entity, amount int) {
	if amount <= 0 {
		return
	}
	e.health -= amount
	g.record("TAG_CHANGE", e.id, "DAMAGE", amount)
}

func (g *Game) checkDeaths() {
	for _, p := range g.players {
		alive := p.board[:0]
		for _, m := range p.board {
			if m.health > 0 {
				alive = append(alive, m)
				continue
			}
			m.zone = engine.ZoneGraveyard
			g.record("TAG_CHANGE", m.id, "ZONE", int(engine.ZoneGraveyard))
		}
		p.board = alive
	}

	dead1 := g.players[0].hero.health <= 0
	dead2 := g.players[1].hero.health <= 0
	switch {
	case dead1 && dead2:
		g.finish(engine.PlayStateTied, engine.PlayStateTied)
	case dead1:
		g.finish(engine.PlayStateLost, engine.PlayStateWon)
	case dead2:
		g.finish(engine.PlayStateWon, engine.PlayStateLost)
	}
}

func (g *Game) finish(ps1, ps2 engine.PlayState) {
	if g.state == engine.StateComplete {
		return
	}
	g.players[0].playState = ps1
	g.players[1].playState = ps2
	g.players[0].choice = nil
	g.players[1].choice = nil
	g.step = stepComplete
	g.state = engine.StateComplete
	g.record("TAG_CHANGE", g.players[0].hero.id, "PLAYSTATE", int(ps1))
	g.record("TAG_CHANGE", g.players[1].hero.id, "PLAYSTATE", int(ps2))
}
