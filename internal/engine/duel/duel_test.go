package duel

import (
	"testing"

	"github.com/jason-s-yu/cardlink/internal/engine"
	"github.com/jason-s-yu/cardlink/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func players() (models.UserInfo, models.UserInfo) {
	return models.UserInfo{AccountName: "alice", PlayerID: 1}, models.UserInfo{AccountName: "bob", PlayerID: 2}
}

func newGame(t *testing.T, cfg models.GameConfigInfo) *Game {
	t.Helper()
	p1, p2 := players()
	g, err := New(p1, p2, cfg)
	require.NoError(t, err)
	return g
}

func filled(skipMulligan bool) models.GameConfigInfo {
	return models.GameConfigInfo{SkipMulligan: skipMulligan, Shuffle: true, FillDecks: true, History: true, RandomSeed: 7}
}

func endTurn(t *testing.T, g *Game) {
	t.Helper()
	require.NoError(t, g.Process(engine.Task{Kind: engine.TaskEndTurn, PlayerID: g.CurrentPlayer()}))
}

func TestNewRejectsUnknownCards(t *testing.T) {
	p1, p2 := players()
	p1.DeckData = "DL_001, NOPE"
	_, err := New(p1, p2, models.GameConfigInfo{})
	assert.ErrorIs(t, err, ErrUnknownCard)
}

func TestNewCustomDeck(t *testing.T) {
	p1, p2 := players()
	p1.DeckData = "DL_001,DL_002,,DL_003"
	g, err := New(p1, p2, models.GameConfigInfo{})
	require.NoError(t, err)
	assert.Len(t, g.players[0].deck, 3)
	assert.Empty(t, g.players[1].deck)
}

func TestProcessBeforeStart(t *testing.T) {
	g := newGame(t, filled(true))
	assert.ErrorIs(t, g.Process(engine.Task{Kind: engine.TaskEndTurn, PlayerID: 1}), ErrGameNotReady)
}

func TestSeededGamesAreDeterministic(t *testing.T) {
	a := newGame(t, filled(true))
	b := newGame(t, filled(true))
	require.NoError(t, a.StartGame())
	require.NoError(t, b.StartGame())
	assert.Equal(t, a.History(), b.History())
}

func TestStartSkippingMulligan(t *testing.T) {
	g := newGame(t, filled(true))
	require.NoError(t, g.StartGame())

	assert.Equal(t, 1, g.Turn())
	assert.Equal(t, 1, g.CurrentPlayer())
	assert.Len(t, g.players[0].hand, 4)
	assert.Len(t, g.players[1].hand, 4)
	assert.NotEmpty(t, g.History())
	assert.Nil(t, g.Choice(1))

	opts := g.Options(1)
	require.NotEmpty(t, opts.PowerOptionList)
	assert.Equal(t, models.OptionEndTurn, opts.PowerOptionList[0].OptionType)
	assert.Empty(t, g.Options(2).PowerOptionList)
	assert.Greater(t, g.Options(1).Index, opts.Index)

	assert.ErrorIs(t, g.StartGame(), ErrIllegalTask)
}

func TestMulligan(t *testing.T) {
	g := newGame(t, filled(false))
	require.NoError(t, g.StartGame())

	c1, c2 := g.Choice(1), g.Choice(2)
	require.NotNil(t, c1)
	require.NotNil(t, c2)
	assert.Equal(t, models.ChoiceMulligan, c1.ChoiceType)
	assert.Len(t, c1.Entities, 3)
	assert.Len(t, c2.Entities, 4)
	assert.Empty(t, g.Options(1).PowerOptionList)
	assert.Equal(t, 0, g.CurrentPlayer())

	// turn actions are refused during the mulligan
	assert.ErrorIs(t, g.Process(engine.Task{Kind: engine.TaskEndTurn, PlayerID: 1}), ErrIllegalTask)
	// only offered entities may be kept
	assert.ErrorIs(t, g.Process(engine.Task{Kind: engine.TaskMulligan, PlayerID: 1, Entities: []int{999}}), ErrIllegalTask)

	require.NoError(t, g.Process(engine.Task{Kind: engine.TaskMulligan, PlayerID: 1, Entities: c1.Entities[:1]}))
	assert.False(t, g.MulliganComplete())
	assert.ErrorIs(t, g.MainBegin(), ErrIllegalTask)
	assert.Len(t, g.players[0].hand, 3)
	assert.Contains(t, entityIDs(g.players[0].hand), c1.Entities[0])

	require.NoError(t, g.Process(engine.Task{Kind: engine.TaskMulligan, PlayerID: 2, Entities: c2.Entities}))
	assert.True(t, g.MulliganComplete())
	assert.ErrorIs(t, g.Process(engine.Task{Kind: engine.TaskMulligan, PlayerID: 2}), ErrIllegalTask)

	require.NoError(t, g.MainBegin())
	assert.False(t, g.MulliganComplete())
	assert.Equal(t, 1, g.CurrentPlayer())
	assert.Nil(t, g.Choice(1))
	assert.NotEmpty(t, g.Options(1).PowerOptionList)
}

func TestTurnOrder(t *testing.T) {
	g := newGame(t, filled(true))
	require.NoError(t, g.StartGame())

	assert.ErrorIs(t, g.Process(engine.Task{Kind: engine.TaskEndTurn, PlayerID: 2}), ErrNotYourTurn)
	assert.Error(t, g.Process(engine.Task{Kind: engine.TaskEndTurn, PlayerID: 3}))
	// passing is allowed out of turn
	assert.NoError(t, g.Process(engine.Task{Kind: engine.TaskPass, PlayerID: 2}))

	endTurn(t, g)
	assert.Equal(t, 2, g.Turn())
	assert.Equal(t, 2, g.CurrentPlayer())
	assert.Equal(t, 1, g.players[1].mana)
}

func TestHeroPower(t *testing.T) {
	g := newGame(t, filled(true))
	require.NoError(t, g.StartGame())
	endTurn(t, g)
	endTurn(t, g)
	require.Equal(t, 2, g.players[0].mana)

	hp := g.players[0].heroPower.id
	require.NoError(t, g.Process(engine.Task{Kind: engine.TaskHeroPower, PlayerID: 1, Source: hp}))
	assert.Equal(t, HeroHealth-1, g.Health(2))
	assert.Equal(t, 0, g.players[0].mana)

	assert.ErrorIs(t, g.Process(engine.Task{Kind: engine.TaskHeroPower, PlayerID: 1, Source: hp}), ErrIllegalTask)
}

func TestPlayCardAndAttack(t *testing.T) {
	p1, p2 := players()
	p1.DeckData = "DL_001,DL_001,DL_001,DL_001,DL_001"
	p2.DeckData = "DL_002,DL_002,DL_002,DL_002,DL_002"
	g, err := New(p1, p2, models.GameConfigInfo{SkipMulligan: true, History: true})
	require.NoError(t, err)
	require.NoError(t, g.StartGame())

	wisp := g.players[0].hand[0]
	task, err := engine.OptionTask(g, 1, models.PowerOptionChoice{
		PowerOption: models.PowerOption{OptionType: models.OptionPower, MainOption: &models.PowerSubOption{EntityID: wisp.id}},
	})
	require.NoError(t, err)
	require.Equal(t, engine.TaskPlayCard, task.Kind)
	require.NoError(t, g.Process(task))
	assert.Equal(t, engine.ZonePlay, wisp.zone)

	// summoned minions cannot attack this turn
	enemyHero := g.players[1].hero.id
	assert.ErrorIs(t, g.Process(engine.Task{Kind: engine.TaskMinionAttack, PlayerID: 1, Source: wisp.id, Target: enemyHero}), ErrIllegalTask)

	endTurn(t, g)
	endTurn(t, g)
	require.NoError(t, g.Process(engine.Task{Kind: engine.TaskMinionAttack, PlayerID: 1, Source: wisp.id, Target: enemyHero}))
	assert.Equal(t, HeroHealth-1, g.Health(2))

	// attacking own hero is refused
	endTurn(t, g)
	endTurn(t, g)
	assert.ErrorIs(t, g.Process(engine.Task{Kind: engine.TaskMinionAttack, PlayerID: 1, Source: wisp.id, Target: g.players[0].hero.id}), ErrIllegalTask)
}

func TestFatigueEndsTheGame(t *testing.T) {
	g := newGame(t, models.GameConfigInfo{SkipMulligan: true, History: true})
	require.NoError(t, g.StartGame())

	for i := 0; i < 20 && g.State() == engine.StateRunning; i++ {
		endTurn(t, g)
	}
	require.Equal(t, engine.StateComplete, g.State())
	assert.Equal(t, engine.PlayStateWon, g.PlayState(1))
	assert.Equal(t, engine.PlayStateLost, g.PlayState(2))
	assert.LessOrEqual(t, g.Health(2), 0)
	assert.Nil(t, g.Choice(1))
	assert.Equal(t, 0, g.CurrentPlayer())

	assert.ErrorIs(t, g.Process(engine.Task{Kind: engine.TaskEndTurn, PlayerID: 1}), ErrGameOver)
}

func TestCloseStopsTheGame(t *testing.T) {
	g := newGame(t, filled(true))
	require.NoError(t, g.StartGame())
	g.Close()
	assert.Equal(t, engine.StateComplete, g.State())
	assert.Equal(t, engine.PlayStatePlaying, g.PlayState(1))
	assert.ErrorIs(t, g.Process(engine.Task{Kind: engine.TaskEndTurn, PlayerID: 1}), ErrGameOver)
	_, ok := g.Entity(1)
	assert.False(t, ok)
}

func TestFactory(t *testing.T) {
	p1, p2 := players()
	g, err := Factory.CreateGame(p1, p2, filled(true))
	require.NoError(t, err)
	assert.NoError(t, g.StartGame())
}
