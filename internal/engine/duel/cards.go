package duel

// Card is a minion definition from the built-in set.
type Card struct {
	ID     string
	Name   string
	Cost   int
	Attack int
	Health int
}

var cardSet = []Card{
	{ID: "DL_001", Name: "Wisp", Cost: 0, Attack: 1, Health: 1},
	{ID: "DL_002", Name: "River Crocolisk", Cost: 2, Attack: 2, Health: 3},
	{ID: "DL_003", Name: "Bloodfen Raptor", Cost: 2, Attack: 3, Health: 2},
	{ID: "DL_004", Name: "Magma Rager", Cost: 3, Attack: 5, Health: 1},
	{ID: "DL_005", Name: "Ironfur Grizzly", Cost: 3, Attack: 3, Health: 3},
	{ID: "DL_006", Name: "Chillwind Yeti", Cost: 4, Attack: 4, Health: 5},
	{ID: "DL_007", Name: "Oasis Snapjaw", Cost: 4, Attack: 2, Health: 7},
	{ID: "DL_008", Name: "Boulderfist Ogre", Cost: 6, Attack: 6, Health: 7},
	{ID: "DL_009", Name: "Core Hound", Cost: 7, Attack: 9, Health: 5},
	{ID: "DL_010", Name: "War Golem", Cost: 7, Attack: 7, Health: 7},
}

var cardsByID = func() map[string]*Card {
	m := make(map[string]*Card, len(cardSet))
	for i := range cardSet {
		m[cardSet[i].ID] = &cardSet[i]
	}
	return m
}()

// LookupCard returns the card with the given id.
func LookupCard(id string) (*Card, bool) {
	c, ok := cardsByID[id]
	return c, ok
}

// CardIDs lists the ids of the built-in set.
func CardIDs() []string {
	ids := make([]string, len(cardSet))
	for i, c := range cardSet {
		ids[i] = c.ID
	}
	return ids
}
