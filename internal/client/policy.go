package client

import (
	"math/rand"
	"sync"

	"github.com/jason-s-yu/cardlink/internal/models"
)

// DecisionPolicy answers the server's prompts. Each call must return exactly
// one non-nil reply; a nil reply is a contract violation.
type DecisionPolicy interface {
	PowerOptions(options []models.PowerOption) *models.PowerOptionChoice
	PowerChoices(choices models.PowerChoices) *models.PowerChoices
}

// RandomPolicy picks uniformly among the offered options, targets and
// sub-options. For a forced selection it keeps a single random entity.
type RandomPolicy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomPolicy(seed int64) *RandomPolicy {
	return &RandomPolicy{rng: rand.New(rand.NewSource(seed))}
}

func (p *RandomPolicy) PowerOptions(options []models.PowerOption) *models.PowerOptionChoice {
	if len(options) == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	opt := options[p.rng.Intn(len(options))]
	choice := &models.PowerOptionChoice{PowerOption: opt}
	if opt.MainOption != nil && len(opt.MainOption.Targets) > 0 {
		choice.Target = opt.MainOption.Targets[p.rng.Intn(len(opt.MainOption.Targets))]
	}
	if len(opt.SubOptions) > 0 {
		choice.SubOption = p.rng.Intn(len(opt.SubOptions))
	}
	return choice
}

func (p *RandomPolicy) PowerChoices(choices models.PowerChoices) *models.PowerChoices {
	reply := &models.PowerChoices{Index: choices.Index, ChoiceType: choices.ChoiceType, Entities: []int{}}
	if len(choices.Entities) == 0 {
		return reply
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	reply.Entities = append(reply.Entities, choices.Entities[p.rng.Intn(len(choices.Entities))])
	return reply
}
