package models

// OptionType is the kind of a legal action offered to a player.
type OptionType int

const (
	OptionPass OptionType = iota + 1
	OptionEndTurn
	OptionPower
)

func (t OptionType) String() string {
	switch t {
	case OptionPass:
		return "PASS"
	case OptionEndTurn:
		return "END_TURN"
	case OptionPower:
		return "POWER"
	default:
		return "UNKNOWN"
	}
}

// PowerSubOption names a source entity and the targets it may be used on.
type PowerSubOption struct {
	EntityID int   `json:"entityId"`
	Targets  []int `json:"targets,omitempty"`
}

// PowerOption is one legal action.
type PowerOption struct {
	OptionType OptionType       `json:"optionType"`
	MainOption *PowerSubOption  `json:"mainOption,omitempty"`
	SubOptions []PowerSubOption `json:"subOptions,omitempty"`
}

// PowerOptions is the full set of legal actions for one player.
type PowerOptions struct {
	Index           int           `json:"index"`
	PowerOptionList []PowerOption `json:"powerOptionList"`
}

// PowerOptionChoice is a player's pick out of a PowerOptions set.
type PowerOptionChoice struct {
	PowerOption PowerOption `json:"powerOption"`
	Target      int         `json:"target"`
	Position    int         `json:"position"`
	SubOption   int         `json:"subOption"`
}

type ChoiceType int

const (
	ChoiceInvalid ChoiceType = iota
	ChoiceMulligan
	ChoiceGeneral
)

func (t ChoiceType) String() string {
	switch t {
	case ChoiceMulligan:
		return "MULLIGAN"
	case ChoiceGeneral:
		return "GENERAL"
	default:
		return "INVALID"
	}
}

// PowerChoices is a forced selection prompt. The same shape is used for the
// reply, with Entities holding the selected subset.
type PowerChoices struct {
	Index      int        `json:"index"`
	ChoiceType ChoiceType `json:"choiceType"`
	Entities   []int      `json:"entities"`
}

// HistoryEntry is one state-mutating event emitted by the rules engine.
type HistoryEntry struct {
	Type     string `json:"type"`
	EntityID int    `json:"entityId"`
	Tag      string `json:"tag,omitempty"`
	Value    int    `json:"value,omitempty"`
	CardID   string `json:"cardId,omitempty"`
}
