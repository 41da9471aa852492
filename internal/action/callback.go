package action

// Menu is one of the fixed main-menu choices.
type Menu string

const (
	MenuGuessHuman  Menu = "guess_human"
	MenuGuessBot    Menu = "guess_bot"
	MenuViewRecords Menu = "view_records"
)

// Label is the menu button caption.
func (m Menu) Label() string {
	switch m {
	case MenuGuessHuman:
		return "Bot guesses your number"
	case MenuGuessBot:
		return "You guess the bot's number"
	case MenuViewRecords:
		return "View records"
	default:
		return string(m)
	}
}

// MenuButtons returns the main-menu buttons in display order.
func MenuButtons() []Button {
	menus := []Menu{MenuGuessHuman, MenuGuessBot, MenuViewRecords}
	buttons := make([]Button, 0, len(menus))
	for _, m := range menus {
		buttons = append(buttons, Button{Label: m.Label(), Token: string(m)})
	}
	return buttons
}

// Callback is a parsed callback token: either a menu choice or an action.
type Callback struct {
	Menu   Menu
	Action Action
}

// IsMenu reports whether the callback selected a menu entry.
func (c Callback) IsMenu() bool {
	return c.Menu != ""
}

// ParseCallback classifies a raw callback token. Menu tokens are matched
// exactly; anything else must decode as an Action.
func ParseCallback(token string) (Callback, error) {
	switch Menu(token) {
	case MenuGuessHuman, MenuGuessBot, MenuViewRecords:
		return Callback{Menu: Menu(token)}, nil
	}

	a, err := Decode(token)
	if err != nil {
		return Callback{}, err
	}
	return Callback{Action: a}, nil
}
