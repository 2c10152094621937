package domain

// End is the terminal routing marker. A Command whose Goto contains End
// terminates the run after the step's updates are merged.
const End = "__end__"

// Command is the value a node execution produces: a partial state update
// plus optional control-flow directives. Commands are treated as
// immutable once returned.
type Command struct {
	// Update proposes values for schema-declared fields. Fields it does
	// not mention are untouched.
	Update State

	// Goto names the node(s) to run next, or End. Multiple names are
	// enqueued in order and still executed one at a time. Empty means
	// "follow the node's default edge".
	Goto []string
}

// UpdateCommand is shorthand for a Command that only proposes an update.
func UpdateCommand(update State) Command {
	return Command{Update: update}
}

// GotoCommand is shorthand for a Command that only routes.
func GotoCommand(next ...string) Command {
	return Command{Goto: next}
}

// Routing returns the effective routing directive for a step: the Goto of
// the LAST command that carries one. All commands' updates are merged
// regardless of which one routes.
func Routing(cmds []Command) []string {
	for i := len(cmds) - 1; i >= 0; i-- {
		if len(cmds[i].Goto) > 0 {
			return cmds[i].Goto
		}
	}
	return nil
}
