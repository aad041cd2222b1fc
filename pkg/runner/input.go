package runner

import (
	"strconv"
	"strings"

	"github.com/aretw0/funnel/pkg/domain"
)

// CommandName identifies a runner command. Commands start with a colon so they never
// collide with choice IDs.
type CommandName string

const (
	CmdBack CommandName = "back"
	CmdGoto CommandName = "goto"
	CmdUnit CommandName = "unit"
	CmdHelp CommandName = "help"
)

// Command is a parsed ":name arg" line.
type Command struct {
	Name CommandName
	Arg  string
}

// ParseCommand recognizes a command line. The second result is false for anything
// that is not a command.
func ParseCommand(line string) (Command, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, ":") {
		return Command{}, false
	}
	name, arg, _ := strings.Cut(line[1:], " ")
	return Command{Name: CommandName(strings.ToLower(name)), Arg: strings.TrimSpace(arg)}, true
}

// IsQuit reports whether line asks to leave the quiz.
func IsQuit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "exit", "quit", ":q", ":quit":
		return true
	}
	return false
}

// ParseAnswer turns a typed line into an answer for step. Choices may be named by ID
// or by their 1-based number; input fields take values in display order or as
// name=value pairs.
func ParseAnswer(step domain.Step, unit domain.UnitSystem, line string) domain.Answer {
	line = strings.TrimSpace(line)
	switch step.Kind.AnswerKind() {
	case domain.AnswerList:
		var ids []string
		for _, tok := range strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ' ' }) {
			ids = append(ids, resolveChoice(step, tok))
		}
		return domain.List(ids...)
	case domain.AnswerFields:
		fields := step.FieldsFor(unit)
		values := make(map[string]string, len(fields))
		for i, tok := range strings.Fields(line) {
			if name, v, ok := strings.Cut(tok, "="); ok {
				values[name] = v
				continue
			}
			if i < len(fields) {
				values[fields[i].Name] = tok
			}
		}
		return domain.Fields(values)
	default:
		return domain.Text(resolveChoice(step, line))
	}
}

func resolveChoice(step domain.Step, tok string) string {
	if step.HasChoice(tok) {
		return tok
	}
	if n, err := strconv.Atoi(tok); err == nil && n >= 1 && n <= len(step.Choices) {
		return step.Choices[n-1].ID
	}
	return tok
}

// ResolvePlan finds a plan by key or by its 1-based number.
func ResolvePlan(line string) (domain.Plan, bool) {
	line = strings.TrimSpace(line)
	if p, ok := domain.PlanByKey(line); ok {
		return p, true
	}
	plans := domain.Plans()
	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(plans) {
		return plans[n-1], true
	}
	return domain.Plan{}, false
}
