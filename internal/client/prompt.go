package client

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/atinyakov/TodoKeeper/internal/models"
)

// Prompter reads task fields interactively.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewPrompter returns a Prompter reading lines from in and writing
// prompts to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out}
}

func (p *Prompter) ask(label string) (string, bool) {
	fmt.Fprint(p.out, label)
	if !p.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.in.Text()), true
}

// Line reads one line after printing label. ok is false at end of input.
func (p *Prompter) Line(label string) (string, bool) {
	return p.ask(label)
}

// PromptForTask asks for the fields of a new task. Empty optional answers
// are left unset.
func (p *Prompter) PromptForTask() models.NewTask {
	var nt models.NewTask
	nt.Title, _ = p.ask("Enter title: ")
	if d, _ := p.ask("Enter description (optional): "); d != "" {
		nt.Description = &d
	}
	if due, _ := p.ask("Enter due date (optional): "); due != "" {
		nt.DueAt = &due
	}
	return nt
}

// PromptEditTask asks for changed fields. An empty answer keeps the field
// and "-" clears an optional one.
func (p *Prompter) PromptEditTask() models.TaskPatch {
	var patch models.TaskPatch
	if t, _ := p.ask("New title (empty to keep): "); t != "" {
		patch.Title = models.Some(t)
	}
	patch.Description = optionalText(p.ask("New description (empty to keep, - to clear): "))
	patch.DueAt = optionalText(p.ask("New due date (empty to keep, - to clear): "))
	switch c, _ := p.ask("Completed? (y/n, empty to keep): "); strings.ToLower(c) {
	case "y", "yes":
		patch.Completed = models.Some(true)
	case "n", "no":
		patch.Completed = models.Some(false)
	}
	return patch
}

func optionalText(s string, _ bool) models.Optional[*string] {
	switch s {
	case "":
		return models.Optional[*string]{}
	case "-":
		return models.Some[*string](nil)
	default:
		return models.Some(&s)
	}
}
