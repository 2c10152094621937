package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/graft"
	"github.com/aretw0/graft/internal/logging"
	"github.com/aretw0/graft/pkg/domain"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the built-in support-agent graph with a scripted model",
	RunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		scriptPath, _ := cmd.Flags().GetString("script")
		userID, _ := cmd.Flags().GetString("user")

		logger := logging.New(logging.ParseLevel(level))

		script := DefaultScript()
		if scriptPath != "" {
			loaded, err := LoadScript(scriptPath)
			if err != nil {
				return err
			}
			script = loaded
		}

		graph, err := NewAgentGraph(NewScriptedModel(script), NewAgentRegistry())
		if err != nil {
			return err
		}
		engine, err := graft.NewEngine(graph, graft.WithLogger(logger))
		if err != nil {
			return err
		}

		initial := domain.State{
			"messages": []domain.Message{{Role: domain.RoleUser, Content: "I need a password reset"}},
		}
		cfg := domain.RunConfig{"user_id": userID}

		out := newStepPrinter()
		for ev := range engine.Stream(cmd.Context(), initial, graft.WithRunConfig(cfg)) {
			out.print(ev)
			if ev.Err != "" {
				return fmt.Errorf("run failed at node %q: %s", ev.Node, ev.Err)
			}
		}
		return nil
	},
}

func init() {
	demoCmd.Flags().String("script", "", "YAML tape of model decisions (default: built-in)")
	demoCmd.Flags().String("user", "u-42", "User ID placed in the run config")
	rootCmd.AddCommand(demoCmd)
}

// stepPrinter renders step events for the terminal: node labels colored
// with termenv, assistant markdown through glamour when stdout is a TTY.
type stepPrinter struct {
	profile  termenv.Profile
	renderer *glamour.TermRenderer
}

func newStepPrinter() *stepPrinter {
	p := &stepPrinter{profile: termenv.Ascii}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		p.profile = termenv.ColorProfile()
		if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle()); err == nil {
			p.renderer = r
		}
	}
	return p
}

func (p *stepPrinter) print(ev domain.StepEvent) {
	label := termenv.String(fmt.Sprintf("[%s]", ev.Node)).
		Foreground(p.profile.Color("6")).
		Bold()
	fmt.Printf("%s step %d (%s)\n", label, ev.Seq, ev.Status)

	for _, msg := range ev.Update.Messages("messages") {
		p.printMessage(msg)
	}
}

func (p *stepPrinter) printMessage(msg domain.Message) {
	role := termenv.String(string(msg.Role)).Foreground(p.profile.Color("3"))
	content := msg.Content
	if msg.Role == domain.RoleAssistant && p.renderer != nil {
		if rendered, err := p.renderer.Render(content); err == nil {
			content = rendered
		}
	}
	fmt.Printf("  %s: %s\n", role, strings.TrimSpace(content))
}
