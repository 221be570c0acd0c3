package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/guardloop/internal/controller"
	"github.com/roach88/guardloop/internal/engine"
	"github.com/roach88/guardloop/internal/ir"
	"github.com/roach88/guardloop/internal/system"
)

// DiagramOptions holds flags for the diagram command.
type DiagramOptions struct {
	*RootOptions
	Machine string
}

// Machine describes one state table for rendering.
type Machine struct {
	Name        string          `json:"name"`
	Initial     string          `json:"initial"`
	States      []MachineState  `json:"states"`
	Transitions []MachineChange `json:"transitions"`
}

// MachineState is one state of a rendered table.
type MachineState struct {
	Name     string   `json:"name"`
	Hooks    []string `json:"hooks,omitempty"`
	Terminal bool     `json:"terminal,omitempty"`
}

// MachineChange is one transition of a rendered table.
type MachineChange struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Event   string `json:"event"`
	Guarded bool   `json:"guarded,omitempty"`
}

// NewDiagramCommand creates the diagram command.
func NewDiagramCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiagramOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "diagram",
		Short: "Render a state table as PlantUML",
		Long: `Render the controller or lifecycle state table.

Text output is a PlantUML state diagram; JSON output lists the states,
their hooks and the transitions in declaration order.

Examples:
  guardloop diagram > controller.puml
  guardloop diagram --machine system
  guardloop diagram --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagram(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Machine, "machine", ir.MachineController, "state table to render (controller|system)")

	return cmd
}

func runDiagram(opts *DiagramOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	m, err := describeMachine(opts.Machine)
	if err != nil {
		_ = formatter.Error(ErrCodeUnknownTable, err.Error(), nil)
		return WrapExitError(ExitCommandError, "unknown state table", err)
	}

	if formatter.IsJSON() {
		return formatter.Success(m)
	}
	return writePlantUML(formatter.Writer, m)
}

// describeMachine resolves a state table by machine name.
func describeMachine(name string) (Machine, error) {
	switch name {
	case ir.MachineController:
		states, transitions := controller.Table()
		return newMachine(name, states, transitions, controller.Names(), controller.StateStartup), nil
	case ir.MachineSystem:
		states, transitions := system.Table()
		return newMachine(name, states, transitions, system.Names(), system.StateStartup), nil
	default:
		return Machine{}, fmt.Errorf("no state table named %q (want %s or %s)", name, ir.MachineController, ir.MachineSystem)
	}
}

func newMachine(name string, states []engine.State, transitions []engine.Transition, names engine.Names, initial engine.StateID) Machine {
	m := Machine{
		Name:        name,
		Initial:     names.State(initial),
		States:      make([]MachineState, 0, len(states)),
		Transitions: make([]MachineChange, 0, len(transitions)),
	}
	for _, st := range states {
		ms := MachineState{Name: st.String(), Terminal: st.Terminal}
		if st.OnEntry != nil {
			ms.Hooks = append(ms.Hooks, engine.HookEntry.String())
		}
		if st.OnState != nil {
			ms.Hooks = append(ms.Hooks, engine.HookState.String())
		}
		if st.OnExit != nil {
			ms.Hooks = append(ms.Hooks, engine.HookExit.String())
		}
		m.States = append(m.States, ms)
	}
	for _, t := range transitions {
		m.Transitions = append(m.Transitions, MachineChange{
			From:    names.State(t.From),
			To:      names.State(t.To),
			Event:   names.Event(t.Event),
			Guarded: t.Guard != nil,
		})
	}
	return m
}

// writePlantUML renders m as a PlantUML state diagram.
func writePlantUML(w io.Writer, m Machine) error {
	var b strings.Builder

	fmt.Fprintf(&b, "@startuml %s\n", m.Name)
	fmt.Fprintf(&b, "[*] --> %s\n", m.Initial)
	for _, st := range m.States {
		if len(st.Hooks) > 0 {
			fmt.Fprintf(&b, "%s : %s\n", st.Name, strings.Join(st.Hooks, ", "))
		}
	}
	for _, t := range m.Transitions {
		label := t.Event
		if t.Guarded {
			label += " [guard]"
		}
		fmt.Fprintf(&b, "%s --> %s : %s\n", t.From, t.To, label)
	}
	for _, st := range m.States {
		if st.Terminal {
			fmt.Fprintf(&b, "%s --> [*]\n", st.Name)
		}
	}
	b.WriteString("@enduml\n")

	_, err := io.WriteString(w, b.String())
	return err
}
