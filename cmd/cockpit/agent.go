package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zulandar/cockpit/internal/agentstore"
	"github.com/zulandar/cockpit/internal/config"
)

func newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Inspect and manage agent profiles",
	}

	cmd.AddCommand(newAgentListCmd())
	cmd.AddCommand(newAgentShowCmd())
	cmd.AddCommand(newAgentDeleteCmd())
	return cmd
}

// agentFlags locate the profile directory: --dir wins over the config file.
type agentFlags struct {
	configPath string
	dir        string
}

func (f *agentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.configPath, "config", "c", defaultConfigPath, "path to Cockpit config file")
	cmd.Flags().StringVar(&f.dir, "dir", "", "agent profile directory (overrides config)")
}

func (f *agentFlags) store() (*agentstore.Store, error) {
	if f.dir != "" {
		return agentstore.New(f.dir), nil
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return agentstore.New(cfg.Agents.Dir), nil
}

func newAgentListCmd() *cobra.Command {
	var flags agentFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List valid agent profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := flags.store()
			if err != nil {
				return err
			}
			profiles, err := st.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(profiles) == 0 {
				fmt.Fprintf(out, "No agents in %s\n", st.Dir())
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tKIND\tENABLED\tTOOLS\tUPDATED")
			for _, p := range profiles {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%d\t%s\n", p.ID, p.Name, p.Kind, p.Enabled, len(p.AllowedTools), p.UpdatedAt)
			}
			return tw.Flush()
		},
	}

	flags.register(cmd)
	return cmd
}

func newAgentShowCmd() *cobra.Command {
	var flags agentFlags

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print one agent profile and its soul",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := flags.store()
			if err != nil {
				return err
			}
			p, err := st.Get(args[0])
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("agent %q not found", agentstore.NormalizeID(args[0]))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:          %s\n", p.ID)
			fmt.Fprintf(out, "Name:        %s\n", p.Name)
			fmt.Fprintf(out, "Kind:        %s\n", p.Kind)
			fmt.Fprintf(out, "Enabled:     %t\n", p.Enabled)
			fmt.Fprintf(out, "Updated:     %s\n", p.UpdatedAt)
			if p.Description != "" {
				fmt.Fprintf(out, "Description: %s\n", p.Description)
			}
			if len(p.RoutingHints) > 0 {
				fmt.Fprintf(out, "Hints:       %s\n", strings.Join(p.RoutingHints, ", "))
			}
			if len(p.AllowedTools) > 0 {
				fmt.Fprintf(out, "Tools:       %s\n", strings.Join(p.AllowedTools, ", "))
			}
			fmt.Fprintf(out, "\n%s\n", p.Soul)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newAgentDeleteCmd() *cobra.Command {
	var (
		flags agentFlags
		yes   bool
	)

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an agent profile",
		Long:  "Removes the agent's directory. Asks for confirmation on a terminal unless --yes is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := agentstore.NormalizeID(args[0])
			if id == "" {
				return agentstore.ErrInvalidID
			}
			st, err := flags.store()
			if err != nil {
				return err
			}
			if !yes {
				ok, err := confirmDelete(cmd, id)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}
			if err := st.Delete(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted agent %s\n", id)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

var errNotTerminal = errors.New("stdin is not a terminal; pass --yes to delete without confirmation")

// confirmDelete prompts on an interactive terminal. Non-terminal input is
// refused so scripts must opt in with --yes.
func confirmDelete(cmd *cobra.Command, id string) (bool, error) {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false, errNotTerminal
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Delete agent %q and its soul file? This cannot be undone.\n", id)
	fmt.Fprint(out, "Type \"yes\" to confirm: ")

	scanner := bufio.NewScanner(f)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()) == "yes", nil
	}
	return false, nil
}
