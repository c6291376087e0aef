package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Veraticus/guild-ledger/internal/cli"
	"github.com/Veraticus/guild-ledger/internal/exchange"
	"github.com/Veraticus/guild-ledger/internal/model"
	"github.com/Veraticus/guild-ledger/internal/roster"
)

func rosterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Manage the guild roster",
		Long: `List, add and rename guild members, or load them from a file. Records are
reconciled against the roster as of each event date: members who joined
after an event never appear in it.`,
	}

	cmd.AddCommand(listRosterCmd())
	cmd.AddCommand(addMemberCmd())
	cmd.AddCommand(renameMemberCmd())
	cmd.AddCommand(loadRosterCmd())

	return cmd
}

func listRosterCmd() *cobra.Command {
	var on string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List roster members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			members, err := a.directory.ListMembers(cmd.Context())
			if err != nil {
				return err
			}
			if on != "" {
				day, err := parseDateArg(on)
				if err != nil {
					return err
				}
				members = roster.Eligible(members, day)
			}

			if len(members) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("No members found."))
				return nil
			}
			writeMembers(cmd.OutOrStdout(), members)
			return nil
		},
	}

	cmd.Flags().StringVar(&on, "on", "", "only members on the roster on this date (YYYY-MM-DD)")

	return cmd
}

func writeMembers(out io.Writer, members []model.GuildMember) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join([]string{
		cli.ColumnStyle.Render("NAME"),
		cli.ColumnStyle.Render("LEVEL"),
		cli.ColumnStyle.Render("CLASS"),
		cli.ColumnStyle.Render("JOINED"),
		cli.ColumnStyle.Render("ID"),
	}, "\t"))
	for _, m := range members {
		level, joined := "-", "-"
		if m.Level != nil {
			level = fmt.Sprint(*m.Level)
		}
		if m.CreatedAt != nil {
			joined = model.DayOf(*m.CreatedAt).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m.Name, level, m.Class, joined, cli.SubtleStyle.Render(m.ID))
	}
	_ = w.Flush()
}

func addMemberCmd() *cobra.Command {
	var (
		level  int
		class  string
		joined string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a member to the roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			member := model.GuildMember{Name: strings.TrimSpace(args[0]), Class: class}
			if member.Name == "" {
				return fmt.Errorf("member name must not be empty")
			}
			if cmd.Flags().Changed("level") {
				member.Level = &level
			}
			if joined != "" {
				day, err := parseDateArg(joined)
				if err != nil {
					return err
				}
				t := day.Time()
				member.CreatedAt = &t
			}

			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			saved, err := a.directory.AddMember(cmd.Context(), member)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added %s (%s)", saved.Name, saved.ID)))
			return nil
		},
	}

	cmd.Flags().IntVar(&level, "level", 0, "member level")
	cmd.Flags().StringVar(&class, "class", "", "member class")
	cmd.Flags().StringVar(&joined, "joined", "", "join date (YYYY-MM-DD, default: now)")

	return cmd
}

func renameMemberCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <name-or-id> <new-name>",
		Short: "Rename a roster member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			newName := strings.TrimSpace(args[1])
			if newName == "" {
				return fmt.Errorf("new name must not be empty")
			}

			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			members, err := a.directory.ListMembers(cmd.Context())
			if err != nil {
				return err
			}
			member := findMember(members, args[0])
			if member == nil {
				return fmt.Errorf("no roster member %q", args[0])
			}
			if err := a.directory.RenameMember(cmd.Context(), member.ID, newName); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Renamed %s to %s", member.Name, newName)))
			return nil
		},
	}
}

func loadRosterCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "load <file>",
		Short: "Load members from a JSON or YAML file",
		Long: `Add every member of a roster file. A member whose name is already on the
roster updates that member instead of adding a second one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := resolveFormat(format, args[0])
			if err != nil {
				return err
			}
			// #nosec G304 - input path is supplied by the operator
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer func() { _ = file.Close() }()

			loaded, err := exchange.ReadMembers(file, f)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			added, updated, err := loadMembers(cmd, a.directory, loaded)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
				fmt.Sprintf("Loaded %d members: %d added, %d updated", added+updated, added, updated)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "json or yaml (default: from the file extension)")

	return cmd
}

func loadMembers(cmd *cobra.Command, directory *roster.Directory, loaded []model.GuildMember) (added, updated int, err error) {
	ctx := cmd.Context()
	existing, err := directory.ListMembers(ctx)
	if err != nil {
		return 0, 0, err
	}

	for i, m := range loaded {
		m.Name = strings.TrimSpace(m.Name)
		if m.Name == "" {
			return added, updated, fmt.Errorf("member %d has no name", i+1)
		}
		if current := findMember(existing, m.Name); current != nil && m.ID == "" {
			m.ID = current.ID
			if m.CreatedAt == nil {
				m.CreatedAt = current.CreatedAt
			}
			updated++
		} else {
			added++
		}
		saved, err := directory.AddMember(ctx, m)
		if err != nil {
			return added, updated, err
		}
		existing = append(existing, *saved)
	}
	return added, updated, nil
}

// findMember looks a member up by ID, then by normalized name.
func findMember(members []model.GuildMember, nameOrID string) *model.GuildMember {
	for i := range members {
		if members[i].ID == nameOrID {
			return &members[i]
		}
	}
	for i := range members {
		if roster.SameName(members[i].Name, nameOrID) {
			return &members[i]
		}
	}
	return nil
}
