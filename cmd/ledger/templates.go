package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Veraticus/guild-ledger/internal/cli"
	"github.com/Veraticus/guild-ledger/internal/exchange"
	"github.com/Veraticus/guild-ledger/internal/model"
)

func templatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage extraction templates",
		Long: `Templates tell the extraction pipeline how to read the recognized text of
one module's screen: which rules find which fields, the field types, and
the record shape the fields assemble into. Each module has at most one
default template, used when an import names none.`,
		Example: `  ledger templates load kvm.yaml
  ledger templates load            # every file in templates.dir
  ledger templates validate gvg.yaml
  ledger templates default 6f1c...`,
	}

	cmd.AddCommand(listTemplatesCmd())
	cmd.AddCommand(loadTemplatesCmd())
	cmd.AddCommand(validateTemplatesCmd())
	cmd.AddCommand(defaultTemplateCmd())

	return cmd
}

func listTemplatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [module]",
		Short: "List stored templates",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var module model.Module
			if len(args) == 1 {
				m, err := parseModuleArg(args[0])
				if err != nil {
					return err
				}
				module = m
			}

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			templates, err := store.ListTemplates(cmd.Context(), module)
			if err != nil {
				return err
			}
			if len(templates) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("No templates found."))
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, strings.Join([]string{
				cli.ColumnStyle.Render("NAME"),
				cli.ColumnStyle.Render("MODULE"),
				cli.ColumnStyle.Render("RULES"),
				cli.ColumnStyle.Render("FIELDS"),
				cli.ColumnStyle.Render("UPDATED"),
				cli.ColumnStyle.Render("ID"),
			}, "\t"))
			for _, t := range templates {
				name := t.Name
				if t.IsDefault {
					name += " " + cli.SuccessStyle.Render("(default)")
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
					name, t.Module, len(t.ParseRules), len(t.FieldMapping),
					formatRelativeTime(t.UpdatedAt), cli.SubtleStyle.Render(t.ID))
			}
			return w.Flush()
		},
	}
}

func loadTemplatesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "load [file-or-dir]...",
		Short: "Validate and store templates from JSON or YAML files",
		Long: `Store the templates of each file. A file holds one template or a list of
them. Without arguments the files of templates.dir are loaded. A template
with an ID replaces the stored one of that ID.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := templateFiles(args)
			if err != nil {
				return err
			}

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range paths {
				templates, err := readTemplateFile(path, format)
				if err != nil {
					failed++
					fmt.Fprintln(out, cli.FormatError(fmt.Sprintf("%s: %v", path, err)))
					continue
				}
				for i := range templates {
					t := &templates[i]
					if err := store.SaveTemplate(cmd.Context(), t); err != nil {
						failed++
						fmt.Fprintln(out, cli.FormatError(fmt.Sprintf("%s: %s: %v", path, t.Name, err)))
						continue
					}
					fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Loaded %s template %q (%s)", t.Module, t.Name, t.ID)))
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d templates failed to load", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "json or yaml (default: from the file extension)")

	return cmd
}

func validateTemplatesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check template files without storing them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			invalid := 0
			for _, path := range args {
				templates, err := readTemplateFile(path, format)
				if err != nil {
					invalid++
					fmt.Fprintln(out, cli.FormatError(fmt.Sprintf("%s: %v", path, err)))
					continue
				}
				for i := range templates {
					t := &templates[i]
					if err := t.Validate(); err != nil {
						invalid++
						fmt.Fprintln(out, cli.FormatError(fmt.Sprintf("%s: %s: %v", path, t.Name, err)))
						continue
					}
					fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%s: %s template %q is valid", path, t.Module, t.Name)))
				}
			}
			if invalid > 0 {
				return fmt.Errorf("%d templates are invalid", invalid)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "json or yaml (default: from the file extension)")

	return cmd
}

func defaultTemplateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "default <template-id>",
		Short: "Make a template its module's default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.SetDefaultTemplate(cmd.Context(), args[0]); err != nil {
				return err
			}
			tmpl, err := store.GetTemplate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
				fmt.Sprintf("%q is now the default %s template", tmpl.Name, tmpl.Module)))
			return nil
		},
	}
}

func readTemplateFile(path, format string) ([]model.Template, error) {
	f, err := resolveFormat(format, path)
	if err != nil {
		return nil, err
	}
	// #nosec G304 - template path is supplied by the operator
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	return exchange.ReadTemplates(file, f)
}

// templateFiles expands the arguments, or templates.dir when there are
// none, into JSON and YAML files.
func templateFiles(args []string) ([]string, error) {
	if len(args) == 0 {
		dir := currentConfig().TemplatesDir
		if dir == "" {
			return nil, fmt.Errorf("no template files given and templates.dir is not set")
		}
		args = []string{dir}
	}

	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to access %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", arg, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(e.Name())) {
			case ".json", ".yaml", ".yml":
				paths = append(paths, filepath.Join(arg, e.Name()))
			}
		}
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no template files found")
	}
	return paths, nil
}
