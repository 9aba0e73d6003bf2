package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mbolis/vsaq/config"
	"github.com/mbolis/vsaq/database"
	"github.com/mbolis/vsaq/fill"
	"github.com/mbolis/vsaq/log"
	"github.com/mbolis/vsaq/model"
	"github.com/mbolis/vsaq/questionnaire"
	"github.com/mbolis/vsaq/store"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// loadConfig layers the flags the user actually set over file and
// environment, then applies the logging settings.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	overrides := map[string]any{}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if f.Name == "config" || cmd.Root().PersistentFlags().Lookup(f.Name) == nil {
			return
		}
		key := strings.ReplaceAll(f.Name, "-", "_")
		switch f.Value.Type() {
		case "bool":
			overrides[key] = f.Value.String() == "true"
		default:
			overrides[key] = f.Value.String()
		}
	})

	cfg, err := config.Load(path, overrides)
	if err != nil {
		return cfg, err
	}
	if err := log.Setup(cfg.Debug, cfg.LogFormat); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func openStore(cmd *cobra.Command) (*store.Store, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg.DBUrl)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open database")
	}
	return store.New(db), func() { db.Close() }, nil
}

func newAdminCmd() *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}

	var password string
	create := &cobra.Command{
		Use:   "create <username>",
		Short: "Create an admin account",
		Long:  "Create an admin account. Without --password, the password is read from the first line of stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.Wrap(err, "read password")
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New("empty password")
			}

			st, done, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer done()

			id, err := st.CreateAdmin(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s created (id %d)\n", args[0], id)
			return nil
		},
	}
	create.Flags().StringVar(&password, "password", "", "password of the new admin")

	admin.AddCommand(create)
	return admin
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a questionnaire document before uploading it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			doc, err := questionnaire.Parse(raw)
			if err != nil {
				return err
			}

			errs := questionnaire.Validate(doc)
			for _, e := range errs {
				fmt.Fprintln(cmd.OutOrStdout(), e.Error())
			}
			if len(errs) > 0 {
				return errors.Errorf("%s: %d problems found", args[0], len(errs))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
			return nil
		},
	}
}

func newEditCmd() *cobra.Command {
	var (
		removes []string
		moves   []string
		add     string
		into    string
		at      int
		write   bool
	)

	cmd := &cobra.Command{
		Use:   "edit <file>",
		Short: "Change a questionnaire document item by item",
		Long: `Change a questionnaire document item by item.

Removals run first, then moves, then the insertion. The result is validated
and printed, or written back to the file with --write. Nothing is written
when validation fails.`,
		Example: `  vsaq edit vendor.json --remove legacy_q --move has_sec=-1
  vsaq edit vendor.json --add '{"type":"line","id":"sec_lead","text":"Who leads it?"}' --into has_sec:yes --at 0 --write`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			doc, err := questionnaire.Parse(raw)
			if err != nil {
				return err
			}
			ed := questionnaire.NewEditor(doc)

			for _, id := range removes {
				h, err := findItem(ed, id)
				if err != nil {
					return err
				}
				if err := ed.Remove(h); err != nil {
					return errors.Wrapf(err, "remove %s", id)
				}
			}

			for _, move := range moves {
				id, by, ok := strings.Cut(move, "=")
				delta, err := strconv.Atoi(by)
				if !ok || err != nil {
					return errors.Errorf("bad --move %q, expected id=delta", move)
				}
				h, err := findItem(ed, id)
				if err != nil {
					return err
				}
				if err := ed.Move(h, delta); err != nil {
					return errors.Wrapf(err, "move %s by %d", id, delta)
				}
			}

			if add != "" {
				it, err := questionnaire.ParseItem([]byte(add))
				if err != nil {
					return errors.Wrap(err, "--add")
				}
				parent, slot, err := editTarget(ed, into)
				if err != nil {
					return err
				}
				if _, err := ed.Insert(parent, slot, at, it); err != nil {
					return errors.Wrapf(err, "insert into %q", into)
				}
			}

			errs := ed.Validate()
			for _, e := range errs {
				fmt.Fprintln(out, e.Error())
			}
			if len(errs) > 0 {
				return errors.Errorf("%s: %d problems found, nothing written", args[0], len(errs))
			}

			edited, err := json.MarshalIndent(ed.Document(), "", "  ")
			if err != nil {
				return err
			}
			edited = append(edited, '\n')
			if !write {
				_, err = out.Write(edited)
				return err
			}
			if err := os.WriteFile(args[0], edited, 0644); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: written\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&removes, "remove", nil, "remove the item with this id and everything below it (repeatable)")
	cmd.Flags().StringArrayVar(&moves, "move", nil, "shift an item among its siblings, as id=delta (repeatable)")
	cmd.Flags().StringVar(&add, "add", "", "item to insert, as JSON")
	cmd.Flags().StringVar(&into, "into", "", "where --add goes: empty for the top level, a block id, or yesno-id:yes / yesno-id:no")
	cmd.Flags().IntVar(&at, "at", -1, "position of --add among its siblings, -1 to append")
	cmd.Flags().BoolVar(&write, "write", false, "write the result back to the file")
	return cmd
}

func findItem(ed *questionnaire.Editor, id string) (questionnaire.Handle, error) {
	h, ok := ed.Tree().Find(id)
	if !ok {
		return h, errors.Wrap(questionnaire.ErrNoSuchItem, id)
	}
	return h, nil
}

// editTarget resolves an --into value to a parent handle and slot.
func editTarget(ed *questionnaire.Editor, into string) (questionnaire.Handle, questionnaire.Slot, error) {
	if into == "" {
		return questionnaire.NoHandle, questionnaire.SlotRoot, nil
	}

	id, branch, _ := strings.Cut(into, ":")
	h, err := findItem(ed, id)
	if err != nil {
		return h, 0, err
	}
	switch branch {
	case "":
		return h, questionnaire.SlotItems, nil
	case "yes":
		return h, questionnaire.SlotYes, nil
	case "no":
		return h, questionnaire.SlotNo, nil
	}
	return h, 0, errors.Errorf("bad --into %q, expected id, id:yes or id:no", into)
}

func newFillCmd() *cobra.Command {
	var (
		sets   []string
		submit bool
	)

	cmd := &cobra.Command{
		Use:   "fill <url|link>",
		Short: "Answer a questionnaire from the command line",
		Long: `Answer a questionnaire from the command line.

The target is either the fill URL handed out to a respondent, or a bare link
to answer straight into the configured database.`,
		Example: `  vsaq fill https://vsaq.example.com/fill/3f2a... --set has_sec=yes --set sec_size=4
  vsaq fill 3f2a... --submit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var backend fill.Backend
			target := args[0]
			if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
				if _, err := loadConfig(cmd); err != nil {
					return err
				}
				backend = fill.NewClient(target, nil)
			} else {
				st, done, err := openStore(cmd)
				if err != nil {
					return err
				}
				defer done()
				backend = fill.StoreBackend{Store: st, Link: target}
			}

			session, err := fill.Open(ctx, backend)
			if err != nil {
				return err
			}

			for _, set := range sets {
				id, value, ok := strings.Cut(set, "=")
				if !ok || id == "" {
					return errors.Errorf("bad --set %q, expected id=value", set)
				}
				res, err := session.Set(ctx, id, value)
				if err != nil {
					return err
				}
				if res.Outcome == model.Conflict {
					fmt.Fprintf(out, "%s: changed elsewhere (server version %d)\n", id, res.Version)
				}
			}

			printSession(cmd, session)

			if submit {
				if err := session.Submit(ctx); err != nil {
					return err
				}
				fmt.Fprintln(out, "submitted")
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "answer a question, as id=value (repeatable)")
	cmd.Flags().BoolVar(&submit, "submit", false, "submit after answering")
	return cmd
}

func printSession(cmd *cobra.Command, s *fill.Session) {
	out := cmd.OutOrStdout()

	name, description := s.Title()
	fmt.Fprintln(out, name)
	if description != "" {
		fmt.Fprintln(out, description)
	}
	fmt.Fprintln(out)

	for _, e := range s.Entries() {
		if !e.Visible {
			continue
		}
		text := questionnaire.TextOf(e.Item)
		id := questionnaire.IDOf(e.Item)
		indent := strings.Repeat("  ", e.Depth)
		switch {
		case questionnaire.IsAnswerable(e.Item):
			value := e.Value
			if value == "" {
				value = "-"
			}
			fmt.Fprintf(out, "%s[%s] %s: %s\n", indent, id, text, value)
		case text != "":
			fmt.Fprintf(out, "%s%s\n", indent, text)
		}
	}

	p := s.Progress()
	fmt.Fprintf(out, "\nprogress: %d/%d (%d%%)\n", p.Answered, p.Total, p.Percent)
	if conflicts := s.Conflicts(); len(conflicts) > 0 {
		fmt.Fprintf(out, "conflicts: %s\n", strings.Join(conflicts, ", "))
	}
	if s.Locked() {
		fmt.Fprintln(out, "locked: already submitted")
	}
}
