package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vango-dev/sharedstate/internal/errors"
	"github.com/vango-dev/sharedstate/pkg/storage"
)

func getCmd(a *app) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a persisted value",
		Long: `Print the JSON stored under key.

Examples:
  sharedstate get theme
  sharedstate get prefs --raw`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStorage(a.cfg)
			if err != nil {
				return err
			}

			key := args[0]
			text, ok, err := st.GetItem(cmd.Context(), key)
			if err != nil {
				return fmt.Errorf("read %q: %w", key, err)
			}
			if !ok {
				return errors.New("E140").WithDetail(fmt.Sprintf("key %q", key))
			}

			out := cmd.OutOrStdout()
			if raw {
				fmt.Fprintln(out, text)
				return nil
			}
			var buf bytes.Buffer
			if err := json.Indent(&buf, []byte(text), "", "  "); err != nil {
				// Stored by something other than sharedstate; show it as is.
				fmt.Fprintln(out, text)
				return nil
			}
			fmt.Fprintln(out, buf.String())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&raw, "raw", "r", false, "Print the stored text without formatting")

	return cmd
}

func setCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <json>",
		Short: "Write a persisted value",
		Long: `Store a JSON value under key. Running components pick it up the next
time they create the entry.

Examples:
  sharedstate set theme '"dark"'
  sharedstate set prefs '{"size": 14}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if key == "" {
				return errors.New("E001")
			}

			var buf bytes.Buffer
			if err := json.Compact(&buf, []byte(value)); err != nil {
				return errors.New("E141").
					WithDetail(err.Error()).
					WithSuggestion(`Quote strings twice, e.g. '"dark"'`)
			}

			st, err := openStorage(a.cfg)
			if err != nil {
				return err
			}
			if err := st.SetItem(cmd.Context(), key, buf.String()); err != nil {
				return fmt.Errorf("write %q: %w", key, err)
			}

			a.logger.Debug("value written", "key", key, "bytes", buf.Len())
			success(cmd.OutOrStdout(), "%s = %s", key, buf.String())
			return nil
		},
	}

	return cmd
}

func deleteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <key>",
		Aliases: []string{"rm"},
		Short:   "Remove a persisted value",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStorage(a.cfg)
			if err != nil {
				return err
			}
			remover, ok := st.(storage.Remover)
			if !ok {
				return fmt.Errorf("storage backend %q cannot delete keys", a.cfg.Storage.Backend)
			}
			if err := remover.RemoveItem(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete %q: %w", args[0], err)
			}
			success(cmd.OutOrStdout(), "deleted %s", args[0])
			return nil
		},
	}

	return cmd
}

func listCmd(a *app) *cobra.Command {
	var values bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List persisted keys",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStorage(a.cfg)
			if err != nil {
				return err
			}
			keys, err := listKeys(cmd.Context(), st)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, key := range keys {
				if !values {
					fmt.Fprintln(out, key)
					continue
				}
				text, _, err := st.GetItem(cmd.Context(), key)
				if err != nil {
					return fmt.Errorf("read %q: %w", key, err)
				}
				fmt.Fprintf(out, "%s\t%s\n", key, text)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&values, "values", "v", false, "Print values next to keys")

	return cmd
}

func listKeys(ctx context.Context, st storage.Storage) ([]string, error) {
	lister, ok := st.(storage.Lister)
	if !ok {
		return nil, fmt.Errorf("storage %T cannot list keys", st)
	}
	keys, err := lister.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}
