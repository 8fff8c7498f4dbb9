package main

import (
	"fmt"
	"strconv"

	"courier/internal/history"

	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := history.NewStore(cfg.History.DBPath, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			subs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			var rows [][]string
			for _, s := range subs {
				rows = append(rows, []string{
					s.ID[:8],
					s.AgentID,
					truncate(s.Text, 40),
					strconv.Itoa(s.Attachments),
					s.Status,
					s.CreatedAt.Format("2006-01-02 15:04"),
				})
			}
			fmt.Println(renderTable([]string{"ID", "AGENT", "TEXT", "FILES", "STATUS", "WHEN"}, rows))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of submissions to list")

	cmd.AddCommand(historyShowCmd())
	return cmd
}

func historyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one submission's transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := history.NewStore(cfg.History.DBPath, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			id, err := resolveSubmissionID(cmd, store, args[0])
			if err != nil {
				return err
			}

			sub, tr, err := store.Get(cmd.Context(), id)
			if err != nil {
				return err
			}

			fmt.Printf("agent:  %s\nstatus: %s\nwhen:   %s\n", sub.AgentID, sub.Status, sub.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Printf("text:   %s\n\n", sub.Text)
			if tr == nil {
				fmt.Println("(no transcript recorded)")
				return nil
			}
			fmt.Println(tr.Content)
			return nil
		},
	}
}

// resolveSubmissionID accepts a full uuid or the 8-char prefix shown by the
// list command.
func resolveSubmissionID(cmd *cobra.Command, store *history.Store, arg string) (string, error) {
	if len(arg) >= 36 {
		return arg, nil
	}
	subs, err := store.List(cmd.Context(), 1000)
	if err != nil {
		return "", err
	}
	var match string
	for _, s := range subs {
		if len(s.ID) >= len(arg) && s.ID[:len(arg)] == arg {
			if match != "" {
				return "", fmt.Errorf("ambiguous id prefix %q", arg)
			}
			match = s.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no submission matches %q", arg)
	}
	return match, nil
}

// truncate shortens s to max runes; a byte slice could split a multibyte
// rune in user text.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
