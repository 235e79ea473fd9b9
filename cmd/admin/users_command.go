package main

import (
	"fmt"
	"sort"

	"sortashort_server/models"

	"github.com/spf13/cobra"
)

func newUsersCommand(ctx *commandContext) *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect user profiles",
	}
	usersCmd.AddCommand(newUsersListCommand(ctx))
	return usersCmd
}

func newUsersListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every profile with its username and friend code",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.store(cmd.Context())
			if err != nil {
				return err
			}
			profiles, err := s.ListProfiles(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(profiles) == 0 {
				fmt.Fprintln(out, "No users found")
				return nil
			}

			sort.Slice(profiles, func(i, j int) bool { return profiles[i].Email < profiles[j].Email })
			rows := make([][]string, 0, len(profiles))
			for _, p := range profiles {
				rows = append(rows, []string{displayUsername(p), p.Email, p.FriendCode, fmt.Sprint(len(p.Watched))})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Username", "Email", "Friend Code", "Watched"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
			))
			fmt.Fprintf(out, "%d users\n", len(profiles))
			return nil
		},
	}
}

func displayUsername(p models.UserProfile) string {
	if p.Username == "" {
		return "-"
	}
	return p.Username
}
