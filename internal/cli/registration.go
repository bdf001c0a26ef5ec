package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRegistrationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "registration",
		Aliases: []string{"reg"},
		Short:   "Registration commands",
	}

	cmd.AddCommand(newRegistrationCreateCmd())
	cmd.AddCommand(newRegistrationStatusCmd())
	cmd.AddCommand(newRegistrationDeleteCmd())

	return cmd
}

func newRegistrationCreateCmd() *cobra.Command {
	var player, team string

	cmd := &cobra.Command{
		Use:   "create <tournament-id>",
		Short: "Enter a player (SOLO) or team (TEAM) into a tournament",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (player == "") == (team == "") {
				return fmt.Errorf("exactly one of --player or --team is required")
			}

			req := map[string]string{}
			if player != "" {
				req["player_id"] = player
			} else {
				req["team_id"] = team
			}

			var result Registration
			if err := client.Post("/api/v1/tournaments/"+args[0]+"/registrations", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&player, "player", "", "Player ID for SOLO tournaments")
	cmd.Flags().StringVar(&team, "team", "", "Team ID for TEAM tournaments")

	return cmd
}

func newRegistrationStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Set a registration to PENDING, CONFIRMED, REJECTED or WITHDRAWN",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"status": args[1]}

			var result Registration
			if err := client.Patch("/api/v1/registrations/"+args[0]+"/status", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newRegistrationDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a registration that is not CONFIRMED",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete("/api/v1/registrations/" + args[0]); err != nil {
				return err
			}

			output(cmd).PrintMessage("Registration deleted")
			return nil
		},
	}
}
