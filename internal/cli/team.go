package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTeamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Team commands",
	}

	cmd.AddCommand(newTeamListCmd())
	cmd.AddCommand(newTeamGetCmd())
	cmd.AddCommand(newTeamCreateCmd())
	cmd.AddCommand(newTeamUpdateCmd())
	cmd.AddCommand(newTeamDeleteCmd())

	return cmd
}

func newTeamListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List teams",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result TeamList
			if err := client.Get("/api/v1/teams", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newTeamGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Team
			if err := client.Get("/api/v1/teams/"+args[0], &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newTeamCreateCmd() *cobra.Command {
	var name, tag string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a team captained by you",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"name": name, "tag": tag}

			var result Team
			if err := client.Post("/api/v1/teams", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Team name (required)")
	cmd.Flags().StringVar(&tag, "tag", "", "Team tag, 3-5 uppercase letters or digits (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("tag")

	return cmd
}

func newTeamUpdateCmd() *cobra.Command {
	var name, tag string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename or retag a team you captain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{}
			if cmd.Flags().Changed("name") {
				req["name"] = name
			}
			if cmd.Flags().Changed("tag") {
				req["tag"] = tag
			}
			if len(req) == 0 {
				return fmt.Errorf("--name or --tag is required")
			}

			var result Team
			if err := client.Put("/api/v1/teams/"+args[0], req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Team name")
	cmd.Flags().StringVar(&tag, "tag", "", "Team tag")

	return cmd
}

func newTeamDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a team you captain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete("/api/v1/teams/" + args[0]); err != nil {
				return err
			}

			output(cmd).PrintMessage("Team deleted")
			return nil
		},
	}
}
