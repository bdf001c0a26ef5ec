package cli

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newTournamentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tournament",
		Aliases: []string{"t"},
		Short:   "Tournament commands",
	}

	cmd.AddCommand(newTournamentListCmd())
	cmd.AddCommand(newTournamentGetCmd())
	cmd.AddCommand(newTournamentCreateCmd())
	cmd.AddCommand(newTournamentUpdateCmd())
	cmd.AddCommand(newTournamentStatusCmd())
	cmd.AddCommand(newTournamentDeleteCmd())
	cmd.AddCommand(newTournamentRegistrationsCmd())

	return cmd
}

func newTournamentListCmd() *cobra.Command {
	var status, game, format string
	var page, limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tournaments, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if status != "" {
				q.Set("status", status)
			}
			if game != "" {
				q.Set("game", game)
			}
			if format != "" {
				q.Set("format", format)
			}
			if page > 0 {
				q.Set("page", strconv.Itoa(page))
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}

			path := "/api/v1/tournaments"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			var result TournamentList
			if err := client.Get(path, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	cmd.Flags().StringVar(&game, "game", "", "Filter by game")
	cmd.Flags().StringVar(&format, "format", "", "Filter by format: SOLO or TEAM")
	cmd.Flags().IntVar(&page, "page", 0, "Page number (default 1)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size (default 10, max 100)")

	return cmd
}

func newTournamentGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a tournament",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Tournament
			if err := client.Get("/api/v1/tournaments/"+args[0], &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newTournamentCreateCmd() *cobra.Command {
	var name, game, format, start, end string
	var capacity int
	var prize float64

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a tournament in DRAFT",
		RunE: func(cmd *cobra.Command, args []string) error {
			startDate, err := time.Parse(time.RFC3339, start)
			if err != nil {
				return fmt.Errorf("--start must be RFC3339: %w", err)
			}

			req := map[string]any{
				"name":             name,
				"game":             game,
				"format":           format,
				"max_participants": capacity,
				"prize_pool":       prize,
				"start_date":       startDate,
			}
			if end != "" {
				endDate, err := time.Parse(time.RFC3339, end)
				if err != nil {
					return fmt.Errorf("--end must be RFC3339: %w", err)
				}
				req["end_date"] = endDate
			}

			var result Tournament
			if err := client.Post("/api/v1/tournaments", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Tournament name (required)")
	cmd.Flags().StringVar(&game, "game", "", "Game played (required)")
	cmd.Flags().StringVar(&format, "format", "SOLO", "Format: SOLO or TEAM")
	cmd.Flags().IntVar(&capacity, "max", 0, "Maximum confirmed participants (required)")
	cmd.Flags().Float64Var(&prize, "prize", 0, "Prize pool")
	cmd.Flags().StringVar(&start, "start", "", "Start date, RFC3339 (required)")
	cmd.Flags().StringVar(&end, "end", "", "End date, RFC3339")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("game")
	_ = cmd.MarkFlagRequired("max")
	_ = cmd.MarkFlagRequired("start")

	return cmd
}

func newTournamentUpdateCmd() *cobra.Command {
	var name, game, format, start, end string
	var capacity int
	var prize float64

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a tournament; only the given flags change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			req := map[string]any{}
			if flags.Changed("name") {
				req["name"] = name
			}
			if flags.Changed("game") {
				req["game"] = game
			}
			if flags.Changed("format") {
				req["format"] = format
			}
			if flags.Changed("max") {
				req["max_participants"] = capacity
			}
			if flags.Changed("prize") {
				req["prize_pool"] = prize
			}
			for flag, field := range map[string]string{"start": "start_date", "end": "end_date"} {
				if !flags.Changed(flag) {
					continue
				}
				raw, _ := flags.GetString(flag)
				parsed, err := time.Parse(time.RFC3339, raw)
				if err != nil {
					return fmt.Errorf("--%s must be RFC3339: %w", flag, err)
				}
				req[field] = parsed
			}
			if len(req) == 0 {
				return fmt.Errorf("nothing to update")
			}

			var result Tournament
			if err := client.Put("/api/v1/tournaments/"+args[0], req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Tournament name")
	cmd.Flags().StringVar(&game, "game", "", "Game played")
	cmd.Flags().StringVar(&format, "format", "", "Format: SOLO or TEAM")
	cmd.Flags().IntVar(&capacity, "max", 0, "Maximum confirmed participants")
	cmd.Flags().Float64Var(&prize, "prize", 0, "Prize pool")
	cmd.Flags().StringVar(&start, "start", "", "Start date, RFC3339")
	cmd.Flags().StringVar(&end, "end", "", "End date, RFC3339")

	return cmd
}

func newTournamentStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Move a tournament to OPEN, ONGOING, COMPLETED or CANCELLED",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"status": args[1]}

			var result Tournament
			if err := client.Patch("/api/v1/tournaments/"+args[0]+"/status", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newTournamentDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a tournament without confirmed registrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete("/api/v1/tournaments/" + args[0]); err != nil {
				return err
			}

			output(cmd).PrintMessage("Tournament deleted")
			return nil
		},
	}
}

func newTournamentRegistrationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "registrations <id>",
		Short: "List a tournament's registrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result RegistrationList
			if err := client.Get("/api/v1/tournaments/"+args[0]+"/registrations", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}
