package cli

import (
	"fmt"
	"os"

	"jobboard/internal/config"
	"jobboard/internal/saved"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newSaveCommand() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "save <job-id>",
		Short: "Toggle a saved job for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			ctx := cmd.Context()
			logger := newLogger(os.Stderr, cfg)

			rt, err := openRuntime(ctx, cfg, uuid.NewString(), logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			mgr := saved.NewManager(rt.gateway, rt.cache, user, logger)
			if err := mgr.Load(ctx); err != nil {
				return err
			}
			isSaved, err := mgr.Toggle(ctx, args[0])
			if err != nil {
				return err
			}
			if isSaved {
				fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s from saved jobs\n", args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "user to act for (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
