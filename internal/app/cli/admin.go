package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/souqhub/internal/app/blob"
	"github.com/dalemusser/souqhub/internal/app/system/timeouts"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"github.com/spf13/cobra"
)

// errReported is returned after the session manager has already printed
// why an operation failed.
var errReported = errors.New("operation failed")

func newAdminCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Operator tasks on accounts",
	}
	cmd.AddCommand(newAdminCreateCmd(e), newAdminConfirmCmd(e))
	return cmd
}

func newAdminCreateCmd(e *env) *cobra.Command {
	var email, username string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create or promote the administrator account",
		Long: "Create the account if it does not exist (already confirmed), create its profile if missing, " +
			"and set the administrator flag. An existing account keeps its password.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := e.service(ctx)
			if err != nil {
				return err
			}
			if email, err = e.valueOr(email, "Admin email"); err != nil {
				return err
			}
			password, err := e.askPassword("Password (used only when the account is new)")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}

			ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
			defer cancel()
			res, err := svc.EnsureAdmin(ctx, email, password, username)
			if err != nil {
				return err
			}
			switch {
			case res.AccountCreated:
				fmt.Fprintf(e.out, "Created administrator %s\n", res.User.Email)
			case res.Promoted:
				fmt.Fprintf(e.out, "Promoted %s to administrator\n", res.User.Email)
			default:
				fmt.Fprintf(e.out, "%s is already an administrator\n", res.User.Email)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Administrator email (prompted if omitted)")
	cmd.Flags().StringVar(&username, "username", "admin", "Username for a new profile")
	return cmd
}

func newAdminConfirmCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <email>",
		Short: "Mark an account's email as confirmed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := e.service(ctx)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
			defer cancel()
			u, err := svc.ConfirmEmail(ctx, args[0])
			if err != nil {
				return fmt.Errorf("confirm %s: %w", args[0], err)
			}
			fmt.Fprintf(e.out, "Confirmed %s\n", u.Email)
			return nil
		},
	}
}

func newStorageCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Blob storage tasks",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "ensure-bucket",
		Short: "Create the public " + models.ProductImagesBucket + " bucket if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := e.service(ctx)
			if err != nil {
				return err
			}
			store := svc.Blobs()
			if store == nil {
				return fmt.Errorf("storage is disabled in the configuration")
			}
			ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
			defer cancel()
			created, err := blob.EnsureBucket(ctx, store, models.ProductImagesBucket, true)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(e.out, "Created bucket %s\n", models.ProductImagesBucket)
			} else {
				fmt.Fprintf(e.out, "Bucket %s already exists\n", models.ProductImagesBucket)
			}
			return nil
		},
	})
	return cmd
}
