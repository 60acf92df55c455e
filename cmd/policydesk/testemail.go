package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/policydesk/internal/notify"
	"github.com/dmitrymomot/policydesk/internal/settings"
)

var errTestEmailFailed = errors.New("test e-mail was not delivered, see logs")

func newTestEmailCmd(envFile *string) *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "test-email",
		Short: "Send a test message with the effective mail settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			d, err := bootstrap(ctx, *envFile, nil)
			if err != nil {
				return err
			}
			defer d.close(context.WithoutCancel(ctx))

			op, err := d.store.OperatorConfig(ctx)
			if err != nil {
				return err
			}
			recipient := to
			if recipient == "" {
				recipient = settings.ResolveRecipient(op, d.cfg.Mail)
			}
			if recipient == "" {
				return errors.New("no recipient: set a notification e-mail, MAIL_DEFAULT_SENDER or --to")
			}

			if !d.transport.Send(ctx, notify.TestSubject, notify.TestBody, recipient, settings.Resolve(op, d.cfg.Mail)) {
				return errTestEmailFailed
			}
			fmt.Fprintf(cmd.OutOrStdout(), "test e-mail sent to %s\n", recipient)
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "recipient override")
	return cmd
}
