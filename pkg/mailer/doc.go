// Package mailer sends plain-text notifications through a pluggable Sender.
//
// A [Transport] builds a fresh [Sender] per message from effective
// [Settings], so credentials and server changes apply without a restart.
// Every message carries a text/plain body and a sanitized HTML alternative
// rendered with goldmark. Transport.Send reports success as a bool and never
// returns an error: failures are logged with recipient, server and port and
// classified by [Diagnose].
//
//	t := mailer.NewTransport(smtp.Factory(),
//		mailer.WithTransportLogger(log),
//		mailer.WithObserver(collector.ObserveSend),
//	)
//	ok := t.Send(ctx, "Reminder", body, "agent@office.test", mailer.Settings{
//		Server:        "smtp.office.test",
//		Port:          587,
//		UseTLS:        true,
//		DefaultSender: "agent@office.test",
//	})
//
// The smtp subpackage provides the SMTP Sender.
package mailer
