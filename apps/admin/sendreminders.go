package main

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

func (cli *commandLine) sendReminders(tz string) error {
	emails, err := cli.remindSvc.Send(context.Background(), strings.TrimSpace(tz))
	if err != nil {
		return errors.Wrap(err, "sending reminders")
	}
	if len(emails) == 0 {
		cli.printf("nobody to remind in %s\n", tz)
		return nil
	}
	cli.printf("reminders sent to: %s\n", strings.Join(emails, ", "))
	return nil
}
