package reminder

import (
	"context"
	"net/mail"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/todoapp/core"
)

var errInvalidTimezone = errors.New("invalid timezone")

type ServiceInterface interface {
	// Send emails a digest to every user of tz with reminders on and incomplete todos.
	// It returns the recipients' emails.
	Send(ctx context.Context, tz string) ([]string, error)
	TimezoneEmails(ctx context.Context) (map[string][]string, error)
}

type service struct {
	repo     Repository
	mailSvc  core.EmailService
	metrics  Metrics
	appName  string
	tasksURL string
}

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config, metrics ...Metrics) ServiceInterface {
	svc := &service{
		repo:     repo,
		mailSvc:  mailSvc,
		metrics:  nopMetrics{},
		appName:  conf.AppName,
		tasksURL: conf.AppURL + "/api/v1/tasks/",
	}
	if len(metrics) > 0 && metrics[0] != nil {
		svc.metrics = metrics[0]
	}
	return svc
}

func (svc *service) Send(ctx context.Context, tz string) ([]string, error) {
	if !core.ValidTimezone(tz) {
		return nil, core.NewValidationError(errInvalidTimezone, core.FieldError{Field: "timezone", Error: "timezone must be a valid IANA time zone"})
	}

	digests, err := svc.repo.QueryDigests(ctx, tz)
	if err != nil {
		return nil, errors.Wrap(err, "querying digests")
	}

	emails := make([]string, 0, len(digests))
	messages := make([]*core.EmailMessage, 0, len(digests))
	for _, d := range digests {
		if len(d.Tasks) == 0 {
			continue
		}
		messages = append(messages, svc.newMessage(d))
		emails = append(emails, d.Email)
	}

	if len(messages) > 0 {
		svc.mailSvc.SendMessages(messages...)
	}
	svc.metrics.AddSent(tz, len(messages))
	return emails, nil
}

func (svc *service) newMessage(d Digest) *core.EmailMessage {
	data := emailData{
		AppName:  svc.appName,
		Username: d.Username,
		Tasks:    make([]taskLine, 0, len(d.Tasks)),
	}
	for _, t := range d.Tasks {
		data.Tasks = append(data.Tasks, taskLine{
			Title:       t.Title,
			Description: t.Description,
			Link:        svc.tasksURL + strconv.Itoa(t.ID),
		})
	}
	return &core.EmailMessage{
		To:           []mail.Address{{Name: d.Username, Address: d.Email}},
		Subject:      EmailSubject,
		TemplateName: EmailTemplate,
		TemplateData: data,
	}
}

func (svc *service) TimezoneEmails(ctx context.Context) (map[string][]string, error) {
	tzEmails, err := svc.repo.QueryEmailsByTimezone(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying emails by timezone")
	}
	if tzEmails == nil {
		tzEmails = make(map[string][]string)
	}
	return tzEmails, nil
}
