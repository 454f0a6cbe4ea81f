package sms

import (
	"context"
	"errors"
	"strings"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/subhub-labs/subhub-backend/pkg/config"
	pkgerrors "github.com/subhub-labs/subhub-backend/pkg/errors"
	"github.com/subhub-labs/subhub-backend/pkg/logger"
)

var (
	errAccountSIDRequired = errors.New("twilio account sid is required")
	errAuthTokenRequired  = errors.New("twilio auth token is required")
	errFromNumberRequired = errors.New("twilio from number is required")
)

// Sender delivers SMS through Twilio.
type Sender struct {
	client *twilio.RestClient
	from   string
	logger *logger.Logger
}

// NewSender validates the Twilio credentials and returns a sender.
func NewSender(cfg config.TwilioConfig, logg *logger.Logger) (*Sender, error) {
	sid := strings.TrimSpace(cfg.AccountSID)
	if sid == "" {
		return nil, errAccountSIDRequired
	}
	token := strings.TrimSpace(cfg.AuthToken)
	if token == "" {
		return nil, errAuthTokenRequired
	}
	from := strings.TrimSpace(cfg.FromNumber)
	if from == "" {
		return nil, errFromNumberRequired
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: sid,
		Password: token,
	})
	return &Sender{client: client, from: from, logger: logg}, nil
}

// Send delivers one message to one phone number. The subject is folded into
// the body since SMS has no subject line.
func (s *Sender) Send(ctx context.Context, recipient, subject, body string) error {
	text := strings.TrimSpace(subject)
	if body != "" {
		if text != "" {
			text += ": "
		}
		text += body
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(recipient)
	params.SetFrom(s.from)
	params.SetBody(text)

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send sms")
	}

	if s.logger != nil {
		s.logger.Info(s.logger.WithFields(ctx, map[string]any{
			"recipient": recipient,
		}), "sms.sent")
	}
	return nil
}
