package sms

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

//go:generate mockgen -destination=mocks/mock_transport.go -package=mocks liyu1981.xyz/water-alarm-service/pkg/sms Transport

// Transport sends one message to one recipient. Implementations report the
// provider's status and message id; the router records both.
type Transport interface {
	Send(ctx context.Context, to, from, body string) (status string, messageID string, err error)
}

// TwilioTransport is the production Transport.
type TwilioTransport struct {
	client *twilio.RestClient
}

func NewTwilioTransport(accountSid, authToken string) (*TwilioTransport, error) {
	if accountSid == "" || authToken == "" {
		return nil, fmt.Errorf("twilio credentials not configured")
	}
	return &TwilioTransport{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSid,
			Password: authToken,
		}),
	}, nil
}

func (t *TwilioTransport) Send(_ context.Context, to, from, body string) (string, string, error) {
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return "", "", err
	}

	status := "sent"
	if resp.Status != nil {
		status = *resp.Status
	}
	messageID := ""
	if resp.Sid != nil {
		messageID = *resp.Sid
	}
	return status, messageID, nil
}
