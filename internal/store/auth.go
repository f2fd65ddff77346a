package store

import (
	"context"
	"fmt"

	"github.com/ipagrab/ipagrab/internal/domain"
)

// twoFactorMessage is the customerMessage the store returns when the account
// requires a one-time code. failureType is empty in that case.
const twoFactorMessage = "MZFinance.BadLogin.Configurator_message"

type authResponse struct {
	FailureType     string `plist:"failureType"`
	CustomerMessage string `plist:"customerMessage"`
	DSID            string `plist:"dsPersonId"`
	PasswordToken   string `plist:"passwordToken"`
}

// Authenticate exchanges credentials for a Session. A one-time code, when
// present, is concatenated onto the password rather than sent as its own
// field; the attempt counter also differs with and without a code. Both
// follow the protocol, not local choice.
//
// The raw password is never logged.
func (c *Client) Authenticate(ctx context.Context, email, password, code string) (*domain.Session, error) {
	attempt := "4"
	if code != "" {
		attempt = "2"
	}

	payload := map[string]any{
		"appleId":       email,
		"password":      password + code,
		"attempt":       attempt,
		"createSession": "true",
		"guid":          c.guid,
		"rmp":           "0",
		"why":           "signIn",
	}

	var res authResponse
	if err := c.post(ctx, authPath, nil, payload, &res); err != nil {
		return nil, err
	}

	if res.FailureType != "" {
		msg := res.CustomerMessage
		if msg == "" {
			msg = res.FailureType
		}
		c.log.Warn("Authentication rejected for %s", email)
		return nil, fmt.Errorf("%w: %s", domain.ErrAuthFailed, msg)
	}

	if res.CustomerMessage == twoFactorMessage {
		return nil, domain.ErrTwoFactorRequired
	}

	if res.DSID == "" {
		return nil, fmt.Errorf("%w: response carries no account identifier", domain.ErrAuthFailed)
	}

	c.log.Info("Authenticated account %s (dsid %s)", email, res.DSID)

	return &domain.Session{
		DSID:          res.DSID,
		PasswordToken: res.PasswordToken,
		GUID:          c.guid,
	}, nil
}
