// Package sms sends messages through the Africa's Talking bulk messaging
// REST API.
package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrGateway is returned for any delivery failure at the gateway.
var ErrGateway = errors.New("sms gateway failure")

// Options for the SMS client.
type Options struct {
	Username   string
	APIKey     string
	SenderID   string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.SugaredLogger
}

type Client struct {
	opt *Options
}

func NewClient(opt *Options) (*Client, error) {
	switch {
	case opt == nil:
		return nil, errors.New("missing options")
	case opt.Username == "":
		return nil, errors.New("missing sms username")
	case opt.APIKey == "":
		return nil, errors.New("missing sms api key")
	case opt.BaseURL == "":
		return nil, errors.New("missing sms base url")
	case opt.Logger == nil:
		return nil, errors.New("missing logger")
	default:
		if opt.HTTPClient == nil {
			opt.HTTPClient = &http.Client{Timeout: 15 * time.Second}
		}
	}
	return &Client{opt: opt}, nil
}

// Recipient is the per-number delivery status the gateway reports.
type Recipient struct {
	Number string `json:"number"`
	Status string `json:"status"`
	Cost   string `json:"cost"`
}

type sendResponse struct {
	SMSMessageData struct {
		Message    string      `json:"Message"`
		Recipients []Recipient `json:"Recipients"`
	} `json:"SMSMessageData"`
}

// Send delivers one message to the given phone numbers. Single attempt; the
// caller decides whether a partial delivery is worth retrying.
func (c *Client) Send(ctx context.Context, message string, phoneNumbers []string) ([]Recipient, error) {
	if len(phoneNumbers) == 0 {
		return nil, fmt.Errorf("%w: no recipients", ErrGateway)
	}

	form := url.Values{}
	form.Set("username", c.opt.Username)
	form.Set("to", strings.Join(phoneNumbers, ","))
	form.Set("message", message)
	if c.opt.SenderID != "" {
		form.Set("from", c.opt.SenderID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.opt.BaseURL+"/messaging", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", c.opt.APIKey)

	res, err := c.opt.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%w: gateway returned status %d", ErrGateway, res.StatusCode)
	}

	out := &sendResponse{}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrGateway, err)
	}

	c.opt.Logger.Infow("sms batch sent",
		"recipients", len(out.SMSMessageData.Recipients), "message", out.SMSMessageData.Message)

	return out.SMSMessageData.Recipients, nil
}
