package client

import (
	"context"
	"fmt"

	"github.com/emersion/go-sasl"
	imapkit "github.com/salvor-hardin/go-imapkit"
	isasl "github.com/salvor-hardin/go-imapkit/internal/sasl"
	"github.com/salvor-hardin/go-imapkit/wire"
)

// Authenticate logs the session in, choosing LOGIN or SASL AUTHENTICATE per
// Config.SASLMechanism (grounded on the teacher's imapclient/authenticate.go
// Start/Next loop, adapted to this library's exclusive Engine: the
// continuation-request round trips of a SASL exchange are driven by
// Engine.authenticate directly, since Execute's literal-continuation
// handshake only covers a single rendezvous, not an arbitrary number of
// challenge/response turns).
func (c *Client) Authenticate(ctx context.Context) error {
	if err := c.CheckConnection(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateAuthenticated || c.state == StateSelected {
		return nil
	}

	mech := c.cfg.SASLMechanism
	if mech == "" {
		if c.cfg.OAuthToken != "" {
			mech = "XOAUTH2"
		} else {
			mech = "LOGIN"
		}
	}

	var err error
	switch mech {
	case "LOGIN":
		err = c.loginLocked(ctx)
	case "PLAIN":
		err = c.authenticateLocked(ctx, sasl.NewPlainClient("", c.cfg.Username, c.cfg.Password))
	case "XOAUTH2":
		err = c.authenticateLocked(ctx, newXOAuth2Client(c.cfg.Username, c.cfg.OAuthToken))
	default:
		err = c.authenticateLocked(ctx, sasl.NewPlainClient("", c.cfg.Username, c.cfg.Password))
	}
	if err != nil {
		return err
	}

	c.state = StateAuthenticated
	// RFC 3501: the capability set may legitimately change across
	// authentication, so it must be re-read rather than reused.
	c.caps = nil
	_, err = c.capabilityLocked(ctx)
	return err
}

func (c *Client) loginLocked(ctx context.Context) error {
	resp, err := c.eng.Execute(ctx, "LOGIN", func(w *CommandWriter) error {
		w.Astring(c.cfg.Username).SP().Astring(c.cfg.Password)
		return w.Err()
	}, nil)
	if err != nil {
		return imapkit.NewError("LOGIN", imapkit.KindAuthentication, err)
	}
	if err := resp.Validate("LOGIN"); err != nil {
		return imapkit.NewError("LOGIN", imapkit.KindAuthentication, err)
	}
	return nil
}

func (c *Client) authenticateLocked(ctx context.Context, saslClient sasl.Client) error {
	hasSASLIR := c.caps["SASL-IR"]
	resp, err := c.eng.authenticate(ctx, saslClient, hasSASLIR)
	if err != nil {
		return imapkit.NewError("AUTHENTICATE", imapkit.KindAuthentication, err)
	}
	if err := resp.Validate("AUTHENTICATE"); err != nil {
		return imapkit.NewError("AUTHENTICATE", imapkit.KindAuthentication, err)
	}
	return nil
}

// authenticate drives one full SASL exchange: AUTHENTICATE mechanism
// [initial-response], then a loop of "+ <challenge>" continuation requests
// answered with base64 responses, ending at the tagged completion. It holds
// the same exclusive mutex Execute does, since it is itself a single
// request/response cycle by the protocol's own rules.
func (e *Engine) authenticate(ctx context.Context, saslClient sasl.Client, hasSASLIR bool) (*Response, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	mechName, ir, err := saslClient.Start()
	if err != nil {
		return nil, fmt.Errorf("client: AUTHENTICATE: starting %s exchange: %w", mechName, err)
	}

	tag := e.nextTag()
	enc := wire.NewEncoder(e.tr.Writer(), nil)
	enc.Tag(tag).Atom("AUTHENTICATE").SP().Atom(mechName)
	if hasSASLIR {
		enc.SP().Atom(isasl.Encode(ir))
	}
	if err := enc.Line(); err != nil {
		return nil, fmt.Errorf("client: AUTHENTICATE: %w", err)
	}

	dec := wire.NewDecoder(e.tr.Reader(), nil)
	resp := &Response{Tag: tag, Name: "AUTHENTICATE"}
	sentIR := hasSASLIR

	for {
		r, err := wire.ReadResponse(dec)
		if err != nil {
			return nil, fmt.Errorf("client: AUTHENTICATE: %w", err)
		}

		switch r.Kind {
		case wire.Continuation:
			if !sentIR && len(ir) > 0 {
				// Server didn't support SASL-IR: its first "+" asks for the
				// initial response, which is sent now.
				sentIR = true
				irEnc := wire.NewEncoder(e.tr.Writer(), nil)
				irEnc.Atom(isasl.Encode(ir))
				if err := irEnc.Line(); err != nil {
					return nil, fmt.Errorf("client: AUTHENTICATE: %w", err)
				}
				continue
			}
			var challenge []byte
			if r.Text != "" {
				challenge, err = isasl.Decode(r.Text)
				if err != nil {
					return nil, fmt.Errorf("client: AUTHENTICATE: decoding challenge: %w", err)
				}
			}
			sentIR = true

			out, saslErr := saslClient.Next(challenge)
			lineEnc := wire.NewEncoder(e.tr.Writer(), nil)
			if saslErr != nil {
				// Cancel the exchange per RFC 3501 §6.2.2: a bare "*".
				lineEnc.Atom("*")
			} else {
				lineEnc.Atom(isasl.Encode(out))
			}
			if err := lineEnc.Line(); err != nil {
				return nil, fmt.Errorf("client: AUTHENTICATE: %w", err)
			}
			if saslErr != nil {
				return nil, fmt.Errorf("client: AUTHENTICATE: %w", saslErr)
			}
		case wire.Tagged:
			if r.Tag != tag {
				continue
			}
			resp.Status = r.Status
			resp.Code = r.Code
			resp.CodeArgs = r.Args
			resp.Text = r.Text
			return resp, nil
		case wire.Untagged:
			resp.Untagged = append(resp.Untagged, r)
		}
	}
}

// newXOAuth2Client builds the XOAUTH2 mechanism go-sasl doesn't ship a
// constructor for: a one-shot exchange per Google's published profile,
// "user=<user>\x01auth=Bearer <token>\x01\x01".
func newXOAuth2Client(username, token string) sasl.Client {
	return &xoauth2Client{username: username, token: token}
}

type xoauth2Client struct {
	username, token string
}

func (x *xoauth2Client) Start() (mech string, ir []byte, err error) {
	return "XOAUTH2", []byte(fmt.Sprintf("user=%s\x01auth=Bearer %s\x01\x01", x.username, x.token)), nil
}

func (x *xoauth2Client) Next(challenge []byte) ([]byte, error) {
	// A non-empty challenge here is a JSON error payload; answering empty
	// lets the tagged NO complete the exchange instead of hanging it.
	return []byte{}, nil
}
