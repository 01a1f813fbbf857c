package client

import (
	"context"
	"time"

	imapkit "github.com/salvor-hardin/go-imapkit"
	"github.com/salvor-hardin/go-imapkit/wire"
)

// AppendOptions controls the optional flag set and internal date attached
// to an APPEND.
type AppendOptions struct {
	Flags        []imapkit.Flag
	InternalDate time.Time
}

// AppendResult carries the server's UIDPLUS APPENDUID response code
// (RFC 4315), when advertised.
type AppendResult struct {
	UIDValidity uint32
	UID         imapkit.UID
	HasUID      bool
}

// Append issues APPEND, uploading msg as a new message in mailbox.
func (c *Client) Append(ctx context.Context, mailbox string, msg []byte, opts AppendOptions) (*AppendResult, error) {
	if err := c.CheckConnection(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.eng.Execute(ctx, "APPEND", func(w *CommandWriter) error {
		w.Mailbox(mailbox)
		if len(opts.Flags) > 0 {
			w.SP()
			fields := make([]wire.Field, len(opts.Flags))
			for i, f := range opts.Flags {
				fields[i] = string(f)
			}
			w.List(fields...)
		}
		if !opts.InternalDate.IsZero() {
			w.SP()
			w.enc.DateTime(opts.InternalDate)
		}
		w.SP().Literal(msg)
		return w.Err()
	}, nil)
	if err != nil {
		return nil, imapkit.NewError("APPEND", imapkit.KindProtocol, err)
	}
	if err := resp.Validate("APPEND"); err != nil {
		return nil, err
	}

	result := &AppendResult{}
	if resp.Code == "APPENDUID" && len(resp.CodeArgs) == 2 {
		if n, ok := resp.CodeArgs[0].Number(); ok {
			result.UIDValidity = n
		}
		if n, ok := resp.CodeArgs[1].Number(); ok {
			result.UID = imapkit.UID(n)
			result.HasUID = true
		}
	}
	return result, nil
}
