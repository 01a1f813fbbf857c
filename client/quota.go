package client

import (
	"context"
	"strings"

	imapkit "github.com/salvor-hardin/go-imapkit"
	"github.com/salvor-hardin/go-imapkit/wire"
)

// GetQuota issues GETQUOTA for root (RFC 9208, the QUOTA extension).
func (c *Client) GetQuota(ctx context.Context, root string) (*imapkit.Quota, error) {
	if err := c.CheckConnection(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var quota *imapkit.Quota
	resp, err := c.eng.Execute(ctx, "GETQUOTA", func(w *CommandWriter) error {
		w.Astring(root)
		return w.Err()
	}, func(r *wire.Response) {
		if strings.ToUpper(r.Type) != "QUOTA" {
			return
		}
		if q, ok := parseQuotaFields(r.Fields); ok {
			quota = q
		}
	})
	if err != nil {
		return nil, imapkit.NewError("GETQUOTA", imapkit.KindProtocol, err)
	}
	if err := resp.Validate("GETQUOTA"); err != nil {
		return nil, err
	}
	return quota, nil
}

// GetQuotaRoot issues GETQUOTAROOT for mailbox, returning the associated
// root names plus one Quota per root the server reported inline.
func (c *Client) GetQuotaRoot(ctx context.Context, mailbox string) (*imapkit.QuotaRoot, []*imapkit.Quota, error) {
	if err := c.CheckConnection(ctx); err != nil {
		return nil, nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var root *imapkit.QuotaRoot
	var quotas []*imapkit.Quota
	resp, err := c.eng.Execute(ctx, "GETQUOTAROOT", func(w *CommandWriter) error {
		w.Mailbox(mailbox)
		return w.Err()
	}, func(r *wire.Response) {
		switch strings.ToUpper(r.Type) {
		case "QUOTAROOT":
			if len(r.Fields) == 0 {
				return
			}
			name, ok := r.Fields[0].Text()
			if !ok {
				return
			}
			qr := &imapkit.QuotaRoot{Mailbox: name}
			for _, t := range r.Fields[1:] {
				if s, ok := t.Text(); ok {
					qr.Roots = append(qr.Roots, s)
				}
			}
			root = qr
		case "QUOTA":
			if q, ok := parseQuotaFields(r.Fields); ok {
				quotas = append(quotas, q)
			}
		}
	})
	if err != nil {
		return nil, nil, imapkit.NewError("GETQUOTAROOT", imapkit.KindProtocol, err)
	}
	if err := resp.Validate("GETQUOTAROOT"); err != nil {
		return nil, nil, err
	}
	return root, quotas, nil
}

func parseQuotaFields(fields []wire.Token) (*imapkit.Quota, bool) {
	if len(fields) != 2 {
		return nil, false
	}
	root, ok := fields[0].Text()
	if !ok {
		return nil, false
	}
	list, ok := fields[1].List()
	if !ok {
		return nil, false
	}
	q := &imapkit.Quota{Root: root, Resources: make(map[imapkit.QuotaResourceType]imapkit.QuotaResourceUsage)}
	for i := 0; i+2 < len(list); i += 3 {
		name, ok := list[i].Atom()
		if !ok {
			break
		}
		usage, _ := list[i+1].Number()
		limit, _ := list[i+2].Number()
		q.Resources[imapkit.QuotaResourceType(name)] = imapkit.QuotaResourceUsage{
			Usage: int64(usage),
			Limit: int64(limit),
		}
	}
	return q, true
}
