package client

import (
	"context"
	"sort"

	imapkit "github.com/salvor-hardin/go-imapkit"
	"github.com/salvor-hardin/go-imapkit/wire"
)

// IDData is the field-value payload of an ID command (RFC 2971), sent by
// the client to identify itself and returned by the server describing
// itself.
type IDData map[string]string

// ID sends the client identification fields and returns the server's
// reply, or a nil map if the server answered NIL. Grounded on meszmate's
// id.go field list and RFC 2971's parenthesised string-pair-list grammar.
func (c *Client) ID(ctx context.Context, fields IDData) (IDData, error) {
	if err := c.CheckConnection(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.idLocked(ctx, fields)
}

func (c *Client) idLocked(ctx context.Context, fields IDData) (IDData, error) {
	var result IDData

	resp, err := c.eng.Execute(ctx, "ID", func(w *CommandWriter) error {
		if len(fields) == 0 {
			w.Atom("NIL")
			return w.Err()
		}
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		args := make([]wire.Field, 0, len(keys)*2)
		for _, k := range keys {
			args = append(args, k, fields[k])
		}
		w.List(args...)
		return w.Err()
	}, func(r *wire.Response) {
		if r.Type != "ID" {
			return
		}
		result = parseIDFields(r.Fields)
	})
	if err != nil {
		return nil, imapkit.NewError("ID", imapkit.KindProtocol, err)
	}
	if err := resp.Validate("ID"); err != nil {
		return nil, err
	}
	return result, nil
}

func parseIDFields(fields []wire.Token) IDData {
	if len(fields) != 1 {
		return nil
	}
	list, ok := fields[0].List()
	if !ok {
		return nil
	}
	data := make(IDData, len(list)/2)
	for i := 0; i+1 < len(list); i += 2 {
		key, ok := list[i].Text()
		if !ok {
			continue
		}
		val, _ := list[i+1].Text()
		data[key] = val
	}
	return data
}
