package client

import (
	"context"
	"strings"

	imapkit "github.com/salvor-hardin/go-imapkit"
	"github.com/salvor-hardin/go-imapkit/events"
	"github.com/salvor-hardin/go-imapkit/wire"
)

// Store issues STORE for seqSet, returning the updated flag list per
// message unless silent is true (in which case the server suppresses the
// untagged FETCH responses and the returned slice is empty). A flag/new or
// flag/deleted event is emitted per message per flag once the STORE
// succeeds.
func (c *Client) Store(ctx context.Context, seqSet imapkit.SeqSet, mode imapkit.StoreMode, flags []imapkit.Flag, silent bool) ([]*FetchItem, error) {
	items, err := c.store(ctx, "STORE", seqSet, mode, flags, silent)
	if err != nil {
		return nil, err
	}
	if nums, ok := seqSet.Nums(); ok {
		for _, n := range nums {
			emitFlagEvents(c, n, mode, flags)
		}
	}
	return items, nil
}

// UIDStore issues UID STORE for uidSet.
func (c *Client) UIDStore(ctx context.Context, uidSet imapkit.UIDSet, mode imapkit.StoreMode, flags []imapkit.Flag, silent bool) ([]*FetchItem, error) {
	items, err := c.store(ctx, "UID STORE", uidSet, mode, flags, silent)
	if err != nil {
		return nil, err
	}
	if uids, ok := uidSet.Nums(); ok {
		for _, u := range uids {
			emitFlagEvents(c, u, mode, flags)
		}
	}
	return items, nil
}

// emitFlagEvents fires a flag section event for ident, one per flag.
// StoreReplaceFlags has no prior state to diff against, so it is reported
// as flag/new for the flags given.
func emitFlagEvents(c *Client, ident interface{}, mode imapkit.StoreMode, flags []imapkit.Flag) {
	name := events.FlagNew
	if mode == imapkit.StoreRemoveFlags {
		name = events.FlagDeleted
	}
	for _, f := range flags {
		c.events.Emit(events.SectionFlag, name, &events.FlagPayload{Message: ident, Flag: string(f)})
	}
}

func (c *Client) store(ctx context.Context, cmdName string, set imapkit.NumSet, mode imapkit.StoreMode, flags []imapkit.Flag, silent bool) ([]*FetchItem, error) {
	if err := c.CheckConnection(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var items []*FetchItem
	resp, err := c.eng.Execute(ctx, cmdName, func(w *CommandWriter) error {
		w.Raw(set.String()).SP().Raw(storeItemName(mode, silent)).SP()
		fields := make([]wire.Field, len(flags))
		for i, f := range flags {
			fields[i] = string(f)
		}
		w.List(fields...)
		return w.Err()
	}, func(r *wire.Response) {
		if strings.ToUpper(r.Type) != "FETCH" || len(r.Fields) != 1 {
			c.dispatchMailboxUpdates(r)
			return
		}
		pairs, ok := r.Fields[0].List()
		if !ok {
			return
		}
		items = append(items, parseFetchPairs(r.Num, pairs))
	})
	if err != nil {
		return nil, imapkit.NewError(cmdName, imapkit.KindProtocol, err)
	}
	if err := resp.Validate(cmdName); err != nil {
		return nil, err
	}
	return items, nil
}

func storeItemName(mode imapkit.StoreMode, silent bool) string {
	var sb strings.Builder
	switch mode {
	case imapkit.StoreAddFlags:
		sb.WriteByte('+')
	case imapkit.StoreRemoveFlags:
		sb.WriteByte('-')
	}
	sb.WriteString("FLAGS")
	if silent {
		sb.WriteString(".SILENT")
	}
	return sb.String()
}
