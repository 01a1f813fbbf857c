package client

import (
	"context"
	"fmt"

	imapkit "github.com/salvor-hardin/go-imapkit"
	"github.com/salvor-hardin/go-imapkit/events"
)

// Copy issues COPY, duplicating seqSet into dest without removing the
// originals, then emits a message/copied event per copied identifier.
func (c *Client) Copy(ctx context.Context, seqSet imapkit.SeqSet, dest string) error {
	if err := c.copyOrMove(ctx, "COPY", seqSet, dest); err != nil {
		return err
	}
	c.emitMessageEvents(events.MessageCopied, seqSet, dest)
	return nil
}

// UIDCopy issues UID COPY, then emits a message/copied event per copied UID.
func (c *Client) UIDCopy(ctx context.Context, uidSet imapkit.UIDSet, dest string) error {
	if err := c.copyOrMove(ctx, "UID COPY", uidSet, dest); err != nil {
		return err
	}
	c.emitUIDMessageEvents(events.MessageCopied, uidSet, dest)
	return nil
}

// Move issues MOVE (RFC 6851) if the server advertises it, otherwise falls
// back to COPY + STORE +FLAGS \Deleted + EXPUNGE, the pre-MOVE idiom. Either
// way, a single message/moved event is emitted per identifier once the
// whole operation has completed -- the fallback's internal COPY never
// emits message/copied, since the net effect observed by callers is a move.
func (c *Client) Move(ctx context.Context, seqSet imapkit.SeqSet, dest string) error {
	if err := c.CheckConnection(ctx); err != nil {
		return err
	}
	var err error
	if c.HasCapability("MOVE") {
		err = c.copyOrMove(ctx, "MOVE", seqSet, dest)
	} else {
		err = c.copyMoveFallback(ctx, seqSet, dest)
	}
	if err != nil {
		return err
	}
	c.emitMessageEvents(events.MessageMoved, seqSet, dest)
	return nil
}

// UIDMove issues UID MOVE, or the COPY/STORE/EXPUNGE fallback, then emits a
// message/moved event per moved UID.
func (c *Client) UIDMove(ctx context.Context, uidSet imapkit.UIDSet, dest string) error {
	if err := c.CheckConnection(ctx); err != nil {
		return err
	}
	if c.HasCapability("MOVE") {
		if err := c.copyOrMove(ctx, "UID MOVE", uidSet, dest); err != nil {
			return err
		}
		c.emitUIDMessageEvents(events.MessageMoved, uidSet, dest)
		return nil
	}
	uids, ok := uidSet.Nums()
	if !ok {
		return imapkit.NewError("MOVE", imapkit.KindProtocol, errDynamicMoveFallback)
	}
	var s imapkit.UIDSet
	s.AddNum(uids...)
	if err := c.copyOrMove(ctx, "UID COPY", s, dest); err != nil {
		return err
	}
	if _, err := c.UIDStore(ctx, s, imapkit.StoreAddFlags, []imapkit.Flag{imapkit.FlagDeleted}, true); err != nil {
		return err
	}
	if _, err := c.Expunge(ctx); err != nil {
		return err
	}
	c.emitUIDMessageEvents(events.MessageMoved, s, dest)
	return nil
}

// emitMessageEvents emits a message section event for every sequence
// number in set, naming dest as the destination folder. A dynamic set
// ("*"/"n:*") can't be expanded to concrete identifiers, so it emits
// nothing -- callers addressing messages that way already know which
// messages they meant.
func (c *Client) emitMessageEvents(name string, set imapkit.SeqSet, dest string) {
	nums, ok := set.Nums()
	if !ok {
		return
	}
	for _, n := range nums {
		c.events.Emit(events.SectionMessage, name, &events.MessagePayload{Message: n, Destination: dest})
	}
}

// emitUIDMessageEvents is emitMessageEvents for a UIDSet.
func (c *Client) emitUIDMessageEvents(name string, set imapkit.UIDSet, dest string) {
	uids, ok := set.Nums()
	if !ok {
		return
	}
	for _, u := range uids {
		c.events.Emit(events.SectionMessage, name, &events.MessagePayload{Message: u, Destination: dest})
	}
}

var errDynamicMoveFallback = fmt.Errorf("client: MOVE fallback requires a concrete UID list, not a dynamic set")

func (c *Client) copyMoveFallback(ctx context.Context, seqSet imapkit.SeqSet, dest string) error {
	if err := c.copyOrMove(ctx, "COPY", seqSet, dest); err != nil {
		return err
	}
	if _, err := c.Store(ctx, seqSet, imapkit.StoreAddFlags, []imapkit.Flag{imapkit.FlagDeleted}, true); err != nil {
		return err
	}
	_, err := c.Expunge(ctx)
	return err
}

func (c *Client) copyOrMove(ctx context.Context, cmdName string, set imapkit.NumSet, dest string) error {
	if err := c.CheckConnection(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	resp, err := c.eng.Execute(ctx, cmdName, func(w *CommandWriter) error {
		w.Raw(set.String()).SP().Mailbox(dest)
		return w.Err()
	}, c.dispatchMailboxUpdates)
	c.mu.Unlock()
	if err != nil {
		return imapkit.NewError(cmdName, imapkit.KindProtocol, err)
	}
	return resp.Validate(cmdName)
}
