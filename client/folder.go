package client

import (
	"context"
	"fmt"
	"strings"

	imapkit "github.com/salvor-hardin/go-imapkit"
	"github.com/salvor-hardin/go-imapkit/events"
	"github.com/salvor-hardin/go-imapkit/utf7"
	"github.com/salvor-hardin/go-imapkit/wire"
)

// Folder is a thin handle onto one mailbox: a name, its last-known
// attributes/delimiter, and a reference back to the Client that issues its
// commands, per this library's "Folder owns a reference to its Client"
// design (spec.md §4.5), grounded on the teacher's select.go/list.go
// command handling.
type Folder struct {
	client *Client
	info   imapkit.MailboxInfo
}

// Name returns the folder's UTF-8 path.
func (f *Folder) Name() string { return f.info.Name }

// Client returns the Client this folder issues commands through, so
// sibling packages (the query builder, the IDLE loop) can reach the raw
// Search/Fetch/OpenFolder primitives a Folder itself doesn't re-expose.
func (f *Folder) Client() *Client { return f.client }

// Delimiter returns the hierarchy separator reported by the server, or ""
// if unknown.
func (f *Folder) Delimiter() string { return f.info.Delimiter }

// HasChildren reports whether the server's last LIST response advertised
// \HasChildren for this folder.
func (f *Folder) HasChildren() bool { return f.info.HasChildren() }

// SetChildren records that this folder has children, for callers building
// a tree from a non-hierarchical LIST result (e.g. inferred from
// delimiter-joined names rather than the \HasChildren attribute).
func (f *Folder) SetChildren(has bool) {
	const attr = imapkit.AttrHasChildren
	if has == f.info.HasAttr(attr) {
		return
	}
	if has {
		f.info.Attributes = append(f.info.Attributes, attr)
	} else {
		kept := f.info.Attributes[:0]
		for _, a := range f.info.Attributes {
			if !strings.EqualFold(a, attr) {
				kept = append(kept, a)
			}
		}
		f.info.Attributes = kept
	}
}

// GetFolder returns a Folder for name without selecting it, listing it
// first to discover its attributes and delimiter. If delimiter is
// non-empty it is used directly and the LIST round trip is skipped.
func (c *Client) GetFolder(ctx context.Context, name string, delimiter string) (*Folder, error) {
	if err := c.CheckConnection(ctx); err != nil {
		return nil, err
	}
	if delimiter != "" {
		return &Folder{client: c, info: imapkit.MailboxInfo{Name: name, Delimiter: delimiter}}, nil
	}

	infos, err := c.listLocked(ctx, "LIST", "", name)
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if info.Name == name {
			return &Folder{client: c, info: info}, nil
		}
	}
	return &Folder{client: c, info: imapkit.MailboxInfo{Name: name}}, nil
}

// GetFolders lists every mailbox under parent (or the server root if
// parent is ""). parent is sent unchanged as the LIST reference name; no
// hierarchy delimiter is appended. If hierarchical is true the pattern is
// "%" (one level below the reference); otherwise it is "*" (every
// descendant).
func (c *Client) GetFolders(ctx context.Context, hierarchical bool, parent string) ([]*Folder, error) {
	if err := c.CheckConnection(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ref := ""
	pattern := "*"
	if parent != "" {
		ref = parent
	}
	if hierarchical {
		pattern = "%"
	}

	infos, err := c.listLocked(ctx, "LIST", ref, pattern)
	if err != nil {
		return nil, err
	}
	folders := make([]*Folder, len(infos))
	for i, info := range infos {
		folders[i] = &Folder{client: c, info: info}
	}
	return folders, nil
}

// Lsub lists only subscribed mailboxes, with the same reference/pattern
// semantics as GetFolders.
func (c *Client) Lsub(ctx context.Context, hierarchical bool, parent string) ([]*Folder, error) {
	if err := c.CheckConnection(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	pattern := "*"
	if hierarchical {
		pattern = "%"
	}
	infos, err := c.listLocked(ctx, "LSUB", parent, pattern)
	if err != nil {
		return nil, err
	}
	folders := make([]*Folder, len(infos))
	for i, info := range infos {
		folders[i] = &Folder{client: c, info: info}
	}
	return folders, nil
}

func (c *Client) listLocked(ctx context.Context, cmd, ref, pattern string) ([]imapkit.MailboxInfo, error) {
	var infos []imapkit.MailboxInfo
	resp, err := c.eng.Execute(ctx, cmd, func(w *CommandWriter) error {
		w.Mailbox(ref).SP().Mailbox(pattern)
		return w.Err()
	}, func(r *wire.Response) {
		if r.Type != cmd {
			return
		}
		if info, ok := parseListResponse(r.Fields); ok {
			infos = append(infos, info)
		}
	})
	if err != nil {
		return nil, imapkit.NewError(cmd, imapkit.KindProtocol, err)
	}
	if err := resp.Validate(cmd); err != nil {
		return nil, err
	}
	return infos, nil
}

// parseListResponse decodes a LIST/LSUB untagged data response:
// "(attrs) delim mailbox", adapted from the teacher's imapclient/list.go
// readList.
func parseListResponse(fields []wire.Token) (imapkit.MailboxInfo, bool) {
	if len(fields) < 3 {
		return imapkit.MailboxInfo{}, false
	}
	var info imapkit.MailboxInfo

	if attrTokens, ok := fields[0].List(); ok {
		for _, a := range attrTokens {
			if s, ok := a.Atom(); ok {
				info.Attributes = append(info.Attributes, s)
			}
		}
	}

	if !fields[1].IsNil() {
		if delim, ok := fields[1].Text(); ok {
			info.Delimiter = delim
		}
	}

	wireName, ok := fields[2].Text()
	if !ok {
		return imapkit.MailboxInfo{}, false
	}
	name, err := utf7.Decode(wireName)
	if err != nil {
		name = wireName
	}
	info.Name = imapkit.CanonicalMailboxName(name)
	return info, true
}

// CreateFolder issues CREATE and returns a handle to the new mailbox.
func (c *Client) CreateFolder(ctx context.Context, name string) (*Folder, error) {
	if err := c.CheckConnection(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	resp, err := c.eng.Execute(ctx, "CREATE", func(w *CommandWriter) error {
		w.Mailbox(name)
		return w.Err()
	}, nil)
	c.mu.Unlock()
	if err != nil {
		return nil, imapkit.NewError("CREATE", imapkit.KindProtocol, err)
	}
	if err := resp.Validate("CREATE"); err != nil {
		return nil, err
	}
	folder := &Folder{client: c, info: imapkit.MailboxInfo{Name: imapkit.CanonicalMailboxName(name)}}
	c.events.Emit(events.SectionFolder, events.FolderNew, &events.FolderPayload{Name: folder.Name()})
	return folder, nil
}

// DeleteFolder issues DELETE for name directly, without requiring a Folder
// handle.
func (c *Client) DeleteFolder(ctx context.Context, name string) error {
	if err := c.CheckConnection(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	resp, err := c.eng.Execute(ctx, "DELETE", func(w *CommandWriter) error {
		w.Mailbox(name)
		return w.Err()
	}, nil)
	c.mu.Unlock()
	if err != nil {
		return imapkit.NewError("DELETE", imapkit.KindProtocol, err)
	}
	if err := resp.Validate("DELETE"); err != nil {
		return err
	}
	c.events.Emit(events.SectionFolder, events.FolderDeleted, &events.FolderPayload{Name: imapkit.CanonicalMailboxName(name)})
	return nil
}

// Delete issues DELETE for this folder.
func (f *Folder) Delete(ctx context.Context) error {
	return f.client.DeleteFolder(ctx, f.info.Name)
}

// Move renames this folder to newPath (RENAME), updating its local name on
// success.
func (f *Folder) Move(ctx context.Context, newPath string) error {
	if err := f.client.CheckConnection(ctx); err != nil {
		return err
	}
	old := f.info.Name
	f.client.mu.Lock()
	resp, err := f.client.eng.Execute(ctx, "RENAME", func(w *CommandWriter) error {
		w.Mailbox(old).SP().Mailbox(newPath)
		return w.Err()
	}, nil)
	if err == nil {
		err = resp.Validate("RENAME")
	}
	if err == nil {
		f.info.Name = imapkit.CanonicalMailboxName(newPath)
		if f.client.activeName == old {
			f.client.activeName = f.info.Name
		}
	}
	f.client.mu.Unlock()
	if err != nil {
		return imapkit.NewError("RENAME", imapkit.KindProtocol, err)
	}
	f.client.events.Emit(events.SectionFolder, events.FolderMoved, &events.FolderPayload{Name: f.info.Name, OldName: old})
	return nil
}

// Subscribe issues SUBSCRIBE for this folder.
func (f *Folder) Subscribe(ctx context.Context) error { return f.client.subscribe(ctx, "SUBSCRIBE", f.info.Name) }

// Unsubscribe issues UNSUBSCRIBE for this folder.
func (f *Folder) Unsubscribe(ctx context.Context) error {
	return f.client.subscribe(ctx, "UNSUBSCRIBE", f.info.Name)
}

func (c *Client) subscribe(ctx context.Context, cmd, name string) error {
	if err := c.CheckConnection(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	resp, err := c.eng.Execute(ctx, cmd, func(w *CommandWriter) error {
		w.Mailbox(name)
		return w.Err()
	}, nil)
	c.mu.Unlock()
	if err != nil {
		return imapkit.NewError(cmd, imapkit.KindProtocol, err)
	}
	return resp.Validate(cmd)
}

// OpenFolder selects name, or is a no-op if it is already the active
// folder and forceSelect is false, per spec.md §4.4's state invariant.
func (c *Client) OpenFolder(ctx context.Context, name string, forceSelect bool) (*Folder, error) {
	name = imapkit.CanonicalMailboxName(name)
	if !forceSelect && c.ActiveFolder() == name {
		return &Folder{client: c, info: imapkit.MailboxInfo{Name: name}}, nil
	}
	folder := &Folder{client: c, info: imapkit.MailboxInfo{Name: name}}
	if _, err := folder.Select(ctx); err != nil {
		return nil, err
	}
	return folder, nil
}

// Select opens the folder read-write and returns its status.
func (f *Folder) Select(ctx context.Context) (*imapkit.MailboxStatus, error) {
	return f.selectOrExamine(ctx, "SELECT", false)
}

// Examine opens the folder read-only and returns its status.
func (f *Folder) Examine(ctx context.Context) (*imapkit.MailboxStatus, error) {
	return f.selectOrExamine(ctx, "EXAMINE", true)
}

func (f *Folder) selectOrExamine(ctx context.Context, cmdName string, readOnly bool) (*imapkit.MailboxStatus, error) {
	c := f.client
	if err := c.CheckConnection(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	status := &imapkit.MailboxStatus{Name: f.info.Name, ReadOnly: readOnly}
	resp, err := c.eng.Execute(ctx, cmdName, func(w *CommandWriter) error {
		w.Mailbox(f.info.Name)
		return w.Err()
	}, func(r *wire.Response) {
		applyMailboxUntagged(status, r)
	})
	if err != nil {
		return nil, imapkit.NewError(cmdName, imapkit.KindProtocol, err)
	}
	if err := resp.Validate(cmdName); err != nil {
		return nil, err
	}
	if resp.Code == "READ-ONLY" {
		status.ReadOnly = true
	}

	c.activeName = f.info.Name
	c.state = StateSelected
	c.status = status
	c.uidCache.reset(status.UIDValidity)
	return status, nil
}

// Status issues STATUS for this folder without selecting it.
func (f *Folder) Status(ctx context.Context, items ...string) (*imapkit.MailboxStatus, error) {
	c := f.client
	if err := c.CheckConnection(ctx); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		items = []string{"MESSAGES", "RECENT", "UIDNEXT", "UIDVALIDITY", "UNSEEN"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	status := &imapkit.MailboxStatus{Name: f.info.Name}
	resp, err := c.eng.Execute(ctx, "STATUS", func(w *CommandWriter) error {
		w.Mailbox(f.info.Name).SP()
		fields := make([]wire.Field, len(items))
		for i, it := range items {
			fields[i] = it
		}
		w.List(fields...)
		return w.Err()
	}, func(r *wire.Response) {
		if r.Type != "STATUS" || len(r.Fields) < 2 {
			return
		}
		pairs, ok := r.Fields[1].List()
		if !ok {
			return
		}
		applyStatusAttrs(status, pairs)
	})
	if err != nil {
		return nil, imapkit.NewError("STATUS", imapkit.KindProtocol, err)
	}
	if err := resp.Validate("STATUS"); err != nil {
		return nil, err
	}
	return status, nil
}

func applyStatusAttrs(status *imapkit.MailboxStatus, pairs []wire.Token) {
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].Atom()
		if !ok {
			continue
		}
		n, _ := pairs[i+1].Number()
		switch strings.ToUpper(key) {
		case "MESSAGES":
			status.NumMessages = n
		case "RECENT":
			status.NumRecent = n
		case "UIDNEXT":
			status.UIDNext = imapkit.UID(n)
		case "UIDVALIDITY":
			status.UIDValidity = n
		case "UNSEEN":
			status.NumUnseen = n
		case "HIGHESTMODSEQ":
			status.HighestModSeq = uint64(n)
		}
	}
}

// applyMailboxUntagged folds one SELECT/EXAMINE untagged response into
// status, following the teacher's select.go handleExists/handleFlags
// switch but writing directly into the caller's status value instead of a
// shared mailbox field.
func applyMailboxUntagged(status *imapkit.MailboxStatus, r *wire.Response) {
	switch strings.ToUpper(r.Type) {
	case "FLAGS":
		if len(r.Fields) == 1 {
			if list, ok := r.Fields[0].List(); ok {
				status.Flags = atomsOf(list)
			}
		}
	case "EXISTS":
		status.NumMessages = r.Num
	case "RECENT":
		status.NumRecent = r.Num
	case "OK":
		switch strings.ToUpper(r.Code) {
		case "UIDVALIDITY":
			if len(r.Args) == 1 {
				if n, ok := r.Args[0].Number(); ok {
					status.UIDValidity = n
				}
			}
		case "UIDNEXT":
			if len(r.Args) == 1 {
				if n, ok := r.Args[0].Number(); ok {
					status.UIDNext = imapkit.UID(n)
				}
			}
		case "UNSEEN":
			if len(r.Args) == 1 {
				if n, ok := r.Args[0].Number(); ok {
					status.NumUnseen = n
				}
			}
		case "PERMANENTFLAGS":
			if len(r.Args) == 1 {
				if list, ok := r.Args[0].List(); ok {
					status.PermanentFlags = atomsOf(list)
				}
			}
		case "HIGHESTMODSEQ":
			if len(r.Args) == 1 {
				if n, ok := r.Args[0].Number(); ok {
					status.HighestModSeq = uint64(n)
				}
			}
		}
	}
}

func atomsOf(list []wire.Token) []string {
	out := make([]string, 0, len(list))
	for _, t := range list {
		if s, ok := t.Atom(); ok {
			out = append(out, s)
		}
	}
	return out
}

// dispatchMailboxUpdates is the onUntagged handler used by commands issued
// against an already-selected mailbox (NOOP, FETCH, STORE, ...): it keeps
// Client.status current and shrinks the UID cache on EXPUNGE.
func (c *Client) dispatchMailboxUpdates(r *wire.Response) {
	if c.status == nil {
		return
	}
	switch strings.ToUpper(r.Type) {
	case "EXPUNGE":
		if c.status.NumMessages > 0 {
			c.status.NumMessages--
		}
		c.uidCache.dropSeq(c.status.UIDValidity, r.Num)
	default:
		applyMailboxUntagged(c.status, r)
	}
}

// Close issues CLOSE: expunges deleted messages in the selected mailbox
// and deselects it, without reporting which messages were removed (use
// Expunge for that).
func (f *Folder) Close(ctx context.Context) error {
	c := f.client
	if err := c.CheckConnection(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	resp, err := c.eng.Execute(ctx, "CLOSE", nil, nil)
	if err == nil {
		err = resp.Validate("CLOSE")
	}
	if err == nil {
		c.activeName = ""
		c.status = nil
		c.state = StateAuthenticated
	}
	c.mu.Unlock()
	if err != nil {
		return imapkit.NewError("CLOSE", imapkit.KindProtocol, err)
	}
	return nil
}

// Check issues CHECK, a hint the server may use to perform housekeeping.
func (f *Folder) Check(ctx context.Context) error {
	c := f.client
	if err := c.CheckConnection(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	resp, err := c.eng.Execute(ctx, "CHECK", nil, c.dispatchMailboxUpdates)
	c.mu.Unlock()
	if err != nil {
		return imapkit.NewError("CHECK", imapkit.KindProtocol, err)
	}
	return resp.Validate("CHECK")
}

// Expunge issues EXPUNGE on this folder, permanently removing every
// message marked \Deleted, and returns the sequence numbers removed, in
// the order the server's untagged EXPUNGE lines reported them.
func (f *Folder) Expunge(ctx context.Context) ([]uint32, error) {
	c := f.client
	if err := c.CheckConnection(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed []uint32
	resp, err := c.eng.Execute(ctx, "EXPUNGE", nil, func(r *wire.Response) {
		if strings.ToUpper(r.Type) == "EXPUNGE" {
			removed = append(removed, r.Num)
		}
		c.dispatchMailboxUpdates(r)
	})
	if err != nil {
		return nil, imapkit.NewError("EXPUNGE", imapkit.KindProtocol, err)
	}
	if err := resp.Validate("EXPUNGE"); err != nil {
		return nil, err
	}
	for _, n := range removed {
		c.events.Emit(events.SectionMessage, events.MessageDeleted, &events.MessagePayload{Message: n})
	}
	return removed, nil
}

// Expunge is the Client-level convenience for spec.md §4.4's
// `expunge()`, acting on the currently selected folder.
func (c *Client) Expunge(ctx context.Context) ([]uint32, error) {
	name := c.ActiveFolder()
	if name == "" {
		return nil, fmt.Errorf("client: expunge: no folder selected")
	}
	return (&Folder{client: c, info: imapkit.MailboxInfo{Name: name}}).Expunge(ctx)
}
