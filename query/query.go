package query

import (
	"context"
	"fmt"

	imapkit "github.com/salvor-hardin/go-imapkit"
	"github.com/salvor-hardin/go-imapkit/client"
	"github.com/salvor-hardin/go-imapkit/events"
	"github.com/salvor-hardin/go-imapkit/message"
)

// SequenceType selects whether a Query's matched identifiers -- and the
// FETCH commands built from them -- address messages by UID or by
// sequence number.
type SequenceType int

const (
	SequenceUID SequenceType = iota
	SequenceMSN
)

// Order controls whether matched identifiers are populated in the order
// SEARCH returned them (ascending) or reversed first.
type Order int

const (
	OrderAsc Order = iota
	OrderDesc
)

// MessageKey selects what a Query's result collection is keyed by.
type MessageKey int

const (
	KeyUID MessageKey = iota
	KeySeqNum
	KeyListPosition
	KeyMessageID
)

// Query is a fluent search-and-populate pipeline bound to one Folder: a
// SEARCH criteria chain, paging/chunking/ordering controls, and the set of
// FETCH items used to materialise each match into a message.Message. It
// mutates and returns itself per the fluent-builder decision this
// repository made (criterion templates aren't meant to be shared across
// goroutines, matching the Engine's own single-flight model).
type Query struct {
	folder   *client.Folder
	criteria *Criteria

	charsetUTF8 bool
	seqType     SequenceType
	order       Order
	messageKey  MessageKey

	fetchFlags   bool
	fetchBody    bool
	peekBody     bool
	bodySections []imapkit.BodySection

	perPage int
	page    int

	softFail bool
	msgOpts  message.Options
}

// New binds a Query to folder, the equivalent of spec.md §4.5's
// `Folder.getMessages()`. The query package can't live inside client
// (it depends on client's Search/Fetch primitives), so the constructor
// lives here instead of as a Folder method.
func New(folder *client.Folder) *Query {
	return &Query{
		folder:     folder,
		criteria:   NewCriteria(),
		seqType:    SequenceUID,
		messageKey: KeyUID,
		fetchFlags: true,
		fetchBody:  true,
		peekBody:   true,
	}
}

// Criteria exposes the bound criteria chain for direct building, e.g.
// q.Criteria().Since(t).Subject("hi").
func (q *Query) Criteria() *Criteria { return q.criteria }

// CharsetUTF8 requests SEARCH CHARSET UTF-8, needed once any criterion
// argument carries non-ASCII text.
func (q *Query) CharsetUTF8(on bool) *Query { q.charsetUTF8 = on; return q }

// UIDs switches the query to address matches by UID (the default).
func (q *Query) UIDs() *Query { q.seqType = SequenceUID; return q }

// SeqNums switches the query to address matches by sequence number.
func (q *Query) SeqNums() *Query { q.seqType = SequenceMSN; return q }

// Desc reverses the matched identifier list before paging/chunking.
func (q *Query) Desc() *Query { q.order = OrderDesc; return q }

// Asc restores the default ascending (server) order.
func (q *Query) Asc() *Query { q.order = OrderAsc; return q }

// KeyBy selects what the result collection from Get/Chunked/Filter is
// keyed by.
func (q *Query) KeyBy(key MessageKey) *Query { q.messageKey = key; return q }

// FetchBody controls whether Get/Chunked/Filter downloads and parses each
// message's full body (RFC822), or only flags/envelope.
func (q *Query) FetchBody(on bool) *Query { q.fetchBody = on; return q }

// Peek controls whether the body fetch uses BODY.PEEK (not marking \Seen).
// Default true.
func (q *Query) Peek(on bool) *Query { q.peekBody = on; return q }

// SoftFail enables soft-fail mode: per-identifier materialisation errors
// are recorded in the returned error map rather than aborting the batch.
func (q *Query) SoftFail(on bool) *Query { q.softFail = on; return q }

// Paginate restricts population to page `page` (1-indexed) of `perPage`
// matched identifiers, applied before any FETCH is issued.
func (q *Query) Paginate(perPage, page int) *Query {
	q.perPage = perPage
	q.page = page
	return q
}

// Result is one materialised match, keyed per Query.KeyBy.
type Result struct {
	Key     string
	Message *message.Message
}

// Search issues SEARCH (or UID SEARCH, per the query's sequence type) and
// returns the matched identifiers in server order, without fetching
// anything else.
func (q *Query) Search(ctx context.Context) ([]imapkit.UID, error) {
	if err := q.ensureSelected(ctx); err != nil {
		return nil, err
	}
	c := q.folder.Client()
	program := q.criteria.String()
	if program == "" {
		program = "ALL"
	}

	if q.seqType == SequenceUID {
		return c.UIDSearch(ctx, q.charsetUTF8, program)
	}
	nums, err := c.Search(ctx, q.charsetUTF8, program)
	if err != nil {
		return nil, err
	}
	uids := make([]imapkit.UID, len(nums))
	for i, n := range nums {
		uids[i] = imapkit.UID(n)
	}
	return uids, nil
}

// Get executes Search, then populates every matched identifier into a
// materialised Message per the population pipeline (§4.6): FLAGS, then
// envelope/body as configured. In soft-fail mode, per-identifier errors
// are recorded in the returned map instead of aborting.
func (q *Query) Get(ctx context.Context) ([]*Result, map[imapkit.UID]error, error) {
	uids, err := q.Search(ctx)
	if err != nil {
		return nil, nil, err
	}
	uids = q.applyOrder(uids)
	uids = q.applyPage(uids)
	return q.populate(ctx, uids)
}

// Paginated is a convenience combining Paginate and Get.
func (q *Query) Paginated(ctx context.Context, perPage, page int) ([]*Result, map[imapkit.UID]error, error) {
	return q.Paginate(perPage, page).Get(ctx)
}

// ChunkCallback receives one window of populated results plus its
// zero-based chunk index.
type ChunkCallback func(results []*Result, chunkIndex int) error

// Chunked iterates Search's matches in windows of chunkSize, starting at
// the 0-indexed `start`'th match, invoking callback once per window until
// every matched identifier has been processed exactly once -- no window is
// ever refetched.
func (q *Query) Chunked(ctx context.Context, callback ChunkCallback, chunkSize, start int) (map[imapkit.UID]error, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("query: chunked: chunkSize must be positive")
	}
	uids, err := q.Search(ctx)
	if err != nil {
		return nil, err
	}
	uids = q.applyOrder(uids)
	if start < 0 {
		start = 0
	}
	if start > len(uids) {
		start = len(uids)
	}
	uids = uids[start:]

	errs := make(map[imapkit.UID]error)
	for i := 0; i < len(uids); i += chunkSize {
		end := i + chunkSize
		if end > len(uids) {
			end = len(uids)
		}
		window := uids[i:end]
		results, werrs, err := q.populate(ctx, window)
		if err != nil {
			return errs, err
		}
		for uid, e := range werrs {
			errs[uid] = e
		}
		if err := callback(results, i/chunkSize); err != nil {
			return errs, err
		}
	}
	return errs, nil
}

// Predicate decides whether a materialised message should be kept.
type Predicate func(*message.Message) bool

// Filter fetches the complete matched UID set (Paginate is not applied),
// with bodies unless FetchBody(false) was set, applies predicate, and
// returns only the messages predicate accepted. Every candidate is
// populated before filtering, since the predicate needs the materialised
// message to decide.
func (q *Query) Filter(ctx context.Context, predicate Predicate) ([]*Result, map[imapkit.UID]error, error) {
	uids, err := q.Search(ctx)
	if err != nil {
		return nil, nil, err
	}
	results, errs, err := q.populate(ctx, q.applyOrder(uids))
	if err != nil {
		return nil, nil, err
	}
	kept := make([]*Result, 0, len(results))
	for _, r := range results {
		if predicate(r.Message) {
			kept = append(kept, r)
		}
	}
	return kept, errs, nil
}

func (q *Query) applyOrder(uids []imapkit.UID) []imapkit.UID {
	if q.order != OrderDesc {
		return uids
	}
	reversed := make([]imapkit.UID, len(uids))
	for i, u := range uids {
		reversed[len(uids)-1-i] = u
	}
	return reversed
}

func (q *Query) applyPage(uids []imapkit.UID) []imapkit.UID {
	if q.perPage <= 0 {
		return uids
	}
	page := q.page
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * q.perPage
	if start >= len(uids) {
		return nil
	}
	end := start + q.perPage
	if end > len(uids) {
		end = len(uids)
	}
	return uids[start:end]
}

// ensureSelected makes sure the bound folder is the active mailbox, since
// SEARCH/FETCH are only valid in the Selected (or Idling) state.
func (q *Query) ensureSelected(ctx context.Context) error {
	c := q.folder.Client()
	if c.ActiveFolder() == q.folder.Name() {
		return nil
	}
	_, err := c.OpenFolder(ctx, q.folder.Name(), false)
	return err
}

// populate runs the fetch-and-materialise pipeline over uids, in the
// order given (paging/ordering is the caller's responsibility), returning
// one Result per identifier that materialised successfully.
func (q *Query) populate(ctx context.Context, uids []imapkit.UID) ([]*Result, map[imapkit.UID]error, error) {
	if len(uids) == 0 {
		return nil, nil, nil
	}
	if err := q.ensureSelected(ctx); err != nil {
		return nil, nil, err
	}
	c := q.folder.Client()

	var set imapkit.UIDSet
	set.AddNum(uids...)

	opts := client.FetchOptions{
		Flags:        q.fetchFlags,
		Envelope:     true,
		InternalDate: true,
		Size:         true,
		UID:          true,
	}
	if q.fetchBody {
		opts.BodySections = []imapkit.BodySection{{Peek: q.peekBody}}
	}

	var items []*client.FetchItem
	var err error
	if q.seqType == SequenceMSN {
		var seqs imapkit.SeqSet
		for _, u := range uids {
			seqs.AddNum(uint32(u))
		}
		items, err = c.Fetch(ctx, seqs, opts)
	} else {
		items, err = c.UIDFetch(ctx, set, opts)
	}
	if err != nil {
		return nil, nil, err
	}

	errs := make(map[imapkit.UID]error)
	results := make([]*Result, 0, len(items))
	for i, item := range items {
		msg, err := message.Materialise(item, q.msgOpts)
		if err != nil {
			if !q.softFail {
				return results, errs, err
			}
			errs[item.UID] = err
			continue
		}
		results = append(results, &Result{Key: q.keyFor(item, msg, i), Message: msg})
		c.Events().Emit(events.SectionMessage, events.MessageNew, &events.MessagePayload{Message: msg})
	}
	return results, errs, nil
}

func (q *Query) keyFor(item *client.FetchItem, msg *message.Message, listPos int) string {
	switch q.messageKey {
	case KeySeqNum:
		return fmt.Sprintf("%d", item.SeqNum)
	case KeyListPosition:
		return fmt.Sprintf("%d", listPos)
	case KeyMessageID:
		if msg.MessageID != "" {
			return msg.MessageID
		}
		return fmt.Sprintf("%d", item.UID)
	default:
		return fmt.Sprintf("%d", item.UID)
	}
}
