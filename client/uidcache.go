package client

import "sync"

// uidCache maps sequence numbers to UIDs for the currently selected
// mailbox, keyed by the UIDVALIDITY it was populated under. Per this
// library's resolution of the UIDVALIDITY open question, any lookup first
// compares the stored epoch against the folder's current UIDVALIDITY and
// discards the whole cache on mismatch rather than trusting stale entries.
type uidCache struct {
	mu          sync.Mutex
	uidValidity uint32
	bySeq       map[uint32]uint32
}

func newUIDCache() *uidCache {
	return &uidCache{bySeq: make(map[uint32]uint32)}
}

// reset discards every entry and adopts uidValidity as the new epoch.
// Called on every SELECT/EXAMINE, since a different UIDVALIDITY means the
// server has reassigned UIDs since we last looked.
func (c *uidCache) reset(uidValidity uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uidValidity = uidValidity
	c.bySeq = make(map[uint32]uint32)
}

// clear drops every entry without changing the remembered epoch; used on
// reconnect, where the next SELECT will call reset anyway.
func (c *uidCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bySeq = make(map[uint32]uint32)
}

// put records seq -> uid, valid for the given uidValidity. A mismatched
// uidValidity silently drops the whole cache first, since it means the
// caller is observing a newer mailbox generation than what's cached.
func (c *uidCache) put(uidValidity, seq, uid uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if uidValidity != c.uidValidity {
		c.uidValidity = uidValidity
		c.bySeq = make(map[uint32]uint32)
	}
	c.bySeq[seq] = uid
}

// get returns the UID cached for seq under uidValidity. ok is false if the
// epoch doesn't match (the cache is then emptied and adopts uidValidity) or
// the sequence number was never recorded.
func (c *uidCache) get(uidValidity, seq uint32) (uid uint32, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if uidValidity != c.uidValidity {
		c.uidValidity = uidValidity
		c.bySeq = make(map[uint32]uint32)
		return 0, false
	}
	uid, ok = c.bySeq[seq]
	return uid, ok
}

// dropSeq removes a single sequence number, e.g. in response to an EXPUNGE
// untagged response, since every later sequence number also shifts down by
// one and cached entries for them would otherwise be wrong.
func (c *uidCache) dropSeq(uidValidity, seq uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if uidValidity != c.uidValidity {
		return
	}
	next := make(map[uint32]uint32, len(c.bySeq))
	for s, u := range c.bySeq {
		switch {
		case s < seq:
			next[s] = u
		case s > seq:
			next[s-1] = u
		}
	}
	c.bySeq = next
}
