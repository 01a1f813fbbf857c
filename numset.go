package imapkit

import "github.com/salvor-hardin/go-imapkit/internal/numset"

// NumSet is a set of message identifiers: either a SeqSet (sequence
// numbers) or a UIDSet (UIDs). Both render to the same wire grammar; the
// distinction exists so callers can't accidentally mix the two.
type NumSet interface {
	String() string
	Dynamic() bool
}

var (
	_ NumSet = SeqSet(nil)
	_ NumSet = UIDSet(nil)
)

// SeqSet is a set of message sequence numbers.
type SeqSet numset.Set

// SeqSetNum builds a SeqSet containing the given sequence numbers.
func SeqSetNum(nums ...uint32) SeqSet {
	var s SeqSet
	s.AddNum(nums...)
	return s
}

// SeqRangeNum builds a SeqSet containing one contiguous range.
func SeqRangeNum(start, stop uint32) SeqSet {
	var s SeqSet
	s.AddRange(start, stop)
	return s
}

func (s SeqSet) String() string  { return numset.Set(s).String() }
func (s SeqSet) Dynamic() bool   { return numset.Set(s).Dynamic() }
func (s SeqSet) Contains(n uint32) bool { return numset.Set(s).Contains(n) }
func (s SeqSet) Nums() ([]uint32, bool) { return numset.Set(s).Nums() }

func (s *SeqSet) AddNum(nums ...uint32)       { (*numset.Set)(s).AddNum(nums...) }
func (s *SeqSet) AddRange(start, stop uint32) { (*numset.Set)(s).AddRange(start, stop) }
func (s *SeqSet) AddSet(other SeqSet)         { (*numset.Set)(s).AddSet(numset.Set(other)) }

// ParseSeqSet parses a sequence-set string such as "1,3:5,9:*".
func ParseSeqSet(s string) (SeqSet, error) {
	set, err := numset.ParseSet(s)
	return SeqSet(set), err
}

// UIDSet is a set of message UIDs.
type UIDSet numset.Set

// UIDSetNum builds a UIDSet containing the given UIDs.
func UIDSetNum(uids ...UID) UIDSet {
	var s UIDSet
	s.AddNum(uids...)
	return s
}

// UIDRangeNum builds a UIDSet containing one contiguous range.
func UIDRangeNum(start, stop UID) UIDSet {
	var s UIDSet
	s.AddRange(start, stop)
	return s
}

func (s UIDSet) String() string  { return numset.Set(s).String() }
func (s UIDSet) Dynamic() bool   { return numset.Set(s).Dynamic() }
func (s UIDSet) Contains(uid UID) bool { return numset.Set(s).Contains(uint32(uid)) }

func (s UIDSet) Nums() ([]UID, bool) {
	nums, ok := numset.Set(s).Nums()
	if !ok {
		return nil, false
	}
	uids := make([]UID, len(nums))
	for i, n := range nums {
		uids[i] = UID(n)
	}
	return uids, true
}

func (s *UIDSet) AddNum(uids ...UID) {
	nums := make([]uint32, len(uids))
	for i, u := range uids {
		nums[i] = uint32(u)
	}
	(*numset.Set)(s).AddNum(nums...)
}

func (s *UIDSet) AddRange(start, stop UID) {
	(*numset.Set)(s).AddRange(uint32(start), uint32(stop))
}

func (s *UIDSet) AddSet(other UIDSet) { (*numset.Set)(s).AddSet(numset.Set(other)) }

// ParseUIDSet parses a UID-set string such as "100:200,205".
func ParseUIDSet(s string) (UIDSet, error) {
	set, err := numset.ParseSet(s)
	return UIDSet(set), err
}
