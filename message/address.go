package message

import (
	gomail "github.com/emersion/go-message/mail"
)

// Address is one parsed RFC 5322 mailbox: a display name (already decoded
// out of any RFC 2047 encoded-word) plus the local-part/domain split of the
// address itself.
type Address struct {
	Name    string
	Mailbox string
	Host    string
}

// String renders the address the way it would appear on a From/To line:
// `Name <mailbox@host>` when a name is present (the name is not quoted),
// else a bare address.
func (a Address) String() string {
	addr := a.Mailbox + "@" + a.Host
	if a.Name == "" {
		return addr
	}
	return a.Name + " <" + addr + ">"
}

// parseAddressList tokenises an RFC 5322 address-list header value --
// groups, quoted display names, and bare mailboxes -- decoding each
// personal name via RFC 2047 along the way. Malformed entries are dropped
// rather than failing the whole header, since one bad address shouldn't
// sink an otherwise-readable envelope.
func parseAddressList(raw string) []Address {
	if raw == "" {
		return nil
	}
	parsed, err := gomail.ParseAddressList(raw)
	if err != nil {
		// go-message's parser stops at the first syntax error; fall back
		// to whatever it already recovered rather than returning nothing.
		if len(parsed) == 0 {
			return nil
		}
	}
	return addressesFrom(parsed)
}

func addressesFrom(in []*gomail.Address) []Address {
	out := make([]Address, 0, len(in))
	for _, a := range in {
		if a == nil {
			continue
		}
		out = append(out, splitAddress(a.Name, a.Address))
	}
	return out
}

func splitAddress(name, addr string) Address {
	mailbox, host := addr, ""
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == '@' {
			mailbox, host = addr[:i], addr[i+1:]
			break
		}
	}
	return Address{Name: name, Mailbox: mailbox, Host: host}
}
