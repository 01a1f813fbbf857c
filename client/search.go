package client

import (
	"context"
	"strings"

	imapkit "github.com/salvor-hardin/go-imapkit"
	"github.com/salvor-hardin/go-imapkit/wire"
)

// Search issues SEARCH with a pre-rendered criteria program (built by the
// query package's criteria builder) and returns the matched sequence
// numbers in server order.
func (c *Client) Search(ctx context.Context, charsetUTF8 bool, program string) ([]uint32, error) {
	nums, err := c.search(ctx, "SEARCH", charsetUTF8, program)
	return nums, err
}

// UIDSearch issues UID SEARCH, returning matched UIDs.
func (c *Client) UIDSearch(ctx context.Context, charsetUTF8 bool, program string) ([]imapkit.UID, error) {
	nums, err := c.search(ctx, "UID SEARCH", charsetUTF8, program)
	if err != nil {
		return nil, err
	}
	uids := make([]imapkit.UID, len(nums))
	for i, n := range nums {
		uids[i] = imapkit.UID(n)
	}
	return uids, nil
}

func (c *Client) search(ctx context.Context, cmdName string, charsetUTF8 bool, program string) ([]uint32, error) {
	if err := c.CheckConnection(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var nums []uint32
	resp, err := c.eng.Execute(ctx, cmdName, func(w *CommandWriter) error {
		if charsetUTF8 {
			w.Raw("CHARSET").SP().Raw("UTF-8").SP()
		}
		w.Raw(program)
		return w.Err()
	}, func(r *wire.Response) {
		if strings.ToUpper(r.Type) != "SEARCH" {
			return
		}
		for _, t := range r.Fields {
			if n, ok := t.Number(); ok {
				nums = append(nums, n)
			}
		}
	})
	if err != nil {
		return nil, imapkit.NewError(cmdName, imapkit.KindProtocol, err)
	}
	if err := resp.Validate(cmdName); err != nil {
		return nil, err
	}
	return nums, nil
}
