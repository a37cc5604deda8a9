package client

import (
	"context"
	"errors"

	"github.com/Klingon-tech/vaultclient/internal/rpcclient"
	"github.com/Klingon-tech/vaultclient/pkg/types"
)

// AccountInfo is the node's account record.
type AccountInfo struct {
	SequenceNumber    uint64        `json:"sequence_number,string"`
	AuthenticationKey types.AuthKey `json:"authentication_key"`
}

// Account fetches the account record of addr. It returns
// ErrAccountNotFound when the node does not know the address.
func (c *Client) Account(ctx context.Context, addr types.Address) (AccountInfo, error) {
	var info AccountInfo
	err := c.node.Get(ctx, "/accounts/"+addr.String(), nil, &info)
	if rpcclient.IsNotFound(err, codeAccountNotFound) {
		return AccountInfo{}, ErrAccountNotFound
	}
	if err != nil {
		return AccountInfo{}, classifyRead("get account "+addr.Short(), err)
	}
	return info, nil
}

// FetchSequenceNumber returns the next sequence number the node expects
// from addr. An account the node does not know yet reports 0.
func (c *Client) FetchSequenceNumber(ctx context.Context, addr types.Address) (uint64, error) {
	info, err := c.Account(ctx, addr)
	if errors.Is(err, ErrAccountNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return info.SequenceNumber, nil
}
