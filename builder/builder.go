// Package builder constructs the transfer request that every later
// step of a transfer shares. The request built here is the single
// identity used for quoting the fee and for sending, so both always
// describe the same payload.
package builder

import (
	"math/big"

	"github.com/crosslane/crosslane/types"
)

// Build assembles a TransferRequest for sending amount of token to
// receiver, with an optional arbitrary payload and an optional gas
// limit override for destination execution. A zero gasLimit leaves the
// protocol default in effect.
//
// Build is pure: it touches no network and the inputs are copied, so
// callers may mutate their slices afterwards without affecting the
// request.
func Build(receiver, token string, amount *big.Int, payload []byte, gasLimit uint64) (*types.TransferRequest, error) {
	if amount == nil {
		return nil, types.ValidationError("transfer amount is required")
	}
	if amount.Sign() < 0 {
		return nil, types.ValidationError("transfer amount must not be negative")
	}

	req := &types.TransferRequest{
		Receiver: receiver,
		GasLimit: gasLimit,
		TokenAmounts: []types.TokenAmount{
			{Token: token, Amount: new(big.Int).Set(amount)},
		},
	}
	if len(payload) > 0 {
		req.Data = make([]byte, len(payload))
		copy(req.Data, payload)
	}
	return req, nil
}
