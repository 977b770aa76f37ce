package builder

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslane/crosslane/types"
)

func TestBuild(t *testing.T) {
	req, err := Build("0x1111111111111111111111111111111111111111", "0x2222222222222222222222222222222222222222", big.NewInt(1500), []byte("hello"), 200000)
	require.NoError(t, err)

	assert.Equal(t, "0x1111111111111111111111111111111111111111", req.Receiver)
	assert.Equal(t, []byte("hello"), req.Data)
	assert.Equal(t, uint64(200000), req.GasLimit)
	require.Len(t, req.TokenAmounts, 1)
	assert.Equal(t, "0x2222222222222222222222222222222222222222", req.TokenAmounts[0].Token)
	assert.Equal(t, big.NewInt(1500), req.TokenAmounts[0].Amount)
}

func TestBuildCopiesInputs(t *testing.T) {
	amount := big.NewInt(100)
	payload := []byte{1, 2, 3}

	req, err := Build("recv", "tok", amount, payload, 0)
	require.NoError(t, err)

	amount.SetInt64(999)
	payload[0] = 42

	assert.Equal(t, big.NewInt(100), req.TokenAmounts[0].Amount)
	assert.Equal(t, []byte{1, 2, 3}, req.Data)
}

func TestBuildZeroAmount(t *testing.T) {
	req, err := Build("recv", "tok", big.NewInt(0), nil, 0)
	require.NoError(t, err)
	assert.Zero(t, req.TokenAmounts[0].Amount.Sign())
	assert.Nil(t, req.Data)
}

func TestBuildRejectsNilAmount(t *testing.T) {
	_, err := Build("recv", "tok", nil, nil, 0)
	require.Error(t, err)

	var te *types.TransferError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, types.ErrCodeValidation, te.Code)
}

func TestBuildRejectsNegativeAmount(t *testing.T) {
	_, err := Build("recv", "tok", big.NewInt(-1), nil, 0)
	require.Error(t, err)
}
