package addrextract

import (
	"testing"

	"github.com/blocksentry/watchtower/internal/domain"
	"github.com/ethereum/go-ethereum/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transferCalldata(recipient common.Address, amount uint64) []byte {
	calldata := common.FromHex(TransferSelector)
	arg := make([]byte, 32)
	copy(arg[12:], recipient.Bytes())
	calldata = append(calldata, arg...)

	amountArg := make([]byte, 32)
	for i := 0; i < 8; i++ {
		amountArg[31-i] = byte(amount >> (8 * i))
	}
	calldata = append(calldata, amountArg...)
	return calldata
}

func TestTransferRecipient(t *testing.T) {
	recipient := common.HexToAddress("0x000000000000000000000000000000000000aa")

	t.Run("matches erc20 transfer", func(t *testing.T) {
		got := TransferRecipient(transferCalldata(recipient, 100))
		require.NotNil(t, got)
		assert.Equal(t, recipient.Hex(), *got)
	})

	t.Run("too short", func(t *testing.T) {
		assert.Nil(t, TransferRecipient(common.FromHex(TransferSelector)))
	})

	t.Run("wrong selector", func(t *testing.T) {
		calldata := transferCalldata(recipient, 100)
		calldata[0] = 0xff
		assert.Nil(t, TransferRecipient(calldata))
	})
}

func TestFromCalldata(t *testing.T) {
	recipient := common.HexToAddress("0x000000000000000000000000000000000000aa")
	calldata := transferCalldata(recipient, 100)

	addrs := FromCalldata(calldata)

	assert.Contains(t, addrs, toLower(recipient.Hex()))
}

func TestFromLogs_DedupsAndLowercases(t *testing.T) {
	logs := []domain.Log{
		{Address: "0xABC0000000000000000000000000000000000A"},
		{Address: "0xabc0000000000000000000000000000000000a"},
		{Address: "0x000000000000000000000000000000000000bb"},
	}

	addrs := FromLogs(logs)

	assert.Len(t, addrs, 2)
	assert.Contains(t, addrs, "0xabc0000000000000000000000000000000000a")
}
