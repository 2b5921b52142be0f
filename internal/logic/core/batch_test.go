package core

import (
	"testing"

	"github.com/blocto/solana-go-sdk/common"
	sdktypes "github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"

	"token-giveaway-sol/internal/types"
)

func ix(program common.PublicKey, accounts ...common.PublicKey) sdktypes.Instruction {
	metas := make([]sdktypes.AccountMeta, 0, len(accounts))
	for _, a := range accounts {
		metas = append(metas, sdktypes.AccountMeta{PubKey: a})
	}
	return sdktypes.Instruction{
		ProgramID: program,
		Accounts:  metas,
		Data:      []byte{1},
	}
}

func TestBatch_AddressSetCoversEveryAccount(t *testing.T) {
	program := sdktypes.NewAccount().PublicKey
	a := sdktypes.NewAccount().PublicKey
	b := sdktypes.NewAccount().PublicKey
	c := sdktypes.NewAccount().PublicKey

	batch := NewBatch()
	batch.Add(ix(program, a, b))
	batch.Add(ix(program, b, c)) // program 与 b 重复出现

	assert.Equal(t, 2, batch.Len())
	// 去重后恰好 4 个地址：program + a + b + c
	assert.Len(t, batch.Addresses(), 4)

	for _, p := range []common.PublicKey{program, a, b, c} {
		assert.True(t, batch.Contains(types.PubkeyFromSDK(p)), "批次应覆盖账户 %s", p.ToBase58())
	}
}

func TestBatch_AddressOrderIsFirstAppearance(t *testing.T) {
	program := sdktypes.NewAccount().PublicKey
	a := sdktypes.NewAccount().PublicKey
	b := sdktypes.NewAccount().PublicKey

	batch := NewBatch()
	batch.Add(ix(program, a))
	batch.Add(ix(program, b, a))

	want := []types.Pubkey{
		types.PubkeyFromSDK(program),
		types.PubkeyFromSDK(a),
		types.PubkeyFromSDK(b),
	}
	assert.Equal(t, want, batch.Addresses(), "地址应按首次出现顺序排列")
}
