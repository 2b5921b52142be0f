package types

import (
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/mr-tron/base58"
)

// Pubkey 表示一个 32 字节的链上地址，可直接作为 map key 参与去重。
type Pubkey [32]byte

func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

func (p Pubkey) Equals(other Pubkey) bool {
	return p == other
}

// ToSDK 转换为 SDK 的 PublicKey，供指令构造与 RPC 边界使用。
func (p Pubkey) ToSDK() common.PublicKey {
	return common.PublicKey(p)
}

// PubkeyFromSDK 从 SDK 的 PublicKey 转回领域地址类型。
func PubkeyFromSDK(k common.PublicKey) Pubkey {
	return Pubkey(k)
}

// TryPubkeyFromBase58 解析 base58 字符串为 Pubkey，失败时返回 error（用于不信任输入路径）
func TryPubkeyFromBase58(s string) (Pubkey, error) {
	data, err := base58.Decode(s)
	if err != nil {
		return Pubkey{}, fmt.Errorf("failed to decode base58 pubkey %q: %w", s, err)
	}
	if len(data) != 32 {
		return Pubkey{}, fmt.Errorf("invalid pubkey length: got %d, want 32, input=%q", len(data), s)
	}
	var p Pubkey
	copy(p[:], data)
	return p, nil
}

func PubkeyFromBase58(s string) Pubkey {
	p, err := TryPubkeyFromBase58(s)
	if err != nil {
		panic(err)
	}
	return p
}

// PubkeysToSDK 批量转换，保持输入顺序。
func PubkeysToSDK(keys []Pubkey) []common.PublicKey {
	result := make([]common.PublicKey, 0, len(keys))
	for _, k := range keys {
		result = append(result, k.ToSDK())
	}
	return result
}
