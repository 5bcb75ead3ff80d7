// Package audit 记录每次提问的审计事件。客户端标识只以加盐哈希的形式出现。
package audit

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// HashIdentity 使用 salt 作为密钥计算 BLAKE2b-256，返回十六进制字符串。
// 超过 64 字节的 salt 先压缩为 32 字节再作为密钥。
func HashIdentity(salt, identity string) string {
	key := []byte(salt)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	h, err := blake2b.New256(key)
	if err != nil {
		// 密钥长度已经受控，这里不会出错
		sum := blake2b.Sum256([]byte(salt + identity))
		return hex.EncodeToString(sum[:])
	}
	h.Write([]byte(identity))
	return hex.EncodeToString(h.Sum(nil))
}

// ResolveSalt 返回用于 HashIdentity 的盐。未配置时生成一个进程内随机盐并返回 generated=true，
// 无密钥的 IPv4 哈希可以被穷举还原。
func ResolveSalt(configured string) (salt string, generated bool, err error) {
	if configured != "" {
		return configured, false, nil
	}
	buf := make([]byte, blake2b.Size256)
	if _, err := rand.Read(buf); err != nil {
		return "", false, fmt.Errorf("生成审计盐失败: %w", err)
	}
	return hex.EncodeToString(buf), true, nil
}
