package utils

import (
	"fmt"
	"strings"
)

func BlacklistCoinsKey() string {
	return "dex_sentinel:blacklist:coins"
}

func BlacklistDevelopersKey() string {
	return "dex_sentinel:blacklist:developers"
}

// VerdictKey 风控预言机结果缓存 key，kind 区分 rugcheck / fake_volume
func VerdictKey(kind, address string) string {
	return fmt.Sprintf("dex_sentinel:verdict:%s:%s", kind, strings.TrimSpace(address))
}
