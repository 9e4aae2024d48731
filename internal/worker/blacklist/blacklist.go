package blacklist

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Store 黑名单持久化，配置文件里的初始值不会被回写
type Store interface {
	Load(ctx context.Context) (coins, developers []string, err error)
	Save(ctx context.Context, coins, developers []string) error
}

// Blacklist 运行期可增长的黑名单，symbol 统一大写，开发者地址统一小写
type Blacklist struct {
	mu         sync.RWMutex
	coins      map[string]struct{}
	developers map[string]struct{}
}

func New(coins, developers []string) *Blacklist {
	b := &Blacklist{
		coins:      make(map[string]struct{}, len(coins)),
		developers: make(map[string]struct{}, len(developers)),
	}
	for _, c := range coins {
		b.AddCoin(c)
	}
	for _, d := range developers {
		b.AddDeveloper(d)
	}
	return b
}

func normCoin(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func normDev(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// AddCoin 返回是否为新增
func (b *Blacklist) AddCoin(symbol string) bool {
	k := normCoin(symbol)
	if k == "" {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.coins[k]; ok {
		return false
	}
	b.coins[k] = struct{}{}
	return true
}

func (b *Blacklist) AddDeveloper(addr string) bool {
	k := normDev(addr)
	if k == "" {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.developers[k]; ok {
		return false
	}
	b.developers[k] = struct{}{}
	return true
}

func (b *Blacklist) ContainsCoin(symbol string) bool {
	k := normCoin(symbol)
	if k == "" {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.coins[k]
	return ok
}

// ContainsDeveloper 空地址永远不命中
func (b *Blacklist) ContainsDeveloper(addr string) bool {
	k := normDev(addr)
	if k == "" {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.developers[k]
	return ok
}

func (b *Blacklist) Coins() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return sortedKeys(b.coins)
}

func (b *Blacklist) Developers() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return sortedKeys(b.developers)
}

func (b *Blacklist) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.coins) + len(b.developers)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Flush 把当前黑名单写入 store
func (b *Blacklist) Flush(ctx context.Context, store Store) error {
	if store == nil {
		return nil
	}
	if err := store.Save(ctx, b.Coins(), b.Developers()); err != nil {
		return fmt.Errorf("flush blacklist: %w", err)
	}
	return nil
}

// Restore 合并 store 中的黑名单，返回新增条数
func (b *Blacklist) Restore(ctx context.Context, store Store) (int, error) {
	if store == nil {
		return 0, nil
	}
	coins, devs, err := store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore blacklist: %w", err)
	}
	added := 0
	for _, c := range coins {
		if b.AddCoin(c) {
			added++
		}
	}
	for _, d := range devs {
		if b.AddDeveloper(d) {
			added++
		}
	}
	return added, nil
}
