package domain

import (
	"fmt"
	"sort"
)

// Registry 是州规则注册表：进程启动时构建一次，此后只读。
// 由于加载后不再变更，任意多并发计算可直接共享而无需加锁。
type Registry struct {
	rules map[JurisdictionCode]*StateRule
}

// NewRegistry 构建并校验注册表。任何一条规则非法即整体失败（启动期 fail-fast），
// 引擎拒绝在非法注册表之上处理任何交易。
func NewRegistry(rules []*StateRule) (*Registry, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("%w: rule set is empty", ErrRegistryValidation)
	}
	m := make(map[JurisdictionCode]*StateRule, len(rules))
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, dup := m[r.Jurisdiction]; dup {
			return nil, fmt.Errorf("%w: duplicate jurisdiction %s", ErrRegistryValidation, r.Jurisdiction)
		}
		m[r.Jurisdiction] = r
	}
	return &Registry{rules: m}, nil
}

// Get 按州代码取规则。缺失返回 ErrUnknownJurisdiction。
func (reg *Registry) Get(code JurisdictionCode) (*StateRule, error) {
	r, ok := reg.rules[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJurisdiction, code)
	}
	return r, nil
}

// Has 判断州代码是否存在。
func (reg *Registry) Has(code JurisdictionCode) bool {
	_, ok := reg.rules[code]
	return ok
}

// Len 返回注册的州数量。
func (reg *Registry) Len() int {
	return len(reg.rules)
}

// Codes 返回已注册的州代码，按字典序排序以保证输出确定。
func (reg *Registry) Codes() []JurisdictionCode {
	codes := make([]JurisdictionCode, 0, len(reg.rules))
	for c := range reg.rules {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}
