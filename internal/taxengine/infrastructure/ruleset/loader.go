// Package ruleset 负责在进程启动时加载内嵌的州税则数据集并构建领域注册表。
// 数据集校验是注册表构建的一部分：任何一条坏数据都会让加载整体失败，
// 引擎绝不带着非法规则对外服务。
package ruleset

import (
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/vehicletax/internal/taxengine/domain"
)

// ruleFile 是 rules.yaml 的顶层结构。
type ruleFile struct {
	// DefaultTaxability 是各州共用的应税性策略表，州内同名表项覆盖它。
	DefaultTaxability map[string]taxabilityYAML `yaml:"default_taxability"`
	Jurisdictions     []jurisdictionYAML        `yaml:"jurisdictions"`
}

type jurisdictionYAML struct {
	Code          string                    `yaml:"code"`
	Name          string                    `yaml:"name"`
	Scheme        string                    `yaml:"scheme"`
	BaseRate      string                    `yaml:"base_rate"`
	TradeIn       string                    `yaml:"trade_in"`
	TradeInCap    string                    `yaml:"trade_in_cap"`
	DocFeeCap     string                    `yaml:"doc_fee_cap"`
	Taxability    map[string]taxabilityYAML `yaml:"taxability"`
	Depreciation  []depreciationYAML        `yaml:"depreciation"`
	UseTaxWindow  *useTaxYAML               `yaml:"use_tax_window"`
	ClassTable    map[string]classEntryYAML `yaml:"class_table"`
}

type taxabilityYAML struct {
	Code      string         `yaml:"code"`
	Condition *conditionYAML `yaml:"condition"`
}

type conditionYAML struct {
	Field  string `yaml:"field"`
	Equals string `yaml:"equals"`
}

type depreciationYAML struct {
	MinAgeYears int    `yaml:"min_age_years"`
	ValueFactor string `yaml:"value_factor"`
}

type useTaxYAML struct {
	WindowDays     int    `yaml:"window_days"`
	Exclusive      bool   `yaml:"exclusive"`
	InWindowRate   string `yaml:"in_window_rate"`
	PostWindowRate string `yaml:"post_window_rate"`
}

type classEntryYAML struct {
	Rate       string `yaml:"rate"`
	FlatAmount string `yaml:"flat_amount"`
}

// reciprocityFile 是 reciprocity.yaml 的顶层结构。
type reciprocityFile struct {
	Pairs []reciprocityPairYAML `yaml:"pairs"`
}

type reciprocityPairYAML struct {
	Origin      string `yaml:"origin"`
	Destination string `yaml:"destination"`
	Mode        string `yaml:"mode"`
	Factor      string `yaml:"factor"`
	Cap         string `yaml:"cap"`
}

// LoadRegistry 解析州税则数据集并构建只读注册表。
func LoadRegistry(data []byte) (*domain.Registry, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse rules: %v", domain.ErrRegistryValidation, err)
	}

	defaults, err := parseTaxability(f.DefaultTaxability)
	if err != nil {
		return nil, fmt.Errorf("%w: default taxability: %v", domain.ErrRegistryValidation, err)
	}

	rules := make([]*domain.StateRule, 0, len(f.Jurisdictions))
	for _, j := range f.Jurisdictions {
		rule, err := j.toDomain(defaults)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return domain.NewRegistry(rules)
}

// LoadReciprocity 解析互惠配对表并构建解析器。
func LoadReciprocity(data []byte) (*domain.ReciprocityResolver, error) {
	var f reciprocityFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse reciprocity: %v", domain.ErrRegistryValidation, err)
	}

	pairs := make([]domain.ReciprocityPair, 0, len(f.Pairs))
	for _, p := range f.Pairs {
		pair := domain.ReciprocityPair{
			Origin:      domain.JurisdictionCode(p.Origin),
			Destination: domain.JurisdictionCode(p.Destination),
			Policy:      domain.ReciprocityPolicy{Mode: domain.ReciprocityMode(p.Mode)},
		}
		if p.Factor != "" {
			factor, err := decimal.NewFromString(p.Factor)
			if err != nil {
				return nil, fmt.Errorf("%w: reciprocity %s->%s: factor %q", domain.ErrRegistryValidation, p.Origin, p.Destination, p.Factor)
			}
			pair.Policy.Factor = factor
		}
		if p.Cap != "" {
			cap, err := domain.NewMoney(p.Cap)
			if err != nil {
				return nil, fmt.Errorf("%w: reciprocity %s->%s: cap %q", domain.ErrRegistryValidation, p.Origin, p.Destination, p.Cap)
			}
			pair.Policy.Cap = cap
		}
		pairs = append(pairs, pair)
	}
	return domain.NewReciprocityResolver(pairs)
}

func (j jurisdictionYAML) toDomain(defaults map[string]domain.TaxabilityEntry) (*domain.StateRule, error) {
	rule := &domain.StateRule{
		Jurisdiction:  domain.JurisdictionCode(j.Code),
		Name:          j.Name,
		Scheme:        domain.Scheme(j.Scheme),
		TradeInPolicy: domain.TradeInPolicy(j.TradeIn),
	}

	var err error
	if rule.BaseRate, err = parseRate(j.BaseRate); err != nil {
		return nil, fmt.Errorf("%w: %s: base rate: %v", domain.ErrRegistryValidation, j.Code, err)
	}
	if rule.TradeInCap, err = parseAmount(j.TradeInCap); err != nil {
		return nil, fmt.Errorf("%w: %s: trade-in cap: %v", domain.ErrRegistryValidation, j.Code, err)
	}
	if rule.DocFeeCap, err = parseAmount(j.DocFeeCap); err != nil {
		return nil, fmt.Errorf("%w: %s: doc fee cap: %v", domain.ErrRegistryValidation, j.Code, err)
	}

	own, err := parseTaxability(j.Taxability)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: taxability: %v", domain.ErrRegistryValidation, j.Code, err)
	}
	rule.Taxability = mergeTaxability(defaults, own)

	for _, b := range j.Depreciation {
		factor, err := decimal.NewFromString(b.ValueFactor)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: depreciation factor %q", domain.ErrRegistryValidation, j.Code, b.ValueFactor)
		}
		rule.Depreciation = append(rule.Depreciation, domain.DepreciationBracket{
			MinAgeYears: b.MinAgeYears,
			ValueFactor: factor,
		})
	}

	if j.UseTaxWindow != nil {
		w := &domain.UseTaxWindow{
			WindowDays: j.UseTaxWindow.WindowDays,
			Exclusive:  j.UseTaxWindow.Exclusive,
		}
		if w.InWindowRate, err = parseRate(j.UseTaxWindow.InWindowRate); err != nil {
			return nil, fmt.Errorf("%w: %s: in-window rate: %v", domain.ErrRegistryValidation, j.Code, err)
		}
		if w.PostWindowRate, err = parseRate(j.UseTaxWindow.PostWindowRate); err != nil {
			return nil, fmt.Errorf("%w: %s: post-window rate: %v", domain.ErrRegistryValidation, j.Code, err)
		}
		rule.UseTax = w
	}

	if len(j.ClassTable) > 0 {
		rule.ClassTable = make(map[domain.VehicleClass]domain.ClassTaxEntry, len(j.ClassTable))
		for class, e := range j.ClassTable {
			entry := domain.ClassTaxEntry{}
			if entry.Rate, err = parseRate(e.Rate); err != nil {
				return nil, fmt.Errorf("%w: %s: class %s rate: %v", domain.ErrRegistryValidation, j.Code, class, err)
			}
			if entry.FlatAmount, err = parseAmount(e.FlatAmount); err != nil {
				return nil, fmt.Errorf("%w: %s: class %s flat amount: %v", domain.ErrRegistryValidation, j.Code, class, err)
			}
			rule.ClassTable[domain.VehicleClass(class)] = entry
		}
	}

	return rule, nil
}

func parseTaxability(in map[string]taxabilityYAML) (map[string]domain.TaxabilityEntry, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]domain.TaxabilityEntry, len(in))
	for name, e := range in {
		entry := domain.TaxabilityEntry{Code: domain.TaxabilityCode(e.Code)}
		if e.Condition != nil {
			entry.Condition = &domain.TaxabilityCondition{
				Field:  e.Condition.Field,
				Equals: e.Condition.Equals,
			}
		}
		out[name] = entry
	}
	return out, nil
}

// mergeTaxability 合并共用策略表与州内覆盖项，州内优先。
func mergeTaxability(defaults, own map[string]domain.TaxabilityEntry) map[string]domain.TaxabilityEntry {
	if len(defaults) == 0 && len(own) == 0 {
		return nil
	}
	merged := make(map[string]domain.TaxabilityEntry, len(defaults)+len(own))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range own {
		merged[k] = v
	}
	return merged
}

// parseRate 解析税率字段，空串视为零。
func parseRate(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// parseAmount 解析金额字段，空串视为零。
func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
