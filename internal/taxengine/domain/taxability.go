package domain

import "fmt"

// Classification 分类器对单个费用条目的最终裁定。
type Classification struct {
	Code TaxabilityCode
	// Unrecognized 标记该费用名未出现在州策略表中、走了兜底默认值。
	// 调度器据此在明细中追加一条警告行。
	Unrecognized bool
}

// ChargeContext 条件谓词求值所需的交易字段，由调用方显式传入，
// 分类器不直接持有整笔交易。
type ChargeContext struct {
	RebateOrigin RebateOrigin
	VehicleClass VehicleClass
}

// TaxabilityInterpreter 按州策略表裁定费用/返利/加装产品是否计入税基。
//
// 未知费用名默认按应税处理（宁可多收、不可少收的兜底策略，
// 见 UnknownChargeDefault）；这是有意的宽松处理而非错误。
type TaxabilityInterpreter struct {
	// UnknownChargeDefault 是策略表未覆盖的费用名的兜底分类。
	// 默认 TaxabilityTaxable；因其有真实的财务后果（多收税），
	// 保持可配置而非硬编码。
	UnknownChargeDefault TaxabilityCode
}

// NewTaxabilityInterpreter 创建分类器，兜底默认值为应税。
func NewTaxabilityInterpreter() *TaxabilityInterpreter {
	return &TaxabilityInterpreter{UnknownChargeDefault: TaxabilityTaxable}
}

// Classify 裁定一个费用条目。条件应税条目在此处对谓词求值并归结为
// 应税/免税二值；返回值不会是 CONDITIONAL。
// 谓词引用了未知字段、或谓词字段与条目种类不符（如对费用求值
// 返利来源）时返回 ErrUnresolvedTaxability（注册表校验正常情况下
// 已挡住前一种表项）。
func (ti *TaxabilityInterpreter) Classify(rule *StateRule, chargeName string, kind ChargeKind, cctx ChargeContext) (Classification, error) {
	entry, ok := rule.Taxability[chargeName]
	if !ok {
		return Classification{Code: ti.UnknownChargeDefault, Unrecognized: true}, nil
	}

	switch entry.Code {
	case TaxabilityTaxable, TaxabilityExempt:
		return Classification{Code: entry.Code}, nil
	case TaxabilityConditional:
		matched, err := evalCondition(entry.Condition, kind, cctx)
		if err != nil {
			return Classification{}, fmt.Errorf("%w: %s/%s: %v", ErrUnresolvedTaxability, rule.Jurisdiction, chargeName, err)
		}
		if matched {
			return Classification{Code: TaxabilityTaxable}, nil
		}
		return Classification{Code: TaxabilityExempt}, nil
	default:
		return Classification{}, fmt.Errorf("%w: %s/%s: code %q", ErrUnresolvedTaxability, rule.Jurisdiction, chargeName, entry.Code)
	}
}

func evalCondition(c *TaxabilityCondition, kind ChargeKind, cctx ChargeContext) (bool, error) {
	if c == nil {
		return false, fmt.Errorf("conditional entry has no condition")
	}
	switch c.Field {
	case ConditionFieldRebateOrigin:
		// 返利来源只在返利上有定义；费用/产品撞上同名表项时
		// 宁可报错也不对空来源求值。
		if kind != ChargeKindRebate {
			return false, fmt.Errorf("rebate_origin predicate evaluated for %s charge", kind)
		}
		return string(cctx.RebateOrigin) == c.Equals, nil
	case ConditionFieldVehicleClass:
		return string(cctx.VehicleClass) == c.Equals, nil
	default:
		return false, fmt.Errorf("unknown condition field %q", c.Field)
	}
}
