package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TaxCalculator 是计税引擎的唯一公共入口（调度器）。
// 单趟纯流水线：任何一步失败整次计算中止并返回类型化错误，
// 绝不返回部分明细，也绝不以默认税额顶替失败的计算。
//
// 确定性是显式不变量：同一注册表下同一输入的两次调用产出完全相同的结果，
// 调用方可以安全地并行重算或做缓存。
type TaxCalculator struct {
	registry    *Registry
	interpreter *TaxabilityInterpreter
	reciprocity *ReciprocityResolver

	advalorem AdValoremCalculator
	usetax    UseTaxCalculator
	privilege PrivilegeTaxCalculator
}

// NewTaxCalculator 组装调度器。注册表与互惠配对表都已在加载期完成校验。
func NewTaxCalculator(registry *Registry, interpreter *TaxabilityInterpreter, reciprocity *ReciprocityResolver) *TaxCalculator {
	return &TaxCalculator{
		registry:    registry,
		interpreter: interpreter,
		reciprocity: reciprocity,
	}
}

// CalculateTax 计算一笔车辆交易的税款明细。
// 步骤：取州规则 → 分类费用/返利 → 推导税基 → 按方案计税 → 互惠抵免 → 组装明细。
func (c *TaxCalculator) CalculateTax(tx *VehicleTransaction) (*TaxBreakdown, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	rule, err := c.registry.Get(tx.Jurisdiction)
	if err != nil {
		return nil, err
	}

	b := &TaxBreakdown{
		Jurisdiction: rule.Jurisdiction,
		Scheme:       rule.Scheme,
	}

	base, err := c.computeTaxableBase(tx, rule, b)
	if err != nil {
		return nil, err
	}
	b.TaxableBase = RoundMoney(base)

	tax, err := c.computeTax(tx, rule, base, b)
	if err != nil {
		return nil, err
	}
	b.TaxAmount = RoundMoney(tax)
	b.addLine(fmt.Sprintf("%s tax (%s scheme)", rule.Jurisdiction, rule.Scheme), b.TaxAmount, LineItemTax)

	c.applyReciprocity(tx, b)

	b.FinalAmountDue = ClampNonNegative(b.TaxAmount.Sub(b.ReciprocityCredit))
	return b, nil
}

// computeTaxableBase 推导税基：
// 车价 − 置换抵扣（按政策封顶）+ 应税费用 − 免税返利，下限为零。
// 每个中间值都落进明细行。
func (c *TaxCalculator) computeTaxableBase(tx *VehicleTransaction, rule *StateRule, b *TaxBreakdown) (decimal.Decimal, error) {
	base := tx.SalePrice
	b.addLine("sale price", tx.SalePrice, LineItemBase)

	credit := c.tradeInCredit(tx, rule)
	if credit.IsPositive() {
		base = base.Sub(credit)
		b.addLine(fmt.Sprintf("trade-in credit (%s policy)", rule.TradeInPolicy), credit.Neg(), LineItemCredit)
	}

	for _, fee := range tx.Fees {
		cls, err := c.interpreter.Classify(rule, fee.Name, ChargeKindFee, ChargeContext{VehicleClass: tx.VehicleClass})
		if err != nil {
			return decimal.Zero, err
		}
		if cls.Unrecognized {
			b.addLine(fmt.Sprintf("unrecognized charge %q defaulted to %s", fee.Name, cls.Code), fee.Amount, LineItemWarning)
		}
		if cls.Code != TaxabilityTaxable {
			b.addLine(fmt.Sprintf("fee %q exempt", fee.Name), fee.Amount, LineItemExempt)
			continue
		}
		amount := fee.Amount
		// 部分州对 doc fee 的应税额设上限，上限内取整后计入税基。
		if isDocumentationFee(fee.Name) && rule.DocFeeCap.IsPositive() {
			amount = RoundMoney(ApplyCap(amount, rule.DocFeeCap))
		}
		base = base.Add(amount)
		b.addLine(fmt.Sprintf("fee %q taxable", fee.Name), amount, LineItemTaxable)
	}

	for _, rebate := range tx.Rebates {
		cls, err := c.interpreter.Classify(rule, rebate.Name, ChargeKindRebate, ChargeContext{
			RebateOrigin: rebate.Origin,
			VehicleClass: tx.VehicleClass,
		})
		if err != nil {
			return decimal.Zero, err
		}
		if cls.Unrecognized {
			b.addLine(fmt.Sprintf("unrecognized charge %q defaulted to %s", rebate.Name, cls.Code), rebate.Amount, LineItemWarning)
		}
		if cls.Code == TaxabilityTaxable {
			// 应税返利不减税基：税在返利前的价格上征收。
			b.addLine(fmt.Sprintf("rebate %q taxable (no base reduction)", rebate.Name), rebate.Amount, LineItemTaxable)
			continue
		}
		base = base.Sub(rebate.Amount)
		b.addLine(fmt.Sprintf("rebate %q exempt", rebate.Name), rebate.Amount.Neg(), LineItemExempt)
	}

	return ClampNonNegative(base), nil
}

// tradeInCredit 按州政策计算置换抵扣：全额 / 封顶 / 不允许。
func (c *TaxCalculator) tradeInCredit(tx *VehicleTransaction, rule *StateRule) decimal.Decimal {
	if tx.TradeInValue.IsZero() {
		return decimal.Zero
	}
	switch rule.TradeInPolicy {
	case TradeInFull:
		return tx.TradeInValue
	case TradeInCapped:
		return ApplyCap(tx.TradeInValue, rule.TradeInCap)
	default:
		return decimal.Zero
	}
}

// computeTax 按方案计税。平税率与无税方案内联，三个特殊方案委托给各自的计算器。
func (c *TaxCalculator) computeTax(tx *VehicleTransaction, rule *StateRule, base decimal.Decimal, b *TaxBreakdown) (decimal.Decimal, error) {
	switch rule.Scheme {
	case SchemeNone:
		b.addLine(fmt.Sprintf("%s levies no vehicle sales tax", rule.Jurisdiction), decimal.Zero, LineItemExempt)
		return decimal.Zero, nil
	case SchemeFlat:
		return PercentageOf(base, rule.BaseRate), nil
	case SchemeAdValorem:
		res, err := c.advalorem.Compute(tx, rule)
		if err != nil {
			return decimal.Zero, err
		}
		// 从价税的税基是折旧后评估值，覆盖交易口径的税基。
		b.TaxableBase = RoundMoney(res.TaxableBase)
		b.LineItems = append(b.LineItems, res.Lines...)
		return res.Tax, nil
	case SchemeUseTax:
		res, err := c.usetax.Compute(tx, rule, base)
		if err != nil {
			return decimal.Zero, err
		}
		b.LineItems = append(b.LineItems, res.Lines...)
		return res.Tax, nil
	case SchemePrivilege:
		res, err := c.privilege.Compute(tx, rule, base)
		if err != nil {
			return decimal.Zero, err
		}
		b.LineItems = append(b.LineItems, res.Lines...)
		return res.Tax, nil
	default:
		// 注册表校验已保证方案合法，这里只是封底。
		return decimal.Zero, fmt.Errorf("%w: %s: scheme %q", ErrRegistryValidation, rule.Jurisdiction, rule.Scheme)
	}
}

// applyReciprocity 有外州缴税记录时计算互惠抵免并记入明细。
func (c *TaxCalculator) applyReciprocity(tx *VehicleTransaction, b *TaxBreakdown) {
	if tx.PriorTax == nil || c.reciprocity == nil {
		return
	}
	res := c.reciprocity.ResolveCredit(tx.PriorTax.Jurisdiction, tx.Jurisdiction, tx.PriorTax.AmountPaid, b.TaxAmount)
	b.ReciprocityCredit = RoundMoney(res.Credit)
	b.CreditOverage = RoundMoney(res.Overage)
	if res.Credit.IsPositive() || res.Mode != ReciprocityNone {
		b.addLine(
			fmt.Sprintf("reciprocity credit from %s (%s)", tx.PriorTax.Jurisdiction, res.Mode),
			res.Credit.Neg(),
			LineItemRecipCred,
		)
	}
}

// isDocumentationFee 识别 doc fee 的常见写法。
func isDocumentationFee(name string) bool {
	switch name {
	case "doc_fee", "documentation_fee", "dealer_doc_fee":
		return true
	}
	return false
}
