package domain

import "github.com/shopspring/decimal"

// LineItemClass 明细行的类别，说明该行在税基推导中的角色。
type LineItemClass string

const (
	LineItemBase      LineItemClass = "BASE"       // 车价等税基正项
	LineItemCredit    LineItemClass = "CREDIT"     // 置换抵扣等税基负项
	LineItemTaxable   LineItemClass = "TAXABLE"    // 计入税基的费用
	LineItemExempt    LineItemClass = "EXEMPT"     // 不计入税基/减税基的条目
	LineItemTax       LineItemClass = "TAX"        // 税额行
	LineItemRecipCred LineItemClass = "RECIPROCITY" // 互惠抵免行
	LineItemWarning   LineItemClass = "WARNING"    // 警告行（如未知费用名走兜底）
)

// LineItem 明细行。每个中间值都落在明细里，结果可逐行审计。
type LineItem struct {
	Label          string          `json:"label"`
	Amount         decimal.Decimal `json:"amount"`
	Classification LineItemClass   `json:"classification"`
}

// TaxBreakdown 是计税结果。
// 不变量：FinalAmountDue = TaxAmount − ReciprocityCredit，下限为零；
// 抵免超出税额的部分记入 CreditOverage，绝不折成负的应缴额。
type TaxBreakdown struct {
	Jurisdiction      JurisdictionCode `json:"jurisdiction"`
	Scheme            Scheme           `json:"scheme"`
	TaxableBase       decimal.Decimal  `json:"taxable_base"`
	TaxAmount         decimal.Decimal  `json:"tax_amount"`
	ReciprocityCredit decimal.Decimal  `json:"reciprocity_credit"`
	CreditOverage     decimal.Decimal  `json:"credit_overage"`
	FinalAmountDue    decimal.Decimal  `json:"final_amount_due"`
	LineItems         []LineItem       `json:"line_items"`
}

func (b *TaxBreakdown) addLine(label string, amount decimal.Decimal, class LineItemClass) {
	b.LineItems = append(b.LineItems, LineItem{
		Label:          label,
		Amount:         RoundMoney(amount),
		Classification: class,
	})
}

// SchemeResult 特殊方案计算器的统一返回：税基与税额（均未做最终取整）。
type SchemeResult struct {
	TaxableBase decimal.Decimal
	Tax         decimal.Decimal
	// Lines 是方案内部的推导明细（折旧档、窗口判定、类别查表），
	// 由调度器合并进最终明细。
	Lines []LineItem
}
