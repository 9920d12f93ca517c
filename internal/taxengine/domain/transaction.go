package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// VehicleClass 车辆类别，特权税（privilege tax）州按类别查表计税。
type VehicleClass string

const (
	VehicleClassPassenger  VehicleClass = "PASSENGER"
	VehicleClassTruck      VehicleClass = "TRUCK"
	VehicleClassMotorcycle VehicleClass = "MOTORCYCLE"
	VehicleClassRV         VehicleClass = "RV"
	VehicleClassTrailer    VehicleClass = "TRAILER"
)

// RebateOrigin 返利来源。部分州只对厂家返利征税，经销商折扣直接减税基。
type RebateOrigin string

const (
	RebateOriginManufacturer RebateOrigin = "MANUFACTURER"
	RebateOriginDealer       RebateOrigin = "DEALER"
)

// ChargeKind 费用条目种类，分类器按种类选择策略表。
type ChargeKind string

const (
	ChargeKindFee     ChargeKind = "FEE"
	ChargeKindRebate  ChargeKind = "REBATE"
	ChargeKindProduct ChargeKind = "PRODUCT"
)

// Fee 交易中的一项费用（doc fee、title fee 等）。
type Fee struct {
	Name   string
	Amount decimal.Decimal
}

// Rebate 交易中的一项返利，带来源标记。
type Rebate struct {
	Name   string
	Amount decimal.Decimal
	Origin RebateOrigin
}

// PriorTax 已向来源州缴纳的税款记录，仅供互惠抵免解析器使用。
type PriorTax struct {
	Jurisdiction JurisdictionCode
	AmountPaid   decimal.Decimal
	PaymentDate  time.Time
}

// VehicleTransaction 是一次计税调用的全部输入。
// 所有实体按次构造、用后即弃；引擎不跨调用共享任何可变状态。
type VehicleTransaction struct {
	SalePrice        decimal.Decimal
	TradeInValue     decimal.Decimal
	Fees             []Fee
	Rebates          []Rebate
	VehicleClass     VehicleClass
	ModelYear        int
	FairMarketValue  decimal.Decimal
	PurchaseDate     time.Time
	RegistrationDate time.Time
	Jurisdiction     JurisdictionCode
	PriorTax         *PriorTax
}

// Validate 校验交易不变量：价格、费用与返利金额非负，挂牌州非空。
// 置换车价值允许超过车价（税基在计算时截断为零，而不是在这里拒绝）。
func (t *VehicleTransaction) Validate() error {
	if t.Jurisdiction == "" {
		return fmt.Errorf("%w: registration jurisdiction is required", ErrInvalidTransaction)
	}
	if t.SalePrice.IsNegative() {
		return fmt.Errorf("%w: sale price must be non-negative", ErrInvalidTransaction)
	}
	if t.TradeInValue.IsNegative() {
		return fmt.Errorf("%w: trade-in value must be non-negative", ErrInvalidTransaction)
	}
	if t.FairMarketValue.IsNegative() {
		return fmt.Errorf("%w: fair market value must be non-negative", ErrInvalidTransaction)
	}
	for _, f := range t.Fees {
		if f.Amount.IsNegative() {
			return fmt.Errorf("%w: fee %q must be non-negative", ErrInvalidTransaction, f.Name)
		}
	}
	for _, r := range t.Rebates {
		if r.Amount.IsNegative() {
			return fmt.Errorf("%w: rebate %q amount must be non-negative", ErrInvalidTransaction, r.Name)
		}
	}
	if t.PriorTax != nil {
		if t.PriorTax.Jurisdiction == "" {
			return fmt.Errorf("%w: prior tax origin jurisdiction is required", ErrInvalidTransaction)
		}
		if t.PriorTax.AmountPaid.IsNegative() {
			return fmt.Errorf("%w: prior tax paid must be non-negative", ErrInvalidTransaction)
		}
	}
	return nil
}

// VehicleAgeYears 返回计税时的车龄（挂牌年份 − 车型年份）。
// 未来车型年（负车龄）由从价税表的零档分支处理，这里不截断。
func (t *VehicleTransaction) VehicleAgeYears() int {
	ref := t.RegistrationDate
	if ref.IsZero() {
		ref = t.PurchaseDate
	}
	return ref.Year() - t.ModelYear
}

// UseTaxReferenceDate 返回时间窗用税方案的起算日：
// 有外州缴税记录时取其缴税日，否则取购车日。
func (t *VehicleTransaction) UseTaxReferenceDate() time.Time {
	if t.PriorTax != nil && !t.PriorTax.PaymentDate.IsZero() {
		return t.PriorTax.PaymentDate
	}
	return t.PurchaseDate
}
