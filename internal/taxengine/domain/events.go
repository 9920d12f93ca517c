package domain

import "time"

// TaxQuoteComputedEvent 在一次计税完成并落库后发布。
type TaxQuoteComputedEvent struct {
	QuoteID        string           `json:"quote_id"`
	Jurisdiction   JurisdictionCode `json:"jurisdiction"`
	Scheme         Scheme           `json:"scheme"`
	TaxableBase    string           `json:"taxable_base"`
	TaxAmount      string           `json:"tax_amount"`
	FinalAmountDue string           `json:"final_amount_due"`
	ComputedAt     time.Time        `json:"computed_at"`
}

// EventPublisher 领域事件发布接口，由基础设施层（outbox）实现。
type EventPublisher interface {
	PublishTaxQuoteComputed(event TaxQuoteComputedEvent) error
}
