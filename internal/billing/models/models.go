// Package models defines unit fees, their itemized lines, and the payments
// applied against them. Amounts are integer minor units.
package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	id "condo/pkg/domain"
)

const dateLayout = "2006-01-02"

// Date is a calendar day serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day in UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string { return d.Format(dateLayout) }

// MarshalJSON and UnmarshalJSON shadow the RFC 3339 methods promoted from
// time.Time.
func (d Date) MarshalJSON() ([]byte, error) { return []byte(strconv.Quote(d.String())), nil }

func (d *Date) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("invalid date %s", b)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

type Fee struct {
	ID        id.FeeID     `json:"id"`
	UnitID    id.UnitID    `json:"unit_id"`
	FeeTypeID id.CatalogID `json:"fee_type_id"`
	StatusID  id.CatalogID `json:"status_id"`
	Amount    int64        `json:"amount"`
	IssueDate Date         `json:"issue_date"`
	DueDate   Date         `json:"due_date"`
	Paid      bool         `json:"paid"`
	// Applied is the total of payment applications, filled on reads.
	Applied   int64     `json:"applied_amount"`
	Items     []FeeItem `json:"items"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemsTotal sums the item amounts.
func (f *Fee) ItemsTotal() int64 {
	var total int64
	for _, it := range f.Items {
		total += it.Amount
	}
	return total
}

// Outstanding is what remains to be paid, never negative.
func (f *Fee) Outstanding() int64 {
	return max(f.Amount-f.Applied, 0)
}

type FeeItem struct {
	ID          id.FeeItemID `json:"id"`
	Description string       `json:"description"`
	Amount      int64        `json:"amount"`
}

type FeeFilter struct {
	UnitID     *id.UnitID
	UnpaidOnly bool
}

func (f FeeFilter) Matches(fee *Fee) bool {
	if f.UnitID != nil && fee.UnitID != *f.UnitID {
		return false
	}
	if f.UnpaidOnly && fee.Paid {
		return false
	}
	return true
}

type Payment struct {
	ID            id.PaymentID  `json:"id"`
	PaymentTypeID *id.CatalogID `json:"payment_type_id"`
	Amount        int64         `json:"amount"`
	PaidAt        time.Time     `json:"paid_at"`
	Reference     string        `json:"reference"`
	Applications  []Application `json:"applications"`
}

// AppliedTotal sums the amounts applied to fees.
func (p *Payment) AppliedTotal() int64 {
	var total int64
	for _, a := range p.Applications {
		total += a.AppliedAmount
	}
	return total
}

// FeeIDs lists the fees the payment is applied to.
func (p *Payment) FeeIDs() []id.FeeID {
	out := make([]id.FeeID, 0, len(p.Applications))
	for _, a := range p.Applications {
		out = append(out, a.FeeID)
	}
	return out
}

// Application is the part of a payment applied to one fee.
type Application struct {
	FeeID         id.FeeID `json:"fee_id"`
	AppliedAmount int64    `json:"applied_amount"`
}
