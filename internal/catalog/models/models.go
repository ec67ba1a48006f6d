// Package models defines the administrator-managed reference tables.
package models

import (
	"fmt"

	id "condo/pkg/domain"
)

// Kind names one reference table. Its string form is the API collection.
type Kind string

const (
	UnitCategories Kind = "unit-categories"
	FeeTypes       Kind = "fee-types"
	FeeStatuses    Kind = "fee-statuses"
	PaymentTypes   Kind = "payment-types"
)

// Kinds lists every reference table.
var Kinds = []Kind{UnitCategories, FeeTypes, FeeStatuses, PaymentTypes}

var tables = map[Kind]string{
	UnitCategories: "unit_categories",
	FeeTypes:       "fee_types",
	FeeStatuses:    "fee_statuses",
	PaymentTypes:   "payment_types",
}

// Table returns the SQL table of k. Only whitelisted kinds have one, so
// callers may interpolate the result into queries.
func (k Kind) Table() (string, error) {
	t, ok := tables[k]
	if !ok {
		return "", fmt.Errorf("unknown catalog kind %q", k)
	}
	return t, nil
}

// HasDefaultAmount reports whether entries of k carry a default amount.
func (k Kind) HasDefaultAmount() bool { return k == FeeTypes }

func (k Kind) String() string { return string(k) }

// Entry is a row of a reference table.
type Entry struct {
	ID            id.CatalogID `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	DefaultAmount *int64       `json:"default_amount,omitempty"`
}

// Fee statuses seeded with the schema.
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusOverdue = "overdue"
)

var labels = map[Kind]string{
	UnitCategories: "Unit category",
	FeeTypes:       "Fee type",
	FeeStatuses:    "Fee status",
	PaymentTypes:   "Payment type",
}

// Label is the human name used in messages.
func (k Kind) Label() string {
	if l, ok := labels[k]; ok {
		return l
	}
	return string(k)
}
