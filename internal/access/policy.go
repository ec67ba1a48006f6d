// Package access decides, per resource and action, which caller tier may
// proceed. The policy is a fixed table; handlers consult it through Guard
// before touching any store.
package access

import (
	"context"

	dErrors "condo/pkg/domain-errors"
	"condo/pkg/requestcontext"
)

// Tier is the minimum caller class required for an action.
type Tier int

const (
	TierPublic Tier = iota
	TierAuthenticated
	TierAdmin
	// TierNobody marks actions no caller may perform through the API.
	TierNobody
)

func (t Tier) String() string {
	switch t {
	case TierPublic:
		return "public"
	case TierAuthenticated:
		return "authenticated"
	case TierAdmin:
		return "admin"
	default:
		return "nobody"
	}
}

type Action string

const (
	ActionList     Action = "list"
	ActionRetrieve Action = "retrieve"
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
)

// IsRead reports whether the action only observes state.
func (a Action) IsRead() bool {
	return a == ActionList || a == ActionRetrieve
}

type Resource string

const (
	Units          Resource = "units"
	Notices        Resource = "notices"
	UnitCategories Resource = "unit-categories"
	FeeTypes       Resource = "fee-types"
	FeeStatuses    Resource = "fee-statuses"
	PaymentTypes   Resource = "payment-types"
	Persons        Resource = "residents"
	Residencies    Resource = "residencies"
	Vehicles       Resource = "vehicles"
	Visitors       Resource = "visitors"
	Fees           Resource = "fees"
	Payments       Resource = "payments"
	Groups         Resource = "groups"
	Users          Resource = "users"
	Self           Resource = "users/me"
)

// Rule is the policy entry of one resource. OwnerScoped rules narrow reads
// of non-admin callers to records they are linked to.
type Rule struct {
	Read        Tier
	Write       Tier
	OwnerScoped bool
}

// Policy maps resources to rules.
type Policy struct {
	rules map[Resource]Rule
}

// DefaultPolicy returns the access table of the application.
func DefaultPolicy() *Policy {
	return &Policy{rules: map[Resource]Rule{
		Units:          {Read: TierPublic, Write: TierAdmin},
		Notices:        {Read: TierPublic, Write: TierAdmin},
		UnitCategories: {Read: TierAuthenticated, Write: TierAdmin},
		FeeTypes:       {Read: TierAuthenticated, Write: TierAdmin},
		FeeStatuses:    {Read: TierAuthenticated, Write: TierAdmin},
		PaymentTypes:   {Read: TierAuthenticated, Write: TierAdmin},
		Persons:        {Read: TierAdmin, Write: TierAdmin},
		Residencies:    {Read: TierAdmin, Write: TierAdmin},
		Vehicles:       {Read: TierAuthenticated, Write: TierAdmin, OwnerScoped: true},
		Visitors:       {Read: TierAuthenticated, Write: TierAdmin, OwnerScoped: true},
		Fees:           {Read: TierAdmin, Write: TierAdmin},
		Payments:       {Read: TierAdmin, Write: TierAdmin},
		Groups:         {Read: TierAdmin, Write: TierNobody},
		Users:          {Read: TierAdmin, Write: TierAdmin},
		Self:           {Read: TierAuthenticated, Write: TierNobody},
	}}
}

// Rule returns the rule of res. Unknown resources are admin-only.
func (p *Policy) Rule(res Resource) Rule {
	if rule, ok := p.rules[res]; ok {
		return rule
	}
	return Rule{Read: TierAdmin, Write: TierAdmin}
}

// Required returns the minimum tier for act on res.
func (p *Policy) Required(res Resource, act Action) Tier {
	rule := p.Rule(res)
	if act.IsRead() {
		return rule.Read
	}
	return rule.Write
}

// TierOf classifies the caller of ctx.
func TierOf(ctx context.Context) Tier {
	principal, ok := requestcontext.PrincipalFrom(ctx)
	switch {
	case !ok:
		return TierPublic
	case principal.IsAdmin():
		return TierAdmin
	default:
		return TierAuthenticated
	}
}

// Authorize returns a forbidden error when the caller of ctx may not perform
// act on res.
func (p *Policy) Authorize(ctx context.Context, res Resource, act Action) error {
	required := p.Required(res, act)
	if required == TierNobody || TierOf(ctx) < required {
		return dErrors.New(dErrors.CodeForbidden, "forbidden")
	}
	return nil
}

// OwnerScoped reports whether reads of res by the caller of ctx must be
// narrowed to the caller's own records.
func (p *Policy) OwnerScoped(ctx context.Context, res Resource) bool {
	return p.Rule(res).OwnerScoped && TierOf(ctx) != TierAdmin
}

// IsAdmin reports whether the caller of ctx holds the Admin role.
func IsAdmin(ctx context.Context) bool {
	return TierOf(ctx) == TierAdmin
}
