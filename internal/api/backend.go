package api

import (
	"database/sql"
	"time"

	authsvc "condo/internal/auth/service"
	identitystore "condo/internal/auth/store/identity"
	billingsvc "condo/internal/billing/service"
	billingstore "condo/internal/billing/store"
	catalogsvc "condo/internal/catalog/service"
	catalogstore "condo/internal/catalog/store"
	gatesvc "condo/internal/gate/service"
	gatestore "condo/internal/gate/store"
	noticesvc "condo/internal/notice/service"
	noticestore "condo/internal/notice/store"
	propertysvc "condo/internal/property/service"
	propertystore "condo/internal/property/store"
	registrationsvc "condo/internal/registration/service"
	residentsvc "condo/internal/residents/service"
	residentstore "condo/internal/residents/store"
	"condo/internal/roles"
	rolestore "condo/internal/roles/store"
	audit "condo/pkg/platform/audit"
	auditmemory "condo/pkg/platform/audit/store/memory"
	auditpostgres "condo/pkg/platform/audit/store/postgres"
	"condo/pkg/platform/tx"
)

// IdentityStore is the identity persistence shared by login, administration
// and registration.
type IdentityStore interface {
	authsvc.IdentityStore
	registrationsvc.Identities
}

// AuditStore records audit events and exposes them to the outbox relay.
type AuditStore interface {
	audit.Store
	audit.Outbox
}

// Backend selects the storage of every module. All stores of one backend
// share its transaction runner.
type Backend struct {
	Identities IdentityStore
	Roles      roles.Lister
	Catalog    catalogsvc.Store
	Units      propertysvc.Store
	Residents  residentsvc.Store
	Gate       gatesvc.Store
	Billing    billingsvc.Store
	Notices    noticesvc.Store
	Audit      AuditStore
	Tx         tx.Runner
}

// MemoryBackend keeps every record in process. Roles and fee statuses are
// seeded.
func MemoryBackend(txTimeout time.Duration) Backend {
	return Backend{
		Identities: identitystore.New(),
		Roles:      rolestore.NewInMemory(),
		Catalog:    catalogstore.NewInMemory(),
		Units:      propertystore.NewInMemory(),
		Residents:  residentstore.NewInMemory(),
		Gate:       gatestore.NewInMemory(),
		Billing:    billingstore.NewInMemory(),
		Notices:    noticestore.NewInMemory(),
		Audit:      auditmemory.NewInMemoryStore(),
		Tx:         tx.NewMemoryRunner(txTimeout),
	}
}

// PostgresBackend stores everything in db. The bootstrap schema must have
// been applied.
func PostgresBackend(db *sql.DB, txTimeout time.Duration) Backend {
	return Backend{
		Identities: identitystore.NewPostgres(db),
		Roles:      rolestore.NewPostgres(db),
		Catalog:    catalogstore.NewPostgres(db),
		Units:      propertystore.NewPostgres(db),
		Residents:  residentstore.NewPostgres(db),
		Gate:       gatestore.NewPostgres(db),
		Billing:    billingstore.NewPostgres(db),
		Notices:    noticestore.NewPostgres(db),
		Audit:      auditpostgres.New(db),
		Tx:         tx.NewSQLRunner(db, txTimeout),
	}
}
