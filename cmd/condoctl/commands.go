package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	authmodels "condo/internal/auth/models"
	"condo/internal/auth/password"
	identitystore "condo/internal/auth/store/identity"
	catalogmodels "condo/internal/catalog/models"
	catalogstore "condo/internal/catalog/store"
	"condo/internal/platform/postgres"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/sentinel"
	"condo/pkg/platform/tx"
)

// referenceData is inserted by seed when the names are missing.
var referenceData = map[catalogmodels.Kind][]string{
	catalogmodels.UnitCategories: {"Apartment", "Penthouse", "Commercial"},
	catalogmodels.FeeTypes:       {"Maintenance", "Extraordinary", "Parking"},
	catalogmodels.PaymentTypes:   {"Cash", "Bank transfer", "Card"},
}

func openDB(cmd *cobra.Command) (*sql.DB, error) {
	dsn, _ := cmd.Flags().GetString("database-url")
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		return nil, errors.New("database URL required: set --database-url or DATABASE_URL")
	}
	return postgres.Open(cmd.Context(), dsn)
}

func schemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Apply the bootstrap schema, or print it with --print",
		RunE: func(cmd *cobra.Command, args []string) error {
			if printOnly, _ := cmd.Flags().GetBool("print"); printOnly {
				fmt.Fprint(cmd.OutOrStdout(), postgres.Schema())
				return nil
			}
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := postgres.ApplySchema(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema applied.")
			return nil
		},
	}
	cmd.Flags().Bool("print", false, "Print the schema instead of applying it")
	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert missing unit categories, fee types and payment types",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			created, err := seed(cmd.Context(), catalogstore.NewPostgres(db), tx.NewSQLRunner(db, 30*time.Second))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d reference entries.\n", created)
			return nil
		},
	}
}

type catalogWriter interface {
	FindByName(ctx context.Context, kind catalogmodels.Kind, name string) (*catalogmodels.Entry, error)
	Create(ctx context.Context, kind catalogmodels.Kind, entry *catalogmodels.Entry) error
}

func seed(ctx context.Context, store catalogWriter, runner tx.Runner) (int, error) {
	created := 0
	err := runner.RunInTx(ctx, func(ctx context.Context) error {
		for _, kind := range catalogmodels.Kinds {
			for _, name := range referenceData[kind] {
				_, err := store.FindByName(ctx, kind, name)
				if err == nil {
					continue
				}
				if !errors.Is(err, sentinel.ErrNotFound) {
					return fmt.Errorf("look up %s %q: %w", kind, name, err)
				}
				entry := &catalogmodels.Entry{ID: id.CatalogID(uuid.New()), Name: name}
				if err := store.Create(ctx, kind, entry); err != nil {
					return fmt.Errorf("create %s %q: %w", kind, name, err)
				}
				created++
			}
		}
		return nil
	})
	return created, err
}

func createAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a login with the Admin group",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			email, _ := cmd.Flags().GetString("email")
			pw, _ := cmd.Flags().GetString("password")
			if pw == "" {
				pw = os.Getenv("CONDO_ADMIN_PASSWORD")
			}

			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			identity, err := createAdmin(cmd.Context(), identitystore.NewPostgres(db), tx.NewSQLRunner(db, 30*time.Second),
				password.NewHasher(bcrypt.DefaultCost), username, email, pw)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (%s).\n", identity.Username, identity.ID)
			return nil
		},
	}
	cmd.Flags().String("username", "", "Login name (defaults to the email)")
	cmd.Flags().String("email", "", "Email address")
	cmd.Flags().String("password", "", "Password (defaults to CONDO_ADMIN_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

type adminWriter interface {
	Create(ctx context.Context, identity *authmodels.Identity) error
}

type hasher interface {
	Hash(pw string) ([]byte, error)
}

func createAdmin(ctx context.Context, store adminWriter, runner tx.Runner, h hasher, username, email, pw string) (*authmodels.Identity, error) {
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)
	if username == "" {
		username = email
	}
	if err := password.Validate("password", pw, password.Attributes{Username: username, Email: email}); err != nil {
		return nil, fmt.Errorf("%w: %s", err, strings.Join(dErrors.Fields(err)["password"], " "))
	}
	hash, err := h.Hash(pw)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	identity := &authmodels.Identity{
		ID:           id.UserID(uuid.New()),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Active:       true,
		Roles:        []id.RoleName{id.RoleAdmin},
		CreatedAt:    time.Now().UTC(),
	}
	err = runner.RunInTx(ctx, func(ctx context.Context) error {
		return store.Create(ctx, identity)
	})
	if errors.Is(err, sentinel.ErrDuplicate) {
		return nil, fmt.Errorf("an identity named %q or using %q already exists", username, email)
	}
	if err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return identity, nil
}
