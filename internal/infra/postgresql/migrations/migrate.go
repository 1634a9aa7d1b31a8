package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/rwandex/registrar-engine/internal/domain"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createContactsTable(),
		createDomainsTable(),
		createNameserversTable(),
		createRenewalsTable(),
		createFailedRegistrationsTable(),
		createOrdersTable(),
		createTLDPricingTable(),
	})

	return m.Migrate()
}

func createContactsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_contacts",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&domain.Contact{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_contacts_user_id ON contacts (user_id)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&domain.Contact{})
		},
	}
}

func createDomainsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_domains",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&domain.Domain{}, &domain.DomainContact{}, &domain.DomainNameserver{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_domains_owner_status ON domains (owner_id, status)`,
				`CREATE INDEX IF NOT EXISTS idx_domains_expires_at ON domains (expires_at)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(
				&domain.DomainNameserver{},
				&domain.DomainContact{},
				&domain.Domain{},
			)
		},
	}
}

func createNameserversTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_nameservers",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&domain.Nameserver{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&domain.Nameserver{})
		},
	}
}

func createRenewalsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_create_domain_renewals",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&domain.DomainRenewal{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_domain_renewals_domain_created ON domain_renewals (domain_id, created_at)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&domain.DomainRenewal{})
		},
	}
}

func createFailedRegistrationsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000005_create_failed_domain_registrations",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&domain.FailedDomainRegistration{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_failed_registrations_due ON failed_domain_registrations (next_retry_at) WHERE status = 'PENDING'`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&domain.FailedDomainRegistration{})
		},
	}
}

func createOrdersTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000006_create_orders",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&domain.Order{}, &domain.OrderItem{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&domain.OrderItem{}, &domain.Order{})
		},
	}
}

func createTLDPricingTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000007_create_tld_pricing",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&domain.TLDPricing{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&domain.TLDPricing{})
		},
	}
}
