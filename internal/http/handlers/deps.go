package handlers

import (
	"github.com/jmoiron/sqlx"

	"storefront/internal/config"
	"storefront/internal/repos"
	"storefront/internal/services"
	"storefront/internal/supplier"
)

type Deps struct {
	DB *sqlx.DB

	Auth *services.AdminAuth

	ProductHandler    *ProductHandler
	CartHandler       *CartHandler
	OrderHandler      *OrderHandler
	AdminHandler      *AdminHandler
	SupplierHandler   *SupplierHandler
	NewsletterHandler *NewsletterHandler
}

// NewDeps wires repos, services and handlers. A nil transport talks to the
// configured supplier base URL; tests pass a scripted one together with
// client options such as a recording sleeper.
func NewDeps(db *sqlx.DB, cfg config.Config, auth *services.AdminAuth, tr supplier.Transport, opts ...supplier.ClientOption) *Deps {
	prodRepo := repos.NewProductRepo(db)
	cartRepo := repos.NewCartRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	credRepo := repos.NewCredentialRepo(db)
	subRepo := repos.NewSubscriberRepo(db)

	if tr == nil {
		tr = supplier.NewHTTPTransport(cfg.Supplier.BaseURL, cfg.Supplier.Timeout)
	}
	b := cfg.Supplier.Backoff
	policy := supplier.Policy{
		Base:        b.Base,
		Multiplier:  b.Multiplier,
		Cap:         b.Cap,
		MaxAttempts: b.MaxAttempts,
		RetryAfter:  b.RetryAfter,
	}
	client := supplier.NewClient(tr, policy, opts...)
	tokens := supplier.NewTokenManager(credRepo, client, cfg.Supplier.TokenBuffer)
	syncer := supplier.NewSyncer(client, tokens, prodRepo, orderRepo)

	mail := services.NewMailer(cfg.SMTP)
	catalogSvc := services.NewCatalogService(prodRepo)
	cartSvc := services.NewCartService(cartRepo, prodRepo)
	orderSvc := services.NewOrderService(cartRepo, orderRepo, mail)
	credSvc := services.NewCredentialService(credRepo, tokens)
	newsSvc := services.NewNewsletterService(subRepo, mail)

	return &Deps{
		DB:                db,
		Auth:              auth,
		ProductHandler:    &ProductHandler{Catalog: catalogSvc},
		CartHandler:       &CartHandler{Cart: cartSvc},
		OrderHandler:      &OrderHandler{Order: orderSvc},
		AdminHandler:      &AdminHandler{Auth: auth, Orders: orderSvc, Catalog: catalogSvc, Creds: credSvc, Subs: subRepo},
		SupplierHandler:   &SupplierHandler{Sync: syncer},
		NewsletterHandler: &NewsletterHandler{News: newsSvc},
	}
}
