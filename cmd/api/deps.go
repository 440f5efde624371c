package main

import (
	"log"

	"horizon/internal/domain/accounts"
	"horizon/internal/domain/banklink"
	"horizon/internal/domain/transfer"
	"horizon/internal/infrastructure/aggregator"
	"horizon/internal/infrastructure/crypto"
	"horizon/internal/infrastructure/docstore"
	"horizon/internal/infrastructure/paymentrail"
	httphandlers "horizon/internal/interfaces/http"
	"horizon/internal/shared/auth"
	"horizon/internal/shared/config"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *docstore.DB

	// Handlers
	AuthHandler     *httphandlers.AuthHandler
	BankLinkHandler *httphandlers.BankLinkHandler
	AccountsHandler *httphandlers.AccountsHandler
	TransferHandler *httphandlers.TransferHandler

	// Auth
	JWT *auth.JWT
}

// NewDependencies initializes all application dependencies.
func NewDependencies(cfg *config.Config) (*Dependencies, error) {
	// Connect to database
	db, err := docstore.NewDB(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	log.Println("Connected to database")

	// Initialize encryptor
	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		return nil, err
	}

	// Document store and repositories
	store := docstore.NewPostgresStore(db)
	userRepo := docstore.NewUserRepository(store, encryptor)
	linkRepo := docstore.NewBankLinkRepository(store, encryptor)
	transferRepo := docstore.NewTransferRepository(store)

	// External API clients
	aggregatorClient := aggregator.NewClient(cfg.Aggregator.BaseURL, cfg.Aggregator.ClientID, cfg.Aggregator.Secret)
	railClient := paymentrail.NewClient(cfg.PaymentRail.BaseURL, cfg.PaymentRail.Key, cfg.PaymentRail.Secret)

	// Domain services
	linkService := banklink.NewService(aggregatorClient, railClient, linkRepo, userRepo,
		banklink.WithCustomerTimeout(cfg.Link.CustomerTimeout),
	)
	accountsService := accounts.NewService(aggregatorClient, linkRepo, transferRepo,
		accounts.WithSyncPageBudget(cfg.Link.SyncPageBudget),
		accounts.WithFallbackToFirstAccount(cfg.Link.FallbackToFirstAccount),
	)
	transferService := transfer.NewService(railClient, linkRepo, transferRepo)

	// Auth components
	jwt := auth.NewJWT(cfg.JWT.Secret)

	return &Dependencies{
		DB:              db,
		AuthHandler:     httphandlers.NewAuthHandler(userRepo, jwt),
		BankLinkHandler: httphandlers.NewBankLinkHandler(linkService),
		AccountsHandler: httphandlers.NewAccountsHandler(accountsService),
		TransferHandler: httphandlers.NewTransferHandler(transferService),
		JWT:             jwt,
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
