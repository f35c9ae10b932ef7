// Command create-admin provisions an administrator account directly in the
// database. Running it again for an existing username changes nothing.
//
//	create-admin -username root -email root@africtivistes.org
//
// The password is read from ADMIN_PASSWORD or prompted for on the terminal.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/africtivistes/adisa/internal/core/ports"
	"github.com/africtivistes/adisa/internal/core/service"
	"github.com/africtivistes/adisa/internal/infrastructure/db/mongo"
	"github.com/africtivistes/adisa/internal/pkg/config"
	"github.com/africtivistes/adisa/pkg/logger"
)

type toolConfig struct {
	LogLevel   string `env:"LOG_LEVEL,      default=info"`
	BcryptCost int    `env:"BCRYPT_COST,    default=10"`
	Password   string `env:"ADMIN_PASSWORD"`
	Mongo      config.MongoConfig
}

func main() {
	var input ports.CreateAdminInput
	flag.StringVar(&input.Username, "username", "", "admin username (required)")
	flag.StringVar(&input.Email, "email", "", "admin email (required)")
	flag.StringVar(&input.FirstName, "first-name", "", "first name")
	flag.StringVar(&input.LastName, "last-name", "", "last name")
	flag.Parse()

	if err := run(context.Background(), input); err != nil {
		fmt.Fprintln(os.Stderr, "create-admin:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, input ports.CreateAdminInput) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read .env: %w", err)
	}
	var cfg toolConfig
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true, Service: "create-admin"})

	input.Password = cfg.Password
	if input.Password == "" {
		pw, err := promptPassword(bufio.NewReader(os.Stdin), os.Stdout)
		if err != nil {
			return err
		}
		input.Password = pw
	}

	client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	accounts := mongo.NewAccountRepository(db)
	if err := mongo.EnsureIndexes(ctx, accounts); err != nil {
		return err
	}

	// Provisioning never touches sessions.
	svc := service.NewAccountService(accounts, nil, cfg.BcryptCost, log)
	account, created, err := svc.CreateAdmin(ctx, input)
	if err != nil {
		return err
	}

	if !created {
		fmt.Printf("Account %q already exists (id %s), nothing changed.\n", account.Username, account.ID)
		return nil
	}
	fmt.Printf("Admin %q created (id %s). Enroll 2FA at first login.\n", account.Username, account.ID)
	return nil
}
