// Package main регистрирует арендатора в хранилище сервиса wooadmin.
// Маршрута регистрации у API нет: учётные записи заводит оператор.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/wooadmin-system/internal/repository"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	var (
		email     = flag.String("email", "", "tenant email")
		password  = flag.String("password", "", "tenant password")
		wooURL    = flag.String("woo-url", "", "WooCommerce store URL")
		wooKey    = flag.String("woo-ck", "", "WooCommerce consumer key")
		wooSecret = flag.String("woo-cs", "", "WooCommerce consumer secret")
	)
	flag.Parse()

	if *email == "" || *password == "" || *wooURL == "" || *wooKey == "" || *wooSecret == "" {
		flag.Usage()
		os.Exit(2)
	}

	dsn := os.Getenv("DATABASE_URI")
	if dsn == "" {
		sugar.Fatalw("DATABASE_URI is required")
	}

	repo, err := repository.NewPostgresRepository(dsn)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		sugar.Fatalw("hash password error", "error", err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := repo.CreateTenant(ctx, *email, hash, *wooURL, *wooKey, *wooSecret)
	if err != nil {
		sugar.Fatalw("create tenant error", "error", err.Error())
	}

	sugar.Infow("tenant created", "id", id, "email", *email)
}
