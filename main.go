package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"shop-backend/handlers"
	"shop-backend/internal/auth"
	"shop-backend/internal/cart"
	"shop-backend/internal/consul"
	"shop-backend/internal/orders"
	"shop-backend/internal/payments"
	"shop-backend/internal/products"
	"shop-backend/internal/stores/kafka"
	"shop-backend/internal/stores/postgres"
	"shop-backend/internal/users"

	"github.com/joho/godotenv"
)

const serviceName = "shop-backend"

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, relying on environment")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := postgres.OpenDB()
	if err != nil {
		log.Fatalf("failed to connect to the database: %v", err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	privatePEM, err := os.ReadFile(getEnv("AUTH_PRIVATE_KEY_FILE", "private.pem"))
	if err != nil {
		log.Fatalf("failed to read private key: %v", err)
	}
	publicPEM, err := os.ReadFile(getEnv("AUTH_PUBLIC_KEY_FILE", "pubkey.pem"))
	if err != nil {
		log.Fatalf("failed to read public key: %v", err)
	}
	keys, err := auth.NewKeys(privatePEM, publicPEM)
	if err != nil {
		log.Fatalf("failed to parse auth keys: %v", err)
	}

	uConf, err := users.NewConf(db)
	if err != nil {
		log.Fatalf("failed to init users store: %v", err)
	}
	pConf, err := products.NewConf(db)
	if err != nil {
		log.Fatalf("failed to init products store: %v", err)
	}
	ctConf, err := cart.NewConf(db)
	if err != nil {
		log.Fatalf("failed to init cart store: %v", err)
	}
	oConf, err := orders.NewConf(db)
	if err != nil {
		log.Fatalf("failed to init orders store: %v", err)
	}
	payConf, err := payments.NewConf(db)
	if err != nil {
		log.Fatalf("failed to init payments store: %v", err)
	}

	var kConf *kafka.Conf
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		kConf, err = kafka.NewConf(strings.Split(brokers, ","))
		if err != nil {
			log.Fatalf("failed to connect to kafka: %v", err)
		}
		defer kConf.Close()
	} else {
		slog.Warn("KAFKA_BROKERS not set, domain events disabled")
	}

	port, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		log.Fatalf("invalid APP_PORT: %v", err)
	}

	if consulAddr := os.Getenv("CONSUL_HTTP_ADDR"); consulAddr != "" {
		client, err := consul.NewClient(consulAddr)
		if err != nil {
			log.Fatalf("failed to create consul client: %v", err)
		}
		host := getEnv("APP_HOST", "localhost")
		if err := consul.RegisterService(client, serviceName, host, port); err != nil {
			log.Fatalf("failed to register with consul: %v", err)
		}
		slog.Info("registered with consul", slog.String("Service", serviceName))
	}

	r := handlers.API(keys, uConf, pConf, ctConf, oConf, payConf, kConf)

	slog.Info("starting server", slog.Int("Port", port))
	if err := r.Run(":" + strconv.Itoa(port)); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
