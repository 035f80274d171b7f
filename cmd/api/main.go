package main

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/event"
	"app/internal/handler"
	"app/internal/infra/db"
	infraEvent "app/internal/infra/event"
	"app/internal/infra/image"
	infraPayment "app/internal/infra/payment"
	infraRepo "app/internal/infra/repository"
	"app/internal/metrics"
	"app/internal/server"
	"app/internal/usecase"
	auth "app/internal/usecase/auth_usecase"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

type jwtIssuer struct {
	secret    []byte
	accessTTL time.Duration
}

func (i *jwtIssuer) Issue(userID int64, role model.Role, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(i.accessTTL)

	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(userID, 10),
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api").Logger()

	//.envは無くてもよい（本番は環境変数で渡す）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config load failed")
	}

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("db connect failed")
	}

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Payment{},
		&model.Review{},
		&model.Address{},
		&model.InventoryAdjustment{},
		&model.AuditLog{},
	); err != nil {
		logger.Fatal().Err(err).Msg("auto migrate failed")
	}

	//Redis（ゲストカート）
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	guestStore := infraRepo.NewGuestCartRedisStore(rdb)

	//Repository（GORM実装）生成
	txManager := infraRepo.NewTxManagerGorm(gormDB)
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	inventoryRepo := infraRepo.NewInventoryGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	paymentRepo := infraRepo.NewPaymentGormRepository(gormDB)
	addressRepo := infraRepo.NewAddressGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)

	//注文イベント（Kafka）。ブローカー未設定なら発行しない
	var publisher event.Publisher
	if cfg.KafkaBrokers != "" {
		kp := infraEvent.NewKafkaPublisher(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaOrderTopic)
		defer kp.Close()
		publisher = kp
		logger.Info().Str("topic", cfg.KafkaOrderTopic).Msg("kafka publisher enabled")
	}

	//メトリクス（OTLP）。エンドポイント未設定なら無効
	var appMetrics *metrics.AppMetrics
	if cfg.OTLPEndpoint != "" {
		m, mp, err := metrics.Init(context.Background(), cfg.OTLPEndpoint, "ec-api")
		if err != nil {
			logger.Fatal().Err(err).Msg("metrics init failed")
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mp.Shutdown(shutdownCtx)
		}()
		appMetrics = m
		logger.Info().Str("endpoint", cfg.OTLPEndpoint).Msg("metrics enabled")
	}

	//決済（Stripe）。キー未設定ならintent作成は503
	var gateway usecase.PaymentGateway
	if cfg.StripeSecretKey != "" {
		gateway = infraPayment.NewStripeGateway(cfg.StripeSecretKey)
	}

	//画像（Cloudinary）。URL未設定ならアップロードは503
	var uploader usecase.ImageUploader
	if cfg.CloudinaryURL != "" {
		up, err := image.NewCloudinaryUploader(cfg.CloudinaryURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("cloudinary init failed")
		}
		uploader = up
	}

	//usecaseに渡す部品
	clock := &realClock{}
	hasher := auth.NewBcryptPasswordHasher(12)
	verifier := auth.NewBcryptPasswordVerifier()
	issuer := &jwtIssuer{
		secret:    []byte(cfg.JWTSecret),
		accessTTL: 15 * time.Minute,
	}

	//Usecase生成
	registerUC := auth.NewRegisterUserUsecase(userRepo, hasher, issuer, clock)
	loginUC := auth.NewLoginUsecase(userRepo, verifier, issuer, clock)
	meUC := auth.NewMeUsecase(userRepo)
	productUC := usecase.NewProductUsecase(productRepo, inventoryRepo, auditRepo, uploader)
	cartUC := usecase.NewCartUsecase(txManager, guestStore, appMetrics)
	guestCartUC := usecase.NewGuestCartUsecase(guestStore, productRepo)
	orderUC := usecase.NewOrderUsecase(txManager, addressRepo, publisher, appMetrics)
	adminOrderUC := usecase.NewAdminOrderUsecase(txManager, auditRepo, publisher)
	reviewUC := usecase.NewReviewUsecase(txManager, auditRepo, appMetrics)
	paymentUC := usecase.NewPaymentUsecase(txManager, paymentRepo, orderRepo, gateway, appMetrics)
	addressUC := usecase.NewAddressUsecase(addressRepo)

	//Handler生成
	handlers := server.Handlers{
		Auth:         handler.NewAuthHandler(registerUC, loginUC, meUC),
		Product:      handler.NewProductHandler(productUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
		Cart:         handler.NewCartHandler(cartUC, guestCartUC),
		Order:        handler.NewOrderHandler(orderUC),
		AdminOrder:   handler.NewAdminOrderHandler(adminOrderUC),
		Review:       handler.NewReviewHandler(reviewUC),
		Payment:      handler.NewPaymentHandler(paymentUC),
		Address:      handler.NewAddressHandler(addressUC),
	}

	//Server起動
	logger.Info().Str("port", cfg.Port).Msg("starting server")
	if err := server.Start(cfg, handlers); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
