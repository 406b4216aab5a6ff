package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/fsdevblog/festwallet/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const (
	DefaultServiceTimeout = 3 * time.Second
)

const (
	HealthRoute  = "/health"
	MetricsRoute = "/metrics"

	RouteGroup          = "/api"
	OperatorTokenRoute  = "/operator/token"
	ParticipantsRoute   = "/participants"
	ParticipantRoute    = "/participants/:id"
	CardRoute           = "/cards/:card"
	TransactionsRoute   = "/transactions"
	TransactionRoute    = "/transactions/:id"
	PurchasesRoute      = "/purchases"
	BoothsRoute         = "/booths"
	BoothRoute          = "/booths/:name"
	ProductsRoute       = "/products"
	ProductRoute        = "/products/:id"
	SyncStatusRoute     = "/sync/status"
	SyncServerRoute     = "/sync/server"
	SyncConnectRoute    = "/sync/connect"
	SyncDisconnectRoute = "/sync/disconnect"
)

type RouterArgs struct {
	Logger       *logrus.Logger
	Ledger       LedgerServicer
	Sync         SyncServicer
	JWTSecretKey []byte
}

func New(args RouterArgs) (*gin.Engine, error) {
	if err := registerValidators(); err != nil {
		return nil, fmt.Errorf("api router: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if args.Logger != nil {
		r.Use(middlewares.Logger(args.Logger))
	}
	r.Use(middlewares.Errors())

	operatorHandler := NewOperatorHandler(args.JWTSecretKey)
	participantsHandler := NewParticipantsHandler(args.Ledger)
	transactionsHandler := NewTransactionsHandler(args.Ledger)
	catalogHandler := NewCatalogHandler(args.Ledger)
	syncHandler := NewSyncHandler(args.Sync)

	r.GET(HealthRoute, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET(MetricsRoute, gin.WrapH(promhttp.Handler()))

	api := r.Group(RouteGroup)

	api.POST(OperatorTokenRoute, operatorHandler.Token)

	api.GET(ParticipantsRoute, participantsHandler.Index)
	api.GET(ParticipantRoute, participantsHandler.Show)
	api.GET(CardRoute, participantsHandler.ByCard)
	api.GET(TransactionsRoute, transactionsHandler.Index)
	api.GET(TransactionRoute, transactionsHandler.Show)
	api.GET(BoothsRoute, catalogHandler.Booths)
	api.GET(BoothRoute, catalogHandler.ShowBooth)
	api.GET(ProductsRoute, catalogHandler.Products)
	api.GET(SyncStatusRoute, syncHandler.Status)

	api.Use(middlewares.OperatorRequired(args.JWTSecretKey))
	// ниже все роуты группы требуют токен оператора.
	api.POST(ParticipantsRoute, participantsHandler.Register)
	api.PATCH(ParticipantRoute, participantsHandler.Update)
	api.DELETE(ParticipantRoute, participantsHandler.Delete)

	api.POST(TransactionsRoute, transactionsHandler.Apply)
	api.POST(PurchasesRoute, transactionsHandler.Purchase)

	api.POST(BoothsRoute, catalogHandler.CreateBooth)
	api.PATCH(BoothRoute, catalogHandler.SetBoothActive)
	api.DELETE(BoothRoute, catalogHandler.DeleteBooth)
	api.POST(ProductsRoute, catalogHandler.CreateProduct)
	api.PATCH(ProductRoute, catalogHandler.SetProductActive)
	api.DELETE(ProductRoute, catalogHandler.DeleteProduct)

	api.POST(SyncServerRoute, syncHandler.Serve)
	api.POST(SyncConnectRoute, syncHandler.Connect)
	api.POST(SyncDisconnectRoute, syncHandler.Disconnect)
	return r, nil
}
