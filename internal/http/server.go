package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"finagent-go/internal/ai"
	"finagent-go/internal/auth"
	"finagent-go/internal/board"
	"finagent-go/internal/catalog"
	"finagent-go/internal/config"
	"finagent-go/internal/feed"
	"finagent-go/internal/ledger"
	"finagent-go/internal/users"
)

// Deps are the services the API is built on.
type Deps struct {
	Catalog     *catalog.Catalog
	Reconciler  *feed.Reconciler
	Ledger      *ledger.Service
	Recommender *ai.Recommender
	Auth        *auth.Service
	Users       *users.Service
	Board       *board.Store
	Logger      *slog.Logger
}

type Server struct {
	cfg *config.Config
	Deps
	log *slog.Logger
}

func NewServer(cfg *config.Config, deps Deps) *gin.Engine {
	s := &Server{cfg: cfg, Deps: deps, log: deps.Logger.With("component", "http")}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors(cfg))
	r.Use(requestLogger(s.log))

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	r.POST("/auth/register", s.authRegister)
	r.POST("/auth/login", s.authLogin)

	// Catalog (public)
	r.GET("/products/savings", s.listSavings)
	r.GET("/products/savings/:code", s.getSavings)
	r.GET("/products/loan/rent", s.listLoans)
	r.GET("/articles", s.listArticles)
	r.GET("/articles/:id", s.getArticle)

	// Feed reconciliation and catalog maintenance
	admin := r.Group("/products")
	admin.Use(adminOnly(cfg.AdminBearer))
	{
		admin.GET("/save-deposit", s.syncKind(feed.KindDeposit))
		admin.GET("/save-saving", s.syncKind(feed.KindSaving))
		admin.GET("/save-loan", s.syncKind(feed.KindLoan))
		admin.GET("/sync-all", s.syncAll)
		admin.DELETE("/savings/:code", s.deleteSavings)
		admin.DELETE("/loan/rent/:code", s.deleteLoan)
	}

	// Protected Routes (User Token)
	authorized := r.Group("/")
	authorized.Use(AuthMiddleware(s.Auth))
	{
		authorized.POST("/products/:code/join", s.joinProduct)
		authorized.GET("/products/joined", s.listJoined)
		authorized.PUT("/products/joined/:id", s.updateJoined)
		authorized.DELETE("/products/joined/:id", s.cancelJoined)
		authorized.POST("/products/recommend", s.recommend)

		authorized.GET("/profile", s.getProfile)
		authorized.PUT("/profile", s.updateProfile)

		authorized.POST("/articles", s.createArticle)
		authorized.PUT("/articles/:id", s.updateArticle)
		authorized.DELETE("/articles/:id", s.deleteArticle)
	}
	return r
}
