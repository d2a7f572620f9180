package bootstrap

import (
	"database/sql"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/atelierline/agency-backend/internal/api/http"
	"github.com/atelierline/agency-backend/internal/api/http/middleware"
	"github.com/atelierline/agency-backend/internal/auth"
	"github.com/atelierline/agency-backend/internal/campaigns"
	campaignshttp "github.com/atelierline/agency-backend/internal/campaigns/http"
	"github.com/atelierline/agency-backend/internal/contacts"
	"github.com/atelierline/agency-backend/internal/notifications"
	notifhttp "github.com/atelierline/agency-backend/internal/notifications/http"
	"github.com/atelierline/agency-backend/internal/projects"
	"github.com/atelierline/agency-backend/internal/workflow"
	workflowhttp "github.com/atelierline/agency-backend/internal/workflow/http"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	DB          *pgxpool.Pool
	SQLDB       *sql.DB
	Redis       *redis.Client
	AuthClient  *fbauth.Client

	CampaignService *campaigns.Service
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id", "X-User-Id"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB, dep.Redis)
	healthHandler.RegisterRoutes(r)

	contactRepo := contacts.NewRepo(dep.SQLDB)
	projectRepo := projects.NewRepo(dep.DB)
	notifRepo := notifications.NewRepo(dep.DB)
	fanout := notifications.NewFanout(notifRepo)

	workflowSvc := workflow.NewService(projectRepo, fanout, contactRepo)

	api := r.Group("/api/v1")
	api.Use(middleware.RequestIDMiddleware())
	api.Use(auth.WithActor(dep.AuthClient, contactRepo))

	workflowhttp.New(workflowSvc).Register(api.Group("/projects"))
	notifhttp.New(notifRepo).Register(api.Group("/notifications"))
	if dep.CampaignService != nil {
		campaignshttp.New(dep.CampaignService).Register(api.Group("/campaigns"))
	}

	return r
}
