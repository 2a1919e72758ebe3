package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"paper-radar/config"
	"paper-radar/models"
	"paper-radar/providers/ar5iv"
	"paper-radar/providers/arxiv"
	"paper-radar/providers/huggingface"
	"paper-radar/providers/openalex"
	"paper-radar/providers/semanticscholar"
	"paper-radar/services"
)

var (
	papersRegisteredCounter prometheus.Counter
	stageRunsCounter        *prometheus.CounterVec
)

func init() {
	papersRegisteredCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "papers_registered_total",
			Help: "Total number of papers registered.",
		})
	stageRunsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stage_runs_total",
			Help: "Total number of analysis stage runs by stage and outcome.",
		},
		[]string{"stage", "outcome"})
	prometheus.MustRegister(papersRegisteredCounter, stageRunsCounter)
}

// adminAuthMiddleware guards the admin-only routes with the X-Admin-Password
// header the dashboard sends after the admin modal.
func adminAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-Admin-Password") != cfg.AdminPassword {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin authentication required"})
			return
		}
		c.Next()
	}
}

// serviceError maps the services error taxonomy onto HTTP responses.
func serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrJobInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrStagePrecondition):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrDuplicate):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrUpstream):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to database.")

	logging.Info("Running database auto-migration...")
	if err := db.AutoMigrate(
		&models.Paper{},
		&models.PaperDocument{},
		&models.UserKeyword{},
		&models.User{},
		&models.AccessLog{},
	); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}

	// Providers
	arxivFetcher := arxiv.NewFetcher(cfg, logging)
	semanticFetcher := semanticscholar.NewFetcher(cfg, logging)
	openalexFetcher := openalex.NewFetcher(cfg, logging)
	ar5ivFetcher := ar5iv.NewFetcher(cfg, logging)
	hfFetcher := huggingface.NewFetcher(cfg, logging)

	// Services
	keywordService := services.NewKeywordService(db, logging)
	registrationService := services.NewRegistrationService(
		db, arxivFetcher, semanticFetcher, openalexFetcher, ar5ivFetcher, keywordService, logging)
	summarizer := services.NewCLISummarizer(cfg, logging)
	analysisService := services.NewAnalysisService(db, arxivFetcher, summarizer, logging)

	// Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.CORSOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Admin-Password"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	setupPaperRoutes(router, db, registrationService, keywordService, logging)
	setupRegistrationRoutes(router, registrationService, logging)
	setupSearchRoutes(router, analysisService, semanticFetcher, registrationService, logging)
	setupKeywordRoutes(router, db, keywordService, logging)
	setupTrendingRoutes(router, hfFetcher, logging)
	setupAccessLogRoutes(router, db, cfg, logging)

	// Nightly citation refresh
	if cfg.CitationRefreshEnabled {
		cronScheduler := cron.New()
		_, err := cronScheduler.AddFunc(cfg.CitationRefreshSchedule, func() {
			logging.Info("Running scheduled citation refresh...")
			count, err := registrationService.RefreshAllCitationCounts()
			if err != nil {
				logging.Error("Citation refresh failed", zap.Error(err))
				return
			}
			logging.Info("Citation refresh done", zap.Int("updated", count))
		})
		if err != nil {
			logging.Fatal("Invalid citation refresh schedule", zap.Error(err))
		}
		cronScheduler.Start()
	}

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func setupPaperRoutes(router *gin.Engine, db *gorm.DB, registration *services.RegistrationService,
	keywords *services.KeywordService, log *zap.Logger) {
	rg := router.Group("/api/papers")

	rg.GET("", func(c *gin.Context) {
		q := services.PaperQuery{
			Keyword:           c.Query("keyword"),
			Category:          c.Query("category"),
			RegisteredBy:      c.Query("registered_by"),
			SortBy:            c.DefaultQuery("sort_by", "created_at"),
			Order:             c.DefaultQuery("order", "desc"),
			HideNotInterested: c.DefaultQuery("hide_not_interested", "true") == "true",
		}
		if v := c.Query("stage"); v != "" {
			stage, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stage"})
				return
			}
			q.Stage = &stage
		}
		for param, dst := range map[string]**bool{
			"favorite":       &q.Favorite,
			"not_interested": &q.NotInterested,
			"shared":         &q.Shared,
		} {
			if v := c.Query(param); v != "" {
				b := v == "true"
				*dst = &b
			}
		}
		q.Skip, _ = strconv.Atoi(c.DefaultQuery("skip", "0"))
		q.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))

		var categoryKeywords []string
		if q.Category != "" && q.Category != services.CategoryNone {
			var err error
			categoryKeywords, err = keywords.KeywordsInCategory(q.Category)
			if err != nil {
				log.Error("Category keyword lookup failed", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
				return
			}
		}

		papers, total, err := q.Find(db, categoryKeywords)
		if err != nil {
			log.Error("Paper query failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"papers": papers, "total": total})
	})

	rg.GET("/:paper_id", func(c *gin.Context) {
		paperID := c.Param("paper_id")
		var paper models.Paper
		if err := db.Where("paper_id = ?", paperID).First(&paper).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "paper not found"})
				return
			}
			log.Error("Paper lookup failed", zap.String("paper_id", paperID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		var doc models.PaperDocument
		db.Where("paper_id = ?", paperID).First(&doc)

		c.JSON(http.StatusOK, gin.H{
			"paper":    paper,
			"document": doc,
		})
	})

	// Per-flag toggle endpoints; each flips its flag and returns the row.
	toggle := func(flip func(*models.Paper) map[string]interface{}) gin.HandlerFunc {
		return func(c *gin.Context) {
			paperID := c.Param("paper_id")
			var paper models.Paper
			if err := db.Where("paper_id = ?", paperID).First(&paper).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					c.JSON(http.StatusNotFound, gin.H{"error": "paper not found"})
					return
				}
				c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
				return
			}
			updates := flip(&paper)
			if err := db.Model(&paper).Updates(updates).Error; err != nil {
				log.Error("Paper toggle failed", zap.String("paper_id", paperID), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
				return
			}
			c.JSON(http.StatusOK, paper)
		}
	}

	rg.PATCH("/:paper_id/favorite", toggle(func(p *models.Paper) map[string]interface{} {
		p.IsFavorite = !p.IsFavorite
		return map[string]interface{}{"is_favorite": p.IsFavorite}
	}))

	rg.PATCH("/:paper_id/not-interested", toggle(func(p *models.Paper) map[string]interface{} {
		p.IsNotInterested = !p.IsNotInterested
		return map[string]interface{}{"is_not_interested": p.IsNotInterested}
	}))

	rg.PATCH("/:paper_id/share", func(c *gin.Context) {
		paperID := c.Param("paper_id")
		var paper models.Paper
		if err := db.Where("paper_id = ?", paperID).First(&paper).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "paper not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		// Unsharing takes no body; sharing takes an optional sharer name.
		var req struct {
			SharedBy string `json:"shared_by"`
		}
		if !paper.IsShared && c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
				return
			}
		}

		updates := map[string]interface{}{}
		if paper.IsShared {
			paper.IsShared = false
			paper.SharedBy = ""
			paper.SharedAt = nil
			updates["is_shared"] = false
			updates["shared_by"] = ""
			updates["shared_at"] = nil
		} else {
			now := time.Now().UTC()
			paper.IsShared = true
			paper.SharedBy = req.SharedBy
			paper.SharedAt = &now
			updates["is_shared"] = true
			updates["shared_by"] = req.SharedBy
			updates["shared_at"] = now
		}
		if err := db.Model(&paper).Updates(updates).Error; err != nil {
			log.Error("Share toggle failed", zap.String("paper_id", paperID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, paper)
	})

	rg.PATCH("/:paper_id/update-citation", func(c *gin.Context) {
		paper, err := registration.UpdateCitationCount(c.Param("paper_id"))
		if err != nil {
			serviceError(c, err)
			return
		}
		c.JSON(http.StatusOK, paper)
	})

	rg.DELETE("/:paper_id", func(c *gin.Context) {
		paperID := c.Param("paper_id")
		var paper models.Paper
		if err := db.Where("paper_id = ?", paperID).First(&paper).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "paper not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("paper_id = ?", paperID).Delete(&models.PaperDocument{}).Error; err != nil {
				return err
			}
			return tx.Delete(&paper).Error
		})
		if err != nil {
			log.Error("Paper delete failed", zap.String("paper_id", paperID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "paper deleted"})
	})

	// Bulk flag operations on a list of paper IDs.
	type bulkRequest struct {
		PaperIDs []string `json:"paper_ids" binding:"required"`
	}

	bulkUpdate := func(updates map[string]interface{}) gin.HandlerFunc {
		return func(c *gin.Context) {
			var req bulkRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
				return
			}
			res := db.Model(&models.Paper{}).
				Where("paper_id IN ?", req.PaperIDs).
				Updates(updates)
			if res.Error != nil {
				log.Error("Bulk paper update failed", zap.Error(res.Error))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"count": res.RowsAffected})
		}
	}

	rg.POST("/bulk-hide", bulkUpdate(map[string]interface{}{"is_not_interested": true}))
	rg.POST("/bulk-restore", bulkUpdate(map[string]interface{}{"is_not_interested": false}))

	rg.POST("/bulk-delete", func(c *gin.Context) {
		var req bulkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		var count int64
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("paper_id IN ?", req.PaperIDs).Delete(&models.PaperDocument{}).Error; err != nil {
				return err
			}
			res := tx.Where("paper_id IN ?", req.PaperIDs).Delete(&models.Paper{})
			count = res.RowsAffected
			return res.Error
		})
		if err != nil {
			log.Error("Bulk paper delete failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": count})
	})
}

func setupRegistrationRoutes(router *gin.Engine, registration *services.RegistrationService, log *zap.Logger) {
	rg := router.Group("/api/register")

	rg.POST("/new", func(c *gin.Context) {
		var req struct {
			PaperID      string `json:"paper_id" binding:"required"`
			RegisteredBy string `json:"registered_by"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		paper, created, err := registration.RegisterNew(req.PaperID, req.RegisteredBy)
		if err != nil {
			serviceError(c, err)
			return
		}
		if created {
			papersRegisteredCounter.Inc()
			c.JSON(http.StatusCreated, paper)
			return
		}
		c.JSON(http.StatusOK, paper)
	})

	rg.POST("/citations", func(c *gin.Context) {
		var req struct {
			PaperID      string `json:"paper_id" binding:"required"`
			Limit        int    `json:"limit"`
			RegisteredBy string `json:"registered_by"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		papers, err := registration.RegisterCitingPapers(req.PaperID, req.Limit, req.RegisteredBy)
		if err != nil {
			serviceError(c, err)
			return
		}
		papersRegisteredCounter.Add(float64(len(papers)))
		c.JSON(http.StatusOK, papers)
	})

	rg.POST("/bulk", func(c *gin.Context) {
		var req struct {
			Papers       []services.BulkItem `json:"papers" binding:"required"`
			RegisteredBy string              `json:"registered_by"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		result, err := registration.RegisterBulk(req.Papers, req.RegisteredBy)
		if err != nil {
			log.Error("Bulk registration failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		papersRegisteredCounter.Add(float64(len(result.Registered)))
		c.JSON(http.StatusOK, result)
	})
}

func setupSearchRoutes(router *gin.Engine, analysis *services.AnalysisService,
	semantic *semanticscholar.Fetcher, registration *services.RegistrationService, log *zap.Logger) {
	rg := router.Group("/api/search")

	// Stage runs return 202 with a snapshot; the dashboard polls
	// analysis_status on the paper list until the flag clears.
	rg.POST("/simple/:paper_id", func(c *gin.Context) {
		paperID := c.Param("paper_id")
		paper, err := analysis.StartStage2(paperID)
		if err != nil {
			serviceError(c, err)
			return
		}
		go func() {
			outcome := "success"
			if err := analysis.RunStage2(context.Background(), paperID); err != nil {
				outcome = "failure"
			}
			stageRunsCounter.WithLabelValues("2", outcome).Inc()
		}()
		c.JSON(http.StatusAccepted, paper)
	})

	rg.POST("/deep/:paper_id", func(c *gin.Context) {
		paperID := c.Param("paper_id")
		paper, err := analysis.StartStage3(paperID)
		if err != nil {
			serviceError(c, err)
			return
		}
		go func() {
			outcome := "success"
			if err := analysis.RunStage3(context.Background(), paperID); err != nil {
				outcome = "failure"
			}
			stageRunsCounter.WithLabelValues("3", outcome).Inc()
		}()
		c.JSON(http.StatusAccepted, paper)
	})

	preview := func(c *gin.Context, candidates []semanticscholar.Candidate, query string, err error) {
		if err != nil {
			log.Error("Preview search failed", zap.String("query", query), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "upstream search failed"})
			return
		}
		papers, err := registration.MarkCandidates(candidates)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"papers": papers,
			"total":  len(papers),
			"query":  query,
		})
	}

	rg.GET("/topic", func(c *gin.Context) {
		query := c.Query("query")
		if len(query) < 2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "query must be at least 2 characters"})
			return
		}
		limit, yearFrom := previewParams(c)
		sort := c.DefaultQuery("sort", semanticscholar.SortPublicationDate)
		candidates, err := semantic.SearchByTopic(query, limit, sort, yearFrom)
		preview(c, candidates, query, err)
	})

	rg.GET("/citations-preview", func(c *gin.Context) {
		paperID := c.Query("paper_id")
		if paperID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "paper_id is required"})
			return
		}
		limit, yearFrom := previewParams(c)
		sort := c.DefaultQuery("sort", semanticscholar.SortCitationCount)
		candidates, err := semantic.GetCitingPapers(paperID, limit, sort, yearFrom)
		preview(c, candidates, "Citations of "+paperID, err)
	})
}

func previewParams(c *gin.Context) (limit, yearFrom int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 100 {
		limit = 50
	}
	yearFrom, _ = strconv.Atoi(c.Query("year_from"))
	return limit, yearFrom
}

func setupKeywordRoutes(router *gin.Engine, db *gorm.DB, keywords *services.KeywordService, log *zap.Logger) {
	rg := router.Group("/api/keywords")

	listCategories := func() ([]string, error) {
		var categories []string
		err := db.Model(&models.UserKeyword{}).
			Distinct("category").
			Where("category <> ''").
			Order("category").
			Pluck("category", &categories).Error
		return categories, err
	}

	rg.GET("/categories", func(c *gin.Context) {
		categories, err := listCategories()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, categories)
	})

	rg.GET("", func(c *gin.Context) {
		var list []models.UserKeyword
		if err := db.Order("category, keyword").Find(&list).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		categories, err := listCategories()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"keywords":   list,
			"total":      len(list),
			"categories": categories,
		})
	})

	type keywordRequest struct {
		Keyword  string `json:"keyword" binding:"required"`
		Category string `json:"category"`
		Color    string `json:"color"`
	}

	// Duplicate check: same keyword (case-insensitive) within the same
	// category. excludeID skips the row being updated.
	duplicateExists := func(keyword, category string, excludeID uint) (bool, error) {
		var count int64
		query := db.Model(&models.UserKeyword{}).
			Where("LOWER(keyword) = ? AND category = ?", strings.ToLower(keyword), category)
		if excludeID != 0 {
			query = query.Where("id <> ?", excludeID)
		}
		err := query.Count(&count).Error
		return count > 0, err
	}

	recompute := func() {
		count, err := keywords.BatchRecomputeAll()
		if err != nil {
			log.Error("Keyword recompute failed", zap.Error(err))
			return
		}
		log.Info("Keyword matches recomputed", zap.Int("papers_updated", count))
	}

	rg.POST("", func(c *gin.Context) {
		var req keywordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		req.Keyword = strings.TrimSpace(req.Keyword)
		req.Category = strings.TrimSpace(req.Category)

		dup, err := duplicateExists(req.Keyword, req.Category, 0)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if dup {
			c.JSON(http.StatusBadRequest, gin.H{"error": "keyword already exists in this category"})
			return
		}

		kw := models.UserKeyword{Keyword: req.Keyword, Category: req.Category}
		if req.Color != "" {
			kw.Color = req.Color
		}
		if err := db.Create(&kw).Error; err != nil {
			log.Error("Keyword create failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		recompute()
		c.JSON(http.StatusCreated, kw)
	})

	rg.PATCH("/:id", func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid keyword id"})
			return
		}
		var kw models.UserKeyword
		if err := db.First(&kw, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "keyword not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		var req keywordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		req.Keyword = strings.TrimSpace(req.Keyword)
		req.Category = strings.TrimSpace(req.Category)

		dup, err := duplicateExists(req.Keyword, req.Category, kw.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if dup {
			c.JSON(http.StatusBadRequest, gin.H{"error": "keyword already exists in this category"})
			return
		}

		updates := map[string]interface{}{
			"keyword":  req.Keyword,
			"category": req.Category,
		}
		if req.Color != "" {
			updates["color"] = req.Color
		}
		if err := db.Model(&kw).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		recompute()
		c.JSON(http.StatusOK, kw)
	})

	rg.DELETE("/:id", func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid keyword id"})
			return
		}
		var kw models.UserKeyword
		if err := db.First(&kw, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "keyword not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if err := db.Delete(&kw).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		recompute()
		c.JSON(http.StatusOK, gin.H{"message": "keyword deleted"})
	})

	rg.POST("/batch-update", func(c *gin.Context) {
		count, err := keywords.BatchRecomputeAll()
		if err != nil {
			log.Error("Keyword recompute failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": count})
	})
}

func setupTrendingRoutes(router *gin.Engine, hf *huggingface.Fetcher, log *zap.Logger) {
	rg := router.Group("/api/trending")

	rg.GET("/daily", func(c *gin.Context) {
		target := time.Now().UTC()
		if v := c.Query("date"); v != "" {
			parsed, err := time.Parse("2006-01-02", v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
				return
			}
			target = parsed
		}
		period := huggingface.Period(c.DefaultQuery("period", string(huggingface.PeriodDay)))
		switch period {
		case huggingface.PeriodDay, huggingface.PeriodWeek, huggingface.PeriodMonth:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period, expected day, week or month"})
			return
		}

		papers, err := hf.GetDailyPapers(target, period)
		if err != nil {
			log.Error("Trending fetch failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "trending feed unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"papers": papers,
			"date":   target.Format("2006-01-02"),
			"total":  len(papers),
			"period": period,
		})
	})
}

func setupAccessLogRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, log *zap.Logger) {
	rg := router.Group("/api/access-logs")
	admin := rg.Group("", adminAuthMiddleware(cfg))

	rg.POST("/verify-admin", func(c *gin.Context) {
		var req struct {
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if req.Password != cfg.AdminPassword {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong password"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	rg.POST("/login", func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		// Auto-register unknown users on first login.
		var user models.User
		err := db.Where("username = ?", req.Username).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = models.User{Username: req.Username}
			if err := db.Create(&user).Error; err != nil {
				log.Error("User auto-register failed", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
				return
			}
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		entry := models.AccessLog{
			Username:  req.Username,
			IPAddress: c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
		}
		if err := db.Create(&entry).Error; err != nil {
			log.Error("Access log write failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"username":   entry.Username,
			"login_time": entry.LoginTime,
		})
	})

	admin.GET("/logs", func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		query := db.Model(&models.AccessLog{})
		if username := c.Query("username"); username != "" {
			query = query.Where("username = ?", username)
		}
		var logs []models.AccessLog
		if err := query.Order("login_time desc").Limit(limit).Find(&logs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, logs)
	})

	admin.DELETE("/logs/:id", func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid log id"})
			return
		}
		res := db.Delete(&models.AccessLog{}, id)
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "log entry not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "log entry deleted"})
	})

	admin.POST("/logs/bulk-delete", func(c *gin.Context) {
		var req struct {
			IDs []uint `json:"ids" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		res := db.Delete(&models.AccessLog{}, req.IDs)
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": res.RowsAffected})
	})

	// Active usernames for the login modal, no auth.
	rg.GET("/users", func(c *gin.Context) {
		var usernames []string
		if err := db.Model(&models.User{}).
			Where("is_active = ?", true).
			Order("username").
			Pluck("username", &usernames).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, usernames)
	})

	admin.GET("/users/all", func(c *gin.Context) {
		var users []models.User
		if err := db.Order("created_at desc").Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, users)
	})

	rg.POST("/users", func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		var existing models.User
		err := db.Where("username = ?", req.Username).First(&existing).Error
		if err == nil {
			if existing.IsActive {
				c.JSON(http.StatusBadRequest, gin.H{"error": "user already exists"})
				return
			}
			if err := db.Model(&existing).Update("is_active", true).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
				return
			}
			existing.IsActive = true
			c.JSON(http.StatusOK, existing)
			return
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		user := models.User{Username: req.Username}
		if err := db.Create(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusCreated, user)
	})

	admin.DELETE("/users/:username", func(c *gin.Context) {
		username := c.Param("username")
		res := db.Model(&models.User{}).
			Where("username = ?", username).
			Update("is_active", false)
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "user deactivated"})
	})
}
