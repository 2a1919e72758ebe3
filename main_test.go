package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"paper-radar/models"
	"paper-radar/services"
)

func newPaperRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Paper{}, &models.PaperDocument{}, &models.UserKeyword{}))

	log := zap.NewNop()
	keywords := services.NewKeywordService(db, log)
	registration := services.NewRegistrationService(db, nil, nil, nil, nil, keywords, log)

	router := gin.New()
	setupPaperRoutes(router, db, registration, keywords, log)
	return router, db
}

func TestShareToggle(t *testing.T) {
	router, db := newPaperRouter(t)
	require.NoError(t, db.Create(&models.Paper{PaperID: "2306.02437"}).Error)

	do := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, "/api/papers/2306.02437/share", strings.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	reload := func() models.Paper {
		var p models.Paper
		require.NoError(t, db.Where("paper_id = ?", "2306.02437").First(&p).Error)
		return p
	}

	t.Run("malformed body is rejected", func(t *testing.T) {
		w := do(`{"shared_by":`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.False(t, reload().IsShared)
	})

	t.Run("share records the sharer", func(t *testing.T) {
		w := do(`{"shared_by":"june"}`)
		require.Equal(t, http.StatusOK, w.Code)
		p := reload()
		require.True(t, p.IsShared)
		require.Equal(t, "june", p.SharedBy)
		require.NotNil(t, p.SharedAt)
	})

	t.Run("unshare needs no body", func(t *testing.T) {
		w := do("")
		require.Equal(t, http.StatusOK, w.Code)
		p := reload()
		require.False(t, p.IsShared)
		require.Equal(t, "", p.SharedBy)
		require.Nil(t, p.SharedAt)
	})

	t.Run("unknown paper is 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPatch, "/api/papers/9999.00000/share", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}
