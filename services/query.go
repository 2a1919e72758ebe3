package services

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"paper-radar/models"
)

// CategoryNone filters for papers whose matched-keyword cache is empty.
const CategoryNone = "none"

// PaperQuery translates the dashboard's filter selections into a store query.
// Zero values mean "no filter"; HideNotInterested defaults to true and is
// overridden when NotInterested is set explicitly.
type PaperQuery struct {
	Stage             *int
	Favorite          *bool
	NotInterested     *bool
	HideNotInterested bool
	Shared            *bool
	Keyword           string // substring match on title
	Category          string // keyword category, or CategoryNone
	RegisteredBy      string
	SortBy            string
	Order             string
	Skip              int
	Limit             int
}

// likeEscaper neutralizes LIKE wildcards inside a keyword so "a_b" does not
// match "aXb" in the cached-match filter.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

var sortColumns = map[string]string{
	"created_at":     "created_at",
	"updated_at":     "updated_at",
	"arxiv_date":     "arxiv_date",
	"citation_count": "citation_count",
	"title":          "title",
}

// Find runs the query and returns the page plus the total match count.
// categoryKeywords must hold the keywords of the selected category when
// Category names one; the caller resolves them through the KeywordService.
func (q PaperQuery) Find(db *gorm.DB, categoryKeywords []string) ([]models.Paper, int64, error) {
	query := db.Model(&models.Paper{})

	if q.Stage != nil {
		query = query.Where("search_stage = ?", *q.Stage)
	}
	if q.Favorite != nil {
		query = query.Where("is_favorite = ?", *q.Favorite)
	}
	if q.NotInterested != nil {
		query = query.Where("is_not_interested = ?", *q.NotInterested)
	} else if q.HideNotInterested {
		query = query.Where("is_not_interested = ?", false)
	}
	if q.Shared != nil {
		query = query.Where("is_shared = ?", *q.Shared)
	}
	if q.Keyword != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(q.Keyword)+"%")
	}
	if q.RegisteredBy != "" {
		query = query.Where("registered_by = ?", q.RegisteredBy)
	}

	switch {
	case q.Category == CategoryNone:
		query = query.Where("matched_keywords IS NULL OR CAST(matched_keywords AS TEXT) IN ('', 'null', '[]')")
	case q.Category != "":
		if len(categoryKeywords) == 0 {
			// A category with no keywords can match nothing.
			query = query.Where("1 = 0")
		} else {
			var conditions []string
			var args []interface{}
			for _, kw := range categoryKeywords {
				conditions = append(conditions, `CAST(matched_keywords AS TEXT) LIKE ? ESCAPE '\'`)
				args = append(args, fmt.Sprintf(`%%"%s"%%`, likeEscaper.Replace(kw)))
			}
			query = query.Where(strings.Join(conditions, " OR "), args...)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := sortColumns[q.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(q.Order, "asc") {
		direction = "ASC"
	}
	query = query.Order(column + " " + direction)

	if q.Skip > 0 {
		query = query.Offset(q.Skip)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	} else if limit > 500 {
		limit = 500
	}
	query = query.Limit(limit)

	var papers []models.Paper
	if err := query.Find(&papers).Error; err != nil {
		return nil, 0, err
	}
	return papers, total, nil
}
