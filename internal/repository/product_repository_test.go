// internal/repository/product_repository_test.go
package repository

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/javajoker/verdict-cms/internal/models"
	"github.com/javajoker/verdict-cms/internal/utils"
)

// dryRunDB builds statements without ever opening a connection.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=verdict dbname=verdict_cms sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return db
}

func TestApplyProductFilter(t *testing.T) {
	db := dryRunDB(t)
	status := models.ProductStatusPublished
	verdict := models.VerdictFlagged

	f := ProductFilter{
		PaginationParams: utils.PaginationParams{Search: "Soap"},
		Status:           &status,
		Verdict:          &verdict,
	}

	stmt := ApplyProductFilter(db.Model(&models.Product{}), f).Find(&[]models.Product{}).Statement
	sql := stmt.SQL.String()

	assert.Contains(t, sql, "status = $1")
	assert.Contains(t, sql, "verdict = $2")
	assert.Contains(t, sql, "LOWER(title) LIKE $3 OR LOWER(summary) LIKE $4")
	assert.Contains(t, sql, `"products"."deleted_at" IS NULL`)
	require.Len(t, stmt.Vars, 4)
	assert.Equal(t, "%soap%", stmt.Vars[2])
}

func TestApplyProductFilterConflictsAndRelations(t *testing.T) {
	db := dryRunDB(t)
	category := uuid.New()
	open := true

	stmt := ApplyProductFilter(db.Model(&models.Product{}), ProductFilter{CategoryID: &category, HasConflicts: &open}).
		Find(&[]models.Product{}).Statement
	sql := stmt.SQL.String()

	assert.Contains(t, sql, "category_id = $1")
	assert.Contains(t, sql, "jsonb_array_length(conflicts->'items') > 0")
	assert.NotContains(t, sql, "status =")
}

func TestNotFoundMapping(t *testing.T) {
	assert.ErrorIs(t, notFound(gorm.ErrRecordNotFound), ErrNotFound)
	assert.ErrorIs(t, notFound(assert.AnError), assert.AnError)
}
