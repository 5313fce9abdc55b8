// Package middleware holds the gin middleware of the dashboard API
package middleware

import (
	"net/http"

	"sheetlens/internal/errors"
	"sheetlens/internal/workbench"

	"github.com/gin-gonic/gin"
)

// DatasetKey is the context key the loaded dataset is stored under
const DatasetKey = "dataset"

// RequireDataset resolves the :id path parameter to an uploaded dataset and
// aborts with 400 or 404 when it cannot.
func RequireDataset(store *workbench.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := workbench.ParseID(c.Param("id"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		dataset, err := store.Get(id)
		if err != nil {
			c.AbortWithStatusJSON(StatusFor(err), gin.H{"error": err.Error()})
			return
		}

		c.Set(DatasetKey, dataset)
		c.Next()
	}
}

// Dataset returns the dataset set by RequireDataset
func Dataset(c *gin.Context) *workbench.Dataset {
	return c.MustGet(DatasetKey).(*workbench.Dataset)
}

// StatusFor maps an application error code to an HTTP status
func StatusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeConfigInvalid:
		return http.StatusServiceUnavailable
	case errors.CodeExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
