package web

import (
	"math"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"sheetlens/adapters/columnar"
	"sheetlens/internal/batch"
	"sheetlens/internal/errors"
	"sheetlens/internal/workbench"
	"sheetlens/models"
	"sheetlens/ui/middleware"

	"github.com/gin-gonic/gin"
)

// AnalyzeRequest is the body of POST /api/datasets/:id/analyze
type AnalyzeRequest struct {
	Instruction string `json:"instruction"`
	Model       string `json:"model"`
}

// ParquetRequest is the optional body of POST /api/datasets/:id/parquet
type ParquetRequest struct {
	Name string `json:"name"`
}

func (s *Server) setupAPI() {
	api := s.api.Group("/api")
	api.GET("/health", s.apiHealth)
	api.GET("/history", s.apiHistory)
	api.POST("/queries/stats", s.apiQueryStats)
	api.POST("/batches/:id/export", s.apiExportBatch)

	api.GET("/datasets", s.apiListDatasets)
	api.POST("/datasets", s.apiUploadDataset)

	datasets := api.Group("/datasets/:id", middleware.RequireDataset(s.store))
	datasets.GET("", s.apiGetDataset)
	datasets.GET("/preview", s.apiPreview)
	datasets.POST("/parquet", s.apiSaveParquet)
	datasets.POST("/analyze", s.apiAnalyze)
	datasets.POST("/batch", s.apiRunBatch)
}

func abortWithError(c *gin.Context, err error) {
	c.Error(err)
	c.AbortWithStatusJSON(middleware.StatusFor(err), gin.H{"error": err.Error()})
}

func (s *Server) apiHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"datasets": len(s.store.List()),
		"history":  s.history != nil,
	})
}

func (s *Server) apiListDatasets(c *gin.Context) {
	list := s.store.List()
	out := make([]gin.H, len(list))
	for i, d := range list {
		out[i] = gin.H{"dataset": d, "metrics": d.Metrics()}
	}
	c.JSON(http.StatusOK, gin.H{"datasets": out})
}

func (s *Server) apiUploadDataset(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		abortWithError(c, errors.InvalidInput("multipart field \"file\" is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		abortWithError(c, errors.Wrap(err, "failed to open upload"))
		return
	}
	defer file.Close()

	d, err := s.ingest(c.Request, file, header)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"dataset": d, "metrics": d.Metrics()})
}

func (s *Server) apiGetDataset(c *gin.Context) {
	d := middleware.Dataset(c)
	kinds := d.Table.Kinds()
	dtypes := make(map[string]string, len(kinds))
	for i, name := range d.Table.Columns() {
		dtypes[name] = kinds[i].String()
	}

	var last *models.BatchSummary
	if report := s.store.LatestBatch(d.ID); report != nil {
		last = &report.Summary
	}

	c.JSON(http.StatusOK, gin.H{
		"dataset":    d,
		"metrics":    d.Metrics(),
		"columns":    d.Table.Columns(),
		"dtypes":     dtypes,
		"structure":  d.Table.Structure(),
		"last_batch": last,
	})
}

func (s *Server) apiPreview(c *gin.Context) {
	d := middleware.Dataset(c)
	rows := 10
	if raw := c.Query("rows"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			abortWithError(c, errors.InvalidInput("rows must be a non-negative integer"))
			return
		}
		rows = n
	}
	c.JSON(http.StatusOK, NewPreview(d.Table, rows))
}

func (s *Server) apiSaveParquet(c *gin.Context) {
	d := middleware.Dataset(c)
	var req ParquetRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, errors.InvalidInput("invalid request body: "+err.Error()))
			return
		}
	}
	if strings.ContainsAny(req.Name, `/\`) {
		abortWithError(c, errors.InvalidInput("name must not contain path separators"))
		return
	}

	out, err := s.parquet.Save(d.Table, req.Name, d.Filename)
	if err != nil {
		abortWithError(c, err)
		return
	}
	info, err := columnar.Inspect(out)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

func (s *Server) apiAnalyze(c *gin.Context) {
	d := middleware.Dataset(c)
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return
	}
	if strings.TrimSpace(req.Instruction) == "" {
		abortWithError(c, errors.InvalidInput("instruction is required"))
		return
	}
	if req.Model == "" {
		req.Model = s.config.DefaultModel
	}

	result := s.analyst.Analyze(c.Request.Context(), strings.TrimSpace(req.Instruction), d.Table, req.Model)
	c.JSON(http.StatusOK, result)
}

func (s *Server) apiRunBatch(c *gin.Context) {
	d := middleware.Dataset(c)
	model := c.DefaultQuery("model", c.PostForm("model"))
	if model == "" {
		model = s.config.DefaultModel
	}

	queries, _, _, err := s.queriesFrom(c.Request)
	if err != nil {
		abortWithError(c, err)
		return
	}

	report := batch.NewRunner(s.analyst, model, s.logger).Run(c.Request.Context(), d.Table, queries)
	if err := s.store.SaveBatch(d.ID, report); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) apiExportBatch(c *gin.Context) {
	id, err := workbench.ParseID(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	report, err := s.store.Batch(id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	out, err := batch.Export(report, filepath.Join(s.config.ExportDir, batch.DefaultExportName(s.now())))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"path": out})
}

func (s *Server) apiQueryStats(c *gin.Context) {
	queries, source, text, err := s.queriesFrom(c.Request)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"source":       source,
		"stats":        batch.Stats(queries),
		"file_size_kb": math.Round(float64(len(text))/1024*10) / 10,
	})
}

func (s *Server) apiHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		abortWithError(c, errors.InvalidInput("limit must be a positive integer"))
		return
	}

	ctx := c.Request.Context()
	runs, err := s.history.Recent(ctx, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	summary, err := s.history.Summary(ctx)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": true, "summary": summary, "runs": runs})
}
