package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"sheetlens/internal/batch"
	"sheetlens/internal/errors"
	"sheetlens/internal/workbench"
	"sheetlens/models"
	"sheetlens/ui/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const apiKeyHint = "Make sure your API key is set in the .env file"

// pageData feeds index.html and dataset.html
type pageData struct {
	Title    string
	Sidebar  template.HTML
	Models   []string
	Model    string
	Datasets []*workbench.Dataset

	Dataset   *workbench.Dataset
	Metrics   workbench.Metrics
	Structure string
	Preview   Preview

	Tab         string
	Instruction string
	Result      *models.AnalysisResult

	Batch         *models.BatchReport
	QueriesSource string
	QueriesText   string
	Stats         *models.QueryStats

	Notice  string
	Warning string
	Error   string
	Hint    string
}

func (s *Server) basePage() *pageData {
	return &pageData{
		Title:   "📊 XLSX → Parquet Converter & AI Analyzer",
		Sidebar: s.sidebar,
		Models:  []string{models.ModelLarge, models.ModelSmall},
		Model:   s.config.DefaultModel,
		Tab:     "analysis",
	}
}

func (s *Server) datasetPage(d *workbench.Dataset) *pageData {
	page := s.basePage()
	page.Title = d.Filename + " - sheetlens"
	page.Dataset = d
	page.Metrics = d.Metrics()
	page.Structure = d.Table.Structure()
	page.Preview = NewPreview(d.Table, PreviewRows)
	page.Batch = s.store.LatestBatch(d.ID)
	return page
}

// pageDataset resolves {id} or writes an error page
func (s *Server) pageDataset(w http.ResponseWriter, r *http.Request) (*workbench.Dataset, bool) {
	id, err := workbench.ParseID(chi.URLParam(r, "id"))
	if err == nil {
		var d *workbench.Dataset
		if d, err = s.store.Get(id); err == nil {
			return d, true
		}
	}
	page := s.basePage()
	page.Datasets = s.store.List()
	page.Error = "❌ " + err.Error()
	s.renderTemplate(w, middleware.StatusFor(err), "index.html", page)
	return nil, false
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := s.basePage()
	page.Datasets = s.store.List()
	s.renderTemplate(w, http.StatusOK, "index.html", page)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		page := s.basePage()
		page.Datasets = s.store.List()
		page.Warning = "⚠️ Choose an .xlsx file to upload."
		s.renderTemplate(w, http.StatusBadRequest, "index.html", page)
		return
	}
	defer file.Close()

	d, err := s.ingest(r, file, header)
	if err != nil {
		page := s.basePage()
		page.Datasets = s.store.List()
		page.Error = "❌ " + err.Error()
		s.renderTemplate(w, middleware.StatusFor(err), "index.html", page)
		return
	}
	http.Redirect(w, r, "/datasets/"+d.ID.String(), http.StatusSeeOther)
}

// ingest stores an uploaded spreadsheet and loads it
func (s *Server) ingest(r *http.Request, file multipart.File, header *multipart.FileHeader) (*workbench.Dataset, error) {
	name := filepath.Base(header.Filename)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".csv":
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unsupported file type %q (upload an .xlsx file)", name))
	}

	key := fmt.Sprintf("%d/%s", s.now().UnixNano(), name)
	path, size, err := s.uploads.Save(r.Context(), key, file)
	if err != nil {
		return nil, errors.Wrap(err, "failed to store upload")
	}

	table, err := s.load(path)
	if err != nil {
		s.uploads.Delete(key)
		return nil, err
	}

	d := s.store.Add(name, path, size, table)
	s.logger.Info("dataset uploaded",
		zap.String("id", d.ID.String()),
		zap.String("file", name),
		zap.Int("rows", table.Len()),
		zap.Int("columns", table.Width()))
	return d, nil
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	d, ok := s.pageDataset(w, r)
	if !ok {
		return
	}
	s.renderTemplate(w, http.StatusOK, "dataset.html", s.datasetPage(d))
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	d, ok := s.pageDataset(w, r)
	if !ok {
		return
	}
	page := s.datasetPage(d)
	page.Instruction = r.FormValue("instruction")
	if m := r.FormValue("model"); m != "" {
		page.Model = m
	}

	if strings.TrimSpace(page.Instruction) == "" {
		page.Warning = "⚠️ Please enter an analysis instruction first."
		s.renderTemplate(w, http.StatusOK, "dataset.html", page)
		return
	}

	result := s.analyst.Analyze(r.Context(), strings.TrimSpace(page.Instruction), d.Table, page.Model)
	page.Result = result
	if !result.Success {
		page.Error = "❌ Error during analysis: " + orUnknown(result.Error)
		page.Hint = apiKeyHint
	}
	s.renderTemplate(w, http.StatusOK, "dataset.html", page)
}

func (s *Server) handleSaveParquet(w http.ResponseWriter, r *http.Request) {
	d, ok := s.pageDataset(w, r)
	if !ok {
		return
	}
	page := s.datasetPage(d)

	out, err := s.parquet.SaveFor(d.Table, d.Filename)
	if err != nil {
		page.Error = "❌ " + err.Error()
		s.renderTemplate(w, middleware.StatusFor(err), "dataset.html", page)
		return
	}
	page.Notice = "Saved → " + relative(out)
	s.renderTemplate(w, http.StatusOK, "dataset.html", page)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	d, ok := s.pageDataset(w, r)
	if !ok {
		return
	}
	page := s.datasetPage(d)
	page.Tab = "batch"
	if m := r.FormValue("model"); m != "" {
		page.Model = m
	}

	queries, source, text, err := s.queriesFrom(r)
	if err != nil {
		page.Error = "❌ " + err.Error()
		page.Hint = "Please either upload a queries file, or create a queries.txt file in the queries/ directory with one query per line."
		s.renderTemplate(w, middleware.StatusFor(err), "dataset.html", page)
		return
	}
	page.QueriesSource = source
	page.QueriesText = text

	if r.FormValue("action") == "stats" {
		stats := batch.Stats(queries)
		page.Stats = &stats
		s.renderTemplate(w, http.StatusOK, "dataset.html", page)
		return
	}

	report := batch.NewRunner(s.analyst, page.Model, s.logger).Run(r.Context(), d.Table, queries)
	if err := s.store.SaveBatch(d.ID, report); err != nil {
		page.Error = "❌ Batch analysis failed: " + err.Error()
		s.renderTemplate(w, middleware.StatusFor(err), "dataset.html", page)
		return
	}
	page.Batch = report
	s.renderTemplate(w, http.StatusOK, "dataset.html", page)
}

// queriesFrom reads the uploaded "queries" file, falling back to the
// configured default file
func (s *Server) queriesFrom(r *http.Request) ([]models.Query, string, string, error) {
	var raw []byte
	source := ""

	file, header, err := r.FormFile("queries")
	if err == nil {
		defer file.Close()
		if raw, err = io.ReadAll(file); err != nil {
			return nil, "", "", errors.Wrap(err, "failed to read uploaded queries")
		}
		source = "✅ Using uploaded file: " + filepath.Base(header.Filename)
	} else {
		path := s.config.QueriesFile
		raw, err = os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, "", "", errors.New(errors.CodeNotFound, "Default queries file not found at "+path)
			}
			return nil, "", "", errors.Wrapf(err, "error reading queries file %s", path)
		}
		source = "ℹ️ Using default queries file: " + path
	}

	queries, err := batch.ParseQueries(bytes.NewReader(raw))
	if err != nil {
		return nil, "", "", err
	}
	return queries, source, string(raw), nil
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	d, ok := s.pageDataset(w, r)
	if !ok {
		return
	}
	page := s.datasetPage(d)
	page.Tab = "batch"
	if page.Batch == nil {
		page.Warning = "⚠️ Run the batch tests before exporting."
		s.renderTemplate(w, http.StatusOK, "dataset.html", page)
		return
	}

	path := filepath.Join(s.config.ExportDir, batch.DefaultExportName(s.now()))
	out, err := batch.Export(page.Batch, path)
	if err != nil {
		page.Error = "❌ Export failed: " + err.Error()
		s.renderTemplate(w, http.StatusInternalServerError, "dataset.html", page)
		return
	}
	page.Notice = "✅ Results exported to: " + relative(out)
	s.renderTemplate(w, http.StatusOK, "dataset.html", page)
}

func (s *Server) handleDownloadExport(w http.ResponseWriter, r *http.Request) {
	d, ok := s.pageDataset(w, r)
	if !ok {
		return
	}
	report := s.store.LatestBatch(d.ID)
	if report == nil {
		http.Error(w, "no batch results for this dataset", http.StatusNotFound)
		return
	}

	raw, err := json.MarshalIndent(batch.NewExport(report, s.now()), "", "  ")
	if err != nil {
		http.Error(w, "failed to encode results", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", batch.DefaultExportName(s.now())))
	w.Write(raw)
}

func orUnknown(msg string) string {
	if msg == "" {
		return "Unknown error"
	}
	return msg
}

// relative shortens path to the working directory when possible
func relative(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(wd, abs); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}
