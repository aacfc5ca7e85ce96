package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eshaffer321/doordash-export/internal/infrastructure/config"
	"github.com/eshaffer321/doordash-export/internal/infrastructure/logging"
	"github.com/eshaffer321/doordash-export/internal/infrastructure/storage"
	"github.com/eshaffer321/doordash-export/internal/normalize"
)

// APIServer serves the export run ledger over HTTP for dashboards.
type APIServer struct {
	storage *storage.Storage
	logger  *slog.Logger
}

func NewAPIServer(store *storage.Storage, logger *slog.Logger) *APIServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIServer{storage: store, logger: logger}
}

// RunResponse is one export run
type RunResponse struct {
	ID           string `json:"id"`
	StartedAt    string `json:"started_at"`
	FinishedAt   string `json:"finished_at,omitempty"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	OrderCount   int    `json:"order_count"`
	RowCount     int    `json:"row_count"`
	WarningCount int    `json:"warning_count"`
	ItemizedPath string `json:"itemized_path"`
	PivotPath    string `json:"pivot_path"`
}

// OrderResponse is one exported order with its flat rows
type OrderResponse struct {
	OrderID     string              `json:"order_id"`
	RunID       string              `json:"run_id"`
	OrderDate   string              `json:"order_date"`
	Store       string              `json:"store"`
	ItemCount   int                 `json:"item_count"`
	PersonCount int                 `json:"person_count"`
	Items       []normalize.FlatRow `json:"items,omitempty"`
}

// StatsResponse summarizes the ledger
type StatsResponse struct {
	TotalRuns    int    `json:"total_runs"`
	SuccessCount int    `json:"success_count"`
	ErrorCount   int    `json:"error_count"`
	TotalOrders  int    `json:"total_orders"`
	TotalRows    int    `json:"total_rows"`
	LastRunAt    string `json:"last_run_at,omitempty"`
}

func toRunResponse(run *storage.ExportRun) RunResponse {
	resp := RunResponse{
		ID:           run.ID,
		StartedAt:    run.StartedAt.Format("2006-01-02T15:04:05Z"),
		Status:       run.Status,
		ErrorMessage: run.ErrorMessage,
		OrderCount:   run.OrderCount,
		RowCount:     run.RowCount,
		WarningCount: run.WarningCount,
		ItemizedPath: run.ItemizedPath,
		PivotPath:    run.PivotPath,
	}
	if run.FinishedAt != nil {
		resp.FinishedAt = run.FinishedAt.Format("2006-01-02T15:04:05Z")
	}
	return resp
}

func toOrderResponse(record *storage.OrderRecord, includeItems bool) OrderResponse {
	resp := OrderResponse{
		OrderID:     record.OrderID,
		RunID:       record.RunID,
		OrderDate:   record.OrderDate,
		Store:       record.Store,
		ItemCount:   record.ItemCount,
		PersonCount: record.PersonCount,
	}
	if includeItems {
		_ = json.Unmarshal([]byte(record.ItemsJSON), &resp.Items)
	}
	return resp
}

func (s *APIServer) listRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := s.storage.ListRuns(limit)
	if err != nil {
		s.logger.Error("failed to list runs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	out := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunResponse(run))
	}
	c.JSON(http.StatusOK, gin.H{"runs": out})
}

func (s *APIServer) getRun(c *gin.Context) {
	run, err := s.storage.GetRun(c.Param("id"))
	if err != nil {
		s.logger.Error("failed to get run", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, toRunResponse(run))
}

func (s *APIServer) listOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	records, err := s.storage.ListOrderRecords(limit, offset)
	if err != nil {
		s.logger.Error("failed to list orders", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	out := make([]OrderResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toOrderResponse(record, false))
	}
	c.JSON(http.StatusOK, gin.H{"orders": out, "limit": limit, "offset": offset})
}

func (s *APIServer) getOrder(c *gin.Context) {
	record, err := s.storage.GetOrderRecord(c.Param("id"))
	if err != nil {
		s.logger.Error("failed to get order", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(record, true))
}

func (s *APIServer) getStats(c *gin.Context) {
	stats, err := s.storage.GetStats()
	if err != nil {
		s.logger.Error("failed to get stats", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	resp := StatsResponse{
		TotalRuns:    stats.TotalRuns,
		SuccessCount: stats.SuccessCount,
		ErrorCount:   stats.ErrorCount,
		TotalOrders:  stats.TotalOrders,
		TotalRows:    stats.TotalRows,
	}
	if stats.LastRunAt != nil {
		resp.LastRunAt = stats.LastRunAt.Format("2006-01-02T15:04:05Z")
	}
	c.JSON(http.StatusOK, resp)
}

// setupRouter wires routes; split out so tests can exercise handlers.
func setupRouter(server *APIServer, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Accept", "Content-Type"},
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/runs", server.listRuns)
		api.GET("/runs/:id", server.getRun)
		api.GET("/orders", server.listOrders)
		api.GET("/orders/:id", server.getOrder)
		api.GET("/stats", server.getStats)
	}
	return router
}

func main() {
	var (
		configFile = flag.String("config", "", "Configuration file path")
		port       = flag.Int("port", 0, "Port to listen on (overrides config)")
	)
	flag.Parse()

	var cfg *config.Config
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config %s: %v\n", *configFile, err)
			os.Exit(2)
		}
		cfg = loaded
	} else {
		cfg = config.LoadOrEnv()
	}
	if *port != 0 {
		cfg.API.Port = *port
	}

	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "api")

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to open ledger database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := NewAPIServer(store, logger)
	router := setupRouter(server, cfg.API.AllowedOrigins)

	addr := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Info("starting ledger API server", slog.String("addr", addr))
	if err := router.Run(addr); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
