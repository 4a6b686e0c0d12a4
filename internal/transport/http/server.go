package audithttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"odta/internal/audit"
	"odta/internal/greeks"
	"odta/internal/ledger"
	"odta/internal/logger"
	"odta/internal/session"

	"github.com/gin-gonic/gin"
)

// Server exposes the read-only audit surface consumed by external
// reporting tools: session state, paper positions, and the decision log.
// Nothing here mutates the core.
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig describes the server's read-only dependencies.
type ServerConfig struct {
	Addr         string
	State        *session.State
	Ledger       *ledger.Ledger
	Audit        *audit.Log
	RiskFreeRate float64
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.State == nil || cfg.Ledger == nil || cfg.Audit == nil {
		return nil, errors.New("audit http server requires state, ledger, and audit log")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9991"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.GET("/session", func(c *gin.Context) {
		c.JSON(http.StatusOK, cfg.State.Snapshot())
	})
	api.GET("/positions", func(c *gin.Context) {
		date := c.DefaultQuery("date", cfg.State.TradeDate())
		snap, err := cfg.Ledger.Snapshot(c.Request.Context(), date)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"trade_date":   date,
			"open":         snap.Open,
			"closed":       snap.Closed,
			"realized_pnl": snap.RealizedPnL,
		})
	})
	// Valuation service for the decision step: quote in, IV and Greeks out.
	api.GET("/greeks", func(c *gin.Context) {
		in, err := greeksInput(c, cfg.RiskFreeRate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		res, err := greeks.Valuate(in)
		if err != nil {
			var derr *greeks.DomainError
			if errors.As(err, &derr) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": derr.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, res)
	})
	api.GET("/decisions", func(c *gin.Context) {
		date := c.DefaultQuery("date", cfg.State.TradeDate())
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		rows, err := cfg.Audit.Recent(c.Request.Context(), date, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"trade_date": date, "decisions": rows})
	})

	return &Server{addr: cfg.Addr, router: router}, nil
}

func greeksInput(c *gin.Context, defaultRate float64) (greeks.Input, error) {
	spot, err := strconv.ParseFloat(c.Query("spot"), 64)
	if err != nil {
		return greeks.Input{}, errors.New("spot must be a number")
	}
	strike, err := strconv.ParseFloat(c.Query("strike"), 64)
	if err != nil {
		return greeks.Input{}, errors.New("strike must be a number")
	}
	premium, err := strconv.ParseFloat(c.Query("premium"), 64)
	if err != nil {
		return greeks.Input{}, errors.New("premium must be a number")
	}
	days, err := strconv.Atoi(c.Query("days_to_expiry"))
	if err != nil {
		return greeks.Input{}, errors.New("days_to_expiry must be an integer")
	}
	rate := defaultRate
	if raw := c.Query("risk_free_rate"); raw != "" {
		rate, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return greeks.Input{}, errors.New("risk_free_rate must be a number")
		}
	}
	return greeks.Input{
		Spot:         spot,
		Strike:       strike,
		DaysToExpiry: days,
		Premium:      premium,
		OptionType:   greeks.OptionType(c.Query("option_type")),
		RiskFreeRate: rate,
	}, nil
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("AuditHTTP: listening on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }
