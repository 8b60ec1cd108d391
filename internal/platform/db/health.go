package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats is the connection pool snapshot reported by the health endpoint.
type PoolStats struct {
	TotalConns    int32 `json:"total_conns"`
	IdleConns     int32 `json:"idle_conns"`
	AcquiredConns int32 `json:"acquired_conns"`
	MaxConns      int32 `json:"max_conns"`
}

func poolStats(pool *pgxpool.Pool) PoolStats {
	s := pool.Stat()
	return PoolStats{
		TotalConns:    s.TotalConns(),
		IdleConns:     s.IdleConns(),
		AcquiredConns: s.AcquiredConns(),
		MaxConns:      s.MaxConns(),
	}
}

type healthResponse struct {
	Status   string    `json:"status"`
	Error    string    `json:"error,omitempty"`
	Database PoolStats `json:"database"`
}

// HealthHandler reports database connectivity plus pool usage. A failed
// ping answers 503 so load balancers can pull the instance.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, healthResponse{
				Status:   "unhealthy",
				Error:    err.Error(),
				Database: poolStats(pool),
			})
		}
		return c.JSON(http.StatusOK, healthResponse{
			Status:   "healthy",
			Database: poolStats(pool),
		})
	}
}
