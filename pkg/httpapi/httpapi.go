// Package httpapi serves a read-only JSON view of the machine registry and
// the report journal, a health check and the Prometheus metrics endpoint.
package httpapi

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"bottlecangowhere/pkg/finder"
	"bottlecangowhere/pkg/geo"
	"bottlecangowhere/pkg/journal"
	"bottlecangowhere/pkg/registry"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	maxNearest     = 20
	defaultReports = 10
	maxReports     = 100
)

// History is the read side of the report journal.
type History interface {
	RecentReports(ctx context.Context, machine string, limit int) ([]journal.Report, error)
	GetReminder(ctx context.Context, userID int64) (journal.Reminder, bool, error)
}

type machineJSON struct {
	Name        string   `json:"name"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Address     string   `json:"address"`
	Description string   `json:"description"`
	Hours       string   `json:"hours"`
	Status      string   `json:"status"`
	Nearby      string   `json:"nearby,omitempty"`
	Distance    *float64 `json:"distance_meters,omitempty"`
}

type reportJSON struct {
	ID         string    `json:"id"`
	Previous   string    `json:"previous"`
	Status     string    `json:"status"`
	UserID     int64     `json:"user_id"`
	ReportedAt time.Time `json:"reported_at"`
}

type reminderJSON struct {
	UserID    int64     `json:"user_id"`
	Frequency string    `json:"frequency"`
	Day       int       `json:"day"`
	Time      string    `json:"time"`
	CreatedAt time.Time `json:"created_at"`
}

type errorJSON struct {
	Error string `json:"error"`
}

// NewRouter builds the gin engine. history may be nil to omit the journal
// routes and gatherer may be nil to omit /metrics.
func NewRouter(reg *registry.Registry, f *finder.Finder, history History, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "machines": reg.Len()})
	})

	r.GET("/machines", func(c *gin.Context) {
		snapshot := reg.Snapshot()
		out := make([]machineJSON, 0, len(snapshot))
		for _, m := range snapshot {
			out = append(out, toJSON(m, nil))
		}
		c.JSON(http.StatusOK, out)
	})

	r.GET("/machines/nearest", func(c *gin.Context) {
		lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
		lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
		if errLat != nil || errLon != nil || !(geo.Point{Lat: lat, Lon: lon}).Valid() {
			c.JSON(http.StatusBadRequest, errorJSON{Error: "lat and lon must be valid decimal degrees"})
			return
		}
		k := 3
		if raw := c.Query("k"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 || parsed > maxNearest {
				c.JSON(http.StatusBadRequest, errorJSON{Error: "k must be an integer between 0 and 20"})
				return
			}
			k = parsed
		}
		results := f.FindNearest(lat, lon, k)
		out := make([]machineJSON, 0, len(results))
		for _, res := range results {
			d := res.Distance
			out = append(out, toJSON(res.Machine, &d))
		}
		c.JSON(http.StatusOK, out)
	})

	if history != nil {
		r.GET("/machines/:name/reports", func(c *gin.Context) {
			name := c.Param("name")
			if _, ok := reg.Get(name); !ok {
				c.JSON(http.StatusNotFound, errorJSON{Error: "unknown machine"})
				return
			}
			limit := defaultReports
			if raw := c.Query("limit"); raw != "" {
				parsed, err := strconv.Atoi(raw)
				if err != nil || parsed < 1 || parsed > maxReports {
					c.JSON(http.StatusBadRequest, errorJSON{Error: "limit must be an integer between 1 and 100"})
					return
				}
				limit = parsed
			}
			reports, err := history.RecentReports(c.Request.Context(), name, limit)
			if err != nil {
				log.Printf("[httpapi] Error listing reports for %q: %v", name, err)
				c.JSON(http.StatusInternalServerError, errorJSON{Error: "journal unavailable"})
				return
			}
			out := make([]reportJSON, 0, len(reports))
			for _, rep := range reports {
				out = append(out, reportJSON{
					ID:         rep.ID,
					Previous:   rep.Previous,
					Status:     rep.Status,
					UserID:     rep.UserID,
					ReportedAt: rep.ReportedAt,
				})
			}
			c.JSON(http.StatusOK, out)
		})

		r.GET("/reminders/:user", func(c *gin.Context) {
			userID, err := strconv.ParseInt(c.Param("user"), 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, errorJSON{Error: "user must be a numeric telegram id"})
				return
			}
			rem, ok, err := history.GetReminder(c.Request.Context(), userID)
			if err != nil {
				log.Printf("[httpapi] Error reading reminder of user %d: %v", userID, err)
				c.JSON(http.StatusInternalServerError, errorJSON{Error: "journal unavailable"})
				return
			}
			if !ok {
				c.JSON(http.StatusNotFound, errorJSON{Error: "no reminder set"})
				return
			}
			c.JSON(http.StatusOK, reminderJSON{
				UserID:    rem.UserID,
				Frequency: rem.Frequency,
				Day:       rem.Day,
				Time:      rem.Time,
				CreatedAt: rem.CreatedAt,
			})
		})
	}

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return r
}

func toJSON(m registry.Machine, distance *float64) machineJSON {
	nearby := ""
	if m.HasNearby() {
		nearby = m.Nearby
	}
	return machineJSON{
		Name:        m.Name,
		Latitude:    m.Latitude,
		Longitude:   m.Longitude,
		Address:     m.Address,
		Description: m.Description,
		Hours:       m.Hours,
		Status:      string(m.Status),
		Nearby:      nearby,
		Distance:    distance,
	}
}
