package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/AnTengye/legalanalyzer/middleware"
	"github.com/AnTengye/legalanalyzer/model"
	"github.com/gin-gonic/gin"
)

// MaxWait caps how long GET analysis may long-poll
const MaxWait = 60 * time.Second

type AnalysisHandler struct{}

func NewAnalysisHandler() *AnalysisHandler {
	return &AnalysisHandler{}
}

type AnalysisResponse struct {
	State model.RunState `json:"state"`
	Stale bool           `json:"stale"`
}

// Start triggers an analysis of the current text. The run continues after
// this request returns.
func (h *AnalysisHandler) Start(c *gin.Context) {
	sess := middleware.GetSession(c)

	if _, err := sess.Analyze(c.Request.Context()); err != nil {
		writeSessionError(c, err)
		return
	}

	snap := sess.Snapshot()
	// blank text fails before a run is started
	if snap.State.Status == model.RunFailed && snap.State.RunID == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": snap.State.Error,
			"state": snap.State,
		})
		return
	}

	c.JSON(http.StatusAccepted, AnalysisResponse{State: snap.State, Stale: snap.Stale})
}

// Get returns the run state. With ?wait=<duration> it blocks until the
// run in flight finishes or the wait ends, whichever is first.
func (h *AnalysisHandler) Get(c *gin.Context) {
	sess := middleware.GetSession(c)

	if w := c.Query("wait"); w != "" {
		wait, err := time.ParseDuration(w)
		if err != nil || wait < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wait duration"})
			return
		}
		if wait > MaxWait {
			wait = MaxWait
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), wait)
		defer cancel()
		// a timeout just returns the loading state
		_ = sess.Wait(ctx)
	}

	snap := sess.Snapshot()
	c.JSON(http.StatusOK, AnalysisResponse{State: snap.State, Stale: snap.Stale})
}
