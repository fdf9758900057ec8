// Package yarn talks to the REST interface of the YARN resource manager.
package yarn

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/juju/errors"
	"github.com/mcuadros/go-defaults"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/jobflow/types"
	"golang.org/x/time/rate"
)

// StatusClient is what the job engine needs from the resource manager.
// found is false when the application is not (yet) known to it.
type StatusClient interface {
	GetApplicationStatus(ctx context.Context, appID string) (status types.StatusType, found bool, err error)
}

type Config struct {
	Address string        `default:"http://localhost:8088"`
	Timeout time.Duration `default:"10s"`
	// requests per second, 0 means unlimited
	QPS   float64 `default:"20"`
	Burst int     `default:"5"`
}

func NewConfig() *Config {
	c := &Config{}
	defaults.SetDefaults(c)
	return c
}

var (
	_ StatusClient = &Client{}
)

type Client struct {
	rc      *resty.Client
	limiter *rate.Limiter
}

func NewClient(config *Config) *Client {
	if config == nil {
		config = NewConfig()
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(config.Address, "/")).
		SetTimeout(config.Timeout).
		SetHeader("Accept", "application/json")

	limit := rate.Inf
	if config.QPS > 0 {
		limit = rate.Limit(config.QPS)
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Client{rc: rc, limiter: rate.NewLimiter(limit, burst)}
}

type appResponse struct {
	App *appInfo `json:"app"`
}

type appInfo struct {
	ID          string `json:"id"`
	State       string `json:"state"`
	FinalStatus string `json:"finalStatus"`
}

// GetApplicationStatus queries /ws/v1/cluster/apps/{appID}.
// A 404 is reported as not found, any other failure as an error.
func (c *Client) GetApplicationStatus(ctx context.Context, appID string) (types.StatusType, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return types.None, false, errors.Trace(err)
	}

	result := &appResponse{}
	resp, err := c.rc.R().
		SetContext(ctx).
		SetPathParam("appID", appID).
		SetResult(result).
		Get("/ws/v1/cluster/apps/{appID}")
	if err != nil {
		return types.None, false, errors.Annotatef(err, "request application %s", appID)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return types.None, false, nil
	case resp.IsError():
		return types.None, false, errors.Errorf("request application %s: %s %s", appID, resp.Status(), resp.String())
	}

	if result.App == nil || result.App.State == "" {
		return types.None, false, nil
	}

	status := ConvertStatus(result.App.State, result.App.FinalStatus)
	log.Debugf("application %s state %s final status %s -> %v",
		appID, result.App.State, result.App.FinalStatus, status)
	return status, true, nil
}

// ConvertStatus maps a YARN application state and final status to a StatusType.
func ConvertStatus(state, finalStatus string) types.StatusType {
	switch strings.ToUpper(state) {
	case "NEW", "NEW_SAVING", "SUBMITTED", "ACCEPTED":
		return types.Init
	case "RUNNING":
		return types.Running
	case "FINISHED":
		switch strings.ToUpper(finalStatus) {
		case "FAILED":
			return types.Failed
		case "KILLED":
			return types.Killed
		default:
			return types.Success
		}
	case "FAILED":
		return types.Failed
	case "KILLED":
		return types.Killed
	default:
		return types.None
	}
}
