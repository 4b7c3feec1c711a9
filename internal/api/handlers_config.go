package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pelletier/go-toml/v2"

	"github.com/dan-online/autopulse-sub000/internal/config"
)

// triggerTemplates and targetTemplates seed one illustrative entry per
// supported type, so the scaffold this endpoint returns is directly
// editable rather than just an empty section.
var triggerTemplates = map[string]config.Trigger{
	"sonarr":   {Type: "sonarr"},
	"radarr":   {Type: "radarr"},
	"lidarr":   {Type: "lidarr"},
	"readarr":  {Type: "readarr"},
	"a_train":  {Type: "a_train"},
	"autoscan": {Type: "autoscan"},
	"manual":   {Type: "manual"},
	"notify":   {Type: "notify"},
}

var targetTemplates = map[string]config.Target{
	"plex":      {Type: "plex", URL: "http://plex:32400", Token: "..."},
	"emby":      {Type: "emby", URL: "http://emby:8096", Token: "..."},
	"tdarr":     {Type: "tdarr", URL: "http://tdarr:8265"},
	"sonarr":    {Type: "sonarr", URL: "http://sonarr:8989", Token: "..."},
	"radarr":    {Type: "radarr", URL: "http://radarr:7878", Token: "..."},
	"command":   {Type: "command", Raw: "echo {path}"},
	"autopulse": {Type: "autopulse", URL: "http://autopulse-2:8980"},
}

// handleConfigTemplate answers GET /api/config-template (§6.1): a
// configuration scaffold, optionally seeded with example trigger/target
// entries, in either JSON or TOML.
func (s *Server) handleConfigTemplate(c *gin.Context) {
	scaffold := config.Config{
		App:      config.App{Port: "8980", DataDir: "./data", BasePath: "/"},
		Auth:     config.Auth{Enabled: true, Username: "admin", PasswordPlain: "password"},
		Opts:     config.Opts{MaxRetries: 5, DefaultTimerWait: 60 * time.Second, CleanupDays: 10, LogFileRollover: "never"},
		Triggers: map[string]config.Trigger{},
		Targets:  map[string]config.Target{},
		Webhooks: map[string]config.Webhook{},
		Anchors:  []string{},
	}

	if _, ok := c.GetQuery("database"); ok {
		scaffold.App.DataDir = "/data"
	}
	if _, ok := c.GetQuery("triggers"); ok {
		for name, t := range triggerTemplates {
			scaffold.Triggers[name] = t
		}
	}
	if _, ok := c.GetQuery("targets"); ok {
		for name, t := range targetTemplates {
			scaffold.Targets[name] = t
		}
	}

	switch strings.ToLower(c.DefaultQuery("output", "json")) {
	case "toml":
		out, err := toml.Marshal(scaffold)
		if err != nil {
			respondInternal(c, err)
			return
		}
		c.Data(http.StatusOK, "application/toml", out)
	default:
		c.JSON(http.StatusOK, scaffold)
	}
}
