// Copyright (C) 2026 The galprof authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package rest exposes the profile pipeline as an HTTP API.
package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"galprof/internal/frame"
	"galprof/internal/galfind"
	"galprof/internal/pipeline"
)

func Serve() {
	r := gin.Default()
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.POST("/fit", postFit)
		}
	}
	r.Run() // listen and serve on 0.0.0.0:8080
}

func getPing(c *gin.Context) {
	c.JSON(200, gin.H{
		"message": "pong",
	})
}

// One band's pixels in the fit request, row-major with optional mask
type bandArgs struct {
	Width int       `json:"width"`
	Data  []float64 `json:"data"`
	Mask  []bool    `json:"mask"`
}

type postFitArgs struct {
	Name   string              `json:"name"`
	Bands  map[string]bandArgs `json:"bands"`
	Cat    *galfind.Tractor    `json:"cat"`
	Config *pipeline.Config    `json:"config"`
}

func postFit(c *gin.Context) {
	var args postFitArgs
	if err := c.ShouldBind(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := args.Config
	if cfg == nil {
		cfg = pipeline.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	frames := frame.MultiBand{}
	for band, b := range args.Bands {
		f, err := frame.NewFromData(b.Data, b.Mask, b.Width)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "band " + band + ": " + err.Error()})
			return
		}
		frames[band] = f
	}

	ctx := pipeline.NewContext(gin.DefaultWriter)
	res := pipeline.Run(ctx, pipeline.Job{Name: args.Name, Frames: frames, Cat: args.Cat}, cfg)
	if res.Status == pipeline.StatusFailed {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"status": res.Status, "error": res.Err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}
