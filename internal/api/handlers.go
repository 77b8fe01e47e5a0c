// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Sonus - FFmpeg 命令构建与输出解析

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ZSC714725/sonus/internal/ffmpeg"
	"github.com/ZSC714725/sonus/internal/ffmpeg/skills"
	"github.com/ZSC714725/sonus/internal/job"
)

// Handler holds dependencies
type Handler struct {
	store  job.Store
	ffmpeg ffmpeg.FFmpeg
}

// NewHandler creates API handler
func NewHandler(store job.Store, ff ffmpeg.FFmpeg) *Handler {
	return &Handler{store: store, ffmpeg: ff}
}

// Register mounts every route on g, normally the /api/v1 group.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("/version", h.Version)
	g.GET("/formats", h.Formats)
	g.GET("/encoders", h.Encoders)
	g.GET("/decoders", h.Decoders)
	g.GET("/encoders/:name", h.CanEncode)
	g.GET("/decoders/:name", h.CanDecode)
	g.GET("/skills", h.Skills)
	g.POST("/skills/reload", h.ReloadSkills)

	g.POST("/probe", h.Probe)
	g.POST("/thumbnails", h.Thumbnails)
	g.GET("/progress/:id", h.Progress)

	g.GET("/jobs", h.ListJobs)
	g.POST("/jobs", h.AddJob)
	g.GET("/jobs/:id", h.GetJob)
	g.PUT("/jobs/:id", h.UpdateJob)
	g.DELETE("/jobs/:id", h.DeleteJob)
	g.GET("/jobs/:id/log", h.GetLog)
	g.PUT("/jobs/:id/command", h.Command)
}

func errResp(c *gin.Context, code int, msg, detail string) {
	c.JSON(code, ErrorResponse{Code: code, Message: msg, Detail: detail})
}

// fail maps library errors to HTTP status codes.
func fail(c *gin.Context, msg string, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, job.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, job.ErrJobExists):
		code = http.StatusConflict
	case errors.Is(err, job.ErrInvalidConfig), errors.Is(err, ffmpeg.ErrInvalidArgument):
		code = http.StatusBadRequest
	case errors.Is(err, ffmpeg.ErrParse):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, ffmpeg.ErrProcess):
		code = http.StatusBadGateway
	}
	errResp(c, code, msg, err.Error())
}

// Version GET /api/v1/version
func (h *Handler) Version(c *gin.Context) {
	v, err := h.ffmpeg.Version(c.Request.Context())
	if err != nil {
		fail(c, "Version query failed", err)
		return
	}
	c.JSON(http.StatusOK, VersionResponse{Version: v.String(), Major: v.Major, Minor: v.Minor, Revision: v.Revision})
}

// Formats GET /api/v1/formats
func (h *Handler) Formats(c *gin.Context) {
	formats, err := h.ffmpeg.Formats(c.Request.Context())
	if err != nil {
		fail(c, "Format query failed", err)
		return
	}
	c.JSON(http.StatusOK, formats)
}

func queryKind(c *gin.Context) (skills.Kind, bool) {
	kind, err := skills.ParseKind(c.DefaultQuery("kind", "audio"))
	if err != nil {
		errResp(c, http.StatusBadRequest, "Unknown kind", "Known: audio, video, subtitle")
		return "", false
	}
	return kind, true
}

// Encoders GET /api/v1/encoders?kind=audio|video|subtitle
func (h *Handler) Encoders(c *gin.Context) {
	kind, ok := queryKind(c)
	if !ok {
		return
	}
	names, err := h.ffmpeg.Encoders(c.Request.Context(), kind)
	if err != nil {
		fail(c, "Encoder query failed", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, names)
}

// Decoders GET /api/v1/decoders?kind=audio|video|subtitle
func (h *Handler) Decoders(c *gin.Context) {
	kind, ok := queryKind(c)
	if !ok {
		return
	}
	names, err := h.ffmpeg.Decoders(c.Request.Context(), kind)
	if err != nil {
		fail(c, "Decoder query failed", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, names)
}

// CanEncode GET /api/v1/encoders/:name
func (h *Handler) CanEncode(c *gin.Context) {
	name := c.Param("name")
	ok, err := h.ffmpeg.CanEncode(c.Request.Context(), name)
	if err != nil {
		fail(c, "Encoder query failed", err)
		return
	}
	c.JSON(http.StatusOK, CapabilityResponse{Name: name, Supported: ok})
}

// CanDecode GET /api/v1/decoders/:name
func (h *Handler) CanDecode(c *gin.Context) {
	name := c.Param("name")
	ok, err := h.ffmpeg.CanDecode(c.Request.Context(), name)
	if err != nil {
		fail(c, "Decoder query failed", err)
		return
	}
	c.JSON(http.StatusOK, CapabilityResponse{Name: name, Supported: ok})
}

// Skills GET /api/v1/skills
func (h *Handler) Skills(c *gin.Context) {
	sk, err := h.ffmpeg.Skills(c.Request.Context())
	if err != nil {
		fail(c, "Skills unavailable", err)
		return
	}
	c.JSON(http.StatusOK, skillsToAPI(sk))
}

// ReloadSkills POST /api/v1/skills/reload
func (h *Handler) ReloadSkills(c *gin.Context) {
	if err := h.ffmpeg.ReloadSkills(c.Request.Context()); err != nil {
		fail(c, "Reload failed", err)
		return
	}
	sk, err := h.ffmpeg.Skills(c.Request.Context())
	if err != nil {
		fail(c, "Skills unavailable", err)
		return
	}
	c.JSON(http.StatusOK, skillsToAPI(sk))
}

// Probe POST /api/v1/probe
func (h *Handler) Probe(c *gin.Context) {
	var req ProbeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errResp(c, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	format, err := ffmpeg.ParseProbeFormat(req.Format)
	if err != nil {
		fail(c, "Invalid format", err)
		return
	}

	out, err := h.ffmpeg.MediaInfoRaw(c.Request.Context(), req.Input, format)
	if err != nil {
		fail(c, "Probe failed", err)
		return
	}

	contentType := "application/json; charset=utf-8"
	switch format {
	case ffmpeg.ProbeXML:
		contentType = "application/xml; charset=utf-8"
	case ffmpeg.ProbeCSV:
		contentType = "text/csv; charset=utf-8"
	}
	c.Data(http.StatusOK, contentType, []byte(out))
}

// Thumbnails POST /api/v1/thumbnails
func (h *Handler) Thumbnails(c *gin.Context) {
	var req ThumbnailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errResp(c, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}

	opts := ffmpeg.ThumbnailOptions{
		Input:        req.Input,
		OutputPrefix: req.OutputPrefix,
		Count:        ffmpeg.DefaultThumbnailCount,
		Format:       req.Format,
	}
	if req.Count != nil {
		opts.Count = *req.Count
	}
	if opts.Format == "" {
		opts.Format = "png"
	}

	if err := h.ffmpeg.Thumbnails(c.Request.Context(), opts); err != nil {
		fail(c, "Thumbnails failed", err)
		return
	}
	c.JSON(http.StatusOK, ThumbnailsResponse{
		Pattern: opts.OutputPrefix + "%02d." + opts.Format,
		Count:   opts.Count,
	})
}

// Progress GET /api/v1/progress/:id
func (h *Handler) Progress(c *gin.Context) {
	id := c.Param("id")
	s, err := h.ffmpeg.Progress(id)
	if s == nil && err == nil {
		errResp(c, http.StatusNotFound, "No progress log", id)
		return
	}
	if err != nil {
		fail(c, "Progress unreadable", err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// AddJob POST /api/v1/jobs
func (h *Handler) AddJob(c *gin.Context) {
	var req JobConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errResp(c, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}

	j, err := h.store.Add(requestToConfig(&req))
	if err != nil {
		fail(c, "Invalid config", err)
		return
	}

	c.JSON(http.StatusOK, jobToConfig(j))
}

// ListJobs GET /api/v1/jobs
func (h *Handler) ListJobs(c *gin.Context) {
	filter := c.DefaultQuery("filter", "")
	reference := c.DefaultQuery("reference", "")
	idStr := c.DefaultQuery("id", "")

	var ids []string
	if idStr != "" {
		ids = strings.FieldsFunc(idStr, func(r rune) bool { return r == ',' })
		for i := range ids {
			ids[i] = strings.TrimSpace(ids[i])
		}
	}

	jobs := h.store.List(ids, reference)
	out := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, jobToAPI(j, filter))
	}

	c.JSON(http.StatusOK, out)
}

// GetJob GET /api/v1/jobs/:id
func (h *Handler) GetJob(c *gin.Context) {
	j, err := h.store.Get(c.Param("id"))
	if err != nil {
		fail(c, "Unknown job ID", err)
		return
	}
	c.JSON(http.StatusOK, jobToAPI(j, c.DefaultQuery("filter", "")))
}

// UpdateJob PUT /api/v1/jobs/:id
func (h *Handler) UpdateJob(c *gin.Context) {
	id := c.Param("id")

	var req JobConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errResp(c, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}

	j, err := h.store.Update(id, requestToConfig(&req))
	if err != nil {
		fail(c, "Update failed", err)
		return
	}
	c.JSON(http.StatusOK, jobToConfig(j))
}

// DeleteJob DELETE /api/v1/jobs/:id
func (h *Handler) DeleteJob(c *gin.Context) {
	if err := h.store.Delete(c.Param("id")); err != nil {
		fail(c, "Delete failed", err)
		return
	}
	c.JSON(http.StatusOK, "OK")
}

// GetLog GET /api/v1/jobs/:id/log
func (h *Handler) GetLog(c *gin.Context) {
	j, err := h.store.Get(c.Param("id"))
	if err != nil {
		fail(c, "Unknown job ID", err)
		return
	}
	c.JSON(http.StatusOK, jobToReport(j, "2006-01-02 15:04:05.000"))
}

// Command PUT /api/v1/jobs/:id/command
func (h *Handler) Command(c *gin.Context) {
	id := c.Param("id")

	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errResp(c, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}

	var err error
	switch req.Command {
	case "start":
		err = h.store.Start(id)
	case "stop":
		err = h.store.Stop(id)
	case "restart":
		err = h.store.Restart(id)
	default:
		errResp(c, http.StatusBadRequest, "Unknown command", "Known: start, stop, restart")
		return
	}

	if err != nil {
		fail(c, "Command failed", err)
		return
	}

	c.JSON(http.StatusOK, "OK")
}

func requestToConfig(req *JobConfigRequest) *job.Config {
	cfg := &job.Config{
		ID:        req.ID,
		Reference: req.Reference,
		Input:     req.Input,
		Output:    req.Output,
		RawArgs:   req.RawArgs,
		Autostart: req.Autostart,
	}
	for _, s := range req.Steps {
		cfg.Steps = append(cfg.Steps, job.Step{Op: s.Op, Value: s.Value, Track: s.Track})
	}
	return cfg
}

func jobToConfig(j *job.Job) *JobConfig {
	cfg := &JobConfig{
		ID:        j.ID,
		Reference: j.Reference,
		Input:     j.Config.Input,
		Output:    j.Config.Output,
		Steps:     []JobStep{},
		RawArgs:   j.Config.RawArgs,
		Autostart: j.Config.Autostart,
		Command:   j.Command,
	}
	for _, s := range j.Config.Steps {
		cfg.Steps = append(cfg.Steps, JobStep{Op: s.Op, Value: s.Value, Track: s.Track})
	}
	return cfg
}

func jobToState(j *job.Job) *JobState {
	status := j.Status()
	state := &JobState{
		Order:      status.Order,
		State:      status.State,
		Runtime:    int64(status.Duration.Seconds()),
		ExitCode:   status.ExitCode,
		Memory:     status.Memory.Current,
		CPU:        status.CPU.Current,
		PeakMemory: status.Memory.Limit,
		PeakCPU:    status.CPU.Limit,
	}
	if status.Time.IsZero() {
		state.Runtime = 0
	}

	if lines := j.Log(); len(lines) > 0 {
		state.LastLog = lines[len(lines)-1].Data
	}

	stats := j.Stats()
	state.Progress = &Progress{Frame: stats.Frame, Size: stats.Size, Speed: stats.Speed}
	snap, err := j.Progress()
	if snap != nil {
		state.Progress.Duration = snap.Duration
		state.Progress.Current = snap.Current
		state.Progress.Percent = snap.Progress
	}
	if err != nil {
		state.Progress.Error = err.Error()
	}
	return state
}

func jobToReport(j *job.Job, layout string) *JobReport {
	lines := j.Log()
	report := &JobReport{Log: make([][2]string, len(lines))}
	for i, line := range lines {
		ts := strconv.FormatInt(line.Timestamp.Unix(), 10)
		if layout != "" {
			ts = line.Timestamp.Format(layout)
		}
		report.Log[i] = [2]string{ts, line.Data}
	}
	return report
}

func jobToAPI(j *job.Job, filter string) Job {
	out := Job{
		ID:        j.ID,
		Reference: j.Reference,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}

	includeAll := filter == ""
	if includeAll || strings.Contains(filter, "config") {
		out.Config = jobToConfig(j)
	}
	if includeAll || strings.Contains(filter, "state") {
		out.State = jobToState(j)
	}
	if includeAll || strings.Contains(filter, "report") {
		out.Report = jobToReport(j, "")
	}
	return out
}
