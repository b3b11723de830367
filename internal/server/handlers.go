package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/valpere/speechjudge/internal"
	"github.com/valpere/speechjudge/internal/judge"
	"github.com/valpere/speechjudge/internal/prompt"
	"github.com/valpere/speechjudge/internal/report"
	"github.com/valpere/speechjudge/internal/transcriber"
	"github.com/valpere/speechjudge/internal/validator"
)

const formField = "audio"

type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) fail(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{
		Error:     code,
		Message:   msg,
		RequestID: c.GetString(ctxRequestID),
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) rubric(c *gin.Context) {
	systemPrompt := s.config.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = prompt.SystemRubric
	}
	c.JSON(http.StatusOK, gin.H{
		"system_prompt": systemPrompt,
		"criteria":      prompt.Criteria(),
		"max_score":     prompt.MaxScore,
	})
}

func (s *Server) createEvaluation(c *gin.Context) {
	id := c.GetString(ctxRequestID)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.config.MaxUploadMB<<20)
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(c, http.StatusRequestEntityTooLarge, "too_large", fmt.Sprintf("upload exceeds %d MB", s.config.MaxUploadMB))
			return
		}
		s.fail(c, http.StatusBadRequest, judge.KindInvalidInput.String(), "expected multipart/form-data with one or more audio files")
		return
	}

	files := form.File[formField]
	if len(files) == 0 {
		s.fail(c, http.StatusBadRequest, judge.KindInvalidInput.String(), "no audio files in field \"audio\"")
		return
	}

	format, err := report.ParseFormat(c.DefaultPostForm("format", string(report.FormatJSON)))
	if err != nil || (format != report.FormatJSON && format != report.FormatHTML) {
		s.fail(c, http.StatusBadRequest, judge.KindInvalidInput.String(), "format must be json or html")
		return
	}

	opts := s.config.Options
	if lang := strings.TrimSpace(c.PostForm("language")); lang != "" {
		opts.Language = lang
	}

	dir, err := os.MkdirTemp("", "speechjudge-")
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create upload directory")
		s.fail(c, http.StatusInternalServerError, "internal", "failed to store upload")
		return
	}
	defer os.RemoveAll(dir)

	req := internal.EvaluationRequest{
		ID:        id,
		Language:  opts.Language,
		Format:    string(format),
		Timestamp: time.Now(),
	}
	for i, fh := range files {
		segID := transcriber.PositionalID(i, len(files))
		dst := filepath.Join(dir, segID+filepath.Ext(filepath.Base(fh.Filename)))
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			s.log.Error().Err(err).Str("file", fh.Filename).Msg("failed to save upload")
			s.fail(c, http.StatusInternalServerError, "internal", "failed to store upload")
			return
		}
		req.Inputs = append(req.Inputs, transcriber.AudioInput{ID: segID, Path: dst})
	}

	s.log.Debug().Str(ctxRequestID, id).Int("files", len(req.Inputs)).Str("language", req.Language).Msg("evaluation requested")

	ev, err := s.eval.Evaluate(c.Request.Context(), req.Inputs, opts)
	if err != nil {
		kind := judge.Classify(err)
		s.log.Warn().Err(err).Str(ctxRequestID, id).Str("kind", kind.String()).Msg("evaluation failed")
		s.fail(c, statusFor(kind), kind.String(), err.Error())
		return
	}

	rep, err := report.Build(id, ev)
	if err != nil {
		s.fail(c, http.StatusBadGateway, judge.KindService.String(), err.Error())
		return
	}
	s.checkLanguage(rep, req.Language)

	if format == report.FormatHTML {
		var buf bytes.Buffer
		if err := rep.Render(&buf, report.FormatHTML); err != nil {
			s.fail(c, http.StatusInternalServerError, "internal", err.Error())
			return
		}
		c.Data(http.StatusCreated, "text/html; charset=utf-8", buf.Bytes())
		return
	}
	c.JSON(http.StatusCreated, rep)
}

// checkLanguage records the detected transcript language and a warning on
// mismatch. The evaluation is never rejected for it.
func (s *Server) checkLanguage(rep *report.Report, hint string) {
	if s.langs == nil {
		return
	}
	detected, err := s.langs.Transcript(rep.Transcript, hint)
	rep.Language = detected
	var mm *validator.MismatchError
	if errors.As(err, &mm) {
		rep.LanguageWarning = mm.Error()
		s.log.Warn().Str(ctxRequestID, rep.ID).Str("expected", mm.Expected).Str("detected", mm.Detected).Msg("transcript language mismatch")
	}
}

func statusFor(k judge.Kind) int {
	switch k {
	case judge.KindInvalidInput:
		return http.StatusBadRequest
	case judge.KindTranscription:
		return http.StatusUnprocessableEntity
	case judge.KindRateLimited:
		return http.StatusTooManyRequests
	case judge.KindUnavailable, judge.KindCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
