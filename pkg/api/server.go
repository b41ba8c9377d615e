// Package api exposes image generation over HTTP.
package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/Zakonildo/Diffusion-Model/pkg/diffusion"
	"github.com/Zakonildo/Diffusion-Model/pkg/imageio"
)

const maxBatch = 16

// Server serves generation requests against a fixed sampler/predictor pair.
// The predictor is stateful (mode switch, cached activations), so
// generation runs are serialized.
type Server struct {
	mu        sync.Mutex
	sampler   *diffusion.Sampler
	predictor diffusion.Predictor
}

// NewServer returns a Server generating with the given sampler and predictor.
func NewServer(sampler *diffusion.Sampler, predictor diffusion.Predictor) *Server {
	return &Server{sampler: sampler, predictor: predictor}
}

// Register mounts the API routes on e.
func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/generate", s.handleGenerate)
}

// GenerateRequest is the body of POST /v1/generate.
type GenerateRequest struct {
	N    int    `json:"n"`
	Seed *int64 `json:"seed,omitempty"`
}

// GenerateResponse carries the generated batch as a base64 PNG strip.
type GenerateResponse struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"created_at"`
	N         int    `json:"n"`
	Seed      int64  `json:"seed"`
	ImagePNG  string `json:"image_png"`
}

func (s *Server) handleGenerate(c *echo.Context) error {
	var req GenerateRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid_request_error", "malformed JSON body")
	}
	if req.N <= 0 || req.N > maxBatch {
		return writeError(c, http.StatusBadRequest, "invalid_request_error", "n must lie in [1, 16]")
	}
	seed := time.Now().UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}

	id := "gen-" + uuid.NewString()
	log.Info("generating", "id", id, "n", req.N, "seed", seed)

	rng := rand.New(rand.NewSource(seed))
	s.mu.Lock()
	batch, err := s.sampler.Generate(c.Request().Context(), s.predictor, req.N, rng)
	s.mu.Unlock()
	if err != nil {
		if errors.Is(err, diffusion.ErrConfig) {
			return writeError(c, http.StatusBadRequest, "invalid_request_error", err.Error())
		}
		log.Error("generation failed", "id", id, "err", err)
		return writeError(c, http.StatusInternalServerError, "computation_error", err.Error())
	}

	var buf bytes.Buffer
	if err := imageio.EncodeGrid(batch, &buf); err != nil {
		log.Error("encoding failed", "id", id, "err", err)
		return writeError(c, http.StatusInternalServerError, "computation_error", err.Error())
	}

	return c.JSON(http.StatusOK, GenerateResponse{
		ID:        id,
		CreatedAt: time.Now().Unix(),
		N:         req.N,
		Seed:      seed,
		ImagePNG:  base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return c.JSON(status, map[string]any{
		"error": map[string]string{
			"type":    errType,
			"message": msg,
		},
	})
}
