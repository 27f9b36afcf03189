package provider

import (
	"context"
	"io"
	"net/http"
	"time"

	"heat_engine/internal/models"

	"github.com/pkg/errors"
)

// Remote — внешний провайдер сигналов за HTTP (в проде за ним LLM).
// Выход непрозрачный и недетерминированный, поэтому всё проходит
// через DecodeSignals.
type Remote struct {
	name string
	url  string
	http *http.Client
}

func NewRemote(name, url string) *Remote {
	return &Remote{
		name: name,
		url:  url,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

func (r *Remote) Name() string { return r.name }

func (r *Remote) Signals(ctx context.Context) ([]models.Signal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("provider %s: http %d", r.name, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return DecodeSignals(body)
}

// Static — детерминированный провайдер с фиксированным набором
// сигналов; используется в тестах и как заглушка.
type Static struct {
	name string
	sigs []models.Signal
}

func NewStatic(name string, sigs []models.Signal) *Static {
	return &Static{name: name, sigs: sigs}
}

func (s *Static) Name() string { return s.name }

func (s *Static) Signals(_ context.Context) ([]models.Signal, error) {
	out := make([]models.Signal, len(s.sigs))
	copy(out, s.sigs)
	return out, nil
}
