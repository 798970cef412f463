// Package tiny talks to the Tiny ERP HTTP API and runs the deferred
// order-sync workflow for backordered orders.
package tiny

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// Remote order situations used by the optional status walk.
	SituationCancelled = "cancelado"
	SituationApproved  = "aprovado"
)

var (
	ErrNotConfigured = errors.New("tiny: api token not configured")
	ErrOrderNotFound = errors.New("tiny: order not found")
	ErrRemoteStatus  = errors.New("tiny: remote returned non-success status")
)

type Config struct {
	BaseURL    string
	Token      string
	MarkerID   int
	MarkerDesc string
}

type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		// the remote API is slow; calls block the job, never a request
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Configured() bool { return c.cfg.Token != "" }

type searchResponse struct {
	Retorno struct {
		Status  string `json:"status"`
		Pedidos []struct {
			Pedido struct {
				ID int64 `json:"id"`
			} `json:"pedido"`
		} `json:"pedidos"`
	} `json:"retorno"`
}

// SearchOrder resolves the local order number (numeroEcommerce) to Tiny's own
// order id. Empty result sets map to ErrOrderNotFound.
func (c *Client) SearchOrder(ctx context.Context, orderID int64) (int64, error) {
	if !c.Configured() {
		return 0, ErrNotConfigured
	}
	q := url.Values{}
	q.Set("token", c.cfg.Token)
	q.Set("numeroEcommerce", strconv.FormatInt(orderID, 10))
	q.Set("formato", "JSON")

	var out searchResponse
	if err := c.get(ctx, "/pedidos.pesquisa", q, &out); err != nil {
		return 0, err
	}
	if len(out.Retorno.Pedidos) == 0 {
		return 0, ErrOrderNotFound
	}
	return out.Retorno.Pedidos[0].Pedido.ID, nil
}

type statusResponse struct {
	Retorno struct {
		Status string `json:"status"`
	} `json:"retorno"`
}

type markerRequest struct {
	Token      string        `json:"token"`
	IDPedido   int64         `json:"idPedido"`
	Marcadores []markerEntry `json:"marcadores"`
	Formato    string        `json:"formato"`
}

type markerEntry struct {
	Marcador marker `json:"marcador"`
}

type marker struct {
	ID        int    `json:"id"`
	Descricao string `json:"descricao"`
}

// AddMarker attaches the configured categorical marker to the remote order.
func (c *Client) AddMarker(ctx context.Context, tinyID int64) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	body := markerRequest{
		Token:      c.cfg.Token,
		IDPedido:   tinyID,
		Marcadores: []markerEntry{{Marcador: marker{ID: c.cfg.MarkerID, Descricao: c.cfg.MarkerDesc}}},
		Formato:    "json",
	}
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/pedido.marcadores.incluir", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	var out statusResponse
	if err := c.do(req, &out); err != nil {
		return err
	}
	return checkStatus(out.Retorno.Status)
}

// ChangeStatus moves the remote order to the given situation.
func (c *Client) ChangeStatus(ctx context.Context, tinyID int64, situation string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	q := url.Values{}
	q.Set("token", c.cfg.Token)
	q.Set("id", strconv.FormatInt(tinyID, 10))
	q.Set("situacao", situation)
	q.Set("formato", "JSON")

	var out statusResponse
	if err := c.get(ctx, "/pedido.alterar.situacao", q, &out); err != nil {
		return err
	}
	return checkStatus(out.Retorno.Status)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("tiny: %s: %w", req.URL.Path, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("tiny: %s: HTTP %d", req.URL.Path, res.StatusCode)
	}
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("tiny: read body: %w", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("tiny: parse response: %w", err)
	}
	return nil
}

// Tiny signals success inside the body; "OK" and "SUCCESS" both count,
// case-insensitively.
func checkStatus(s string) error {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OK", "SUCCESS":
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrRemoteStatus, s)
	}
}
