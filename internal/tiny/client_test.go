package tiny

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:    srv.URL,
		Token:      "test-token",
		MarkerID:   185669,
		MarkerDesc: "Encomenda",
	})
}

func TestSearchOrder(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pedidos.pesquisa", r.URL.Path)
		assert.Equal(t, "test-token", r.URL.Query().Get("token"))
		assert.Equal(t, "1001", r.URL.Query().Get("numeroEcommerce"))
		assert.Equal(t, "JSON", r.URL.Query().Get("formato"))
		w.Write([]byte(`{"retorno":{"status":"OK","pedidos":[{"pedido":{"id":987654}},{"pedido":{"id":111}}]}}`))
	})
	id, err := c.SearchOrder(context.Background(), 1001)
	require.NoError(t, err)
	assert.Equal(t, int64(987654), id)
}

func TestSearchOrderEmptyResult(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"retorno":{"status":"Erro","pedidos":[]}}`))
	})
	_, err := c.SearchOrder(context.Background(), 1001)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestSearchOrderHTTPError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.SearchOrder(context.Background(), 1001)
	assert.ErrorContains(t, err, "HTTP 502")
}

func TestSearchOrderMalformedJSON(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"retorno":`))
	})
	_, err := c.SearchOrder(context.Background(), 1001)
	assert.ErrorContains(t, err, "parse response")
}

func TestSearchOrderNotConfigured(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://unused"})
	_, err := c.SearchOrder(context.Background(), 1001)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAddMarker(t *testing.T) {
	var got markerRequest
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pedido.marcadores.incluir", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"retorno":{"status":"ok"}}`)) // lowercase accepted
	})
	require.NoError(t, c.AddMarker(context.Background(), 987654))
	assert.Equal(t, int64(987654), got.IDPedido)
	require.Len(t, got.Marcadores, 1)
	assert.Equal(t, 185669, got.Marcadores[0].Marcador.ID)
	assert.Equal(t, "Encomenda", got.Marcadores[0].Marcador.Descricao)
}

func TestAddMarkerSemanticFailure(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"retorno":{"status":"Erro"}}`))
	})
	err := c.AddMarker(context.Background(), 987654)
	assert.ErrorIs(t, err, ErrRemoteStatus)
}

func TestChangeStatus(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pedido.alterar.situacao", r.URL.Path)
		assert.Equal(t, "987654", r.URL.Query().Get("id"))
		assert.Equal(t, "cancelado", r.URL.Query().Get("situacao"))
		w.Write([]byte(`{"retorno":{"status":"SUCCESS"}}`))
	})
	assert.NoError(t, c.ChangeStatus(context.Background(), 987654, SituationCancelled))
}

func TestCheckStatus(t *testing.T) {
	assert.NoError(t, checkStatus("OK"))
	assert.NoError(t, checkStatus("ok"))
	assert.NoError(t, checkStatus(" Success "))
	assert.Error(t, checkStatus("Erro"))
	assert.Error(t, checkStatus(""))
}
