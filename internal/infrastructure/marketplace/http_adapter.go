package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jhoicas/farmacia-stock/internal/application/ports"
)

// Verificar en tiempo de compilación que HTTPAdapter implementa SyncAdapter.
var _ ports.SyncAdapter = (*HTTPAdapter)(nil)

const deltasPath = "/api/v1/inventory/receiving-deltas"

// HTTPAdapter envía deltas de entrada al marketplace por HTTP/JSON. El marketplace resuelve el SKU
// a su propio producto.
type HTTPAdapter struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPAdapter construye el adaptador. El timeout por llamada lo impone el despachador con
// context.WithTimeout; el del cliente es sólo un tope de red.
func NewHTTPAdapter(baseURL, apiKey string, timeout time.Duration) *HTTPAdapter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPAdapter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type deltaRequest struct {
	SKU         string `json:"sku"`
	Delta       int64  `json:"delta"`
	NewQuantity int64  `json:"new_quantity"`
}

type deltaResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// PushReceivingDelta un 2xx con success=false o un 4xx es un rechazo (SyncResult sin éxito);
// red, timeout, 408, 429 y 5xx son errores reintentables.
func (a *HTTPAdapter) PushReceivingDelta(ctx context.Context, sku string, delta, newQuantity int64) (ports.SyncResult, error) {
	body, err := json.Marshal(deltaRequest{SKU: sku, Delta: delta, NewQuantity: newQuantity})
	if err != nil {
		return ports.SyncResult{}, fmt.Errorf("marketplace: serializar request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+deltasPath, bytes.NewReader(body))
	if err != nil {
		return ports.SyncResult{}, fmt.Errorf("marketplace: crear HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ports.SyncResult{}, fmt.Errorf("marketplace: timeout o cancelación: %w", ctx.Err())
		}
		return ports.SyncResult{}, fmt.Errorf("marketplace: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return ports.SyncResult{}, fmt.Errorf("marketplace: leer respuesta: %w", err)
	}
	var parsed deltaResponse
	_ = json.Unmarshal(raw, &parsed)
	detail := parsed.Error
	if detail == "" {
		detail = parsed.Message
	}
	if detail == "" {
		detail = strings.TrimSpace(string(raw))
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if len(raw) == 0 || parsed.Success {
			return ports.SyncResult{Success: true}, nil
		}
		return ports.SyncResult{Success: false, Error: detail}, nil
	case resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return ports.SyncResult{}, fmt.Errorf("marketplace: HTTP %d: %s", resp.StatusCode, detail)
	default:
		return ports.SyncResult{Success: false, Error: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, detail)}, nil
	}
}
