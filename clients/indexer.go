package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/crosslane/crosslane/types"
)

// indexerClient queries the protocol indexer that tracks cross-chain
// messages. Both chain families share this read path; only transaction
// construction differs per family.
type indexerClient struct {
	baseURL string
	http    *http.Client
}

func newIndexerClient(baseURL string) *indexerClient {
	return &indexerClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type messageResponse struct {
	Metadata struct {
		Status                 string `json:"status"`
		ReceiptTransactionHash string `json:"receiptTransactionHash"`
	} `json:"metadata"`
	Log struct {
		TransactionHash string `json:"transactionHash"`
	} `json:"log"`
}

type laneLatencyResponse struct {
	TotalMs int64 `json:"totalMs"`
}

type feeResponse struct {
	Fee string `json:"fee"`
}

func (c *indexerClient) messageByID(ctx context.Context, messageID string) (*types.MessageRecord, error) {
	resp, err := doRequest[messageResponse](ctx, c, http.MethodGet, fmt.Sprintf("/messages/%s", messageID), nil)
	if err != nil {
		return nil, err
	}
	return &types.MessageRecord{
		MessageID:    messageID,
		Status:       types.ParseFineStatus(resp.Metadata.Status),
		SourceTxHash: resp.Log.TransactionHash,
		DestTxHash:   resp.Metadata.ReceiptTransactionHash,
	}, nil
}

func (c *indexerClient) laneLatency(ctx context.Context, sourceSelector, destSelector uint64) (time.Duration, error) {
	resp, err := doRequest[laneLatencyResponse](ctx, c, http.MethodGet,
		fmt.Sprintf("/lanes/%d/%d/latency", sourceSelector, destSelector), nil)
	if err != nil {
		return 0, err
	}
	return time.Duration(resp.TotalMs) * time.Millisecond, nil
}

// doRequest issues one JSON request against the indexer and unmarshals
// the result envelope. 404 maps to types.ErrMessageNotFound so callers
// can treat indexing lag as an expected condition.
func doRequest[T any](ctx context.Context, c *indexerClient, method, path string, body interface{}) (*T, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound && strings.HasPrefix(path, "/messages/"):
		// Indexing lag on a fresh message; other endpoints report a
		// missing resource as a plain request failure below.
		return nil, types.ErrMessageNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		te := &types.TransferError{
			Code:      types.ErrCodeNetwork,
			Message:   fmt.Sprintf("indexer returned status %d", resp.StatusCode),
			Detail:    string(respBody),
			Transient: true,
			Recovery:  "retry shortly",
		}
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if d, perr := time.ParseDuration(ra + "s"); perr == nil {
				te.RetryAfter = d
			}
		}
		return nil, te
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("indexer request failed, status %d: %s", resp.StatusCode, string(respBody))
	}

	var out struct {
		Result T `json:"result"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out.Result, nil
}
