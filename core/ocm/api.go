package ocm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dnslin/ocm-export/core/model"
)

type assetPage struct {
	Items []model.AssetRecord `json:"items"`
}

// ListAssets 获取一页目录记录，空切片表示分页结束。
func (c *Client) ListAssets(ctx context.Context, offset, limit int) ([]model.AssetRecord, error) {
	params := url.Values{}
	params.Set("repositoryId", c.repositoryID)
	params.Set("offset", strconv.Itoa(offset))
	params.Set("limit", strconv.Itoa(limit))
	req, err := c.newRequest(ctx, AssetsPath, params, "application/json")
	if err != nil {
		return nil, err
	}
	var page assetPage
	if err := c.http.Do(req, &page); err != nil {
		return nil, toAPIError("列出资产", err)
	}
	return page.Items, nil
}

// OpenNative 打开资产原始二进制流，单次尝试，调用方负责关闭并自行重试。
func (c *Client) OpenNative(ctx context.Context, assetID string) (io.ReadCloser, int64, error) {
	path := fmt.Sprintf(NativePath, url.PathEscape(assetID))
	req, err := c.newRequest(ctx, path, nil, "application/octet-stream")
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.download.Open(req)
	if err != nil {
		return nil, 0, toAPIError("下载资产 "+assetID, err)
	}
	return resp.Body, resp.ContentLength, nil
}

// ListMembers 获取仓库成员列表，兼容 {"items":[...]} 与裸数组两种返回。
func (c *Client) ListMembers(ctx context.Context) ([]json.RawMessage, error) {
	path := fmt.Sprintf(MembersPath, url.PathEscape(c.repositoryID))
	req, err := c.newRequest(ctx, path, nil, "application/json")
	if err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := c.http.Do(req, &raw); err != nil {
		return nil, toAPIError("列出成员", err)
	}
	return decodeMembers(raw)
}

func decodeMembers(raw json.RawMessage) ([]json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return []json.RawMessage{}, nil
	}
	var members []json.RawMessage
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(raw, &members); err != nil {
			return nil, &APIError{Code: ErrCodeMalformed, Op: "列出成员", Raw: err}
		}
		return members, nil
	}
	var wrapped struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, &APIError{Code: ErrCodeMalformed, Op: "列出成员", Raw: err}
	}
	if wrapped.Items == nil {
		return []json.RawMessage{}, nil
	}
	return wrapped.Items, nil
}

func (c *Client) newRequest(ctx context.Context, path string, params url.Values, accept string) (*http.Request, error) {
	u := joinURL(c.baseURL, path)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	return req, nil
}

func joinURL(base, path string) string {
	if base == "" {
		return path
	}
	base = strings.TrimSuffix(base, "/")
	if path == "" {
		return base
	}
	if strings.HasPrefix(path, "/") {
		return base + path
	}
	return base + "/" + path
}
