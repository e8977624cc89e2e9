package careclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	mqcontracts "carecircle/contracts/mq"
)

// Subscribe 打开 SSE 变更订阅。返回的 channel 在连接断开或 ctx 取消后关闭
func (c *Client) Subscribe(ctx context.Context, table, filter string) (<-chan mqcontracts.ChangeEvent, error) {
	path := "/realtime/" + url.PathEscape(table)
	if filter != "" {
		path += "?filter=" + url.QueryEscape(filter)
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	// 长连接不能沿用普通请求的超时
	hc := *c.httpClient
	hc.Timeout = 0
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}

	out := make(chan mqcontracts.ChangeEvent, 16)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		_ = readEvents(resp, func(event, data string) bool {
			if event != "change" {
				return true
			}
			var ev mqcontracts.ChangeEvent
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				return true
			}
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()
	return out, nil
}

// readEvents 解析 text/event-stream，fn 返回 false 时停止
func readEvents(resp *http.Response, fn func(event, data string) bool) error {
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)

	var event string
	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if len(data) > 0 || event != "" {
				if !fn(event, strings.Join(data, "\n")) {
					return nil
				}
			}
			event, data = "", nil
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			event = value
		case "data":
			data = append(data, value)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	return nil
}
