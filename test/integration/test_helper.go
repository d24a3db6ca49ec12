package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"testing"
)

// BaseURL 指向被测服务；API_BASE_URL 未设置时跳过整个集成测试
var BaseURL = os.Getenv("API_BASE_URL")

func TestMain(m *testing.M) {
	os.Exit(m.Run())
}

func requireServer(t *testing.T) {
	t.Helper()
	if BaseURL == "" {
		t.Skip("API_BASE_URL not set, skipping integration tests")
	}
}

// adminRequest 构造带 X-Admin-Token 的管理端请求
func adminRequest(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}

	req, err := http.NewRequest(method, BaseURL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Token", os.Getenv("ADMIN_TOKEN"))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
